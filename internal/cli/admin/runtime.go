package admin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cloo-solutions/consultbot/internal/config"
	"github.com/cloo-solutions/consultbot/internal/corpus"
	"github.com/cloo-solutions/consultbot/internal/database"
	"github.com/cloo-solutions/consultbot/internal/repository"
	"github.com/cloo-solutions/consultbot/internal/retrieval"
	"github.com/cloo-solutions/consultbot/internal/storage"
	"github.com/cloo-solutions/consultbot/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// runtime holds what every daemon command starts from.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	flush  func()
}

func setup() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	flush := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.SentryEnvironment,
		TracesSampleRate: cfg.SentrySampleRate,
		Debug:            cfg.Debug,
	}, logger)

	return &runtime{cfg: cfg, logger: logger, flush: flush}, nil
}

func (rt *runtime) close() {
	rt.flush()
	_ = rt.logger.Sync()
}

func (rt *runtime) openPool(ctx context.Context) (*pgxpool.Pool, error) {
	if !rt.cfg.HasDatabase() {
		return nil, errors.New("CONSULT_DATABASE_URL is not set")
	}
	pool, err := database.NewPool(ctx, database.Config{URL: rt.cfg.DatabaseURL})
	if err != nil {
		return nil, err
	}
	rt.logger.Info("connected to database")
	return pool, nil
}

func (rt *runtime) migrate(down bool) error {
	status, err := database.Migrate(rt.cfg.DatabaseURL, down, rt.logger)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	rt.logger.Info("migrations done", zap.Uint("version", status.Version), zap.Bool("changed", status.Changed))
	return nil
}

// openSnapshotStore connects to the snapshot bucket, creating it when asked.
func (rt *runtime) openSnapshotStore(ctx context.Context, ensure bool) (*storage.S3Client, error) {
	if !rt.cfg.HasS3() {
		return nil, errors.New("snapshot storage is not configured (CONSULT_S3_BUCKET and CONSULT_S3_ENDPOINT or credentials)")
	}
	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        rt.cfg.S3Endpoint,
		Region:          rt.cfg.S3Region,
		AccessKeyID:     rt.cfg.S3AccessKey,
		SecretAccessKey: rt.cfg.S3SecretKey,
		Bucket:          rt.cfg.S3Bucket,
		UsePathStyle:    rt.cfg.S3Endpoint != "",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	if ensure {
		if err := client.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
	}
	return client, nil
}

// corpusSources lists the loaders configured for the corpus. The database,
// when present, comes first so its items win over file duplicates.
type corpusSources struct {
	repo     *repository.KnowledgeRepository
	snapshot *storage.S3Client
	// filesOnly restricts the corpus to local files and sheets.
	filesOnly bool
}

func (rt *runtime) buildLoader(src corpusSources) *corpus.MultiLoader {
	ml := corpus.NewMultiLoader(rt.logger)

	if src.repo != nil && !src.filesOnly {
		ml.Add("postgres", src.repo)
	}
	if dirExists(rt.cfg.CorpusRoot) {
		ml.Add("files", corpus.NewFileLoader(corpus.FileLoaderConfig{
			Root:             rt.cfg.CorpusRoot,
			Patterns:         rt.cfg.CorpusGlobs,
			DeriveCategories: rt.cfg.DeriveCategory,
		}))
	}
	if rt.cfg.HasSheets() {
		ml.Add("sheets", corpus.NewSheetsLoader(corpus.DefaultSheetsConfig(rt.cfg.SheetsPath)))
	}
	if src.snapshot != nil && !src.filesOnly {
		ml.Add("snapshot", corpus.NewSnapshotLoader(src.snapshot, rt.cfg.SnapshotKey))
	}
	return ml
}

func (rt *runtime) buildScorer() (*retrieval.Scorer, error) {
	rs := retrieval.DefaultRuleset()
	if rt.cfg.RulesetPath != "" {
		loaded, err := retrieval.LoadRuleset(rt.cfg.RulesetPath)
		if err != nil {
			return nil, err
		}
		rs = loaded
		rt.logger.Info("scoring ruleset loaded", zap.String("path", rt.cfg.RulesetPath))
	}
	return retrieval.NewScorer(rs)
}

func dirExists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
