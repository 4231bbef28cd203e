package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/consultbot/internal/api/handlers"
	"github.com/cloo-solutions/consultbot/internal/api/middleware"
	"github.com/cloo-solutions/consultbot/internal/config"
	"github.com/cloo-solutions/consultbot/internal/corpus"
	"github.com/cloo-solutions/consultbot/internal/domain"
	"github.com/cloo-solutions/consultbot/internal/jobs"
	"github.com/cloo-solutions/consultbot/internal/memory"
	"github.com/cloo-solutions/consultbot/internal/openai"
	"github.com/cloo-solutions/consultbot/internal/repository"
	"github.com/cloo-solutions/consultbot/internal/retrieval"
	"github.com/cloo-solutions/consultbot/internal/server"
	"github.com/cloo-solutions/consultbot/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the consultation API server. The corpus is loaded from every configured source.",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides CONSULT_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.close()
	cfg, logger := rt.cfg, rt.logger

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	var sources corpusSources
	if cfg.HasDatabase() {
		pool, err := rt.openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if cfg.AutoMigrate && !noMigrate {
			if err := rt.migrate(false); err != nil {
				return err
			}
		}
		sources.repo = repository.NewKnowledgeRepository(pool)
	}
	if cfg.HasS3() {
		client, err := rt.openSnapshotStore(ctx, false)
		if err != nil {
			return err
		}
		sources.snapshot = client
	}

	registry := corpus.NewRegistry(nil)
	refresher := jobs.NewCorpusRefresher(rt.buildLoader(sources), registry, logger)
	if err := refresher.ProcessJobs(ctx); err != nil {
		// An empty corpus still serves: every answer becomes a no-data reply.
		logger.Warn("initial corpus load failed", zap.Error(err))
	}

	scorer, err := rt.buildScorer()
	if err != nil {
		return err
	}
	selector := retrieval.NewSelector(scorer, logger)

	llm, err := buildCollaborators(cfg, logger)
	if err != nil {
		return err
	}

	sessions, err := service.NewSessionStore(cfg.SessionCapacity, registry, func() *memory.Manager {
		return memory.NewManager(llm.summarizer, cfg.MemoryCap, logger)
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create session store: %w", err)
	}

	chatSvc := service.NewChatService(service.ChatDeps{
		Sessions:  sessions,
		Selector:  selector,
		Planner:   llm.planner,
		Generator: llm.generator,
		Logger:    logger,
	})
	searchSvc := service.NewSearchService(chatSvc, registry)

	routerCfg := server.RouterConfig{
		SessionHandler: handlers.NewSessionHandler(chatSvc),
		SearchHandler:  handlers.NewSearchHandler(searchSvc, registry),
		Logger:         logger,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	}
	if keys := middleware.ParseKeySet(cfg.APIKey); keys != nil {
		routerCfg.AuthValidator = keys
	} else {
		logger.Warn("CONSULT_API_KEY not set, /v1 is open")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// SIGHUP reloads the corpus off schedule.
	interval := cfg.RefreshEvery
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	refreshWorker := jobs.NewWorker("corpus-refresh", refresher, interval, logger)
	go refreshWorker.Start(ctx)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-hup:
				logger.Info("corpus reload requested")
				refreshWorker.Trigger()
			case <-ctx.Done():
				return
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port), zap.Int("corpus_items", registry.Current().Len()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	refreshWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

// collaborators are the model-backed parts of a turn. Without an OpenAI key
// the planner and summarizer are absent and generation always fails, which
// leaves search usable.
type collaborators struct {
	planner    service.PlannerInterface
	generator  service.GeneratorInterface
	summarizer memory.Summarizer
}

func buildCollaborators(cfg *config.Config, logger *zap.Logger) (*collaborators, error) {
	if !cfg.HasOpenAI() {
		logger.Warn("CONSULT_OPENAI_API_KEY not set, answers are unavailable")
		return &collaborators{generator: unavailableGenerator{}}, nil
	}

	client := openai.NewClientWithConfig(openai.Config{
		APIKey:           cfg.OpenAIAPIKey,
		BaseURL:          cfg.OpenAIBaseURL,
		PlannerModels:    cfg.PlannerModels,
		GeneratorModels:  cfg.GeneratorModels,
		SummarizerModels: cfg.SummarizerModels,
	}, logger)

	planner, err := openai.NewPlanner(client)
	if err != nil {
		return nil, err
	}
	eff := client.Config()
	logger.Info("language models configured",
		zap.Strings("planner", eff.PlannerModels),
		zap.Strings("generator", eff.GeneratorModels),
		zap.Strings("summarizer", eff.SummarizerModels),
	)
	return &collaborators{
		planner:    planner,
		generator:  openai.NewGenerator(client),
		summarizer: openai.NewSummarizer(client),
	}, nil
}

type unavailableGenerator struct{}

func (unavailableGenerator) Generate(context.Context, openai.GenerateRequest) (*openai.Generation, error) {
	return nil, domain.Wrap(domain.ErrGenerationFailed, openai.ErrNoAPIKey)
}
