package admin

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cloo-solutions/consultbot/internal/corpus"
	"github.com/cloo-solutions/consultbot/internal/domain"
	"github.com/cloo-solutions/consultbot/internal/repository"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type importOptions struct {
	from    string
	root    string
	source  string
	prune   bool
	publish bool
	dryRun  bool
}

// ImportCmd returns the import command
func ImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import knowledge into the database",
		Long: `Loads knowledge items from corpus files (a doublestar glob relative to
--root) or from an .xlsx export of the Q&A and FAQ sheets, and upserts them
into Postgres under a source name. --publish also writes the full corpus as
a snapshot object to the configured bucket.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runImport(ctx, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.from, "from", "f", "", "Glob of corpus files or path to an .xlsx workbook")
	cmd.Flags().StringVar(&opts.root, "root", "", "Directory globs are resolved against (default CONSULT_CORPUS_ROOT)")
	cmd.Flags().StringVar(&opts.source, "source", "", "Source name recorded on imported rows (default files or sheets)")
	cmd.Flags().BoolVar(&opts.prune, "prune", false, "Delete rows of the source that the import no longer contains")
	cmd.Flags().BoolVar(&opts.publish, "publish", false, "Publish the resulting corpus as a snapshot")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Only report what would be imported")
	_ = cmd.MarkFlagRequired("from")

	return cmd
}

// importLoader picks the loader for from and the default source name.
func importLoader(from, root string, deriveCategories bool) (corpus.Loader, string) {
	if strings.EqualFold(filepath.Ext(from), ".xlsx") {
		return corpus.NewSheetsLoader(corpus.DefaultSheetsConfig(from)), "sheets"
	}
	return corpus.NewFileLoader(corpus.FileLoaderConfig{
		Root:             root,
		Patterns:         []string{from},
		DeriveCategories: deriveCategories,
	}), "files"
}

func runImport(ctx context.Context, out io.Writer, opts importOptions) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.close()

	root := opts.root
	if root == "" {
		root = rt.cfg.CorpusRoot
	}
	loader, source := importLoader(opts.from, root, rt.cfg.DeriveCategory)
	if opts.source != "" {
		source = opts.source
	}

	items, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", opts.from, err)
	}
	_, report := corpus.NewStore(items)
	printReport(out, opts.from, report)

	if opts.dryRun {
		return nil
	}

	published := items
	if rt.cfg.HasDatabase() {
		pool, err := rt.openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()
		if rt.cfg.AutoMigrate {
			if err := rt.migrate(false); err != nil {
				return err
			}
		}

		repo := repository.NewKnowledgeRepository(pool)
		res, err := repo.Import(ctx, source, items, opts.prune)
		if err != nil {
			return fmt.Errorf("failed to import: %w", err)
		}
		rt.logger.Info("knowledge imported",
			zap.String("source", source),
			zap.Int("upserted", res.Upserted),
			zap.Int("pruned", res.Pruned),
			zap.Int("skipped", res.Skipped),
		)
		color.New(color.FgGreen).Fprintf(out, "imported %d items into %q (pruned %d, skipped %d)\n",
			res.Upserted, source, res.Pruned, res.Skipped)

		if opts.publish {
			if published, err = repo.Load(ctx); err != nil {
				return fmt.Errorf("failed to read corpus for snapshot: %w", err)
			}
		}
	} else if !opts.publish {
		return fmt.Errorf("nothing to import into: set CONSULT_DATABASE_URL or use --publish")
	}

	if opts.publish {
		return publish(ctx, rt, out, published)
	}
	return nil
}

func publish(ctx context.Context, rt *runtime, out io.Writer, items []domain.KnowledgeItem) error {
	store, err := rt.openSnapshotStore(ctx, true)
	if err != nil {
		return err
	}
	if err := corpus.PublishSnapshot(ctx, store, rt.cfg.SnapshotKey, items); err != nil {
		return err
	}

	meta, err := store.HeadObject(ctx, rt.cfg.SnapshotKey)
	if err != nil {
		return fmt.Errorf("snapshot written but not readable: %w", err)
	}
	rt.logger.Info("snapshot published",
		zap.String("bucket", store.Bucket()),
		zap.String("key", rt.cfg.SnapshotKey),
		zap.Int64("bytes", meta.ContentLength),
		zap.String("etag", meta.ETag),
		zap.String("item_count", meta.Metadata[corpus.MetaItemCount]),
	)
	color.New(color.FgGreen).Fprintf(out, "published %d items to s3://%s/%s (%d bytes)\n",
		len(items), store.Bucket(), rt.cfg.SnapshotKey, meta.ContentLength)
	return nil
}

func printReport(out io.Writer, from string, r corpus.LoadReport) {
	fmt.Fprintf(out, "%s: %d accepted (qa %d, faq %d, knowledge-base %d)\n",
		from, r.Accepted,
		r.AcceptedByOrigin[domain.ProvenanceQA],
		r.AcceptedByOrigin[domain.ProvenanceFAQ],
		r.AcceptedByOrigin[domain.ProvenanceKnowledgeBase],
	)
	if skipped := r.SkippedEmpty + r.SkippedDuplicate + r.SkippedInvalid; skipped > 0 {
		color.New(color.FgYellow).Fprintf(out, "skipped %d (empty %d, duplicate %d, invalid %d)\n",
			skipped, r.SkippedEmpty, r.SkippedDuplicate, r.SkippedInvalid)
	}
}
