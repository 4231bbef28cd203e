package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/consultbot/internal/corpus"
	"github.com/cloo-solutions/consultbot/internal/domain"
	"github.com/cloo-solutions/consultbot/internal/telemetry"
	"go.uber.org/zap"
)

// CorpusRefresher rebuilds the knowledge store from its loaders and publishes
// it. Sessions already running keep the store they started with.
type CorpusRefresher struct {
	loader   corpus.Loader
	registry *corpus.Registry
	logger   *zap.Logger
	now      func() time.Time
}

// NewCorpusRefresher creates a refresher publishing into registry.
func NewCorpusRefresher(loader corpus.Loader, registry *corpus.Registry, logger *zap.Logger) *CorpusRefresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CorpusRefresher{loader: loader, registry: registry, logger: logger, now: time.Now}
}

// ProcessJobs reloads the corpus. A load that yields no items leaves the
// current store in place and is returned as an error; a partial load is
// published with a warning.
func (r *CorpusRefresher) ProcessJobs(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, "corpus.refresh", telemetry.SpanAttributes{Operation: "refresh"})
	defer span.End()

	start := r.now()
	store, err := corpus.LoadStore(ctx, r.loader, r.logger)
	if store.Empty() {
		if err == nil {
			err = domain.ErrEmptyCorpus
		}
		span.SetError(err)
		r.logger.Warn("corpus refresh produced no items, keeping current store",
			zap.Int("current_items", r.registry.Current().Len()),
			zap.Error(err),
		)
		return err
	}

	if err != nil {
		var de *domain.DomainError
		if !errors.As(err, &de) || de.Code != domain.ErrCodeCorpusLoadIncomplete {
			span.SetError(err)
			return err
		}
		r.logger.Warn("corpus refresh incomplete", zap.Error(err))
		telemetry.CaptureError(ctx, err)
	}

	prev := r.registry.Swap(store)
	span.SetData("items", store.Len())
	r.logger.Info("corpus refreshed",
		zap.Int("items", store.Len()),
		zap.Int("previous_items", prev.Len()),
		zap.Duration("elapsed", r.now().Sub(start)),
	)
	return nil
}
