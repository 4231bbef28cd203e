package corpus

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/consultbot/internal/domain"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// Loader supplies knowledge items from one source.
type Loader interface {
	Load(ctx context.Context) ([]domain.KnowledgeItem, error)
}

// NamedLoader pairs a loader with the name used in logs.
type NamedLoader struct {
	Name   string
	Loader Loader
}

// MultiLoader runs several loaders and concatenates their items. A failing
// source does not discard what the other sources returned.
type MultiLoader struct {
	loaders []NamedLoader
	logger  *zap.Logger
}

// NewMultiLoader creates a MultiLoader over loaders.
func NewMultiLoader(logger *zap.Logger, loaders ...NamedLoader) *MultiLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MultiLoader{loaders: loaders, logger: logger}
}

// Add appends a loader.
func (m *MultiLoader) Add(name string, loader Loader) {
	m.loaders = append(m.loaders, NamedLoader{Name: name, Loader: loader})
}

// Len returns the number of configured loaders.
func (m *MultiLoader) Len() int {
	return len(m.loaders)
}

// Load returns all items that loaded plus an aggregated error for the
// sources that failed.
func (m *MultiLoader) Load(ctx context.Context) ([]domain.KnowledgeItem, error) {
	var items []domain.KnowledgeItem
	var result *multierror.Error

	for _, nl := range m.loaders {
		if err := ctx.Err(); err != nil {
			result = multierror.Append(result, err)
			break
		}

		loaded, err := nl.Loader.Load(ctx)
		if err != nil {
			m.logger.Warn("corpus source failed", zap.String("source", nl.Name), zap.Error(err))
			result = multierror.Append(result, fmt.Errorf("%s: %w", nl.Name, err))
		}
		if len(loaded) > 0 {
			m.logger.Info("corpus source loaded", zap.String("source", nl.Name), zap.Int("items", len(loaded)))
			items = append(items, loaded...)
		}
	}

	return items, result.ErrorOrNil()
}

// LoadStore loads through loader and builds a store. Load errors are logged
// and returned alongside whatever store could be built, which may be empty.
func LoadStore(ctx context.Context, loader Loader, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	items, err := loader.Load(ctx)
	store, report := NewStore(items)

	logger.Info("knowledge store built",
		zap.Int("accepted", report.Accepted),
		zap.Int("skipped_empty", report.SkippedEmpty),
		zap.Int("skipped_duplicate", report.SkippedDuplicate),
		zap.Int("skipped_invalid", report.SkippedInvalid),
		zap.Int("qa", report.AcceptedByOrigin[domain.ProvenanceQA]),
		zap.Int("faq", report.AcceptedByOrigin[domain.ProvenanceFAQ]),
		zap.Int("knowledge_base", report.AcceptedByOrigin[domain.ProvenanceKnowledgeBase]),
	)

	if err != nil {
		if store.Empty() {
			return store, domain.Wrap(domain.ErrEmptyCorpus, err)
		}
		return store, domain.NewDomainErrorWithCause(domain.ErrCodeCorpusLoadIncomplete, "some corpus sources failed", err)
	}
	if store.Empty() {
		logger.Warn("knowledge store is empty")
	}
	return store, nil
}
