package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cloo-solutions/consultbot/internal/domain"
)

// Snapshot is the serialised form of a whole corpus
type Snapshot struct {
	GeneratedAt time.Time              `json:"generatedAt"`
	Items       []domain.KnowledgeItem `json:"items"`
}

// DecodeSnapshot parses a snapshot document.
func DecodeSnapshot(data []byte) ([]domain.KnowledgeItem, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap.Items, nil
}

// ObjectStore reads and writes whole objects by key.
type ObjectStore interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
	PutObject(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) error
}

// ConditionalStore is an ObjectStore that can skip unchanged downloads. It
// reports a matching ETag through an error recognised by IsNotModified.
type ConditionalStore interface {
	ObjectStore
	GetObjectIfChanged(ctx context.Context, key, etag string) ([]byte, string, error)
	IsNotModified(err error) bool
}

// SnapshotLoader loads the corpus from a snapshot object. Against a
// ConditionalStore it keeps the last decoded snapshot and reuses it while
// the object's ETag is unchanged.
type SnapshotLoader struct {
	store ObjectStore
	key   string

	mu     sync.Mutex
	etag   string
	cached []domain.KnowledgeItem
}

// NewSnapshotLoader creates a SnapshotLoader reading key from store.
func NewSnapshotLoader(store ObjectStore, key string) *SnapshotLoader {
	return &SnapshotLoader{store: store, key: key}
}

// Load fetches and decodes the snapshot.
func (l *SnapshotLoader) Load(ctx context.Context) ([]domain.KnowledgeItem, error) {
	cs, ok := l.store.(ConditionalStore)
	if !ok {
		data, err := l.store.GetObject(ctx, l.key)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch snapshot %s: %w", l.key, err)
		}
		return DecodeSnapshot(data)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	data, etag, err := cs.GetObjectIfChanged(ctx, l.key, l.etag)
	if err != nil {
		if l.etag != "" && cs.IsNotModified(err) {
			return append([]domain.KnowledgeItem(nil), l.cached...), nil
		}
		return nil, fmt.Errorf("failed to fetch snapshot %s: %w", l.key, err)
	}
	items, err := DecodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	l.etag, l.cached = etag, items
	return append([]domain.KnowledgeItem(nil), items...), nil
}

// Snapshot metadata keys written by PublishSnapshot.
const (
	MetaItemCount   = "item-count"
	MetaGeneratedAt = "generated-at"
)

// PublishSnapshot writes items as a snapshot object under key.
func PublishSnapshot(ctx context.Context, store ObjectStore, key string, items []domain.KnowledgeItem) error {
	generated := time.Now().UTC()
	data, err := json.Marshal(Snapshot{GeneratedAt: generated, Items: items})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return store.PutObject(ctx, key, data, "application/json", map[string]string{
		MetaItemCount:   strconv.Itoa(len(items)),
		MetaGeneratedAt: generated.Format(time.RFC3339),
	})
}
