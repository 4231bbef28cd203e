package corpus

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/consultbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleItems() []domain.KnowledgeItem {
	return []domain.KnowledgeItem{
		{ID: "qa-0", Provenance: domain.ProvenanceQA, Prompt: "간판 비용은?", Body: "크기에 따라 달라요."},
		{ID: "faq-0", Provenance: domain.ProvenanceFAQ, Prompt: "  개원 절차  ", Body: "..."},
		{ID: "kb-0", Provenance: domain.ProvenanceKnowledgeBase, Prompt: "디자인캐프", Body: "간판 전문 업체"},
		{ID: "kb-1", Provenance: domain.ProvenanceKnowledgeBase, Prompt: "", Body: "no title"},
		{ID: "qa-0", Provenance: domain.ProvenanceQA, Prompt: "duplicate", Body: "..."},
		{ID: "", Provenance: domain.ProvenanceQA, Prompt: "no id", Body: "..."},
		{ID: "kb-2", Prompt: "defaults to knowledge base", Body: "..."},
	}
}

func TestNewStore(t *testing.T) {
	store, report := NewStore(sampleItems())

	assert.Equal(t, 4, store.Len())
	assert.Equal(t, 4, report.Accepted)
	assert.Equal(t, 1, report.SkippedEmpty)
	assert.Equal(t, 1, report.SkippedDuplicate)
	assert.Equal(t, 1, report.SkippedInvalid)
	assert.Equal(t, 2, report.AcceptedByOrigin[domain.ProvenanceKnowledgeBase])

	item, err := store.Get("qa-0")
	require.NoError(t, err)
	assert.Equal(t, "간판 비용은?", item.Prompt)

	item, err = store.Get("faq-0")
	require.NoError(t, err)
	assert.Equal(t, "개원 절차", item.Prompt)

	item, err = store.Get("kb-2")
	require.NoError(t, err)
	assert.Equal(t, domain.ProvenanceKnowledgeBase, item.Provenance)

	_, err = store.Get("kb-1")
	assert.ErrorIs(t, err, domain.ErrKnowledgeNotFound)
}

func TestStore_AtReturnsArenaPointer(t *testing.T) {
	store, _ := NewStore(sampleItems())

	first := store.At(0)
	again := store.At(0)
	byID, err := store.Get(first.ID)
	require.NoError(t, err)

	assert.Same(t, first, again)
	assert.Same(t, first, byID)
}

func TestStore_CountByProvenance(t *testing.T) {
	store, _ := NewStore(sampleItems())

	counts := store.CountByProvenance()
	assert.Equal(t, 1, counts[domain.ProvenanceQA])
	assert.Equal(t, 1, counts[domain.ProvenanceFAQ])
	assert.Equal(t, 2, counts[domain.ProvenanceKnowledgeBase])
}

func TestStore_NilIsEmpty(t *testing.T) {
	var store *Store

	assert.True(t, store.Empty())
	assert.Equal(t, 0, store.Len())
	assert.Empty(t, store.CountByProvenance())
	assert.Empty(t, store.FAQFields())
	assert.Empty(t, store.FAQList("파트너사", "간판"))
	_, err := store.Get("x")
	assert.ErrorIs(t, err, domain.ErrKnowledgeNotFound)
}

func faqItems() []domain.KnowledgeItem {
	faq := func(id, field, topic string) domain.KnowledgeItem {
		return domain.KnowledgeItem{
			ID: id, Provenance: domain.ProvenanceFAQ, Prompt: id + " 질문", Body: "답변",
			Tags: domain.Tags{DomainArea: field, Topic: topic},
		}
	}
	return []domain.KnowledgeItem{
		faq("faq-0", "파트너사", "인테리어"),
		faq("faq-1", "개원 준비", "세무"),
		faq("faq-2", "파트너사", "간판"),
		faq("faq-3", "주제 (대분류)", "주제"),
		faq("faq-4", "파트너사", "인테리어"),
		faq("faq-5", "", ""),
		{ID: "qa-0", Provenance: domain.ProvenanceQA, Prompt: "QA 질문", Tags: domain.Tags{DomainArea: "QA 영역", Topic: "일반"}},
	}
}

func TestStore_FAQFields(t *testing.T) {
	store, _ := NewStore(faqItems())

	assert.Equal(t, []string{"개원 준비", "기타", "파트너사"}, store.FAQFields())
}

func TestStore_FAQTopics(t *testing.T) {
	store, _ := NewStore(faqItems())

	tests := []struct {
		name  string
		field string
		want  []string
	}{
		{"sorted topics", "파트너사", []string{"간판", "인테리어"}},
		{"single topic", "개원 준비", []string{"세무"}},
		{"defaulted item", "기타", []string{"일반"}},
		{"header row excluded", "주제 (대분류)", []string{}},
		{"qa items not indexed", "QA 영역", []string{}},
		{"unknown field", "없음", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, store.FAQTopics(tt.field))
		})
	}
}

func TestStore_FAQList(t *testing.T) {
	store, _ := NewStore(faqItems())

	tests := []struct {
		name  string
		field string
		topic string
		want  []string
	}{
		{"store order", "파트너사", "인테리어", []string{"faq-0", "faq-4"}},
		{"single item", "파트너사", "간판", []string{"faq-2"}},
		{"topic of another field", "개원 준비", "간판", []string{}},
		{"unknown field", "없음", "세무", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := []string{}
			for _, item := range store.FAQList(tt.field, tt.topic) {
				ids = append(ids, item.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	list := store.FAQList("파트너사", "간판")
	require.Len(t, list, 1)
	assert.Same(t, store.At(2), list[0])
}

func TestRegistry_SwapKeepsSnapshots(t *testing.T) {
	first, _ := NewStore(sampleItems())
	registry := NewRegistry(first)

	snapshot := registry.Current()
	second, _ := NewStore(nil)
	prev := registry.Swap(second)

	assert.Same(t, first, prev)
	assert.Same(t, second, registry.Current())
	assert.Equal(t, 4, snapshot.Len())
}

func TestNewRegistry_NilStore(t *testing.T) {
	registry := NewRegistry(nil)
	require.NotNil(t, registry.Current())
	assert.True(t, registry.Current().Empty())
}

type stubLoader struct {
	items []domain.KnowledgeItem
	err   error
}

func (s stubLoader) Load(ctx context.Context) ([]domain.KnowledgeItem, error) {
	return s.items, s.err
}

func TestMultiLoader_PartialFailure(t *testing.T) {
	items := sampleItems()
	loader := NewMultiLoader(nil,
		NamedLoader{Name: "sheets", Loader: stubLoader{items: items[:2]}},
		NamedLoader{Name: "s3", Loader: stubLoader{err: errors.New("access denied")}},
		NamedLoader{Name: "files", Loader: stubLoader{items: items[2:3]}},
	)

	loaded, err := loader.Load(context.Background())

	assert.Len(t, loaded, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3: access denied")
}

func TestMultiLoader_CancelledContext(t *testing.T) {
	loader := NewMultiLoader(nil, NamedLoader{Name: "files", Loader: stubLoader{items: sampleItems()}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loaded, err := loader.Load(ctx)

	assert.Empty(t, loaded)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadStore(t *testing.T) {
	t.Run("all sources fail", func(t *testing.T) {
		store, err := LoadStore(context.Background(), stubLoader{err: errors.New("boom")}, nil)
		require.NotNil(t, store)
		assert.True(t, store.Empty())
		assert.ErrorIs(t, err, domain.ErrEmptyCorpus)
	})

	t.Run("partial", func(t *testing.T) {
		store, err := LoadStore(context.Background(), stubLoader{items: sampleItems()[:1], err: errors.New("boom")}, nil)
		assert.Equal(t, 1, store.Len())
		assert.Equal(t, domain.ErrCodeCorpusLoadIncomplete, domain.CodeOf(err))
	})

	t.Run("ok", func(t *testing.T) {
		store, err := LoadStore(context.Background(), stubLoader{items: sampleItems()}, nil)
		assert.NoError(t, err)
		assert.Equal(t, 4, store.Len())
	})
}
