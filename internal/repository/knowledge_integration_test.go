//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/cloo-solutions/consultbot/internal/corpus"
	"github.com/cloo-solutions/consultbot/internal/domain"
	"github.com/cloo-solutions/consultbot/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleItems() []domain.KnowledgeItem {
	return []domain.KnowledgeItem{
		{
			ID: "faq-1", Provenance: domain.ProvenanceFAQ, Prompt: "간판 제작 비용", Body: "크기에 따라 달라요.",
			Tags: domain.Tags{DomainArea: "간판", Specialties: []string{"피부과"}, Highlights: []string{"LED"}},
		},
		{ID: "qa-1", Provenance: domain.ProvenanceQA, Prompt: "개원 절차", Body: "사업자 등록부터"},
		{ID: "kb-1", Prompt: "인테리어 공정", Tags: domain.Tags{CategoryPath: "advanced/interior"}},
		{ID: "bad", Provenance: domain.ProvenanceFAQ, Prompt: "   "},
	}
}

func TestKnowledgeRepository_ImportAndLoad(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc)
	defer pool.Close()

	repo := NewKnowledgeRepository(pool)

	res, err := repo.Import(ctx, "sheets", sampleItems(), false)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Upserted)
	assert.Equal(t, 1, res.Skipped)

	items, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []string{"faq-1", "qa-1", "kb-1"}, []string{items[0].ID, items[1].ID, items[2].ID})
	assert.Equal(t, []string{"피부과"}, items[0].Tags.Specialties)
	assert.Equal(t, domain.ProvenanceKnowledgeBase, items[2].Provenance)
	assert.Nil(t, items[1].Tags.Highlights)

	store, err := corpus.LoadStore(ctx, repo, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, store.Len())
}

func TestKnowledgeRepository_ImportUpdatesAndPrunes(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc)
	defer pool.Close()

	repo := NewKnowledgeRepository(pool)
	_, err := repo.Import(ctx, "sheets", sampleItems(), false)
	require.NoError(t, err)
	_, err = repo.Import(ctx, "notion", []domain.KnowledgeItem{{ID: "kb-2", Prompt: "의료기기 리스"}}, false)
	require.NoError(t, err)

	updated := []domain.KnowledgeItem{{ID: "qa-1", Provenance: domain.ProvenanceQA, Prompt: "개원 절차 안내", Body: "갱신"}}
	res, err := repo.Import(ctx, "sheets", updated, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Upserted)
	assert.Equal(t, 2, res.Pruned)

	got, err := repo.GetByID(ctx, "qa-1")
	require.NoError(t, err)
	assert.Equal(t, "개원 절차 안내", got.Prompt)

	_, err = repo.GetByID(ctx, "faq-1")
	assert.ErrorIs(t, err, domain.ErrKnowledgeNotFound)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "other sources are not pruned")

	sheets, err := repo.ListBySource(ctx, "sheets")
	require.NoError(t, err)
	assert.Len(t, sheets, 1)

	require.NoError(t, repo.Delete(ctx, "kb-2"))
	assert.ErrorIs(t, repo.Delete(ctx, "kb-2"), domain.ErrKnowledgeNotFound)

	require.NoError(t, testutil.TruncateAll(ctx, pool))
	n, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
