package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloo-solutions/consultbot/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// KnowledgeRepository persists the knowledge corpus. Load returns items in
// first-insertion order so store positions stay stable across reloads.
type KnowledgeRepository struct {
	db dbtx
}

func NewKnowledgeRepository(pool *pgxpool.Pool) *KnowledgeRepository {
	return &KnowledgeRepository{db: pool}
}

func NewKnowledgeRepositoryWithTx(tx pgx.Tx) *KnowledgeRepository {
	return &KnowledgeRepository{db: tx}
}

const knowledgeColumns = `id, provenance, prompt, body, domain_area, topic, category_path, specialties, highlights, external_link`

// ImportResult counts the effect of an import.
type ImportResult struct {
	Upserted int `json:"upserted"`
	Pruned   int `json:"pruned"`
	Skipped  int `json:"skipped"`
}

// Load implements corpus.Loader.
func (r *KnowledgeRepository) Load(ctx context.Context) ([]domain.KnowledgeItem, error) {
	rows, err := r.db.Query(ctx, `SELECT `+knowledgeColumns+` FROM knowledge_items ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

func (r *KnowledgeRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	item, err := scanItem(r.db.QueryRow(ctx, `SELECT `+knowledgeColumns+` FROM knowledge_items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrKnowledgeNotFound
		}
		return nil, err
	}
	return item, nil
}

// ListBySource returns the items last imported from source.
func (r *KnowledgeRepository) ListBySource(ctx context.Context, source string) ([]domain.KnowledgeItem, error) {
	rows, err := r.db.Query(ctx, `SELECT `+knowledgeColumns+` FROM knowledge_items WHERE source = $1 ORDER BY seq`, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

func (r *KnowledgeRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM knowledge_items`).Scan(&n)
	return n, err
}

func (r *KnowledgeRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM knowledge_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrKnowledgeNotFound
	}
	return nil
}

// Import upserts items under source in one transaction and records the run.
// Items that fail validation are skipped. With prune set, rows of source
// whose IDs are not in items are deleted.
func (r *KnowledgeRepository) Import(ctx context.Context, source string, items []domain.KnowledgeItem, prune bool) (*ImportResult, error) {
	started := time.Now().UTC()
	result := &ImportResult{}

	err := r.withTx(ctx, func(tx *KnowledgeRepository) error {
		valid := make([]domain.KnowledgeItem, 0, len(items))
		for _, item := range items {
			if item.Provenance == "" {
				item.Provenance = domain.ProvenanceKnowledgeBase
			}
			if domain.ValidateKnowledgeItem(&item) != nil {
				result.Skipped++
				continue
			}
			valid = append(valid, item)
		}

		n, err := tx.upsert(ctx, source, valid)
		if err != nil {
			return err
		}
		result.Upserted = n

		if prune {
			ids := make([]string, 0, len(valid))
			for _, item := range valid {
				ids = append(ids, item.ID)
			}
			tag, err := tx.db.Exec(ctx,
				`DELETE FROM knowledge_items WHERE source = $1 AND NOT (id = ANY($2))`,
				source, ids,
			)
			if err != nil {
				return fmt.Errorf("failed to prune %s: %w", source, err)
			}
			result.Pruned = int(tag.RowsAffected())
		}

		_, err = tx.db.Exec(ctx,
			`INSERT INTO import_runs (id, source, upserted, pruned, skipped, started_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.NewString(), source, result.Upserted, result.Pruned, result.Skipped, started,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *KnowledgeRepository) upsert(ctx context.Context, source string, items []domain.KnowledgeItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, k := range items {
		batch.Queue(
			`INSERT INTO knowledge_items (`+knowledgeColumns+`, source)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 ON CONFLICT (id) DO UPDATE SET
			   provenance = EXCLUDED.provenance,
			   prompt = EXCLUDED.prompt,
			   body = EXCLUDED.body,
			   domain_area = EXCLUDED.domain_area,
			   topic = EXCLUDED.topic,
			   category_path = EXCLUDED.category_path,
			   specialties = EXCLUDED.specialties,
			   highlights = EXCLUDED.highlights,
			   external_link = EXCLUDED.external_link,
			   source = EXCLUDED.source,
			   updated_at = now()`,
			k.ID, string(k.Provenance), k.Prompt, k.Body,
			k.Tags.DomainArea, k.Tags.Topic, k.Tags.CategoryPath,
			nonNil(k.Tags.Specialties), nonNil(k.Tags.Highlights), k.Tags.ExternalLink,
			source,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	for _, k := range items {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return 0, fmt.Errorf("failed to upsert %s: %w", k.ID, err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, err
	}
	return len(items), nil
}

func (r *KnowledgeRepository) withTx(ctx context.Context, fn func(tx *KnowledgeRepository) error) error {
	b, ok := r.db.(txBeginner)
	if !ok {
		return fn(r)
	}

	tx, err := b.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(NewKnowledgeRepositoryWithTx(tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func scanItem(row pgx.Row) (*domain.KnowledgeItem, error) {
	var k domain.KnowledgeItem
	var provenance string
	err := row.Scan(&k.ID, &provenance, &k.Prompt, &k.Body,
		&k.Tags.DomainArea, &k.Tags.Topic, &k.Tags.CategoryPath,
		&k.Tags.Specialties, &k.Tags.Highlights, &k.Tags.ExternalLink,
	)
	if err != nil {
		return nil, err
	}
	k.Provenance = domain.Provenance(provenance)
	if len(k.Tags.Specialties) == 0 {
		k.Tags.Specialties = nil
	}
	if len(k.Tags.Highlights) == 0 {
		k.Tags.Highlights = nil
	}
	return &k, nil
}

func scanItems(rows pgx.Rows) ([]domain.KnowledgeItem, error) {
	var items []domain.KnowledgeItem
	for rows.Next() {
		k, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *k)
	}
	return items, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
