//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/cloo-solutions/consultbot/internal/corpus"
	"github.com/cloo-solutions/consultbot/internal/domain"
	"github.com/cloo-solutions/consultbot/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Client_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	rc := testutil.NewRustFSContainer(ctx, t)
	defer rc.Terminate(ctx)

	client, err := NewS3Client(ctx, S3ClientConfig{
		Endpoint:        rc.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     rc.AccessKey,
		SecretAccessKey: rc.SecretKey,
		Bucket:          "corpus-test",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, client.EnsureBucket(ctx))
	require.NoError(t, client.EnsureBucket(ctx), "EnsureBucket is idempotent")

	items := []domain.KnowledgeItem{
		{ID: "f1", Provenance: domain.ProvenanceFAQ, Prompt: "간판 비용", Body: "크기별"},
		{ID: "q1", Provenance: domain.ProvenanceQA, Prompt: "개원 절차"},
	}
	require.NoError(t, corpus.PublishSnapshot(ctx, client, "snapshots/corpus.json", items))

	meta, err := client.HeadObject(ctx, "snapshots/corpus.json")
	require.NoError(t, err)
	assert.Positive(t, meta.ContentLength)
	assert.Equal(t, "2", meta.Metadata[corpus.MetaItemCount])

	loader := corpus.NewSnapshotLoader(client, "snapshots/corpus.json")
	loaded, err := loader.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, items, loaded)

	_, _, err = client.GetObjectIfChanged(ctx, "snapshots/corpus.json", meta.ETag)
	assert.ErrorIs(t, err, ErrNotModified)

	again, err := loader.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, items, again, "unchanged snapshot is served from cache")
}

func TestS3Client_MissingObject(t *testing.T) {
	ctx := context.Background()
	rc := testutil.NewRustFSContainer(ctx, t)
	defer rc.Terminate(ctx)

	client, err := NewS3Client(ctx, S3ClientConfig{
		Endpoint:        rc.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     rc.AccessKey,
		SecretAccessKey: rc.SecretKey,
		Bucket:          "corpus-missing",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	require.NoError(t, client.EnsureBucket(ctx))

	_, err = client.GetObject(ctx, "nope.json")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}
