package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aineshm/searchlayer/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertDocument_IdempotentByContentHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, inserted1, err := s.InsertDocument(ctx, domain.Document{SourcePath: "notes.md", SourceType: "markdown", Title: "Notes", ContentHash: "abc123"})
	require.NoError(t, err)
	assert.True(t, inserted1)

	second, inserted2, err := s.InsertDocument(ctx, domain.Document{SourcePath: "notes.md", SourceType: "markdown", Title: "Notes", ContentHash: "abc123"})
	require.NoError(t, err)
	assert.False(t, inserted2)

	assert.Equal(t, first.DocID, second.DocID)

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestInsertChunks_MirrorsIntoFTS(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, _, err := s.InsertDocument(ctx, domain.Document{SourcePath: "a.md", SourceType: "markdown", Title: "A", ContentHash: "hash-a"})
	require.NoError(t, err)

	chunks := []domain.Chunk{
		{ChunkID: "c1", DocID: doc.DocID, ChunkText: "alpha beta", StartOffset: 0, EndOffset: 10},
		{ChunkID: "c2", DocID: doc.DocID, ChunkText: "gamma delta", StartOffset: 10, EndOffset: 21},
	}
	require.NoError(t, s.InsertChunks(ctx, chunks))

	var mirrored int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM chunks_fts`).Scan(&mirrored))
	assert.Equal(t, 2, mirrored)

	all, err := s.AllChunksOrdered(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c1", all[0].ChunkID)
	assert.Equal(t, "c2", all[1].ChunkID)
}

func TestChunkSnapshotHash_StableUnderOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, _, err := s.InsertDocument(ctx, domain.Document{SourcePath: "a.md", SourceType: "markdown", ContentHash: "hash-b"})
	require.NoError(t, err)

	require.NoError(t, s.InsertChunks(ctx, []domain.Chunk{
		{ChunkID: "z", DocID: doc.DocID, ChunkText: "z", EndOffset: 1},
		{ChunkID: "a", DocID: doc.DocID, ChunkText: "a", EndOffset: 1},
	}))
	h1, err := s.ChunkSnapshotHash(ctx)
	require.NoError(t, err)

	s2 := newTestStore(t)
	doc2, _, err := s2.InsertDocument(ctx, domain.Document{SourcePath: "a.md", SourceType: "markdown", ContentHash: "hash-b"})
	require.NoError(t, err)
	require.NoError(t, s2.InsertChunks(ctx, []domain.Chunk{
		{ChunkID: "a", DocID: doc2.DocID, ChunkText: "a", EndOffset: 1},
		{ChunkID: "z", DocID: doc2.DocID, ChunkText: "z", EndOffset: 1},
	}))
	h2, err := s2.ChunkSnapshotHash(ctx)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
}

func TestActivateManifest_DeactivatesPrevious(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.ActivateManifest(ctx, domain.IndexManifest{ModelName: "static-256", Dim: 256, ChunkCount: 1, ChunkSnapshotHash: "h1", IndexFilePath: "v1.hnsw"})
	require.NoError(t, err)
	assert.True(t, first.Active)

	second, err := s.ActivateManifest(ctx, domain.IndexManifest{ModelName: "static-256", Dim: 256, ChunkCount: 2, ChunkSnapshotHash: "h2", IndexFilePath: "v2.hnsw"})
	require.NoError(t, err)
	assert.True(t, second.Active)
	assert.NotEqual(t, first.IndexID, second.IndexID)

	active, err := s.ActiveManifest(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "h2", active.ChunkSnapshotHash)

	var activeCount int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM index_manifests WHERE active = 1`).Scan(&activeCount))
	assert.Equal(t, 1, activeCount)
}

func TestChunksByIDs_PreservesCallerOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, _, err := s.InsertDocument(ctx, domain.Document{SourcePath: "notes.md", SourceType: "markdown", ContentHash: "hash-c"})
	require.NoError(t, err)
	require.NoError(t, s.InsertChunks(ctx, []domain.Chunk{
		{ChunkID: "c1", DocID: doc.DocID, ChunkText: "one", EndOffset: 3},
		{ChunkID: "c2", DocID: doc.DocID, ChunkText: "two", EndOffset: 3},
		{ChunkID: "c3", DocID: doc.DocID, ChunkText: "three", EndOffset: 5},
	}))

	rows, err := s.ChunksByIDs(ctx, []string{"c3", "c1", "c2"})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"c3", "c1", "c2"}, []string{rows[0].ChunkID, rows[1].ChunkID, rows[2].ChunkID})
	assert.Equal(t, "notes.md", rows[0].SourcePath)
}

func TestReplaceEmbeddings_RoundTrips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, _, err := s.InsertDocument(ctx, domain.Document{SourcePath: "a.md", SourceType: "markdown", ContentHash: "hash-d"})
	require.NoError(t, err)
	require.NoError(t, s.InsertChunks(ctx, []domain.Chunk{{ChunkID: "c1", DocID: doc.DocID, ChunkText: "x", EndOffset: 1}}))

	require.NoError(t, s.ReplaceEmbeddings(ctx, "static-8", []domain.Embedding{
		{VectorID: 0, ChunkID: "c1", Dim: 3, Vector: []float32{0.1, 0.2, 0.3}},
	}))

	count, err := s.EmbeddingCount(ctx, "static-8")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	rows, err := s.AllEmbeddings(ctx, "static-8")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDeltaSlice(t, []float32{0.1, 0.2, 0.3}, rows[0].Vector, 1e-6)
}
