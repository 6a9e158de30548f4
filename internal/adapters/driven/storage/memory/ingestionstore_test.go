package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docstage/internal/core/domain"
)

func putFile(t *testing.T, store *IngestionStore, hash, blob string) {
	t.Helper()
	res, err := store.PutFile(context.Background(), domain.NewFile{
		Hash: hash, Path: "/data/" + hash, Name: hash, Extension: ".TXT", Blob: []byte(blob),
	})
	require.NoError(t, err)
	require.Equal(t, domain.PutCreated, res)
}

func TestNewIngestionStore(t *testing.T) {
	store := NewIngestionStore()
	require.NotNil(t, store)
	assert.NoError(t, store.Init(context.Background()))
	assert.NoError(t, store.Close())
}

func TestIngestionStore_PutFile(t *testing.T) {
	store := NewIngestionStore()
	ctx := context.Background()
	putFile(t, store, "h", "abc")

	res, err := store.PutFile(ctx, domain.NewFile{Hash: "h", Blob: []byte("xyz")})
	require.NoError(t, err)
	assert.Equal(t, domain.PutAlreadyExists, res)

	_, err = store.PutFile(ctx, domain.NewFile{Hash: "h", Blob: []byte("longer")})
	assert.ErrorIs(t, err, domain.ErrHashCollision)

	file, err := store.GetFile(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, ".txt", file.Extension)
	assert.Equal(t, domain.StatusPending, file.Status)
	assert.Nil(t, file.Blob)

	blob, err := store.GetFileBlob(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(blob))
}

func TestIngestionStore_SetStatus(t *testing.T) {
	store := NewIngestionStore()
	ctx := context.Background()
	putFile(t, store, "h", "abc")

	err := store.SetStatus(ctx, "h", domain.StatusUpdate{Status: domain.StatusCompleted})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	err = store.SetStatus(ctx, "h", domain.StatusUpdate{Status: domain.StatusProcessing, Expect: domain.StatusFailed})
	assert.ErrorIs(t, err, domain.ErrStatusConflict)

	require.NoError(t, store.SetStatus(ctx, "h", domain.StatusUpdate{Status: domain.StatusProcessing}))
	n := 4
	require.NoError(t, store.SetStatus(ctx, "h", domain.StatusUpdate{Status: domain.StatusCompleted, ChunkCount: &n}))

	file, err := store.GetFile(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, file.Status)
	assert.Equal(t, 4, file.ChunkCount)

	err = store.SetStatus(ctx, "missing", domain.StatusUpdate{Status: domain.StatusProcessing})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngestionStore_ConcurrentClaim(t *testing.T) {
	store := NewIngestionStore()
	putFile(t, store, "h", "abc")

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.SetStatus(context.Background(), "h", domain.StatusUpdate{
				Status: domain.StatusProcessing,
				Expect: domain.StatusPending,
			})
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestIngestionStore_ChunksAndCascade(t *testing.T) {
	store := NewIngestionStore()
	ctx := context.Background()
	putFile(t, store, "a", "aa")
	putFile(t, store, "b", "bbb")

	_, err := store.AddElements(ctx, "a", []domain.ExtractedElement{
		{ElementDraft: domain.ElementDraft{Kind: domain.KindText, Text: "x"}, ExtractorName: "t", ExtractorVersion: "1"},
	})
	require.NoError(t, err)

	err = store.ReplaceChunks(ctx, "a", []domain.Chunk{{ID: "a1", Index: 1}, {ID: "a0", Index: 0}})
	require.NoError(t, err)
	chunks, err := store.GetChunks(ctx, "a")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "a0", chunks[0].ID)

	err = store.ReplaceChunks(ctx, "b", []domain.Chunk{{ID: "b0", Index: 0}, {ID: "b2", Index: 2}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = store.ReplaceChunks(ctx, "b", []domain.Chunk{{ID: "a0", Index: 0}})
	assert.ErrorIs(t, err, domain.ErrIntegrity)

	require.NoError(t, store.ReplaceChunks(ctx, "b", []domain.Chunk{{ID: "b0", Index: 0}}))
	require.NoError(t, store.DeleteFile(ctx, "a"))

	els, err := store.GetElements(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, els)

	stats, err := store.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalFiles)
	assert.Equal(t, 0, stats.TotalElements)
	assert.Equal(t, 1, stats.TotalChunks)
	assert.Equal(t, int64(3), stats.TotalBlobBytes)

	assert.ErrorIs(t, store.DeleteFile(ctx, "a"), domain.ErrNotFound)
}

func TestIngestionStore_Embeddings(t *testing.T) {
	store := NewIngestionStore()
	ctx := context.Background()
	putFile(t, store, "a", "aa")
	require.NoError(t, store.ReplaceChunks(ctx, "a", []domain.Chunk{{ID: "a0", Index: 0}, {ID: "a1", Index: 1}}))

	pending, err := store.ChunksWithoutEmbedding(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, store.SetStatus(ctx, "a", domain.StatusUpdate{Status: domain.StatusProcessing}))
	require.NoError(t, store.SetStatus(ctx, "a", domain.StatusUpdate{Status: domain.StatusCompleted}))
	require.NoError(t, store.SetChunkEmbedding(ctx, "a0", []float32{1, 2}))

	pending, err = store.ChunksWithoutEmbedding(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "a1", pending[0].ID)

	assert.ErrorIs(t, store.SetChunkEmbedding(ctx, "zz", []float32{1}), domain.ErrNotFound)
}

func TestIngestionStore_MergeMetadataAndList(t *testing.T) {
	store := NewIngestionStore()
	ctx := context.Background()
	putFile(t, store, "b", "1")
	putFile(t, store, "a", "2")

	require.NoError(t, store.MergeMetadata(ctx, "a", map[string]any{"k": "v"}))
	files, err := store.ListFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "b", files[0].Hash)
	assert.Equal(t, "v", files[1].Metadata["k"])

	files[1].Metadata["k"] = "mutated"
	again, err := store.GetFile(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "v", again.Metadata["k"], "callers get copies")
}
