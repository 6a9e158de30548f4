package driven

import (
	"context"

	"github.com/custodia-labs/docstage/internal/core/domain"
)

// IngestionStore persists files, extracted elements and chunks.
// Every method is transactional. Reads never return the blob unless the
// method name says so.
type IngestionStore interface {
	// Init creates or migrates the schema. Safe to call repeatedly.
	Init(ctx context.Context) error

	// PutFile stores a new file. An existing hash with the same size returns
	// PutAlreadyExists and changes nothing; a different size returns
	// ErrHashCollision.
	PutFile(ctx context.Context, file domain.NewFile) (domain.PutResult, error)

	// GetFile returns the file metadata without the blob.
	GetFile(ctx context.Context, hash string) (*domain.FileRecord, error)

	// GetFileBlob returns the raw bytes.
	GetFileBlob(ctx context.Context, hash string) ([]byte, error)

	// SetStatus validates and applies a transition. The write only succeeds
	// if the row still has the status that was validated; otherwise
	// ErrStatusConflict is returned.
	SetStatus(ctx context.Context, hash string, update domain.StatusUpdate) error

	// MergeMetadata shallow-merges values into the file metadata.
	MergeMetadata(ctx context.Context, hash string, values map[string]any) error

	// ListByStatus returns files with the given status, oldest first.
	ListByStatus(ctx context.Context, status domain.FileStatus) ([]domain.FileRecord, error)

	// ListFiles returns every file, oldest first.
	ListFiles(ctx context.Context) ([]domain.FileRecord, error)

	// AddElements inserts elements in one transaction and returns them
	// with their assigned IDs.
	AddElements(ctx context.Context, hash string, elements []domain.ExtractedElement) ([]domain.ExtractedElement, error)

	// GetElements returns elements in insertion order.
	GetElements(ctx context.Context, hash string) ([]domain.ExtractedElement, error)

	// ReplaceChunks atomically swaps the file's chunk set.
	// Indices must be contiguous from zero.
	ReplaceChunks(ctx context.Context, hash string, chunks []domain.Chunk) error

	// GetChunks returns chunks ordered by index.
	GetChunks(ctx context.Context, hash string) ([]domain.Chunk, error)

	// ChunksWithoutEmbedding returns up to limit chunks of completed files
	// whose embedding has not been written yet.
	ChunksWithoutEmbedding(ctx context.Context, limit int) ([]domain.Chunk, error)

	// SetChunkEmbedding stores the vector for a chunk.
	SetChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error

	// DeleteFile removes a file with its elements and chunks.
	DeleteFile(ctx context.Context, hash string) error

	// Statistics returns totals and per-status counts.
	Statistics(ctx context.Context) (*domain.Statistics, error)

	// Close releases underlying resources.
	Close() error
}
