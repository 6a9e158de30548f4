package driving

import (
	"context"

	"github.com/custodia-labs/docstage/internal/core/domain"
)

// IngestionService drives files through store, extract and chunk.
type IngestionService interface {
	// Ingest stores raw bytes and runs the pipeline for them.
	// Integrity errors are returned; every other failure is an outcome.
	Ingest(ctx context.Context, input domain.IngestInput, opts domain.IngestOptions) (*domain.IngestOutcome, error)

	// IngestFile validates and ingests a file from disk.
	IngestFile(ctx context.Context, path string, opts domain.IngestOptions) (*domain.IngestOutcome, error)

	// IngestPath ingests a file or every eligible file below a directory.
	IngestPath(ctx context.Context, root string, opts domain.IngestOptions) (*domain.BatchReport, error)

	// Process runs the pipeline for a stored pending file.
	Process(ctx context.Context, hash string) (*domain.IngestOutcome, error)

	// ProcessPending drains every pending file.
	ProcessPending(ctx context.Context) (*domain.BatchReport, error)

	// Retry moves a failed file back to pending and processes it.
	Retry(ctx context.Context, hash string) (*domain.IngestOutcome, error)

	// Reextract reruns extraction and chunking for a completed file.
	Reextract(ctx context.Context, hash string, opts domain.IngestOptions) (*domain.IngestOutcome, error)

	// Rechunk rebuilds chunks from stored elements without re-extracting.
	Rechunk(ctx context.Context, hash string, targetSize, overlap int) (int, error)

	// RecoverStale marks files left in processing as failed.
	RecoverStale(ctx context.Context) (int, error)

	// Delete removes a file and everything derived from it.
	Delete(ctx context.Context, hash string) error

	// Get returns file metadata.
	Get(ctx context.Context, hash string) (*domain.FileRecord, error)

	// List returns files, optionally filtered by status (empty means all).
	List(ctx context.Context, status domain.FileStatus) ([]domain.FileRecord, error)

	// Elements returns a file's stored elements.
	Elements(ctx context.Context, hash string) ([]domain.ExtractedElement, error)

	// Chunks returns a file's chunks in order.
	Chunks(ctx context.Context, hash string) ([]domain.Chunk, error)

	// Statistics returns store totals.
	Statistics(ctx context.Context) (*domain.Statistics, error)

	// Extractors returns info for every registered backend.
	Extractors() []domain.ExtractorInfo
}
