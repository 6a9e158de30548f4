package domain

import (
	"fmt"
	"time"
)

// FileStatus is the processing state of a file.
type FileStatus string

const (
	// StatusPending means the file is stored and waiting for extraction.
	StatusPending FileStatus = "pending"

	// StatusProcessing means exactly one pipeline currently owns the file.
	StatusProcessing FileStatus = "processing"

	// StatusCompleted means elements and chunks are stored.
	StatusCompleted FileStatus = "completed"

	// StatusFailed means the last pipeline run failed; ErrorMessage says why.
	StatusFailed FileStatus = "failed"
)

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []FileStatus {
	return []FileStatus{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}
}

// allowedTransitions lists the only legal status edges.
// failed→pending (retry) and completed→processing (re-extraction)
// are the only backward edges.
var allowedTransitions = map[FileStatus][]FileStatus{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusCompleted:  {StatusProcessing},
	StatusFailed:     {StatusPending},
}

// IsValid returns true if the status is a known status.
func (s FileStatus) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s FileStatus) CanTransitionTo(next FileStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrInvalidTransition wrapped with both states
// when the edge is not part of the state machine.
func ValidateTransition(from, to FileStatus) error {
	if !to.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// ParseFileStatus converts a string into a FileStatus.
func ParseFileStatus(s string) (FileStatus, error) {
	status := FileStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
	}
	return status, nil
}

// FileRecord is one unique input file, keyed by the digest of its bytes.
type FileRecord struct {
	// Hash is the hex SHA-256 digest of the raw bytes.
	// It is both the primary key and the dedup key.
	Hash string

	// Path is the original location the bytes were read from.
	Path string

	// Name is the display name (usually the base name of Path).
	Name string

	// Extension is the lower-case extension including the dot (".pdf").
	Extension string

	// Size is the byte size of the blob.
	Size int64

	// Blob is the raw content. Write-once; empty on metadata reads.
	Blob []byte

	// ExtractorConfig describes the backends and chunk parameters used.
	ExtractorConfig string

	// Status is the current processing state.
	Status FileStatus

	// ErrorMessage is set when Status is failed.
	ErrorMessage string

	// ChunkCount is the number of stored chunks after completion.
	ChunkCount int

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// CreatedAt is when the file was first stored.
	CreatedAt time.Time

	// UpdatedAt is when the status or metadata last changed.
	UpdatedAt time.Time
}

// NewFile is the input to IngestionStore.PutFile.
type NewFile struct {
	Hash            string
	Path            string
	Name            string
	Extension       string
	Blob            []byte
	ExtractorConfig string
	Metadata        map[string]any

	// Status defaults to StatusPending when empty.
	Status FileStatus
}

// Size returns the blob length.
func (f NewFile) Size() int64 {
	return int64(len(f.Blob))
}

// PutResult reports whether PutFile created a record.
type PutResult int

const (
	// PutCreated means the file was inserted.
	PutCreated PutResult = iota

	// PutAlreadyExists means the hash was already stored; nothing changed.
	PutAlreadyExists
)

// String returns a human-readable result.
func (r PutResult) String() string {
	if r == PutAlreadyExists {
		return "already_exists"
	}
	return "created"
}

// StatusUpdate is the input to IngestionStore.SetStatus.
type StatusUpdate struct {
	// Status is the target status.
	Status FileStatus

	// Expect, when set, is the status the caller observed. The update fails
	// with ErrStatusConflict if the row has moved on since.
	Expect FileStatus

	// Error is stored in error_message. It is cleared when empty.
	Error string

	// ChunkCount is stored when non-nil.
	ChunkCount *int
}

// Statistics summarises the store contents.
type Statistics struct {
	TotalFiles     int
	StatusCounts   map[FileStatus]int
	TotalBlobBytes int64
	TotalElements  int
	TotalChunks    int
}

// TotalSizeMB returns the blob total in megabytes rounded to two decimals.
func (s Statistics) TotalSizeMB() float64 {
	mb := float64(s.TotalBlobBytes) / (1024 * 1024)
	return float64(int64(mb*100+0.5)) / 100
}
