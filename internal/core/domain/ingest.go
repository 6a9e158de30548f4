package domain

import "time"

// IngestInput is a raw document handed to the orchestrator.
type IngestInput struct {
	// Path is the original location. Used for display and listing.
	Path string

	// Name defaults to the base name of Path.
	Name string

	// Extension defaults to the extension of Path. Lower-cased, with dot.
	Extension string

	// Blob is the raw file content.
	Blob []byte

	// Metadata is stored with the file record on creation.
	Metadata map[string]any
}

// IngestOptions tune a single driving loop.
type IngestOptions struct {
	// Force reprocesses a file whose hash is already stored.
	Force bool

	// StoreOnly stores new files as pending without processing them.
	// ProcessPending picks them up later.
	StoreOnly bool

	// Extractors overrides the configured backend list. The first backend
	// that produces elements is the primary one used for chunking.
	Extractors []string

	// TargetSize and Overlap override the configured chunk parameters
	// when positive (Overlap when non-negative and TargetSize is set).
	TargetSize int
	Overlap    int
}

// IngestAction is the terminal result of one driving loop.
type IngestAction string

const (
	// ActionCompleted means elements and chunks were stored.
	ActionCompleted IngestAction = "completed"

	// ActionDuplicate means the hash was already stored and Force was not set.
	ActionDuplicate IngestAction = "duplicate"

	// ActionFailed means the file was marked failed; Error says why.
	ActionFailed IngestAction = "failed"

	// ActionSkipped means another pipeline currently owns the file.
	ActionSkipped IngestAction = "skipped"

	// ActionRejected means validation failed before any store mutation.
	ActionRejected IngestAction = "rejected"

	// ActionStored means the file was stored as pending and not processed.
	ActionStored IngestAction = "stored"
)

// AllActions returns every action in report order.
func AllActions() []IngestAction {
	return []IngestAction{
		ActionCompleted, ActionStored, ActionDuplicate, ActionFailed, ActionSkipped, ActionRejected,
	}
}

// IngestOutcome describes what happened to one input.
type IngestOutcome struct {
	Hash   string
	Path   string
	Action IngestAction

	// Status is the file status after the loop. Empty when rejected.
	Status FileStatus

	// Elements is the number of elements stored across all backends.
	Elements int

	// Chunks is the number of chunks stored.
	Chunks int

	// Extractor is the primary backend whose elements were chunked.
	Extractor string

	// BackendErrors maps backend name to its failure reason.
	BackendErrors map[string]string

	// Error is set for failed, skipped and rejected outcomes.
	Error string

	Duration time.Duration
}

// BatchReport summarises a folder ingest or a pending drain.
type BatchReport struct {
	Outcomes []IngestOutcome
	Counts   map[IngestAction]int
	Bytes    int64
	Duration time.Duration
}

// NewBatchReport builds a report with counts from outcomes.
func NewBatchReport(outcomes []IngestOutcome) *BatchReport {
	r := &BatchReport{
		Outcomes: outcomes,
		Counts:   make(map[IngestAction]int, len(AllActions())),
	}
	for _, o := range outcomes {
		r.Counts[o.Action]++
	}
	return r
}

// Total returns the number of outcomes.
func (r *BatchReport) Total() int {
	return len(r.Outcomes)
}
