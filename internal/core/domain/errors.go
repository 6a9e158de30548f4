package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	// For files this is the dedup signal, not a failure.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed, empty or missing input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown extractor or file format.
	ErrUnsupportedType = errors.New("unsupported type")

	// Extraction Errors.

	// ErrBackendUnavailable indicates an extractor cannot run at all
	// (unsupported format, missing dependency, unreachable service).
	ErrBackendUnavailable = errors.New("extraction backend unavailable")

	// ErrExtractionFailed indicates an extractor ran but produced a failure.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrNoElements indicates no configured backend produced any element.
	ErrNoElements = errors.New("no elements extracted")

	// State Machine Errors.

	// ErrInvalidTransition indicates a status change outside the state machine.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStatusConflict indicates the status row changed between read and write.
	// Another pipeline owns the file.
	ErrStatusConflict = errors.New("status changed concurrently")

	// Store Errors.

	// ErrIntegrity indicates a referential or uniqueness violation.
	// These are configuration problems and are never retried.
	ErrIntegrity = errors.New("store integrity violation")

	// ErrHashCollision indicates an existing hash with a different content size.
	ErrHashCollision = errors.New("content hash collision")

	// ErrTransientStore indicates lock contention or an I/O hiccup.
	// The whole driving loop for the file is safe to retry.
	ErrTransientStore = errors.New("transient store error")
)

// IsFatal reports whether err must propagate to the caller of the orchestrator
// instead of being recorded against a single file.
func IsFatal(err error) bool {
	return errors.Is(err, ErrIntegrity) || errors.Is(err, ErrHashCollision)
}
