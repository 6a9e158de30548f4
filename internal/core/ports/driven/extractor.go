package driven

import (
	"context"

	"github.com/custodia-labs/docstage/internal/core/domain"
)

// Extractor turns a document into extracted elements.
// Implementations never return an error or panic past this boundary:
// failure is reported through ExtractionResult.Success.
type Extractor interface {
	// Name is the stable backend identifier.
	Name() string

	// Version changes when the backend's output may change.
	Version() string

	// SupportedFormats returns lower-case extensions with a leading dot.
	SupportedFormats() []string

	// Validate checks the file can be read. The error wraps ErrInvalidInput.
	Validate(path string) error

	// Extract reads the file at path.
	Extract(ctx context.Context, path string) domain.ExtractionResult

	// ExtractFromBlob stages blob in a temporary file with extension ext
	// and extracts it. The staged file is removed on every exit path.
	ExtractFromBlob(ctx context.Context, blob []byte, ext string) domain.ExtractionResult

	// Info returns identity and usage counters.
	Info() domain.ExtractorInfo
}

// ExtractorRegistry holds the available backends by name.
type ExtractorRegistry interface {
	// Register adds a backend, replacing any with the same name.
	Register(extractor Extractor)

	// Get returns a backend by name.
	Get(name string) (Extractor, error)

	// Names returns registered names in registration order.
	Names() []string

	// Select returns backends for names, in the given order.
	// Unknown names return ErrUnsupportedType.
	Select(names []string) ([]Extractor, error)

	// ForFormat returns the backends that support ext.
	ForFormat(ext string) []Extractor

	// SupportedFormats returns the union of all backend formats.
	SupportedFormats() []string
}
