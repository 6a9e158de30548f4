// Package domain defines the core business entities for docstage.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - FileRecord: A unique input file, keyed by content hash
//   - ExtractedElement: One discrete unit produced by an extraction backend
//   - Chunk: An ordered, overlapping slice of element text
//   - ExtractionResult: The value every extraction backend returns
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
