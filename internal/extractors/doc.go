// Package extractors provides the extraction backends and the registry the
// ingestion service selects them from. Each backend lives in its own
// subpackage and turns one family of formats into extracted elements.
//
// Backends are registered with the Registry at startup via RegisterDefaults.
package extractors
