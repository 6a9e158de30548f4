// Package memory provides an in-memory driven.IngestionStore.
//
// It follows the SQLite store's contract (dedup, state machine, conditional
// status writes, cascade deletes) and is used by service tests and by
// dry runs that should leave nothing on disk.
package memory
