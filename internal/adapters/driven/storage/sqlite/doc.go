// Package sqlite implements driven.IngestionStore on SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. One database holds three tables:
//
//   - files: one row per unique content hash, with the raw blob and status
//   - elements: extracted elements, many per file and backend
//   - chunks: the current chunk set of each file
//
// Elements and chunks reference files with ON DELETE CASCADE.
//
// # Schema
//
// The schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.docstage/data/docstage.db
//
// # Concurrency
//
// The database runs in WAL mode. Write transactions are retried on lock
// contention and surface domain.ErrTransientStore when retries run out.
// Status changes are conditional on the status read in the same
// transaction, so at most one caller wins a claim.
package sqlite
