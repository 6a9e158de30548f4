// Package services implements the driving port interfaces.
//
// IngestionService runs the store, extract and chunk pipeline on a worker
// pool. SettingsService reads and validates configuration. Both depend
// only on driven ports, so tests run them against the in-memory store.
package services
