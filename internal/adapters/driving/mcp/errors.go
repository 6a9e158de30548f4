// Package mcp provides an MCP (Model Context Protocol) server adapter for
// docstage. It lets AI assistants ingest files and inspect their processing
// state and chunks.
package mcp

import "errors"

// ErrMissingIngestionService is returned when the ingestion service is not provided.
var ErrMissingIngestionService = errors.New("mcp: ingestion service is required")
