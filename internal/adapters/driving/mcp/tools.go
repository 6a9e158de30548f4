package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docstage/internal/core/domain"
)

// defaultListLimit caps list_files when no limit is given.
const defaultListLimit = 50

// IngestInput is the input schema for the ingest_file tool.
type IngestInput struct {
	Path       string   `json:"path" jsonschema:"file or directory to ingest"`
	Force      bool     `json:"force,omitempty" jsonschema:"reprocess files that are already stored"`
	Extractors []string `json:"extractors,omitempty" jsonschema:"extraction backends to use instead of the configured list"`
}

// BatchOutput is the output schema for tools that process several files.
type BatchOutput struct {
	Outcomes []OutcomeOutput `json:"outcomes"`
	Counts   map[string]int  `json:"counts"`
	Bytes    int64           `json:"bytes"`
}

// OutcomeOutput describes what happened to one file.
type OutcomeOutput struct {
	Hash          string            `json:"hash,omitempty"`
	Path          string            `json:"path"`
	Action        string            `json:"action"`
	Status        string            `json:"status,omitempty"`
	Elements      int               `json:"elements"`
	Chunks        int               `json:"chunks"`
	Extractor     string            `json:"extractor,omitempty"`
	BackendErrors map[string]string `json:"backend_errors,omitempty"`
	Error         string            `json:"error,omitempty"`
}

// HashInput identifies a stored file.
type HashInput struct {
	Hash string `json:"hash" jsonschema:"SHA-256 hash of the file content"`
}

// FileOutput is the metadata of a stored file.
type FileOutput struct {
	Hash         string `json:"hash"`
	Path         string `json:"path"`
	Name         string `json:"name"`
	Extension    string `json:"extension"`
	Size         int64  `json:"size"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	ChunkCount   int    `json:"chunk_count"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// ListInput is the input schema for the list_files tool.
type ListInput struct {
	Status string `json:"status,omitempty" jsonschema:"pending, processing, completed or failed; empty lists all"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of files to return (default 50)"`
}

// ListOutput is the output schema for the list_files tool.
type ListOutput struct {
	Files []FileOutput `json:"files"`
	Count int          `json:"count"`
	Total int          `json:"total"`
}

// StatisticsInput takes no arguments.
type StatisticsInput struct{}

// StatisticsOutput is the output schema for the statistics tool.
type StatisticsOutput struct {
	TotalFiles    int            `json:"total_files"`
	StatusCounts  map[string]int `json:"status_counts"`
	TotalBytes    int64          `json:"total_bytes"`
	TotalSizeMB   float64        `json:"total_size_mb"`
	TotalElements int            `json:"total_elements"`
	TotalChunks   int            `json:"total_chunks"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_file",
		Description: "Store a file, or every supported file below a directory, and extract and chunk it",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "file_status",
		Description: "Show the processing status of a stored file",
	}, s.handleFileStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_files",
		Description: "List stored files, optionally filtered by status",
	}, s.handleListFiles)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "statistics",
		Description: "Summarise stored files, elements and chunks",
	}, s.handleStatistics)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "process_pending",
		Description: "Process every file that is stored but not yet extracted",
	}, s.handleProcessPending)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retry_file",
		Description: "Retry extraction of a failed file",
	}, s.handleRetry)
}

func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, BatchOutput, error) {
	if input.Path == "" {
		return nil, BatchOutput{}, fmt.Errorf("%w: path is required", domain.ErrInvalidInput)
	}

	opts := domain.IngestOptions{Force: input.Force, Extractors: input.Extractors}
	report, err := s.ports.Ingestion.IngestPath(ctx, input.Path, opts)
	if report == nil {
		return nil, BatchOutput{}, err
	}
	s.log.Info("ingested", "path", input.Path, "files", report.Total())
	return nil, toBatchOutput(report), err
}

func (s *Server) handleFileStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input HashInput,
) (*mcp.CallToolResult, FileOutput, error) {
	file, err := s.ports.Ingestion.Get(ctx, input.Hash)
	if err != nil {
		return nil, FileOutput{}, err
	}
	return nil, toFileOutput(file), nil
}

func (s *Server) handleListFiles(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListInput,
) (*mcp.CallToolResult, ListOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	files, err := s.ports.Ingestion.List(ctx, domain.FileStatus(input.Status))
	if err != nil {
		return nil, ListOutput{}, err
	}

	output := ListOutput{Total: len(files)}
	if len(files) > limit {
		files = files[:limit]
	}
	output.Files = make([]FileOutput, len(files))
	for i := range files {
		output.Files[i] = toFileOutput(&files[i])
	}
	output.Count = len(output.Files)

	return nil, output, nil
}

func (s *Server) handleStatistics(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatisticsInput,
) (*mcp.CallToolResult, StatisticsOutput, error) {
	stats, err := s.ports.Ingestion.Statistics(ctx)
	if err != nil {
		return nil, StatisticsOutput{}, err
	}

	output := StatisticsOutput{
		TotalFiles:    stats.TotalFiles,
		StatusCounts:  make(map[string]int, len(stats.StatusCounts)),
		TotalBytes:    stats.TotalBlobBytes,
		TotalSizeMB:   stats.TotalSizeMB(),
		TotalElements: stats.TotalElements,
		TotalChunks:   stats.TotalChunks,
	}
	for status, n := range stats.StatusCounts {
		output.StatusCounts[string(status)] = n
	}
	return nil, output, nil
}

func (s *Server) handleProcessPending(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatisticsInput,
) (*mcp.CallToolResult, BatchOutput, error) {
	report, err := s.ports.Ingestion.ProcessPending(ctx)
	if report == nil {
		return nil, BatchOutput{}, err
	}
	return nil, toBatchOutput(report), err
}

func (s *Server) handleRetry(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input HashInput,
) (*mcp.CallToolResult, OutcomeOutput, error) {
	outcome, err := s.ports.Ingestion.Retry(ctx, input.Hash)
	if err != nil {
		return nil, OutcomeOutput{}, err
	}
	return nil, toOutcomeOutput(outcome), nil
}

func toBatchOutput(report *domain.BatchReport) BatchOutput {
	output := BatchOutput{
		Outcomes: make([]OutcomeOutput, len(report.Outcomes)),
		Counts:   make(map[string]int, len(report.Counts)),
		Bytes:    report.Bytes,
	}
	for i := range report.Outcomes {
		output.Outcomes[i] = toOutcomeOutput(&report.Outcomes[i])
	}
	for action, n := range report.Counts {
		output.Counts[string(action)] = n
	}
	return output
}

func toOutcomeOutput(o *domain.IngestOutcome) OutcomeOutput {
	return OutcomeOutput{
		Hash:          o.Hash,
		Path:          o.Path,
		Action:        string(o.Action),
		Status:        string(o.Status),
		Elements:      o.Elements,
		Chunks:        o.Chunks,
		Extractor:     o.Extractor,
		BackendErrors: o.BackendErrors,
		Error:         o.Error,
	}
}

func toFileOutput(f *domain.FileRecord) FileOutput {
	return FileOutput{
		Hash:         f.Hash,
		Path:         f.Path,
		Name:         f.Name,
		Extension:    f.Extension,
		Size:         f.Size,
		Status:       string(f.Status),
		ErrorMessage: f.ErrorMessage,
		ChunkCount:   f.ChunkCount,
		CreatedAt:    f.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    f.UpdatedAt.Format(time.RFC3339),
	}
}
