package mcp

import (
	"context"

	"github.com/custodia-labs/docstage/internal/core/domain"
	"github.com/custodia-labs/docstage/internal/core/ports/driving"
)

// mockIngestionService answers the calls made by the MCP server. Methods
// it does not override panic through the nil embedded interface.
type mockIngestionService struct {
	driving.IngestionService

	report  *domain.BatchReport
	outcome *domain.IngestOutcome
	file    *domain.FileRecord
	files   []domain.FileRecord
	chunks  []domain.Chunk
	stats   *domain.Statistics
	err     error

	lastPath   string
	lastOpts   domain.IngestOptions
	lastStatus domain.FileStatus
}

func (m *mockIngestionService) IngestPath(
	_ context.Context, root string, opts domain.IngestOptions,
) (*domain.BatchReport, error) {
	m.lastPath = root
	m.lastOpts = opts
	return m.report, m.err
}

func (m *mockIngestionService) ProcessPending(_ context.Context) (*domain.BatchReport, error) {
	return m.report, m.err
}

func (m *mockIngestionService) Retry(_ context.Context, _ string) (*domain.IngestOutcome, error) {
	return m.outcome, m.err
}

func (m *mockIngestionService) Get(_ context.Context, _ string) (*domain.FileRecord, error) {
	return m.file, m.err
}

func (m *mockIngestionService) List(_ context.Context, status domain.FileStatus) ([]domain.FileRecord, error) {
	m.lastStatus = status
	return m.files, m.err
}

func (m *mockIngestionService) Chunks(_ context.Context, _ string) ([]domain.Chunk, error) {
	return m.chunks, m.err
}

func (m *mockIngestionService) Statistics(_ context.Context) (*domain.Statistics, error) {
	return m.stats, m.err
}
