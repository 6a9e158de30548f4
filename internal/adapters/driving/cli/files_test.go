package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docstage/internal/core/domain"
	"github.com/custodia-labs/docstage/internal/core/services"
)

// ingestSample stores one markdown file and returns its hash.
func ingestSample(t *testing.T) string {
	t.Helper()
	content := "# Setup\n\nInstall the tool.\n\n## Usage\n\nRun it daily."
	path := filepath.Join(t.TempDir(), "setup.md")
	writeFile(t, path, content)
	_, err := execute(t, "ingest", path)
	require.NoError(t, err)
	return services.HashBytes([]byte(content))
}

func TestListCmd(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No files found.")

	hash := ingestSample(t)

	out, err = execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, shortHash(hash))
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "Total: 1 files")

	out, err = execute(t, "list", "--status", "failed")
	require.NoError(t, err)
	assert.Contains(t, out, "No files found.")

	_, err = execute(t, "list", "--status", "archived")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestShowCmd(t *testing.T) {
	setupTestServices(t)
	hash := ingestSample(t)

	out, err := execute(t, "show", hash)
	require.NoError(t, err)
	assert.Contains(t, out, "setup.md")
	assert.Contains(t, out, hash)
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "primary_extractor: markdown")
	assert.NotContains(t, out, "Elements (")

	out, err = execute(t, "show", "--elements", hash)
	require.NoError(t, err)
	assert.Contains(t, out, "Elements (")
	assert.Contains(t, out, "markdown")

	_, err = execute(t, "show", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChunksCmd(t *testing.T) {
	setupTestServices(t)
	hash := ingestSample(t)

	out, err := execute(t, "chunks", hash)
	require.NoError(t, err)
	assert.Contains(t, out, "Chunk 0")
	assert.Contains(t, out, "Run it daily.")
}

func TestDeleteCmd(t *testing.T) {
	setupTestServices(t)
	hash := ingestSample(t)

	out, err := execute(t, "delete", hash)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted "+shortHash(hash))

	_, err = execute(t, "delete", hash)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStatsCmd(t *testing.T) {
	setupTestServices(t)
	ingestSample(t)

	out, err := execute(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Files:    1")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "pending")
}

func TestExtractorsCmd(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "extractors")
	require.NoError(t, err)
	assert.Contains(t, out, "markdown")
	assert.Contains(t, out, "plaintext")
	assert.Contains(t, out, ".txt")
	assert.Contains(t, out, "last: never")
}
