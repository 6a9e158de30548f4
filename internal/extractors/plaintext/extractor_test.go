package plaintext

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docstage/internal/core/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestExtractor_Identity(t *testing.T) {
	e := New()
	assert.Equal(t, "plaintext", e.Name())
	assert.Equal(t, Version, e.Version())
	assert.Contains(t, e.SupportedFormats(), ".txt")
	assert.Contains(t, e.SupportedFormats(), ".csv")
}

func TestExtract_Paragraphs(t *testing.T) {
	e := New()
	path := writeFile(t, "notes.txt", "First line\nstill first\n\n\nSecond para   \n\nThird")

	result := e.Extract(context.Background(), path)

	require.True(t, result.Success, result.Error)
	require.Len(t, result.Elements, 3)
	assert.Equal(t, "First line\nstill first", result.Elements[0].Text)
	assert.Equal(t, "Second para", result.Elements[1].Text)
	assert.Equal(t, "Third", result.Elements[2].Text)
	for _, el := range result.Elements {
		assert.Equal(t, domain.KindText, el.Kind)
	}
}

func TestExtract_WhitespaceOnly(t *testing.T) {
	result := New().Extract(context.Background(), writeFile(t, "blank.txt", "  \n\n \t\n"))

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, domain.ErrNoElements.Error())
}

func TestExtract_CSV(t *testing.T) {
	result := New().Extract(context.Background(), writeFile(t, "data.csv", "name,qty\napple,3\npear,\"1,5\"\n"))

	require.True(t, result.Success, result.Error)
	require.Len(t, result.Elements, 1)
	el := result.Elements[0]
	assert.Equal(t, domain.KindTable, el.Kind)
	assert.Equal(t, [][]string{{"name", "qty"}, {"apple", "3"}, {"pear", "1,5"}}, el.Structured[domain.HintRows])
	assert.Equal(t, 1, result.Stats.TableCount)
}

func TestExtractFromBlob(t *testing.T) {
	result := New().ExtractFromBlob(context.Background(), []byte("hello\n\nworld"), ".txt")

	require.True(t, result.Success, result.Error)
	assert.Len(t, result.Elements, 2)
}

func TestExtractFromBlob_Unsupported(t *testing.T) {
	result := New().ExtractFromBlob(context.Background(), []byte("%PDF-1.4"), ".pdf")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, domain.ErrBackendUnavailable.Error())
}
