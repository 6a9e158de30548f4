package base

import (
	"context"
	"errors"
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

func textElements(_ context.Context, path string) ([]domain.ElementDraft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []domain.ElementDraft{{Kind: domain.KindText, Text: string(data)}}, nil
}

func TestNew_NormalisesFormats(t *testing.T) {
	b := New("test", "1.0", "TXT", ".Md")

	assert.Equal(t, []string{".txt", ".md"}, b.SupportedFormats())
	assert.True(t, b.Supports("txt"))
	assert.True(t, b.Supports(".MD"))
	assert.False(t, b.Supports(".pdf"))
}

func TestValidate(t *testing.T) {
	b := New("test", "1.0", ".txt")

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, b.Validate(writeFile(t, "a.txt", "hello")))
	})

	t.Run("missing", func(t *testing.T) {
		err := b.Validate(filepath.Join(t.TempDir(), "nope.txt"))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("directory", func(t *testing.T) {
		err := b.Validate(t.TempDir())
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Contains(t, err.Error(), "not a regular file")
	})

	t.Run("empty", func(t *testing.T) {
		err := b.Validate(writeFile(t, "empty.txt", ""))
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Contains(t, err.Error(), "empty")
	})
}

func TestRun_Success(t *testing.T) {
	b := New("test", "1.0", ".txt")

	result := b.Run(context.Background(), writeFile(t, "a.txt", "hello"), textElements)

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "test", result.Extractor)
	assert.Equal(t, "1.0", result.Version)
	require.Len(t, result.Elements, 1)
	assert.Equal(t, "hello", result.Elements[0].Text)
	assert.Equal(t, 1, result.Stats.ElementCount)
}

func TestRun_UnsupportedFormat(t *testing.T) {
	b := New("test", "1.0", ".txt")

	result := b.Run(context.Background(), writeFile(t, "a.pdf", "%PDF"), textElements)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, domain.ErrBackendUnavailable.Error())
}

func TestRun_ErrorWrapped(t *testing.T) {
	b := New("test", "1.0", ".txt")
	failing := func(context.Context, string) ([]domain.ElementDraft, error) {
		return nil, errors.New("corrupt input")
	}

	result := b.Run(context.Background(), writeFile(t, "a.txt", "x"), failing)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "extraction failed")
	assert.Contains(t, result.Error, "corrupt input")
}

func TestRun_NoElements(t *testing.T) {
	b := New("test", "1.0", ".txt")
	empty := func(context.Context, string) ([]domain.ElementDraft, error) { return nil, nil }

	result := b.Run(context.Background(), writeFile(t, "a.txt", "x"), empty)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, domain.ErrNoElements.Error())
}

func TestRun_PanicRecovered(t *testing.T) {
	b := New("test", "1.0", ".txt")
	boom := func(context.Context, string) ([]domain.ElementDraft, error) { panic("boom") }

	var result domain.ExtractionResult
	require.NotPanics(t, func() {
		result = b.Run(context.Background(), writeFile(t, "a.txt", "x"), boom)
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "boom")
}

func TestRun_CancelledContext(t *testing.T) {
	b := New("test", "1.0", ".txt")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := b.Run(ctx, writeFile(t, "a.txt", "x"), textElements)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, context.Canceled.Error())
}

func TestInfo_CountsCalls(t *testing.T) {
	b := New("test", "1.0", ".txt")
	assert.Zero(t, b.Info().ExtractionCount)
	assert.True(t, b.Info().LastExtraction.IsZero())

	path := writeFile(t, "a.txt", "x")
	b.Run(context.Background(), path, textElements)
	b.Run(context.Background(), path, textElements)

	info := b.Info()
	assert.Equal(t, int64(2), info.ExtractionCount)
	assert.False(t, info.LastExtraction.IsZero())
	assert.Equal(t, "test", info.Name)
}

func TestStage_RemovesTempFile(t *testing.T) {
	b := New("test", "1.0", ".txt")
	var staged string

	result := b.Stage(context.Background(), []byte("blob text"), "txt",
		func(ctx context.Context, path string) domain.ExtractionResult {
			staged = path
			assert.Equal(t, ".txt", filepath.Ext(path))
			return b.Run(ctx, path, textElements)
		})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "blob text", result.Elements[0].Text)
	assert.NoFileExists(t, staged)
}

func TestStage_RemovesTempFileOnPanic(t *testing.T) {
	b := New("test", "1.0", ".txt")
	var staged string

	var result domain.ExtractionResult
	require.NotPanics(t, func() {
		result = b.Stage(context.Background(), []byte("x"), ".txt",
			func(_ context.Context, path string) domain.ExtractionResult {
				staged = path
				panic("backend crashed")
			})
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "backend crashed")
	require.NotEmpty(t, staged)
	assert.NoFileExists(t, staged)
}

func TestStage_Rejections(t *testing.T) {
	b := New("test", "1.0", ".txt")
	called := false
	extract := func(context.Context, string) domain.ExtractionResult {
		called = true
		return domain.ExtractionResult{Success: true}
	}

	result := b.Stage(context.Background(), []byte("x"), ".docx", extract)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, domain.ErrBackendUnavailable.Error())

	result = b.Stage(context.Background(), nil, ".txt", extract)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, domain.ErrInvalidInput.Error())

	assert.False(t, called)
}
