package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docstage/internal/core/ports/driven"
	"github.com/custodia-labs/docstage/internal/extractors/vlm"
)

func TestNewPromptStore_WithCustomDir(t *testing.T) {
	dir := t.TempDir()

	store, err := NewPromptStore(dir)

	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "constructor must not write files")
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptImageDescribe)
	require.NoError(t, err)
	assert.Equal(t, vlm.DefaultPrompt, prompt)

	prompt, err = store.Load(driven.PromptDiagramDescribe)
	require.NoError(t, err)
	assert.Equal(t, vlm.DefaultDiagramPrompt, prompt)

	for _, f := range []string{"image_describe.txt", "diagram_describe.txt", "README.md"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "expected file %s to exist", f)
	}
}

func TestPromptStore_Load_UserEdits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image_describe.txt")
	require.NoError(t, os.WriteFile(path, []byte("  Only transcribe text.\n"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptImageDescribe)
	require.NoError(t, err)
	assert.Equal(t, "Only transcribe text.", prompt)

	require.NoError(t, os.WriteFile(path, []byte("Describe charts."), 0600))
	prompt, err = store.Load(driven.PromptImageDescribe)
	require.NoError(t, err)
	assert.Equal(t, "Only transcribe text.", prompt, "cached until reload")

	store.Reload()
	prompt, err = store.Load(driven.PromptImageDescribe)
	require.NoError(t, err)
	assert.Equal(t, "Describe charts.", prompt)
}

func TestPromptStore_Load_EmptyFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image_describe.txt"), []byte("   "), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptImageDescribe)
	require.NoError(t, err)
	assert.Equal(t, vlm.DefaultPrompt, prompt)
}

func TestPromptStore_Load_Unknown(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nope")
	assert.Error(t, err)
}

func TestPromptStore_Load_Concurrent(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := store.Load(driven.PromptImageDescribe)
			assert.NoError(t, err)
			assert.NotEmpty(t, p)
		}()
	}
	wg.Wait()
}
