package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docstage/internal/core/domain"
	"github.com/custodia-labs/docstage/internal/logger"
)

func TestChangedFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "doc.txt")
	writeFile(t, file, "content")
	hidden := filepath.Join(dir, ".doc.txt.swp")
	writeFile(t, hidden, "swap")
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	tests := []struct {
		name string
		path string
		op   fsnotify.Op
		want bool
	}{
		{"create file", file, fsnotify.Create, true},
		{"write file", file, fsnotify.Write, true},
		{"chmod ignored", file, fsnotify.Chmod, false},
		{"remove ignored", filepath.Join(dir, "gone.txt"), fsnotify.Remove, false},
		{"rename ignored", file, fsnotify.Rename, false},
		{"directory skipped", sub, fsnotify.Create, false},
		{"hidden skipped", hidden, fsnotify.Write, false},
		{"vanished file", filepath.Join(dir, "tmp.txt"), fsnotify.Create, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ok := changedFile(fsnotify.Event{Name: tt.path, Op: tt.op})
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, tt.path, path)
			}
		})
	}
}

func TestPendingSet(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p := newPendingSet(time.Second)

	p.touch("/b.txt", start)
	p.touch("/a.txt", start)
	p.touch("/c.txt", start.Add(800*time.Millisecond))
	assert.Equal(t, 3, p.size())

	assert.Empty(t, p.due(start.Add(500*time.Millisecond)))

	assert.Equal(t, []string{"/a.txt", "/b.txt"}, p.due(start.Add(time.Second)))
	assert.Equal(t, 1, p.size())

	p.touch("/c.txt", start.Add(1500*time.Millisecond))
	assert.Empty(t, p.due(start.Add(2*time.Second)), "a new event restarts the quiet period")
	assert.Equal(t, []string{"/c.txt"}, p.due(start.Add(2500*time.Millisecond)))
	assert.Zero(t, p.size())
}

func TestIngestDue(t *testing.T) {
	store := setupTestServices(t)
	var logs bytes.Buffer
	oldLog := log
	log = logger.New(&logs, false)
	t.Cleanup(func() { log = oldLog })

	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		writeFile(t, filepath.Join(dir, name), "content of "+name)
	}
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p := newPendingSet(time.Second)
	p.touch(filepath.Join(dir, "a.txt"), start)
	p.touch(filepath.Join(dir, "b.txt"), start)
	p.touch(filepath.Join(dir, "c.txt"), start.Add(800*time.Millisecond))

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())

	require.NoError(t, ingestDue(cmd, ingestionService, p, start.Add(time.Second), domain.IngestOptions{}))
	assert.Contains(t, logs.String(), "files=2")
	assert.Contains(t, logs.String(), "still_pending=1")
	assert.Contains(t, out.String(), "a.txt")
	assert.NotContains(t, out.String(), "c.txt")

	files, err := store.ListFiles(context.Background())
	require.NoError(t, err)
	assert.Len(t, files, 2)

	logs.Reset()
	require.NoError(t, ingestDue(cmd, ingestionService, p, start.Add(1500*time.Millisecond), domain.IngestOptions{}))
	assert.Empty(t, logs.String(), "nothing due, nothing logged")
}

func TestAddTree(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a", "b"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git", "objects"), 0o755))

	w, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, addTree(w, dir))
	assert.ElementsMatch(t, []string{dir, filepath.Join(dir, "a"), filepath.Join(dir, "a", "b")}, w.WatchList())
}

func TestWatchCmd_RejectsFile(t *testing.T) {
	setupTestServices(t)
	path := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, path, "x")

	_, err := execute(t, "watch", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestIsHidden(t *testing.T) {
	assert.True(t, isHidden("/x/.env"))
	assert.False(t, isHidden("/x/.config/file.txt"))
	assert.False(t, isHidden("/x/file.txt"))
}
