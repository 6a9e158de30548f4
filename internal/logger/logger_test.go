package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_InfoLevelByDefault(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)

	l.Debug("hidden")
	l.Info("shown", "hash", "abc")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "hash=abc")
	assert.False(t, l.IsVerbose())
}

func TestSetVerbose(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)

	l.SetVerbose(true)
	assert.True(t, l.IsVerbose())
	l.Debug("debug message", "n", 3)
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "n=3")

	buf.Reset()
	l.SetVerbose(false)
	l.Debug("gone")
	assert.Empty(t, buf.String())
}

func TestSection_OnlyWhenVerbose(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)

	l.Section("Extract")
	assert.Empty(t, buf.String())

	l.SetVerbose(true)
	l.Section("Extract")
	assert.Contains(t, buf.String(), "=== Extract ===")
}

func TestWith_SharesLevel(t *testing.T) {
	var buf bytes.Buffer
	parent := New(&buf, false)
	child := parent.With("component", "store")

	parent.SetVerbose(true)
	child.Debug("from child")

	assert.Contains(t, buf.String(), "component=store")
	assert.Contains(t, buf.String(), "from child")
}

func TestPrintf(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)

	l.Printf("worker exits from panic: %v", "boom")

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "worker exits from panic: boom")
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("nothing")
	l.Error("still nothing")
	assert.NotNil(t, l.Slog())
}
