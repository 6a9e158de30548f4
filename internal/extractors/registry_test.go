package extractors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docstage/internal/core/domain"
	"github.com/custodia-labs/docstage/internal/extractors/base"
)

type fakeExtractor struct {
	*base.Base
}

func newFake(name string, formats ...string) *fakeExtractor {
	return &fakeExtractor{Base: base.New(name, "0.1", formats...)}
}

func (f *fakeExtractor) Extract(context.Context, string) domain.ExtractionResult {
	return domain.ExtractionResult{Success: true}
}

func (f *fakeExtractor) ExtractFromBlob(context.Context, []byte, string) domain.ExtractionResult {
	return domain.ExtractionResult{Success: true}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(newFake("a", ".txt"))
	r.Register(newFake("b", ".md"))

	e, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", e.Name())

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	assert.Equal(t, []string{"a", "b"}, r.Names())
}

func TestRegistry_ReplaceKeepsOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(newFake("a", ".txt"))
	r.Register(newFake("b", ".md"))
	r.Register(newFake("a", ".log"))

	assert.Equal(t, []string{"a", "b"}, r.Names())
	e, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []string{".log"}, e.SupportedFormats())
}

func TestRegistry_Select(t *testing.T) {
	r := NewRegistry()
	r.Register(newFake("a", ".txt"))
	r.Register(newFake("b", ".md"))

	selected, err := r.Select([]string{"b", "a", "b"})
	require.NoError(t, err)
	require.Len(t, selected, 2)
	assert.Equal(t, "b", selected[0].Name())
	assert.Equal(t, "a", selected[1].Name())

	_, err = r.Select([]string{"a", "nope"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestRegistry_ForFormat(t *testing.T) {
	r := NewRegistry()
	r.Register(newFake("a", ".txt", ".md"))
	r.Register(newFake("b", ".md"))

	md := r.ForFormat("MD")
	require.Len(t, md, 2)
	assert.Equal(t, "a", md[0].Name())

	assert.Empty(t, r.ForFormat(".pdf"))
	assert.Equal(t, []string{".md", ".txt"}, r.SupportedFormats())
}

func TestRegisterDefaults(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r, domain.DefaultSettings().VLM, nil)

	assert.Equal(t, []string{"plaintext", "markdown", "html", "docx", "pdf", "vlm", "vlm_diagram"}, r.Names())
	for _, name := range domain.DefaultExtractors() {
		_, err := r.Get(name)
		assert.NoError(t, err, name)
	}
	assert.Contains(t, r.SupportedFormats(), ".pdf")
	assert.Contains(t, r.SupportedFormats(), ".png")

	infos := r.Infos()
	require.Len(t, infos, 7)
	assert.Equal(t, "plaintext", infos[0].Name)
	assert.Zero(t, infos[0].ExtractionCount)
}
