package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docstage/internal/core/domain"
)

// buildDocx creates a minimal DOCX archive around a document body.
func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func para(style, text string) string {
	props := ""
	if style != "" {
		props = `<w:pPr><w:pStyle w:val="` + style + `"/></w:pPr>`
	}
	return `<w:p>` + props + `<w:r><w:t>` + text + `</w:t></w:r></w:p>`
}

func TestExtractFromBlob(t *testing.T) {
	body := para("Heading1", "Introduction") +
		para("", "First paragraph.") +
		`<w:p><w:r><w:t>Split</w:t></w:r><w:r><w:tab/><w:t xml:space="preserve"> run</w:t></w:r></w:p>` +
		`<w:tbl>
			<w:tr><w:tc>` + para("", "Name") + `</w:tc><w:tc>` + para("", "Qty") + `</w:tc></w:tr>
			<w:tr><w:tc>` + para("", "apple") + `</w:tc><w:tc>` + para("", "3") + `</w:tc></w:tr>
		</w:tbl>` +
		para("Heading2", "Details") +
		para("", "Closing.")

	result := New().ExtractFromBlob(context.Background(), buildDocx(t, body), ".docx")

	require.True(t, result.Success, result.Error)
	require.Len(t, result.Elements, 6)
	els := result.Elements

	assert.Equal(t, "Introduction", els[0].Text)
	assert.Equal(t, 1, els[0].Structured["level"])
	assert.Equal(t, "First paragraph.", els[1].Text)
	assert.Equal(t, "Introduction", domain.SectionHint(els[1].Structured))
	assert.Equal(t, "Split\t run", els[2].Text)

	assert.Equal(t, domain.KindTable, els[3].Kind)
	assert.Equal(t, [][]string{{"Name", "Qty"}, {"apple", "3"}}, els[3].Structured[domain.HintRows])

	assert.Equal(t, "Details", els[4].Text)
	assert.Equal(t, "Details", domain.SectionHint(els[5].Structured))
}

func TestExtract_NotAZip(t *testing.T) {
	result := New().ExtractFromBlob(context.Background(), []byte("plain text"), ".docx")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "open zip")
}

func TestExtract_MissingDocument(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("other.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	result := New().ExtractFromBlob(context.Background(), buf.Bytes(), ".docx")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "word/document.xml")
}

func TestHeadingLevel(t *testing.T) {
	tests := map[string]int{
		"Heading1":  1,
		"heading3":  3,
		"Title":     1,
		"Subtitle":  2,
		"Titre2":    2,
		"Normal":    0,
		"":          0,
		"Heading12": 0,
	}
	for style, want := range tests {
		assert.Equal(t, want, headingLevel(style), style)
	}
}
