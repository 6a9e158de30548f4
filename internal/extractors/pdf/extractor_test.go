package pdf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/docstage/internal/core/domain"
)

func TestTextFromStream(t *testing.T) {
	stream := []byte(`BT
/F1 12 Tf
72 712 Td
(Hello) Tj
0 -14 Td
[(Wor) -20 (ld)] TJ
T*
(Next line) '
ET`)

	assert.Equal(t, "Hello World Next line", textFromStream(stream))
}

func TestTextFromStream_NoText(t *testing.T) {
	assert.Empty(t, textFromStream([]byte("q 1 0 0 1 0 0 cm /Im1 Do Q")))
}

func TestDecodeString(t *testing.T) {
	tests := []struct {
		raw, want string
	}{
		{`plain`, "plain"},
		{`a\(b\)c`, "a(b)c"},
		{`tab\there`, "tab\there"},
		{`back\\slash`, `back\slash`},
		{`oct\040al`, "oct al"},
		{`short\7`, "short\a"},
		{`unknown\q`, "unknownq"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, decodeString([]byte(tt.raw)), tt.raw)
	}
}

func TestTextFromStream_EscapedParens(t *testing.T) {
	assert.Equal(t, "f(x) = 1", textFromStream([]byte(`(f\(x\) = 1) Tj`)))
}

func TestClean(t *testing.T) {
	assert.Equal(t, "a b c", clean("  a \n\n b\t\tc  "))
	assert.Equal(t, "ab", clean("a\x00b"))
}

func TestExtract_InvalidPDF(t *testing.T) {
	result := New().ExtractFromBlob(context.Background(), []byte("not a pdf at all"), ".pdf")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, domain.ErrExtractionFailed.Error())
	assert.Contains(t, result.Error, "pdfcpu read")
}

func TestExtractor_Identity(t *testing.T) {
	e := New()
	assert.Equal(t, "pdf", e.Name())
	assert.Equal(t, []string{".pdf"}, e.SupportedFormats())
}
