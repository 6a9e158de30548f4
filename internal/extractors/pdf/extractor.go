// Package pdf extracts page text from PDF files using pdfcpu.
//
// Text is read from page content streams (Tj, TJ and ' operators), so it
// works for PDFs with embedded text. Scanned pages yield no text; the vlm
// backend covers those.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/custodia-labs/docstage/internal/core/domain"
	"github.com/custodia-labs/docstage/internal/core/ports/driven"
	"github.com/custodia-labs/docstage/internal/extractors/base"
)

// Name is the registry name of this backend.
const Name = "pdf"

// Version changes when page text decoding changes.
const Version = "1.0.0"

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles PDF documents.
type Extractor struct {
	*base.Base
}

// New creates a new PDF extractor.
func New() *Extractor {
	return &Extractor{Base: base.New(Name, Version, ".pdf")}
}

// Extract reads the file at path.
func (e *Extractor) Extract(ctx context.Context, path string) domain.ExtractionResult {
	return e.Run(ctx, path, extract)
}

// ExtractFromBlob stages blob and extracts it.
func (e *Extractor) ExtractFromBlob(ctx context.Context, blob []byte, ext string) domain.ExtractionResult {
	return e.Stage(ctx, blob, ext, e.Extract)
}

func extract(ctx context.Context, path string) ([]domain.ElementDraft, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	var elements []domain.ElementDraft
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text := pageText(pdfCtx, pageNr)
		if text == "" {
			continue
		}
		structured := map[string]any{
			domain.HintPage: pageNr,
			"page_count":    pdfCtx.PageCount,
		}
		if pdfCtx.Optimize != nil && len(pdfcpu.ImageObjNrs(pdfCtx, pageNr)) > 0 {
			structured["has_images"] = true
		}
		elements = append(elements, domain.ElementDraft{
			Kind:       domain.KindText,
			Text:       text,
			Structured: structured,
		})
	}
	return elements, nil
}

// pageText extracts text from a single page content stream.
func pageText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textFromStream(data)
}

// pdfString matches PDF string literals in parentheses: (text here)
var pdfString = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)

// textFromStream parses content stream operators for text.
func textFromStream(data []byte) string {
	var sb strings.Builder

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range pdfString.FindAllSubmatch(line, -1) {
				sb.WriteString(decodeString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			for _, m := range pdfString.FindAllSubmatch(line, -1) {
				sb.WriteByte('\n')
				sb.WriteString(decodeString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		case bytes.Equal(line, []byte("T*")):
			sb.WriteByte('\n')
		}
	}

	return clean(sb.String())
}

// decodeString handles PDF escape sequences.
func decodeString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] < '0' || raw[i] > '7' {
				sb.WriteByte(raw[i])
				continue
			}
			// Octal escape, up to three digits (\040 is a space).
			val := int(raw[i] - '0')
			for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			sb.WriteByte(byte(val))
		}
	}
	return sb.String()
}

// clean collapses whitespace runs and drops non-printable runes.
func clean(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsPrint(r):
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}
