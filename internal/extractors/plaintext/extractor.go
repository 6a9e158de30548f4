// Package plaintext extracts paragraphs from plain text files and rows
// from CSV files.
package plaintext

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docstage/internal/core/domain"
	"github.com/custodia-labs/docstage/internal/core/ports/driven"
	"github.com/custodia-labs/docstage/internal/extractors/base"
)

// Name is the registry name of this backend.
const Name = "plaintext"

// Version changes when paragraph splitting changes.
const Version = "1.0.0"

// maxLine bounds a single scanned line.
const maxLine = 4 * 1024 * 1024

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles plain text documents.
type Extractor struct {
	*base.Base
}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{Base: base.New(Name, Version, ".txt", ".text", ".log", ".csv")}
}

// Extract reads the file at path.
func (e *Extractor) Extract(ctx context.Context, path string) domain.ExtractionResult {
	return e.Run(ctx, path, extract)
}

// ExtractFromBlob stages blob and extracts it.
func (e *Extractor) ExtractFromBlob(ctx context.Context, blob []byte, ext string) domain.ExtractionResult {
	return e.Stage(ctx, blob, ext, e.Extract)
}

func extract(_ context.Context, path string) ([]domain.ElementDraft, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return csvTable(f)
	}
	return paragraphs(f)
}

// paragraphs splits text on blank lines.
func paragraphs(f *os.File) ([]domain.ElementDraft, error) {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	var elements []domain.ElementDraft
	var para []string
	flush := func() {
		if len(para) == 0 {
			return
		}
		elements = append(elements, domain.ElementDraft{
			Kind: domain.KindText,
			Text: strings.Join(para, "\n"),
		})
		para = para[:0]
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		para = append(para, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	flush()

	return elements, nil
}

// csvTable returns the whole file as one table element.
func csvTable(f *os.File) ([]domain.ElementDraft, error) {
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return []domain.ElementDraft{{
		Kind:       domain.KindTable,
		Structured: map[string]any{domain.HintRows: rows},
	}}, nil
}
