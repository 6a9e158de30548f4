// Package docx extracts paragraphs and tables from Office Open XML
// word-processing documents.
package docx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/docstage/internal/core/domain"
	"github.com/custodia-labs/docstage/internal/core/ports/driven"
	"github.com/custodia-labs/docstage/internal/extractors/base"
)

// Name is the registry name of this backend.
const Name = "docx"

// Version changes when element boundaries change.
const Version = "1.0.0"

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles DOCX documents.
type Extractor struct {
	*base.Base
}

// New creates a new DOCX extractor.
func New() *Extractor {
	return &Extractor{Base: base.New(Name, Version, ".docx")}
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
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open document.xml: %w", err)
		}
		defer rc.Close()
		return parse(rc)
	}
	return nil, errors.New("word/document.xml not found in archive")
}

// state tracks where the decoder is inside document.xml.
type state struct {
	elements []domain.ElementDraft
	section  string

	para     strings.Builder
	style    string
	inPara   bool
	inText   bool
	tblDepth int

	cell  []string
	row   []string
	table [][]string
}

// parse walks document.xml tokens and emits elements in body order.
func parse(r io.Reader) ([]domain.ElementDraft, error) {
	decoder := xml.NewDecoder(r)
	s := &state{}

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			s.start(t)
		case xml.CharData:
			if s.inPara && s.inText {
				s.para.Write(t)
			}
		case xml.EndElement:
			s.end(t)
		}
	}
	return s.elements, nil
}

func (s *state) start(t xml.StartElement) {
	switch t.Name.Local {
	case "tbl":
		s.tblDepth++
		if s.tblDepth == 1 {
			s.table = nil
		}
	case "tr":
		if s.tblDepth == 1 {
			s.row = nil
		}
	case "tc":
		if s.tblDepth == 1 {
			s.cell = nil
		}
	case "p":
		s.inPara = true
		s.para.Reset()
		s.style = ""
	case "pStyle":
		if s.inPara {
			for _, a := range t.Attr {
				if a.Name.Local == "val" {
					s.style = a.Value
				}
			}
		}
	case "t":
		s.inText = true
	case "tab":
		if s.inPara {
			s.para.WriteByte('\t')
		}
	case "br", "cr":
		if s.inPara {
			s.para.WriteByte('\n')
		}
	}
}

func (s *state) end(t xml.EndElement) {
	switch t.Name.Local {
	case "t":
		s.inText = false
	case "p":
		s.inPara = false
		text := strings.TrimSpace(s.para.String())
		if text == "" {
			return
		}
		if s.tblDepth > 0 {
			s.cell = append(s.cell, text)
			return
		}
		s.paragraph(text)
	case "tc":
		if s.tblDepth == 1 {
			s.row = append(s.row, strings.Join(s.cell, " "))
		}
	case "tr":
		if s.tblDepth == 1 && len(s.row) > 0 {
			s.table = append(s.table, s.row)
		}
	case "tbl":
		s.tblDepth--
		if s.tblDepth == 0 && len(s.table) > 0 {
			s.add(domain.KindTable, "", map[string]any{domain.HintRows: s.table})
			s.table = nil
		}
	}
}

func (s *state) paragraph(text string) {
	if level := headingLevel(s.style); level > 0 {
		s.section = text
		s.add(domain.KindText, text, map[string]any{"level": level})
		return
	}
	s.add(domain.KindText, text, nil)
}

func (s *state) add(kind domain.ElementKind, text string, structured map[string]any) {
	if s.section != "" {
		if structured == nil {
			structured = map[string]any{}
		}
		structured[domain.HintSection] = s.section
	}
	s.elements = append(s.elements, domain.ElementDraft{Kind: kind, Text: text, Structured: structured})
}

// headingLevel extracts the heading level from a paragraph style name.
// e.g. "Heading1" → 1, "Heading2" → 2, "Title" → 1.
func headingLevel(style string) int {
	lower := strings.ToLower(style)

	switch lower {
	case "title":
		return 1
	case "subtitle":
		return 2
	}

	for _, prefix := range []string{"heading", "titre", "überschrift"} {
		if rest, ok := strings.CutPrefix(lower, prefix); ok {
			rest = strings.TrimSpace(rest)
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '9' {
				return int(rest[0] - '0')
			}
		}
	}
	return 0
}
