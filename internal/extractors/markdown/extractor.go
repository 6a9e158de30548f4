// Package markdown extracts sectioned paragraphs, pipe tables and image
// references from Markdown files.
package markdown

import (
	"context"
	"os"
	"regexp"
	"strings"

	"github.com/custodia-labs/docstage/internal/core/domain"
	"github.com/custodia-labs/docstage/internal/core/ports/driven"
	"github.com/custodia-labs/docstage/internal/extractors/base"
)

// Name is the registry name of this backend.
const Name = "markdown"

// Version changes when element boundaries change.
const Version = "1.0.0"

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles Markdown documents.
type Extractor struct {
	*base.Base
}

// New creates a new Markdown extractor.
func New() *Extractor {
	return &Extractor{Base: base.New(Name, Version, ".md", ".markdown")}
}

// Extract reads the file at path.
func (e *Extractor) Extract(ctx context.Context, path string) domain.ExtractionResult {
	return e.Run(ctx, path, extract)
}

// ExtractFromBlob stages blob and extracts it.
func (e *Extractor) ExtractFromBlob(ctx context.Context, blob []byte, ext string) domain.ExtractionResult {
	return e.Stage(ctx, blob, ext, e.Extract)
}

// Pre-compiled regular expressions for inline markup.
var (
	heading      = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*#*\s*$`)
	imageRef     = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	inlineCode   = regexp.MustCompile("`([^`]+)`")
	emphasis     = regexp.MustCompile(`(\*\*|__|\*|_)([^*_]+)(\*\*|__|\*|_)`)
	tableDivider = regexp.MustCompile(`^\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)*\|?$`)
	listMarker   = regexp.MustCompile(`^\s*([-*+]|\d+\.)\s+`)
	blockquote   = regexp.MustCompile(`^>\s?`)
	horizontal   = regexp.MustCompile(`^([-*_]\s*){3,}$`)
)

func extract(_ context.Context, path string) ([]domain.ElementDraft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data)), nil
}

// parser accumulates elements while walking lines.
type parser struct {
	elements []domain.ElementDraft
	section  string
	para     []string
	table    [][]string
	fence    []string
	inFence  bool
}

// Parse converts Markdown source into elements in reading order.
func Parse(src string) []domain.ElementDraft {
	p := &parser{}
	for _, line := range strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n") {
		p.line(line)
	}
	if p.inFence {
		p.flushFence()
	}
	p.flushPara()
	p.flushTable()
	return p.elements
}

func (p *parser) line(line string) {
	trimmed := strings.TrimSpace(line)

	if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
		if p.inFence {
			p.flushFence()
			return
		}
		p.flushPara()
		p.flushTable()
		p.inFence = true
		return
	}
	if p.inFence {
		p.fence = append(p.fence, line)
		return
	}

	if isTableRow(trimmed) {
		p.flushPara()
		if !tableDivider.MatchString(trimmed) {
			p.table = append(p.table, splitRow(trimmed))
		}
		return
	}
	p.flushTable()

	switch {
	case trimmed == "":
		p.flushPara()
	case heading.MatchString(trimmed):
		p.flushPara()
		m := heading.FindStringSubmatch(trimmed)
		p.section = inline(m[2])
		p.add(domain.KindText, p.section, nil)
	case horizontal.MatchString(trimmed):
		p.flushPara()
	default:
		for _, m := range imageRef.FindAllStringSubmatch(trimmed, -1) {
			p.flushPara()
			alt := strings.TrimSpace(m[1])
			if alt == "" {
				alt = m[2]
			}
			p.add(domain.KindImage, alt, map[string]any{"src": m[2]})
		}
		rest := strings.TrimSpace(imageRef.ReplaceAllString(trimmed, ""))
		if rest == "" {
			return
		}
		rest = blockquote.ReplaceAllString(rest, "")
		rest = listMarker.ReplaceAllString(rest, "")
		p.para = append(p.para, inline(rest))
	}
}

func (p *parser) add(kind domain.ElementKind, text string, structured map[string]any) {
	if p.section != "" {
		if structured == nil {
			structured = map[string]any{}
		}
		structured[domain.HintSection] = p.section
	}
	p.elements = append(p.elements, domain.ElementDraft{Kind: kind, Text: text, Structured: structured})
}

func (p *parser) flushPara() {
	if len(p.para) == 0 {
		return
	}
	p.add(domain.KindText, strings.Join(p.para, "\n"), nil)
	p.para = nil
}

func (p *parser) flushTable() {
	if len(p.table) == 0 {
		return
	}
	p.add(domain.KindTable, "", map[string]any{domain.HintRows: p.table})
	p.table = nil
}

func (p *parser) flushFence() {
	p.inFence = false
	code := strings.Trim(strings.Join(p.fence, "\n"), "\n")
	p.fence = nil
	if strings.TrimSpace(code) == "" {
		return
	}
	p.add(domain.KindText, code, nil)
}

func isTableRow(line string) bool {
	return strings.HasPrefix(line, "|") && strings.Count(line, "|") >= 2
}

func splitRow(line string) []string {
	line = strings.TrimPrefix(strings.TrimSuffix(line, "|"), "|")
	cells := strings.Split(line, "|")
	for i, c := range cells {
		cells[i] = inline(strings.TrimSpace(c))
	}
	return cells
}

// inline strips link, code and emphasis markup.
func inline(s string) string {
	s = links.ReplaceAllString(s, "$1")
	s = inlineCode.ReplaceAllString(s, "$1")
	s = emphasis.ReplaceAllString(s, "$2")
	return strings.TrimSpace(s)
}
