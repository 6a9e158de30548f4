// Package html extracts headings, paragraphs, lists, tables and images
// from HTML files, plus a whole-page Markdown rendering.
package html

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	mdbase "github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/docstage/internal/core/domain"
	"github.com/custodia-labs/docstage/internal/core/ports/driven"
	"github.com/custodia-labs/docstage/internal/extractors/base"
)

// Name is the registry name of this backend.
const Name = "html"

// Version changes when element boundaries or the Markdown rendering change.
const Version = "1.0.0"

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles HTML documents.
type Extractor struct {
	*base.Base
	policy *bluemonday.Policy
	md     *converter.Converter
}

// New creates a new HTML extractor.
func New() *Extractor {
	return &Extractor{
		Base:   base.New(Name, Version, ".html", ".htm", ".xhtml"),
		policy: bluemonday.UGCPolicy(),
		md: converter.NewConverter(
			converter.WithPlugins(
				mdbase.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Extract reads the file at path.
func (e *Extractor) Extract(ctx context.Context, path string) domain.ExtractionResult {
	return e.Run(ctx, path, e.extract)
}

// ExtractFromBlob stages blob and extracts it.
func (e *Extractor) ExtractFromBlob(ctx context.Context, blob []byte, ext string) domain.ExtractionResult {
	return e.Stage(ctx, blob, ext, e.Extract)
}

func (e *Extractor) extract(_ context.Context, path string) ([]domain.ElementDraft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	w := &walker{}
	w.walk(doc)
	if len(w.elements) == 0 {
		if text := collectText(doc); text != "" {
			w.elements = append(w.elements, domain.ElementDraft{Kind: domain.KindText, Text: text})
		}
	}
	if len(w.elements) == 0 {
		return nil, nil
	}

	if full := e.markdown(data); full != "" {
		structured := map[string]any{"format": "markdown"}
		if title := findTitle(doc); title != "" {
			structured["title"] = title
		}
		w.elements = append(w.elements, domain.ElementDraft{
			Kind:       domain.KindFull,
			Text:       full,
			Structured: structured,
		})
	}
	return w.elements, nil
}

// markdown renders sanitised HTML as Markdown. Failures yield "".
func (e *Extractor) markdown(data []byte) string {
	clean := e.policy.SanitizeBytes(data)
	out, err := e.md.ConvertString(string(clean))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

var hiddenStylePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)display\s*:\s*none`),
	regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
}

func isHidden(n *html.Node) bool {
	for _, a := range n.Attr {
		switch a.Key {
		case "hidden":
			return true
		case "aria-hidden":
			if a.Val == "true" {
				return true
			}
		case "style":
			for _, pat := range hiddenStylePatterns {
				if pat.MatchString(a.Val) {
					return true
				}
			}
		}
	}
	return false
}

func skipped(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head, atom.Nav, atom.Svg:
		return true
	}
	return isHidden(n)
}

// walker collects elements in document order.
type walker struct {
	elements []domain.ElementDraft
	section  string
}

func (w *walker) add(kind domain.ElementKind, text string, structured map[string]any) {
	if w.section != "" {
		if structured == nil {
			structured = map[string]any{}
		}
		structured[domain.HintSection] = w.section
	}
	w.elements = append(w.elements, domain.ElementDraft{Kind: kind, Text: text, Structured: structured})
}

func (w *walker) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		if skipped(n) {
			return
		}

		switch n.DataAtom {
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			if text := collectText(n); text != "" {
				w.section = text
				w.add(domain.KindText, text, map[string]any{"level": int(n.Data[1] - '0')})
			}
			return

		case atom.P, atom.Pre, atom.Blockquote:
			if text := collectText(n); text != "" {
				w.add(domain.KindText, text, nil)
			}
			for _, img := range findAll(n, atom.Img) {
				w.image(img)
			}
			return

		case atom.Ul, atom.Ol:
			var items []string
			for _, li := range findAll(n, atom.Li) {
				if text := collectText(li); text != "" {
					items = append(items, text)
				}
			}
			if len(items) > 0 {
				w.add(domain.KindText, strings.Join(items, "\n"), nil)
			}
			return

		case atom.Table:
			if rows := tableRows(n); len(rows) > 0 {
				structured := map[string]any{domain.HintRows: rows}
				if caption := findFirst(n, atom.Caption); caption != nil {
					structured["caption"] = collectText(caption)
				}
				w.add(domain.KindTable, "", structured)
			}
			return

		case atom.Img:
			w.image(n)
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *walker) image(n *html.Node) {
	alt := strings.TrimSpace(attr(n, "alt"))
	if alt == "" {
		return
	}
	w.add(domain.KindImage, alt, map[string]any{"src": attr(n, "src")})
}

func tableRows(n *html.Node) [][]string {
	var rows [][]string
	for _, tr := range findAll(n, atom.Tr) {
		var row []string
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
				row = append(row, collectText(c))
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// findAll returns descendants with the given atom, not descending into matches.
func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.DataAtom == a {
				out = append(out, c)
				continue
			}
			visit(c)
		}
	}
	visit(n)
	return out
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if all := findAll(n, a); len(all) > 0 {
		return all[0]
	}
	return nil
}

// findTitle extracts the <title> text.
func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		return collectTextAll(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

// collectText extracts visible text from a node subtree.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		if n.Type == html.ElementNode && skipped(n) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// collectTextAll is collectText without the skip rules, for <title>.
func collectTextAll(n *html.Node) string {
	var parts []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			parts = append(parts, strings.Fields(c.Data)...)
		}
	}
	return strings.Join(parts, " ")
}
