package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ElementKind classifies an extracted element.
type ElementKind string

const (
	// KindText is a block of running text (paragraph, heading, page).
	KindText ElementKind = "text"

	// KindTable is a table; Structured usually carries "rows".
	KindTable ElementKind = "table"

	// KindImage is an image description or caption.
	KindImage ElementKind = "image"

	// KindDiagram is a description of a chart, flowchart or diagram.
	KindDiagram ElementKind = "diagram"

	// KindFull is a whole-document rendering (e.g. markdown export).
	KindFull ElementKind = "full"
)

// IsValid returns true for known element kinds.
func (k ElementKind) IsValid() bool {
	switch k {
	case KindText, KindTable, KindImage, KindDiagram, KindFull:
		return true
	default:
		return false
	}
}

// Well-known keys in ElementDraft.Structured.
const (
	// HintPage is the 1-based page number an element came from.
	HintPage = "page"

	// HintSection is the heading an element sits under.
	HintSection = "section"

	// HintRows holds table rows as [][]string.
	HintRows = "rows"
)

// ElementDraft is an element as produced by a backend, before it is stored.
type ElementDraft struct {
	// Kind classifies the element.
	Kind ElementKind

	// Text is the plain-text payload, if any.
	Text string

	// Structured is an arbitrary nested payload (table rows, boxes, hints).
	Structured map[string]any
}

// Content returns the text used for chunking. When Text is empty the
// structured payload is rendered instead, so tables without a text form
// still reach the chunker.
func (d ElementDraft) Content() string {
	if strings.TrimSpace(d.Text) != "" {
		return d.Text
	}
	return RenderStructured(d.Structured)
}

// ExtractedElement is a stored element.
type ExtractedElement struct {
	// ID is assigned by the store.
	ID int64

	// FileHash links to the owning FileRecord.
	FileHash string

	ElementDraft

	// ExtractorName identifies the backend that produced the element.
	ExtractorName string

	// ExtractorVersion is the backend version at extraction time.
	ExtractorVersion string

	// CreatedAt is when the element was stored.
	CreatedAt time.Time
}

// RenderStructured turns a structured payload into plain text.
// Table rows become one line per row with cells joined by " | ".
// Other payloads are rendered as compact JSON.
func RenderStructured(payload map[string]any) string {
	if len(payload) == 0 {
		return ""
	}
	if rows := TableRows(payload); len(rows) > 0 {
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			lines = append(lines, strings.Join(row, " | "))
		}
		return strings.Join(lines, "\n")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprint(payload)
	}
	return string(data)
}

// TableRows extracts the "rows" hint. It accepts [][]string as produced by
// backends and []any of []any as read back from JSON.
func TableRows(payload map[string]any) [][]string {
	raw, ok := payload[HintRows]
	if !ok {
		return nil
	}
	switch rows := raw.(type) {
	case [][]string:
		return rows
	case []any:
		out := make([][]string, 0, len(rows))
		for _, r := range rows {
			cells, ok := r.([]any)
			if !ok {
				continue
			}
			row := make([]string, len(cells))
			for i, c := range cells {
				row[i] = fmt.Sprint(c)
			}
			out = append(out, row)
		}
		return out
	default:
		return nil
	}
}

// PageHint returns the page hint of a structured payload, or 0.
func PageHint(payload map[string]any) int {
	switch v := payload[HintPage].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// SectionHint returns the section hint of a structured payload, or "".
func SectionHint(payload map[string]any) string {
	s, _ := payload[HintSection].(string)
	return s
}
