// Package chunker turns extracted elements into ordered, overlapping chunks.
//
// Sizes are measured in runes (Unicode code points). Element contents are
// joined with a blank line and cut into windows of at most targetSize new
// runes; every chunk after the first also repeats the last overlap runes of
// the previous one, so a chunk holds at most targetSize+overlap runes.
// A window that ends exactly on the last rune closes the final chunk.
package chunker

import (
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/docstage/internal/core/domain"
)

// DefaultChunkSize is the default number of new runes per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of repeated runes.
const DefaultChunkOverlap = 200

// separator joins consecutive element contents.
const separator = "\n\n"

// namespace scopes chunk IDs.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("docstage/chunk"))

// ChunkID returns the deterministic identifier of chunk index of a file.
func ChunkID(fileHash string, index int) string {
	return uuid.NewSHA1(namespace, []byte(fileHash+"/"+strconv.Itoa(index))).String()
}

// Engine splits elements using configured parameters.
type Engine struct {
	chunkSize int
	overlap   int
}

// Option configures the engine.
type Option func(*Engine)

// WithChunkSize sets the chunk size in runes.
func WithChunkSize(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in runes.
func WithOverlap(overlap int) Option {
	return func(e *Engine) {
		if overlap >= 0 {
			e.overlap = overlap
		}
	}
}

// New creates an engine with the given options.
func New(opts ...Option) *Engine {
	e := &Engine{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.chunkSize, e.overlap = normalise(e.chunkSize, e.overlap)
	return e
}

// ChunkSize returns the effective chunk size.
func (e *Engine) ChunkSize() int { return e.chunkSize }

// Overlap returns the effective overlap.
func (e *Engine) Overlap() int { return e.overlap }

// Chunk splits elements with the engine's parameters.
func (e *Engine) Chunk(elements []domain.ExtractedElement) []domain.ChunkDraft {
	return Chunk(elements, e.chunkSize, e.overlap)
}

// Build splits elements and binds the drafts to fileHash.
func (e *Engine) Build(fileHash string, elements []domain.ExtractedElement) []domain.Chunk {
	return Bind(fileHash, e.Chunk(elements))
}

// Bind turns drafts into chunks of fileHash with deterministic IDs.
func Bind(fileHash string, drafts []domain.ChunkDraft) []domain.Chunk {
	chunks := make([]domain.Chunk, len(drafts))
	for i, d := range drafts {
		chunks[i] = domain.Chunk{
			ID:       ChunkID(fileHash, d.Index),
			FileHash: fileHash,
			Index:    d.Index,
			Text:     d.Text,
			Metadata: d.Metadata,
		}
	}
	return chunks
}

// normalise applies defaults. Overlap must stay below the chunk size.
func normalise(size, overlap int) (int, int) {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 4
	}
	return size, overlap
}

// span is the rune range one element occupies in the joined text.
type span struct {
	el         domain.ExtractedElement
	start, end int
}

// Chunk splits elements into drafts. It is a pure function of its inputs.
func Chunk(elements []domain.ExtractedElement, targetSize, overlap int) []domain.ChunkDraft {
	targetSize, overlap = normalise(targetSize, overlap)

	text, spans := join(selectElements(elements))
	total := len(text)
	if total == 0 {
		return nil
	}

	drafts := make([]domain.ChunkDraft, 0, total/targetSize+1)
	for windowStart := 0; windowStart < total; windowStart += targetSize {
		end := windowStart + targetSize
		if end > total {
			end = total
		}
		start := windowStart - overlap
		if start < 0 {
			start = 0
		}

		drafts = append(drafts, domain.ChunkDraft{
			Index:    len(drafts),
			Text:     string(text[start:end]),
			Metadata: metadata(spans, start, end),
		})
	}
	return drafts
}

// selectElements drops whole-document renderings when finer elements exist,
// since they repeat the same text.
func selectElements(elements []domain.ExtractedElement) []domain.ExtractedElement {
	hasFine := false
	for _, el := range elements {
		if el.Kind != domain.KindFull {
			hasFine = true
			break
		}
	}
	if !hasFine {
		return elements
	}

	out := make([]domain.ExtractedElement, 0, len(elements))
	for _, el := range elements {
		if el.Kind != domain.KindFull {
			out = append(out, el)
		}
	}
	return out
}

// join concatenates non-blank element contents and records their spans.
func join(elements []domain.ExtractedElement) ([]rune, []span) {
	var text []rune
	spans := make([]span, 0, len(elements))
	sep := []rune(separator)

	for _, el := range elements {
		raw := el.Content()
		if strings.TrimSpace(raw) == "" {
			continue
		}
		content := []rune(raw)
		if len(text) > 0 {
			text = append(text, sep...)
		}
		start := len(text)
		text = append(text, content...)
		spans = append(spans, span{el: el, start: start, end: len(text)})
	}
	return text, spans
}

// metadata describes the elements overlapping [start, end).
func metadata(spans []span, start, end int) map[string]any {
	ids := []int64{}
	pages := []int{}
	kinds := []string{}
	seenPage := map[int]bool{}
	seenKind := map[string]bool{}
	section := ""
	extractor := ""

	for _, s := range spans {
		if s.end <= start || s.start >= end {
			continue
		}
		ids = append(ids, s.el.ID)
		if p := domain.PageHint(s.el.Structured); p > 0 && !seenPage[p] {
			seenPage[p] = true
			pages = append(pages, p)
		}
		if k := string(s.el.Kind); !seenKind[k] {
			seenKind[k] = true
			kinds = append(kinds, k)
		}
		if section == "" {
			section = domain.SectionHint(s.el.Structured)
		}
		if extractor == "" {
			extractor = s.el.ExtractorName
		}
	}
	sort.Ints(pages)
	sort.Strings(kinds)

	md := map[string]any{
		domain.ChunkMetaSourceElements: ids,
		domain.ChunkMetaPages:          pages,
		domain.ChunkMetaKinds:          kinds,
		domain.ChunkMetaCharStart:      start,
		domain.ChunkMetaCharEnd:        end,
	}
	if section != "" {
		md[domain.ChunkMetaSection] = section
	}
	if extractor != "" {
		md[domain.ChunkMetaExtractor] = extractor
	}
	return md
}
