package domain

// Chunk is a contiguous text window derived from a file's elements.
type Chunk struct {
	// ID is deterministic for a (file hash, index) pair.
	ID string

	// FileHash links to the owning FileRecord.
	FileHash string

	// Index is the 0-based position; indices of a file are contiguous.
	Index int

	// Text is the chunk content.
	Text string

	// Metadata carries pages, section, source element ids and offsets.
	Metadata map[string]any

	// Embedding is nil until the embedding step writes it.
	Embedding []float32
}

// HasEmbedding reports whether a vector has been stored.
func (c Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// ChunkDraft is a chunk produced by the chunking engine before IDs are bound.
type ChunkDraft struct {
	Index    int
	Text     string
	Metadata map[string]any
}

// Well-known keys in Chunk.Metadata.
const (
	ChunkMetaSourceElements = "source_element_ids"
	ChunkMetaPages          = "pages"
	ChunkMetaSection        = "section"
	ChunkMetaKinds          = "kinds"
	ChunkMetaCharStart      = "char_start"
	ChunkMetaCharEnd        = "char_end"
	ChunkMetaExtractor      = "extractor"
)
