package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docstage/internal/core/domain"
	"github.com/custodia-labs/docstage/internal/core/ports/driven"
)

// Ensure IngestionStore implements the interface.
var _ driven.IngestionStore = (*IngestionStore)(nil)

type fileEntry struct {
	record domain.FileRecord
	blob   []byte
	seq    int
}

// IngestionStore is an in-memory implementation of driven.IngestionStore.
type IngestionStore struct {
	mu       sync.RWMutex
	files    map[string]*fileEntry
	elements map[string][]domain.ExtractedElement
	chunks   map[string][]domain.Chunk
	nextID   int64
	nextSeq  int
}

// NewIngestionStore creates an empty in-memory store.
func NewIngestionStore() *IngestionStore {
	return &IngestionStore{
		files:    make(map[string]*fileEntry),
		elements: make(map[string][]domain.ExtractedElement),
		chunks:   make(map[string][]domain.Chunk),
	}
}

// Init is a no-op.
func (s *IngestionStore) Init(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (s *IngestionStore) Close() error {
	return nil
}

// PutFile stores a new file. The hash is the dedup key.
func (s *IngestionStore) PutFile(_ context.Context, file domain.NewFile) (domain.PutResult, error) {
	if file.Hash == "" {
		return 0, fmt.Errorf("put file: %w: empty hash", domain.ErrInvalidInput)
	}
	status := file.Status
	if status == "" {
		status = domain.StatusPending
	}
	if !status.IsValid() {
		return 0, fmt.Errorf("put file: %w: unknown status %q", domain.ErrInvalidInput, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.files[file.Hash]; ok {
		if existing.record.Size != file.Size() {
			return 0, fmt.Errorf("put file: %w: %s stored with %d bytes, got %d",
				domain.ErrHashCollision, file.Hash, existing.record.Size, file.Size())
		}
		return domain.PutAlreadyExists, nil
	}

	now := time.Now().UTC()
	s.nextSeq++
	s.files[file.Hash] = &fileEntry{
		record: domain.FileRecord{
			Hash:            file.Hash,
			Path:            file.Path,
			Name:            file.Name,
			Extension:       strings.ToLower(file.Extension),
			Size:            file.Size(),
			ExtractorConfig: file.ExtractorConfig,
			Status:          status,
			Metadata:        maps.Clone(file.Metadata),
			CreatedAt:       now,
			UpdatedAt:       now,
		},
		blob: slices.Clone(file.Blob),
		seq:  s.nextSeq,
	}
	return domain.PutCreated, nil
}

// GetFile returns file metadata without the blob.
func (s *IngestionStore) GetFile(_ context.Context, hash string) (*domain.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.files[hash]
	if !ok {
		return nil, fmt.Errorf("get file %s: %w", hash, domain.ErrNotFound)
	}
	record := copyRecord(entry.record)
	return &record, nil
}

// GetFileBlob returns the raw bytes.
func (s *IngestionStore) GetFileBlob(_ context.Context, hash string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.files[hash]
	if !ok {
		return nil, fmt.Errorf("get blob %s: %w", hash, domain.ErrNotFound)
	}
	return slices.Clone(entry.blob), nil
}

// SetStatus validates and applies a transition under the store lock.
func (s *IngestionStore) SetStatus(_ context.Context, hash string, update domain.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.files[hash]
	if !ok {
		return fmt.Errorf("set status: %s: %w", hash, domain.ErrNotFound)
	}
	from := entry.record.Status
	if update.Expect != "" && update.Expect != from {
		return fmt.Errorf("set status: %w: %s is %s, expected %s",
			domain.ErrStatusConflict, hash, from, update.Expect)
	}
	if err := domain.ValidateTransition(from, update.Status); err != nil {
		return fmt.Errorf("set status: %w", err)
	}

	entry.record.Status = update.Status
	entry.record.ErrorMessage = update.Error
	if update.ChunkCount != nil {
		entry.record.ChunkCount = *update.ChunkCount
	}
	entry.record.UpdatedAt = time.Now().UTC()
	return nil
}

// MergeMetadata shallow-merges values into the file metadata.
func (s *IngestionStore) MergeMetadata(_ context.Context, hash string, values map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.files[hash]
	if !ok {
		return fmt.Errorf("merge metadata: %s: %w", hash, domain.ErrNotFound)
	}
	if len(values) == 0 {
		return nil
	}
	if entry.record.Metadata == nil {
		entry.record.Metadata = make(map[string]any, len(values))
	}
	maps.Copy(entry.record.Metadata, values)
	entry.record.UpdatedAt = time.Now().UTC()
	return nil
}

// ListByStatus returns files with the given status, oldest first.
func (s *IngestionStore) ListByStatus(_ context.Context, status domain.FileStatus) ([]domain.FileRecord, error) {
	return s.list(func(r domain.FileRecord) bool { return r.Status == status }), nil
}

// ListFiles returns every file, oldest first.
func (s *IngestionStore) ListFiles(_ context.Context) ([]domain.FileRecord, error) {
	return s.list(func(domain.FileRecord) bool { return true }), nil
}

func (s *IngestionStore) list(keep func(domain.FileRecord) bool) []domain.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*fileEntry, 0, len(s.files))
	for _, e := range s.files {
		if keep(e.record) {
			entries = append(entries, e)
		}
	}
	slices.SortFunc(entries, func(a, b *fileEntry) int { return a.seq - b.seq })

	var result []domain.FileRecord
	for _, e := range entries {
		result = append(result, copyRecord(e.record))
	}
	return result
}

// AddElements appends elements and assigns increasing IDs.
func (s *IngestionStore) AddElements(
	_ context.Context, hash string, elements []domain.ExtractedElement,
) ([]domain.ExtractedElement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[hash]; !ok {
		return nil, fmt.Errorf("add elements: file %s: %w", hash, domain.ErrNotFound)
	}
	for i, el := range elements {
		if !el.Kind.IsValid() {
			return nil, fmt.Errorf("add elements: %w: element %d has kind %q", domain.ErrInvalidInput, i, el.Kind)
		}
	}

	now := time.Now().UTC()
	stored := make([]domain.ExtractedElement, len(elements))
	for i, el := range elements {
		s.nextID++
		el.ID = s.nextID
		el.FileHash = hash
		el.CreatedAt = now
		el.Structured = maps.Clone(el.Structured)
		stored[i] = el
	}
	s.elements[hash] = append(s.elements[hash], stored...)
	return slices.Clone(stored), nil
}

// GetElements returns elements in insertion order.
func (s *IngestionStore) GetElements(_ context.Context, hash string) ([]domain.ExtractedElement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.elements[hash]), nil
}

// ReplaceChunks swaps the chunk set of a file.
func (s *IngestionStore) ReplaceChunks(_ context.Context, hash string, chunks []domain.Chunk) error {
	seen := make([]bool, len(chunks))
	for _, c := range chunks {
		if c.FileHash != "" && c.FileHash != hash {
			return fmt.Errorf("replace chunks: %w: chunk %s belongs to %s", domain.ErrInvalidInput, c.ID, c.FileHash)
		}
		if c.ID == "" {
			return fmt.Errorf("replace chunks: %w: chunk %d has no id", domain.ErrInvalidInput, c.Index)
		}
		if c.Index < 0 || c.Index >= len(chunks) || seen[c.Index] {
			return fmt.Errorf("replace chunks: %w: chunk indices must be contiguous from 0, got %d",
				domain.ErrInvalidInput, c.Index)
		}
		seen[c.Index] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[hash]; !ok {
		return fmt.Errorf("replace chunks: file %s: %w", hash, domain.ErrNotFound)
	}
	for other, set := range s.chunks {
		if other == hash {
			continue
		}
		for _, existing := range set {
			for _, c := range chunks {
				if c.ID == existing.ID {
					return fmt.Errorf("replace chunks: %w: chunk id %s already used", domain.ErrIntegrity, c.ID)
				}
			}
		}
	}

	ordered := make([]domain.Chunk, len(chunks))
	for _, c := range chunks {
		c.FileHash = hash
		c.Metadata = maps.Clone(c.Metadata)
		c.Embedding = slices.Clone(c.Embedding)
		ordered[c.Index] = c
	}
	if len(ordered) == 0 {
		delete(s.chunks, hash)
		return nil
	}
	s.chunks[hash] = ordered
	return nil
}

// GetChunks returns chunks ordered by index.
func (s *IngestionStore) GetChunks(_ context.Context, hash string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.chunks[hash]), nil
}

// ChunksWithoutEmbedding returns chunks of completed files without a vector.
func (s *IngestionStore) ChunksWithoutEmbedding(ctx context.Context, limit int) ([]domain.Chunk, error) {
	completed, _ := s.ListByStatus(ctx, domain.StatusCompleted)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Chunk
	for _, f := range completed {
		for _, c := range s.chunks[f.Hash] {
			if c.HasEmbedding() {
				continue
			}
			result = append(result, c)
			if limit > 0 && len(result) == limit {
				return result, nil
			}
		}
	}
	return result, nil
}

// SetChunkEmbedding stores the vector for a chunk.
func (s *IngestionStore) SetChunkEmbedding(_ context.Context, chunkID string, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("set embedding: %w: empty vector", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, set := range s.chunks {
		for i := range set {
			if set[i].ID == chunkID {
				set[i].Embedding = slices.Clone(embedding)
				return nil
			}
		}
	}
	return fmt.Errorf("set embedding: chunk %s: %w", chunkID, domain.ErrNotFound)
}

// DeleteFile removes a file with its elements and chunks.
func (s *IngestionStore) DeleteFile(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[hash]; !ok {
		return fmt.Errorf("delete file: %s: %w", hash, domain.ErrNotFound)
	}
	delete(s.files, hash)
	delete(s.elements, hash)
	delete(s.chunks, hash)
	return nil
}

// Statistics returns totals and per-status counts.
func (s *IngestionStore) Statistics(_ context.Context) (*domain.Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domain.Statistics{
		StatusCounts: make(map[domain.FileStatus]int, 4),
	}
	for _, status := range domain.AllStatuses() {
		stats.StatusCounts[status] = 0
	}
	for _, e := range s.files {
		stats.TotalFiles++
		stats.StatusCounts[e.record.Status]++
		stats.TotalBlobBytes += e.record.Size
	}
	for _, els := range s.elements {
		stats.TotalElements += len(els)
	}
	for _, cs := range s.chunks {
		stats.TotalChunks += len(cs)
	}
	return stats, nil
}

func copyRecord(r domain.FileRecord) domain.FileRecord {
	r.Metadata = maps.Clone(r.Metadata)
	return r
}
