package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docstage/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docstage/internal/core/domain"
	"github.com/custodia-labs/docstage/internal/core/ports/driven"
	"github.com/custodia-labs/docstage/internal/logger"
)

// DatabaseFile is the file name of the database inside the data directory.
const DatabaseFile = "docstage.db"

// jsonNull is the JSON representation of null.
const jsonNull = "null"

const maxRetries = 3

// fileColumns are the file columns read on metadata lookups. The blob is
// never part of them.
const fileColumns = `hash, path, name, extension, size, extractor_config, status,
	error_message, chunk_count, metadata, created_at, updated_at`

// Store is the SQLite-backed IngestionStore.
type Store struct {
	db   *sql.DB
	path string
	log  *logger.Logger
}

var _ driven.IngestionStore = (*Store)(nil)

// NewStore opens (or creates) the database in dataDir and applies pending
// migrations. If dataDir is empty, defaults to ~/.docstage/data.
func NewStore(dataDir string, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docstage", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// The pragmas apply to every pooled connection. Write transactions take
	// the lock at BEGIN so concurrent writers wait on busy_timeout instead of
	// failing on lock upgrade.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		log:  log.With("component", "store"),
	}

	if err := s.Init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Init applies pending migrations. Safe to call repeatedly.
func (s *Store) Init(ctx context.Context) error {
	if err := s.migrate(ctx, migrations.FS); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(ctx context.Context, fsys fs.FS) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		err = s.runTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, string(content)); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version)
			return err
		})
		if err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		s.log.Debug("applied migration", "name", name, "version", version)
	}

	return nil
}

// ==================== Transactions ====================

// IsBusy reports whether err indicates SQLite lock contention.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// isConstraint reports whether err is a constraint violation.
func isConstraint(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}

// classify maps driver errors onto the domain store errors.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case IsBusy(err):
		return fmt.Errorf("%w: %w", domain.ErrTransientStore, err)
	case isConstraint(err):
		return fmt.Errorf("%w: %w", domain.ErrIntegrity, err)
	default:
		return err
	}
}

// runTx executes fn inside a transaction, retrying lock contention up to
// three times with 100/200/300 ms backoff.
func (s *Store) runTx(ctx context.Context, fn func(*sql.Tx) error) error {
	var err error
	for i := range maxRetries {
		err = s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !IsBusy(err) || i == maxRetries-1 {
			break
		}
		s.log.Debug("database busy, retrying", "attempt", i+1, "error", err)
		if serr := sleepCtx(ctx, time.Duration(100*(i+1))*time.Millisecond); serr != nil {
			return fmt.Errorf("%w: %w", domain.ErrTransientStore, serr)
		}
	}
	return classify(err)
}

func (s *Store) runOnce(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ==================== Files ====================

// PutFile stores a new file. The hash is the dedup key.
func (s *Store) PutFile(ctx context.Context, file domain.NewFile) (domain.PutResult, error) {
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

	metadataJSON, err := marshalMap(file.Metadata)
	if err != nil {
		return 0, fmt.Errorf("put file: marshalling metadata: %w", err)
	}

	result := domain.PutCreated
	now := time.Now().UTC()
	err = s.runTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO files (hash, path, name, extension, size, blob, extractor_config,
				status, metadata, chunk_count, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
			ON CONFLICT(hash) DO NOTHING
		`, file.Hash, file.Path, file.Name, strings.ToLower(file.Extension), file.Size(),
			file.Blob, file.ExtractorConfig, string(status), metadataJSON, now, now)
		if err != nil {
			return fmt.Errorf("inserting file: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			result = domain.PutCreated
			return nil
		}

		var size int64
		if err := tx.QueryRowContext(ctx, "SELECT size FROM files WHERE hash = ?", file.Hash).
			Scan(&size); err != nil {
			return fmt.Errorf("reading existing file: %w", err)
		}
		if size != file.Size() {
			return fmt.Errorf("%w: %s stored with %d bytes, got %d",
				domain.ErrHashCollision, file.Hash, size, file.Size())
		}
		result = domain.PutAlreadyExists
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("put file: %w", err)
	}

	s.log.Debug("put file", "hash", file.Hash, "result", result.String())
	return result, nil
}

// GetFile returns file metadata without the blob.
func (s *Store) GetFile(ctx context.Context, hash string) (*domain.FileRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+fileColumns+" FROM files WHERE hash = ?", hash)
	file, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get file %s: %w", hash, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", classify(err))
	}
	return file, nil
}

// GetFileBlob returns the raw bytes of a file.
func (s *Store) GetFileBlob(ctx context.Context, hash string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, "SELECT blob FROM files WHERE hash = ?", hash).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get blob %s: %w", hash, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get blob: %w", classify(err))
	}
	return blob, nil
}

// SetStatus validates the transition against the stored status and writes
// it conditionally on that status still being current.
func (s *Store) SetStatus(ctx context.Context, hash string, update domain.StatusUpdate) error {
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx, "SELECT status FROM files WHERE hash = ?", hash).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", hash, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("reading status: %w", err)
		}

		from := domain.FileStatus(current)
		if update.Expect != "" && update.Expect != from {
			return fmt.Errorf("%w: %s is %s, expected %s", domain.ErrStatusConflict, hash, from, update.Expect)
		}
		if err := domain.ValidateTransition(from, update.Status); err != nil {
			return err
		}

		var chunkCount any
		if update.ChunkCount != nil {
			chunkCount = *update.ChunkCount
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE files
			SET status = ?, error_message = ?, chunk_count = COALESCE(?, chunk_count), updated_at = ?
			WHERE hash = ? AND status = ?
		`, string(update.Status), nullString(update.Error), chunkCount, time.Now().UTC(), hash, current)
		if err != nil {
			return fmt.Errorf("updating status: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s left %s", domain.ErrStatusConflict, hash, from)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}

	s.log.Debug("status changed", "hash", hash, "status", update.Status)
	return nil
}

// MergeMetadata shallow-merges values into the stored metadata.
func (s *Store) MergeMetadata(ctx context.Context, hash string, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		var raw sql.NullString
		err := tx.QueryRowContext(ctx, "SELECT metadata FROM files WHERE hash = ?", hash).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", hash, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("reading metadata: %w", err)
		}

		metadata, err := unmarshalMap(raw)
		if err != nil {
			return err
		}
		if metadata == nil {
			metadata = make(map[string]any, len(values))
		}
		for k, v := range values {
			metadata[k] = v
		}

		data, err := marshalMap(metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata: %w", err)
		}
		_, err = tx.ExecContext(ctx, "UPDATE files SET metadata = ?, updated_at = ? WHERE hash = ?",
			data, time.Now().UTC(), hash)
		return err
	})
	if err != nil {
		return fmt.Errorf("merge metadata: %w", err)
	}
	return nil
}

// ListByStatus returns files with the given status, oldest first.
func (s *Store) ListByStatus(ctx context.Context, status domain.FileStatus) ([]domain.FileRecord, error) {
	return s.listFiles(ctx, "WHERE status = ?", string(status))
}

// ListFiles returns every file, oldest first.
func (s *Store) ListFiles(ctx context.Context) ([]domain.FileRecord, error) {
	return s.listFiles(ctx, "")
}

func (s *Store) listFiles(ctx context.Context, where string, args ...any) ([]domain.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+fileColumns+" FROM files "+where+" ORDER BY created_at, rowid", args...)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", classify(err))
	}
	defer rows.Close()

	var files []domain.FileRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating files: %w", err)
	}

	return files, nil
}

// DeleteFile removes a file. Elements and chunks go with it via cascade.
func (s *Store) DeleteFile(ctx context.Context, hash string) error {
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM files WHERE hash = ?", hash)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%s: %w", hash, domain.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	s.log.Debug("deleted file", "hash", hash)
	return nil
}

// Statistics returns totals and per-status counts.
func (s *Store) Statistics(ctx context.Context) (*domain.Statistics, error) {
	stats := &domain.Statistics{
		StatusCounts: make(map[domain.FileStatus]int, 4),
	}
	for _, status := range domain.AllStatuses() {
		stats.StatusCounts[status] = 0
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT status, COUNT(*), COALESCE(SUM(size), 0) FROM files GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("statistics: %w", classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		var size int64
		if err := rows.Scan(&status, &count, &size); err != nil {
			return nil, fmt.Errorf("statistics: scanning: %w", err)
		}
		stats.StatusCounts[domain.FileStatus(status)] = count
		stats.TotalFiles += count
		stats.TotalBlobBytes += size
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("statistics: iterating: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM elements").Scan(&stats.TotalElements); err != nil {
		return nil, fmt.Errorf("statistics: counting elements: %w", classify(err))
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&stats.TotalChunks); err != nil {
		return nil, fmt.Errorf("statistics: counting chunks: %w", classify(err))
	}

	return stats, nil
}

// ==================== Elements ====================

// AddElements inserts all elements in one transaction.
func (s *Store) AddElements(
	ctx context.Context, hash string, elements []domain.ExtractedElement,
) ([]domain.ExtractedElement, error) {
	stored := make([]domain.ExtractedElement, len(elements))
	now := time.Now().UTC()

	err := s.runTx(ctx, func(tx *sql.Tx) error {
		if err := requireFile(ctx, tx, hash); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO elements (file_hash, content_kind, content_text, content_structured,
				extractor_name, extractor_version, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()

		for i, el := range elements {
			if !el.Kind.IsValid() {
				return fmt.Errorf("%w: element %d has kind %q", domain.ErrInvalidInput, i, el.Kind)
			}
			structured, err := marshalMap(el.Structured)
			if err != nil {
				return fmt.Errorf("marshalling element %d: %w", i, err)
			}
			res, err := stmt.ExecContext(ctx, hash, string(el.Kind), nullString(el.Text), structured,
				el.ExtractorName, el.ExtractorVersion, now)
			if err != nil {
				return fmt.Errorf("inserting element %d: %w", i, err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("element id: %w", err)
			}

			el.ID = id
			el.FileHash = hash
			el.CreatedAt = now
			stored[i] = el
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("add elements: %w", err)
	}

	s.log.Debug("stored elements", "hash", hash, "count", len(stored))
	return stored, nil
}

// GetElements returns elements in insertion order.
func (s *Store) GetElements(ctx context.Context, hash string) ([]domain.ExtractedElement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_hash, content_kind, content_text, content_structured,
			extractor_name, extractor_version, created_at
		FROM elements WHERE file_hash = ?
		ORDER BY id
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("querying elements: %w", classify(err))
	}
	defer rows.Close()

	var elements []domain.ExtractedElement //nolint:prealloc // size unknown from query
	for rows.Next() {
		el, err := scanElement(rows)
		if err != nil {
			return nil, err
		}
		elements = append(elements, *el)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating elements: %w", err)
	}

	return elements, nil
}

// ==================== Chunks ====================

// ReplaceChunks deletes the file's chunks and inserts the new set in one
// transaction. Indices must be exactly 0..n-1.
func (s *Store) ReplaceChunks(ctx context.Context, hash string, chunks []domain.Chunk) error {
	if err := validateChunks(hash, chunks); err != nil {
		return fmt.Errorf("replace chunks: %w", err)
	}

	err := s.runTx(ctx, func(tx *sql.Tx) error {
		if err := requireFile(ctx, tx, hash); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE file_hash = ?", hash); err != nil {
			return fmt.Errorf("deleting chunks: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (chunk_id, file_hash, sequence_index, chunk_text, chunk_metadata, embedding_vector)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()

		for _, chunk := range chunks {
			metadata, err := marshalMap(chunk.Metadata)
			if err != nil {
				return fmt.Errorf("marshalling chunk metadata: %w", err)
			}
			if _, err := stmt.ExecContext(ctx, chunk.ID, hash, chunk.Index, chunk.Text,
				metadata, float32SliceToBytes(chunk.Embedding)); err != nil {
				return fmt.Errorf("inserting chunk %d: %w", chunk.Index, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace chunks: %w", err)
	}

	s.log.Debug("replaced chunks", "hash", hash, "count", len(chunks))
	return nil
}

// GetChunks returns chunks ordered by index.
func (s *Store) GetChunks(ctx context.Context, hash string) ([]domain.Chunk, error) {
	return s.queryChunks(ctx, `
		SELECT chunk_id, file_hash, sequence_index, chunk_text, chunk_metadata, embedding_vector
		FROM chunks WHERE file_hash = ?
		ORDER BY sequence_index
	`, hash)
}

// ChunksWithoutEmbedding returns chunks of completed files that still need
// a vector. A limit of zero or less returns all of them.
func (s *Store) ChunksWithoutEmbedding(ctx context.Context, limit int) ([]domain.Chunk, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.queryChunks(ctx, `
		SELECT c.chunk_id, c.file_hash, c.sequence_index, c.chunk_text, c.chunk_metadata, c.embedding_vector
		FROM chunks c
		JOIN files f ON f.hash = c.file_hash
		WHERE f.status = ? AND c.embedding_vector IS NULL
		ORDER BY f.created_at, c.file_hash, c.sequence_index
		LIMIT ?
	`, string(domain.StatusCompleted), limit)
}

// SetChunkEmbedding stores the vector of one chunk.
func (s *Store) SetChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("set embedding: %w: empty vector", domain.ErrInvalidInput)
	}
	err := s.runTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE chunks SET embedding_vector = ? WHERE chunk_id = ?",
			float32SliceToBytes(embedding), chunkID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("chunk %s: %w", chunkID, domain.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set embedding: %w", err)
	}
	return nil
}

func (s *Store) queryChunks(ctx context.Context, query string, args ...any) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", classify(err))
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// validateChunks checks ownership, IDs and that indices form 0..n-1.
func validateChunks(hash string, chunks []domain.Chunk) error {
	seen := make([]bool, len(chunks))
	for _, c := range chunks {
		if c.FileHash != "" && c.FileHash != hash {
			return fmt.Errorf("%w: chunk %s belongs to %s", domain.ErrInvalidInput, c.ID, c.FileHash)
		}
		if c.ID == "" {
			return fmt.Errorf("%w: chunk %d has no id", domain.ErrInvalidInput, c.Index)
		}
		if c.Index < 0 || c.Index >= len(chunks) || seen[c.Index] {
			return fmt.Errorf("%w: chunk indices must be contiguous from 0, got %d", domain.ErrInvalidInput, c.Index)
		}
		seen[c.Index] = true
	}
	return nil
}

// ==================== Helper Functions ====================

type scanner interface {
	Scan(dest ...any) error
}

func requireFile(ctx context.Context, tx *sql.Tx, hash string) error {
	var one int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM files WHERE hash = ?", hash).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("file %s: %w", hash, domain.ErrNotFound)
	}
	return err
}

// float32SliceToBytes converts []float32 to little-endian bytes.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// marshalMap encodes a map as JSON; nil maps become SQL NULL.
func marshalMap(m map[string]any) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalMap(raw sql.NullString) (map[string]any, error) {
	if !raw.Valid || raw.String == "" || raw.String == jsonNull {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw.String), &m); err != nil {
		return nil, fmt.Errorf("unmarshalling json: %w", err)
	}
	return m, nil
}

func scanFile(row scanner) (*domain.FileRecord, error) {
	var file domain.FileRecord
	var status string
	var extractorConfig, errorMessage, metadata sql.NullString

	if err := row.Scan(&file.Hash, &file.Path, &file.Name, &file.Extension, &file.Size,
		&extractorConfig, &status, &errorMessage, &file.ChunkCount, &metadata,
		&file.CreatedAt, &file.UpdatedAt); err != nil {
		return nil, err
	}

	m, err := unmarshalMap(metadata)
	if err != nil {
		return nil, fmt.Errorf("file %s metadata: %w", file.Hash, err)
	}
	file.Metadata = m
	file.Status = domain.FileStatus(status)
	file.ExtractorConfig = extractorConfig.String
	file.ErrorMessage = errorMessage.String
	return &file, nil
}

func scanElement(row scanner) (*domain.ExtractedElement, error) {
	var el domain.ExtractedElement
	var kind string
	var text, structured sql.NullString

	if err := row.Scan(&el.ID, &el.FileHash, &kind, &text, &structured,
		&el.ExtractorName, &el.ExtractorVersion, &el.CreatedAt); err != nil {
		return nil, fmt.Errorf("scanning element: %w", err)
	}

	m, err := unmarshalMap(structured)
	if err != nil {
		return nil, fmt.Errorf("element %d: %w", el.ID, err)
	}
	el.Kind = domain.ElementKind(kind)
	el.Text = text.String
	el.Structured = m
	return &el, nil
}

func scanChunk(row scanner) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var metadata sql.NullString
	var embedding []byte

	if err := row.Scan(&chunk.ID, &chunk.FileHash, &chunk.Index, &chunk.Text,
		&metadata, &embedding); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	m, err := unmarshalMap(metadata)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", chunk.ID, err)
	}
	chunk.Metadata = m
	chunk.Embedding = bytesToFloat32Slice(embedding)
	return &chunk, nil
}
