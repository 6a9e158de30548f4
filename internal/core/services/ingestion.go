package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/docstage/internal/chunker"
	"github.com/custodia-labs/docstage/internal/core/domain"
	"github.com/custodia-labs/docstage/internal/core/ports/driven"
	"github.com/custodia-labs/docstage/internal/core/ports/driving"
	"github.com/custodia-labs/docstage/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// Metadata keys written by the orchestrator.
const (
	MetaBackendErrors    = "backend_errors"
	MetaPrimaryExtractor = "primary_extractor"
)

// ErrorInterrupted is recorded on files recovered from a crashed run.
const ErrorInterrupted = "interrupted"

const claimAttempts = 3

// IngestionService drives files through store, extract and chunk.
// Files are processed concurrently on a worker pool; the stages of one
// file run sequentially.
type IngestionService struct {
	store    driven.IngestionStore
	registry driven.ExtractorRegistry
	settings domain.Settings
	log      *logger.Logger
	pool     *ants.Pool
	workers  int
}

// IngestionOption configures the service.
type IngestionOption func(*IngestionService)

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) IngestionOption {
	return func(s *IngestionService) {
		if l != nil {
			s.log = l
		}
	}
}

// WithWorkers overrides the configured pool size.
func WithWorkers(n int) IngestionOption {
	return func(s *IngestionService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewIngestionService creates the orchestrator and its worker pool.
// Call Release when done.
func NewIngestionService(
	store driven.IngestionStore,
	registry driven.ExtractorRegistry,
	settings domain.Settings,
	opts ...IngestionOption,
) (*IngestionService, error) {
	s := &IngestionService{
		store:    store,
		registry: registry,
		settings: settings,
		log:      logger.Nop(),
		workers:  settings.Ingest.Workers,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers < 1 {
		s.workers = domain.DefaultWorkers()
	}
	if len(s.settings.Extractors) == 0 {
		s.settings.Extractors = domain.DefaultExtractors()
	}
	s.log = s.log.With("component", "ingest")

	pool, err := ants.NewPool(s.workers, ants.WithLogger(s.log))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	s.pool = pool

	return s, nil
}

// Release stops the worker pool.
func (s *IngestionService) Release() {
	s.pool.Release()
}

// Workers returns the pool size.
func (s *IngestionService) Workers() int {
	return s.workers
}

// HashBytes returns the hex SHA-256 digest used as the file key.
func HashBytes(blob []byte) string {
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:])
}

// plan is the resolved configuration of one driving loop.
type plan struct {
	backends   []driven.Extractor
	targetSize int
	overlap    int
}

func (s *IngestionService) plan(opts domain.IngestOptions) (*plan, error) {
	names := opts.Extractors
	if len(names) == 0 {
		names = s.settings.Extractors
	}
	backends, err := s.registry.Select(names)
	if err != nil {
		return nil, err
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("%w: no extractors configured", domain.ErrInvalidInput)
	}

	p := &plan{
		backends:   backends,
		targetSize: s.settings.Chunk.TargetSize,
		overlap:    s.settings.Chunk.Overlap,
	}
	if opts.TargetSize > 0 {
		p.targetSize = opts.TargetSize
		if opts.Overlap >= 0 {
			p.overlap = opts.Overlap
		}
	}
	return p, nil
}

// config renders the plan for the extractor_config column.
func (p *plan) config() string {
	names := make([]string, len(p.backends))
	for i, b := range p.backends {
		names[i] = b.Name()
	}
	data, _ := json.Marshal(map[string]any{
		"extractors":  names,
		"target_size": p.targetSize,
		"overlap":     p.overlap,
	})
	return string(data)
}

// forExtension narrows the backends to those that handle ext. When none
// does, every backend is kept so each reports its own unavailability.
func (p *plan) forExtension(ext string) []driven.Extractor {
	var matched []driven.Extractor
	for _, b := range p.backends {
		for _, f := range b.SupportedFormats() {
			if f == ext {
				matched = append(matched, b)
				break
			}
		}
	}
	if len(matched) == 0 {
		return p.backends
	}
	return matched
}

// formats returns the sorted union of the plan's backend formats.
func (p *plan) formats() []string {
	var out []string
	for _, b := range p.backends {
		for _, f := range b.SupportedFormats() {
			if !slices.Contains(out, f) {
				out = append(out, f)
			}
		}
	}
	slices.Sort(out)
	return out
}

// rules builds the file checks for opts. Without a configured allow list,
// only formats of the backends that would run are accepted.
func (s *IngestionService) rules(opts domain.IngestOptions) fileRules {
	allowed := s.settings.Ingest.AllowedExtensions
	if len(allowed) == 0 {
		if p, err := s.plan(opts); err == nil {
			allowed = p.formats()
		} else {
			allowed = s.registry.SupportedFormats()
		}
	}
	return fileRules{allowed: allowed, maxSize: s.settings.Ingest.MaxFileSizeBytes()}
}

// ==================== Driving loop ====================

// Ingest stores raw bytes and runs the pipeline for them.
func (s *IngestionService) Ingest(
	ctx context.Context, input domain.IngestInput, opts domain.IngestOptions,
) (*domain.IngestOutcome, error) {
	start := time.Now()
	if input.Name == "" {
		input.Name = filepath.Base(input.Path)
	}
	if input.Extension == "" {
		input.Extension = filepath.Ext(input.Name)
	}
	input.Extension = strings.ToLower(input.Extension)

	outcome := &domain.IngestOutcome{Path: input.Path}
	reject := func(err error) (*domain.IngestOutcome, error) {
		outcome.Action = domain.ActionRejected
		outcome.Error = err.Error()
		outcome.Duration = time.Since(start)
		s.log.Info("rejected", "path", input.Path, "reason", err)
		return outcome, nil
	}

	if len(input.Blob) == 0 {
		return reject(fmt.Errorf("%w: empty content", domain.ErrInvalidInput))
	}
	if limit := s.settings.Ingest.MaxFileSizeBytes(); limit > 0 && int64(len(input.Blob)) > limit {
		return reject(fmt.Errorf("%w: %s exceeds limit of %s",
			domain.ErrInvalidInput, FormatSize(int64(len(input.Blob))), FormatSize(limit)))
	}
	p, err := s.plan(opts)
	if err != nil {
		return reject(err)
	}

	outcome.Hash = HashBytes(input.Blob)
	res, err := s.store.PutFile(ctx, domain.NewFile{
		Hash:            outcome.Hash,
		Path:            input.Path,
		Name:            input.Name,
		Extension:       input.Extension,
		Blob:            input.Blob,
		ExtractorConfig: p.config(),
		Metadata:        input.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", input.Path, err)
	}

	if res == domain.PutAlreadyExists && !opts.Force {
		outcome.Action = domain.ActionDuplicate
		if file, err := s.store.GetFile(ctx, outcome.Hash); err == nil {
			outcome.Status = file.Status
			outcome.Chunks = file.ChunkCount
		}
		outcome.Duration = time.Since(start)
		s.log.Debug("duplicate", "path", input.Path, "hash", outcome.Hash)
		return outcome, nil
	}

	if res == domain.PutCreated && opts.StoreOnly {
		outcome.Action = domain.ActionStored
		outcome.Status = domain.StatusPending
		outcome.Duration = time.Since(start)
		s.log.Debug("stored", "path", input.Path, "hash", outcome.Hash)
		return outcome, nil
	}

	allowed := []domain.FileStatus{domain.StatusPending}
	if opts.Force {
		allowed = append(allowed, domain.StatusFailed, domain.StatusCompleted)
	}
	out, err := s.drive(ctx, outcome.Hash, p, allowed)
	if out != nil {
		out.Path = input.Path
		out.Duration = time.Since(start)
	}
	return out, err
}

// drive claims hash and runs extraction and chunking. Only integrity
// errors, lookup failures and refused claims are returned as errors.
func (s *IngestionService) drive(
	ctx context.Context, hash string, p *plan, allowed []domain.FileStatus,
) (*domain.IngestOutcome, error) {
	start := time.Now()
	outcome := &domain.IngestOutcome{Hash: hash}

	file, claimed, err := s.claim(ctx, hash, allowed)
	if err != nil {
		return nil, err
	}
	outcome.Path = file.Path
	if !claimed {
		outcome.Action = domain.ActionSkipped
		outcome.Status = domain.StatusProcessing
		outcome.Error = "file is being processed by another run"
		outcome.Duration = time.Since(start)
		s.log.Debug("skipped", "hash", hash)
		return outcome, nil
	}

	s.log.Section("process " + file.Name)
	perr := s.process(ctx, file, p, outcome)
	outcome.Duration = time.Since(start)
	if perr == nil {
		outcome.Action = domain.ActionCompleted
		outcome.Status = domain.StatusCompleted
		s.log.Info("completed", "path", file.Path, "hash", hash,
			"elements", outcome.Elements, "chunks", outcome.Chunks, "extractor", outcome.Extractor)
		return outcome, nil
	}

	outcome.Action = domain.ActionFailed
	outcome.Status = domain.StatusFailed
	outcome.Error = perr.Error()
	outcome.Chunks = 0
	if err := s.fail(ctx, hash, perr.Error()); err != nil {
		return outcome, errors.Join(perr, err)
	}
	s.log.Warn("failed", "path", file.Path, "hash", hash, "error", perr)

	if domain.IsFatal(perr) {
		return outcome, perr
	}
	return outcome, nil
}

// claim moves hash to processing. It returns claimed=false when another
// run owns the file. A failed file is first moved back to pending.
func (s *IngestionService) claim(
	ctx context.Context, hash string, allowed []domain.FileStatus,
) (*domain.FileRecord, bool, error) {
	var lastErr error
	for attempt := range claimAttempts {
		if attempt > 0 {
			if err := sleepCtx(ctx, time.Duration(50*attempt)*time.Millisecond); err != nil {
				return nil, false, err
			}
		}

		file, err := s.store.GetFile(ctx, hash)
		if err != nil {
			if errors.Is(err, domain.ErrTransientStore) {
				lastErr = err
				continue
			}
			return nil, false, err
		}
		if file.Status == domain.StatusProcessing {
			return file, false, nil
		}
		if !statusIn(file.Status, allowed) {
			return nil, false, fmt.Errorf("%w: %s is %s", domain.ErrInvalidTransition, hash, file.Status)
		}

		from := file.Status
		if from == domain.StatusFailed {
			err = s.store.SetStatus(ctx, hash, domain.StatusUpdate{
				Status: domain.StatusPending,
				Expect: domain.StatusFailed,
			})
			from = domain.StatusPending
		}
		if err == nil {
			err = s.store.SetStatus(ctx, hash, domain.StatusUpdate{
				Status: domain.StatusProcessing,
				Expect: from,
			})
		}
		switch {
		case err == nil:
			file.Status = domain.StatusProcessing
			return file, true, nil
		case errors.Is(err, domain.ErrStatusConflict), errors.Is(err, domain.ErrTransientStore):
			lastErr = err
			s.log.Debug("claim retry", "hash", hash, "attempt", attempt+1, "error", err)
		default:
			return nil, false, err
		}
	}

	if errors.Is(lastErr, domain.ErrStatusConflict) {
		file, err := s.store.GetFile(ctx, hash)
		if err != nil {
			return nil, false, err
		}
		return file, false, nil
	}
	return nil, false, fmt.Errorf("claim %s: %w", hash, lastErr)
}

// process runs extraction and chunking for a claimed file. Panics are
// converted into errors.
func (s *IngestionService) process(
	ctx context.Context, file *domain.FileRecord, p *plan, outcome *domain.IngestOutcome,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing: %v", r)
		}
	}()

	blob, err := s.store.GetFileBlob(ctx, file.Hash)
	if err != nil {
		return fmt.Errorf("read blob: %w", err)
	}

	var (
		elements      []domain.ExtractedElement
		primary       string
		backendErrors = make(map[string]string)
		failures      []string
	)
	for _, backend := range p.forExtension(file.Extension) {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.log.Debug("extracting", "hash", file.Hash, "extractor", backend.Name())
		result := backend.ExtractFromBlob(ctx, blob, file.Extension)
		if !result.Success {
			backendErrors[backend.Name()] = result.Error
			failures = append(failures, backend.Name()+": "+result.Error)
			s.log.Debug("extractor failed", "hash", file.Hash, "extractor", backend.Name(), "error", result.Error)
			continue
		}
		if primary == "" {
			primary = backend.Name()
		}
		for _, draft := range result.Elements {
			elements = append(elements, domain.ExtractedElement{
				FileHash:         file.Hash,
				ElementDraft:     draft,
				ExtractorName:    result.Extractor,
				ExtractorVersion: result.Version,
			})
		}
	}
	if len(backendErrors) > 0 {
		outcome.BackendErrors = backendErrors
	}

	meta := map[string]any{MetaBackendErrors: backendErrors}
	if primary != "" {
		meta[MetaPrimaryExtractor] = primary
	}
	if err := s.store.MergeMetadata(ctx, file.Hash, meta); err != nil {
		return fmt.Errorf("record backend errors: %w", err)
	}

	if len(elements) == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNoElements, strings.Join(failures, "; "))
	}

	stored, err := s.store.AddElements(ctx, file.Hash, elements)
	if err != nil {
		return fmt.Errorf("store elements: %w", err)
	}
	outcome.Elements = len(stored)
	outcome.Extractor = primary

	count, err := s.chunk(ctx, file.Hash, byExtractor(stored, primary), p.targetSize, p.overlap)
	if err != nil {
		return err
	}
	outcome.Chunks = count

	return s.store.SetStatus(ctx, file.Hash, domain.StatusUpdate{
		Status:     domain.StatusCompleted,
		Expect:     domain.StatusProcessing,
		ChunkCount: &count,
	})
}

// chunk replaces the chunk set of hash from elements and returns the count.
func (s *IngestionService) chunk(
	ctx context.Context, hash string, elements []domain.ExtractedElement, targetSize, overlap int,
) (int, error) {
	engine := chunker.New(chunker.WithChunkSize(targetSize), chunker.WithOverlap(overlap))
	chunks := engine.Build(hash, elements)
	if err := s.store.ReplaceChunks(ctx, hash, chunks); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}
	s.log.Debug("chunked", "hash", hash, "chunks", len(chunks),
		"size", engine.ChunkSize(), "overlap", engine.Overlap())
	return len(chunks), nil
}

// fail marks hash failed. It runs even when ctx is cancelled so a file
// never stays in processing.
func (s *IngestionService) fail(ctx context.Context, hash, message string) error {
	ctx = context.WithoutCancel(ctx)
	var err error
	for attempt := range claimAttempts {
		err = s.store.SetStatus(ctx, hash, domain.StatusUpdate{
			Status: domain.StatusFailed,
			Expect: domain.StatusProcessing,
			Error:  message,
		})
		if !errors.Is(err, domain.ErrTransientStore) {
			break
		}
		_ = sleepCtx(ctx, time.Duration(50*(attempt+1))*time.Millisecond)
	}
	if err != nil {
		return fmt.Errorf("mark %s failed: %w", hash, err)
	}
	return nil
}

// ==================== Entry points ====================

// IngestFile validates and ingests one file from disk.
func (s *IngestionService) IngestFile(
	ctx context.Context, path string, opts domain.IngestOptions,
) (*domain.IngestOutcome, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if _, err := s.rules(opts).validate(abs); err != nil {
		return &domain.IngestOutcome{Path: abs, Action: domain.ActionRejected, Error: err.Error()}, nil
	}
	return s.ingestPath(ctx, abs, opts)
}

func (s *IngestionService) ingestPath(
	ctx context.Context, path string, opts domain.IngestOptions,
) (*domain.IngestOutcome, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return &domain.IngestOutcome{
			Path:   path,
			Action: domain.ActionRejected,
			Error:  fmt.Errorf("%w: %w", domain.ErrInvalidInput, err).Error(),
		}, nil
	}
	return s.Ingest(ctx, domain.IngestInput{Path: path, Blob: blob}, opts)
}

// IngestPath ingests root, or every eligible file below it, on the pool.
func (s *IngestionService) IngestPath(
	ctx context.Context, root string, opts domain.IngestOptions,
) (*domain.BatchReport, error) {
	start := time.Now()
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	candidates, err := s.rules(opts).scan(abs)
	if err != nil {
		return nil, err
	}
	s.log.Info("scanned", "root", abs, "files", len(candidates))

	outcomes, err := s.runAll(ctx, len(candidates), func(ctx context.Context, i int) (*domain.IngestOutcome, error) {
		c := candidates[i]
		if c.Reason != nil {
			return &domain.IngestOutcome{Path: c.Path, Action: domain.ActionRejected, Error: c.Reason.Error()}, nil
		}
		return s.ingestPath(ctx, c.Path, opts)
	})

	report := domain.NewBatchReport(outcomes)
	for _, c := range candidates {
		if c.Reason == nil {
			report.Bytes += c.Size
		}
	}
	report.Duration = time.Since(start)
	return report, err
}

// Process runs the pipeline for a stored pending file.
func (s *IngestionService) Process(ctx context.Context, hash string) (*domain.IngestOutcome, error) {
	p, err := s.plan(domain.IngestOptions{})
	if err != nil {
		return nil, err
	}
	return s.drive(ctx, hash, p, []domain.FileStatus{domain.StatusPending})
}

// ProcessPending processes every pending file on the pool.
func (s *IngestionService) ProcessPending(ctx context.Context) (*domain.BatchReport, error) {
	start := time.Now()
	pending, err := s.store.ListByStatus(ctx, domain.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	p, err := s.plan(domain.IngestOptions{})
	if err != nil {
		return nil, err
	}

	outcomes, err := s.runAll(ctx, len(pending), func(ctx context.Context, i int) (*domain.IngestOutcome, error) {
		out, err := s.drive(ctx, pending[i].Hash, p, []domain.FileStatus{domain.StatusPending})
		if errors.Is(err, domain.ErrInvalidTransition) {
			// Another run finished it between listing and claiming.
			return &domain.IngestOutcome{
				Hash: pending[i].Hash, Path: pending[i].Path,
				Action: domain.ActionSkipped, Error: err.Error(),
			}, nil
		}
		return out, err
	})

	report := domain.NewBatchReport(outcomes)
	for _, f := range pending {
		report.Bytes += f.Size
	}
	report.Duration = time.Since(start)
	return report, err
}

// Retry moves a failed file back to pending and processes it.
func (s *IngestionService) Retry(ctx context.Context, hash string) (*domain.IngestOutcome, error) {
	p, err := s.plan(domain.IngestOptions{})
	if err != nil {
		return nil, err
	}
	return s.drive(ctx, hash, p, []domain.FileStatus{domain.StatusFailed})
}

// Reextract reruns extraction and chunking for a completed file.
// New elements are added next to the old ones; chunks are replaced.
func (s *IngestionService) Reextract(
	ctx context.Context, hash string, opts domain.IngestOptions,
) (*domain.IngestOutcome, error) {
	p, err := s.plan(opts)
	if err != nil {
		return nil, err
	}
	return s.drive(ctx, hash, p, []domain.FileStatus{domain.StatusCompleted})
}

// Rechunk rebuilds the chunks of a completed file from the latest stored
// elements of its primary extractor. Zero parameters use the configured
// values; a negative overlap keeps the configured one.
func (s *IngestionService) Rechunk(ctx context.Context, hash string, targetSize, overlap int) (int, error) {
	switch {
	case targetSize <= 0:
		targetSize = s.settings.Chunk.TargetSize
		overlap = s.settings.Chunk.Overlap
	case overlap < 0:
		overlap = s.settings.Chunk.Overlap
	}

	file, claimed, err := s.claim(ctx, hash, []domain.FileStatus{domain.StatusCompleted})
	if err != nil {
		return 0, err
	}
	if !claimed {
		return 0, fmt.Errorf("%w: %s is being processed", domain.ErrStatusConflict, hash)
	}

	count, err := func() (n int, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic while rechunking: %v", r)
			}
		}()
		stored, err := s.store.GetElements(ctx, hash)
		if err != nil {
			return 0, fmt.Errorf("read elements: %w", err)
		}
		primary, _ := file.Metadata[MetaPrimaryExtractor].(string)
		elements := latestRun(byExtractor(stored, primary))
		if len(elements) == 0 {
			return 0, fmt.Errorf("%w: no stored elements", domain.ErrNoElements)
		}
		n, err = s.chunk(ctx, hash, elements, targetSize, overlap)
		if err != nil {
			return 0, err
		}
		return n, s.store.SetStatus(ctx, hash, domain.StatusUpdate{
			Status:     domain.StatusCompleted,
			Expect:     domain.StatusProcessing,
			ChunkCount: &n,
		})
	}()
	if err != nil {
		if ferr := s.fail(ctx, hash, err.Error()); ferr != nil {
			return 0, errors.Join(err, ferr)
		}
		return 0, err
	}

	s.log.Info("rechunked", "hash", hash, "chunks", count)
	return count, nil
}

// RecoverStale marks every file left in processing as failed. Run it at
// startup, before any pipeline is active.
func (s *IngestionService) RecoverStale(ctx context.Context) (int, error) {
	stale, err := s.store.ListByStatus(ctx, domain.StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("list processing: %w", err)
	}

	recovered := 0
	for _, f := range stale {
		err := s.store.SetStatus(ctx, f.Hash, domain.StatusUpdate{
			Status: domain.StatusFailed,
			Expect: domain.StatusProcessing,
			Error:  ErrorInterrupted,
		})
		switch {
		case err == nil:
			recovered++
			s.log.Info("recovered", "path", f.Path, "hash", f.Hash)
		case errors.Is(err, domain.ErrStatusConflict):
		default:
			return recovered, fmt.Errorf("recover %s: %w", f.Hash, err)
		}
	}
	return recovered, nil
}

// ==================== Queries ====================

// Delete removes a file and everything derived from it.
func (s *IngestionService) Delete(ctx context.Context, hash string) error {
	if err := s.store.DeleteFile(ctx, hash); err != nil {
		return err
	}
	s.log.Info("deleted", "hash", hash)
	return nil
}

// Get returns file metadata.
func (s *IngestionService) Get(ctx context.Context, hash string) (*domain.FileRecord, error) {
	return s.store.GetFile(ctx, hash)
}

// List returns files with status, or all files when status is empty.
func (s *IngestionService) List(ctx context.Context, status domain.FileStatus) ([]domain.FileRecord, error) {
	if status == "" {
		return s.store.ListFiles(ctx)
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}
	return s.store.ListByStatus(ctx, status)
}

// Elements returns a file's stored elements.
func (s *IngestionService) Elements(ctx context.Context, hash string) ([]domain.ExtractedElement, error) {
	if _, err := s.store.GetFile(ctx, hash); err != nil {
		return nil, err
	}
	return s.store.GetElements(ctx, hash)
}

// Chunks returns a file's chunks in order.
func (s *IngestionService) Chunks(ctx context.Context, hash string) ([]domain.Chunk, error) {
	if _, err := s.store.GetFile(ctx, hash); err != nil {
		return nil, err
	}
	return s.store.GetChunks(ctx, hash)
}

// Statistics returns store totals.
func (s *IngestionService) Statistics(ctx context.Context) (*domain.Statistics, error) {
	return s.store.Statistics(ctx)
}

// Extractors returns info for every registered backend.
func (s *IngestionService) Extractors() []domain.ExtractorInfo {
	names := s.registry.Names()
	infos := make([]domain.ExtractorInfo, 0, len(names))
	for _, name := range names {
		if e, err := s.registry.Get(name); err == nil {
			infos = append(infos, e.Info())
		}
	}
	return infos
}

// ==================== Helpers ====================

// runAll runs fn for 0..n-1 on the pool and collects outcomes in input
// order. Errors are joined; a nil outcome is dropped.
func (s *IngestionService) runAll(
	ctx context.Context,
	n int,
	fn func(ctx context.Context, i int) (*domain.IngestOutcome, error),
) ([]domain.IngestOutcome, error) {
	results := make([]*domain.IngestOutcome, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := range n {
		if ctx.Err() != nil {
			errs[i] = ctx.Err()
			continue
		}
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			results[i], errs[i] = fn(ctx, i)
		})
		if err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("submit: %w", err)
		}
	}
	wg.Wait()

	outcomes := make([]domain.IngestOutcome, 0, n)
	for _, r := range results {
		if r != nil {
			outcomes = append(outcomes, *r)
		}
	}
	return outcomes, errors.Join(errs...)
}

func statusIn(status domain.FileStatus, set []domain.FileStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

// byExtractor keeps the elements produced by name.
func byExtractor(elements []domain.ExtractedElement, name string) []domain.ExtractedElement {
	var out []domain.ExtractedElement
	for _, el := range elements {
		if el.ExtractorName == name {
			out = append(out, el)
		}
	}
	return out
}

// latestRun keeps the elements stored by the most recent AddElements call.
// Elements of one call share a creation time.
func latestRun(elements []domain.ExtractedElement) []domain.ExtractedElement {
	var latest time.Time
	for _, el := range elements {
		if el.CreatedAt.After(latest) {
			latest = el.CreatedAt
		}
	}
	var out []domain.ExtractedElement
	for _, el := range elements {
		if el.CreatedAt.Equal(latest) {
			out = append(out, el)
		}
	}
	return out
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
