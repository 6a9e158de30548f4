// Package base holds the behaviour shared by every extraction backend:
// identity, usage counters, file validation, panic containment and
// temporary staging of stored blobs.
package base

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/docstage/internal/core/domain"
)

// ExtractFunc does the format-specific work for a validated file.
type ExtractFunc func(ctx context.Context, path string) ([]domain.ElementDraft, error)

// Base implements the identity half of driven.Extractor and wraps
// format-specific extraction with validation, timing and recovery.
type Base struct {
	name    string
	version string
	formats []string

	count atomic.Int64
	last  atomic.Int64 // unix nanoseconds
}

// New creates a Base. Formats are normalised to lower case with a dot.
func New(name, version string, formats ...string) *Base {
	normalised := make([]string, 0, len(formats))
	for _, f := range formats {
		normalised = append(normalised, NormaliseExt(f))
	}
	return &Base{name: name, version: version, formats: normalised}
}

// NormaliseExt lower-cases ext and ensures a leading dot.
func NormaliseExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Name returns the backend name.
func (b *Base) Name() string { return b.name }

// Version returns the backend version.
func (b *Base) Version() string { return b.version }

// SupportedFormats returns a copy of the supported extensions.
func (b *Base) SupportedFormats() []string {
	return slices.Clone(b.formats)
}

// Supports reports whether ext is handled by this backend.
func (b *Base) Supports(ext string) bool {
	return slices.Contains(b.formats, NormaliseExt(ext))
}

// Info returns identity and usage counters.
func (b *Base) Info() domain.ExtractorInfo {
	info := domain.ExtractorInfo{
		Name:             b.name,
		Version:          b.version,
		SupportedFormats: b.SupportedFormats(),
		ExtractionCount:  b.count.Load(),
	}
	if ns := b.last.Load(); ns > 0 {
		info.LastExtraction = time.Unix(0, ns)
	}
	return info
}

// Validate checks that path names a readable, non-empty regular file.
func (b *Base) Validate(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: file not found: %s", domain.ErrInvalidInput, path)
		}
		return fmt.Errorf("%w: stat %s: %v", domain.ErrInvalidInput, path, err)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("%w: not a regular file: %s", domain.ErrInvalidInput, path)
	}
	if fi.Size() == 0 {
		return fmt.Errorf("%w: file is empty: %s", domain.ErrInvalidInput, path)
	}
	return nil
}

// Run validates path, calls fn and converts its outcome into a result.
// Panics inside fn are recovered and reported as failures.
func (b *Base) Run(ctx context.Context, path string, fn ExtractFunc) (result domain.ExtractionResult) {
	b.count.Add(1)
	b.last.Store(time.Now().UnixNano())
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			result = b.Failure(fmt.Errorf("%w: panic in %s: %v", domain.ErrExtractionFailed, b.name, r))
		}
	}()

	if !b.Supports(filepath.Ext(path)) {
		return b.Failure(fmt.Errorf("%w: %s does not handle %q", domain.ErrBackendUnavailable, b.name, filepath.Ext(path)))
	}
	if err := b.Validate(path); err != nil {
		return b.Failure(err)
	}
	if err := ctx.Err(); err != nil {
		return b.Failure(err)
	}

	elements, err := fn(ctx, path)
	if err != nil {
		if !errors.Is(err, domain.ErrBackendUnavailable) && !errors.Is(err, domain.ErrInvalidInput) {
			err = fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
		}
		return b.Failure(err)
	}
	if len(elements) == 0 {
		return b.Failure(fmt.Errorf("%w: %s found no content", domain.ErrNoElements, b.name))
	}

	return domain.ExtractionResult{
		Success:   true,
		Extractor: b.name,
		Version:   b.version,
		Elements:  elements,
		Stats:     domain.ComputeStats(elements, time.Since(start)),
	}
}

// Stage writes blob to a temporary file named with ext, runs extract on it
// and removes the file on every exit path.
func (b *Base) Stage(
	ctx context.Context,
	blob []byte,
	ext string,
	extract func(ctx context.Context, path string) domain.ExtractionResult,
) (result domain.ExtractionResult) {
	ext = NormaliseExt(ext)
	if !b.Supports(ext) {
		return b.Failure(fmt.Errorf("%w: %s does not handle %q", domain.ErrBackendUnavailable, b.name, ext))
	}
	if len(blob) == 0 {
		return b.Failure(fmt.Errorf("%w: empty blob", domain.ErrInvalidInput))
	}

	f, err := os.CreateTemp("", "docstage-*"+ext)
	if err != nil {
		return b.Failure(fmt.Errorf("%w: create temp file: %w", domain.ErrExtractionFailed, err))
	}
	path := f.Name()
	defer os.Remove(path)

	defer func() {
		if r := recover(); r != nil {
			result = b.Failure(fmt.Errorf("%w: panic in %s: %v", domain.ErrExtractionFailed, b.name, r))
		}
	}()

	_, werr := f.Write(blob)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		return b.Failure(fmt.Errorf("%w: stage blob: %w", domain.ErrExtractionFailed, err))
	}

	return extract(ctx, path)
}

// Failure builds an unsuccessful result for this backend.
func (b *Base) Failure(err error) domain.ExtractionResult {
	return domain.ExtractionResult{
		Success:   false,
		Extractor: b.name,
		Version:   b.version,
		Error:     err.Error(),
	}
}
