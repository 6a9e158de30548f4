package services

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/custodia-labs/docstage/internal/core/domain"
)

// candidate is a file found by a scan. Reason is set when the file must
// be rejected before anything is stored.
type candidate struct {
	Path   string
	Size   int64
	Reason error
}

// fileRules decides which files may enter the pipeline.
type fileRules struct {
	// allowed is lower-case with dot. Empty allows everything.
	allowed []string
	maxSize int64
}

// check validates a single regular file. Errors wrap ErrInvalidInput.
func (r fileRules) check(path string, info fs.FileInfo) error {
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: not a regular file: %s", domain.ErrInvalidInput, path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: file is empty: %s", domain.ErrInvalidInput, path)
	}
	if r.maxSize > 0 && info.Size() > r.maxSize {
		return fmt.Errorf("%w: %s is %s, limit is %s",
			domain.ErrInvalidInput, path, FormatSize(info.Size()), FormatSize(r.maxSize))
	}
	ext := strings.ToLower(filepath.Ext(path))
	if len(r.allowed) > 0 && !slices.Contains(r.allowed, ext) {
		if ext == "" {
			ext = "(none)"
		}
		return fmt.Errorf("%w: extension %s not in allowed list %v", domain.ErrInvalidInput, ext, r.allowed)
	}
	return nil
}

// validate stats path and applies check.
func (r fileRules) validate(path string) (fs.FileInfo, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: path does not exist: %s", domain.ErrInvalidInput, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return info, r.check(path, info)
}

// scan returns candidates for root. A file yields itself; a directory is
// walked recursively in lexical order. Hidden files and directories are
// skipped. Unreadable directories become rejected candidates.
func (r fileRules) scan(root string) ([]candidate, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: path does not exist: %s", domain.ErrInvalidInput, root)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if !info.IsDir() {
		return []candidate{{Path: root, Size: info.Size(), Reason: r.check(root, info)}}, nil
	}

	var found []candidate
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			found = append(found, candidate{Path: path, Reason: fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			found = append(found, candidate{Path: path, Reason: fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)})
			return nil
		}
		found = append(found, candidate{Path: path, Size: info.Size(), Reason: r.check(path, info)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return found, nil
}

// FormatSize renders a byte count as B, KB, MB, GB or TB with two decimals.
func FormatSize(n int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(n)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", n)
	}
	return fmt.Sprintf("%.2f %s", size, units[i])
}
