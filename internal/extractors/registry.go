package extractors

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/custodia-labs/docstage/internal/core/domain"
	"github.com/custodia-labs/docstage/internal/core/ports/driven"
	"github.com/custodia-labs/docstage/internal/extractors/base"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry maps backend names to extractors.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]driven.Extractor
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]driven.Extractor),
	}
}

// Register adds an extractor, replacing any with the same name.
func (r *Registry) Register(extractor driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := extractor.Name()
	if _, ok := r.byName[name]; !ok {
		r.order = append(r.order, name)
	}
	r.byName[name] = extractor
}

// Get returns an extractor by name.
func (r *Registry) Get(name string) (driven.Extractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown extractor %q", domain.ErrUnsupportedType, name)
	}
	return e, nil
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Select returns extractors for names in the given order.
// Duplicate names are returned once.
func (r *Registry) Select(names []string) ([]driven.Extractor, error) {
	out := make([]driven.Extractor, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		e, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// ForFormat returns the extractors supporting ext, in registration order.
func (r *Registry) ForFormat(ext string) []driven.Extractor {
	ext = base.NormaliseExt(ext)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []driven.Extractor
	for _, name := range r.order {
		e := r.byName[name]
		if slices.Contains(e.SupportedFormats(), ext) {
			out = append(out, e)
		}
	}
	return out
}

// SupportedFormats returns the sorted union of all supported extensions.
func (r *Registry) SupportedFormats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, e := range r.byName {
		for _, f := range e.SupportedFormats() {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Infos returns info for every extractor in registration order.
func (r *Registry) Infos() []domain.ExtractorInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ExtractorInfo, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name].Info())
	}
	return out
}
