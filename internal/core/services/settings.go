package services

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/docstage/internal/core/domain"
	"github.com/custodia-labs/docstage/internal/core/ports/driven"
	"github.com/custodia-labs/docstage/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	KeyDataDir           = "data_dir"
	KeyChunkTargetSize   = "chunk.target_size"
	KeyChunkOverlap      = "chunk.overlap"
	KeyExtractors        = "extractors"
	KeyAllowedExtensions = "ingest.allowed_extensions"
	KeyMaxFileSizeMB     = "ingest.max_file_size_mb"
	KeyWorkers           = "ingest.workers"
	KeyVLMBaseURL        = "vlm.base_url"
	KeyVLMModel          = "vlm.model"
	KeyVLMTimeout        = "vlm.timeout_seconds"
	KeyVLMRate           = "vlm.requests_per_second"
)

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
	kindList
	kindURL
)

// knownKeys lists every settable key with its value type.
var knownKeys = map[string]keyKind{
	KeyDataDir:           kindString,
	KeyChunkTargetSize:   kindInt,
	KeyChunkOverlap:      kindInt,
	KeyExtractors:        kindList,
	KeyAllowedExtensions: kindList,
	KeyMaxFileSizeMB:     kindInt,
	KeyWorkers:           kindInt,
	KeyVLMBaseURL:        kindURL,
	KeyVLMModel:          kindString,
	KeyVLMTimeout:        kindInt,
	KeyVLMRate:           kindFloat,
}

// KnownKeys returns every settable key in sorted order.
func KnownKeys() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SettingsService reads and writes typed settings through a ConfigStore.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Defaults returns the built-in settings.
func (s *SettingsService) Defaults() domain.Settings {
	return domain.DefaultSettings()
}

// Get returns settings with defaults applied for unset keys.
func (s *SettingsService) Get() (*domain.Settings, error) {
	settings := LoadSettings(s.configStore)
	if err := validateSettings(settings); err != nil {
		return nil, fmt.Errorf("%s: %w", s.configStore.Path(), err)
	}
	return &settings, nil
}

// Set parses value for key, validates the result and persists it.
// Lists are comma separated.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := knownKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown key %q (known: %s)", domain.ErrInvalidInput, key, strings.Join(KnownKeys(), ", "))
	}

	parsed, err := parseValue(kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}
	if key == KeyAllowedExtensions {
		parsed = normaliseExtensions(parsed.([]string))
	}

	// Validate the settings as they would be after the write.
	current := LoadSettings(s.configStore)
	apply(&current, key, parsed)
	if err := validateSettings(current); err != nil {
		return err
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// LoadSettings builds typed settings from store, falling back to defaults
// for unset or zero values.
func LoadSettings(store driven.ConfigStore) domain.Settings {
	settings := domain.DefaultSettings()
	for _, key := range store.Keys() {
		kind, ok := knownKeys[key]
		if !ok {
			continue
		}
		var v any
		switch kind {
		case kindInt:
			n := store.GetInt(key)
			if n == 0 && key != KeyChunkOverlap && key != KeyMaxFileSizeMB {
				continue
			}
			v = n
		case kindFloat:
			f := store.GetFloat(key)
			if f == 0 {
				continue
			}
			v = f
		case kindList:
			list := store.GetStringSlice(key)
			if list == nil {
				continue
			}
			v = list
		default:
			str := store.GetString(key)
			if str == "" {
				continue
			}
			v = str
		}
		apply(&settings, key, v)
	}
	settings.Ingest.AllowedExtensions = normaliseExtensions(settings.Ingest.AllowedExtensions)
	return settings
}

func apply(settings *domain.Settings, key string, v any) {
	switch key {
	case KeyDataDir:
		settings.DataDir = v.(string)
	case KeyChunkTargetSize:
		settings.Chunk.TargetSize = v.(int)
	case KeyChunkOverlap:
		settings.Chunk.Overlap = v.(int)
	case KeyExtractors:
		settings.Extractors = v.([]string)
	case KeyAllowedExtensions:
		settings.Ingest.AllowedExtensions = v.([]string)
	case KeyMaxFileSizeMB:
		settings.Ingest.MaxFileSizeMB = v.(int)
	case KeyWorkers:
		settings.Ingest.Workers = v.(int)
	case KeyVLMBaseURL:
		settings.VLM.BaseURL = v.(string)
	case KeyVLMModel:
		settings.VLM.Model = v.(string)
	case KeyVLMTimeout:
		settings.VLM.TimeoutSeconds = v.(int)
	case KeyVLMRate:
		settings.VLM.RequestsPerSecond = v.(float64)
	}
}

func parseValue(kind keyKind, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", value)
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", value)
		}
		return f, nil
	case kindList:
		list := []string{}
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				list = append(list, item)
			}
		}
		return list, nil
	case kindURL:
		u, err := url.Parse(value)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("not an absolute URL: %q", value)
		}
		return strings.TrimRight(value, "/"), nil
	default:
		if value == "" {
			return nil, fmt.Errorf("empty value")
		}
		return value, nil
	}
}

func normaliseExtensions(exts []string) []string {
	if exts == nil {
		return nil
	}
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

func validateSettings(s domain.Settings) error {
	switch {
	case s.Chunk.TargetSize <= 0:
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, KeyChunkTargetSize)
	case s.Chunk.Overlap < 0:
		return fmt.Errorf("%w: %s must not be negative", domain.ErrInvalidInput, KeyChunkOverlap)
	case s.Chunk.Overlap >= s.Chunk.TargetSize:
		return fmt.Errorf("%w: %s (%d) must be smaller than %s (%d)", domain.ErrInvalidInput,
			KeyChunkOverlap, s.Chunk.Overlap, KeyChunkTargetSize, s.Chunk.TargetSize)
	case len(s.Extractors) == 0:
		return fmt.Errorf("%w: %s must name at least one backend", domain.ErrInvalidInput, KeyExtractors)
	case s.Ingest.MaxFileSizeMB < 0:
		return fmt.Errorf("%w: %s must not be negative", domain.ErrInvalidInput, KeyMaxFileSizeMB)
	case s.Ingest.Workers < 1:
		return fmt.Errorf("%w: %s must be at least 1", domain.ErrInvalidInput, KeyWorkers)
	case s.VLM.TimeoutSeconds <= 0:
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, KeyVLMTimeout)
	case s.VLM.RequestsPerSecond <= 0:
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, KeyVLMRate)
	}
	return nil
}
