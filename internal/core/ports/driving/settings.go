package driving

import "github.com/custodia-labs/docstage/internal/core/domain"

// SettingsService exposes typed configuration.
type SettingsService interface {
	// Get returns settings with defaults applied for unset keys.
	Get() (*domain.Settings, error)

	// Set validates and stores a single key.
	Set(key, value string) error

	// Defaults returns the built-in settings.
	Defaults() domain.Settings
}
