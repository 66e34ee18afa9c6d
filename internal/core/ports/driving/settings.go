package driving

import "github.com/custodia-labs/khub-cli/internal/core/domain"

// SettingsService manages application settings with validation.
type SettingsService interface {
	// Get returns the current effective settings.
	Get() (domain.Settings, error)

	// Save validates and persists new settings.
	Save(settings domain.Settings) error
}
