package driven

import "github.com/custodia-labs/khub-cli/internal/core/domain"

// SettingsStore persists application settings.
type SettingsStore interface {
	// Load returns the stored settings with defaults applied.
	Load() (domain.Settings, error)

	// Save persists the settings.
	Save(settings domain.Settings) error
}
