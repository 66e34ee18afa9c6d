package services

import (
	"fmt"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Providers accepted by validation.
var (
	validEmbeddingProviders = map[string]bool{"ollama": true, "openai": true}
	validLLMProviders       = map[string]bool{"auto": true, "ollama": true, "claude": true, "openai": true}
)

// SettingsService loads and saves application settings with
// validation on top of the raw store.
type SettingsService struct {
	store driven.SettingsStore
}

// NewSettingsService creates the settings service.
func NewSettingsService(store driven.SettingsStore) *SettingsService {
	return &SettingsService{store: store}
}

// Get returns the current effective settings.
func (s *SettingsService) Get() (domain.Settings, error) {
	return s.store.Load()
}

// Save validates and persists new settings.
func (s *SettingsService) Save(settings domain.Settings) error {
	settings.Normalise()
	if err := validateSettings(&settings); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return s.store.Save(settings)
}

func validateSettings(s *domain.Settings) error {
	if s.ChunkOverlap >= s.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", s.ChunkOverlap, s.ChunkSize)
	}
	if s.ScoreThreshold < 0 || s.ScoreThreshold > 1 {
		return fmt.Errorf("score_threshold must be within [0, 1], got %g", s.ScoreThreshold)
	}
	if s.Embedding.IsConfigured() {
		if !validEmbeddingProviders[s.Embedding.Provider] {
			return fmt.Errorf("unknown embedding provider %q", s.Embedding.Provider)
		}
		if s.Embedding.Dimensions <= 0 {
			return fmt.Errorf("embedding dimensions must be positive, got %d", s.Embedding.Dimensions)
		}
	}
	if s.LLM.IsConfigured() && !validLLMProviders[s.LLM.Provider] {
		return fmt.Errorf("unknown llm provider %q", s.LLM.Provider)
	}
	return nil
}
