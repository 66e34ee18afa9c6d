package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
)

// Ensure Chain implements the interface.
var _ driven.LLMService = (*Chain)(nil)

// Chain is an answer-generation service that tries its candidates in
// order until one succeeds. Selection happens per call, so a provider
// that comes online mid-session is picked up without a restart.
type Chain struct {
	services []driven.LLMService

	mu     sync.Mutex
	active driven.LLMService
}

// NewChain creates a fallback chain over the given services.
func NewChain(services ...driven.LLMService) *Chain {
	return &Chain{services: services}
}

// GenerateAnswer asks the first reachable candidate; on failure it
// moves down the chain. The call fails only when every candidate does.
func (c *Chain) GenerateAnswer(ctx context.Context, question string, passages []driven.ContextPassage) (string, error) {
	var failures []error

	for _, svc := range c.services {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := svc.Ping(pingCtx)
		cancel()
		if err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", svc.ModelName(), err))
			continue
		}

		answer, err := svc.GenerateAnswer(ctx, question, passages)
		if err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", svc.ModelName(), err))
			continue
		}

		c.mu.Lock()
		c.active = svc
		c.mu.Unlock()
		return answer, nil
	}

	return "", fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, errors.Join(failures...))
}

// ModelName reports the model that served the last successful call, or
// the first candidate's model before any call succeeds.
func (c *Chain) ModelName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		return c.active.ModelName()
	}
	if len(c.services) > 0 {
		return c.services[0].ModelName()
	}
	return ""
}

// Ping succeeds when any candidate is reachable.
func (c *Chain) Ping(ctx context.Context) error {
	var failures []error
	for _, svc := range c.services {
		err := svc.Ping(ctx)
		if err == nil {
			return nil
		}
		failures = append(failures, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, errors.Join(failures...))
}

// Close releases every candidate.
func (c *Chain) Close() error {
	var errs []error
	for _, svc := range c.services {
		if err := svc.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
