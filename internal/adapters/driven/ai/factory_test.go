package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
	"github.com/custodia-labs/khub-cli/internal/core/ports/driven"
)

func TestCreateEmbeddingService(t *testing.T) {
	svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{})
	require.NoError(t, err)
	assert.Nil(t, svc)

	svc, err = CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider: ProviderOllama, Model: "nomic-embed-text", Dimensions: 768,
	})
	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.Equal(t, 768, svc.Dimensions())

	_, err = CreateEmbeddingService(&domain.EmbeddingSettings{Provider: ProviderClaude})
	assert.Error(t, err)

	_, err = CreateEmbeddingService(&domain.EmbeddingSettings{Provider: "bogus"})
	assert.Error(t, err)
}

func TestCreateLLMService(t *testing.T) {
	svc, err := CreateLLMService(&domain.LLMSettings{})
	require.NoError(t, err)
	assert.Nil(t, svc)

	svc, err = CreateLLMService(&domain.LLMSettings{Provider: ProviderOllama, Model: "llama3"})
	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.Equal(t, "llama3", svc.ModelName())

	_, err = CreateLLMService(&domain.LLMSettings{Provider: ProviderClaude})
	assert.Error(t, err, "claude without an API key must fail")

	svc, err = CreateLLMService(&domain.LLMSettings{Provider: ProviderAuto, Model: "llama3"})
	require.NoError(t, err)
	_, ok := svc.(*Chain)
	assert.True(t, ok, "auto provider should build a fallback chain")
}

// stubLLM is a scriptable LLM double for chain tests.
type stubLLM struct {
	name    string
	pingErr error
	answer  string
	genErr  error
	closed  bool
}

func (s *stubLLM) GenerateAnswer(context.Context, string, []driven.ContextPassage) (string, error) {
	return s.answer, s.genErr
}
func (s *stubLLM) ModelName() string { return s.name }

func (s *stubLLM) Ping(context.Context) error { return s.pingErr }

func (s *stubLLM) Close() error { s.closed = true; return nil }

func TestChain_FallsBackOnPingFailure(t *testing.T) {
	down := &stubLLM{name: "down", pingErr: errors.New("unreachable")}
	up := &stubLLM{name: "up", answer: "hello"}
	chain := NewChain(down, up)

	answer, err := chain.GenerateAnswer(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", answer)
	assert.Equal(t, "up", chain.ModelName())
}

func TestChain_FallsBackOnGenerateFailure(t *testing.T) {
	flaky := &stubLLM{name: "flaky", genErr: errors.New("overloaded")}
	up := &stubLLM{name: "up", answer: "ok"}
	chain := NewChain(flaky, up)

	answer, err := chain.GenerateAnswer(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
}

func TestChain_AllCandidatesFail(t *testing.T) {
	a := &stubLLM{name: "a", pingErr: errors.New("down")}
	b := &stubLLM{name: "b", pingErr: errors.New("down")}
	chain := NewChain(a, b)

	_, err := chain.GenerateAnswer(context.Background(), "q", nil)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestChain_CloseClosesAll(t *testing.T) {
	a := &stubLLM{name: "a"}
	b := &stubLLM{name: "b"}
	chain := NewChain(a, b)

	require.NoError(t, chain.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
