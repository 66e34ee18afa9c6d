package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/khub-cli/internal/core/domain"
)

func embedPayload(indexes ...int) map[string]any {
	data := make([]map[string]any, 0, len(indexes))
	for _, i := range indexes {
		data = append(data, map[string]any{
			"embedding": []float64{float64(i), 0.5},
			"index":     i,
		})
	}
	return map[string]any{"data": data}
}

func TestEmbeddingService_EmbedBatchReordersByIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		// Out-of-order response data still lands at the right inputs.
		json.NewEncoder(w).Encode(embedPayload(1, 0))
	}))
	defer server.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "test-key", BaseURL: server.URL, Dimensions: 2})
	require.NoError(t, err)

	embeddings, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, embeddings, 2)
	assert.Equal(t, []float32{0, 0.5}, embeddings[0])
	assert.Equal(t, []float32{1, 0.5}, embeddings[1])
}

func TestEmbeddingService_EmbedBatchSubBatches(t *testing.T) {
	var batchSizes []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		batchSizes = append(batchSizes, len(req.Input))

		indexes := make([]int, len(req.Input))
		for i := range indexes {
			indexes[i] = i
		}
		json.NewEncoder(w).Encode(embedPayload(indexes...))
	}))
	defer server.Close()

	svc, err := NewEmbeddingService(Config{
		APIKey: "test-key", BaseURL: server.URL, Dimensions: 2, BatchSize: 2,
	})
	require.NoError(t, err)

	embeddings, err := svc.EmbedBatch(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	assert.Len(t, embeddings, 5)
	assert.Equal(t, []int{2, 2, 1}, batchSizes)
}

func TestEmbeddingService_MissingEmbeddingFailsAligned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Only one of two inputs comes back.
		json.NewEncoder(w).Encode(embedPayload(0))
	}))
	defer server.Close()

	svc, err := NewEmbeddingService(Config{APIKey: "test-key", BaseURL: server.URL, Dimensions: 2})
	require.NoError(t, err)

	_, err = svc.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)

	var batchErr *domain.EmbeddingBatchError
	require.True(t, errors.As(err, &batchErr))
	assert.Equal(t, 1, batchErr.Index)
}

func TestEmbeddingService_RequiresAPIKey(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.Error(t, err)
}
