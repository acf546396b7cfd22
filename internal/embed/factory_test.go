package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
)

func TestNewFactory_StaticWrappedWithCache(t *testing.T) {
	f, err := NewFactory(Settings{Provider: ProviderStatic})
	require.NoError(t, err)

	e, err := f(context.Background())
	require.NoError(t, err)

	_, ok := e.(*CachedEmbedder)
	assert.True(t, ok, "static model should be cached by default")
	assert.Equal(t, DefaultDimensions, e.Dimensions())
}

func TestNewFactory_CacheDisabled(t *testing.T) {
	f, err := NewFactory(Settings{Provider: "STATIC", Dimensions: 64, DisableCache: true})
	require.NoError(t, err)

	e, err := f(context.Background())
	require.NoError(t, err)

	_, ok := e.(*StaticEmbedder)
	assert.True(t, ok)
	assert.Equal(t, 64, e.Dimensions())
}

func TestNewFactory_UnknownProvider(t *testing.T) {
	_, err := NewFactory(Settings{Provider: "word2vec"})
	assert.Error(t, err)
}

func TestNewFactory_OpenAIRequiresModel(t *testing.T) {
	f, err := NewFactory(Settings{Provider: ProviderOpenAI, BaseURL: "http://localhost:1"})
	require.NoError(t, err)

	_, err = f(context.Background())
	assert.Error(t, err)
}

// fakeEmbeddingServer answers OpenAI-style /embeddings requests with vectors
// of the given dimension whose first component encodes the input index.
func fakeEmbeddingServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		type item struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]item, len(req.Input))
		for i := range req.Input {
			vec := make([]float32, dims)
			vec[0] = float32(i + 1)
			vec[1] = 1
			data[i] = item{Object: "embedding", Index: i, Embedding: vec}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   data,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
}

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	// Given: an OpenAI-compatible server
	srv := fakeEmbeddingServer(t, 8)
	defer srv.Close()

	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test", BaseURL: srv.URL, Model: "all-minilm", Dimensions: 8})
	require.NoError(t, err)

	// When: embedding a batch
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b"})

	// Then: vectors come back in input order, normalized
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.InDelta(t, 1.0, vectorMagnitude(vecs[0]), 1e-5)
	assert.Greater(t, vecs[1][0], vecs[0][0])
	assert.Equal(t, "all-minilm", e.ModelName())
}

func TestOpenAIEmbedder_DimensionMismatch(t *testing.T) {
	srv := fakeEmbeddingServer(t, 4)
	defer srv.Close()

	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test", BaseURL: srv.URL, Model: "m", Dimensions: 8})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "a")
	assert.Error(t, err)
}

func fastRetry() *docerrors.RetryConfig {
	return &docerrors.RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func statusServer(t *testing.T, status int, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream says no"}}`))
	}))
}

func TestOpenAIEmbedder_ServerErrorIsRetried(t *testing.T) {
	var hits atomic.Int64
	srv := statusServer(t, http.StatusServiceUnavailable, &hits)
	defer srv.Close()

	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test", BaseURL: srv.URL, Model: "m", Dimensions: 8, Retry: fastRetry()})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "a")
	assert.Error(t, err)
	assert.Equal(t, int64(3), hits.Load())
}

func TestOpenAIEmbedder_ClientErrorNotRetried(t *testing.T) {
	var hits atomic.Int64
	srv := statusServer(t, http.StatusUnauthorized, &hits)
	defer srv.Close()

	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test", BaseURL: srv.URL, Model: "m", Dimensions: 8, Retry: fastRetry()})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "a")
	assert.Error(t, err)
	assert.Equal(t, int64(1), hits.Load())
}

func TestOpenAIEmbedder_BreakerStopsCalls(t *testing.T) {
	var hits atomic.Int64
	srv := statusServer(t, http.StatusBadGateway, &hits)
	defer srv.Close()

	breaker := docerrors.NewCircuitBreaker("test", docerrors.WithMaxFailures(2), docerrors.WithResetTimeout(time.Hour))
	noRetry := &docerrors.RetryConfig{}
	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test", BaseURL: srv.URL, Model: "m", Dimensions: 8, Retry: noRetry, Breaker: breaker})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = e.Embed(context.Background(), "a")
		require.Error(t, err)
	}
	_, err = e.Embed(context.Background(), "a")

	assert.ErrorIs(t, err, docerrors.ErrCircuitOpen)
	assert.Equal(t, int64(2), hits.Load())
}
