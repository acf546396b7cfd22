package embed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	openai "github.com/sashabaranov/go-openai"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
)

// OpenAIConfig configures an OpenAI-compatible embedding endpoint
// (OpenAI, Ollama's /v1 API, vLLM, text-embeddings-inference, ...).
type OpenAIConfig struct {
	// APIKey for the endpoint. Falls back to OPENAI_API_KEY when empty.
	APIKey string
	// BaseURL overrides the API base URL (e.g. http://localhost:11434/v1).
	BaseURL string
	// Model is the embedding model name (e.g. "all-minilm").
	Model string
	// Dimensions is the expected vector size; requested from the API when > 0.
	Dimensions int
	// Retry enables backoff on transient HTTP failures. Nil means one attempt.
	Retry *docerrors.RetryConfig
	// Breaker guards the endpoint; one is created when nil.
	Breaker *docerrors.CircuitBreaker
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings API.
type OpenAIEmbedder struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	dims    int
	retry   docerrors.RetryConfig
	breaker *docerrors.CircuitBreaker
}

// NewOpenAIEmbedder creates an embedder for an OpenAI-compatible endpoint.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.Model == "" {
		return nil, errors.New("openai embedder: model is required")
	}
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" && cfg.BaseURL == "" {
		return nil, errors.New("openai embedder: OPENAI_API_KEY not set")
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}

	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	var retry docerrors.RetryConfig
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}
	retry.Retryable = isTransient
	breaker := cfg.Breaker
	if breaker == nil {
		breaker = docerrors.NewCircuitBreaker("embeddings:" + cfg.Model)
	}

	return &OpenAIEmbedder{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   openai.EmbeddingModel(cfg.Model),
		dims:    cfg.Dimensions,
		retry:   retry,
		breaker: breaker,
	}, nil
}

// isTransient reports whether a failed request may succeed if repeated.
// Client errors other than rate limiting are permanent.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == http.StatusTooManyRequests {
		return true
	}
	return status < 400 || status >= 500
}

// Embed generates embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one request.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if len(texts) > MaxBatchSize {
		return nil, fmt.Errorf("batch of %d exceeds max batch size %d", len(texts), MaxBatchSize)
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		Dimensions:     e.dims,
	}
	resp, err := docerrors.CircuitDo(e.breaker, func() (openai.EmbeddingResponse, error) {
		return docerrors.Retry(ctx, e.retry, func(ctx context.Context) (openai.EmbeddingResponse, error) {
			return e.client.CreateEmbeddings(ctx, req)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings request: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings response has %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	results := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embeddings response index %d out of range", d.Index)
		}
		if len(d.Embedding) != e.dims {
			return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(d.Embedding), e.dims)
		}
		vec := make([]float32, len(d.Embedding))
		for i, x := range d.Embedding {
			vec[i] = float32(x)
		}
		results[d.Index] = normalizeVector(vec)
	}
	return results, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dims
}

// ModelName returns the model identifier.
func (e *OpenAIEmbedder) ModelName() string {
	return string(e.model)
}

// Close releases resources (no-op, the HTTP client is shared).
func (e *OpenAIEmbedder) Close() error {
	return nil
}
