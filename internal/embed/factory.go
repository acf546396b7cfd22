package embed

import (
	"context"
	"fmt"
	"strings"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
)

// ProviderType selects the embedding backend.
type ProviderType string

const (
	// ProviderStatic uses the built-in mean-pooled static model (no network).
	ProviderStatic ProviderType = "static"

	// ProviderOpenAI uses an OpenAI-compatible embeddings endpoint.
	ProviderOpenAI ProviderType = "openai"
)

// Settings describe how to build the embedding model.
type Settings struct {
	Provider   ProviderType
	Model      string
	BaseURL    string
	APIKey     string
	Dimensions int
	CacheSize  int
	// MaxRetries retries transient remote failures with backoff. Zero disables.
	MaxRetries int
	// DisableCache turns off the LRU cache wrapper.
	DisableCache bool
}

// StaticFactory returns a factory for the static model.
func StaticFactory(dims int) Factory {
	return func(context.Context) (Embedder, error) {
		return NewStaticEmbedder(dims), nil
	}
}

// NewFactory returns a factory that builds the model described by s,
// wrapped with an LRU cache unless disabled.
func NewFactory(s Settings) (Factory, error) {
	if s.Dimensions <= 0 {
		s.Dimensions = DefaultDimensions
	}

	var base Factory
	switch ProviderType(strings.ToLower(string(s.Provider))) {
	case "", ProviderStatic:
		base = StaticFactory(s.Dimensions)
	case ProviderOpenAI:
		var retry *docerrors.RetryConfig
		if s.MaxRetries > 0 {
			cfg := docerrors.DefaultRetryConfig()
			cfg.MaxRetries = s.MaxRetries
			retry = &cfg
		}
		base = func(context.Context) (Embedder, error) {
			return NewOpenAIEmbedder(OpenAIConfig{
				APIKey:     s.APIKey,
				BaseURL:    s.BaseURL,
				Model:      s.Model,
				Dimensions: s.Dimensions,
				Retry:      retry,
			})
		}
	default:
		return nil, fmt.Errorf("unknown embedding provider %q (want %q or %q)", s.Provider, ProviderStatic, ProviderOpenAI)
	}

	if s.DisableCache {
		return base, nil
	}
	return func(ctx context.Context) (Embedder, error) {
		e, err := base(ctx)
		if err != nil {
			return nil, err
		}
		return NewCachedEmbedder(e, s.CacheSize), nil
	}, nil
}
