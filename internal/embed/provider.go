package embed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/metrics"
)

// Factory constructs the underlying embedding model. It is invoked at most
// once per Provider.
type Factory func(ctx context.Context) (Embedder, error)

// Provider is the embedding service used by indexing and search. The model
// behind it is expensive to build, so it is constructed lazily on the first
// Embed or WarmUp call and exactly once: concurrent first callers wait for the
// single in-flight initialisation. A failed initialisation is cached and
// returned on every later call until the process restarts.
type Provider struct {
	factory Factory
	dims    int
	logger  *slog.Logger

	once    sync.Once
	done    atomic.Bool
	model   Embedder
	initErr error
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithProviderLogger sets the logger used for lifecycle events.
func WithProviderLogger(l *slog.Logger) ProviderOption {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProvider creates a provider that will build its model with factory.
// dims is the dimension every returned vector must have.
func NewProvider(factory Factory, dims int, opts ...ProviderOption) *Provider {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	p := &Provider{
		factory: factory,
		dims:    dims,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// init builds the model exactly once. The build runs detached from the
// caller's cancellation so one impatient caller cannot poison the cache.
func (p *Provider) init(ctx context.Context) (Embedder, error) {
	p.once.Do(func() {
		defer p.done.Store(true)
		start := time.Now()
		model, err := p.build(context.WithoutCancel(ctx))
		switch {
		case err != nil:
			p.initErr = docerrors.New(docerrors.ErrCodeProviderInit, "initialise embedding model", err)
		case model == nil:
			p.initErr = docerrors.New(docerrors.ErrCodeProviderInit, "initialise embedding model: factory returned nil", nil)
		case model.Dimensions() != p.dims:
			p.initErr = docerrors.New(docerrors.ErrCodeProviderInit,
				fmt.Sprintf("embedding model %s has %d dimensions, expected %d", model.ModelName(), model.Dimensions(), p.dims), nil)
			_ = model.Close()
		default:
			p.model = model
		}

		if p.initErr != nil {
			p.logger.Error("embedding model initialisation failed",
				slog.String("error", p.initErr.Error()))
			return
		}
		p.logger.Info("embedding model ready",
			slog.String("model", model.ModelName()),
			slog.Int("dimensions", model.Dimensions()),
			slog.Duration("took", time.Since(start)))
	})
	return p.model, p.initErr
}

// build runs the factory, turning a panic into an error so the failure is
// cached like any other.
func (p *Provider) build(ctx context.Context) (model Embedder, err error) {
	defer func() {
		if r := recover(); r != nil {
			model, err = nil, fmt.Errorf("factory panicked: %v", r)
		}
	}()
	return p.factory(ctx)
}

// WarmUp triggers model initialisation outside the request path.
func (p *Provider) WarmUp(ctx context.Context) error {
	_, err := p.init(ctx)
	return err
}

// Ready reports whether the model has been initialised successfully.
func (p *Provider) Ready() bool {
	return p.done.Load() && p.initErr == nil
}

// Initialized reports whether initialisation has completed (successfully or not).
func (p *Provider) Initialized() bool {
	return p.done.Load()
}

// Embed returns the D-dimensional embedding of text.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	model, err := p.init(ctx)
	if err != nil {
		return nil, err
	}

	vec, err := model.Embed(ctx, text)
	metrics.EmbeddingRequestsTotal.WithLabelValues(model.ModelName(), metrics.Status(err)).Inc()
	if err != nil {
		return nil, docerrors.ProviderError("compute embedding", err)
	}
	if len(vec) != p.dims {
		return nil, docerrors.ProviderError(
			fmt.Sprintf("embedding has %d dimensions, expected %d", len(vec), p.dims), nil)
	}
	return vec, nil
}

// EmbedBatch returns embeddings for several texts.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	model, err := p.init(ctx)
	if err != nil {
		return nil, err
	}

	vecs, err := model.EmbedBatch(ctx, texts)
	metrics.EmbeddingRequestsTotal.WithLabelValues(model.ModelName(), metrics.Status(err)).Inc()
	if err != nil {
		return nil, docerrors.ProviderError("compute embeddings", err)
	}
	return vecs, nil
}

// Dimensions returns the configured embedding dimension.
func (p *Provider) Dimensions() int {
	return p.dims
}

// ModelName returns the model identifier, or "uninitialized" before WarmUp.
func (p *Provider) ModelName() string {
	if !p.Ready() {
		return "uninitialized"
	}
	return p.model.ModelName()
}

// Close releases the model if it was built.
func (p *Provider) Close() error {
	if p.Ready() {
		return p.model.Close()
	}
	return nil
}

var _ Embedder = (*Provider)(nil)

// Process-wide provider.
var (
	defaultMu       sync.Mutex
	defaultProvider *Provider
)

// InitDefault installs the process-wide provider. Only the first call has an
// effect; later calls return the already installed provider.
func InitDefault(factory Factory, dims int, opts ...ProviderOption) *Provider {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultProvider == nil {
		defaultProvider = NewProvider(factory, dims, opts...)
	}
	return defaultProvider
}

// Default returns the process-wide provider, installing one backed by the
// static model if InitDefault was never called.
func Default() *Provider {
	return InitDefault(StaticFactory(DefaultDimensions), DefaultDimensions)
}
