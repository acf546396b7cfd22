package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Aman-CERP/docsearch/internal/embed"
	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/metrics"
	"github.com/Aman-CERP/docsearch/internal/store"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("required dependency is nil")

// Engine is the end-to-end search entry point:
// retrieve -> hydrate -> rank -> truncate.
type Engine struct {
	index     store.IndexStore
	documents store.DocumentStore
	embedder  embed.Embedder
	retriever *Retriever
	config    RankerConfig
	logger    *slog.Logger
	now       func() time.Time

	retrieverOpts []RetrieverOption
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEmbedder sets the embedder used when Search is called without an
// embedding. Defaults to the process-wide provider.
func WithEmbedder(e embed.Embedder) EngineOption {
	return func(eng *Engine) {
		if e != nil {
			eng.embedder = e
		}
	}
}

// WithRankerConfig sets the default ranking configuration.
func WithRankerConfig(cfg RankerConfig) EngineOption {
	return func(e *Engine) {
		e.config = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
			e.retrieverOpts = append(e.retrieverOpts, WithRetrieverLogger(l))
		}
	}
}

// WithClock sets the time source used for recency boosting.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRetrieverOptions passes options to the engine's retriever.
func WithRetrieverOptions(opts ...RetrieverOption) EngineOption {
	return func(e *Engine) {
		e.retrieverOpts = append(e.retrieverOpts, opts...)
	}
}

// NewEngine creates a search engine over an index store and document store.
func NewEngine(index store.IndexStore, documents store.DocumentStore, opts ...EngineOption) (*Engine, error) {
	if index == nil {
		return nil, fmt.Errorf("%w: index store is required", ErrNilDependency)
	}
	if documents == nil {
		return nil, fmt.Errorf("%w: document store is required", ErrNilDependency)
	}

	e := &Engine{
		index:     index,
		documents: documents,
		config:    DefaultRankerConfig(),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.embedder == nil {
		e.embedder = embed.Default()
	}
	if err := e.config.Validate(); err != nil {
		return nil, err
	}
	e.retriever = NewRetriever(index, e.retrieverOpts...)
	return e, nil
}

// Config returns the engine's default ranking configuration.
func (e *Engine) Config() RankerConfig {
	return e.config
}

// Search returns ranked results for query. When embedding is nil the query
// embedding is computed by the engine's embedder. An empty candidate set
// yields an empty, non-nil result slice.
func (e *Engine) Search(ctx context.Context, query string, embedding []float32, opts SearchOptions) (results []*RankedResult, err error) {
	start := time.Now()
	defer func() {
		metrics.SearchDuration.WithLabelValues(metrics.Status(err)).Observe(time.Since(start).Seconds())
	}()

	opts = e.applyDefaults(opts)
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	if embedding == nil {
		embedding, err = e.embedder.Embed(ctx, query)
		if err != nil {
			return nil, err
		}
	}

	candidates, err := e.retriever.Retrieve(ctx, query, embedding)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		e.logSearch(query, 0, 0, start)
		return []*RankedResult{}, nil
	}

	documents, err := e.hydrate(ctx, candidates)
	if err != nil {
		return nil, err
	}

	results = Rank(candidates, documents, *opts.Config, e.now())
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	if opts.TitleMatchFirst {
		results = SortByTitleMatchFirst(results, query)
	}
	if !opts.IncludeDetails {
		for _, r := range results {
			r.MethodScores = MethodScores{}
			r.Boosts = Boosts{}
		}
	}

	e.logSearch(query, len(candidates), len(results), start)
	return results, nil
}

// RetrieveCandidates exposes the raw candidate set for diagnostics.
func (e *Engine) RetrieveCandidates(ctx context.Context, query string, embedding []float32) ([]CandidateRank, error) {
	return e.retriever.Retrieve(ctx, query, embedding)
}

// hydrate loads candidate documents and fills in view counts.
func (e *Engine) hydrate(ctx context.Context, candidates []CandidateRank) (map[string]*store.Document, error) {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.DocumentID
	}

	documents, err := e.documents.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	views, err := e.index.ViewCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		candidates[i].ViewCount = views[candidates[i].DocumentID]
	}

	if missing := len(candidates) - len(documents); missing > 0 {
		e.logger.Debug("candidates without documents skipped",
			slog.Int("count", missing))
	}
	return documents, nil
}

func (e *Engine) applyDefaults(opts SearchOptions) SearchOptions {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Config == nil {
		cfg := e.config
		opts.Config = &cfg
	}
	return opts
}

func (e *Engine) logSearch(query string, candidates, results int, start time.Time) {
	e.logger.Debug("search_complete",
		slog.String("query", truncateQuery(query, 50)),
		slog.Int("candidates", candidates),
		slog.Int("results", results),
		slog.Duration("took", time.Since(start)))
}

func truncateQuery(q string, n int) string {
	r := []rune(q)
	if len(r) <= n {
		return q
	}
	return string(r[:n]) + "..."
}

// ValidateQuery checks search input before it reaches the engine: the query
// must be non-blank and a non-nil embedding must have dims dimensions.
func ValidateQuery(query string, embedding []float32, dims int) error {
	if strings.TrimSpace(query) == "" {
		return docerrors.New(docerrors.ErrCodeQueryEmpty, "query must not be empty", nil).
			WithSuggestion("Provide at least one search term")
	}
	if embedding != nil && len(embedding) != dims {
		return docerrors.New(docerrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("embedding has %d dimensions, expected %d", len(embedding), dims), nil)
	}
	return nil
}
