package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Aman-CERP/docsearch/internal/embed"
	"github.com/Aman-CERP/docsearch/internal/index"
	"github.com/Aman-CERP/docsearch/internal/search"
	"github.com/Aman-CERP/docsearch/internal/store"
)

// services holds the opened stores and services for one command.
type services struct {
	docs     *store.SQLiteDocumentStore
	index    *store.SQLiteIndexStore
	provider *embed.Provider
	logger   *slog.Logger
}

// open opens both databases under the configured data directory and
// installs the process-wide embedding provider. Deleting a document drops
// its index record through the document store hook.
func (a *app) open(ctx context.Context) (*services, error) {
	if err := os.MkdirAll(a.cfg.Index.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	settings := a.cfg.EmbedSettings()
	factory, err := embed.NewFactory(settings)
	if err != nil {
		return nil, err
	}
	provider := embed.InitDefault(factory, settings.Dimensions, embed.WithProviderLogger(a.logger))
	if provider.Dimensions() != settings.Dimensions {
		return nil, fmt.Errorf("embedding provider already initialised with %d dimensions, config wants %d",
			provider.Dimensions(), settings.Dimensions)
	}

	idx, err := store.NewSQLiteIndexStore(a.cfg.IndexPath(), a.cfg.IndexStoreConfig())
	if err != nil {
		return nil, err
	}
	docs, err := store.NewSQLiteDocumentStore(a.cfg.DocumentsPath())
	if err != nil {
		_ = idx.Close()
		return nil, err
	}
	docs.OnDelete(idx.Delete)

	rt := &services{docs: docs, index: idx, provider: provider, logger: a.logger}
	if a.cfg.Embeddings.WarmUp {
		// Failures resurface on first use; the lexical path works without a model.
		if err := provider.WarmUp(ctx); err != nil {
			a.logger.Warn("embedding warm-up failed", slog.String("error", err.Error()))
		}
	}
	return rt, nil
}

// Close closes both stores. The provider is process-wide and stays open.
func (rt *services) Close() error {
	return errors.Join(rt.docs.Close(), rt.index.Close())
}

func (rt *services) deps() index.Dependencies {
	return index.Dependencies{
		Documents: rt.docs,
		Index:     rt.index,
		Embedder:  rt.provider,
		Logger:    rt.logger,
	}
}

// engine builds a search engine from the loaded configuration.
func (a *app) engine(rt *services, partial bool) (*search.Engine, error) {
	opts := []search.EngineOption{
		search.WithEmbedder(rt.provider),
		search.WithRankerConfig(a.cfg.RankerConfig()),
		search.WithLogger(a.logger),
	}
	if partial || a.cfg.Search.PartialResults {
		opts = append(opts, search.WithRetrieverOptions(search.WithPartialResults(), search.WithRetrieverLogger(a.logger)))
	}
	return search.NewEngine(rt.index, rt.docs, opts...)
}
