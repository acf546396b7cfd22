package index

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsearch/internal/embed"
	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/store"
)

const testDims = 16

type fixture struct {
	docs  *store.SQLiteDocumentStore
	index *store.SQLiteIndexStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	index, err := store.NewSQLiteIndexStore("", store.IndexStoreConfig{Dimensions: testDims})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	docs, err := store.NewSQLiteDocumentStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = docs.Close() })

	return &fixture{docs: docs, index: index}
}

func (f *fixture) put(t *testing.T, documents ...*store.Document) {
	t.Helper()
	for _, d := range documents {
		require.NoError(t, f.docs.Put(context.Background(), d))
	}
}

func (f *fixture) deps(e embed.Embedder) Dependencies {
	return Dependencies{Documents: f.docs, Index: f.index, Embedder: e}
}

// poisonEmbedder fails with a provider error for texts containing poison.
type poisonEmbedder struct {
	inner  embed.Embedder
	poison string
	calls  atomic.Int64
	plain  bool // fail with a non-provider error instead
}

func newPoisonEmbedder(poison string) *poisonEmbedder {
	return &poisonEmbedder{inner: embed.NewStaticEmbedder(testDims), poison: poison}
}

func (p *poisonEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	p.calls.Add(1)
	if p.poison != "" && strings.Contains(text, p.poison) {
		if p.plain {
			return nil, errPlain
		}
		return nil, docerrors.ProviderError("model unavailable", nil)
	}
	return p.inner.Embed(ctx, text)
}

func (p *poisonEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (p *poisonEmbedder) Dimensions() int   { return testDims }
func (p *poisonEmbedder) ModelName() string { return "poison" }
func (p *poisonEmbedder) Close() error      { return nil }

var errPlain = docerrors.InternalError("tokenizer crashed", nil)
