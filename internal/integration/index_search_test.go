package integration

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docsearch/internal/embed"
	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/index"
	"github.com/Aman-CERP/docsearch/internal/search"
	"github.com/Aman-CERP/docsearch/internal/store"
)

// Integration tests run the full flow on disk:
// documents -> indexing pipeline -> index store -> search engine.

const dims = 64

// stack is one opened data directory.
type stack struct {
	dir      string
	docs     *store.SQLiteDocumentStore
	idx      *store.SQLiteIndexStore
	embedder embed.Embedder
}

func openStack(t *testing.T, dir string, backend store.VectorBackend) *stack {
	t.Helper()

	idx, err := store.NewSQLiteIndexStore(filepath.Join(dir, "index.db"), store.IndexStoreConfig{
		Dimensions:    dims,
		VectorBackend: backend,
	})
	require.NoError(t, err)

	docs, err := store.NewSQLiteDocumentStore(filepath.Join(dir, "documents.db"))
	require.NoError(t, err)
	docs.OnDelete(idx.Delete)

	s := &stack{dir: dir, docs: docs, idx: idx, embedder: embed.NewStaticEmbedder(dims)}
	t.Cleanup(s.close)
	return s
}

func (s *stack) close() {
	_ = s.docs.Close()
	_ = s.idx.Close()
}

func (s *stack) deps() index.Dependencies {
	return index.Dependencies{Documents: s.docs, Index: s.idx, Embedder: s.embedder}
}

func (s *stack) engine(t *testing.T) *search.Engine {
	t.Helper()
	e, err := search.NewEngine(s.idx, s.docs, search.WithEmbedder(s.embedder))
	require.NoError(t, err)
	return e
}

func (s *stack) importDocs(t *testing.T, documents ...*store.Document) {
	t.Helper()
	ctx := context.Background()
	indexer, err := index.NewInteractiveIndexer(s.deps())
	require.NoError(t, err)
	for _, d := range documents {
		require.NoError(t, s.docs.Put(ctx, d))
		require.NoError(t, indexer.IndexDocument(ctx, d.ID))
	}
}

func corpus() []*store.Document {
	recent := time.Now().Add(-24 * time.Hour)
	return []*store.Document{
		{ID: "py", Title: "Python Tutorial", Content: "Learn python programming step by step in this tutorial", Author: "ada", CreatedAt: &recent},
		{ID: "go", Title: "Go Concurrency", Content: "Goroutines and channels in practice"},
		{ID: "bread", Title: "Banana Bread Recipe", Content: "Bake banana bread with ripe bananas"},
		{ID: "pyadv", Title: "Advanced Python", Content: "Decorators, generators and the python tutorial follow-up"},
		{ID: "typo", Title: "Pyhton Tutorail", Content: "A page whose title is misspelled"},
	}
}

func ids(results []*search.RankedResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Document.ID
	}
	return out
}

func TestIntegration_IndexAndSearch_FindsResults(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, backend := range []store.VectorBackend{store.VectorBackendFlat, store.VectorBackendHNSW} {
		t.Run(string(backend), func(t *testing.T) {
			// Given: a corpus indexed through the interactive pipeline
			s := openStack(t, t.TempDir(), backend)
			s.importDocs(t, corpus()...)

			// When: searching for an exact title
			results, err := s.engine(t).Search(context.Background(), "python tutorial", nil, search.SearchOptions{IncludeDetails: true})

			// Then: the exact match leads and every method contributed somewhere
			require.NoError(t, err)
			require.NotEmpty(t, results)
			assert.Equal(t, "py", results[0].Document.ID)
			assert.Greater(t, results[0].MethodScores.Title, 0.0)
			assert.Greater(t, results[0].MethodScores.Body, 0.0)
			assert.Greater(t, results[0].MethodScores.Semantic, 0.0)
			assert.Greater(t, results[0].Boosts.Recency, 1.0)
		})
	}
}

func TestIntegration_FuzzyFindsMisspelledTitle(t *testing.T) {
	s := openStack(t, t.TempDir(), store.VectorBackendFlat)
	s.importDocs(t, corpus()...)

	results, err := s.engine(t).Search(context.Background(), "python tutorial", nil, search.SearchOptions{IncludeDetails: true})

	require.NoError(t, err)
	var typo *search.RankedResult
	for _, r := range results {
		if r.Document.ID == "typo" {
			typo = r
		}
	}
	require.NotNil(t, typo, "misspelled title should be retrieved by trigram similarity")
	assert.Greater(t, typo.MethodScores.Fuzzy, 0.0)
	assert.Zero(t, typo.MethodScores.Title)
}

func TestIntegration_ReopenRestoresIndex(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	// Given: an indexed corpus with recorded views, then closed
	first := openStack(t, dir, store.VectorBackendHNSW)
	first.importDocs(t, corpus()...)
	require.NoError(t, first.idx.IncrementViewCount(ctx, "pyadv", 5))
	first.close()

	// When: reopening the same data directory
	second := openStack(t, dir, store.VectorBackendHNSW)

	// Then: vectors are rebuilt and counters survive
	assert.Equal(t, len(corpus()), second.idx.VectorCount())
	results, err := second.engine(t).Search(ctx, "python", nil, search.SearchOptions{IncludeDetails: true})
	require.NoError(t, err)
	for _, r := range results {
		if r.Document.ID == "pyadv" {
			assert.Equal(t, 1.1, r.Boosts.Popularity)
		}
	}
}

func TestIntegration_DeleteCascadesToIndex(t *testing.T) {
	ctx := context.Background()
	s := openStack(t, t.TempDir(), store.VectorBackendFlat)
	s.importDocs(t, corpus()...)

	// When: deleting from the primary store
	require.NoError(t, s.docs.Delete(ctx, "py"))

	// Then: the index record is gone and the stores agree
	_, err := s.idx.Get(ctx, "py")
	assert.True(t, docerrors.IsNotFound(err))

	results, err := s.engine(t).Search(ctx, "python tutorial", nil, search.SearchOptions{})
	require.NoError(t, err)
	assert.NotContains(t, ids(results), "py")

	check, err := index.NewConsistencyChecker(s.docs, s.idx, nil).Check(ctx)
	require.NoError(t, err)
	assert.True(t, check.Consistent())
}

func TestIntegration_MaintenanceRebuildsFromDocuments(t *testing.T) {
	ctx := context.Background()
	s := openStack(t, t.TempDir(), store.VectorBackendFlat)

	// Given: documents stored but never indexed
	for _, d := range corpus() {
		require.NoError(t, s.docs.Put(ctx, d))
	}
	check, err := index.NewConsistencyChecker(s.docs, s.idx, nil).Check(ctx)
	require.NoError(t, err)
	assert.Len(t, check.Inconsistencies, len(corpus()))

	// When: a maintenance run rebuilds the index
	batch, err := index.NewBatchMaintenanceIndexer(s.deps(), index.WithWorkers(3), index.WithLockDir(s.dir))
	require.NoError(t, err)
	report, err := batch.Run(ctx)

	// Then: every document is searchable and the stores agree
	require.NoError(t, err)
	assert.Equal(t, len(corpus()), report.Indexed)
	assert.Empty(t, report.Failed)

	results, err := s.engine(t).Search(ctx, "banana", nil, search.SearchOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "bread", results[0].Document.ID)

	check, err = index.NewConsistencyChecker(s.docs, s.idx, nil).Check(ctx)
	require.NoError(t, err)
	assert.True(t, check.Consistent())
}
