package store

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVectorIndex(t *testing.T) {
	flat, err := NewVectorIndex("", 8)
	require.NoError(t, err)
	assert.IsType(t, &FlatIndex{}, flat)

	h, err := NewVectorIndex("HNSW", 8)
	require.NoError(t, err)
	assert.IsType(t, &HNSWIndex{}, h)

	_, err = NewVectorIndex("annoy", 8)
	assert.Error(t, err)
}

func TestVectorIndexes_Contract(t *testing.T) {
	impls := map[string]func() VectorIndex{
		"flat": func() VectorIndex { return NewFlatIndex(3) },
		"hnsw": func() VectorIndex { return NewHNSWIndex(HNSWConfig{Dimensions: 3}) },
	}

	for name, newIndex := range impls {
		t.Run(name, func(t *testing.T) {
			idx := newIndex()

			// Empty index
			hits, err := idx.Search([]float32{1, 0, 0}, 5)
			require.NoError(t, err)
			assert.Empty(t, hits)

			require.NoError(t, idx.Upsert("a", []float32{1, 0, 0}))
			require.NoError(t, idx.Upsert("b", []float32{0, 1, 0}))
			require.NoError(t, idx.Upsert("c", []float32{0, 0, 1}))
			assert.Equal(t, 3, idx.Len())

			// Nearest first, distance 0 for identical direction
			hits, err = idx.Search([]float32{0, 2, 0}, 1)
			require.NoError(t, err)
			require.Len(t, hits, 1)
			assert.Equal(t, "b", hits[0].ID)
			assert.InDelta(t, 0, hits[0].Distance, 1e-5)

			// Replacing a vector moves the id
			require.NoError(t, idx.Upsert("b", []float32{1, -1, 0}))
			assert.Equal(t, 3, idx.Len())
			hits, err = idx.Search([]float32{0, 1, 0}, 1)
			require.NoError(t, err)
			require.Len(t, hits, 1)
			assert.NotEqual(t, "b", hits[0].ID)

			// Deleted ids never come back
			idx.Delete("a")
			idx.Delete("missing")
			assert.Equal(t, 2, idx.Len())
			hits, err = idx.Search([]float32{1, 0, 0}, 10)
			require.NoError(t, err)
			for _, h := range hits {
				assert.NotEqual(t, "a", h.ID)
			}
			assert.Len(t, hits, 2)

			// Dimension checks
			assert.Error(t, idx.Upsert("d", []float32{1, 0}))
			_, err = idx.Search([]float32{1}, 1)
			var dimErr ErrDimensionMismatch
			assert.ErrorAs(t, err, &dimErr)
		})
	}
}

func TestFlatIndex_TiesOrderedByID(t *testing.T) {
	idx := NewFlatIndex(2)
	require.NoError(t, idx.Upsert("b", []float32{1, 0}))
	require.NoError(t, idx.Upsert("a", []float32{2, 0}))

	hits, err := idx.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "b", hits[1].ID)
}

func TestHNSWIndex_RebuildDropsOrphans(t *testing.T) {
	// Given: one id replaced many times
	idx := NewHNSWIndex(HNSWConfig{Dimensions: 3})
	require.NoError(t, idx.Upsert("keep", []float32{0, 0, 1}))
	for i := 0; i < 10; i++ {
		require.NoError(t, idx.Upsert("moving", []float32{1, float32(i), 0}))
	}

	// Then: orphans never outnumber live vectors
	stats := idx.Stats()
	assert.Equal(t, 2, stats.ValidIDs)
	assert.LessOrEqual(t, stats.Orphans, stats.ValidIDs)

	hits, err := idx.Search([]float32{0, 0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "keep", hits[0].ID)
}

func TestHNSWIndex_AgreesWithFlatOnSmallSet(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	flat := NewFlatIndex(8)
	h := NewHNSWIndex(HNSWConfig{Dimensions: 8, EfSearch: 200})

	for i := 0; i < 100; i++ {
		vec := make([]float32, 8)
		for j := range vec {
			vec[j] = rng.Float32()*2 - 1
		}
		id := fmt.Sprintf("v%03d", i)
		require.NoError(t, flat.Upsert(id, vec))
		require.NoError(t, h.Upsert(id, vec))
	}

	query := []float32{0.3, -0.2, 0.9, 0.1, 0, -0.5, 0.4, 0.2}
	want, err := flat.Search(query, 1)
	require.NoError(t, err)
	got, err := h.Search(query, 1)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, want[0].ID, got[0].ID)
}

func TestHNSWIndex_SearchOrderedAfterDeletes(t *testing.T) {
	// Given: 200 random vectors with 60 of them deleted
	rng := rand.New(rand.NewSource(7))
	h := NewHNSWIndex(HNSWConfig{Dimensions: 8})
	for i := 0; i < 200; i++ {
		vec := make([]float32, 8)
		for j := range vec {
			vec[j] = rng.Float32()*2 - 1
		}
		require.NoError(t, h.Upsert(fmt.Sprintf("v%03d", i), vec))
	}
	for i := 0; i < 60; i++ {
		h.Delete(fmt.Sprintf("v%03d", i*3))
	}

	// When: searching
	hits, err := h.Search([]float32{0.5, -0.1, 0.3, 0.8, -0.4, 0.2, 0, 0.6}, 10)

	// Then: live hits only, nearest first
	require.NoError(t, err)
	require.Len(t, hits, 10)
	for i, hit := range hits {
		var n int
		_, _ = fmt.Sscanf(hit.ID, "v%03d", &n)
		assert.False(t, n%3 == 0 && n < 180, "deleted id %s returned", hit.ID)
		if i > 0 {
			assert.LessOrEqual(t, hits[i-1].Distance, hit.Distance, "hit %d out of order", i)
		}
	}
}
