package store

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// VectorBackend selects the VectorIndex implementation.
type VectorBackend string

const (
	// VectorBackendFlat is exact brute-force cosine search.
	VectorBackendFlat VectorBackend = "flat"
	// VectorBackendHNSW is approximate search over an HNSW graph.
	VectorBackendHNSW VectorBackend = "hnsw"
)

// VectorHit is one semantic search result.
type VectorHit struct {
	ID       string
	Distance float32 // Cosine distance, 0 = identical
}

// VectorIndex is the in-memory nearest-neighbour index behind semantic search.
// Implementations are safe for concurrent use.
type VectorIndex interface {
	// Upsert adds or replaces the vector for id.
	Upsert(id string, vec []float32) error
	// Delete removes id. Missing ids are ignored.
	Delete(id string)
	// Search returns up to k ids nearest to query, nearest first.
	Search(query []float32, k int) ([]VectorHit, error)
	// Len returns the number of live vectors.
	Len() int
}

// ErrDimensionMismatch indicates a vector of the wrong size.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// NewVectorIndex creates the vector index for backend.
func NewVectorIndex(backend VectorBackend, dims int) (VectorIndex, error) {
	switch VectorBackend(strings.ToLower(string(backend))) {
	case "", VectorBackendFlat:
		return NewFlatIndex(dims), nil
	case VectorBackendHNSW:
		return NewHNSWIndex(HNSWConfig{Dimensions: dims}), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", backend)
	}
}

// FlatIndex is an exact cosine-distance index. Results are deterministic:
// equal distances are ordered by id.
type FlatIndex struct {
	mu      sync.RWMutex
	dims    int
	vectors map[string][]float32 // normalized
}

// NewFlatIndex creates an empty flat index of the given dimension.
func NewFlatIndex(dims int) *FlatIndex {
	return &FlatIndex{
		dims:    dims,
		vectors: make(map[string][]float32),
	}
}

// Upsert adds or replaces the vector for id.
func (f *FlatIndex) Upsert(id string, vec []float32) error {
	if len(vec) != f.dims {
		return ErrDimensionMismatch{Expected: f.dims, Got: len(vec)}
	}
	normalized := make([]float32, len(vec))
	copy(normalized, vec)
	normalizeVectorInPlace(normalized)

	f.mu.Lock()
	f.vectors[id] = normalized
	f.mu.Unlock()
	return nil
}

// Delete removes id.
func (f *FlatIndex) Delete(id string) {
	f.mu.Lock()
	delete(f.vectors, id)
	f.mu.Unlock()
}

// Search scans every vector and returns the k nearest.
func (f *FlatIndex) Search(query []float32, k int) ([]VectorHit, error) {
	if len(query) != f.dims {
		return nil, ErrDimensionMismatch{Expected: f.dims, Got: len(query)}
	}
	if k <= 0 {
		return []VectorHit{}, nil
	}
	q := make([]float32, len(query))
	copy(q, query)
	normalizeVectorInPlace(q)

	f.mu.RLock()
	hits := make([]VectorHit, 0, len(f.vectors))
	for id, v := range f.vectors {
		hits = append(hits, VectorHit{ID: id, Distance: cosineDistance(q, v)})
	}
	f.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of vectors.
func (f *FlatIndex) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// cosineDistance expects unit vectors.
func cosineDistance(a, b []float32) float32 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(1 - dot)
}

// normalizeVectorInPlace normalizes a vector to unit length in place.
func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	invMagnitude := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= invMagnitude
	}
}

func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

var (
	_ VectorIndex = (*FlatIndex)(nil)
	_ VectorIndex = (*HNSWIndex)(nil)
)
