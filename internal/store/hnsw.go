package store

import (
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWConfig configures an HNSWIndex.
type HNSWConfig struct {
	Dimensions int
	M          int // Max neighbours per node (default 16)
	EfSearch   int // Search candidate list size (default 64)
}

// HNSWIndex is an approximate cosine index over a coder/hnsw graph.
//
// Deletes and replacements are lazy: the graph node is orphaned by dropping
// its id mapping, because removing nodes from coder/hnsw can break the graph.
// When orphans outnumber live vectors the graph is rebuilt.
type HNSWIndex struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	config HNSWConfig

	// ID mapping (string <-> uint64)
	idMap   map[string]uint64
	keyMap  map[uint64]string
	vectors map[string][]float32 // live normalized vectors, for rebuilds
	nextKey uint64
}

// NewHNSWIndex creates an empty HNSW index.
func NewHNSWIndex(cfg HNSWConfig) *HNSWIndex {
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 64
	}
	return &HNSWIndex{
		graph:   newGraph(cfg),
		config:  cfg,
		idMap:   make(map[string]uint64),
		keyMap:  make(map[uint64]string),
		vectors: make(map[string][]float32),
	}
}

func newGraph(cfg HNSWConfig) *hnsw.Graph[uint64] {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25
	return graph
}

// Upsert adds or replaces the vector for id.
func (h *HNSWIndex) Upsert(id string, vec []float32) error {
	if len(vec) != h.config.Dimensions {
		return ErrDimensionMismatch{Expected: h.config.Dimensions, Got: len(vec)}
	}
	normalized := make([]float32, len(vec))
	copy(normalized, vec)
	normalizeVectorInPlace(normalized)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.orphan(id)
	h.add(id, normalized)

	if h.graph.Len()-len(h.idMap) > len(h.idMap) {
		h.rebuild()
	}
	return nil
}

func (h *HNSWIndex) add(id string, normalized []float32) {
	key := h.nextKey
	h.nextKey++
	h.graph.Add(hnsw.MakeNode(key, normalized))
	h.idMap[id] = key
	h.keyMap[key] = id
	h.vectors[id] = normalized
}

func (h *HNSWIndex) orphan(id string) {
	if key, exists := h.idMap[id]; exists {
		delete(h.keyMap, key)
		delete(h.idMap, id)
		delete(h.vectors, id)
	}
}

// rebuild recreates the graph from live vectors, dropping orphans.
func (h *HNSWIndex) rebuild() {
	live := h.vectors
	h.graph = newGraph(h.config)
	h.idMap = make(map[string]uint64, len(live))
	h.keyMap = make(map[uint64]string, len(live))
	h.vectors = make(map[string][]float32, len(live))
	for id, vec := range live {
		h.add(id, vec)
	}
}

// Delete removes id using lazy deletion.
func (h *HNSWIndex) Delete(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.orphan(id)
}

// Search finds the k nearest live vectors to query.
func (h *HNSWIndex) Search(query []float32, k int) ([]VectorHit, error) {
	if len(query) != h.config.Dimensions {
		return nil, ErrDimensionMismatch{Expected: h.config.Dimensions, Got: len(query)}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if k <= 0 || len(h.idMap) == 0 {
		return []VectorHit{}, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	normalizeVectorInPlace(q)

	// The graph keeps a result heap of size fetch and returns it in heap
	// order. Fetch at least EfSearch candidates, plus one per orphan, then
	// sort and cut to k.
	fetch := max(k, h.config.EfSearch) + h.graph.Len() - len(h.idMap)
	nodes := h.graph.Search(q, fetch)

	hits := make([]VectorHit, 0, len(nodes))
	for _, node := range nodes {
		id, exists := h.keyMap[node.Key]
		if !exists {
			continue
		}
		hits = append(hits, VectorHit{ID: id, Distance: h.graph.Distance(q, node.Value)})
	}
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

// Len returns the number of live vectors.
func (h *HNSWIndex) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.idMap)
}

// HNSWStats reports live and orphaned graph nodes.
type HNSWStats struct {
	ValidIDs   int
	GraphNodes int
	Orphans    int
}

// Stats returns graph statistics.
func (h *HNSWIndex) Stats() HNSWStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return HNSWStats{
		ValidIDs:   len(h.idMap),
		GraphNodes: h.graph.Len(),
		Orphans:    h.graph.Len() - len(h.idMap),
	}
}
