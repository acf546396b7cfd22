package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// StaticModelName identifies the built-in sentence model.
const StaticModelName = "static-meanpool-384"

// Subword weights relative to whole-word token vectors.
const (
	wordWeight    = 1.0
	subwordWeight = 0.35
	subwordSize   = 3
)

// StaticEmbedder is a deterministic sentence embedding model that needs no
// network access or model download. Each token (whole word plus character
// trigrams) is mapped to a fixed pseudo-random token embedding; the sentence
// vector is the mean of the token embeddings, L2-normalised.
type StaticEmbedder struct {
	dims   int
	mu     sync.RWMutex
	closed bool
}

// NewStaticEmbedder creates a static embedder producing vectors of dims dimensions.
// If dims <= 0, DefaultDimensions is used.
func NewStaticEmbedder(dims int) *StaticEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &StaticEmbedder{dims: dims}
}

// Embed generates embedding for a single text.
func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("embedder is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := sentenceTokens(text)
	if len(tokens) == 0 {
		return ZeroVector(e.dims), nil
	}

	pooled := make([]float64, e.dims)
	var totalWeight float64
	for _, tok := range tokens {
		addTokenEmbedding(pooled, tok.text, tok.weight)
		totalWeight += tok.weight
	}

	// Mean pooling
	vec := make([]float32, e.dims)
	for i, v := range pooled {
		vec[i] = float32(v / totalWeight)
	}

	return normalizeVector(vec), nil
}

// EmbedBatch generates embeddings for multiple texts.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return embedEach(ctx, e, texts)
}

// Dimensions returns the embedding dimension.
func (e *StaticEmbedder) Dimensions() int {
	return e.dims
}

// ModelName returns the model identifier.
func (e *StaticEmbedder) ModelName() string {
	if e.dims == DefaultDimensions {
		return StaticModelName
	}
	return fmt.Sprintf("static-meanpool-%d", e.dims)
}

// Close releases resources.
func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

type weightedToken struct {
	text   string
	weight float64
}

// sentenceTokens splits text into lower-cased words and their character
// trigrams ("<word>" padded so short words still produce subwords).
func sentenceTokens(text string) []weightedToken {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]weightedToken, 0, len(words)*4)
	for _, w := range words {
		tokens = append(tokens, weightedToken{text: "w:" + w, weight: wordWeight})

		padded := []rune("<" + w + ">")
		for i := 0; i+subwordSize <= len(padded); i++ {
			tokens = append(tokens, weightedToken{
				text:   "s:" + string(padded[i:i+subwordSize]),
				weight: subwordWeight,
			})
		}
	}
	return tokens
}

// addTokenEmbedding adds weight * embedding(token) into acc. The token
// embedding is a deterministic vector with components in [-1, 1] drawn from a
// splitmix64 stream seeded by the FNV-64a hash of the token.
func addTokenEmbedding(acc []float64, token string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(token))
	state := h.Sum64()

	for i := range acc {
		state += 0x9e3779b97f4a7c15
		z := state
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		z ^= z >> 31
		// Map to [-1, 1]
		u := float64(z>>11) / float64(uint64(1)<<53)
		acc[i] += weight * (2*u - 1)
	}
}
