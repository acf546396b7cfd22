// Package search implements hybrid document search: four retrieval methods
// run concurrently and their ranks are fused with weighted Reciprocal Rank
// Fusion (RRF), then optionally boosted by recency, affinity and popularity.
package search

import (
	"github.com/Aman-CERP/docsearch/internal/store"
)

// Retrieval limits.
const (
	// TopK is the number of results each retrieval method contributes.
	TopK = 50

	// UnionLimit caps the merged candidate set.
	UnionLimit = 100

	// DefaultLimit is the default number of search results.
	DefaultLimit = 50
)

// Method identifies a retrieval method.
type Method string

const (
	MethodTitle    Method = "title"
	MethodBody     Method = "body"
	MethodFuzzy    Method = "fuzzy"
	MethodSemantic Method = "semantic"
)

// Methods lists every retrieval method in fusion order.
var Methods = []Method{MethodTitle, MethodBody, MethodFuzzy, MethodSemantic}

// CandidateRank is one retrieved document with its 1-based position in each
// method's result list. A zero rank means the document was not in that
// method's top K, not that it is irrelevant.
type CandidateRank struct {
	DocumentID   string
	FTSTitleRank int
	FTSBodyRank  int
	FuzzyRank    int
	SemanticRank int

	// ViewCount is hydrated from the index record before ranking.
	ViewCount int64
}

// Rank returns the candidate's rank for method m, 0 if absent.
func (c CandidateRank) Rank(m Method) int {
	switch m {
	case MethodTitle:
		return c.FTSTitleRank
	case MethodBody:
		return c.FTSBodyRank
	case MethodFuzzy:
		return c.FuzzyRank
	case MethodSemantic:
		return c.SemanticRank
	}
	return 0
}

func (c *CandidateRank) setRank(m Method, rank int) {
	switch m {
	case MethodTitle:
		c.FTSTitleRank = rank
	case MethodBody:
		c.FTSBodyRank = rank
	case MethodFuzzy:
		c.FuzzyRank = rank
	case MethodSemantic:
		c.SemanticRank = rank
	}
}

// bestRank returns the lowest non-zero rank across methods.
func (c CandidateRank) bestRank() int {
	best := 0
	for _, m := range Methods {
		if r := c.Rank(m); r > 0 && (best == 0 || r < best) {
			best = r
		}
	}
	return best
}

// MethodScores is the per-method RRF contribution, zero where the rank is absent.
type MethodScores struct {
	Title    float64 `json:"title"`
	Body     float64 `json:"body"`
	Fuzzy    float64 `json:"fuzzy"`
	Semantic float64 `json:"semantic"`
}

// Boosts are the multiplicative factors applied to the RRF score.
type Boosts struct {
	Recency      float64 `json:"recency"`
	UserAffinity float64 `json:"user_affinity"`
	Popularity   float64 `json:"popularity"`
}

// RankedResult is a scored, hydrated search result.
type RankedResult struct {
	Document     *store.Document `json:"document"`
	RRFScore     float64         `json:"rrf_score"`
	MethodScores MethodScores    `json:"method_scores"`
	BoostedScore float64         `json:"boosted_score"`
	Boosts       Boosts          `json:"boosts"`
	FinalScore   float64         `json:"final_score"`
}

// SearchOptions configures Engine.Search.
type SearchOptions struct {
	// Limit is the maximum number of results (default: 50).
	Limit int

	// IncludeDetails keeps the per-method score and boost breakdown.
	// When false those fields are zeroed.
	IncludeDetails bool

	// Config overrides the engine's ranker configuration.
	Config *RankerConfig

	// TitleMatchFirst reorders the top results so titles containing the
	// query come first, each group alphabetical, ignoring scores.
	TitleMatchFirst bool
}
