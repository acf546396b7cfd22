package search

import (
	"sort"
	"time"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
	"github.com/Aman-CERP/docsearch/internal/store"
)

// DefaultRRFConstant is the standard RRF smoothing parameter.
const DefaultRRFConstant = 60

// Weights are the per-method RRF weights.
type Weights struct {
	Title    float64 `yaml:"title" json:"title"`
	Body     float64 `yaml:"body" json:"body"`
	Fuzzy    float64 `yaml:"fuzzy" json:"fuzzy"`
	Semantic float64 `yaml:"semantic" json:"semantic"`
}

// DefaultWeights favour title matches, then meaning, then body and fuzzy.
func DefaultWeights() Weights {
	return Weights{
		Title:    1.2,
		Body:     0.6,
		Fuzzy:    0.4,
		Semantic: 1.0,
	}
}

// Weight returns the weight for method m.
func (w Weights) Weight(m Method) float64 {
	switch m {
	case MethodTitle:
		return w.Title
	case MethodBody:
		return w.Body
	case MethodFuzzy:
		return w.Fuzzy
	case MethodSemantic:
		return w.Semantic
	}
	return 0
}

// BoostConfig configures multiplicative boosting.
type BoostConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// RecencyFactor is the boost for a document created now (default 1.2).
	RecencyFactor float64 `yaml:"recency_factor" json:"recency_factor"`

	// RecencyWindowDays is the age at which recency boost reaches 1.0 (default 90).
	RecencyWindowDays float64 `yaml:"recency_window_days" json:"recency_window_days"`

	// UserAffinity is applied uniformly to every result (default 1.5).
	UserAffinity float64 `yaml:"user_affinity" json:"user_affinity"`

	// PopularityMax caps the view-count boost (default 1.1).
	PopularityMax float64 `yaml:"popularity_max" json:"popularity_max"`
}

// DefaultBoostConfig returns boosting enabled with the standard factors.
func DefaultBoostConfig() BoostConfig {
	return BoostConfig{
		Enabled:           true,
		RecencyFactor:     1.2,
		RecencyWindowDays: 90,
		UserAffinity:      1.5,
		PopularityMax:     1.1,
	}
}

// RankerConfig configures fusion and boosting.
type RankerConfig struct {
	Weights Weights     `yaml:"weights" json:"weights"`
	K       int         `yaml:"k" json:"k"`
	Boost   BoostConfig `yaml:"boost" json:"boost"`
}

// DefaultRankerConfig returns the default ranking configuration.
func DefaultRankerConfig() RankerConfig {
	return RankerConfig{
		Weights: DefaultWeights(),
		K:       DefaultRRFConstant,
		Boost:   DefaultBoostConfig(),
	}
}

// Validate checks that the configuration produces meaningful scores.
func (c RankerConfig) Validate() error {
	if c.K <= 0 {
		return docerrors.ValidationError("rrf k must be positive", nil)
	}
	for _, m := range Methods {
		if c.Weights.Weight(m) < 0 {
			return docerrors.ValidationError("weight for "+string(m)+" must not be negative", nil)
		}
	}
	if !c.Boost.Enabled {
		return nil
	}
	switch {
	case c.Boost.RecencyFactor < 1:
		return docerrors.ValidationError("recency factor must be at least 1.0", nil)
	case c.Boost.RecencyWindowDays <= 0:
		return docerrors.ValidationError("recency window must be positive", nil)
	case c.Boost.UserAffinity <= 0:
		return docerrors.ValidationError("user affinity must be positive", nil)
	case c.Boost.PopularityMax < 1:
		return docerrors.ValidationError("popularity max must be at least 1.0", nil)
	}
	return nil
}

// rrfContribution is weight / (k + rank), or 0 when rank is absent.
func rrfContribution(weight float64, k, rank int) float64 {
	if rank <= 0 {
		return 0
	}
	return weight / float64(k+rank)
}

// Rank fuses candidate ranks into scored results sorted by FinalScore
// descending.
//
// Algorithm: rrf(d) = Σ weight_m / (k + rank_m) over the methods that
// returned d, then FinalScore = rrf * recency * affinity * popularity.
//
// Candidates without an entry in documents are skipped. Equal scores keep
// their input order.
func Rank(candidates []CandidateRank, documents map[string]*store.Document, cfg RankerConfig, now time.Time) []*RankedResult {
	results := make([]*RankedResult, 0, len(candidates))

	for _, c := range candidates {
		doc, ok := documents[c.DocumentID]
		if !ok || doc == nil {
			continue
		}

		scores := MethodScores{
			Title:    rrfContribution(cfg.Weights.Title, cfg.K, c.FTSTitleRank),
			Body:     rrfContribution(cfg.Weights.Body, cfg.K, c.FTSBodyRank),
			Fuzzy:    rrfContribution(cfg.Weights.Fuzzy, cfg.K, c.FuzzyRank),
			Semantic: rrfContribution(cfg.Weights.Semantic, cfg.K, c.SemanticRank),
		}
		rrf := scores.Title + scores.Body + scores.Fuzzy + scores.Semantic

		boosts := Boosts{Recency: 1, UserAffinity: 1, Popularity: 1}
		boosted := rrf
		if cfg.Boost.Enabled {
			boosts = Boosts{
				Recency:      RecencyBoost(doc.CreatedAt, now, cfg.Boost.RecencyFactor, cfg.Boost.RecencyWindowDays),
				UserAffinity: UserAffinityBoost(cfg.Boost),
				Popularity:   PopularityBoost(c.ViewCount, cfg.Boost.PopularityMax),
			}
			boosted = rrf * boosts.Recency * boosts.UserAffinity * boosts.Popularity
		}

		results = append(results, &RankedResult{
			Document:     doc,
			RRFScore:     rrf,
			MethodScores: scores,
			BoostedScore: boosted,
			Boosts:       boosts,
			FinalScore:   boosted,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FinalScore > results[j].FinalScore
	})
	return results
}
