package search

import (
	"math"
	"time"
)

// popularityScale converts log views into boost.
const popularityScale = 0.2

// RecencyBoost decays linearly from factor for a document created at now to
// 1.0 at windowDays old. Documents without a creation time get 1.0, and
// documents dated in the future get the full factor.
func RecencyBoost(createdAt *time.Time, now time.Time, factor, windowDays float64) float64 {
	if createdAt == nil {
		return 1.0
	}
	ageDays := now.Sub(*createdAt).Hours() / 24
	switch {
	case ageDays <= 0:
		return factor
	case ageDays >= windowDays:
		return 1.0
	default:
		return 1.0 + (factor-1.0)*(1-ageDays/windowDays)
	}
}

// UserAffinityBoost returns the configured affinity factor. It is the same
// for every document; per-user personalisation plugs in here.
func UserAffinityBoost(cfg BoostConfig) float64 {
	return cfg.UserAffinity
}

// PopularityBoost grows with the log of views and is capped at maxFactor.
func PopularityBoost(viewCount int64, maxFactor float64) float64 {
	if viewCount <= 0 {
		return 1.0
	}
	return math.Min(maxFactor, 1.0+math.Log1p(float64(viewCount))*popularityScale)
}
