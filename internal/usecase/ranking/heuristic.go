package ranking

import "github.com/kailas-cloud/matchd/internal/domain/feature"

// Heuristic fallback weights. The score is a fixed linear combination of
// normalized similarity, price fit, and rating; monotonic in similarity by
// construction.
const (
	weightSimilarity = 0.45
	weightPriceFit   = 0.30
	weightRating     = 0.25
)

// HeuristicScore computes the fallback rank score from a documented subset of
// features. Used whenever no trained artifact is loaded.
func HeuristicScore(v feature.Vector) float64 {
	simNorm := (v[feature.FeatSimilarity] + 1) / 2 // [-1,1] -> [0,1]

	// Price fit peaks when the rate sits at the budget ceiling and falls off
	// as the gap widens, mirroring how students pick near their stated budget.
	priceFit := clamp01(1 - v[feature.FeatPriceGap])
	if v[feature.FeatWithinBudget] == 0 {
		priceFit = 0
	}

	ratingNorm := clamp01(v[feature.FeatRating] / 5)

	return weightSimilarity*simNorm + weightPriceFit*priceFit + weightRating*ratingNorm
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
