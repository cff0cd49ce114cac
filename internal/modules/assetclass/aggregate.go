package assetclass

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/aristath/analogs/internal/domain"
)

// WeightTolerance is how far a weight total may drift from 1.0 before
// holdings are renormalized.
const WeightTolerance = 0.05

// aggregateAllowList holds the name fragments of portfolios whose holdings
// are presented collapsed by asset class.
var aggregateAllowList = []string{
	"balanced",
	"all weather",
	"all-weather",
	"flagship",
}

// IsAggregateEligible reports whether a portfolio name matches the
// aggregate allow-list (case-insensitive substring match).
func IsAggregateEligible(portfolioName string) bool {
	name := strings.ToLower(portfolioName)
	for _, fragment := range aggregateAllowList {
		if strings.Contains(name, fragment) {
			return true
		}
	}
	return false
}

// AggregateByAssetClass sums holding weights per asset class. Only classes
// with a positive total are returned, sorted by weight descending; ties keep
// the order in which the class first appeared.
func AggregateByAssetClass(holdings []domain.Holding) []domain.AssetClassWeight {
	totals := make(map[domain.AssetClass]float64)
	var order []domain.AssetClass

	for _, h := range holdings {
		class := h.AssetClass
		if !class.Valid() {
			class = Classify(h.Ticker)
		}
		if _, seen := totals[class]; !seen {
			order = append(order, class)
		}
		totals[class] += h.Weight
	}

	result := make([]domain.AssetClassWeight, 0, len(order))
	for _, class := range order {
		if totals[class] > 0 {
			result = append(result, domain.AssetClassWeight{AssetClass: class, Weight: totals[class]})
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Weight > result[j].Weight
	})

	return result
}

// IsValidWeight reports whether w is a finite positive weight
func IsValidWeight(w float64) bool {
	return w > 0 && !math.IsInf(w, 0)
}

// TotalWeight returns the sum of holding weights
func TotalWeight(holdings []domain.Holding) float64 {
	weights := make([]float64, len(holdings))
	for i, h := range holdings {
		weights[i] = h.Weight
	}
	return floats.Sum(weights)
}

// NormalizeWeights returns a copy of holdings whose weights sum to 1.0
// when the observed total lies outside 1 ± WeightTolerance. Totals inside
// the tolerance are left untouched.
func NormalizeWeights(holdings []domain.Holding) ([]domain.Holding, error) {
	if len(holdings) == 0 {
		return nil, fmt.Errorf("%w: portfolio has no holdings", domain.ErrInsufficientData)
	}

	for _, h := range holdings {
		if math.IsNaN(h.Weight) || math.IsInf(h.Weight, 0) {
			return nil, fmt.Errorf("%w: non-finite weight for %s", domain.ErrInsufficientData, h.Ticker)
		}
	}

	total := TotalWeight(holdings)
	if total <= 0 {
		return nil, fmt.Errorf("%w: holding weights sum to %.4f", domain.ErrInsufficientData, total)
	}

	out := make([]domain.Holding, len(holdings))
	copy(out, holdings)

	if total >= 1-WeightTolerance && total <= 1+WeightTolerance {
		return out, nil
	}

	for i := range out {
		out[i].Weight /= total
	}
	return out, nil
}
