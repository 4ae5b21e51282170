package market

import (
	"math"

	"github.com/yourorg/flipdash/harvest"
)

// PricePrediction is the estimated sale price with per-feature weights
// explaining what drove the estimate.
type PricePrediction struct {
	PredictedPrice    float64            `json:"predicted_price"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
}

// domDiscountThreshold marks listings stale enough that the market has
// priced in a discount.
const domDiscountThreshold = 60

// PredictPrice estimates the subject's price from the comparable set:
// the comp average price per square foot applied to the subject's size,
// discounted for extended time on market. Without usable comps or size the
// list price carries through unchanged.
func PredictPrice(target harvest.Property, comps []harvest.Property) PricePrediction {
	ppsfs := make([]float64, 0, len(comps))
	for _, c := range comps {
		if c.Price() > 0 && c.Sqft > 0 {
			ppsfs = append(ppsfs, c.Price()/c.Sqft)
		}
	}

	predicted := target.Price()
	if len(ppsfs) > 0 && target.Sqft > 0 {
		sum := 0.0
		for _, v := range ppsfs {
			sum += v
		}
		predicted = (sum / float64(len(ppsfs))) * target.Sqft
		if target.DaysOnMarket > domDiscountThreshold {
			predicted *= 0.97
		}
	}

	return PricePrediction{
		PredictedPrice:    math.Round(predicted),
		FeatureImportance: featureImportance(comps),
	}
}

// featureImportance weights features by their relative dispersion across the
// comp set: the more a feature varies between otherwise-similar properties,
// the more it explains price spread. Falls back to fixed weights when the
// set is too small to measure.
func featureImportance(comps []harvest.Property) map[string]float64 {
	base := map[string]float64{
		"sqft":           0.30,
		"beds":           0.15,
		"baths":          0.15,
		"days_on_market": 0.15,
		"latitude":       0.125,
		"longitude":      0.125,
	}
	if len(comps) < 2 {
		return base
	}

	spread := map[string]float64{
		"sqft":           dispersion(comps, func(p harvest.Property) float64 { return p.Sqft }),
		"beds":           dispersion(comps, func(p harvest.Property) float64 { return p.Beds }),
		"baths":          dispersion(comps, func(p harvest.Property) float64 { return p.Baths }),
		"days_on_market": dispersion(comps, func(p harvest.Property) float64 { return float64(p.DaysOnMarket) }),
		"latitude":       dispersion(comps, func(p harvest.Property) float64 { return p.Latitude }),
		"longitude":      dispersion(comps, func(p harvest.Property) float64 { return p.Longitude }),
	}
	total := 0.0
	for _, v := range spread {
		total += v
	}
	if total == 0 {
		return base
	}
	out := make(map[string]float64, len(spread))
	for k, v := range spread {
		out[k] = v / total
	}
	return out
}

// dispersion is the coefficient of variation over positive-mean values.
func dispersion(comps []harvest.Property, f func(harvest.Property) float64) float64 {
	vals := make([]float64, 0, len(comps))
	for _, c := range comps {
		vals = append(vals, f(c))
	}
	mean := 0.0
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	if mean == 0 {
		return 0
	}
	variance := 0.0
	for _, v := range vals {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(vals))
	return math.Sqrt(variance) / math.Abs(mean)
}
