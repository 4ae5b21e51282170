package flip

import (
	"fmt"
	"math"
	"sort"

	"github.com/yourorg/flipdash/harvest"
)

// similarity weights; price dominates, beds/baths are tiebreakers
const (
	weightPrice = 0.4
	weightSqft  = 0.3
	weightBeds  = 0.15
	weightBaths = 0.15
)

// Comparable is a property annotated with its similarity to a target.
type Comparable struct {
	harvest.Property
	SimilarityScore float64 `json:"similarity_score"`
}

// Insight is one rule-derived line of the flip analysis.
type Insight struct {
	Type       string `json:"type"`
	Confidence string `json:"confidence"`
	Message    string `json:"message"`
}

// SimilarityScore returns 0..1, higher meaning more similar. Properties
// without a usable price or size cannot be compared and score 0.
func SimilarityScore(target, comp harvest.Property) float64 {
	tPrice, tSqft := target.Price(), target.Sqft
	cPrice, cSqft := comp.Price(), comp.Sqft
	if tPrice <= 0 || tSqft <= 0 || cPrice <= 0 || cSqft <= 0 {
		return 0
	}
	priceDiff := math.Abs(cPrice-tPrice) / math.Max(tPrice, 1)
	sqftDiff := math.Abs(cSqft-tSqft) / math.Max(tSqft, 1)
	bedsDiff := math.Abs(comp.Beds-target.Beds) / math.Max(target.Beds, 1)
	bathsDiff := math.Abs(comp.Baths-target.Baths) / math.Max(target.Baths, 1)

	dissimilarity := priceDiff*weightPrice + sqftDiff*weightSqft +
		bedsDiff*weightBeds + bathsDiff*weightBaths
	return math.Max(0, math.Min(1, 1-dissimilarity))
}

// TopComparables returns up to n properties most similar to the target,
// ordered by descending similarity with property id as the tiebreaker. The
// target itself is never its own comparable.
func TopComparables(target harvest.Property, all []harvest.Property, n int) []Comparable {
	comps := make([]Comparable, 0, len(all))
	for _, p := range all {
		if p.PropertyID == target.PropertyID {
			continue
		}
		comps = append(comps, Comparable{Property: p, SimilarityScore: SimilarityScore(target, p)})
	}
	sort.Slice(comps, func(i, j int) bool {
		if comps[i].SimilarityScore != comps[j].SimilarityScore {
			return comps[i].SimilarityScore > comps[j].SimilarityScore
		}
		return comps[i].PropertyID < comps[j].PropertyID
	})
	if n > 0 && len(comps) > n {
		comps = comps[:n]
	}
	return comps
}

// Insights derives the justification lines shown next to a flip verdict.
func Insights(target harvest.Property, comps []Comparable) []Insight {
	out := make([]Insight, 0, 5)

	avgPrice := meanOf(comps, func(c Comparable) float64 { return c.Price() })
	if avgPrice > 0 && target.Price() > 0 {
		diff := (target.Price() - avgPrice) / avgPrice * 100
		switch {
		case diff < -15:
			out = append(out, Insight{
				Type:       "price",
				Confidence: "high",
				Message:    fmt.Sprintf("Excellent price point! This property is %.1f%% below similar properties, indicating strong potential for value appreciation.", math.Abs(diff)),
			})
		case diff < -10:
			out = append(out, Insight{
				Type:       "price",
				Confidence: "high",
				Message:    fmt.Sprintf("Good price point! This property is %.1f%% below similar properties.", math.Abs(diff)),
			})
		}
	}

	avgSqft := meanOf(comps, func(c Comparable) float64 { return c.Sqft })
	if avgSqft > 0 && target.Sqft > 0 {
		diff := (target.Sqft - avgSqft) / avgSqft * 100
		if diff > 15 {
			out = append(out, Insight{
				Type:       "size",
				Confidence: "high",
				Message:    fmt.Sprintf("Significantly larger than average! This property is %.1f%% bigger than similar properties, offering more potential for value-add improvements.", diff),
			})
		}
	}

	avgPpsf := meanOf(comps, func(c Comparable) float64 {
		if c.Sqft <= 0 {
			return 0
		}
		return c.Price() / c.Sqft
	})
	if avgPpsf > 0 && target.Sqft > 0 && target.Price() > 0 {
		ppsf := target.Price() / target.Sqft
		diff := (ppsf - avgPpsf) / avgPpsf * 100
		if diff < -10 {
			out = append(out, Insight{
				Type:       "value",
				Confidence: "high",
				Message:    fmt.Sprintf("Excellent value! Price per square foot is %.1f%% below market average, indicating strong potential for appreciation.", math.Abs(diff)),
			})
		}
	}

	if target.DaysOnMarket > 45 {
		out = append(out, Insight{
			Type:       "timing",
			Confidence: "high",
			Message:    "Property has been on market for over 45 days. This presents a strong negotiation opportunity and potential for a below-market purchase.",
		})
	}

	if len(out) > 0 {
		positive := 0
		for _, a := range out {
			if a.Confidence == "high" {
				positive++
			}
		}
		total := len(out)
		switch {
		case float64(positive) >= float64(total)*0.7:
			out = append(out, Insight{
				Type:       "overall",
				Confidence: "high",
				Message:    "Strong flip potential! Multiple positive factors indicate this property could be a good investment opportunity.",
			})
		case float64(positive) >= float64(total)*0.5:
			out = append(out, Insight{
				Type:       "overall",
				Confidence: "medium",
				Message:    "Moderate flip potential. Consider this property if other factors align with your investment strategy.",
			})
		}
	}
	return out
}

// meanOf averages the positive values produced by f; zero values are treated
// as absent.
func meanOf(comps []Comparable, f func(Comparable) float64) float64 {
	sum, n := 0.0, 0
	for _, c := range comps {
		if v := f(c); v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
