// Package market derives comparison metrics, confidence-tagged analyses,
// price trends, and price estimates from a set of comparable properties.
// Every numeric output is nil rather than NaN when inputs are missing.
package market

import (
	"fmt"
	"math"
	"sort"

	"github.com/yourorg/flipdash/harvest"
)

// Metrics are the headline averages over a comparable set. Nil means the
// input had no usable values for that metric.
type Metrics struct {
	AvgPrice        *float64 `json:"avg_price"`
	MedianPrice     *float64 `json:"median_price"`
	AvgSqft         *float64 `json:"avg_sqft"`
	AvgDaysOnMarket *float64 `json:"avg_days_on_market"`
	AvgPricePerSqft *float64 `json:"avg_price_per_sqft"`
}

// Analysis is one confidence-tagged insight about the target property.
type Analysis struct {
	Type       string             `json:"type"`
	Confidence string             `json:"confidence"`
	Message    string             `json:"message"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

// nearbyRadiusMiles bounds the location analysis to properties around the
// target.
const nearbyRadiusMiles = 1.0

// CalcMetrics computes averages over the comparables, skipping records with
// missing or non-positive values per metric. Price per sqft is averaged
// pairwise over records holding both a price and a size.
func CalcMetrics(comps []harvest.Property) Metrics {
	var prices, sqfts, doms, ppsfs []float64
	for _, c := range comps {
		if p := c.Price(); p > 0 {
			prices = append(prices, p)
		}
		if c.Sqft > 0 {
			sqfts = append(sqfts, c.Sqft)
		}
		if c.DaysOnMarket >= 0 {
			doms = append(doms, float64(c.DaysOnMarket))
		}
		if c.Price() > 0 && c.Sqft > 0 {
			ppsfs = append(ppsfs, c.Price()/c.Sqft)
		}
	}
	return Metrics{
		AvgPrice:        meanPtr(prices),
		MedianPrice:     medianPtr(prices),
		AvgSqft:         meanPtr(sqfts),
		AvgDaysOnMarket: meanPtr(doms),
		AvgPricePerSqft: meanPtr(ppsfs),
	}
}

// Analyze produces the ordered analysis list for a target property against
// its comparables. The overall assessment is always last.
func Analyze(target harvest.Property, comps []harvest.Property) ([]Analysis, Metrics) {
	metrics := CalcMetrics(comps)
	out := make([]Analysis, 0, 5)

	if a := analyzePrice(target, metrics); a != nil {
		out = append(out, *a)
	}
	if a := analyzeSize(target, metrics); a != nil {
		out = append(out, *a)
	}
	if a := analyzeTiming(target, metrics); a != nil {
		out = append(out, *a)
	}
	if a := analyzeLocation(target, comps); a != nil {
		out = append(out, *a)
	}
	out = append(out, overallAssessment(out))
	return out, metrics
}

func analyzePrice(target harvest.Property, m Metrics) *Analysis {
	if target.Price() <= 0 || m.AvgPrice == nil || *m.AvgPrice == 0 {
		return nil
	}
	diff := (target.Price() - *m.AvgPrice) / *m.AvgPrice * 100
	a := Analysis{
		Type: "price",
		Metrics: map[string]float64{
			"difference_percent": diff,
			"market_average":     *m.AvgPrice,
		},
	}
	switch {
	case diff < -15:
		a.Confidence = "high"
		a.Message = fmt.Sprintf("Excellent opportunity! Property is %.1f%% below market average, suggesting strong potential for value appreciation.", math.Abs(diff))
	case diff < -5:
		a.Confidence = "medium"
		a.Message = fmt.Sprintf("Good value! Property is %.1f%% below market average.", math.Abs(diff))
	default:
		a.Confidence = "low"
		a.Message = fmt.Sprintf("Property is priced %.1f%% %s market average.", math.Abs(diff), aboveBelow(diff))
	}
	return &a
}

func analyzeSize(target harvest.Property, m Metrics) *Analysis {
	if target.Sqft <= 0 || m.AvgSqft == nil || *m.AvgSqft == 0 {
		return nil
	}
	sizeDiff := (target.Sqft - *m.AvgSqft) / *m.AvgSqft * 100

	var msg string
	if math.Abs(sizeDiff) > 10 {
		word := "smaller"
		if sizeDiff > 0 {
			word = "larger"
		}
		msg = fmt.Sprintf("Property is %.1f%% %s than average.", math.Abs(sizeDiff), word)
	}

	metrics := map[string]float64{"size_difference_percent": sizeDiff}
	if target.Price() > 0 && m.AvgPricePerSqft != nil && *m.AvgPricePerSqft > 0 {
		ppsf := target.Price() / target.Sqft
		ppsfDiff := (ppsf - *m.AvgPricePerSqft) / *m.AvgPricePerSqft * 100
		if msg != "" {
			msg += " "
		}
		msg += fmt.Sprintf("Price per sqft is %.1f%% %s market average.", math.Abs(ppsfDiff), aboveBelow(ppsfDiff))
		metrics["price_per_sqft"] = ppsf
		metrics["market_avg_price_per_sqft"] = *m.AvgPricePerSqft
	}
	if msg == "" {
		return nil
	}

	confidence := "medium"
	if math.Abs(sizeDiff) > 15 {
		confidence = "high"
	}
	return &Analysis{Type: "size", Confidence: confidence, Message: msg, Metrics: metrics}
}

func analyzeTiming(target harvest.Property, m Metrics) *Analysis {
	if target.DaysOnMarket <= 0 || m.AvgDaysOnMarket == nil || *m.AvgDaysOnMarket <= 0 {
		return nil
	}
	dom := float64(target.DaysOnMarket)
	avg := *m.AvgDaysOnMarket
	a := Analysis{
		Type: "market_timing",
		Metrics: map[string]float64{
			"days_on_market":     dom,
			"avg_days_on_market": avg,
		},
	}
	switch {
	case dom > avg*1.5:
		a.Confidence = "high"
		a.Message = fmt.Sprintf("Property has been on market for %d days (vs. average %.0f days). This extended duration may provide negotiating leverage.", target.DaysOnMarket, avg)
	case dom > avg:
		a.Confidence = "medium"
		a.Message = fmt.Sprintf("Property has been listed for %d days, slightly above the average of %.0f days.", target.DaysOnMarket, avg)
	default:
		a.Confidence = "low"
		a.Message = fmt.Sprintf("Recently listed property (%d days on market vs. average %.0f days).", target.DaysOnMarket, avg)
	}
	return &a
}

func analyzeLocation(target harvest.Property, comps []harvest.Property) *Analysis {
	if !target.HasValidCoords() {
		return nil
	}
	nearby := nearbyProperties(target, comps, nearbyRadiusMiles)
	if len(nearby) == 0 {
		return nil
	}

	var prices []float64
	for _, p := range nearby {
		if p.Price() > 0 {
			prices = append(prices, p.Price())
		}
	}
	avgNearby := meanPtr(prices)
	trend := priceTrend(nearby)

	msg := ""
	metrics := map[string]float64{"nearby_properties_count": float64(len(nearby))}
	if avgNearby != nil && *avgNearby > 0 && target.Price() > 0 {
		diff := (target.Price() - *avgNearby) / *avgNearby * 100
		msg = fmt.Sprintf("Property is priced %.1f%% %s nearby properties.", math.Abs(diff), aboveBelow(diff))
		metrics["avg_nearby_price"] = *avgNearby
	}
	if trend != 0 {
		word := "decreased"
		if trend > 0 {
			word = "increased"
		}
		if msg != "" {
			msg += " "
		}
		msg += fmt.Sprintf("Area prices have %s %.1f%% recently.", word, math.Abs(trend))
		metrics["price_trend"] = trend
	}
	if msg == "" {
		return nil
	}

	confidence := "medium"
	if len(nearby) >= 3 {
		confidence = "high"
	}
	return &Analysis{Type: "location", Confidence: confidence, Message: msg, Metrics: metrics}
}

func overallAssessment(analyses []Analysis) Analysis {
	if len(analyses) == 0 {
		return Analysis{
			Type:       "overall",
			Confidence: "low",
			Message:    "Insufficient data available for a comprehensive analysis.",
			Metrics:    map[string]float64{"score": 0, "high_confidence_factors": 0, "medium_confidence_factors": 0},
		}
	}
	high, medium := 0, 0
	for _, a := range analyses {
		switch a.Confidence {
		case "high":
			high++
		case "medium":
			medium++
		}
	}
	score := float64(high*2+medium) / float64(len(analyses)*2) * 100

	a := Analysis{
		Type: "overall",
		Metrics: map[string]float64{
			"score":                     score,
			"high_confidence_factors":   float64(high),
			"medium_confidence_factors": float64(medium),
		},
	}
	switch {
	case score >= 70:
		a.Confidence = "high"
		a.Message = "Strong investment opportunity with multiple positive indicators."
	case score >= 50:
		a.Confidence = "medium"
		a.Message = "Moderate investment opportunity with some positive indicators."
	default:
		a.Confidence = "low"
		a.Message = "Exercise caution. Limited positive indicators found."
	}
	return a
}

// priceTrend is the percent change between the oldest and newest listed
// prices in the set. Properties without a list date or price are ignored.
func priceTrend(props []harvest.Property) float64 {
	type dated struct {
		date  string
		price float64
	}
	rows := make([]dated, 0, len(props))
	for _, p := range props {
		if p.ListDate != "" && p.Price() > 0 {
			rows = append(rows, dated{p.ListDate, p.Price()})
		}
	}
	if len(rows) < 2 {
		return 0
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].date < rows[j].date })
	first, last := rows[0].price, rows[len(rows)-1].price
	if first == 0 {
		return 0
	}
	return (last - first) / first * 100
}

func aboveBelow(diff float64) string {
	if diff > 0 {
		return "above"
	}
	return "below"
}

func meanPtr(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	m := sum / float64(len(vals))
	return &m
}

func medianPtr(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	var m float64
	n := len(sorted)
	if n%2 == 1 {
		m = sorted[n/2]
	} else {
		m = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return &m
}
