// Package flip scores properties for flip potential and selects comparable
// listings. The scoring is rule-based; thresholds come from the market team
// and are not tunable at runtime.
package flip

// Input is the attribute bag scored by Predict.
type Input struct {
	Price        float64
	Sqft         float64
	Beds         float64
	Baths        float64
	DaysOnMarket int
}

// Result is a flip verdict with the 0-100 confidence score and the reasons
// that contributed to it.
type Result struct {
	IsGoodFlip      bool     `json:"is_good_flip"`
	ConfidenceScore float64  `json:"confidence_score"`
	Reasons         []string `json:"reasons"`
}

// Predict applies the scoring rules. A property with no bath count cannot be
// ratio-scored and is treated as invalid data, matching the upstream model's
// behavior.
func Predict(in Input) Result {
	if in.Baths <= 0 {
		return Result{IsGoodFlip: false, ConfidenceScore: 0, Reasons: []string{"Invalid property data"}}
	}

	score := 0.0
	reasons := make([]string, 0, 4)

	var pricePerSqft float64
	if in.Sqft > 0 {
		pricePerSqft = in.Price / in.Sqft
	}
	if pricePerSqft >= 100 && pricePerSqft <= 200 {
		score += 30
		reasons = append(reasons, "Good price per square foot")
	}

	if in.DaysOnMarket > 60 {
		score += 20
		reasons = append(reasons, "Property may be more negotiable due to longer market time")
	}

	ratio := in.Beds / in.Baths
	if ratio >= 1.5 && ratio <= 2.5 {
		score += 20
		reasons = append(reasons, "Good bed to bath ratio")
	}

	if in.Sqft >= 1000 && in.Sqft <= 3000 {
		score += 30
		reasons = append(reasons, "Optimal property size for flipping")
	}

	return Result{
		IsGoodFlip:      score >= 60,
		ConfidenceScore: score,
		Reasons:         reasons,
	}
}
