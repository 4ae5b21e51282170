package dashboard

import (
	"fmt"
	"strconv"
	"strings"
)

// Filters narrows the loaded result set. Zero bounds mean no constraint.
type Filters struct {
	MinPrice      float64 `json:"min_price,omitempty"`
	MaxPrice      float64 `json:"max_price,omitempty"`
	MinSqft       float64 `json:"min_sqft,omitempty"`
	MaxSqft       float64 `json:"max_sqft,omitempty"`
	GoodFlipsOnly bool    `json:"good_flips_only,omitempty"`
}

// FiltersInput carries the raw form text before parsing. Users type amounts
// with digit grouping ("1,000,000"); parsing happens here, in one place.
type FiltersInput struct {
	MinPrice      string `json:"min_price"`
	MaxPrice      string `json:"max_price"`
	MinSqft       string `json:"min_sqft"`
	MaxSqft       string `json:"max_sqft"`
	GoodFlipsOnly bool   `json:"good_flips_only"`
}

// ParseAmount turns user-entered numeric text into a value. Empty means
// unset. Grouping separators, currency signs, and underscores are accepted.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	cleaned := strings.NewReplacer(",", "", "_", "", "$", "", " ", "").Replace(s)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("must not be negative: %q", s)
	}
	return v, nil
}

// Parse validates and converts form input into Filters.
func (in FiltersInput) Parse() (Filters, error) {
	var f Filters
	var err error
	if f.MinPrice, err = ParseAmount(in.MinPrice); err != nil {
		return f, fmt.Errorf("min price: %w", err)
	}
	if f.MaxPrice, err = ParseAmount(in.MaxPrice); err != nil {
		return f, fmt.Errorf("max price: %w", err)
	}
	if f.MinSqft, err = ParseAmount(in.MinSqft); err != nil {
		return f, fmt.Errorf("min sqft: %w", err)
	}
	if f.MaxSqft, err = ParseAmount(in.MaxSqft); err != nil {
		return f, fmt.Errorf("max sqft: %w", err)
	}
	f.GoodFlipsOnly = in.GoodFlipsOnly
	return f, nil
}
