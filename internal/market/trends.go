package market

import (
	"sort"
	"time"

	"github.com/yourorg/flipdash/harvest"
)

// MonthlyTrend is one month's aggregate over listed prices.
type MonthlyTrend struct {
	Date        string  `json:"date"` // YYYY-MM
	MeanPrice   float64 `json:"mean_price"`
	Count       int     `json:"count"`
	PriceChange float64 `json:"price_change"` // percent vs. previous month
}

// Trends summarizes price movement for a market (usually one zip code).
type Trends struct {
	CurrentPrice    float64        `json:"current_price"`
	PriceChange3M   float64        `json:"price_change_3m"`
	PriceChange6M   float64        `json:"price_change_6m"`
	PriceChange12M  float64        `json:"price_change_12m"`
	AvgDaysOnMarket float64        `json:"avg_days_on_market"`
	MonthlyTrends   []MonthlyTrend `json:"monthly_trends"`
}

var listDateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006",
	"2006/01/02",
}

// parseListDate parses the provider's assorted date formats. Records with
// unparseable dates bucket into the current month rather than being dropped.
func parseListDate(s string, now time.Time) time.Time {
	for _, layout := range listDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return now
}

// AnalyzeTrends buckets the set by listing month and derives month-over-month
// movement. When zipCode is non-empty only matching records contribute.
func AnalyzeTrends(props []harvest.Property, zipCode string, now time.Time) Trends {
	type bucket struct {
		priceSum float64
		priceN   int
		domSum   float64
		domN     int
	}
	buckets := make(map[string]*bucket)
	for _, p := range props {
		if zipCode != "" && p.ZipCode != zipCode {
			continue
		}
		month := parseListDate(p.ListDate, now).Format("2006-01")
		b := buckets[month]
		if b == nil {
			b = &bucket{}
			buckets[month] = b
		}
		if price := p.Price(); price > 0 {
			b.priceSum += price
			b.priceN++
		}
		if p.DaysOnMarket > 0 {
			b.domSum += float64(p.DaysOnMarket)
			b.domN++
		}
	}

	months := make([]string, 0, len(buckets))
	for m, b := range buckets {
		if b.priceN > 0 {
			months = append(months, m)
		}
	}
	sort.Strings(months)

	monthly := make([]MonthlyTrend, 0, len(months))
	domMeans := make([]float64, 0, len(months))
	prev := 0.0
	for i, m := range months {
		b := buckets[m]
		mean := b.priceSum / float64(b.priceN)
		change := 0.0
		if i > 0 && prev > 0 {
			change = (mean - prev) / prev * 100
		}
		monthly = append(monthly, MonthlyTrend{
			Date:        m,
			MeanPrice:   mean,
			Count:       b.priceN,
			PriceChange: change,
		})
		if b.domN > 0 {
			domMeans = append(domMeans, b.domSum/float64(b.domN))
		}
		prev = mean
	}

	t := Trends{MonthlyTrends: monthly}
	if len(monthly) > 0 {
		t.CurrentPrice = monthly[len(monthly)-1].MeanPrice
	}
	t.PriceChange3M = tailChangeMean(monthly, 3)
	t.PriceChange6M = tailChangeMean(monthly, 6)
	t.PriceChange12M = tailChangeMean(monthly, 12)
	t.AvgDaysOnMarket = tailMean(domMeans, 3)
	return t
}

// tailChangeMean averages the last n month-over-month changes, or 0 when the
// series is shorter than n.
func tailChangeMean(monthly []MonthlyTrend, n int) float64 {
	if len(monthly) < n {
		return 0
	}
	sum := 0.0
	for _, m := range monthly[len(monthly)-n:] {
		sum += m.PriceChange
	}
	return sum / float64(n)
}

func tailMean(vals []float64, n int) float64 {
	if len(vals) == 0 {
		return 0
	}
	if len(vals) > n {
		vals = vals[len(vals)-n:]
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
