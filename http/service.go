// Package httpapi exposes the dashboard's REST surface.
package httpapi

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yourorg/flipdash/harvest"
	"github.com/yourorg/flipdash/internal/dashboard"
	"github.com/yourorg/flipdash/internal/dataset"
	"github.com/yourorg/flipdash/internal/flip"
	"github.com/yourorg/flipdash/internal/ingest"
	"github.com/yourorg/flipdash/internal/market"
	"github.com/yourorg/flipdash/internal/panels"
	"github.com/yourorg/flipdash/internal/redisx"
)

var validate = validator.New()

// Deps carries everything the handlers need. Redis and Writer may be nil;
// the endpoints then skip caching and persistence.
type Deps struct {
	Client   *harvest.Client
	Data     *dataset.Set
	Writer   *ingest.Writer
	Redis    *redisx.Client
	Sessions *dashboard.Manager

	CacheTTL    time.Duration
	StaleAfter  time.Duration
	NegativeTTL time.Duration
}

const comparableCount = 5

// parseAmountField accepts the digit-grouped amounts users type into forms.
func parseAmountField(s string) (float64, error) {
	return dashboard.ParseAmount(s)
}

func (d Deps) cacheTTL() time.Duration {
	if d.CacheTTL > 0 {
		return d.CacheTTL
	}
	return time.Hour
}

func (d Deps) staleAfter() time.Duration {
	if d.StaleAfter > 0 {
		return d.StaleAfter
	}
	return 5 * time.Minute
}

func (d Deps) negativeTTL() time.Duration {
	if d.NegativeTTL > 0 {
		return d.NegativeTTL
	}
	return time.Minute
}

// others returns every property in the set except the target.
func others(all []harvest.Property, targetID string) []harvest.Property {
	out := make([]harvest.Property, 0, len(all))
	for _, p := range all {
		if p.PropertyID == targetID {
			continue
		}
		out = append(out, p)
	}
	return out
}

// buildMarketAnalysis assembles the market-analysis payload for a property
// against the rest of the given set.
func buildMarketAnalysis(p harvest.Property, all []harvest.Property) map[string]any {
	rest := others(all, p.PropertyID)
	comps := flip.TopComparables(p, all, comparableCount)
	analyses, metrics := market.Analyze(p, rest)
	return map[string]any{
		"property":              p,
		"market_metrics":        metrics,
		"comparable_properties": comps,
		"analysis":              analyses,
	}
}

// buildPricePrediction assembles the price-prediction payload.
func buildPricePrediction(p harvest.Property, all []harvest.Property, fallbackZip string) map[string]any {
	comps := flip.TopComparables(p, all, comparableCount)
	compProps := make([]harvest.Property, 0, len(comps))
	for _, c := range comps {
		compProps = append(compProps, c.Property)
	}
	zip := p.ZipCode
	if zip == "" {
		zip = fallbackZip
	}
	return map[string]any{
		"property":      p,
		"prediction":    market.PredictPrice(p, compProps),
		"market_trends": market.AnalyzeTrends(all, zip, time.Now()),
	}
}

// PanelFetches builds the analysis panel fetchers a dashboard session runs
// on selection. Fetchers resolve against the session's own result set, so a
// search in another session never invalidates an open panel here.
func PanelFetches(d Deps) func(src dashboard.PanelSource) map[string]panels.FetchFunc {
	return func(src dashboard.PanelSource) map[string]panels.FetchFunc {
		resolve := func(id string) (harvest.Property, error) {
			p, ok := src.Find(id)
			if !ok {
				return harvest.Property{}, fmt.Errorf("property %s is not in the current result set", id)
			}
			return p, nil
		}
		return map[string]panels.FetchFunc{
			"market_analysis": func(ctx context.Context, id string) (any, error) {
				p, err := resolve(id)
				if err != nil {
					return nil, err
				}
				return buildMarketAnalysis(p, src.Properties()), nil
			},
			"price_prediction": func(ctx context.Context, id string) (any, error) {
				p, err := resolve(id)
				if err != nil {
					return nil, err
				}
				return buildPricePrediction(p, src.Properties(), src.Zip()), nil
			},
		}
	}
}

// WarmAnalysis precomputes and caches both analysis payloads for a property.
// The background prefetcher calls this after a persist.
func WarmAnalysis(ctx context.Context, d Deps, propertyID string) {
	if d.Redis == nil || d.Data == nil {
		return
	}
	p, ok := d.Data.Find(propertyID)
	if !ok {
		return
	}
	all := d.Data.All()
	_ = d.Redis.SetEnvelope(ctx, marketAnalysisKey(p.PropertyID), buildMarketAnalysis(p, all), "prefetch", d.staleAfter(), d.cacheTTL())
	_ = d.Redis.SetEnvelope(ctx, pricePredictionKey(p.PropertyID), buildPricePrediction(p, all, d.Data.Zip()), "prefetch", d.staleAfter(), d.cacheTTL())
}

func marketAnalysisKey(id string) string  { return "analysis:market:" + id }
func pricePredictionKey(id string) string { return "analysis:price:" + id }
func trendsKey(zip string) string         { return "analysis:trends:" + zip }
