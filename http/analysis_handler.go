package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/flipdash/harvest"
	"github.com/yourorg/flipdash/internal/market"
	"github.com/yourorg/flipdash/internal/redisx"
)

func RegisterAnalysis(r chi.Router, d Deps) {
	r.Get("/api/market-analysis/{propertyID}", func(w http.ResponseWriter, req *http.Request) {
		serveAnalysis(w, req, d, chi.URLParam(req, "propertyID"), marketAnalysisKey, func(p harvest.Property) any {
			return buildMarketAnalysis(p, d.Data.All())
		})
	})

	r.Get("/api/price-prediction/{propertyID}", func(w http.ResponseWriter, req *http.Request) {
		serveAnalysis(w, req, d, chi.URLParam(req, "propertyID"), pricePredictionKey, func(p harvest.Property) any {
			return buildPricePrediction(p, d.Data.All(), d.Data.Zip())
		})
	})

	r.Get("/api/market-trends/{zip}", func(w http.ResponseWriter, req *http.Request) {
		zip := chi.URLParam(req, "zip")
		props := zipProperties(d, zip)
		if len(props) == 0 {
			render.Status(req, http.StatusNotFound)
			render.JSON(w, req, map[string]any{"error": "not_found", "detail": "no properties loaded for zip " + zip})
			return
		}
		if d.Redis != nil {
			if env, ok := d.Redis.GetEnvelope(req.Context(), trendsKey(zip)); ok {
				serveCached(w, req, env)
				return
			}
		}
		payload := map[string]any{
			"zip_code": zip,
			"trends":   market.AnalyzeTrends(props, zip, time.Now()),
		}
		cachePayload(req.Context(), d, trendsKey(zip), payload)
		render.JSON(w, req, payload)
	})
}

// serveAnalysis resolves the property, serves from cache when possible, and
// computes otherwise. Stale cache entries are served as-is and recomputed in
// the background; readers never wait on a refresh.
func serveAnalysis(w http.ResponseWriter, req *http.Request, d Deps, id string, key func(string) string, build func(harvest.Property) any) {
	if id == "" {
		render.Status(req, http.StatusBadRequest)
		render.JSON(w, req, map[string]any{"error": "property_id_required"})
		return
	}
	p, ok := d.Data.Find(id)
	if !ok {
		render.Status(req, http.StatusNotFound)
		render.JSON(w, req, map[string]any{"error": "not_found", "detail": "property " + id + " is not in the current result set"})
		return
	}
	cacheKey := key(p.PropertyID)

	if d.Redis != nil {
		if env, ok := d.Redis.GetEnvelope(req.Context(), cacheKey); ok {
			if time.Now().After(env.Meta.StaleAfter) {
				go func() {
					ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()
					// Lock so concurrent stale readers trigger one refresh.
					if locked, _ := d.Redis.SetNX(ctx, cacheKey+":lock", "1", 8*time.Second); locked {
						_ = d.Redis.SetEnvelope(ctx, cacheKey, build(p), "refresh", d.staleAfter(), d.cacheTTL())
					}
				}()
			}
			serveCached(w, req, env)
			return
		}
	}

	payload := build(p)
	cachePayload(req.Context(), d, cacheKey, payload)
	render.JSON(w, req, payload)
}

func serveCached(w http.ResponseWriter, req *http.Request, env redisx.Envelope) {
	render.JSON(w, req, env.Data)
}

func cachePayload(ctx context.Context, d Deps, key string, payload any) {
	if d.Redis == nil {
		return
	}
	_ = d.Redis.SetEnvelope(ctx, key, payload, "fresh", d.staleAfter(), d.cacheTTL())
}

// zipProperties returns the loaded properties for a zip. The set is scoped
// to the last searched zip, so a mismatched zip yields nothing.
func zipProperties(d Deps, zip string) []harvest.Property {
	all := d.Data.All()
	out := make([]harvest.Property, 0, len(all))
	for _, p := range all {
		if p.ZipCode == zip || (p.ZipCode == "" && d.Data.Zip() == zip) {
			out = append(out, p)
		}
	}
	if len(out) == 0 && d.Data.Zip() == zip {
		return all
	}
	return out
}
