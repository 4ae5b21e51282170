package httpapi

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/flipdash/harvest"
	"github.com/yourorg/flipdash/internal/flip"
)

func RegisterPredict(r chi.Router, d Deps) {
	// POST /api/predict evaluates an arbitrary property attribute bag. The
	// body goes through the same normalization as scraped listings, so the
	// aliases and formatted numbers feeds produce are all accepted.
	r.Post("/api/predict", func(w http.ResponseWriter, req *http.Request) {
		raw, err := io.ReadAll(io.LimitReader(req.Body, 1<<20))
		if err != nil {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "invalid_body", "detail": err.Error()})
			return
		}
		p, err := harvest.NormalizeOne(raw)
		if err != nil {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "invalid_json", "detail": err.Error()})
			return
		}

		verdict := flip.Predict(flip.Input{
			Price:        p.Price(),
			Sqft:         p.Sqft,
			Beds:         p.Beds,
			Baths:        p.Baths,
			DaysOnMarket: p.DaysOnMarket,
		})

		all := d.Data.All()
		comps := flip.TopComparables(p, all, comparableCount)
		render.JSON(w, req, map[string]any{
			"is_good_flip":       verdict.IsGoodFlip,
			"confidence_score":   verdict.ConfidenceScore,
			"reasons":            verdict.Reasons,
			"similar_properties": comps,
			"analysis":           flip.Insights(p, comps),
		})
	})
}
