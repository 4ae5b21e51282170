package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/flipdash/harvest"
)

type ScrapeRequest struct {
	ZipCode  string `json:"zip_code" validate:"required,len=5,numeric"`
	MaxPrice string `json:"max_price" validate:"required"`
	Limit    int    `json:"limit" validate:"omitempty,gt=0,lte=200"`
}

func RegisterProperties(r chi.Router, d Deps) {
	// GET returns whatever the last scrape loaded. An empty set is a valid
	// empty response, not an error.
	r.Get("/api/properties", func(w http.ResponseWriter, req *http.Request) {
		props := d.Data.All()
		render.JSON(w, req, map[string]any{
			"count":      len(props),
			"zip_code":   d.Data.Zip(),
			"properties": props,
		})
	})

	r.Post("/api/scrape", func(w http.ResponseWriter, req *http.Request) {
		var body ScrapeRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "invalid_json", "detail": err.Error()})
			return
		}
		if err := validate.Struct(body); err != nil {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "invalid_request", "detail": err.Error()})
			return
		}
		maxPrice, err := parseAmountField(body.MaxPrice)
		if err != nil || maxPrice <= 0 {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]any{"error": "invalid_request", "detail": "max_price must be a positive number"})
			return
		}
		limit := body.Limit
		if limit <= 0 {
			limit = 50
		}

		raw, err := d.Client.SearchForSale(req.Context(), body.ZipCode, maxPrice, limit)
		if err != nil {
			if errors.Is(err, harvest.ErrDailyLimitExceeded) {
				render.Status(req, http.StatusTooManyRequests)
				render.JSON(w, req, map[string]any{"error": "provider_quota", "detail": "daily quota reached"})
				return
			}
			render.Status(req, http.StatusBadGateway)
			render.JSON(w, req, map[string]any{"error": "upstream_error", "detail": err.Error()})
			return
		}
		props, err := harvest.NormalizePayload(raw)
		if err != nil {
			render.Status(req, http.StatusInternalServerError)
			render.JSON(w, req, map[string]any{"error": "normalize_error", "detail": err.Error()})
			return
		}

		d.Data.Replace(body.ZipCode, props)
		persistBatch(d, body.ZipCode, props, raw)

		log.Printf("[INFO] scraped %d properties for %s", len(props), body.ZipCode)
		render.JSON(w, req, map[string]any{
			"message":          "Scraped successfully",
			"properties_count": len(props),
			"properties":       props,
		})
	})
}

// persistBatch hands the batch to the write-behind path. The request does
// not wait on the database.
func persistBatch(d Deps, zip string, props []harvest.Property, raw []byte) {
	if !d.Writer.Enabled() || len(props) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := d.Writer.Write(ctx, "rapidapi.homeharvest", "search/forsale", zip, props, raw); err != nil {
			log.Printf("[WARN] persist for %s failed: %v", zip, err)
		}
	}()
}
