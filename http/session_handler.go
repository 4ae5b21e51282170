package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/flipdash/harvest"
	"github.com/yourorg/flipdash/internal/dashboard"
)

type SearchBody struct {
	ZipCode  string `json:"zip_code"`
	MaxPrice string `json:"max_price"`
}

type SelectBody struct {
	PropertyID string `json:"property_id"`
}

func RegisterSessions(r chi.Router, d Deps) {
	r.Post("/api/session", func(w http.ResponseWriter, req *http.Request) {
		s := d.Sessions.Create(req.Context())
		render.Status(req, http.StatusCreated)
		render.JSON(w, req, map[string]any{"session_id": s.ID})
	})

	r.Route("/api/session/{sessionID}", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				id := chi.URLParam(req, "sessionID")
				if _, ok := d.Sessions.Get(id); !ok {
					render.Status(req, http.StatusNotFound)
					render.JSON(w, req, map[string]any{"error": "session_not_found"})
					return
				}
				next.ServeHTTP(w, req)
			})
		})

		r.Post("/search", func(w http.ResponseWriter, req *http.Request) {
			s, _ := d.Sessions.Get(chi.URLParam(req, "sessionID"))
			var body SearchBody
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				render.Status(req, http.StatusBadRequest)
				render.JSON(w, req, map[string]any{"error": "invalid_json", "detail": err.Error()})
				return
			}
			n, err := s.Search(req.Context(), body.ZipCode, body.MaxPrice)
			if err != nil {
				writeSessionErr(w, req, err)
				return
			}
			render.JSON(w, req, map[string]any{"loaded": n, "view": s.View()})
		})

		r.Put("/filters", func(w http.ResponseWriter, req *http.Request) {
			s, _ := d.Sessions.Get(chi.URLParam(req, "sessionID"))
			var body dashboard.FiltersInput
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				render.Status(req, http.StatusBadRequest)
				render.JSON(w, req, map[string]any{"error": "invalid_json", "detail": err.Error()})
				return
			}
			if err := s.SetFilters(body); err != nil {
				writeSessionErr(w, req, err)
				return
			}
			render.JSON(w, req, s.View())
		})

		r.Post("/select", func(w http.ResponseWriter, req *http.Request) {
			s, _ := d.Sessions.Get(chi.URLParam(req, "sessionID"))
			var body SelectBody
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				render.Status(req, http.StatusBadRequest)
				render.JSON(w, req, map[string]any{"error": "invalid_json", "detail": err.Error()})
				return
			}
			if _, err := s.Select(req.Context(), body.PropertyID); err != nil {
				writeSessionErr(w, req, err)
				return
			}
			render.JSON(w, req, map[string]any{"selected_id": s.Selected()})
		})

		r.Get("/view", func(w http.ResponseWriter, req *http.Request) {
			s, _ := d.Sessions.Get(chi.URLParam(req, "sessionID"))
			render.JSON(w, req, s.View())
		})

		r.Get("/map/commands", func(w http.ResponseWriter, req *http.Request) {
			s, _ := d.Sessions.Get(chi.URLParam(req, "sessionID"))
			cmds := s.Commands()
			render.JSON(w, req, map[string]any{"count": len(cmds), "commands": cmds})
		})

		r.Post("/map/hover", func(w http.ResponseWriter, req *http.Request) {
			s, _ := d.Sessions.Get(chi.URLParam(req, "sessionID"))
			var body SelectBody
			if err := json.NewDecoder(req.Body).Decode(&body); err == nil {
				s.HoverMarker(body.PropertyID)
			}
			render.JSON(w, req, map[string]any{"ok": true})
		})

		r.Post("/map/leave", func(w http.ResponseWriter, req *http.Request) {
			s, _ := d.Sessions.Get(chi.URLParam(req, "sessionID"))
			var body SelectBody
			if err := json.NewDecoder(req.Body).Decode(&body); err == nil {
				s.LeaveMarker(body.PropertyID)
			}
			render.JSON(w, req, map[string]any{"ok": true})
		})

		r.Post("/map/click", func(w http.ResponseWriter, req *http.Request) {
			s, _ := d.Sessions.Get(chi.URLParam(req, "sessionID"))
			var body SelectBody
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				render.Status(req, http.StatusBadRequest)
				render.JSON(w, req, map[string]any{"error": "invalid_json", "detail": err.Error()})
				return
			}
			s.ClickMarker(body.PropertyID)
			render.JSON(w, req, map[string]any{"selected_id": s.Selected()})
		})

		r.Get("/panels", func(w http.ResponseWriter, req *http.Request) {
			s, _ := d.Sessions.Get(chi.URLParam(req, "sessionID"))
			render.JSON(w, req, s.Panels())
		})

		r.Delete("/", func(w http.ResponseWriter, req *http.Request) {
			d.Sessions.Close(chi.URLParam(req, "sessionID"))
			render.JSON(w, req, map[string]any{"closed": true})
		})
	})
}

func writeSessionErr(w http.ResponseWriter, req *http.Request, err error) {
	switch {
	case errors.Is(err, dashboard.ErrUnknownProperty):
		render.Status(req, http.StatusNotFound)
		render.JSON(w, req, map[string]any{"error": "not_found", "detail": err.Error()})
	case errors.Is(err, harvest.ErrDailyLimitExceeded):
		render.Status(req, http.StatusTooManyRequests)
		render.JSON(w, req, map[string]any{"error": "provider_quota", "detail": "daily quota reached"})
	case errors.Is(err, dashboard.ErrSessionClosed):
		render.Status(req, http.StatusGone)
		render.JSON(w, req, map[string]any{"error": "session_closed"})
	default:
		render.Status(req, http.StatusBadRequest)
		render.JSON(w, req, map[string]any{"error": "invalid_request", "detail": err.Error()})
	}
}
