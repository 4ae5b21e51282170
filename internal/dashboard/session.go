// Package dashboard owns per-user dashboard state: the loaded result set,
// active filters, the current selection, and the map and analysis panels
// derived from them. One Session is one dashboard instance.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/yourorg/flipdash/harvest"
	"github.com/yourorg/flipdash/internal/dataset"
	"github.com/yourorg/flipdash/internal/flip"
	"github.com/yourorg/flipdash/internal/mapview"
	"github.com/yourorg/flipdash/internal/panels"
)

var (
	ErrUnknownProperty = errors.New("property not in current result set")
	ErrSessionClosed   = errors.New("session is closed")
)

var zipPattern = regexp.MustCompile(`^\d{5}$`)

// hiddenStatuses are excluded from the default view; listings already off
// the market are noise when hunting for flips.
var hiddenStatuses = map[string]struct{}{
	"PENDING": {},
	"SOLD":    {},
	"CLOSED":  {},
}

// SearchFunc loads normalized properties for a zip, bounded by max price.
type SearchFunc func(ctx context.Context, zip string, maxPrice float64, limit int) ([]harvest.Property, error)

// PanelSource is the property pool panel fetchers resolve against. Each
// session passes itself, so panels read the session's own result set rather
// than any shared state.
type PanelSource interface {
	Find(id string) (harvest.Property, bool)
	Properties() []harvest.Property
	Zip() string
}

// Config wires a session's collaborators.
type Config struct {
	Search       SearchFunc
	MapKey       string
	Loader       *mapview.Loader // nil uses the process-wide loader
	PanelFetches func(src PanelSource) map[string]panels.FetchFunc
	SearchLimit  int
}

// Session is one dashboard. All mutation goes through its methods; the HTTP
// layer holds a pointer and nothing else.
type Session struct {
	ID string

	mu        sync.Mutex
	cfg       Config
	set       *dataset.Set
	filters   Filters
	selected  string
	recorder  *mapview.Recorder
	registry  *mapview.Registry
	panels    *panels.Fetcher
	mapHandle *mapview.Handle
	mapErr    string
	closed    bool
}

// NewSession builds a dashboard and acquires the shared map provider. A map
// load failure is recorded component-locally; the list side keeps working.
func NewSession(ctx context.Context, cfg Config) *Session {
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 50
	}
	s := &Session{
		ID:       uuid.NewString(),
		cfg:      cfg,
		set:      dataset.New(),
		recorder: mapview.NewRecorder(),
		panels:   panels.NewFetcher(),
	}
	s.registry = mapview.NewRegistry(s.recorder, s.markerSelected)
	if cfg.PanelFetches != nil {
		for name, fetch := range cfg.PanelFetches(s) {
			s.panels.Register(name, fetch)
		}
	}

	acquire := mapview.Acquire
	if cfg.Loader != nil {
		acquire = cfg.Loader.Acquire
	}
	h, err := acquire(ctx, cfg.MapKey)
	if err != nil {
		log.Printf("[WARN] session %s: map provider unavailable: %v", s.ID, err)
		s.mapErr = err.Error()
	} else {
		s.mapHandle = h
	}
	return s
}

// Search validates inputs, loads a fresh result set, and replaces the old
// one wholesale. A selection that no longer resolves is cleared.
func (s *Session) Search(ctx context.Context, zip, maxPriceText string) (int, error) {
	if !zipPattern.MatchString(zip) {
		return 0, fmt.Errorf("zip code must be 5 digits, got %q", zip)
	}
	maxPrice, err := ParseAmount(maxPriceText)
	if err != nil {
		return 0, fmt.Errorf("max price: %w", err)
	}
	if maxPrice <= 0 {
		return 0, errors.New("max price must be greater than zero")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrSessionClosed
	}
	cfg := s.cfg
	s.mu.Unlock()

	props, err := cfg.Search(ctx, zip, maxPrice, cfg.SearchLimit)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrSessionClosed
	}
	s.set.Replace(zip, props)
	if s.selected != "" && !s.set.Contains(s.selected) {
		log.Printf("[INFO] session %s: selection %s gone after search, clearing", s.ID, s.selected)
		s.selected = ""
		s.panels.Clear()
	}
	s.syncMapLocked()
	return len(props), nil
}

// SetFilters replaces the active filters and recomputes the derived view.
// The selection is not touched; a selected property hidden by a filter keeps
// its panels.
func (s *Session) SetFilters(in FiltersInput) error {
	f, err := in.Parse()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.filters = f
	s.syncMapLocked()
	return nil
}

// Select makes the property the current selection and fans out to the map
// and panels. An id that does not resolve in the loaded set is a logged
// no-op; existing state is untouched.
func (s *Session) Select(ctx context.Context, id string) (<-chan struct{}, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	p, ok := s.set.Find(id)
	if !ok {
		s.mu.Unlock()
		log.Printf("[WARN] session %s: select of unknown property %s ignored", s.ID, id)
		return nil, ErrUnknownProperty
	}
	s.selected = p.PropertyID
	s.registry.Select(p.PropertyID)
	done := s.panels.Select(ctx, p.PropertyID)
	s.mu.Unlock()
	return done, nil
}

// HoverMarker opens the transient popup for a marker.
func (s *Session) HoverMarker(id string) { s.registry.Hover(id) }

// LeaveMarker closes the transient popup for a marker.
func (s *Session) LeaveMarker(id string) { s.registry.Leave(id) }

// ClickMarker selects a property through its marker. The registry calls
// back into markerSelected, which owns the session-side bookkeeping.
func (s *Session) ClickMarker(id string) { s.registry.Click(id) }

// markerSelected mirrors a map click back into the session.
func (s *Session) markerSelected(id string) {
	s.mu.Lock()
	if s.closed || !s.set.Contains(id) {
		s.mu.Unlock()
		return
	}
	s.selected = id
	s.panels.Select(context.Background(), id)
	s.mu.Unlock()
}

// View is the list-side snapshot the client renders.
type View struct {
	SessionID  string             `json:"session_id"`
	Zip        string             `json:"zip,omitempty"`
	Filters    Filters            `json:"filters"`
	SelectedID string             `json:"selected_id,omitempty"`
	Total      int                `json:"total"`
	Properties []harvest.Property `json:"properties"`
	MapError   string             `json:"map_error,omitempty"`
}

// View returns the filtered, ordered result view.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	visible := s.visibleLocked()
	return View{
		SessionID:  s.ID,
		Zip:        s.set.Zip(),
		Filters:    s.filters,
		SelectedID: s.selected,
		Total:      s.set.Len(),
		Properties: visible,
		MapError:   s.combinedMapErrLocked(),
	}
}

// Commands drains the recorded map mutations since the last call.
func (s *Session) Commands() []mapview.Command {
	return s.recorder.Drain()
}

// Panels snapshots the analysis panel states.
func (s *Session) Panels() map[string]panels.Panel {
	return s.panels.Snapshot()
}

// Find resolves a property id in this session's loaded set.
func (s *Session) Find(id string) (harvest.Property, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.Find(id)
}

// Properties snapshots this session's loaded set, unfiltered.
func (s *Session) Properties() []harvest.Property {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.All()
}

// Zip returns the zip of the last search, empty before any.
func (s *Session) Zip() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.Zip()
}

// Selected returns the current selection id, empty when none.
func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Close tears down the map and releases the shared provider handle.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	hadHandle := s.mapHandle != nil
	s.mapHandle = nil
	loader := s.cfg.Loader
	s.registry.Teardown()
	s.panels.Clear()
	s.mu.Unlock()

	if hadHandle {
		if loader != nil {
			loader.Release()
		} else {
			mapview.Release()
		}
	}
}

// visibleLocked applies filters and the stable default ordering. Bounds are
// inclusive; a property priced exactly at max price stays in.
func (s *Session) visibleLocked() []harvest.Property {
	all := s.set.All()
	out := make([]harvest.Property, 0, len(all))
	f := s.filters
	for _, p := range all {
		if _, hidden := hiddenStatuses[p.Status]; hidden {
			continue
		}
		price := p.Price()
		if f.MinPrice > 0 && price < f.MinPrice {
			continue
		}
		if f.MaxPrice > 0 && price > f.MaxPrice {
			continue
		}
		if f.MinSqft > 0 && p.Sqft < f.MinSqft {
			continue
		}
		if f.MaxSqft > 0 && p.Sqft > f.MaxSqft {
			continue
		}
		if f.GoodFlipsOnly {
			verdict := flip.Predict(flip.Input{
				Price:        price,
				Sqft:         p.Sqft,
				Beds:         p.Beds,
				Baths:        p.Baths,
				DaysOnMarket: p.DaysOnMarket,
			})
			if !verdict.IsGoodFlip {
				continue
			}
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Price(), out[j].Price()
		if pi != pj {
			return pi > pj
		}
		return out[i].PropertyID < out[j].PropertyID
	})
	return out
}

// syncMapLocked pushes the current view at the marker registry. Registry
// errors stay component-local.
func (s *Session) syncMapLocked() {
	if err := s.registry.Sync(s.visibleLocked()); err != nil {
		log.Printf("[WARN] session %s: map sync: %v", s.ID, err)
	}
}

func (s *Session) combinedMapErrLocked() string {
	if s.mapErr != "" {
		return s.mapErr
	}
	return s.registry.Err()
}
