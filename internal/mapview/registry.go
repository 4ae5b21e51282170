package mapview

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/yourorg/flipdash/harvest"
)

// maxFitZoom caps how far Sync zooms in when fitting a tight cluster.
const maxFitZoom = 15

// defaultZoom is used when every marker sits on the same point and a fitted
// zoom would be meaningless.
const defaultZoom = 13

// ErrNotReady is returned by Sync when the widget namespace is unavailable.
var ErrNotReady = errors.New("map widget is not ready")

type markerState int

const (
	markerIdle markerState = iota
	markerHovered
	markerSelected
)

type marker struct {
	state markerState
	lat   float64
	lng   float64
}

// Registry tracks every marker the widget knows about and drives the
// placed/hovered/selected transitions. All widget mutations flow through it;
// nothing else adds or removes markers.
type Registry struct {
	mu       sync.Mutex
	widget   Widget
	markers  map[string]*marker
	hovered  string
	selected string
	onSelect func(id string)
	errMsg   string
}

// NewRegistry wires a registry to a widget. onSelect fires when a marker
// click promotes a property to selected; it may be nil.
func NewRegistry(w Widget, onSelect func(id string)) *Registry {
	return &Registry{
		widget:   w,
		markers:  make(map[string]*marker),
		onSelect: onSelect,
	}
}

// Err returns the registry's component-local error message, empty when
// healthy. Marker failures land here instead of propagating to the caller so
// a bad map never blocks list rendering.
func (r *Registry) Err() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errMsg
}

// Selected returns the id of the selected marker, empty when none.
func (r *Registry) Selected() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected
}

// MarkerIDs returns the ids of all placed markers.
func (r *Registry) MarkerIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.markers))
	for id := range r.markers {
		ids = append(ids, id)
	}
	return ids
}

// Sync reconciles markers against the given property set: properties new to
// the map gain a marker, departed ids are destroyed, and survivors keep
// their marker and state untouched. Properties without usable coordinates
// are skipped. The viewport is refitted around whatever remains.
func (r *Registry) Sync(props []harvest.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.widget.Ready() {
		r.errMsg = "map is initializing, please retry"
		return ErrNotReady
	}
	r.errMsg = ""

	want := make(map[string]harvest.Property, len(props))
	for _, p := range props {
		if p.PropertyID == "" || !p.HasValidCoords() {
			continue
		}
		want[p.PropertyID] = p
	}

	for id := range r.markers {
		if _, ok := want[id]; ok {
			continue
		}
		r.widget.RemoveMarker(id)
		delete(r.markers, id)
		if r.hovered == id {
			r.hovered = ""
		}
		if r.selected == id {
			r.selected = ""
		}
	}

	for id, p := range want {
		if _, ok := r.markers[id]; ok {
			continue
		}
		html, err := RenderPopup(p)
		if err != nil {
			r.errMsg = fmt.Sprintf("marker %s: %v", id, err)
			continue
		}
		if err := r.widget.AddMarker(id, p.Latitude, p.Longitude, html); err != nil {
			r.errMsg = fmt.Sprintf("marker %s: %v", id, err)
			continue
		}
		r.markers[id] = &marker{lat: p.Latitude, lng: p.Longitude}
	}

	r.fitLocked()
	return nil
}

// fitLocked refits the viewport around all placed markers. Coincident
// markers get a centered default zoom; a fitted zoom deeper than maxFitZoom
// is pulled back so a lone cluster does not fill the screen with one parcel.
func (r *Registry) fitLocked() {
	var b Bounds
	for _, m := range r.markers {
		b.Extend(m.lat, m.lng)
	}
	if b.Empty() {
		return
	}
	if b.Degenerate() {
		lat, lng := b.Center()
		r.widget.SetView(lat, lng, defaultZoom)
		return
	}
	if zoom := r.widget.FitBounds(b); zoom > maxFitZoom {
		r.widget.SetZoom(maxFitZoom)
	}
}

// Hover opens a transient popup on the marker. Hovering the selected marker
// is a no-op so its persistent popup is never re-opened or demoted.
func (r *Registry) Hover(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.markers[id]
	if !ok || m.state == markerSelected {
		return
	}
	if r.hovered != "" && r.hovered != id {
		if prev, ok := r.markers[r.hovered]; ok && prev.state == markerHovered {
			r.widget.ClosePopup(r.hovered)
			prev.state = markerIdle
		}
	}
	r.widget.OpenPopup(id)
	m.state = markerHovered
	r.hovered = id
}

// Leave closes the transient popup opened by Hover. Leaving a selected
// marker keeps its popup open.
func (r *Registry) Leave(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.markers[id]
	if !ok || m.state != markerHovered {
		return
	}
	r.widget.ClosePopup(id)
	m.state = markerIdle
	if r.hovered == id {
		r.hovered = ""
	}
}

// Click promotes the marker to selected and notifies the session.
func (r *Registry) Click(id string) {
	r.mu.Lock()
	notify := r.selectLocked(id)
	r.mu.Unlock()
	if notify && r.onSelect != nil {
		r.onSelect(id)
	}
}

// Select reflects a selection made outside the map (list click, API call).
// Unknown ids are logged and leave every marker's state unchanged.
func (r *Registry) Select(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selectLocked(id)
}

func (r *Registry) selectLocked(id string) bool {
	m, ok := r.markers[id]
	if !ok {
		log.Printf("[WARN] select of unknown marker %s ignored", id)
		return false
	}
	if r.selected == id {
		return false
	}
	if r.hovered != "" && r.hovered != id {
		if prev, ok := r.markers[r.hovered]; ok && prev.state == markerHovered {
			r.widget.ClosePopup(r.hovered)
			prev.state = markerIdle
		}
		r.hovered = ""
	}
	if r.selected != "" {
		if prev, ok := r.markers[r.selected]; ok {
			r.widget.ClosePopup(r.selected)
			prev.state = markerIdle
		}
	}
	r.widget.OpenPopup(id)
	r.widget.PanTo(m.lat, m.lng)
	m.state = markerSelected
	if r.hovered == id {
		r.hovered = ""
	}
	r.selected = id
	return true
}

// Teardown destroys every marker and resets the registry to empty.
func (r *Registry) Teardown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.markers {
		r.widget.RemoveMarker(id)
		delete(r.markers, id)
	}
	r.hovered = ""
	r.selected = ""
	r.errMsg = ""
}
