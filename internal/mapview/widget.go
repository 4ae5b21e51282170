// Package mapview owns the map-side state of a dashboard session: a marker
// registry synchronized to the visible property set, popup open/close
// bookkeeping, viewport fitting, and the process-wide map provider loader.
package mapview

import "math"

// Bounds is a lat/lng bounding box under construction.
type Bounds struct {
	MinLat, MinLng float64
	MaxLat, MaxLng float64
	set            bool
}

func (b *Bounds) Extend(lat, lng float64) {
	if !b.set {
		b.MinLat, b.MaxLat = lat, lat
		b.MinLng, b.MaxLng = lng, lng
		b.set = true
		return
	}
	b.MinLat = math.Min(b.MinLat, lat)
	b.MaxLat = math.Max(b.MaxLat, lat)
	b.MinLng = math.Min(b.MinLng, lng)
	b.MaxLng = math.Max(b.MaxLng, lng)
}

// Empty reports whether no point was added.
func (b *Bounds) Empty() bool { return !b.set }

// Degenerate reports whether all added points coincide.
func (b *Bounds) Degenerate() bool {
	return b.set && b.MinLat == b.MaxLat && b.MinLng == b.MaxLng
}

func (b *Bounds) Center() (lat, lng float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLng + b.MaxLng) / 2
}

// Widget is the mutation surface of the underlying map. Implementations must
// tolerate ids they have never seen; the registry is the source of truth for
// which markers exist.
type Widget interface {
	// Ready reports whether the widget's namespace is available. When false
	// the registry performs no marker operations.
	Ready() bool
	AddMarker(id string, lat, lng float64, popupHTML string) error
	RemoveMarker(id string)
	OpenPopup(id string)
	ClosePopup(id string)
	PanTo(lat, lng float64)
	// FitBounds adjusts the viewport and returns the resulting zoom level.
	FitBounds(b Bounds) int
	SetZoom(zoom int)
	SetView(lat, lng float64, zoom int)
}
