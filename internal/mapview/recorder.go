package mapview

import (
	"math"
	"sync"
)

// Command is one recorded widget mutation.
type Command struct {
	Op   string  `json:"op"`
	ID   string  `json:"id,omitempty"`
	Lat  float64 `json:"lat,omitempty"`
	Lng  float64 `json:"lng,omitempty"`
	Zoom int     `json:"zoom,omitempty"`
	HTML string  `json:"html,omitempty"`
}

// Recorder is a Widget that records mutations instead of driving a live map.
// Sessions expose the recorded stream so a thin client can replay it; tests
// assert on it directly.
type Recorder struct {
	mu       sync.Mutex
	ready    bool
	commands []Command
}

func NewRecorder() *Recorder { return &Recorder{ready: true} }

// SetReady toggles readiness. A not-ready recorder still accepts calls but
// the registry will not issue any.
func (r *Recorder) SetReady(ready bool) {
	r.mu.Lock()
	r.ready = ready
	r.mu.Unlock()
}

func (r *Recorder) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// Drain returns all commands recorded since the last call and clears the log.
func (r *Recorder) Drain() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.commands
	r.commands = nil
	return out
}

func (r *Recorder) record(c Command) {
	r.mu.Lock()
	r.commands = append(r.commands, c)
	r.mu.Unlock()
}

func (r *Recorder) AddMarker(id string, lat, lng float64, popupHTML string) error {
	r.record(Command{Op: "add_marker", ID: id, Lat: lat, Lng: lng, HTML: popupHTML})
	return nil
}

func (r *Recorder) RemoveMarker(id string) { r.record(Command{Op: "remove_marker", ID: id}) }
func (r *Recorder) OpenPopup(id string)    { r.record(Command{Op: "open_popup", ID: id}) }
func (r *Recorder) ClosePopup(id string)   { r.record(Command{Op: "close_popup", ID: id}) }

func (r *Recorder) PanTo(lat, lng float64) {
	r.record(Command{Op: "pan_to", Lat: lat, Lng: lng})
}

// FitBounds derives a zoom from the wider of the two spans, mirroring how a
// tiled map picks the tightest zoom that still contains the box.
func (r *Recorder) FitBounds(b Bounds) int {
	span := math.Max(b.MaxLat-b.MinLat, b.MaxLng-b.MinLng)
	zoom := 18
	if span > 0 {
		zoom = int(math.Floor(math.Log2(360 / span)))
	}
	if zoom > 18 {
		zoom = 18
	}
	if zoom < 3 {
		zoom = 3
	}
	lat, lng := b.Center()
	r.record(Command{Op: "fit_bounds", Lat: lat, Lng: lng, Zoom: zoom})
	return zoom
}

func (r *Recorder) SetZoom(zoom int) { r.record(Command{Op: "set_zoom", Zoom: zoom}) }

func (r *Recorder) SetView(lat, lng float64, zoom int) {
	r.record(Command{Op: "set_view", Lat: lat, Lng: lng, Zoom: zoom})
}
