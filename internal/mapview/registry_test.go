package mapview

import (
	"strings"
	"testing"

	"github.com/yourorg/flipdash/harvest"
)

func prop(id string, lat, lng float64) harvest.Property {
	return harvest.Property{
		PropertyID: id,
		Street:     "123 Main St",
		City:       "Orlando",
		State:      "FL",
		ListPrice:  250000,
		Beds:       3,
		Baths:      2,
		Sqft:       1500,
		Latitude:   lat,
		Longitude:  lng,
	}
}

func ops(cmds []Command) []string {
	out := make([]string, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.Op)
	}
	return out
}

func hasOp(cmds []Command, op, id string) bool {
	for _, c := range cmds {
		if c.Op == op && c.ID == id {
			return true
		}
	}
	return false
}

func TestSyncAddsOnlyNewMarkers(t *testing.T) {
	rec := NewRecorder()
	reg := NewRegistry(rec, nil)

	if err := reg.Sync([]harvest.Property{prop("a", 28.5, -81.4), prop("b", 28.6, -81.3)}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if got := len(reg.MarkerIDs()); got != 2 {
		t.Fatalf("markers = %d, want 2", got)
	}
	rec.Drain()

	// Re-sync with one survivor, one departure, one arrival.
	if err := reg.Sync([]harvest.Property{prop("b", 28.6, -81.3), prop("c", 28.7, -81.2)}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	cmds := rec.Drain()
	if !hasOp(cmds, "remove_marker", "a") {
		t.Fatalf("departed marker a not removed: %v", ops(cmds))
	}
	if !hasOp(cmds, "add_marker", "c") {
		t.Fatalf("new marker c not added: %v", ops(cmds))
	}
	if hasOp(cmds, "add_marker", "b") {
		t.Fatalf("surviving marker b was re-added: %v", ops(cmds))
	}
}

func TestSyncSkipsInvalidCoordinates(t *testing.T) {
	rec := NewRecorder()
	reg := NewRegistry(rec, nil)

	props := []harvest.Property{prop("a", 28.5, -81.4), prop("b", 0, 0), prop("c", 120, -81)}
	if err := reg.Sync(props); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if got := len(reg.MarkerIDs()); got != 1 {
		t.Fatalf("markers = %d, want 1", got)
	}
}

func TestSyncNotReady(t *testing.T) {
	rec := NewRecorder()
	rec.SetReady(false)
	reg := NewRegistry(rec, nil)

	if err := reg.Sync([]harvest.Property{prop("a", 28.5, -81.4)}); err != ErrNotReady {
		t.Fatalf("err = %v, want ErrNotReady", err)
	}
	if reg.Err() == "" {
		t.Fatal("expected component-local error message")
	}
	if len(rec.Drain()) != 0 {
		t.Fatal("not-ready widget received commands")
	}
}

func TestSyncZoomClamped(t *testing.T) {
	rec := NewRecorder()
	reg := NewRegistry(rec, nil)

	// Two markers a few hundred feet apart fit at a very deep zoom.
	if err := reg.Sync([]harvest.Property{prop("a", 28.5000, -81.4000), prop("b", 28.5010, -81.4010)}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	cmds := rec.Drain()
	clamped := false
	for _, c := range cmds {
		if c.Op == "set_zoom" && c.Zoom == maxFitZoom {
			clamped = true
		}
	}
	if !clamped {
		t.Fatalf("tight cluster was not clamped to zoom %d: %+v", maxFitZoom, cmds)
	}
}

func TestSyncCoincidentMarkersUseDefaultZoom(t *testing.T) {
	rec := NewRecorder()
	reg := NewRegistry(rec, nil)

	if err := reg.Sync([]harvest.Property{prop("a", 28.5, -81.4), prop("b", 28.5, -81.4)}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	cmds := rec.Drain()
	found := false
	for _, c := range cmds {
		if c.Op == "set_view" {
			found = true
			if c.Zoom != defaultZoom {
				t.Fatalf("set_view zoom = %d, want %d", c.Zoom, defaultZoom)
			}
		}
		if c.Op == "fit_bounds" {
			t.Fatal("coincident markers must not be fitted")
		}
	}
	if !found {
		t.Fatalf("expected set_view: %v", ops(cmds))
	}
}

func TestHoverAndLeave(t *testing.T) {
	rec := NewRecorder()
	reg := NewRegistry(rec, nil)
	if err := reg.Sync([]harvest.Property{prop("a", 28.5, -81.4), prop("b", 28.6, -81.3)}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	rec.Drain()

	reg.Hover("a")
	reg.Hover("b") // moving to b closes a first
	cmds := rec.Drain()
	want := []string{"open_popup", "close_popup", "open_popup"}
	got := ops(cmds)
	if len(got) != len(want) {
		t.Fatalf("ops = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ops = %v, want %v", got, want)
		}
	}

	reg.Leave("b")
	cmds = rec.Drain()
	if !hasOp(cmds, "close_popup", "b") {
		t.Fatalf("leave did not close popup: %v", ops(cmds))
	}
}

func TestHoverSelectedMarkerIsNoop(t *testing.T) {
	rec := NewRecorder()
	reg := NewRegistry(rec, nil)
	if err := reg.Sync([]harvest.Property{prop("a", 28.5, -81.4)}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	reg.Select("a")
	rec.Drain()

	reg.Hover("a")
	reg.Leave("a")
	if cmds := rec.Drain(); len(cmds) != 0 {
		t.Fatalf("hover over selected marker issued commands: %v", ops(cmds))
	}
}

func TestSelectClosesPreviousPopupFirst(t *testing.T) {
	rec := NewRecorder()
	reg := NewRegistry(rec, nil)
	if err := reg.Sync([]harvest.Property{prop("a", 28.5, -81.4), prop("b", 28.6, -81.3)}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	reg.Select("a")
	rec.Drain()

	reg.Select("b")
	cmds := rec.Drain()
	closeIdx, openIdx := -1, -1
	for i, c := range cmds {
		if c.Op == "close_popup" && c.ID == "a" {
			closeIdx = i
		}
		if c.Op == "open_popup" && c.ID == "b" {
			openIdx = i
		}
	}
	if closeIdx == -1 || openIdx == -1 || closeIdx > openIdx {
		t.Fatalf("previous popup must close before new one opens: %v", ops(cmds))
	}
	if reg.Selected() != "b" {
		t.Fatalf("selected = %q, want b", reg.Selected())
	}
}

func TestSelectUnknownIDLeavesStateUnchanged(t *testing.T) {
	rec := NewRecorder()
	reg := NewRegistry(rec, nil)
	if err := reg.Sync([]harvest.Property{prop("a", 28.5, -81.4)}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	reg.Select("a")
	rec.Drain()

	reg.Select("missing")
	if cmds := rec.Drain(); len(cmds) != 0 {
		t.Fatalf("unknown select issued commands: %v", ops(cmds))
	}
	if reg.Selected() != "a" {
		t.Fatalf("selected = %q, want a", reg.Selected())
	}
}

func TestClickNotifiesSession(t *testing.T) {
	rec := NewRecorder()
	var clicked string
	reg := NewRegistry(rec, func(id string) { clicked = id })
	if err := reg.Sync([]harvest.Property{prop("a", 28.5, -81.4)}); err != nil {
		t.Fatalf("sync: %v", err)
	}

	reg.Click("a")
	if clicked != "a" {
		t.Fatalf("onSelect got %q, want a", clicked)
	}
	// Clicking the already-selected marker does not re-notify.
	clicked = ""
	reg.Click("a")
	if clicked != "" {
		t.Fatalf("repeat click re-notified with %q", clicked)
	}
}

func TestPopupEscapesListingText(t *testing.T) {
	p := prop("a", 28.5, -81.4)
	p.Street = `<script>alert("x")</script>`
	html, err := RenderPopup(p)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatalf("popup HTML not escaped: %s", html)
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Fatalf("escaped text missing: %s", html)
	}
}

func TestTeardownRemovesAllMarkers(t *testing.T) {
	rec := NewRecorder()
	reg := NewRegistry(rec, nil)
	if err := reg.Sync([]harvest.Property{prop("a", 28.5, -81.4), prop("b", 28.6, -81.3)}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	reg.Select("a")
	rec.Drain()

	reg.Teardown()
	cmds := rec.Drain()
	if !hasOp(cmds, "remove_marker", "a") || !hasOp(cmds, "remove_marker", "b") {
		t.Fatalf("teardown did not remove markers: %v", ops(cmds))
	}
	if len(reg.MarkerIDs()) != 0 || reg.Selected() != "" {
		t.Fatal("registry not empty after teardown")
	}
}
