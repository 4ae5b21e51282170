// Package panels drives the per-selection analysis panels. Each panel owns a
// fetch function; selecting a property kicks off every fetch concurrently and
// a sequence counter guards against responses from a superseded selection
// overwriting newer state.
package panels

import (
	"context"
	"log"
	"sync"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Panel is the externally visible state of one panel.
type Panel struct {
	Status     Status `json:"status"`
	PropertyID string `json:"property_id,omitempty"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
}

// FetchFunc loads one panel's payload for a property.
type FetchFunc func(ctx context.Context, propertyID string) (any, error)

// Fetcher coordinates a set of named panels against a single selection.
type Fetcher struct {
	mu      sync.Mutex
	seq     uint64
	fetches map[string]FetchFunc
	panels  map[string]Panel
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		fetches: make(map[string]FetchFunc),
		panels:  make(map[string]Panel),
	}
}

// Register adds a panel. Panels must be registered before the first Select.
func (f *Fetcher) Register(name string, fetch FetchFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches[name] = fetch
	f.panels[name] = Panel{Status: StatusIdle}
}

// Select starts fetches for the given property. Any responses still in
// flight for a previous selection become stale and are discarded on arrival.
// The returned channel closes when every fetch for this selection settles,
// which tests and synchronous callers can wait on.
func (f *Fetcher) Select(ctx context.Context, propertyID string) <-chan struct{} {
	f.mu.Lock()
	f.seq++
	seq := f.seq
	for name := range f.fetches {
		f.panels[name] = Panel{Status: StatusLoading, PropertyID: propertyID}
	}
	fetches := make(map[string]FetchFunc, len(f.fetches))
	for name, fn := range f.fetches {
		fetches[name] = fn
	}
	f.mu.Unlock()

	var wg sync.WaitGroup
	for name, fetch := range fetches {
		wg.Add(1)
		go func(name string, fetch FetchFunc) {
			defer wg.Done()
			data, err := fetch(ctx, propertyID)
			f.apply(seq, name, propertyID, data, err)
		}(name, fetch)
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

// apply installs a fetch result unless the selection moved on.
func (f *Fetcher) apply(seq uint64, name, propertyID string, data any, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if seq != f.seq {
		log.Printf("[INFO] panels: discarding stale %s response for %s", name, propertyID)
		return
	}
	if err != nil {
		f.panels[name] = Panel{Status: StatusError, PropertyID: propertyID, Error: err.Error()}
		return
	}
	f.panels[name] = Panel{Status: StatusReady, PropertyID: propertyID, Data: data}
}

// Clear resets every panel to idle and invalidates in-flight fetches.
func (f *Fetcher) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	for name := range f.panels {
		f.panels[name] = Panel{Status: StatusIdle}
	}
}

// Snapshot returns a copy of every panel's current state.
func (f *Fetcher) Snapshot() map[string]Panel {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]Panel, len(f.panels))
	for name, p := range f.panels {
		out[name] = p
	}
	return out
}
