package mapview

import (
	"context"
	"errors"
	"sync"
)

// LoadState is the lifecycle of the shared map provider script.
type LoadState int

const (
	StateNotLoaded LoadState = iota
	StateLoading
	StateLoaded
	StateError
)

func (s LoadState) String() string {
	switch s {
	case StateNotLoaded:
		return "not_loaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	}
	return "unknown"
}

// ErrMissingMapKey is returned when no provider API key is configured.
var ErrMissingMapKey = errors.New("map provider API key is not configured")

// ErrLoadCanceled is returned to waiters when every holder released the
// loader before the in-flight load settled.
var ErrLoadCanceled = errors.New("map provider load canceled")

// Handle is the loaded provider. One handle is shared by every session.
type Handle struct {
	APIKey string
}

// LoadFunc performs the actual provider load. The context is canceled when
// the last holder releases mid-load.
type LoadFunc func(ctx context.Context, apiKey string) (*Handle, error)

// DefaultLoad validates the key and constructs the shared handle.
func DefaultLoad(ctx context.Context, apiKey string) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if apiKey == "" {
		return nil, ErrMissingMapKey
	}
	return &Handle{APIKey: apiKey}, nil
}

// Loader hands out a refcounted shared provider handle. The provider loads
// at most once; concurrent acquirers during the load all observe the single
// outcome. A failed load is sticky until Reset.
type Loader struct {
	mu     sync.Mutex
	state  LoadState
	refs   int
	handle *Handle
	err    error
	load   LoadFunc
	cancel context.CancelFunc
	done   chan struct{}
}

func NewLoader(load LoadFunc) *Loader {
	if load == nil {
		load = DefaultLoad
	}
	return &Loader{load: load}
}

func (l *Loader) State() LoadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Acquire returns the shared handle, loading the provider on first use.
// Every successful Acquire must be paired with a Release.
func (l *Loader) Acquire(ctx context.Context, apiKey string) (*Handle, error) {
	l.mu.Lock()
	switch l.state {
	case StateLoaded:
		l.refs++
		h := l.handle
		l.mu.Unlock()
		return h, nil

	case StateError:
		err := l.err
		l.mu.Unlock()
		return nil, err

	case StateLoading:
		l.refs++
		done := l.done
		l.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			l.Release()
			return nil, ctx.Err()
		}
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.state == StateLoaded {
			return l.handle, nil
		}
		if l.err != nil {
			return nil, l.err
		}
		return nil, ErrLoadCanceled
	}

	l.state = StateLoading
	l.refs = 1
	l.done = make(chan struct{})
	done := l.done
	lctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.mu.Unlock()

	h, err := l.load(lctx, apiKey)

	l.mu.Lock()
	defer l.mu.Unlock()
	defer close(done)
	l.cancel = nil
	cancel()

	if l.refs == 0 {
		// Everyone released while loading: discard the outcome so the next
		// acquirer starts fresh.
		l.state = StateNotLoaded
		l.handle, l.err = nil, nil
		return nil, ErrLoadCanceled
	}
	if err != nil {
		l.state = StateError
		l.err = err
		l.refs = 0
		return nil, err
	}
	l.state = StateLoaded
	l.handle = h
	return h, nil
}

// Release drops one reference. When the last holder releases during an
// in-flight load, the load is canceled and the loader returns to not-loaded.
// A fully loaded provider stays warm; scripts cannot be unloaded.
func (l *Loader) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.refs == 0 {
		return
	}
	l.refs--
	if l.refs > 0 {
		return
	}
	if l.state == StateLoading && l.cancel != nil {
		l.cancel()
	}
}

// Reset clears a sticky load failure so a later Acquire can retry. It is a
// no-op while a load is running or holders remain.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateError && l.refs == 0 {
		l.state = StateNotLoaded
		l.err = nil
	}
}

// std is the process-wide loader every session shares.
var std = NewLoader(DefaultLoad)

// Acquire references the process-wide provider loader.
func Acquire(ctx context.Context, apiKey string) (*Handle, error) {
	return std.Acquire(ctx, apiKey)
}

// Release drops a reference on the process-wide loader.
func Release() { std.Release() }
