package mapview

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestLoaderLoadsOnce(t *testing.T) {
	var calls int32
	l := NewLoader(func(ctx context.Context, apiKey string) (*Handle, error) {
		atomic.AddInt32(&calls, 1)
		return &Handle{APIKey: apiKey}, nil
	})

	h1, err := l.Acquire(context.Background(), "key")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	h2, err := l.Acquire(context.Background(), "key")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if h1 != h2 {
		t.Fatal("acquirers got different handles")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("load called %d times, want 1", calls)
	}
	if l.State() != StateLoaded {
		t.Fatalf("state = %v, want loaded", l.State())
	}
}

func TestLoaderMissingKey(t *testing.T) {
	l := NewLoader(nil)
	if _, err := l.Acquire(context.Background(), ""); !errors.Is(err, ErrMissingMapKey) {
		t.Fatalf("err = %v, want ErrMissingMapKey", err)
	}
	if l.State() != StateError {
		t.Fatalf("state = %v, want error", l.State())
	}
	// The failure is sticky: no automatic retry.
	if _, err := l.Acquire(context.Background(), "key"); !errors.Is(err, ErrMissingMapKey) {
		t.Fatalf("err = %v, want sticky ErrMissingMapKey", err)
	}
	l.Reset()
	if _, err := l.Acquire(context.Background(), "key"); err != nil {
		t.Fatalf("acquire after reset: %v", err)
	}
}

func TestLoaderConcurrentAcquirersShareOutcome(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	l := NewLoader(func(ctx context.Context, apiKey string) (*Handle, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		return &Handle{APIKey: apiKey}, nil
	})

	var wg sync.WaitGroup
	handles := make([]*Handle, 3)
	errs := make([]error, 3)
	wg.Add(1)
	go func() {
		defer wg.Done()
		handles[0], errs[0] = l.Acquire(context.Background(), "key")
	}()
	<-started
	for i := 1; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i], errs[i] = l.Acquire(context.Background(), "key")
		}(i)
	}
	close(release)
	wg.Wait()

	for i := range handles {
		if errs[i] != nil {
			t.Fatalf("acquirer %d: %v", i, errs[i])
		}
		if handles[i] != handles[0] {
			t.Fatal("acquirers got different handles")
		}
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("load called %d times, want 1", calls)
	}
}

func TestLoaderTeardownDuringLoadResets(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var first sync.Once
	l := NewLoader(func(ctx context.Context, apiKey string) (*Handle, error) {
		firstCall := false
		first.Do(func() { firstCall = true })
		if firstCall {
			close(started)
			<-release
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &Handle{APIKey: apiKey}, nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := l.Acquire(context.Background(), "key")
		done <- err
	}()
	<-started
	l.Release() // last holder gone while loading
	close(release)

	if err := <-done; !errors.Is(err, ErrLoadCanceled) && !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want canceled", err)
	}
	if l.State() != StateNotLoaded {
		t.Fatalf("state = %v, want not_loaded after teardown", l.State())
	}
	// A fresh acquire attempts a clean load.
	if _, err := l.Acquire(context.Background(), "key"); err != nil {
		t.Fatalf("acquire after teardown: %v", err)
	}
}
