// Package refresh runs the background analysis prefetcher: a small worker
// pool that warms per-property analysis caches, deduplicating ids already in
// flight and dropping work when saturated.
package refresh

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/yourorg/flipdash/internal/events"
)

type Job struct {
	PropertyID string
	Zip        string
}

type Refresher struct {
	ch    chan Job
	inFly sync.Map // property id -> struct{}
	Do    func(ctx context.Context, j Job)
}

func New(capacity int, workerCount int, do func(ctx context.Context, j Job)) *Refresher {
	if capacity <= 0 {
		capacity = 256
	}
	if workerCount <= 0 {
		workerCount = 2
	}
	r := &Refresher{ch: make(chan Job, capacity), Do: do}
	for i := 0; i < workerCount; i++ {
		go r.worker()
	}
	return r
}

func (r *Refresher) Enqueue(j Job) {
	if _, exists := r.inFly.LoadOrStore(j.PropertyID, struct{}{}); exists {
		return
	}
	select {
	case r.ch <- j:
	default:
		// drop if saturated
		r.inFly.Delete(j.PropertyID)
	}
}

func (r *Refresher) worker() {
	for j := range r.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		func() {
			defer func() {
				r.inFly.Delete(j.PropertyID)
				cancel()
			}()
			if r.Do != nil {
				r.Do(ctx, j)
			}
		}()
	}
}

// Consume feeds persisted-property events into the pool until ctx ends.
func (r *Refresher) Consume(ctx context.Context, pub events.Publisher) {
	sub := pub.SubscribePropertyUpdated()
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-sub:
			log.Printf("[INFO] refresh: prefetching analysis for %s (zip %s)", evt.PropertyID, evt.Zip)
			r.Enqueue(Job{PropertyID: evt.PropertyID, Zip: evt.Zip})
		}
	}
}
