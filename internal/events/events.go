// Package events is the in-process pub/sub between the request path and the
// analysis prefetcher. Publishing never blocks; a saturated subscriber just
// misses prefetch hints.
package events

import "context"

// PropertyUpdated fires after a normalized property is persisted.
type PropertyUpdated struct {
	PropertyID string
	Zip        string
}

type Publisher interface {
	PublishPropertyUpdated(ctx context.Context, evt PropertyUpdated)
	SubscribePropertyUpdated() <-chan PropertyUpdated
}

type inMemory struct{ ch chan PropertyUpdated }

func NewInMemory(buffer int) Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &inMemory{ch: make(chan PropertyUpdated, buffer)}
}

func (m *inMemory) PublishPropertyUpdated(_ context.Context, evt PropertyUpdated) {
	select {
	case m.ch <- evt:
	default:
	}
}

func (m *inMemory) SubscribePropertyUpdated() <-chan PropertyUpdated { return m.ch }
