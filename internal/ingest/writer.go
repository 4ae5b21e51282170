// Package ingest is the write-behind path: normalized batches flow into
// Postgres and fan out as events, off the request path.
package ingest

import (
	"context"

	"github.com/yourorg/flipdash/harvest"
	"github.com/yourorg/flipdash/internal/events"
	"github.com/yourorg/flipdash/internal/store"
)

type Writer struct {
	Store *store.Store
	Pub   events.Publisher
}

func (w *Writer) Enabled() bool { return w != nil && w.Store != nil }

// Write persists one normalized batch plus its raw payload and publishes an
// update event per property.
func (w *Writer) Write(ctx context.Context, provider, endpoint, zip string, props []harvest.Property, raw []byte) error {
	if !w.Enabled() {
		return nil
	}
	if err := w.Store.UpsertProperties(ctx, provider, endpoint, zip, props, raw); err != nil {
		return err
	}
	if w.Pub != nil {
		for _, p := range props {
			w.Pub.PublishPropertyUpdated(ctx, events.PropertyUpdated{PropertyID: p.PropertyID, Zip: zip})
		}
	}
	return nil
}
