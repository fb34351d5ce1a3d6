package audit

import (
	"context"
	"time"

	"charter/pkg/requestcontext"
)

// Store is the append-only persistence behind the publisher. The postgres
// implementation doubles as the Kafka outbox.
type Store interface {
	Append(ctx context.Context, event Event) error
	// NextBatch returns up to limit unpublished entries in append order.
	NextBatch(ctx context.Context, limit int) ([]Entry, error)
	// MarkPublished acknowledges entries drained to the sink.
	MarkPublished(ctx context.Context, ids []int64) error
}

// Entry is a stored event plus its outbox sequence.
type Entry struct {
	Seq   int64
	Event Event
}

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit persists one event, enriching it from the request context. Appending
// happens inside the caller's transaction when one is open, so an event is
// only recorded if the action it describes committed.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Device == "" {
		event.Device = requestcontext.Device(ctx)
	}
	return p.store.Append(ctx, event)
}
