package audit

import (
	"context"
	"log/slog"
	"time"
)

// Worker drains the audit outbox to the sink. It keeps event publishing out
// of the request path: domain code only appends to the store.
type Worker struct {
	store     Store
	sink      Sink
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func NewWorker(store Store, sink Sink, logger *slog.Logger) *Worker {
	return &Worker{
		store:     store,
		sink:      sink,
		logger:    logger,
		interval:  2 * time.Second,
		batchSize: 100,
	}
}

// Run loops until the context is cancelled. Publish failures are retried on
// the next tick; entries are only marked published after the sink accepted
// them, so delivery is at-least-once.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drain(ctx); err != nil {
				w.logger.WarnContext(ctx, "audit drain failed", "error", err)
			}
		}
	}
}

func (w *Worker) drain(ctx context.Context) error {
	batch, err := w.store.NextBatch(ctx, w.batchSize)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}
	if err := w.sink.Publish(ctx, batch); err != nil {
		return err
	}
	ids := make([]int64, len(batch))
	for i, e := range batch {
		ids[i] = e.Seq
	}
	return w.store.MarkPublished(ctx, ids)
}
