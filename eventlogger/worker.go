package eventlogger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Stats counts what the worker did with the events it was handed.
type Stats struct {
	Queued  int   `json:"queued"`
	Saved   int64 `json:"saved"`
	Failed  int64 `json:"failed"`
	Dropped int64 `json:"dropped"`
}

// Worker persists events in the background so request handlers never wait
// on the event store.
type Worker struct {
	eventCh chan Event
	store   EventLogger
	log     *slog.Logger
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	saved   atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

func NewWorker(store EventLogger, bufferSize int, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		eventCh: make(chan Event, bufferSize),
		store:   store,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (w *Worker) Start() {
	w.wg.Go(func() {
		for {
			select {
			case <-w.ctx.Done():
				w.drain()
				return
			case event := <-w.eventCh:
				w.save(w.ctx, event)
			}
		}
	})
}

// drain saves whatever is still buffered once shutdown has begun.
func (w *Worker) drain() {
	w.log.Info("draining events before shutdown", "remaining_events", len(w.eventCh))
	for {
		select {
		case event := <-w.eventCh:
			w.save(context.Background(), event)
		default:
			return
		}
	}
}

func (w *Worker) save(ctx context.Context, event Event) {
	if err := w.store.Save(ctx, event); err != nil {
		w.failed.Add(1)
		w.log.Error("failed to save event", "error", err, "event_type", event.Type, "event_id", event.ID)
		return
	}
	w.saved.Add(1)
}

// Log queues event without blocking. Events are dropped when the buffer is full.
func (w *Worker) Log(event Event) {
	select {
	case w.eventCh <- event:
	default:
		w.dropped.Add(1)
		w.log.Warn("event channel full, dropping event", "event_type", event.Type)
	}
}

func (w *Worker) Stats() Stats {
	return Stats{
		Queued:  len(w.eventCh),
		Saved:   w.saved.Load(),
		Failed:  w.failed.Load(),
		Dropped: w.dropped.Load(),
	}
}

// Shutdown stops the worker after the buffered events are saved. The channel
// stays open so a late Log cannot panic; such events are dropped or left queued.
func (w *Worker) Shutdown() {
	w.cancel()
	w.wg.Wait()
}
