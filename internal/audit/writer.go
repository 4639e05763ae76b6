package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Writer decouples audit durability from the request path: Record hands the
// entry to a buffered queue consumed by a single writer goroutine. A full
// queue or a failing sink never blocks or fails the business operation; the
// loss is logged and counted so it stays observable.
type Writer struct {
	sink   Sink
	queue  chan *Entry
	logger *slog.Logger

	dropped atomic.Uint64
	written atomic.Uint64

	closeMu   sync.RWMutex
	closeOnce sync.Once
	closed    bool
	done      chan struct{}
}

func NewWriter(sink Sink, queueSize int, logger *slog.Logger) *Writer {
	if queueSize <= 0 {
		queueSize = 1024
	}
	w := &Writer{
		sink:   sink,
		queue:  make(chan *Entry, queueSize),
		logger: logger,
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

// Record enqueues an audit entry. Never blocks: if the queue is full the
// entry is dropped and counted.
func (w *Writer) Record(actorID int64, action Action, resourceID *int64, details map[string]any) {
	w.closeMu.RLock()
	defer w.closeMu.RUnlock()

	if w.closed {
		w.dropped.Add(1)
		w.logger.Error("audit entry dropped: writer closed", "action", action, "actor_id", actorID)
		return
	}

	entry := &Entry{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		Action:     action,
		ResourceID: resourceID,
		Details:    details,
		Timestamp:  time.Now().UTC(),
	}

	select {
	case w.queue <- entry:
	default:
		w.dropped.Add(1)
		w.logger.Error("audit entry dropped: queue full", "action", action, "actor_id", actorID)
	}
}

func (w *Writer) run() {
	defer close(w.done)

	for entry := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := w.sink.Append(ctx, entry)
		cancel()

		if err != nil {
			w.dropped.Add(1)
			w.logger.Error("audit append failed",
				"error", err,
				"action", entry.Action,
				"actor_id", entry.ActorID)
			continue
		}
		w.written.Add(1)
	}
}

// Dropped reports how many entries were lost to a full queue or sink
// failures since startup.
func (w *Writer) Dropped() uint64 {
	return w.dropped.Load()
}

// Written reports how many entries reached the sink.
func (w *Writer) Written() uint64 {
	return w.written.Load()
}

// Close drains the queue and stops the writer goroutine.
func (w *Writer) Close() {
	w.closeOnce.Do(func() {
		w.closeMu.Lock()
		w.closed = true
		close(w.queue)
		w.closeMu.Unlock()
		<-w.done
	})
}
