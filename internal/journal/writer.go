// Package journal persists conversation turns off the request path.
//
// Delivery is at-most-once: every accepted batch is handed to the store
// exactly one time, in acceptance order, and never retried. Batches that
// arrive while the queue is full, or after Close, are dropped and logged.
package journal

import (
	"context"
	"sync"
	"time"

	"github.com/RichardoC/healthpad/internal/db"
	"github.com/RichardoC/healthpad/internal/models"
	"go.uber.org/zap"
)

const (
	DefaultQueueSize    = 256
	DefaultWriteTimeout = 5 * time.Second
)

type job struct {
	turns []models.Turn
	done  chan struct{} // set for flush markers only
}

type Writer struct {
	store        db.TurnStore
	logger       *zap.Logger
	writeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan job
	wg     sync.WaitGroup
}

// NewWriter starts the background writer. queueSize and writeTimeout fall
// back to the package defaults when not positive.
func NewWriter(store db.TurnStore, queueSize int, writeTimeout time.Duration, logger *zap.Logger) *Writer {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	w := &Writer{
		store:        store,
		logger:       logger,
		writeTimeout: writeTimeout,
		queue:        make(chan job, queueSize),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Record queues turns to be stored together. It never blocks and reports
// whether the batch was accepted.
func (w *Writer) Record(turns ...models.Turn) bool {
	if len(turns) == 0 {
		return true
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.logger.Warn("journal closed, dropping turns", zap.Int("turns", len(turns)))
		return false
	}
	select {
	case w.queue <- job{turns: turns}:
		return true
	default:
		w.logger.Warn("journal queue full, dropping turns",
			zap.Int("turns", len(turns)),
			zap.String("user_id", turns[0].UserID))
		return false
	}
}

// Flush waits until every batch accepted before the call has been
// attempted.
func (w *Writer) Flush(ctx context.Context) error {
	marker := job{done: make(chan struct{})}

	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return nil
	}
	select {
	case w.queue <- marker:
	case <-ctx.Done():
		w.mu.RUnlock()
		return ctx.Err()
	}
	w.mu.RUnlock()

	select {
	case <-marker.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting batches and waits for the queued ones.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	w.wg.Wait()
}

func (w *Writer) run() {
	defer w.wg.Done()
	for j := range w.queue {
		if j.done != nil {
			close(j.done)
			continue
		}
		w.write(j.turns)
	}
}

func (w *Writer) write(turns []models.Turn) {
	ctx, cancel := context.WithTimeout(context.Background(), w.writeTimeout)
	defer cancel()

	if err := w.store.AppendTurns(ctx, turns...); err != nil {
		w.logger.Error("failed to store turns",
			zap.Error(err),
			zap.Int("turns", len(turns)),
			zap.String("user_id", turns[0].UserID))
	}
}
