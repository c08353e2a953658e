// Package worker handles expense events consumed from the broker.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tracker/internal/amqp"
	applog "tracker/internal/log"
)

// Counter reports how many expenses are stored.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Stats summarises the events handled so far.
type Stats struct {
	Created   int64
	Cleared   int64
	LastEvent time.Time
	// StoredCount is the record count observed after the last event, or -1
	// when no Counter is configured.
	StoredCount int64
}

// EventWorker logs expense events and reconciles them with the local store.
type EventWorker struct {
	counter Counter
	logger  *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// NewEventWorker creates a worker. counter may be nil when the consumer runs
// without access to the database.
func NewEventWorker(counter Counter, logger *slog.Logger) *EventWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventWorker{
		counter: counter,
		logger:  logger,
		stats:   Stats{StoredCount: -1},
	}
}

// HandleEvent processes a single expense event from AMQP. Returning an error
// requeues the delivery.
func (w *EventWorker) HandleEvent(ctx context.Context, event *amqp.ExpenseEvent) error {
	stored := int64(-1)
	if w.counter != nil {
		n, err := w.counter.Count(ctx)
		if err != nil {
			return fmt.Errorf("count stored expenses: %w", err)
		}
		stored = n
	}

	w.mu.Lock()
	switch event.Type {
	case amqp.EventExpenseCreated:
		w.stats.Created++
	case amqp.EventExpensesCleared:
		w.stats.Cleared++
	}
	w.stats.LastEvent = event.Timestamp
	w.stats.StoredCount = stored
	w.mu.Unlock()

	switch event.Type {
	case amqp.EventExpenseCreated:
		w.logger.InfoContext(ctx, "Expense created",
			applog.FieldEventType, event.Type,
			applog.FieldExpenseID, event.ID,
			applog.FieldCount, stored,
			"published_at", event.Timestamp)
	case amqp.EventExpensesCleared:
		w.logger.InfoContext(ctx, "Expenses cleared",
			applog.FieldEventType, event.Type,
			"removed", event.Count,
			applog.FieldCount, stored,
			"published_at", event.Timestamp)
		if stored > 0 {
			w.logger.WarnContext(ctx, "Records remain after clear event", applog.FieldCount, stored)
		}
	default:
		w.logger.WarnContext(ctx, "Ignoring unknown event", applog.FieldEventType, event.Type)
	}
	return nil
}

func (w *EventWorker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
