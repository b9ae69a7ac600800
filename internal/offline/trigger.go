package offline

import (
	"context"
	"log/slog"
	"time"

	"sensegrid/internal/logging"
)

// Flusher is the part of the queue service the trigger drives.
type Flusher interface {
	Flush(ctx context.Context)
}

// Notifier exposes connectivity wake-ups.
type Notifier interface {
	Subscribe() (<-chan struct{}, func())
}

// Trigger decides when flush passes run: on the offline-to-online
// transition, on a periodic schedule, and on explicit request. All three
// funnel into the same coalesced Flush, so overlapping causes collapse
// into one pass.
type Trigger struct {
	flusher  Flusher
	notifier Notifier
	interval time.Duration
	logger   *slog.Logger
	kicks    chan struct{}
}

// NewTrigger wires a trigger. interval <= 0 disables the periodic wake-up;
// notifier may be nil when no connectivity source exists.
func NewTrigger(flusher Flusher, notifier Notifier, interval time.Duration, logger *slog.Logger) *Trigger {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Trigger{
		flusher:  flusher,
		notifier: notifier,
		interval: interval,
		logger:   logger.With(logging.String(logging.FieldComponent, "sync-trigger")),
		kicks:    make(chan struct{}, 1),
	}
}

// Kick requests a flush pass outside the normal schedule. Kicks arriving
// while one is already queued are absorbed.
func (t *Trigger) Kick() {
	select {
	case t.kicks <- struct{}{}:
	default:
	}
}

// Run dispatches flush passes until the context is cancelled.
func (t *Trigger) Run(ctx context.Context) error {
	var online <-chan struct{}
	if t.notifier != nil {
		ch, cancel := t.notifier.Subscribe()
		defer cancel()
		online = ch
	}

	var tick <-chan time.Time
	if t.interval > 0 {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-online:
			t.logger.Info("connectivity restored, flushing queue")
			t.flusher.Flush(ctx)
		case <-tick:
			t.logger.Debug("periodic flush")
			t.flusher.Flush(ctx)
		case <-t.kicks:
			t.logger.Debug("explicit flush requested")
			t.flusher.Flush(ctx)
		}
	}
}
