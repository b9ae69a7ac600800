package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sensegrid/internal/logging"
)

// Prober reports whether the backend is currently reachable. A nil error
// means reachable.
type Prober interface {
	Health(ctx context.Context) error
}

// Monitor tracks backend reachability and notifies subscribers on the
// offline-to-online transition. It never delivers a notification for
// online-to-offline or for repeated online probes.
type Monitor struct {
	prober   Prober
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	online  bool
	nextSub int
	subs    map[int]chan struct{}
}

// NewMonitor builds a monitor that starts in the offline state. The first
// successful probe flips it online and wakes subscribers.
func NewMonitor(prober Prober, interval time.Duration, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Monitor{
		prober:   prober,
		interval: interval,
		logger:   logger.With(logging.String(logging.FieldComponent, "connectivity")),
		subs:     make(map[int]chan struct{}),
	}
}

// Online reports the last observed reachability state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline updates the reachability state. The offline-to-online edge
// notifies every subscriber; all other transitions are silent.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	wasOnline := m.online
	m.online = online
	var targets []chan struct{}
	if online && !wasOnline {
		targets = make([]chan struct{}, 0, len(m.subs))
		for _, ch := range m.subs {
			targets = append(targets, ch)
		}
	}
	m.mu.Unlock()

	if online != wasOnline {
		m.logger.Info("connectivity changed", logging.Bool("online", online))
	}
	for _, ch := range targets {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribe registers for offline-to-online notifications. The returned
// cancel func must be called to release the subscription. The channel has
// a one-slot buffer; a notification arriving while one is already pending
// is dropped, which is fine because subscribers react the same way to one
// wake-up as to many.
func (m *Monitor) Subscribe() (<-chan struct{}, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	ch := make(chan struct{}, 1)
	m.subs[id] = ch
	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Run probes the backend on the configured interval until the context is
// cancelled, feeding results into SetOnline. An immediate probe runs at
// startup so the daemon does not wait a full interval for its first state.
func (m *Monitor) Run(ctx context.Context) error {
	m.probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	err := m.prober.Health(ctx)
	if err != nil && ctx.Err() != nil {
		return
	}
	if err != nil {
		m.logger.Debug("health probe failed", logging.Error(err))
	}
	m.SetOnline(err == nil)
}
