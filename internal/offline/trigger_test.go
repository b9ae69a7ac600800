package offline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"sensegrid/internal/connectivity"
	"sensegrid/internal/logging"
)

type countingFlusher struct {
	flushes atomic.Int64
	done    chan struct{}
}

func (f *countingFlusher) Flush(ctx context.Context) {
	f.flushes.Add(1)
	select {
	case f.done <- struct{}{}:
	default:
	}
}

type healthyProber struct{}

func (healthyProber) Health(ctx context.Context) error { return nil }

func TestTriggerFlushesOnKick(t *testing.T) {
	flusher := &countingFlusher{done: make(chan struct{}, 1)}
	trigger := NewTrigger(flusher, nil, 0, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = trigger.Run(ctx) }()

	trigger.Kick()
	select {
	case <-flusher.done:
	case <-time.After(2 * time.Second):
		t.Fatal("kick never reached the flusher")
	}
}

func TestTriggerFlushesOnConnectivityRestored(t *testing.T) {
	flusher := &countingFlusher{done: make(chan struct{}, 1)}
	monitor := connectivity.NewMonitor(healthyProber{}, time.Hour, logging.NewNop())
	trigger := NewTrigger(flusher, monitor, 0, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = trigger.Run(ctx) }()

	// Give Run a moment to subscribe before flipping the state.
	time.Sleep(50 * time.Millisecond)
	monitor.SetOnline(true)

	select {
	case <-flusher.done:
	case <-time.After(2 * time.Second):
		t.Fatal("online transition never reached the flusher")
	}
}

func TestTriggerFlushesPeriodically(t *testing.T) {
	flusher := &countingFlusher{done: make(chan struct{}, 1)}
	trigger := NewTrigger(flusher, nil, 20*time.Millisecond, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = trigger.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for flusher.flushes.Load() < 2 {
		select {
		case <-flusher.done:
		case <-deadline:
			t.Fatal("periodic flushes did not fire")
		}
	}
}

func TestTriggerStopsOnCancel(t *testing.T) {
	flusher := &countingFlusher{done: make(chan struct{}, 1)}
	trigger := NewTrigger(flusher, nil, time.Hour, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- trigger.Run(ctx) }()
	cancel()

	select {
	case err := <-stopped:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancellation")
	}
}
