package connectivity

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"sensegrid/internal/logging"
)

type probeResult struct {
	err error
}

type stubProber struct {
	result atomic.Value
}

func (p *stubProber) Health(ctx context.Context) error {
	if v, ok := p.result.Load().(probeResult); ok {
		return v.err
	}
	return nil
}

func (p *stubProber) setErr(err error) {
	p.result.Store(probeResult{err: err})
}

func TestMonitorStartsOffline(t *testing.T) {
	m := NewMonitor(&stubProber{}, time.Second, logging.NewNop())
	if m.Online() {
		t.Fatal("monitor must start offline")
	}
}

func TestSubscribeNotifiedOnOfflineToOnline(t *testing.T) {
	m := NewMonitor(&stubProber{}, time.Second, logging.NewNop())
	ch, cancel := m.Subscribe()
	defer cancel()

	m.SetOnline(true)
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no notification for offline-to-online transition")
	}

	// Staying online must not re-notify.
	m.SetOnline(true)
	select {
	case <-ch:
		t.Fatal("unexpected notification for online-to-online")
	default:
	}

	// Going offline must not notify either.
	m.SetOnline(false)
	select {
	case <-ch:
		t.Fatal("unexpected notification for online-to-offline")
	default:
	}
}

func TestSubscribeCancelStopsDelivery(t *testing.T) {
	m := NewMonitor(&stubProber{}, time.Second, logging.NewNop())
	ch, cancel := m.Subscribe()
	cancel()

	m.SetOnline(true)
	select {
	case <-ch:
		t.Fatal("cancelled subscription still notified")
	default:
	}
}

func TestRunProbesAndUpdatesState(t *testing.T) {
	prober := &stubProber{}
	prober.setErr(errors.New("down"))
	m := NewMonitor(prober, 10*time.Millisecond, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()

	ch, unsub := m.Subscribe()
	defer unsub()

	prober.setErr(nil)
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor never observed backend recovery")
	}
	if !m.Online() {
		t.Fatal("monitor should be online after successful probe")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}
