package daemon_test

import (
	"context"
	"testing"
	"time"

	"sensegrid/internal/daemon"
	"sensegrid/internal/logging"
	"sensegrid/internal/queue"
	"sensegrid/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.QueueDBPath == "" || status.LockFilePath == "" {
		t.Fatalf("incomplete status: %+v", status)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	time.Sleep(50 * time.Millisecond)
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonPerformQueuesWhileOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	// Monitor starts offline and no backend exists, so the command lands
	// in the queue.
	res, err := d.Perform(context.Background(), "device-1",
		[]byte(`{"sensor":"temperature","action":"ON"}`), queue.ContextIDs{HomeID: "home-1"})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if res.Delivered || res.Entry == nil {
		t.Fatalf("result = %+v, want queued entry", res)
	}

	states := d.States()
	state, ok := states["device-1"]["temperature"]
	if !ok || state.Value != "ON" || !state.Provisional {
		t.Fatalf("cached state = %+v ok=%v, want provisional ON", state, ok)
	}

	stats, err := d.QueueStats(context.Background())
	if err != nil {
		t.Fatalf("QueueStats: %v", err)
	}
	if stats.Pending != 1 {
		t.Fatalf("pending = %d, want 1", stats.Pending)
	}
}
