package ipc_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"sensegrid/internal/daemon"
	"sensegrid/internal/ipc"
	"sensegrid/internal/logging"
	"sensegrid/internal/queue"
	"sensegrid/internal/testsupport"
)

func newTestServer(t *testing.T) *ipc.Client {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	// Keep the socket path short; unix socket paths have a tight limit.
	socket := filepath.Join(t.TempDir(), "s.sock")
	server, err := ipc.NewServer(ctx, socket, d, logging.NewNop())
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	server.Serve()
	t.Cleanup(server.Close)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestStatusRoundTrip(t *testing.T) {
	client := newTestServer(t)

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Running {
		t.Error("daemon not started, status must report stopped")
	}
	if status.QueueDBPath == "" {
		t.Error("status missing queue db path")
	}
}

func TestSendQueuesCommandWhileOffline(t *testing.T) {
	client := newTestServer(t)

	resp, err := client.Send("device-1", json.RawMessage(`{"sensor":"fan","action":"ON"}`), "home-1", "room-1")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.Delivered {
		t.Error("no backend running, command must not be reported delivered")
	}
	if resp.Entry == nil {
		t.Fatal("command not queued")
	}
	if resp.Entry.Status != string(queue.StatusPending) {
		t.Errorf("entry status = %s", resp.Entry.Status)
	}
	if resp.Entry.HomeID != "home-1" || resp.Entry.RoomID != "room-1" {
		t.Errorf("context ids not forwarded: %+v", resp.Entry)
	}
}

func TestSendRequiresTarget(t *testing.T) {
	client := newTestServer(t)
	if _, err := client.Send("", json.RawMessage(`{}`), "", ""); err == nil {
		t.Fatal("expected error for missing target id")
	}
}

func TestQueueListDescribeAndClear(t *testing.T) {
	client := newTestServer(t)

	sent, err := client.Send("device-1", json.RawMessage(`{"sensor":"fan","action":"ON"}`), "", "")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	list, err := client.QueueList(nil)
	if err != nil {
		t.Fatalf("QueueList: %v", err)
	}
	if len(list.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(list.Entries))
	}

	described, err := client.QueueDescribe(sent.Entry.ID)
	if err != nil {
		t.Fatalf("QueueDescribe: %v", err)
	}
	if described.Entry.TargetID != "device-1" {
		t.Errorf("described target = %s", described.Entry.TargetID)
	}

	stats, err := client.QueueStats()
	if err != nil {
		t.Fatalf("QueueStats: %v", err)
	}
	if stats.Stats.Pending != 1 {
		t.Errorf("pending = %d, want 1", stats.Stats.Pending)
	}

	cleared, err := client.QueueClear()
	if err != nil {
		t.Fatalf("QueueClear: %v", err)
	}
	if cleared.Removed != 1 {
		t.Errorf("removed = %d, want 1", cleared.Removed)
	}
}

func TestQueueDescribeUnknownID(t *testing.T) {
	client := newTestServer(t)
	if _, err := client.QueueDescribe("no-such-entry"); err == nil {
		t.Fatal("expected error for unknown entry id")
	}
}

func TestFlushAcknowledged(t *testing.T) {
	client := newTestServer(t)
	resp, err := client.Flush()
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if !resp.Requested {
		t.Error("flush not acknowledged")
	}
}

func TestDatabaseHealth(t *testing.T) {
	client := newTestServer(t)
	health, err := client.DatabaseHealth()
	if err != nil {
		t.Fatalf("DatabaseHealth: %v", err)
	}
	if !health.DatabaseExists || !health.TableExists || !health.IntegrityCheck {
		t.Errorf("unexpected health: %+v", health)
	}
}

func TestNotificationUnconfigured(t *testing.T) {
	client := newTestServer(t)
	resp, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if resp.Sent {
		t.Error("no ntfy topic configured, nothing should be sent")
	}
}
