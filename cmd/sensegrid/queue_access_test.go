package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sensegrid/internal/queue"
)

func writeCLIConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`
[paths]
data_dir = %q
log_dir = %q
`, filepath.Join(base, "data"), filepath.Join(base, "logs"))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func seedEntry(t *testing.T, store *queue.Store, id, target string) {
	t.Helper()
	entry := &queue.Entry{
		ID:         id,
		TargetID:   target,
		Command:    json.RawMessage(`{"sensor":"fan","action":"ON"}`),
		Status:     queue.StatusPending,
		MaxRetries: queue.DefaultMaxRetries,
		CreatedAt:  time.Now().UTC(),
	}
	if err := store.Put(context.Background(), entry); err != nil {
		t.Fatalf("Put: %v", err)
	}
}

func TestQueueAccessFallsBackToStoreWithoutDaemon(t *testing.T) {
	configPath := writeCLIConfig(t)
	socketPath := filepath.Join(t.TempDir(), "missing.sock")
	ctx := newCommandContext(&socketPath, &configPath)

	cfg, err := ctx.ensureConfig()
	if err != nil {
		t.Fatalf("ensureConfig: %v", err)
	}
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	seedEntry(t, store, "entry-1", "device-1")
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	err = ctx.withQueueAccess(func(access queueAccess) error {
		list, err := access.QueueList(nil)
		if err != nil {
			return err
		}
		if len(list.Entries) != 1 || list.Entries[0].ID != "entry-1" {
			t.Fatalf("QueueList = %+v, want the seeded entry", list.Entries)
		}

		detail, err := access.QueueDescribe("entry-1")
		if err != nil {
			return err
		}
		if detail.Entry.TargetID != "device-1" {
			t.Fatalf("QueueDescribe target = %q, want device-1", detail.Entry.TargetID)
		}

		stats, err := access.QueueStats()
		if err != nil {
			return err
		}
		if stats.Stats.Pending != 1 {
			t.Fatalf("pending = %d, want 1", stats.Stats.Pending)
		}

		health, err := access.DatabaseHealth()
		if err != nil {
			return err
		}
		if !health.DatabaseExists || !health.TableExists {
			t.Fatalf("health = %+v, want existing database and table", health)
		}

		cleared, err := access.QueueClear()
		if err != nil {
			return err
		}
		if cleared.Removed != 1 {
			t.Fatalf("Removed = %d, want 1", cleared.Removed)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withQueueAccess: %v", err)
	}
}

func TestQueueAccessDescribeUnknownEntry(t *testing.T) {
	configPath := writeCLIConfig(t)
	socketPath := filepath.Join(t.TempDir(), "missing.sock")
	ctx := newCommandContext(&socketPath, &configPath)

	err := ctx.withQueueAccess(func(access queueAccess) error {
		_, err := access.QueueDescribe("no-such-entry")
		return err
	})
	if err == nil {
		t.Fatal("expected an error for an unknown entry id")
	}
}
