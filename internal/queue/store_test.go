package queue_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"sensegrid/internal/queue"
	"sensegrid/internal/testsupport"
)

func TestPutAndGetRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	entry := testsupport.NewEntry(t, store, "d1", map[string]string{"sensor": "fan", "value": "ON"})

	fetched, err := store.Get(ctx, entry.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected entry to be found")
	}
	if fetched.TargetID != "d1" {
		t.Fatalf("unexpected target %q", fetched.TargetID)
	}
	if fetched.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", fetched.Status)
	}
	if fetched.RetryCount != 0 {
		t.Fatalf("expected retry count 0, got %d", fetched.RetryCount)
	}
	if fetched.CommandSensor() != "fan" {
		t.Fatalf("expected sensor discriminator fan, got %q", fetched.CommandSensor())
	}
	if fetched.LastRetryAt != nil {
		t.Fatal("expected unset last retry timestamp")
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	entry, err := store.Get(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected nil for missing entry, got %#v", entry)
	}
}

func TestPutOverwritesByID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	entry := testsupport.NewEntry(t, store, "d1", map[string]string{"sensor": "fan", "value": "ON"})

	entry.Status = queue.StatusSynced
	entry.RetryCount = 2
	now := time.Now().UTC()
	entry.LastRetryAt = &now
	if err := store.Put(ctx, entry); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	fetched, err := store.Get(ctx, entry.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.Status != queue.StatusSynced {
		t.Fatalf("expected synced status, got %s", fetched.Status)
	}
	if fetched.RetryCount != 2 {
		t.Fatalf("expected retry count 2, got %d", fetched.RetryCount)
	}
	if fetched.LastRetryAt == nil {
		t.Fatal("expected last retry timestamp to persist")
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one entry after overwrite, got %d", len(all))
	}
}

func TestPutRequiresID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	err := store.Put(context.Background(), &queue.Entry{TargetID: "d1", Command: json.RawMessage(`{}`)})
	if err == nil {
		t.Fatal("expected error for missing id")
	}
	if !queue.IsStorageError(err) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}

func TestListOrdersOldestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	base := time.Now().UTC()
	var ids []string
	for i := 0; i < 3; i++ {
		entry := &queue.Entry{
			ID:         fmt.Sprintf("entry-%d", i),
			TargetID:   "d1",
			Command:    json.RawMessage(`{"sensor":"fan"}`),
			Status:     queue.StatusPending,
			MaxRetries: 5,
			CreatedAt:  base.Add(time.Duration(i) * time.Millisecond),
		}
		if err := store.Put(ctx, entry); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		ids = append(ids, entry.ID)
	}

	entries, err := store.List(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, entry := range entries {
		if entry.ID != ids[i] {
			t.Fatalf("position %d: expected %s, got %s", i, ids[i], entry.ID)
		}
	}
}

func TestListFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	pending := testsupport.NewEntry(t, store, "d1", map[string]string{"sensor": "fan"})
	synced := testsupport.NewEntry(t, store, "d2", map[string]string{"sensor": "buzzer"})
	synced.Status = queue.StatusSynced
	if err := store.Put(ctx, synced); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entries, err := store.List(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != pending.ID {
		t.Fatalf("expected only the pending entry, got %d entries", len(entries))
	}
}

func TestEntriesForTarget(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewEntry(t, store, "d1", map[string]string{"sensor": "fan"})
	testsupport.NewEntry(t, store, "d1", map[string]string{"sensor": "buzzer"})
	testsupport.NewEntry(t, store, "d2", map[string]string{"sensor": "fan"})

	entries, err := store.EntriesForTarget(ctx, "d1")
	if err != nil {
		t.Fatalf("EntriesForTarget failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries for d1, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.TargetID != "d1" {
			t.Fatalf("unexpected target %q", entry.TargetID)
		}
	}
}

func TestDeleteIsNoOpWhenAbsent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if err := store.Delete(context.Background(), "missing"); err != nil {
		t.Fatalf("Delete of absent id should be a no-op, got %v", err)
	}
}

func TestClearAndStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewEntry(t, store, "d1", map[string]string{"sensor": "fan"})
	failed := testsupport.NewEntry(t, store, "d2", map[string]string{"sensor": "buzzer"})
	failed.Status = queue.StatusFailed
	if err := store.Put(ctx, failed); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 2 || stats.Pending != 1 || stats.Failed != 1 || stats.Synced != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}

	stats, err = store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 0 {
		t.Fatalf("expected empty queue, got %+v", stats)
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	entry := testsupport.NewEntry(t, store, "d1", map[string]string{"sensor": "fan", "value": "ON"})
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	fetched, err := reopened.Get(context.Background(), entry.ID)
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if fetched == nil || fetched.TargetID != "d1" {
		t.Fatalf("expected entry to survive restart, got %#v", fetched)
	}
}

func TestCheckHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.NewEntry(t, store, "d1", map[string]string{"sensor": "fan"})

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("unexpected health %+v", health)
	}
	if !health.IntegrityCheck {
		t.Fatal("expected integrity check to pass")
	}
	if health.TotalEntries != 1 {
		t.Fatalf("expected 1 entry, got %d", health.TotalEntries)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus(" Pending "); !ok || status != queue.StatusPending {
		t.Fatalf("expected pending, got %q ok=%v", status, ok)
	}
	if _, ok := queue.ParseStatus("unknown"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}
