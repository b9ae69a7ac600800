package testsupport

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"sensegrid/internal/config"
	"sensegrid/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewEntry persists a pending entry for tests using the provided store.
func NewEntry(t testing.TB, store *queue.Store, targetID string, command any) *queue.Entry {
	t.Helper()

	payload, err := json.Marshal(command)
	if err != nil {
		t.Fatalf("marshal command: %v", err)
	}
	entry := &queue.Entry{
		ID:         uuid.NewString(),
		TargetID:   targetID,
		Command:    payload,
		Status:     queue.StatusPending,
		MaxRetries: 5,
		CreatedAt:  time.Now().UTC(),
	}
	if err := store.Put(context.Background(), entry); err != nil {
		t.Fatalf("store.Put: %v", err)
	}
	return entry
}
