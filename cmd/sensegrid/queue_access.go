package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"sensegrid/internal/daemon"
	"sensegrid/internal/ipc"
	"sensegrid/internal/queue"
)

// queueAccess is the slice of the daemon surface the queue commands use.
// *ipc.Client satisfies it; storeQueueAccess covers the same operations by
// opening the queue database directly when no daemon is running.
type queueAccess interface {
	QueueList(statuses []string) (*ipc.QueueListResponse, error)
	QueueDescribe(id string) (*ipc.QueueDescribeResponse, error)
	QueueStats() (*ipc.QueueStatsResponse, error)
	QueueClear() (*ipc.QueueClearResponse, error)
	DatabaseHealth() (*ipc.DatabaseHealthResponse, error)
}

// withQueueAccess prefers the daemon socket and falls back to the store
// when the socket is absent or refuses the connection.
func (c *commandContext) withQueueAccess(fn func(queueAccess) error) error {
	socket := c.socketPath()
	client, err := ipc.Dial(socket)
	if err == nil {
		defer client.Close()
		return fn(client)
	}
	if !daemonUnavailable(err) {
		return wrapDialError(err, socket)
	}

	cfg, cfgErr := c.ensureConfig()
	if cfgErr != nil {
		return fmt.Errorf("daemon is not running and configuration could not be loaded: %w", cfgErr)
	}
	store, openErr := queue.Open(cfg)
	if openErr != nil {
		return fmt.Errorf("daemon is not running and the queue database could not be opened: %w", openErr)
	}
	defer store.Close()
	return fn(&storeQueueAccess{store: store})
}

func daemonUnavailable(err error) bool {
	return errors.Is(err, syscall.ENOENT) || os.IsNotExist(err) || errors.Is(err, syscall.ECONNREFUSED)
}

// storeQueueAccess serves queue reads and clear against the database file
// directly, mirroring the IPC response shapes.
type storeQueueAccess struct {
	store *queue.Store
}

func (a *storeQueueAccess) QueueList(statuses []string) (*ipc.QueueListResponse, error) {
	var filter []queue.Status
	for _, raw := range statuses {
		if status, ok := queue.ParseStatus(strings.TrimSpace(raw)); ok {
			filter = append(filter, status)
		}
	}
	entries, err := a.store.List(context.Background(), filter...)
	if err != nil {
		return nil, err
	}
	resp := &ipc.QueueListResponse{Entries: make([]ipc.EntryView, 0, len(entries))}
	for i := range entries {
		resp.Entries = append(resp.Entries, daemon.FromEntry(&entries[i]))
	}
	return resp, nil
}

func (a *storeQueueAccess) QueueDescribe(id string) (*ipc.QueueDescribeResponse, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("queue describe requires an entry id")
	}
	entry, err := a.store.Get(context.Background(), id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("queue entry %s not found", id)
	}
	return &ipc.QueueDescribeResponse{Entry: daemon.FromEntry(entry)}, nil
}

func (a *storeQueueAccess) QueueStats() (*ipc.QueueStatsResponse, error) {
	stats, err := a.store.Stats(context.Background())
	if err != nil {
		return nil, err
	}
	return &ipc.QueueStatsResponse{Stats: stats}, nil
}

func (a *storeQueueAccess) QueueClear() (*ipc.QueueClearResponse, error) {
	removed, err := a.store.Clear(context.Background())
	if err != nil {
		return nil, err
	}
	return &ipc.QueueClearResponse{Removed: removed}, nil
}

func (a *storeQueueAccess) DatabaseHealth() (*ipc.DatabaseHealthResponse, error) {
	health, err := a.store.CheckHealth(context.Background())
	if err != nil && health.Error == "" {
		return nil, err
	}
	resp := &ipc.DatabaseHealthResponse{
		DBPath:           health.DBPath,
		DatabaseExists:   health.DatabaseExists,
		DatabaseReadable: health.DatabaseReadable,
		TableExists:      health.TableExists,
		IntegrityCheck:   health.IntegrityCheck,
		TotalEntries:     health.TotalEntries,
		Error:            health.Error,
	}
	return resp, err
}
