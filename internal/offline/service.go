package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"sensegrid/internal/backend"
	"sensegrid/internal/logging"
	"sensegrid/internal/queue"
)

// Sender delivers one command to the backend.
type Sender interface {
	Send(ctx context.Context, targetID string, command json.RawMessage, ids queue.ContextIDs) error
}

// Service owns the offline command queue: it persists commands that could
// not be delivered and replays them oldest-first when connectivity returns.
type Service struct {
	store      *queue.Store
	sender     Sender
	online     func() bool
	logger     *slog.Logger
	maxRetries int
	bus        *Bus

	flushMu  chan struct{}
	flushCtx func() context.Context
}

// NewService wires the queue service. online reports current backend
// reachability; when nil the service assumes offline and never starts a
// flush on its own.
func NewService(store *queue.Store, sender Sender, online func() bool, maxRetries int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	if online == nil {
		online = func() bool { return false }
	}
	if maxRetries <= 0 {
		maxRetries = queue.DefaultMaxRetries
	}
	svc := &Service{
		store:      store,
		sender:     sender,
		online:     online,
		logger:     logger.With(logging.String(logging.FieldComponent, "queue")),
		maxRetries: maxRetries,
		bus:        NewBus(logger),
		flushMu:    make(chan struct{}, 1),
		flushCtx:   context.Background,
	}
	return svc
}

// Subscribe registers a listener for queue lifecycle events.
func (s *Service) Subscribe(name string, handler Handler) func() {
	return s.bus.Subscribe(name, handler)
}

// Enqueue persists a new pending command and, when the backend is
// currently reachable, kicks off an asynchronous flush so the command does
// not sit in the queue until the next scheduled pass.
func (s *Service) Enqueue(ctx context.Context, targetID string, command json.RawMessage, ids queue.ContextIDs) (queue.Entry, error) {
	if strings.TrimSpace(targetID) == "" {
		return queue.Entry{}, errors.New("enqueue: target id is required")
	}
	entry := queue.Entry{
		ID:         uuid.NewString(),
		TargetID:   targetID,
		Command:    command,
		ContextIDs: ids,
		Status:     queue.StatusPending,
		MaxRetries: s.maxRetries,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.Put(ctx, &entry); err != nil {
		return queue.Entry{}, fmt.Errorf("enqueue %s: %w", targetID, err)
	}
	s.logger.Info("command queued",
		logging.String(logging.FieldEntryID, entry.ID),
		logging.String(logging.FieldTarget, targetID))
	s.bus.Emit(Event{Name: EventEnqueued, Entry: entry})

	if s.online() {
		go s.Flush(s.flushCtx())
	}
	return entry, nil
}

// Flush replays pending entries oldest-first. At most one pass runs at a
// time; a call that arrives while a pass is in flight returns immediately
// and the running pass covers it. A connectivity failure aborts the pass
// without touching any retry counter, since an unreachable backend says
// nothing about whether a command is acceptable.
func (s *Service) Flush(ctx context.Context) {
	select {
	case s.flushMu <- struct{}{}:
	default:
		return
	}
	defer func() { <-s.flushMu }()

	pending, err := s.store.List(ctx, queue.StatusPending)
	if err != nil {
		s.logger.Error("flush: list pending entries", logging.Error(err))
		return
	}
	if len(pending) == 0 {
		return
	}
	s.logger.Info("flushing queue", logging.Int("pending", len(pending)))

	for i := range pending {
		if ctx.Err() != nil {
			return
		}
		if !s.flushOne(ctx, &pending[i]) {
			return
		}
	}
}

// flushOne attempts delivery of a single entry. It returns false when the
// pass should stop (connectivity lost).
func (s *Service) flushOne(ctx context.Context, entry *queue.Entry) bool {
	err := s.sender.Send(ctx, entry.TargetID, entry.Command, entry.ContextIDs)
	if err == nil {
		entry.Status = queue.StatusSynced
		entry.LastError = ""
		if putErr := s.store.Put(ctx, entry); putErr != nil {
			s.logger.Error("flush: mark entry synced",
				logging.String(logging.FieldEntryID, entry.ID),
				logging.Error(putErr))
			return true
		}
		s.logger.Info("command delivered",
			logging.String(logging.FieldEntryID, entry.ID),
			logging.String(logging.FieldTarget, entry.TargetID))
		s.bus.Emit(Event{Name: EventFlushed, Entry: *entry})
		return true
	}

	if errors.Is(err, backend.ErrConnectivity) {
		s.logger.Warn("flush aborted, backend unreachable",
			logging.String(logging.FieldEntryID, entry.ID),
			logging.Error(err))
		return false
	}

	now := time.Now().UTC()
	entry.RetryCount++
	entry.LastRetryAt = &now
	entry.LastError = err.Error()

	maxRetries := entry.MaxRetries
	if maxRetries <= 0 {
		maxRetries = s.maxRetries
	}
	if entry.RetryCount >= maxRetries {
		entry.Status = queue.StatusFailed
		reason := fmt.Sprintf("rejected %d times, last error: %v", entry.RetryCount, err)
		if putErr := s.store.Put(ctx, entry); putErr != nil {
			s.logger.Error("flush: mark entry failed",
				logging.String(logging.FieldEntryID, entry.ID),
				logging.Error(putErr))
			return true
		}
		s.logger.Error("command failed permanently",
			logging.String(logging.FieldEntryID, entry.ID),
			logging.String(logging.FieldTarget, entry.TargetID),
			logging.Int("retries", entry.RetryCount))
		s.bus.Emit(Event{Name: EventFailed, Entry: *entry, Reason: reason})
		return true
	}

	if putErr := s.store.Put(ctx, entry); putErr != nil {
		s.logger.Error("flush: record retry",
			logging.String(logging.FieldEntryID, entry.ID),
			logging.Error(putErr))
		return true
	}
	s.logger.Warn("command rejected, will retry",
		logging.String(logging.FieldEntryID, entry.ID),
		logging.String(logging.FieldTarget, entry.TargetID),
		logging.Int("retries", entry.RetryCount),
		logging.Error(err))
	return true
}

// List returns queue entries, optionally filtered by status, oldest first.
func (s *Service) List(ctx context.Context, statuses ...queue.Status) ([]queue.Entry, error) {
	return s.store.List(ctx, statuses...)
}

// EntriesFor returns every entry queued for the given target, oldest first.
func (s *Service) EntriesFor(ctx context.Context, targetID string) ([]queue.Entry, error) {
	return s.store.EntriesForTarget(ctx, targetID)
}

// IsQueuedFor reports whether a live entry exists for the target whose
// command addresses the given sensor. Failed entries do not count: they
// will never be delivered, so nothing is pending for that sensor.
func (s *Service) IsQueuedFor(ctx context.Context, targetID, sensor string) (bool, error) {
	entries, err := s.store.EntriesForTarget(ctx, targetID)
	if err != nil {
		return false, err
	}
	for i := range entries {
		if entries[i].Status == queue.StatusFailed {
			continue
		}
		if entries[i].CommandSensor() == sensor {
			return true, nil
		}
	}
	return false, nil
}

// Stats returns queue counters by status.
func (s *Service) Stats(ctx context.Context) (queue.Stats, error) {
	return s.store.Stats(ctx)
}

// Clear removes every entry and returns how many were dropped.
func (s *Service) Clear(ctx context.Context) (int64, error) {
	removed, err := s.store.Clear(ctx)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("queue cleared", logging.Int64("removed", removed))
	}
	return removed, nil
}
