package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"sensegrid/internal/logging"
	"sensegrid/internal/offline"
	"sensegrid/internal/queue"
)

// Enqueuer is the slice of the queue service the coordinator needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, targetID string, command json.RawMessage, ids queue.ContextIDs) (queue.Entry, error)
}

// Request describes one user-initiated actuator command. ApplyLocal and
// RevertLocal are optional hooks for optimistic UI state; RevertLocal runs
// only when the command could be neither delivered nor queued.
type Request struct {
	TargetID    string
	Command     json.RawMessage
	ContextIDs  queue.ContextIDs
	ApplyLocal  func()
	RevertLocal func()
}

// Result reports how a request was resolved.
type Result struct {
	// Delivered is true when the backend accepted the command directly.
	Delivered bool
	// Entry is set when the command was queued for later delivery.
	Entry *queue.Entry
}

// Coordinator implements the optimistic command flow: apply the local
// effect immediately, try one direct delivery, and fall back to the
// offline queue. The local effect is rolled back only when even queueing
// fails, because a queued command will eventually take effect.
type Coordinator struct {
	sender  offline.Sender
	enqueue Enqueuer
	online  func() bool
	logger  *slog.Logger
}

// NewCoordinator wires a coordinator. online may be nil, in which case
// every request goes straight to the queue.
func NewCoordinator(sender offline.Sender, enqueue Enqueuer, online func() bool, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	if online == nil {
		online = func() bool { return false }
	}
	return &Coordinator{
		sender:  sender,
		enqueue: enqueue,
		online:  online,
		logger:  logger.With(logging.String(logging.FieldComponent, "actions")),
	}
}

// Perform executes one command request. The local effect is applied
// before any network traffic so the caller sees the new state instantly.
// At most one direct delivery is attempted; any delivery failure, of
// either kind, routes the command into the queue instead of retrying
// inline.
func (c *Coordinator) Perform(ctx context.Context, req Request) (Result, error) {
	if req.ApplyLocal != nil {
		req.ApplyLocal()
	}

	if c.online() {
		err := c.sender.Send(ctx, req.TargetID, req.Command, req.ContextIDs)
		if err == nil {
			c.logger.Info("command delivered directly",
				logging.String(logging.FieldTarget, req.TargetID))
			return Result{Delivered: true}, nil
		}
		c.logger.Warn("direct delivery failed, queueing",
			logging.String(logging.FieldTarget, req.TargetID),
			logging.Error(err))
	}

	entry, err := c.enqueue.Enqueue(ctx, req.TargetID, req.Command, req.ContextIDs)
	if err != nil {
		if req.RevertLocal != nil {
			req.RevertLocal()
		}
		return Result{}, fmt.Errorf("queue command for %s: %w", req.TargetID, err)
	}
	return Result{Entry: &entry}, nil
}
