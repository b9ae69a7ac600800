package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"sensegrid/internal/backend"
	"sensegrid/internal/logging"
	"sensegrid/internal/queue"
)

type scriptedSender struct {
	err   error
	calls int
}

func (s *scriptedSender) Send(ctx context.Context, targetID string, command json.RawMessage, ids queue.ContextIDs) error {
	s.calls++
	return s.err
}

type scriptedEnqueuer struct {
	err   error
	calls int
	last  string
}

func (e *scriptedEnqueuer) Enqueue(ctx context.Context, targetID string, command json.RawMessage, ids queue.ContextIDs) (queue.Entry, error) {
	e.calls++
	e.last = targetID
	if e.err != nil {
		return queue.Entry{}, e.err
	}
	return queue.Entry{ID: "entry-1", TargetID: targetID, Command: command, Status: queue.StatusPending}, nil
}

func alwaysOnline() bool  { return true }
func alwaysOffline() bool { return false }

func command() json.RawMessage {
	return json.RawMessage(`{"sensor":"temperature","action":"ON"}`)
}

func TestPerformDeliversDirectlyWhenOnline(t *testing.T) {
	sender := &scriptedSender{}
	enq := &scriptedEnqueuer{}
	coord := NewCoordinator(sender, enq, alwaysOnline, logging.NewNop())

	var applied bool
	res, err := coord.Perform(context.Background(), Request{
		TargetID:   "device-1",
		Command:    command(),
		ApplyLocal: func() { applied = true },
	})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if !applied {
		t.Error("local effect not applied")
	}
	if !res.Delivered || res.Entry != nil {
		t.Errorf("result = %+v, want direct delivery", res)
	}
	if sender.calls != 1 || enq.calls != 0 {
		t.Errorf("sends = %d, enqueues = %d", sender.calls, enq.calls)
	}
}

func TestPerformQueuesOnDeliveryFailure(t *testing.T) {
	for name, sendErr := range map[string]error{
		"connectivity": fmt.Errorf("%w: refused", backend.ErrConnectivity),
		"rejection":    fmt.Errorf("%w: status 500", backend.ErrRejected),
	} {
		t.Run(name, func(t *testing.T) {
			sender := &scriptedSender{err: sendErr}
			enq := &scriptedEnqueuer{}
			coord := NewCoordinator(sender, enq, alwaysOnline, logging.NewNop())

			var reverted bool
			res, err := coord.Perform(context.Background(), Request{
				TargetID:    "device-1",
				Command:     command(),
				RevertLocal: func() { reverted = true },
			})
			if err != nil {
				t.Fatalf("Perform: %v", err)
			}
			if sender.calls != 1 {
				t.Errorf("sends = %d, want exactly 1 direct attempt", sender.calls)
			}
			if res.Entry == nil || res.Delivered {
				t.Errorf("result = %+v, want queued entry", res)
			}
			if reverted {
				t.Error("queued command must keep the local effect")
			}
		})
	}
}

func TestPerformSkipsDirectAttemptWhenOffline(t *testing.T) {
	sender := &scriptedSender{}
	enq := &scriptedEnqueuer{}
	coord := NewCoordinator(sender, enq, alwaysOffline, logging.NewNop())

	res, err := coord.Perform(context.Background(), Request{TargetID: "device-1", Command: command()})
	if err != nil {
		t.Fatalf("Perform: %v", err)
	}
	if sender.calls != 0 {
		t.Error("no direct attempt expected while offline")
	}
	if res.Entry == nil {
		t.Error("command not queued")
	}
	if enq.last != "device-1" {
		t.Errorf("enqueued target = %s", enq.last)
	}
}

func TestPerformRevertsLocalOnStorageFailure(t *testing.T) {
	sender := &scriptedSender{err: fmt.Errorf("%w: refused", backend.ErrConnectivity)}
	enq := &scriptedEnqueuer{err: errors.New("disk full")}
	coord := NewCoordinator(sender, enq, alwaysOnline, logging.NewNop())

	var applied, reverted bool
	_, err := coord.Perform(context.Background(), Request{
		TargetID:    "device-1",
		Command:     command(),
		ApplyLocal:  func() { applied = true },
		RevertLocal: func() { reverted = true },
	})
	if err == nil {
		t.Fatal("expected error when queueing fails")
	}
	if !applied || !reverted {
		t.Errorf("applied = %v, reverted = %v, want both", applied, reverted)
	}
}
