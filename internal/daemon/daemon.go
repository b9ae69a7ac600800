package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"sensegrid/internal/actions"
	"sensegrid/internal/backend"
	"sensegrid/internal/config"
	"sensegrid/internal/connectivity"
	"sensegrid/internal/logging"
	"sensegrid/internal/notifications"
	"sensegrid/internal/offline"
	"sensegrid/internal/queue"
	"sensegrid/internal/statefeed"
)

// Daemon wires the queue service, connectivity monitor, sync trigger,
// state feed, and HTTP API into a single supervised lifecycle with
// flock-based locking to prevent multiple instances.
type Daemon struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       *queue.Store
	client      *backend.Client
	monitor     *connectivity.Monitor
	queueSvc    *offline.Service
	trigger     *offline.Trigger
	coordinator *actions.Coordinator
	cache       *actions.StateCache
	feed        *statefeed.Feed
	notifier    notifications.Service
	api         *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool        `json:"running"`
	PID          int         `json:"pid"`
	Online       bool        `json:"online"`
	QueueDBPath  string      `json:"queue_db_path"`
	LockFilePath string      `json:"lock_file_path"`
	QueueStats   queue.Stats `json:"queue_stats"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	client := backend.New(cfg)
	monitor := connectivity.NewMonitor(client,
		time.Duration(cfg.Sync.HealthInterval)*time.Second, logger)
	queueSvc := offline.NewService(store, client, monitor.Online, cfg.Queue.MaxRetries, logger)
	trigger := offline.NewTrigger(queueSvc, monitor,
		time.Duration(cfg.Sync.FlushInterval)*time.Second, logger)
	cache := actions.NewStateCache()
	coordinator := actions.NewCoordinator(client, queueSvc, monitor.Online, logger)
	feed := statefeed.New(cfg.MQTT, cache, logger)
	notifier := notifications.NewService(cfg)

	d := &Daemon{
		cfg:         cfg,
		logger:      logger.With(logging.String(logging.FieldComponent, "daemon")),
		store:       store,
		client:      client,
		monitor:     monitor,
		queueSvc:    queueSvc,
		trigger:     trigger,
		coordinator: coordinator,
		cache:       cache,
		feed:        feed,
		notifier:    notifier,
		lockPath:    cfg.LockPath(),
		lock:        flock.New(cfg.LockPath()),
	}

	queueSvc.Subscribe("notifier", func(ev offline.Event) {
		if ev.Name != offline.EventFailed {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := notifier.NotifyCommandFailed(ctx, ev.Entry, ev.Reason); err != nil {
			d.logger.Warn("failure notification not delivered", logging.Error(err))
		}
	})

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock and launches the background components.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another sensegrid daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	d.cancel = cancel
	d.group = group

	group.Go(func() error { return ignoreCanceled(d.monitor.Run(groupCtx)) })
	group.Go(func() error { return ignoreCanceled(d.trigger.Run(groupCtx)) })
	group.Go(func() error { return ignoreCanceled(d.feed.Run(groupCtx)) })

	if d.api != nil {
		if err := d.api.start(groupCtx); err != nil {
			cancel()
			_ = group.Wait()
			_ = d.lock.Unlock()
			d.cancel = nil
			d.group = nil
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("sensegrid daemon started", logging.String("lock", d.lockPath))
	return nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop halts background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.api != nil {
		d.api.stop()
	}
	if d.group != nil {
		if err := d.group.Wait(); err != nil {
			d.logger.Warn("component exited with error", logging.Error(err))
		}
		d.group = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("sensegrid daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// commandProbe is the fragment of a command payload the daemon interprets
// for the optimistic state cache.
type commandProbe struct {
	Sensor string `json:"sensor"`
	Action string `json:"action"`
}

// Perform routes one actuator command through the optimistic coordinator,
// keeping the local state cache in step with the outcome.
func (d *Daemon) Perform(ctx context.Context, targetID string, command json.RawMessage, ids queue.ContextIDs) (actions.Result, error) {
	if ids.HomeID == "" {
		ids.HomeID = d.cfg.Backend.HomeID
	}
	if ids.RoomID == "" {
		ids.RoomID = d.cfg.Backend.RoomID
	}

	req := actions.Request{TargetID: targetID, Command: command, ContextIDs: ids}

	var probe commandProbe
	if err := json.Unmarshal(command, &probe); err == nil && probe.Sensor != "" && probe.Action != "" {
		prev, existed := d.cache.Get(targetID, probe.Sensor)
		req.ApplyLocal = func() {
			d.cache.ApplyOptimistic(targetID, probe.Sensor, probe.Action)
		}
		req.RevertLocal = func() {
			d.cache.Revert(targetID, probe.Sensor, prev, existed)
		}
	}

	return d.coordinator.Perform(ctx, req)
}

// Flush requests an immediate queue flush pass.
func (d *Daemon) Flush() {
	d.trigger.Kick()
}

// Online reports current backend reachability.
func (d *Daemon) Online() bool {
	return d.monitor.Online()
}

// ListQueue returns queue entries filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]queue.Entry, error) {
	return d.queueSvc.List(ctx, statuses...)
}

// GetQueueEntry returns one queue entry, or nil when absent.
func (d *Daemon) GetQueueEntry(ctx context.Context, id string) (*queue.Entry, error) {
	return d.store.Get(ctx, id)
}

// ClearQueue removes all queue entries.
func (d *Daemon) ClearQueue(ctx context.Context) (int64, error) {
	return d.queueSvc.Clear(ctx)
}

// QueueStats returns aggregate queue counters.
func (d *Daemon) QueueStats(ctx context.Context) (queue.Stats, error) {
	return d.queueSvc.Stats(ctx)
}

// DatabaseHealth returns detailed queue database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// Rooms fetches the current room snapshots from the backend.
func (d *Daemon) Rooms(ctx context.Context) ([]backend.Room, error) {
	return d.client.Rooms(ctx)
}

// States returns a copy of the locally cached actuator state.
func (d *Daemon) States() map[string]map[string]actions.ActuatorState {
	return d.cache.Snapshot()
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	stats, err := d.queueSvc.Stats(ctx)
	if err != nil {
		d.logger.Warn("queue stats unavailable", logging.Error(err))
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Online:       d.monitor.Online(),
		QueueDBPath:  d.cfg.QueueDBPath(),
		LockFilePath: d.lockPath,
		QueueStats:   stats,
	}
}
