package ipc

import (
	"encoding/json"

	"sensegrid/internal/backend"
	"sensegrid/internal/daemon"
	"sensegrid/internal/queue"
)

// EntryView mirrors the HTTP API queue DTO for internal IPC callers.
type EntryView = daemon.EntryView

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running      bool        `json:"running"`
	PID          int         `json:"pid"`
	Online       bool        `json:"online"`
	QueueDBPath  string      `json:"queue_db_path"`
	LockFilePath string      `json:"lock_file_path"`
	QueueStats   queue.Stats `json:"queue_stats"`
}

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// SendRequest routes one actuator command through the daemon.
type SendRequest struct {
	TargetID string          `json:"target_id"`
	Command  json.RawMessage `json:"command"`
	HomeID   string          `json:"home_id"`
	RoomID   string          `json:"room_id"`
}

// SendResponse reports how the command was resolved.
type SendResponse struct {
	Delivered bool       `json:"delivered"`
	Entry     *EntryView `json:"entry,omitempty"`
}

// QueueListRequest filters queue listing by status.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
}

// QueueListResponse contains queue entries.
type QueueListResponse struct {
	Entries []EntryView `json:"entries"`
}

// QueueDescribeRequest fetches a single queue entry by id.
type QueueDescribeRequest struct {
	ID string `json:"id"`
}

// QueueDescribeResponse contains a single queue entry.
type QueueDescribeResponse struct {
	Entry EntryView `json:"entry"`
}

// QueueStatsRequest fetches aggregate queue counters.
type QueueStatsRequest struct{}

// QueueStatsResponse reports queue counters by status.
type QueueStatsResponse struct {
	Stats queue.Stats `json:"stats"`
}

// QueueClearRequest removes all entries.
type QueueClearRequest struct{}

// QueueClearResponse reports number of removed entries.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}

// FlushRequest asks the daemon for an immediate flush pass.
type FlushRequest struct{}

// FlushResponse acknowledges the flush request.
type FlushResponse struct {
	Requested bool `json:"requested"`
}

// RoomsRequest fetches room snapshots from the backend.
type RoomsRequest struct{}

// RoomsResponse contains the backend room snapshots.
type RoomsResponse struct {
	Rooms []backend.Room `json:"rooms"`
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	DBPath           string `json:"db_path"`
	DatabaseExists   bool   `json:"database_exists"`
	DatabaseReadable bool   `json:"database_readable"`
	TableExists      bool   `json:"table_exists"`
	IntegrityCheck   bool   `json:"integrity_check"`
	TotalEntries     int    `json:"total_entries"`
	Error            string `json:"error"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
