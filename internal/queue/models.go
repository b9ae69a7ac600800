package queue

import (
	"encoding/json"
	"strings"
	"time"
)

// DefaultMaxRetries is the rejection budget applied to entries that were
// queued without an explicit one.
const DefaultMaxRetries = 5

// Status represents the lifecycle of a queue entry.
type Status string

const (
	StatusPending Status = "pending"
	StatusSynced  Status = "synced"
	StatusFailed  Status = "failed"
)

var allStatuses = []Status{StatusPending, StatusSynced, StatusFailed}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status can never transition again.
func (s Status) IsTerminal() bool {
	return s == StatusSynced || s == StatusFailed
}

// ContextIDs carries the optional secondary identifiers forwarded verbatim
// with a command.
type ContextIDs struct {
	HomeID string `json:"homeId,omitempty"`
	RoomID string `json:"roomId,omitempty"`
}

// Entry represents one persisted command awaiting delivery to the backend.
// The command payload is opaque to the queue; it is forwarded as-is.
type Entry struct {
	ID          string
	TargetID    string
	Command     json.RawMessage
	ContextIDs  ContextIDs
	Status      Status
	RetryCount  int
	MaxRetries  int
	CreatedAt   time.Time
	LastRetryAt *time.Time
	LastError   string
}

// CommandSensor extracts the sensor discriminator from the command payload,
// or "" when the payload does not carry one. The queue never interprets the
// payload beyond this read-only peek for convenience queries.
func (e *Entry) CommandSensor() string {
	if len(e.Command) == 0 {
		return ""
	}
	var probe struct {
		Sensor string `json:"sensor"`
	}
	if err := json.Unmarshal(e.Command, &probe); err != nil {
		return ""
	}
	return probe.Sensor
}

// Stats aggregates entry counts by status.
type Stats struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	IntegrityCheck   bool
	TotalEntries     int
	Error            string
}
