package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"sensegrid/internal/config"
)

// Store manages queue persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the queue database and verifies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.QueueDBPath())
}

// OpenPath opens the queue database at an explicit file path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Put inserts or overwrites an entry by its identifier.
func (s *Store) Put(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return storageErr("put", errors.New("entry is nil"))
	}
	if strings.TrimSpace(entry.ID) == "" {
		return storageErr("put", errors.New("entry id is required"))
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO queue_entries (
            id, target_id, command_json, home_id, room_id, status,
            retry_count, max_retries, created_at, last_retry_at, last_error
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            target_id = excluded.target_id,
            command_json = excluded.command_json,
            home_id = excluded.home_id,
            room_id = excluded.room_id,
            status = excluded.status,
            retry_count = excluded.retry_count,
            max_retries = excluded.max_retries,
            created_at = excluded.created_at,
            last_retry_at = excluded.last_retry_at,
            last_error = excluded.last_error`,
		entry.ID,
		entry.TargetID,
		string(entry.Command),
		nullableString(entry.ContextIDs.HomeID),
		nullableString(entry.ContextIDs.RoomID),
		entry.Status,
		entry.RetryCount,
		entry.MaxRetries,
		timeToMillis(entry.CreatedAt),
		nullableMillis(entry.LastRetryAt),
		nullableString(entry.LastError),
	)
	return storageErr("put entry", err)
}

// Get fetches an entry by identifier. A missing entry returns (nil, nil).
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM queue_entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get entry", err)
	}
	return entry, nil
}

// List returns entries filtered by status set (or all entries when no status
// is provided), ordered oldest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]Entry, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + entryColumns + ` FROM queue_entries`
	orderClause := ` ORDER BY created_at, rowid`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, storageErr("list entries", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// EntriesForTarget returns all entries addressed at a target, oldest first.
func (s *Store) EntriesForTarget(ctx context.Context, targetID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+entryColumns+` FROM queue_entries WHERE target_id = ? ORDER BY created_at, rowid`,
		targetID,
	)
	if err != nil {
		return nil, storageErr("list entries by target", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// Delete removes an entry; deleting an absent id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM queue_entries WHERE id = ?`, id)
	return storageErr("delete entry", err)
}

// Clear removes all entries from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queue_entries`)
	if err != nil {
		return 0, storageErr("clear queue", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("clear queue", err)
	}
	return removed, nil
}

// Stats returns entry counts grouped by status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM queue_entries GROUP BY status`)
	if err != nil {
		return Stats{}, storageErr("queue stats", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, storageErr("queue stats", err)
		}
		stats.Total += count
		switch status {
		case StatusPending:
			stats.Pending += count
		case StatusSynced:
			stats.Synced += count
		case StatusFailed:
			stats.Failed += count
		}
	}
	return stats, storageErr("queue stats", rows.Err())
}

// CheckHealth returns diagnostic information about the queue database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("queue database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat queue database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("queue database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("queue database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping queue database: %w", err)
	}
	health.DatabaseReadable = true

	var tableName string
	row := s.db.QueryRowContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'queue_entries'")
	if err := row.Scan(&tableName); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			health.Error = err.Error()
			return health, fmt.Errorf("query table info: %w", err)
		}
	} else {
		health.TableExists = true
	}

	if health.TableExists {
		row = s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM queue_entries")
		if err := row.Scan(&health.TotalEntries); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count queue entries: %w", err)
		}
	}

	row = s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}

const entryColumns = "id, target_id, command_json, home_id, room_id, status, retry_count, max_retries, created_at, last_retry_at, last_error"

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		id          string
		targetID    string
		commandJSON string
		homeID      sql.NullString
		roomID      sql.NullString
		statusStr   string
		retryCount  int
		maxRetries  int
		createdMs   int64
		lastRetryMs sql.NullInt64
		lastError   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&targetID,
		&commandJSON,
		&homeID,
		&roomID,
		&statusStr,
		&retryCount,
		&maxRetries,
		&createdMs,
		&lastRetryMs,
		&lastError,
	); err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:       id,
		TargetID: targetID,
		Command:  []byte(commandJSON),
		ContextIDs: ContextIDs{
			HomeID: homeID.String,
			RoomID: roomID.String,
		},
		Status:     Status(statusStr),
		RetryCount: retryCount,
		MaxRetries: maxRetries,
		CreatedAt:  millisToTime(createdMs),
		LastError:  lastError.String,
	}
	if lastRetryMs.Valid {
		t := millisToTime(lastRetryMs.Int64)
		entry.LastRetryAt = &t
	}
	return entry, nil
}

func collectEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, storageErr("scan entry", err)
		}
		entries = append(entries, *entry)
	}
	return entries, storageErr("iterate entries", rows.Err())
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableMillis(value *time.Time) any {
	if value == nil {
		return nil
	}
	return timeToMillis(*value)
}

func timeToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func millisToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
