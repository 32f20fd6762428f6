package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-controller/internal/event"
)

const (
	defaultLimit = 50
	maxLimit     = 500

	// timeLayout is fixed width so recorded_at sorts lexically.
	timeLayout = "2006-01-02T15:04:05.000000Z"
)

// Entry is one recorded sensor value.
type Entry struct {
	ID         int64     `json:"id"`
	SensorID   int       `json:"sensor_id"`
	Sensor     string    `json:"sensor"`
	Kind       string    `json:"kind"`
	Value      string    `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Repository stores sensor history in the sensor_history table.
//
// Thread Safety:
//   - Safe for concurrent use; serialisation is left to database/sql.
type Repository struct {
	db *sql.DB
}

// NewRepository returns a repository on an open, migrated database.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Record inserts the event's serialized value at its own timestamp.
func (r *Repository) Record(ctx context.Context, e event.Event) error {
	if e.SourceID() <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSensor, e.SourceID())
	}

	ts := e.Timestamp()
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sensor_history (sensor_id, sensor, kind, value, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.SourceID(),
		e.Source(),
		string(e.Kind()),
		e.Serialize(),
		ts.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting sensor history: %w", err)
	}
	return nil
}

// Recent returns up to limit entries for a sensor, newest first. The limit
// defaults to 50 and is capped at 500.
func (r *Repository) Recent(ctx context.Context, sensorID, limit int) ([]Entry, error) {
	if sensorID <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSensor, sensorID)
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, sensor_id, sensor, kind, value, recorded_at
		 FROM sensor_history
		 WHERE sensor_id = ?
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`,
		sensorID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying sensor history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		var recordedAt string
		if err := rows.Scan(&entry.ID, &entry.SensorID, &entry.Sensor, &entry.Kind, &entry.Value, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning sensor history: %w", err)
		}
		entry.RecordedAt, err = time.Parse(timeLayout, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing recorded_at: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sensor history: %w", err)
	}
	return entries, nil
}

// Prune deletes entries recorded before now-olderThan and returns how many
// rows were removed.
func (r *Repository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, ErrInvalidRetention
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(timeLayout)
	result, err := r.db.ExecContext(ctx, "DELETE FROM sensor_history WHERE recorded_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting sensor history: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}
