package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/timetrail/timetrail/internal/domain/activity"
	"github.com/timetrail/timetrail/internal/repository"
)

const recordColumns = `id, app_name, app_id, window_title, url, document_path, extra_context, icon, start_time, end_time, duration_seconds`

// ActivityRepository implements repository.ActivityRepository for SQLite
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Save upserts a record keyed on ID, so re-saving a queued or repaired
// record is idempotent.
func (r *ActivityRepository) Save(ctx context.Context, rec *activity.Record) error {
	query := `
		INSERT INTO activities (
			id, app_name, app_id, window_title, url, document_path,
			extra_context, icon, start_time, end_time, duration_seconds, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			app_name=excluded.app_name,
			app_id=excluded.app_id,
			window_title=excluded.window_title,
			url=excluded.url,
			document_path=excluded.document_path,
			extra_context=excluded.extra_context,
			icon=excluded.icon,
			start_time=excluded.start_time,
			end_time=excluded.end_time,
			duration_seconds=excluded.duration_seconds,
			updated_at=excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.AppName,
		rec.AppID,
		rec.WindowTitle,
		rec.URL,
		rec.DocumentPath,
		rec.ExtraContext,
		rec.Icon,
		ts(rec.StartTime),
		nullableTS(rec.EndTime),
		rec.DurationSeconds,
		time.Now().Unix(),
	)
	return mapStorageErr("failed to save activity", err)
}

// Get retrieves a record by ID
func (r *ActivityRepository) Get(ctx context.Context, id string) (*activity.Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM activities WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, mapStorageErr("failed to get activity", err)
	}
	return rec, nil
}

// List returns records matching the given filters, newest first.
func (r *ActivityRepository) List(ctx context.Context, opts activity.ListOptions) ([]activity.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM activities WHERE 1=1`
	var args []any

	if opts.AppID != "" {
		query += " AND app_id = ?"
		args = append(args, opts.AppID)
	}
	if !opts.Since.IsZero() {
		query += " AND start_time >= ?"
		args = append(args, ts(opts.Since))
	}
	if opts.OnlyOpen {
		query += " AND end_time IS NULL"
	}

	query += " ORDER BY start_time DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	return r.queryRecords(ctx, "failed to list activities", query, args...)
}

// ListOpen returns every open record, oldest first.
func (r *ActivityRepository) ListOpen(ctx context.Context) ([]activity.Record, error) {
	return r.queryRecords(ctx, "failed to list open activities",
		`SELECT `+recordColumns+` FROM activities WHERE end_time IS NULL ORDER BY start_time`)
}

// ListStaleOpen returns open records that started before cutoff, oldest
// first.
func (r *ActivityRepository) ListStaleOpen(ctx context.Context, cutoff time.Time) ([]activity.Record, error) {
	return r.queryRecords(ctx, "failed to list stale open activities",
		`SELECT `+recordColumns+` FROM activities WHERE end_time IS NULL AND start_time < ? ORDER BY start_time`,
		ts(cutoff))
}

// ListDurationDrift returns closed records whose stored duration disagrees
// with the start/end span by more than tolerance.
func (r *ActivityRepository) ListDurationDrift(ctx context.Context, tolerance time.Duration) ([]activity.Record, error) {
	return r.queryRecords(ctx, "failed to list drifted activities",
		`SELECT `+recordColumns+` FROM activities
		 WHERE end_time IS NOT NULL
		   AND ABS(duration_seconds - (end_time - start_time)) > ?
		 ORDER BY start_time`,
		int64(tolerance/time.Second))
}

// Probe performs the cheapest possible read; an empty table still proves
// storage answers.
func (r *ActivityRepository) Probe(ctx context.Context) error {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM activities LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return nil
	}
	return mapStorageErr("storage probe failed", err)
}

// Flush checkpoints the WAL so committed records reach the main database
// file before the system sleeps.
func (r *ActivityRepository) Flush(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`)
	return mapStorageErr("failed to checkpoint", err)
}

// Close closes the underlying database.
func (r *ActivityRepository) Close() error {
	return r.db.Close()
}

func (r *ActivityRepository) queryRecords(ctx context.Context, op, query string, args ...any) ([]activity.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapStorageErr(op, err)
	}
	defer rows.Close()

	var recs []activity.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStorageErr(op, err)
	}
	return recs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*activity.Record, error) {
	var rec activity.Record
	var start int64
	var end sql.NullInt64
	if err := row.Scan(
		&rec.ID,
		&rec.AppName,
		&rec.AppID,
		&rec.WindowTitle,
		&rec.URL,
		&rec.DocumentPath,
		&rec.ExtraContext,
		&rec.Icon,
		&start,
		&end,
		&rec.DurationSeconds,
	); err != nil {
		return nil, err
	}
	rec.StartTime = time.Unix(start, 0).UTC()
	if end.Valid {
		t := time.Unix(end.Int64, 0).UTC()
		rec.EndTime = &t
	}
	return &rec, nil
}

func ts(t time.Time) int64 {
	return t.Unix()
}

func nullableTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return ts(*t)
}
