package store

import (
	"database/sql"
	"time"
)

// IngestRun is the audit row for one source table in a build, or for a
// build that failed before producing a report.
type IngestRun struct {
	ID           int64
	SnapshotID   sql.NullInt64
	Source       string
	StartedAt    time.Time
	FinishedAt   sql.NullTime
	RowsRead     sql.NullInt64
	RowsKept     sql.NullInt64
	RowsSkipped  sql.NullInt64
	CellsCoerced sql.NullInt64
	Districts    sql.NullInt64
	Success      bool
	ErrorMessage sql.NullString
}

// InsertIngestRun records a finished run and returns its ID.
func (s *Store) InsertIngestRun(run IngestRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO ingest_runs (snapshot_id, source, started_at, finished_at, rows_read, rows_kept,
			rows_skipped, cells_coerced, districts, success, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.SnapshotID, run.Source, run.StartedAt, run.FinishedAt, run.RowsRead, run.RowsKept,
		run.RowsSkipped, run.CellsCoerced, run.Districts, run.Success, run.ErrorMessage)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetIngestRuns returns the audit rows for a snapshot in insertion order.
func (s *Store) GetIngestRuns(snapshotID int64) ([]IngestRun, error) {
	rows, err := s.db.Query(`
		SELECT id, snapshot_id, source, started_at, finished_at, rows_read, rows_kept,
		       rows_skipped, cells_coerced, districts, success, error_message
		FROM ingest_runs
		WHERE snapshot_id = ?
		ORDER BY id
	`, snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIngestRuns(rows)
}

// GetRecentIngestErrors returns recent failed runs, newest first.
func (s *Store) GetRecentIngestErrors(limit int) ([]IngestRun, error) {
	rows, err := s.db.Query(`
		SELECT id, snapshot_id, source, started_at, finished_at, rows_read, rows_kept,
		       rows_skipped, cells_coerced, districts, success, error_message
		FROM ingest_runs
		WHERE success = FALSE
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIngestRuns(rows)
}

func scanIngestRuns(rows *sql.Rows) ([]IngestRun, error) {
	var results []IngestRun
	for rows.Next() {
		var r IngestRun
		if err := rows.Scan(&r.ID, &r.SnapshotID, &r.Source, &r.StartedAt, &r.FinishedAt,
			&r.RowsRead, &r.RowsKept, &r.RowsSkipped, &r.CellsCoerced, &r.Districts,
			&r.Success, &r.ErrorMessage); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
