package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Event operations

// RecordEvent inserts a history row for an install, update, or restore
// run and returns its ID.
func (s *Store) RecordEvent(kind, version, outcome, detail string) (int64, error) {
	query := `
		INSERT INTO events (kind, version, outcome, detail, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(query, kind, version, outcome, detail, time.Now().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to record %s event: %w", kind, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get event ID: %w", err)
	}
	return id, nil
}

// ListEvents returns the most recent events, newest first. A limit of
// 0 or less returns everything.
func (s *Store) ListEvents(limit int) ([]*Event, error) {
	query := `
		SELECT id, kind, version, outcome, detail, created_at
		FROM events
		ORDER BY created_at DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// LastEvent returns the most recent event of the given kind, or nil
// when none was recorded yet.
func (s *Store) LastEvent(kind string) (*Event, error) {
	query := `
		SELECT id, kind, version, outcome, detail, created_at
		FROM events
		WHERE kind = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	row := s.db.QueryRow(query, kind)
	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

// LastInstalledVersion returns the Perch version of the most recent
// successful install or update, or "" when nothing succeeded yet.
func (s *Store) LastInstalledVersion() (string, error) {
	query := `
		SELECT version
		FROM events
		WHERE outcome = ? AND kind IN (?, ?) AND version != ''
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var version string
	err := s.db.QueryRow(query, OutcomeOK, KindInstall, KindUpdate).Scan(&version)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query installed version: %w", err)
	}
	return version, nil
}

// Backup audit operations

// RecordBackup inserts a backup audit row.
func (s *Store) RecordBackup(path, reason string, verified bool) error {
	query := `
		INSERT INTO backups (path, reason, verified, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.Exec(query, path, reason, verified, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record backup %s: %w", path, err)
	}
	return nil
}

// ListBackupRecords returns backup audit rows, newest first. A limit
// of 0 or less returns everything.
func (s *Store) ListBackupRecords(limit int) ([]*BackupRecord, error) {
	query := `
		SELECT id, path, reason, verified, created_at
		FROM backups
		ORDER BY created_at DESC, id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list backup records: %w", err)
	}
	defer rows.Close()

	var records []*BackupRecord
	for rows.Next() {
		var rec BackupRecord
		var createdAt string

		if err := rows.Scan(&rec.ID, &rec.Path, &rec.Reason, &rec.Verified, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan backup record: %w", err)
		}

		rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse backup timestamp: %w", err)
		}

		records = append(records, &rec)
	}
	return records, rows.Err()
}

// scanner abstracts sql.Row and sql.Rows for single-event scans.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*Event, error) {
	var event Event
	var createdAt string

	err := row.Scan(&event.ID, &event.Kind, &event.Version, &event.Outcome, &event.Detail, &createdAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}

	event.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event timestamp: %w", err)
	}

	return &event, nil
}
