package database

import (
	"context"
	"fmt"
	"time"
)

// RecordMerge stores the outcome of a merge attempt.
func (d *Database) RecordMerge(ctx context.Context, m MergeRecord) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("record_merge", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	created := m.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO merges (id, session_id, status, output_name, size, duration, bitrate, fade,
			clip_count, stage, kind, error, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.SessionID, string(m.Status), m.OutputName, m.SizeBytes, m.DurationSeconds, m.Bitrate,
		m.FadeSeconds, m.ClipCount, m.Stage, m.Kind, m.Error, m.Elapsed.Milliseconds(), created.Unix())
	if err != nil {
		return fmt.Errorf("failed to record merge: %w", err)
	}
	return nil
}

// ListMerges returns the merge history of a session, newest first.
func (d *Database) ListMerges(ctx context.Context, sessionID string) ([]MergeRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_merges", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, session_id, status, output_name, size, duration, bitrate, fade,
			clip_count, stage, kind, error, elapsed_ms, created_at
		FROM merges WHERE session_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list merges: %w", err)
	}
	defer rows.Close()

	merges := []MergeRecord{}
	for rows.Next() {
		var m MergeRecord
		var status string
		var elapsedMs, created int64
		if err = rows.Scan(&m.ID, &m.SessionID, &status, &m.OutputName, &m.SizeBytes, &m.DurationSeconds,
			&m.Bitrate, &m.FadeSeconds, &m.ClipCount, &m.Stage, &m.Kind, &m.Error, &elapsedMs, &created); err != nil {
			return nil, err
		}
		m.Status = MergeStatus(status)
		m.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		m.CreatedAt = time.Unix(created, 0)
		merges = append(merges, m)
	}
	err = rows.Err()
	return merges, err
}
