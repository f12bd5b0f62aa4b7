package database

import (
	"context"
	"fmt"
	"time"
)

// AddClip records an uploaded clip. Uploading a file with the same name
// again replaces the earlier record.
func (d *Database) AddClip(ctx context.Context, clip ClipRecord) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("add_clip", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	uploaded := clip.UploadedAt
	if uploaded.IsZero() {
		uploaded = time.Now()
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO clips (session_id, filename, size, duration, uploaded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id, filename) DO UPDATE SET
			size = excluded.size,
			duration = excluded.duration,
			uploaded_at = excluded.uploaded_at
	`, clip.SessionID, clip.Filename, clip.SizeBytes, clip.DurationSeconds, uploaded.Unix())
	if err != nil {
		return fmt.Errorf("failed to add clip: %w", err)
	}
	return nil
}

// ListClips returns the clips of a session in upload order.
func (d *Database) ListClips(ctx context.Context, sessionID string) ([]ClipRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_clips", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, session_id, filename, size, duration, uploaded_at
		FROM clips WHERE session_id = ?
		ORDER BY uploaded_at, id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clips: %w", err)
	}
	defer rows.Close()

	clips := []ClipRecord{}
	for rows.Next() {
		var c ClipRecord
		var uploaded int64
		if err = rows.Scan(&c.ID, &c.SessionID, &c.Filename, &c.SizeBytes, &c.DurationSeconds, &uploaded); err != nil {
			return nil, err
		}
		c.UploadedAt = time.Unix(uploaded, 0)
		clips = append(clips, c)
	}
	err = rows.Err()
	return clips, err
}
