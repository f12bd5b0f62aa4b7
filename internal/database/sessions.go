package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateSession inserts a session. Creating an existing session only
// refreshes its activity time.
func (d *Database) CreateSession(ctx context.Context, id string, now time.Time) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_session", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at, last_active)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET last_active = excluded.last_active
	`, id, now.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession returns the session record for id.
func (d *Database) GetSession(ctx context.Context, id string) (*Session, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_session", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var s Session
	var created, active int64
	err = d.db.QueryRowContext(ctx,
		"SELECT id, created_at, last_active FROM sessions WHERE id = ?", id,
	).Scan(&s.ID, &created, &active)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	s.CreatedAt = time.Unix(created, 0)
	s.LastActive = time.Unix(active, 0)
	return &s, nil
}

// TouchSession marks a session as used at now.
func (d *Database) TouchSession(ctx context.Context, id string, now time.Time) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("touch_session", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, "UPDATE sessions SET last_active = ? WHERE id = ?", now.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteSession removes a session with its clips and merges. Deleting an
// unknown session is not an error.
func (d *Database) DeleteSession(ctx context.Context, id string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_session", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ExpiredSessions returns the IDs of sessions idle since before cutoff,
// oldest first.
func (d *Database) ExpiredSessions(ctx context.Context, cutoff time.Time) ([]string, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("expired_sessions", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		"SELECT id FROM sessions WHERE last_active < ? ORDER BY last_active", cutoff.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to list expired sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	err = rows.Err()
	return ids, err
}
