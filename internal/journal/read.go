package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrSessionNotFound is returned when a session token is unknown.
var ErrSessionNotFound = errors.New("session not found")

// GetSession returns the session row for token.
func (j *Journal) GetSession(ctx context.Context, token string) (Session, error) {
	var s Session
	var createdAt string
	err := j.db.QueryRowContext(ctx, `
		SELECT token, scenario, threshold, created_at
		FROM sessions WHERE token = ?
	`, token).Scan(&s.Token, &s.Scenario, &s.Threshold, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, token)
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	s.CreatedAt, err = parseSQLiteTime(createdAt)
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// ListSessions returns all sessions ordered by token. UUIDv7 tokens
// sort by creation time, so this is chronological order.
func (j *Journal) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT token, scenario, threshold, created_at
		FROM sessions ORDER BY token
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var createdAt string
		if err := rows.Scan(&s.Token, &s.Scenario, &s.Threshold, &createdAt); err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		s.CreatedAt, err = parseSQLiteTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// SessionEvents returns the full event timeline for a session in seq
// order.
func (j *Journal) SessionEvents(ctx context.Context, token string) ([]Event, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, kind, entity, dependency, tick_source, tick_sequence, forced, late
		FROM events
		WHERE session_token = ?
		ORDER BY seq
	`, token)
	if err != nil {
		return nil, fmt.Errorf("session events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var forced, late int
		if err := rows.Scan(&e.Seq, &e.Kind, &e.Entity, &e.Dependency,
			&e.TickSource, &e.TickSequence, &forced, &late); err != nil {
			return nil, fmt.Errorf("session events: %w", err)
		}
		e.Forced = forced != 0
		e.Late = late != 0
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session events: %w", err)
	}
	return events, nil
}

// LateEntities returns the distinct entities force-activated late in a
// session, in id order.
func (j *Journal) LateEntities(ctx context.Context, token string) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT DISTINCT entity FROM events
		WHERE session_token = ? AND late = 1
		ORDER BY entity
	`, token)
	if err != nil {
		return nil, fmt.Errorf("late entities: %w", err)
	}
	defer rows.Close()

	var entities []string
	for rows.Next() {
		var entity string
		if err := rows.Scan(&entity); err != nil {
			return nil, fmt.Errorf("late entities: %w", err)
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("late entities: %w", err)
	}
	return entities, nil
}

// parseSQLiteTime handles the datetime('now') text format.
func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
