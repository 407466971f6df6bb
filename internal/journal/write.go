package journal

import (
	"context"
	"fmt"
	"time"
)

// Event kinds recorded in a session.
const (
	KindSubmit   = "submit"   // frame submitted (entity, dependency count via rows)
	KindBlocked  = "blocked"  // entity blocked on dependency
	KindActivate = "activate" // frame activated (forced flag distinguishes deadline)
	KindResolve  = "resolve"  // dependency resolved
	KindTick     = "tick"     // tick delivered to the tracker
	KindPause    = "pause"    // tick source paused
	KindResume   = "resume"   // tick source resumed
	KindDiscard  = "discard"  // surface discarded
)

// Event is one row of a session's timeline. Zero fields are omitted
// from storage defaults, not NULLs.
type Event struct {
	Seq          int64  `json:"seq"`
	Kind         string `json:"kind"`
	Entity       string `json:"entity,omitempty"`
	Dependency   string `json:"dependency,omitempty"`
	TickSource   uint32 `json:"tick_source,omitempty"`
	TickSequence uint64 `json:"tick_sequence,omitempty"`
	Forced       bool   `json:"forced,omitempty"`
	Late         bool   `json:"late,omitempty"`
}

// Session describes one recorded tracker run.
type Session struct {
	Token     string    `json:"token"`
	Scenario  string    `json:"scenario"`
	Threshold uint32    `json:"threshold"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateSession inserts a session row. Idempotent: re-creating an
// existing token is silently ignored.
func (j *Journal) CreateSession(ctx context.Context, token, scenario string, threshold uint32) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO sessions (token, scenario, threshold)
		VALUES (?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`, token, scenario, threshold)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// AppendEvent inserts one event row. Idempotent on (session, seq):
// duplicate appends are silently ignored, so re-running a recorded
// scenario against the same journal cannot corrupt it.
func (j *Journal) AppendEvent(ctx context.Context, token string, e Event) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO events
		(session_token, seq, kind, entity, dependency, tick_source, tick_sequence, forced, late)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_token, seq) DO NOTHING
	`,
		token,
		e.Seq,
		e.Kind,
		e.Entity,
		e.Dependency,
		e.TickSource,
		e.TickSequence,
		boolToInt(e.Forced),
		boolToInt(e.Late),
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// AppendEvents inserts a batch of events in one transaction.
func (j *Journal) AppendEvents(ctx context.Context, token string, events []Event) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append events: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events
		(session_token, seq, kind, entity, dependency, tick_source, tick_sequence, forced, late)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_token, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("append events: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx,
			token, e.Seq, e.Kind, e.Entity, e.Dependency,
			e.TickSource, e.TickSequence, boolToInt(e.Forced), boolToInt(e.Late),
		); err != nil {
			return fmt.Errorf("append events: seq %d: %w", e.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append events: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
