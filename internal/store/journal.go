package store

import (
	"context"
	"fmt"

	"github.com/roach88/crossbind/internal/ir"
	"github.com/roach88/crossbind/internal/ownership"
)

// Journal persists ownership events of one session. It implements
// ownership.Journal.
type Journal struct {
	store   *Store
	session string
}

// Journal returns the ownership journal of a session.
func (s *Store) Journal(session string) *Journal {
	return &Journal{store: s, session: session}
}

// Record inserts ev. Uses ON CONFLICT DO NOTHING: seq is unique per session,
// so a replayed event is silently ignored.
func (j *Journal) Record(ev ownership.Event) error {
	_, err := j.store.db.ExecContext(context.Background(), `
		INSERT INTO ownership_events
		(session, seq, kind, wrapper, type, peer, key)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session, seq) DO NOTHING
	`,
		j.session,
		ev.Seq,
		string(ev.Kind),
		string(ev.Wrapper),
		string(ev.Type),
		string(ev.Peer),
		ev.Key,
	)
	if err != nil {
		return fmt.Errorf("record ownership event %d: %w", ev.Seq, err)
	}
	return nil
}

// ReadEvents returns every event of a session, ordered by seq.
// Returns an empty slice (not nil) for an unknown session.
func (s *Store) ReadEvents(ctx context.Context, session string) ([]ownership.Event, error) {
	return s.readEvents(ctx, `
		SELECT seq, kind, wrapper, type, peer, key
		FROM ownership_events
		WHERE session = ?
		ORDER BY seq ASC
	`, session)
}

// ReadWrapperEvents returns the events of one wrapper in a session,
// ordered by seq.
func (s *Store) ReadWrapperEvents(ctx context.Context, session string, wrapper ir.WrapperID) ([]ownership.Event, error) {
	return s.readEvents(ctx, `
		SELECT seq, kind, wrapper, type, peer, key
		FROM ownership_events
		WHERE session = ? AND wrapper = ?
		ORDER BY seq ASC
	`, session, string(wrapper))
}

func (s *Store) readEvents(ctx context.Context, query string, args ...any) ([]ownership.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ownership events: %w", err)
	}
	defer rows.Close()

	events := []ownership.Event{}
	for rows.Next() {
		var ev ownership.Event
		var kind, wrapper, typ, peer string
		if err := rows.Scan(&ev.Seq, &kind, &wrapper, &typ, &peer, &ev.Key); err != nil {
			return nil, fmt.Errorf("scan ownership event: %w", err)
		}
		ev.Kind = ownership.EventKind(kind)
		ev.Wrapper = ir.WrapperID(wrapper)
		ev.Type = ir.TypeID(typ)
		ev.Peer = ir.WrapperID(peer)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ownership events: %w", err)
	}
	return events, nil
}

// LastSeq returns the highest seq recorded in a session, 0 if none.
// A resumed session continues its clock from here.
func (s *Store) LastSeq(ctx context.Context, session string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM ownership_events WHERE session = ?
	`, session).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

// ListSessions returns the names of every session with recorded events,
// sorted.
func (s *Store) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT session FROM ownership_events ORDER BY session COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ResetSession deletes every event of a session so a rerun starts from an
// empty journal.
func (s *Store) ResetSession(ctx context.Context, session string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM ownership_events WHERE session = ?`, session); err != nil {
		return fmt.Errorf("reset session %s: %w", session, err)
	}
	return nil
}
