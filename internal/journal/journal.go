// Package journal keeps a sqlite history of engine transitions per session.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/alex/mascot/internal/behavior"
)

// Entry is one recorded transition.
type Entry struct {
	ID      int64              `json:"id"`
	Session string             `json:"session"`
	Kind    behavior.EventKind `json:"kind"`
	From    string             `json:"from,omitempty"`
	To      string             `json:"to,omitempty"`
	Trick   behavior.Trick     `json:"trick,omitempty"`
	Elapsed float64            `json:"elapsed"`
	At      time.Time          `json:"at"`
}

// Journal is a sqlite-backed transition log.
type Journal struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS transitions (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	session TEXT NOT NULL,
	kind    TEXT NOT NULL,
	from_   TEXT,
	to_     TEXT,
	trick   TEXT,
	elapsed REAL NOT NULL,
	at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS transitions_session ON transitions (session, id);`

// Open opens or creates the database at path.
func Open(path string, log zerolog.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	// sqlite serializes writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	return &Journal{db: db, log: log, now: time.Now}, nil
}

// Record stores one event for session.
func (j *Journal) Record(ctx context.Context, session string, ev behavior.Event) error {
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO transitions (session, kind, from_, to_, trick, elapsed, at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		session, string(ev.Kind), ev.From, ev.To, string(ev.Trick), ev.Elapsed, j.now().UnixNano())
	if err != nil {
		return fmt.Errorf("record %s: %w", ev.Kind, err)
	}
	return nil
}

// History returns the last limit entries of session, oldest first. A
// non-positive limit returns everything.
func (j *Journal) History(ctx context.Context, session string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx, `
SELECT id, session, kind, from_, to_, trick, elapsed, at FROM (
	SELECT * FROM transitions WHERE session = ? ORDER BY id DESC LIMIT ?
) ORDER BY id ASC`, session, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e    Entry
			kind string
			tr   string
			at   int64
		)
		if err := rows.Scan(&e.ID, &e.Session, &kind, &e.From, &e.To, &tr, &e.Elapsed, &at); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Kind = behavior.EventKind(kind)
		e.Trick = behavior.Trick(tr)
		e.At = time.Unix(0, at).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// Counts tallies the recorded events of session by kind.
func (j *Journal) Counts(ctx context.Context, session string) (map[behavior.EventKind]int, error) {
	rows, err := j.db.QueryContext(ctx,
		"SELECT kind, COUNT(*) FROM transitions WHERE session = ? GROUP BY kind", session)
	if err != nil {
		return nil, fmt.Errorf("count history: %w", err)
	}
	defer rows.Close()

	counts := make(map[behavior.EventKind]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan counts: %w", err)
		}
		counts[behavior.EventKind(kind)] = n
	}
	return counts, rows.Err()
}

// Listener returns an engine listener that records into session. Write
// failures are logged, never returned to the engine.
func (j *Journal) Listener(session string) behavior.Listener {
	return func(ev behavior.Event) {
		if err := j.Record(context.Background(), session, ev); err != nil {
			j.log.Warn().Err(err).Str("session", session).Msg("journal write failed")
		}
	}
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
