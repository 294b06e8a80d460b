// Package persistence provides the SQLite event journal and the compressed
// append-only event log.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/settlersim/internal/engine"
	"github.com/talgya/settlersim/internal/world"
)

// Journal wraps a SQLite connection holding the match history.
type Journal struct {
	conn *sqlx.DB

	mu      sync.Mutex
	pending []engine.Event
}

// Open opens or creates a SQLite journal at the given path, creating its
// directory first.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("journal dir: %w", err)
	}
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	j := &Journal{conn: conn}
	if err := j.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return j, nil
}

// Close flushes buffered events and closes the connection.
func (j *Journal) Close() error {
	if err := j.Flush(); err != nil {
		slog.Warn("journal flush on close failed", "error", err)
	}
	return j.conn.Close()
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		time REAL NOT NULL,
		category TEXT NOT NULL,
		player_id TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL,
		data_json TEXT NOT NULL DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS standings (
		player_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		score INTEGER NOT NULL,
		rank INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS match_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_events_category ON events(category);
	`
	_, err := j.conn.Exec(schema)
	return err
}

// Add buffers an event until the next Flush. Safe to use as a bus
// subscriber.
func (j *Journal) Add(e engine.Event) {
	j.mu.Lock()
	j.pending = append(j.pending, e)
	j.mu.Unlock()
}

// Flush writes every buffered event. A failed batch goes back to the front
// of the buffer for the next Flush.
func (j *Journal) Flush() error {
	j.mu.Lock()
	batch := j.pending
	j.pending = nil
	j.mu.Unlock()

	if err := j.Record(batch); err != nil {
		j.mu.Lock()
		j.pending = append(batch, j.pending...)
		j.mu.Unlock()
		return fmt.Errorf("flush %d events: %w", len(batch), err)
	}
	return nil
}

// Record appends events to the journal in one transaction.
func (j *Journal) Record(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := j.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO events
		(tick, time, category, player_id, description, data_json)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		data := []byte("{}")
		if len(e.Data) > 0 {
			if data, err = json.Marshal(e.Data); err != nil {
				return fmt.Errorf("encode event data: %w", err)
			}
		}
		if _, err := stmt.Exec(e.Tick, e.Time, e.Category, string(e.PlayerID), e.Description, string(data)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

type eventRow struct {
	Tick        uint64  `db:"tick"`
	Time        float64 `db:"time"`
	Category    string  `db:"category"`
	PlayerID    string  `db:"player_id"`
	Description string  `db:"description"`
	DataJSON    string  `db:"data_json"`
}

// RecentEvents returns the most recent limit events, newest first. An empty
// category matches all.
func (j *Journal) RecentEvents(limit int, category string) ([]engine.Event, error) {
	var rows []eventRow
	var err error
	if category == "" {
		err = j.conn.Select(&rows,
			"SELECT tick, time, category, player_id, description, data_json FROM events ORDER BY id DESC LIMIT ?",
			limit,
		)
	} else {
		err = j.conn.Select(&rows,
			"SELECT tick, time, category, player_id, description, data_json FROM events WHERE category = ? ORDER BY id DESC LIMIT ?",
			category, limit,
		)
	}
	if err != nil {
		return nil, err
	}

	events := make([]engine.Event, 0, len(rows))
	for _, r := range rows {
		e := engine.Event{
			Tick:        r.Tick,
			Time:        r.Time,
			Category:    r.Category,
			PlayerID:    world.PlayerID(r.PlayerID),
			Description: r.Description,
		}
		if r.DataJSON != "" && r.DataJSON != "{}" {
			if err := json.Unmarshal([]byte(r.DataJSON), &e.Data); err != nil {
				return nil, fmt.Errorf("decode event data: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, nil
}

// CountEvents returns how many events are stored.
func (j *Journal) CountEvents() (int, error) {
	var n int
	err := j.conn.Get(&n, "SELECT COUNT(*) FROM events")
	return n, err
}

// SaveStandings writes the score table (full replace).
func (j *Journal) SaveStandings(standings []engine.Standing) error {
	tx, err := j.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM standings"); err != nil {
		return err
	}
	for i, s := range standings {
		if _, err := tx.Exec(
			"INSERT INTO standings (player_id, name, score, rank) VALUES (?, ?, ?, ?)",
			string(s.PlayerID), s.Name, s.Score, i+1,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Standings reads the score table, best first.
func (j *Journal) Standings() ([]engine.Standing, error) {
	var rows []struct {
		PlayerID string `db:"player_id"`
		Name     string `db:"name"`
		Score    int    `db:"score"`
	}
	if err := j.conn.Select(&rows, "SELECT player_id, name, score FROM standings ORDER BY rank"); err != nil {
		return nil, err
	}
	out := make([]engine.Standing, 0, len(rows))
	for _, r := range rows {
		out = append(out, engine.Standing{PlayerID: world.PlayerID(r.PlayerID), Name: r.Name, Score: r.Score})
	}
	return out, nil
}

// SaveMeta stores a key-value pair in match metadata.
func (j *Journal) SaveMeta(key, value string) error {
	_, err := j.conn.Exec(
		"INSERT OR REPLACE INTO match_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (j *Journal) GetMeta(key string) (string, error) {
	var value string
	err := j.conn.Get(&value, "SELECT value FROM match_meta WHERE key = ?", key)
	return value, err
}

// SaveMatch flushes events and writes standings and match metadata.
func (j *Journal) SaveMatch(m *engine.Match) error {
	st := m.Status()
	slog.Info("saving match state", "tick", st.Tick, "phase", st.Phase)

	if err := j.Flush(); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := j.SaveStandings(m.Standings()); err != nil {
		return fmt.Errorf("save standings: %w", err)
	}
	meta := map[string]string{
		"seed":      strconv.FormatInt(st.Seed, 10),
		"last_tick": strconv.FormatUint(st.Tick, 10),
		"phase":     st.Phase,
		"pulse":     strconv.Itoa(st.Pulse),
	}
	for k, v := range meta {
		if err := j.SaveMeta(k, v); err != nil {
			return fmt.Errorf("save meta: %w", err)
		}
	}

	slog.Info("match state saved")
	return nil
}
