// Package history keeps a SQLite journal of the tracks the widget has
// rendered.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jfmyers9/nowplaying/internal/track"
)

// Journal records rendered winners using SQLite
type Journal struct {
	db *sql.DB
}

// Entry is one rendered winner
type Entry struct {
	ID         int64
	CycleID    uuid.UUID
	Listener   string
	Artist     string
	Album      string
	Title      string
	URL        string
	ObservedAt time.Time
	RenderedAt time.Time
}

// Open opens (and creates if needed) the journal at dbPath.
// Use ":memory:" for a throwaway journal.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection keeps in-memory databases consistent
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS renders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id TEXT NOT NULL,
			listener TEXT NOT NULL,
			artist TEXT NOT NULL,
			album TEXT,
			title TEXT NOT NULL,
			url TEXT,
			observed_at INTEGER NOT NULL,
			rendered_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_rendered_at ON renders(rendered_at);
		CREATE INDEX IF NOT EXISTS idx_listener ON renders(listener, rendered_at);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database connection
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Record appends a rendered winner
func (j *Journal) Record(ctx context.Context, cycleID uuid.UUID, rec track.Record, renderedAt time.Time) error {
	query := `
		INSERT INTO renders (cycle_id, listener, artist, album, title, url, observed_at, rendered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	observed, _ := rec.ObservedAtMillis()
	_, err := j.db.ExecContext(ctx, query,
		cycleID.String(),
		rec.Listener,
		rec.Artist,
		rec.Album,
		rec.Title,
		rec.URL,
		observed,
		renderedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert render: %w", err)
	}
	return nil
}

// Recent returns the latest entries, newest first. A limit of zero or
// less returns every entry.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, cycle_id, listener, artist, COALESCE(album, ''), title, COALESCE(url, ''), observed_at, rendered_at
		FROM renders
		ORDER BY rendered_at DESC, id DESC
	`

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := j.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query renders: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			cycleID    string
			observedMs int64
			renderedMs int64
		)

		err := rows.Scan(
			&e.ID,
			&cycleID,
			&e.Listener,
			&e.Artist,
			&e.Album,
			&e.Title,
			&e.URL,
			&observedMs,
			&renderedMs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan render: %w", err)
		}

		e.CycleID, err = uuid.Parse(cycleID)
		if err != nil {
			return nil, fmt.Errorf("invalid cycle id %q: %w", cycleID, err)
		}
		e.ObservedAt = time.UnixMilli(observedMs)
		e.RenderedAt = time.UnixMilli(renderedMs)

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating renders: %w", err)
	}

	return entries, nil
}

// Cleanup removes entries rendered more than maxAge ago
func (j *Journal) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).UnixMilli()

	result, err := j.db.ExecContext(ctx, "DELETE FROM renders WHERE rendered_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old renders: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

// Count returns the number of journal entries
func (j *Journal) Count(ctx context.Context) (int, error) {
	var count int
	if err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM renders").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count renders: %w", err)
	}
	return count, nil
}
