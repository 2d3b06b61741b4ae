package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jfmyers9/nowplaying/internal/track"
)

// createTestJournal creates an in-memory journal for testing
func createTestJournal(t *testing.T) *Journal {
	t.Helper()

	j, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test journal: %v", err)
	}

	t.Cleanup(func() {
		_ = j.Close()
	})

	return j
}

func testRecord(title string, observed time.Time) track.Record {
	return track.Record{
		Listener:   "alice",
		Artist:     "Bruce Willis",
		Album:      "The Return of Bruno",
		Title:      title,
		URL:        "https://www.last.fm/music/Bruce+Willis",
		NowPlaying: true,
		ObservedAt: observed,
	}
}

func TestOpen(t *testing.T) {
	t.Run("in-memory database", func(t *testing.T) {
		j := createTestJournal(t)
		if j.db == nil {
			t.Error("journal database is nil")
		}
	})

	t.Run("file-based database", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.db")

		j, err := Open(path)
		if err != nil {
			t.Fatalf("failed to open file-based journal: %v", err)
		}
		if err := j.Record(context.Background(), uuid.New(), testRecord("Song", time.Now()), time.Now()); err != nil {
			t.Fatalf("failed to record: %v", err)
		}
		_ = j.Close()

		// Entries survive reopening
		j, err = Open(path)
		if err != nil {
			t.Fatalf("failed to reopen journal: %v", err)
		}
		defer func() { _ = j.Close() }()

		count, err := j.Count(context.Background())
		if err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 entry after reopen, got %d", count)
		}
	})
}

func TestJournalRecordAndRecent(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	base := time.UnixMilli(1_700_000_000_000)
	cycles := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	titles := []string{"First", "Second", "Third"}

	for i, title := range titles {
		at := base.Add(time.Duration(i) * time.Minute)
		if err := j.Record(ctx, cycles[i], testRecord(title, at), at); err != nil {
			t.Fatalf("failed to record %s: %v", title, err)
		}
	}

	entries, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("failed to get recent: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Title != "Third" || entries[1].Title != "Second" {
		t.Errorf("expected newest first, got %q then %q", entries[0].Title, entries[1].Title)
	}
	if entries[0].CycleID != cycles[2] {
		t.Errorf("cycle id mismatch: got %s, want %s", entries[0].CycleID, cycles[2])
	}
	if !entries[0].ObservedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("observed at mismatch: got %v", entries[0].ObservedAt)
	}
	if entries[0].Album != "The Return of Bruno" || entries[0].Listener != "alice" {
		t.Errorf("unexpected entry fields: %+v", entries[0])
	}

	all, err := j.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("failed to get all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 entries, got %d", len(all))
	}
}

func TestJournalEmptyAlbum(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	rec := testRecord("Loose Single", time.Now())
	rec.Album = ""
	if err := j.Record(ctx, uuid.New(), rec, time.Now()); err != nil {
		t.Fatalf("failed to record: %v", err)
	}

	entries, err := j.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("failed to get recent: %v", err)
	}
	if len(entries) != 1 || entries[0].Album != "" {
		t.Errorf("expected one entry with empty album, got %+v", entries)
	}
}

func TestJournalCleanup(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	fresh := time.Now()

	if err := j.Record(ctx, uuid.New(), testRecord("Old", old), old); err != nil {
		t.Fatalf("failed to record old: %v", err)
	}
	if err := j.Record(ctx, uuid.New(), testRecord("Fresh", fresh), fresh); err != nil {
		t.Fatalf("failed to record fresh: %v", err)
	}

	deleted, err := j.Cleanup(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("failed to cleanup: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", deleted)
	}

	count, err := j.Count(ctx)
	if err != nil {
		t.Fatalf("failed to count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 remaining, got %d", count)
	}
}
