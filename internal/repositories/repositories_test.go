package repositories

import (
	"database/sql"
	"testing"

	"github.com/tunebridge/tunebridge/internal/links"
	"github.com/tunebridge/tunebridge/internal/shared"
)

func newTestRepo(t *testing.T) *MatchRepository {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return NewMatchRepository(db)
}

func TestMatchRepository(t *testing.T) {
	t.Run("Miss Returns Empty Without Error", func(t *testing.T) {
		repo := newTestRepo(t)

		id, err := repo.Get(links.AppleMusic, "Big Fish", "Vince Staples")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != "" {
			t.Errorf("expected empty id on miss, got %s", id)
		}
	})

	t.Run("Put Then Get", func(t *testing.T) {
		repo := newTestRepo(t)

		if err := repo.Put(links.AppleMusic, "Big Fish", "Vince Staples", "1238872005"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		id, err := repo.Get(links.AppleMusic, "Big Fish", "Vince Staples")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != "1238872005" {
			t.Errorf("expected cached id, got %s", id)
		}
	})

	t.Run("Lookup Is Case Insensitive", func(t *testing.T) {
		repo := newTestRepo(t)

		if err := repo.Put(links.AppleMusic, "Big Fish", "Vince Staples", "1238872005"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		id, err := repo.Get(links.AppleMusic, "BIG FISH", "vince staples")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != "1238872005" {
			t.Errorf("expected case-insensitive hit, got %q", id)
		}
	})

	t.Run("Destinations Are Isolated", func(t *testing.T) {
		repo := newTestRepo(t)

		if err := repo.Put(links.AppleMusic, "Big Fish", "Vince Staples", "1238872005"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		id, err := repo.Get(links.Spotify, "Big Fish", "Vince Staples")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != "" {
			t.Errorf("expected miss for other destination, got %s", id)
		}
	})

	t.Run("Put Replaces Existing Entry", func(t *testing.T) {
		repo := newTestRepo(t)

		if err := repo.Put(links.AppleMusic, "Big Fish", "Vince Staples", "old"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := repo.Put(links.AppleMusic, "Big Fish", "Vince Staples", "new"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		id, _ := repo.Get(links.AppleMusic, "Big Fish", "Vince Staples")
		if id != "new" {
			t.Errorf("expected replacement, got %s", id)
		}

		count, err := repo.Count()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if count != 1 {
			t.Errorf("expected single row after upsert, got %d", count)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		t.Run("By Destination", func(t *testing.T) {
			repo := newTestRepo(t)

			repo.Put(links.AppleMusic, "One", "A", "1")
			repo.Put(links.Spotify, "Two", "B", "2")

			removed, err := repo.Clear(links.AppleMusic)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if removed != 1 {
				t.Errorf("expected 1 removed, got %d", removed)
			}

			if id, _ := repo.Get(links.Spotify, "Two", "B"); id != "2" {
				t.Error("expected other destination untouched")
			}
		})

		t.Run("All", func(t *testing.T) {
			repo := newTestRepo(t)

			repo.Put(links.AppleMusic, "One", "A", "1")
			repo.Put(links.Spotify, "Two", "B", "2")

			removed, err := repo.Clear(links.ServiceUnknown)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if removed != 2 {
				t.Errorf("expected 2 removed, got %d", removed)
			}

			count, _ := repo.Count()
			if count != 0 {
				t.Errorf("expected empty cache, got %d", count)
			}
		})
	})

	t.Run("Migrate Is Idempotent", func(t *testing.T) {
		db, err := shared.NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if err := Migrate(db); err != nil {
			t.Fatalf("first migrate failed: %v", err)
		}
		if err := Migrate(db); err != nil {
			t.Fatalf("second migrate failed: %v", err)
		}

		var count int
		if err := db.QueryRow(`SELECT COUNT(*) FROM matches`).Scan(&count); err != nil && err != sql.ErrNoRows {
			t.Fatalf("schema missing after repeat migrate: %v", err)
		}
	})
}
