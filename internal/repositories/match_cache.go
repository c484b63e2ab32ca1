package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tunebridge/tunebridge/internal/links"
	"github.com/tunebridge/tunebridge/internal/shared"
)

// MatchRepository implements tasks.MatchCacher over sqlite.
//
// Lookups are keyed case-insensitively on (destination, track, artist).
// A cache miss is ("", nil); errors are reserved for storage failures.
type MatchRepository struct {
	db *sql.DB
}

// NewMatchRepository creates a MatchRepository with the given database connection
func NewMatchRepository(db *sql.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func matchKey(trackName, artistName string) (string, string) {
	return strings.ToLower(strings.TrimSpace(trackName)), strings.ToLower(strings.TrimSpace(artistName))
}

// Get retrieves the cached destination id for a track, or "" on a miss
func (r *MatchRepository) Get(destination links.Service, trackName, artistName string) (string, error) {
	track, artist := matchKey(trackName, artistName)

	query := `
		SELECT destination_id
		FROM matches
		WHERE destination = ? AND track_name = ? AND artist_name = ?
	`

	var destinationID string
	err := r.db.QueryRow(query, destination.String(), track, artist).Scan(&destinationID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query match cache: %w", err)
	}

	return destinationID, nil
}

// Put stores a resolved destination id, replacing any previous entry
// for the same key
func (r *MatchRepository) Put(destination links.Service, trackName, artistName, destinationID string) error {
	track, artist := matchKey(trackName, artistName)
	now := time.Now().UTC()

	query := `
		INSERT INTO matches (id, destination, track_name, artist_name, destination_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (destination, track_name, artist_name)
		DO UPDATE SET destination_id = excluded.destination_id, updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query, shared.GenerateID(), destination.String(), track, artist, destinationID, now, now)
	if err != nil {
		return fmt.Errorf("failed to store match: %w", err)
	}

	return nil
}

// Clear drops all cached matches for a destination service. Passing
// links.ServiceUnknown clears everything.
func (r *MatchRepository) Clear(destination links.Service) (int64, error) {
	var res sql.Result
	var err error

	if destination == links.ServiceUnknown {
		res, err = r.db.Exec(`DELETE FROM matches`)
	} else {
		res, err = r.db.Exec(`DELETE FROM matches WHERE destination = ?`, destination.String())
	}
	if err != nil {
		return 0, fmt.Errorf("failed to clear match cache: %w", err)
	}

	return res.RowsAffected()
}

// Count returns the number of cached matches
func (r *MatchRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM matches`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return count, nil
}
