// package repositories provides the persistence layer for match caching.
//
// The cache stores destination-native track ids keyed by the search
// terms that produced them, so repeat conversions of overlapping
// playlists skip the search round trip entirely.
package repositories

import (
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS matches (
	id TEXT PRIMARY KEY,
	destination TEXT NOT NULL,
	track_name TEXT NOT NULL,
	artist_name TEXT NOT NULL,
	destination_id TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE (destination, track_name, artist_name)
);

CREATE INDEX IF NOT EXISTS idx_matches_lookup
	ON matches (destination, track_name, artist_name);
`

// Migrate creates the cache schema if it does not exist. Safe to call
// on every startup.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create cache schema: %w", err)
	}
	return nil
}
