package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tunebridge/tunebridge/internal/links"
	"github.com/tunebridge/tunebridge/internal/shared"
)

// Catalog defines the operations the conversion engine needs from a
// music service: entity lookup, free-text search, and the playlist
// surface used by playlist conversion.
type Catalog interface {
	// Name returns the display name of the service (e.g. "Spotify").
	Name() string

	// Service returns the [links.Service] this catalog belongs to.
	Service() links.Service

	// Authenticate acquires or validates the bearer token. Clients are
	// usable for catalog reads only after this succeeds.
	Authenticate(ctx context.Context) error

	// FetchByID retrieves a single entity by its service-native id.
	// Fails with shared.ErrNotFound for unknown ids, shared.ErrAuth on
	// token rejection and shared.ErrTransport otherwise.
	FetchByID(ctx context.Context, entityType links.EntityType, id, storefront string) (*CatalogEntity, error)

	// Search runs a free-text query for the given canonical type and
	// returns the provider's first match. Fails with
	// shared.ErrNoResults when the provider returns zero matches.
	Search(ctx context.Context, query string, entityType links.EntityType) (*SearchResult, error)

	// Playlist fetches a playlist's title and full ordered track list.
	Playlist(ctx context.Context, id, storefront string) (*PlaylistInfo, error)

	// CreatePlaylist creates an empty playlist in the authenticated
	// user's library.
	CreatePlaylist(ctx context.Context, name, description string) (*CreatedPlaylist, error)

	// AddTrack appends one track to a playlist previously created with
	// CreatePlaylist.
	AddTrack(ctx context.Context, playlistID, trackID string) error
}

// CatalogEntity is the normalized result of one "fetch by id" call.
// ArtistName is empty exactly when EntityType is Artist.
type CatalogEntity struct {
	Name       string
	ArtistName string
	EntityType links.EntityType
	SourceLink string
}

// SearchResult carries the best-match destination link. Lifetime is a
// single request/response cycle.
type SearchResult struct {
	Link string
}

// PlaylistTrack is one entry of a fetched playlist. DestinationID is
// filled in only after a successful match on the destination service;
// failed tracks keep it empty and are reported, never dropped.
type PlaylistTrack struct {
	TrackName     string
	ArtistName    string
	SourceTrackID string
	AlbumArtURL   string
	DestinationID string
}

// PlaylistInfo is the normalized shape of a source playlist fetch.
type PlaylistInfo struct {
	Title  string
	Tracks []PlaylistTrack
}

// CreatedPlaylist identifies a freshly created destination playlist.
type CreatedPlaylist struct {
	ID   string
	Link string
}

// PlaylistDescription is the fixed tag attached to playlists this tool
// creates.
const PlaylistDescription = "Created with tunebridge"

// sanitizeQuery normalizes a free-text query before URL-encoding.
// Ampersands confuse both providers' search endpoints.
func sanitizeQuery(query string) string {
	return strings.ReplaceAll(query, "&", "and")
}

// statusError maps an HTTP status code onto the shared error taxonomy.
func statusError(service string, code int) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: %s returned status %d", shared.ErrAuth, service, code)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s returned status %d", shared.ErrNotFound, service, code)
	default:
		return fmt.Errorf("%w: %s returned status %d", shared.ErrTransport, service, code)
	}
}
