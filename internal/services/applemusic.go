// Apple Music implementation of [Catalog]
//
// Response types based on https://developer.apple.com/documentation/applemusicapi
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tunebridge/tunebridge/internal/links"
	"github.com/tunebridge/tunebridge/internal/shared"
)

const (
	appleMusicBaseURL  = "https://api.music.apple.com/v1"
	appleMusicLinkBase = "https://music.apple.com/library/playlist/"
)

type appleMusicArtwork struct {
	URL string `json:"url"`
}

type appleMusicAttributes struct {
	Name       string            `json:"name"`
	ArtistName string            `json:"artistName"`
	URL        string            `json:"url"`
	Artwork    appleMusicArtwork `json:"artwork"`
}

type appleMusicResource struct {
	ID            string               `json:"id"`
	Attributes    appleMusicAttributes `json:"attributes"`
	Relationships *struct {
		Tracks struct {
			Data []appleMusicResource `json:"data"`
		} `json:"tracks"`
	} `json:"relationships"`
}

type appleMusicData struct {
	Data []appleMusicResource `json:"data"`
}

type appleMusicSearchResponse struct {
	Results map[string]appleMusicData `json:"results"`
}

// AppleMusicCatalog implements [Catalog] for the Apple Music API.
//
// The developer token authorizes catalog reads; library writes
// additionally require the Music-User-Token header.
type AppleMusicCatalog struct {
	developerToken string
	userToken      string
	storefront     string
	baseURL        string
	httpClient     *http.Client
	logger         *log.Logger
}

// NewAppleMusicCatalog creates an Apple Music catalog client from configuration.
func NewAppleMusicCatalog(cfg shared.AppleMusicConfig, httpCfg shared.HTTPConfig, logger *log.Logger) *AppleMusicCatalog {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	storefront := cfg.Storefront
	if storefront == "" {
		storefront = "us"
	}

	return &AppleMusicCatalog{
		developerToken: cfg.DeveloperToken,
		userToken:      cfg.MusicUserToken,
		storefront:     storefront,
		baseURL:        appleMusicBaseURL,
		httpClient:     &http.Client{Timeout: httpCfg.Timeout()},
		logger:         shared.WithLogger(logger, "service", "applemusic"),
	}
}

func (a *AppleMusicCatalog) Name() string { return "Apple Music" }

func (a *AppleMusicCatalog) Service() links.Service { return links.AppleMusic }

// Authenticate validates that a developer token is present. The token
// itself is a pre-signed JWT; there is no exchange step.
func (a *AppleMusicCatalog) Authenticate(_ context.Context) error {
	if a.developerToken == "" {
		return fmt.Errorf("%w: apple music developer_token", shared.ErrMissingCredentials)
	}
	return nil
}

func (a *AppleMusicCatalog) doRequest(ctx context.Context, method, endpoint string, body, result any, userScoped bool) error {
	if a.developerToken == "" {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+a.developerToken)
	req.Header.Set("Content-Type", "application/json")
	if userScoped {
		if a.userToken == "" {
			return fmt.Errorf("%w: apple music music_user_token", shared.ErrMissingCredentials)
		}
		req.Header.Set("Music-User-Token", a.userToken)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError("apple music", resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// FetchByID retrieves a song, album or artist from the storefront's
// catalog partition.
func (a *AppleMusicCatalog) FetchByID(ctx context.Context, entityType links.EntityType, id, storefront string) (*CatalogEntity, error) {
	providerType, err := toAppleMusicType(entityType)
	if err != nil {
		return nil, err
	}
	if storefront == "" {
		storefront = a.storefront
	}

	var response appleMusicData
	endpoint := fmt.Sprintf("/catalog/%s/%s/%s", storefront, providerType, id)
	if err := a.doRequest(ctx, http.MethodGet, endpoint, nil, &response, false); err != nil {
		return nil, err
	}
	if len(response.Data) == 0 {
		return nil, fmt.Errorf("%w: apple music %s %s", shared.ErrNotFound, providerType, id)
	}

	attrs := response.Data[0].Attributes
	result := &CatalogEntity{
		Name:       attrs.Name,
		EntityType: entityType,
		SourceLink: attrs.URL,
	}
	if entityType != links.Artist {
		result.ArtistName = attrs.ArtistName
	}

	return result, nil
}

// Search queries the storefront catalog and returns the first result
// of the requested type. A missing result group means zero matches.
func (a *AppleMusicCatalog) Search(ctx context.Context, query string, entityType links.EntityType) (*SearchResult, error) {
	providerType, err := toAppleMusicType(entityType)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/catalog/%s/search?term=%s&types=%s",
		a.storefront, url.QueryEscape(sanitizeQuery(query)), providerType)

	var response appleMusicSearchResponse
	if err := a.doRequest(ctx, http.MethodGet, endpoint, nil, &response, false); err != nil {
		return nil, err
	}

	group, ok := response.Results[providerType]
	if !ok || len(group.Data) == 0 {
		return nil, fmt.Errorf("%w: apple music %s search for %q", shared.ErrNoResults, providerType, query)
	}

	return &SearchResult{Link: group.Data[0].Attributes.URL}, nil
}

// Playlist fetches a catalog playlist with its track relationship
// embedded in the same response.
func (a *AppleMusicCatalog) Playlist(ctx context.Context, id, storefront string) (*PlaylistInfo, error) {
	if storefront == "" {
		storefront = a.storefront
	}

	var response appleMusicData
	endpoint := fmt.Sprintf("/catalog/%s/playlists/%s", storefront, id)
	if err := a.doRequest(ctx, http.MethodGet, endpoint, nil, &response, false); err != nil {
		return nil, err
	}
	if len(response.Data) == 0 {
		return nil, fmt.Errorf("%w: apple music playlist %s", shared.ErrNotFound, id)
	}

	playlist := response.Data[0]
	info := &PlaylistInfo{Title: playlist.Attributes.Name}

	if playlist.Relationships == nil {
		return info, nil
	}

	for _, track := range playlist.Relationships.Tracks.Data {
		info.Tracks = append(info.Tracks, PlaylistTrack{
			TrackName:     track.Attributes.Name,
			ArtistName:    track.Attributes.ArtistName,
			SourceTrackID: track.ID,
			AlbumArtURL:   track.Attributes.Artwork.URL,
		})
	}

	return info, nil
}

// CreatePlaylist creates a playlist in the user's library.
func (a *AppleMusicCatalog) CreatePlaylist(ctx context.Context, name, description string) (*CreatedPlaylist, error) {
	body := map[string]any{
		"attributes": map[string]string{
			"name":        name,
			"description": description,
		},
	}

	var response appleMusicData
	if err := a.doRequest(ctx, http.MethodPost, "/me/library/playlists", body, &response, true); err != nil {
		return nil, err
	}
	if len(response.Data) == 0 {
		return nil, fmt.Errorf("%w: apple music playlist creation returned no data", shared.ErrTransport)
	}

	id := response.Data[0].ID
	return &CreatedPlaylist{ID: id, Link: appleMusicLinkBase + id}, nil
}

// AddTrack appends one track to a library playlist. The modern library
// endpoint accepts a single track per call, which forces the engine's
// sequential per-track loop.
func (a *AppleMusicCatalog) AddTrack(ctx context.Context, playlistID, trackID string) error {
	body := map[string]any{
		"data": []map[string]string{
			{"id": trackID, "type": "songs"},
		},
	}
	endpoint := fmt.Sprintf("/me/library/playlists/%s/tracks", playlistID)
	return a.doRequest(ctx, http.MethodPost, endpoint, body, nil, true)
}

// toAppleMusicType translates the canonical vocabulary to Apple
// Music's plural resource names; "track" becomes "songs".
func toAppleMusicType(t links.EntityType) (string, error) {
	switch t {
	case links.Track:
		return "songs", nil
	case links.Album, links.Artist:
		return t.String() + "s", nil
	default:
		return "", fmt.Errorf("%w: %s has no apple music catalog type", shared.ErrInvalidArgument, t)
	}
}

// fromAppleMusicType translates an Apple Music resource name back to
// the canonical vocabulary.
func fromAppleMusicType(t string) links.EntityType {
	switch strings.TrimSuffix(t, "s") {
	case "song", "track":
		return links.Track
	case "album":
		return links.Album
	case "artist":
		return links.Artist
	default:
		return links.TypeUnknown
	}
}
