// Spotify implementation of [Catalog]
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
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
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
	spotifyLinkBase = "https://open.spotify.com/playlist/"
)

// SpotifyArtist represents a Spotify artist reference.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

type spotifyImage struct {
	URL string `json:"url"`
}

// spotifyEntity covers the fields shared by track, album and artist
// responses; unused fields decode to zero values.
type spotifyEntity struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	ExternalURLs externalURLs    `json:"external_urls"`
}

type spotifySearchPage struct {
	Total int             `json:"total"`
	Items []spotifyEntity `json:"items"`
}

type spotifySearchResponse struct {
	Tracks  *spotifySearchPage `json:"tracks"`
	Albums  *spotifySearchPage `json:"albums"`
	Artists *spotifySearchPage `json:"artists"`
}

type spotifyPlaylistTrack struct {
	Track struct {
		ID      string          `json:"id"`
		Name    string          `json:"name"`
		Artists []SpotifyArtist `json:"artists"`
		Album   struct {
			Images []spotifyImage `json:"images"`
		} `json:"album"`
	} `json:"track"`
}

type spotifyPlaylistTracksPage struct {
	Items []spotifyPlaylistTrack `json:"items"`
	Next  *string                `json:"next"`
}

// SpotifyCatalog implements [Catalog] for the Spotify Web API.
//
// Catalog reads use a client-credentials token; playlist writes need a
// user bearer token with playlist-modify scope, supplied via config.
type SpotifyCatalog struct {
	clientID     string
	clientSecret string
	token        string
	userToken    string
	baseURL      string
	tokenURL     string
	httpClient   *http.Client
	logger       *log.Logger
}

// NewSpotifyCatalog creates a Spotify catalog client from configuration.
func NewSpotifyCatalog(cfg shared.SpotifyConfig, httpCfg shared.HTTPConfig, logger *log.Logger) *SpotifyCatalog {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &SpotifyCatalog{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		userToken:    cfg.AccessToken,
		baseURL:      spotifyBaseURL,
		tokenURL:     spotifyTokenURL,
		httpClient:   &http.Client{Timeout: httpCfg.Timeout()},
		logger:       shared.WithLogger(logger, "service", "spotify"),
	}
}

func (s *SpotifyCatalog) Name() string { return "Spotify" }

func (s *SpotifyCatalog) Service() links.Service { return links.Spotify }

// Authenticate performs the client-credentials grant and stores the
// resulting catalog token. A user access token from config is kept as
// is for playlist writes.
func (s *SpotifyCatalog) Authenticate(ctx context.Context) error {
	if s.clientID == "" || s.clientSecret == "" {
		if s.userToken != "" {
			// A user token can serve catalog reads too.
			s.token = s.userToken
			return nil
		}
		return fmt.Errorf("%w: spotify client_id/client_secret", shared.ErrMissingCredentials)
	}

	cc := &clientcredentials.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		TokenURL:     s.tokenURL,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := cc.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: spotify token exchange: %v", shared.ErrAuth, err)
	}

	s.token = token.AccessToken
	return nil
}

// doRequest performs an authenticated request against the Spotify API
// and decodes the JSON response into result when non-nil.
func (s *SpotifyCatalog) doRequest(ctx context.Context, method, endpoint string, body, result any, bearer string) error {
	if bearer == "" {
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

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError("spotify", resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// FetchByID retrieves a track, album or artist by id. Storefront is
// ignored; Spotify's catalog is not partitioned by region at the URL
// level.
func (s *SpotifyCatalog) FetchByID(ctx context.Context, entityType links.EntityType, id, _ string) (*CatalogEntity, error) {
	providerType, err := toSpotifyType(entityType)
	if err != nil {
		return nil, err
	}

	var entity spotifyEntity
	endpoint := fmt.Sprintf("/%ss/%s", providerType, id)
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &entity, s.token); err != nil {
		return nil, err
	}
	if entity.Name == "" {
		return nil, fmt.Errorf("%w: spotify %s %s", shared.ErrNotFound, providerType, id)
	}

	result := &CatalogEntity{
		Name:       entity.Name,
		EntityType: entityType,
		SourceLink: entity.ExternalURLs.Spotify,
	}

	// Artist lookups have no artist field of their own.
	if entityType != links.Artist && len(entity.Artists) > 0 {
		result.ArtistName = entity.Artists[0].Name
	}

	return result, nil
}

// Search runs a free-text query and returns the first result of the
// requested type.
func (s *SpotifyCatalog) Search(ctx context.Context, query string, entityType links.EntityType) (*SearchResult, error) {
	providerType, err := toSpotifyType(entityType)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/search?q=%s&type=%s", url.QueryEscape(sanitizeQuery(query)), providerType)

	var response spotifySearchResponse
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response, s.token); err != nil {
		return nil, err
	}

	var page *spotifySearchPage
	switch entityType {
	case links.Track:
		page = response.Tracks
	case links.Album:
		page = response.Albums
	case links.Artist:
		page = response.Artists
	}

	if page == nil || page.Total == 0 || len(page.Items) == 0 {
		return nil, fmt.Errorf("%w: spotify %s search for %q", shared.ErrNoResults, providerType, query)
	}

	return &SearchResult{Link: page.Items[0].ExternalURLs.Spotify}, nil
}

// Playlist fetches a playlist's title and full track list, following
// the paging links of the /tracks endpoint.
func (s *SpotifyCatalog) Playlist(ctx context.Context, id, _ string) (*PlaylistInfo, error) {
	var meta struct {
		Name string `json:"name"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/playlists/"+id, nil, &meta, s.token); err != nil {
		return nil, err
	}

	info := &PlaylistInfo{Title: meta.Name}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", id)
	for {
		var page spotifyPlaylistTracksPage
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page, s.token); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			track := PlaylistTrack{
				TrackName:     item.Track.Name,
				SourceTrackID: item.Track.ID,
			}
			if len(item.Track.Artists) > 0 {
				track.ArtistName = item.Track.Artists[0].Name
			}
			if len(item.Track.Album.Images) > 0 {
				track.AlbumArtURL = item.Track.Album.Images[0].URL
			}
			info.Tracks = append(info.Tracks, track)
		}

		if page.Next == nil || *page.Next == "" {
			break
		}
		next, err := url.Parse(*page.Next)
		if err != nil {
			break
		}
		endpoint = strings.TrimPrefix(next.Path, "/v1")
		if next.RawQuery != "" {
			endpoint += "?" + next.RawQuery
		}
	}

	return info, nil
}

// CurrentUser resolves the id of the user the bearer token belongs to.
func (s *SpotifyCatalog) CurrentUser(ctx context.Context) (string, error) {
	var user struct {
		ID string `json:"id"`
	}
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user, s.writeToken()); err != nil {
		return "", err
	}
	return user.ID, nil
}

// CreatePlaylist creates a private playlist in the user's library.
func (s *SpotifyCatalog) CreatePlaylist(ctx context.Context, name, description string) (*CreatedPlaylist, error) {
	userID, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      false,
	}

	var created struct {
		ID string `json:"id"`
	}
	endpoint := fmt.Sprintf("/users/%s/playlists", userID)
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &created, s.writeToken()); err != nil {
		return nil, err
	}

	return &CreatedPlaylist{ID: created.ID, Link: spotifyLinkBase + created.ID}, nil
}

// AddTrack appends a single track to a playlist. Spotify's endpoint
// accepts arrays, but the engine drives it one track at a time to keep
// ordering deterministic across both destinations.
func (s *SpotifyCatalog) AddTrack(ctx context.Context, playlistID, trackID string) error {
	body := map[string]any{
		"uris": []string{"spotify:track:" + trackID},
	}
	endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
	return s.doRequest(ctx, http.MethodPost, endpoint, body, nil, s.writeToken())
}

// writeToken prefers the user token for library mutations.
func (s *SpotifyCatalog) writeToken() string {
	if s.userToken != "" {
		return s.userToken
	}
	return s.token
}

// toSpotifyType translates the canonical vocabulary to Spotify's.
// Spotify uses "track" where Apple Music says "song".
func toSpotifyType(t links.EntityType) (string, error) {
	switch t {
	case links.Track, links.Album, links.Artist:
		return t.String(), nil
	default:
		return "", fmt.Errorf("%w: %s has no spotify catalog type", shared.ErrInvalidArgument, t)
	}
}

// fromSpotifyType translates a Spotify type string (or Apple Music's
// "song") back to the canonical vocabulary.
func fromSpotifyType(t string) links.EntityType {
	switch t {
	case "track", "song":
		return links.Track
	case "album":
		return links.Album
	case "artist":
		return links.Artist
	default:
		return links.TypeUnknown
	}
}
