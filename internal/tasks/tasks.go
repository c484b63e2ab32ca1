package tasks

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tunebridge/tunebridge/internal/links"
	"github.com/tunebridge/tunebridge/internal/services"
	"github.com/tunebridge/tunebridge/internal/shared"
	"golang.org/x/time/rate"
)

// MatchCacher caches resolved destination track ids so repeated
// conversions skip the search round trip. Implementations must treat a
// miss as ("", nil).
type MatchCacher interface {
	Get(destination links.Service, trackName, artistName string) (string, error)
	Put(destination links.Service, trackName, artistName, destinationID string) error
}

// Engine orchestrates link resolution and playlist conversion between
// the two catalogs. Engines hold no per-request state; all results are
// request-scoped values.
type Engine struct {
	spotify    services.Catalog
	appleMusic services.Catalog
	cache      MatchCacher
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewEngine creates an Engine with the provided catalogs. cache may be
// nil to disable match caching.
func NewEngine(spotify, appleMusic services.Catalog, cache MatchCacher, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Engine{
		spotify:    spotify,
		appleMusic: appleMusic,
		cache:      cache,
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), 1),
		logger:     logger,
	}
}

const defaultRateLimit = 4.0

// SetRateLimit adjusts the requests-per-second budget of the playlist
// conversion loop. The playlist-mutation endpoints tolerate less than
// catalog search does.
func (e *Engine) SetRateLimit(rps float64) {
	if rps > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// SetLogger swaps the engine's logger. The TUI uses this to move
// conversion logs off the terminal while it owns the screen.
func (e *Engine) SetLogger(logger *log.Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// pair returns (source, destination) catalogs for a classified service.
func (e *Engine) pair(s links.Service) (services.Catalog, services.Catalog, error) {
	switch s {
	case links.Spotify:
		return e.spotify, e.appleMusic, nil
	case links.AppleMusic:
		return e.appleMusic, e.spotify, nil
	default:
		return nil, nil, fmt.Errorf("%w: no Spotify or Apple Music link found", shared.ErrUnsupportedLink)
	}
}

// Resolution is the outcome of a single-entity conversion.
type Resolution struct {
	Source      *services.CatalogEntity // entity fetched from the source service
	Link        string                  // equivalent link on the destination service
	Destination string                  // destination service display name
	Retried     bool                    // whether the parenthetical-stripping retry fired
}

// Resolve converts a single track/album/artist link to its equivalent
// on the other service.
//
// Playlist links are routed to ConvertPlaylist instead; stations are
// never convertible.
func (e *Engine) Resolve(ctx context.Context, rawLink string) (*Resolution, error) {
	link := links.Classify(rawLink)

	source, destination, err := e.pair(link.Service)
	if err != nil {
		return nil, err
	}

	switch link.EntityType {
	case links.Track, links.Album, links.Artist:
	case links.Playlist:
		return nil, fmt.Errorf("%w: playlist links are converted as playlists", shared.ErrUnsupportedLink)
	case links.Station:
		return nil, fmt.Errorf("%w: stations cannot be converted", shared.ErrUnsupportedLink)
	default:
		return nil, fmt.Errorf("%w: unrecognized link format", shared.ErrUnsupportedLink)
	}

	entity, err := source.FetchByID(ctx, link.EntityType, link.ID, link.Storefront)
	if err != nil {
		return nil, err
	}

	query := entity.Name + " " + entity.ArtistName
	result, retried, err := e.searchWithRetry(ctx, destination, query, link.EntityType)
	if err != nil {
		return nil, err
	}

	e.logger.Info("resolved link",
		"source", source.Name(), "destination", destination.Name(),
		"type", link.EntityType.String(), "name", entity.Name)

	return &Resolution{
		Source:      entity,
		Link:        result.Link,
		Destination: destination.Name(),
		Retried:     retried,
	}, nil
}

var parenthetical = regexp.MustCompile(`\s*\([^)]*\)`)

// stripParenthetical removes parenthesized annotations such as
// "(feat. X)" from a query. Featured-artist annotations are rendered
// inconsistently between the two catalogs and cause false negatives.
func stripParenthetical(query string) string {
	return strings.TrimSpace(parenthetical.ReplaceAllString(query, ""))
}

// searchWithRetry searches the destination catalog, retrying exactly
// once with parenthesized annotations stripped when the first attempt
// finds nothing. Any other failure propagates unchanged.
func (e *Engine) searchWithRetry(ctx context.Context, destination services.Catalog, query string, entityType links.EntityType) (*services.SearchResult, bool, error) {
	result, err := destination.Search(ctx, query, entityType)
	if err == nil {
		return result, false, nil
	}
	if !errors.Is(err, shared.ErrNoResults) {
		return nil, false, err
	}

	stripped := stripParenthetical(query)
	if stripped == strings.TrimSpace(query) {
		return nil, false, err
	}

	e.logger.Debug("retrying search without parenthetical", "query", stripped)
	result, retryErr := destination.Search(ctx, stripped, entityType)
	if retryErr != nil {
		return nil, true, retryErr
	}
	return result, true, nil
}
