package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tunebridge/tunebridge/internal/links"
	"github.com/tunebridge/tunebridge/internal/services"
	"github.com/tunebridge/tunebridge/internal/shared"
	tu "github.com/tunebridge/tunebridge/internal/testing"
)

func newTestEngine(spotify, appleMusic *tu.FakeCatalog) *Engine {
	spotify.CatalogName = "Spotify"
	spotify.CatalogService = links.Spotify
	appleMusic.CatalogName = "Apple Music"
	appleMusic.CatalogService = links.AppleMusic

	engine := NewEngine(spotify, appleMusic, nil, nil)
	engine.SetRateLimit(10000)
	return engine
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("Spotify Track To Apple Music", func(t *testing.T) {
		spotify := &tu.FakeCatalog{
			FetchByIDFn: func(ctx context.Context, entityType links.EntityType, id, storefront string) (*services.CatalogEntity, error) {
				if id != "4PTG3Z6ehGkBFwjybzWkR8" {
					t.Errorf("unexpected id %s", id)
				}
				return &services.CatalogEntity{Name: "Big Fish", ArtistName: "Vince Staples", EntityType: entityType}, nil
			},
		}
		appleMusic := &tu.FakeCatalog{
			SearchFn: func(ctx context.Context, query string, entityType links.EntityType) (*services.SearchResult, error) {
				return &services.SearchResult{Link: "https://music.apple.com/us/album/big-fish/1238871884?i=1238872005"}, nil
			},
		}
		engine := newTestEngine(spotify, appleMusic)

		resolution, err := engine.Resolve(ctx, "https://open.spotify.com/track/4PTG3Z6ehGkBFwjybzWkR8")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if resolution.Link != "https://music.apple.com/us/album/big-fish/1238871884?i=1238872005" {
			t.Errorf("unexpected link %s", resolution.Link)
		}
		if resolution.Destination != "Apple Music" {
			t.Errorf("unexpected destination %s", resolution.Destination)
		}
		if resolution.Retried {
			t.Error("expected no retry")
		}
		if len(appleMusic.SearchQueries) != 1 {
			t.Fatalf("expected one search call, got %d", len(appleMusic.SearchQueries))
		}
		if appleMusic.SearchQueries[0] != "Big Fish Vince Staples" {
			t.Errorf("unexpected query %q", appleMusic.SearchQueries[0])
		}
	})

	t.Run("Apple Music Track To Spotify", func(t *testing.T) {
		appleMusic := &tu.FakeCatalog{
			FetchByIDFn: func(ctx context.Context, entityType links.EntityType, id, storefront string) (*services.CatalogEntity, error) {
				if id != "1238872005" {
					t.Errorf("expected id from i param, got %s", id)
				}
				if storefront != "us" {
					t.Errorf("unexpected storefront %s", storefront)
				}
				return &services.CatalogEntity{Name: "Big Fish", ArtistName: "Vince Staples", EntityType: entityType}, nil
			},
		}
		spotify := &tu.FakeCatalog{
			SearchFn: func(ctx context.Context, query string, entityType links.EntityType) (*services.SearchResult, error) {
				return &services.SearchResult{Link: "https://open.spotify.com/track/4PTG3Z6ehGkBFwjybzWkR8"}, nil
			},
		}
		engine := newTestEngine(spotify, appleMusic)

		resolution, err := engine.Resolve(ctx, "https://music.apple.com/us/album/big-fish-theory/1238871884?i=1238872005")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if resolution.Link != "https://open.spotify.com/track/4PTG3Z6ehGkBFwjybzWkR8" {
			t.Errorf("unexpected link %s", resolution.Link)
		}
	})

	t.Run("Artist Query Keeps Trailing Space", func(t *testing.T) {
		spotify := &tu.FakeCatalog{
			FetchByIDFn: func(ctx context.Context, entityType links.EntityType, id, storefront string) (*services.CatalogEntity, error) {
				return &services.CatalogEntity{Name: "Vince Staples", EntityType: entityType}, nil
			},
		}
		appleMusic := &tu.FakeCatalog{
			SearchFn: func(ctx context.Context, query string, entityType links.EntityType) (*services.SearchResult, error) {
				return &services.SearchResult{Link: "https://music.apple.com/us/artist/vince-staples/600029036"}, nil
			},
		}
		engine := newTestEngine(spotify, appleMusic)

		if _, err := engine.Resolve(ctx, "https://open.spotify.com/artist/68kEuyFKyqrdQQLLsmiatm"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if appleMusic.SearchQueries[0] != "Vince Staples " {
			t.Errorf("expected trailing space preserved, got %q", appleMusic.SearchQueries[0])
		}
	})

	t.Run("Unsupported Links", func(t *testing.T) {
		cases := []struct {
			name string
			raw  string
		}{
			{"Playlist", "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M"},
			{"Station", "https://open.spotify.com/station/1HcIW8tYnSBUtyXcrNUYNa"},
			{"Unknown Host", "https://example.com/track/whatever"},
			{"Garbage", "not a link"},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				engine := newTestEngine(&tu.FakeCatalog{}, &tu.FakeCatalog{})

				if _, err := engine.Resolve(ctx, tc.raw); !errors.Is(err, shared.ErrUnsupportedLink) {
					t.Errorf("expected ErrUnsupportedLink, got %v", err)
				}
			})
		}
	})

	t.Run("Fetch Failure Propagates", func(t *testing.T) {
		spotify := &tu.FakeCatalog{
			FetchByIDFn: func(ctx context.Context, entityType links.EntityType, id, storefront string) (*services.CatalogEntity, error) {
				return nil, fmt.Errorf("%w: gone", shared.ErrNotFound)
			},
		}
		appleMusic := &tu.FakeCatalog{}
		engine := newTestEngine(spotify, appleMusic)

		if _, err := engine.Resolve(ctx, "https://open.spotify.com/track/4PTG3Z6ehGkBFwjybzWkR8"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if len(appleMusic.SearchQueries) != 0 {
			t.Error("expected no search after fetch failure")
		}
	})
}

func TestSearchWithRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("Retries Once Without Parenthetical", func(t *testing.T) {
		destination := &tu.FakeCatalog{
			SearchFn: func(ctx context.Context, query string, entityType links.EntityType) (*services.SearchResult, error) {
				if query == "Big Fish (feat. Juicy J) Vince Staples" {
					return nil, fmt.Errorf("%w: nothing", shared.ErrNoResults)
				}
				return &services.SearchResult{Link: "found"}, nil
			},
		}
		engine := newTestEngine(&tu.FakeCatalog{}, destination)

		result, retried, err := engine.searchWithRetry(ctx, destination, "Big Fish (feat. Juicy J) Vince Staples", links.Track)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !retried {
			t.Error("expected retry flag")
		}
		if result.Link != "found" {
			t.Errorf("unexpected link %s", result.Link)
		}
		if len(destination.SearchQueries) != 2 {
			t.Fatalf("expected exactly two search calls, got %d", len(destination.SearchQueries))
		}
		if destination.SearchQueries[1] != "Big Fish Vince Staples" {
			t.Errorf("unexpected retry query %q", destination.SearchQueries[1])
		}
	})

	t.Run("No Retry Without Parenthetical", func(t *testing.T) {
		destination := &tu.FakeCatalog{
			SearchFn: func(ctx context.Context, query string, entityType links.EntityType) (*services.SearchResult, error) {
				return nil, fmt.Errorf("%w: nothing", shared.ErrNoResults)
			},
		}
		engine := newTestEngine(&tu.FakeCatalog{}, destination)

		_, retried, err := engine.searchWithRetry(ctx, destination, "Big Fish Vince Staples", links.Track)
		if !errors.Is(err, shared.ErrNoResults) {
			t.Errorf("expected ErrNoResults, got %v", err)
		}
		if retried {
			t.Error("expected no retry flag")
		}
		if len(destination.SearchQueries) != 1 {
			t.Errorf("expected exactly one search call, got %d", len(destination.SearchQueries))
		}
	})

	t.Run("No Retry On Other Errors", func(t *testing.T) {
		destination := &tu.FakeCatalog{
			SearchFn: func(ctx context.Context, query string, entityType links.EntityType) (*services.SearchResult, error) {
				return nil, fmt.Errorf("%w: 500", shared.ErrTransport)
			},
		}
		engine := newTestEngine(&tu.FakeCatalog{}, destination)

		_, _, err := engine.searchWithRetry(ctx, destination, "Big Fish (feat. Juicy J)", links.Track)
		if !errors.Is(err, shared.ErrTransport) {
			t.Errorf("expected ErrTransport, got %v", err)
		}
		if len(destination.SearchQueries) != 1 {
			t.Errorf("expected exactly one search call, got %d", len(destination.SearchQueries))
		}
	})

	t.Run("Retry Failure Surfaces NoResults", func(t *testing.T) {
		destination := &tu.FakeCatalog{
			SearchFn: func(ctx context.Context, query string, entityType links.EntityType) (*services.SearchResult, error) {
				return nil, fmt.Errorf("%w: nothing", shared.ErrNoResults)
			},
		}
		engine := newTestEngine(&tu.FakeCatalog{}, destination)

		_, retried, err := engine.searchWithRetry(ctx, destination, "Big Fish (feat. Juicy J) Vince Staples", links.Track)
		if !errors.Is(err, shared.ErrNoResults) {
			t.Errorf("expected ErrNoResults, got %v", err)
		}
		if !retried {
			t.Error("expected retry flag")
		}
		if len(destination.SearchQueries) != 2 {
			t.Errorf("expected exactly two search calls, got %d", len(destination.SearchQueries))
		}
	})
}

func TestStripParenthetical(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Big Fish (feat. Juicy J) Vince Staples", "Big Fish Vince Staples"},
		{"No Annotations Here", "No Annotations Here"},
		{"Multiple (one) words (two) here", "Multiple words here"},
		{"(leading) text", "text"},
	}

	for _, tc := range cases {
		if got := stripParenthetical(tc.in); got != tc.want {
			t.Errorf("stripParenthetical(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
