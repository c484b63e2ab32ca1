// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"

	"github.com/tunebridge/tunebridge/internal/links"
	"github.com/tunebridge/tunebridge/internal/services"
)

// FakeCatalog is a scriptable test double for [services.Catalog].
//
// Each operation delegates to its Fn field when set and records the
// arguments it was called with, so tests can assert on call counts and
// ordering.
type FakeCatalog struct {
	CatalogName    string
	CatalogService links.Service

	AuthenticateFn   func(ctx context.Context) error
	FetchByIDFn      func(ctx context.Context, entityType links.EntityType, id, storefront string) (*services.CatalogEntity, error)
	SearchFn         func(ctx context.Context, query string, entityType links.EntityType) (*services.SearchResult, error)
	PlaylistFn       func(ctx context.Context, id, storefront string) (*services.PlaylistInfo, error)
	CreatePlaylistFn func(ctx context.Context, name, description string) (*services.CreatedPlaylist, error)
	AddTrackFn       func(ctx context.Context, playlistID, trackID string) error

	SearchQueries []string
	FetchedIDs    []string
	AddedTracks   []string
	CreatedNames  []string
}

func (f *FakeCatalog) Name() string {
	if f.CatalogName == "" {
		return "fake"
	}
	return f.CatalogName
}

func (f *FakeCatalog) Service() links.Service { return f.CatalogService }

func (f *FakeCatalog) Authenticate(ctx context.Context) error {
	if f.AuthenticateFn != nil {
		return f.AuthenticateFn(ctx)
	}
	return nil
}

func (f *FakeCatalog) FetchByID(ctx context.Context, entityType links.EntityType, id, storefront string) (*services.CatalogEntity, error) {
	f.FetchedIDs = append(f.FetchedIDs, id)
	if f.FetchByIDFn != nil {
		return f.FetchByIDFn(ctx, entityType, id, storefront)
	}
	return nil, errors.New("FetchByID not scripted")
}

func (f *FakeCatalog) Search(ctx context.Context, query string, entityType links.EntityType) (*services.SearchResult, error) {
	f.SearchQueries = append(f.SearchQueries, query)
	if f.SearchFn != nil {
		return f.SearchFn(ctx, query, entityType)
	}
	return nil, errors.New("Search not scripted")
}

func (f *FakeCatalog) Playlist(ctx context.Context, id, storefront string) (*services.PlaylistInfo, error) {
	if f.PlaylistFn != nil {
		return f.PlaylistFn(ctx, id, storefront)
	}
	return nil, errors.New("Playlist not scripted")
}

func (f *FakeCatalog) CreatePlaylist(ctx context.Context, name, description string) (*services.CreatedPlaylist, error) {
	f.CreatedNames = append(f.CreatedNames, name)
	if f.CreatePlaylistFn != nil {
		return f.CreatePlaylistFn(ctx, name, description)
	}
	return nil, errors.New("CreatePlaylist not scripted")
}

func (f *FakeCatalog) AddTrack(ctx context.Context, playlistID, trackID string) error {
	f.AddedTracks = append(f.AddedTracks, trackID)
	if f.AddTrackFn != nil {
		return f.AddTrackFn(ctx, playlistID, trackID)
	}
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}
