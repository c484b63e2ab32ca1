package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/tunebridge/tunebridge/internal/links"
	"github.com/tunebridge/tunebridge/internal/services"
	"github.com/tunebridge/tunebridge/internal/shared"
	"github.com/xrash/smetrics"
)

// SourcePlaylist is a playlist fetched from the source service, ready
// for conversion.
type SourcePlaylist struct {
	Title   string
	Service links.Service
	Tracks  []services.PlaylistTrack
}

// FetchTracks resolves a playlist link and fetches its title and full
// ordered track list from the source service.
//
// Two tracks sharing a name keep only the first occurrence; the
// duplicate is logged, not surfaced as an error. Ordering is otherwise
// preserved.
func (e *Engine) FetchTracks(ctx context.Context, rawLink string) (*SourcePlaylist, error) {
	link := links.Classify(rawLink)

	if link.EntityType != links.Playlist || link.ID == "" {
		return nil, fmt.Errorf("%w: no playlist id in link", shared.ErrNotFound)
	}

	source, _, err := e.pair(link.Service)
	if err != nil {
		return nil, err
	}

	info, err := source.Playlist(ctx, link.ID, link.Storefront)
	if err != nil {
		return nil, err
	}

	playlist := &SourcePlaylist{Title: info.Title, Service: link.Service}

	// Name-keyed and case-sensitive, as the historical behavior was.
	seen := make(map[string]string, len(info.Tracks))
	for _, track := range info.Tracks {
		if firstArtist, dup := seen[track.TrackName]; dup {
			// A low artist similarity means two distinct songs share a
			// title and the drop loses one of them.
			similarity := smetrics.JaroWinkler(strings.ToLower(firstArtist), strings.ToLower(track.ArtistName), 0.7, 4)
			if similarity < 0.8 {
				e.logger.Warn("dropping probable distinct song with duplicate title",
					"track", track.TrackName, "kept_artist", firstArtist, "dropped_artist", track.ArtistName)
			} else {
				e.logger.Info("dropping duplicate track", "track", track.TrackName, "artist", track.ArtistName)
			}
			continue
		}
		seen[track.TrackName] = track.ArtistName
		playlist.Tracks = append(playlist.Tracks, track)
	}

	return playlist, nil
}
