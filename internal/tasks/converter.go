package tasks

import (
	"context"
	"fmt"

	"github.com/tunebridge/tunebridge/internal/links"
	"github.com/tunebridge/tunebridge/internal/services"
	"github.com/tunebridge/tunebridge/internal/shared"
)

// TrackStatus tracks one entry through the conversion state machine.
type TrackStatus int

const (
	TrackPending TrackStatus = iota
	TrackSearching
	TrackMatched
	TrackFailed
)

func (s TrackStatus) String() string {
	switch s {
	case TrackPending:
		return "pending"
	case TrackSearching:
		return "searching"
	case TrackMatched:
		return "matched"
	case TrackFailed:
		return "failed"
	default:
		return ""
	}
}

// ConversionState is the operation-level state machine.
type ConversionState int

const (
	Idle ConversionState = iota
	CreatingPlaylist
	AddingTracks
	ConversionCompleted
	Aborted
)

func (s ConversionState) String() string {
	switch s {
	case Idle:
		return "idle"
	case CreatingPlaylist:
		return "creating_playlist"
	case AddingTracks:
		return "adding_tracks"
	case ConversionCompleted:
		return "completed"
	case Aborted:
		return "aborted"
	default:
		return ""
	}
}

// TrackOutcome is the per-track result of a conversion.
type TrackOutcome struct {
	Track  services.PlaylistTrack
	Status TrackStatus
	Err    error
}

// ConversionResult is built once, at the end of a full conversion.
//
// FailedTracks and the matched outcomes always partition the input:
// every de-duplicated source track lands in exactly one bucket. A
// non-empty FailedTracks list does not make the conversion an error;
// partial success is success at the playlist-container level.
type ConversionResult struct {
	ID           string
	State        ConversionState
	PlaylistLink string
	Outcomes     []TrackOutcome
	FailedTracks []services.PlaylistTrack
	MatchedCount int
}

// sendProgress sends a progress update without blocking. Updates are
// dropped when the channel is full.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// ConvertPlaylist creates a playlist on the destination service and
// populates it with the best match for each track, in source order.
//
// The per-track loop is deliberately sequential: the destination's
// playlist-mutation endpoints are rate limited tighter than catalog
// search, and Apple Music's library endpoint accepts one track per add
// call. A single track failure never aborts the batch; only playlist
// creation failure does. The context is checked between iterations so
// a conversion can be cancelled mid-batch.
func (e *Engine) ConvertPlaylist(ctx context.Context, progress chan<- ProgressUpdate, tracks []services.PlaylistTrack, title string, destination services.Catalog) (*ConversionResult, error) {
	result := &ConversionResult{ID: shared.GenerateID(), State: Idle}

	if destination == nil {
		result.State = Aborted
		return result, fmt.Errorf("%w: destination catalog not initialized", shared.ErrInvalidArgument)
	}

	logger := shared.WithLogger(e.logger, "conversion", result.ID, "destination", destination.Name())

	result.State = CreatingPlaylist
	e.sendProgress(progress, createPlaylistUpdate(title, destination.Name()))

	created, err := destination.CreatePlaylist(ctx, title, services.PlaylistDescription)
	if err != nil {
		// No point attempting track adds without a container.
		result.State = Aborted
		return result, err
	}
	result.PlaylistLink = created.Link

	result.State = AddingTracks
	total := len(tracks)
	result.Outcomes = make([]TrackOutcome, 0, total)

	for i, track := range tracks {
		if err := ctx.Err(); err != nil {
			result.State = Aborted
			return result, err
		}

		e.sendProgress(progress, searchTrackUpdate(i+1, total, track))

		outcome := TrackOutcome{Track: track, Status: TrackSearching}
		destID, err := e.matchTrack(ctx, destination, track)
		if err == nil {
			err = destination.AddTrack(ctx, created.ID, destID)
		}

		if err != nil {
			logger.Warn("track failed", "track", track.TrackName, "artist", track.ArtistName, "err", err)
			outcome.Status = TrackFailed
			outcome.Err = err
			result.FailedTracks = append(result.FailedTracks, track)
			e.sendProgress(progress, trackFailedUpdate(i+1, total, track, err))
		} else {
			outcome.Track.DestinationID = destID
			outcome.Status = TrackMatched
			result.MatchedCount++
			e.sendProgress(progress, trackMatchedUpdate(i+1, total, track))
		}

		result.Outcomes = append(result.Outcomes, outcome)
	}

	result.State = ConversionCompleted
	e.sendProgress(progress, completedUpdate(result.PlaylistLink, result.MatchedCount, len(result.FailedTracks)))
	logger.Info("conversion finished", "matched", result.MatchedCount, "failed", len(result.FailedTracks))

	return result, nil
}

// matchTrack finds the destination-native id for one source track,
// consulting the match cache before searching.
func (e *Engine) matchTrack(ctx context.Context, destination services.Catalog, track services.PlaylistTrack) (string, error) {
	if e.cache != nil {
		if id, err := e.cache.Get(destination.Service(), track.TrackName, track.ArtistName); err != nil {
			e.logger.Debug("match cache lookup failed", "err", err)
		} else if id != "" {
			return id, nil
		}
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return "", err
	}

	query := track.TrackName + " " + track.ArtistName
	found, _, err := e.searchWithRetry(ctx, destination, query, links.Track)
	if err != nil {
		return "", err
	}

	destID := links.Classify(found.Link).ID
	if destID == "" {
		return "", fmt.Errorf("%w: could not extract track id from %s", shared.ErrNoResults, found.Link)
	}

	if e.cache != nil {
		if err := e.cache.Put(destination.Service(), track.TrackName, track.ArtistName, destID); err != nil {
			e.logger.Debug("match cache store failed", "err", err)
		}
	}

	return destID, nil
}

// ConvertPlaylistLink is the end-to-end pipeline: fetch the source
// playlist, then convert it onto the opposite service.
func (e *Engine) ConvertPlaylistLink(ctx context.Context, progress chan<- ProgressUpdate, rawLink string) (*ConversionResult, error) {
	link := links.Classify(rawLink)
	source, destination, err := e.pair(link.Service)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, fetchSourceUpdate(source.Name()))

	playlist, err := e.FetchTracks(ctx, rawLink)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, foundPlaylistUpdate(playlist.Title, len(playlist.Tracks)))

	return e.ConvertPlaylist(ctx, progress, playlist.Tracks, playlist.Title, destination)
}
