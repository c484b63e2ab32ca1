package tasks

import (
	"fmt"

	"github.com/tunebridge/tunebridge/internal/services"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or TUI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchSource Phase = iota
	CreatePlaylist
	SearchTracks
	AddTrack
	Completed
)

func (p Phase) String() string {
	switch p {
	case FetchSource:
		return "fetch_source"
	case CreatePlaylist:
		return "create_playlist"
	case SearchTracks:
		return "search_tracks"
	case AddTrack:
		return "add_track"
	case Completed:
		return "completed"
	default:
		return ""
	}
}

func fetchSourceUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching playlist from %s...", name),
	}
}

func foundPlaylistUpdate(title string, trackCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found playlist: %s (%d tracks)", title, trackCount),
	}
}

func createPlaylistUpdate(name, destination string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Creating %q on %s...", name, destination),
	}
}

func searchTrackUpdate(step, total int, track services.PlaylistTrack) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, track.ArtistName, track.TrackName),
	}
}

func trackMatchedUpdate(step, total int, track services.PlaylistTrack) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s - %s", step, total, track.ArtistName, track.TrackName),
	}
}

func trackFailedUpdate(step, total int, track services.PlaylistTrack, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s - %s: %v", step, total, track.ArtistName, track.TrackName, err),
		Data:    err,
	}
}

func completedUpdate(link string, matched, failed int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Completed,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Conversion complete: %d matched, %d failed (%s)", matched, failed, link),
		Data:    link,
	}
}
