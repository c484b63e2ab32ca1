// package links classifies music service URLs.
//
// Classification is total: any string maps to a [MusicLink], malformed
// input yields Unknown rather than an error.
package links

import (
	"net/url"
	"regexp"
	"strings"
)

// Service identifies which music service a link belongs to.
type Service int

const (
	ServiceUnknown Service = iota
	Spotify
	AppleMusic
)

func (s Service) String() string {
	switch s {
	case Spotify:
		return "spotify"
	case AppleMusic:
		return "applemusic"
	default:
		return "unknown"
	}
}

// EntityType is the engine-internal canonical type vocabulary.
type EntityType int

const (
	TypeUnknown EntityType = iota
	Track
	Album
	Artist
	Playlist
	Station
)

func (t EntityType) String() string {
	switch t {
	case Track:
		return "track"
	case Album:
		return "album"
	case Artist:
		return "artist"
	case Playlist:
		return "playlist"
	case Station:
		return "station"
	default:
		return "unknown"
	}
}

// MusicLink is the canonical parse of a raw link. Immutable once produced.
//
// ID is non-empty whenever EntityType is Track, Album, Artist or
// Playlist. Storefront defaults to "us" when the link carries none.
type MusicLink struct {
	Service    Service
	EntityType EntityType
	ID         string
	Storefront string
	Raw        string
}

// Link grammar. The patterns are compatibility-critical and mirror the
// accepted URL shapes exactly.
var (
	SpotifyEntityPattern   = regexp.MustCompile(`^https://open\.spotify\.com/(track|album|artist|station)/[a-zA-Z0-9]{22}(\?si=[a-zA-Z0-9_-]{22})?$`)
	SpotifyPlaylistPattern = regexp.MustCompile(`^https://open\.spotify\.com/playlist/[a-zA-Z0-9]{22}(\?si=[a-zA-Z0-9_-]{22})?$`)
	AppleEntityPattern     = regexp.MustCompile(`^https://(itunes|music)\.apple\.com/[a-z]{2}/(album|artist|station)/[^/]+/[a-zA-Z0-9]{10}(\?i=[a-zA-Z0-9]{10})?$`)
	ApplePlaylistPattern   = regexp.MustCompile(`^https://(itunes|music)\.apple\.com/[a-z]{2}/playlist/[^/]+/(pl\.u-[a-zA-Z0-9]{14}|pl\.[a-zA-Z0-9]{32})$`)
)

// MatchesGrammar reports whether a raw link matches one of the
// documented link shapes. Classify is more lenient; this is the strict
// check used for validation surfaces.
func MatchesGrammar(raw string) bool {
	return SpotifyEntityPattern.MatchString(raw) ||
		SpotifyPlaylistPattern.MatchString(raw) ||
		AppleEntityPattern.MatchString(raw) ||
		ApplePlaylistPattern.MatchString(raw)
}

const defaultStorefront = "us"

// Classify parses a raw link into a MusicLink. It never fails; anything
// it cannot make sense of comes back with EntityType == TypeUnknown.
func Classify(raw string) MusicLink {
	link := MusicLink{Service: ServiceUnknown, EntityType: TypeUnknown, Storefront: defaultStorefront, Raw: raw}

	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return link
	}

	switch u.Host {
	case "open.spotify.com":
		link.Service = Spotify
	case "itunes.apple.com", "music.apple.com":
		link.Service = AppleMusic
	default:
		return link
	}

	segments := splitPath(u.Path)
	if len(segments) == 0 {
		return link
	}

	// The first recognized segment decides the type, so an entity whose
	// slug is itself a type word stays classified by its real segment.
	// A playlist segment anywhere still wins.
	typeIdx := -1
	for i, segment := range segments {
		if segment == "playlist" {
			link.EntityType = Playlist
			typeIdx = i
			break
		}
		if typeIdx >= 0 {
			continue
		}
		switch segment {
		case "artist":
			link.EntityType = Artist
			typeIdx = i
		case "track":
			link.EntityType = Track
			typeIdx = i
		case "station":
			link.EntityType = Station
			typeIdx = i
		case "album":
			link.EntityType = Album
			typeIdx = i
			// Apple Music hides single tracks inside album links via
			// the "i" query parameter.
			if link.Service == AppleMusic && u.Query().Get("i") != "" {
				link.EntityType = Track
			}
		}
	}

	if typeIdx < 0 {
		return link
	}

	if link.Service == AppleMusic && link.EntityType == Track && u.Query().Get("i") != "" {
		link.ID = u.Query().Get("i")
	} else if typeIdx < len(segments)-1 {
		link.ID = segments[len(segments)-1]
	}

	if link.Service == AppleMusic && typeIdx > 0 {
		if sf := segments[typeIdx-1]; len(sf) == 2 {
			link.Storefront = sf
		}
	}

	// An entity link without an identifier is unusable.
	if link.ID == "" && link.EntityType != Station {
		link.EntityType = TypeUnknown
	}

	return link
}

func splitPath(path string) []string {
	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}
