package models

// Service name identifiers shared by entities, repositories, and the service registry.
const (
	ServiceSpotify    = "spotify"
	ServiceAppleMusic = "apple_music"
)

// KnownService reports whether name identifies a supported streaming service.
func KnownService(name string) bool {
	return name == ServiceSpotify || name == ServiceAppleMusic
}

// Playlist represents a music playlist from any service
type Playlist struct {
	ID          string
	Name        string
	Description string
	TrackCount  int
	Public      bool
}

// PlaylistExport represents a playlist or album with all its tracks for transfer
type PlaylistExport struct {
	Playlist Playlist
	Tracks   []Track
}

// Track represents a music track from any service
type Track struct {
	ID         string
	Title      string
	Artist     string
	Album      string
	DurationMS int    // Duration in milliseconds; informational only, not used in matching
	ISRC       string // International Standard Recording Code for matching
}

// TrackQuery contains the parameters used to resolve a track on a target service.
//
// When ISRC is set the service should search by ISRC before falling back to title and artist.
type TrackQuery struct {
	ISRC   string
	Title  string
	Artist string
}

// Query builds a TrackQuery from a track's identifying fields.
func (t Track) Query() TrackQuery {
	return TrackQuery{ISRC: t.ISRC, Title: t.Title, Artist: t.Artist}
}
