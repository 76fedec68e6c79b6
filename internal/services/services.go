package services

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/sunrotstudios/velvet-metal/internal/models"
)

// Service defines the interface for music service providers (Spotify, Apple Music)
// that can export, create, and populate playlists.
type Service interface {
	// Authenticate performs OAuth or token authentication with the service.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// GetPlaylists retrieves all playlists for the authenticated user.
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)

	// GetPlaylist retrieves a specific playlist by ID.
	GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error)

	// ExportPlaylist exports a playlist with all its tracks.
	ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error)

	// ExportAlbum exports an album's track listing as a playlist-shaped export.
	ExportAlbum(ctx context.Context, albumID string) (*models.PlaylistExport, error)

	// CreatePlaylist creates an empty playlist with the given name and description.
	CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error)

	// AddTracks appends tracks to a playlist by their service-local IDs.
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) error

	// RemoveTracks removes tracks from a playlist by their service-local IDs.
	RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error

	// SearchTrack resolves a track on this service. Implementations search by
	// ISRC when the query carries one and fall back to a title/artist text
	// search. Returns shared.ErrTrackNotFound when nothing matches.
	SearchTrack(ctx context.Context, query models.TrackQuery) (*models.Track, error)

	// Name returns the name of the service (e.g., "Spotify", "Apple Music")
	Name() string
}

// OAuthService is implemented by services that authenticate through a
// browser-based OAuth authorization code flow.
type OAuthService interface {
	Service

	// GetAuthURL returns the authorization URL for user login.
	GetAuthURL(state string) string

	// GetOAuthConfig exposes the underlying oauth2 configuration.
	GetOAuthConfig() *oauth2.Config

	// OAuthenticate installs a previously obtained token on the service.
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
}
