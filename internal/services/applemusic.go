// Apple Music API implementation of [Service]
//
// Apple Music API response types based on https://developer.apple.com/documentation/applemusicapi
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/sunrotstudios/velvet-metal/internal/models"
	"github.com/sunrotstudios/velvet-metal/internal/shared"
)

const (
	appleMusicBaseURL = "https://api.music.apple.com/v1"

	// Library playlist mutations are capped well below Spotify's limit.
	appleMusicBatchSize = 25
)

// AppleMusicAttributes holds the attributes common to songs and library songs.
type AppleMusicAttributes struct {
	Name             string          `json:"name"`
	ArtistName       string          `json:"artistName"`
	AlbumName        string          `json:"albumName"`
	DurationInMillis int             `json:"durationInMillis"`
	ISRC             string          `json:"isrc"`
	PlayParams       applePlayParams `json:"playParams"`
}

type applePlayParams struct {
	ID        string `json:"id"`
	CatalogID string `json:"catalogId"`
}

// AppleMusicResource is a single resource object in an Apple Music response.
type AppleMusicResource struct {
	ID         string               `json:"id"`
	Type       string               `json:"type"`
	Attributes AppleMusicAttributes `json:"attributes"`
}

// AppleMusicPlaylistAttributes holds library playlist attributes.
type AppleMusicPlaylistAttributes struct {
	Name        string           `json:"name"`
	Description appleDescription `json:"description"`
	CanEdit     bool             `json:"canEdit"`
	IsPublic    bool             `json:"isPublic"`
}

type appleDescription struct {
	Standard string `json:"standard"`
}

// AppleMusicPlaylist is a library playlist resource.
type AppleMusicPlaylist struct {
	ID         string                       `json:"id"`
	Type       string                       `json:"type"`
	Attributes AppleMusicPlaylistAttributes `json:"attributes"`
}

type applePlaylistPage struct {
	Data []AppleMusicPlaylist `json:"data"`
	Meta struct {
		Total int `json:"total"`
	} `json:"meta"`
	Next string `json:"next"`
}

type appleSongPage struct {
	Data []AppleMusicResource `json:"data"`
	Meta struct {
		Total int `json:"total"`
	} `json:"meta"`
	Next string `json:"next"`
}

// AppleMusicService implements the Service interface for the Apple Music API.
//
// Requests carry the developer token as a bearer credential and the user's
// Music-User-Token for library access. Apple has no OAuth code flow; the user
// token comes from MusicKit and is pasted into configuration.
type AppleMusicService struct {
	developerToken string
	userToken      string
	storefront     string
	httpClient     *http.Client
	limiter        *rate.Limiter
}

// NewAppleMusicService creates a new Apple Music service from credentials.
func NewAppleMusicService(credentials map[string]string) (*AppleMusicService, error) {
	developerToken, ok := credentials["developer_token"]
	if !ok || developerToken == "" {
		return nil, fmt.Errorf("%w: missing developer_token", shared.ErrMissingCredentials)
	}

	storefront, ok := credentials["storefront"]
	if !ok || storefront == "" {
		storefront = "us"
	}

	return &AppleMusicService{
		developerToken: developerToken,
		userToken:      credentials["user_token"],
		storefront:     storefront,
		httpClient:     http.DefaultClient,
		limiter:        rate.NewLimiter(rate.Every(250*time.Millisecond), 5),
	}, nil
}

// Authenticate validates and installs the Music-User-Token from credentials.
func (s *AppleMusicService) Authenticate(ctx context.Context, credentials map[string]string) error {
	userToken, ok := credentials["user_token"]
	if !ok || userToken == "" {
		if s.userToken == "" {
			return fmt.Errorf("%w: missing user_token", shared.ErrMissingCredentials)
		}
		userToken = s.userToken
	}
	s.userToken = userToken

	// Storefront lookup doubles as a token check.
	var response struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := s.doRequest(ctx, "GET", "/me/storefront", nil, &response); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	if len(response.Data) > 0 {
		s.storefront = response.Data[0].ID
	}

	return nil
}

func (s *AppleMusicService) Name() string {
	return "Apple Music"
}

// doRequest performs an authenticated, rate-limited HTTP request to the Apple Music API.
func (s *AppleMusicService) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	if s.userToken == "" {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter interrupted: %w", err)
	}

	apiURL := appleMusicBaseURL + endpoint

	var payload *bytes.Buffer
	if body != nil {
		payload = &bytes.Buffer{}
		if err := json.NewEncoder(payload).Encode(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	var req *http.Request
	var err error
	if payload != nil {
		req, err = http.NewRequestWithContext(ctx, method, apiURL, payload)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, apiURL, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.developerToken)
	req.Header.Set("Music-User-Token", s.userToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return shared.ErrPlaylistNotFound
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: apple music status %d", shared.ErrTokenExpired, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: apple music status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Service interface implementation

// GetPlaylists retrieves all library playlists, following pagination offsets.
func (s *AppleMusicService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var allPlaylists []models.Playlist
	endpoint := "/me/library/playlists?limit=100"

	for endpoint != "" {
		var page applePlaylistPage
		if err := s.doRequest(ctx, "GET", endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, p := range page.Data {
			allPlaylists = append(allPlaylists, convertApplePlaylist(p))
		}

		endpoint = nextEndpoint(page.Next)
	}

	return allPlaylists, nil
}

// GetPlaylist retrieves a specific library playlist by ID.
func (s *AppleMusicService) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	endpoint := fmt.Sprintf("/me/library/playlists/%s", url.PathEscape(playlistID))

	var response struct {
		Data []AppleMusicPlaylist `json:"data"`
	}
	if err := s.doRequest(ctx, "GET", endpoint, nil, &response); err != nil {
		return nil, err
	}
	if len(response.Data) == 0 {
		return nil, shared.ErrPlaylistNotFound
	}

	playlist := convertApplePlaylist(response.Data[0])
	return &playlist, nil
}

// ExportPlaylist exports a library playlist with all its tracks.
func (s *AppleMusicService) ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
	playlist, err := s.GetPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	var tracks []models.Track
	endpoint := fmt.Sprintf("/me/library/playlists/%s/tracks?limit=100", url.PathEscape(playlistID))

	for endpoint != "" {
		var page appleSongPage
		if err := s.doRequest(ctx, "GET", endpoint, nil, &page); err != nil {
			// An empty playlist has no tracks relationship at all.
			if err == shared.ErrPlaylistNotFound {
				break
			}
			return nil, err
		}

		for _, item := range page.Data {
			tracks = append(tracks, convertAppleSong(item))
		}

		endpoint = nextEndpoint(page.Next)
	}

	playlist.TrackCount = len(tracks)
	return &models.PlaylistExport{
		Playlist: *playlist,
		Tracks:   tracks,
	}, nil
}

// ExportAlbum exports a catalog album's track listing.
func (s *AppleMusicService) ExportAlbum(ctx context.Context, albumID string) (*models.PlaylistExport, error) {
	endpoint := fmt.Sprintf("/catalog/%s/albums/%s?include=tracks", s.storefront, url.PathEscape(albumID))

	var response struct {
		Data []struct {
			ID         string `json:"id"`
			Attributes struct {
				Name       string `json:"name"`
				ArtistName string `json:"artistName"`
				TrackCount int    `json:"trackCount"`
			} `json:"attributes"`
			Relationships struct {
				Tracks struct {
					Data []AppleMusicResource `json:"data"`
				} `json:"tracks"`
			} `json:"relationships"`
		} `json:"data"`
	}
	if err := s.doRequest(ctx, "GET", endpoint, nil, &response); err != nil {
		if err == shared.ErrPlaylistNotFound {
			return nil, shared.ErrAlbumNotFound
		}
		return nil, err
	}
	if len(response.Data) == 0 {
		return nil, shared.ErrAlbumNotFound
	}

	album := response.Data[0]
	playlist := models.Playlist{
		ID:          album.ID,
		Name:        album.Attributes.Name,
		Description: album.Attributes.ArtistName,
		TrackCount:  album.Attributes.TrackCount,
	}

	var tracks []models.Track
	for _, item := range album.Relationships.Tracks.Data {
		tracks = append(tracks, convertAppleSong(item))
	}

	return &models.PlaylistExport{
		Playlist: playlist,
		Tracks:   tracks,
	}, nil
}

// CreatePlaylist creates an empty library playlist.
func (s *AppleMusicService) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	body := map[string]any{
		"attributes": map[string]string{
			"name":        name,
			"description": description,
		},
	}

	var response struct {
		Data []AppleMusicPlaylist `json:"data"`
	}
	if err := s.doRequest(ctx, "POST", "/me/library/playlists", body, &response); err != nil {
		return nil, err
	}
	if len(response.Data) == 0 {
		return nil, fmt.Errorf("%w: playlist creation returned no data", shared.ErrAPIRequest)
	}

	playlist := convertApplePlaylist(response.Data[0])
	return &playlist, nil
}

// AddTracks appends catalog songs to a library playlist in batches.
func (s *AppleMusicService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	endpoint := fmt.Sprintf("/me/library/playlists/%s/tracks", url.PathEscape(playlistID))

	for start := 0; start < len(trackIDs); start += appleMusicBatchSize {
		end := min(start+appleMusicBatchSize, len(trackIDs))

		data := make([]map[string]string, 0, end-start)
		for _, id := range trackIDs[start:end] {
			data = append(data, map[string]string{"id": id, "type": "songs"})
		}

		body := map[string]any{"data": data}
		if err := s.doRequest(ctx, "POST", endpoint, body, nil); err != nil {
			return err
		}
	}

	return nil
}

// RemoveTracks removes songs from a library playlist in batches.
func (s *AppleMusicService) RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	endpoint := fmt.Sprintf("/me/library/playlists/%s/tracks", url.PathEscape(playlistID))

	for start := 0; start < len(trackIDs); start += appleMusicBatchSize {
		end := min(start+appleMusicBatchSize, len(trackIDs))

		data := make([]map[string]string, 0, end-start)
		for _, id := range trackIDs[start:end] {
			data = append(data, map[string]string{"id": id, "type": "songs"})
		}

		body := map[string]any{"data": data}
		if err := s.doRequest(ctx, "DELETE", endpoint, body, nil); err != nil {
			return err
		}
	}

	return nil
}

// SearchTrack resolves a catalog song by ISRC when available, otherwise by a
// title/artist term search.
func (s *AppleMusicService) SearchTrack(ctx context.Context, query models.TrackQuery) (*models.Track, error) {
	if query.ISRC != "" {
		endpoint := fmt.Sprintf("/catalog/%s/songs?filter[isrc]=%s", s.storefront, url.QueryEscape(query.ISRC))

		var response struct {
			Data []AppleMusicResource `json:"data"`
		}
		if err := s.doRequest(ctx, "GET", endpoint, nil, &response); err != nil {
			return nil, err
		}
		if len(response.Data) > 0 {
			track := convertAppleSong(response.Data[0])
			return &track, nil
		}

		if query.Title == "" {
			return nil, shared.ErrTrackNotFound
		}
	}

	term := query.Title
	if query.Artist != "" {
		term += " " + query.Artist
	}
	endpoint := fmt.Sprintf("/catalog/%s/search?types=songs&limit=1&term=%s", s.storefront, url.QueryEscape(term))

	var response struct {
		Results struct {
			Songs struct {
				Data []AppleMusicResource `json:"data"`
			} `json:"songs"`
		} `json:"results"`
	}
	if err := s.doRequest(ctx, "GET", endpoint, nil, &response); err != nil {
		return nil, err
	}
	if len(response.Results.Songs.Data) == 0 {
		return nil, shared.ErrTrackNotFound
	}

	track := convertAppleSong(response.Results.Songs.Data[0])
	return &track, nil
}

func convertApplePlaylist(p AppleMusicPlaylist) models.Playlist {
	return models.Playlist{
		ID:          p.ID,
		Name:        p.Attributes.Name,
		Description: p.Attributes.Description.Standard,
		Public:      p.Attributes.IsPublic,
	}
}

func convertAppleSong(r AppleMusicResource) models.Track {
	id := r.Attributes.PlayParams.CatalogID
	if id == "" {
		id = r.ID
	}

	return models.Track{
		ID:         id,
		Title:      r.Attributes.Name,
		Artist:     r.Attributes.ArtistName,
		Album:      r.Attributes.AlbumName,
		DurationMS: r.Attributes.DurationInMillis,
		ISRC:       r.Attributes.ISRC,
	}
}

// nextEndpoint strips the /v1 prefix Apple includes in its pagination links.
func nextEndpoint(next string) string {
	if next == "" {
		return ""
	}
	const prefix = "/v1"
	if len(next) > len(prefix) && next[:len(prefix)] == prefix {
		return next[len(prefix):]
	}
	return next
}
