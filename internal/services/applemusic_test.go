package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/sunrotstudios/velvet-metal/internal/shared"
)

func newTestAppleMusic(t *testing.T, rt roundTripperFunc) *AppleMusicService {
	t.Helper()

	srv, err := NewAppleMusicService(map[string]string{
		"developer_token": "dev_token",
		"user_token":      "user_token",
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	srv.httpClient = &http.Client{Transport: rt}
	return srv
}

func TestAppleMusicService(t *testing.T) {
	t.Run("NewAppleMusicService", func(t *testing.T) {
		t.Run("MissingDeveloperToken", func(t *testing.T) {
			_, err := NewAppleMusicService(map[string]string{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("DefaultStorefront", func(t *testing.T) {
			srv, err := NewAppleMusicService(map[string]string{"developer_token": "dev"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.storefront != "us" {
				t.Errorf("storefront = %q, want us", srv.storefront)
			}
			if srv.Name() != "Apple Music" {
				t.Errorf("Name() = %q", srv.Name())
			}
		})
	})

	t.Run("AuthenticateSetsStorefront", func(t *testing.T) {
		srv := newTestAppleMusic(t, func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("Music-User-Token") != "user_token" {
				t.Error("request missing Music-User-Token header")
			}
			if req.Header.Get("Authorization") != "Bearer dev_token" {
				t.Error("request missing developer token")
			}
			return jsonResponse(200, `{"data":[{"id":"gb"}]}`), nil
		})

		if err := srv.Authenticate(context.Background(), map[string]string{"user_token": "user_token"}); err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if srv.storefront != "gb" {
			t.Errorf("storefront = %q, want gb", srv.storefront)
		}
	})

	t.Run("NotAuthenticated", func(t *testing.T) {
		srv, err := NewAppleMusicService(map[string]string{"developer_token": "dev"})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		_, err = srv.GetPlaylists(context.Background())
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("SearchTrack", func(t *testing.T) {
		t.Run("ByISRC", func(t *testing.T) {
			srv := newTestAppleMusic(t, func(req *http.Request) (*http.Response, error) {
				if got := req.URL.Query().Get("filter[isrc]"); got != "USRC17607839" {
					t.Errorf("filter[isrc] = %q", got)
				}
				return jsonResponse(200, `{"data":[{
					"id":"123","type":"songs",
					"attributes":{"name":"Song","artistName":"Artist","albumName":"Album","durationInMillis":201000,"isrc":"USRC17607839"}
				}]}`), nil
			})

			track, err := srv.SearchTrack(context.Background(), trackQuery("USRC17607839", "Song", "Artist"))
			if err != nil {
				t.Fatalf("SearchTrack failed: %v", err)
			}
			if track.ID != "123" || track.Artist != "Artist" {
				t.Errorf("unexpected track: %+v", track)
			}
		})

		t.Run("ISRCMissFallsBackToTerm", func(t *testing.T) {
			var paths []string
			srv := newTestAppleMusic(t, func(req *http.Request) (*http.Response, error) {
				paths = append(paths, req.URL.Path)
				if strings.Contains(req.URL.RawQuery, "isrc") {
					return jsonResponse(200, `{"data":[]}`), nil
				}
				return jsonResponse(200, `{"results":{"songs":{"data":[{
					"id":"456","type":"songs",
					"attributes":{"name":"Song","artistName":"Artist"}
				}]}}}`), nil
			})

			track, err := srv.SearchTrack(context.Background(), trackQuery("GBUM71029604", "Song", "Artist"))
			if err != nil {
				t.Fatalf("SearchTrack failed: %v", err)
			}
			if len(paths) != 2 {
				t.Fatalf("expected 2 requests, got %d", len(paths))
			}
			if track.ID != "456" {
				t.Errorf("track ID = %q", track.ID)
			}
		})

		t.Run("NoMatch", func(t *testing.T) {
			srv := newTestAppleMusic(t, func(req *http.Request) (*http.Response, error) {
				return jsonResponse(200, `{"results":{}}`), nil
			})

			_, err := srv.SearchTrack(context.Background(), trackQuery("", "Nothing", "Nobody"))
			if !errors.Is(err, shared.ErrTrackNotFound) {
				t.Errorf("expected ErrTrackNotFound, got %v", err)
			}
		})
	})

	t.Run("ExportPlaylist", func(t *testing.T) {
		srv := newTestAppleMusic(t, func(req *http.Request) (*http.Response, error) {
			if strings.HasSuffix(req.URL.Path, "/tracks") {
				return jsonResponse(200, `{"data":[
					{"id":"l1","type":"library-songs","attributes":{"name":"One","artistName":"A","albumName":"X","isrc":"ISRC1","playParams":{"catalogId":"c1"}}},
					{"id":"l2","type":"library-songs","attributes":{"name":"Two","artistName":"B","albumName":"Y","isrc":"ISRC2","playParams":{"catalogId":"c2"}}}
				]}`), nil
			}
			return jsonResponse(200, `{"data":[{
				"id":"p.1","type":"library-playlists",
				"attributes":{"name":"Mix","description":{"standard":"test"},"canEdit":true}
			}]}`), nil
		})

		export, err := srv.ExportPlaylist(context.Background(), "p.1")
		if err != nil {
			t.Fatalf("ExportPlaylist failed: %v", err)
		}
		if export.Playlist.Name != "Mix" || export.Playlist.TrackCount != 2 {
			t.Errorf("unexpected playlist: %+v", export.Playlist)
		}
		if len(export.Tracks) != 2 {
			t.Fatalf("got %d tracks, want 2", len(export.Tracks))
		}
		// catalog ID preferred over library ID for cross-service adds
		if export.Tracks[0].ID != "c1" {
			t.Errorf("track ID = %q, want catalog ID", export.Tracks[0].ID)
		}
	})

	t.Run("TokenExpired", func(t *testing.T) {
		srv := newTestAppleMusic(t, func(req *http.Request) (*http.Response, error) {
			return jsonResponse(403, `{"errors":[{"status":"403"}]}`), nil
		})

		_, err := srv.GetPlaylists(context.Background())
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("AddTracksPayload", func(t *testing.T) {
		var gotPath string
		var gotMethod string
		srv := newTestAppleMusic(t, func(req *http.Request) (*http.Response, error) {
			gotPath = req.URL.Path
			gotMethod = req.Method
			return jsonResponse(204, ``), nil
		})

		if err := srv.AddTracks(context.Background(), "p.1", []string{"c1", "c2"}); err != nil {
			t.Fatalf("AddTracks failed: %v", err)
		}
		if gotMethod != "POST" || !strings.HasSuffix(gotPath, "/me/library/playlists/p.1/tracks") {
			t.Errorf("request = %s %s", gotMethod, gotPath)
		}
	})
}
