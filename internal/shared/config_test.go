package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "velvet.db" {
			t.Errorf("expected database path velvet.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Credentials.AppleMusic.Storefront != "us" {
			t.Errorf("expected apple music storefront us, got %s", config.Credentials.AppleMusic.Storefront)
		}

		if config.Sync.QueueSize != 64 {
			t.Errorf("expected sync queue size 64, got %d", config.Sync.QueueSize)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10

[server]
host = "0.0.0.0"
port = 9090

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
redirect_uri = "http://localhost:9090/callback"

[credentials.apple_music]
developer_token = "dev_token"
user_token = "user_token"
storefront = "gb"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected custom database path, got %s", config.Database.Path)
		}
		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Credentials.AppleMusic.Storefront != "gb" {
			t.Errorf("expected storefront gb, got %s", config.Credentials.AppleMusic.Storefront)
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig("/nonexistent/config.toml"); err == nil {
			t.Error("loading missing config should fail")
		}
	})

	t.Run("SaveConfig round trip", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		config := DefaultConfig()
		config.Credentials.Spotify.ClientID = "saved_id"

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}

		if loaded.Credentials.Spotify.ClientID != "saved_id" {
			t.Errorf("expected saved_id, got %s", loaded.Credentials.Spotify.ClientID)
		}
	})
}

func TestSpotifyConfigToken(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)

	cfg := SpotifyConfig{ClientID: "id", ClientSecret: "secret"}
	if err := cfg.Update(&oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       expiry,
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	token := cfg.Token()
	if token.AccessToken != "access" {
		t.Errorf("expected access token, got %s", token.AccessToken)
	}
	if token.RefreshToken != "refresh" {
		t.Errorf("expected refresh token, got %s", token.RefreshToken)
	}
	if !token.Expiry.Equal(expiry) {
		t.Errorf("expected expiry %v, got %v", expiry, token.Expiry)
	}

	if err := cfg.Update(nil); err == nil {
		t.Error("Update(nil) should fail")
	}
}
