package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/sunrotstudios/velvet-metal/internal/models"
	"github.com/sunrotstudios/velvet-metal/internal/repositories"
	"github.com/sunrotstudios/velvet-metal/internal/server"
	"github.com/sunrotstudios/velvet-metal/internal/services"
	"github.com/sunrotstudios/velvet-metal/internal/shared"
)

// AuthSpotify performs OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server, opens browser for user authorization, exchanges
// the auth code for tokens, and persists them to the config file and database.
func (r *Runner) AuthSpotify(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	if config.Credentials.Spotify.ClientID == "" || config.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml", shared.ErrInvalidArgument)
	}

	spotifyService, err := services.NewSpotifyService(config.Credentials.Spotify.Map())
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}

	token, err := r.doOAuth(config, spotifyService, "authorization")
	if err != nil {
		return err
	}

	if err := config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if err := shared.SaveConfig(r.configPath, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	if err := r.persistTokens(models.ServiceSpotify, token.AccessToken, token.RefreshToken, token.Expiry); err != nil {
		r.logger.Warn("failed to persist tokens to database", "error", err)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: velvet transfer --from spotify --to apple_music --id <playlist>\n")

	return nil
}

// AuthAppleMusic validates and stores a Music-User-Token.
//
// Apple Music has no authorization-code flow for command line apps; the token
// comes from a MusicKit sign-in in the browser and is pasted here.
func (r *Runner) AuthAppleMusic(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	userToken := cmd.String("token")

	if config.Credentials.AppleMusic.DeveloperToken == "" {
		return fmt.Errorf("%w: Apple Music developer_token must be set in config.toml", shared.ErrInvalidArgument)
	}

	appleMusic, err := services.NewAppleMusicService(config.Credentials.AppleMusic.Map())
	if err != nil {
		return fmt.Errorf("failed to create Apple Music service: %w", err)
	}

	r.writePlain("→ Validating Apple Music token...\n")
	if err := appleMusic.Authenticate(ctx, map[string]string{"user_token": userToken}); err != nil {
		return err
	}

	config.Credentials.AppleMusic.UserToken = userToken
	if err := shared.SaveConfig(r.configPath, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	if err := r.persistTokens(models.ServiceAppleMusic, userToken, "", time.Time{}); err != nil {
		r.logger.Warn("failed to persist tokens to database", "error", err)
	}

	r.writePlainln("✓ Apple Music connected")
	return nil
}

// AuthStatus lists connected services from the database.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	auths := repositories.NewServiceAuthRepository(db)
	connections, err := auths.List(map[string]any{"user_id": r.userID()})
	if err != nil {
		return fmt.Errorf("failed to list connections: %w", err)
	}

	if len(connections) == 0 {
		r.writePlain("No services connected. Run 'velvet auth spotify' to get started.\n")
		return nil
	}

	r.writePlain("Connected services:\n\n")
	for _, auth := range connections {
		r.writePlain("  %s", auth.Service())
		if expiry := auth.ExpiresAt(); expiry != nil {
			if auth.Expired(time.Now()) {
				r.writePlain(" (token expired %s)", expiry.Format(time.RFC3339))
			} else {
				r.writePlain(" (token valid until %s)", expiry.Format(time.RFC3339))
			}
		}
		r.writePlain("\n")
	}

	return nil
}

// persistTokens upserts service credentials for the configured user.
func (r *Runner) persistTokens(service, accessToken, refreshToken string, expiry time.Time) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	var expiresAt *time.Time
	if !expiry.IsZero() {
		expiresAt = &expiry
	}

	auths := repositories.NewServiceAuthRepository(db)
	auth := models.NewServiceAuth(0, r.userID(), service, accessToken, refreshToken, expiresAt)
	return auths.Upsert(auth)
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(config *shared.Config, oauthSrv services.OAuthService, prefix string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthSrv.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(oauthSrv.GetOAuthConfig(), state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server for %s at %v", prefix, serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify %s...\n", prefix)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}
