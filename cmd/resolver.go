package main

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"

	"github.com/sunrotstudios/velvet-metal/internal/models"
	"github.com/sunrotstudios/velvet-metal/internal/repositories"
	"github.com/sunrotstudios/velvet-metal/internal/services"
	"github.com/sunrotstudios/velvet-metal/internal/shared"
	"github.com/sunrotstudios/velvet-metal/internal/tasks"
)

// CredentialResolver builds authenticated provider clients on demand.
//
// Tokens come from the service_auths table when a row exists for the user,
// falling back to credentials in config.toml. Constructed services are cached
// per user and service so repeated reconciliations reuse HTTP clients and
// their rate limiters.
type CredentialResolver struct {
	config *shared.Config
	auths  *repositories.ServiceAuthRepository

	mu    sync.Mutex
	cache map[string]tasks.Service
}

// NewCredentialResolver creates a CredentialResolver. auths may be nil when no
// database is available; config credentials are used alone.
func NewCredentialResolver(config *shared.Config, auths *repositories.ServiceAuthRepository) *CredentialResolver {
	return &CredentialResolver{
		config: config,
		auths:  auths,
		cache:  make(map[string]tasks.Service),
	}
}

// Resolve implements tasks.ServiceResolver.
func (r *CredentialResolver) Resolve(ctx context.Context, userID, service string) (tasks.Service, error) {
	key := userID + "|" + service

	r.mu.Lock()
	if svc, ok := r.cache[key]; ok {
		r.mu.Unlock()
		return svc, nil
	}
	r.mu.Unlock()

	var svc tasks.Service
	var err error

	switch service {
	case models.ServiceSpotify:
		svc, err = r.buildSpotify(ctx, userID)
	case models.ServiceAppleMusic:
		svc, err = r.buildAppleMusic(ctx, userID)
	default:
		return nil, fmt.Errorf("%w: unknown service %q", shared.ErrInvalidArgument, service)
	}
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[key] = svc
	r.mu.Unlock()

	return svc, nil
}

// Invalidate drops a cached service, forcing the next Resolve to rebuild it.
// Called after re-authentication replaces stored tokens.
func (r *CredentialResolver) Invalidate(userID, service string) {
	r.mu.Lock()
	delete(r.cache, userID+"|"+service)
	r.mu.Unlock()
}

func (r *CredentialResolver) buildSpotify(ctx context.Context, userID string) (tasks.Service, error) {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret not configured", shared.ErrNotConnected)
	}

	svc, err := services.NewSpotifyService(creds.Map())
	if err != nil {
		return nil, err
	}

	token := r.storedToken(userID, models.ServiceSpotify)
	if token == nil {
		token = creds.Token()
	}
	if token == nil || token.AccessToken == "" {
		return nil, fmt.Errorf("%w: spotify not authorized, run 'velvet auth spotify'", shared.ErrNotConnected)
	}

	if err := svc.OAuthenticate(ctx, token); err != nil {
		return nil, err
	}
	return svc, nil
}

func (r *CredentialResolver) buildAppleMusic(ctx context.Context, userID string) (tasks.Service, error) {
	creds := r.config.Credentials.AppleMusic
	if creds.DeveloperToken == "" {
		return nil, fmt.Errorf("%w: apple music developer_token not configured", shared.ErrNotConnected)
	}

	credMap := creds.Map()
	if stored := r.storedToken(userID, models.ServiceAppleMusic); stored != nil && stored.AccessToken != "" {
		credMap["user_token"] = stored.AccessToken
	}
	if credMap["user_token"] == "" {
		return nil, fmt.Errorf("%w: apple music not authorized, run 'velvet auth applemusic'", shared.ErrNotConnected)
	}

	return services.NewAppleMusicService(credMap)
}

// storedToken loads persisted tokens for the user, returning nil when the
// service was never connected or no repository is wired.
func (r *CredentialResolver) storedToken(userID, service string) *oauth2.Token {
	if r.auths == nil {
		return nil
	}

	auth, err := r.auths.GetByUserService(userID, service)
	if err != nil {
		return nil
	}

	token := &oauth2.Token{
		AccessToken:  auth.AccessToken(),
		RefreshToken: auth.RefreshToken(),
	}
	if expiry := auth.ExpiresAt(); expiry != nil {
		token.Expiry = *expiry
	}
	return token
}
