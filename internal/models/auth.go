package models

import (
	"fmt"
	"time"
)

// ServiceAuth stores the streaming-service credentials for one user and service.
//
// A missing row means the service is not connected; an expired access token is
// still a connected service and is refreshed by the token-management layer.
type ServiceAuth struct {
	record
	userID       string
	service      string
	accessToken  string
	refreshToken string
	expiresAt    *time.Time
}

// NewServiceAuth creates a credential record for the given user and service.
func NewServiceAuth(sequence int, userID, service, accessToken, refreshToken string, expiresAt *time.Time) *ServiceAuth {
	return &ServiceAuth{
		record:       newRecord(sequence),
		userID:       userID,
		service:      service,
		accessToken:  accessToken,
		refreshToken: refreshToken,
		expiresAt:    expiresAt,
	}
}

func (a *ServiceAuth) UserID() string        { return a.userID }
func (a *ServiceAuth) Service() string       { return a.service }
func (a *ServiceAuth) AccessToken() string   { return a.accessToken }
func (a *ServiceAuth) RefreshToken() string  { return a.refreshToken }
func (a *ServiceAuth) ExpiresAt() *time.Time { return a.expiresAt }

// SetTokens replaces the stored tokens after a refresh or reauthorization.
func (a *ServiceAuth) SetTokens(accessToken, refreshToken string, expiresAt *time.Time) {
	a.accessToken = accessToken
	if refreshToken != "" {
		a.refreshToken = refreshToken
	}
	a.expiresAt = expiresAt
}

// Expired reports whether the access token has passed its expiry.
// Credentials without an expiry (Apple Music user tokens) never expire here.
func (a *ServiceAuth) Expired(now time.Time) bool {
	return a.expiresAt != nil && now.After(*a.expiresAt)
}

// Validate checks that the credential record is complete.
func (a *ServiceAuth) Validate() error {
	if a.userID == "" {
		return fmt.Errorf("service auth requires a user ID")
	}
	if !KnownService(a.service) {
		return fmt.Errorf("unknown service: %q", a.service)
	}
	if a.accessToken == "" {
		return fmt.Errorf("service auth requires an access token")
	}
	return nil
}
