package models

import (
	"fmt"
	"time"
)

// SyncPair links a playlist on a source service to a playlist on a target service.
//
// The pair is reconciled whenever a change notification arrives for it and
// SyncEnabled is true. Error bookkeeping accumulates across failed
// reconciliations and resets on the first success.
type SyncPair struct {
	record
	userID           string
	sourceService    string
	sourcePlaylistID string
	targetService    string
	targetPlaylistID string
	syncEnabled      bool
	lastSyncedAt     *time.Time
	errorCount       int
	lastError        string
	lastErrorAt      *time.Time
}

// NewSyncPair creates a sync pair for the given playlists with sync enabled.
func NewSyncPair(sequence int, userID, sourceService, sourcePlaylistID, targetService, targetPlaylistID string) *SyncPair {
	return &SyncPair{
		record:           newRecord(sequence),
		userID:           userID,
		sourceService:    sourceService,
		sourcePlaylistID: sourcePlaylistID,
		targetService:    targetService,
		targetPlaylistID: targetPlaylistID,
		syncEnabled:      true,
	}
}

func (p *SyncPair) UserID() string           { return p.userID }
func (p *SyncPair) SourceService() string    { return p.sourceService }
func (p *SyncPair) SourcePlaylistID() string { return p.sourcePlaylistID }
func (p *SyncPair) TargetService() string    { return p.targetService }
func (p *SyncPair) TargetPlaylistID() string { return p.targetPlaylistID }
func (p *SyncPair) SyncEnabled() bool        { return p.syncEnabled }
func (p *SyncPair) LastSyncedAt() *time.Time { return p.lastSyncedAt }
func (p *SyncPair) ErrorCount() int          { return p.errorCount }
func (p *SyncPair) LastError() string        { return p.lastError }
func (p *SyncPair) LastErrorAt() *time.Time  { return p.lastErrorAt }

// SetSyncEnabled toggles reconciliation for the pair.
func (p *SyncPair) SetSyncEnabled(enabled bool) { p.syncEnabled = enabled }

// SetLastSyncedAt restores the last-synced timestamp when loading from storage.
func (p *SyncPair) SetLastSyncedAt(t *time.Time) { p.lastSyncedAt = t }

// SetErrorState restores error bookkeeping when loading from storage.
func (p *SyncPair) SetErrorState(count int, lastError string, lastErrorAt *time.Time) {
	p.errorCount = count
	p.lastError = lastError
	p.lastErrorAt = lastErrorAt
}

// RecordSuccess marks a reconciliation pass as successful: updates
// lastSyncedAt and clears all error bookkeeping.
func (p *SyncPair) RecordSuccess(at time.Time) {
	p.lastSyncedAt = &at
	p.errorCount = 0
	p.lastError = ""
	p.lastErrorAt = nil
}

// RecordFailure marks a reconciliation pass as failed: increments errorCount
// and stores the error. lastSyncedAt is left untouched.
func (p *SyncPair) RecordFailure(message string, at time.Time) {
	p.errorCount++
	p.lastError = message
	p.lastErrorAt = &at
}

// Validate checks that the pair links two distinct playlists on known services.
func (p *SyncPair) Validate() error {
	if p.userID == "" {
		return fmt.Errorf("sync pair requires a user ID")
	}
	if !KnownService(p.sourceService) {
		return fmt.Errorf("unknown source service: %q", p.sourceService)
	}
	if !KnownService(p.targetService) {
		return fmt.Errorf("unknown target service: %q", p.targetService)
	}
	if p.sourcePlaylistID == "" || p.targetPlaylistID == "" {
		return fmt.Errorf("sync pair requires source and target playlist IDs")
	}
	if p.sourceService == p.targetService && p.sourcePlaylistID == p.targetPlaylistID {
		return fmt.Errorf("sync pair cannot link a playlist to itself")
	}
	if p.errorCount < 0 {
		return fmt.Errorf("error count cannot be negative")
	}
	return nil
}
