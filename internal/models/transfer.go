package models

import (
	"fmt"
	"time"
)

// TransferStatus enumerates the lifecycle states of a transfer.
type TransferStatus string

const (
	TransferPending TransferStatus = "pending"
	TransferSuccess TransferStatus = "success"
	TransferFailed  TransferStatus = "failed"
)

// TransferKind distinguishes playlist transfers from album transfers.
type TransferKind string

const (
	TransferPlaylist TransferKind = "playlist"
	TransferAlbum    TransferKind = "album"
)

// Transfer records a one-shot copy of an album or playlist between services.
//
// Created with status pending when the operation starts and completed exactly
// once with success or failed. Transfers are append-only history and are never
// deleted by the core logic.
type Transfer struct {
	record
	userID            string
	sourceService     string
	sourceID          string
	targetService     string
	targetPlaylistID  string
	kind              TransferKind
	status            TransferStatus
	tracksTotal       int
	tracksTransferred int
	errorMessage      string
	startedAt         time.Time
	completedAt       *time.Time
}

// NewTransfer creates a pending transfer record for the given source item.
func NewTransfer(sequence int, userID, sourceService, sourceID, targetService string, kind TransferKind) *Transfer {
	return &Transfer{
		record:        newRecord(sequence),
		userID:        userID,
		sourceService: sourceService,
		sourceID:      sourceID,
		targetService: targetService,
		kind:          kind,
		status:        TransferPending,
		startedAt:     time.Now(),
	}
}

func (t *Transfer) UserID() string           { return t.userID }
func (t *Transfer) SourceService() string    { return t.sourceService }
func (t *Transfer) SourceID() string         { return t.sourceID }
func (t *Transfer) TargetService() string    { return t.targetService }
func (t *Transfer) TargetPlaylistID() string { return t.targetPlaylistID }
func (t *Transfer) Kind() TransferKind       { return t.kind }
func (t *Transfer) Status() TransferStatus   { return t.status }
func (t *Transfer) TracksTotal() int         { return t.tracksTotal }
func (t *Transfer) TracksTransferred() int   { return t.tracksTransferred }
func (t *Transfer) ErrorMessage() string     { return t.errorMessage }
func (t *Transfer) StartedAt() time.Time     { return t.startedAt }
func (t *Transfer) CompletedAt() *time.Time  { return t.completedAt }

// SetTargetPlaylistID records the destination container once known.
func (t *Transfer) SetTargetPlaylistID(id string) { t.targetPlaylistID = id }

// SetTracksTotal records the source track count once fetched.
func (t *Transfer) SetTracksTotal(n int) { t.tracksTotal = n }

// SetStartedAt restores the start timestamp when loading from storage.
func (t *Transfer) SetStartedAt(at time.Time) { t.startedAt = at }

// Restore rehydrates completion state when loading from storage.
func (t *Transfer) Restore(status TransferStatus, transferred int, errorMessage string, completedAt *time.Time) {
	t.status = status
	t.tracksTransferred = transferred
	t.errorMessage = errorMessage
	t.completedAt = completedAt
}

// Complete marks the transfer as successful. Partial transfers (transferred <
// total) are still successes; unresolved tracks are reported through the counts.
func (t *Transfer) Complete(transferred int, at time.Time) {
	t.status = TransferSuccess
	t.tracksTransferred = transferred
	t.completedAt = &at
}

// Fail marks the transfer as failed with the given error message.
func (t *Transfer) Fail(message string, at time.Time) {
	t.status = TransferFailed
	t.errorMessage = message
	t.completedAt = &at
}

// Validate checks invariants on the transfer record.
func (t *Transfer) Validate() error {
	if t.userID == "" {
		return fmt.Errorf("transfer requires a user ID")
	}
	if !KnownService(t.sourceService) {
		return fmt.Errorf("unknown source service: %q", t.sourceService)
	}
	if !KnownService(t.targetService) {
		return fmt.Errorf("unknown target service: %q", t.targetService)
	}
	if t.sourceID == "" {
		return fmt.Errorf("transfer requires a source ID")
	}
	switch t.kind {
	case TransferPlaylist, TransferAlbum:
	default:
		return fmt.Errorf("unknown transfer kind: %q", t.kind)
	}
	switch t.status {
	case TransferPending, TransferSuccess, TransferFailed:
	default:
		return fmt.Errorf("unknown transfer status: %q", t.status)
	}
	if t.tracksTransferred > t.tracksTotal {
		return fmt.Errorf("tracks transferred (%d) cannot exceed total (%d)", t.tracksTransferred, t.tracksTotal)
	}
	return nil
}
