package tasks

import "time"

// EventType classifies reconciliation outcomes on the event stream.
type EventType string

const (
	EventReconciled      EventType = "reconciled"
	EventReconcileFailed EventType = "reconcile_failed"
	EventSkipped         EventType = "skipped"
)

// SyncEvent is one observable reconciliation outcome.
//
// Background reconciliation has no caller to return errors to, so outcomes are
// published here instead of being silently discarded.
type SyncEvent struct {
	Type    EventType `json:"type"`
	PairID  string    `json:"pair_id"`
	Message string    `json:"message,omitempty"`
	Added   int       `json:"added"`
	Removed int       `json:"removed"`
	At      time.Time `json:"at"`
}

// EventPublisher receives reconciliation outcomes. Publish must not block;
// implementations drop events they cannot deliver.
type EventPublisher interface {
	Publish(event SyncEvent)
}

// NopPublisher discards all events.
type NopPublisher struct{}

func (NopPublisher) Publish(SyncEvent) {}
