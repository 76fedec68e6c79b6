// package tasks implements cross-service playlist transfer and sync operations.
//
// The building blocks are layered: SameTrack decides track identity across
// services, DiffTracks computes the adds and removes that make one track list
// match another, TransferEngine drives a one-shot playlist or album copy, and
// SyncEngine reconciles a registered sync pair after a change notification.
// The Dispatcher consumes change events, deduplicates them per pair, and feeds
// reconciliations to the SyncEngine one at a time.
//
// Long-running operations emit progress updates via channels for non-blocking
// status reporting to CLI/UI layers, and reconciliation outcomes are published
// to an event sink so background failures stay observable.
package tasks
