package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sunrotstudios/velvet-metal/internal/models"
	"github.com/sunrotstudios/velvet-metal/internal/shared"
)

// PairStore is the persistence surface the sync engine needs.
type PairStore interface {
	Get(id string) (*models.SyncPair, error)
	Update(pair *models.SyncPair) error
	ListBySourcePlaylist(sourceService, sourcePlaylistID string) ([]*models.SyncPair, error)
}

// SyncResult summarizes one reconciliation pass.
type SyncResult struct {
	Pair       *models.SyncPair
	Added      int // tracks added to the target
	Removed    int // tracks removed from the target
	Unresolved int // toAdd tracks with no target-catalog match
}

// SyncEngine reconciles registered sync pairs.
//
// Each pass re-fetches both playlists in full, diffs them, and applies the
// adds and removes to the target. There is no incremental diffing against a
// prior snapshot and no automatic retry; a failed pass waits for the next
// change notification.
type SyncEngine struct {
	resolver ServiceResolver
	pairs    PairStore
	locks    *pairLocks
	events   EventPublisher
	logger   *log.Logger
}

// NewSyncEngine creates a SyncEngine with the provided collaborators.
func NewSyncEngine(resolver ServiceResolver, pairs PairStore, events EventPublisher, logger *log.Logger) *SyncEngine {
	if events == nil {
		events = NopPublisher{}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SyncEngine{
		resolver: resolver,
		pairs:    pairs,
		locks:    newPairLocks(),
		events:   events,
		logger:   logger,
	}
}

// Reconcile runs one reconciliation pass for the pair.
//
// Preconditions: the pair exists, has syncEnabled set, and no other pass holds
// its advisory lock; violations return shared.ErrPairNotFound,
// shared.ErrSyncDisabled, or shared.ErrSyncInProgress without touching the
// pair's bookkeeping. A pass that starts and fails records the failure on the
// pair (errorCount incremented, lastError set, lastSyncedAt untouched) and
// publishes it to the event stream; success resets the error state and stamps
// lastSyncedAt. Pair updates are best-effort: a write failure is logged, not
// propagated.
func (e *SyncEngine) Reconcile(ctx context.Context, pairID string) (*SyncResult, error) {
	pair, err := e.pairs.Get(pairID)
	if err != nil {
		return nil, err
	}

	if !pair.SyncEnabled() {
		return nil, fmt.Errorf("%w: %s", shared.ErrSyncDisabled, pairID)
	}

	if !e.locks.TryLock(pair.ID()) {
		e.events.Publish(SyncEvent{
			Type:    EventSkipped,
			PairID:  pair.ID(),
			Message: "reconciliation already in progress",
			At:      time.Now(),
		})
		return nil, fmt.Errorf("%w: %s", shared.ErrSyncInProgress, pairID)
	}
	defer e.locks.Unlock(pair.ID())

	result, err := e.reconcilePass(ctx, pair)
	now := time.Now()

	if err != nil {
		pair.RecordFailure(err.Error(), now)
		if updateErr := e.pairs.Update(pair); updateErr != nil {
			e.logger.Error("failed to persist pair bookkeeping", "pair", pair.ID(), "error", updateErr)
		}
		e.events.Publish(SyncEvent{
			Type:    EventReconcileFailed,
			PairID:  pair.ID(),
			Message: err.Error(),
			At:      now,
		})
		return nil, err
	}

	pair.RecordSuccess(now)
	if updateErr := e.pairs.Update(pair); updateErr != nil {
		e.logger.Error("failed to persist pair bookkeeping", "pair", pair.ID(), "error", updateErr)
	}
	e.events.Publish(SyncEvent{
		Type:    EventReconciled,
		PairID:  pair.ID(),
		Added:   result.Added,
		Removed: result.Removed,
		At:      now,
	})

	result.Pair = pair
	return result, nil
}

// reconcilePass does the fetch-both, diff, add/remove work.
func (e *SyncEngine) reconcilePass(ctx context.Context, pair *models.SyncPair) (*SyncResult, error) {
	source, err := e.resolver.Resolve(ctx, pair.UserID(), pair.SourceService())
	if err != nil {
		return nil, err
	}
	target, err := e.resolver.Resolve(ctx, pair.UserID(), pair.TargetService())
	if err != nil {
		return nil, err
	}

	sourceExport, err := source.ExportPlaylist(ctx, pair.SourcePlaylistID())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source playlist: %w", err)
	}
	targetExport, err := target.ExportPlaylist(ctx, pair.TargetPlaylistID())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch target playlist: %w", err)
	}

	diff := DiffTracks(sourceExport.Tracks, targetExport.Tracks)
	result := &SyncResult{}

	if len(diff.ToAdd) > 0 {
		var addIDs []string
		for _, track := range diff.ToAdd {
			matched, err := target.SearchTrack(ctx, track.Query())
			if err != nil {
				result.Unresolved++
				continue
			}
			addIDs = append(addIDs, matched.ID)
		}

		if len(addIDs) > 0 {
			if err := target.AddTracks(ctx, pair.TargetPlaylistID(), addIDs); err != nil {
				return nil, fmt.Errorf("failed to add tracks: %w", err)
			}
			result.Added = len(addIDs)
		}
	}

	if len(diff.ToRemove) > 0 {
		removeIDs := make([]string, 0, len(diff.ToRemove))
		for _, track := range diff.ToRemove {
			removeIDs = append(removeIDs, track.ID)
		}

		if err := target.RemoveTracks(ctx, pair.TargetPlaylistID(), removeIDs); err != nil {
			return nil, fmt.Errorf("failed to remove tracks: %w", err)
		}
		result.Removed = len(removeIDs)
	}

	return result, nil
}
