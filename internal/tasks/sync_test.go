package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sunrotstudios/velvet-metal/internal/models"
	"github.com/sunrotstudios/velvet-metal/internal/shared"
)

func newTestPair() *models.SyncPair {
	pair := models.NewSyncPair(1, "user1", models.ServiceSpotify, "src1", models.ServiceAppleMusic, "dst1")
	pair.SetID("pair-1")
	return pair
}

func TestSyncEngine(t *testing.T) {
	ctx := context.Background()

	t.Run("ReconcileAppliesDiff", func(t *testing.T) {
		source := newMockService(models.ServiceSpotify)
		source.exports["src1"] = playlistExport("src1", "Source",
			models.Track{ID: "s1", Title: "A", Artist: "X", ISRC: "US1"},
			models.Track{ID: "s2", Title: "B", Artist: "Y"},
		)

		target := newMockService(models.ServiceAppleMusic)
		target.exports["dst1"] = playlistExport("dst1", "Target",
			models.Track{ID: "t1", Title: "a", Artist: "x", ISRC: "US1"},
			models.Track{ID: "t3", Title: "C", Artist: "Z"},
		)
		target.addToCatalog(models.Track{ID: "t2", Title: "B", Artist: "Y"})

		pair := newTestPair()
		store := newMemPairStore(pair)
		publisher := &recordingPublisher{}
		engine := NewSyncEngine(&mockResolver{services: map[string]Service{
			models.ServiceSpotify:    source,
			models.ServiceAppleMusic: target,
		}}, store, publisher, nil)

		result, err := engine.Reconcile(ctx, "pair-1")
		if err != nil {
			t.Fatalf("Reconcile failed: %v", err)
		}

		if result.Added != 1 || result.Removed != 1 {
			t.Errorf("added/removed = %d/%d, want 1/1", result.Added, result.Removed)
		}
		if got := target.added["dst1"]; len(got) != 1 || got[0] != "t2" {
			t.Errorf("added IDs = %v, want [t2]", got)
		}
		if got := target.removed["dst1"]; len(got) != 1 || got[0] != "t3" {
			t.Errorf("removed IDs = %v, want [t3]", got)
		}

		if pair.LastSyncedAt() == nil {
			t.Error("success should stamp lastSyncedAt")
		}
		if pair.ErrorCount() != 0 {
			t.Errorf("ErrorCount = %d", pair.ErrorCount())
		}
		if events := publisher.byType(EventReconciled); len(events) != 1 {
			t.Errorf("reconciled events = %d, want 1", len(events))
		}
	})

	t.Run("FailureIsolation", func(t *testing.T) {
		source := newMockService(models.ServiceSpotify)
		source.exportErr = shared.ErrAPIRequest

		target := newMockService(models.ServiceAppleMusic)

		pair := newTestPair()
		before := time.Now().Add(-time.Hour)
		pair.SetLastSyncedAt(&before)

		store := newMemPairStore(pair)
		publisher := &recordingPublisher{}
		engine := NewSyncEngine(&mockResolver{services: map[string]Service{
			models.ServiceSpotify:    source,
			models.ServiceAppleMusic: target,
		}}, store, publisher, nil)

		_, err := engine.Reconcile(ctx, "pair-1")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}

		if pair.ErrorCount() != 1 {
			t.Errorf("ErrorCount = %d, want exactly 1", pair.ErrorCount())
		}
		if pair.LastError() == "" || pair.LastErrorAt() == nil {
			t.Error("failure should record lastError and lastErrorAt")
		}
		if pair.LastSyncedAt() == nil || !pair.LastSyncedAt().Equal(before) {
			t.Errorf("lastSyncedAt changed on failure: %v", pair.LastSyncedAt())
		}
		if events := publisher.byType(EventReconcileFailed); len(events) != 1 {
			t.Errorf("failure events = %d, want 1", len(events))
		}
	})

	t.Run("MissingCredentialFailsPair", func(t *testing.T) {
		pair := newTestPair()
		store := newMemPairStore(pair)
		engine := NewSyncEngine(&mockResolver{services: map[string]Service{}}, store, nil, nil)

		_, err := engine.Reconcile(ctx, "pair-1")
		if !errors.Is(err, shared.ErrNotConnected) {
			t.Fatalf("expected ErrNotConnected, got %v", err)
		}
		if pair.ErrorCount() != 1 {
			t.Errorf("ErrorCount = %d, want 1", pair.ErrorCount())
		}
	})

	t.Run("DisabledPairIsPrecondition", func(t *testing.T) {
		pair := newTestPair()
		pair.SetSyncEnabled(false)
		store := newMemPairStore(pair)
		engine := NewSyncEngine(&mockResolver{services: map[string]Service{}}, store, nil, nil)

		_, err := engine.Reconcile(ctx, "pair-1")
		if !errors.Is(err, shared.ErrSyncDisabled) {
			t.Fatalf("expected ErrSyncDisabled, got %v", err)
		}
		if pair.ErrorCount() != 0 {
			t.Error("precondition failures must not touch error bookkeeping")
		}
	})

	t.Run("UnknownPair", func(t *testing.T) {
		engine := NewSyncEngine(&mockResolver{services: map[string]Service{}}, newMemPairStore(), nil, nil)

		_, err := engine.Reconcile(ctx, "missing")
		if !errors.Is(err, shared.ErrPairNotFound) {
			t.Errorf("expected ErrPairNotFound, got %v", err)
		}
	})

	t.Run("ConcurrentReconcileAbortsCleanly", func(t *testing.T) {
		source := newMockService(models.ServiceSpotify)
		source.exports["src1"] = playlistExport("src1", "Source")

		target := newMockService(models.ServiceAppleMusic)
		target.exports["dst1"] = playlistExport("dst1", "Target")

		pair := newTestPair()
		store := newMemPairStore(pair)
		engine := NewSyncEngine(&mockResolver{services: map[string]Service{
			models.ServiceSpotify:    source,
			models.ServiceAppleMusic: target,
		}}, store, nil, nil)

		// hold the lock as a running pass would
		if !engine.locks.TryLock("pair-1") {
			t.Fatal("failed to take lock")
		}

		_, err := engine.Reconcile(ctx, "pair-1")
		if !errors.Is(err, shared.ErrSyncInProgress) {
			t.Fatalf("expected ErrSyncInProgress, got %v", err)
		}
		if pair.ErrorCount() != 0 {
			t.Error("lock contention must not touch error bookkeeping")
		}

		engine.locks.Unlock("pair-1")
		if _, err := engine.Reconcile(ctx, "pair-1"); err != nil {
			t.Errorf("Reconcile after unlock failed: %v", err)
		}
	})

	t.Run("EmptyDiffNoMutations", func(t *testing.T) {
		common := []models.Track{{ID: "s1", Title: "A", Artist: "X", ISRC: "US1"}}

		source := newMockService(models.ServiceSpotify)
		source.exports["src1"] = playlistExport("src1", "Source", common...)

		target := newMockService(models.ServiceAppleMusic)
		target.exports["dst1"] = playlistExport("dst1", "Target", common...)

		pair := newTestPair()
		store := newMemPairStore(pair)
		engine := NewSyncEngine(&mockResolver{services: map[string]Service{
			models.ServiceSpotify:    source,
			models.ServiceAppleMusic: target,
		}}, store, nil, nil)

		result, err := engine.Reconcile(context.Background(), "pair-1")
		if err != nil {
			t.Fatalf("Reconcile failed: %v", err)
		}
		if result.Added != 0 || result.Removed != 0 {
			t.Errorf("converged pair produced edits: %+v", result)
		}
		if len(target.added["dst1"]) != 0 || len(target.removed["dst1"]) != 0 {
			t.Error("no service mutations expected for a converged pair")
		}
	})
}

func TestPairLocks(t *testing.T) {
	locks := newPairLocks()

	if !locks.TryLock("a") {
		t.Fatal("first TryLock should succeed")
	}
	if locks.TryLock("a") {
		t.Fatal("second TryLock on held key should fail")
	}
	if !locks.TryLock("b") {
		t.Fatal("TryLock on a different key should succeed")
	}

	locks.Unlock("a")
	if !locks.TryLock("a") {
		t.Fatal("TryLock after Unlock should succeed")
	}

	// hammer a single key from many goroutines; exactly one holder at a time
	locks = newPairLocks()
	var holders int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if locks.TryLock("hot") {
					if n := atomic.AddInt32(&holders, 1); n != 1 {
						t.Errorf("%d concurrent holders", n)
					}
					atomic.AddInt32(&holders, -1)
					locks.Unlock("hot")
				}
			}
		}()
	}
	wg.Wait()
}
