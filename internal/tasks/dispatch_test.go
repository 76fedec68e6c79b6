package tasks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sunrotstudios/velvet-metal/internal/models"
)

// blockingReconciler records calls and holds each reconciliation open until
// released, so tests can observe in-flight deduplication.
type blockingReconciler struct {
	mu      sync.Mutex
	calls   map[string]int
	release chan struct{}
	started chan string
}

func newBlockingReconciler() *blockingReconciler {
	return &blockingReconciler{
		calls:   make(map[string]int),
		release: make(chan struct{}),
		started: make(chan string, 16),
	}
}

func (r *blockingReconciler) Reconcile(ctx context.Context, pairID string) (*SyncResult, error) {
	r.mu.Lock()
	r.calls[pairID]++
	r.mu.Unlock()
	r.started <- pairID
	<-r.release
	return &SyncResult{}, nil
}

func (r *blockingReconciler) callCount(pairID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[pairID]
}

func TestDispatcher(t *testing.T) {
	t.Run("RoutesEventToRegisteredPairs", func(t *testing.T) {
		pair := newTestPair()
		other := models.NewSyncPair(2, "user1", models.ServiceSpotify, "other-src", models.ServiceAppleMusic, "other-dst")
		other.SetID("pair-2")

		store := newMemPairStore(pair, other)
		reconciler := newBlockingReconciler()
		dispatcher := NewDispatcher(reconciler, store, 8, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			dispatcher.Run(ctx)
			close(done)
		}()

		if !dispatcher.Notify(ChangeEvent{Service: models.ServiceSpotify, PlaylistID: "src1"}) {
			t.Fatal("Notify should accept the event")
		}

		select {
		case started := <-reconciler.started:
			if started != "pair-1" {
				t.Errorf("reconciled pair = %q, want pair-1", started)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for reconciliation to start")
		}

		if got := reconciler.callCount("pair-2"); got != 0 {
			t.Errorf("unrelated pair reconciled %d times", got)
		}

		close(reconciler.release)
		cancel()
		<-done
	})

	t.Run("DeduplicatesInFlightPairs", func(t *testing.T) {
		pair := newTestPair()
		store := newMemPairStore(pair)
		reconciler := newBlockingReconciler()
		dispatcher := NewDispatcher(reconciler, store, 8, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			dispatcher.Run(ctx)
			close(done)
		}()

		event := ChangeEvent{Service: models.ServiceSpotify, PlaylistID: "src1"}
		dispatcher.Notify(event)

		// wait for the first reconciliation to be in flight
		select {
		case <-reconciler.started:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for reconciliation to start")
		}

		// a burst of further events for the same pair is dropped
		dispatcher.Notify(event)
		dispatcher.Notify(event)
		time.Sleep(50 * time.Millisecond)

		if got := reconciler.callCount("pair-1"); got != 1 {
			t.Errorf("pair reconciled %d times while in flight, want 1", got)
		}

		close(reconciler.release)
		cancel()
		<-done
	})

	t.Run("FullQueueDropsEvent", func(t *testing.T) {
		store := newMemPairStore()
		reconciler := newBlockingReconciler()
		dispatcher := NewDispatcher(reconciler, store, 1, nil)

		// consumer not running, capacity 1
		if !dispatcher.Notify(ChangeEvent{Service: models.ServiceSpotify, PlaylistID: "a"}) {
			t.Fatal("first event should be queued")
		}
		if dispatcher.Notify(ChangeEvent{Service: models.ServiceSpotify, PlaylistID: "b"}) {
			t.Error("second event should be dropped when the queue is full")
		}
	})

	t.Run("DisabledPairsNeverDispatched", func(t *testing.T) {
		pair := newTestPair()
		pair.SetSyncEnabled(false)
		store := newMemPairStore(pair)
		reconciler := newBlockingReconciler()
		dispatcher := NewDispatcher(reconciler, store, 8, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			dispatcher.Run(ctx)
			close(done)
		}()

		dispatcher.Notify(ChangeEvent{Service: models.ServiceSpotify, PlaylistID: "src1"})
		time.Sleep(50 * time.Millisecond)

		if got := reconciler.callCount("pair-1"); got != 0 {
			t.Errorf("disabled pair reconciled %d times", got)
		}

		cancel()
		<-done
	})
}
