package tasks

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/sunrotstudios/velvet-metal/internal/shared"
)

// ChangeEvent signals that a playlist's contents may have changed.
type ChangeEvent struct {
	Service    string `json:"service"`
	PlaylistID string `json:"playlist_id"`
}

// Reconciler is the engine surface the dispatcher drives.
type Reconciler interface {
	Reconcile(ctx context.Context, pairID string) (*SyncResult, error)
}

// Dispatcher consumes playlist change events and feeds reconciliations to the
// sync engine.
//
// Events are queued on a bounded channel and handled by a single consumer.
// Per-pair deduplication keeps a burst of notifications for the same playlist
// from piling up: while a pair's reconciliation is in flight, further events
// that map to it are dropped. Reconciliation errors are recorded and published
// by the engine, so the dispatcher only logs them.
type Dispatcher struct {
	queue  chan ChangeEvent
	engine Reconciler
	pairs  PairStore
	logger *log.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with the given queue capacity.
func NewDispatcher(engine Reconciler, pairs PairStore, queueSize int, logger *log.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Dispatcher{
		queue:    make(chan ChangeEvent, queueSize),
		engine:   engine,
		pairs:    pairs,
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

// Notify enqueues a change event without blocking. Returns false when the
// queue is full and the event was dropped.
func (d *Dispatcher) Notify(event ChangeEvent) bool {
	select {
	case d.queue <- event:
		return true
	default:
		d.logger.Warn("event queue full, dropping change event",
			"service", event.Service, "playlist", event.PlaylistID)
		return false
	}
}

// Run consumes change events until the context is cancelled, then waits for
// in-flight reconciliations to finish.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.wg.Wait()
			return
		case event := <-d.queue:
			d.handle(ctx, event)
		}
	}
}

// handle maps an event to its registered pairs and kicks off a reconciliation
// for each pair not already in flight.
func (d *Dispatcher) handle(ctx context.Context, event ChangeEvent) {
	pairs, err := d.pairs.ListBySourcePlaylist(event.Service, event.PlaylistID)
	if err != nil {
		d.logger.Error("failed to look up sync pairs for event",
			"service", event.Service, "playlist", event.PlaylistID, "error", err)
		return
	}

	for _, pair := range pairs {
		if !d.claim(pair.ID()) {
			d.logger.Debug("reconciliation already queued, skipping", "pair", pair.ID())
			continue
		}

		pairID := pair.ID()
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			defer d.release(pairID)

			if _, err := d.engine.Reconcile(ctx, pairID); err != nil {
				switch {
				case errors.Is(err, shared.ErrSyncDisabled), errors.Is(err, shared.ErrSyncInProgress):
					d.logger.Debug("reconciliation skipped", "pair", pairID, "reason", err)
				default:
					d.logger.Warn("reconciliation failed", "pair", pairID, "error", err)
				}
			}
		}()
	}
}

func (d *Dispatcher) claim(pairID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, held := d.inFlight[pairID]; held {
		return false
	}
	d.inFlight[pairID] = struct{}{}
	return true
}

func (d *Dispatcher) release(pairID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inFlight, pairID)
}
