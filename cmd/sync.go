package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/sunrotstudios/velvet-metal/internal/models"
	"github.com/sunrotstudios/velvet-metal/internal/repositories"
	"github.com/sunrotstudios/velvet-metal/internal/tasks"
)

// SyncAdd registers a new sync pair.
func (r *Runner) SyncAdd(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	pair := models.NewSyncPair(
		0,
		r.userID(),
		cmd.String("source-service"),
		cmd.String("source-id"),
		cmd.String("target-service"),
		cmd.String("target-id"),
	)

	pairs := repositories.NewSyncPairRepository(db)
	if err := pairs.Create(pair); err != nil {
		return fmt.Errorf("failed to register sync pair: %w", err)
	}

	r.writePlain("✓ Sync pair registered: %s\n", pair.ID())
	r.writePlain("  %s %s → %s %s\n", pair.SourceService(), pair.SourcePlaylistID(), pair.TargetService(), pair.TargetPlaylistID())
	return nil
}

// SyncList lists the user's sync pairs.
func (r *Runner) SyncList(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	pairs, err := repositories.NewSyncPairRepository(db).List(map[string]any{"user_id": r.userID()})
	if err != nil {
		return fmt.Errorf("failed to list sync pairs: %w", err)
	}

	if cmd.Bool("json") {
		out := make([]map[string]any, len(pairs))
		for i, pair := range pairs {
			out[i] = syncPairMap(pair)
		}
		return r.writeJSON(out, true)
	}

	if len(pairs) == 0 {
		r.writePlain("No sync pairs registered. Run 'velvet sync add' to create one.\n")
		return nil
	}

	r.writePlain("Found %d sync pairs:\n\n", len(pairs))
	for i, pair := range pairs {
		r.writePlain("%d. %s\n", i+1, pair.ID())
		r.writePlain("   %s %s → %s %s\n", pair.SourceService(), pair.SourcePlaylistID(), pair.TargetService(), pair.TargetPlaylistID())
		if pair.SyncEnabled() {
			r.writePlain("   Sync: enabled\n")
		} else {
			r.writePlain("   Sync: disabled\n")
		}
		if last := pair.LastSyncedAt(); last != nil {
			r.writePlain("   Last synced: %s\n", last.Format(time.RFC3339))
		} else {
			r.writePlain("   Last synced: never\n")
		}
		if pair.ErrorCount() > 0 {
			r.writePlain("   Errors: %d consecutive (last: %s)\n", pair.ErrorCount(), pair.LastError())
		}
		r.writePlain("\n")
	}

	return nil
}

// SyncRemove soft-deletes a sync pair.
func (r *Runner) SyncRemove(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	pairID := cmd.String("pair")
	if err := repositories.NewSyncPairRepository(db).Delete(pairID); err != nil {
		return err
	}

	r.writePlain("✓ Sync pair %s removed\n", pairID)
	return nil
}

// SyncEnable turns syncing on for a pair.
func (r *Runner) SyncEnable(ctx context.Context, cmd *cli.Command) error {
	return r.setSyncEnabled(cmd, true)
}

// SyncDisable turns syncing off for a pair.
func (r *Runner) SyncDisable(ctx context.Context, cmd *cli.Command) error {
	return r.setSyncEnabled(cmd, false)
}

func (r *Runner) setSyncEnabled(cmd *cli.Command, enabled bool) error {
	r.loadConfig(cmd)

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	pairs := repositories.NewSyncPairRepository(db)
	pair, err := pairs.Get(cmd.String("pair"))
	if err != nil {
		return err
	}

	pair.SetSyncEnabled(enabled)
	if err := pairs.Update(pair); err != nil {
		return fmt.Errorf("failed to update sync pair: %w", err)
	}

	if enabled {
		r.writePlain("✓ Sync enabled for %s\n", pair.ID())
	} else {
		r.writePlain("✓ Sync disabled for %s\n", pair.ID())
	}
	return nil
}

// SyncRun reconciles a single pair immediately.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	resolver := NewCredentialResolver(r.config, repositories.NewServiceAuthRepository(db))
	pairs := repositories.NewSyncPairRepository(db)
	engine := tasks.NewSyncEngine(resolver, pairs, nil, r.logger)

	pairID := cmd.String("pair")
	r.writePlain("Reconciling %s...\n", pairID)

	result, err := engine.Reconcile(ctx, pairID)
	if err != nil {
		return err
	}

	r.writePlain("✓ Reconciled %s\n", pairID)
	r.writePlain("  Added: %d tracks\n", result.Added)
	r.writePlain("  Removed: %d tracks\n", result.Removed)
	if result.Unresolved > 0 {
		r.writePlain("  Unresolved: %d tracks had no match on the target\n", result.Unresolved)
	}

	return nil
}

// syncPairMap flattens a sync pair for JSON output.
func syncPairMap(pair *models.SyncPair) map[string]any {
	out := map[string]any{
		"id":                 pair.ID(),
		"source_service":     pair.SourceService(),
		"source_playlist_id": pair.SourcePlaylistID(),
		"target_service":     pair.TargetService(),
		"target_playlist_id": pair.TargetPlaylistID(),
		"sync_enabled":       pair.SyncEnabled(),
		"error_count":        pair.ErrorCount(),
	}
	if last := pair.LastSyncedAt(); last != nil {
		out["last_synced_at"] = last
	}
	if pair.LastError() != "" {
		out["last_error"] = pair.LastError()
		out["last_error_at"] = pair.LastErrorAt()
	}
	return out
}
