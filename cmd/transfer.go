package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/sunrotstudios/velvet-metal/internal/models"
	"github.com/sunrotstudios/velvet-metal/internal/repositories"
	"github.com/sunrotstudios/velvet-metal/internal/shared"
	"github.com/sunrotstudios/velvet-metal/internal/tasks"
)

// TransferRun copies a playlist or album from one service to the other.
func (r *Runner) TransferRun(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	sourceService := cmd.String("from")
	targetService := cmd.String("to")
	sourceID := cmd.String("id")

	if !models.KnownService(sourceService) {
		return fmt.Errorf("%w: unknown service %q", shared.ErrInvalidArgument, sourceService)
	}
	if !models.KnownService(targetService) {
		return fmt.Errorf("%w: unknown service %q", shared.ErrInvalidArgument, targetService)
	}
	if sourceService == targetService {
		return fmt.Errorf("%w: source and target service must differ", shared.ErrInvalidArgument)
	}

	kind := models.TransferPlaylist
	if cmd.Bool("album") {
		kind = models.TransferAlbum
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	resolver := NewCredentialResolver(r.config, repositories.NewServiceAuthRepository(db))
	engine := tasks.NewTransferEngine(resolver, repositories.NewTransferRepository(db), r.logger)

	req := tasks.TransferRequest{
		UserID:        r.userID(),
		SourceService: sourceService,
		SourceID:      sourceID,
		TargetService: targetService,
		TargetName:    cmd.String("name"),
		TargetID:      cmd.String("into"),
		Kind:          kind,
	}

	r.writePlain("Starting %s transfer...\n", kind)
	r.writePlain("Source: %s %s\n", sourceService, sourceID)
	r.writePlain("Destination: %s\n\n", targetService)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		for update := range progressCh {
			switch update.Stage {
			case tasks.StageFetching:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.StageCreating:
				r.writePlain("📝 %s\n", update.Message)
			case tasks.StageSearching:
				r.writePlain("   🔍 %s\n", update.Message)
			case tasks.StageAdding:
				r.writePlain("➕ %s\n", update.Message)
			case tasks.StageDone:
				r.writePlain("✓ %s\n", update.Message)
			}
		}
	}()

	result, err := engine.Run(ctx, req, progressCh)
	close(progressCh)
	<-progressDone

	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(transferRecordMap(result), true)
	}

	r.writePlain("\n")
	r.writePlainHeader("Transfer Complete!")
	r.writePlain("Source: %s (%d tracks)\n", result.Source.Playlist.Name, len(result.Source.Tracks))
	r.writePlain("Destination: %s\n", result.Target.Name)
	r.writePlain("Resolved: %d/%d tracks\n", len(result.Resolved), len(result.Source.Tracks))

	if len(result.Unresolved) > 0 {
		r.writePlain("\nNo match found for %d tracks:\n", len(result.Unresolved))
		for _, track := range result.Unresolved {
			r.writePlain("  - %s - %s\n", track.Artist, track.Title)
		}
	}

	return nil
}

// transferRecordMap flattens a transfer result for JSON output.
func transferRecordMap(result *tasks.TransferResult) map[string]any {
	out := map[string]any{
		"source_playlist": result.Source.Playlist.Name,
		"tracks_total":    len(result.Source.Tracks),
		"tracks_resolved": len(result.Resolved),
		"unresolved":      result.Unresolved,
	}
	if result.Target != nil {
		out["target_playlist_id"] = result.Target.ID
		out["target_playlist"] = result.Target.Name
	}
	if record := result.Record; record != nil {
		out["transfer_id"] = record.ID()
		out["status"] = record.Status()
		out["started_at"] = record.StartedAt()
		if completed := record.CompletedAt(); completed != nil {
			out["completed_at"] = completed
		}
	}
	return out
}
