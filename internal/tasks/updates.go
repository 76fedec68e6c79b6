package tasks

import (
	"fmt"

	"github.com/sunrotstudios/velvet-metal/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display. Percent
// values are monotonically non-decreasing within a stage.
type ProgressUpdate struct {
	Stage   Stage  // Operation stage
	Percent int    // 0-100 within the overall operation
	Message string // Human-readable message for display
	Data    any    // Optional stage-specific data for advanced UIs
}

// Transfer stage enumeration
type Stage int

const (
	StageFetching Stage = iota
	StageCreating
	StageSearching
	StageAdding
	StageRemoving
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageFetching:
		return "fetching"
	case StageCreating:
		return "creating"
	case StageSearching:
		return "searching"
	case StageAdding:
		return "adding"
	case StageRemoving:
		return "removing"
	case StageDone:
		return "done"
	default:
		return ""
	}
}

func fetchingUpdate(serviceName string) ProgressUpdate {
	return ProgressUpdate{
		Stage:   StageFetching,
		Percent: 0,
		Message: fmt.Sprintf("Fetching source from %s...", serviceName),
	}
}

func fetchedUpdate(export *models.PlaylistExport) ProgressUpdate {
	return ProgressUpdate{
		Stage:   StageFetching,
		Percent: 10,
		Message: fmt.Sprintf("Found %s (%d tracks)", export.Playlist.Name, len(export.Tracks)),
		Data:    export,
	}
}

func creatingUpdate(serviceName, name string) ProgressUpdate {
	return ProgressUpdate{
		Stage:   StageCreating,
		Percent: 15,
		Message: fmt.Sprintf("Creating playlist %q on %s...", name, serviceName),
	}
}

func createdUpdate(playlist *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Stage:   StageCreating,
		Percent: 20,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", playlist.Name, playlist.ID),
		Data:    playlist,
	}
}

// searchingUpdate scales the searching stage across the 20-90 percent band so
// per-track progress stays monotonic regardless of playlist size.
func searchingUpdate(step, total int, track models.Track) ProgressUpdate {
	percent := 20
	if total > 0 {
		percent += step * 70 / total
	}
	return ProgressUpdate{
		Stage:   StageSearching,
		Percent: percent,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, track.Artist, track.Title),
	}
}

func addingUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Stage:   StageAdding,
		Percent: 90,
		Message: fmt.Sprintf("Adding %d tracks...", count),
	}
}

func doneUpdate(transferred, total int) ProgressUpdate {
	return ProgressUpdate{
		Stage:   StageDone,
		Percent: 100,
		Message: fmt.Sprintf("Transferred %d of %d tracks", transferred, total),
	}
}
