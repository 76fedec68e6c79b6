package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	gocache "github.com/patrickmn/go-cache"

	"github.com/sunrotstudios/velvet-metal/internal/models"
	"github.com/sunrotstudios/velvet-metal/internal/shared"
)

// ServiceResolver produces an authenticated service client for a user.
//
// Implementations load stored credentials and return shared.ErrNotConnected
// when the user never linked the service, distinct from expired-token errors.
type ServiceResolver interface {
	Resolve(ctx context.Context, userID, service string) (Service, error)
}

// Service is the provider surface the engines consume. It mirrors
// services.Service; redeclared here so the engines depend only on what they
// call and tests can stub it without importing the providers.
type Service interface {
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)
	GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error)
	ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error)
	ExportAlbum(ctx context.Context, albumID string) (*models.PlaylistExport, error)
	CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error)
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) error
	RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error
	SearchTrack(ctx context.Context, query models.TrackQuery) (*models.Track, error)
	Name() string
}

// TransferRequest describes a one-shot copy of a playlist or album.
type TransferRequest struct {
	UserID        string
	SourceService string
	SourceID      string
	TargetService string
	TargetName    string // optional; defaults to the source container's name
	TargetID      string // optional; reuse an existing target playlist instead of creating one
	Kind          models.TransferKind
}

// TransferResult contains all data from a full transfer operation.
type TransferResult struct {
	Record     *models.Transfer       // Persisted transfer record
	Source     *models.PlaylistExport // Source container with tracks
	Target     *models.Playlist       // Created destination playlist
	Resolved   []models.Track         // Tracks resolved on the target service
	Unresolved []models.Track         // Source tracks with no target match
}

// TransferEngine drives one-shot playlist and album copies between services.
//
// Resolved track IDs are memoized in a TTL cache keyed by target service and
// track identity, so repeated transfers of overlapping playlists skip the
// catalog search round trip.
type TransferEngine struct {
	resolver  ServiceResolver
	transfers models.Repository[*models.Transfer]
	resolved  *gocache.Cache
	logger    *log.Logger
}

// NewTransferEngine creates a TransferEngine with the provided collaborators.
func NewTransferEngine(resolver ServiceResolver, transfers models.Repository[*models.Transfer], logger *log.Logger) *TransferEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &TransferEngine{
		resolver:  resolver,
		transfers: transfers,
		resolved:  gocache.New(30*time.Minute, 10*time.Minute),
		logger:    logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run performs a full transfer: fetch source, create target container, resolve
// tracks, add the resolved ones.
//
// Unresolvable tracks are skipped and counted, never fatal; the record still
// resolves to success with tracksTransferred below tracksTotal. Failures while
// fetching or creating abort the operation and fail the record. Persisting the
// record itself is best-effort: a write failure is logged and the in-memory
// result is still returned.
func (e *TransferEngine) Run(ctx context.Context, req TransferRequest, progress chan<- ProgressUpdate) (*TransferResult, error) {
	source, err := e.resolver.Resolve(ctx, req.UserID, req.SourceService)
	if err != nil {
		return nil, err
	}
	target, err := e.resolver.Resolve(ctx, req.UserID, req.TargetService)
	if err != nil {
		return nil, err
	}

	record := models.NewTransfer(0, req.UserID, req.SourceService, req.SourceID, req.TargetService, req.Kind)
	if err := e.transfers.Create(record); err != nil {
		e.logger.Error("failed to persist transfer record", "error", err)
	}

	result := &TransferResult{Record: record}

	sendProgress(progress, fetchingUpdate(source.Name()))

	var export *models.PlaylistExport
	if req.Kind == models.TransferAlbum {
		export, err = source.ExportAlbum(ctx, req.SourceID)
	} else {
		export, err = source.ExportPlaylist(ctx, req.SourceID)
	}
	if err != nil {
		e.fail(record, fmt.Errorf("failed to fetch source: %w", err))
		return result, err
	}

	result.Source = export
	record.SetTracksTotal(len(export.Tracks))
	sendProgress(progress, fetchedUpdate(export))

	name := req.TargetName
	if name == "" {
		name = export.Playlist.Name
	}

	var created *models.Playlist
	if req.TargetID != "" {
		sendProgress(progress, creatingUpdate(target.Name(), name))
		created, err = target.GetPlaylist(ctx, req.TargetID)
		if err != nil {
			e.fail(record, fmt.Errorf("failed to find target playlist: %w", err))
			return result, err
		}
	} else {
		description := fmt.Sprintf("Transferred from %s: %s", source.Name(), export.Playlist.Name)
		sendProgress(progress, creatingUpdate(target.Name(), name))
		created, err = target.CreatePlaylist(ctx, name, description)
		if err != nil {
			e.fail(record, fmt.Errorf("failed to create target playlist: %w", err))
			return result, err
		}
	}

	result.Target = created
	record.SetTargetPlaylistID(created.ID)
	sendProgress(progress, createdUpdate(created))

	total := len(export.Tracks)
	for i, track := range export.Tracks {
		sendProgress(progress, searchingUpdate(i+1, total, track))

		matched, err := e.resolveTrack(ctx, target, track)
		if err != nil {
			result.Unresolved = append(result.Unresolved, track)
			continue
		}
		result.Resolved = append(result.Resolved, *matched)
	}

	if len(result.Resolved) > 0 {
		sendProgress(progress, addingUpdate(len(result.Resolved)))

		ids := make([]string, 0, len(result.Resolved))
		for _, track := range result.Resolved {
			ids = append(ids, track.ID)
		}
		if err := target.AddTracks(ctx, created.ID, ids); err != nil {
			e.fail(record, fmt.Errorf("failed to add tracks: %w", err))
			return result, err
		}
	}

	record.Complete(len(result.Resolved), time.Now())
	if err := e.transfers.Update(record); err != nil {
		e.logger.Error("failed to persist transfer record", "error", err)
	}

	sendProgress(progress, doneUpdate(record.TracksTransferred(), record.TracksTotal()))
	return result, nil
}

// resolveTrack finds the target-service equivalent of a source track, going
// through the memoized cache first.
func (e *TransferEngine) resolveTrack(ctx context.Context, target Service, track models.Track) (*models.Track, error) {
	key := resolveKey(target.Name(), track)
	if cached, found := e.resolved.Get(key); found {
		matched := cached.(models.Track)
		return &matched, nil
	}

	matched, err := target.SearchTrack(ctx, track.Query())
	if err != nil {
		return nil, err
	}

	e.resolved.Set(key, *matched, gocache.DefaultExpiration)
	return matched, nil
}

func resolveKey(serviceName string, track models.Track) string {
	if track.ISRC != "" {
		return serviceName + "|isrc|" + track.ISRC
	}
	return serviceName + "|" + shared.NormalizeTrackKey(track.Title, track.Artist)
}

// fail resolves the record as failed and persists it best-effort.
func (e *TransferEngine) fail(record *models.Transfer, err error) {
	record.Fail(err.Error(), time.Now())
	if updateErr := e.transfers.Update(record); updateErr != nil {
		e.logger.Error("failed to persist transfer record", "error", updateErr)
	}
}
