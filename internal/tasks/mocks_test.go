package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/sunrotstudios/velvet-metal/internal/models"
	"github.com/sunrotstudios/velvet-metal/internal/shared"
)

// mockService is a configurable test double for [Service]
type mockService struct {
	name         string
	exports      map[string]*models.PlaylistExport
	catalog      map[string]models.Track // keyed by ISRC and by title|artist
	searchCalls  int
	added        map[string][]string
	removed      map[string][]string
	exportErr    error
	createErr    error
	addErr       error
	removeErr    error
	createdCount int
}

func newMockService(name string) *mockService {
	return &mockService{
		name:    name,
		exports: make(map[string]*models.PlaylistExport),
		catalog: make(map[string]models.Track),
		added:   make(map[string][]string),
		removed: make(map[string][]string),
	}
}

func (m *mockService) addToCatalog(track models.Track) {
	if track.ISRC != "" {
		m.catalog["isrc:"+track.ISRC] = track
	}
	m.catalog[shared.NormalizeTrackKey(track.Title, track.Artist)] = track
}

func (m *mockService) Name() string { return m.name }

func (m *mockService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	for _, export := range m.exports {
		playlists = append(playlists, export.Playlist)
	}
	return playlists, nil
}

func (m *mockService) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	export, ok := m.exports[playlistID]
	if !ok {
		return nil, shared.ErrPlaylistNotFound
	}
	return &export.Playlist, nil
}

func (m *mockService) ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
	if m.exportErr != nil {
		return nil, m.exportErr
	}
	export, ok := m.exports[playlistID]
	if !ok {
		return nil, shared.ErrPlaylistNotFound
	}
	return export, nil
}

func (m *mockService) ExportAlbum(ctx context.Context, albumID string) (*models.PlaylistExport, error) {
	if m.exportErr != nil {
		return nil, m.exportErr
	}
	export, ok := m.exports[albumID]
	if !ok {
		return nil, shared.ErrAlbumNotFound
	}
	return export, nil
}

func (m *mockService) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.createdCount++
	return &models.Playlist{
		ID:          fmt.Sprintf("%s-created-%d", m.name, m.createdCount),
		Name:        name,
		Description: description,
	}, nil
}

func (m *mockService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if m.addErr != nil {
		return m.addErr
	}
	m.added[playlistID] = append(m.added[playlistID], trackIDs...)
	return nil
}

func (m *mockService) RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	m.removed[playlistID] = append(m.removed[playlistID], trackIDs...)
	return nil
}

func (m *mockService) SearchTrack(ctx context.Context, query models.TrackQuery) (*models.Track, error) {
	m.searchCalls++
	if query.ISRC != "" {
		if track, ok := m.catalog["isrc:"+query.ISRC]; ok {
			return &track, nil
		}
	}
	if track, ok := m.catalog[shared.NormalizeTrackKey(query.Title, query.Artist)]; ok {
		return &track, nil
	}
	return nil, shared.ErrTrackNotFound
}

// mockResolver hands out fixed services per service name
type mockResolver struct {
	services map[string]Service
}

func (r *mockResolver) Resolve(ctx context.Context, userID, service string) (Service, error) {
	svc, ok := r.services[service]
	if !ok {
		return nil, shared.ErrNotConnected
	}
	return svc, nil
}

// memTransferStore is an in-memory models.Repository[*models.Transfer]
type memTransferStore struct {
	mu        sync.Mutex
	records   map[string]*models.Transfer
	seq       int
	createErr error
	updateErr error
}

func newMemTransferStore() *memTransferStore {
	return &memTransferStore{records: make(map[string]*models.Transfer)}
}

func (s *memTransferStore) Create(transfer *models.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.seq++
	transfer.SetID(fmt.Sprintf("transfer-%d", s.seq))
	s.records[transfer.ID()] = transfer
	return nil
}

func (s *memTransferStore) Get(id string) (*models.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	transfer, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("transfer not found: %s", id)
	}
	return transfer, nil
}

func (s *memTransferStore) Update(transfer *models.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	s.records[transfer.ID()] = transfer
	return nil
}

func (s *memTransferStore) Delete(id string) error { return shared.ErrNotImplemented }

func (s *memTransferStore) List(criteria map[string]any) ([]*models.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []*models.Transfer
	for _, transfer := range s.records {
		all = append(all, transfer)
	}
	return all, nil
}

// memPairStore is an in-memory PairStore
type memPairStore struct {
	mu      sync.Mutex
	pairs   map[string]*models.SyncPair
	updates int
}

func newMemPairStore(pairs ...*models.SyncPair) *memPairStore {
	store := &memPairStore{pairs: make(map[string]*models.SyncPair)}
	for i, pair := range pairs {
		if pair.ID() == "" {
			pair.SetID(fmt.Sprintf("pair-%d", i+1))
		}
		store.pairs[pair.ID()] = pair
	}
	return store
}

func (s *memPairStore) Get(id string) (*models.SyncPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pair, ok := s.pairs[id]
	if !ok {
		return nil, shared.ErrPairNotFound
	}
	return pair, nil
}

func (s *memPairStore) Update(pair *models.SyncPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	s.pairs[pair.ID()] = pair
	return nil
}

func (s *memPairStore) ListBySourcePlaylist(sourceService, sourcePlaylistID string) ([]*models.SyncPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []*models.SyncPair
	for _, pair := range s.pairs {
		if pair.SourceService() == sourceService && pair.SourcePlaylistID() == sourcePlaylistID && pair.SyncEnabled() {
			matched = append(matched, pair)
		}
	}
	return matched, nil
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []SyncEvent
}

func (p *recordingPublisher) Publish(event SyncEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) byType(eventType EventType) []SyncEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var matched []SyncEvent
	for _, event := range p.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}
