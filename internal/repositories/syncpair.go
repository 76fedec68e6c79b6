package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sunrotstudios/velvet-metal/internal/models"
	"github.com/sunrotstudios/velvet-metal/internal/shared"
)

// SyncPairRepository implements models.Repository[*models.SyncPair].
//
// Handles sync pair CRUD with soft delete support and lookups by the
// source/target playlist link.
type SyncPairRepository struct {
	db *sql.DB
}

// NewSyncPairRepository creates a new SyncPairRepository with the given database connection
func NewSyncPairRepository(db *sql.DB) *SyncPairRepository {
	return &SyncPairRepository{db: db}
}

// Create inserts a new sync pair into the database with generated ID and sequence
func (r *SyncPairRepository) Create(pair *models.SyncPair) error {
	sequence, err := NextSequence(r.db, "sync_pairs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	pair.SetID(id)

	if err := pair.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO sync_pairs (id, sequence, user_id, source_service, source_playlist_id, target_service, target_playlist_id, sync_enabled, last_synced_at, error_count, last_error, last_error_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		pair.UserID(),
		pair.SourceService(),
		pair.SourcePlaylistID(),
		pair.TargetService(),
		pair.TargetPlaylistID(),
		pair.SyncEnabled(),
		pair.LastSyncedAt(),
		pair.ErrorCount(),
		pair.LastError(),
		pair.LastErrorAt(),
		pair.CreatedAt(),
		pair.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync pair: %w", err)
	}

	return nil
}

// Get retrieves a sync pair by ID, excluding soft-deleted pairs
func (r *SyncPairRepository) Get(id string) (*models.SyncPair, error) {
	query := selectPairColumns + ` WHERE id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByLink retrieves the sync pair registered for a source/target playlist link
func (r *SyncPairRepository) GetByLink(sourceService, sourcePlaylistID, targetService, targetPlaylistID string) (*models.SyncPair, error) {
	query := selectPairColumns + `
		WHERE source_service = ? AND source_playlist_id = ?
		AND target_service = ? AND target_playlist_id = ?
		AND deleted_at IS NULL
	`
	return r.scanOne(r.db.QueryRow(query, sourceService, sourcePlaylistID, targetService, targetPlaylistID))
}

// ListBySourcePlaylist retrieves all enabled pairs watching the given source playlist
func (r *SyncPairRepository) ListBySourcePlaylist(sourceService, sourcePlaylistID string) ([]*models.SyncPair, error) {
	query := selectPairColumns + `
		WHERE source_service = ? AND source_playlist_id = ?
		AND sync_enabled = 1 AND deleted_at IS NULL
		ORDER BY sequence ASC
	`

	rows, err := r.db.Query(query, sourceService, sourcePlaylistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync pairs: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

// Update persists the mutable state of an existing sync pair
func (r *SyncPairRepository) Update(pair *models.SyncPair) error {
	if err := pair.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	pair.SetUpdatedAt(now)

	query := `
		UPDATE sync_pairs
		SET sync_enabled = ?, last_synced_at = ?, error_count = ?, last_error = ?, last_error_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		pair.SyncEnabled(),
		pair.LastSyncedAt(),
		pair.ErrorCount(),
		pair.LastError(),
		pair.LastErrorAt(),
		now,
		pair.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update sync pair: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPairNotFound, pair.ID())
	}

	return nil
}

// Delete soft-deletes a sync pair by ID
func (r *SyncPairRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE sync_pairs
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete sync pair: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPairNotFound, id)
	}

	return nil
}

// List retrieves all sync pairs matching the given criteria, excluding soft-deleted pairs
func (r *SyncPairRepository) List(criteria map[string]any) ([]*models.SyncPair, error) {
	query := selectPairColumns + ` WHERE deleted_at IS NULL`
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	if enabled, ok := criteria["sync_enabled"].(bool); ok {
		query += " AND sync_enabled = ?"
		args = append(args, enabled)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync pairs: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

const selectPairColumns = `
	SELECT id, sequence, user_id, source_service, source_playlist_id, target_service, target_playlist_id, sync_enabled, last_synced_at, error_count, last_error, last_error_at, created_at, updated_at, deleted_at
	FROM sync_pairs
`

func (r *SyncPairRepository) collect(rows *sql.Rows) ([]*models.SyncPair, error) {
	var pairs []*models.SyncPair
	for rows.Next() {
		pair, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return pairs, nil
}

// scanOne scans a single row into a [models.SyncPair]
func (r *SyncPairRepository) scanOne(row *sql.Row) (*models.SyncPair, error) {
	var (
		id               string
		sequence         int
		userID           string
		sourceService    string
		sourcePlaylistID string
		targetService    string
		targetPlaylistID string
		syncEnabled      bool
		lastSyncedAt     sql.NullTime
		errorCount       int
		lastError        sql.NullString
		lastErrorAt      sql.NullTime
		createdAt        time.Time
		updatedAt        time.Time
		deletedAt        sql.NullTime
	)

	err := row.Scan(&id, &sequence, &userID, &sourceService, &sourcePlaylistID, &targetService, &targetPlaylistID, &syncEnabled, &lastSyncedAt, &errorCount, &lastError, &lastErrorAt, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, shared.ErrPairNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync pair: %w", err)
	}

	return r.rehydrate(id, sequence, userID, sourceService, sourcePlaylistID, targetService, targetPlaylistID, syncEnabled, lastSyncedAt, errorCount, lastError, lastErrorAt, createdAt, updatedAt, deletedAt), nil
}

// scanRow scans a row from [sql.Rows] into a [models.SyncPair]
func (r *SyncPairRepository) scanRow(rows *sql.Rows) (*models.SyncPair, error) {
	var (
		id               string
		sequence         int
		userID           string
		sourceService    string
		sourcePlaylistID string
		targetService    string
		targetPlaylistID string
		syncEnabled      bool
		lastSyncedAt     sql.NullTime
		errorCount       int
		lastError        sql.NullString
		lastErrorAt      sql.NullTime
		createdAt        time.Time
		updatedAt        time.Time
		deletedAt        sql.NullTime
	)

	err := rows.Scan(&id, &sequence, &userID, &sourceService, &sourcePlaylistID, &targetService, &targetPlaylistID, &syncEnabled, &lastSyncedAt, &errorCount, &lastError, &lastErrorAt, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync pair: %w", err)
	}

	return r.rehydrate(id, sequence, userID, sourceService, sourcePlaylistID, targetService, targetPlaylistID, syncEnabled, lastSyncedAt, errorCount, lastError, lastErrorAt, createdAt, updatedAt, deletedAt), nil
}

func (r *SyncPairRepository) rehydrate(id string, sequence int, userID, sourceService, sourcePlaylistID, targetService, targetPlaylistID string, syncEnabled bool, lastSyncedAt sql.NullTime, errorCount int, lastError sql.NullString, lastErrorAt sql.NullTime, createdAt, updatedAt time.Time, deletedAt sql.NullTime) *models.SyncPair {
	pair := models.NewSyncPair(sequence, userID, sourceService, sourcePlaylistID, targetService, targetPlaylistID)
	pair.SetID(id)
	pair.SetCreatedAt(createdAt)
	pair.SetUpdatedAt(updatedAt)
	pair.SetSyncEnabled(syncEnabled)
	if lastSyncedAt.Valid {
		pair.SetLastSyncedAt(&lastSyncedAt.Time)
	}

	var lastErrorAtPtr *time.Time
	if lastErrorAt.Valid {
		lastErrorAtPtr = &lastErrorAt.Time
	}
	pair.SetErrorState(errorCount, lastError.String, lastErrorAtPtr)

	if deletedAt.Valid {
		pair.SetDeletedAt(&deletedAt.Time)
	}

	return pair
}
