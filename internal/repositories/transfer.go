package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sunrotstudios/velvet-metal/internal/models"
	"github.com/sunrotstudios/velvet-metal/internal/shared"
)

// TransferRepository implements models.Repository[*models.Transfer].
//
// Transfers are append-only history: rows are inserted when an operation
// starts and updated exactly once when it resolves. Delete is intentionally
// unsupported.
type TransferRepository struct {
	db *sql.DB
}

// NewTransferRepository creates a new TransferRepository with the given database connection
func NewTransferRepository(db *sql.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

// Create inserts a new transfer into the database with generated ID and sequence
func (r *TransferRepository) Create(transfer *models.Transfer) error {
	sequence, err := NextSequence(r.db, "transfers")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	transfer.SetID(id)

	if err := transfer.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO transfers (id, sequence, user_id, source_service, source_id, target_service, target_playlist_id, kind, status, tracks_total, tracks_transferred, error_message, started_at, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		transfer.UserID(),
		transfer.SourceService(),
		transfer.SourceID(),
		transfer.TargetService(),
		transfer.TargetPlaylistID(),
		string(transfer.Kind()),
		string(transfer.Status()),
		transfer.TracksTotal(),
		transfer.TracksTransferred(),
		transfer.ErrorMessage(),
		transfer.StartedAt(),
		transfer.CompletedAt(),
		transfer.CreatedAt(),
		transfer.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transfer: %w", err)
	}

	return nil
}

// Get retrieves a transfer by ID
func (r *TransferRepository) Get(id string) (*models.Transfer, error) {
	query := selectTransferColumns + ` WHERE id = ?`
	return r.scanOne(r.db.QueryRow(query, id))
}

// Update persists the resolution of an existing transfer
func (r *TransferRepository) Update(transfer *models.Transfer) error {
	if err := transfer.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	transfer.SetUpdatedAt(now)

	query := `
		UPDATE transfers
		SET target_playlist_id = ?, status = ?, tracks_total = ?, tracks_transferred = ?, error_message = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		transfer.TargetPlaylistID(),
		string(transfer.Status()),
		transfer.TracksTotal(),
		transfer.TracksTransferred(),
		transfer.ErrorMessage(),
		transfer.CompletedAt(),
		now,
		transfer.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update transfer: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("transfer not found: %s", transfer.ID())
	}

	return nil
}

// Delete is unsupported; transfer history is append-only
func (r *TransferRepository) Delete(id string) error {
	return fmt.Errorf("%w: transfers are append-only", shared.ErrNotImplemented)
}

// List retrieves all transfers matching the given criteria, most recent first
func (r *TransferRepository) List(criteria map[string]any) ([]*models.Transfer, error) {
	query := selectTransferColumns + ` WHERE 1 = 1`
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if kind, ok := criteria["kind"].(string); ok && kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}

	query += " ORDER BY sequence DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*models.Transfer
	for rows.Next() {
		transfer, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, transfer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return transfers, nil
}

const selectTransferColumns = `
	SELECT id, sequence, user_id, source_service, source_id, target_service, target_playlist_id, kind, status, tracks_total, tracks_transferred, error_message, started_at, completed_at, created_at, updated_at
	FROM transfers
`

// scanOne scans a single row into a [models.Transfer]
func (r *TransferRepository) scanOne(row *sql.Row) (*models.Transfer, error) {
	var (
		id                string
		sequence          int
		userID            string
		sourceService     string
		sourceID          string
		targetService     string
		targetPlaylistID  sql.NullString
		kind              string
		status            string
		tracksTotal       int
		tracksTransferred int
		errorMessage      sql.NullString
		startedAt         time.Time
		completedAt       sql.NullTime
		createdAt         time.Time
		updatedAt         time.Time
	)

	err := row.Scan(&id, &sequence, &userID, &sourceService, &sourceID, &targetService, &targetPlaylistID, &kind, &status, &tracksTotal, &tracksTransferred, &errorMessage, &startedAt, &completedAt, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transfer not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transfer: %w", err)
	}

	return rehydrateTransfer(id, sequence, userID, sourceService, sourceID, targetService, targetPlaylistID, kind, status, tracksTotal, tracksTransferred, errorMessage, startedAt, completedAt, createdAt, updatedAt), nil
}

// scanRow scans a row from [sql.Rows] into a [models.Transfer]
func (r *TransferRepository) scanRow(rows *sql.Rows) (*models.Transfer, error) {
	var (
		id                string
		sequence          int
		userID            string
		sourceService     string
		sourceID          string
		targetService     string
		targetPlaylistID  sql.NullString
		kind              string
		status            string
		tracksTotal       int
		tracksTransferred int
		errorMessage      sql.NullString
		startedAt         time.Time
		completedAt       sql.NullTime
		createdAt         time.Time
		updatedAt         time.Time
	)

	err := rows.Scan(&id, &sequence, &userID, &sourceService, &sourceID, &targetService, &targetPlaylistID, &kind, &status, &tracksTotal, &tracksTransferred, &errorMessage, &startedAt, &completedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan transfer: %w", err)
	}

	return rehydrateTransfer(id, sequence, userID, sourceService, sourceID, targetService, targetPlaylistID, kind, status, tracksTotal, tracksTransferred, errorMessage, startedAt, completedAt, createdAt, updatedAt), nil
}

func rehydrateTransfer(id string, sequence int, userID, sourceService, sourceID, targetService string, targetPlaylistID sql.NullString, kind, status string, tracksTotal, tracksTransferred int, errorMessage sql.NullString, startedAt time.Time, completedAt sql.NullTime, createdAt, updatedAt time.Time) *models.Transfer {
	transfer := models.NewTransfer(sequence, userID, sourceService, sourceID, targetService, models.TransferKind(kind))
	transfer.SetID(id)
	transfer.SetCreatedAt(createdAt)
	transfer.SetUpdatedAt(updatedAt)
	transfer.SetStartedAt(startedAt)
	transfer.SetTargetPlaylistID(targetPlaylistID.String)
	transfer.SetTracksTotal(tracksTotal)

	var completedAtPtr *time.Time
	if completedAt.Valid {
		completedAtPtr = &completedAt.Time
	}
	transfer.Restore(models.TransferStatus(status), tracksTransferred, errorMessage.String, completedAtPtr)

	return transfer
}
