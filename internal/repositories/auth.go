package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sunrotstudios/velvet-metal/internal/models"
	"github.com/sunrotstudios/velvet-metal/internal/shared"
)

// ServiceAuthRepository implements models.Repository[*models.ServiceAuth].
//
// Stores per-user OAuth credentials for each streaming service. At most one
// live row exists per (user, service) pair; reconnecting a service updates
// the existing row rather than inserting a second one.
type ServiceAuthRepository struct {
	db *sql.DB
}

// NewServiceAuthRepository creates a new ServiceAuthRepository with the given database connection
func NewServiceAuthRepository(db *sql.DB) *ServiceAuthRepository {
	return &ServiceAuthRepository{db: db}
}

// Create inserts a new credential row into the database with generated ID and sequence
func (r *ServiceAuthRepository) Create(auth *models.ServiceAuth) error {
	sequence, err := NextSequence(r.db, "service_auth")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	auth.SetID(id)

	if err := auth.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO service_auth (id, sequence, user_id, service, access_token, refresh_token, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		auth.UserID(),
		auth.Service(),
		auth.AccessToken(),
		auth.RefreshToken(),
		auth.ExpiresAt(),
		auth.CreatedAt(),
		auth.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert credentials: %w", err)
	}

	return nil
}

// Get retrieves credentials by ID, excluding soft-deleted rows
func (r *ServiceAuthRepository) Get(id string) (*models.ServiceAuth, error) {
	query := selectAuthColumns + ` WHERE id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByUserService retrieves the live credentials for a user on a service.
//
// Returns shared.ErrNotConnected when the user has never authenticated the
// service, so callers can distinguish "connect first" from real failures.
func (r *ServiceAuthRepository) GetByUserService(userID, service string) (*models.ServiceAuth, error) {
	query := selectAuthColumns + ` WHERE user_id = ? AND service = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, userID, service))
}

// Upsert stores credentials for a user on a service, replacing any existing row
func (r *ServiceAuthRepository) Upsert(auth *models.ServiceAuth) error {
	existing, err := r.GetByUserService(auth.UserID(), auth.Service())
	if err == shared.ErrNotConnected {
		return r.Create(auth)
	}
	if err != nil {
		return err
	}

	existing.SetTokens(auth.AccessToken(), auth.RefreshToken(), auth.ExpiresAt())
	return r.Update(existing)
}

// Update persists refreshed tokens for existing credentials
func (r *ServiceAuthRepository) Update(auth *models.ServiceAuth) error {
	if err := auth.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	auth.SetUpdatedAt(now)

	query := `
		UPDATE service_auth
		SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		auth.AccessToken(),
		auth.RefreshToken(),
		auth.ExpiresAt(),
		now,
		auth.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update credentials: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("credentials not found or already deleted: %s", auth.ID())
	}

	return nil
}

// Delete soft-deletes credentials by ID, disconnecting the service
func (r *ServiceAuthRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE service_auth
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("credentials not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all credentials matching the given criteria, excluding soft-deleted rows
func (r *ServiceAuthRepository) List(criteria map[string]any) ([]*models.ServiceAuth, error) {
	query := selectAuthColumns + ` WHERE deleted_at IS NULL`
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	if service, ok := criteria["service"].(string); ok && service != "" {
		query += " AND service = ?"
		args = append(args, service)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer rows.Close()

	var auths []*models.ServiceAuth
	for rows.Next() {
		auth, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		auths = append(auths, auth)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return auths, nil
}

const selectAuthColumns = `
	SELECT id, sequence, user_id, service, access_token, refresh_token, expires_at, created_at, updated_at, deleted_at
	FROM service_auth
`

// scanOne scans a single row into a [models.ServiceAuth]
func (r *ServiceAuthRepository) scanOne(row *sql.Row) (*models.ServiceAuth, error) {
	var (
		id           string
		sequence     int
		userID       string
		service      string
		accessToken  string
		refreshToken sql.NullString
		expiresAt    sql.NullTime
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := row.Scan(&id, &sequence, &userID, &service, &accessToken, &refreshToken, &expiresAt, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, shared.ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan credentials: %w", err)
	}

	return rehydrateAuth(id, sequence, userID, service, accessToken, refreshToken, expiresAt, createdAt, updatedAt, deletedAt), nil
}

// scanRow scans a row from [sql.Rows] into a [models.ServiceAuth]
func (r *ServiceAuthRepository) scanRow(rows *sql.Rows) (*models.ServiceAuth, error) {
	var (
		id           string
		sequence     int
		userID       string
		service      string
		accessToken  string
		refreshToken sql.NullString
		expiresAt    sql.NullTime
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := rows.Scan(&id, &sequence, &userID, &service, &accessToken, &refreshToken, &expiresAt, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan credentials: %w", err)
	}

	return rehydrateAuth(id, sequence, userID, service, accessToken, refreshToken, expiresAt, createdAt, updatedAt, deletedAt), nil
}

func rehydrateAuth(id string, sequence int, userID, service, accessToken string, refreshToken sql.NullString, expiresAt sql.NullTime, createdAt, updatedAt time.Time, deletedAt sql.NullTime) *models.ServiceAuth {
	var expiresAtPtr *time.Time
	if expiresAt.Valid {
		expiresAtPtr = &expiresAt.Time
	}

	auth := models.NewServiceAuth(sequence, userID, service, accessToken, refreshToken.String, expiresAtPtr)
	auth.SetID(id)
	auth.SetCreatedAt(createdAt)
	auth.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		auth.SetDeletedAt(&deletedAt.Time)
	}

	return auth
}
