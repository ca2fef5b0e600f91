package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/allisson/fieldcrypt/internal/database"
	apperrors "github.com/allisson/fieldcrypt/internal/errors"
	rotationDomain "github.com/allisson/fieldcrypt/internal/rotation/domain"
)

// PostgreSQLProgressStore persists rotation cursors in the rotation_progress table.
type PostgreSQLProgressStore struct {
	db *sql.DB
}

// Load returns the cursor saved for collection.
func (p *PostgreSQLProgressStore) Load(ctx context.Context, collection string) (string, bool, error) {
	progress, err := p.Get(ctx, collection)
	if err != nil {
		if errors.Is(err, rotationDomain.ErrProgressNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return progress.LastID, true, nil
}

// Get returns the full progress row for collection.
func (p *PostgreSQLProgressStore) Get(ctx context.Context, collection string) (*rotationDomain.Progress, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT collection, last_id, updated_at FROM rotation_progress WHERE collection = $1`

	var progress rotationDomain.Progress
	err := querier.QueryRowContext(ctx, query, collection).Scan(
		&progress.Collection,
		&progress.LastID,
		&progress.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, rotationDomain.ErrProgressNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get rotation progress")
	}
	return &progress, nil
}

// Save upserts the cursor for collection.
func (p *PostgreSQLProgressStore) Save(ctx context.Context, collection, lastID string) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO rotation_progress (collection, last_id, updated_at)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (collection) DO UPDATE
			  SET last_id = EXCLUDED.last_id, updated_at = EXCLUDED.updated_at`

	_, err := querier.ExecContext(ctx, query, collection, lastID, time.Now().UTC())
	if err != nil {
		return apperrors.Wrap(err, "failed to save rotation progress")
	}
	return nil
}

// Clear deletes the cursor for collection.
func (p *PostgreSQLProgressStore) Clear(ctx context.Context, collection string) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM rotation_progress WHERE collection = $1`

	if _, err := querier.ExecContext(ctx, query, collection); err != nil {
		return apperrors.Wrap(err, "failed to clear rotation progress")
	}
	return nil
}

// NewPostgreSQLProgressStore creates a new PostgreSQL progress store.
func NewPostgreSQLProgressStore(db *sql.DB) *PostgreSQLProgressStore {
	return &PostgreSQLProgressStore{db: db}
}
