package repository

import (
	"context"
	"database/sql"

	"github.com/allisson/fieldcrypt/internal/database"
	apperrors "github.com/allisson/fieldcrypt/internal/errors"
	rotationDomain "github.com/allisson/fieldcrypt/internal/rotation/domain"
)

// MySQLRecordStore reads and rewrites mapped tables in MySQL.
// Batches are committed in a single transaction via TxManager.
type MySQLRecordStore struct {
	db        *sql.DB
	txManager database.TxManager
}

// FetchBatch returns up to limit rows with a primary key greater than afterID.
func (p *MySQLRecordStore) FetchBatch(
	ctx context.Context,
	mapping *rotationDomain.FieldMapping,
	afterID string,
	limit int,
) ([]*rotationDomain.Record, error) {
	querier := database.GetTx(ctx, p.db)

	query, args := mysqlDialect.fetchQuery(mapping, afterID)
	rows, err := querier.QueryContext(ctx, query, append(args, limit)...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to fetch records")
	}
	defer func() { _ = rows.Close() }()

	return scanRecords(rows, mapping)
}

// Commit writes the changed fields of records in one transaction.
func (p *MySQLRecordStore) Commit(
	ctx context.Context,
	mapping *rotationDomain.FieldMapping,
	records []*rotationDomain.Record,
) error {
	return p.txManager.WithTx(ctx, func(ctx context.Context) error {
		querier := database.GetTx(ctx, p.db)

		for _, rec := range records {
			if !rec.HasChanges() {
				continue
			}
			query, args := mysqlDialect.updateQuery(mapping, rec)
			if _, err := querier.ExecContext(ctx, query, args...); err != nil {
				return apperrors.Wrapf(err, "failed to update record %s", rec.ID)
			}
		}
		return nil
	})
}

// NewMySQLRecordStore creates a new MySQL record store.
func NewMySQLRecordStore(db *sql.DB, txManager database.TxManager) *MySQLRecordStore {
	return &MySQLRecordStore{db: db, txManager: txManager}
}
