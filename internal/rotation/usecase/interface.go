// Package usecase implements resumable, batched key rotation over external collections.
//
// A rotation walks a collection in ascending primary key order, re-encrypts every
// configured field that is not yet on the current key version, commits the batch
// and only then persists the last processed key as progress. A restarted run
// resumes strictly after that key, so committed records are never processed twice.
//
// Record failures are counted and logged without aborting the batch. Store
// failures abort the run with the progress of the last committed batch intact.
package usecase

import (
	"context"

	rotationDomain "github.com/allisson/fieldcrypt/internal/rotation/domain"
)

// RecordStore reads and writes the rows of an external collection.
type RecordStore interface {
	// FetchBatch returns up to limit records with a primary key greater than afterID,
	// in ascending order. An empty afterID starts from the beginning.
	FetchBatch(
		ctx context.Context,
		mapping *rotationDomain.FieldMapping,
		afterID string,
		limit int,
	) ([]*rotationDomain.Record, error)

	// Commit writes the changed fields of records atomically.
	Commit(ctx context.Context, mapping *rotationDomain.FieldMapping, records []*rotationDomain.Record) error
}

// ProgressStore persists the last committed primary key of a running rotation.
type ProgressStore interface {
	// Load returns the saved cursor. The boolean is false when no rotation is in progress.
	Load(ctx context.Context, collection string) (string, bool, error)

	// Save records lastID as the cursor for collection.
	Save(ctx context.Context, collection, lastID string) error

	// Clear removes the cursor for collection. Clearing a missing cursor is not an error.
	Clear(ctx context.Context, collection string) error
}

// RotationUseCase re-encrypts collections under the current key version.
type RotationUseCase interface {
	// Rotate runs or resumes rotation of a single collection.
	Rotate(ctx context.Context, mapping *rotationDomain.FieldMapping) (*rotationDomain.RunStats, error)

	// RotateAll rotates distinct collections concurrently. Stats are returned in mapping order.
	RotateAll(ctx context.Context, mappings []*rotationDomain.FieldMapping) ([]*rotationDomain.RunStats, error)
}
