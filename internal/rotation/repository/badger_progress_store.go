package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	apperrors "github.com/allisson/fieldcrypt/internal/errors"
	rotationDomain "github.com/allisson/fieldcrypt/internal/rotation/domain"
)

const badgerProgressPrefix = "rotation_progress/"

// BadgerProgressStore persists rotation cursors in an embedded Badger database.
type BadgerProgressStore struct {
	db *badger.DB
}

// Load returns the cursor saved for collection.
func (b *BadgerProgressStore) Load(ctx context.Context, collection string) (string, bool, error) {
	var progress rotationDomain.Progress

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(progressKey(collection))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &progress)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return "", false, nil
		}
		return "", false, apperrors.Wrap(err, "failed to load rotation progress")
	}
	return progress.LastID, true, nil
}

// Save records lastID for collection.
func (b *BadgerProgressStore) Save(ctx context.Context, collection, lastID string) error {
	data, err := json.Marshal(rotationDomain.Progress{
		Collection: collection,
		LastID:     lastID,
		UpdatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to encode rotation progress")
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(progressKey(collection), data)
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to save rotation progress")
	}
	return nil
}

// Clear removes the cursor for collection.
func (b *BadgerProgressStore) Clear(ctx context.Context, collection string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(progressKey(collection))
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to clear rotation progress")
	}
	return nil
}

func progressKey(collection string) []byte {
	return []byte(badgerProgressPrefix + collection)
}

// NewBadgerProgressStore creates a progress store on an open Badger database.
// The caller owns db and closes it.
func NewBadgerProgressStore(db *badger.DB) *BadgerProgressStore {
	return &BadgerProgressStore{db: db}
}

// OpenBadger opens a Badger database at dir with its internal logger disabled.
func OpenBadger(dir string) (*badger.DB, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open badger database")
	}
	return db, nil
}
