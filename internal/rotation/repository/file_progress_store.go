package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	apperrors "github.com/allisson/fieldcrypt/internal/errors"
	rotationDomain "github.com/allisson/fieldcrypt/internal/rotation/domain"
)

// FileProgressStore keeps every collection's cursor in a single JSON file.
//
// Writes go to a temporary file in the same directory which is then renamed
// over the original, so a crash never leaves a truncated file behind. The store
// serializes access within one process only.
type FileProgressStore struct {
	path string
	mu   sync.Mutex
}

// Load returns the cursor saved for collection.
func (f *FileProgressStore) Load(ctx context.Context, collection string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil {
		return "", false, err
	}
	progress, ok := entries[collection]
	if !ok {
		return "", false, nil
	}
	return progress.LastID, true, nil
}

// Save records lastID for collection.
func (f *FileProgressStore) Save(ctx context.Context, collection, lastID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil {
		return err
	}
	entries[collection] = rotationDomain.Progress{
		Collection: collection,
		LastID:     lastID,
		UpdatedAt:  time.Now().UTC(),
	}
	return f.write(entries)
}

// Clear removes the cursor for collection. The file is deleted once empty.
func (f *FileProgressStore) Clear(ctx context.Context, collection string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := entries[collection]; !ok {
		return nil
	}
	delete(entries, collection)

	if len(entries) == 0 {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return apperrors.Wrap(err, "failed to remove progress file")
		}
		return nil
	}
	return f.write(entries)
}

func (f *FileProgressStore) read() (map[string]rotationDomain.Progress, error) {
	entries := make(map[string]rotationDomain.Progress)

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return entries, nil
		}
		return nil, apperrors.Wrap(err, "failed to read progress file")
	}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode progress file")
	}
	return entries, nil
}

func (f *FileProgressStore) write(entries map[string]rotationDomain.Progress) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return apperrors.Wrap(err, "failed to encode progress file")
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return apperrors.Wrap(err, "failed to create progress directory")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return apperrors.Wrap(err, "failed to create temporary progress file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return apperrors.Wrap(err, "failed to write progress file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return apperrors.Wrap(err, "failed to sync progress file")
	}
	if err := tmp.Close(); err != nil {
		return apperrors.Wrap(err, "failed to close progress file")
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return apperrors.Wrap(err, "failed to replace progress file")
	}
	return nil
}

// NewFileProgressStore creates a progress store backed by the JSON file at path.
func NewFileProgressStore(path string) *FileProgressStore {
	return &FileProgressStore{path: path}
}
