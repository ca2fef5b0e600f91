// Package mocks provides mock implementations of the rotation collaborators for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	rotationDomain "github.com/allisson/fieldcrypt/internal/rotation/domain"
)

// MockRecordStore is a mock implementation of RecordStore for testing.
type MockRecordStore struct {
	mock.Mock
}

// FetchBatch mocks the FetchBatch method of RecordStore.
func (m *MockRecordStore) FetchBatch(
	ctx context.Context,
	mapping *rotationDomain.FieldMapping,
	afterID string,
	limit int,
) ([]*rotationDomain.Record, error) {
	args := m.Called(ctx, mapping, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*rotationDomain.Record), args.Error(1)
}

// Commit mocks the Commit method of RecordStore.
func (m *MockRecordStore) Commit(
	ctx context.Context,
	mapping *rotationDomain.FieldMapping,
	records []*rotationDomain.Record,
) error {
	args := m.Called(ctx, mapping, records)
	return args.Error(0)
}

// MockProgressStore is a mock implementation of ProgressStore for testing.
type MockProgressStore struct {
	mock.Mock
}

// Load mocks the Load method of ProgressStore.
func (m *MockProgressStore) Load(ctx context.Context, collection string) (string, bool, error) {
	args := m.Called(ctx, collection)
	return args.String(0), args.Bool(1), args.Error(2)
}

// Save mocks the Save method of ProgressStore.
func (m *MockProgressStore) Save(ctx context.Context, collection, lastID string) error {
	args := m.Called(ctx, collection, lastID)
	return args.Error(0)
}

// Clear mocks the Clear method of ProgressStore.
func (m *MockProgressStore) Clear(ctx context.Context, collection string) error {
	args := m.Called(ctx, collection)
	return args.Error(0)
}

// MockRotationUseCase is a mock implementation of RotationUseCase for testing.
type MockRotationUseCase struct {
	mock.Mock
}

// Rotate mocks the Rotate method of RotationUseCase.
func (m *MockRotationUseCase) Rotate(
	ctx context.Context,
	mapping *rotationDomain.FieldMapping,
) (*rotationDomain.RunStats, error) {
	args := m.Called(ctx, mapping)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rotationDomain.RunStats), args.Error(1)
}

// RotateAll mocks the RotateAll method of RotationUseCase.
func (m *MockRotationUseCase) RotateAll(
	ctx context.Context,
	mappings []*rotationDomain.FieldMapping,
) ([]*rotationDomain.RunStats, error) {
	args := m.Called(ctx, mappings)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*rotationDomain.RunStats), args.Error(1)
}
