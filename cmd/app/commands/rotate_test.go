package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	rotationDomain "github.com/allisson/fieldcrypt/internal/rotation/domain"
	rotationMocks "github.com/allisson/fieldcrypt/internal/rotation/usecase/mocks"
)

const mappingsJSON = `[
  {
    "collection": "users",
    "stringFields": [{"name": "email", "hashField": "email_hash"}]
  },
  {
    "collection": "documents",
    "recordIdField": "uuid",
    "binaryFields": [{"name": "body"}]
  }
]`

func writeMappings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mappings.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFieldMappings(t *testing.T) {
	path := writeMappings(t, mappingsJSON)

	t.Run("success-all", func(t *testing.T) {
		mappings, err := LoadFieldMappings(path, nil)
		require.NoError(t, err)
		require.Len(t, mappings, 2)
		require.Equal(t, "users", mappings[0].Collection)
		require.Equal(t, "uuid", mappings[1].RecordIDColumn())
	})

	t.Run("success-filtered", func(t *testing.T) {
		mappings, err := LoadFieldMappings(path, []string{"documents"})
		require.NoError(t, err)
		require.Len(t, mappings, 1)
		require.Equal(t, "documents", mappings[0].Collection)
	})

	t.Run("unknown-collection", func(t *testing.T) {
		_, err := LoadFieldMappings(path, []string{"orders"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "collection orders not found")
	})

	t.Run("invalid-mapping", func(t *testing.T) {
		_, err := LoadFieldMappings(writeMappings(t, `[{"collection": "users"}]`), nil)
		require.ErrorIs(t, err, rotationDomain.ErrInvalidFieldMapping)
	})

	t.Run("missing-file", func(t *testing.T) {
		_, err := LoadFieldMappings(filepath.Join(t.TempDir(), "absent.json"), nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to read mappings file")
	})
}

func TestRunRotate(t *testing.T) {
	ctx := context.Background()
	logger := discardLogger()

	mappings, err := LoadFieldMappings(writeMappings(t, mappingsJSON), nil)
	require.NoError(t, err)

	completed := []*rotationDomain.RunStats{
		{Collection: "users", Batches: 3, Processed: 250, Rotated: 250, Completed: true},
		{Collection: "documents", Batches: 1, Processed: 10, Rotated: 4, Skipped: 6, Completed: true},
	}

	t.Run("success-text", func(t *testing.T) {
		mockUseCase := &rotationMocks.MockRotationUseCase{}
		mockUseCase.On("RotateAll", mock.Anything, mappings).Return(completed, nil)

		var out bytes.Buffer
		err := RunRotate(ctx, mockUseCase, nil, logger, &out, mappings, "text")
		require.NoError(t, err)
		require.Contains(t, out.String(), "Key Rotation Summary")
		require.Regexp(t, `users\s+3\s+250\s+250\s+0\s+0\s+completed`, out.String())
		require.Regexp(t, `documents\s+1\s+10\s+4\s+6\s+0\s+completed`, out.String())
		mockUseCase.AssertExpectations(t)
	})

	t.Run("success-json", func(t *testing.T) {
		mockUseCase := &rotationMocks.MockRotationUseCase{}
		mockUseCase.On("RotateAll", mock.Anything, mappings).Return(completed, nil)

		var out bytes.Buffer
		err := RunRotate(ctx, mockUseCase, nil, logger, &out, mappings, "json")
		require.NoError(t, err)

		var result map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		require.Equal(t, true, result["success"])
		require.Len(t, result["collections"], 2)
	})

	t.Run("record-errors", func(t *testing.T) {
		mockUseCase := &rotationMocks.MockRotationUseCase{}
		mockUseCase.On("RotateAll", mock.Anything, mappings).Return([]*rotationDomain.RunStats{
			{Collection: "users", Processed: 248, Rotated: 248, Errors: 2, Completed: true},
			{Collection: "documents", Completed: true},
		}, nil)

		err := RunRotate(ctx, mockUseCase, nil, logger, &bytes.Buffer{}, mappings, "text")
		require.Error(t, err)
		require.Contains(t, err.Error(), "2 record error(s)")
	})

	t.Run("interrupted", func(t *testing.T) {
		mockUseCase := &rotationMocks.MockRotationUseCase{}
		mockUseCase.On("RotateAll", mock.Anything, mappings).Return([]*rotationDomain.RunStats{
			{Collection: "users", Batches: 1, Processed: 100, Cursor: "0100"},
			nil,
		}, context.Canceled)

		var out bytes.Buffer
		err := RunRotate(ctx, mockUseCase, nil, logger, &out, mappings, "text")
		require.ErrorIs(t, err, context.Canceled)
		require.Contains(t, err.Error(), "rerun to resume")
		require.Contains(t, out.String(), "incomplete (cursor 0100)")
	})

	t.Run("store-failure-json", func(t *testing.T) {
		mockUseCase := &rotationMocks.MockRotationUseCase{}
		mockUseCase.On("RotateAll", mock.Anything, mappings).Return(nil, errors.New("connection reset"))

		var out bytes.Buffer
		err := RunRotate(ctx, mockUseCase, nil, logger, &out, mappings, "json")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to rotate collections")

		var result map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		require.Equal(t, false, result["success"])
		require.Equal(t, "connection reset", result["error"])
	})

	t.Run("no-mappings", func(t *testing.T) {
		err := RunRotate(ctx, &rotationMocks.MockRotationUseCase{}, nil, logger, &bytes.Buffer{}, nil, "text")
		require.Error(t, err)
		require.Contains(t, err.Error(), "no field mappings")
	})
}
