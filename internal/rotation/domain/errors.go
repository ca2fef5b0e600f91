// Package domain defines the records, field mappings and statistics used by key rotation.
package domain

import (
	"github.com/allisson/fieldcrypt/internal/errors"
)

// Rotation-specific error definitions.
var (
	// ErrInvalidFieldMapping indicates a field mapping failed validation.
	ErrInvalidFieldMapping = errors.Wrap(errors.ErrInvalidInput, "invalid field mapping")

	// ErrDuplicateCollection indicates two mappings target the same collection in one run.
	ErrDuplicateCollection = errors.Wrap(errors.ErrConflict, "duplicate collection")

	// ErrFieldNotString indicates a string field holds a value that is not text.
	ErrFieldNotString = errors.Wrap(errors.ErrInvalidInput, "field is not a string")

	// ErrStringDecryptFailed indicates a string field could not be decrypted with any configured key.
	ErrStringDecryptFailed = errors.Wrap(errors.ErrIntegrity, "string field could not be decrypted")

	// ErrProgressNotFound indicates no progress is recorded for a collection.
	ErrProgressNotFound = errors.Wrap(errors.ErrNotFound, "rotation progress not found")
)
