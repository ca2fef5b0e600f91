package domain

import (
	"github.com/allisson/fieldcrypt/internal/errors"
)

// Configuration errors. These surface at construction time and are never
// produced by encrypt or decrypt calls.
var (
	// ErrInvalidMasterKey indicates a master key is not exactly 64 hex characters.
	ErrInvalidMasterKey = errors.Wrap(errors.ErrInvalidInput, "invalid master key")

	// ErrInvalidKeyVersion indicates a key version outside 1..255.
	ErrInvalidKeyVersion = errors.Wrap(errors.ErrInvalidInput, "invalid key version")

	// ErrDuplicateKeyVersion indicates a previous key reuses the current version number.
	ErrDuplicateKeyVersion = errors.Wrap(errors.ErrConflict, "duplicate key version")

	// ErrMasterKeyNotSet indicates the current master key is missing from configuration.
	ErrMasterKeyNotSet = errors.Wrap(errors.ErrInvalidInput, "master key not set")

	// ErrInvalidPreviousKeysFormat indicates PREVIOUS_KEYS is not a "version:key" list.
	ErrInvalidPreviousKeysFormat = errors.Wrap(errors.ErrInvalidInput, "invalid previous keys format")

	// ErrKMSUnwrapFailed indicates a KMS-wrapped master key could not be decrypted.
	ErrKMSUnwrapFailed = errors.Wrap(errors.ErrInvalidInput, "kms unwrap failed")
)

// Binary payload errors. Each kind implies a different remediation and they
// must stay distinguishable with errors.Is.
var (
	// ErrInvalidPayload indicates a truncated or structurally corrupt envelope.
	ErrInvalidPayload = errors.Wrap(errors.ErrInvalidInput, "invalid payload")

	// ErrUnsupportedFormatVersion indicates a well-formed envelope with an unknown format version.
	ErrUnsupportedFormatVersion = errors.Wrap(errors.ErrUnsupported, "unsupported payload format version")

	// ErrUnknownKeyVersion indicates the payload was sealed with a key version that is not configured.
	ErrUnknownKeyVersion = errors.Wrap(errors.ErrNotFound, "unknown key version")

	// ErrAuthenticationFailed indicates the GCM tag did not verify: wrong record identifier,
	// wrong key or tampered data.
	ErrAuthenticationFailed = errors.Wrap(errors.ErrIntegrity, "authentication failed")

	// ErrDecompressionFailed indicates authenticated content could not be gunzipped.
	ErrDecompressionFailed = errors.Wrap(errors.ErrIntegrity, "decompression failed")

	// ErrSizeLimitExceeded indicates the plaintext is larger than the allowed size.
	ErrSizeLimitExceeded = errors.Wrap(errors.ErrInvalidInput, "size limit exceeded")

	// ErrMetadataTooLarge indicates the metadata JSON does not fit the 16-bit length field.
	ErrMetadataTooLarge = errors.Wrap(errors.ErrInvalidInput, "metadata too large")
)
