package domain

// Purpose labels used as the HKDF info parameter. Keys derived under different
// labels are independent even though they descend from the same master secret.
const (
	// PurposeEncryption derives the key hierarchy used to encrypt field values.
	PurposeEncryption = "fieldcrypt-encryption"

	// PurposeHashing derives the key hierarchy used for keyed searchable hashes.
	PurposeHashing = "fieldcrypt-hashing"
)

// Key material sizes.
const (
	// KeySize is the size in bytes of every master, purpose and record key (AES-256).
	KeySize = 32

	// KeyHexLength is the canonical length of a hex-encoded master key.
	KeyHexLength = KeySize * 2

	// MinKeyVersion is the first valid key version.
	MinKeyVersion = 1

	// MaxKeyVersion is the highest key version representable in a binary payload header.
	MaxKeyVersion = 255
)

// String envelope constants.
const (
	// CBCIVSize is the AES-CBC initialization vector size in bytes.
	CBCIVSize = 16
)

// Binary envelope constants.
//
// Layout: magic(4) | formatVersion(1) | keyVersion(1) | flags(1) | metadataLength(2, BE) |
// metadata(var) | iv(12) | authTag(16) | ciphertext(var)
const (
	// PayloadMagic is the 4-byte signature at the start of every binary payload.
	PayloadMagic = "CEFF"

	// FormatVersion1 is the only binary format version defined so far.
	FormatVersion1 byte = 0x01

	// FlagCompressed marks content that was gzip-compressed before encryption.
	FlagCompressed byte = 1 << 0

	// GCMIVSize is the AES-GCM nonce size in bytes.
	GCMIVSize = 12

	// GCMTagSize is the AES-GCM authentication tag size in bytes.
	GCMTagSize = 16

	// FixedHeaderSize covers magic, format version, key version, flags and metadata length.
	FixedHeaderSize = 4 + 1 + 1 + 1 + 2

	// MaxMetadataSize is the largest metadata JSON that fits the 16-bit length field.
	MaxMetadataSize = 1<<16 - 1
)

// Binary size policy.
const (
	// DefaultMaxSize is the default plaintext size limit for binary payloads (5 MiB).
	DefaultMaxSize = 5 << 20

	// HardMaxSize is the ceiling no configuration may exceed (50 MiB).
	HardMaxSize = 50 << 20
)
