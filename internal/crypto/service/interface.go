// Package service implements the field encryption engines.
//
// StringCipherService seals UTF-8 text into a base64(JSON) AES-256-CBC envelope
// and computes normalized searchable hashes. BinaryCipherService seals arbitrary
// bytes into the versioned "CEFF" AES-256-GCM envelope with optional gzip
// compression and multi-version decryption. Both derive per-record keys from
// the master keys in a KeyRing through a KeyDeriver and hold no mutable state.
package service

import (
	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
)

// KeyDeriver derives per-purpose and per-record keys from a master secret.
type KeyDeriver interface {
	// DerivePurposeKey runs HKDF-SHA256 with the purpose label as info.
	DerivePurposeKey(masterKey []byte, purpose string) []byte

	// DeriveRecordKey runs HMAC-SHA256 keyed with purposeKey over recordID.
	DeriveRecordKey(purposeKey []byte, recordID string) []byte

	// DeriveKey composes DerivePurposeKey and DeriveRecordKey.
	DeriveKey(masterKey []byte, purpose, recordID string) []byte
}

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// Compressor compresses and decompresses binary content.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte, limit int) ([]byte, error)
}

// StringCipher is the fail-soft text engine.
type StringCipher interface {
	// Encrypt seals plaintext for recordID under the current key.
	Encrypt(plaintext, recordID string) (string, error)

	// Decrypt opens a payload. The boolean is false for empty or unrecoverable input.
	Decrypt(payload, recordID string) (string, bool)

	// PayloadKeyVersion returns the key version a payload is attributed to.
	PayloadKeyVersion(payload string) (int, bool)

	// CurrentKeyVersion returns the version used for new payloads.
	CurrentKeyVersion() int

	// Hash returns the normalized searchable hash of value.
	Hash(value string) string

	// VerifyHash reports in constant time whether value hashes to hash.
	VerifyHash(value, hash string) bool
}

// BinaryCipher is the fail-hard binary engine.
type BinaryCipher interface {
	// Encrypt seals data for recordID under the current key.
	Encrypt(data []byte, recordID string, metadata cryptoDomain.Metadata, opts ...EncryptOption) ([]byte, error)

	// Decrypt opens a payload with the key matching its embedded version.
	Decrypt(payload []byte, recordID string) ([]byte, error)

	// ExtractMetadata returns the plaintext header metadata without decrypting.
	ExtractMetadata(payload []byte) (cryptoDomain.Metadata, error)

	// ReEncrypt decrypts with the payload's key and seals again under the current key.
	// A nil compress preserves the original compression flag.
	ReEncrypt(payload []byte, recordID string, compress *bool) ([]byte, error)

	// PayloadKeyVersion returns the key version embedded in the payload header.
	PayloadKeyVersion(payload []byte) (int, error)

	// IsCurrentKeyVersion reports whether the payload is sealed under the current key.
	IsCurrentKeyVersion(payload []byte) (bool, error)

	// CurrentKeyVersion returns the version used for new payloads.
	CurrentKeyVersion() int
}
