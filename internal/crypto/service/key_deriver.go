package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
)

// HKDFKeyDeriver derives purpose keys with HKDF-SHA256 and record keys with HMAC-SHA256.
//
// Derivation is deterministic: identical (masterKey, purpose, recordID) always
// yields the identical key, which is what makes decryption possible without
// storing per-record keys. The type has no state and is safe for concurrent use.
type HKDFKeyDeriver struct{}

// NewKeyDeriver creates a new HKDFKeyDeriver.
func NewKeyDeriver() *HKDFKeyDeriver {
	return &HKDFKeyDeriver{}
}

// DerivePurposeKey expands masterKey into a 32-byte key bound to the purpose label.
// The label is the HKDF info parameter and no salt is used.
func (d *HKDFKeyDeriver) DerivePurposeKey(masterKey []byte, purpose string) []byte {
	key := make([]byte, cryptoDomain.KeySize)
	reader := hkdf.New(sha256.New, masterKey, nil, []byte(purpose))
	// HKDF-SHA256 can emit up to 255*32 bytes; reading 32 never fails.
	_, _ = io.ReadFull(reader, key)
	return key
}

// DeriveRecordKey computes HMAC-SHA256(purposeKey, recordID).
func (d *HKDFKeyDeriver) DeriveRecordKey(purposeKey []byte, recordID string) []byte {
	mac := hmac.New(sha256.New, purposeKey)
	mac.Write([]byte(recordID))
	return mac.Sum(nil)
}

// DeriveKey derives the record key for recordID under the given purpose in one step.
// The intermediate purpose key is wiped before returning.
func (d *HKDFKeyDeriver) DeriveKey(masterKey []byte, purpose, recordID string) []byte {
	purposeKey := d.DerivePurposeKey(masterKey, purpose)
	defer cryptoDomain.Zero(purposeKey)
	return d.DeriveRecordKey(purposeKey, recordID)
}
