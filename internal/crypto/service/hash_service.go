package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// HashService computes deterministic hashes for equality lookups on encrypted fields.
type HashService interface {
	Hash(value string) string
	VerifyHash(value, hash string) bool
}

// NormalizeForHash applies the normalization every searchable hash uses:
// surrounding whitespace is trimmed and the value is lowercased. Callers that
// build lookup hashes elsewhere must apply the same normalization.
func NormalizeForHash(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

type sha256HashService struct{}

// NewSHA256HashService creates a hash service computing plain SHA-256 over the
// normalized value. Hashes are stable across key rotation.
func NewSHA256HashService() HashService {
	return &sha256HashService{}
}

// Hash computes the SHA-256 hash of the normalized value and returns it as a hex string.
func (s *sha256HashService) Hash(value string) string {
	sum := sha256.Sum256([]byte(NormalizeForHash(value)))
	return hex.EncodeToString(sum[:])
}

// VerifyHash compares the hash of value with hash in constant time.
func (s *sha256HashService) VerifyHash(value, hash string) bool {
	return HashEquals(s.Hash(value), hash)
}

type hmacHashService struct {
	key []byte
}

// NewHMACHashService creates a hash service computing HMAC-SHA256 over the
// normalized value. The key must be a hashing-purpose key; changing it
// invalidates every stored hash.
func NewHMACHashService(key []byte) HashService {
	return &hmacHashService{key: key}
}

// Hash computes HMAC-SHA256 of the normalized value and returns it as a hex string.
func (s *hmacHashService) Hash(value string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(NormalizeForHash(value)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHash compares the hash of value with hash in constant time.
func (s *hmacHashService) VerifyHash(value, hash string) bool {
	return HashEquals(s.Hash(value), hash)
}

// HashEquals compares two hex hashes in constant time.
func HashEquals(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
