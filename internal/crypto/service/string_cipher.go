package service

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
)

// StringCipherService implements StringCipher with AES-256-CBC.
//
// Decrypt is fail-soft: any failure (malformed envelope, unknown key version,
// wrong key, padding error) yields ("", false) and callers cannot tell those
// cases apart. CBC under a wrong key may also "succeed" with garbage, so a
// successful Decrypt with a mismatched record identifier is not guaranteed to
// be detected.
type StringCipherService struct {
	ring          *cryptoDomain.KeyRing
	deriver       KeyDeriver
	hasher        HashService
	legacyVersion int
	pepper        []byte
	secureHash    bool
}

// StringCipherOption configures a StringCipherService.
type StringCipherOption func(*StringCipherService)

// WithPepper sets a separate secret for keyed hashing, independent from the master key.
func WithPepper(pepper string) StringCipherOption {
	return func(s *StringCipherService) {
		if pepper != "" {
			s.pepper = []byte(pepper)
		}
	}
}

// WithSecureHash switches Hash from plain SHA-256 to HMAC-SHA256 under a
// hashing-purpose key derived from the pepper, or from the master key when no
// pepper is set.
func WithSecureHash(enabled bool) StringCipherOption {
	return func(s *StringCipherService) {
		s.secureHash = enabled
	}
}

// WithLegacyKeyVersion sets the key version assumed for payloads that carry no
// version tag. It defaults to the ring's current version.
func WithLegacyKeyVersion(version int) StringCipherOption {
	return func(s *StringCipherService) {
		if version > 0 {
			s.legacyVersion = version
		}
	}
}

// WithStringKeyDeriver replaces the default HKDF key deriver.
func WithStringKeyDeriver(deriver KeyDeriver) StringCipherOption {
	return func(s *StringCipherService) {
		s.deriver = deriver
	}
}

// NewStringCipher creates a string engine backed by ring.
func NewStringCipher(ring *cryptoDomain.KeyRing, opts ...StringCipherOption) (*StringCipherService, error) {
	if ring == nil || ring.Current() == nil {
		return nil, cryptoDomain.ErrMasterKeyNotSet
	}

	s := &StringCipherService{
		ring:          ring,
		deriver:       NewKeyDeriver(),
		legacyVersion: ring.CurrentVersion(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.secureHash {
		secret := s.pepper
		if secret == nil {
			secret = ring.Current().Key
		}
		s.hasher = NewHMACHashService(s.deriver.DerivePurposeKey(secret, cryptoDomain.PurposeHashing))
	} else {
		s.hasher = NewSHA256HashService()
	}

	return s, nil
}

// CurrentKeyVersion returns the version tag written into new payloads.
func (s *StringCipherService) CurrentKeyVersion() int {
	return s.ring.CurrentVersion()
}

// Encrypt seals plaintext for recordID. Encrypting the same input twice yields
// different payloads because every call draws a new IV.
func (s *StringCipherService) Encrypt(plaintext, recordID string) (string, error) {
	master := s.ring.Current()
	key := s.deriver.DeriveKey(master.Key, cryptoDomain.PurposeEncryption, recordID)
	defer cryptoDomain.Zero(key)

	cbc, err := NewAESCBC(key)
	if err != nil {
		return "", err
	}

	ciphertext, iv, err := cbc.Encrypt([]byte(plaintext))
	if err != nil {
		return "", err
	}

	doc, err := json.Marshal(cryptoDomain.StringPayload{
		IV:         iv,
		Ciphertext: ciphertext,
		KeyVersion: master.Version,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}

	return base64.StdEncoding.EncodeToString(doc), nil
}

// Decrypt opens payload for recordID. It returns ("", false) for an empty
// payload and for every failure.
func (s *StringCipherService) Decrypt(payload, recordID string) (string, bool) {
	if payload == "" {
		return "", false
	}

	p, err := parseStringPayload(payload)
	if err != nil {
		return "", false
	}

	master, ok := s.ring.Get(s.versionOf(p))
	if !ok {
		return "", false
	}

	key := s.deriver.DeriveKey(master.Key, cryptoDomain.PurposeEncryption, recordID)
	defer cryptoDomain.Zero(key)

	cbc, err := NewAESCBC(key)
	if err != nil {
		return "", false
	}

	plaintext, err := cbc.Decrypt(p.Ciphertext, p.IV)
	if err != nil {
		return "", false
	}

	return string(plaintext), true
}

// PayloadKeyVersion returns the version a payload is attributed to: its tag, or
// the legacy version when untagged. The boolean is false for malformed input.
func (s *StringCipherService) PayloadKeyVersion(payload string) (int, bool) {
	if payload == "" {
		return 0, false
	}
	p, err := parseStringPayload(payload)
	if err != nil {
		return 0, false
	}
	return s.versionOf(p), true
}

// Hash returns the normalized searchable hash of value.
func (s *StringCipherService) Hash(value string) string {
	return s.hasher.Hash(value)
}

// VerifyHash reports in constant time whether value hashes to hash.
func (s *StringCipherService) VerifyHash(value, hash string) bool {
	return s.hasher.VerifyHash(value, hash)
}

func (s *StringCipherService) versionOf(p *cryptoDomain.StringPayload) int {
	if p.KeyVersion == 0 {
		return s.legacyVersion
	}
	return p.KeyVersion
}

var errMalformedStringPayload = errors.New("malformed string payload")

func parseStringPayload(payload string) (*cryptoDomain.StringPayload, error) {
	doc, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errMalformedStringPayload
	}

	var p cryptoDomain.StringPayload
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, errMalformedStringPayload
	}
	if len(p.IV) != cryptoDomain.CBCIVSize || len(p.Ciphertext) == 0 {
		return nil, errMalformedStringPayload
	}
	return &p, nil
}

// GenerateKey returns 32 cryptographically random bytes, hex-encoded, suitable
// as a master key.
func GenerateKey() (string, error) {
	key := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	defer cryptoDomain.Zero(key)
	return hex.EncodeToString(key), nil
}
