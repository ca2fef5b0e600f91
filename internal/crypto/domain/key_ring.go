// Package domain defines the key material and payload types shared by the
// string and binary cipher engines.
//
// A KeyRing holds the current master key, tagged with its KeyVersion, and the
// previous master keys that remain available for decryption during rotation.
// It is built once from configuration and never mutated afterwards, so a
// single ring can back any number of engines used concurrently.
package domain

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/awnumar/memguard"
)

// MasterKey is a 256-bit secret tagged with its KeyVersion.
type MasterKey struct {
	Version int
	Key     []byte
}

// KeyRing is the immutable set of master keys known to a process.
type KeyRing struct {
	current int
	keys    map[int]*MasterKey
}

// ParseMasterKey decodes a master key in its canonical form of exactly 64 hex characters.
func ParseMasterKey(hexKey string) ([]byte, error) {
	if len(hexKey) != KeyHexLength {
		return nil, fmt.Errorf("%w: expected %d hex characters, got %d", ErrInvalidMasterKey, KeyHexLength, len(hexKey))
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMasterKey, err)
	}
	return key, nil
}

// NewKeyRing builds a ring from a hex-encoded current key and an optional map of
// previous versions to hex-encoded keys. Every key must be 64 hex characters and
// every version must be in 1..255; the current version may not appear in previous.
func NewKeyRing(currentKey string, currentVersion int, previous map[int]string) (*KeyRing, error) {
	if currentKey == "" {
		return nil, ErrMasterKeyNotSet
	}
	if err := validateVersion(currentVersion); err != nil {
		return nil, err
	}

	ring := &KeyRing{current: currentVersion, keys: make(map[int]*MasterKey, len(previous)+1)}

	key, err := ParseMasterKey(currentKey)
	if err != nil {
		return nil, err
	}
	ring.keys[currentVersion] = &MasterKey{Version: currentVersion, Key: key}

	for version, hexKey := range previous {
		if err := validateVersion(version); err != nil {
			ring.Close()
			return nil, err
		}
		if version == currentVersion {
			ring.Close()
			return nil, fmt.Errorf("%w: %d", ErrDuplicateKeyVersion, version)
		}
		key, err := ParseMasterKey(hexKey)
		if err != nil {
			ring.Close()
			return nil, fmt.Errorf("previous key version %d: %w", version, err)
		}
		ring.keys[version] = &MasterKey{Version: version, Key: key}
	}

	return ring, nil
}

// CurrentVersion returns the KeyVersion used for all new encryptions.
func (r *KeyRing) CurrentVersion() int {
	return r.current
}

// Current returns the current master key.
func (r *KeyRing) Current() *MasterKey {
	return r.keys[r.current]
}

// Get returns the master key for a version, current or previous.
func (r *KeyRing) Get(version int) (*MasterKey, bool) {
	key, ok := r.keys[version]
	return key, ok
}

// Versions returns all configured versions in ascending order.
func (r *KeyRing) Versions() []int {
	versions := make([]int, 0, len(r.keys))
	for v := range r.keys {
		versions = append(versions, v)
	}
	slices.Sort(versions)
	return versions
}

// Close wipes all key material. The ring must not be used afterwards.
func (r *KeyRing) Close() {
	for v, key := range r.keys {
		Zero(key.Key)
		delete(r.keys, v)
	}
	r.current = 0
}

func validateVersion(version int) error {
	if version < MinKeyVersion || version > MaxKeyVersion {
		return fmt.Errorf("%w: %d (must be between %d and %d)", ErrInvalidKeyVersion, version, MinKeyVersion, MaxKeyVersion)
	}
	return nil
}

// KMSKeeper decrypts master keys that are stored wrapped by a KMS.
// *secrets.Keeper from gocloud.dev satisfies this interface.
type KMSKeeper interface {
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// KeyRingConfig is the raw key configuration as read from the environment.
type KeyRingConfig struct {
	// MasterKey is the current key: 64 hex characters, or base64 KMS ciphertext when a keeper is used.
	MasterKey string
	// KeyVersion is the version tag of MasterKey.
	KeyVersion int
	// PreviousKeys is a comma-separated "version:key" list, e.g. "1:ab12...,2:cd34...".
	PreviousKeys string
}

// LoadKeyRing builds a KeyRing from raw configuration.
//
// When keeper is nil every key is expected in canonical hex form. When keeper is
// set every key is a base64 KMS ciphertext that unwraps to 32 raw bytes.
//
// Format example:
//
//	MASTER_KEY="<64 hex chars>"
//	KEY_VERSION=3
//	PREVIOUS_KEYS="1:<64 hex chars>,2:<64 hex chars>"
func LoadKeyRing(ctx context.Context, cfg KeyRingConfig, keeper KMSKeeper) (*KeyRing, error) {
	if cfg.MasterKey == "" {
		return nil, ErrMasterKeyNotSet
	}

	previous, err := parsePreviousKeys(cfg.PreviousKeys)
	if err != nil {
		return nil, err
	}

	current := cfg.MasterKey
	if keeper != nil {
		if current, err = unwrapKey(ctx, keeper, current); err != nil {
			return nil, fmt.Errorf("key version %d: %w", cfg.KeyVersion, err)
		}
		for version, wrapped := range previous {
			unwrapped, err := unwrapKey(ctx, keeper, wrapped)
			if err != nil {
				return nil, fmt.Errorf("previous key version %d: %w", version, err)
			}
			previous[version] = unwrapped
		}
	}

	return NewKeyRing(current, cfg.KeyVersion, previous)
}

func parsePreviousKeys(raw string) (map[int]string, error) {
	previous := make(map[int]string)
	if strings.TrimSpace(raw) == "" {
		return previous, nil
	}

	for part := range strings.SplitSeq(raw, ",") {
		p := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(p) != 2 || p[1] == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPreviousKeysFormat, part)
		}
		version, err := strconv.Atoi(p[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPreviousKeysFormat, part)
		}
		if _, exists := previous[version]; exists {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateKeyVersion, version)
		}
		previous[version] = p[1]
	}

	return previous, nil
}

func unwrapKey(ctx context.Context, keeper KMSKeeper, wrapped string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(wrapped)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64: %v", ErrKMSUnwrapFailed, err)
	}
	raw, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKMSUnwrapFailed, err)
	}
	defer Zero(raw)
	if len(raw) != KeySize {
		return "", fmt.Errorf("%w: unwrapped key must be %d bytes, got %d", ErrInvalidMasterKey, KeySize, len(raw))
	}
	return hex.EncodeToString(raw), nil
}

// Zero wipes b in place. Derived keys and decoded master keys pass through
// here as soon as they go out of scope.
func Zero(b []byte) {
	if len(b) == 0 {
		return
	}
	memguard.WipeBytes(b)
}
