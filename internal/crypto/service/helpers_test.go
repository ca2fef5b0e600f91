package service

import (
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
)

// scenarioMasterKey is the 64 hex character key "a1b2c3d4e5f6...a1b2".
var scenarioMasterKey = strings.Repeat("a1b2c3d4e5f6", 5) + "a1b2"

func newTestKey(t *testing.T) string {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	return key
}

func newTestRing(t *testing.T, current string, version int, previous map[int]string) *cryptoDomain.KeyRing {
	t.Helper()
	ring, err := cryptoDomain.NewKeyRing(current, version, previous)
	require.NoError(t, err)
	return ring
}

// countingDeriver wraps a KeyDeriver and counts derivations.
type countingDeriver struct {
	KeyDeriver
	calls atomic.Int64
}

func newCountingDeriver() *countingDeriver {
	return &countingDeriver{KeyDeriver: NewKeyDeriver()}
}

func (c *countingDeriver) DerivePurposeKey(masterKey []byte, purpose string) []byte {
	c.calls.Add(1)
	return c.KeyDeriver.DerivePurposeKey(masterKey, purpose)
}

func (c *countingDeriver) DeriveKey(masterKey []byte, purpose, recordID string) []byte {
	c.calls.Add(1)
	return c.KeyDeriver.DeriveKey(masterKey, purpose, recordID)
}
