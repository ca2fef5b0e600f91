package service

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeForHash(t *testing.T) {
	assert.Equal(t, "user@example.com", NormalizeForHash("  User@Example.COM\t\n"))
	assert.Equal(t, "", NormalizeForHash("   "))
}

func TestSHA256HashService(t *testing.T) {
	h := NewSHA256HashService()

	sum := sha256.Sum256([]byte("user@example.com"))
	assert.Equal(t, hex.EncodeToString(sum[:]), h.Hash(" USER@example.com "))
	assert.True(t, h.VerifyHash("user@example.com", hex.EncodeToString(sum[:])))
	assert.False(t, h.VerifyHash("user@example.com", "deadbeef"))
}

func TestHMACHashService(t *testing.T) {
	a := NewHMACHashService([]byte("key-a"))
	b := NewHMACHashService([]byte("key-b"))

	assert.Len(t, a.Hash("value"), 64)
	assert.Equal(t, a.Hash("Value "), a.Hash("value"))
	assert.NotEqual(t, a.Hash("value"), b.Hash("value"))
	assert.True(t, a.VerifyHash("VALUE", a.Hash("value")))
	assert.False(t, b.VerifyHash("value", a.Hash("value")))
}

func TestHashEquals(t *testing.T) {
	assert.True(t, HashEquals("abc", "abc"))
	assert.False(t, HashEquals("abc", "abd"))
	assert.False(t, HashEquals("abc", "abcd"))
}
