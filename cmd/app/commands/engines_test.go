package commands

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
)

const testKeyVersion = 2

func newTestRing(t *testing.T) *cryptoDomain.KeyRing {
	t.Helper()
	ring, err := cryptoDomain.NewKeyRing(strings.Repeat("5e", 32), testKeyVersion, nil)
	require.NoError(t, err)
	t.Cleanup(ring.Close)
	return ring
}

func newStringCipher(t *testing.T) *cryptoService.StringCipherService {
	t.Helper()
	stringCipher, err := cryptoService.NewStringCipher(newTestRing(t))
	require.NoError(t, err)
	return stringCipher
}

func newBinaryCipher(t *testing.T) *cryptoService.BinaryCipherService {
	t.Helper()
	binaryCipher, err := cryptoService.NewBinaryCipher(newTestRing(t))
	require.NoError(t, err)
	return binaryCipher
}
