package service

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAESCBC(t *testing.T) {
	_, err := NewAESCBC(make([]byte, 16))
	assert.Error(t, err)

	cipher, err := NewAESCBC(make([]byte, 32))
	require.NoError(t, err)
	assert.NotNil(t, cipher)
}

func TestAESCBCCipher_EncryptDecrypt(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	cipher, err := NewAESCBC(key)
	require.NoError(t, err)

	for _, plaintext := range [][]byte{
		{},
		[]byte("a"),
		[]byte("exactly16bytes!!"),
		[]byte("more than a single block of plaintext data"),
	} {
		ciphertext, iv, err := cipher.Encrypt(plaintext)
		require.NoError(t, err)
		assert.Len(t, iv, 16)
		assert.Zero(t, len(ciphertext)%16)
		assert.Greater(t, len(ciphertext), len(plaintext))

		decrypted, err := cipher.Decrypt(ciphertext, iv)
		require.NoError(t, err)
		assert.Equal(t, string(plaintext), string(decrypted))
	}

	t.Run("invalid iv", func(t *testing.T) {
		ciphertext, _, err := cipher.Encrypt([]byte("data"))
		require.NoError(t, err)

		_, err = cipher.Decrypt(ciphertext, []byte("short"))
		assert.Error(t, err)
	})

	t.Run("partial block", func(t *testing.T) {
		_, err := cipher.Decrypt([]byte("not-a-block"), make([]byte, 16))
		assert.Error(t, err)
	})
}

func TestPKCS7(t *testing.T) {
	padded := pkcs7Pad([]byte("abc"), 16)
	assert.Len(t, padded, 16)
	assert.Equal(t, byte(13), padded[15])

	unpadded, err := pkcs7Unpad(padded, 16)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), unpadded)

	full := pkcs7Pad(make([]byte, 16), 16)
	assert.Len(t, full, 32)

	bad := make([]byte, 16)
	_, err = pkcs7Unpad(bad, 16)
	assert.ErrorIs(t, err, errInvalidPadding)

	bad[15] = 17
	_, err = pkcs7Unpad(bad, 16)
	assert.ErrorIs(t, err, errInvalidPadding)

	bad[15] = 2
	bad[14] = 3
	_, err = pkcs7Unpad(bad, 16)
	assert.ErrorIs(t, err, errInvalidPadding)
}
