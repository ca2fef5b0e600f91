package service

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
)

func newTestBinaryCipher(t *testing.T, opts ...BinaryCipherOption) *BinaryCipherService {
	t.Helper()
	b, err := NewBinaryCipher(newTestRing(t, scenarioMasterKey, 1, nil), opts...)
	require.NoError(t, err)
	return b
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func TestNewBinaryCipher(t *testing.T) {
	t.Run("nil ring", func(t *testing.T) {
		_, err := NewBinaryCipher(nil)
		assert.ErrorIs(t, err, cryptoDomain.ErrMasterKeyNotSet)
	})

	t.Run("default max size above hard ceiling", func(t *testing.T) {
		_, err := NewBinaryCipher(
			newTestRing(t, scenarioMasterKey, 1, nil),
			WithDefaultMaxSize(cryptoDomain.HardMaxSize+1),
		)
		assert.ErrorIs(t, err, cryptoDomain.ErrSizeLimitExceeded)
	})
}

func TestBinaryCipherService_EncryptDecrypt(t *testing.T) {
	b := newTestBinaryCipher(t)

	t.Run("round trip", func(t *testing.T) {
		for _, data := range [][]byte{{}, []byte("x"), randomBytes(t, 1024)} {
			payload, err := b.Encrypt(data, "entity-42", nil)
			require.NoError(t, err)

			out, err := b.Decrypt(payload, "entity-42")
			require.NoError(t, err)
			assert.Equal(t, len(data), len(out))
			assert.True(t, bytes.Equal(data, out))
		}
	})

	t.Run("round trip with compression", func(t *testing.T) {
		data := bytes.Repeat([]byte("highly compressible content "), 500)

		payload, err := b.Encrypt(data, "entity-42", nil, WithCompression(true))
		require.NoError(t, err)
		assert.Less(t, len(payload), len(data))

		h, _, err := ParseHeader(payload)
		require.NoError(t, err)
		assert.True(t, h.Compressed())

		out, err := b.Decrypt(payload, "entity-42")
		require.NoError(t, err)
		assert.Equal(t, data, out)
	})

	t.Run("non-deterministic", func(t *testing.T) {
		a, err := b.Encrypt([]byte("same"), "entity-42", nil)
		require.NoError(t, err)
		c, err := b.Encrypt([]byte("same"), "entity-42", nil)
		require.NoError(t, err)
		assert.NotEqual(t, a, c)
	})

	t.Run("payload layout", func(t *testing.T) {
		payload, err := b.Encrypt([]byte("hello"), "entity-42", nil)
		require.NoError(t, err)

		assert.Equal(t, "CEFF", string(payload[:4]))
		assert.Equal(t, byte(1), payload[4])
		assert.Equal(t, byte(1), payload[5])
		assert.Equal(t, byte(0), payload[6])
		expected := cryptoDomain.FixedHeaderSize + len("{}") + cryptoDomain.GCMIVSize + cryptoDomain.GCMTagSize + len("hello")
		assert.Len(t, payload, expected)
	})

	t.Run("wrong record identifier", func(t *testing.T) {
		payload, err := b.Encrypt([]byte("secret"), "entity-42", nil)
		require.NoError(t, err)

		_, err = b.Decrypt(payload, "entity-43")
		assert.ErrorIs(t, err, cryptoDomain.ErrAuthenticationFailed)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		payload, err := b.Encrypt([]byte("secret"), "entity-42", nil)
		require.NoError(t, err)
		payload[len(payload)-1] ^= 0x01

		_, err = b.Decrypt(payload, "entity-42")
		assert.ErrorIs(t, err, cryptoDomain.ErrAuthenticationFailed)
	})

	t.Run("tampered tag", func(t *testing.T) {
		payload, err := b.Encrypt([]byte("secret"), "entity-42", nil)
		require.NoError(t, err)
		payload[cryptoDomain.FixedHeaderSize+2+cryptoDomain.GCMIVSize] ^= 0x01

		_, err = b.Decrypt(payload, "entity-42")
		assert.ErrorIs(t, err, cryptoDomain.ErrAuthenticationFailed)
	})

	t.Run("unknown key version", func(t *testing.T) {
		payload, err := b.Encrypt([]byte("secret"), "entity-42", nil)
		require.NoError(t, err)
		payload[5] = 9

		_, err = b.Decrypt(payload, "entity-42")
		assert.ErrorIs(t, err, cryptoDomain.ErrUnknownKeyVersion)
	})

	t.Run("invalid payload", func(t *testing.T) {
		_, err := b.Decrypt([]byte("not a payload"), "entity-42")
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidPayload)
	})

	t.Run("decompression failure", func(t *testing.T) {
		ring := newTestRing(t, scenarioMasterKey, 1, nil)
		key := NewKeyDeriver().DeriveKey(ring.Current().Key, cryptoDomain.PurposeEncryption, "entity-42")
		gcm, err := NewAESGCM(key)
		require.NoError(t, err)

		sealed, iv, err := gcm.Encrypt([]byte("not gzip data"), nil)
		require.NoError(t, err)
		split := len(sealed) - cryptoDomain.GCMTagSize
		payload := writeEnvelope(1, cryptoDomain.FlagCompressed, []byte("{}"), iv, sealed[split:], sealed[:split])

		_, err = b.Decrypt(payload, "entity-42")
		assert.ErrorIs(t, err, cryptoDomain.ErrDecompressionFailed)
	})
}

func TestBinaryCipherService_CompressionNeverExpands(t *testing.T) {
	b := newTestBinaryCipher(t)

	data := randomBytes(t, 2048)
	plain, err := b.Encrypt(data, "entity-42", nil, WithCompression(false))
	require.NoError(t, err)
	compressed, err := b.Encrypt(data, "entity-42", nil, WithCompression(true))
	require.NoError(t, err)

	assert.LessOrEqual(t, len(compressed), len(plain))

	h, _, err := ParseHeader(compressed)
	require.NoError(t, err)
	assert.False(t, h.Compressed())

	out, err := b.Decrypt(compressed, "entity-42")
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestBinaryCipherService_DefaultCompression(t *testing.T) {
	b := newTestBinaryCipher(t, WithDefaultCompression(true))
	data := bytes.Repeat([]byte("a"), 4096)

	payload, err := b.Encrypt(data, "entity-42", nil)
	require.NoError(t, err)
	h, _, err := ParseHeader(payload)
	require.NoError(t, err)
	assert.True(t, h.Compressed())

	payload, err = b.Encrypt(data, "entity-42", nil, WithCompression(false))
	require.NoError(t, err)
	h, _, err = ParseHeader(payload)
	require.NoError(t, err)
	assert.False(t, h.Compressed())
}

func TestBinaryCipherService_SizeLimit(t *testing.T) {
	t.Run("checked before key derivation", func(t *testing.T) {
		deriver := newCountingDeriver()
		b := newTestBinaryCipher(t, WithBinaryKeyDeriver(deriver), WithDefaultMaxSize(1024))

		_, err := b.Encrypt(make([]byte, 1025), "entity-42", nil)
		assert.ErrorIs(t, err, cryptoDomain.ErrSizeLimitExceeded)
		assert.Zero(t, deriver.calls.Load())

		_, err = b.Encrypt(make([]byte, 1024), "entity-42", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deriver.calls.Load())
	})

	t.Run("per call limit", func(t *testing.T) {
		b := newTestBinaryCipher(t)

		_, err := b.Encrypt(make([]byte, 11), "entity-42", nil, WithMaxSize(10))
		assert.ErrorIs(t, err, cryptoDomain.ErrSizeLimitExceeded)

		_, err = b.Encrypt(make([]byte, 10), "entity-42", nil, WithMaxSize(10))
		assert.NoError(t, err)
	})

	t.Run("default limit", func(t *testing.T) {
		b := newTestBinaryCipher(t)

		_, err := b.Encrypt(make([]byte, cryptoDomain.DefaultMaxSize+1), "entity-42", nil)
		assert.ErrorIs(t, err, cryptoDomain.ErrSizeLimitExceeded)
	})

	t.Run("hard ceiling clamps per call limit", func(t *testing.T) {
		deriver := newCountingDeriver()
		b := newTestBinaryCipher(t, WithBinaryKeyDeriver(deriver))

		_, err := b.Encrypt(
			make([]byte, cryptoDomain.HardMaxSize+1),
			"entity-42",
			nil,
			WithMaxSize(cryptoDomain.HardMaxSize*2),
		)
		assert.ErrorIs(t, err, cryptoDomain.ErrSizeLimitExceeded)
		assert.Zero(t, deriver.calls.Load())
	})
}

func TestBinaryCipherService_Metadata(t *testing.T) {
	b := newTestBinaryCipher(t)
	metadata := cryptoDomain.Metadata{
		cryptoDomain.MetadataMimeType:     "image/png",
		cryptoDomain.MetadataOriginalName: "avatar.png",
		cryptoDomain.MetadataOriginalSize: 3,
	}

	payload, err := b.Encrypt([]byte{1, 2, 3}, "entity-42", metadata)
	require.NoError(t, err)

	t.Run("extract without decryption", func(t *testing.T) {
		other, err := NewBinaryCipher(newTestRing(t, newTestKey(t), 5, nil))
		require.NoError(t, err)

		got, err := other.ExtractMetadata(payload)
		require.NoError(t, err)
		assert.Equal(t, "image/png", got[cryptoDomain.MetadataMimeType])
		assert.Equal(t, "avatar.png", got[cryptoDomain.MetadataOriginalName])
		assert.Equal(t, json.Number("3"), got[cryptoDomain.MetadataOriginalSize])
	})

	t.Run("nil metadata extracts as empty", func(t *testing.T) {
		payload, err := b.Encrypt([]byte{1}, "entity-42", nil)
		require.NoError(t, err)

		got, err := b.ExtractMetadata(payload)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("too large", func(t *testing.T) {
		big := cryptoDomain.Metadata{"note": string(bytes.Repeat([]byte("x"), cryptoDomain.MaxMetadataSize))}
		_, err := b.Encrypt([]byte{1}, "entity-42", big)
		assert.ErrorIs(t, err, cryptoDomain.ErrMetadataTooLarge)
	})

	t.Run("invalid payload", func(t *testing.T) {
		_, err := b.ExtractMetadata([]byte("XXXX"))
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidPayload)
	})
}

func TestBinaryCipherService_MultiVersion(t *testing.T) {
	key1 := newTestKey(t)
	key2 := newTestKey(t)
	key3 := newTestKey(t)

	v1, err := NewBinaryCipher(newTestRing(t, key1, 1, nil))
	require.NoError(t, err)
	v2, err := NewBinaryCipher(newTestRing(t, key2, 2, nil))
	require.NoError(t, err)

	data := bytes.Repeat([]byte("document body "), 200)
	metadata := cryptoDomain.Metadata{cryptoDomain.MetadataMimeType: "text/plain"}

	payload1, err := v1.Encrypt(data, "entity-42", metadata, WithCompression(true))
	require.NoError(t, err)
	payload2, err := v2.Encrypt(data, "entity-42", metadata)
	require.NoError(t, err)

	v3, err := NewBinaryCipher(newTestRing(t, key3, 3, map[int]string{1: key1, 2: key2}))
	require.NoError(t, err)

	for _, payload := range [][]byte{payload1, payload2} {
		out, err := v3.Decrypt(payload, "entity-42")
		require.NoError(t, err)
		assert.Equal(t, data, out)

		current, err := v3.IsCurrentKeyVersion(payload)
		require.NoError(t, err)
		assert.False(t, current)
	}

	t.Run("re-encrypt moves to current version", func(t *testing.T) {
		rotated, err := v3.ReEncrypt(payload1, "entity-42", nil)
		require.NoError(t, err)

		version, err := v3.PayloadKeyVersion(rotated)
		require.NoError(t, err)
		assert.Equal(t, 3, version)

		current, err := v3.IsCurrentKeyVersion(rotated)
		require.NoError(t, err)
		assert.True(t, current)

		h, _, err := ParseHeader(rotated)
		require.NoError(t, err)
		assert.True(t, h.Compressed())
		assert.Equal(t, "text/plain", h.Metadata[cryptoDomain.MetadataMimeType])

		only3, err := NewBinaryCipher(newTestRing(t, key3, 3, nil))
		require.NoError(t, err)
		out, err := only3.Decrypt(rotated, "entity-42")
		require.NoError(t, err)
		assert.Equal(t, data, out)

		_, err = only3.Decrypt(payload1, "entity-42")
		assert.ErrorIs(t, err, cryptoDomain.ErrUnknownKeyVersion)
	})

	t.Run("re-encrypt can change compression", func(t *testing.T) {
		off := false
		rotated, err := v3.ReEncrypt(payload1, "entity-42", &off)
		require.NoError(t, err)

		h, _, err := ParseHeader(rotated)
		require.NoError(t, err)
		assert.False(t, h.Compressed())

		out, err := v3.Decrypt(rotated, "entity-42")
		require.NoError(t, err)
		assert.Equal(t, data, out)
	})

	t.Run("re-encrypt with wrong record fails", func(t *testing.T) {
		_, err := v3.ReEncrypt(payload2, "entity-43", nil)
		assert.ErrorIs(t, err, cryptoDomain.ErrAuthenticationFailed)
	})
}
