package domain

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/secrets"
	_ "gocloud.dev/secrets/localsecrets"
)

func hexKey(b byte) string {
	return strings.Repeat(hex.EncodeToString([]byte{b}), KeySize)
}

func TestParseMasterKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid lowercase", input: hexKey(0xab)},
		{name: "valid uppercase", input: strings.ToUpper(hexKey(0xab))},
		{name: "too short", input: hexKey(0xab)[:62], wantErr: true},
		{name: "too long", input: hexKey(0xab) + "00", wantErr: true},
		{name: "not hex", input: strings.Repeat("zz", KeySize), wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ParseMasterKey(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMasterKey)
				assert.Nil(t, key)
				return
			}
			require.NoError(t, err)
			assert.Len(t, key, KeySize)
		})
	}
}

func TestNewKeyRing(t *testing.T) {
	t.Run("current and previous keys", func(t *testing.T) {
		ring, err := NewKeyRing(hexKey(3), 3, map[int]string{1: hexKey(1), 2: hexKey(2)})
		require.NoError(t, err)

		assert.Equal(t, 3, ring.CurrentVersion())
		assert.Equal(t, 3, ring.Current().Version)
		assert.Equal(t, []int{1, 2, 3}, ring.Versions())

		key, ok := ring.Get(1)
		require.True(t, ok)
		assert.Equal(t, 1, key.Version)
		assert.Equal(t, byte(1), key.Key[0])

		_, ok = ring.Get(4)
		assert.False(t, ok)
	})

	t.Run("missing current key", func(t *testing.T) {
		_, err := NewKeyRing("", 1, nil)
		assert.ErrorIs(t, err, ErrMasterKeyNotSet)
	})

	t.Run("invalid current key", func(t *testing.T) {
		_, err := NewKeyRing("abc", 1, nil)
		assert.ErrorIs(t, err, ErrInvalidMasterKey)
	})

	t.Run("invalid previous key", func(t *testing.T) {
		_, err := NewKeyRing(hexKey(2), 2, map[int]string{1: "short"})
		assert.ErrorIs(t, err, ErrInvalidMasterKey)
	})

	t.Run("version out of range", func(t *testing.T) {
		_, err := NewKeyRing(hexKey(1), 0, nil)
		assert.ErrorIs(t, err, ErrInvalidKeyVersion)

		_, err = NewKeyRing(hexKey(1), 256, nil)
		assert.ErrorIs(t, err, ErrInvalidKeyVersion)

		_, err = NewKeyRing(hexKey(1), 1, map[int]string{300: hexKey(2)})
		assert.ErrorIs(t, err, ErrInvalidKeyVersion)
	})

	t.Run("previous reuses current version", func(t *testing.T) {
		_, err := NewKeyRing(hexKey(1), 1, map[int]string{1: hexKey(2)})
		assert.ErrorIs(t, err, ErrDuplicateKeyVersion)
	})
}

func TestKeyRing_Close(t *testing.T) {
	ring, err := NewKeyRing(hexKey(7), 2, map[int]string{1: hexKey(9)})
	require.NoError(t, err)

	current := ring.Current().Key
	ring.Close()

	assert.Equal(t, make([]byte, KeySize), current)
	assert.Equal(t, 0, ring.CurrentVersion())
	assert.Empty(t, ring.Versions())
}

func TestLoadKeyRing(t *testing.T) {
	ctx := context.Background()

	t.Run("hex keys", func(t *testing.T) {
		ring, err := LoadKeyRing(ctx, KeyRingConfig{
			MasterKey:    hexKey(3),
			KeyVersion:   3,
			PreviousKeys: "1:" + hexKey(1) + ", 2:" + hexKey(2),
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, ring.Versions())
	})

	t.Run("no previous keys", func(t *testing.T) {
		ring, err := LoadKeyRing(ctx, KeyRingConfig{MasterKey: hexKey(1), KeyVersion: 1}, nil)
		require.NoError(t, err)
		assert.Equal(t, []int{1}, ring.Versions())
	})

	t.Run("master key not set", func(t *testing.T) {
		_, err := LoadKeyRing(ctx, KeyRingConfig{KeyVersion: 1}, nil)
		assert.ErrorIs(t, err, ErrMasterKeyNotSet)
	})

	tests := []struct {
		name     string
		previous string
		wantErr  error
	}{
		{name: "missing separator", previous: "1" + hexKey(1), wantErr: ErrInvalidPreviousKeysFormat},
		{name: "non numeric version", previous: "one:" + hexKey(1), wantErr: ErrInvalidPreviousKeysFormat},
		{name: "empty key", previous: "1:", wantErr: ErrInvalidPreviousKeysFormat},
		{name: "duplicate version", previous: "1:" + hexKey(1) + ",1:" + hexKey(2), wantErr: ErrDuplicateKeyVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadKeyRing(ctx, KeyRingConfig{
				MasterKey:    hexKey(5),
				KeyVersion:   5,
				PreviousKeys: tt.previous,
			}, nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadKeyRing_KMS(t *testing.T) {
	ctx := context.Background()

	kmsKey := make([]byte, 32)
	_, err := rand.Read(kmsKey)
	require.NoError(t, err)

	keeper, err := secrets.OpenKeeper(ctx, "base64key://"+base64.URLEncoding.EncodeToString(kmsKey))
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, keeper.Close())
	}()

	wrap := func(raw []byte) string {
		ciphertext, err := keeper.Encrypt(ctx, raw)
		require.NoError(t, err)
		return base64.StdEncoding.EncodeToString(ciphertext)
	}

	current := make([]byte, KeySize)
	previous := make([]byte, KeySize)
	_, _ = rand.Read(current)
	_, _ = rand.Read(previous)

	t.Run("unwraps current and previous keys", func(t *testing.T) {
		ring, err := LoadKeyRing(ctx, KeyRingConfig{
			MasterKey:    wrap(current),
			KeyVersion:   2,
			PreviousKeys: "1:" + wrap(previous),
		}, keeper)
		require.NoError(t, err)

		assert.Equal(t, current, ring.Current().Key)
		old, ok := ring.Get(1)
		require.True(t, ok)
		assert.Equal(t, previous, old.Key)
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, err := LoadKeyRing(ctx, KeyRingConfig{MasterKey: "%%%", KeyVersion: 1}, keeper)
		assert.ErrorIs(t, err, ErrKMSUnwrapFailed)
	})

	t.Run("ciphertext from another keeper", func(t *testing.T) {
		_, err := LoadKeyRing(ctx, KeyRingConfig{
			MasterKey:  base64.StdEncoding.EncodeToString([]byte("not a kms ciphertext at all")),
			KeyVersion: 1,
		}, keeper)
		assert.ErrorIs(t, err, ErrKMSUnwrapFailed)
	})

	t.Run("unwrapped key has wrong size", func(t *testing.T) {
		_, err := LoadKeyRing(ctx, KeyRingConfig{MasterKey: wrap([]byte("short")), KeyVersion: 1}, keeper)
		assert.ErrorIs(t, err, ErrInvalidMasterKey)
	})
}

func TestZero(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{name: "nil", buf: nil},
		{name: "empty", buf: []byte{}},
		{name: "key-sized", buf: []byte(strings.Repeat("k", KeySize))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() { Zero(tt.buf) })
			for _, b := range tt.buf {
				assert.Zero(t, b)
			}
		})
	}
}
