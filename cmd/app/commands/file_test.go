package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
)

func TestRunEncryptDecryptFile(t *testing.T) {
	binaryCipher := newBinaryCipher(t)
	logger := discardLogger()
	dir := t.TempDir()

	plaintext := []byte(strings.Repeat("quarterly report line\n", 200))
	input := filepath.Join(dir, "report.txt")
	sealed := filepath.Join(dir, "report.ceff")
	output := filepath.Join(dir, "report.out")
	require.NoError(t, os.WriteFile(input, plaintext, 0o600))

	t.Run("success-round-trip", func(t *testing.T) {
		compress := true
		err := RunEncryptFile(binaryCipher, logger, input, sealed, EncryptFileOptions{
			RecordID: "doc-7",
			Metadata: `{"mimeType":"text/plain","originalName":"report.txt"}`,
			Compress: &compress,
		})
		require.NoError(t, err)

		payload, err := os.ReadFile(sealed)
		require.NoError(t, err)
		require.Equal(t, cryptoDomain.PayloadMagic, string(payload[:4]))
		require.Less(t, len(payload), len(plaintext))

		require.NoError(t, RunDecryptFile(binaryCipher, logger, sealed, output, "doc-7"))
		decrypted, err := os.ReadFile(output)
		require.NoError(t, err)
		require.Equal(t, plaintext, decrypted)
	})

	t.Run("wrong-record-id", func(t *testing.T) {
		require.NoError(t, RunEncryptFile(binaryCipher, logger, input, sealed, EncryptFileOptions{RecordID: "doc-7"}))

		err := RunDecryptFile(binaryCipher, logger, sealed, output, "doc-8")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to decrypt file")
	})

	t.Run("size-limit", func(t *testing.T) {
		err := RunEncryptFile(binaryCipher, logger, input, sealed, EncryptFileOptions{
			RecordID: "doc-7",
			MaxSize:  16,
		})
		require.ErrorIs(t, err, cryptoDomain.ErrSizeLimitExceeded)
	})

	t.Run("invalid-metadata", func(t *testing.T) {
		err := RunEncryptFile(binaryCipher, logger, input, sealed, EncryptFileOptions{
			RecordID: "doc-7",
			Metadata: `["not","an","object"]`,
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid metadata JSON")
	})

	t.Run("missing-record-id", func(t *testing.T) {
		require.Error(t, RunEncryptFile(binaryCipher, logger, input, sealed, EncryptFileOptions{}))
		require.Error(t, RunDecryptFile(binaryCipher, logger, sealed, output, ""))
	})

	t.Run("missing-input", func(t *testing.T) {
		err := RunEncryptFile(binaryCipher, logger, filepath.Join(dir, "absent"), sealed, EncryptFileOptions{
			RecordID: "doc-7",
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to read input file")
	})
}

func TestRunInspectPayload(t *testing.T) {
	binaryCipher := newBinaryCipher(t)
	dir := t.TempDir()

	input := filepath.Join(dir, "avatar.png")
	sealed := filepath.Join(dir, "avatar.ceff")
	require.NoError(t, os.WriteFile(input, []byte("png bytes"), 0o600))

	compress := false
	require.NoError(t, RunEncryptFile(binaryCipher, discardLogger(), input, sealed, EncryptFileOptions{
		RecordID: "user-1",
		Metadata: `{"mimeType":"image/png"}`,
		Compress: &compress,
	}))

	t.Run("success-text", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunInspectPayload(&out, sealed, "text"))
		require.Contains(t, out.String(), "Key Version:      2")
		require.Contains(t, out.String(), "Compressed:       false")
		require.Contains(t, out.String(), "mimeType: image/png")
	})

	t.Run("success-json", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, RunInspectPayload(&out, sealed, "json"))

		var result map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		require.Equal(t, float64(testKeyVersion), result["key_version"])
		require.Equal(t, float64(1), result["format_version"])
		require.Equal(t, map[string]any{"mimeType": "image/png"}, result["metadata"])
	})

	t.Run("invalid-payload", func(t *testing.T) {
		require.NoError(t, os.WriteFile(input, []byte("plain text, not a payload"), 0o600))

		err := RunInspectPayload(&bytes.Buffer{}, input, "text")
		require.ErrorIs(t, err, cryptoDomain.ErrInvalidPayload)
	})
}
