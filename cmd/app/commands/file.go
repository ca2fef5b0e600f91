package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
)

// EncryptFileOptions carries the per-call binary engine settings of encrypt-file.
type EncryptFileOptions struct {
	// RecordID is bound into key derivation and must be supplied again to decrypt.
	RecordID string
	// Metadata is an optional JSON object stored unencrypted in the payload header.
	Metadata string
	// Compress overrides the engine default when non-nil.
	Compress *bool
	// MaxSize overrides the engine default size limit when positive.
	MaxSize int
}

// RunEncryptFile seals the contents of inputPath into a binary payload at outputPath.
func RunEncryptFile(
	binaryCipher cryptoService.BinaryCipher,
	logger *slog.Logger,
	inputPath, outputPath string,
	opts EncryptFileOptions,
) error {
	if opts.RecordID == "" {
		return fmt.Errorf("record id is required")
	}

	var metadata cryptoDomain.Metadata
	if opts.Metadata != "" {
		if err := json.Unmarshal([]byte(opts.Metadata), &metadata); err != nil {
			return fmt.Errorf("invalid metadata JSON: %w", err)
		}
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	var encryptOpts []cryptoService.EncryptOption
	if opts.Compress != nil {
		encryptOpts = append(encryptOpts, cryptoService.WithCompression(*opts.Compress))
	}
	if opts.MaxSize > 0 {
		encryptOpts = append(encryptOpts, cryptoService.WithMaxSize(opts.MaxSize))
	}

	payload, err := binaryCipher.Encrypt(data, opts.RecordID, metadata, encryptOpts...)
	if err != nil {
		return fmt.Errorf("failed to encrypt file: %w", err)
	}

	if err := os.WriteFile(outputPath, payload, 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	logger.Info("file encrypted",
		slog.String("output", outputPath),
		slog.Int("plaintext_bytes", len(data)),
		slog.Int("payload_bytes", len(payload)),
		slog.Int("key_version", binaryCipher.CurrentKeyVersion()),
	)
	return nil
}

// RunDecryptFile opens the binary payload at inputPath and writes the plaintext to outputPath.
func RunDecryptFile(
	binaryCipher cryptoService.BinaryCipher,
	logger *slog.Logger,
	inputPath, outputPath, recordID string,
) error {
	if recordID == "" {
		return fmt.Errorf("record id is required")
	}

	payload, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	data, err := binaryCipher.Decrypt(payload, recordID)
	if err != nil {
		return fmt.Errorf("failed to decrypt file: %w", err)
	}

	if err := os.WriteFile(outputPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	logger.Info("file decrypted",
		slog.String("output", outputPath),
		slog.Int("plaintext_bytes", len(data)),
	)
	return nil
}

// RunInspectPayload prints the unauthenticated header of the binary payload at inputPath.
// No key material is needed and the content is never decrypted.
func RunInspectPayload(writer io.Writer, inputPath, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	payload, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	header, ciphertext, err := cryptoService.ParseHeader(payload)
	if err != nil {
		return fmt.Errorf("failed to parse payload: %w", err)
	}

	if format == formatJSON {
		return outputJSON(writer, map[string]any{
			"format_version":   header.FormatVersion,
			"key_version":      header.KeyVersion,
			"compressed":       header.Compressed(),
			"metadata":         header.Metadata,
			"payload_bytes":    len(payload),
			"ciphertext_bytes": len(ciphertext),
		})
	}

	_, _ = fmt.Fprintf(writer, "Format Version:   %d\n", header.FormatVersion)
	_, _ = fmt.Fprintf(writer, "Key Version:      %d\n", header.KeyVersion)
	_, _ = fmt.Fprintf(writer, "Compressed:       %t\n", header.Compressed())
	_, _ = fmt.Fprintf(writer, "Payload Bytes:    %d\n", len(payload))
	_, _ = fmt.Fprintf(writer, "Ciphertext Bytes: %d\n", len(ciphertext))
	if len(header.Metadata) > 0 {
		_, _ = fmt.Fprintf(writer, "Metadata:\n")
		for _, key := range slices.Sorted(maps.Keys(header.Metadata)) {
			_, _ = fmt.Fprintf(writer, "  %s: %v\n", key, header.Metadata[key])
		}
	}
	return nil
}
