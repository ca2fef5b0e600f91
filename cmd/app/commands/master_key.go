package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
)

// RunCreateMasterKey generates a random 32-byte master key and prints it as
// environment configuration for the given key version.
//
// Without a KMS key URI the key is printed in hex. With one, the key is wrapped by
// the KMS first and only the base64 ciphertext is printed; LoadKeyRing unwraps it
// at startup using the same KMS_KEY_URI.
//
// Security: Never use the localsecrets provider in production.
func RunCreateMasterKey(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	logger *slog.Logger,
	writer io.Writer,
	keyVersion int,
	kmsProvider, kmsKeyURI string,
) error {
	if keyVersion < cryptoDomain.MinKeyVersion || keyVersion > cryptoDomain.MaxKeyVersion {
		return fmt.Errorf(
			"%w: %d (must be between %d and %d)",
			cryptoDomain.ErrInvalidKeyVersion, keyVersion, cryptoDomain.MinKeyVersion, cryptoDomain.MaxKeyVersion,
		)
	}
	if kmsKeyURI != "" && kmsProvider == "" {
		return fmt.Errorf("--kms-provider is required when --kms-key-uri is set")
	}

	hexKey, err := cryptoService.GenerateKey()
	if err != nil {
		return fmt.Errorf("failed to generate master key: %w", err)
	}

	value := hexKey
	if kmsKeyURI != "" {
		value, err = kmsService.WrapMasterKey(ctx, kmsKeyURI, hexKey)
		if err != nil {
			return err
		}
	}

	logger.Info("master key generated",
		slog.Int("key_version", keyVersion),
		slog.Bool("kms", kmsKeyURI != ""),
	)

	_, _ = fmt.Fprintln(writer, "# Master Key Configuration")
	_, _ = fmt.Fprintln(writer, "# Copy these environment variables to your .env file or secrets manager")
	_, _ = fmt.Fprintln(writer)
	if kmsKeyURI != "" {
		_, _ = fmt.Fprintf(writer, "KMS_PROVIDER=\"%s\"\n", kmsProvider)
		_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=\"%s\"\n", kmsKeyURI)
	}
	_, _ = fmt.Fprintf(writer, "MASTER_KEY=\"%s\"\n", value)
	_, _ = fmt.Fprintf(writer, "KEY_VERSION=%d\n", keyVersion)
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintln(writer, "# When rotating, move the old key into PREVIOUS_KEYS so existing payloads stay readable:")
	_, _ = fmt.Fprintln(writer, "# PREVIOUS_KEYS=\"<old version>:<old key>\"")

	return nil
}
