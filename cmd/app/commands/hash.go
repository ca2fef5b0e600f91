package commands

import (
	"fmt"
	"io"

	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
)

// RunHash prints the searchable hash of value as stored in hash columns.
// When expected is set the hash is compared in constant time and a mismatch is an error.
func RunHash(stringCipher cryptoService.StringCipher, writer io.Writer, value, expected, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	hash := stringCipher.Hash(value)

	result := map[string]any{
		"normalized": cryptoService.NormalizeForHash(value),
		"hash":       hash,
	}
	verify := expected != ""
	match := verify && stringCipher.VerifyHash(value, expected)
	if verify {
		result["match"] = match
	}

	if format == formatJSON {
		if err := outputJSON(writer, result); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(writer, "Hash:       %s\n", hash)
		if verify {
			_, _ = fmt.Fprintf(writer, "Match:      %t\n", match)
		}
	}

	if verify && !match {
		return fmt.Errorf("hash mismatch")
	}
	return nil
}
