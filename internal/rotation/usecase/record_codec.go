package usecase

import (
	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	cryptoService "github.com/allisson/fieldcrypt/internal/crypto/service"
	apperrors "github.com/allisson/fieldcrypt/internal/errors"
	rotationDomain "github.com/allisson/fieldcrypt/internal/rotation/domain"
)

// RecordCodec applies a FieldMapping to a record using the string and binary engines.
//
// It is the single place that knows how mapped fields are sealed: EncryptFields
// and DecryptFields serve callers that load and store plaintext objects, and
// RotateFields is the per-record step of rotation.
type RecordCodec struct {
	strings  cryptoService.StringCipher
	binaries cryptoService.BinaryCipher
}

// NewRecordCodec creates a RecordCodec.
func NewRecordCodec(strings cryptoService.StringCipher, binaries cryptoService.BinaryCipher) *RecordCodec {
	return &RecordCodec{strings: strings, binaries: binaries}
}

// EncryptFields replaces plaintext values of mapped fields with payloads and fills
// hash columns. Absent fields are left alone. On error the record is unchanged.
func (c *RecordCodec) EncryptFields(mapping *rotationDomain.FieldMapping, rec *rotationDomain.Record) error {
	snapshot := rec.Snapshot()

	for _, f := range mapping.StringFields {
		plaintext, ok, err := rec.String(f.Name)
		if err != nil {
			rec.Restore(snapshot)
			return apperrors.Wrapf(err, "field %s", f.Name)
		}
		if !ok {
			continue
		}

		payload, err := c.strings.Encrypt(plaintext, rec.RecordID)
		if err != nil {
			rec.Restore(snapshot)
			return apperrors.Wrapf(err, "field %s", f.Name)
		}
		rec.Set(f.Name, payload)
		if f.HashField != "" {
			rec.Set(f.HashField, c.strings.Hash(plaintext))
		}
	}

	for _, f := range mapping.BinaryFields {
		data, ok := rec.Bytes(f.Name)
		if !ok {
			continue
		}

		payload, err := c.binaries.Encrypt(data, rec.RecordID, c.metadataFor(f, rec), encryptOptions(f)...)
		if err != nil {
			rec.Restore(snapshot)
			return apperrors.Wrapf(err, "field %s", f.Name)
		}
		rec.Set(f.Name, payload)
	}

	return nil
}

// DecryptFields replaces payloads of mapped fields with plaintext.
//
// String fields that cannot be decrypted become nil, matching the fail-soft
// string engine. Binary failures are returned and leave the record unchanged.
func (c *RecordCodec) DecryptFields(mapping *rotationDomain.FieldMapping, rec *rotationDomain.Record) error {
	snapshot := rec.Snapshot()

	for _, f := range mapping.StringFields {
		payload, ok, err := rec.String(f.Name)
		if err != nil {
			rec.Restore(snapshot)
			return apperrors.Wrapf(err, "field %s", f.Name)
		}
		if !ok {
			continue
		}

		plaintext, ok := c.strings.Decrypt(payload, rec.RecordID)
		if !ok {
			rec.Set(f.Name, nil)
			continue
		}
		rec.Set(f.Name, plaintext)
	}

	for _, f := range mapping.BinaryFields {
		payload, ok := rec.Bytes(f.Name)
		if !ok || len(payload) == 0 {
			continue
		}

		data, err := c.binaries.Decrypt(payload, rec.RecordID)
		if err != nil {
			rec.Restore(snapshot)
			return apperrors.Wrapf(err, "field %s", f.Name)
		}
		rec.Set(f.Name, data)
	}

	return nil
}

// RotateFields re-encrypts every mapped field that is not on the current key
// version. It returns the number of fields rotated and skipped. On error the
// record is restored and no field counts.
func (c *RecordCodec) RotateFields(
	mapping *rotationDomain.FieldMapping,
	rec *rotationDomain.Record,
) (int, int, error) {
	snapshot := rec.Snapshot()
	rotated, skipped, err := c.rotateFields(mapping, rec)
	if err != nil {
		rec.Restore(snapshot)
		return 0, 0, err
	}
	return rotated, skipped, nil
}

func (c *RecordCodec) rotateFields(
	mapping *rotationDomain.FieldMapping,
	rec *rotationDomain.Record,
) (rotated, skipped int, err error) {
	current := c.strings.CurrentKeyVersion()
	for _, f := range mapping.StringFields {
		payload, ok, err := rec.String(f.Name)
		if err != nil {
			return 0, 0, apperrors.Wrapf(err, "field %s", f.Name)
		}
		if !ok || payload == "" {
			continue
		}

		version, ok := c.strings.PayloadKeyVersion(payload)
		if !ok {
			return 0, 0, apperrors.Wrapf(rotationDomain.ErrStringDecryptFailed, "field %s", f.Name)
		}
		if version == current {
			skipped++
			continue
		}

		plaintext, ok := c.strings.Decrypt(payload, rec.RecordID)
		if !ok {
			return 0, 0, apperrors.Wrapf(rotationDomain.ErrStringDecryptFailed, "field %s", f.Name)
		}

		reencrypted, err := c.strings.Encrypt(plaintext, rec.RecordID)
		if err != nil {
			return 0, 0, apperrors.Wrapf(err, "field %s", f.Name)
		}
		rec.Set(f.Name, reencrypted)
		if f.HashField != "" {
			rec.Set(f.HashField, c.strings.Hash(plaintext))
		}
		rotated++
	}

	for _, f := range mapping.BinaryFields {
		payload, ok := rec.Bytes(f.Name)
		if !ok || len(payload) == 0 {
			continue
		}

		isCurrent, err := c.binaries.IsCurrentKeyVersion(payload)
		if err != nil {
			return 0, 0, apperrors.Wrapf(err, "field %s", f.Name)
		}
		if isCurrent {
			skipped++
			continue
		}

		reencrypted, err := c.binaries.ReEncrypt(payload, rec.RecordID, f.Compress)
		if err != nil {
			return 0, 0, apperrors.Wrapf(err, "field %s", f.Name)
		}
		rec.Set(f.Name, reencrypted)
		rotated++
	}

	return rotated, skipped, nil
}

func (c *RecordCodec) metadataFor(f rotationDomain.BinaryField, rec *rotationDomain.Record) cryptoDomain.Metadata {
	if len(f.MetadataFields) == 0 {
		return nil
	}
	metadata := make(cryptoDomain.Metadata, len(f.MetadataFields))
	for key, prop := range f.MetadataFields {
		if v, ok, err := rec.String(prop); err == nil && ok {
			metadata[key] = v
		}
	}
	return metadata
}

func encryptOptions(f rotationDomain.BinaryField) []cryptoService.EncryptOption {
	var opts []cryptoService.EncryptOption
	if f.Compress != nil {
		opts = append(opts, cryptoService.WithCompression(*f.Compress))
	}
	if f.MaxSize > 0 {
		opts = append(opts, cryptoService.WithMaxSize(f.MaxSize))
	}
	return opts
}
