package domain

import (
	"encoding/json"
	"maps"
	"slices"

	validation "github.com/jellydator/validation"

	"github.com/allisson/fieldcrypt/internal/errors"
	customValidation "github.com/allisson/fieldcrypt/internal/validation"
)

// DefaultIDField is the pagination column used when a mapping does not name one.
const DefaultIDField = "id"

// StringField names a column encrypted by the string engine. HashField, when
// set, names the column holding its searchable hash.
type StringField struct {
	Name      string `json:"name"`
	HashField string `json:"hashField,omitempty"`
}

// BinaryField names a column encrypted by the binary engine.
//
// Compress and MaxSize override the engine defaults when set. MetadataFields
// maps a metadata key to the record property whose value is stored under it.
type BinaryField struct {
	Name           string            `json:"name"`
	Compress       *bool             `json:"compress,omitempty"`
	MaxSize        int               `json:"maxSize,omitempty"`
	MetadataFields map[string]string `json:"metadataFields,omitempty"`
}

// FieldMapping describes which columns of a collection are encrypted and how.
type FieldMapping struct {
	Collection    string        `json:"collection"`
	IDField       string        `json:"idField,omitempty"`
	RecordIDField string        `json:"recordIdField,omitempty"`
	StringFields  []StringField `json:"stringFields,omitempty"`
	BinaryFields  []BinaryField `json:"binaryFields,omitempty"`
}

// PrimaryKey returns the pagination column, defaulting to "id".
func (m *FieldMapping) PrimaryKey() string {
	if m.IDField == "" {
		return DefaultIDField
	}
	return m.IDField
}

// RecordIDColumn returns the column bound into key derivation, defaulting to the primary key.
func (m *FieldMapping) RecordIDColumn() string {
	if m.RecordIDField == "" {
		return m.PrimaryKey()
	}
	return m.RecordIDField
}

// Columns returns every column a store must read for this mapping, without duplicates.
// The primary key and record id columns are not included.
func (m *FieldMapping) Columns() []string {
	var cols []string
	add := func(name string) {
		if name == "" || name == m.PrimaryKey() || name == m.RecordIDColumn() || slices.Contains(cols, name) {
			return
		}
		cols = append(cols, name)
	}
	for _, f := range m.StringFields {
		add(f.Name)
	}
	for _, f := range m.BinaryFields {
		add(f.Name)
		for _, prop := range slices.Sorted(maps.Values(f.MetadataFields)) {
			add(prop)
		}
	}
	return cols
}

// BinaryColumns returns the names of the binary fields.
func (m *FieldMapping) BinaryColumns() []string {
	cols := make([]string, 0, len(m.BinaryFields))
	for _, f := range m.BinaryFields {
		cols = append(cols, f.Name)
	}
	return cols
}

// Validate checks identifiers and that at least one encrypted field is configured.
func (m *FieldMapping) Validate() error {
	err := validation.ValidateStruct(m,
		validation.Field(&m.Collection, validation.Required, customValidation.Identifier),
		validation.Field(&m.IDField, customValidation.Identifier),
		validation.Field(&m.RecordIDField, customValidation.Identifier),
		validation.Field(&m.StringFields, validation.Each(validation.By(validateStringField))),
		validation.Field(&m.BinaryFields, validation.Each(validation.By(validateBinaryField))),
	)
	if err != nil {
		return errors.Wrap(ErrInvalidFieldMapping, err.Error())
	}
	if len(m.StringFields) == 0 && len(m.BinaryFields) == 0 {
		return errors.Wrap(ErrInvalidFieldMapping, "no encrypted fields configured")
	}

	seen := make(map[string]struct{})
	for _, name := range m.encryptedColumns() {
		if name == m.PrimaryKey() || name == m.RecordIDColumn() {
			return errors.Wrapf(ErrInvalidFieldMapping, "field %q is an identifier column", name)
		}
		if _, ok := seen[name]; ok {
			return errors.Wrapf(ErrInvalidFieldMapping, "field %q is configured twice", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func (m *FieldMapping) encryptedColumns() []string {
	var cols []string
	for _, f := range m.StringFields {
		cols = append(cols, f.Name)
		if f.HashField != "" {
			cols = append(cols, f.HashField)
		}
	}
	return append(cols, m.BinaryColumns()...)
}

func validateStringField(value any) error {
	f, ok := value.(StringField)
	if !ok {
		return validation.NewError("validation_string_field", "must be a string field")
	}
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required, customValidation.Identifier),
		validation.Field(&f.HashField, customValidation.Identifier),
	)
}

func validateBinaryField(value any) error {
	f, ok := value.(BinaryField)
	if !ok {
		return validation.NewError("validation_binary_field", "must be a binary field")
	}
	err := validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required, customValidation.Identifier),
		validation.Field(&f.MaxSize, validation.Min(0)),
	)
	if err != nil {
		return err
	}
	for _, prop := range f.MetadataFields {
		if err := customValidation.Identifier.Validate(prop); err != nil {
			return err
		}
	}
	return nil
}

// ParseFieldMappings decodes a JSON array of mappings and validates each one.
func ParseFieldMappings(data []byte) ([]*FieldMapping, error) {
	var mappings []*FieldMapping
	if err := json.Unmarshal(data, &mappings); err != nil {
		return nil, errors.Wrap(ErrInvalidFieldMapping, err.Error())
	}
	if len(mappings) == 0 {
		return nil, errors.Wrap(ErrInvalidFieldMapping, "no mappings configured")
	}
	for _, m := range mappings {
		if err := m.Validate(); err != nil {
			return nil, err
		}
	}
	return mappings, nil
}
