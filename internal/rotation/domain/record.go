package domain

import (
	"maps"
	"slices"
)

// Record is one row of an external collection as seen by rotation.
//
// Values holds the columns the mapping names: string fields and properties as
// string, binary fields as []byte. A column that is NULL is absent from Values.
// Setters track which columns changed so stores write back only those.
type Record struct {
	// ID is the pagination key. Records are fetched in ascending ID order.
	ID string

	// RecordID is the identifier bound into key derivation.
	RecordID string

	Values map[string]any

	changed map[string]struct{}
}

// NewRecord creates a record with an empty value set.
func NewRecord(id, recordID string) *Record {
	return &Record{
		ID:       id,
		RecordID: recordID,
		Values:   make(map[string]any),
	}
}

// String returns the text value of field. The boolean is false when the field is absent.
func (r *Record) String(field string) (string, bool, error) {
	v, ok := r.Values[field]
	if !ok || v == nil {
		return "", false, nil
	}
	switch t := v.(type) {
	case string:
		return t, true, nil
	case []byte:
		return string(t), true, nil
	default:
		return "", false, ErrFieldNotString
	}
}

// Bytes returns the binary value of field. The boolean is false when the field is absent.
func (r *Record) Bytes(field string) ([]byte, bool) {
	v, ok := r.Values[field]
	if !ok || v == nil {
		return nil, false
	}
	switch t := v.(type) {
	case []byte:
		return t, true
	case string:
		return []byte(t), true
	default:
		return nil, false
	}
}

// Set stores value for field and marks it as changed.
func (r *Record) Set(field string, value any) {
	if r.Values == nil {
		r.Values = make(map[string]any)
	}
	if r.changed == nil {
		r.changed = make(map[string]struct{})
	}
	r.Values[field] = value
	r.changed[field] = struct{}{}
}

// Changed returns the names of modified fields in sorted order.
func (r *Record) Changed() []string {
	return slices.Sorted(maps.Keys(r.changed))
}

// HasChanges reports whether any field was modified.
func (r *Record) HasChanges() bool {
	return len(r.changed) > 0
}

// Snapshot copies the current values so a failed record can be restored.
func (r *Record) Snapshot() map[string]any {
	return maps.Clone(r.Values)
}

// Restore reverts values to snapshot and forgets every change.
func (r *Record) Restore(snapshot map[string]any) {
	r.Values = snapshot
	r.changed = nil
}

// Clone returns a copy of r with the same values and no recorded changes.
func (r *Record) Clone() *Record {
	return &Record{
		ID:       r.ID,
		RecordID: r.RecordID,
		Values:   maps.Clone(r.Values),
	}
}
