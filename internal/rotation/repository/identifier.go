// Package repository implements record and progress stores for rotation.
//
// Record stores read and write arbitrary tables named by a FieldMapping, so
// every identifier is validated by the mapping and quoted per dialect before it
// reaches SQL. Values are always passed as bind parameters.
package repository

import (
	"strings"

	"github.com/lib/pq"
)

// quotePostgres quotes a possibly schema-qualified identifier for PostgreSQL.
func quotePostgres(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// quoteMySQL quotes a possibly schema-qualified identifier for MySQL.
func quoteMySQL(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
	}
	return strings.Join(parts, ".")
}

// selectColumns returns the primary key, the record id column when distinct, and the mapped columns.
func selectColumns(pk, recordID string, mapped []string) []string {
	cols := []string{pk}
	if recordID != pk {
		cols = append(cols, recordID)
	}
	return append(cols, mapped...)
}
