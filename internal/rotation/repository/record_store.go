package repository

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/allisson/fieldcrypt/internal/errors"
	rotationDomain "github.com/allisson/fieldcrypt/internal/rotation/domain"
)

// dialect captures the SQL differences between record store implementations.
type dialect struct {
	quote       func(string) string
	placeholder func(n int) string
}

var postgresDialect = dialect{
	quote:       quotePostgres,
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
}

var mysqlDialect = dialect{
	quote:       quoteMySQL,
	placeholder: func(int) string { return "?" },
}

// fetchQuery builds the keyset pagination query for mapping.
func (d dialect) fetchQuery(mapping *rotationDomain.FieldMapping, afterID string) (string, []any) {
	pk := mapping.PrimaryKey()
	cols := selectColumns(pk, mapping.RecordIDColumn(), mapping.Columns())

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.quote(c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(quoted, ", "), d.quote(mapping.Collection))

	var args []any
	if afterID != "" {
		fmt.Fprintf(&b, " WHERE %s > %s", d.quote(pk), d.placeholder(1))
		args = append(args, afterID)
	}
	fmt.Fprintf(&b, " ORDER BY %s ASC LIMIT %s", d.quote(pk), d.placeholder(len(args)+1))

	return b.String(), args
}

// updateQuery builds the UPDATE statement writing the changed fields of rec.
func (d dialect) updateQuery(mapping *rotationDomain.FieldMapping, rec *rotationDomain.Record) (string, []any) {
	changed := rec.Changed()
	sets := make([]string, len(changed))
	args := make([]any, 0, len(changed)+1)
	for i, field := range changed {
		sets[i] = fmt.Sprintf("%s = %s", d.quote(field), d.placeholder(i+1))
		args = append(args, rec.Values[field])
	}
	args = append(args, rec.ID)

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = %s",
		d.quote(mapping.Collection),
		strings.Join(sets, ", "),
		d.quote(mapping.PrimaryKey()),
		d.placeholder(len(changed)+1),
	)
	return query, args
}

// scanRecords reads rows produced by fetchQuery into records.
func scanRecords(rows *sql.Rows, mapping *rotationDomain.FieldMapping) ([]*rotationDomain.Record, error) {
	pk := mapping.PrimaryKey()
	recordIDCol := mapping.RecordIDColumn()
	cols := selectColumns(pk, recordIDCol, mapping.Columns())

	var records []*rotationDomain.Record
	for rows.Next() {
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan record")
		}

		id := stringify(values[0])
		recordID := id
		offset := 1
		if recordIDCol != pk {
			recordID = stringify(values[1])
			offset = 2
		}

		rec := rotationDomain.NewRecord(id, recordID)
		for i, col := range cols[offset:] {
			if v := values[i+offset]; v != nil {
				rec.Values[col] = v
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate records")
	}
	return records, nil
}

// stringify renders a scanned key column as the cursor string.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}
