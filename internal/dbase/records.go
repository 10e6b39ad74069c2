// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.
package dbase

import (
	"context"
	"encoding/json"
	"iter"
	"strings"

	"github.com/jmoiron/sqlx"
)

// record is implemented by every entity stored in the archive.
type record interface {
	// tablename should return the table name.
	tablename() string
	// columns should return the column names.
	columns() []string
	// values should return the values of the entity, ordered as columns.
	values() []any
}

// interface assertions
var (
	_ record = dbChat{}
	_ record = dbMessage{}
)

var (
	marshal   = json.Marshal
	unmarshal = json.Unmarshal
)

// unmarshalt is a convenience function to unmarshal data into T.
func unmarshalt[T any](data []byte) (T, error) {
	var t T
	if err := unmarshal(data, &t); err != nil {
		return t, err
	}
	return t, nil
}

// orNull is a convenience function to set optional fields.
func orNull[T any](b bool, t T) *T {
	if b {
		return &t
	}
	return nil
}

func placeholders[T any](v []T) []string {
	s := make([]string, len(v))
	for i := range v {
		s[i] = "?"
	}
	return s
}

// insertStmt generates an insert statement for the record.  A non-empty
// conflict clause, i.e. "OR IGNORE", goes between INSERT and INTO.
func insertStmt(r record, conflict string) string {
	var buf strings.Builder
	buf.WriteString("INSERT ")
	if conflict != "" {
		buf.WriteString(conflict)
		buf.WriteString(" ")
	}
	buf.WriteString("INTO ")
	buf.WriteString(r.tablename())
	buf.WriteString(" (")
	buf.WriteString(strings.Join(r.columns(), ", "))
	buf.WriteString(") VALUES (")
	buf.WriteString(strings.Join(placeholders(r.columns()), ", "))
	buf.WriteString(")")
	return buf.String()
}

// query runs stmt and returns an iterator of scanned rows.  The iterator
// owns the result set and closes it when the caller stops.
func query[T any](ctx context.Context, conn sqlx.QueryerContext, stmt string, binds ...any) (iter.Seq2[T, error], error) {
	rows, err := conn.QueryxContext(ctx, stmt, binds...)
	if err != nil {
		return nil, err
	}
	iterFn := func(yield func(T, error) bool) {
		defer rows.Close()
		var t T
		for rows.Next() {
			if err := rows.StructScan(&t); err != nil {
				yield(t, err)
				return
			}
			if !yield(t, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(t, err)
			return
		}
	}
	return iterFn, nil
}
