// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqliter

import (
	"fmt"
	"strconv"

	"github.com/bureau-foundation/sqliter/lib/native"
)

// Cursor iterates forward over the rows of one Query. Column indices
// are 0-based.
//
// A cursor becomes invalid as soon as its statement is reset, finalized
// or queried again. Next on an invalid cursor returns ErrClosed; reading
// a column from one panics, the same as indexing past the end of a
// slice, because the row it pointed at no longer exists.
type Cursor interface {
	// Next advances to the next row. It returns false with a nil error
	// once the rows are exhausted.
	Next() (bool, error)

	ColumnCount() int
	ColumnName(col int) string

	// ColumnNames maps each column name to its index. When a name
	// repeats (typically from a join), later occurrences are keyed
	// "name&JOIN1", "name&JOIN2" and so on.
	ColumnNames() map[string]int

	// ColumnIndex looks a name up in ColumnNames.
	ColumnIndex(name string) (int, bool)

	ColumnType(col int) native.ColumnType
	IsNull(col int) bool
	Int64(col int) int64
	Float(col int) float64
	Text(col int) string

	// Blob returns a copy of the column's bytes, or nil for NULL.
	Blob(col int) []byte

	// Statement returns the statement the cursor reads from.
	Statement() Statement
}

type cursor struct {
	stmt       *statement
	generation uint64
	done       bool
	names      map[string]int
}

func (c *cursor) valid() bool {
	return !c.stmt.finalized && c.stmt.generation == c.generation && !c.stmt.conn.closed.Load()
}

// mustBeValid panics if the cursor no longer matches its statement.
func (c *cursor) mustBeValid() {
	if !c.valid() {
		panic(fmt.Sprintf("sqliter: read from invalidated cursor on statement %s", c.stmt.fingerprint))
	}
}

func (c *cursor) Next() (bool, error) {
	if !c.valid() {
		return false, closedError("next", "cursor")
	}
	if c.done {
		return false, nil
	}
	row, err := c.stmt.conn.step(c.stmt.handle)
	if err != nil {
		c.done = true
		return false, fmt.Errorf("sqliter: next %s: %w", c.stmt.fingerprint, err)
	}
	if !row {
		c.done = true
	}
	return row, nil
}

func (c *cursor) ColumnCount() int {
	c.mustBeValid()
	return c.stmt.handle.ColumnCount()
}

func (c *cursor) ColumnName(col int) string {
	c.mustBeValid()
	return c.stmt.handle.ColumnName(col)
}

func (c *cursor) ColumnNames() map[string]int {
	c.mustBeValid()
	if c.names != nil {
		return c.names
	}
	count := c.stmt.handle.ColumnCount()
	names := make(map[string]int, count)
	for col := range count {
		name := c.stmt.handle.ColumnName(col)
		if _, taken := names[name]; taken {
			base := name + "&JOIN"
			suffix := 1
			for {
				name = base + strconv.Itoa(suffix)
				if _, taken := names[name]; !taken {
					break
				}
				suffix++
			}
		}
		names[name] = col
	}
	c.names = names
	return names
}

func (c *cursor) ColumnIndex(name string) (int, bool) {
	col, ok := c.ColumnNames()[name]
	return col, ok
}

func (c *cursor) ColumnType(col int) native.ColumnType {
	c.mustBeValid()
	return c.stmt.handle.ColumnType(col)
}

func (c *cursor) IsNull(col int) bool {
	c.mustBeValid()
	return c.stmt.handle.ColumnType(col) == native.TypeNull
}

func (c *cursor) Int64(col int) int64 {
	c.mustBeValid()
	return c.stmt.handle.ColumnInt64(col)
}

func (c *cursor) Float(col int) float64 {
	c.mustBeValid()
	return c.stmt.handle.ColumnFloat(col)
}

func (c *cursor) Text(col int) string {
	c.mustBeValid()
	return c.stmt.handle.ColumnText(col)
}

func (c *cursor) Blob(col int) []byte {
	c.mustBeValid()
	return c.stmt.handle.ColumnBlob(col)
}

func (c *cursor) Statement() Statement { return c.stmt }
