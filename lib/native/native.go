// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package native

import "time"

// OpenFunc opens a native handle for path. Path is a filesystem path,
// ":memory:", "" (temporary database), or a "file:" URI.
type OpenFunc func(path string) (Conn, error)

// Conn is one native database handle.
type Conn interface {
	// Prepare compiles a single SQL statement. The returned Stmt must
	// be finalized by the caller.
	Prepare(sql string) (Stmt, error)

	// ExecScript runs every statement in sql, discarding result rows.
	ExecScript(sql string) error

	// Changes reports the rows modified by the most recently completed
	// INSERT, UPDATE or DELETE.
	Changes() int

	// LastInsertRowID reports the rowid of the most recent successful
	// INSERT on this handle.
	LastInsertRowID() int64

	// AutocommitEnabled reports whether the handle is outside an
	// explicit transaction.
	AutocommitEnabled() bool

	// SetBusyTimeout installs the engine's own busy wait. Zero or
	// negative disables it.
	SetBusyTimeout(d time.Duration)

	// ConfigureLookaside sizes the per-connection lookaside allocator.
	ConfigureLookaside(slotSize, slotCount int) error

	Close() error
}

// Stmt is one prepared statement. Parameter indices are 1-based and
// column indices are 0-based, matching the engine.
//
// Bind methods do not return errors: a failed bind is reported by the
// next Step.
type Stmt interface {
	Step() (row bool, err error)
	Reset() error
	ClearBindings() error
	Finalize() error

	BindParamCount() int
	// BindParamName returns the name of parameter i including its
	// prefix character (":", "@", "$" or "?"), or "" if it is unnamed.
	BindParamName(i int) string

	BindNull(i int)
	BindInt64(i int, value int64)
	BindFloat(i int, value float64)
	BindText(i int, value string)
	BindBlob(i int, value []byte)

	ColumnCount() int
	ColumnName(col int) string
	ColumnType(col int) ColumnType
	ColumnInt64(col int) int64
	ColumnFloat(col int) float64
	ColumnText(col int) string
	ColumnBlob(col int) []byte
}

// ColumnType is the storage class of a result column value.
type ColumnType int

// Storage classes, numbered as the engine numbers them.
const (
	TypeInteger ColumnType = 1
	TypeFloat   ColumnType = 2
	TypeText    ColumnType = 3
	TypeBlob    ColumnType = 4
	TypeNull    ColumnType = 5
)

func (t ColumnType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeText:
		return "text"
	case TypeBlob:
		return "blob"
	case TypeNull:
		return "null"
	default:
		return "unknown"
	}
}
