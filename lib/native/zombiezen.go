// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package native

import (
	"strings"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Open opens a zombiezen connection for path. The handle is opened
// read-write, created if missing, with URI filenames enabled so that
// shared in-memory names ("file:x?mode=memory&cache=shared") work.
// Journal mode is left for the caller to set.
func Open(path string) (Conn, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite|sqlite.OpenCreate|sqlite.OpenURI)
	if err != nil {
		return nil, wrap("open", err)
	}
	return &zconn{conn: conn}, nil
}

type zconn struct {
	conn *sqlite.Conn
}

// Prepare compiles exactly one statement. Text after it may only be
// whitespace, semicolons and comments.
func (c *zconn) Prepare(sql string) (Stmt, error) {
	// zombiezen hands back a Stmt with a null handle for text that holds
	// no statement, so empty input is caught before the engine sees it.
	if onlyComments(sql) {
		return nil, &Error{Code: ResultMisuse, Op: "prepare", Message: "empty statement"}
	}
	stmt, trailing, err := c.conn.PrepareTransient(sql)
	if err != nil {
		return nil, wrap("prepare", err)
	}
	if trailing > 0 && !onlyComments(sql[len(sql)-trailing:]) {
		stmt.Finalize()
		return nil, &Error{Code: ResultMisuse, Op: "prepare", Message: "more than one statement in " + quote(sql)}
	}
	return &zstmt{stmt: stmt}, nil
}

// onlyComments reports whether sql contains nothing the engine would
// compile: whitespace, semicolons, "--" line comments and "/* */"
// block comments. An unterminated block comment runs to the end of the
// text, as it does for the engine.
func onlyComments(sql string) bool {
	for {
		sql = strings.TrimLeft(sql, " \t\n\r\f;")
		switch {
		case sql == "":
			return true
		case strings.HasPrefix(sql, "--"):
			end := strings.IndexByte(sql, '\n')
			if end < 0 {
				return true
			}
			sql = sql[end+1:]
		case strings.HasPrefix(sql, "/*"):
			end := strings.Index(sql[2:], "*/")
			if end < 0 {
				return true
			}
			sql = sql[2+end+2:]
		default:
			return false
		}
	}
}

func (c *zconn) ExecScript(sql string) error {
	if err := sqlitex.ExecuteScript(c.conn, sql, nil); err != nil {
		return wrap("exec", err)
	}
	return nil
}

func (c *zconn) Changes() int { return c.conn.Changes() }

func (c *zconn) LastInsertRowID() int64 { return c.conn.LastInsertRowID() }

func (c *zconn) AutocommitEnabled() bool { return c.conn.AutocommitEnabled() }

func (c *zconn) SetBusyTimeout(d time.Duration) { c.conn.SetBusyTimeout(d) }

// ConfigureLookaside always fails: zombiezen does not expose
// SQLITE_DBCONFIG_LOOKASIDE.
func (c *zconn) ConfigureLookaside(slotSize, slotCount int) error {
	return &Error{
		Code:    ResultError,
		Op:      "db_config",
		Message: "lookaside sizing is not supported by this engine binding",
	}
}

func (c *zconn) Close() error {
	if err := c.conn.Close(); err != nil {
		return wrap("close", err)
	}
	return nil
}

type zstmt struct {
	stmt *sqlite.Stmt
}

func (s *zstmt) Step() (bool, error) {
	row, err := s.stmt.Step()
	if err != nil {
		return false, wrap("step", err)
	}
	return row, nil
}

func (s *zstmt) Reset() error {
	if err := s.stmt.Reset(); err != nil {
		return wrap("reset", err)
	}
	return nil
}

func (s *zstmt) ClearBindings() error {
	if err := s.stmt.ClearBindings(); err != nil {
		return wrap("clear bindings", err)
	}
	return nil
}

func (s *zstmt) Finalize() error {
	if err := s.stmt.Finalize(); err != nil {
		return wrap("finalize", err)
	}
	return nil
}

func (s *zstmt) BindParamCount() int         { return s.stmt.BindParamCount() }
func (s *zstmt) BindParamName(i int) string  { return s.stmt.BindParamName(i) }
func (s *zstmt) BindNull(i int)              { s.stmt.BindNull(i) }
func (s *zstmt) BindInt64(i int, v int64)    { s.stmt.BindInt64(i, v) }
func (s *zstmt) BindFloat(i int, v float64)  { s.stmt.BindFloat(i, v) }
func (s *zstmt) BindText(i int, v string)    { s.stmt.BindText(i, v) }
func (s *zstmt) BindBlob(i int, v []byte)    { s.stmt.BindBytes(i, v) }
func (s *zstmt) ColumnCount() int            { return s.stmt.ColumnCount() }
func (s *zstmt) ColumnName(col int) string   { return s.stmt.ColumnName(col) }
func (s *zstmt) ColumnInt64(col int) int64   { return s.stmt.ColumnInt64(col) }
func (s *zstmt) ColumnFloat(col int) float64 { return s.stmt.ColumnFloat(col) }
func (s *zstmt) ColumnText(col int) string   { return s.stmt.ColumnText(col) }

func (s *zstmt) ColumnType(col int) ColumnType {
	switch s.stmt.ColumnType(col) {
	case sqlite.TypeInteger:
		return TypeInteger
	case sqlite.TypeFloat:
		return TypeFloat
	case sqlite.TypeText:
		return TypeText
	case sqlite.TypeBlob:
		return TypeBlob
	default:
		return TypeNull
	}
}

func (s *zstmt) ColumnBlob(col int) []byte {
	if s.stmt.ColumnType(col) == sqlite.TypeNull {
		return nil
	}
	buffer := make([]byte, s.stmt.ColumnLen(col))
	s.stmt.ColumnBytes(col, buffer)
	return buffer
}

// wrap converts a zombiezen error into an *Error, keeping the
// extended result code.
func wrap(op string, err error) error {
	return &Error{
		Code:    ResultCode(sqlite.ErrCode(err)),
		Op:      op,
		Message: err.Error(),
	}
}

func quote(sql string) string {
	const limit = 80
	if len(sql) > limit {
		sql = sql[:limit] + "..."
	}
	return `"` + sql + `"`
}
