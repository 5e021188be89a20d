// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqliter

import (
	"sync"

	"github.com/bureau-foundation/sqliter/lib/native"
)

// Synchronized is a Connection that may be shared between goroutines.
// One mutex guards the connection together with every statement and
// cursor derived from it, so two statements on the same connection never
// run at the same time while different connections proceed in parallel.
//
// Each method takes the lock for its own duration only. Caller code
// never runs under the lock, so nested use (preparing statements inside
// a transaction body, say) cannot deadlock. To make a sequence of calls
// atomic with respect to other goroutines, use Locked.
type Synchronized struct {
	mu   sync.Mutex
	conn *connection
}

func newSynchronized(conn *connection) *Synchronized {
	return &Synchronized{conn: conn}
}

// Locked runs fn with the connection lock held. fn receives the
// underlying unsynchronized connection and must use only that value
// (and statements prepared from it) until it returns; calling back into
// s would deadlock. Statements prepared inside fn must be finalized
// before fn returns.
func (s *Synchronized) Locked(fn func(conn Connection) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.conn)
}

func (s *Synchronized) ID() string { return s.conn.ID() }

func (s *Synchronized) Closed() bool { return s.conn.Closed() }

func (s *Synchronized) InTransaction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.InTransaction()
}

func (s *Synchronized) Exec(sql string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Exec(sql)
}

func (s *Synchronized) Prepare(sql string) (Statement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stmt, err := s.conn.prepare(sql)
	if err != nil {
		return nil, err
	}
	return &syncStatement{owner: s, stmt: stmt}, nil
}

func (s *Synchronized) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Begin()
}

func (s *Synchronized) SetTransactionSuccessful() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.SetTransactionSuccessful()
}

func (s *Synchronized) EndTransaction() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.EndTransaction()
}

// Close closes the connection. The close hook runs after the lock is
// released.
func (s *Synchronized) Close() error {
	s.mu.Lock()
	closed, err := s.conn.closeHandle()
	s.mu.Unlock()
	if closed {
		s.conn.runClosedHook()
	}
	return err
}

// syncStatement guards a statement with its connection's lock.
type syncStatement struct {
	owner *Synchronized
	stmt  *statement
}

func (s *syncStatement) lock() func() {
	s.owner.mu.Lock()
	return s.owner.mu.Unlock
}

func (s *syncStatement) SQL() string { return s.stmt.SQL() }

func (s *syncStatement) BindNull(index int) error {
	defer s.lock()()
	return s.stmt.BindNull(index)
}

func (s *syncStatement) BindInt64(index int, value int64) error {
	defer s.lock()()
	return s.stmt.BindInt64(index, value)
}

func (s *syncStatement) BindFloat(index int, value float64) error {
	defer s.lock()()
	return s.stmt.BindFloat(index, value)
}

func (s *syncStatement) BindText(index int, value string) error {
	defer s.lock()()
	return s.stmt.BindText(index, value)
}

func (s *syncStatement) BindBlob(index int, value []byte) error {
	defer s.lock()()
	return s.stmt.BindBlob(index, value)
}

func (s *syncStatement) BindParameterIndex(name string) (int, error) {
	defer s.lock()()
	return s.stmt.BindParameterIndex(name)
}

func (s *syncStatement) Execute() error {
	defer s.lock()()
	return s.stmt.Execute()
}

func (s *syncStatement) ExecuteForChangedRowCount() (int, error) {
	defer s.lock()()
	return s.stmt.ExecuteForChangedRowCount()
}

func (s *syncStatement) ExecuteForLastInsertedRowID() (int64, error) {
	defer s.lock()()
	return s.stmt.ExecuteForLastInsertedRowID()
}

func (s *syncStatement) Query() (Cursor, error) {
	defer s.lock()()
	inner, err := s.stmt.Query()
	if err != nil {
		return nil, err
	}
	return &syncCursor{owner: s, cursor: inner.(*cursor)}, nil
}

func (s *syncStatement) Reset() error {
	defer s.lock()()
	return s.stmt.Reset()
}

func (s *syncStatement) ClearBindings() error {
	defer s.lock()()
	return s.stmt.ClearBindings()
}

func (s *syncStatement) Finalize() error {
	defer s.lock()()
	return s.stmt.Finalize()
}

// syncCursor guards a cursor with its connection's lock.
type syncCursor struct {
	owner  *syncStatement
	cursor *cursor
}

func (c *syncCursor) Next() (bool, error) {
	defer c.owner.lock()()
	return c.cursor.Next()
}

func (c *syncCursor) ColumnCount() int {
	defer c.owner.lock()()
	return c.cursor.ColumnCount()
}

func (c *syncCursor) ColumnName(col int) string {
	defer c.owner.lock()()
	return c.cursor.ColumnName(col)
}

func (c *syncCursor) ColumnNames() map[string]int {
	defer c.owner.lock()()
	return c.cursor.ColumnNames()
}

func (c *syncCursor) ColumnIndex(name string) (int, bool) {
	defer c.owner.lock()()
	return c.cursor.ColumnIndex(name)
}

func (c *syncCursor) ColumnType(col int) native.ColumnType {
	defer c.owner.lock()()
	return c.cursor.ColumnType(col)
}

func (c *syncCursor) IsNull(col int) bool {
	defer c.owner.lock()()
	return c.cursor.IsNull(col)
}

func (c *syncCursor) Int64(col int) int64 {
	defer c.owner.lock()()
	return c.cursor.Int64(col)
}

func (c *syncCursor) Float(col int) float64 {
	defer c.owner.lock()()
	return c.cursor.Float(col)
}

func (c *syncCursor) Text(col int) string {
	defer c.owner.lock()()
	return c.cursor.Text(col)
}

func (c *syncCursor) Blob(col int) []byte {
	defer c.owner.lock()()
	return c.cursor.Blob(col)
}

func (c *syncCursor) Statement() Statement { return c.owner }

var (
	_ Connection = (*Synchronized)(nil)
	_ Statement  = (*syncStatement)(nil)
	_ Cursor     = (*syncCursor)(nil)
)
