// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqliter

import (
	"fmt"

	"github.com/bureau-foundation/sqliter/lib/native"
)

// Statement is a prepared statement. Parameter indices are 1-based.
//
// Execute, ExecuteForChangedRowCount and ExecuteForLastInsertedRowID
// always reset the statement and clear its bindings afterwards, whether
// or not they succeed.
type Statement interface {
	SQL() string

	BindNull(index int) error
	BindInt64(index int, value int64) error
	BindFloat(index int, value float64) error
	BindText(index int, value string) error
	BindBlob(index int, value []byte) error

	// BindParameterIndex returns the index of a named parameter. The
	// name may be given with its prefix (":id") or without it ("id").
	BindParameterIndex(name string) (int, error)

	// Execute runs a statement that must not produce rows.
	Execute() error

	// ExecuteForChangedRowCount runs the statement and returns the
	// number of rows it inserted, updated or deleted.
	ExecuteForChangedRowCount() (int, error)

	// ExecuteForLastInsertedRowID runs the statement and returns the
	// rowid of the inserted row, or -1 if no row changed.
	ExecuteForLastInsertedRowID() (int64, error)

	// Query starts reading rows. Any cursor previously returned by
	// Query on this statement becomes invalid.
	Query() (Cursor, error)

	Reset() error
	ClearBindings() error

	// Finalize releases the native handle. Any further use returns
	// ErrClosed.
	Finalize() error
}

// statement owns one native prepared handle.
type statement struct {
	conn        *connection
	handle      native.Stmt
	sql         string
	fingerprint string
	finalized   bool

	// generation changes whenever the statement is reset, re-queried
	// or finalized. A cursor is valid only while its generation
	// matches.
	generation uint64
}

func (s *statement) SQL() string { return s.sql }

func (s *statement) check(op string) error {
	if s.finalized {
		return closedError(op, "statement")
	}
	if s.conn.closed.Load() {
		return closedError(op, "connection")
	}
	return nil
}

func (s *statement) logBind(index int, value any) {
	if s.conn.verbose {
		s.conn.logger.Debug("sqlite bind", "sql_hash", s.fingerprint, "index", index, "value", value)
	}
}

func (s *statement) BindNull(index int) error {
	if err := s.check("bind"); err != nil {
		return err
	}
	s.logBind(index, nil)
	s.handle.BindNull(index)
	return nil
}

func (s *statement) BindInt64(index int, value int64) error {
	if err := s.check("bind"); err != nil {
		return err
	}
	s.logBind(index, value)
	s.handle.BindInt64(index, value)
	return nil
}

func (s *statement) BindFloat(index int, value float64) error {
	if err := s.check("bind"); err != nil {
		return err
	}
	s.logBind(index, value)
	s.handle.BindFloat(index, value)
	return nil
}

func (s *statement) BindText(index int, value string) error {
	if err := s.check("bind"); err != nil {
		return err
	}
	s.logBind(index, value)
	s.handle.BindText(index, value)
	return nil
}

func (s *statement) BindBlob(index int, value []byte) error {
	if err := s.check("bind"); err != nil {
		return err
	}
	s.logBind(index, value)
	s.handle.BindBlob(index, value)
	return nil
}

func (s *statement) BindParameterIndex(name string) (int, error) {
	if err := s.check("bind"); err != nil {
		return 0, err
	}
	count := s.handle.BindParamCount()
	candidates := []string{name}
	if name != "" && !isParameterPrefix(name[0]) {
		candidates = append(candidates, ":"+name, "@"+name, "$"+name)
	}
	for _, candidate := range candidates {
		for index := 1; index <= count; index++ {
			if s.handle.BindParamName(index) == candidate {
				return index, nil
			}
		}
	}
	return 0, fmt.Errorf("sqliter: bind %s: %w", s.fingerprint, &EngineError{
		Code:    native.ResultRange,
		Op:      "bind",
		Message: fmt.Sprintf("statement parameter %s not found", name),
	})
}

func isParameterPrefix(character byte) bool {
	switch character {
	case ':', '@', '$', '?':
		return true
	default:
		return false
	}
}

func (s *statement) Execute() error {
	return s.executeNonQuery()
}

func (s *statement) ExecuteForChangedRowCount() (int, error) {
	if err := s.executeNonQuery(); err != nil {
		return 0, err
	}
	return s.conn.handle.Changes(), nil
}

func (s *statement) ExecuteForLastInsertedRowID() (int64, error) {
	if err := s.executeNonQuery(); err != nil {
		return -1, err
	}
	if s.conn.handle.Changes() > 0 {
		return s.conn.handle.LastInsertRowID(), nil
	}
	return -1, nil
}

// executeNonQuery steps the statement once and then unconditionally
// resets it and clears its bindings.
func (s *statement) executeNonQuery() (err error) {
	if err := s.check("execute"); err != nil {
		return err
	}
	s.generation++
	start := s.conn.clock.Now()

	defer func() {
		resetErr := s.handle.Reset()
		clearErr := s.handle.ClearBindings()
		// Reset repeats the step failure; only report it on success.
		if err == nil && resetErr != nil {
			err = fmt.Errorf("sqliter: reset %s: %w", s.fingerprint, resetErr)
		}
		if err == nil && clearErr != nil {
			err = fmt.Errorf("sqliter: clear bindings %s: %w", s.fingerprint, clearErr)
		}
		if s.conn.verbose {
			s.conn.logger.Debug("sqlite execute",
				"sql", s.sql,
				"sql_hash", s.fingerprint,
				"duration", s.conn.clock.Now().Sub(start),
				"error", err,
			)
		}
	}()

	row, err := s.conn.step(s.handle)
	if err != nil {
		return fmt.Errorf("sqliter: execute %s: %w", s.fingerprint, err)
	}
	if row {
		return fmt.Errorf("sqliter: execute %s: %w", s.fingerprint, &EngineError{
			Code:    native.ResultMisuse,
			Op:      "execute",
			Message: "statement returned rows; use Query",
		})
	}
	return nil
}

func (s *statement) Query() (Cursor, error) {
	if err := s.check("query"); err != nil {
		return nil, err
	}
	// An error from this reset belongs to the previous execution.
	_ = s.handle.Reset()
	s.generation++
	if s.conn.verbose {
		s.conn.logger.Debug("sqlite query", "sql", s.sql, "sql_hash", s.fingerprint)
	}
	return &cursor{stmt: s, generation: s.generation}, nil
}

func (s *statement) Reset() error {
	if err := s.check("reset"); err != nil {
		return err
	}
	s.generation++
	if err := s.handle.Reset(); err != nil {
		return fmt.Errorf("sqliter: reset %s: %w", s.fingerprint, err)
	}
	return nil
}

func (s *statement) ClearBindings() error {
	if err := s.check("clear bindings"); err != nil {
		return err
	}
	if err := s.handle.ClearBindings(); err != nil {
		return fmt.Errorf("sqliter: clear bindings %s: %w", s.fingerprint, err)
	}
	return nil
}

func (s *statement) Finalize() error {
	if s.finalized {
		return closedError("finalize", "statement")
	}
	s.finalized = true
	s.generation++
	delete(s.conn.statements, s)
	if err := s.handle.Finalize(); err != nil {
		return fmt.Errorf("sqliter: finalize %s: %w", s.fingerprint, err)
	}
	return nil
}
