// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/sqliter/lib/sqliter"
)

// ErrMixedBinding is returned when one use of a statement binds some
// parameters by automatic position and others by explicit index or
// name.
var ErrMixedBinding = errors.New("sqlitepool: cannot mix automatic and explicit parameter binding")

// Statement is a cached prepared statement with positional binding.
// The automatic methods (Int64, Text, ...) bind parameters 1, 2, 3 in
// call order; the At and Named variants bind an explicit parameter.
// One use of the statement must stick to one style.
//
// A Statement is only valid inside the callback it was passed to.
type Statement struct {
	stmt sqliter.Statement
	sql  string

	// next is the index the following automatic bind uses.
	next     int
	explicit bool
}

func newStatement(sql string, stmt sqliter.Statement) *Statement {
	return &Statement{stmt: stmt, sql: sql, next: 1}
}

// SQL returns the statement text, which is also its cache key.
func (s *Statement) SQL() string { return s.sql }

// Raw returns the underlying statement for operations the binder does
// not wrap, such as Query.
func (s *Statement) Raw() sqliter.Statement { return s.stmt }

func (s *Statement) autoIndex() (int, error) {
	if s.explicit {
		return 0, ErrMixedBinding
	}
	index := s.next
	s.next++
	return index, nil
}

func (s *Statement) explicitIndex(index int) (int, error) {
	if s.next > 1 {
		return 0, ErrMixedBinding
	}
	s.explicit = true
	return index, nil
}

func (s *Statement) namedIndex(name string) (int, error) {
	index, err := s.stmt.BindParameterIndex(name)
	if err != nil {
		return 0, err
	}
	return s.explicitIndex(index)
}

// Null binds NULL to the next parameter.
func (s *Statement) Null() error {
	index, err := s.autoIndex()
	if err != nil {
		return err
	}
	return s.stmt.BindNull(index)
}

// Int64 binds value to the next parameter.
func (s *Statement) Int64(value int64) error {
	index, err := s.autoIndex()
	if err != nil {
		return err
	}
	return s.stmt.BindInt64(index, value)
}

// Float binds value to the next parameter.
func (s *Statement) Float(value float64) error {
	index, err := s.autoIndex()
	if err != nil {
		return err
	}
	return s.stmt.BindFloat(index, value)
}

// Text binds value to the next parameter.
func (s *Statement) Text(value string) error {
	index, err := s.autoIndex()
	if err != nil {
		return err
	}
	return s.stmt.BindText(index, value)
}

// Blob binds value to the next parameter.
func (s *Statement) Blob(value []byte) error {
	index, err := s.autoIndex()
	if err != nil {
		return err
	}
	return s.stmt.BindBlob(index, value)
}

func (s *Statement) NullAt(index int) error {
	index, err := s.explicitIndex(index)
	if err != nil {
		return err
	}
	return s.stmt.BindNull(index)
}

func (s *Statement) Int64At(index int, value int64) error {
	index, err := s.explicitIndex(index)
	if err != nil {
		return err
	}
	return s.stmt.BindInt64(index, value)
}

func (s *Statement) FloatAt(index int, value float64) error {
	index, err := s.explicitIndex(index)
	if err != nil {
		return err
	}
	return s.stmt.BindFloat(index, value)
}

func (s *Statement) TextAt(index int, value string) error {
	index, err := s.explicitIndex(index)
	if err != nil {
		return err
	}
	return s.stmt.BindText(index, value)
}

func (s *Statement) BlobAt(index int, value []byte) error {
	index, err := s.explicitIndex(index)
	if err != nil {
		return err
	}
	return s.stmt.BindBlob(index, value)
}

// Named binds value to the parameter called name (":name", "@name" or
// "$name"). value is converted as in Args.
func (s *Statement) Named(name string, value any) error {
	index, err := s.namedIndex(name)
	if err != nil {
		return err
	}
	return bindValue(s.stmt, index, value)
}

// Args binds values to consecutive parameters, converting each by its
// Go type: nil, integers, bool (0 or 1), floats, string and []byte.
func (s *Statement) Args(values ...any) error {
	for _, value := range values {
		index, err := s.autoIndex()
		if err != nil {
			return err
		}
		if err := bindValue(s.stmt, index, value); err != nil {
			return err
		}
	}
	return nil
}

func bindValue(stmt sqliter.Statement, index int, value any) error {
	switch v := value.(type) {
	case nil:
		return stmt.BindNull(index)
	case int:
		return stmt.BindInt64(index, int64(v))
	case int32:
		return stmt.BindInt64(index, int64(v))
	case int64:
		return stmt.BindInt64(index, v)
	case uint32:
		return stmt.BindInt64(index, int64(v))
	case bool:
		if v {
			return stmt.BindInt64(index, 1)
		}
		return stmt.BindInt64(index, 0)
	case float32:
		return stmt.BindFloat(index, float64(v))
	case float64:
		return stmt.BindFloat(index, v)
	case string:
		return stmt.BindText(index, v)
	case []byte:
		return stmt.BindBlob(index, v)
	default:
		return fmt.Errorf("sqlitepool: cannot bind parameter %d of type %T", index, value)
	}
}

// Execute runs the statement, which must not return rows. Like Insert
// and UpdateDelete it leaves the statement ready to be bound again from
// the first parameter.
func (s *Statement) Execute() error {
	defer s.rewind()
	return s.stmt.Execute()
}

// Insert runs the statement and returns the new rowid, or -1 if no row
// was inserted.
func (s *Statement) Insert() (int64, error) {
	defer s.rewind()
	return s.stmt.ExecuteForLastInsertedRowID()
}

// UpdateDelete runs the statement and returns the number of changed
// rows.
func (s *Statement) UpdateDelete() (int, error) {
	defer s.rewind()
	return s.stmt.ExecuteForChangedRowCount()
}

// Query starts reading rows.
func (s *Statement) Query() (sqliter.Cursor, error) { return s.stmt.Query() }

func (s *Statement) rewind() {
	s.next = 1
	s.explicit = false
}

// reset readies the statement for its next user.
func (s *Statement) reset() error {
	s.rewind()
	return errors.Join(s.stmt.Reset(), s.stmt.ClearBindings())
}
