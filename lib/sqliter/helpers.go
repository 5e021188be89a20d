// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqliter

import (
	"errors"
	"fmt"
)

// WithStatement prepares sql, passes the statement to fn and finalizes
// it afterwards, whatever fn returns.
func WithStatement(conn Connection, sql string, fn func(stmt Statement) error) (err error) {
	stmt, err := conn.Prepare(sql)
	if err != nil {
		return err
	}
	defer func() {
		if finalizeErr := stmt.Finalize(); finalizeErr != nil && err == nil {
			err = finalizeErr
		}
	}()
	return fn(stmt)
}

// WithTransaction runs fn inside a transaction. The transaction commits
// if fn returns nil and rolls back otherwise, including when fn panics.
func WithTransaction(conn Connection, fn func(conn Connection) error) (err error) {
	if err := conn.Begin(); err != nil {
		return err
	}
	defer func() {
		if endErr := conn.EndTransaction(); endErr != nil {
			if err == nil {
				err = endErr
			} else {
				err = errors.Join(err, endErr)
			}
		}
	}()
	if err := fn(conn); err != nil {
		return err
	}
	return conn.SetTransactionSuccessful()
}

// LongForQuery returns the first column of the first row produced by
// sql as an integer. It returns ErrNoRows if there is no row.
func LongForQuery(conn Connection, sql string) (int64, error) {
	var value int64
	err := firstRow(conn, sql, func(cursor Cursor) {
		value = cursor.Int64(0)
	})
	return value, err
}

// StringForQuery returns the first column of the first row produced by
// sql as text. It returns ErrNoRows if there is no row.
func StringForQuery(conn Connection, sql string) (string, error) {
	var value string
	err := firstRow(conn, sql, func(cursor Cursor) {
		value = cursor.Text(0)
	})
	return value, err
}

func firstRow(conn Connection, sql string, read func(Cursor)) error {
	return WithStatement(conn, sql, func(stmt Statement) error {
		cursor, err := stmt.Query()
		if err != nil {
			return err
		}
		row, err := cursor.Next()
		if err != nil {
			return err
		}
		if !row {
			return fmt.Errorf("sqliter: %s: %w", Fingerprint(sql), ErrNoRows)
		}
		read(cursor)
		return nil
	})
}

// drain runs sql and discards every row it produces. Pragmas report
// their new value as a row on some engine builds and nothing on others.
func drain(conn Connection, sql string) error {
	return WithStatement(conn, sql, func(stmt Statement) error {
		cursor, err := stmt.Query()
		if err != nil {
			return err
		}
		for {
			row, err := cursor.Next()
			if err != nil || !row {
				return err
			}
		}
	})
}
