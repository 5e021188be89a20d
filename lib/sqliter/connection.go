// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqliter

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/bureau-foundation/sqliter/lib/clock"
	"github.com/bureau-foundation/sqliter/lib/native"
)

// Connection is one database connection: statement creation, raw SQL
// and the transaction state machine.
//
// The value returned by Manager.OpenExclusive must only be used by one
// goroutine at a time. Manager.OpenSynchronized returns a Connection
// that may be shared.
type Connection interface {
	// ID identifies the connection in log output.
	ID() string

	// Exec runs every statement in sql, discarding result rows.
	Exec(sql string) error

	// Prepare compiles one SQL statement. The caller owns the returned
	// Statement and must Finalize it.
	Prepare(sql string) (Statement, error)

	// Begin starts a transaction. It fails with ErrTransactionActive
	// if one is already in progress.
	Begin() error

	// SetTransactionSuccessful marks the current transaction to be
	// committed by EndTransaction.
	SetTransactionSuccessful() error

	// EndTransaction commits the current transaction if it was marked
	// successful and rolls it back otherwise. The connection is idle
	// afterwards even when the commit or rollback fails.
	EndTransaction() error

	// InTransaction reports whether a transaction is in progress.
	InTransaction() bool

	// Close finalizes any statements still open on the connection and
	// closes the native handle. A second Close returns ErrClosed.
	Close() error

	// Closed reports whether Close has been called.
	Closed() bool
}

// transaction is the state of an in-flight transaction.
type transaction struct {
	successful bool
}

// connection owns one native handle. It performs no locking.
type connection struct {
	id      string
	handle  native.Conn
	logger  *slog.Logger
	clock   clock.Clock
	verbose bool

	// onClosed runs after the handle is closed, outside any lock.
	onClosed func()

	transaction *transaction
	closed      atomic.Bool

	// statements holds every statement prepared on this connection
	// that has not been finalized.
	statements map[*statement]struct{}
}

func newConnection(handle native.Conn, logger *slog.Logger, clock clock.Clock, verbose bool) *connection {
	id := uuid.NewString()
	return &connection{
		id:         id,
		handle:     handle,
		logger:     logger.With("connection_id", id),
		clock:      clock,
		verbose:    verbose,
		statements: make(map[*statement]struct{}),
	}
}

func (c *connection) ID() string { return c.id }

func (c *connection) Closed() bool { return c.closed.Load() }

func (c *connection) InTransaction() bool { return c.transaction != nil }

func (c *connection) Exec(sql string) error {
	if c.closed.Load() {
		return closedError("exec", "connection")
	}
	if c.verbose {
		c.logger.Debug("sqlite exec", "sql", sql, "sql_hash", Fingerprint(sql))
	}
	if err := c.handle.ExecScript(sql); err != nil {
		return fmt.Errorf("sqliter: exec %s: %w", Fingerprint(sql), err)
	}
	return nil
}

func (c *connection) Prepare(sql string) (Statement, error) {
	return c.prepare(sql)
}

func (c *connection) prepare(sql string) (*statement, error) {
	if c.closed.Load() {
		return nil, closedError("prepare", "connection")
	}
	handle, err := c.handle.Prepare(sql)
	if err != nil {
		return nil, fmt.Errorf("sqliter: prepare %q: %w", sql, err)
	}
	stmt := &statement{
		conn:        c,
		handle:      handle,
		sql:         sql,
		fingerprint: Fingerprint(sql),
	}
	c.statements[stmt] = struct{}{}
	if c.verbose {
		c.logger.Debug("sqlite prepare", "sql", sql, "sql_hash", stmt.fingerprint)
	}
	return stmt, nil
}

func (c *connection) Begin() error {
	if c.closed.Load() {
		return closedError("begin", "connection")
	}
	if c.transaction != nil {
		return fmt.Errorf("sqliter: begin: %w", ErrTransactionActive)
	}
	if err := c.run("BEGIN"); err != nil {
		return fmt.Errorf("sqliter: begin: %w", err)
	}
	c.transaction = &transaction{}
	return nil
}

func (c *connection) SetTransactionSuccessful() error {
	if c.closed.Load() {
		return closedError("set transaction successful", "connection")
	}
	if c.transaction == nil {
		return fmt.Errorf("sqliter: set transaction successful: %w", ErrNoTransaction)
	}
	c.transaction.successful = true
	return nil
}

func (c *connection) EndTransaction() error {
	if c.closed.Load() {
		return closedError("end transaction", "connection")
	}
	current := c.transaction
	if current == nil {
		return fmt.Errorf("sqliter: end transaction: %w", ErrNoTransaction)
	}
	defer func() { c.transaction = nil }()

	if current.successful {
		err := c.run("COMMIT")
		if err == nil {
			return nil
		}
		// A failed COMMIT can leave the engine inside the transaction.
		// Roll it back so the handle matches the idle state.
		if !c.handle.AutocommitEnabled() {
			if rollbackErr := c.run("ROLLBACK"); rollbackErr != nil {
				c.logger.Error("rollback after failed commit", "error", rollbackErr)
			}
		}
		return fmt.Errorf("sqliter: commit: %w", err)
	}

	// Some errors (SQLITE_FULL, SQLITE_IOERR, ...) make the engine roll
	// back on its own; a second ROLLBACK would fail.
	if c.handle.AutocommitEnabled() {
		return nil
	}
	if err := c.run("ROLLBACK"); err != nil {
		return fmt.Errorf("sqliter: rollback: %w", err)
	}
	return nil
}

func (c *connection) Close() error {
	closed, err := c.closeHandle()
	if closed {
		c.runClosedHook()
	}
	return err
}

func (c *connection) runClosedHook() {
	if c.onClosed != nil {
		c.onClosed()
	}
}

// closeHandle finalizes leftover statements and closes the native
// handle. It reports whether this call did the closing; a second call
// touches nothing and returns ErrClosed.
func (c *connection) closeHandle() (bool, error) {
	if !c.closed.CompareAndSwap(false, true) {
		return false, closedError("close", "connection")
	}
	c.transaction = nil

	var errs []error
	for stmt := range c.statements {
		c.logger.Warn("finalizing statement left open at close", "sql_hash", stmt.fingerprint)
		if err := stmt.handle.Finalize(); err != nil {
			errs = append(errs, err)
		}
		stmt.finalized = true
		stmt.generation++
	}
	clear(c.statements)

	if err := c.handle.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return true, fmt.Errorf("sqliter: close connection %s: %w", c.id, errors.Join(errs...))
	}
	c.logger.Debug("sqlite connection closed")
	return true, nil
}

// run prepares, executes and finalizes a statement that returns no
// rows.
func (c *connection) run(sql string) (err error) {
	stmt, err := c.prepare(sql)
	if err != nil {
		return err
	}
	defer func() {
		if finalizeErr := stmt.Finalize(); finalizeErr != nil && err == nil {
			err = finalizeErr
		}
	}()
	return stmt.Execute()
}

var (
	_ Connection = (*connection)(nil)
	_ Statement  = (*statement)(nil)
	_ Cursor     = (*cursor)(nil)
)
