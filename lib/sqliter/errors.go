// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqliter

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/sqliter/lib/native"
)

var (
	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrInvalidName reports a database name containing a path
	// separator.
	ErrInvalidName = errors.New("database name contains a path separator")

	// ErrDowngrade reports a stored schema version newer than the
	// configured one.
	ErrDowngrade = errors.New("schema downgrade not allowed")

	// ErrTransactionState is matched by ErrTransactionActive and
	// ErrNoTransaction.
	ErrTransactionState = errors.New("invalid transaction state")

	// ErrTransactionActive is returned by Begin while a transaction is
	// already in progress on the connection.
	ErrTransactionActive = fmt.Errorf("%w: transaction already active", ErrTransactionState)

	// ErrNoTransaction is returned by SetTransactionSuccessful and
	// EndTransaction when no transaction is in progress.
	ErrNoTransaction = fmt.Errorf("%w: no transaction", ErrTransactionState)

	// ErrRetryExhausted is matched by every *RetryExhaustedError.
	ErrRetryExhausted = errors.New("busy retry count exceeded")

	// ErrClosed is returned for any operation on a closed connection,
	// a finalized statement or an invalidated cursor. Closing a
	// connection twice also returns ErrClosed.
	ErrClosed = errors.New("closed")

	// ErrNoRows is returned by the single-value query helpers when the
	// query produced no row.
	ErrNoRows = errors.New("query returned no rows")
)

// EngineError is a failure reported by the native engine. It carries
// the numeric result code and decodes it into a symbolic category.
type EngineError = native.Error

// ConfigurationError reports a configuration the manager cannot honor:
// an invalid option, a name containing a path separator, or a stored
// schema version newer than the configured one.
type ConfigurationError struct {
	// Option names the offending configuration field, if any.
	Option string

	// Message describes the problem.
	Message string

	// Err is the underlying cause (ErrInvalidName, ErrDowngrade, an
	// engine error), or nil.
	Err error
}

func (err *ConfigurationError) Error() string {
	message := err.Message
	if err.Option != "" {
		message = err.Option + ": " + message
	}
	if err.Err != nil {
		return fmt.Sprintf("sqliter: %s: %s: %v", ErrConfiguration, message, err.Err)
	}
	return fmt.Sprintf("sqliter: %s: %s", ErrConfiguration, message)
}

func (err *ConfigurationError) Unwrap() error { return err.Err }

// Is makes errors.Is(err, ErrConfiguration) true.
func (err *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// MigrationError reports a create or upgrade callback that failed.
// By the time it is returned the migration transaction has been rolled
// back and the connection closed.
type MigrationError struct {
	From int
	To   int
	Err  error
}

func (err *MigrationError) Error() string {
	if err.From == 0 {
		return fmt.Sprintf("sqliter: creating schema version %d: %v", err.To, err.Err)
	}
	return fmt.Sprintf("sqliter: upgrading schema from version %d to %d: %v", err.From, err.To, err.Err)
}

func (err *MigrationError) Unwrap() error { return err.Err }

// RetryExhaustedError reports a statement that kept failing with busy
// or locked after every step attempt.
type RetryExhaustedError struct {
	Attempts int

	// Err is the engine error from the final attempt.
	Err error
}

func (err *RetryExhaustedError) Error() string {
	return fmt.Sprintf("sqliter: %s after %d attempts: %v", ErrRetryExhausted, err.Attempts, err.Err)
}

func (err *RetryExhaustedError) Unwrap() error { return err.Err }

// Is makes errors.Is(err, ErrRetryExhausted) true.
func (err *RetryExhaustedError) Is(target error) bool { return target == ErrRetryExhausted }

// IsMigration reports whether err is a failed create or upgrade.
func IsMigration(err error) bool {
	var migrationError *MigrationError
	return errors.As(err, &migrationError)
}

// Category returns the engine category of err, or
// native.CategoryUnknown if err did not come from the engine.
func Category(err error) native.Category {
	var engineError *EngineError
	if errors.As(err, &engineError) {
		return engineError.Category()
	}
	return native.CategoryUnknown
}

// IsBusy reports whether err is an engine busy failure.
func IsBusy(err error) bool { return Category(err) == native.CategoryBusy }

// IsLocked reports whether err is an engine locked failure.
func IsLocked(err error) bool { return Category(err) == native.CategoryLocked }

// IsConstraint reports whether err is a constraint violation.
func IsConstraint(err error) bool { return Category(err) == native.CategoryConstraint }

func closedError(op, resource string) error {
	return fmt.Errorf("sqliter: %s: %s %w", op, resource, ErrClosed)
}
