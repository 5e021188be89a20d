// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqliter

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/bureau-foundation/sqliter/lib/clock"
	"github.com/bureau-foundation/sqliter/lib/native"
)

// NoVersionCheck as Config.Version skips the migration protocol.
const NoVersionCheck = -1

// DefaultBusyTimeout is the engine busy wait used when
// Config.BusyTimeout is zero.
const DefaultBusyTimeout = 2500 * time.Millisecond

// JournalMode is the engine's write-ahead strategy.
type JournalMode string

const (
	JournalDelete JournalMode = "DELETE"
	JournalWAL    JournalMode = "WAL"
)

// ParseJournalMode maps the engine's report of the journal mode to a
// JournalMode. Anything other than WAL is treated as DELETE, which is
// how in-memory databases ("memory") are reported.
func ParseJournalMode(mode string) JournalMode {
	if strings.EqualFold(mode, string(JournalWAL)) {
		return JournalWAL
	}
	return JournalDelete
}

// Synchronous is the value of PRAGMA synchronous. The empty value
// leaves the engine default in place.
type Synchronous string

const (
	SynchronousOff    Synchronous = "OFF"
	SynchronousNormal Synchronous = "NORMAL"
	SynchronousFull   Synchronous = "FULL"
	SynchronousExtra  Synchronous = "EXTRA"
)

// Lookaside sizes the per-connection lookaside allocator.
type Lookaside struct {
	SlotSize  int
	SlotCount int
}

// Config describes one physical database and how connections to it are
// prepared. A Manager copies the Config it is given; later changes to
// the caller's value have no effect.
type Config struct {
	// Name is the database file name, relative to BasePath. It must
	// not contain a path separator. For in-memory databases a
	// non-empty Name selects a shared named instance; an empty Name
	// gives every connection its own private database. An empty Name
	// on disk opens a temporary database that disappears on close.
	Name string

	// Version is the schema version the application expects, at
	// least 1, or NoVersionCheck.
	Version int

	// Create builds the schema on an empty database. It runs inside
	// the migration transaction.
	Create func(conn Connection) error

	// Upgrade migrates the schema from oldVersion to newVersion. It
	// runs inside the migration transaction.
	Upgrade func(conn Connection, oldVersion, newVersion int) error

	// DowngradeGuard, if set, is called when the stored version is
	// newer than Version, before the open fails. It cannot make the
	// open succeed; an error it returns is attached to the failure.
	DowngradeGuard func(conn Connection, storedVersion, configVersion int) error

	// InMemory selects an in-memory database.
	InMemory bool

	// JournalMode is set on the first connection. Defaults to WAL.
	JournalMode JournalMode

	// BusyTimeout is the engine's own busy wait, applied to every
	// connection. Defaults to DefaultBusyTimeout.
	BusyTimeout time.Duration

	ForeignKeyConstraints bool
	RecursiveTriggers     bool

	Synchronous Synchronous

	// PageSize, when non-zero, is applied before the schema is
	// created. It has no effect on an existing database.
	PageSize int

	// BasePath is the directory holding on-disk databases. Defaults to
	// the user's home directory.
	BasePath string

	// Lookaside, when set, sizes the lookaside allocator on every
	// connection. Failure to apply it fails the open.
	Lookaside *Lookaside

	// EncryptionKey and Rekey are passed to PRAGMA key and PRAGMA
	// rekey. With both set the database is keyed and then re-keyed.
	// Rekey alone is applied as the key, since there is no old key to
	// re-encrypt from. They only have an effect on an engine built with
	// encryption support.
	EncryptionKey string
	Rekey         string

	// OnConnectionOpened runs right after a handle is opened, before
	// any pragma is applied. It runs with the Manager's open lock held
	// and must not open connections from the same Manager.
	OnConnectionOpened func(conn Connection)

	// OnConnectionClosed runs after a connection's handle is closed.
	// When an open fails part way it runs under the Manager's open
	// lock, so it must not open connections from the same Manager
	// either.
	OnConnectionClosed func(conn Connection)

	// Logger receives operational messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger

	// VerboseDataLogging logs every executed statement and bound value
	// at debug level. Bound values may contain sensitive data.
	VerboseDataLogging bool

	// Clock paces busy retries. Defaults to clock.Real().
	Clock clock.Clock

	// Open opens native handles. Defaults to native.Open.
	Open native.OpenFunc
}

// withDefaults returns a copy of c with zero-valued options filled in.
func (c Config) withDefaults() Config {
	if c.JournalMode == "" {
		c.JournalMode = JournalWAL
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = DefaultBusyTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.Clock == nil {
		c.Clock = clock.Real()
	}
	if c.Open == nil {
		c.Open = native.Open
	}
	return c
}

// validate checks options that do not depend on the filesystem.
func (c Config) validate() error {
	if err := checkName(c.Name); err != nil {
		return err
	}
	if c.Version < 1 && c.Version != NoVersionCheck {
		return &ConfigurationError{
			Option:  "version",
			Message: fmt.Sprintf("must be at least 1 or NoVersionCheck, got %d", c.Version),
		}
	}
	switch c.JournalMode {
	case JournalDelete, JournalWAL:
	default:
		return &ConfigurationError{Option: "journal_mode", Message: fmt.Sprintf("unknown mode %q", c.JournalMode)}
	}
	switch c.Synchronous {
	case "", SynchronousOff, SynchronousNormal, SynchronousFull, SynchronousExtra:
	default:
		return &ConfigurationError{Option: "synchronous", Message: fmt.Sprintf("unknown level %q", c.Synchronous)}
	}
	if c.BusyTimeout < 0 {
		return &ConfigurationError{Option: "busy_timeout", Message: "must not be negative"}
	}
	if c.PageSize != 0 && (c.PageSize < 512 || c.PageSize > 65536 || c.PageSize&(c.PageSize-1) != 0) {
		return &ConfigurationError{
			Option:  "page_size",
			Message: fmt.Sprintf("must be a power of two between 512 and 65536, got %d", c.PageSize),
		}
	}
	if c.Lookaside != nil && (c.Lookaside.SlotSize <= 0 || c.Lookaside.SlotCount <= 0) {
		return &ConfigurationError{Option: "lookaside", Message: "slot size and slot count must be positive"}
	}
	return nil
}

// checkName rejects names that would resolve outside the base path.
func checkName(name string) error {
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) || name == "." || name == ".." {
		return &ConfigurationError{Option: "name", Message: fmt.Sprintf("%q", name), Err: ErrInvalidName}
	}
	return nil
}
