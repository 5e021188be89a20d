// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqliter

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
)

// Manager opens connections to one physical database. It applies the
// configured pragmas to every connection and runs the schema migration
// the first time a connection is opened.
//
// Open calls on one Manager are serialized. A Manager holds no handles
// of its own and needs no cleanup.
type Manager struct {
	config Config
	path   string
	logger *slog.Logger

	mu sync.Mutex

	// initialized is set once the first connection has applied the
	// journal mode and migrated the schema. It is never set for
	// databases that exist only as long as their handle, because every
	// new handle is a fresh database.
	initialized atomic.Bool
}

// NewManager validates config and resolves the database path. The
// Manager keeps its own copy of config.
func NewManager(config Config) (*Manager, error) {
	config = config.withDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}
	path, err := resolvePath(config)
	if err != nil {
		return nil, err
	}
	return &Manager{
		config: config,
		path:   path,
		logger: config.Logger.With("path", displayPath(path)),
	}, nil
}

func displayPath(path string) string {
	if path == "" {
		return "(temporary)"
	}
	return path
}

// Path is the path handed to the engine: a file path, ":memory:", ""
// for a temporary database, or a "file:" URI for a named in-memory
// database.
func (m *Manager) Path() string { return m.path }

// Config returns the configuration with defaults applied.
func (m *Manager) Config() Config { return m.config }

// Initialized reports whether the first-connection setup has completed.
func (m *Manager) Initialized() bool { return m.initialized.Load() }

// OpenExclusive opens a connection that performs no locking. The caller
// must not use it from more than one goroutine at a time.
func (m *Manager) OpenExclusive() (Connection, error) {
	conn, err := m.open(func(conn *connection) Connection { return conn })
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// OpenSynchronized opens a connection that may be shared between
// goroutines.
func (m *Manager) OpenSynchronized() (*Synchronized, error) {
	var wrapper *Synchronized
	_, err := m.open(func(conn *connection) Connection {
		wrapper = newSynchronized(conn)
		return wrapper
	})
	if err != nil {
		return nil, err
	}
	return wrapper, nil
}

// open opens and configures one connection. wrap builds the value the
// caller will see; lifecycle hooks receive that value.
func (m *Manager) open(wrap func(*connection) Connection) (_ Connection, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	handle, err := m.config.Open(m.path)
	if err != nil {
		return nil, fmt.Errorf("sqliter: opening %s: %w", displayPath(m.path), err)
	}
	conn := newConnection(handle, m.logger, m.config.Clock, m.config.VerboseDataLogging)
	public := wrap(conn)
	if hook := m.config.OnConnectionClosed; hook != nil {
		conn.onClosed = func() { hook(public) }
	}

	defer func() {
		if err != nil {
			if closeErr := conn.Close(); closeErr != nil {
				m.logger.Error("closing connection after failed open", "error", closeErr)
			}
		}
	}()

	handle.SetBusyTimeout(m.config.BusyTimeout)
	if hook := m.config.OnConnectionOpened; hook != nil {
		hook(public)
	}
	if err := m.configure(conn); err != nil {
		return nil, err
	}
	if !m.initialized.Load() {
		if err := m.initialize(conn); err != nil {
			return nil, err
		}
		if !isEphemeral(m.path) {
			m.initialized.Store(true)
		}
	}
	m.logger.Debug("sqlite connection opened", "connection_id", conn.id)
	return public, nil
}

// configure applies the settings every connection needs.
func (m *Manager) configure(conn *connection) error {
	if lookaside := m.config.Lookaside; lookaside != nil {
		if err := conn.handle.ConfigureLookaside(lookaside.SlotSize, lookaside.SlotCount); err != nil {
			return &ConfigurationError{
				Option:  "lookaside",
				Message: fmt.Sprintf("applying slot size %d, slot count %d", lookaside.SlotSize, lookaside.SlotCount),
				Err:     err,
			}
		}
	}

	var pragmas []string
	if m.config.Synchronous != "" {
		pragmas = append(pragmas, "PRAGMA synchronous = "+string(m.config.Synchronous))
	}
	switch key, rekey := m.config.EncryptionKey, m.config.Rekey; {
	case key != "" && rekey != "":
		pragmas = append(pragmas, "PRAGMA key = "+quoteLiteral(key), "PRAGMA rekey = "+quoteLiteral(rekey))
	case key != "":
		pragmas = append(pragmas, "PRAGMA key = "+quoteLiteral(key))
	case rekey != "":
		// Nothing to re-encrypt from: the new key is the key.
		pragmas = append(pragmas, "PRAGMA key = "+quoteLiteral(rekey))
	}
	pragmas = append(pragmas,
		"PRAGMA foreign_keys = "+boolPragma(m.config.ForeignKeyConstraints),
		"PRAGMA recursive_triggers = "+boolPragma(m.config.RecursiveTriggers),
	)
	for _, pragma := range pragmas {
		if err := drain(conn, pragma); err != nil {
			// Never echo the key material.
			name, _, _ := strings.Cut(pragma, " =")
			return fmt.Errorf("sqliter: applying %s: %w", name, err)
		}
	}
	return nil
}

// initialize runs the once-per-database setup: page size, journal mode
// and the schema migration.
func (m *Manager) initialize(conn *connection) error {
	if m.config.PageSize != 0 {
		if err := drain(conn, fmt.Sprintf("PRAGMA page_size = %d", m.config.PageSize)); err != nil {
			return fmt.Errorf("sqliter: applying page_size: %w", err)
		}
	}

	current, err := JournalModeOf(conn)
	if err != nil {
		return err
	}
	if current != m.config.JournalMode {
		selected, err := SetJournalMode(conn, m.config.JournalMode)
		if err != nil {
			return err
		}
		if selected != m.config.JournalMode {
			m.logger.Warn("engine kept a different journal mode",
				"requested", m.config.JournalMode,
				"selected", selected,
			)
		}
	}

	if m.config.Version == NoVersionCheck {
		return nil
	}
	return migrate(conn, m.config, m.logger)
}
