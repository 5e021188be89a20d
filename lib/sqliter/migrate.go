// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqliter

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Version returns the schema version stored in the database header
// (PRAGMA user_version). A new database reports 0.
func Version(conn Connection) (int, error) {
	version, err := LongForQuery(conn, "PRAGMA user_version")
	if err != nil {
		return 0, fmt.Errorf("sqliter: reading schema version: %w", err)
	}
	return int(version), nil
}

// SetVersion stores version in the database header.
func SetVersion(conn Connection, version int) error {
	if err := drain(conn, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("sqliter: writing schema version %d: %w", version, err)
	}
	return nil
}

// JournalModeOf reports the journal mode the database is using.
func JournalModeOf(conn Connection) (JournalMode, error) {
	mode, err := StringForQuery(conn, "PRAGMA journal_mode")
	if err != nil {
		return "", fmt.Errorf("sqliter: reading journal mode: %w", err)
	}
	return ParseJournalMode(mode), nil
}

// SetJournalMode switches the journal mode and returns the mode the
// engine actually selected. In-memory databases cannot use WAL and stay
// in their own mode.
func SetJournalMode(conn Connection, mode JournalMode) (JournalMode, error) {
	result, err := StringForQuery(conn, "PRAGMA journal_mode = "+string(mode))
	if err != nil {
		return "", fmt.Errorf("sqliter: setting journal mode %s: %w", mode, err)
	}
	return ParseJournalMode(result), nil
}

// quoteLiteral renders value as an SQL string literal.
func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func boolPragma(enabled bool) string {
	if enabled {
		return "1"
	}
	return "0"
}

// migrate brings the schema to config.Version inside one transaction. A
// failure rolls the transaction back, leaving the stored schema and
// version untouched.
func migrate(conn Connection, config Config, logger *slog.Logger) error {
	target := config.Version
	return WithTransaction(conn, func(conn Connection) error {
		stored, err := Version(conn)
		if err != nil {
			return err
		}

		switch {
		case stored == 0:
			if config.Create != nil {
				if err := config.Create(conn); err != nil {
					return &MigrationError{From: 0, To: target, Err: err}
				}
			}
			if err := SetVersion(conn, target); err != nil {
				return err
			}
			logger.Info("database schema created", "version", target)

		case stored > target:
			cause := ErrDowngrade
			if config.DowngradeGuard != nil {
				if guardErr := config.DowngradeGuard(conn, stored, target); guardErr != nil {
					cause = errors.Join(ErrDowngrade, guardErr)
				}
			}
			return &ConfigurationError{
				Option:  "version",
				Message: fmt.Sprintf("database version %d newer than config version %d", stored, target),
				Err:     cause,
			}

		case stored < target:
			if config.Upgrade == nil {
				return &MigrationError{From: stored, To: target, Err: errors.New("no upgrade function configured")}
			}
			if err := config.Upgrade(conn, stored, target); err != nil {
				return &MigrationError{From: stored, To: target, Err: err}
			}
			if err := SetVersion(conn, target); err != nil {
				return err
			}
			logger.Info("database schema upgraded", "from", stored, "to", target)
		}
		return nil
	})
}
