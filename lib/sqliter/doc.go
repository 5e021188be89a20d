// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqliter is a connection, transaction and statement layer over
// the embedded SQLite engine.
//
// A [Manager] owns the configuration for one physical database. Every
// connection it opens gets the same pragmas (busy timeout, foreign keys,
// recursive triggers, synchronous, cipher key). The first connection
// additionally applies the page size and journal mode and runs the
// versioned schema migration inside a single transaction:
//
//   - stored version 0: Config.Create builds the schema;
//   - stored version below Config.Version: Config.Upgrade migrates it;
//   - stored version above Config.Version: the open fails with a
//     [ConfigurationError] wrapping [ErrDowngrade] and nothing is written.
//
// A failed create or upgrade rolls back, closes the connection and
// returns a [*MigrationError].
//
// # Connections
//
// [Manager.OpenExclusive] returns a [Connection] with no locking; the
// caller keeps it on one goroutine at a time. [Manager.OpenSynchronized]
// returns a [Synchronized] connection whose statements and cursors share
// one mutex, so it can be handed to many goroutines.
//
// Transactions follow a small state machine. [Connection.Begin] starts
// one, [Connection.SetTransactionSuccessful] marks it for commit and
// [Connection.EndTransaction] commits or rolls back. [WithTransaction]
// wraps the three:
//
//	err := sqliter.WithTransaction(conn, func(conn sqliter.Connection) error {
//	    return sqliter.WithStatement(conn, "INSERT INTO item(name) VALUES (?)", func(stmt sqliter.Statement) error {
//	        if err := stmt.BindText(1, "first"); err != nil {
//	            return err
//	        }
//	        return stmt.Execute()
//	    })
//	})
//
// # Busy handling
//
// Each step is attempted up to 50 times while the engine reports
// SQLITE_BUSY or SQLITE_LOCKED, sleeping 1ms between attempts on the
// configured [clock.Clock]. The engine's own busy timeout applies inside
// every attempt. A step that never gets through fails with
// [*RetryExhaustedError].
//
// Pooling and statement caching live in package sqlitepool.
package sqliter
