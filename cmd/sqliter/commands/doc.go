// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the sqliter command tree. Every command that
// touches a database loads it from a configuration file and opens it
// through lib/sqlitepool, so the binary exercises the same open,
// migration and retry paths as an embedding service.
package commands
