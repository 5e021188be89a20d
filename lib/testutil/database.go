// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"testing"
)

// TempDatabase returns a fresh database name and a base directory for
// it. The directory, and with it every file the engine creates next to
// the database, is removed when the test completes.
//
//	name, basePath := testutil.TempDatabase(t)
//	manager, err := sqliter.NewManager(sqliter.Config{Name: name, BasePath: basePath, Version: 1})
func TempDatabase(t *testing.T) (name, basePath string) {
	t.Helper()
	return UniqueID("test") + ".db", t.TempDir()
}
