// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/sqliter/lib/sqliter"
	"github.com/bureau-foundation/sqliter/lib/testutil"
)

func writeSchema(t *testing.T, scripts map[string]string) string {
	t.Helper()
	directory := t.TempDir()
	for name, content := range scripts {
		writeFile(t, filepath.Join(directory, name), content)
	}
	return directory
}

func openWithSchema(t *testing.T, name, basePath, schema string, version int) (sqliter.Connection, error) {
	t.Helper()
	cfg := Default()
	cfg.Database.Name = name
	cfg.Database.BasePath = basePath
	cfg.Database.Version = version
	cfg.Schema = schema

	converted, err := cfg.SQLiter()
	if err != nil {
		t.Fatalf("SQLiter() failed: %v", err)
	}
	manager, err := sqliter.NewManager(converted)
	if err != nil {
		t.Fatalf("NewManager() failed: %v", err)
	}
	conn, err := manager.OpenExclusive()
	if err == nil {
		t.Cleanup(func() { conn.Close() })
	}
	return conn, err
}

func TestSchema_CreateAndUpgrade(t *testing.T) {
	schema := writeSchema(t, map[string]string{
		"1.sql":     "CREATE TABLE note (id INTEGER PRIMARY KEY, body TEXT);",
		"2.sql":     "ALTER TABLE note ADD COLUMN created INTEGER NOT NULL DEFAULT 0;",
		"README.md": "not a script",
	})
	name, basePath := testutil.TempDatabase(t)

	conn, err := openWithSchema(t, name, basePath, schema, 1)
	if err != nil {
		t.Fatalf("open at version 1: %v", err)
	}
	if err := conn.Exec("INSERT INTO note (body) VALUES ('first')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	conn.Close()

	// Version 0 in the file means the newest script.
	conn, err = openWithSchema(t, name, basePath, schema, 0)
	if err != nil {
		t.Fatalf("open at latest version: %v", err)
	}
	version, err := sqliter.Version(conn)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if version != 2 {
		t.Errorf("expected schema version 2, got %d", version)
	}
	created, err := sqliter.LongForQuery(conn, "SELECT created FROM note WHERE body = 'first'")
	if err != nil {
		t.Fatalf("query upgraded column: %v", err)
	}
	if created != 0 {
		t.Errorf("expected default 0 in upgraded column, got %d", created)
	}
}

func TestSchema_Gaps(t *testing.T) {
	schema := writeSchema(t, map[string]string{
		"1.sql": "CREATE TABLE a (id INTEGER);",
		"3.sql": "CREATE TABLE c (id INTEGER);",
	})
	loaded, err := LoadSchema(schema)
	if err != nil {
		t.Fatalf("LoadSchema: %v", err)
	}
	if loaded.Latest() != 3 {
		t.Errorf("expected latest 3, got %d", loaded.Latest())
	}
	err = loaded.Covers(3)
	if err == nil || !strings.Contains(err.Error(), "missing 2.sql") {
		t.Fatalf("expected missing 2.sql, got %v", err)
	}
}

func TestSchema_BadNames(t *testing.T) {
	schema := writeSchema(t, map[string]string{"create.sql": "SELECT 1;"})
	if _, err := LoadSchema(schema); err == nil {
		t.Fatal("expected a non-numeric script name to be rejected")
	}

	empty := t.TempDir()
	if _, err := LoadSchema(empty); err == nil {
		t.Fatal("expected an empty schema directory to be rejected")
	}
}
