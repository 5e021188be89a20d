// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/bureau-foundation/sqliter/lib/sqliter"
)

// Schema is a directory of migration scripts. Script N.sql moves the
// schema from version N-1 to version N; 1.sql creates it from nothing.
type Schema struct {
	directory string
	scripts   map[int]string
}

// LoadSchema reads every <version>.sql file in directory. Other files
// are ignored.
func LoadSchema(directory string) (*Schema, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, fmt.Errorf("config: reading schema directory: %w", err)
	}

	schema := &Schema{directory: directory, scripts: make(map[int]string)}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".sql" {
			continue
		}
		version, err := strconv.Atoi(strings.TrimSuffix(name, ".sql"))
		if err != nil || version < 1 {
			return nil, fmt.Errorf("config: schema script %s: name must be a positive version number", name)
		}
		data, err := os.ReadFile(filepath.Join(directory, name))
		if err != nil {
			return nil, fmt.Errorf("config: reading schema script: %w", err)
		}
		schema.scripts[version] = string(data)
	}
	if len(schema.scripts) == 0 {
		return nil, fmt.Errorf("config: schema directory %s has no <version>.sql scripts", directory)
	}
	return schema, nil
}

// Latest returns the highest script version.
func (s *Schema) Latest() int {
	return slices.Max(slices.Collect(maps.Keys(s.scripts)))
}

// Covers checks that every script from 1 through version exists.
func (s *Schema) Covers(version int) error {
	var missing []error
	for v := 1; v <= version; v++ {
		if _, ok := s.scripts[v]; !ok {
			missing = append(missing, fmt.Errorf("missing %d.sql", v))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: schema %s does not reach version %d: %w", s.directory, version, errors.Join(missing...))
	}
	return nil
}

// Create returns a create callback that runs scripts 1 through version.
func (s *Schema) Create(version int) func(sqliter.Connection) error {
	return func(conn sqliter.Connection) error {
		return s.run(conn, 1, version)
	}
}

// Upgrade runs scripts oldVersion+1 through newVersion.
func (s *Schema) Upgrade(conn sqliter.Connection, oldVersion, newVersion int) error {
	return s.run(conn, oldVersion+1, newVersion)
}

func (s *Schema) run(conn sqliter.Connection, from, to int) error {
	for version := from; version <= to; version++ {
		script, ok := s.scripts[version]
		if !ok {
			return fmt.Errorf("no script for schema version %d", version)
		}
		if err := conn.Exec(script); err != nil {
			return fmt.Errorf("%d.sql: %w", version, err)
		}
	}
	return nil
}
