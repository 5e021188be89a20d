// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads database configuration files for the sqliter
// command and for services that embed a pool.
//
// Configuration is loaded from a single file specified by either the
// SQLITER_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks and no automatic file
// search. Files ending in .json or .jsonc are read as JSON with
// comments; everything else is YAML.
//
// The file supports environment-specific sections (development,
// staging, production) that override base values when
// [Config].Environment matches. Production is stricter: verbose data
// logging is forced off and synchronous defaults to FULL.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${CONFIG_DIR}, and ${VAR:-default} patterns are expanded.
//
// A schema directory holds migration scripts named 1.sql, 2.sql and
// so on. [Config.SQLiter] turns them into the Create and Upgrade
// callbacks of a [sqliter.Config].
package config
