// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework of the sqliter binary: a tree
// of [Command] values parsed with pflag, typo suggestions for unknown
// commands and flags, the command logger, and result output as a
// table, JSON or CBOR.
package cli
