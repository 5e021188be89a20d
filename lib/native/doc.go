// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package native is the boundary between sqliter and the embedded SQL
// engine. It defines the handle-based primitives the driver relies on
// (open, prepare, step, bind, column reads, finalize) as the [Conn] and
// [Stmt] interfaces, and decodes engine result codes into a symbolic
// [Category].
//
// [Open] is the production implementation backed by
// zombiezen.com/go/sqlite. Handles returned by Open are not safe for
// concurrent use: every caller above this package is responsible for
// serializing access to one Conn and the statements prepared on it.
//
// Engine failures are reported as [*Error], which carries the raw
// result code and the engine message. Use [CodeOf] to extract the code
// from a wrapped error chain.
package native
