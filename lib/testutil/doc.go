// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] bounds a wait on a goroutine's result with a real
// timer. It is the only place in the test suite that uses wall-clock
// time; busy-retry tests otherwise run on lib/clock's fake clock.
//
// [TempDatabase] allocates a database name and a throwaway base
// directory, so tests never collide on disk.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation, such as shared-cache names for in-memory databases.
package testutil
