// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The statement step loop sleeps between busy retries and verbose
// statement logging records elapsed time. Both read a Clock, so tests
// can park the retry loop on Fake and release it one attempt at a time:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go func() { result <- stmt.Execute() }()
//	c.WaitForSleepers(1)        // the step loop is sleeping
//	c.Advance(time.Millisecond) // let it retry
package clock
