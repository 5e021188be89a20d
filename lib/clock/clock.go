// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time source a connection uses for busy-retry pacing and
// statement timing.
type Clock interface {
	Now() time.Time

	// Sleep blocks the calling goroutine for at least d. Non-positive
	// durations return immediately.
	Sleep(d time.Duration)
}

// Real returns the wall clock.
func Real() Clock { return wallClock{} }

type wallClock struct{}

func (wallClock) Now() time.Time        { return time.Now() }
func (wallClock) Sleep(d time.Duration) { time.Sleep(d) }
