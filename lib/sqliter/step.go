// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqliter

import (
	"time"

	"github.com/bureau-foundation/sqliter/lib/native"
)

const (
	// maxStepAttempts bounds how many times one step is tried while the
	// engine reports busy or locked.
	maxStepAttempts = 50

	// busyRetryDelay is the pause between two attempts.
	busyRetryDelay = time.Millisecond
)

// step advances stmt, retrying while another connection holds the lock.
// The engine's own busy timeout runs inside every attempt, so the total
// wait is bounded by roughly maxStepAttempts times the busy timeout.
func (c *connection) step(stmt native.Stmt) (bool, error) {
	var lastErr error
	for attempt := 1; attempt <= maxStepAttempts; attempt++ {
		row, err := stmt.Step()
		if err == nil {
			if attempt > 1 {
				c.logger.Debug("step succeeded after busy retries", "attempts", attempt)
			}
			return row, nil
		}
		if !native.IsRetryable(err) {
			return false, err
		}
		lastErr = err
		if attempt < maxStepAttempts {
			c.clock.Sleep(busyRetryDelay)
		}
	}
	c.logger.Warn("busy retries exhausted", "attempts", maxStepAttempts, "error", lastErr)
	return false, &RetryExhaustedError{Attempts: maxStepAttempts, Err: lastErr}
}
