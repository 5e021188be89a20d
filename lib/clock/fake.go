// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// Fake returns a FakeClock reading initial. Time only moves when
// Advance is called, so a goroutine in Sleep stays parked until the
// test releases it.
func Fake(initial time.Time) *FakeClock {
	c := &FakeClock{now: initial}
	c.parked = sync.NewCond(&c.mu)
	return c
}

// FakeClock is a Clock driven by the test. It is safe for concurrent
// use.
type FakeClock struct {
	mu       sync.Mutex
	now      time.Time
	sleepers []sleeper
	parked   *sync.Cond

	sleeps int
	slept  time.Duration
}

type sleeper struct {
	wake time.Time
	done chan struct{}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep parks the caller until Advance moves the clock to or past
// now+d.
func (c *FakeClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.sleeps++
	c.slept += d
	s := sleeper{wake: c.now.Add(d), done: make(chan struct{})}
	c.sleepers = append(c.sleepers, s)
	c.parked.Broadcast()
	c.mu.Unlock()
	<-s.done
}

// Advance moves the clock forward by d and wakes every sleeper whose
// deadline has been reached, earliest first.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []sleeper
	c.sleepers = slices.DeleteFunc(c.sleepers, func(s sleeper) bool {
		if s.wake.After(c.now) {
			return false
		}
		due = append(due, s)
		return true
	})
	c.mu.Unlock()

	slices.SortStableFunc(due, func(a, b sleeper) int { return a.wake.Compare(b.wake) })
	for _, s := range due {
		close(s.done)
	}
}

// WaitForSleepers blocks until at least n goroutines are parked in
// Sleep. Call it before Advance so the advance is not lost to a
// goroutine that has not started sleeping yet.
func (c *FakeClock) WaitForSleepers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.sleepers) < n {
		c.parked.Wait()
	}
}

// Sleeps returns the number of positive-duration Sleep calls so far.
func (c *FakeClock) Sleeps() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sleeps
}

// Slept returns the total duration requested by Sleep calls so far.
func (c *FakeClock) Slept() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slept
}
