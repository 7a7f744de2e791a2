package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant a SteppingClock reports.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// SteppingClock is a wall clock for tests that advances one second per call.
//
// Submission timestamps taken from it are distinct and ordered, so tests can
// assert on them exactly.
//
// Thread-safety: all methods are safe for concurrent use.
type SteppingClock struct {
	mu    sync.Mutex
	ticks int64
}

// NewSteppingClock creates a clock whose first Now is Epoch.
func NewSteppingClock() *SteppingClock {
	return &SteppingClock{}
}

// Now returns Epoch plus one second per previous call.
func (c *SteppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := Epoch.Add(time.Duration(c.ticks) * time.Second)
	c.ticks++
	return t
}

// Calls returns how many times Now has been called.
func (c *SteppingClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Reset rewinds the clock to Epoch.
func (c *SteppingClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}
