package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSteppingClockStartsAtEpoch(t *testing.T) {
	clock := NewSteppingClock()
	assert.Equal(t, int64(0), clock.Calls())
	assert.True(t, clock.Now().Equal(Epoch))
}

func TestSteppingClockAdvances(t *testing.T) {
	clock := NewSteppingClock()

	first := clock.Now()
	second := clock.Now()
	third := clock.Now()

	assert.Equal(t, time.Second, second.Sub(first))
	assert.Equal(t, 2*time.Second, third.Sub(first))
	assert.Equal(t, int64(3), clock.Calls())
}

func TestSteppingClockReset(t *testing.T) {
	clock := NewSteppingClock()
	clock.Now()
	clock.Now()

	clock.Reset()
	assert.Equal(t, int64(0), clock.Calls())
	assert.True(t, clock.Now().Equal(Epoch))
}

func TestSteppingClockConcurrent(t *testing.T) {
	clock := NewSteppingClock()
	const goroutines = 50
	const calls = 20

	seen := make(chan time.Time, goroutines*calls)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				seen <- clock.Now()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[time.Time]bool)
	for ts := range seen {
		unique[ts] = true
	}
	assert.Len(t, unique, goroutines*calls)
	assert.Equal(t, int64(goroutines*calls), clock.Calls())
}
