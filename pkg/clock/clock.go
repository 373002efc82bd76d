package clock

import (
	"sync"
	"time"
)

// Clock stamps records as they are appended.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// System returns the wall clock.
func System() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

type sequentialClock struct {
	mux  sync.Mutex
	next time.Time
}

// Sequential returns a clock for tests: the unix epoch on the first call,
// then one second later on every call after.
func Sequential() Clock {
	return &sequentialClock{next: time.Unix(0, 0)}
}

func (c *sequentialClock) Now() time.Time {
	c.mux.Lock()
	defer c.mux.Unlock()

	now := c.next
	c.next = c.next.Add(time.Second)
	return now
}
