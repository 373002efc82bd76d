package spacebot

import (
	"errors"
	"fmt"
)

// ErrNoEvents is returned when saving zero event records.
var ErrNoEvents = errors.New("no events to save")

// ErrEventsMustShareStream is returned when a single save spans more than one stream.
var ErrEventsMustShareStream = errors.New("events must belong to the same stream")

// UnexpectedSequenceNumber is returned when an optimistic save does not match
// the next stream sequence number.
type UnexpectedSequenceNumber struct {
	Expected           uint64
	NextSequenceNumber uint64
}

func (e UnexpectedSequenceNumber) Error() string {
	return fmt.Sprintf("unexpected sequence number: %d, next: %d",
		e.Expected,
		e.NextSequenceNumber,
	)
}
