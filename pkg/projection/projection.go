package projection

import (
	"context"

	"github.com/denhac/spacebot"
)

// Replayable is a projection that can be rebuilt from the full event history.
type Replayable interface {
	spacebot.RecordSubscriber
	Reset()
}

// Replay resets every projection, then feeds each record from the start of
// the log in global order. It returns the number of records replayed.
func Replay(ctx context.Context, store spacebot.Store, projections ...Replayable) (uint64, error) {
	for _, projection := range projections {
		projection.Reset()
	}

	iter := store.EventsStartingWith(ctx, 0)

	totalRecords := uint64(0)
	for iter.NextContext(ctx) {
		for _, projection := range projections {
			projection.Accept(iter.Record())
		}

		totalRecords++
	}

	if iter.Err() != nil {
		return totalRecords, iter.Err()
	}

	return totalRecords, nil
}
