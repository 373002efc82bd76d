package recordsubscriber

import (
	"context"

	"github.com/denhac/spacebot"
	"github.com/denhac/spacebot/pkg/broadcast"
)

type Config struct {
	BufferSize    int
	GetRecords    GetRecordsIteratorFunc
	ConsumeRecord ConsumeRecordFunc
	Subscribe     SubscribeFunc
	Unsubscribe   SubscribeFunc
	DoneChan      <-chan struct{}
}

// AllEventsConfig follows every record in the store.
func AllEventsConfig(ctx context.Context, store spacebot.Store, broadcaster broadcast.Broadcaster, bufferSize int, consumeRecord ConsumeRecordFunc) Config {
	return AggregateTypesConfig(ctx, store, broadcaster, bufferSize, nil, consumeRecord)
}

// AggregateTypesConfig follows records of the given aggregate types, or every record when none are given.
func AggregateTypesConfig(ctx context.Context, store spacebot.Store, broadcaster broadcast.Broadcaster, bufferSize int, aggregateTypes []string, consumeRecord ConsumeRecordFunc) Config {
	return Config{
		BufferSize: bufferSize,
		DoneChan:   ctx.Done(),
		Subscribe: func(subscriber broadcast.RecordSubscriber) {
			broadcaster.Subscribe(subscriber, aggregateTypes...)
		},
		Unsubscribe: func(subscriber broadcast.RecordSubscriber) {
			broadcaster.Unsubscribe(subscriber)
		},
		GetRecords: func(globalSequenceNumber uint64) spacebot.RecordIterator {
			if len(aggregateTypes) == 0 {
				return store.EventsStartingWith(ctx, globalSequenceNumber)
			}

			return store.EventsByAggregateTypesStartingWith(ctx, globalSequenceNumber, aggregateTypes...)
		},
		ConsumeRecord: consumeRecord,
	}
}
