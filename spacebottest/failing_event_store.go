package spacebottest

import (
	"context"
	"fmt"

	"github.com/denhac/spacebot"
)

type failingEventStore struct{}

// NewFailingEventStore constructs a Store whose writes always fail.
func NewFailingEventStore() *failingEventStore {
	return &failingEventStore{}
}

func (f failingEventStore) Bind(_ ...spacebot.Event) {}

func (f failingEventStore) EventsStartingWith(_ context.Context, _ uint64) spacebot.RecordIterator {
	return spacebot.NewRecordIteratorFromRecords(nil)
}

func (f failingEventStore) EventsByAggregateTypesStartingWith(_ context.Context, _ uint64, _ ...string) spacebot.RecordIterator {
	return spacebot.NewRecordIteratorFromRecords(nil)
}

func (f failingEventStore) EventsByStreamStartingWith(_ context.Context, _ uint64, _ string) spacebot.RecordIterator {
	return spacebot.NewRecordIteratorFromRecords(nil)
}

func (f failingEventStore) OptimisticSave(_ context.Context, _ uint64, _ ...*spacebot.EventRecord) error {
	return fmt.Errorf("failingEventStore.OptimisticSave")
}

func (f failingEventStore) Save(_ context.Context, _ ...*spacebot.EventRecord) error {
	return fmt.Errorf("failingEventStore.Save")
}

func (f failingEventStore) Subscribe(_ context.Context, _ ...spacebot.RecordSubscriber) error {
	return nil
}

func (f failingEventStore) TotalEventsInStream(_ context.Context, _ string) (uint64, error) {
	return 0, nil
}

type failingReadEventStore struct {
	spacebot.Store
}

// NewFailingReadEventStore wraps a Store so that every stream read fails.
func NewFailingReadEventStore(store spacebot.Store) *failingReadEventStore {
	return &failingReadEventStore{Store: store}
}

func (f failingReadEventStore) EventsByStreamStartingWith(_ context.Context, _ uint64, _ string) spacebot.RecordIterator {
	return spacebot.NewRecordIteratorWithError(fmt.Errorf("failingReadEventStore.EventsByStreamStartingWith"))
}
