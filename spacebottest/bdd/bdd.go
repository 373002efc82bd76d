package bdd

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denhac/spacebot"
)

// Command defines a command routed to a single aggregate stream.
type Command interface {
	spacebot.AggregateMessage
	CommandType() string
}

// CommandDispatcher dispatches a command during the When step.
type CommandDispatcher func(ctx context.Context, command Command) error

// TestCase holds a Given/When/Then scenario against a Store.
type TestCase struct {
	store          spacebot.Store
	dispatch       CommandDispatcher
	previousEvents []spacebot.Event
	commands       []Command
}

// New constructs a TestCase.
func New(store spacebot.Store, commandDispatcher CommandDispatcher) *TestCase {
	return &TestCase{
		store:    store,
		dispatch: commandDispatcher,
	}
}

// Given saves events before the commands are dispatched.
func (c *TestCase) Given(events ...spacebot.Event) *TestCase {
	c.previousEvents = events
	return c
}

// When sets the commands to dispatch, in order.
func (c *TestCase) When(commands ...Command) *TestCase {
	c.commands = commands
	return c
}

// Then asserts the events raised by When, grouped per stream.
func (c *TestCase) Then(expectedEvents ...spacebot.Event) func(*testing.T) {
	return func(t *testing.T) {
		t.Helper()
		ctx := context.Background()

		streamPreviousEventCounts := c.run(t, ctx)

		if len(expectedEvents) == 0 {
			allRecords, err := spacebot.ReadRecords(ctx, c.store.EventsStartingWith(ctx, 0))
			require.NoError(t, err)

			totalEmittedEvents := len(allRecords) - len(c.previousEvents)
			require.Equal(t, 0, totalEmittedEvents)
			return
		}

		streamExpectedEvents := make(map[string][]spacebot.Event)
		for _, event := range expectedEvents {
			stream := spacebot.GetEventStream(event)
			streamExpectedEvents[stream] = append(streamExpectedEvents[stream], event)
		}

		for stream, expectedEventsInStream := range streamExpectedEvents {
			eventNumber := streamPreviousEventCounts[stream]
			actualEvents, err := readEvents(ctx, c.store.EventsByStreamStartingWith(ctx, eventNumber, stream))
			require.NoError(t, err)

			assert.Equal(t, expectedEventsInStream, actualEvents, "stream: %s", stream)
		}
	}
}

// ThenInspectEvents passes every event raised by When to f.
func (c *TestCase) ThenInspectEvents(f func(t *testing.T, events []spacebot.Event)) func(t *testing.T) {
	return func(t *testing.T) {
		t.Helper()
		ctx := context.Background()

		streamPreviousEventCounts := c.run(t, ctx)

		streams, err := getStreamsFromStore(ctx, c.store)
		require.NoError(t, err)

		var events []spacebot.Event
		for _, stream := range streams {
			eventNumber := streamPreviousEventCounts[stream]
			actualEvents, err := readEvents(ctx, c.store.EventsByStreamStartingWith(ctx, eventNumber, stream))
			require.NoError(t, err)

			events = append(events, actualEvents...)
		}

		f(t, events)
	}
}

func (c *TestCase) run(t *testing.T, ctx context.Context) map[string]uint64 {
	t.Helper()

	streamPreviousEventCounts := make(map[string]uint64)
	for _, event := range c.previousEvents {
		streamPreviousEventCounts[spacebot.GetEventStream(event)]++
		require.NoError(t, c.store.Save(ctx, &spacebot.EventRecord{Event: event}))
	}

	for _, command := range c.commands {
		require.NoError(t, c.dispatch(ctx, command))
	}

	return streamPreviousEventCounts
}

func getStreamsFromStore(ctx context.Context, store spacebot.Store) ([]string, error) {
	records, err := spacebot.ReadRecords(ctx, store.EventsStartingWith(ctx, 0))
	if err != nil {
		return nil, err
	}

	streams := make(map[string]struct{})
	for _, record := range records {
		streams[spacebot.GetStream(record.AggregateType, record.AggregateID)] = struct{}{}
	}

	keys := make([]string, 0, len(streams))
	for k := range streams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys, nil
}

func readEvents(ctx context.Context, iter spacebot.RecordIterator) ([]spacebot.Event, error) {
	var events []spacebot.Event

	for iter.NextContext(ctx) {
		event, ok := iter.Record().Data.(spacebot.Event)
		if !ok {
			return nil, fmt.Errorf("unbound event type: %T", iter.Record().Data)
		}

		events = append(events, event)
	}

	if iter.Err() != nil {
		return nil, iter.Err()
	}

	return events, nil
}
