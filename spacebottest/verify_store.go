package spacebottest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denhac/spacebot"
	"github.com/denhac/spacebot/pkg/clock"
)

// VerifyStore verifies the Store interface.
func VerifyStore(t *testing.T, newStore func(t *testing.T, clock clock.Clock) spacebot.Store) {
	t.Helper()

	t.Run("get events by stream", func(t *testing.T) {
		// Given
		store := newStore(t, clock.Sequential())
		BindEvents(store)
		ctx := TimeoutContext(t)
		eventA1 := &BadgeWasScanned{ReaderID: "A", Number: 1}
		eventA2 := &BadgeWasScanned{ReaderID: "A", Number: 2}
		eventB := &BadgeWasScanned{ReaderID: "B", Number: 3}
		saveEvents(t, store, eventA1)
		saveEvents(t, store, eventA2)
		saveEvents(t, store, eventB)

		// When
		records := readRecords(t, store.EventsByStreamStartingWith(ctx, 0, spacebot.GetEventStream(eventA1)))

		// Then
		expectedRecords := []*spacebot.Record{
			{
				AggregateType:        "badge",
				AggregateID:          "A",
				GlobalSequenceNumber: 0,
				StreamSequenceNumber: 0,
				EventType:            "BadgeWasScanned",
				InsertTimestamp:      0,
				Data:                 eventA1,
				Metadata:             nil,
			},
			{
				AggregateType:        "badge",
				AggregateID:          "A",
				GlobalSequenceNumber: 1,
				StreamSequenceNumber: 1,
				EventType:            "BadgeWasScanned",
				InsertTimestamp:      1,
				Data:                 eventA2,
				Metadata:             nil,
			},
		}
		assert.Equal(t, expectedRecords, records)
	})

	t.Run("get events by stream starting with second entry", func(t *testing.T) {
		// Given
		store := newStore(t, clock.Sequential())
		BindEvents(store)
		ctx := TimeoutContext(t)
		eventA1 := &BadgeWasScanned{ReaderID: "A", Number: 1}
		eventA2 := &BadgeWasScanned{ReaderID: "A", Number: 2}
		eventB := &BadgeWasScanned{ReaderID: "B", Number: 3}
		saveEvents(t, store, eventA1)
		saveEvents(t, store, eventB)
		saveEvents(t, store, eventA2)

		// When
		records := readRecords(t, store.EventsByStreamStartingWith(ctx, 1, spacebot.GetEventStream(eventA1)))

		// Then
		require.Len(t, records, 1)
		assert.Equal(t, uint64(2), records[0].GlobalSequenceNumber)
		assert.Equal(t, uint64(1), records[0].StreamSequenceNumber)
		assert.Equal(t, eventA2, records[0].Data)
	})

	t.Run("get events by stream, ordered by sequence number lexicographically", func(t *testing.T) {
		// Given
		const totalEventsToRequireBigEndian = 257
		store := newStore(t, clock.Sequential())
		BindEvents(store)
		ctx := TimeoutContext(t)
		events := make([]*BadgeWasScanned, totalEventsToRequireBigEndian)
		for i := range events {
			events[i] = &BadgeWasScanned{ReaderID: "A", Number: i}
			saveEvents(t, store, events[i])
		}

		// When
		records := readRecords(t, store.EventsByStreamStartingWith(ctx, 0, "badge!A"))

		// Then
		require.Len(t, records, len(events))
		for i, record := range records {
			assert.Equal(t, events[i], record.Data)
		}
	})

	t.Run("get all events ordered by global sequence number", func(t *testing.T) {
		// Given
		store := newStore(t, clock.Sequential())
		BindEvents(store)
		ctx := TimeoutContext(t)
		badgeA0 := &BadgeWasScanned{ReaderID: "A", Number: 100}
		badgeB0 := &BadgeWasScanned{ReaderID: "B", Number: 200}
		badgeA1 := &BadgeWasScanned{ReaderID: "A", Number: 300}
		doorX0 := &DoorWasUnlocked{DoorID: "X"}
		saveEvents(t, store, badgeA0)
		saveEvents(t, store, badgeB0)
		saveEvents(t, store, badgeA1)
		saveEvents(t, store, doorX0)

		// When
		records := readRecords(t, store.EventsStartingWith(ctx, 0))

		// Then
		require.Len(t, records, 4)
		assert.Equal(t, []interface{}{badgeA0, badgeB0, badgeA1, doorX0}, recordData(records))
		assert.Equal(t, []uint64{0, 1, 2, 3}, globalSequenceNumbers(records))
		assert.Equal(t, []uint64{0, 0, 1, 0}, streamSequenceNumbers(records))
		assert.Equal(t, "door", records[3].AggregateType)
		assert.Equal(t, "DoorWasUnlocked", records[3].EventType)
	})

	t.Run("get all events starting with second entry", func(t *testing.T) {
		// Given
		store := newStore(t, clock.Sequential())
		BindEvents(store)
		ctx := TimeoutContext(t)
		event1 := &BadgeWasScanned{ReaderID: "A", Number: 1}
		event2 := &BadgeWasScanned{ReaderID: "A", Number: 2}
		saveEvents(t, store, event1)
		saveEvents(t, store, event2)

		// When
		records := readRecords(t, store.EventsStartingWith(ctx, 1))

		// Then
		require.Len(t, records, 1)
		assert.Equal(t, event2, records[0].Data)
		assert.Equal(t, uint64(1), records[0].GlobalSequenceNumber)
		assert.Equal(t, uint64(1), records[0].InsertTimestamp)
	})

	t.Run("get events by aggregate types starting with second entry", func(t *testing.T) {
		// Given
		store := newStore(t, clock.Sequential())
		BindEvents(store)
		ctx := TimeoutContext(t)
		badgeA1 := &BadgeWasScanned{ReaderID: "A", Number: 1}
		doorB := &DoorWasUnlocked{DoorID: "B"}
		badgeA2 := &BadgeWasScanned{ReaderID: "A", Number: 2}
		saveEvents(t, store, badgeA1)
		saveEvents(t, store, doorB)
		saveEvents(t, store, badgeA2)

		// When
		badgeRecords := readRecords(t, store.EventsByAggregateTypesStartingWith(ctx, 1, "badge"))
		allRecords := readRecords(t, store.EventsByAggregateTypesStartingWith(ctx, 1, "badge", "door"))

		// Then
		assert.Equal(t, []interface{}{badgeA2}, recordData(badgeRecords))
		assert.Equal(t, []interface{}{doorB, badgeA2}, recordData(allRecords))
	})

	t.Run("saves multiple events to one stream in a single call", func(t *testing.T) {
		// Given
		store := newStore(t, clock.Sequential())
		BindEvents(store)
		ctx := TimeoutContext(t)
		event1 := &BadgeWasScanned{ReaderID: "A", Number: 1}
		event2 := &BadgeWasScanned{ReaderID: "A", Number: 2}

		// When
		err := store.Save(ctx,
			&spacebot.EventRecord{Event: event1},
			&spacebot.EventRecord{Event: event2},
		)

		// Then
		require.NoError(t, err)
		records := readRecords(t, store.EventsByStreamStartingWith(ctx, 0, "badge!A"))
		assert.Equal(t, []interface{}{event1, event2}, recordData(records))
		assert.Equal(t, []uint64{0, 1}, streamSequenceNumbers(records))
		totalEvents, err := store.TotalEventsInStream(ctx, "badge!A")
		require.NoError(t, err)
		assert.Equal(t, uint64(2), totalEvents)
	})

	t.Run("save fails when events span streams and persists nothing", func(t *testing.T) {
		// Given
		store := newStore(t, clock.Sequential())
		BindEvents(store)
		ctx := TimeoutContext(t)

		// When
		err := store.Save(ctx,
			&spacebot.EventRecord{Event: &BadgeWasScanned{ReaderID: "A", Number: 1}},
			&spacebot.EventRecord{Event: &BadgeWasScanned{ReaderID: "B", Number: 2}},
		)

		// Then
		assert.Equal(t, spacebot.ErrEventsMustShareStream, err)
		assert.Len(t, readRecords(t, store.EventsStartingWith(ctx, 0)), 0)
	})

	t.Run("optimistic save succeeds with expected stream sequence number", func(t *testing.T) {
		// Given
		store := newStore(t, clock.Sequential())
		BindEvents(store)
		ctx := TimeoutContext(t)
		event1 := &BadgeWasScanned{ReaderID: "A", Number: 1}
		event2 := &BadgeWasScanned{ReaderID: "A", Number: 2}
		event3 := &BadgeWasScanned{ReaderID: "A", Number: 3}
		require.NoError(t, store.OptimisticSave(ctx, 0, &spacebot.EventRecord{Event: event1}))

		// When
		err := store.OptimisticSave(ctx, 1,
			&spacebot.EventRecord{Event: event2},
			&spacebot.EventRecord{Event: event3},
		)

		// Then
		require.NoError(t, err)
		records := readRecords(t, store.EventsByStreamStartingWith(ctx, 0, "badge!A"))
		assert.Equal(t, []interface{}{event1, event2, event3}, recordData(records))
	})

	t.Run("optimistic save fails with unexpected stream sequence number and persists nothing", func(t *testing.T) {
		// Given
		store := newStore(t, clock.Sequential())
		BindEvents(store)
		ctx := TimeoutContext(t)
		subscriber := NewRecordCollector()
		require.NoError(t, store.Subscribe(ctx, subscriber))
		saveEvents(t, store, &BadgeWasScanned{ReaderID: "A", Number: 1})

		// When
		err := store.OptimisticSave(ctx, 0,
			&spacebot.EventRecord{Event: &BadgeWasScanned{ReaderID: "A", Number: 2}},
			&spacebot.EventRecord{Event: &BadgeWasScanned{ReaderID: "A", Number: 3}},
		)

		// Then
		require.Error(t, err)
		sequenceErr, ok := err.(*spacebot.UnexpectedSequenceNumber)
		require.True(t, ok, "unexpected error type: %T", err)
		assert.Equal(t, uint64(0), sequenceErr.Expected)
		assert.Equal(t, uint64(1), sequenceErr.NextSequenceNumber)
		assert.Len(t, readRecords(t, store.EventsStartingWith(ctx, 0)), 1)
		assert.Len(t, subscriber.Records(), 1)
	})

	t.Run("saves metadata", func(t *testing.T) {
		// Given
		store := newStore(t, clock.Sequential())
		BindEvents(store)
		ctx := TimeoutContext(t)
		metadata := map[string]interface{}{"source": "webhook"}

		// When
		err := store.Save(ctx, &spacebot.EventRecord{
			Event:    &DoorWasUnlocked{DoorID: "front"},
			Metadata: metadata,
		})

		// Then
		require.NoError(t, err)
		records := readRecords(t, store.EventsStartingWith(ctx, 0))
		require.Len(t, records, 1)
		assert.Equal(t, metadata, records[0].Metadata)
		assert.Len(t, records[0].EventID, 32)
	})

	t.Run("subscribers receive records in order after save", func(t *testing.T) {
		// Given
		store := newStore(t, clock.Sequential())
		BindEvents(store)
		ctx := TimeoutContext(t)
		subscriber := NewRecordCollector()
		require.NoError(t, store.Subscribe(ctx, subscriber))
		event1 := &BadgeWasScanned{ReaderID: "A", Number: 1}
		event2 := &BadgeWasScanned{ReaderID: "A", Number: 2}
		event3 := &DoorWasUnlocked{DoorID: "X"}

		// When
		require.NoError(t, store.Save(ctx,
			&spacebot.EventRecord{Event: event1},
			&spacebot.EventRecord{Event: event2},
		))
		saveEvents(t, store, event3)

		// Then
		records := subscriber.Records()
		assert.Equal(t, []interface{}{event1, event2, event3}, recordData(records))
		assert.Equal(t, []uint64{0, 1, 2}, globalSequenceNumbers(records))
	})

	t.Run("total events in missing stream is zero", func(t *testing.T) {
		// Given
		store := newStore(t, clock.Sequential())
		ctx := TimeoutContext(t)

		// When
		totalEvents, err := store.TotalEventsInStream(ctx, "badge!missing")

		// Then
		require.NoError(t, err)
		assert.Equal(t, uint64(0), totalEvents)
	})

	t.Run("stops reading from canceled context", func(t *testing.T) {
		// Given
		store := newStore(t, clock.Sequential())
		BindEvents(store)
		saveEvents(t, store, &BadgeWasScanned{ReaderID: "A", Number: 1})
		saveEvents(t, store, &BadgeWasScanned{ReaderID: "A", Number: 2})
		ctx, done := context.WithCancel(context.Background())
		done()

		// When
		iter := store.EventsStartingWith(ctx, 0)

		// Then
		for iter.NextContext(ctx) {
		}
		assert.Equal(t, context.Canceled, iter.Err())
	})
}

// RecordCollector is a RecordSubscriber that keeps every record it receives.
type RecordCollector struct {
	mux     sync.RWMutex
	records []*spacebot.Record
}

// NewRecordCollector constructs a RecordCollector.
func NewRecordCollector() *RecordCollector {
	return &RecordCollector{}
}

// Accept receives a Record.
func (c *RecordCollector) Accept(record *spacebot.Record) {
	c.mux.Lock()
	c.records = append(c.records, record)
	c.mux.Unlock()
}

// Records returns a copy of the received records.
func (c *RecordCollector) Records() []*spacebot.Record {
	c.mux.RLock()
	defer c.mux.RUnlock()

	records := make([]*spacebot.Record, len(c.records))
	copy(records, c.records)
	return records
}

func saveEvents(t *testing.T, store spacebot.Store, events ...spacebot.Event) {
	t.Helper()

	eventRecords := make([]*spacebot.EventRecord, len(events))
	for i, event := range events {
		eventRecords[i] = &spacebot.EventRecord{Event: event}
	}

	require.NoError(t, store.Save(TimeoutContext(t), eventRecords...))
}

func readRecords(t *testing.T, iter spacebot.RecordIterator) []*spacebot.Record {
	t.Helper()

	records, err := spacebot.ReadRecords(TimeoutContext(t), iter)
	require.NoError(t, err)

	for _, record := range records {
		assert.Len(t, record.EventID, 32)
		record.EventID = ""
	}

	return records
}

func recordData(records []*spacebot.Record) []interface{} {
	data := make([]interface{}, len(records))
	for i, record := range records {
		data[i] = record.Data
	}
	return data
}

func globalSequenceNumbers(records []*spacebot.Record) []uint64 {
	numbers := make([]uint64, len(records))
	for i, record := range records {
		numbers[i] = record.GlobalSequenceNumber
	}
	return numbers
}

func streamSequenceNumbers(records []*spacebot.Record) []uint64 {
	numbers := make([]uint64, len(records))
	for i, record := range records {
		numbers[i] = record.StreamSequenceNumber
	}
	return numbers
}
