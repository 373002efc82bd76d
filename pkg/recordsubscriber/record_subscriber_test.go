package recordsubscriber_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denhac/spacebot"
	"github.com/denhac/spacebot/pkg/broadcast"
	"github.com/denhac/spacebot/pkg/recordsubscriber"
)

func TestRecordSubscriber(t *testing.T) {
	t.Run("consumes existing records, then live records", func(t *testing.T) {
		// Given
		consumer := newRecordConsumer()
		subscriber := recordsubscriber.New(recordsubscriber.Config{
			BufferSize:    10,
			GetRecords:    recordsIterator(0, 1),
			ConsumeRecord: consumer.consume,
			Subscribe:     stubSubscribeFunc,
			Unsubscribe:   stubSubscribeFunc,
		})
		require.NoError(t, subscriber.StartFrom(0))
		t.Cleanup(subscriber.Stop)

		// When
		subscriber.Receiver() <- record(2)

		// Then
		assert.Equal(t, []uint64{0, 1, 2}, consumer.waitFor(t, 3))
	})

	t.Run("skips live records already consumed while catching up", func(t *testing.T) {
		// Given
		consumer := newRecordConsumer()
		subscriber := recordsubscriber.New(recordsubscriber.Config{
			BufferSize:    10,
			GetRecords:    recordsIterator(0, 1),
			ConsumeRecord: consumer.consume,
			Subscribe:     stubSubscribeFunc,
			Unsubscribe:   stubSubscribeFunc,
		})
		subscriber.Receiver() <- record(1)
		require.NoError(t, subscriber.StartFrom(0))
		t.Cleanup(subscriber.Stop)

		// When
		subscriber.Receiver() <- record(2)

		// Then
		assert.Equal(t, []uint64{0, 1, 2}, consumer.waitFor(t, 3))
	})

	t.Run("first record of an empty log arrives live", func(t *testing.T) {
		// Given
		consumer := newRecordConsumer()
		subscriber := recordsubscriber.New(recordsubscriber.Config{
			BufferSize:    10,
			GetRecords:    recordsIterator(),
			ConsumeRecord: consumer.consume,
			Subscribe:     stubSubscribeFunc,
			Unsubscribe:   stubSubscribeFunc,
		})
		require.NoError(t, subscriber.StartFrom(0))
		t.Cleanup(subscriber.Stop)

		// When
		subscriber.Receiver() <- record(0)

		// Then
		assert.Equal(t, []uint64{0}, consumer.waitFor(t, 1))
	})

	t.Run("catches up on records saved while subscribing", func(t *testing.T) {
		// Given
		consumer := newRecordConsumer()
		calls := 0
		subscriber := recordsubscriber.New(recordsubscriber.Config{
			BufferSize: 10,
			GetRecords: func(globalSequenceNumber uint64) spacebot.RecordIterator {
				calls++
				if calls == 1 {
					return recordsIterator(0)(globalSequenceNumber)
				}
				return recordsIterator(0, 1)(globalSequenceNumber)
			},
			ConsumeRecord: consumer.consume,
			Subscribe:     stubSubscribeFunc,
			Unsubscribe:   stubSubscribeFunc,
		})

		// When
		err := subscriber.StartFrom(0)
		t.Cleanup(subscriber.Stop)

		// Then
		require.NoError(t, err)
		assert.Equal(t, []uint64{0, 1}, consumer.waitFor(t, 2))
	})

	t.Run("consume error during replay", func(t *testing.T) {
		// Given
		subscribed := false
		subscriber := recordsubscriber.New(recordsubscriber.Config{
			BufferSize: 10,
			GetRecords: recordsIterator(0),
			ConsumeRecord: func(record *spacebot.Record) error {
				return fmt.Errorf("consume record error")
			},
			Subscribe: func(subscriber broadcast.RecordSubscriber) {
				subscribed = true
			},
			Unsubscribe: stubSubscribeFunc,
		})

		// When
		err := subscriber.StartFrom(0)

		// Then
		assert.EqualError(t, err, "consume record error")
		assert.False(t, subscribed)
		assertClosed(t, subscriber.Done())
	})

	t.Run("read error during replay", func(t *testing.T) {
		// Given
		subscriber := recordsubscriber.New(recordsubscriber.Config{
			BufferSize: 10,
			GetRecords: func(globalSequenceNumber uint64) spacebot.RecordIterator {
				return spacebot.NewRecordIteratorWithError(fmt.Errorf("read error"))
			},
			ConsumeRecord: func(record *spacebot.Record) error { return nil },
			Subscribe:     stubSubscribeFunc,
			Unsubscribe:   stubSubscribeFunc,
		})

		// When
		err := subscriber.StartFrom(0)

		// Then
		assert.EqualError(t, err, "read error")
	})

	t.Run("consume error on a live record unsubscribes", func(t *testing.T) {
		// Given
		unsubscribed := make(chan struct{})
		subscriber := recordsubscriber.New(recordsubscriber.Config{
			BufferSize: 10,
			GetRecords: recordsIterator(),
			ConsumeRecord: func(record *spacebot.Record) error {
				return fmt.Errorf("consume record error")
			},
			Subscribe: stubSubscribeFunc,
			Unsubscribe: func(subscriber broadcast.RecordSubscriber) {
				close(unsubscribed)
			},
		})
		require.NoError(t, subscriber.StartFrom(0))

		// When
		subscriber.Receiver() <- record(0)

		// Then
		assertClosed(t, unsubscribed)
		assertClosed(t, subscriber.Done())
	})

	t.Run("done channel unsubscribes", func(t *testing.T) {
		// Given
		doneChan := make(chan struct{})
		unsubscribed := make(chan struct{})
		subscriber := recordsubscriber.New(recordsubscriber.Config{
			BufferSize:    10,
			GetRecords:    recordsIterator(),
			ConsumeRecord: func(record *spacebot.Record) error { return nil },
			Subscribe:     stubSubscribeFunc,
			Unsubscribe: func(subscriber broadcast.RecordSubscriber) {
				close(unsubscribed)
			},
			DoneChan: doneChan,
		})
		require.NoError(t, subscriber.StartFrom(0))

		// When
		close(doneChan)

		// Then
		assertClosed(t, unsubscribed)
	})

	t.Run("stop twice", func(t *testing.T) {
		// Given
		subscriber := recordsubscriber.New(recordsubscriber.Config{
			BufferSize:    10,
			GetRecords:    recordsIterator(),
			ConsumeRecord: func(record *spacebot.Record) error { return nil },
			Subscribe:     stubSubscribeFunc,
			Unsubscribe:   stubSubscribeFunc,
		})
		require.NoError(t, subscriber.StartFrom(0))

		// When
		subscriber.Stop()
		subscriber.Stop()

		// Then
		assertClosed(t, subscriber.Done())
	})
}

func stubSubscribeFunc(_ broadcast.RecordSubscriber) {}

func record(globalSequenceNumber uint64) *spacebot.Record {
	return &spacebot.Record{
		AggregateType:        "membership",
		AggregateID:          "1042",
		GlobalSequenceNumber: globalSequenceNumber,
		EventType:            "CardAdded",
	}
}

func recordsIterator(globalSequenceNumbers ...uint64) recordsubscriber.GetRecordsIteratorFunc {
	return func(startingWith uint64) spacebot.RecordIterator {
		var records []*spacebot.Record
		for _, globalSequenceNumber := range globalSequenceNumbers {
			if globalSequenceNumber >= startingWith {
				records = append(records, record(globalSequenceNumber))
			}
		}

		return spacebot.NewRecordIteratorFromRecords(records)
	}
}

type recordConsumer struct {
	mux                   sync.Mutex
	globalSequenceNumbers []uint64
}

func newRecordConsumer() *recordConsumer {
	return &recordConsumer{}
}

func (c *recordConsumer) consume(record *spacebot.Record) error {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.globalSequenceNumbers = append(c.globalSequenceNumbers, record.GlobalSequenceNumber)
	return nil
}

func (c *recordConsumer) waitFor(t *testing.T, total int) []uint64 {
	t.Helper()
	assert.Eventually(t, func() bool {
		c.mux.Lock()
		defer c.mux.Unlock()
		return len(c.globalSequenceNumbers) >= total
	}, time.Second, time.Millisecond)

	c.mux.Lock()
	defer c.mux.Unlock()
	return append([]uint64(nil), c.globalSequenceNumbers...)
}

func assertClosed(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for close")
	}
}
