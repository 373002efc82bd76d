package broadcast_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/denhac/spacebot"
	"github.com/denhac/spacebot/pkg/broadcast"
)

const timeout = 10 * time.Millisecond

func TestBroadcast(t *testing.T) {
	t.Run("subscribe to all events", func(t *testing.T) {
		t.Run("broadcasts record to single subscriber", func(t *testing.T) {
			// Given
			broadcaster := broadcast.New(10, broadcast.WithTimeout(timeout))
			t.Cleanup(broadcaster.Close)
			spySubscriber := newSpySubscriber()
			record := membershipRecord(0)
			broadcaster.Subscribe(spySubscriber)

			// When
			broadcaster.Accept(record)

			// Then
			assertReceivedRecord(t, spySubscriber, record)
		})

		t.Run("broadcasts record to two subscribers", func(t *testing.T) {
			// Given
			broadcaster := broadcast.New(10, broadcast.WithTimeout(timeout))
			t.Cleanup(broadcaster.Close)
			spySubscriber1 := newSpySubscriber()
			spySubscriber2 := newSpySubscriber()
			record := membershipRecord(0)
			broadcaster.Subscribe(spySubscriber1)
			broadcaster.Subscribe(spySubscriber2)

			// When
			broadcaster.Accept(record)

			// Then
			assertReceivedRecord(t, spySubscriber1, record)
			assertReceivedRecord(t, spySubscriber2, record)
		})

		t.Run("drops a blocking subscriber and still reaches the other", func(t *testing.T) {
			// Given
			core, logs := observer.New(zapcore.WarnLevel)
			broadcaster := broadcast.New(10,
				broadcast.WithTimeout(time.Nanosecond),
				broadcast.WithLogger(zap.New(core)),
			)
			t.Cleanup(broadcaster.Close)
			blockingSubscriber := newBlockingSubscriber()
			spySubscriber := newSpySubscriber()
			record := membershipRecord(0)
			broadcaster.Subscribe(blockingSubscriber)
			broadcaster.Subscribe(spySubscriber)

			// When
			broadcaster.Accept(record)

			// Then
			assert.True(t, <-blockingSubscriber.stopChan)
			assertReceivedRecord(t, spySubscriber, record)
			assert.Equal(t, 1, logs.FilterMessage("dropping slow subscriber").Len())
		})

		t.Run("unsubscribes without sending on closed channel", func(t *testing.T) {
			// Given
			broadcaster := broadcast.New(10, broadcast.WithTimeout(timeout))
			t.Cleanup(broadcaster.Close)
			spySubscriber := newSpySubscriber()
			broadcaster.Subscribe(spySubscriber)
			broadcaster.Unsubscribe(spySubscriber)

			// When
			broadcaster.Accept(membershipRecord(0))

			// Then
			actualRecord, err := spySubscriber.Read()
			assert.Equal(t, context.DeadlineExceeded, err)
			assert.Nil(t, actualRecord)
		})
	})

	t.Run("subscribe to events by aggregate type", func(t *testing.T) {
		t.Run("receives only matching records", func(t *testing.T) {
			// Given
			broadcaster := broadcast.New(10, broadcast.WithTimeout(timeout))
			t.Cleanup(broadcaster.Close)
			spySubscriber := newSpySubscriber()
			doorRecord := &spacebot.Record{AggregateType: "door", AggregateID: "front", GlobalSequenceNumber: 0}
			record := membershipRecord(1)
			broadcaster.Subscribe(spySubscriber, record.AggregateType)

			// When
			broadcaster.Accept(doorRecord)
			broadcaster.Accept(record)

			// Then
			assertReceivedRecord(t, spySubscriber, record)
		})
	})

	t.Run("close stops every subscriber", func(t *testing.T) {
		// Given
		broadcaster := broadcast.New(10, broadcast.WithTimeout(timeout))
		blockingSubscriber := newBlockingSubscriber()
		broadcaster.Subscribe(blockingSubscriber)

		// When
		broadcaster.Close()

		// Then
		assert.True(t, <-blockingSubscriber.stopChan)
	})
}

func membershipRecord(globalSequenceNumber uint64) *spacebot.Record {
	return &spacebot.Record{
		AggregateType:        "membership",
		AggregateID:          "1042",
		GlobalSequenceNumber: globalSequenceNumber,
		EventType:            "CardAdded",
		Data:                 map[string]interface{}{"cardNumber": "100"},
	}
}

func assertReceivedRecord(t *testing.T, spySubscriber *spySubscriber, record *spacebot.Record) {
	t.Helper()
	actualRecord, err := spySubscriber.Read()
	require.NoError(t, err)
	assert.Equal(t, record, actualRecord)
}

type spySubscriber struct {
	bufferedRecords chan *spacebot.Record
}

func newSpySubscriber() *spySubscriber {
	return &spySubscriber{
		bufferedRecords: make(chan *spacebot.Record, 10),
	}
}

func (s *spySubscriber) Receiver() broadcast.SendRecordChan {
	return s.bufferedRecords
}

func (s *spySubscriber) Stop() {}

func (s *spySubscriber) Read() (*spacebot.Record, error) {
	select {
	case <-time.After(100 * time.Millisecond):
		return nil, context.DeadlineExceeded
	case record := <-s.bufferedRecords:
		return record, nil
	}
}

type blockingSubscriber struct {
	unbufferedRecords chan *spacebot.Record
	stopChan          chan bool
}

func newBlockingSubscriber() *blockingSubscriber {
	return &blockingSubscriber{
		unbufferedRecords: make(chan *spacebot.Record),
		stopChan:          make(chan bool, 1),
	}
}

func (s *blockingSubscriber) Receiver() broadcast.SendRecordChan {
	return s.unbufferedRecords
}

func (s *blockingSubscriber) Stop() {
	s.stopChan <- true
}
