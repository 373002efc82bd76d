package spacebot_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denhac/spacebot"
	"github.com/denhac/spacebot/spacebottest"
)

func TestRecordIterator(t *testing.T) {
	event := &spacebottest.BadgeWasScanned{ReaderID: "A", Number: 1}
	record := &spacebot.Record{
		AggregateType:        event.AggregateType(),
		AggregateID:          event.AggregateID(),
		GlobalSequenceNumber: 1,
		StreamSequenceNumber: 1,
		EventType:            event.EventType(),
		InsertTimestamp:      0,
		Data:                 event,
		Metadata:             nil,
	}

	t.Run("only 1 record in the stream", func(t *testing.T) {
		t.Run("first call to next", func(t *testing.T) {
			// Given
			iter := stubRecordIterator(spacebot.ResultRecord{Record: record, Err: nil})

			// When
			canContinue := iter.Next()

			// Then
			assert.True(t, canContinue)
			assert.Equal(t, record, iter.Record())
			assert.Nil(t, iter.Err())
		})

		t.Run("second call to next", func(t *testing.T) {
			// Given
			iter := stubRecordIterator(spacebot.ResultRecord{Record: record, Err: nil})
			iter.Next()

			// When
			canContinue := iter.Next()

			// Then
			assert.False(t, canContinue)
			assert.Nil(t, iter.Record())
			assert.Nil(t, iter.Err())
		})

		t.Run("first call to next context", func(t *testing.T) {
			// Given
			iter := stubRecordIterator(spacebot.ResultRecord{Record: record, Err: nil})
			ctx := spacebottest.TimeoutContext(t)

			// When
			canContinue := iter.NextContext(ctx)

			// Then
			assert.True(t, canContinue)
			assert.Equal(t, record, iter.Record())
			assert.Nil(t, iter.Err())
		})

		t.Run("timeout from closed context", func(t *testing.T) {
			// Given
			iter := blockingRecordIterator(t)
			canceledCtx, done := context.WithCancel(context.Background())
			done()

			// When
			canContinue := iter.NextContext(canceledCtx)

			// Then
			assert.False(t, canContinue)
			assert.Nil(t, iter.Record())
			assert.Equal(t, context.Canceled, iter.Err())
		})
	})

	t.Run("error retained for use outside of a for loop", func(t *testing.T) {
		// Given
		iter := spacebot.NewRecordIteratorWithError(fmt.Errorf("first error"))
		iter.Next()

		// When
		canContinue := iter.Next()

		// Then
		assert.False(t, canContinue)
		assert.EqualError(t, iter.Err(), "first error")
		assert.Nil(t, iter.Record())
	})

	t.Run("reads records from slice", func(t *testing.T) {
		// Given
		iter := spacebot.NewRecordIteratorFromRecords([]*spacebot.Record{record, record})
		ctx := spacebottest.TimeoutContext(t)

		// When
		records, err := spacebot.ReadRecords(ctx, iter)

		// Then
		require.NoError(t, err)
		assert.Equal(t, []*spacebot.Record{record, record}, records)
	})

	t.Run("read records returns iterator error", func(t *testing.T) {
		// Given
		iter := spacebot.NewRecordIteratorWithError(fmt.Errorf("read failure"))
		ctx := spacebottest.TimeoutContext(t)

		// When
		records, err := spacebot.ReadRecords(ctx, iter)

		// Then
		assert.EqualError(t, err, "read failure")
		assert.Nil(t, records)
	})
}

func stubRecordIterator(resultRecords ...spacebot.ResultRecord) spacebot.RecordIterator {
	resultRecordChan := make(chan spacebot.ResultRecord, len(resultRecords))
	for _, resultRecord := range resultRecords {
		resultRecordChan <- resultRecord
	}
	close(resultRecordChan)
	return spacebot.NewRecordIterator(resultRecordChan)
}

func blockingRecordIterator(t *testing.T) spacebot.RecordIterator {
	resultRecordChan := make(chan spacebot.ResultRecord, 1)
	t.Cleanup(func() {
		close(resultRecordChan)
	})
	return spacebot.NewRecordIterator(resultRecordChan)
}
