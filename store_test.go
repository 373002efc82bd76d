package spacebot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denhac/spacebot"
	"github.com/denhac/spacebot/spacebottest"
)

func TestGetEventStream(t *testing.T) {
	// Given
	event := spacebottest.BadgeWasScanned{ReaderID: "abc"}

	// When
	stream := spacebot.GetEventStream(event)

	// Then
	assert.Equal(t, "badge!abc", stream)
}

func TestParseStream(t *testing.T) {
	t.Run("splits aggregate type and id", func(t *testing.T) {
		// When
		aggregateType, aggregateID := spacebot.ParseStream("membership!1234")

		// Then
		assert.Equal(t, "membership", aggregateType)
		assert.Equal(t, "1234", aggregateID)
	})

	t.Run("keeps separators within the aggregate id", func(t *testing.T) {
		// When
		aggregateType, aggregateID := spacebot.ParseStream("membership!12!34")

		// Then
		assert.Equal(t, "membership", aggregateType)
		assert.Equal(t, "12!34", aggregateID)
	})

	t.Run("missing separator", func(t *testing.T) {
		// When
		aggregateType, aggregateID := spacebot.ParseStream("membership")

		// Then
		assert.Equal(t, "membership", aggregateType)
		assert.Equal(t, "", aggregateID)
	})
}

func TestStreamOfEventRecords(t *testing.T) {
	t.Run("shared stream", func(t *testing.T) {
		// Given
		eventRecords := []*spacebot.EventRecord{
			{Event: spacebottest.BadgeWasScanned{ReaderID: "A", Number: 1}},
			{Event: spacebottest.BadgeWasScanned{ReaderID: "A", Number: 2}},
		}

		// When
		stream, err := spacebot.StreamOfEventRecords(eventRecords)

		// Then
		require.NoError(t, err)
		assert.Equal(t, "badge!A", stream)
	})

	t.Run("mixed streams", func(t *testing.T) {
		// Given
		eventRecords := []*spacebot.EventRecord{
			{Event: spacebottest.BadgeWasScanned{ReaderID: "A", Number: 1}},
			{Event: spacebottest.DoorWasUnlocked{DoorID: "A"}},
		}

		// When
		_, err := spacebot.StreamOfEventRecords(eventRecords)

		// Then
		assert.Equal(t, spacebot.ErrEventsMustShareStream, err)
	})

	t.Run("no events", func(t *testing.T) {
		// When
		_, err := spacebot.StreamOfEventRecords(nil)

		// Then
		assert.Equal(t, spacebot.ErrNoEvents, err)
	})
}

func TestUnexpectedSequenceNumber_Error(t *testing.T) {
	// Given
	err := spacebot.UnexpectedSequenceNumber{Expected: 2, NextSequenceNumber: 5}

	// Then
	assert.EqualError(t, err, "unexpected sequence number: 2, next: 5")
}
