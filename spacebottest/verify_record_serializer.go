package spacebottest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denhac/spacebot"
)

// VerifyRecordSerializer verifies the RecordSerializer interface.
func VerifyRecordSerializer(t *testing.T, newSerializer func() spacebot.RecordSerializer) {
	t.Helper()

	t.Run("serialize and deserialize with bound event", func(t *testing.T) {
		// Given
		serializer := newSerializer()
		BindEvents(serializer)
		record := newBadgeRecord("60f01cc527844cde9953c998a2c077a7")

		// When
		serializedData, err := serializer.Serialize(record)

		// Then
		require.NoError(t, err)
		actualRecord, err := serializer.Deserialize(serializedData)
		require.NoError(t, err)
		assert.Equal(t, record, actualRecord)
	})

	t.Run("serialize and deserialize with unbound event", func(t *testing.T) {
		// Given
		serializer := newSerializer()
		record := newBadgeRecord("7e488a8af27148cb98920f11902d930c")

		// When
		serializedData, err := serializer.Serialize(record)

		// Then
		require.NoError(t, err)
		actualRecord, err := serializer.Deserialize(serializedData)
		require.NoError(t, err)
		assertUnboundBadgeRecord(t, record, actualRecord)
	})

	t.Run("serialize with bound event and deserialize with unbound event", func(t *testing.T) {
		// Given
		boundSerializer := newSerializer()
		BindEvents(boundSerializer)
		record := newBadgeRecord("7e488a8af27148cb98920f11902d930c")
		serializedData, err := boundSerializer.Serialize(record)
		require.NoError(t, err)
		unboundSerializer := newSerializer()

		// When
		actualRecord, err := unboundSerializer.Deserialize(serializedData)

		// Then
		require.NoError(t, err)
		assertUnboundBadgeRecord(t, record, actualRecord)
	})

	t.Run("serialize with unbound event and deserialize with bound event", func(t *testing.T) {
		// Given
		unboundSerializer := newSerializer()
		record := newBadgeRecord("7e488a8af27148cb98920f11902d930c")
		serializedData, err := unboundSerializer.Serialize(record)
		require.NoError(t, err)
		boundSerializer := newSerializer()
		BindEvents(boundSerializer)

		// When
		actualRecord, err := boundSerializer.Deserialize(serializedData)

		// Then
		require.NoError(t, err)
		assert.Equal(t, record, actualRecord)
	})

	t.Run("deserialize invalid data", func(t *testing.T) {
		// Given
		serializer := newSerializer()

		// When
		actualRecord, err := serializer.Deserialize([]byte("\xc1invalid"))

		// Then
		assert.Error(t, err)
		assert.Nil(t, actualRecord)
	})
}

func newBadgeRecord(eventID string) *spacebot.Record {
	return &spacebot.Record{
		AggregateType:        "badge",
		AggregateID:          "A",
		GlobalSequenceNumber: math.MaxUint64,
		StreamSequenceNumber: math.MaxUint64,
		InsertTimestamp:      math.MaxUint64,
		EventID:              eventID,
		EventType:            "BadgeWasScanned",
		Data:                 &BadgeWasScanned{ReaderID: "A", Number: 1},
		Metadata:             nil,
	}
}

// Unbound numbers decode to a codec specific type, so only the shape is compared.
func assertUnboundBadgeRecord(t *testing.T, expected, actual *spacebot.Record) {
	t.Helper()

	require.NotNil(t, actual)
	data, ok := actual.Data.(map[string]interface{})
	require.True(t, ok, "unexpected data type: %T", actual.Data)
	assert.Equal(t, "A", data["readerID"])
	assert.Contains(t, data, "number")

	expectedRecord := *expected
	actualRecord := *actual
	expectedRecord.Data = nil
	actualRecord.Data = nil
	assert.Equal(t, expectedRecord, actualRecord)
}
