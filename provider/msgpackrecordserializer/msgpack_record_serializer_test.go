package msgpackrecordserializer_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v4"

	"github.com/denhac/spacebot"
	"github.com/denhac/spacebot/provider/msgpackrecordserializer"
	"github.com/denhac/spacebot/spacebottest"
)

func Test_MsgPackSerializer(t *testing.T) {
	spacebottest.VerifyRecordSerializer(t, func() spacebot.RecordSerializer {
		return msgpackrecordserializer.New()
	})
}

func Test_Failures(t *testing.T) {
	t.Run("serialize fails with invalid record with unbound event", func(t *testing.T) {
		// Given
		serializer := msgpackrecordserializer.New()
		invalidRecord := &spacebot.Record{
			Metadata: make(chan struct{}),
		}

		// When
		_, err := serializer.Serialize(invalidRecord)

		// Then
		assert.EqualError(t, err, "failed encoding record: msgpack: Encode(unsupported chan struct {})")
	})

	t.Run("serialize fails with invalid data in record", func(t *testing.T) {
		// Given
		serializer := msgpackrecordserializer.New()
		spacebottest.BindEvents(serializer)
		invalidRecord := &spacebot.Record{
			EventType: "BadgeWasScanned",
			Data:      make(chan struct{}),
		}

		// When
		_, err := serializer.Serialize(invalidRecord)

		// Then
		assert.EqualError(t, err, "failed encoding record data: msgpack: Encode(unsupported chan struct {})")
	})

	t.Run("deserialize fails with invalid input", func(t *testing.T) {
		// Given
		serializer := msgpackrecordserializer.New()
		invalidSerializedData := []byte("fwj@!#R@#")

		// When
		_, err := serializer.Deserialize(invalidSerializedData)

		// Then
		assert.EqualError(t, err, "failed decoding record: msgpack: invalid code=66 decoding map length")
	})

	t.Run("deserialize with bound event fails with missing event data", func(t *testing.T) {
		// Given
		serializer := msgpackrecordserializer.New()
		spacebottest.BindEvents(serializer)
		invalidSerializedData, err := msgpack.Marshal(spacebot.Record{EventType: "BadgeWasScanned"})
		require.NoError(t, err)

		// When
		_, err = serializer.Deserialize(invalidSerializedData)

		// Then
		assert.EqualError(t, err, "failed decoding event after record: EOF")
	})

	t.Run("deserialize with unbound event fails with missing event data", func(t *testing.T) {
		// Given
		serializer := msgpackrecordserializer.New()
		invalidSerializedData, err := msgpack.Marshal(spacebot.Record{EventType: "BadgeWasScanned"})
		require.NoError(t, err)

		// When
		_, err = serializer.Deserialize(invalidSerializedData)

		// Then
		assert.EqualError(t, err, "failed decoding event after record: EOF")
	})
}

func Test_UnmarshalRecord(t *testing.T) {
	t.Run("returns EOF", func(t *testing.T) {
		// Given
		decoder := msgpack.NewDecoder(bytes.NewReader([]byte{}))

		// When
		record, err := msgpackrecordserializer.UnmarshalRecord(decoder, spacebot.NewEventIdentifier())

		// Then
		assert.Equal(t, msgpackrecordserializer.ErrorEOF, err)
		assert.Nil(t, record)
	})

	t.Run("reads consecutive records from one stream", func(t *testing.T) {
		// Given
		first, err := msgpackrecordserializer.MarshalRecord(&spacebot.Record{
			AggregateType: "badge",
			AggregateID:   "A",
			EventType:     "BadgeWasScanned",
			Data:          &spacebottest.BadgeWasScanned{ReaderID: "A", Number: 1},
		})
		require.NoError(t, err)
		second, err := msgpackrecordserializer.MarshalRecord(&spacebot.Record{
			AggregateType:        "badge",
			AggregateID:          "A",
			StreamSequenceNumber: 1,
			EventType:            "BadgeWasScanned",
			Data:                 &spacebottest.BadgeWasScanned{ReaderID: "A", Number: 2},
		})
		require.NoError(t, err)
		decoder := msgpack.NewDecoder(bytes.NewReader(append(first, second...)))
		decoder.UseJSONTag(true)
		identifier := spacebot.NewEventIdentifier()
		spacebottest.BindEvents(identifier)

		// When
		record1, err1 := msgpackrecordserializer.UnmarshalRecord(decoder, identifier)
		record2, err2 := msgpackrecordserializer.UnmarshalRecord(decoder, identifier)
		_, err3 := msgpackrecordserializer.UnmarshalRecord(decoder, identifier)

		// Then
		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, &spacebottest.BadgeWasScanned{ReaderID: "A", Number: 1}, record1.Data)
		assert.Equal(t, &spacebottest.BadgeWasScanned{ReaderID: "A", Number: 2}, record2.Data)
		assert.Equal(t, msgpackrecordserializer.ErrorEOF, err3)
	})
}

func ExampleNew_deserializeWithBoundEvent() {
	// Given
	serializer := msgpackrecordserializer.New()
	spacebottest.BindEvents(serializer)
	output, _ := serializer.Serialize(&spacebot.Record{
		AggregateType: "badge",
		AggregateID:   "front-door",
		EventType:     "BadgeWasScanned",
		Data:          &spacebottest.BadgeWasScanned{ReaderID: "front-door", Number: 1},
	})

	// When
	record, _ := serializer.Deserialize(output)
	fmt.Printf("%#v\n", record.Data)

	// Output:
	// &spacebottest.BadgeWasScanned{ReaderID:"front-door", Number:1}
}
