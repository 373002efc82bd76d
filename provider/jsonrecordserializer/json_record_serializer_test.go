package jsonrecordserializer_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/denhac/spacebot"
	"github.com/denhac/spacebot/provider/jsonrecordserializer"
	"github.com/denhac/spacebot/spacebottest"
)

func Test_JSONSerializer(t *testing.T) {
	spacebottest.VerifyRecordSerializer(t, func() spacebot.RecordSerializer {
		return jsonrecordserializer.New()
	})
}

func Test_Failures(t *testing.T) {
	t.Run("serialize fails with invalid input", func(t *testing.T) {
		// Given
		serializer := jsonrecordserializer.New()
		invalidRecord := &spacebot.Record{
			Data: math.Inf(1),
		}

		// When
		_, err := serializer.Serialize(invalidRecord)

		// Then
		require.EqualError(t, err, "failed marshalling record: json: unsupported value: +Inf")
	})

	t.Run("deserialize fails with invalid input", func(t *testing.T) {
		// Given
		serializer := jsonrecordserializer.New()
		invalidSerializedData := []byte("fwj@!#R@#")

		// When
		_, err := serializer.Deserialize(invalidSerializedData)

		// Then
		require.EqualError(t, err, "failed unmarshalling record: invalid character 'w' in literal false (expecting 'a')")
	})

	t.Run("deserialize with bound event fails with missing event data", func(t *testing.T) {
		// Given
		serializer := jsonrecordserializer.New()
		spacebottest.BindEvents(serializer)
		invalidJSON := `{"eventType":"BadgeWasScanned","data":null}`

		// When
		_, err := serializer.Deserialize([]byte(invalidJSON))

		// Then
		require.EqualError(t, err, "failed unmarshalling event within record: EOF")
	})

	t.Run("deserialize with unbound event fails with missing event data", func(t *testing.T) {
		// Given
		serializer := jsonrecordserializer.New()
		invalidJSON := `{"eventType":"BadgeWasScanned","data":null}`

		// When
		_, err := serializer.Deserialize([]byte(invalidJSON))

		// Then
		require.EqualError(t, err, "failed unmarshalling event within record: EOF")
	})
}

func ExampleNew_serialize_and_deserialize_with_bound_event() {
	// Given
	serializer := jsonrecordserializer.New()
	spacebottest.BindEvents(serializer)
	record := &spacebot.Record{
		AggregateType:        "badge",
		AggregateID:          "front-door",
		GlobalSequenceNumber: 100,
		StreamSequenceNumber: 2,
		InsertTimestamp:      1576892379,
		EventType:            "BadgeWasScanned",
		Data: &spacebottest.BadgeWasScanned{
			ReaderID: "front-door",
			Number:   1,
		},
	}

	// When
	jsonOutput, _ := serializer.Serialize(record)
	fmt.Println(string(jsonOutput))

	outputRecord, _ := serializer.Deserialize(jsonOutput)
	fmt.Printf("%#v\n", outputRecord.Data)

	// Output:
	// {"aggregateType":"badge","aggregateID":"front-door","globalSequenceNumber":100,"streamSequenceNumber":2,"insertTimestamp":1576892379,"eventID":"","eventType":"BadgeWasScanned","data":{"readerID":"front-door","number":1},"metadata":null}
	// &spacebottest.BadgeWasScanned{ReaderID:"front-door", Number:1}
}

func ExampleNew_serialize_and_deserialize_with_unbound_event() {
	// Given
	serializer := jsonrecordserializer.New()
	record := &spacebot.Record{
		AggregateType:        "badge",
		AggregateID:          "front-door",
		GlobalSequenceNumber: 100,
		StreamSequenceNumber: 2,
		InsertTimestamp:      1576892379,
		EventType:            "BadgeWasScanned",
		Data: &spacebottest.BadgeWasScanned{
			ReaderID: "front-door",
			Number:   1,
		},
	}

	// When
	jsonOutput, _ := serializer.Serialize(record)
	outputRecord, _ := serializer.Deserialize(jsonOutput)
	fmt.Printf("%#v\n", outputRecord.Data)

	// Output:
	// map[string]interface {}{"number":"1", "readerID":"front-door"}
}
