package jsonrecordserializer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"

	"github.com/denhac/spacebot"
)

type jsonSerializer struct {
	spacebot.EventRegistry
}

// New constructs a jsonSerializer.
func New() *jsonSerializer {
	return &jsonSerializer{EventRegistry: spacebot.NewEventIdentifier()}
}

func (s *jsonSerializer) Serialize(record *spacebot.Record) ([]byte, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed marshalling record: %v", err)
	}

	return data, nil
}

func (s *jsonSerializer) Deserialize(serializedData []byte) (*spacebot.Record, error) {
	decoder := json.NewDecoder(bytes.NewReader(serializedData))
	decoder.UseNumber()

	return UnmarshalRecord(decoder, s)
}

// UnmarshalRecord decodes a Record using the supplied JSON decoder.
//
// Event data will be parsed into a struct if its type is bound.
func UnmarshalRecord(decoder *json.Decoder, eventTypeIdentifier spacebot.EventTypeIdentifier) (*spacebot.Record, error) {
	var rawEvent json.RawMessage
	record := spacebot.Record{
		Data: &rawEvent,
	}
	err := decoder.Decode(&record)
	if err != nil {
		return nil, fmt.Errorf("failed unmarshalling record: %v", err)
	}

	data, err := DecodeJSONData(record.EventType, bytes.NewReader(rawEvent), eventTypeIdentifier)
	if err != nil {
		return nil, fmt.Errorf("failed unmarshalling event within record: %v", err)
	}

	record.Data = data

	return &record, nil
}

// DecodeJSONData decodes raw json into the bound struct for eventTypeName,
// or into generic maps and json.Number values when none is bound.
func DecodeJSONData(eventTypeName string, rawJSONData io.Reader, eventTypeIdentifier spacebot.EventTypeIdentifier) (interface{}, error) {
	decoder := json.NewDecoder(rawJSONData)
	decoder.UseNumber()

	if eventType, ok := eventTypeIdentifier.EventTypeLookup(eventTypeName); ok {
		event := reflect.New(eventType).Interface()
		if err := decoder.Decode(event); err != nil {
			return nil, err
		}

		return event, nil
	}

	var data interface{}
	if err := decoder.Decode(&data); err != nil {
		return nil, err
	}

	return data, nil
}
