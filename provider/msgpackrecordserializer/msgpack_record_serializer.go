package msgpackrecordserializer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/vmihailenco/msgpack/v4"

	"github.com/denhac/spacebot"
)

// ErrorEOF defines an end of file error.
var ErrorEOF = errors.New("EOF")

type msgpackSerializer struct {
	spacebot.EventRegistry
}

// New constructs a msgpackSerializer.
func New() *msgpackSerializer {
	return &msgpackSerializer{EventRegistry: spacebot.NewEventIdentifier()}
}

func (s *msgpackSerializer) Serialize(record *spacebot.Record) ([]byte, error) {
	return MarshalRecord(record)
}

func (s *msgpackSerializer) Deserialize(serializedData []byte) (*spacebot.Record, error) {
	decoder := msgpack.NewDecoder(bytes.NewBuffer(serializedData))
	decoder.UseJSONTag(true)

	return UnmarshalRecord(decoder, s)
}

// MarshalRecord encodes a Record as msgpack.
//
// The record, excluding data, is encoded first. Then, event data is encoded.
// Encoding the event data second allows decoding to parse into a struct if bound.
func MarshalRecord(record *spacebot.Record) ([]byte, error) {
	var buf bytes.Buffer

	newRecord := *record
	newRecord.Data = nil

	encoder := msgpack.NewEncoder(&buf)
	encoder.UseJSONTag(true)

	err := encoder.Encode(newRecord)
	if err != nil {
		return nil, fmt.Errorf("failed encoding record: %v", err)
	}

	err = encoder.Encode(record.Data)
	if err != nil {
		return nil, fmt.Errorf("failed encoding record data: %v", err)
	}

	return buf.Bytes(), nil
}

// UnmarshalRecord decodes a Record using the supplied msgpack decoder.
//
// The record, excluding data, is decoded first. Then, event data is decoded.
func UnmarshalRecord(decoder *msgpack.Decoder, eventTypeIdentifier spacebot.EventTypeIdentifier) (*spacebot.Record, error) {
	record := spacebot.Record{}

	decodeErr := decoder.Decode(&record)
	if decodeErr != nil {
		if decodeErr == io.EOF {
			return nil, ErrorEOF
		}

		return nil, fmt.Errorf("failed decoding record: %v", decodeErr)
	}

	eventType, ok := eventTypeIdentifier.EventTypeLookup(record.EventType)
	if !ok {
		var data interface{}
		err := decoder.Decode(&data)
		if err != nil {
			return nil, fmt.Errorf("failed decoding event after record: %v", err)
		}

		record.Data = data
		return &record, nil
	}

	data := reflect.New(eventType).Interface()
	err := decoder.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed decoding event after record: %v", err)
	}

	record.Data = data

	return &record, nil
}
