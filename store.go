package spacebot

import (
	"context"
	"fmt"
	"strings"
)

// Record holds event data and metadata.
type Record struct {
	AggregateType        string      `msgpack:"a" json:"aggregateType"`
	AggregateID          string      `msgpack:"i" json:"aggregateID"`
	GlobalSequenceNumber uint64      `msgpack:"g" json:"globalSequenceNumber"`
	StreamSequenceNumber uint64      `msgpack:"s" json:"streamSequenceNumber"`
	InsertTimestamp      uint64      `msgpack:"u" json:"insertTimestamp"`
	EventID              string      `msgpack:"e" json:"eventID"`
	EventType            string      `msgpack:"t" json:"eventType"`
	Data                 interface{} `msgpack:"d" json:"data"`
	Metadata             interface{} `msgpack:"m" json:"metadata"`
}

// EventRecord pairs an Event with optional metadata for saving.
type EventRecord struct {
	Event    Event
	Metadata interface{}
}

// EventBinder defines how to bind events for serialization.
type EventBinder interface {
	Bind(events ...Event)
}

// Store is the interface that stores and retrieves event records.
//
// Every call to Save or OptimisticSave appends all of its event records to a
// single stream atomically: either every record is persisted, or none are.
type Store interface {
	EventBinder
	EventsStartingWith(ctx context.Context, globalSequenceNumber uint64) RecordIterator
	EventsByAggregateTypesStartingWith(ctx context.Context, globalSequenceNumber uint64, aggregateTypes ...string) RecordIterator
	EventsByStreamStartingWith(ctx context.Context, streamSequenceNumber uint64, streamName string) RecordIterator
	OptimisticSave(ctx context.Context, expectedStreamSequenceNumber uint64, eventRecords ...*EventRecord) error
	Save(ctx context.Context, eventRecords ...*EventRecord) error
	Subscribe(ctx context.Context, subscribers ...RecordSubscriber) error
	TotalEventsInStream(ctx context.Context, streamName string) (uint64, error)
}

// Event is the interface that defines the required event methods.
type Event interface {
	AggregateMessage
	EventType() string
}

// AggregateMessage is the interface that supports building an event stream name.
type AggregateMessage interface {
	AggregateID() string
	AggregateType() string
}

// RecordSubscriber is the interface that defines how a projection receives Records.
type RecordSubscriber interface {
	Accept(record *Record)
}

// RecordSubscriberFunc is a function that can be used as a RecordSubscriber.
type RecordSubscriberFunc func(*Record)

// Accept receives a Record.
func (f RecordSubscriberFunc) Accept(record *Record) {
	f(record)
}

const streamSeparator = "!"

// GetEventStream returns the stream name for an event.
func GetEventStream(message AggregateMessage) string {
	return GetStream(message.AggregateType(), message.AggregateID())
}

// GetStream returns the stream name for an aggregateType and aggregateID.
func GetStream(aggregateType, aggregateID string) string {
	return fmt.Sprintf("%s%s%s", aggregateType, streamSeparator, aggregateID)
}

// ParseStream returns the aggregateType and aggregateID for a stream name.
func ParseStream(streamName string) (aggregateType, aggregateID string) {
	pieces := strings.SplitN(streamName, streamSeparator, 2)
	if len(pieces) != 2 {
		return pieces[0], ""
	}

	return pieces[0], pieces[1]
}

// StreamOfEventRecords returns the single stream shared by every event record.
func StreamOfEventRecords(eventRecords []*EventRecord) (string, error) {
	if len(eventRecords) == 0 {
		return "", ErrNoEvents
	}

	stream := GetEventStream(eventRecords[0].Event)
	for _, eventRecord := range eventRecords[1:] {
		if GetEventStream(eventRecord.Event) != stream {
			return "", ErrEventsMustShareStream
		}
	}

	return stream, nil
}

// ReadRecords drains a RecordIterator into a slice.
func ReadRecords(ctx context.Context, iter RecordIterator) ([]*Record, error) {
	var records []*Record
	for iter.NextContext(ctx) {
		records = append(records, iter.Record())
	}

	if iter.Err() != nil {
		return nil, iter.Err()
	}

	return records, nil
}
