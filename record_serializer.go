package spacebot

import (
	"reflect"
)

// RecordSerializer is the interface that (de)serializes Records.
type RecordSerializer interface {
	EventBinder
	EventTypeIdentifier
	Serialize(record *Record) ([]byte, error)
	Deserialize(data []byte) (*Record, error)
}

// EventTypeIdentifier is the interface for retrieving an event type.
type EventTypeIdentifier interface {
	EventTypeLookup(eventTypeName string) (reflect.Type, bool)
}

// EventRegistry binds event structs and looks their types up by name.
type EventRegistry interface {
	EventBinder
	EventTypeIdentifier
}

type eventIdentifier struct {
	eventTypes map[string]reflect.Type
}

// NewEventIdentifier constructs an in-memory EventRegistry.
func NewEventIdentifier() *eventIdentifier {
	return &eventIdentifier{
		eventTypes: map[string]reflect.Type{},
	}
}

func (s *eventIdentifier) Bind(events ...Event) {
	for _, e := range events {
		s.eventTypes[e.EventType()] = getType(e)
	}
}

func (s *eventIdentifier) EventTypeLookup(eventTypeName string) (reflect.Type, bool) {
	eventType, ok := s.eventTypes[eventTypeName]
	return eventType, ok
}

func getType(object interface{}) reflect.Type {
	t := reflect.TypeOf(object)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	return t
}
