package cqrs

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/denhac/spacebot"
	"github.com/denhac/spacebot/pkg/keymutex"
)

const tracerName = "github.com/denhac/spacebot/pkg/cqrs"

// ErrCommandHandlerNotFound is returned when no aggregate handles a command type.
var ErrCommandHandlerNotFound = errors.New("command handler not found")

// UnhandledEventError is returned when a stream holds an event the aggregate cannot apply.
type UnhandledEventError struct {
	EventType string
}

func (e *UnhandledEventError) Error() string {
	return fmt.Sprintf("unhandled event type: %s", e.EventType)
}

// Command is a request routed to one aggregate stream.
type Command interface {
	spacebot.AggregateMessage
	CommandType() string
}

// CommandDispatcher dispatches commands and returns the events they raised.
type CommandDispatcher interface {
	Dispatch(ctx context.Context, command Command) ([]spacebot.Event, error)
}

// Aggregate decides which events a command raises, given its folded history.
type Aggregate interface {
	// Apply folds a persisted event. It returns *UnhandledEventError for unknown events.
	Apply(event spacebot.Event) error
	Handle(command Command) []spacebot.Event
	CommandTypes() []string
}

// AggregateFactory constructs an empty Aggregate.
type AggregateFactory func() Aggregate

type cqrs struct {
	store      spacebot.Store
	keyMutex   keymutex.KeyMutex
	aggregates map[string]AggregateFactory
	logger     *zap.Logger
	tracer     trace.Tracer
}

// Option defines functional option parameters for cqrs.
type Option func(*cqrs)

// WithLogger is a functional option to inject a zap Logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *cqrs) {
		c.logger = logger
	}
}

// WithTracerProvider is a functional option to inject an OpenTelemetry TracerProvider.
func WithTracerProvider(tracerProvider trace.TracerProvider) Option {
	return func(c *cqrs) {
		c.tracer = tracerProvider.Tracer(tracerName)
	}
}

// WithKeyMutex is a functional option to inject the per stream KeyMutex.
func WithKeyMutex(keyMutex keymutex.KeyMutex) Option {
	return func(c *cqrs) {
		c.keyMutex = keyMutex
	}
}

// WithAggregates is a functional option to register aggregate factories.
func WithAggregates(factories ...AggregateFactory) Option {
	return func(c *cqrs) {
		for _, factory := range factories {
			for _, commandType := range factory().CommandTypes() {
				if _, ok := c.aggregates[commandType]; ok {
					panic(fmt.Sprintf("command \"%s\" is already registered", commandType))
				}

				c.aggregates[commandType] = factory
			}
		}
	}
}

// New constructs an event sourced CQRS application.
func New(store spacebot.Store, options ...Option) *cqrs {
	c := &cqrs{
		store:      store,
		keyMutex:   keymutex.NewStriped(1024),
		aggregates: make(map[string]AggregateFactory),
		logger:     zap.NewNop(),
		tracer:     otel.Tracer(tracerName),
	}

	for _, option := range options {
		option(c)
	}

	return c
}

func (c *cqrs) Dispatch(ctx context.Context, command Command) ([]spacebot.Event, error) {
	streamName := spacebot.GetEventStream(command)
	ctx, span := c.tracer.Start(ctx, "cqrs.Dispatch",
		trace.WithAttributes(
			attribute.String("spacebot.command_type", command.CommandType()),
			attribute.String("spacebot.stream", streamName),
		),
	)
	defer span.End()

	events, err := c.dispatch(ctx, streamName, command)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("spacebot.total_events", len(events)))

	return events, nil
}

func (c *cqrs) dispatch(ctx context.Context, streamName string, command Command) ([]spacebot.Event, error) {
	newAggregate, ok := c.aggregates[command.CommandType()]
	if !ok {
		c.logger.Error("command handler not found", zap.String("commandType", command.CommandType()))
		return nil, fmt.Errorf("%w: %s", ErrCommandHandlerNotFound, command.CommandType())
	}

	lock := c.keyMutex.Get(streamName)
	lock.Lock()
	defer lock.Unlock()

	aggregate := newAggregate()
	streamLength, err := Load(ctx, c.store, streamName, aggregate)
	if err != nil {
		c.logger.Error("unable to load aggregate",
			zap.String("stream", streamName),
			zap.Error(err),
		)
		return nil, err
	}

	events := aggregate.Handle(command)
	if len(events) == 0 {
		return nil, nil
	}

	eventRecords := make([]*spacebot.EventRecord, len(events))
	for i, event := range events {
		eventRecords[i] = &spacebot.EventRecord{Event: event}
	}

	err = c.store.OptimisticSave(ctx, streamLength, eventRecords...)
	if err != nil {
		c.logger.Error("unable to save events",
			zap.String("stream", streamName),
			zap.String("commandType", command.CommandType()),
			zap.Int("totalEvents", len(events)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("unable to save events: %w", err)
	}

	c.logger.Debug("dispatched command",
		zap.String("stream", streamName),
		zap.String("commandType", command.CommandType()),
		zap.Int("totalEvents", len(events)),
	)

	return events, nil
}

// Load folds every event in streamName into aggregate and returns the stream length.
func Load(ctx context.Context, store spacebot.Store, streamName string, aggregate Aggregate) (uint64, error) {
	ctx, done := context.WithCancel(ctx)
	defer done()

	iter := store.EventsByStreamStartingWith(ctx, 0, streamName)

	totalEvents := uint64(0)
	for iter.NextContext(ctx) {
		record := iter.Record()
		event, ok := record.Data.(spacebot.Event)
		if !ok {
			return 0, &UnhandledEventError{EventType: record.EventType}
		}

		if err := aggregate.Apply(event); err != nil {
			return 0, err
		}

		totalEvents++
	}

	if iter.Err() != nil {
		return 0, iter.Err()
	}

	return totalEvents, nil
}
