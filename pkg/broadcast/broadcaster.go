package broadcast

import (
	"time"

	"go.uber.org/zap"

	"github.com/denhac/spacebot"
)

// DefaultTimeout for handing a record to one slow subscriber.
const DefaultTimeout = time.Millisecond * 100

// SendRecordChan is a write only channel for spacebot.Record.
type SendRecordChan chan<- *spacebot.Record

// RecordSubscriber defines how a spacebot.Record is received.
type RecordSubscriber interface {
	Receiver() SendRecordChan
	Stop()
}

// Broadcaster fans out saved records to live subscribers.
type Broadcaster interface {
	Accept(record *spacebot.Record)
	Subscribe(subscriber RecordSubscriber, aggregateTypes ...string)
	Unsubscribe(subscriber RecordSubscriber)
	Close()
}

type subscription struct {
	subscriber     RecordSubscriber
	aggregateTypes map[string]struct{}
}

func (s subscription) wants(record *spacebot.Record) bool {
	if len(s.aggregateTypes) == 0 {
		return true
	}

	_, ok := s.aggregateTypes[record.AggregateType]
	return ok
}

type broadcaster struct {
	subscribe       chan subscription
	unsubscribe     chan RecordSubscriber
	bufferedRecords chan *spacebot.Record
	stopChan        chan struct{}
	subscriptions   map[RecordSubscriber]subscription
	timeout         time.Duration
	logger          *zap.Logger
}

// Option defines functional option parameters for broadcaster.
type Option func(*broadcaster)

// WithLogger is a functional option to inject a zap Logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *broadcaster) {
		b.logger = logger
	}
}

// WithTimeout is a functional option to set how long a subscriber may block a record.
func WithTimeout(timeout time.Duration) Option {
	return func(b *broadcaster) {
		b.timeout = timeout
	}
}

// New constructs a broadcaster.
func New(bufferSize int, options ...Option) *broadcaster {
	b := &broadcaster{
		subscribe:       make(chan subscription),
		unsubscribe:     make(chan RecordSubscriber),
		bufferedRecords: make(chan *spacebot.Record, bufferSize),
		stopChan:        make(chan struct{}),
		subscriptions:   make(map[RecordSubscriber]subscription),
		timeout:         DefaultTimeout,
		logger:          zap.NewNop(),
	}

	for _, option := range options {
		option(b)
	}

	go b.start()

	return b
}

// Accept receives a Record.
func (b *broadcaster) Accept(record *spacebot.Record) {
	select {
	case b.bufferedRecords <- record:
	case <-b.stopChan:
	}
}

// Subscribe registers subscriber for the given aggregate types, or every record when none are given.
func (b *broadcaster) Subscribe(subscriber RecordSubscriber, aggregateTypes ...string) {
	s := subscription{
		subscriber:     subscriber,
		aggregateTypes: make(map[string]struct{}, len(aggregateTypes)),
	}
	for _, aggregateType := range aggregateTypes {
		s.aggregateTypes[aggregateType] = struct{}{}
	}

	select {
	case b.subscribe <- s:
	case <-b.stopChan:
		subscriber.Stop()
	}
}

func (b *broadcaster) Unsubscribe(subscriber RecordSubscriber) {
	select {
	case b.unsubscribe <- subscriber:
	case <-b.stopChan:
	}
}

func (b *broadcaster) start() {
	for {
		select {
		case s := <-b.subscribe:
			b.subscriptions[s.subscriber] = s

		case subscriber := <-b.unsubscribe:
			delete(b.subscriptions, subscriber)

		case record := <-b.bufferedRecords:
			b.broadcastRecord(record)

		case <-b.stopChan:
			b.closeAllSubscribers()
			return
		}
	}
}

func (b *broadcaster) broadcastRecord(record *spacebot.Record) {
	for subscriber, s := range b.subscriptions {
		if !s.wants(record) {
			continue
		}

		select {
		case subscriber.Receiver() <- record:

		case <-time.After(b.timeout):
			b.logger.Warn("dropping slow subscriber",
				zap.Uint64("globalSequenceNumber", record.GlobalSequenceNumber),
				zap.Duration("timeout", b.timeout),
			)
			delete(b.subscriptions, subscriber)
			subscriber.Stop()
		}
	}
}

// Close stops every subscriber and the broadcast loop.
func (b *broadcaster) Close() {
	close(b.stopChan)
}

func (b *broadcaster) closeAllSubscribers() {
	for subscriber := range b.subscriptions {
		subscriber.Stop()
	}
}
