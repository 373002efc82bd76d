package inmemorystore

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/denhac/spacebot"
	"github.com/denhac/spacebot/pkg/clock"
	"github.com/denhac/spacebot/pkg/eventid"
	"github.com/denhac/spacebot/provider/jsonrecordserializer"
)

type serializedRecord struct {
	aggregateType string
	data          []byte
}

type inMemoryStore struct {
	clock         clock.Clock
	serializer    spacebot.RecordSerializer
	uuidGenerator eventid.Generator
	logger        *zap.Logger

	subscriberMux sync.RWMutex
	subscribers   []spacebot.RecordSubscriber
	notifyMux     sync.Mutex

	mux             sync.RWMutex
	allRecords      []*serializedRecord
	recordsByStream map[string][]*serializedRecord
}

// Option defines functional option parameters for inMemoryStore.
type Option func(*inMemoryStore)

// WithClock is a functional option to inject a Clock.
func WithClock(clock clock.Clock) Option {
	return func(store *inMemoryStore) {
		store.clock = clock
	}
}

// WithSerializer is a functional option to inject a RecordSerializer.
func WithSerializer(serializer spacebot.RecordSerializer) Option {
	return func(store *inMemoryStore) {
		store.serializer = serializer
	}
}

// WithUUIDGenerator is a functional option to inject an eventid.Generator.
func WithUUIDGenerator(uuidGenerator eventid.Generator) Option {
	return func(store *inMemoryStore) {
		store.uuidGenerator = uuidGenerator
	}
}

// WithLogger is a functional option to inject a zap Logger.
func WithLogger(logger *zap.Logger) Option {
	return func(store *inMemoryStore) {
		store.logger = logger
	}
}

// New constructs an inMemoryStore.
func New(options ...Option) *inMemoryStore {
	s := &inMemoryStore{
		clock:           clock.System(),
		serializer:      jsonrecordserializer.New(),
		uuidGenerator:   eventid.NewRandomGenerator(),
		logger:          zap.NewNop(),
		recordsByStream: make(map[string][]*serializedRecord),
	}

	for _, option := range options {
		option(s)
	}

	return s
}

func (s *inMemoryStore) Bind(events ...spacebot.Event) {
	s.serializer.Bind(events...)
}

func (s *inMemoryStore) EventsStartingWith(ctx context.Context, globalSequenceNumber uint64) spacebot.RecordIterator {
	s.mux.RLock()
	var records []*serializedRecord
	if globalSequenceNumber < uint64(len(s.allRecords)) {
		records = s.allRecords[globalSequenceNumber:]
	}
	s.mux.RUnlock()

	return s.recordsToIterator(ctx, records)
}

func (s *inMemoryStore) EventsByAggregateTypesStartingWith(ctx context.Context, globalSequenceNumber uint64, aggregateTypes ...string) spacebot.RecordIterator {
	wanted := make(map[string]struct{}, len(aggregateTypes))
	for _, aggregateType := range aggregateTypes {
		wanted[aggregateType] = struct{}{}
	}

	s.mux.RLock()
	var records []*serializedRecord
	if globalSequenceNumber < uint64(len(s.allRecords)) {
		for _, record := range s.allRecords[globalSequenceNumber:] {
			if _, ok := wanted[record.aggregateType]; ok {
				records = append(records, record)
			}
		}
	}
	s.mux.RUnlock()

	return s.recordsToIterator(ctx, records)
}

func (s *inMemoryStore) EventsByStreamStartingWith(ctx context.Context, streamSequenceNumber uint64, streamName string) spacebot.RecordIterator {
	s.mux.RLock()
	var records []*serializedRecord
	streamRecords := s.recordsByStream[streamName]
	if streamSequenceNumber < uint64(len(streamRecords)) {
		records = streamRecords[streamSequenceNumber:]
	}
	s.mux.RUnlock()

	return s.recordsToIterator(ctx, records)
}

func (s *inMemoryStore) OptimisticSave(ctx context.Context, expectedStreamSequenceNumber uint64, eventRecords ...*spacebot.EventRecord) error {
	return s.saveEvents(ctx, &expectedStreamSequenceNumber, eventRecords)
}

func (s *inMemoryStore) Save(ctx context.Context, eventRecords ...*spacebot.EventRecord) error {
	return s.saveEvents(ctx, nil, eventRecords)
}

func (s *inMemoryStore) saveEvents(ctx context.Context, expectedStreamSequenceNumber *uint64, eventRecords []*spacebot.EventRecord) error {
	stream, err := spacebot.StreamOfEventRecords(eventRecords)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mux.Lock()

	nextSequenceNumber := uint64(len(s.recordsByStream[stream]))
	if expectedStreamSequenceNumber != nil && *expectedStreamSequenceNumber != nextSequenceNumber {
		s.mux.Unlock()
		return &spacebot.UnexpectedSequenceNumber{
			Expected:           *expectedStreamSequenceNumber,
			NextSequenceNumber: nextSequenceNumber,
		}
	}

	globalSequenceNumber := uint64(len(s.allRecords))
	pending := make([]*serializedRecord, 0, len(eventRecords))
	for i, eventRecord := range eventRecords {
		event := eventRecord.Event
		record := &spacebot.Record{
			AggregateType:        event.AggregateType(),
			AggregateID:          event.AggregateID(),
			GlobalSequenceNumber: globalSequenceNumber + uint64(i),
			StreamSequenceNumber: nextSequenceNumber + uint64(i),
			InsertTimestamp:      uint64(s.clock.Now().Unix()),
			EventID:              s.uuidGenerator.New(),
			EventType:            event.EventType(),
			Data:                 event,
			Metadata:             eventRecord.Metadata,
		}

		data, err := s.serializer.Serialize(record)
		if err != nil {
			s.mux.Unlock()
			return err
		}

		pending = append(pending, &serializedRecord{
			aggregateType: record.AggregateType,
			data:          data,
		})
	}

	s.allRecords = append(s.allRecords, pending...)
	s.recordsByStream[stream] = append(s.recordsByStream[stream], pending...)

	s.notifyMux.Lock()
	s.mux.Unlock()
	defer s.notifyMux.Unlock()

	for _, serialized := range pending {
		record, err := s.serializer.Deserialize(serialized.data)
		if err != nil {
			s.logger.Error("failed to deserialize record for subscribers", zap.Error(err))
			continue
		}

		s.notifySubscribers(record)
	}

	return nil
}

func (s *inMemoryStore) Subscribe(ctx context.Context, subscribers ...spacebot.RecordSubscriber) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.subscriberMux.Lock()
	s.subscribers = append(s.subscribers, subscribers...)
	s.subscriberMux.Unlock()

	return nil
}

func (s *inMemoryStore) TotalEventsInStream(ctx context.Context, streamName string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mux.RLock()
	defer s.mux.RUnlock()

	return uint64(len(s.recordsByStream[streamName])), nil
}

func (s *inMemoryStore) notifySubscribers(record *spacebot.Record) {
	s.subscriberMux.RLock()
	defer s.subscriberMux.RUnlock()

	for _, subscriber := range s.subscribers {
		subscriber.Accept(record)
	}
}

func (s *inMemoryStore) recordsToIterator(ctx context.Context, records []*serializedRecord) spacebot.RecordIterator {
	resultRecords := make(chan spacebot.ResultRecord)

	go func() {
		defer close(resultRecords)

		for _, serialized := range records {
			if ctx.Err() != nil {
				return
			}

			record, err := s.serializer.Deserialize(serialized.data)
			if err != nil {
				s.logger.Error("failed to deserialize record", zap.Error(err))
				select {
				case <-ctx.Done():
				case resultRecords <- spacebot.ResultRecord{Err: err}:
				}
				return
			}

			select {
			case <-ctx.Done():
				return
			case resultRecords <- spacebot.ResultRecord{Record: record}:
			}
		}
	}()

	return spacebot.NewRecordIterator(resultRecords)
}
