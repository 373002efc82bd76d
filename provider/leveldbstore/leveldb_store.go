package leveldbstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"

	"github.com/denhac/spacebot"
	"github.com/denhac/spacebot/pkg/clock"
	"github.com/denhac/spacebot/pkg/eventid"
	"github.com/denhac/spacebot/provider/msgpackrecordserializer"
)

const (
	separator       = "!"
	allEventsPrefix = "$all$" + separator
)

type levelDbStore struct {
	clock         clock.Clock
	serializer    spacebot.RecordSerializer
	uuidGenerator eventid.Generator
	logger        *zap.Logger

	subscriberMux sync.RWMutex
	subscribers   []spacebot.RecordSubscriber
	notifyMux     sync.Mutex

	mux sync.Mutex
	db  *leveldb.DB
}

// Option defines functional option parameters for levelDbStore.
type Option func(*levelDbStore)

// WithClock is a functional option to inject a Clock.
func WithClock(clock clock.Clock) Option {
	return func(store *levelDbStore) {
		store.clock = clock
	}
}

// WithSerializer is a functional option to inject a RecordSerializer.
func WithSerializer(serializer spacebot.RecordSerializer) Option {
	return func(store *levelDbStore) {
		store.serializer = serializer
	}
}

// WithUUIDGenerator is a functional option to inject an eventid.Generator.
func WithUUIDGenerator(uuidGenerator eventid.Generator) Option {
	return func(store *levelDbStore) {
		store.uuidGenerator = uuidGenerator
	}
}

// WithLogger is a functional option to inject a zap Logger.
func WithLogger(logger *zap.Logger) Option {
	return func(store *levelDbStore) {
		store.logger = logger
	}
}

// New constructs a levelDbStore backed by the database at dbFilePath.
func New(dbFilePath string, options ...Option) (*levelDbStore, error) {
	db, err := leveldb.OpenFile(dbFilePath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed opening db: %v", err)
	}

	s := &levelDbStore{
		clock:         clock.System(),
		serializer:    msgpackrecordserializer.New(),
		uuidGenerator: eventid.NewRandomGenerator(),
		logger:        zap.NewNop(),
		db:            db,
	}

	for _, option := range options {
		option(s)
	}

	return s, nil
}

// Stop closes the underlying database.
func (s *levelDbStore) Stop() error {
	return s.db.Close()
}

func (s *levelDbStore) Bind(events ...spacebot.Event) {
	s.serializer.Bind(events...)
}

func (s *levelDbStore) EventsStartingWith(ctx context.Context, globalSequenceNumber uint64) spacebot.RecordIterator {
	return s.getEventsByLookup(ctx, []string{allEventsPrefix}, globalSequenceNumber)
}

func (s *levelDbStore) EventsByAggregateTypesStartingWith(ctx context.Context, globalSequenceNumber uint64, aggregateTypes ...string) spacebot.RecordIterator {
	prefixes := make([]string, len(aggregateTypes))
	for i, aggregateType := range aggregateTypes {
		prefixes[i] = getAggregateTypeKeyPrefix(aggregateType)
	}

	return s.getEventsByLookup(ctx, prefixes, globalSequenceNumber)
}

func (s *levelDbStore) EventsByStreamStartingWith(ctx context.Context, streamSequenceNumber uint64, streamName string) spacebot.RecordIterator {
	resultRecords := make(chan spacebot.ResultRecord)

	go func() {
		defer close(resultRecords)

		prefix := streamName + separator
		iter := s.db.NewIterator(keyRangeStartingWith(prefix, streamSequenceNumber), nil)
		defer iter.Release()

		for iter.Next() {
			if ctx.Err() != nil {
				return
			}

			record, err := s.getRecordByValue(iter.Value())
			if !s.sendResult(ctx, resultRecords, record, err) {
				return
			}
		}

		if err := iter.Error(); err != nil {
			s.sendResult(ctx, resultRecords, nil, err)
		}
	}()

	return spacebot.NewRecordIterator(resultRecords)
}

func (s *levelDbStore) OptimisticSave(ctx context.Context, expectedStreamSequenceNumber uint64, eventRecords ...*spacebot.EventRecord) error {
	return s.saveEvents(ctx, &expectedStreamSequenceNumber, eventRecords)
}

func (s *levelDbStore) Save(ctx context.Context, eventRecords ...*spacebot.EventRecord) error {
	return s.saveEvents(ctx, nil, eventRecords)
}

func (s *levelDbStore) saveEvents(ctx context.Context, expectedStreamSequenceNumber *uint64, eventRecords []*spacebot.EventRecord) error {
	stream, err := spacebot.StreamOfEventRecords(eventRecords)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mux.Lock()

	nextSequenceNumber := s.getNextStreamSequenceNumber(stream)
	if expectedStreamSequenceNumber != nil && *expectedStreamSequenceNumber != nextSequenceNumber {
		s.mux.Unlock()
		return &spacebot.UnexpectedSequenceNumber{
			Expected:           *expectedStreamSequenceNumber,
			NextSequenceNumber: nextSequenceNumber,
		}
	}

	globalSequenceNumber := s.getNextGlobalSequenceNumber()
	batch := new(leveldb.Batch)
	var serializedRecords [][]byte

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

		streamKey := getKeyWithNumber(stream+separator, record.StreamSequenceNumber)
		batch.Put(streamKey, data)
		batch.Put(getKeyWithNumber(getAggregateTypeKeyPrefix(record.AggregateType), record.GlobalSequenceNumber), streamKey)
		batch.Put(getKeyWithNumber(allEventsPrefix, record.GlobalSequenceNumber), streamKey)

		serializedRecords = append(serializedRecords, data)
	}

	err = s.db.Write(batch, nil)
	if err != nil {
		s.mux.Unlock()
		return err
	}

	s.notifyMux.Lock()
	s.mux.Unlock()
	defer s.notifyMux.Unlock()

	for _, data := range serializedRecords {
		record, err := s.getRecordByValue(data)
		if err != nil {
			continue
		}

		s.notifySubscribers(record)
	}

	return nil
}

func (s *levelDbStore) Subscribe(ctx context.Context, subscribers ...spacebot.RecordSubscriber) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.subscriberMux.Lock()
	s.subscribers = append(s.subscribers, subscribers...)
	s.subscriberMux.Unlock()

	return nil
}

func (s *levelDbStore) TotalEventsInStream(ctx context.Context, streamName string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	return s.getNextStreamSequenceNumber(streamName), nil
}

func (s *levelDbStore) notifySubscribers(record *spacebot.Record) {
	s.subscriberMux.RLock()
	defer s.subscriberMux.RUnlock()

	for _, subscriber := range s.subscribers {
		subscriber.Accept(record)
	}
}

type lookup struct {
	globalSequenceNumber uint64
	indexKey             []byte
	targetKey            []byte
}

// getEventsByLookup merges one or more global sequence indexes in order.
func (s *levelDbStore) getEventsByLookup(ctx context.Context, prefixes []string, globalSequenceNumber uint64) spacebot.RecordIterator {
	resultRecords := make(chan spacebot.ResultRecord)

	go func() {
		defer close(resultRecords)

		snapshot, err := s.db.GetSnapshot()
		if err != nil {
			s.sendResult(ctx, resultRecords, nil, err)
			return
		}
		defer snapshot.Release()

		var lookups []lookup
		for _, prefix := range prefixes {
			iter := snapshot.NewIterator(keyRangeStartingWith(prefix, globalSequenceNumber), nil)
			for iter.Next() {
				lookups = append(lookups, lookup{
					globalSequenceNumber: bytesToUint64(iter.Key()[len(prefix):]),
					indexKey:             append([]byte(nil), iter.Key()...),
					targetKey:            append([]byte(nil), iter.Value()...),
				})
			}
			iter.Release()

			if err := iter.Error(); err != nil {
				s.sendResult(ctx, resultRecords, nil, err)
				return
			}
		}

		sort.Slice(lookups, func(i, j int) bool {
			return lookups[i].globalSequenceNumber < lookups[j].globalSequenceNumber
		})

		for _, l := range lookups {
			if ctx.Err() != nil {
				return
			}

			data, err := snapshot.Get(l.targetKey, nil)
			if err != nil {
				s.logger.Error("unable to find lookup record",
					zap.ByteString("targetKey", l.targetKey),
					zap.ByteString("indexKey", l.indexKey),
					zap.Error(err),
				)
				s.sendResult(ctx, resultRecords, nil, err)
				return
			}

			record, err := s.getRecordByValue(data)
			if !s.sendResult(ctx, resultRecords, record, err) {
				return
			}
		}
	}()

	return spacebot.NewRecordIterator(resultRecords)
}

// sendResult reports whether the producer should continue.
func (s *levelDbStore) sendResult(ctx context.Context, resultRecords chan<- spacebot.ResultRecord, record *spacebot.Record, err error) bool {
	select {
	case <-ctx.Done():
		return false
	case resultRecords <- spacebot.ResultRecord{Record: record, Err: err}:
	}

	return err == nil
}

func (s *levelDbStore) getRecordByValue(value []byte) (*spacebot.Record, error) {
	record, err := s.serializer.Deserialize(value)
	if err != nil {
		s.logger.Error("failed to deserialize record", zap.Error(err))
		return nil, err
	}

	return record, nil
}

func (s *levelDbStore) getNextGlobalSequenceNumber() uint64 {
	return s.getNextSequenceNumber(allEventsPrefix)
}

func (s *levelDbStore) getNextStreamSequenceNumber(stream string) uint64 {
	return s.getNextSequenceNumber(stream + separator)
}

func (s *levelDbStore) getNextSequenceNumber(key string) uint64 {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(key)), nil)
	defer iter.Release()

	if iter.Last() && len(iter.Key()) > len(key) {
		return bytesToUint64(iter.Key()[len(key):]) + 1
	}

	return 0
}

func getAggregateTypeKeyPrefix(aggregateType string) string {
	return fmt.Sprintf("$%s$%s", aggregateType, separator)
}

func keyRangeStartingWith(prefix string, number uint64) *util.Range {
	keyRange := util.BytesPrefix([]byte(prefix))
	keyRange.Start = getKeyWithNumber(prefix, number)
	return keyRange
}

func getKeyWithNumber(inputKey string, number uint64) []byte {
	return append([]byte(inputKey), uint64ToBytes(number)...)
}

func uint64ToBytes(number uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, number)
	return buf
}

func bytesToUint64(input []byte) uint64 {
	if len(input) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(input)
}
