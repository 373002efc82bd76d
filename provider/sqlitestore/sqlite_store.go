package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/denhac/spacebot"
	"github.com/denhac/spacebot/pkg/clock"
	"github.com/denhac/spacebot/pkg/eventid"
	"github.com/denhac/spacebot/provider/jsonrecordserializer"
)

const selectRecordColumns = "SELECT AggregateType,AggregateID,GlobalSequenceNumber,StreamSequenceNumber,InsertTimestamp,EventID,EventType,Data,Metadata FROM record"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS record (
		AggregateType TEXT NOT NULL,
		AggregateID TEXT NOT NULL,
		GlobalSequenceNumber INTEGER PRIMARY KEY,
		StreamSequenceNumber INTEGER NOT NULL,
		InsertTimestamp INTEGER NOT NULL,
		EventID TEXT NOT NULL,
		EventType TEXT NOT NULL,
		Data TEXT NOT NULL,
		Metadata TEXT NOT NULL,
		UNIQUE (AggregateType, AggregateID, StreamSequenceNumber)
	);`,
	`CREATE INDEX IF NOT EXISTS record_idx_aggregate_type ON record (AggregateType);`,
}

// JSONSerializer binds events and resolves their types for JSON decoding.
type JSONSerializer interface {
	spacebot.EventBinder
	spacebot.EventTypeIdentifier
}

type sqliteStore struct {
	clock         clock.Clock
	uuidGenerator eventid.Generator
	serializer    JSONSerializer
	logger        *zap.Logger
	db            *sql.DB

	saveMux       sync.Mutex
	subscriberMux sync.RWMutex
	subscribers   []spacebot.RecordSubscriber
}

// Option defines functional option parameters for sqliteStore.
type Option func(*sqliteStore)

// WithClock is a functional option to inject a clock.Clock.
func WithClock(clock clock.Clock) Option {
	return func(store *sqliteStore) {
		store.clock = clock
	}
}

// WithUUIDGenerator is a functional option to inject an eventid.Generator.
func WithUUIDGenerator(uuidGenerator eventid.Generator) Option {
	return func(store *sqliteStore) {
		store.uuidGenerator = uuidGenerator
	}
}

// WithLogger is a functional option to inject a zap Logger.
func WithLogger(logger *zap.Logger) Option {
	return func(store *sqliteStore) {
		store.logger = logger
	}
}

// New opens, and creates when missing, a SQLite event log at path.
func New(path string, options ...Option) (*sqliteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	s := &sqliteStore{
		clock:         clock.System(),
		uuidGenerator: eventid.NewRandomGenerator(),
		serializer:    jsonrecordserializer.New(),
		logger:        zap.NewNop(),
	}

	for _, option := range options {
		option(s)
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	for _, statement := range schema {
		if _, err := db.Exec(statement); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("unable to init DB: %w", err)
		}
	}

	s.db = db

	return s, nil
}

// Close closes the underlying SQLite database.
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func (s *sqliteStore) Bind(events ...spacebot.Event) {
	s.serializer.Bind(events...)
}

func (s *sqliteStore) EventsStartingWith(ctx context.Context, globalSequenceNumber uint64) spacebot.RecordIterator {
	return s.queryRecords(ctx,
		selectRecordColumns+" WHERE GlobalSequenceNumber >= ? ORDER BY GlobalSequenceNumber",
		int64(globalSequenceNumber),
	)
}

func (s *sqliteStore) EventsByAggregateTypesStartingWith(ctx context.Context, globalSequenceNumber uint64, aggregateTypes ...string) spacebot.RecordIterator {
	if len(aggregateTypes) == 0 {
		return spacebot.NewRecordIteratorFromRecords(nil)
	}

	args := make([]interface{}, 0, len(aggregateTypes)+1)
	for _, aggregateType := range aggregateTypes {
		args = append(args, aggregateType)
	}
	args = append(args, int64(globalSequenceNumber))

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(aggregateTypes)), ",")
	return s.queryRecords(ctx,
		selectRecordColumns+" WHERE AggregateType IN ("+placeholders+") AND GlobalSequenceNumber >= ? ORDER BY GlobalSequenceNumber",
		args...,
	)
}

func (s *sqliteStore) EventsByStreamStartingWith(ctx context.Context, streamSequenceNumber uint64, streamName string) spacebot.RecordIterator {
	aggregateType, aggregateID := spacebot.ParseStream(streamName)
	return s.queryRecords(ctx,
		selectRecordColumns+" WHERE AggregateType = ? AND AggregateID = ? AND StreamSequenceNumber >= ? ORDER BY StreamSequenceNumber",
		aggregateType,
		aggregateID,
		int64(streamSequenceNumber),
	)
}

func (s *sqliteStore) OptimisticSave(ctx context.Context, expectedStreamSequenceNumber uint64, eventRecords ...*spacebot.EventRecord) error {
	return s.saveEvents(ctx, &expectedStreamSequenceNumber, eventRecords)
}

func (s *sqliteStore) Save(ctx context.Context, eventRecords ...*spacebot.EventRecord) error {
	return s.saveEvents(ctx, nil, eventRecords)
}

type pendingRecord struct {
	record   *spacebot.Record
	data     string
	metadata string
}

func (s *sqliteStore) saveEvents(ctx context.Context, expectedStreamSequenceNumber *uint64, eventRecords []*spacebot.EventRecord) error {
	stream, err := spacebot.StreamOfEventRecords(eventRecords)
	if err != nil {
		return err
	}

	aggregateType, aggregateID := spacebot.ParseStream(stream)

	pending := make([]*pendingRecord, 0, len(eventRecords))
	for _, eventRecord := range eventRecords {
		jsonData, err := json.Marshal(eventRecord.Event)
		if err != nil {
			return err
		}

		jsonMetadata, err := json.Marshal(eventRecord.Metadata)
		if err != nil {
			return err
		}

		pending = append(pending, &pendingRecord{
			record: &spacebot.Record{
				AggregateType: aggregateType,
				AggregateID:   aggregateID,
				EventID:       s.uuidGenerator.New(),
				EventType:     eventRecord.Event.EventType(),
				Metadata:      eventRecord.Metadata,
			},
			data:     string(jsonData),
			metadata: string(jsonMetadata),
		})
	}

	s.saveMux.Lock()
	defer s.saveMux.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var nextStreamSequenceNumber uint64
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(StreamSequenceNumber) + 1, 0) FROM record WHERE AggregateType = ? AND AggregateID = ?",
		aggregateType,
		aggregateID,
	).Scan(&nextStreamSequenceNumber)
	if err != nil {
		return fmt.Errorf("get stream sequence number: %w", err)
	}

	if expectedStreamSequenceNumber != nil && *expectedStreamSequenceNumber != nextStreamSequenceNumber {
		return &spacebot.UnexpectedSequenceNumber{
			Expected:           *expectedStreamSequenceNumber,
			NextSequenceNumber: nextStreamSequenceNumber,
		}
	}

	var nextGlobalSequenceNumber uint64
	err = tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(GlobalSequenceNumber) + 1, 0) FROM record").
		Scan(&nextGlobalSequenceNumber)
	if err != nil {
		return fmt.Errorf("get global sequence number: %w", err)
	}

	insertTimestamp := uint64(s.clock.Now().Unix())
	for i, item := range pending {
		item.record.GlobalSequenceNumber = nextGlobalSequenceNumber + uint64(i)
		item.record.StreamSequenceNumber = nextStreamSequenceNumber + uint64(i)
		item.record.InsertTimestamp = insertTimestamp

		_, err = tx.ExecContext(ctx,
			"INSERT INTO record (AggregateType,AggregateID,GlobalSequenceNumber,StreamSequenceNumber,InsertTimestamp,EventID,EventType,Data,Metadata) VALUES (?,?,?,?,?,?,?,?,?)",
			item.record.AggregateType,
			item.record.AggregateID,
			int64(item.record.GlobalSequenceNumber),
			int64(item.record.StreamSequenceNumber),
			int64(item.record.InsertTimestamp),
			item.record.EventID,
			item.record.EventType,
			item.data,
			item.metadata,
		)
		if err != nil {
			return fmt.Errorf("unable to insert: %w", err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	for _, item := range pending {
		data, err := jsonrecordserializer.DecodeJSONData(item.record.EventType, strings.NewReader(item.data), s.serializer)
		if err != nil {
			s.logger.Error("unable to decode data for subscribers", zap.Error(err))
			continue
		}

		item.record.Data = data
		s.notifySubscribers(item.record)
	}

	return nil
}

func (s *sqliteStore) Subscribe(ctx context.Context, subscribers ...spacebot.RecordSubscriber) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.subscriberMux.Lock()
	s.subscribers = append(s.subscribers, subscribers...)
	s.subscriberMux.Unlock()

	return nil
}

func (s *sqliteStore) TotalEventsInStream(ctx context.Context, streamName string) (uint64, error) {
	aggregateType, aggregateID := spacebot.ParseStream(streamName)

	var total uint64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM record WHERE AggregateType = ? AND AggregateID = ?",
		aggregateType,
		aggregateID,
	).Scan(&total)
	if err != nil {
		return 0, err
	}

	return total, nil
}

func (s *sqliteStore) notifySubscribers(record *spacebot.Record) {
	s.subscriberMux.RLock()
	defer s.subscriberMux.RUnlock()

	for _, subscriber := range s.subscribers {
		subscriber.Accept(record)
	}
}

func (s *sqliteStore) queryRecords(ctx context.Context, query string, args ...interface{}) spacebot.RecordIterator {
	resultRecords := make(chan spacebot.ResultRecord)

	go func() {
		defer close(resultRecords)

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			s.sendResult(ctx, resultRecords, nil, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			record, err := s.scanRecord(rows)
			if !s.sendResult(ctx, resultRecords, record, err) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			s.sendResult(ctx, resultRecords, nil, err)
		}
	}()

	return spacebot.NewRecordIterator(resultRecords)
}

func (s *sqliteStore) scanRecord(rows *sql.Rows) (*spacebot.Record, error) {
	var (
		record             spacebot.Record
		serializedData     string
		serializedMetadata string
	)
	err := rows.Scan(
		&record.AggregateType,
		&record.AggregateID,
		&record.GlobalSequenceNumber,
		&record.StreamSequenceNumber,
		&record.InsertTimestamp,
		&record.EventID,
		&record.EventType,
		&serializedData,
		&serializedMetadata,
	)
	if err != nil {
		return nil, err
	}

	record.Data, err = jsonrecordserializer.DecodeJSONData(record.EventType, strings.NewReader(serializedData), s.serializer)
	if err != nil {
		s.logger.Error("unable to decode data", zap.String("eventID", record.EventID), zap.Error(err))
		return nil, fmt.Errorf("unable to decode data: %v", err)
	}

	if serializedMetadata != "null" {
		err = json.Unmarshal([]byte(serializedMetadata), &record.Metadata)
		if err != nil {
			s.logger.Error("unable to unmarshal metadata", zap.String("eventID", record.EventID), zap.Error(err))
			return nil, fmt.Errorf("unable to unmarshal metadata: %v", err)
		}
	}

	return &record, nil
}

// sendResult reports whether the producer should continue.
func (s *sqliteStore) sendResult(ctx context.Context, resultRecords chan<- spacebot.ResultRecord, record *spacebot.Record, err error) bool {
	select {
	case <-ctx.Done():
		return false
	case resultRecords <- spacebot.ResultRecord{Record: record, Err: err}:
	}

	return err == nil
}
