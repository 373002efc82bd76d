package postgresstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/denhac/spacebot"
	"github.com/denhac/spacebot/pkg/clock"
	"github.com/denhac/spacebot/pkg/eventid"
	"github.com/denhac/spacebot/provider/jsonrecordserializer"
)

const selectRecordColumns = "SELECT AggregateType,AggregateID,GlobalSequenceNumber,StreamSequenceNumber,InsertTimestamp,EventID,EventType,Data,Metadata FROM record"

// JSONSerializer binds events and resolves their types for JSON decoding.
type JSONSerializer interface {
	spacebot.EventBinder
	spacebot.EventTypeIdentifier
}

type dbQueryable interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type dbExecAble interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type postgresStore struct {
	config        Config
	clock         clock.Clock
	uuidGenerator eventid.Generator
	serializer    JSONSerializer
	logger        *zap.Logger
	db            *sql.DB

	subscriberMux sync.RWMutex
	subscribers   []spacebot.RecordSubscriber
	notifyMux     sync.Mutex
}

// Option defines functional option parameters for postgresStore.
type Option func(*postgresStore)

// WithClock is a functional option to inject a clock.Clock.
func WithClock(clock clock.Clock) Option {
	return func(store *postgresStore) {
		store.clock = clock
	}
}

// WithUUIDGenerator is a functional option to inject an eventid.Generator.
func WithUUIDGenerator(uuidGenerator eventid.Generator) Option {
	return func(store *postgresStore) {
		store.uuidGenerator = uuidGenerator
	}
}

// WithLogger is a functional option to inject a zap Logger.
func WithLogger(logger *zap.Logger) Option {
	return func(store *postgresStore) {
		store.logger = logger
	}
}

// New constructs a postgresStore and connects to the DB.
func New(config *Config, options ...Option) (*postgresStore, error) {
	s := &postgresStore{
		config:        *config,
		clock:         clock.System(),
		uuidGenerator: eventid.NewRandomGenerator(),
		serializer:    jsonrecordserializer.New(),
		logger:        zap.NewNop(),
	}

	for _, option := range options {
		option(s)
	}

	err := s.connectToDB()
	if err != nil {
		return nil, err
	}

	return s, nil
}

// InitDB creates the record table when missing.
func (s *postgresStore) InitDB() error {
	sqlStatements := []string{
		`CREATE TABLE IF NOT EXISTS record (
		AggregateType TEXT NOT NULL,
		AggregateID TEXT NOT NULL,
		GlobalSequenceNumber BIGINT PRIMARY KEY,
		StreamSequenceNumber BIGINT NOT NULL,
		InsertTimestamp BIGINT NOT NULL,
		EventID TEXT NOT NULL,
		EventType TEXT NOT NULL,
		Data TEXT NOT NULL,
		Metadata TEXT NOT NULL,
		UNIQUE (AggregateType, AggregateID, StreamSequenceNumber)
	);`,
		`CREATE INDEX IF NOT EXISTS record_idx_aggregate_type ON record (
		AggregateType
	);`,
	}

	for _, statement := range sqlStatements {
		_, err := s.db.Exec(statement)
		if err != nil {
			return fmt.Errorf("unable to init DB: %w", err)
		}
	}

	return nil
}

// CloseDB closes the postgres DB connection.
func (s *postgresStore) CloseDB() error {
	return s.db.Close()
}

func (s *postgresStore) Bind(events ...spacebot.Event) {
	s.serializer.Bind(events...)
}

func (s *postgresStore) EventsStartingWith(ctx context.Context, globalSequenceNumber uint64) spacebot.RecordIterator {
	return s.queryRecords(ctx,
		selectRecordColumns+" WHERE GlobalSequenceNumber >= $1 ORDER BY GlobalSequenceNumber",
		int64(globalSequenceNumber),
	)
}

func (s *postgresStore) EventsByAggregateTypesStartingWith(ctx context.Context, globalSequenceNumber uint64, aggregateTypes ...string) spacebot.RecordIterator {
	return s.queryRecords(ctx,
		selectRecordColumns+" WHERE AggregateType = ANY($1) AND GlobalSequenceNumber >= $2 ORDER BY GlobalSequenceNumber",
		pq.Array(aggregateTypes),
		int64(globalSequenceNumber),
	)
}

func (s *postgresStore) EventsByStreamStartingWith(ctx context.Context, streamSequenceNumber uint64, streamName string) spacebot.RecordIterator {
	aggregateType, aggregateID := spacebot.ParseStream(streamName)
	return s.queryRecords(ctx,
		selectRecordColumns+" WHERE AggregateType = $1 AND AggregateID = $2 AND StreamSequenceNumber >= $3 ORDER BY StreamSequenceNumber",
		aggregateType,
		aggregateID,
		int64(streamSequenceNumber),
	)
}

func (s *postgresStore) OptimisticSave(ctx context.Context, expectedStreamSequenceNumber uint64, eventRecords ...*spacebot.EventRecord) error {
	return s.saveEvents(ctx, &expectedStreamSequenceNumber, eventRecords)
}

func (s *postgresStore) Save(ctx context.Context, eventRecords ...*spacebot.EventRecord) error {
	return s.saveEvents(ctx, nil, eventRecords)
}

type batchRecord struct {
	record   *spacebot.Record
	data     string
	metadata string
}

func (s *postgresStore) saveEvents(ctx context.Context, expectedStreamSequenceNumber *uint64, eventRecords []*spacebot.EventRecord) error {
	stream, err := spacebot.StreamOfEventRecords(eventRecords)
	if err != nil {
		return err
	}

	aggregateType, aggregateID := spacebot.ParseStream(stream)

	var batch []*batchRecord
	for _, eventRecord := range eventRecords {
		jsonData, err := json.Marshal(eventRecord.Event)
		if err != nil {
			return err
		}

		jsonMetadata, err := json.Marshal(eventRecord.Metadata)
		if err != nil {
			return err
		}

		batch = append(batch, &batchRecord{
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

	transaction, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = transaction.Rollback() }()

	err = lockRecordTable(ctx, transaction)
	if err != nil {
		return err
	}

	nextStreamSequenceNumber, err := getNextStreamSequenceNumber(ctx, transaction, aggregateType, aggregateID)
	if err != nil {
		return err
	}

	if expectedStreamSequenceNumber != nil && *expectedStreamSequenceNumber != nextStreamSequenceNumber {
		return &spacebot.UnexpectedSequenceNumber{
			Expected:           *expectedStreamSequenceNumber,
			NextSequenceNumber: nextStreamSequenceNumber,
		}
	}

	nextGlobalSequenceNumber, err := getNextGlobalSequenceNumber(ctx, transaction)
	if err != nil {
		return err
	}

	for i, item := range batch {
		item.record.GlobalSequenceNumber = nextGlobalSequenceNumber + uint64(i)
		item.record.StreamSequenceNumber = nextStreamSequenceNumber + uint64(i)
		item.record.InsertTimestamp = uint64(s.clock.Now().Unix())
	}

	err = batchInsert(ctx, transaction, batch)
	if err != nil {
		return err
	}

	s.notifyMux.Lock()
	defer s.notifyMux.Unlock()

	err = transaction.Commit()
	if err != nil {
		return err
	}

	for _, item := range batch {
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

func (s *postgresStore) Subscribe(ctx context.Context, subscribers ...spacebot.RecordSubscriber) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.subscriberMux.Lock()
	s.subscribers = append(s.subscribers, subscribers...)
	s.subscriberMux.Unlock()

	return nil
}

func (s *postgresStore) TotalEventsInStream(ctx context.Context, streamName string) (uint64, error) {
	aggregateType, aggregateID := spacebot.ParseStream(streamName)
	return getNextStreamSequenceNumber(ctx, s.db, aggregateType, aggregateID)
}

func (s *postgresStore) notifySubscribers(record *spacebot.Record) {
	s.subscriberMux.RLock()
	defer s.subscriberMux.RUnlock()

	for _, subscriber := range s.subscribers {
		subscriber.Accept(record)
	}
}

func (s *postgresStore) connectToDB() error {
	db, err := sql.Open("postgres", s.config.DataSourceName())
	if err != nil {
		return fmt.Errorf("unable to open DB connection: %v", err)
	}

	err = db.Ping()
	if err != nil {
		return fmt.Errorf("unable to connect to DB: %v", err)
	}

	s.db = db

	return nil
}

// lockRecordTable serializes writers so sequence numbers stay gapless.
func lockRecordTable(ctx context.Context, db dbExecAble) error {
	_, err := db.ExecContext(ctx, "LOCK TABLE record IN EXCLUSIVE MODE")
	if err != nil {
		return fmt.Errorf("unable to obtain lock: %v", err)
	}

	return nil
}

func getNextStreamSequenceNumber(ctx context.Context, db dbQueryable, aggregateType, aggregateID string) (uint64, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT COALESCE(MAX(StreamSequenceNumber) + 1, 0) FROM record WHERE AggregateType = $1 AND AggregateID = $2",
		aggregateType,
		aggregateID,
	)
	if err != nil {
		return 0, err
	}

	return scanSingleUint64(rows)
}

func getNextGlobalSequenceNumber(ctx context.Context, db dbQueryable) (uint64, error) {
	rows, err := db.QueryContext(ctx, "SELECT COALESCE(MAX(GlobalSequenceNumber) + 1, 0) FROM record")
	if err != nil {
		return 0, err
	}

	return scanSingleUint64(rows)
}

func scanSingleUint64(rows *sql.Rows) (uint64, error) {
	defer rows.Close()

	var number int64
	if rows.Next() {
		if err := rows.Scan(&number); err != nil {
			return 0, err
		}
	}

	if err := rows.Err(); err != nil {
		return 0, err
	}

	return uint64(number), nil
}

func batchInsert(ctx context.Context, db dbExecAble, batch []*batchRecord) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*9)
	i := 0
	for _, item := range batch {
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			i+1, i+2, i+3, i+4, i+5, i+6, i+7, i+8, i+9))
		valueArgs = append(valueArgs,
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
		i += 9
	}

	sqlStatement := fmt.Sprintf(
		"INSERT INTO record (AggregateType,AggregateID,GlobalSequenceNumber,StreamSequenceNumber,InsertTimestamp,EventID,EventType,Data,Metadata) VALUES %s",
		strings.Join(valueStrings, ","),
	)

	_, err := db.ExecContext(ctx, sqlStatement, valueArgs...)
	if err != nil {
		return fmt.Errorf("unable to insert: %v", err)
	}

	return nil
}

func (s *postgresStore) queryRecords(ctx context.Context, query string, args ...interface{}) spacebot.RecordIterator {
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

func (s *postgresStore) scanRecord(rows *sql.Rows) (*spacebot.Record, error) {
	var (
		aggregateType        string
		aggregateID          string
		globalSequenceNumber int64
		streamSequenceNumber int64
		insertTimestamp      int64
		eventID              string
		eventType            string
		serializedData       string
		serializedMetadata   string
	)
	err := rows.Scan(&aggregateType, &aggregateID, &globalSequenceNumber, &streamSequenceNumber,
		&insertTimestamp, &eventID, &eventType, &serializedData, &serializedMetadata)
	if err != nil {
		return nil, err
	}

	data, err := jsonrecordserializer.DecodeJSONData(eventType, strings.NewReader(serializedData), s.serializer)
	if err != nil {
		s.logger.Error("unable to decode data", zap.String("eventID", eventID), zap.Error(err))
		return nil, fmt.Errorf("unable to decode data: %v", err)
	}

	var metadata interface{}
	if serializedMetadata != "null" {
		err = json.Unmarshal([]byte(serializedMetadata), &metadata)
		if err != nil {
			s.logger.Error("unable to unmarshal metadata", zap.String("eventID", eventID), zap.Error(err))
			return nil, fmt.Errorf("unable to unmarshal metadata: %v", err)
		}
	}

	return &spacebot.Record{
		AggregateType:        aggregateType,
		AggregateID:          aggregateID,
		GlobalSequenceNumber: uint64(globalSequenceNumber),
		StreamSequenceNumber: uint64(streamSequenceNumber),
		InsertTimestamp:      uint64(insertTimestamp),
		EventID:              eventID,
		EventType:            eventType,
		Data:                 data,
		Metadata:             metadata,
	}, nil
}

// sendResult reports whether the producer should continue.
func (s *postgresStore) sendResult(ctx context.Context, resultRecords chan<- spacebot.ResultRecord, record *spacebot.Record, err error) bool {
	select {
	case <-ctx.Done():
		return false
	case resultRecords <- spacebot.ResultRecord{Record: record, Err: err}:
	}

	return err == nil
}
