package spacebot

import (
	"context"
)

// ResultRecord combines Record and error as a result struct for event queries.
type ResultRecord struct {
	Record *Record
	Err    error
}

// RecordIterator is used to traverse a stream of record events.
type RecordIterator interface {
	Next() bool
	NextContext(ctx context.Context) bool
	Record() *Record
	Err() error
}

type recordIterator struct {
	resultRecords <-chan ResultRecord
	current       ResultRecord
}

// NewRecordIterator constructs a new Record iterator.
func NewRecordIterator(recordResult <-chan ResultRecord) *recordIterator {
	return &recordIterator{resultRecords: recordResult}
}

// NewRecordIteratorWithError constructs an iterator that only yields err.
func NewRecordIteratorWithError(err error) *recordIterator {
	records := make(chan ResultRecord, 1)
	records <- ResultRecord{Err: err}
	close(records)
	return NewRecordIterator(records)
}

// NewRecordIteratorFromRecords constructs an iterator over an in-memory slice.
func NewRecordIteratorFromRecords(records []*Record) *recordIterator {
	resultRecords := make(chan ResultRecord, len(records))
	for _, record := range records {
		resultRecords <- ResultRecord{Record: record}
	}
	close(resultRecords)
	return NewRecordIterator(resultRecords)
}

// Next blocks until the next record arrives or the producer finishes.
func (i *recordIterator) Next() bool {
	return i.NextContext(context.Background())
}

// NextContext is Next, giving up with ctx.Err() once ctx is done.
func (i *recordIterator) NextContext(ctx context.Context) bool {
	if i.current.Err != nil {
		return false
	}

	select {
	case result, ok := <-i.resultRecords:
		i.current = result
		if !ok && ctx.Err() != nil {
			// producers close early once ctx is done
			i.current.Err = ctx.Err()
		}

	case <-ctx.Done():
		i.current = ResultRecord{Err: ctx.Err()}
	}

	return i.current.Record != nil
}

func (i *recordIterator) Record() *Record {
	return i.current.Record
}

func (i *recordIterator) Err() error {
	return i.current.Err
}
