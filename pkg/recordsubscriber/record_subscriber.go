package recordsubscriber

import (
	"sync"

	"github.com/denhac/spacebot"
	"github.com/denhac/spacebot/pkg/broadcast"
)

// GetRecordsIteratorFunc reads stored records starting at globalSequenceNumber.
type GetRecordsIteratorFunc func(globalSequenceNumber uint64) spacebot.RecordIterator

// ConsumeRecordFunc handles one record. An error ends the subscription.
type ConsumeRecordFunc func(record *spacebot.Record) error

// SubscribeFunc registers or removes a live subscriber.
type SubscribeFunc func(subscriber broadcast.RecordSubscriber)

// recordSubscriber replays stored records, then switches to live records
// without skipping or repeating a global sequence number.
type recordSubscriber struct {
	bufferedRecords          chan *spacebot.Record
	getRecords               GetRecordsIteratorFunc
	consumeRecord            ConsumeRecordFunc
	subscribe                SubscribeFunc
	unsubscribe              SubscribeFunc
	doneChan                 <-chan struct{}
	nextGlobalSequenceNumber uint64

	closeOnce sync.Once
	stopChan  chan struct{}
	finished  chan struct{}
}

func New(config Config) *recordSubscriber {
	return &recordSubscriber{
		stopChan:        make(chan struct{}),
		finished:        make(chan struct{}),
		bufferedRecords: make(chan *spacebot.Record, config.BufferSize),
		getRecords:      config.GetRecords,
		consumeRecord:   config.ConsumeRecord,
		subscribe:       config.Subscribe,
		unsubscribe:     config.Unsubscribe,
		doneChan:        config.DoneChan,
	}
}

func (s *recordSubscriber) Receiver() broadcast.SendRecordChan {
	return s.bufferedRecords
}

// StartFrom consumes stored records from globalSequenceNumber, subscribes for
// live records, then catches up on anything saved while subscribing.
func (s *recordSubscriber) StartFrom(globalSequenceNumber uint64) error {
	s.nextGlobalSequenceNumber = globalSequenceNumber

	err := s.writeRecords()
	if err != nil {
		close(s.finished)
		return err
	}

	s.subscribe(s)

	err = s.writeRecords()
	if err != nil {
		s.unsubscribe(s)
		close(s.finished)
		return err
	}

	go s.work()

	return nil
}

// Done is closed once the subscriber stops consuming records.
func (s *recordSubscriber) Done() <-chan struct{} {
	return s.finished
}

func (s *recordSubscriber) work() {
	defer close(s.finished)

	for {
		select {
		case <-s.stopChan:
			s.unsubscribe(s)
			return

		case <-s.doneChan:
			s.unsubscribe(s)
			return

		case record := <-s.bufferedRecords:
			if record.GlobalSequenceNumber < s.nextGlobalSequenceNumber {
				continue
			}

			err := s.writeRecord(record)
			if err != nil {
				s.unsubscribe(s)
				return
			}
		}
	}
}

func (s *recordSubscriber) Stop() {
	s.closeOnce.Do(func() {
		close(s.stopChan)
	})
}

func (s *recordSubscriber) writeRecords() error {
	iter := s.getRecords(s.nextGlobalSequenceNumber)
	for iter.Next() {
		err := s.writeRecord(iter.Record())
		if err != nil {
			return err
		}
	}

	return iter.Err()
}

func (s *recordSubscriber) writeRecord(record *spacebot.Record) error {
	s.nextGlobalSequenceNumber = record.GlobalSequenceNumber + 1
	return s.consumeRecord(record)
}
