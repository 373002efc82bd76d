package projection

import (
	"sort"
	"sync"

	"github.com/denhac/spacebot"
)

// AggregateTypeStats counts records per aggregate type.
type AggregateTypeStats struct {
	mux                        sync.RWMutex
	totalEventsByAggregateType map[string]uint64
	totalEvents                uint64
	latestGlobalSequenceNumber uint64
}

func NewAggregateTypeStats() *AggregateTypeStats {
	return &AggregateTypeStats{
		totalEventsByAggregateType: make(map[string]uint64),
	}
}

// Accept receives a Record.
func (a *AggregateTypeStats) Accept(record *spacebot.Record) {
	a.mux.Lock()
	defer a.mux.Unlock()

	a.totalEventsByAggregateType[record.AggregateType]++
	a.totalEvents++
	a.latestGlobalSequenceNumber = record.GlobalSequenceNumber
}

func (a *AggregateTypeStats) Reset() {
	a.mux.Lock()
	defer a.mux.Unlock()

	a.totalEventsByAggregateType = make(map[string]uint64)
	a.totalEvents = 0
	a.latestGlobalSequenceNumber = 0
}

func (a *AggregateTypeStats) TotalEvents() uint64 {
	a.mux.RLock()
	defer a.mux.RUnlock()

	return a.totalEvents
}

func (a *AggregateTypeStats) LatestGlobalSequenceNumber() uint64 {
	a.mux.RLock()
	defer a.mux.RUnlock()

	return a.latestGlobalSequenceNumber
}

func (a *AggregateTypeStats) TotalEventsByAggregateType(aggregateType string) uint64 {
	a.mux.RLock()
	defer a.mux.RUnlock()

	return a.totalEventsByAggregateType[aggregateType]
}

func (a *AggregateTypeStats) SortedAggregateTypes() []string {
	a.mux.RLock()
	keys := make([]string, 0, len(a.totalEventsByAggregateType))
	for k := range a.totalEventsByAggregateType {
		keys = append(keys, k)
	}
	a.mux.RUnlock()

	sort.Strings(keys)
	return keys
}
