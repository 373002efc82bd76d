package keymutex

import (
	"hash/fnv"
	"sync"
)

// KeyMutex hands out a Locker per key. Two calls with the same key always
// return the same Locker.
type KeyMutex interface {
	Get(key string) sync.Locker
}

type striped struct {
	stripes []sync.Mutex
}

// NewStriped constructs a KeyMutex that spreads keys over a fixed number of locks.
// Distinct keys may share a lock.
func NewStriped(totalStripes uint16) *striped {
	if totalStripes == 0 {
		totalStripes = 1
	}

	return &striped{
		stripes: make([]sync.Mutex, totalStripes),
	}
}

func (s *striped) Get(key string) sync.Locker {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))

	return &s.stripes[h.Sum32()%uint32(len(s.stripes))]
}
