package eventid

import (
	"encoding/hex"
	"math/rand"

	"github.com/google/uuid"
)

// Generator returns unique event ids.
type Generator interface {
	New() string
}

// New returns a random v4 UUID as 32 lowercase hex characters.
func New() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// SetRand seeds the underlying random source. Only intended for tests.
func SetRand(seed int64) {
	uuid.SetRand(rand.New(rand.NewSource(seed)))
}

type randomGenerator struct{}

// NewRandomGenerator constructs a Generator backed by New.
func NewRandomGenerator() Generator {
	return randomGenerator{}
}

func (randomGenerator) New() string {
	return New()
}
