package keymutex_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/denhac/spacebot/pkg/keymutex"
)

func TestStriped(t *testing.T) {
	t.Run("one stripe shares a lock across keys", func(t *testing.T) {
		// Given
		keyMutex := keymutex.NewStriped(1)

		// When
		lockerA := keyMutex.Get("membership!a")
		lockerB := keyMutex.Get("membership!b")

		// Then
		assert.Same(t, lockerA, lockerB)
	})

	t.Run("zero stripes still locks", func(t *testing.T) {
		// Given
		keyMutex := keymutex.NewStriped(0)

		// When
		locker := keyMutex.Get("membership!a")

		// Then
		locker.Lock()
		locker.Unlock()
	})

	t.Run("same key returns same locker", func(t *testing.T) {
		// Given
		keyMutex := keymutex.NewStriped(1024)

		// When
		first := keyMutex.Get("membership!1042")
		second := keyMutex.Get("membership!1042")

		// Then
		assert.Same(t, first, second)
	})

	t.Run("serializes concurrent writers to one key", func(t *testing.T) {
		// Given
		keyMutex := keymutex.NewStriped(16)
		const totalWriters = 50
		counter := 0
		var wg sync.WaitGroup
		wg.Add(totalWriters)

		// When
		for i := 0; i < totalWriters; i++ {
			go func() {
				defer wg.Done()
				locker := keyMutex.Get("membership!1042")
				locker.Lock()
				counter++
				locker.Unlock()
			}()
		}
		wg.Wait()

		// Then
		assert.Equal(t, totalWriters, counter)
	})
}
