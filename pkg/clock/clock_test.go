package clock_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/denhac/spacebot/pkg/clock"
)

func TestSystem(t *testing.T) {
	// Given
	before := time.Now()

	// When
	now := clock.System().Now()

	// Then
	assert.False(t, now.Before(before))
}

func TestSequential(t *testing.T) {
	// Given
	sequential := clock.Sequential()
	other := clock.Sequential()

	// When
	first := sequential.Now()
	second := sequential.Now()

	// Then
	assert.Equal(t, int64(0), first.Unix())
	assert.Equal(t, int64(1), second.Unix())
	assert.Equal(t, int64(0), other.Now().Unix())
}

func ExampleSequential() {
	sequential := clock.Sequential()

	fmt.Println(sequential.Now().Unix())
	fmt.Println(sequential.Now().Unix())
	fmt.Println(sequential.Now().Unix())

	// Output:
	// 0
	// 1
	// 2
}
