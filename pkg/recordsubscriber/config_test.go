package recordsubscriber_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denhac/spacebot"
	"github.com/denhac/spacebot/pkg/broadcast"
	"github.com/denhac/spacebot/pkg/recordsubscriber"
	"github.com/denhac/spacebot/provider/inmemorystore"
	"github.com/denhac/spacebot/spacebottest"
)

func TestConfig(t *testing.T) {
	// Given
	ctx := spacebottest.TimeoutContext(t)
	store := inmemorystore.New()
	spacebottest.BindEvents(store)
	require.NoError(t, store.Save(ctx, &spacebot.EventRecord{Event: spacebottest.BadgeWasScanned{ReaderID: "A", Number: 1}}))
	require.NoError(t, store.Save(ctx, &spacebot.EventRecord{Event: spacebottest.DoorWasUnlocked{DoorID: "A"}}))
	broadcaster := broadcast.New(1)
	t.Cleanup(broadcaster.Close)
	consumeRecord := func(record *spacebot.Record) error {
		return nil
	}

	// When
	allEventsConfig := recordsubscriber.AllEventsConfig(ctx, store, broadcaster, 3, consumeRecord)
	aggregateTypesConfig := recordsubscriber.AggregateTypesConfig(ctx, store, broadcaster, 2, []string{"door"}, consumeRecord)

	// Then
	assert.Equal(t, 3, allEventsConfig.BufferSize)
	assert.Equal(t, 2, aggregateTypesConfig.BufferSize)
	allRecords, err := spacebot.ReadRecords(ctx, allEventsConfig.GetRecords(0))
	require.NoError(t, err)
	assert.Len(t, allRecords, 2)
	doorRecords, err := spacebot.ReadRecords(ctx, aggregateTypesConfig.GetRecords(0))
	require.NoError(t, err)
	require.Len(t, doorRecords, 1)
	assert.Equal(t, "door", doorRecords[0].AggregateType)
}
