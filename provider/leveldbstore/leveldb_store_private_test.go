package leveldbstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/denhac/spacebot"
	"github.com/denhac/spacebot/provider/jsonrecordserializer"
	"github.com/denhac/spacebot/spacebottest"
)

func Test_Private_AllEvents_FailsWhenLookupRecordIsMissing(t *testing.T) {
	// Given
	core, logs := observer.New(zapcore.ErrorLevel)
	store := newPrivateStore(t, zap.New(core))
	ctx := spacebottest.TimeoutContext(t)
	require.NoError(t, store.Save(ctx, &spacebot.EventRecord{Event: &spacebottest.BadgeWasScanned{ReaderID: "A"}}))
	require.NoError(t, store.db.Delete(getKeyWithNumber("badge!A!", 0), nil))

	// When
	recordIterator := store.EventsStartingWith(ctx, 0)

	// Then
	assert.False(t, recordIterator.Next())
	assert.Nil(t, recordIterator.Record())
	assert.EqualError(t, recordIterator.Err(), "leveldb: not found")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "unable to find lookup record", logs.All()[0].Message)
}

func Test_Private_AllEvents_FailsWhenLookupRecordIsCorrupt(t *testing.T) {
	// Given
	core, logs := observer.New(zapcore.ErrorLevel)
	store := newPrivateStore(t, zap.New(core))
	ctx := spacebottest.TimeoutContext(t)
	require.NoError(t, store.Save(ctx, &spacebot.EventRecord{Event: &spacebottest.BadgeWasScanned{ReaderID: "A"}}))
	require.NoError(t, store.db.Put(getKeyWithNumber("badge!A!", 0), []byte(`xyz`), nil))

	// When
	recordIterator := store.EventsStartingWith(ctx, 0)

	// Then
	assert.False(t, recordIterator.Next())
	assert.Nil(t, recordIterator.Record())
	assert.EqualError(t, recordIterator.Err(), "failed unmarshalling record: invalid character 'x' looking for beginning of value")
	assert.Equal(t, 1, logs.FilterMessage("failed to deserialize record").Len())
}

func Test_Private_KeysSortByNumber(t *testing.T) {
	// Given
	low := getKeyWithNumber(allEventsPrefix, 255)
	high := getKeyWithNumber(allEventsPrefix, 256)

	// Then
	assert.Less(t, string(low), string(high))
	assert.Equal(t, uint64(256), bytesToUint64(high[len(allEventsPrefix):]))
}

func newPrivateStore(t *testing.T, logger *zap.Logger) *levelDbStore {
	t.Helper()

	store, err := New(filepath.Join(t.TempDir(), "events"),
		WithSerializer(jsonrecordserializer.New()),
		WithLogger(logger),
	)
	require.NoError(t, err)
	spacebottest.BindEvents(store)
	t.Cleanup(func() {
		require.NoError(t, store.Stop())
	})

	return store
}
