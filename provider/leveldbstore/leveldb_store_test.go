package leveldbstore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denhac/spacebot"
	"github.com/denhac/spacebot/pkg/clock"
	"github.com/denhac/spacebot/provider/jsonrecordserializer"
	"github.com/denhac/spacebot/provider/leveldbstore"
	"github.com/denhac/spacebot/spacebottest"
)

func Test_LevelDB_VerifyStoreInterface(t *testing.T) {
	spacebottest.VerifyStore(t, func(t *testing.T, clk clock.Clock) spacebot.Store {
		dbPath := filepath.Join(t.TempDir(), "events")

		store, err := leveldbstore.New(dbPath,
			leveldbstore.WithClock(clk),
		)
		require.NoError(t, err)

		t.Cleanup(func() {
			require.NoError(t, store.Stop())
		})

		return store
	})
}

func Test_LevelDB_WithJSONSerializer_VerifyStoreInterface(t *testing.T) {
	spacebottest.VerifyStore(t, func(t *testing.T, clk clock.Clock) spacebot.Store {
		dbPath := filepath.Join(t.TempDir(), "events")

		store, err := leveldbstore.New(dbPath,
			leveldbstore.WithClock(clk),
			leveldbstore.WithSerializer(jsonrecordserializer.New()),
		)
		require.NoError(t, err)

		t.Cleanup(func() {
			require.NoError(t, store.Stop())
		})

		return store
	})
}

func Test_LevelDB_ReopensExistingDatabase(t *testing.T) {
	// Given
	dbPath := filepath.Join(t.TempDir(), "events")
	ctx := spacebottest.TimeoutContext(t)
	store, err := leveldbstore.New(dbPath)
	require.NoError(t, err)
	spacebottest.BindEvents(store)
	require.NoError(t, store.Save(ctx,
		&spacebot.EventRecord{Event: &spacebottest.BadgeWasScanned{ReaderID: "A", Number: 1}},
		&spacebot.EventRecord{Event: &spacebottest.BadgeWasScanned{ReaderID: "A", Number: 2}},
	))
	require.NoError(t, store.Stop())

	// When
	reopenedStore, err := leveldbstore.New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, reopenedStore.Stop())
	})
	spacebottest.BindEvents(reopenedStore)
	err = reopenedStore.OptimisticSave(ctx, 2,
		&spacebot.EventRecord{Event: &spacebottest.BadgeWasScanned{ReaderID: "A", Number: 3}},
	)

	// Then
	require.NoError(t, err)
	records, err := spacebot.ReadRecords(ctx, reopenedStore.EventsStartingWith(ctx, 0))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, &spacebottest.BadgeWasScanned{ReaderID: "A", Number: 3}, records[2].Data)
	assert.Equal(t, uint64(2), records[2].GlobalSequenceNumber)
}

func Test_LevelDB_FailsToOpenFileAsDirectory(t *testing.T) {
	// Given
	dbPath := filepath.Join(t.TempDir(), "not-a-directory")
	require.NoError(t, os.WriteFile(dbPath, []byte("x"), 0600))

	// When
	_, err := leveldbstore.New(dbPath)

	// Then
	assert.Error(t, err)
}
