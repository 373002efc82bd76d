package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventsSource = `package door

type DoorOpened struct {
	DoorID string
}

type DoorClosed struct {
	DoorID string
}
`

func TestRun(t *testing.T) {
	t.Run("writes events next to the input file", func(t *testing.T) {
		// Given
		inFile := writeSource(t, "door_events.go", eventsSource)

		// When
		err := run([]string{"events", "-package", "door", "-id", "DoorID", "-aggregateType", "door", "-inFile", inFile})

		// Then
		require.NoError(t, err)
		generated, err := os.ReadFile(filepath.Join(filepath.Dir(inFile), "door_events_gen.go"))
		require.NoError(t, err)
		assert.Contains(t, string(generated), `func (e DoorClosed) EventType() string { return "DoorClosed" }`)
		assert.Contains(t, string(generated), `func (e DoorOpened) AggregateID() string { return e.DoorID }`)
	})

	t.Run("writes the aggregate dispatch", func(t *testing.T) {
		// Given
		inFile := writeSource(t, "door_commands.go", `package door

type OpenDoor struct {
	DoorID string
}
`)
		outFile := filepath.Join(t.TempDir(), "door_aggregate_gen.go")

		// When
		err := run([]string{"aggregate", "-package", "door", "-name", "door", "-inFile", inFile, "-outFile", outFile})

		// Then
		require.NoError(t, err)
		generated, err := os.ReadFile(outFile)
		require.NoError(t, err)
		assert.Contains(t, string(generated), "a.openDoor(c)")
	})

	t.Run("errors", func(t *testing.T) {
		inFile := writeSource(t, "door_events.go", eventsSource)

		tests := []struct {
			name string
			args []string
		}{
			{name: "no subcommand", args: nil},
			{name: "unknown subcommand", args: []string{"projections"}},
			{name: "missing input", args: []string{"events", "-inFile", filepath.Join(t.TempDir(), "missing.go")}},
			{name: "missing aggregate name", args: []string{"aggregate", "-package", "door", "-inFile", inFile, "-outFile", filepath.Join(t.TempDir(), "out.go")}},
			{name: "bad flag", args: []string{"commands", "-unknown"}},
		}

		for _, tc := range tests {
			tc := tc
			t.Run(tc.name, func(t *testing.T) {
				// When
				err := run(tc.args)

				// Then
				assert.Error(t, err)
			})
		}
	})
}

func writeSource(t *testing.T, name, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(source), 0o600))
	return path
}
