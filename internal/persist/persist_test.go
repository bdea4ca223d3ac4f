package persist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gabweb/climate-schedule/internal/model"
)

func writeFixture(t *testing.T, dir, name string, doc map[string]any) {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func readFixture(t *testing.T, dir, name string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestLoadRoomsCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, 10)

	doc, err := store.LoadRooms()
	require.NoError(t, err)
	assert.Equal(t, CurrentRoomsVersion, doc.Version)
	assert.Empty(t, doc.Rooms)
	assert.NotEmpty(t, doc.UpdatedAt)

	// The default must have been persisted.
	_, err = os.Stat(filepath.Join(dir, "rooms.json"))
	assert.NoError(t, err)
}

func TestLoadRoomsInjectsMissingVersion(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, 10)

	writeFixture(t, dir, "rooms.json", map[string]any{
		"rooms": []any{},
	})

	doc, err := store.LoadRooms()
	require.NoError(t, err)
	assert.Equal(t, CurrentRoomsVersion, doc.Version)

	onDisk := readFixture(t, dir, "rooms.json")
	assert.Equal(t, float64(CurrentRoomsVersion), onDisk["version"])
}

func TestLoadRoomsRejectsNewerVersion(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, 10)

	writeFixture(t, dir, "rooms.json", map[string]any{
		"version": 99,
		"rooms":   []any{},
	})

	_, err := store.LoadRooms()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestLoadRoomsRejectsUnrecognizableDocument(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, 10)

	writeFixture(t, dir, "rooms.json", map[string]any{"something": "else"})

	_, err := store.LoadRooms()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version")
}

func TestSaveRoomsRejectsInvalidDocument(t *testing.T) {
	store := New(t.TempDir(), 10)

	doc := DefaultRoomsFile()
	doc.Rooms = []model.RoomConfig{{Name: ""}}

	err := store.SaveRooms(&doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rooms[0].name")
}

func TestSaveRoomsRefreshesTimestamp(t *testing.T) {
	store := New(t.TempDir(), 10)

	doc := DefaultRoomsFile()
	doc.UpdatedAt = "2001-01-01T00:00:00Z"
	require.NoError(t, store.SaveRooms(&doc))
	assert.NotEqual(t, "2001-01-01T00:00:00Z", doc.UpdatedAt)
}

func TestLoadSettingsDefaultsAndMigration(t *testing.T) {
	t.Run("creates default", func(t *testing.T) {
		store := New(t.TempDir(), 10)
		doc, err := store.LoadSettings()
		require.NoError(t, err)
		assert.Equal(t, CurrentSettingsVersion, doc.Version)
		assert.False(t, doc.HolidayModeEnabled)
	})

	t.Run("injects version into legacy document", func(t *testing.T) {
		dir := t.TempDir()
		store := New(dir, 10)
		writeFixture(t, dir, "settings.json", map[string]any{
			"holidayModeEnabled": true,
		})

		doc, err := store.LoadSettings()
		require.NoError(t, err)
		assert.Equal(t, CurrentSettingsVersion, doc.Version)
		assert.True(t, doc.HolidayModeEnabled)
	})
}

func legacyWaterHeaterV1(targetC float64) map[string]any {
	return map[string]any{
		"entityId":       "climate.water_heater",
		"activeModeName": "Default",
		"modes": []any{
			map[string]any{
				"name": "Default",
				"schedule": []any{
					map[string]any{"start": "00:00", "end": "23:59", "targetC": targetC},
				},
			},
		},
	}
}

func TestLoadWaterHeaterMigratesV1(t *testing.T) {
	t.Run("hot target becomes enabled", func(t *testing.T) {
		dir := t.TempDir()
		store := New(dir, 10)
		writeFixture(t, dir, "water-heater.json", legacyWaterHeaterV1(50))

		doc, err := store.LoadWaterHeater()
		require.NoError(t, err)
		assert.Equal(t, CurrentWaterHeaterVersion, doc.Version)
		assert.True(t, doc.Modes[0].Schedule[0].Enabled)
		assert.Equal(t, 55.0, doc.HeatingTemperatureC)

		// The migrated form is written back.
		onDisk := readFixture(t, dir, "water-heater.json")
		assert.Equal(t, float64(CurrentWaterHeaterVersion), onDisk["version"])
	})

	t.Run("cold target becomes disabled", func(t *testing.T) {
		dir := t.TempDir()
		store := New(dir, 10)
		writeFixture(t, dir, "water-heater.json", legacyWaterHeaterV1(0))

		doc, err := store.LoadWaterHeater()
		require.NoError(t, err)
		assert.False(t, doc.Modes[0].Schedule[0].Enabled)
	})

	t.Run("malformed v1 schedule fails", func(t *testing.T) {
		dir := t.TempDir()
		store := New(dir, 10)
		fixture := legacyWaterHeaterV1(50)
		fixture["modes"].([]any)[0].(map[string]any)["schedule"] = []any{
			map[string]any{"start": "00:00", "end": "23:59"},
		}
		writeFixture(t, dir, "water-heater.json", fixture)

		_, err := store.LoadWaterHeater()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "targetC")
	})
}

func TestLoadWaterHeaterIdempotentReload(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, 10)

	first, err := store.LoadWaterHeater()
	require.NoError(t, err)

	stat1, err := os.Stat(filepath.Join(dir, "water-heater.json"))
	require.NoError(t, err)

	second, err := store.LoadWaterHeater()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// An already-current document is not rewritten on load.
	stat2, err := os.Stat(filepath.Join(dir, "water-heater.json"))
	require.NoError(t, err)
	assert.Equal(t, stat1.ModTime(), stat2.ModTime())
}

func TestLoadWaterHeaterRejectsFractionalVersion(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, 10)
	fixture := legacyWaterHeaterV1(50)
	fixture["version"] = 1.5
	writeFixture(t, dir, "water-heater.json", fixture)

	_, err := store.LoadWaterHeater()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "integer")
}

func TestNewRoomDefaults(t *testing.T) {
	room := NewRoom("Office", model.Floor1OG, []model.ClimateEntity{
		{Type: model.EntityTypeHAClimate, EntityID: "climate.office"},
	})

	assert.Equal(t, "1OG::Office", room.Key())
	require.Len(t, room.Modes, 1)
	assert.Equal(t, DefaultModeName, room.ActiveModeName)
	assert.Equal(t, DefaultScheduleBlocks, room.Modes[0].Schedule)

	// Each mode gets its own schedule slice.
	room.Modes[0].Schedule[0].TargetC = 99
	assert.Equal(t, 19.0, DefaultScheduleBlocks[0].TargetC)
}
