package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Gabweb/climate-schedule/internal/model"
)

func TestUniqueID(t *testing.T) {
	tests := []struct {
		name string
		room model.RoomConfig
		want string
	}{
		{
			"simple name",
			model.RoomConfig{Floor: model.FloorEG, Name: "Office"},
			"climateSchedule_EG_Office",
		},
		{
			"spaces collapse to underscores",
			model.RoomConfig{Floor: model.FloorEG, Name: "Living  Room"},
			"climateSchedule_EG_Living_Room",
		},
		{
			"special characters are stripped",
			model.RoomConfig{Floor: model.Floor1OG, Name: "Kid's Room #2"},
			"climateSchedule_1OG_Kids_Room_2",
		},
		{
			"umlauts are stripped",
			model.RoomConfig{Floor: model.FloorUG, Name: "Büro"},
			"climateSchedule_UG_Bro",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UniqueID(tt.room))
		})
	}
}

func TestTopicsFor(t *testing.T) {
	room := model.RoomConfig{Floor: model.FloorEG, Name: "Office"}
	topics := topicsFor(room)

	assert.Equal(t, "homeassistant/climate/climateSchedule_EG_Office/config", topics.discovery)
	assert.Equal(t, "climateSchedule/climateSchedule_EG_Office/command/preset", topics.presetCommand)
	assert.Equal(t, "climateSchedule/climateSchedule_EG_Office/state/target_temperature", topics.targetTemperature)
	assert.Equal(t, "climateSchedule/climateSchedule_EG_Office/availability", topics.availability)
}

func TestDiscoveryPayload(t *testing.T) {
	room := model.RoomConfig{
		Floor: model.FloorEG,
		Name:  "Office",
		Modes: []model.RoomMode{
			{Name: "Default"},
			{Name: "Vacation"},
		},
	}
	topics := topicsFor(room)
	payload := discoveryPayload(room, topics)

	assert.Equal(t, "Office", payload["name"])
	assert.Equal(t, topics.uniqueID, payload["unique_id"])
	assert.Equal(t, []string{"Default", "Vacation"}, payload["preset_modes"])
	assert.Equal(t, topics.presetCommand, payload["preset_mode_command_topic"])
	assert.Equal(t, []string{"heat"}, payload["modes"])
}
