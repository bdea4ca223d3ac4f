package mqtt

import (
	"regexp"
	"strings"

	"github.com/Gabweb/climate-schedule/internal/model"
)

const uniqueIDPrefix = "climateSchedule"

var disallowedIDChars = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

// UniqueID derives the Home Assistant unique id for a room's climate
// entity from its floor and name.
func UniqueID(room model.RoomConfig) string {
	normalized := strings.TrimSpace(string(room.Floor) + "_" + room.Name)
	normalized = strings.Join(strings.Fields(normalized), "_")
	normalized = disallowedIDChars.ReplaceAllString(normalized, "")
	return uniqueIDPrefix + "_" + normalized
}

// topics groups every MQTT topic belonging to one room entity.
type topics struct {
	uniqueID           string
	discovery          string
	availability       string
	currentTemperature string
	targetTemperature  string
	presetState        string
	presetCommand      string
	temperatureCommand string
	modeState          string
}

func topicsFor(room model.RoomConfig) topics {
	uid := UniqueID(room)
	base := uniqueIDPrefix + "/" + uid
	return topics{
		uniqueID:           uid,
		discovery:          "homeassistant/climate/" + uid + "/config",
		availability:       base + "/availability",
		currentTemperature: base + "/state/current_temperature",
		targetTemperature:  base + "/state/target_temperature",
		presetState:        base + "/state/preset",
		presetCommand:      base + "/command/preset",
		temperatureCommand: base + "/command/target_temperature",
		modeState:          base + "/state/mode",
	}
}

// discoveryPayload is the retained config document Home Assistant reads to
// create the climate entity.
func discoveryPayload(room model.RoomConfig, t topics) map[string]any {
	presets := make([]string, 0, len(room.Modes))
	for _, mode := range room.Modes {
		presets = append(presets, mode.Name)
	}
	return map[string]any{
		"name":                      room.Name,
		"unique_id":                 t.uniqueID,
		"preset_modes":              presets,
		"preset_mode_state_topic":   t.presetState,
		"preset_mode_command_topic": t.presetCommand,
		"temperature_state_topic":   t.targetTemperature,
		"temperature_command_topic": t.temperatureCommand,
		"current_temperature_topic": t.currentTemperature,
		"availability_topic":        t.availability,
		"modes":                     []string{"heat"},
		"mode_state_topic":          t.modeState,
	}
}
