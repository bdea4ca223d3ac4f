package model

import "fmt"

type FloorLevel string

const (
	FloorUG  FloorLevel = "UG"
	FloorEG  FloorLevel = "EG"
	Floor1OG FloorLevel = "1OG"
	Floor2OG FloorLevel = "2OG"
)

func (f FloorLevel) Valid() bool {
	switch f {
	case FloorUG, FloorEG, Floor1OG, Floor2OG:
		return true
	}
	return false
}

// EntityTypeHAClimate is the only entity type a room may carry.
const EntityTypeHAClimate = "ha_climate"

type ClimateEntity struct {
	Type     string `json:"type"`
	EntityID string `json:"entityId"`
}

// ScheduleBlock is one contiguous interval of the day with a target temperature.
// A block ending at "23:59" covers through the last minute of the day inclusive;
// every other block is half-open [start, end).
type ScheduleBlock struct {
	Start   string  `json:"start"`
	End     string  `json:"end"`
	TargetC float64 `json:"targetC"`
}

func (b ScheduleBlock) Window() (start, end string) { return b.Start, b.End }

func (b ScheduleBlock) WithWindow(start, end string) ScheduleBlock {
	b.Start = start
	b.End = end
	return b
}

// WaterHeaterScheduleBlock carries an on/off flag instead of a temperature.
type WaterHeaterScheduleBlock struct {
	Start   string `json:"start"`
	End     string `json:"end"`
	Enabled bool   `json:"enabled"`
}

func (b WaterHeaterScheduleBlock) Window() (start, end string) { return b.Start, b.End }

func (b WaterHeaterScheduleBlock) WithWindow(start, end string) WaterHeaterScheduleBlock {
	b.Start = start
	b.End = end
	return b
}

type RoomMode struct {
	Name     string          `json:"name"`
	Schedule []ScheduleBlock `json:"schedule"`
}

type WaterHeaterMode struct {
	Name     string                     `json:"name"`
	Schedule []WaterHeaterScheduleBlock `json:"schedule"`
}

type RoomConfig struct {
	Name           string          `json:"name"`
	Floor          FloorLevel      `json:"floor"`
	Entities       []ClimateEntity `json:"entities"`
	Modes          []RoomMode      `json:"modes"`
	ActiveModeName string          `json:"activeModeName"`
}

// Key identifies a room. Two rooms on different floors may share a name,
// so identity is the (floor, name) pair.
func (r RoomConfig) Key() string {
	return RoomKeyFromParts(r.Floor, r.Name)
}

func RoomKeyFromParts(floor FloorLevel, name string) string {
	return fmt.Sprintf("%s::%s", floor, name)
}

// ActiveMode resolves the room's active mode by name.
func (r RoomConfig) ActiveMode() (RoomMode, bool) {
	for _, mode := range r.Modes {
		if mode.Name == r.ActiveModeName {
			return mode, true
		}
	}
	return RoomMode{}, false
}

// RoomsFile is the persisted, schema-versioned rooms document.
type RoomsFile struct {
	Version   int          `json:"version"`
	Rooms     []RoomConfig `json:"rooms"`
	UpdatedAt string       `json:"updatedAt"`
}

// GlobalSettings is the process-wide behavioral modifier. Holiday mode
// discounts every room target and forces the water heater off.
type GlobalSettings struct {
	Version            int    `json:"version"`
	HolidayModeEnabled bool   `json:"holidayModeEnabled"`
	UpdatedAt          string `json:"updatedAt"`
}

// WaterHeaterConfig is the single-entity analogue of RoomsFile.
type WaterHeaterConfig struct {
	Version             int               `json:"version"`
	EntityID            string            `json:"entityId"`
	HeatingTemperatureC float64           `json:"heatingTemperatureC"`
	ActiveModeName      string            `json:"activeModeName"`
	Modes               []WaterHeaterMode `json:"modes"`
	UpdatedAt           string            `json:"updatedAt"`
}

func (c WaterHeaterConfig) ActiveMode() (WaterHeaterMode, bool) {
	for _, mode := range c.Modes {
		if mode.Name == c.ActiveModeName {
			return mode, true
		}
	}
	return WaterHeaterMode{}, false
}
