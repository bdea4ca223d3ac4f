// Package validate performs structural and semantic validation of the
// persisted documents. Failures carry field-path-qualified messages and
// validation never partially applies.
package validate

import (
	"fmt"

	"github.com/Gabweb/climate-schedule/internal/model"
	"github.com/Gabweb/climate-schedule/internal/schedule"
	"github.com/Gabweb/climate-schedule/internal/waterheater"
)

// RoomsFile checks the whole rooms document.
func RoomsFile(doc *model.RoomsFile, stepMinutes int) error {
	if doc.Version < 1 {
		return fmt.Errorf("rooms version must be a positive integer")
	}
	for i := range doc.Rooms {
		if err := Room(&doc.Rooms[i], i, stepMinutes); err != nil {
			return err
		}
	}
	return nil
}

// Room checks a single room. index is used for error paths only.
func Room(room *model.RoomConfig, index, stepMinutes int) error {
	if room.Name == "" {
		return fmt.Errorf("rooms[%d].name must be a non-empty string", index)
	}
	if !room.Floor.Valid() {
		return fmt.Errorf("rooms[%d].floor must be one of UG, EG, 1OG, 2OG", index)
	}
	for e, entity := range room.Entities {
		if entity.Type != model.EntityTypeHAClimate {
			return fmt.Errorf("rooms[%d].entities[%d].type must be %s", index, e, model.EntityTypeHAClimate)
		}
		if entity.EntityID == "" {
			return fmt.Errorf("rooms[%d].entities[%d].entityId must be a non-empty string", index, e)
		}
	}
	if len(room.Modes) == 0 {
		return fmt.Errorf("rooms[%d].modes must contain at least one mode", index)
	}
	seen := make(map[string]struct{}, len(room.Modes))
	for m, mode := range room.Modes {
		if mode.Name == "" {
			return fmt.Errorf("rooms[%d].modes[%d].name must be a non-empty string", index, m)
		}
		if _, dup := seen[mode.Name]; dup {
			return fmt.Errorf("rooms[%d].modes[%d].name %q is not unique", index, m, mode.Name)
		}
		seen[mode.Name] = struct{}{}
		if err := schedule.ValidateContiguous(mode.Schedule); err != nil {
			return fmt.Errorf("rooms[%d].modes[%d].schedule: %w", index, m, err)
		}
		if err := schedule.ValidateGranularity(mode.Schedule, stepMinutes); err != nil {
			return fmt.Errorf("rooms[%d].modes[%d].schedule: %w", index, m, err)
		}
	}
	if _, ok := room.ActiveMode(); !ok {
		return fmt.Errorf("rooms[%d].activeModeName %q must reference an existing mode", index, room.ActiveModeName)
	}
	return nil
}

// Settings checks the global settings document.
func Settings(doc *model.GlobalSettings) error {
	if doc.Version < 1 {
		return fmt.Errorf("settings version must be a positive integer")
	}
	return nil
}

// WaterHeaterConfig checks the water heater document. An out-of-range
// heatingTemperatureC is clamped into [30, 65] rather than rejected.
func WaterHeaterConfig(doc *model.WaterHeaterConfig, stepMinutes int) error {
	if doc.Version < 1 {
		return fmt.Errorf("water heater version must be a positive integer")
	}
	if len(doc.Modes) == 0 {
		return fmt.Errorf("water heater must include at least one mode")
	}
	seen := make(map[string]struct{}, len(doc.Modes))
	for m, mode := range doc.Modes {
		if mode.Name == "" {
			return fmt.Errorf("water heater modes[%d].name must be a non-empty string", m)
		}
		if _, dup := seen[mode.Name]; dup {
			return fmt.Errorf("water heater modes[%d].name %q is not unique", m, mode.Name)
		}
		seen[mode.Name] = struct{}{}
		if err := schedule.ValidateContiguous(mode.Schedule); err != nil {
			return fmt.Errorf("water heater modes[%d].schedule: %w", m, err)
		}
		if err := schedule.ValidateGranularity(mode.Schedule, stepMinutes); err != nil {
			return fmt.Errorf("water heater modes[%d].schedule: %w", m, err)
		}
	}
	if _, ok := doc.ActiveMode(); !ok {
		return fmt.Errorf("water heater activeModeName %q must reference an existing mode", doc.ActiveModeName)
	}
	doc.HeatingTemperatureC = waterheater.ClampTemperature(doc.HeatingTemperatureC)
	return nil
}
