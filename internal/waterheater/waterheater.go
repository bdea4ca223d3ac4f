// Package waterheater resolves the water heater's on/off state and target
// temperature for a given minute of the day.
package waterheater

import (
	"errors"

	"github.com/Gabweb/climate-schedule/internal/model"
	"github.com/Gabweb/climate-schedule/internal/schedule"
)

const (
	MinTemperatureC     = 30.0
	MaxTemperatureC     = 65.0
	DefaultTemperatureC = 55.0
)

// ErrActiveModeNotFound indicates the config's activeModeName does not
// resolve to any mode. Validation forbids this upstream; evaluation still
// checks defensively.
var ErrActiveModeNotFound = errors.New("active water heater mode not found")

// ClampTemperature bounds a target into the heater's supported range.
func ClampTemperature(targetC float64) float64 {
	if targetC < MinTemperatureC {
		return MinTemperatureC
	}
	if targetC > MaxTemperatureC {
		return MaxTemperatureC
	}
	return targetC
}

// Evaluation is the resolved state for one minute. TemperatureC is only
// meaningful when Off is false.
type Evaluation struct {
	Off          bool
	TemperatureC float64
}

// EvaluateAtMinute resolves the heater state. Holiday mode forces the heater
// off regardless of its own schedule; otherwise the covering block of the
// active mode decides, with the configured temperature clamped into range.
func EvaluateAtMinute(config model.WaterHeaterConfig, minute int, settings model.GlobalSettings) (Evaluation, error) {
	if settings.HolidayModeEnabled {
		return Evaluation{Off: true}, nil
	}
	mode, ok := config.ActiveMode()
	if !ok {
		return Evaluation{}, ErrActiveModeNotFound
	}
	idx, err := schedule.FindBlockAtMinute(mode.Schedule, minute)
	if err != nil {
		return Evaluation{}, err
	}
	if idx < 0 || !mode.Schedule[idx].Enabled {
		return Evaluation{Off: true}, nil
	}
	return Evaluation{Off: false, TemperatureC: ClampTemperature(config.HeatingTemperatureC)}, nil
}
