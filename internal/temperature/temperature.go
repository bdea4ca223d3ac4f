// Package temperature applies the global settings adjustment to scheduled
// room targets.
package temperature

import "github.com/Gabweb/climate-schedule/internal/model"

const (
	// HolidayOffsetC is subtracted from every room target while holiday
	// mode is enabled.
	HolidayOffsetC = 2.0

	// MinTargetC is the floor no adjustment may go below.
	MinTargetC = 5.0
)

// ApplyGlobalSettings discounts a scheduled target when holiday mode is
// enabled, clamped to the minimum target.
func ApplyGlobalSettings(scheduledC float64, settings model.GlobalSettings) float64 {
	if !settings.HolidayModeEnabled {
		return scheduledC
	}
	adjusted := scheduledC - HolidayOffsetC
	if adjusted < MinTargetC {
		return MinTargetC
	}
	return adjusted
}
