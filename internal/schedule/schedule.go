// Package schedule implements the day-partitioned schedule model: parsing,
// block lookup and the contiguity/granularity invariants every persisted
// schedule must satisfy.
package schedule

import (
	"fmt"
	"sort"
	"time"
)

const (
	StartOfDay = "00:00"
	EndOfDay   = "23:59"

	// LastMinute is the final minute of the day. A block ending at EndOfDay
	// covers it inclusively.
	LastMinute = 1439

	MinutesPerDay = 1440

	// DefaultStepMinutes is the boundary alignment schedules must respect.
	DefaultStepMinutes = 10
)

// Block is a time window of the day. Both room and water heater schedule
// blocks implement it.
type Block interface {
	Window() (start, end string)
}

// ParseTimeToMinutes parses a strict zero-padded HH:MM string into
// minutes since midnight (0-1439).
func ParseTimeToMinutes(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("invalid time format: %q", s)
	}
	hours, ok1 := twoDigits(s[0], s[1])
	minutes, ok2 := twoDigits(s[3], s[4])
	if !ok1 || !ok2 || hours > 23 || minutes > 59 {
		return 0, fmt.Errorf("invalid time format: %q", s)
	}
	return hours*60 + minutes, nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// MinutesToTime is the inverse of ParseTimeToMinutes, clamped to [0, 1439].
func MinutesToTime(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes > LastMinute {
		minutes = LastMinute
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// MinuteOfDayInZone projects an absolute instant into the zone's local
// minute of day, following the zone's wall-clock rules.
func MinuteOfDayInZone(t time.Time, loc *time.Location) int {
	local := t.In(loc)
	return local.Hour()*60 + local.Minute()
}

// IsMinuteInBlock reports whether the block covers the given minute. Blocks
// are half-open [start, end), except a block ending at "23:59" which also
// covers the last minute of the day.
func IsMinuteInBlock(b Block, minute int) (bool, error) {
	startStr, endStr := b.Window()
	start, err := ParseTimeToMinutes(startStr)
	if err != nil {
		return false, err
	}
	end, err := ParseTimeToMinutes(endStr)
	if err != nil {
		return false, err
	}
	if endStr == EndOfDay {
		return minute >= start && minute <= end, nil
	}
	return minute >= start && minute < end, nil
}

// FindBlockAtMinute returns the index of the first block (in input order)
// covering the minute, or -1 if none does. A validated schedule has at most
// one covering block.
func FindBlockAtMinute[B Block](blocks []B, minute int) (int, error) {
	for i, b := range blocks {
		hit, err := IsMinuteInBlock(b, minute)
		if err != nil {
			return -1, err
		}
		if hit {
			return i, nil
		}
	}
	return -1, nil
}

// ValidateContiguous fails unless the blocks, sorted by start, cover
// 00:00-23:59 with no gaps and no overlaps.
func ValidateContiguous[B Block](blocks []B) error {
	if len(blocks) == 0 {
		return fmt.Errorf("schedule must contain at least one block")
	}

	type bounds struct{ start, end int }
	parsed := make([]bounds, 0, len(blocks))
	for _, b := range blocks {
		startStr, endStr := b.Window()
		start, err := ParseTimeToMinutes(startStr)
		if err != nil {
			return err
		}
		end, err := ParseTimeToMinutes(endStr)
		if err != nil {
			return err
		}
		if end < start {
			return fmt.Errorf("schedule block end must be after start")
		}
		parsed = append(parsed, bounds{start: start, end: end})
	}

	sort.Slice(parsed, func(i, j int) bool { return parsed[i].start < parsed[j].start })

	if parsed[0].start != 0 {
		return fmt.Errorf("schedule must start at 00:00")
	}
	if parsed[len(parsed)-1].end != LastMinute {
		return fmt.Errorf("schedule must end at 23:59")
	}
	for i := 0; i < len(parsed)-1; i++ {
		if parsed[i].end != parsed[i+1].start {
			return fmt.Errorf("schedule must be contiguous with no gaps")
		}
	}
	return nil
}

// ValidateGranularity fails if any block boundary is not aligned to the step.
// The terminal "23:59" end is exempt; it marks end-of-day, not a step boundary.
func ValidateGranularity[B Block](blocks []B, stepMinutes int) error {
	if stepMinutes <= 0 {
		stepMinutes = DefaultStepMinutes
	}
	for _, b := range blocks {
		startStr, endStr := b.Window()
		start, err := ParseTimeToMinutes(startStr)
		if err != nil {
			return err
		}
		end, err := ParseTimeToMinutes(endStr)
		if err != nil {
			return err
		}
		if start%stepMinutes != 0 {
			return fmt.Errorf("schedule start time must align to %d-minute steps", stepMinutes)
		}
		if endStr != EndOfDay && end%stepMinutes != 0 {
			return fmt.Errorf("schedule end time must align to %d-minute steps", stepMinutes)
		}
	}
	return nil
}
