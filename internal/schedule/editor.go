package schedule

import (
	"github.com/Gabweb/climate-schedule/internal/model"
)

// MaxSlots is the default cap on blocks per schedule.
const MaxSlots = 10

// EditableBlock is a Block whose window can be rewritten by value.
type EditableBlock[B any] interface {
	Block
	WithWindow(start, end string) B
}

// Editing helpers return a modified copy and never mutate their input.
// They preserve contiguity by propagating boundary changes to the adjacent
// block, but callers must still run ValidateContiguous/ValidateGranularity
// before persisting.

// UpdateStart moves the block's start boundary and drags the previous
// block's end along with it. The first block's start is fixed at 00:00,
// so index 0 is a no-op.
func UpdateStart[B EditableBlock[B]](blocks []B, index int, value string) []B {
	if index <= 0 || index >= len(blocks) {
		return blocks
	}
	next := clone(blocks)
	_, end := next[index].Window()
	next[index] = next[index].WithWindow(value, end)
	prevStart, _ := next[index-1].Window()
	next[index-1] = next[index-1].WithWindow(prevStart, value)
	return next
}

// UpdateEnd moves the block's end boundary and drags the next block's start
// along with it. The last block's end is fixed at 23:59, so the last index
// is a no-op.
func UpdateEnd[B EditableBlock[B]](blocks []B, index int, value string) []B {
	if index < 0 || index >= len(blocks)-1 {
		return blocks
	}
	next := clone(blocks)
	start, _ := next[index].Window()
	next[index] = next[index].WithWindow(start, value)
	_, nextEnd := next[index+1].Window()
	next[index+1] = next[index+1].WithWindow(value, nextEnd)
	return next
}

// UpdateTarget rewrites a single block's target temperature.
func UpdateTarget(blocks []model.ScheduleBlock, index int, targetC float64) []model.ScheduleBlock {
	if index < 0 || index >= len(blocks) {
		return blocks
	}
	next := clone(blocks)
	next[index].TargetC = targetC
	return next
}

// UpdateEnabled rewrites a single water heater block's enabled flag.
func UpdateEnabled(blocks []model.WaterHeaterScheduleBlock, index int, enabled bool) []model.WaterHeaterScheduleBlock {
	if index < 0 || index >= len(blocks) {
		return blocks
	}
	next := clone(blocks)
	next[index].Enabled = enabled
	return next
}

// InsertSlot splits the final block by inserting a new boundary stepMinutes
// after its start. The new trailing block keeps the original last block's
// value. No-op when the schedule is full or the boundary would reach
// end-of-day.
func InsertSlot[B EditableBlock[B]](blocks []B, maxSlots, stepMinutes int) ([]B, error) {
	if len(blocks) == 0 || len(blocks) >= maxSlots {
		return blocks, nil
	}
	last := blocks[len(blocks)-1]
	lastStart, lastEnd := last.Window()
	startMinutes, err := ParseTimeToMinutes(lastStart)
	if err != nil {
		return blocks, err
	}
	newStartMinutes := startMinutes + stepMinutes
	if newStartMinutes >= MinutesPerDay {
		return blocks, nil
	}
	newStart := MinutesToTime(newStartMinutes)

	next := clone(blocks)
	next[len(next)-1] = last.WithWindow(lastStart, newStart)
	next = append(next, last.WithWindow(newStart, lastEnd))
	return next, nil
}

// RemoveSlot deletes the block at index and repairs the boundary: the first
// block's start is inherited by its successor, otherwise the predecessor's
// end absorbs the removed end. No-op when only one block remains.
func RemoveSlot[B EditableBlock[B]](blocks []B, index int) []B {
	if len(blocks) <= 1 || index < 0 || index >= len(blocks) {
		return blocks
	}
	removed := blocks[index]
	next := make([]B, 0, len(blocks)-1)
	next = append(next, blocks[:index]...)
	next = append(next, blocks[index+1:]...)

	removedStart, removedEnd := removed.Window()
	if index == 0 {
		_, firstEnd := next[0].Window()
		next[0] = next[0].WithWindow(removedStart, firstEnd)
	} else {
		prevStart, _ := next[index-1].Window()
		next[index-1] = next[index-1].WithWindow(prevStart, removedEnd)
	}
	return next
}

// IsStartInvalid flags a block whose start boundary would break the schedule:
// parse failure, ordering, granularity, fixed first boundary or adjacency.
func IsStartInvalid[B Block](blocks []B, index, stepMinutes int) bool {
	if index < 0 || index >= len(blocks) {
		return false
	}
	block := blocks[index]
	start, end := block.Window()
	startMinutes, err := ParseTimeToMinutes(start)
	if err != nil {
		return true
	}
	endMinutes, err := ParseTimeToMinutes(end)
	if err != nil {
		return true
	}
	if index == 0 && start != StartOfDay {
		return true
	}
	if startMinutes >= endMinutes {
		return true
	}
	if startMinutes%stepMinutes != 0 {
		return true
	}
	if index > 0 {
		_, prevEnd := blocks[index-1].Window()
		if start != prevEnd {
			return true
		}
	}
	if index < len(blocks)-1 {
		nextStart, _ := blocks[index+1].Window()
		if end != nextStart {
			return true
		}
	}
	return false
}

// IsEndInvalid flags a block whose end boundary would break the schedule.
func IsEndInvalid[B Block](blocks []B, index, stepMinutes int) bool {
	if index < 0 || index >= len(blocks) {
		return false
	}
	block := blocks[index]
	start, end := block.Window()
	startMinutes, err := ParseTimeToMinutes(start)
	if err != nil {
		return true
	}
	endMinutes, err := ParseTimeToMinutes(end)
	if err != nil {
		return true
	}
	if startMinutes >= endMinutes {
		return true
	}
	isLast := index == len(blocks)-1
	if isLast && end != EndOfDay {
		return true
	}
	if !isLast {
		nextStart, _ := blocks[index+1].Window()
		if end != nextStart {
			return true
		}
	}
	if end != EndOfDay && endMinutes%stepMinutes != 0 {
		return true
	}
	return false
}

func clone[B any](blocks []B) []B {
	next := make([]B, len(blocks))
	copy(next, blocks)
	return next
}
