package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gabweb/climate-schedule/internal/model"
)

func TestUpdateStart(t *testing.T) {
	t.Run("drags previous end along", func(t *testing.T) {
		blocks := defaultBlocks()
		next := UpdateStart(blocks, 1, "09:00")

		assert.Equal(t, "09:00", next[1].Start)
		assert.Equal(t, "09:00", next[0].End)
		assert.NoError(t, ValidateContiguous(next))

		// Input untouched.
		assert.Equal(t, "08:00", blocks[1].Start)
	})

	t.Run("first block start is fixed", func(t *testing.T) {
		blocks := defaultBlocks()
		next := UpdateStart(blocks, 0, "01:00")
		assert.Equal(t, blocks, next)
	})

	t.Run("out of range index", func(t *testing.T) {
		blocks := defaultBlocks()
		assert.Equal(t, blocks, UpdateStart(blocks, 7, "09:00"))
	})
}

func TestUpdateEnd(t *testing.T) {
	t.Run("drags next start along", func(t *testing.T) {
		blocks := defaultBlocks()
		next := UpdateEnd(blocks, 0, "07:00")

		assert.Equal(t, "07:00", next[0].End)
		assert.Equal(t, "07:00", next[1].Start)
		assert.NoError(t, ValidateContiguous(next))
	})

	t.Run("last block end is fixed", func(t *testing.T) {
		blocks := defaultBlocks()
		next := UpdateEnd(blocks, len(blocks)-1, "22:00")
		assert.Equal(t, blocks, next)
	})
}

func TestUpdateTarget(t *testing.T) {
	blocks := defaultBlocks()
	next := UpdateTarget(blocks, 1, 22.5)

	assert.Equal(t, 22.5, next[1].TargetC)
	assert.Equal(t, 20.0, blocks[1].TargetC)
	assert.Equal(t, blocks, UpdateTarget(blocks, -1, 30))
}

func TestUpdateEnabled(t *testing.T) {
	blocks := []model.WaterHeaterScheduleBlock{
		{Start: "00:00", End: "12:00", Enabled: false},
		{Start: "12:00", End: "23:59", Enabled: false},
	}
	next := UpdateEnabled(blocks, 1, true)

	assert.True(t, next[1].Enabled)
	assert.False(t, blocks[1].Enabled)
}

func TestInsertSlot(t *testing.T) {
	t.Run("splits the last block", func(t *testing.T) {
		blocks := defaultBlocks()
		next, err := InsertSlot(blocks, MaxSlots, 10)
		require.NoError(t, err)

		require.Len(t, next, 4)
		assert.Equal(t, "20:00", next[2].Start)
		assert.Equal(t, "20:10", next[2].End)
		assert.Equal(t, "20:10", next[3].Start)
		assert.Equal(t, "23:59", next[3].End)
		assert.Equal(t, blocks[2].TargetC, next[3].TargetC)
		assert.NoError(t, ValidateContiguous(next))
	})

	t.Run("no-op at capacity", func(t *testing.T) {
		blocks := defaultBlocks()
		next, err := InsertSlot(blocks, 3, 10)
		require.NoError(t, err)
		assert.Equal(t, blocks, next)
	})

	t.Run("no-op when boundary would pass end of day", func(t *testing.T) {
		blocks := []model.ScheduleBlock{
			{Start: "00:00", End: "23:50"},
			{Start: "23:50", End: "23:59"},
		}
		next, err := InsertSlot(blocks, MaxSlots, 10)
		require.NoError(t, err)
		assert.Equal(t, blocks, next)
	})

	t.Run("no-op on empty schedule", func(t *testing.T) {
		next, err := InsertSlot([]model.ScheduleBlock{}, MaxSlots, 10)
		require.NoError(t, err)
		assert.Empty(t, next)
	})
}

func TestRemoveSlot(t *testing.T) {
	t.Run("middle removal extends predecessor", func(t *testing.T) {
		blocks := defaultBlocks()
		next := RemoveSlot(blocks, 1)

		require.Len(t, next, 2)
		assert.Equal(t, "00:00", next[0].Start)
		assert.Equal(t, "20:00", next[0].End)
		assert.NoError(t, ValidateContiguous(next))
	})

	t.Run("first removal passes start to successor", func(t *testing.T) {
		blocks := defaultBlocks()
		next := RemoveSlot(blocks, 0)

		require.Len(t, next, 2)
		assert.Equal(t, "00:00", next[0].Start)
		assert.Equal(t, "20:00", next[0].End)
		assert.NoError(t, ValidateContiguous(next))
	})

	t.Run("last removal extends predecessor to end of day", func(t *testing.T) {
		blocks := defaultBlocks()
		next := RemoveSlot(blocks, 2)

		require.Len(t, next, 2)
		assert.Equal(t, "23:59", next[1].End)
		assert.NoError(t, ValidateContiguous(next))
	})

	t.Run("single block is kept", func(t *testing.T) {
		blocks := []model.ScheduleBlock{{Start: "00:00", End: "23:59"}}
		assert.Equal(t, blocks, RemoveSlot(blocks, 0))
	})
}

func TestIsStartInvalid(t *testing.T) {
	tests := []struct {
		name   string
		blocks []model.ScheduleBlock
		index  int
		want   bool
	}{
		{"valid default", defaultBlocks(), 1, false},
		{
			"first block must start at midnight",
			[]model.ScheduleBlock{{Start: "00:10", End: "23:59"}},
			0, true,
		},
		{
			"start after end",
			[]model.ScheduleBlock{
				{Start: "00:00", End: "08:00"},
				{Start: "21:00", End: "20:00"},
			},
			1, true,
		},
		{
			"misaligned start",
			[]model.ScheduleBlock{
				{Start: "00:00", End: "08:05"},
				{Start: "08:05", End: "23:59"},
			},
			1, true,
		},
		{
			"detached from previous block",
			[]model.ScheduleBlock{
				{Start: "00:00", End: "08:00"},
				{Start: "09:00", End: "23:59"},
			},
			1, true,
		},
		{
			"unparseable start",
			[]model.ScheduleBlock{{Start: "zz:zz", End: "23:59"}},
			0, true,
		},
		{"out of range index", defaultBlocks(), 9, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStartInvalid(tt.blocks, tt.index, 10))
		})
	}
}

func TestIsEndInvalid(t *testing.T) {
	tests := []struct {
		name   string
		blocks []model.ScheduleBlock
		index  int
		want   bool
	}{
		{"valid default", defaultBlocks(), 0, false},
		{
			"last block must end at 23:59",
			[]model.ScheduleBlock{{Start: "00:00", End: "22:00"}},
			0, true,
		},
		{
			"detached from next block",
			[]model.ScheduleBlock{
				{Start: "00:00", End: "08:00"},
				{Start: "09:00", End: "23:59"},
			},
			0, true,
		},
		{
			"misaligned end",
			[]model.ScheduleBlock{
				{Start: "00:00", End: "08:07"},
				{Start: "08:07", End: "23:59"},
			},
			0, true,
		},
		{
			"terminal end is granularity exempt",
			[]model.ScheduleBlock{{Start: "00:00", End: "23:59"}},
			0, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEndInvalid(tt.blocks, tt.index, 10))
		})
	}
}
