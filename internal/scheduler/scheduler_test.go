package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gabweb/climate-schedule/internal/adapter"
	"github.com/Gabweb/climate-schedule/internal/model"
	"github.com/Gabweb/climate-schedule/internal/mqtt"
)

// fakeSource serves in-memory documents so ticks run without a data dir.
type fakeSource struct {
	rooms       model.RoomsFile
	settings    model.GlobalSettings
	waterHeater model.WaterHeaterConfig

	roomsErr       error
	settingsErr    error
	waterHeaterErr error
}

func (f *fakeSource) LoadRooms() (model.RoomsFile, error) {
	return f.rooms, f.roomsErr
}

func (f *fakeSource) LoadSettings() (model.GlobalSettings, error) {
	return f.settings, f.settingsErr
}

func (f *fakeSource) LoadWaterHeater() (model.WaterHeaterConfig, error) {
	return f.waterHeater, f.waterHeaterErr
}

func testRoom(name string, floor model.FloorLevel, entityID string, targetC float64) model.RoomConfig {
	return model.RoomConfig{
		Name:  name,
		Floor: floor,
		Entities: []model.ClimateEntity{
			{Type: model.EntityTypeHAClimate, EntityID: entityID},
		},
		Modes: []model.RoomMode{
			{
				Name: "Default",
				Schedule: []model.ScheduleBlock{
					{Start: "00:00", End: "23:59", TargetC: targetC},
				},
			},
		},
		ActiveModeName: "Default",
	}
}

func testWaterHeater(enabled bool) model.WaterHeaterConfig {
	return model.WaterHeaterConfig{
		Version:             2,
		EntityID:            "climate.water_heater",
		HeatingTemperatureC: 55,
		ActiveModeName:      "Default",
		Modes: []model.WaterHeaterMode{
			{
				Name: "Default",
				Schedule: []model.WaterHeaterScheduleBlock{
					{Start: "00:00", End: "23:59", Enabled: enabled},
				},
			},
		},
	}
}

func fixedNow() time.Time {
	return time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
}

func newTestEngine(source *fakeSource, device *adapter.Fake, sink StateSink) *Engine {
	return New(Options{
		Source:   source,
		Adapter:  device,
		Sink:     sink,
		Location: time.UTC,
		Now:      fixedNow,
	})
}

func TestTickAppliesTargets(t *testing.T) {
	source := &fakeSource{
		rooms: model.RoomsFile{
			Version: 1,
			Rooms: []model.RoomConfig{
				testRoom("Living Room", model.FloorEG, "climate.living_room", 21),
				testRoom("Office", model.Floor1OG, "climate.office", 19),
			},
		},
		settings:    model.GlobalSettings{Version: 1},
		waterHeater: testWaterHeater(true),
	}
	device := adapter.NewFake()
	sink := mqtt.NewFakeSink()
	engine := newTestEngine(source, device, sink)

	engine.Tick(context.Background())

	living := device.SetCallsFor("climate.living_room")
	require.Len(t, living, 1)
	assert.Equal(t, 21.0, living[0].TemperatureC)

	office := device.SetCallsFor("climate.office")
	require.Len(t, office, 1)
	assert.Equal(t, 19.0, office[0].TemperatureC)

	heater := device.SetCallsFor("climate.water_heater")
	require.Len(t, heater, 1)
	assert.Equal(t, 55.0, heater[0].TemperatureC)

	// Every room is mirrored to the sink once per tick.
	assert.Len(t, sink.StatesFor("EG::Living Room"), 1)
	assert.Len(t, sink.StatesFor("1OG::Office"), 1)
}

func TestTickIsIdempotentAcrossTicks(t *testing.T) {
	source := &fakeSource{
		rooms: model.RoomsFile{
			Version: 1,
			Rooms:   []model.RoomConfig{testRoom("Office", model.Floor1OG, "climate.office", 19)},
		},
		settings:    model.GlobalSettings{Version: 1},
		waterHeater: testWaterHeater(false),
	}
	device := adapter.NewFake()
	sink := mqtt.NewFakeSink()
	engine := newTestEngine(source, device, sink)

	engine.Tick(context.Background())
	engine.Tick(context.Background())

	// The target did not change, so exactly one device write happened.
	assert.Len(t, device.SetCallsFor("climate.office"), 1)

	// State publishing is unconditional.
	assert.Len(t, sink.StatesFor("1OG::Office"), 2)
}

func TestTickReappliesAfterTargetChange(t *testing.T) {
	source := &fakeSource{
		rooms: model.RoomsFile{
			Version: 1,
			Rooms:   []model.RoomConfig{testRoom("Office", model.Floor1OG, "climate.office", 19)},
		},
		settings:    model.GlobalSettings{Version: 1},
		waterHeater: testWaterHeater(false),
	}
	device := adapter.NewFake()
	engine := newTestEngine(source, device, nil)

	engine.Tick(context.Background())
	source.rooms.Rooms[0].Modes[0].Schedule[0].TargetC = 22
	engine.Tick(context.Background())

	calls := device.SetCallsFor("climate.office")
	require.Len(t, calls, 2)
	assert.Equal(t, 19.0, calls[0].TemperatureC)
	assert.Equal(t, 22.0, calls[1].TemperatureC)
}

func TestTickHolidayModeDiscountsRooms(t *testing.T) {
	source := &fakeSource{
		rooms: model.RoomsFile{
			Version: 1,
			Rooms:   []model.RoomConfig{testRoom("Office", model.Floor1OG, "climate.office", 20)},
		},
		settings:    model.GlobalSettings{Version: 1, HolidayModeEnabled: true},
		waterHeater: testWaterHeater(true),
	}
	device := adapter.NewFake()
	engine := newTestEngine(source, device, nil)

	engine.Tick(context.Background())

	calls := device.SetCallsFor("climate.office")
	require.Len(t, calls, 1)
	assert.Equal(t, 18.0, calls[0].TemperatureC)

	// Holiday mode also forces the heater off despite its enabled block.
	assert.Equal(t, []string{"climate.water_heater"}, device.TurnOffCalls)
	assert.Empty(t, device.SetCallsFor("climate.water_heater"))
}

func TestTickIsolatesBrokenRoom(t *testing.T) {
	broken := testRoom("Broken", model.FloorUG, "climate.broken", 20)
	broken.ActiveModeName = "Missing"

	source := &fakeSource{
		rooms: model.RoomsFile{
			Version: 1,
			Rooms: []model.RoomConfig{
				broken,
				testRoom("Office", model.Floor1OG, "climate.office", 19),
			},
		},
		settings:    model.GlobalSettings{Version: 1},
		waterHeater: testWaterHeater(false),
	}
	device := adapter.NewFake()
	engine := newTestEngine(source, device, nil)

	engine.Tick(context.Background())

	assert.Empty(t, device.SetCallsFor("climate.broken"))
	assert.Len(t, device.SetCallsFor("climate.office"), 1)
}

func TestTickAbortsWhenRoomsUnloadable(t *testing.T) {
	source := &fakeSource{roomsErr: errors.New("disk gone")}
	device := adapter.NewFake()
	engine := newTestEngine(source, device, nil)

	engine.Tick(context.Background())
	assert.Empty(t, device.SetCalls)
	assert.Empty(t, device.TurnOffCalls)
}

func TestTickWaterHeaterOffIsCached(t *testing.T) {
	source := &fakeSource{
		rooms:       model.RoomsFile{Version: 1},
		settings:    model.GlobalSettings{Version: 1},
		waterHeater: testWaterHeater(false),
	}
	device := adapter.NewFake()
	engine := newTestEngine(source, device, nil)

	engine.Tick(context.Background())
	engine.Tick(context.Background())

	assert.Equal(t, []string{"climate.water_heater"}, device.TurnOffCalls)
}

func TestTickWaterHeaterWithoutEntityIsNoop(t *testing.T) {
	heater := testWaterHeater(true)
	heater.EntityID = ""
	source := &fakeSource{
		rooms:       model.RoomsFile{Version: 1},
		settings:    model.GlobalSettings{Version: 1},
		waterHeater: heater,
	}
	device := adapter.NewFake()
	engine := newTestEngine(source, device, nil)

	engine.Tick(context.Background())
	assert.Empty(t, device.SetCalls)
	assert.Empty(t, device.TurnOffCalls)
}

func TestTickPublishesCurrentTemperature(t *testing.T) {
	source := &fakeSource{
		rooms: model.RoomsFile{
			Version: 1,
			Rooms:   []model.RoomConfig{testRoom("Office", model.Floor1OG, "climate.office", 19)},
		},
		settings:    model.GlobalSettings{Version: 1},
		waterHeater: testWaterHeater(false),
	}
	device := adapter.NewFake()
	device.Readings["climate.office"] = 17.5
	sink := mqtt.NewFakeSink()
	engine := newTestEngine(source, device, sink)

	engine.Tick(context.Background())

	states := sink.StatesFor("1OG::Office")
	require.Len(t, states, 1)
	require.NotNil(t, states[0].CurrentTemp)
	assert.Equal(t, 17.5, *states[0].CurrentTemp)
	assert.Equal(t, 19.0, states[0].TargetC)
	assert.Equal(t, "Default", states[0].Preset)
}

func TestTickSetFailureDoesNotPoisonCache(t *testing.T) {
	source := &fakeSource{
		rooms: model.RoomsFile{
			Version: 1,
			Rooms:   []model.RoomConfig{testRoom("Office", model.Floor1OG, "climate.office", 19)},
		},
		settings:    model.GlobalSettings{Version: 1},
		waterHeater: testWaterHeater(false),
	}
	device := adapter.NewFake()
	device.SetError = errors.New("backend down")
	engine := newTestEngine(source, device, nil)

	engine.Tick(context.Background())
	assert.Empty(t, device.SetCalls)

	// Once the backend recovers the write goes through.
	device.SetError = nil
	engine.Tick(context.Background())
	assert.Len(t, device.SetCallsFor("climate.office"), 1)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	source := &fakeSource{
		rooms:       model.RoomsFile{Version: 1},
		settings:    model.GlobalSettings{Version: 1},
		waterHeater: testWaterHeater(false),
	}
	engine := New(Options{
		Source:   source,
		Adapter:  adapter.NewFake(),
		Location: time.UTC,
		Interval: 10 * time.Millisecond,
		Now:      fixedNow,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("engine did not stop after cancellation")
	}
}
