package mqtt

import (
	"sync"

	"github.com/Gabweb/climate-schedule/internal/model"
)

// RoomStatePublish records one PublishRoomState invocation.
type RoomStatePublish struct {
	RoomKey     string
	Preset      string
	TargetC     float64
	CurrentTemp *float64
}

// FakeSink records state publishes for test assertions.
type FakeSink struct {
	mu sync.Mutex

	RoomStates []RoomStatePublish
	Discovered []string
	Removed    []string
}

func NewFakeSink() *FakeSink {
	return &FakeSink{}
}

func (f *FakeSink) PublishRoomState(room model.RoomConfig, targetC float64, currentTemp *float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RoomStates = append(f.RoomStates, RoomStatePublish{
		RoomKey:     room.Key(),
		Preset:      room.ActiveModeName,
		TargetC:     targetC,
		CurrentTemp: currentTemp,
	})
}

func (f *FakeSink) PublishDiscovery(room model.RoomConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Discovered = append(f.Discovered, room.Key())
}

func (f *FakeSink) RemoveDiscovery(room model.RoomConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Removed = append(f.Removed, room.Key())
}

// StatesFor returns the recorded publishes for one room key.
func (f *FakeSink) StatesFor(roomKey string) []RoomStatePublish {
	f.mu.Lock()
	defer f.mu.Unlock()
	var states []RoomStatePublish
	for _, state := range f.RoomStates {
		if state.RoomKey == roomKey {
			states = append(states, state)
		}
	}
	return states
}
