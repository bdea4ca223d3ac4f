package adapter

import (
	"context"
	"sync"
)

// SetCall records one SetTargetTemperature invocation.
type SetCall struct {
	EntityID     string
	TemperatureC float64
}

// Fake records adapter calls for test assertions and can be primed with
// readings and failures per entity.
type Fake struct {
	mu sync.Mutex

	SetCalls     []SetCall
	TurnOffCalls []string

	// Readings maps entity id to the current temperature returned by
	// GetCurrentTemperature. Entities not present report no reading.
	Readings map[string]float64

	// SetError, ReadError and TurnOffError, if set, are returned by the
	// corresponding call.
	SetError     error
	ReadError    error
	TurnOffError error
}

func NewFake() *Fake {
	return &Fake{Readings: make(map[string]float64)}
}

func (f *Fake) SetTargetTemperature(_ context.Context, entityID string, temperatureC float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.SetCalls = append(f.SetCalls, SetCall{EntityID: entityID, TemperatureC: temperatureC})
	return nil
}

func (f *Fake) GetCurrentTemperature(_ context.Context, entityID string) (float64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return 0, false, f.ReadError
	}
	temp, ok := f.Readings[entityID]
	return temp, ok, nil
}

func (f *Fake) TurnOff(_ context.Context, entityID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TurnOffError != nil {
		return f.TurnOffError
	}
	f.TurnOffCalls = append(f.TurnOffCalls, entityID)
	return nil
}

// SetCallsFor returns the recorded set calls for one entity.
func (f *Fake) SetCallsFor(entityID string) []SetCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var calls []SetCall
	for _, call := range f.SetCalls {
		if call.EntityID == entityID {
			calls = append(calls, call)
		}
	}
	return calls
}
