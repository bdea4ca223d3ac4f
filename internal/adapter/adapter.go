// Package adapter abstracts the climate device backend. The tick engine
// only depends on the Climate interface; real deployments use the Home
// Assistant implementation, everything else runs on Noop.
package adapter

import "context"

// Climate is the device capability the scheduler consumes. All calls may
// fail with transport errors; callers log and carry on rather than abort.
type Climate interface {
	// SetTargetTemperature pushes a target to the climate entity.
	SetTargetTemperature(ctx context.Context, entityID string, temperatureC float64) error

	// GetCurrentTemperature reads the entity's current temperature.
	// ok is false when the backend has no reading for the entity.
	GetCurrentTemperature(ctx context.Context, entityID string) (temperatureC float64, ok bool, err error)

	// TurnOff switches the entity off entirely.
	TurnOff(ctx context.Context, entityID string) error
}

// Noop satisfies Climate without a device backend attached.
type Noop struct{}

func (Noop) SetTargetTemperature(context.Context, string, float64) error { return nil }

func (Noop) GetCurrentTemperature(context.Context, string) (float64, bool, error) {
	return 0, false, nil
}

func (Noop) TurnOff(context.Context, string) error { return nil }
