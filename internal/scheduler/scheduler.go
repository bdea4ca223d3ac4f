// Package scheduler drives the periodic evaluation-and-apply cycle: every
// tick it re-reads the persisted documents, resolves the target for each
// room and the water heater at the current minute, and pushes changes to
// the device adapter only when the target differs from the last applied
// value.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Gabweb/climate-schedule/internal/adapter"
	"github.com/Gabweb/climate-schedule/internal/metrics"
	"github.com/Gabweb/climate-schedule/internal/model"
	"github.com/Gabweb/climate-schedule/internal/schedule"
	"github.com/Gabweb/climate-schedule/internal/temperature"
	"github.com/Gabweb/climate-schedule/internal/waterheater"
)

const (
	DefaultInterval = 60 * time.Second
	DefaultTimeZone = "Europe/Berlin"

	waterHeaterKeyPrefix = "water-heater:"
)

// DocumentSource loads the persisted configuration documents. Each tick
// re-reads fresh state, so concurrent edits take effect on the next cycle.
type DocumentSource interface {
	LoadRooms() (model.RoomsFile, error)
	LoadSettings() (model.GlobalSettings, error)
	LoadWaterHeater() (model.WaterHeaterConfig, error)
}

// StateSink mirrors resolved room state to an external bus. Publishing is
// fire-and-forget; the engine runs correctly with no sink attached.
type StateSink interface {
	PublishRoomState(room model.RoomConfig, targetC float64, currentTemp *float64)
}

type Options struct {
	Source  DocumentSource
	Adapter adapter.Climate
	Sink    StateSink       // optional
	Metrics *metrics.Client // optional

	Location    *time.Location // defaults to Europe/Berlin
	Interval    time.Duration  // defaults to 60s
	StepMinutes int            // defaults to 10

	// Now is a test seam; defaults to time.Now.
	Now func() time.Time
}

// applied is a last-written device state. Off and a numeric target are
// distinct cache entries: turning the heater off must not be skipped just
// because some temperature was written earlier.
type applied struct {
	off     bool
	targetC float64
}

type Engine struct {
	source  DocumentSource
	adapter adapter.Climate
	sink    StateSink
	metrics *metrics.Client

	loc      *time.Location
	interval time.Duration
	step     int
	now      func() time.Time

	// lastApplied suppresses redundant device writes across ticks. Owned
	// exclusively by the engine; guarded because rooms apply concurrently.
	mu          sync.Mutex
	lastApplied map[string]applied
}

func New(opts Options) *Engine {
	loc := opts.Location
	if loc == nil {
		var err error
		loc, err = time.LoadLocation(DefaultTimeZone)
		if err != nil {
			loc = time.UTC
		}
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	step := opts.StepMinutes
	if step <= 0 {
		step = schedule.DefaultStepMinutes
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		source:      opts.Source,
		adapter:     opts.Adapter,
		sink:        opts.Sink,
		metrics:     opts.Metrics,
		loc:         loc,
		interval:    interval,
		step:        step,
		now:         now,
		lastApplied: make(map[string]applied),
	}
}

// Run ticks immediately, then on every interval until the context is
// cancelled. An in-flight tick completes after cancellation; there is no
// mid-tick abort.
func (e *Engine) Run(ctx context.Context) {
	log.Info().
		Dur("interval", e.interval).
		Str("time_zone", e.loc.String()).
		Msg("Starting scheduler")

	e.Tick(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Scheduler stopped")
			return
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Tick runs one evaluation-and-apply cycle. Every failure is contained:
// a bad room cannot abort the others or the water heater, and a bad tick
// cannot stop the timer.
func (e *Engine) Tick(ctx context.Context) {
	started := e.now()
	nowMinute := schedule.MinuteOfDayInZone(started, e.loc)

	roomsFile, err := e.source.LoadRooms()
	if err != nil {
		log.Error().Err(err).Msg("Tick failed to load rooms")
		e.metrics.Count("scheduler.tick.errors", 1, "stage:load_rooms")
		return
	}
	settings, err := e.source.LoadSettings()
	if err != nil {
		log.Error().Err(err).Msg("Tick failed to load settings")
		e.metrics.Count("scheduler.tick.errors", 1, "stage:load_settings")
		return
	}

	var (
		summaryMu sync.Mutex
		summary   []string
	)
	note := func(entry string) {
		summaryMu.Lock()
		summary = append(summary, entry)
		summaryMu.Unlock()
	}

	// Rooms are independent; device I/O for them runs concurrently.
	var wg sync.WaitGroup
	for _, room := range roomsFile.Rooms {
		wg.Add(1)
		go func(room model.RoomConfig) {
			defer wg.Done()
			entry, err := e.applyRoom(ctx, room, settings, nowMinute)
			if err != nil {
				log.Error().Err(err).Str("room", room.Key()).Msg("Room evaluation failed")
				e.metrics.Count("scheduler.room.errors", 1, "room:"+room.Key())
				return
			}
			note(entry)
		}(room)
	}
	wg.Wait()

	if entry, err := e.applyWaterHeater(ctx, settings, nowMinute); err != nil {
		log.Error().Err(err).Msg("Water heater evaluation failed")
		e.metrics.Count("scheduler.water_heater.errors", 1)
	} else if entry != "" {
		note(entry)
	}

	log.Info().
		Str("time", schedule.MinutesToTime(nowMinute)).
		Str("targets", strings.Join(summary, " | ")).
		Msg("Scheduler tick")
	e.metrics.Timing("scheduler.tick.duration", time.Since(started))
}

// applyRoom resolves and applies one room. The returned entry feeds the
// tick summary.
func (e *Engine) applyRoom(ctx context.Context, room model.RoomConfig, settings model.GlobalSettings, nowMinute int) (string, error) {
	mode, ok := room.ActiveMode()
	if !ok {
		return "", fmt.Errorf("active mode %q not found", room.ActiveModeName)
	}

	// Defensive re-check at evaluation time; a document that validated at
	// write time may still be inconsistent due to a bug elsewhere.
	if err := schedule.ValidateContiguous(mode.Schedule); err != nil {
		return "", err
	}
	if err := schedule.ValidateGranularity(mode.Schedule, e.step); err != nil {
		return "", err
	}

	idx, err := schedule.FindBlockAtMinute(mode.Schedule, nowMinute)
	if err != nil {
		return "", err
	}
	if idx < 0 {
		log.Warn().Str("room", room.Key()).Int("minute", nowMinute).Msg("No schedule block covers current minute")
		return fmt.Sprintf("%s: no block", room.Name), nil
	}
	block := mode.Schedule[idx]
	resolvedC := temperature.ApplyGlobalSettings(block.TargetC, settings)

	// Best-effort current reading from the primary entity. A read failure
	// is "unknown", never a reason to skip the write path.
	var currentTemp *float64
	if len(room.Entities) > 0 {
		reading, ok, err := e.adapter.GetCurrentTemperature(ctx, room.Entities[0].EntityID)
		if err != nil {
			log.Warn().Err(err).Str("room", room.Key()).Msg("Current temperature read failed")
		} else if ok {
			currentTemp = &reading
			e.metrics.Gauge("room.current_temperature", reading, "room:"+room.Key())
		}
	}

	for _, entity := range room.Entities {
		key := room.Key() + ":" + entity.EntityID
		if prev, ok := e.lastFor(key); ok && !prev.off && prev.targetC == resolvedC {
			continue
		}
		if err := e.adapter.SetTargetTemperature(ctx, entity.EntityID, resolvedC); err != nil {
			log.Error().Err(err).
				Str("room", room.Key()).
				Str("entity_id", entity.EntityID).
				Msg("Failed to apply target temperature")
			e.metrics.Count("scheduler.apply.errors", 1, "room:"+room.Key())
			continue
		}
		e.store(key, applied{targetC: resolvedC})
		log.Info().
			Str("room", room.Key()).
			Str("entity_id", entity.EntityID).
			Float64("target_c", resolvedC).
			Msg("Applied target temperature")
	}

	e.metrics.Gauge("room.target_temperature", resolvedC, "room:"+room.Key())

	// The sink always sees the latest resolved value, written or not.
	if e.sink != nil {
		e.sink.PublishRoomState(room, resolvedC, currentTemp)
	}

	return fmt.Sprintf("%s(%s)=%gC %s-%s", room.Name, room.ActiveModeName, resolvedC, block.Start, block.End), nil
}

func (e *Engine) applyWaterHeater(ctx context.Context, settings model.GlobalSettings, nowMinute int) (string, error) {
	config, err := e.source.LoadWaterHeater()
	if err != nil {
		return "", err
	}
	eval, err := waterheater.EvaluateAtMinute(config, nowMinute, settings)
	if err != nil {
		return "", err
	}
	if config.EntityID == "" {
		return "", nil
	}

	key := waterHeaterKeyPrefix + config.EntityID
	if eval.Off {
		if prev, ok := e.lastFor(key); ok && prev.off {
			return "water-heater=off", nil
		}
		if err := e.adapter.TurnOff(ctx, config.EntityID); err != nil {
			return "", fmt.Errorf("turn off %s: %w", config.EntityID, err)
		}
		e.store(key, applied{off: true})
		log.Info().Str("entity_id", config.EntityID).Msg("Water heater turned off")
		return "water-heater=off", nil
	}

	entry := fmt.Sprintf("water-heater=%gC", eval.TemperatureC)
	if prev, ok := e.lastFor(key); ok && !prev.off && prev.targetC == eval.TemperatureC {
		return entry, nil
	}
	if err := e.adapter.SetTargetTemperature(ctx, config.EntityID, eval.TemperatureC); err != nil {
		return "", fmt.Errorf("set target on %s: %w", config.EntityID, err)
	}
	e.store(key, applied{targetC: eval.TemperatureC})
	e.metrics.Gauge("water_heater.target_temperature", eval.TemperatureC)
	log.Info().
		Str("entity_id", config.EntityID).
		Float64("target_c", eval.TemperatureC).
		Msg("Water heater target applied")
	return entry, nil
}

func (e *Engine) lastFor(key string) (applied, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.lastApplied[key]
	return state, ok
}

func (e *Engine) store(key string, state applied) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastApplied[key] = state
}
