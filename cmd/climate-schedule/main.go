package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Gabweb/climate-schedule/internal/adapter"
	"github.com/Gabweb/climate-schedule/internal/api"
	"github.com/Gabweb/climate-schedule/internal/config"
	"github.com/Gabweb/climate-schedule/internal/logging"
	"github.com/Gabweb/climate-schedule/internal/metrics"
	"github.com/Gabweb/climate-schedule/internal/model"
	"github.com/Gabweb/climate-schedule/internal/mqtt"
	"github.com/Gabweb/climate-schedule/internal/notifications"
	"github.com/Gabweb/climate-schedule/internal/persist"
	"github.com/Gabweb/climate-schedule/internal/schedule"
	"github.com/Gabweb/climate-schedule/internal/scheduler"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFile)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("time_zone", cfg.TimeZone).
		Dur("tick_interval", cfg.TickInterval()).
		Msg("Starting climate schedule controller")

	store := persist.New(cfg.DataDir, cfg.StepMinutes)

	// Load all documents up front: this creates defaults on first boot and
	// runs pending migrations before anything else touches the files.
	roomsFile, err := store.LoadRooms()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load rooms document")
	}
	if _, err := store.LoadSettings(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load settings document")
	}
	waterHeater, err := store.LoadWaterHeater()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load water heater document")
	}
	log.Info().
		Int("rooms", len(roomsFile.Rooms)).
		Str("water_heater_entity", waterHeater.EntityID).
		Msg("Documents loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier := notifications.New(cfg.NtfyTopic)

	startupOK := true
	var climate adapter.Climate
	if haCfg, ok := adapter.HomeAssistantConfigFromEnv(); ok {
		ha := adapter.NewHomeAssistant(haCfg)
		climate = ha

		entityIDs := make([]string, 0, len(roomsFile.Rooms)+1)
		for _, room := range roomsFile.Rooms {
			for _, entity := range room.Entities {
				entityIDs = append(entityIDs, entity.EntityID)
			}
		}
		if waterHeater.EntityID != "" {
			entityIDs = append(entityIDs, waterHeater.EntityID)
		}
		missing, probeErrors := ha.ValidateEntities(ctx, entityIDs)
		for _, entityID := range missing {
			log.Error().Str("entity_id", entityID).Msg("Configured entity unknown to Home Assistant")
			startupOK = false
		}
		for _, probeErr := range probeErrors {
			log.Warn().Err(probeErr).Msg("Entity validation probe failed")
		}
		if len(missing) > 0 {
			notifier.Send("Climate schedule startup", fmt.Sprintf("%d configured entities are unknown to Home Assistant", len(missing)))
		}
	} else {
		log.Warn().Msg("No Home Assistant credentials found, running without a device backend")
		climate = adapter.Noop{}
	}

	stats := metrics.New(cfg.DDAgentAddr, cfg.DDNamespace, cfg.DDTags)
	defer stats.Close()

	var bus *mqtt.Service
	if cfg.MQTTBrokerURL != "" {
		bus, err = mqtt.Connect(mqtt.Options{
			BrokerURL:            cfg.MQTTBrokerURL,
			OnPresetChange:       presetChangeHandler(store),
			OnTemperatureCommand: temperatureCommandHandler(store, cfg.Location),
		})
		if err != nil {
			log.Error().Err(err).Msg("MQTT connection failed, continuing without the bus mirror")
			notifier.Send("Climate schedule startup", "MQTT broker connection failed: "+err.Error())
			startupOK = false
		} else {
			defer bus.Close()
			bus.InitializeRooms(roomsFile.Rooms)
		}
	}

	engine := scheduler.New(scheduler.Options{
		Source:      store,
		Adapter:     climate,
		Sink:        sinkOrNil(bus),
		Metrics:     stats,
		Location:    cfg.Location,
		Interval:    cfg.TickInterval(),
		StepMinutes: cfg.StepMinutes,
	})
	go engine.Run(ctx)

	server := api.NewServer(api.Options{
		Store:             store,
		Sink:              discoverySinkOrNil(bus),
		Location:          cfg.Location,
		StepMinutes:       cfg.StepMinutes,
		StartupSuccessful: startupOK,
	})
	go func() {
		if err := server.Start(cfg.ListenPort); err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()
	log.Info().Int("port", cfg.ListenPort).Msg("HTTP server listening")

	<-ctx.Done()
	log.Info().Msg("Shutting down")
}

// sinkOrNil avoids handing the engine a typed-nil interface value.
func sinkOrNil(bus *mqtt.Service) scheduler.StateSink {
	if bus == nil {
		return nil
	}
	return bus
}

func discoverySinkOrNil(bus *mqtt.Service) api.DiscoverySink {
	if bus == nil {
		return nil
	}
	return bus
}

// presetChangeHandler switches a room's active mode in response to a bus
// preset command.
func presetChangeHandler(store *persist.Store) func(roomKey, preset string) error {
	return func(roomKey, preset string) error {
		doc, err := store.LoadRooms()
		if err != nil {
			return err
		}
		for i, room := range doc.Rooms {
			if room.Key() != roomKey {
				continue
			}
			if _, ok := withActiveMode(room, preset); !ok {
				return fmt.Errorf("room %s has no mode %q", roomKey, preset)
			}
			doc.Rooms[i].ActiveModeName = preset
			return store.SaveRooms(&doc)
		}
		return fmt.Errorf("room %s not found", roomKey)
	}
}

// temperatureCommandHandler retargets the schedule block covering the
// current minute in the room's active mode. The override persists for the
// block's whole window, matching how a thermostat dial edit should behave.
func temperatureCommandHandler(store *persist.Store, loc *time.Location) func(roomKey string, temperatureC float64) error {
	return func(roomKey string, temperatureC float64) error {
		doc, err := store.LoadRooms()
		if err != nil {
			return err
		}
		for i, room := range doc.Rooms {
			if room.Key() != roomKey {
				continue
			}
			mode, ok := room.ActiveMode()
			if !ok {
				return fmt.Errorf("room %s active mode %q not found", roomKey, room.ActiveModeName)
			}
			nowMinute := schedule.MinuteOfDayInZone(time.Now(), loc)
			idx, err := schedule.FindBlockAtMinute(mode.Schedule, nowMinute)
			if err != nil {
				return err
			}
			if idx < 0 {
				return fmt.Errorf("room %s has no block at minute %d", roomKey, nowMinute)
			}
			for m := range doc.Rooms[i].Modes {
				if doc.Rooms[i].Modes[m].Name == room.ActiveModeName {
					doc.Rooms[i].Modes[m].Schedule[idx].TargetC = temperatureC
				}
			}
			return store.SaveRooms(&doc)
		}
		return fmt.Errorf("room %s not found", roomKey)
	}
}

func withActiveMode(room model.RoomConfig, name string) (model.RoomMode, bool) {
	for _, mode := range room.Modes {
		if mode.Name == name {
			return mode, true
		}
	}
	return model.RoomMode{}, false
}
