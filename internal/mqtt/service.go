// Package mqtt mirrors room state onto a smart-home bus. Each room is
// announced to Home Assistant through MQTT discovery as a climate entity;
// preset and temperature commands arriving from the bus are dispatched back
// to the registered callbacks.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/Gabweb/climate-schedule/internal/model"
)

const (
	clientID       = "climate-schedule"
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Options configures the service. The command callbacks receive the room
// key (floor::name); either callback may be nil.
type Options struct {
	BrokerURL            string
	OnPresetChange       func(roomKey, preset string) error
	OnTemperatureCommand func(roomKey string, temperatureC float64) error
}

// Service owns all bus-facing state: the published-discovery set, the
// subscription set and the command-topic routing tables. Nothing here is
// package-global, so independent instances never interfere.
type Service struct {
	client paho.Client
	opts   Options

	mu                 sync.Mutex
	subscribed         map[string]struct{}
	publishedDiscovery map[string]struct{}
	presetTopicRoom    map[string]string
	tempTopicRoom      map[string]string
}

// Connect dials the broker and returns the service once the connection is
// established.
func Connect(opts Options) (*Service, error) {
	s := &Service{
		opts:               opts,
		subscribed:         make(map[string]struct{}),
		publishedDiscovery: make(map[string]struct{}),
		presetTopicRoom:    make(map[string]string),
		tempTopicRoom:      make(map[string]string),
	}

	clientOpts := paho.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetDefaultPublishHandler(s.onMessage)

	s.client = paho.NewClient(clientOpts)
	token := s.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return s, nil
}

// InitializeRooms publishes discovery for every room at startup so the bus
// reflects the current configuration even after a broker restart.
func (s *Service) InitializeRooms(rooms []model.RoomConfig) {
	for _, room := range rooms {
		s.PublishDiscovery(room)
	}
}

// PublishDiscovery (re-)announces a room. The retained discovery document
// is always rewritten; command subscriptions are only established once.
func (s *Service) PublishDiscovery(room model.RoomConfig) {
	t := topicsFor(room)

	s.mu.Lock()
	s.publishedDiscovery[t.uniqueID] = struct{}{}
	_, presetSubscribed := s.subscribed[t.presetCommand]
	_, tempSubscribed := s.subscribed[t.temperatureCommand]
	s.subscribed[t.presetCommand] = struct{}{}
	s.subscribed[t.temperatureCommand] = struct{}{}
	s.presetTopicRoom[t.presetCommand] = room.Key()
	s.tempTopicRoom[t.temperatureCommand] = room.Key()
	s.mu.Unlock()

	log.Info().
		Str("room", room.Key()).
		Str("unique_id", t.uniqueID).
		Msg("Publishing MQTT discovery")

	s.publishJSON(t.discovery, discoveryPayload(room, t))
	s.publish(t.availability, "online")
	s.publish(t.modeState, "heat")

	if !presetSubscribed {
		s.subscribe(t.presetCommand)
	}
	if !tempSubscribed {
		s.subscribe(t.temperatureCommand)
	}
}

// RemoveDiscovery retracts a deleted room from the bus by clearing its
// retained discovery document.
func (s *Service) RemoveDiscovery(room model.RoomConfig) {
	t := topicsFor(room)

	s.mu.Lock()
	delete(s.publishedDiscovery, t.uniqueID)
	delete(s.presetTopicRoom, t.presetCommand)
	delete(s.tempTopicRoom, t.temperatureCommand)
	s.mu.Unlock()

	log.Info().
		Str("room", room.Key()).
		Str("unique_id", t.uniqueID).
		Msg("Removing MQTT discovery")

	s.publish(t.discovery, "")
}

// PublishRoomState mirrors the room's resolved state. currentTemp is nil
// when no reading is available; the retained previous value then stands.
func (s *Service) PublishRoomState(room model.RoomConfig, targetC float64, currentTemp *float64) {
	t := topicsFor(room)

	log.Debug().
		Str("room", room.Key()).
		Str("preset", room.ActiveModeName).
		Float64("target_c", targetC).
		Msg("Publishing room state")

	s.publish(t.presetState, room.ActiveModeName)
	s.publish(t.targetTemperature, formatTemperature(targetC))
	if currentTemp != nil {
		s.publish(t.currentTemperature, formatTemperature(*currentTemp))
	}
	s.publish(t.modeState, "heat")
}

// Close disconnects from the broker.
func (s *Service) Close() {
	s.client.Disconnect(1000)
}

func (s *Service) onMessage(_ paho.Client, msg paho.Message) {
	topic := msg.Topic()
	payload := string(msg.Payload())

	s.mu.Lock()
	presetRoom, isPreset := s.presetTopicRoom[topic]
	tempRoom, isTemp := s.tempTopicRoom[topic]
	s.mu.Unlock()

	switch {
	case isPreset && s.opts.OnPresetChange != nil:
		log.Info().Str("room", presetRoom).Str("preset", payload).Msg("MQTT preset command")
		if err := s.opts.OnPresetChange(presetRoom, payload); err != nil {
			log.Error().Err(err).Str("room", presetRoom).Msg("Preset command failed")
		}
	case isTemp && s.opts.OnTemperatureCommand != nil:
		temperatureC, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			log.Warn().Str("room", tempRoom).Str("payload", payload).Msg("Ignoring invalid temperature command")
			return
		}
		log.Info().Str("room", tempRoom).Float64("temperature_c", temperatureC).Msg("MQTT temperature command")
		if err := s.opts.OnTemperatureCommand(tempRoom, temperatureC); err != nil {
			log.Error().Err(err).Str("room", tempRoom).Msg("Temperature command failed")
		}
	}
}

func (s *Service) publishJSON(topic string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to encode MQTT payload")
		return
	}
	s.publish(topic, string(data))
}

// publish sends a retained message; failures are logged, never propagated,
// so a flaky broker cannot disturb the apply path.
func (s *Service) publish(topic, payload string) {
	token := s.client.Publish(topic, 0, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		log.Warn().Str("topic", topic).Msg("MQTT publish timeout")
		return
	}
	if err := token.Error(); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("MQTT publish failed")
	}
}

func (s *Service) subscribe(topic string) {
	token := s.client.Subscribe(topic, 0, nil)
	if !token.WaitTimeout(publishTimeout) {
		log.Warn().Str("topic", topic).Msg("MQTT subscribe timeout")
		return
	}
	if err := token.Error(); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("MQTT subscribe failed")
	}
}

func formatTemperature(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
