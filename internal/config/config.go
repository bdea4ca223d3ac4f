package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Gabweb/climate-schedule/internal/schedule"
)

type Config struct {
	DataDir  string
	LogLevel zerolog.Level
	LogFile  string

	ListenPort int

	TimeZone       string
	Location       *time.Location
	TickIntervalMs int
	StepMinutes    int

	MQTTBrokerURL string

	NtfyTopic string

	DDAgentAddr string
	DDNamespace string
	DDTags      []string
}

func Load() Config {
	var cfg Config
	var logLevel string
	var ddTags string

	flag.StringVar(&cfg.DataDir, "data-dir", envOr("DATA_DIR", "/data"), "Directory holding the persisted JSON documents")
	flag.StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFile, "log-file", envOr("LOG_FILE", ""), "Optional log file path (in addition to stderr)")
	flag.IntVar(&cfg.ListenPort, "port", envOrInt("PORT", 3000), "HTTP listen port")
	flag.StringVar(&cfg.TimeZone, "time-zone", envOr("TIME_ZONE", "Europe/Berlin"), "Time zone for schedule evaluation")
	flag.IntVar(&cfg.TickIntervalMs, "tick-interval-ms", envOrInt("TICK_INTERVAL_MS", 60000), "Scheduler tick interval in milliseconds")
	flag.IntVar(&cfg.StepMinutes, "step-minutes", envOrInt("STEP_MINUTES", schedule.DefaultStepMinutes), "Schedule boundary granularity in minutes")
	flag.StringVar(&cfg.MQTTBrokerURL, "mqtt-broker", envOr("MQTT_BROKER_URL", ""), "MQTT broker URL; empty disables the MQTT mirror")
	flag.StringVar(&cfg.NtfyTopic, "ntfy-topic", envOr("NTFY_TOPIC", ""), "ntfy.sh topic for operator alerts; empty disables notifications")
	flag.StringVar(&cfg.DDAgentAddr, "dd-agent-addr", envOr("DD_AGENT_ADDR", ""), "DogStatsD agent address; empty disables metrics")
	flag.StringVar(&cfg.DDNamespace, "dd-namespace", envOr("DD_NAMESPACE", "climate_schedule."), "DogStatsD metric namespace")
	flag.StringVar(&ddTags, "dd-tags", envOr("DD_TAGS", ""), "Comma-separated DogStatsD tags")
	flag.Parse()

	cfg.LogLevel = parseLogLevel(logLevel)
	if ddTags != "" {
		cfg.DDTags = strings.Split(ddTags, ",")
	}

	cfg.validate()
	return cfg
}

func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (cfg *Config) validate() {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		panic("Invalid time zone: " + cfg.TimeZone)
	}
	cfg.Location = loc

	if cfg.TickIntervalMs <= 0 {
		panic(fmt.Sprintf("Tick interval must be positive, got %d", cfg.TickIntervalMs))
	}
	if cfg.StepMinutes <= 0 || cfg.StepMinutes >= schedule.MinutesPerDay {
		panic(fmt.Sprintf("Step minutes must be within (0, 1440), got %d", cfg.StepMinutes))
	}
	if cfg.ListenPort <= 0 || cfg.ListenPort > 65535 {
		panic(fmt.Sprintf("Invalid listen port %d", cfg.ListenPort))
	}
}

func (cfg Config) TickInterval() time.Duration {
	return time.Duration(cfg.TickIntervalMs) * time.Millisecond
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var parsed int
	if _, err := fmt.Sscanf(value, "%d", &parsed); err != nil {
		return fallback
	}
	return parsed
}
