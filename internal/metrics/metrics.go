// Package metrics emits DogStatsD gauges and counters for tick
// observability. A nil *Client is valid and disables emission, so callers
// never have to branch on whether metrics are configured.
package metrics

import (
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"
)

type Client struct {
	statsd *statsd.Client
}

// New connects a DogStatsD client. An empty addr returns a nil client,
// which disables metrics.
func New(addr, namespace string, tags []string) *Client {
	if addr == "" {
		return nil
	}
	client, err := statsd.New(addr)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create DogStatsD client")
		return nil
	}
	client.Namespace = namespace
	client.Tags = tags

	log.Info().
		Str("addr", addr).
		Str("namespace", namespace).
		Strs("tags", tags).
		Msg("Metrics initialized")

	return &Client{statsd: client}
}

func (c *Client) Gauge(name string, value float64, tags ...string) {
	if c == nil {
		return
	}
	if err := c.statsd.Gauge(name, value, tags, 1); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("Failed to emit gauge metric")
	}
}

func (c *Client) Count(name string, value int64, tags ...string) {
	if c == nil {
		return
	}
	if err := c.statsd.Count(name, value, tags, 1); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("Failed to emit count metric")
	}
}

func (c *Client) Timing(name string, value time.Duration, tags ...string) {
	if c == nil {
		return
	}
	if err := c.statsd.Timing(name, value, tags, 1); err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("Failed to emit timing metric")
	}
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	if err := c.statsd.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close DogStatsD client")
	}
}
