// Package notifications pushes operator alerts to ntfy.sh. A nil *Notifier
// is valid and drops everything, so callers never branch on whether a topic
// is configured.
package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

type Notifier struct {
	client *http.Client
	topic  string
}

// New builds a notifier for the given ntfy topic. An empty topic returns
// nil, which disables notifications.
func New(topic string) *Notifier {
	if topic == "" {
		return nil
	}

	log.Info().Str("topic", topic).Msg("Ntfy notifications initialized")
	return &Notifier{
		client: &http.Client{Timeout: 10 * time.Second},
		topic:  topic,
	}
}

// Send pushes one notification. Failures are logged and swallowed; alerting
// must never take the controller down.
func (n *Notifier) Send(title, message string) {
	if n == nil {
		return
	}

	payload := map[string]any{
		"topic":   n.topic,
		"title":   title,
		"message": message,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to marshal notification")
		return
	}

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("https://ntfy.sh/%s", n.topic), bytes.NewBuffer(jsonData))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create notification request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to send notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().Int("status", resp.StatusCode).Msg("Ntfy returned non-success status")
		return
	}

	log.Debug().Str("title", title).Msg("Notification sent")
}
