package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// HomeAssistantConfig locates the Home Assistant REST API.
type HomeAssistantConfig struct {
	BaseURL string
	Token   string
}

// HomeAssistantConfigFromEnv resolves the API location the way the add-on
// runtime does: a supervisor token implies the internal core proxy,
// otherwise HA_BASE_URL and HA_TOKEN must both be set.
func HomeAssistantConfigFromEnv() (HomeAssistantConfig, bool) {
	if token := os.Getenv("SUPERVISOR_TOKEN"); token != "" {
		return HomeAssistantConfig{BaseURL: "http://supervisor/core", Token: token}, true
	}
	baseURL := os.Getenv("HA_BASE_URL")
	token := os.Getenv("HA_TOKEN")
	if baseURL != "" && token != "" {
		return HomeAssistantConfig{BaseURL: baseURL, Token: token}, true
	}
	return HomeAssistantConfig{}, false
}

// HomeAssistant talks to the Home Assistant climate services over REST.
type HomeAssistant struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHomeAssistant(cfg HomeAssistantConfig) *HomeAssistant {
	return &HomeAssistant{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (h *HomeAssistant) SetTargetTemperature(ctx context.Context, entityID string, temperatureC float64) error {
	body := map[string]any{
		"entity_id":   entityID,
		"temperature": temperatureC,
	}
	resp, err := h.post(ctx, "/api/services/climate/set_temperature", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HA service call failed: %d %s", resp.StatusCode, readBody(resp))
	}
	return nil
}

func (h *HomeAssistant) GetCurrentTemperature(ctx context.Context, entityID string) (float64, bool, error) {
	req, err := h.newRequest(ctx, http.MethodGet, "/api/states/"+url.PathEscape(entityID), nil)
	if err != nil {
		return 0, false, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, false, fmt.Errorf("HA state fetch failed: %d %s", resp.StatusCode, readBody(resp))
	}

	var state struct {
		Attributes struct {
			CurrentTemperature *float64 `json:"current_temperature"`
		} `json:"attributes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return 0, false, fmt.Errorf("HA state decode failed: %w", err)
	}
	if state.Attributes.CurrentTemperature == nil {
		return 0, false, nil
	}
	return *state.Attributes.CurrentTemperature, true, nil
}

func (h *HomeAssistant) TurnOff(ctx context.Context, entityID string) error {
	resp, err := h.post(ctx, "/api/services/climate/turn_off", map[string]any{"entity_id": entityID})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HA turn_off failed: %d %s", resp.StatusCode, readBody(resp))
	}
	return nil
}

// ValidateEntities probes every entity id and reports the ones Home
// Assistant does not know about. Transport errors are collected separately
// so a flaky backend does not masquerade as missing entities.
func (h *HomeAssistant) ValidateEntities(ctx context.Context, entityIDs []string) (missing []string, probeErrors []error) {
	seen := make(map[string]struct{}, len(entityIDs))
	for _, entityID := range entityIDs {
		if _, dup := seen[entityID]; dup {
			continue
		}
		seen[entityID] = struct{}{}

		req, err := h.newRequest(ctx, http.MethodGet, "/api/states/"+url.PathEscape(entityID), nil)
		if err != nil {
			probeErrors = append(probeErrors, fmt.Errorf("%s: %w", entityID, err))
			continue
		}
		resp, err := h.client.Do(req)
		if err != nil {
			probeErrors = append(probeErrors, fmt.Errorf("%s: %w", entityID, err))
			continue
		}
		if resp.StatusCode == http.StatusNotFound {
			missing = append(missing, entityID)
		} else if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			probeErrors = append(probeErrors, fmt.Errorf("%s: status %d", entityID, resp.StatusCode))
		}
		resp.Body.Close()
	}
	return missing, probeErrors
}

func (h *HomeAssistant) post(ctx context.Context, path string, body map[string]any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := h.newRequest(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	return h.client.Do(req)
}

func (h *HomeAssistant) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+h.token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func readBody(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return ""
	}
	return string(data)
}
