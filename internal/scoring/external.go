package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fleetpulse/fleetpulse/internal/config"
	"github.com/fleetpulse/fleetpulse/internal/window"
)

// External scores readings by POSTing the feature vector to a self-hosted
// scoring service. The wire contract is
//
//	request:  {"features": {"<name>": <value>, ...}}
//	response: {"probability": <p>}
//
// with an optional bearer token. Any transport error, non-2xx status,
// unparsable body, or out-of-range probability is a provider failure.
type External struct {
	cfg    config.ExternalProviderConfig
	client *http.Client
}

// NewExternal creates an External provider. The per-call deadline comes from
// the caller's context, so the client itself carries no timeout.
func NewExternal(cfg config.ExternalProviderConfig) *External {
	return &External{cfg: cfg, client: &http.Client{}}
}

func (e *External) Name() string { return ProviderExternal }

type externalRequest struct {
	Features map[string]float64 `json:"features"`
}

type externalResponse struct {
	Probability float64 `json:"probability"`
}

func (e *External) Score(ctx context.Context, f window.Features) (float64, error) {
	if e.cfg.URL == "" {
		return 0, fmt.Errorf("external: url not configured")
	}

	body, err := json.Marshal(externalRequest{Features: f.Flat()})
	if err != nil {
		return 0, fmt.Errorf("external: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("external: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key := e.cfg.APIKey(); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("external: http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("external: unexpected status %d", resp.StatusCode)
	}

	var out externalResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("external: decode response: %w", err)
	}
	if err := checkProbability(out.Probability); err != nil {
		return 0, fmt.Errorf("external: %w", err)
	}
	return out.Probability, nil
}
