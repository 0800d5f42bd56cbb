package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/fleetpulse/fleetpulse/internal/config"
	"github.com/fleetpulse/fleetpulse/internal/window"
)

const cloudEndpointFmt = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s"

const cloudSystemPrompt = "You are an industrial maintenance risk assessor. " +
	"Given time-series telemetry for logistics equipment, return a JSON object of the form " +
	`{"probability": number} where probability is a value between 0 and 1 representing the likelihood ` +
	"of a failure within the next 24 hours. Do not include any additional keys or text."

// floatPattern extracts a bare number from a model reply that ignored the
// JSON-only instruction.
var floatPattern = regexp.MustCompile(`\d*\.?\d+`)

// Cloud scores readings through the Google Generative Language API, asking
// the model for a single-field JSON response. Like every non-heuristic
// provider, any failure simply advances the fallback chain.
type Cloud struct {
	cfg     config.CloudProviderConfig
	client  *http.Client
	baseURL string // overridable in tests
}

// NewCloud creates a Cloud provider for the configured model.
func NewCloud(cfg config.CloudProviderConfig) *Cloud {
	return &Cloud{cfg: cfg, client: &http.Client{}}
}

func (c *Cloud) Name() string { return ProviderCloud }

func (c *Cloud) Score(ctx context.Context, f window.Features) (float64, error) {
	key := c.cfg.APIKey()
	if key == "" {
		return 0, fmt.Errorf("cloud: api key not configured")
	}

	task, err := json.Marshal(map[string]any{
		"task":     "predict_failure_probability",
		"features": f.Flat(),
	})
	if err != nil {
		return 0, fmt.Errorf("cloud: marshal task: %w", err)
	}

	payload := map[string]any{
		"system_instruction": map[string]any{
			"role":  "model",
			"parts": []map[string]string{{"text": cloudSystemPrompt}},
		},
		"contents": []map[string]any{{
			"role":  "user",
			"parts": []map[string]string{{"text": string(task)}},
		}},
		"generationConfig": map[string]any{
			"responseMimeType": "application/json",
			"maxOutputTokens":  64,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("cloud: marshal payload: %w", err)
	}

	url := c.baseURL
	if url == "" {
		url = fmt.Sprintf(cloudEndpointFmt, c.cfg.Model, key)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("cloud: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("cloud: http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("cloud: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("cloud: decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return 0, fmt.Errorf("cloud: empty candidate response")
	}

	p, err := parseProbabilityText(out.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return 0, fmt.Errorf("cloud: %w", err)
	}
	if err := checkProbability(p); err != nil {
		return 0, fmt.Errorf("cloud: %w", err)
	}
	return p, nil
}

// parseProbabilityText reads {"probability": p} from the model reply,
// falling back to the first bare number in the text.
func parseProbabilityText(text string) (float64, error) {
	var obj struct {
		Probability *float64 `json:"probability"`
	}
	if err := json.Unmarshal([]byte(text), &obj); err == nil && obj.Probability != nil {
		return *obj.Probability, nil
	}
	if m := floatPattern.FindString(text); m != "" {
		return strconv.ParseFloat(m, 64)
	}
	return 0, fmt.Errorf("no probability in model reply %q", text)
}
