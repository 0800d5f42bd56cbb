package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHTTPPort       = 8080
	DefaultDBPath         = "fleetpulse.db"
	DefaultWindowSize     = 20
	DefaultScoringTimeout = 8 * time.Second
	DefaultCloudModel     = "gemini-1.5-flash"

	DefaultTemperatureMax       = 80.0
	DefaultProbabilityThreshold = 0.6
	DefaultMediumCut            = 0.7
	DefaultHighCut              = 0.85
	DefaultAlertCooldown        = 5 * time.Minute

	DefaultWebhookTimeout     = 8 * time.Second
	DefaultWebhookMaxAttempts = 4
	DefaultWebhookBufferSize  = 256
	DefaultWebhookWorkers     = 2

	DefaultBroadcastBufferSize = 16
)

// Config is the top-level fleetpulse configuration. It is built once at
// startup by Load and passed by reference into each component; nothing
// mutates it afterwards.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
}

// ServerConfig holds process-level settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, WebSocket stream, and /metrics
	// endpoint listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// DBPath is the SQLite database file for readings, predictions, and
	// alerts (default fleetpulse.db).
	DBPath string `yaml:"db_path"`
}

// IngestConfig controls reading validation and the per-device context window.
type IngestConfig struct {
	// WindowSize is the number of recent readings kept per device as
	// scoring context (default 20).
	WindowSize int `yaml:"window_size"`

	// Ranges maps a channel name to its [min, max] sane physical range.
	// Readings with a channel outside its range are rejected.
	// Channels without an entry are not range-checked.
	Ranges map[string][2]float64 `yaml:"ranges"`
}

// ScoringConfig selects the primary provider and configures the network ones.
type ScoringConfig struct {
	// Provider is the operator-selected primary scorer:
	// heuristic | external | cloud. The heuristic is always the terminal
	// fallback regardless of this choice.
	Provider string `yaml:"provider"`

	// Timeout bounds each individual external or cloud scoring call.
	Timeout time.Duration `yaml:"timeout"`

	External ExternalProviderConfig `yaml:"external"`
	Cloud    CloudProviderConfig    `yaml:"cloud"`
}

// ExternalProviderConfig points at a self-hosted scoring service.
type ExternalProviderConfig struct {
	// URL is the full endpoint the feature vector is POSTed to.
	URL string `yaml:"url"`

	// APIKeyEnv is the name of the environment variable holding the bearer
	// token sent with each request. Empty means no Authorization header.
	APIKeyEnv string `yaml:"api_key_env"`
}

// APIKey returns the bearer token resolved from the environment.
func (e ExternalProviderConfig) APIKey() string {
	if e.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(e.APIKeyEnv)
}

// CloudProviderConfig points at the generative-AI scoring service.
type CloudProviderConfig struct {
	// Model is the generative model name (default gemini-1.5-flash).
	Model string `yaml:"model"`

	// APIKeyEnv is the name of the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`
}

// APIKey returns the cloud API key resolved from the environment.
func (c CloudProviderConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// AlertsConfig holds rule thresholds and deduplication settings.
type AlertsConfig struct {
	// TemperatureMax is the threshold-rule limit in °C (default 80).
	TemperatureMax float64 `yaml:"temperature_max"`

	// ProbabilityThreshold is the minimum failure probability that fires a
	// predictive alert (default 0.6).
	ProbabilityThreshold float64 `yaml:"probability_threshold"`

	// MediumCut and HighCut split probabilities at or above
	// ProbabilityThreshold into low / medium / high severity bands:
	// [threshold, medium) → low, [medium, high) → medium, [high, 1] → high.
	MediumCut float64 `yaml:"medium_cut"`
	HighCut   float64 `yaml:"high_cut"`

	// Cooldown suppresses repeat alerts with the same device, kind, and
	// dedup key for this duration (default 5m).
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig configures delivery of predictive alerts to the CMMS.
// An empty URL disables the dispatcher entirely.
type WebhookConfig struct {
	// URL is the CMMS endpoint alert payloads are POSTed to.
	URL string `yaml:"url"`

	// TokenEnv is the name of the environment variable holding the bearer
	// token for the CMMS. Empty means no Authorization header.
	TokenEnv string `yaml:"token_env"`

	// Timeout bounds each delivery attempt.
	Timeout time.Duration `yaml:"timeout"`

	// MaxAttempts is the delivery attempt ceiling per alert (default 4).
	MaxAttempts int `yaml:"max_attempts"`

	// BufferSize is the pending-job queue depth; when full the oldest
	// pending job is evicted (default 256).
	BufferSize int `yaml:"buffer_size"`

	// Workers is the number of concurrent delivery workers (default 2).
	Workers int `yaml:"workers"`
}

// Token returns the CMMS bearer token resolved from the environment.
func (w WebhookConfig) Token() string {
	if w.TokenEnv == "" {
		return ""
	}
	return os.Getenv(w.TokenEnv)
}

// BroadcastConfig controls the live event stream.
type BroadcastConfig struct {
	// BufferSize is the per-subscriber event queue depth. A full queue
	// drops its oldest event rather than blocking the publisher.
	BufferSize int `yaml:"buffer_size"`
}

// MQTTConfig configures the optional MQTT ingest feed.
// An empty BrokerURL disables it.
type MQTTConfig struct {
	// BrokerURL is the broker address, e.g. "tcp://localhost:1883".
	BrokerURL string `yaml:"broker_url"`

	// Topic is the topic JSON readings arrive on (default fleetpulse/readings).
	Topic string `yaml:"topic"`

	// ClientID identifies this subscriber to the broker.
	ClientID string `yaml:"client_id"`
}

// Load reads and parses the config file at path. Missing fields are filled
// with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Defaults returns a Config pre-populated with default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			DBPath:   DefaultDBPath,
		},
		Ingest: IngestConfig{
			WindowSize: DefaultWindowSize,
			Ranges: map[string][2]float64{
				"vibration":   {0, 100},
				"temperature": {-40, 200},
				"current":     {0, 500},
				"rpm":         {0, 100000},
				"load_pct":    {0, 100},
			},
		},
		Scoring: ScoringConfig{
			Provider: "heuristic",
			Timeout:  DefaultScoringTimeout,
			Cloud:    CloudProviderConfig{Model: DefaultCloudModel},
		},
		Alerts: AlertsConfig{
			TemperatureMax:       DefaultTemperatureMax,
			ProbabilityThreshold: DefaultProbabilityThreshold,
			MediumCut:            DefaultMediumCut,
			HighCut:              DefaultHighCut,
			Cooldown:             DefaultAlertCooldown,
		},
		Webhook: WebhookConfig{
			Timeout:     DefaultWebhookTimeout,
			MaxAttempts: DefaultWebhookMaxAttempts,
			BufferSize:  DefaultWebhookBufferSize,
			Workers:     DefaultWebhookWorkers,
		},
		Broadcast: BroadcastConfig{
			BufferSize: DefaultBroadcastBufferSize,
		},
		MQTT: MQTTConfig{
			Topic:    "fleetpulse/readings",
			ClientID: "fleetpulse-server",
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	if cfg.Ingest.WindowSize <= 0 {
		return fmt.Errorf("ingest.window_size must be positive, got %d", cfg.Ingest.WindowSize)
	}
	for name, r := range cfg.Ingest.Ranges {
		if r[0] >= r[1] {
			return fmt.Errorf("ingest.ranges.%s: min %v must be below max %v", name, r[0], r[1])
		}
	}

	switch cfg.Scoring.Provider {
	case "heuristic", "external", "cloud":
	default:
		return fmt.Errorf("scoring.provider %q unknown: want heuristic|external|cloud", cfg.Scoring.Provider)
	}
	if cfg.Scoring.Provider == "external" && cfg.Scoring.External.URL == "" {
		return fmt.Errorf("scoring.external.url is required when scoring.provider is external")
	}
	if cfg.Scoring.Timeout <= 0 {
		return fmt.Errorf("scoring.timeout must be positive")
	}

	a := cfg.Alerts
	if a.ProbabilityThreshold < 0 || a.ProbabilityThreshold > 1 {
		return fmt.Errorf("alerts.probability_threshold %v is out of range [0, 1]", a.ProbabilityThreshold)
	}
	if !(a.ProbabilityThreshold <= a.MediumCut && a.MediumCut <= a.HighCut && a.HighCut <= 1) {
		return fmt.Errorf("alerts severity cuts must satisfy threshold <= medium_cut <= high_cut <= 1, got %v / %v / %v",
			a.ProbabilityThreshold, a.MediumCut, a.HighCut)
	}
	if a.Cooldown < 0 {
		return fmt.Errorf("alerts.cooldown must not be negative")
	}

	if cfg.Webhook.MaxAttempts <= 0 {
		return fmt.Errorf("webhook.max_attempts must be positive, got %d", cfg.Webhook.MaxAttempts)
	}
	if cfg.Webhook.Workers <= 0 {
		return fmt.Errorf("webhook.workers must be positive, got %d", cfg.Webhook.Workers)
	}
	if cfg.Webhook.BufferSize <= 0 {
		return fmt.Errorf("webhook.buffer_size must be positive, got %d", cfg.Webhook.BufferSize)
	}
	if cfg.Broadcast.BufferSize <= 0 {
		return fmt.Errorf("broadcast.buffer_size must be positive, got %d", cfg.Broadcast.BufferSize)
	}
	return nil
}
