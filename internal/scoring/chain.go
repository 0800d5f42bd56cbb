package scoring

import (
	"context"
	"log/slog"
	"time"

	"github.com/fleetpulse/fleetpulse/internal/config"
	"github.com/fleetpulse/fleetpulse/internal/metrics"
	"github.com/fleetpulse/fleetpulse/internal/window"
)

// Chain tries providers in priority order until one returns a valid
// probability. The heuristic provider is always the last element, so a Chain
// never fails: a provider's transient error is recorded and the next provider
// is tried.
type Chain struct {
	providers []Provider
	timeout   time.Duration
	met       *metrics.Metrics
}

// NewChain builds the provider chain from configuration: the operator-selected
// primary first, the heuristic appended as the guaranteed terminal fallback.
func NewChain(cfg config.ScoringConfig, met *metrics.Metrics) *Chain {
	var providers []Provider
	switch cfg.Provider {
	case ProviderExternal:
		providers = append(providers, NewExternal(cfg.External))
	case ProviderCloud:
		providers = append(providers, NewCloud(cfg.Cloud))
	}
	providers = append(providers, Heuristic{})

	return &Chain{providers: providers, timeout: cfg.Timeout, met: met}
}

// newChainOf builds a chain from explicit providers; the caller is
// responsible for terminating it with an infallible one. Test seam.
func newChainOf(timeout time.Duration, met *metrics.Metrics, providers ...Provider) *Chain {
	return &Chain{providers: providers, timeout: timeout, met: met}
}

// Providers returns the provider names in priority order.
func (c *Chain) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Score walks the chain and returns the first valid probability together with
// the name of the provider that produced it. Each call is bounded by the
// configured per-call timeout; an expired call is abandoned and treated as a
// failure.
func (c *Chain) Score(ctx context.Context, f window.Features) (float64, string) {
	start := time.Now()
	defer func() {
		c.met.ScoreLatency.Observe(time.Since(start).Seconds())
	}()

	for i, p := range c.providers {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		prob, err := p.Score(callCtx, f)
		cancel()

		if err != nil {
			c.met.ProviderFailures.WithLabelValues(p.Name()).Inc()
			slog.Warn("scoring: provider failed, falling back",
				"provider", p.Name(),
				"device_id", f.DeviceID,
				"remaining", len(c.providers)-i-1,
				"err", err,
			)
			continue
		}

		c.met.ProviderScores.WithLabelValues(p.Name()).Inc()
		return prob, p.Name()
	}

	// Unreachable when the chain is built by NewChain: the heuristic
	// terminus never returns an error.
	slog.Error("scoring: chain exhausted without a result")
	return 0, ""
}
