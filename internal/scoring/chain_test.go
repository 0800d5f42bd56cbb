package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fleetpulse/fleetpulse/internal/config"
	"github.com/fleetpulse/fleetpulse/internal/metrics"
	"github.com/fleetpulse/fleetpulse/internal/window"
)

func newTestMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

type stubProvider struct {
	name string
	prob float64
	err  error
}

func (s stubProvider) Name() string { return s.name }

func (s stubProvider) Score(context.Context, window.Features) (float64, error) {
	return s.prob, s.err
}

func TestChain_PrimaryWins(t *testing.T) {
	c := newChainOf(time.Second, newTestMetrics(),
		stubProvider{name: "primary", prob: 0.77},
		Heuristic{},
	)

	p, provider := c.Score(context.Background(), nominalFeatures())
	if provider != "primary" {
		t.Fatalf("provider: got %q, want primary", provider)
	}
	if p != 0.77 {
		t.Errorf("probability: got %v, want 0.77", p)
	}
}

func TestChain_FallsBackToHeuristic(t *testing.T) {
	c := newChainOf(time.Second, newTestMetrics(),
		stubProvider{name: "primary", err: errors.New("boom")},
		stubProvider{name: "secondary", err: errors.New("also down")},
		Heuristic{},
	)

	p, provider := c.Score(context.Background(), nominalFeatures())
	if provider != ProviderHeuristic {
		t.Fatalf("provider: got %q, want %q", provider, ProviderHeuristic)
	}
	if p < 0 || p > 1 {
		t.Errorf("probability out of range: %v", p)
	}
}

func TestNewChain_HeuristicOnly(t *testing.T) {
	c := NewChain(config.ScoringConfig{Provider: ProviderHeuristic, Timeout: time.Second}, newTestMetrics())
	got := c.Providers()
	if len(got) != 1 || got[0] != ProviderHeuristic {
		t.Errorf("Providers: got %v, want [heuristic]", got)
	}
}

func TestNewChain_ExternalThenHeuristic(t *testing.T) {
	c := NewChain(config.ScoringConfig{
		Provider: ProviderExternal,
		Timeout:  time.Second,
		External: config.ExternalProviderConfig{URL: "http://scorer.internal/predict"},
	}, newTestMetrics())

	got := c.Providers()
	if len(got) != 2 || got[0] != ProviderExternal || got[1] != ProviderHeuristic {
		t.Errorf("Providers: got %v, want [external heuristic]", got)
	}
}

func TestChain_TimeoutAdvances(t *testing.T) {
	slow := funcProvider{name: "slow", fn: func(ctx context.Context, _ window.Features) (float64, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}}
	c := newChainOf(10*time.Millisecond, newTestMetrics(), slow, Heuristic{})

	_, provider := c.Score(context.Background(), nominalFeatures())
	if provider != ProviderHeuristic {
		t.Errorf("provider after timeout: got %q, want %q", provider, ProviderHeuristic)
	}
}

type funcProvider struct {
	name string
	fn   func(context.Context, window.Features) (float64, error)
}

func (f funcProvider) Name() string { return f.name }

func (f funcProvider) Score(ctx context.Context, w window.Features) (float64, error) {
	return f.fn(ctx, w)
}
