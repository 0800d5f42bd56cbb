package scoring

import (
	"context"
	"fmt"

	"github.com/fleetpulse/fleetpulse/internal/window"
)

// Provider names.
const (
	ProviderHeuristic = "heuristic"
	ProviderExternal  = "external"
	ProviderCloud     = "cloud"
)

// Provider is one failure-risk scoring strategy. Score returns a probability
// in [0, 1] or an error; a returned error makes the orchestrator advance to
// the next provider in the chain.
type Provider interface {
	Name() string
	Score(ctx context.Context, f window.Features) (float64, error)
}

// checkProbability validates a provider's output. Values outside [0, 1] are
// a provider failure, never silently clamped.
func checkProbability(p float64) error {
	if p < 0 || p > 1 {
		return fmt.Errorf("probability %v out of range [0, 1]", p)
	}
	return nil
}
