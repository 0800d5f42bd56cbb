package scoring

import (
	"context"
	"math"

	"github.com/fleetpulse/fleetpulse/internal/window"
)

// Channel weights of the heuristic risk formula. They sum to 1.0.
const (
	weightVibration = 0.30
	weightTemp      = 0.25
	weightLoad      = 0.15
	weightRPMDev    = 0.10
	weightCurrent   = 0.10
	weightVibStd    = 0.05
	weightTempStd   = 0.05
)

// Nominal operating ranges used to normalize each channel into [0, 1].
const (
	tempBaseC    = 30.0  // °C where temperature risk starts
	tempSpanC    = 70.0  // full risk at tempBase+tempSpan
	vibFullMMS   = 10.0  // mm/s at full vibration risk
	currentBaseA = 5.0   // A where current risk starts
	currentSpanA = 20.0  // full risk at base+span
	rpmNominal   = 2000.0
	vibStdFull   = 5.0
	tempStdFull  = 10.0
)

// Logistic squash parameters: nominal inputs land well below the midpoint,
// multiple simultaneous anomalies saturate toward 1.
const (
	squashSteepness = 8.0
	squashMidpoint  = 0.45
)

// Heuristic is the pure, always-available terminal fallback. It combines
// normalized excess-over-baseline per channel into a weighted sum and squashes
// it through a logistic curve. No I/O, deterministic, cannot fail.
type Heuristic struct{}

func (Heuristic) Name() string { return ProviderHeuristic }

// Score computes the heuristic failure probability. The error is always nil;
// the orchestrator relies on this as the chain's guaranteed terminus.
func (Heuristic) Score(_ context.Context, f window.Features) (float64, error) {
	tempN := clamp01((f.Latest["temperature"] - tempBaseC) / tempSpanC)
	vibN := clamp01(f.Latest["vibration"] / vibFullMMS)
	curN := clamp01((f.Latest["current"] - currentBaseA) / currentSpanA)
	loadN := clamp01(f.Latest["load_pct"] / 100)

	// rpmN is 1 at nominal speed and falls off as the device drifts away;
	// the risk term is its complement.
	rpmN := clamp01((rpmNominal - math.Abs(f.Latest["rpm"]-rpmNominal)) / rpmNominal)

	vibStdN := clamp01(f.RollStd["vibration"] / vibStdFull)
	tempStdN := clamp01(f.RollStd["temperature"] / tempStdFull)

	raw := weightVibration*vibN +
		weightTemp*tempN +
		weightLoad*loadN +
		weightRPMDev*(1-rpmN) +
		weightCurrent*curN +
		weightVibStd*vibStdN +
		weightTempStd*tempStdN

	return logistic(raw), nil
}

// logistic maps the raw weighted score through a monotonic sigmoid.
func logistic(raw float64) float64 {
	return 1 / (1 + math.Exp(-squashSteepness*(raw-squashMidpoint)))
}

// clamp01 restricts v to the range [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
