package window

import (
	"math"

	"github.com/fleetpulse/fleetpulse/internal/telemetry"
)

// rollSpan is the number of trailing readings the rolling statistics cover.
const rollSpan = 5

// Features is the feature vector scoring providers consume: the latest value
// plus short rolling mean and standard deviation per channel. The exact
// formulas are an internal contract between this package and the scorers,
// not a wire contract.
type Features struct {
	DeviceID string

	// Latest holds the newest value per channel.
	Latest map[string]float64

	// RollMean holds the mean of the last rollSpan values per channel.
	RollMean map[string]float64

	// RollStd holds the sample standard deviation of the last rollSpan
	// values per channel; 0 when fewer than two values exist.
	RollStd map[string]float64
}

// BuildFeatures derives the feature vector from a window of readings,
// oldest-first. It returns the zero value with ok=false on an empty window.
func BuildFeatures(readings []telemetry.Reading) (Features, bool) {
	if len(readings) == 0 {
		return Features{}, false
	}

	latest := readings[len(readings)-1]
	tail := readings
	if len(tail) > rollSpan {
		tail = tail[len(tail)-rollSpan:]
	}

	f := Features{
		DeviceID: latest.DeviceID,
		Latest:   make(map[string]float64, len(telemetry.Channels)),
		RollMean: make(map[string]float64, len(telemetry.Channels)),
		RollStd:  make(map[string]float64, len(telemetry.Channels)),
	}
	for _, ch := range telemetry.Channels {
		f.Latest[ch] = latest.Value(ch)
		f.RollMean[ch], f.RollStd[ch] = meanStd(tail, ch)
	}
	return f, true
}

// Flat returns the vector as a flat map in the layout the external scoring
// service expects: "<channel>", "<channel>_roll_mean", "<channel>_roll_std".
func (f Features) Flat() map[string]float64 {
	out := make(map[string]float64, len(telemetry.Channels)*3)
	for _, ch := range telemetry.Channels {
		out[ch] = f.Latest[ch]
		out[ch+"_roll_mean"] = f.RollMean[ch]
		out[ch+"_roll_std"] = f.RollStd[ch]
	}
	return out
}

// meanStd computes the mean and sample standard deviation of one channel
// over the given readings.
func meanStd(readings []telemetry.Reading, channel string) (mean, std float64) {
	n := float64(len(readings))
	for _, r := range readings {
		mean += r.Value(channel)
	}
	mean /= n

	if len(readings) < 2 {
		return mean, 0
	}
	var ss float64
	for _, r := range readings {
		d := r.Value(channel) - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / (n - 1))
}
