package analysis

import (
	"math"
	"time"
)

// DecayWeight computes exp(-deltaDays/tau). Negative gaps count as zero.
func DecayWeight(deltaDays float64, tau float64) float64 {
	if tau <= 0 {
		return 0
	}
	if deltaDays < 0 {
		deltaDays = 0
	}
	return math.Exp(-deltaDays / tau)
}

// BlendDualHorizon blends a recent aggregate with a long-run one; lambda is
// the weight of the recent side, clamped to [0, 1].
func BlendDualHorizon(recent, longRun, lambda float64) float64 {
	lambda = clip(lambda, 0, 1)
	return lambda*recent + (1-lambda)*longRun
}

// daysBetween is the gap from earlier to later in fractional days
func daysBetween(earlier, later time.Time) float64 {
	if earlier.IsZero() || later.IsZero() {
		return 0
	}
	return later.Sub(earlier).Hours() / 24
}

// weightedMean averages xs by ws. A zero total weight falls back to the plain mean.
func weightedMean(xs, ws []float64) float64 {
	var sum, total float64
	for i, x := range xs {
		sum += x * ws[i]
		total += ws[i]
	}
	if total <= 0 {
		return mean(xs)
	}
	return sum / total
}
