package analysis

import (
	"math"

	"github.com/montanaflynn/stats"
)

func clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// linearDecay gives full points at distance 0 and reaches zero at limit
func linearDecay(maxPoints, distance, limit float64) float64 {
	if distance <= 0 {
		return maxPoints
	}
	if limit <= 0 || distance >= limit {
		return 0
	}
	return maxPoints * (1 - distance/limit)
}

// toleranceDecay gives full points within tolerance and decays to zero at limit
func toleranceDecay(maxPoints, deviation, tolerance, limit float64) float64 {
	if deviation <= tolerance {
		return maxPoints
	}
	return linearDecay(maxPoints, deviation-tolerance, limit-tolerance)
}

func mean(xs []float64) float64 {
	m, err := stats.Mean(xs)
	if err != nil {
		return 0
	}
	return m
}

// describe folds xs into Stats; empty input yields zero means and nil extrema
func describe(xs []float64) Stats {
	if len(xs) == 0 {
		return Stats{}
	}
	med, _ := stats.Median(xs)
	lo, _ := stats.Min(xs)
	hi, _ := stats.Max(xs)
	return Stats{
		Mean:   round2(mean(xs)),
		Median: round2(med),
		Min:    &lo,
		Max:    &hi,
	}
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(100 * float64(part) / float64(total))
}
