// Package resample holds the with-replacement sampling and empirical quantile
// helpers shared by the bootstrap and permutation procedures.
package resample

import (
	"context"
	"math"
	"math/rand"
	"sort"
)

// Draw returns n values drawn with replacement from values. A single
// observation is repeated n times; an empty input yields nil.
func Draw(rng *rand.Rand, values []float64, n int) []float64 {
	if len(values) == 0 || n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if len(values) == 1 {
		for i := range out {
			out[i] = values[0]
		}
		return out
	}
	for i := range out {
		out[i] = values[rng.Intn(len(values))]
	}
	return out
}

// Interval returns the symmetric two-sided (alpha/2, 1-alpha/2) quantile bounds
func Interval(values []float64, alpha float64) (low, high float64) {
	sorted := withoutNaN(values)
	if len(sorted) == 0 {
		return math.NaN(), math.NaN()
	}
	return quantileSorted(sorted, alpha/2), quantileSorted(sorted, 1-alpha/2)
}

// withoutNaN returns the non-NaN values sorted ascending
func withoutNaN(values []float64) []float64 {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	sort.Float64s(sorted)
	return sorted
}

// quantileSorted returns the p-th empirical quantile of sorted, interpolating
// linearly between order statistics at position (n-1)p. sorted must be
// non-empty.
func quantileSorted(sorted []float64, p float64) float64 {
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[i]
	}
	frac := h - lo
	if frac == 0 || sorted[i] == sorted[i+1] {
		return sorted[i]
	}
	return sorted[i] + frac*(sorted[i+1]-sorted[i])
}

// Streams derives independent deterministic generators from a base seed
type Streams struct{}

// Stream returns the generator for unit index of the named operation
func (Streams) Stream(ctx context.Context, name string, index int, seed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rand.New(rand.NewSource(StreamSeed(name, index, seed))), nil
}

// StreamSeed mixes a base seed with an operation name and unit index
func StreamSeed(name string, index int, seed int64) int64 {
	s := seed
	if name != "" {
		s += int64(hashString(name))
	}
	// golden-ratio increment spreads consecutive indices across the seed space
	return s + int64(index)*0x4F1BBCDCBFA53E0B
}

// hashString creates a simple hash for deterministic seeding
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2
	}
	return hash
}
