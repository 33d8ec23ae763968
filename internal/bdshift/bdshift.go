// Package bdshift measures how far each labeled gradient fraction's community
// has moved away from the unlabeled fractions covering the same buoyant
// density range ("BD_shift").
//
// The pipeline is: BuildWindows -> Overlaps -> Flatten(distances) ->
// WeightedShift, optionally followed by NullIntervals.
package bdshift

import (
	"context"
	"fmt"
	"math/rand"

	"gosip/domain/core"
	"gosip/domain/sip"
)

// Options controls a BD_shift run
type Options struct {
	Columns Columns `json:"columns"`
	NPerm   int     `json:"nperm"`
	Alpha   float64 `json:"alpha"`
	Seed    int64   `json:"seed"`
}

// DefaultOptions returns options with no permutation null
func DefaultOptions() Options {
	return Options{
		Columns: DefaultColumns(),
		NPerm:   0,
		Alpha:   0.05,
		Seed:    42,
	}
}

// Validate checks option ranges
func (o Options) Validate() error {
	if o.NPerm < 0 {
		return core.NewInvalidInputError("nperm", "must not be negative")
	}
	if o.NPerm > 0 && (o.Alpha <= 0 || o.Alpha >= 1) {
		return core.NewInvalidInputError("alpha", fmt.Sprintf("%v is outside (0, 1)", o.Alpha))
	}
	return nil
}

// Result carries every intermediate table of a run
type Result struct {
	Windows  []sip.FractionRecord      `json:"windows"`
	Overlaps []sip.OverlapPair         `json:"overlaps"`
	Shifts   []sip.WeightedShiftRecord `json:"shifts"`
}

// Run computes the BD_shift table for the samples of table using the
// externally computed distance matrix dist
func Run(ctx context.Context, table *sip.SampleTable, dist *sip.DistanceMatrix, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	windows, err := BuildWindows(table, opts.Columns)
	if err != nil {
		return nil, err
	}

	pairs, err := Overlaps(windows)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	distances := Flatten(dist)
	shifts := WeightedShift(distances, pairs, windows)

	if opts.NPerm > 0 {
		rng := rand.New(rand.NewSource(opts.Seed))
		intervals, err := NullIntervals(ctx, distances, pairs, opts.NPerm, opts.Alpha, rng)
		if err != nil {
			return nil, err
		}
		for i := range shifts {
			if ci, ok := intervals[shifts[i].TreatmentSampleID]; ok {
				shifts[i].NullCILow = sip.Value(ci[0])
				shifts[i].NullCIHigh = sip.Value(ci[1])
			}
		}
	}

	return &Result{
		Windows:  windows,
		Overlaps: pairs,
		Shifts:   shifts,
	}, nil
}
