package bdshift

import (
	"context"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"gosip/domain/core"
	"gosip/domain/sip"
	"gosip/internal/resample"
)

// NullIntervals builds a permutation null for each treatment sample's weighted
// mean distance. Each permutation shuffles the distance values across all joined
// pairs, keeping group membership and overlap weights fixed. Cancelling ctx
// stops the loop before the next permutation.
func NullIntervals(ctx context.Context, distances []sip.DistanceRecord, pairs []sip.OverlapPair, nperm int, alpha float64, rng *rand.Rand) (map[core.SampleID][2]float64, error) {
	joined := join(distances, pairs)
	if nperm <= 0 || len(joined) == 0 {
		return nil, nil
	}

	groups := groupByTreatment(joined)
	null := make([][]float64, len(groups))
	for i := range null {
		null[i] = make([]float64, nperm)
	}

	pool := make([]float64, len(joined))
	for i, j := range joined {
		pool[i] = j.distance
	}

	for p := 0; p < nperm; p++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rng.Shuffle(len(pool), func(a, b int) { pool[a], pool[b] = pool[b], pool[a] })
		offset := 0
		for gi, g := range groups {
			n := len(g.distances)
			null[gi][p] = stat.Mean(pool[offset:offset+n], g.weights)
			offset += n
		}
	}

	out := make(map[core.SampleID][2]float64, len(groups))
	for gi, g := range groups {
		low, high := resample.Interval(null[gi], alpha)
		if math.IsNaN(low) || math.IsNaN(high) {
			continue
		}
		out[g.treatment] = [2]float64{low, high}
	}
	return out, nil
}
