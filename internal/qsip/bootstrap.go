package qsip

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"gosip/domain/core"
	"gosip/domain/sip"
	"gosip/internal/resample"
	"gosip/ports"
)

const bootstrapStream = "qsip_bootstrap"

// SampleSize is the number of W values drawn per side in each bootstrap replicate
type SampleSize struct {
	Control   int `json:"control"`
	Treatment int `json:"treatment"`
}

// BootstrapOptions controls the resampling procedure
type BootstrapOptions struct {
	SampleSize SampleSize `json:"sample_size"`
	Replicates int        `json:"replicates"`
	Alpha      float64    `json:"alpha"`
	Workers    int        `json:"workers"`
	Seed       int64      `json:"seed"`

	// RNG supplies one generator per replicate; nil uses resample.Streams
	RNG ports.RNGPort `json:"-"`
}

// DefaultBootstrapOptions returns the commonly used settings: 3 draws per side,
// 1000 replicates and a 90% interval
func DefaultBootstrapOptions() BootstrapOptions {
	return BootstrapOptions{
		SampleSize: SampleSize{Control: 3, Treatment: 3},
		Replicates: 1000,
		Alpha:      0.1,
		Workers:    runtime.GOMAXPROCS(0),
		Seed:       42,
	}
}

// Validate checks option ranges
func (o BootstrapOptions) Validate() error {
	if o.SampleSize.Control < 1 || o.SampleSize.Treatment < 1 {
		return core.NewInvalidInputError("sample_size", fmt.Sprintf("control=%d treatment=%d, both must be positive", o.SampleSize.Control, o.SampleSize.Treatment))
	}
	if o.Replicates < 1 {
		return core.NewInvalidInputError("replicates", "must be positive")
	}
	if o.Alpha <= 0 || o.Alpha >= 1 {
		return core.NewInvalidInputError("alpha", fmt.Sprintf("%v is outside (0, 1)", o.Alpha))
	}
	return nil
}

// observations holds one taxon's W values per side, in W-table order
type observations struct {
	taxon     core.TaxonID
	control   []float64
	treatment []float64
}

// Bootstrap resamples each taxon's W values with replacement, recomputes A for
// every replicate and attaches the alpha/2 and 1-alpha/2 quantiles of the
// replicate A values to the point estimates of res. Replicates are independent;
// the output depends only on the seed, not on Workers.
func (e *Estimator) Bootstrap(ctx context.Context, res *Result, opts BootstrapOptions) ([]sip.AtomExcessInterval, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if res == nil {
		return nil, core.NewInvalidInputError("result", "a fresh qSIP result is required")
	}
	rng := opts.RNG
	if rng == nil {
		rng = resample.Streams{}
	}

	taxa := groupObservations(res.W)
	replicates := make([][]float64, opts.Replicates)

	runOne := func(ctx context.Context, r int) error {
		stream, err := rng.Stream(ctx, bootstrapStream, r, opts.Seed)
		if err != nil {
			return err
		}
		atoms, err := e.FromWindows(drawWindows(stream, taxa, opts.SampleSize))
		if err != nil {
			return err
		}
		replicates[r] = collectA(taxa, atoms)
		return nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers == 1 {
		for r := 0; r < opts.Replicates; r++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := runOne(ctx, r); err != nil {
				return nil, err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for r := 0; r < opts.Replicates; r++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return runOne(gctx, r)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	return joinIntervals(res.A, taxa, replicates, opts.Alpha), nil
}

func groupObservations(windows []sip.TaxonWindowRecord) []observations {
	index := make(map[core.TaxonID]int)
	var taxa []observations
	for _, w := range windows {
		i, ok := index[w.TaxonID]
		if !ok {
			i = len(taxa)
			index[w.TaxonID] = i
			taxa = append(taxa, observations{taxon: w.TaxonID})
		}
		if math.IsNaN(w.W) {
			continue
		}
		if w.IsControl {
			taxa[i].control = append(taxa[i].control, w.W)
		} else {
			taxa[i].treatment = append(taxa[i].treatment, w.W)
		}
	}
	sort.SliceStable(taxa, func(a, b int) bool { return taxa[a].taxon < taxa[b].taxon })
	return taxa
}

// drawWindows builds one resampled W-table. Draws happen in taxon order,
// control side first, so a stream always produces the same table.
func drawWindows(stream *rand.Rand, taxa []observations, n SampleSize) []sip.TaxonWindowRecord {
	var windows []sip.TaxonWindowRecord
	emit := func(taxon core.TaxonID, isControl bool, values []float64) {
		for k, v := range values {
			windows = append(windows, sip.TaxonWindowRecord{
				TaxonID:   taxon,
				IsControl: isControl,
				Replicate: strconv.Itoa(k + 1),
				W:         v,
			})
		}
	}
	for _, t := range taxa {
		emit(t.taxon, true, resample.Draw(stream, t.control, n.Control))
		emit(t.taxon, false, resample.Draw(stream, t.treatment, n.Treatment))
	}
	return windows
}

// collectA lays out one replicate's A values in taxa order, NaN when undefined
func collectA(taxa []observations, atoms []sip.AtomExcessRecord) []float64 {
	byTaxon := make(map[core.TaxonID]float64, len(atoms))
	for _, a := range atoms {
		if a.A != nil {
			byTaxon[a.TaxonID] = *a.A
		}
	}
	out := make([]float64, len(taxa))
	for i, t := range taxa {
		v, ok := byTaxon[t.taxon]
		if !ok {
			v = math.NaN()
		}
		out[i] = v
	}
	return out
}

// joinIntervals reduces the replicate matrix to per-taxon quantile bounds and
// attaches them to the point estimates
func joinIntervals(point []sip.AtomExcessRecord, taxa []observations, replicates [][]float64, alpha float64) []sip.AtomExcessInterval {
	bounds := make(map[core.TaxonID][2]float64, len(taxa))
	values := make([]float64, len(replicates))
	for i, t := range taxa {
		for r, rep := range replicates {
			values[r] = rep[i]
		}
		low, high := resample.Interval(values, alpha)
		if math.IsNaN(low) || math.IsNaN(high) {
			continue
		}
		bounds[t.taxon] = [2]float64{low, high}
	}

	out := make([]sip.AtomExcessInterval, len(point))
	for i, p := range point {
		out[i] = sip.AtomExcessInterval{AtomExcessRecord: p}
		if b, ok := bounds[p.TaxonID]; ok {
			out[i].ACILow = sip.Value(b[0])
			out[i].ACIHigh = sip.Value(b[1])
		}
	}
	return out
}
