// Package qsip estimates per-taxon atom fraction excess from gradient
// fraction abundances (quantitative stable isotope probing, Hungate et al.
// 2015) and derives bootstrap confidence intervals for it.
package qsip

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"gosip/domain/core"
	"gosip/domain/sip"
	"gosip/internal/isotope"
)

// Columns names the sample metadata columns read in fresh mode
type Columns struct {
	Density   string `json:"density"`
	Replicate string `json:"replicate"`
}

// DefaultColumns returns the conventional column names
func DefaultColumns() Columns {
	return Columns{
		Density:   "Buoyant_density",
		Replicate: "Replicate",
	}
}

// Result pairs the per-replicate W-table with the per-taxon A-table derived from it
type Result struct {
	W []sip.TaxonWindowRecord `json:"w"`
	A []sip.AtomExcessRecord  `json:"a"`
}

// Estimator computes atom fraction excess for one isotope
type Estimator struct {
	isotope sip.Isotope
	columns Columns
}

// NewEstimator creates an estimator for the given isotope
func NewEstimator(iso sip.Isotope, cols Columns) (*Estimator, error) {
	if err := isotope.Validate(iso); err != nil {
		return nil, err
	}
	return &Estimator{isotope: iso, columns: cols}, nil
}

// Isotope returns the isotope the estimator was built for
func (e *Estimator) Isotope() sip.Isotope {
	return e.isotope
}

type windowKey struct {
	taxon     core.TaxonID
	isControl bool
	replicate string
}

// Estimate computes W for every (taxon, control flag, replicate) group of the
// abundance table and the A-table derived from it. Rows with a missing count
// or density, or whose sample has no metadata, do not contribute weight.
func (e *Estimator) Estimate(table *sip.AbundanceTable) (*Result, error) {
	if table == nil || table.Samples == nil {
		return nil, core.NewInvalidInputError("abundance", "sample metadata is required")
	}
	density, err := table.Samples.Float(e.columns.Density)
	if err != nil {
		return nil, err
	}
	replicate, err := table.Samples.Label(e.columns.Replicate)
	if err != nil {
		return nil, err
	}

	type weighted struct {
		x, w []float64
	}
	groups := make(map[windowKey]*weighted)
	var keys []windowKey

	for _, rec := range table.Records {
		row, ok := table.Samples.Lookup(rec.SampleID)
		if !ok {
			continue
		}
		bd := density[row]
		if math.IsNaN(bd) || math.IsNaN(rec.Count) {
			continue
		}
		key := windowKey{taxon: rec.TaxonID, isControl: table.Samples.IsControl[row], replicate: replicate[row]}
		g, ok := groups[key]
		if !ok {
			g = &weighted{}
			groups[key] = g
			keys = append(keys, key)
		}
		g.x = append(g.x, bd)
		g.w = append(g.w, rec.Count)
	}

	sortWindowKeys(keys)

	windows := make([]sip.TaxonWindowRecord, 0, len(keys))
	for _, key := range keys {
		g := groups[key]
		w := stat.Mean(g.x, g.w)
		if math.IsNaN(w) || math.IsInf(w, 0) {
			// all weights zero: the taxon was not observed in this gradient
			continue
		}
		windows = append(windows, sip.TaxonWindowRecord{
			TaxonID:   key.taxon,
			IsControl: key.isControl,
			Replicate: key.replicate,
			W:         w,
		})
	}

	atoms, err := e.FromWindows(windows)
	if err != nil {
		return nil, err
	}
	return &Result{W: windows, A: atoms}, nil
}

// sides holds the replicate-averaged W of both gradient types for one taxon
type sides struct {
	light *float64
	lab   *float64
}

// FromWindows averages W across replicates per taxon and side and applies the
// buoyant density model. A taxon lacking either side gets nil Z, Mlab and A.
func (e *Estimator) FromWindows(windows []sip.TaxonWindowRecord) ([]sip.AtomExcessRecord, error) {
	control := make(map[core.TaxonID][]float64)
	treatment := make(map[core.TaxonID][]float64)
	var taxa []core.TaxonID
	seen := make(map[core.TaxonID]bool)

	for _, w := range windows {
		if !seen[w.TaxonID] {
			seen[w.TaxonID] = true
			taxa = append(taxa, w.TaxonID)
		}
		if math.IsNaN(w.W) {
			continue
		}
		if w.IsControl {
			control[w.TaxonID] = append(control[w.TaxonID], w.W)
		} else {
			treatment[w.TaxonID] = append(treatment[w.TaxonID], w.W)
		}
	}
	sort.Slice(taxa, func(i, j int) bool { return taxa[i] < taxa[j] })

	pivot := make(map[core.TaxonID]sides, len(taxa))
	for _, taxon := range taxa {
		var s sides
		if vals := control[taxon]; len(vals) > 0 {
			s.light = sip.Value(replicateMean(vals))
		}
		if vals := treatment[taxon]; len(vals) > 0 {
			s.lab = sip.Value(replicateMean(vals))
		}
		pivot[taxon] = s
	}

	records := make([]sip.AtomExcessRecord, 0, len(taxa))
	for _, taxon := range taxa {
		rec, err := e.atomExcess(taxon, pivot[taxon])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (e *Estimator) atomExcess(taxon core.TaxonID, s sides) (sip.AtomExcessRecord, error) {
	rec := sip.AtomExcessRecord{TaxonID: taxon, Wlight: s.light, Wlab: s.lab}
	if s.light == nil {
		return rec, nil
	}

	wlight := *s.light
	gi := isotope.GC(wlight)
	mlight := isotope.MolecularWeightLight(gi)
	mheavymax, err := isotope.MaxHeavyMolecularWeight(mlight, e.isotope, gi)
	if err != nil {
		return rec, err
	}
	rec.Gi = sip.Value(gi)
	rec.Mlight = sip.Value(mlight)
	rec.Mheavymax = sip.Value(mheavymax)

	if s.lab == nil {
		return rec, nil
	}

	z := *s.lab - wlight
	mlab := isotope.MolecularWeightLabeled(z, wlight, mlight)
	a, err := isotope.AtomExcess(mlab, mlight, mheavymax, e.isotope)
	if err != nil {
		return rec, err
	}
	rec.Z = sip.Value(z)
	rec.Mlab = sip.Value(mlab)
	rec.A = sip.Value(a)
	return rec, nil
}

// replicateMean is the arithmetic mean computed around the first value, so a
// group of identical values averages to exactly that value
func replicateMean(values []float64) float64 {
	ref := values[0]
	var dev float64
	for _, v := range values[1:] {
		dev += v - ref
	}
	return ref + dev/float64(len(values))
}

func sortWindowKeys(keys []windowKey) {
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.taxon != b.taxon {
			return a.taxon < b.taxon
		}
		if a.isControl != b.isControl {
			return a.isControl
		}
		return a.replicate < b.replicate
	})
}
