package sip

import (
	"gosip/domain/core"
)

// Isotope identifies the heavy isotope used to label the treatment gradients
type Isotope string

const (
	Carbon13 Isotope = "13C"
	Oxygen18 Isotope = "18O"
)

// String returns the isotope tag
func (i Isotope) String() string { return string(i) }

// FractionRecord is one gradient fraction with the buoyant density window [BDMin, BDMax) it owns
type FractionRecord struct {
	SampleID  core.SampleID `json:"sample_id"`
	IsControl bool          `json:"is_control"`
	Fraction  float64       `json:"fraction"`
	BDMin     float64       `json:"bd_min"`
	BDMax     float64       `json:"bd_max"`
	BDRange   float64       `json:"bd_range"`
}

// OverlapPair links a control fraction to a treatment fraction whose windows overlap.
// PercentOverlap is relative to the treatment window length and lies in (0, 100].
type OverlapPair struct {
	ControlSampleID   core.SampleID `json:"control_sample_id"`
	TreatmentSampleID core.SampleID `json:"treatment_sample_id"`
	PercentOverlap    float64       `json:"percent_overlap"`
}

// DistanceRecord is one ordered (x, y) entry of a flattened distance matrix, x != y
type DistanceRecord struct {
	SampleX  core.SampleID `json:"sample_x"`
	SampleY  core.SampleID `json:"sample_y"`
	Distance float64       `json:"distance"`
}

// WeightedShiftRecord is the overlap-weighted mean distance of one treatment
// fraction to every control fraction sharing part of its density window
type WeightedShiftRecord struct {
	TreatmentSampleID     core.SampleID `json:"treatment_sample_id"`
	BDMin                 float64       `json:"bd_min"`
	WeightedMeanDistance  float64       `json:"wmean_dist"`
	NOverlappingFractions int           `json:"n_overlap_fractions"`
	NullCILow             *float64      `json:"null_ci_low,omitempty"`
	NullCIHigh            *float64      `json:"null_ci_high,omitempty"`
}

// TaxonWindowRecord is the abundance-weighted mean buoyant density (W) of a
// taxon within one control or treatment replicate gradient
type TaxonWindowRecord struct {
	TaxonID   core.TaxonID `json:"taxon_id"`
	IsControl bool         `json:"is_control"`
	Replicate string       `json:"replicate"`
	W         float64      `json:"w"`
}

// AtomExcessRecord holds the qSIP estimate for one taxon. A nil field means the
// value is undefined, usually because one side of the comparison had no data.
type AtomExcessRecord struct {
	TaxonID   core.TaxonID `json:"taxon_id"`
	Wlight    *float64     `json:"wlight"`
	Wlab      *float64     `json:"wlab"`
	Z         *float64     `json:"z"`
	Gi        *float64     `json:"gi"`
	Mlight    *float64     `json:"mlight"`
	Mheavymax *float64     `json:"mheavymax"`
	Mlab      *float64     `json:"mlab"`
	A         *float64     `json:"a"`
}

// AtomExcessInterval is a point estimate joined with its bootstrap confidence interval
type AtomExcessInterval struct {
	AtomExcessRecord
	ACILow  *float64 `json:"a_ci_low"`
	ACIHigh *float64 `json:"a_ci_high"`
}

// AbundanceRecord is one long-form (taxon, sample, count) cell. NaN marks a missing count.
type AbundanceRecord struct {
	TaxonID  core.TaxonID  `json:"taxon_id"`
	SampleID core.SampleID `json:"sample_id"`
	Count    float64       `json:"count"`
}

// AbundanceTable is a long-form count table with the sample metadata it refers to
type AbundanceTable struct {
	Records []AbundanceRecord
	Samples *SampleTable
}

// Value returns a pointer to v, for populating nullable result fields
func Value(v float64) *float64 {
	return &v
}

// Deref returns the value behind p, or fallback when p is nil
func Deref(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}
