package api

import (
	"fmt"
	"math"

	"gosip/domain/core"
	"gosip/domain/sip"
	"gosip/internal/bdshift"
	"gosip/internal/config"
	"gosip/internal/errors"
	"gosip/internal/qsip"
)

// SampleDTO is one row of sample metadata. Control classification is
// supplied by the caller.
type SampleDTO struct {
	SampleID  string             `json:"sample_id"`
	IsControl bool               `json:"is_control"`
	Values    map[string]float64 `json:"values"`
	Labels    map[string]string  `json:"labels,omitempty"`
}

// DistanceMatrixDTO is a square matrix with its sample ids
type DistanceMatrixDTO struct {
	SampleIDs []string    `json:"sample_ids"`
	Values    [][]float64 `json:"values"`
}

// AbundanceDTO is one (taxon, sample, count) cell; a null count is missing
type AbundanceDTO struct {
	TaxonID  string   `json:"taxon_id"`
	SampleID string   `json:"sample_id"`
	Count    *float64 `json:"count"`
}

// BDShiftOptionsDTO overrides the configured BD_shift defaults
type BDShiftOptionsDTO struct {
	DensityColumn  *string  `json:"density_column,omitempty"`
	FractionColumn *string  `json:"fraction_column,omitempty"`
	NPerm          *int     `json:"nperm,omitempty"`
	Alpha          *float64 `json:"alpha,omitempty"`
	Seed           *int64   `json:"seed,omitempty"`
}

// BDShiftRequestDTO is the body of POST /api/bdshift
type BDShiftRequestDTO struct {
	Samples   []SampleDTO       `json:"samples"`
	Distances DistanceMatrixDTO `json:"distances"`
	Options   BDShiftOptionsDTO `json:"options"`
}

// QSIPOptionsDTO overrides the configured qSIP defaults. Replicates of 0
// disables the bootstrap.
type QSIPOptionsDTO struct {
	DensityColumn   *string  `json:"density_column,omitempty"`
	ReplicateColumn *string  `json:"replicate_column,omitempty"`
	Replicates      *int     `json:"replicates,omitempty"`
	Alpha           *float64 `json:"alpha,omitempty"`
	SampleControl   *int     `json:"sample_control,omitempty"`
	SampleTreatment *int     `json:"sample_treatment,omitempty"`
	Workers         *int     `json:"workers,omitempty"`
	Seed            *int64   `json:"seed,omitempty"`
}

// QSIPRequestDTO is the body of POST /api/qsip
type QSIPRequestDTO struct {
	Isotope    string         `json:"isotope,omitempty"`
	Samples    []SampleDTO    `json:"samples"`
	Abundances []AbundanceDTO `json:"abundances"`
	Options    QSIPOptionsDTO `json:"options"`
}

// toSampleTable builds the metadata table. A value or label missing from
// some samples is NaN or empty for them.
func toSampleTable(samples []SampleDTO) (*sip.SampleTable, error) {
	if len(samples) == 0 {
		return nil, errors.InvalidInput("samples are required")
	}
	ids := make([]core.SampleID, len(samples))
	flags := make([]bool, len(samples))
	numeric := make(map[string][]float64)
	labels := make(map[string][]string)
	for i, s := range samples {
		ids[i] = core.SampleID(s.SampleID)
		flags[i] = s.IsControl
		for name := range s.Values {
			if _, ok := numeric[name]; !ok {
				numeric[name] = nanColumn(len(samples))
			}
		}
		for name := range s.Labels {
			if _, ok := labels[name]; !ok {
				labels[name] = make([]string, len(samples))
			}
		}
	}
	for i, s := range samples {
		for name, v := range s.Values {
			numeric[name][i] = v
		}
		for name, v := range s.Labels {
			labels[name][i] = v
		}
	}

	table, err := sip.NewSampleTable(ids, flags)
	if err != nil {
		return nil, err
	}
	for name, values := range numeric {
		if err := table.AddNumeric(name, values); err != nil {
			return nil, err
		}
	}
	for name, values := range labels {
		if err := table.AddLabel(name, values); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func nanColumn(n int) []float64 {
	col := make([]float64, n)
	for i := range col {
		col[i] = math.NaN()
	}
	return col
}

func toDistanceMatrix(d DistanceMatrixDTO) (*sip.DistanceMatrix, error) {
	ids := make([]core.SampleID, len(d.SampleIDs))
	for i, id := range d.SampleIDs {
		ids[i] = core.SampleID(id)
	}
	return sip.NewDistanceMatrix(ids, d.Values)
}

func toAbundanceTable(cells []AbundanceDTO, samples *sip.SampleTable) (*sip.AbundanceTable, error) {
	if len(cells) == 0 {
		return nil, errors.InvalidInput("abundances are required")
	}
	records := make([]sip.AbundanceRecord, len(cells))
	for i, c := range cells {
		count := math.NaN()
		if c.Count != nil {
			if *c.Count < 0 {
				return nil, core.NewInvalidInputError("abundances", fmt.Sprintf("negative count for %s in %s", c.TaxonID, c.SampleID))
			}
			count = *c.Count
		}
		records[i] = sip.AbundanceRecord{
			TaxonID:  core.TaxonID(c.TaxonID),
			SampleID: core.SampleID(c.SampleID),
			Count:    count,
		}
	}
	return &sip.AbundanceTable{Records: records, Samples: samples}, nil
}

// apply overlays the request options on the configured defaults and
// enforces the configured resampling limits
func (o BDShiftOptionsDTO) apply(defaults config.AnalysisConfig) (bdshift.Options, error) {
	opts := defaults.BDShiftOptions()
	if o.DensityColumn != nil {
		opts.Columns.Density = *o.DensityColumn
	}
	if o.FractionColumn != nil {
		opts.Columns.Fraction = *o.FractionColumn
	}
	if o.NPerm != nil {
		opts.NPerm = *o.NPerm
	}
	if o.Alpha != nil {
		opts.Alpha = *o.Alpha
	}
	if o.Seed != nil {
		opts.Seed = *o.Seed
	}
	if err := defaults.CheckBDShift(opts); err != nil {
		return bdshift.Options{}, err
	}
	return opts, nil
}

func (o QSIPOptionsDTO) apply(defaults config.AnalysisConfig) (qsip.Columns, qsip.BootstrapOptions, error) {
	cols := defaults.QSIPColumns()
	boot := defaults.BootstrapOptions()
	if o.DensityColumn != nil {
		cols.Density = *o.DensityColumn
	}
	if o.ReplicateColumn != nil {
		cols.Replicate = *o.ReplicateColumn
	}
	if o.Replicates != nil {
		boot.Replicates = *o.Replicates
	}
	if o.Alpha != nil {
		boot.Alpha = *o.Alpha
	}
	if o.SampleControl != nil {
		boot.SampleSize.Control = *o.SampleControl
	}
	if o.SampleTreatment != nil {
		boot.SampleSize.Treatment = *o.SampleTreatment
	}
	if o.Workers != nil {
		boot.Workers = *o.Workers
	}
	if o.Seed != nil {
		boot.Seed = *o.Seed
	}
	if err := defaults.CheckBootstrap(boot); err != nil {
		return qsip.Columns{}, qsip.BootstrapOptions{}, err
	}
	return cols, boot, nil
}
