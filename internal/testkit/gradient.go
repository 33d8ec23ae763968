package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"

	"gosip/domain/core"
	"gosip/domain/sip"
)

// Metadata column names written by the generator
const (
	DensityColumn   = "Buoyant_density"
	FractionColumn  = "Fraction"
	ReplicateColumn = "Replicate"
	TreatmentColumn = "Treatment"

	ControlLabel   = "12C-Con"
	TreatmentLabel = "13C-Lab"
)

// GradientConfig configures the synthetic density gradient generator
type GradientConfig struct {
	Replicates  int       `json:"replicates"`   // gradients per side
	Fractions   int       `json:"fractions"`    // fractions per gradient
	Taxa        int       `json:"taxa"`         // taxa in the community
	DensityMin  float64   `json:"density_min"`  // density of the lightest fraction
	DensityStep float64   `json:"density_step"` // spacing between fractions
	Jitter      float64   `json:"jitter"`       // max uniform offset added to each fraction density
	PeakWidth   float64   `json:"peak_width"`   // standard deviation of a taxon's density profile
	Shifts      []float64 `json:"shifts"`       // labeled density shift per taxon; missing entries are 0
	Depth       float64   `json:"depth"`        // expected reads at a taxon's peak
	Noise       float64   `json:"noise"`        // relative gaussian count noise
	Seed        int64     `json:"seed"`
}

// DefaultGradientConfig returns a small three-replicate experiment where
// the first taxon is strongly labeled
func DefaultGradientConfig() GradientConfig {
	return GradientConfig{
		Replicates:  3,
		Fractions:   12,
		Taxa:        4,
		DensityMin:  1.680,
		DensityStep: 0.004,
		Jitter:      0.001,
		PeakWidth:   0.008,
		Shifts:      []float64{0.020, 0.005},
		Depth:       1000,
		Noise:       0.05,
		Seed:        42,
	}
}

// Gradient is a generated experiment
type Gradient struct {
	Metadata  *sip.SampleTable
	Abundance *sip.AbundanceTable
	Taxa      []core.TaxonID
	Peaks     []float64 // unlabeled peak density per taxon
}

// GradientGenerator generates density gradient fractions with taxon counts
type GradientGenerator struct {
	config GradientConfig
	rng    *rand.Rand
}

// NewGradientGenerator creates a new gradient generator
func NewGradientGenerator(config GradientConfig) *GradientGenerator {
	return &GradientGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate builds the metadata table and the long-form abundance table.
// Control samples precede treatment samples; within a side samples are
// ordered by replicate then fraction.
func (g *GradientGenerator) Generate() (*Gradient, error) {
	c := g.config
	if c.Replicates < 1 || c.Fractions < 2 || c.Taxa < 1 {
		return nil, core.NewInvalidInputError("gradient", "need at least one replicate, two fractions and one taxon")
	}
	if c.DensityStep <= 0 || c.PeakWidth <= 0 {
		return nil, core.NewInvalidInputError("gradient", "density step and peak width must be positive")
	}

	n := 2 * c.Replicates * c.Fractions
	ids := make([]core.SampleID, 0, n)
	isControl := make([]bool, 0, n)
	density := make([]float64, 0, n)
	fraction := make([]float64, 0, n)
	replicate := make([]string, 0, n)
	treatment := make([]string, 0, n)

	for _, control := range []bool{true, false} {
		side, label := "lab", TreatmentLabel
		if control {
			side, label = "con", ControlLabel
		}
		for r := 1; r <= c.Replicates; r++ {
			for f := 1; f <= c.Fractions; f++ {
				ids = append(ids, core.SampleID(fmt.Sprintf("%s_r%d_f%02d", side, r, f)))
				isControl = append(isControl, control)
				bd := c.DensityMin + float64(f-1)*c.DensityStep
				if c.Jitter > 0 {
					bd += (g.rng.Float64()*2 - 1) * c.Jitter
				}
				density = append(density, bd)
				fraction = append(fraction, float64(f))
				replicate = append(replicate, strconv.Itoa(r))
				treatment = append(treatment, label)
			}
		}
	}

	table, err := sip.NewSampleTable(ids, isControl)
	if err != nil {
		return nil, err
	}
	if err := table.AddNumeric(DensityColumn, density); err != nil {
		return nil, err
	}
	if err := table.AddNumeric(FractionColumn, fraction); err != nil {
		return nil, err
	}
	if err := table.AddLabel(ReplicateColumn, replicate); err != nil {
		return nil, err
	}
	if err := table.AddLabel(TreatmentColumn, treatment); err != nil {
		return nil, err
	}

	span := float64(c.Fractions-1) * c.DensityStep
	taxa := make([]core.TaxonID, c.Taxa)
	peaks := make([]float64, c.Taxa)
	for i := range taxa {
		taxa[i] = core.TaxonID(fmt.Sprintf("otu%03d", i+1))
		// spread unlabeled peaks over the lighter half of the gradient
		peaks[i] = c.DensityMin + span*(0.25+0.25*float64(i)/float64(c.Taxa))
	}

	records := make([]sip.AbundanceRecord, 0, c.Taxa*n)
	for i, taxon := range taxa {
		for s, id := range ids {
			peak := peaks[i]
			if !isControl[s] {
				peak += g.shift(i)
			}
			records = append(records, sip.AbundanceRecord{
				TaxonID:  taxon,
				SampleID: id,
				Count:    g.count(density[s], peak),
			})
		}
	}

	return &Gradient{
		Metadata:  table,
		Abundance: &sip.AbundanceTable{Records: records, Samples: table},
		Taxa:      taxa,
		Peaks:     peaks,
	}, nil
}

func (g *GradientGenerator) shift(taxon int) float64 {
	if taxon < len(g.config.Shifts) {
		return g.config.Shifts[taxon]
	}
	return 0
}

// count draws reads from a gaussian density profile
func (g *GradientGenerator) count(bd, peak float64) float64 {
	z := (bd - peak) / g.config.PeakWidth
	expected := g.config.Depth * math.Exp(-0.5*z*z)
	if g.config.Noise > 0 {
		expected *= 1 + g.config.Noise*g.rng.NormFloat64()
	}
	return math.Max(0, math.Round(expected))
}
