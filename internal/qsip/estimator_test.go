package qsip

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosip/domain/core"
	"gosip/domain/sip"
	"gosip/internal/isotope"
)

type fraction struct {
	id        core.SampleID
	isControl bool
	replicate string
	density   float64
}

func abundanceTable(t *testing.T, fractions []fraction, records []sip.AbundanceRecord) *sip.AbundanceTable {
	t.Helper()
	ids := make([]core.SampleID, len(fractions))
	flags := make([]bool, len(fractions))
	reps := make([]string, len(fractions))
	bd := make([]float64, len(fractions))
	for i, f := range fractions {
		ids[i], flags[i], reps[i], bd[i] = f.id, f.isControl, f.replicate, f.density
	}
	samples, err := sip.NewSampleTable(ids, flags)
	require.NoError(t, err)
	require.NoError(t, samples.AddNumeric("Buoyant_density", bd))
	require.NoError(t, samples.AddLabel("Replicate", reps))
	return &sip.AbundanceTable{Records: records, Samples: samples}
}

func newEstimator(t *testing.T, iso sip.Isotope) *Estimator {
	t.Helper()
	e, err := NewEstimator(iso, DefaultColumns())
	require.NoError(t, err)
	return e
}

// two control and two treatment gradients of two fractions each
func twoReplicateFixture(t *testing.T) *sip.AbundanceTable {
	return abundanceTable(t,
		[]fraction{
			{"c1f1", true, "r1", 1.70}, {"c1f2", true, "r1", 1.72},
			{"c2f1", true, "r2", 1.70}, {"c2f2", true, "r2", 1.72},
			{"t1f1", false, "r3", 1.71}, {"t1f2", false, "r3", 1.73},
			{"t2f1", false, "r4", 1.71}, {"t2f2", false, "r4", 1.73},
		},
		[]sip.AbundanceRecord{
			{TaxonID: "otu1", SampleID: "c1f1", Count: 10}, {TaxonID: "otu1", SampleID: "c1f2", Count: 30},
			{TaxonID: "otu1", SampleID: "c2f1", Count: 30}, {TaxonID: "otu1", SampleID: "c2f2", Count: 10},
			{TaxonID: "otu1", SampleID: "t1f1", Count: 5}, {TaxonID: "otu1", SampleID: "t1f2", Count: 15},
			{TaxonID: "otu1", SampleID: "t2f1", Count: 15}, {TaxonID: "otu1", SampleID: "t2f2", Count: 5},
			{TaxonID: "otu2", SampleID: "c1f1", Count: 4}, {TaxonID: "otu2", SampleID: "c1f2", Count: 4},
			{TaxonID: "otu2", SampleID: "t1f1", Count: 0}, {TaxonID: "otu2", SampleID: "t1f2", Count: 0},
		},
	)
}

func TestEstimate_WeightedMeanDensity(t *testing.T) {
	e := newEstimator(t, sip.Carbon13)

	res, err := e.Estimate(twoReplicateFixture(t))
	require.NoError(t, err)

	expected := []sip.TaxonWindowRecord{
		{TaxonID: "otu1", IsControl: true, Replicate: "r1", W: (1.70*10 + 1.72*30) / 40},
		{TaxonID: "otu1", IsControl: true, Replicate: "r2", W: (1.70*30 + 1.72*10) / 40},
		{TaxonID: "otu1", IsControl: false, Replicate: "r3", W: (1.71*5 + 1.73*15) / 20},
		{TaxonID: "otu1", IsControl: false, Replicate: "r4", W: (1.71*15 + 1.73*5) / 20},
		{TaxonID: "otu2", IsControl: true, Replicate: "r1", W: (1.70*4 + 1.72*4) / 8},
	}
	require.Len(t, res.W, len(expected))
	for i := range expected {
		assert.Equal(t, expected[i].TaxonID, res.W[i].TaxonID)
		assert.Equal(t, expected[i].IsControl, res.W[i].IsControl)
		assert.Equal(t, expected[i].Replicate, res.W[i].Replicate)
		assert.InDelta(t, expected[i].W, res.W[i].W, 1e-12)
	}
}

func TestEstimate_AtomExcess(t *testing.T) {
	e := newEstimator(t, sip.Carbon13)

	res, err := e.Estimate(twoReplicateFixture(t))
	require.NoError(t, err)
	require.Len(t, res.A, 2)

	otu1 := res.A[0]
	require.NotNil(t, otu1.A)
	assert.InDelta(t, 1.71, *otu1.Wlight, 1e-12)
	assert.InDelta(t, 1.72, *otu1.Wlab, 1e-12)
	assert.InDelta(t, 0.01, *otu1.Z, 1e-12)

	gi := isotope.GC(*otu1.Wlight)
	mlight := 0.496*gi + 307.691
	mheavymax := -0.4987282*gi + 9.974564 + mlight
	mlab := (*otu1.Z / *otu1.Wlight + 1) * mlight
	a := (mlab - mlight) / (mheavymax - mlight) * (1 - 0.01111233)
	assert.InDelta(t, gi, *otu1.Gi, 1e-12)
	assert.InDelta(t, mlight, *otu1.Mlight, 1e-12)
	assert.InDelta(t, mheavymax, *otu1.Mheavymax, 1e-12)
	assert.InDelta(t, mlab, *otu1.Mlab, 1e-12)
	assert.InDelta(t, a, *otu1.A, 1e-12)
	assert.Greater(t, *otu1.A, 0.0)

	// otu2 has no treatment reads, so its treatment side is missing
	otu2 := res.A[1]
	assert.Equal(t, core.TaxonID("otu2"), otu2.TaxonID)
	assert.NotNil(t, otu2.Wlight)
	assert.NotNil(t, otu2.Gi)
	assert.Nil(t, otu2.Wlab)
	assert.Nil(t, otu2.Z)
	assert.Nil(t, otu2.A)
}

func TestFromWindows_NoShiftMeansNoExcess(t *testing.T) {
	for _, iso := range []sip.Isotope{sip.Carbon13, sip.Oxygen18} {
		e := newEstimator(t, iso)
		atoms, err := e.FromWindows([]sip.TaxonWindowRecord{
			{TaxonID: "otu1", IsControl: true, Replicate: "1", W: 1.70},
			{TaxonID: "otu1", IsControl: false, Replicate: "1", W: 1.70},
		})
		require.NoError(t, err)
		require.Len(t, atoms, 1)
		assert.Equal(t, 0.0, *atoms[0].Z)
		assert.Equal(t, 0.0, *atoms[0].A, "isotope %s", iso)
	}
}

func TestFromWindows_MissingControlSide(t *testing.T) {
	e := newEstimator(t, sip.Oxygen18)
	atoms, err := e.FromWindows([]sip.TaxonWindowRecord{
		{TaxonID: "otu9", IsControl: false, Replicate: "1", W: 1.73},
		{TaxonID: "otu1", IsControl: true, Replicate: "1", W: 1.70},
		{TaxonID: "otu1", IsControl: false, Replicate: "1", W: 1.71},
	})
	require.NoError(t, err)
	require.Len(t, atoms, 2)

	assert.Equal(t, core.TaxonID("otu1"), atoms[0].TaxonID)
	assert.NotNil(t, atoms[0].A)

	assert.Equal(t, core.TaxonID("otu9"), atoms[1].TaxonID)
	assert.NotNil(t, atoms[1].Wlab)
	assert.Nil(t, atoms[1].Wlight)
	assert.Nil(t, atoms[1].Gi)
	assert.Nil(t, atoms[1].A)
}

func TestEstimate_SkipsMissingCells(t *testing.T) {
	e := newEstimator(t, sip.Carbon13)
	table := abundanceTable(t,
		[]fraction{
			{"c1", true, "r1", 1.70}, {"c2", true, "r1", math.NaN()}, {"c3", true, "r1", 1.74},
			{"t1", false, "r2", 1.72},
		},
		[]sip.AbundanceRecord{
			{TaxonID: "otu1", SampleID: "c1", Count: 2},
			{TaxonID: "otu1", SampleID: "c2", Count: 100},
			{TaxonID: "otu1", SampleID: "c3", Count: math.NaN()},
			{TaxonID: "otu1", SampleID: "unknown", Count: 50},
			{TaxonID: "otu1", SampleID: "t1", Count: 1},
		},
	)

	res, err := e.Estimate(table)
	require.NoError(t, err)
	require.Len(t, res.W, 2)
	assert.Equal(t, 1.70, res.W[0].W)
	assert.Equal(t, 1.72, res.W[1].W)
}

func TestEstimate_Idempotent(t *testing.T) {
	e := newEstimator(t, sip.Carbon13)
	table := twoReplicateFixture(t)

	first, err := e.Estimate(table)
	require.NoError(t, err)
	second, err := e.Estimate(table)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEstimate_Errors(t *testing.T) {
	_, err := NewEstimator(sip.Isotope("15N"), DefaultColumns())
	assert.True(t, errors.Is(err, core.ErrUnsupportedIsotope))

	table := twoReplicateFixture(t)

	e, err := NewEstimator(sip.Carbon13, Columns{Density: "BD", Replicate: "Replicate"})
	require.NoError(t, err)
	_, err = e.Estimate(table)
	assert.True(t, errors.Is(err, core.ErrMissingColumn))

	e, err = NewEstimator(sip.Carbon13, Columns{Density: "Buoyant_density", Replicate: "Gradient"})
	require.NoError(t, err)
	_, err = e.Estimate(table)
	assert.True(t, errors.Is(err, core.ErrMissingColumn))

	_, err = e.Estimate(&sip.AbundanceTable{})
	assert.True(t, errors.Is(err, core.ErrInvalidInput))
}

func TestReplicateMean(t *testing.T) {
	assert.Equal(t, 1.7, replicateMean([]float64{1.7, 1.7, 1.7}))
	assert.InDelta(t, 2.0, replicateMean([]float64{1, 2, 3}), 1e-15)
	assert.Equal(t, 5.0, replicateMean([]float64{5}))
}
