package bdshift

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosip/domain/core"
	"gosip/domain/sip"
)

func newTable(t *testing.T, ids []core.SampleID, isControl []bool, density []float64) *sip.SampleTable {
	t.Helper()
	table, err := sip.NewSampleTable(ids, isControl)
	require.NoError(t, err)
	require.NoError(t, table.AddNumeric("Buoyant_density", density))
	fraction := make([]float64, len(ids))
	for i := range fraction {
		fraction[i] = float64(i + 1)
	}
	require.NoError(t, table.AddNumeric("Fraction", fraction))
	return table
}

func TestRawWindows_NextFractionBound(t *testing.T) {
	table := newTable(t,
		[]core.SampleID{"c3", "c1", "c2"},
		[]bool{true, true, true},
		[]float64{1.74, 1.70, 1.72},
	)
	density, _ := table.Float("Buoyant_density")
	fraction, _ := table.Float("Fraction")

	records := rawWindows(table, density, fraction)
	require.Len(t, records, 3)

	assert.Equal(t, []core.SampleID{"c1", "c2", "c3"}, []core.SampleID{records[0].SampleID, records[1].SampleID, records[2].SampleID})
	assert.Equal(t, 1.72, records[0].BDMax)
	assert.Equal(t, 1.74, records[1].BDMax)
	assert.Equal(t, 1.74, records[2].BDMax, "last fraction is degenerate before correction")
	assert.Equal(t, 0.0, records[2].BDRange)
}

func TestBuildWindows_MedianCorrection(t *testing.T) {
	table := newTable(t,
		[]core.SampleID{"c1", "c2", "c3"},
		[]bool{true, true, true},
		[]float64{1.70, 1.72, 1.74},
	)

	records, err := BuildWindows(table, DefaultColumns())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.InDelta(t, 0.02, records[2].BDRange, 1e-12)
	assert.InDelta(t, 1.76, records[2].BDMax, 1e-12)
	for _, r := range records {
		assert.Greater(t, r.BDRange, 0.0)
		assert.GreaterOrEqual(t, r.BDMax, r.BDMin)
	}
}

func TestBuildWindows_ClassesAreIndependent(t *testing.T) {
	table := newTable(t,
		[]core.SampleID{"c1", "t1", "c2", "t2", "t3"},
		[]bool{true, false, true, false, false},
		[]float64{1.70, 1.705, 1.71, 1.725, 1.745},
	)

	records, err := BuildWindows(table, DefaultColumns())
	require.NoError(t, err)
	require.Len(t, records, 5)

	byID := make(map[core.SampleID]sip.FractionRecord)
	for _, r := range records {
		byID[r.SampleID] = r
	}

	assert.Equal(t, 1.71, byID["c1"].BDMax, "control window ends at the next control fraction")
	assert.Equal(t, 1.725, byID["t1"].BDMax, "treatment window ends at the next treatment fraction")
	assert.Equal(t, 1.745, byID["t2"].BDMax)

	// positive ranges: 0.01, 0.02, 0.02 -> median 0.02
	assert.InDelta(t, 0.02, byID["c2"].BDRange, 1e-12)
	assert.InDelta(t, 0.02, byID["t3"].BDRange, 1e-12)
}

func TestBuildWindows_SingleFractionsStayDegenerate(t *testing.T) {
	table := newTable(t,
		[]core.SampleID{"c1", "t1"},
		[]bool{true, false},
		[]float64{1.70, 1.71},
	)

	records, err := BuildWindows(table, DefaultColumns())
	require.NoError(t, err)
	for _, r := range records {
		assert.Equal(t, 0.0, r.BDRange)
	}
}

func TestBuildWindows_MissingColumn(t *testing.T) {
	table, err := sip.NewSampleTable([]core.SampleID{"a"}, []bool{true})
	require.NoError(t, err)
	require.NoError(t, table.AddNumeric("Buoyant_density", []float64{1.7}))

	_, err = BuildWindows(table, DefaultColumns())
	assert.True(t, errors.Is(err, core.ErrMissingColumn))
	assert.Contains(t, err.Error(), "Fraction")

	_, err = BuildWindows(table, Columns{Density: "BD", Fraction: "Fraction"})
	assert.True(t, errors.Is(err, core.ErrMissingColumn))
	assert.Contains(t, err.Error(), "BD")
}
