package bdshift

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosip/domain/core"
	"gosip/domain/sip"
)

func gradientFixture(t *testing.T) (*sip.SampleTable, *sip.DistanceMatrix) {
	t.Helper()
	ids := []core.SampleID{"c1", "c2", "c3", "t1", "t2", "t3"}
	table := newTable(t, ids,
		[]bool{true, true, true, false, false, false},
		[]float64{1.70, 1.72, 1.74, 1.705, 1.725, 1.745},
	)

	// treatment fractions drift further from the controls as density increases
	values := [][]float64{
		{0, 0.1, 0.2, 0.15, 0.30, 0.50},
		{0.1, 0, 0.1, 0.20, 0.25, 0.55},
		{0.2, 0.1, 0, 0.30, 0.35, 0.60},
		{0.15, 0.20, 0.30, 0, 0.1, 0.2},
		{0.30, 0.25, 0.35, 0.1, 0, 0.1},
		{0.50, 0.55, 0.60, 0.2, 0.1, 0},
	}
	dist, err := sip.NewDistanceMatrix(ids, values)
	require.NoError(t, err)
	return table, dist
}

func TestRun(t *testing.T) {
	table, dist := gradientFixture(t)

	result, err := Run(context.Background(), table, dist, DefaultOptions())
	require.NoError(t, err)

	assert.Len(t, result.Windows, 6)
	assert.NotEmpty(t, result.Overlaps)
	require.Len(t, result.Shifts, 3)

	// t1 = [1.705, 1.725): 75% in c1 [1.70,1.72), 25% in c2 [1.72,1.74)
	t1 := result.Shifts[0]
	assert.Equal(t, core.SampleID("t1"), t1.TreatmentSampleID)
	assert.Equal(t, 2, t1.NOverlappingFractions)
	assert.InDelta(t, 0.15*0.75+0.20*0.25, t1.WeightedMeanDistance, 1e-9)
	assert.Nil(t, t1.NullCILow)

	assert.Less(t, result.Shifts[0].WeightedMeanDistance, result.Shifts[2].WeightedMeanDistance)
}

func TestRun_WithPermutationNull(t *testing.T) {
	table, dist := gradientFixture(t)
	opts := DefaultOptions()
	opts.NPerm = 100

	result, err := Run(context.Background(), table, dist, opts)
	require.NoError(t, err)
	for _, s := range result.Shifts {
		require.NotNil(t, s.NullCILow)
		require.NotNil(t, s.NullCIHigh)
		assert.LessOrEqual(t, *s.NullCILow, *s.NullCIHigh)
	}

	again, err := Run(context.Background(), table, dist, opts)
	require.NoError(t, err)
	assert.Equal(t, result, again)
}

func TestRun_Errors(t *testing.T) {
	table, dist := gradientFixture(t)

	_, err := Run(context.Background(), table, dist, Options{Columns: Columns{Density: "BD", Fraction: "Fraction"}})
	assert.True(t, errors.Is(err, core.ErrMissingColumn))

	_, err = Run(context.Background(), table, dist, Options{Columns: DefaultColumns(), NPerm: 10, Alpha: 1.5})
	assert.True(t, errors.Is(err, core.ErrInvalidInput))

	controlsOnly, err := table.WithControl([]bool{true, true, true, true, true, true})
	require.NoError(t, err)
	_, err = Run(context.Background(), controlsOnly, dist, DefaultOptions())
	assert.True(t, errors.Is(err, core.ErrEmptyPartition))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, table, dist, DefaultOptions())
	assert.True(t, errors.Is(err, context.Canceled))
}

// cancelAfter reports cancellation once Err has been polled checks times
type cancelAfter struct {
	context.Context
	checks int
	polled int
}

func (c *cancelAfter) Err() error {
	c.polled++
	if c.polled > c.checks {
		return context.Canceled
	}
	return nil
}

func TestRun_CancelledDuringPermutations(t *testing.T) {
	table, dist := gradientFixture(t)
	ctx := &cancelAfter{Context: context.Background(), checks: 10}

	opts := DefaultOptions()
	opts.NPerm = 100_000
	result, err := Run(ctx, table, dist, opts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
	assert.Equal(t, 11, ctx.polled, "loop stops at the first cancelled check")
}
