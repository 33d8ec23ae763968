package bdshift

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosip/domain/core"
	"gosip/domain/sip"
)

func TestPercentOverlap(t *testing.T) {
	tests := []struct {
		name                       string
		xStart, xEnd, yStart, yEnd float64
		expected                   float64
	}{
		{"half covered", 0, 1, 0, 0.5, 50},
		{"fully covered", 0, 0.5, 0, 1, 100},
		{"identical", 1.70, 1.72, 1.70, 1.72, 100},
		{"disjoint", 0, 1, 2, 3, 0},
		{"touching", 0, 1, 1, 2, 0},
		{"zero width x", 1, 1, 0, 2, 0},
		{"y inside x", 0, 4, 1, 2, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PercentOverlap(tt.xStart, tt.xEnd, tt.yStart, tt.yEnd)
			assert.InDelta(t, tt.expected, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		})
	}
}

func TestOverlaps_DropsDisjointPairs(t *testing.T) {
	windows := []sip.FractionRecord{
		{SampleID: "c1", IsControl: true, BDMin: 1.70, BDMax: 1.72, BDRange: 0.02},
		{SampleID: "t1", BDMin: 1.71, BDMax: 1.73, BDRange: 0.02},
		{SampleID: "t2", BDMin: 1.74, BDMax: 1.76, BDRange: 0.02},
	}

	pairs, err := Overlaps(windows)
	require.NoError(t, err)
	require.Len(t, pairs, 1)

	assert.Equal(t, core.SampleID("c1"), pairs[0].ControlSampleID)
	assert.Equal(t, core.SampleID("t1"), pairs[0].TreatmentSampleID)
	assert.InDelta(t, 50, pairs[0].PercentOverlap, 1e-9)
}

func TestOverlaps_Failures(t *testing.T) {
	_, err := Overlaps([]sip.FractionRecord{
		{SampleID: "c1", IsControl: true, BDMin: 1.70, BDMax: 1.72},
	})
	assert.True(t, errors.Is(err, core.ErrEmptyPartition))

	_, err = Overlaps([]sip.FractionRecord{
		{SampleID: "t1", BDMin: 1.70, BDMax: 1.72},
	})
	assert.True(t, errors.Is(err, core.ErrEmptyPartition))

	_, err = Overlaps([]sip.FractionRecord{
		{SampleID: "c1", IsControl: true, BDMin: 1.60, BDMax: 1.62},
		{SampleID: "t1", BDMin: 1.70, BDMax: 1.72},
	})
	assert.True(t, errors.Is(err, core.ErrNoOverlap))
}
