package resample

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDraw(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	single := Draw(rng, []float64{1.71}, 5)
	assert.Equal(t, []float64{1.71, 1.71, 1.71, 1.71, 1.71}, single)

	assert.Nil(t, Draw(rng, nil, 3))
	assert.Nil(t, Draw(rng, []float64{1, 2}, 0))

	values := []float64{1, 2, 3}
	drawn := Draw(rng, values, 100)
	assert.Len(t, drawn, 100)
	for _, v := range drawn {
		assert.Contains(t, values, v)
	}
}

func TestDraw_Seeded(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	a := Draw(rand.New(rand.NewSource(7)), values, 20)
	b := Draw(rand.New(rand.NewSource(7)), values, 20)
	assert.Equal(t, a, b)
}

func TestQuantile(t *testing.T) {
	values := []float64{4, 1, 3, 2, 5}

	tests := []struct {
		p        float64
		expected float64
	}{
		{0, 1},
		{0.25, 2},
		{0.5, 3},
		{0.1, 1.4},
		{0.95, 4.8},
		{1, 5},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.expected, quantileSorted(withoutNaN(values), tt.p), 1e-12, "p=%v", tt.p)
	}

	assert.Equal(t, []float64{1, 2}, withoutNaN([]float64{2, math.NaN(), 1}))
	assert.Empty(t, withoutNaN([]float64{math.NaN()}))
}

func TestInterval(t *testing.T) {
	low, high := Interval([]float64{0.3, 0.3, 0.3}, 0.1)
	assert.Equal(t, 0.3, low)
	assert.Equal(t, 0.3, high)

	values := make([]float64, 101)
	for i := range values {
		values[i] = float64(i)
	}
	low, high = Interval(values, 0.1)
	assert.InDelta(t, 5, low, 1e-9)
	assert.InDelta(t, 95, high, 1e-9)

	low, high = Interval(nil, 0.05)
	assert.True(t, math.IsNaN(low))
	assert.True(t, math.IsNaN(high))

	low, high = Interval([]float64{math.NaN(), 2, math.NaN(), 4}, 0.2)
	assert.InDelta(t, 2.2, low, 1e-12)
	assert.InDelta(t, 3.8, high, 1e-12)
}

func TestStreams(t *testing.T) {
	ctx := context.Background()
	var streams Streams

	a, err := streams.Stream(ctx, "qsip_bootstrap", 3, 42)
	assert.NoError(t, err)
	b, err := streams.Stream(ctx, "qsip_bootstrap", 3, 42)
	assert.NoError(t, err)
	assert.Equal(t, a.Int63(), b.Int63())

	assert.NotEqual(t, StreamSeed("qsip_bootstrap", 3, 42), StreamSeed("qsip_bootstrap", 4, 42))
	assert.NotEqual(t, StreamSeed("qsip_bootstrap", 3, 42), StreamSeed("bdshift_null", 3, 42))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = streams.Stream(cancelled, "qsip_bootstrap", 0, 42)
	assert.ErrorIs(t, err, context.Canceled)
}
