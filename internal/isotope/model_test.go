package isotope

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosip/domain/core"
	"gosip/domain/sip"
)

func TestGC(t *testing.T) {
	assert.Equal(t, 0.0, GC(1.646057))
	assert.InDelta(t, (1.70-1.646057)/0.083506, GC(1.70), 0)

	all := GCAll([]float64{1.646057, 1.70, 1.73})
	require.Len(t, all, 3)
	for i, w := range []float64{1.646057, 1.70, 1.73} {
		assert.Equal(t, GC(w), all[i])
	}
	assert.Empty(t, GCAll(nil))
}

func TestMaxHeavyMolecularWeight(t *testing.T) {
	gi := GC(1.70)
	mlight := MolecularWeightLight(gi)

	c13, err := MaxHeavyMolecularWeight(mlight, sip.Carbon13, gi)
	require.NoError(t, err)
	assert.Equal(t, -0.4987282*gi+9.974564+mlight, c13)

	o18, err := MaxHeavyMolecularWeight(mlight, sip.Oxygen18, gi)
	require.NoError(t, err)
	assert.Equal(t, 12.07747+mlight, o18)

	o18other, err := MaxHeavyMolecularWeight(mlight, sip.Oxygen18, gi+10)
	require.NoError(t, err)
	assert.Equal(t, o18, o18other, "18O ignores GC content")

	_, err = MaxHeavyMolecularWeight(mlight, sip.Isotope("15N"), gi)
	assert.True(t, errors.Is(err, core.ErrUnsupportedIsotope))
}

func TestAtomExcess_NoShiftIsZero(t *testing.T) {
	for _, iso := range []sip.Isotope{sip.Carbon13, sip.Oxygen18} {
		t.Run(iso.String(), func(t *testing.T) {
			mlight := MolecularWeightLight(GC(1.71))
			for _, mheavymax := range []float64{mlight + 1, mlight + 12.07747, mlight - 3} {
				a, err := AtomExcess(mlight, mlight, mheavymax, iso)
				require.NoError(t, err)
				assert.Equal(t, 0.0, a)
			}
		})
	}
}

func TestAtomExcess_Values(t *testing.T) {
	tests := []struct {
		isotope  sip.Isotope
		expected float64
	}{
		{sip.Carbon13, 0.5 * (1 - 0.01111233)},
		{sip.Oxygen18, 0.5 * (1 - 0.002000429)},
	}

	for _, tt := range tests {
		a, err := AtomExcess(305, 300, 310, tt.isotope)
		require.NoError(t, err)
		assert.InDelta(t, tt.expected, a, 1e-15)
	}

	_, err := AtomExcess(305, 300, 310, sip.Isotope("13c"))
	assert.True(t, errors.Is(err, core.ErrUnsupportedIsotope))
}

func TestMolecularWeightLabeled(t *testing.T) {
	mlight := MolecularWeightLight(GC(1.70))
	assert.Equal(t, mlight, MolecularWeightLabeled(0, 1.70, mlight))
	assert.InDelta(t, mlight*(0.017/1.70+1), MolecularWeightLabeled(0.017, 1.70, mlight), 1e-12)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(sip.Carbon13))
	assert.NoError(t, Validate(sip.Oxygen18))
	assert.True(t, errors.Is(Validate(""), core.ErrUnsupportedIsotope))
}
