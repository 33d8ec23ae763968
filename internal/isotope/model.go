// Package isotope implements the DNA buoyant density model used by qSIP
// (Hungate et al. 2015). The constants are published calibration values and
// are applied as-is.
package isotope

import (
	"gosip/domain/core"
	"gosip/domain/sip"
)

const (
	// GC content from unlabeled buoyant density
	gcIntercept = 1.646057
	gcSlope     = 0.083506

	// DNA molecular weight from GC content
	mwSlope     = 0.496
	mwIntercept = 307.691

	// Maximum heavy molecular weight shift
	carbonGCSlope     = -0.4987282
	carbonIntercept   = 9.974564
	oxygenMaxIncrease = 12.07747

	// Natural abundance of the heavy isotope
	carbonNaturalAbundance = 0.01111233
	oxygenNaturalAbundance = 0.002000429
)

// Validate rejects isotope tags outside 13C and 18O
func Validate(isotope sip.Isotope) error {
	switch isotope {
	case sip.Carbon13, sip.Oxygen18:
		return nil
	}
	return core.NewUnsupportedIsotopeError(isotope.String())
}

// GC returns the fractional G+C content implied by an unlabeled buoyant density
func GC(wlight float64) float64 {
	return (wlight - gcIntercept) / gcSlope
}

// GCAll applies GC elementwise
func GCAll(wlight []float64) []float64 {
	out := make([]float64, len(wlight))
	for i, w := range wlight {
		out[i] = GC(w)
	}
	return out
}

// MolecularWeightLight returns the unlabeled DNA molecular weight for a G+C content
func MolecularWeightLight(gi float64) float64 {
	return mwSlope*gi + mwIntercept
}

// MolecularWeightLabeled derives the labeled molecular weight from the
// observed fractional density shift z/wlight
func MolecularWeightLabeled(z, wlight, mlight float64) float64 {
	return (z/wlight + 1) * mlight
}

// MaxHeavyMolecularWeight returns the molecular weight of fully labeled DNA.
// gi only matters for 13C.
func MaxHeavyMolecularWeight(mlight float64, isotope sip.Isotope, gi float64) (float64, error) {
	switch isotope {
	case sip.Carbon13:
		return carbonGCSlope*gi + carbonIntercept + mlight, nil
	case sip.Oxygen18:
		return oxygenMaxIncrease + mlight, nil
	}
	return 0, core.NewUnsupportedIsotopeError(isotope.String())
}

// AtomExcess returns the atom fraction excess of the heavy isotope
func AtomExcess(mlab, mlight, mheavymax float64, isotope sip.Isotope) (float64, error) {
	var x float64
	switch isotope {
	case sip.Carbon13:
		x = carbonNaturalAbundance
	case sip.Oxygen18:
		x = oxygenNaturalAbundance
	default:
		return 0, core.NewUnsupportedIsotopeError(isotope.String())
	}
	return (mlab - mlight) / (mheavymax - mlight) * (1 - x), nil
}
