package bdshift

import (
	"math"

	"gosip/domain/core"
	"gosip/domain/sip"
)

// PercentOverlap returns the share of window x covered by window y, in percent.
// Disjoint windows and zero-width x windows yield 0.
func PercentOverlap(xStart, xEnd, yStart, yEnd float64) float64 {
	length := math.Abs(xEnd - xStart)
	if length == 0 {
		return 0
	}
	overlap := math.Min(xEnd, yEnd) - math.Max(xStart, yStart)
	if overlap <= 0 {
		return 0
	}
	return overlap / length * 100
}

// Overlaps pairs every control window with every treatment window and keeps
// the pairs that share part of the treatment window
func Overlaps(windows []sip.FractionRecord) ([]sip.OverlapPair, error) {
	var control, treatment []sip.FractionRecord
	for _, w := range windows {
		if w.IsControl {
			control = append(control, w)
		} else {
			treatment = append(treatment, w)
		}
	}
	if len(control) == 0 {
		return nil, core.NewEmptyPartitionError("control")
	}
	if len(treatment) == 0 {
		return nil, core.NewEmptyPartitionError("treatment")
	}

	var pairs []sip.OverlapPair
	for _, x := range treatment {
		for _, y := range control {
			perc := PercentOverlap(x.BDMin, x.BDMax, y.BDMin, y.BDMax)
			if perc <= 0 {
				continue
			}
			pairs = append(pairs, sip.OverlapPair{
				ControlSampleID:   y.SampleID,
				TreatmentSampleID: x.SampleID,
				PercentOverlap:    perc,
			})
		}
	}

	if len(pairs) == 0 {
		return nil, core.ErrNoOverlap
	}
	return pairs, nil
}
