package bdshift

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"gosip/domain/core"
	"gosip/domain/sip"
)

// joinedPair is an overlap pair with the distance between its two samples
type joinedPair struct {
	treatment core.SampleID
	distance  float64
	weight    float64
}

type pairKey struct {
	x, y core.SampleID
}

// join matches distance records to overlap pairs on (x = control, y = treatment).
// Pairs without a distance are dropped.
func join(distances []sip.DistanceRecord, pairs []sip.OverlapPair) []joinedPair {
	lookup := make(map[pairKey]float64, len(distances))
	for _, d := range distances {
		lookup[pairKey{d.SampleX, d.SampleY}] = d.Distance
	}

	joined := make([]joinedPair, 0, len(pairs))
	for _, p := range pairs {
		d, ok := lookup[pairKey{p.ControlSampleID, p.TreatmentSampleID}]
		if !ok {
			continue
		}
		joined = append(joined, joinedPair{
			treatment: p.TreatmentSampleID,
			distance:  d,
			weight:    p.PercentOverlap,
		})
	}
	return joined
}

// shiftGroup collects the joined rows of one treatment sample
type shiftGroup struct {
	treatment core.SampleID
	distances []float64
	weights   []float64
}

// groupByTreatment groups joined rows by treatment sample in first-seen order
func groupByTreatment(joined []joinedPair) []*shiftGroup {
	index := make(map[core.SampleID]*shiftGroup)
	var groups []*shiftGroup
	for _, j := range joined {
		g, ok := index[j.treatment]
		if !ok {
			g = &shiftGroup{treatment: j.treatment}
			index[j.treatment] = g
			groups = append(groups, g)
		}
		g.distances = append(g.distances, j.distance)
		g.weights = append(g.weights, j.weight)
	}
	return groups
}

// WeightedShift computes, per treatment sample, the overlap-weighted mean
// distance to the control samples whose windows it overlaps. Records are
// ordered by the treatment window's BDMin.
func WeightedShift(distances []sip.DistanceRecord, pairs []sip.OverlapPair, windows []sip.FractionRecord) []sip.WeightedShiftRecord {
	bdMin := make(map[core.SampleID]float64, len(windows))
	for _, w := range windows {
		bdMin[w.SampleID] = w.BDMin
	}

	groups := groupByTreatment(join(distances, pairs))
	records := make([]sip.WeightedShiftRecord, 0, len(groups))
	for _, g := range groups {
		records = append(records, sip.WeightedShiftRecord{
			TreatmentSampleID:     g.treatment,
			BDMin:                 bdMin[g.treatment],
			WeightedMeanDistance:  stat.Mean(g.distances, g.weights),
			NOverlappingFractions: len(g.distances),
		})
	}

	sort.SliceStable(records, func(a, b int) bool {
		if records[a].BDMin != records[b].BDMin {
			return records[a].BDMin < records[b].BDMin
		}
		return records[a].TreatmentSampleID < records[b].TreatmentSampleID
	})
	return records
}
