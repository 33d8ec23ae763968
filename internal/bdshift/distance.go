package bdshift

import (
	"gosip/domain/sip"
)

// Flatten converts a distance matrix into one record per ordered pair of
// distinct samples. Both (x, y) and (y, x) are kept.
func Flatten(m *sip.DistanceMatrix) []sip.DistanceRecord {
	n := m.Len()
	if n < 2 {
		return nil
	}
	records := make([]sip.DistanceRecord, 0, n*(n-1))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			records = append(records, sip.DistanceRecord{
				SampleX:  m.SampleIDs[i],
				SampleY:  m.SampleIDs[j],
				Distance: m.At(i, j),
			})
		}
	}
	return records
}
