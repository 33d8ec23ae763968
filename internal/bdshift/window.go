package bdshift

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"gosip/domain/core"
	"gosip/domain/sip"
)

// Columns names the metadata columns read by the window builder
type Columns struct {
	Density  string `json:"density"`
	Fraction string `json:"fraction"`
}

// DefaultColumns returns the conventional phyloseq-style column names
func DefaultColumns() Columns {
	return Columns{
		Density:  "Buoyant_density",
		Fraction: "Fraction",
	}
}

// BuildWindows assigns every fraction the density window running from its own
// buoyant density up to the next fraction of the same class. Fractions without
// a successor, and any other zero-width window, get the median width of the
// non-degenerate windows in the table.
func BuildWindows(table *sip.SampleTable, cols Columns) ([]sip.FractionRecord, error) {
	density, err := table.Float(cols.Density)
	if err != nil {
		return nil, err
	}
	fraction, err := table.Float(cols.Fraction)
	if err != nil {
		return nil, err
	}

	for i, id := range table.SampleIDs {
		if math.IsNaN(density[i]) {
			return nil, core.NewInvalidInputError(cols.Density, fmt.Sprintf("missing value for sample %s", id))
		}
	}

	records := rawWindows(table, density, fraction)
	correctDegenerate(records)
	return records, nil
}

// correctDegenerate widens non-positive windows to the median positive width.
// With no positive width to borrow, windows are left as they are.
func correctDegenerate(records []sip.FractionRecord) {
	var ranges []float64
	for _, r := range records {
		if r.BDRange > 0 {
			ranges = append(ranges, r.BDRange)
		}
	}
	if len(ranges) == 0 {
		return
	}
	median, err := stats.Median(ranges)
	if err != nil {
		return
	}

	for i := range records {
		if records[i].BDRange <= 0 {
			records[i].BDMax = records[i].BDMin + median
			records[i].BDRange = records[i].BDMax - records[i].BDMin
		}
	}
}

// rawWindows builds the uncorrected windows: controls first, then treatments,
// each ascending by density
func rawWindows(table *sip.SampleTable, density, fraction []float64) []sip.FractionRecord {
	var control, treatment []int
	for i := range table.SampleIDs {
		if table.IsControl[i] {
			control = append(control, i)
		} else {
			treatment = append(treatment, i)
		}
	}

	records := make([]sip.FractionRecord, 0, table.Len())
	for _, rows := range [][]int{control, treatment} {
		sort.SliceStable(rows, func(a, b int) bool {
			if density[rows[a]] != density[rows[b]] {
				return density[rows[a]] < density[rows[b]]
			}
			return table.SampleIDs[rows[a]] < table.SampleIDs[rows[b]]
		})

		for k, row := range rows {
			bdMin := density[row]
			bdMax := bdMin
			if k+1 < len(rows) {
				bdMax = density[rows[k+1]]
			}
			records = append(records, sip.FractionRecord{
				SampleID:  table.SampleIDs[row],
				IsControl: table.IsControl[row],
				Fraction:  fraction[row],
				BDMin:     bdMin,
				BDMax:     bdMax,
				BDRange:   bdMax - bdMin,
			})
		}
	}
	return records
}
