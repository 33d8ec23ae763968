// Package distance computes beta-diversity matrices from taxon abundance
// tables. Supported methods are Bray-Curtis ("bray") and Jaccard
// ("jaccard"); Jaccard is binary unless the weighted flag is set, in which
// case the quantitative (Ruzicka) form is used.
package distance

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"gosip/domain/core"
	"gosip/domain/sip"
	"gosip/ports"
)

// Supported methods
const (
	MethodBray    = "bray"
	MethodJaccard = "jaccard"
)

type metric func(x, y []float64) float64

// Provider implements ports.DistanceProvider
type Provider struct{}

// NewProvider creates a distance provider
func NewProvider() *Provider {
	return &Provider{}
}

var _ ports.DistanceProvider = (*Provider)(nil)

// Methods lists the supported method names
func Methods() []string {
	return []string{MethodBray, MethodJaccard}
}

// Distance computes the pairwise matrix over the samples of the table's
// metadata, in metadata order. Samples without any record get an all-zero
// profile. Missing counts are treated as zero.
func (p *Provider) Distance(ctx context.Context, table *sip.AbundanceTable, method string, opts ports.DistanceOptions) (*sip.DistanceMatrix, error) {
	f, err := metricFor(method, opts)
	if err != nil {
		return nil, err
	}
	if table == nil || len(table.Records) == 0 {
		return nil, core.NewInvalidInputError("abundance", "table is empty")
	}

	ids, profiles := profiles(table)
	if opts.Normalized {
		for i := 0; i < len(ids); i++ {
			row := profiles.RawRowView(i)
			if total := floats.Sum(row); total > 0 {
				floats.Scale(1/total, row)
			}
		}
	}

	n := len(ids)
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		x := profiles.RawRowView(i)
		for j := i + 1; j < n; j++ {
			sym.SetSym(i, j, f(x, profiles.RawRowView(j)))
		}
	}
	return &sip.DistanceMatrix{SampleIDs: ids, Values: sym}, nil
}

func metricFor(method string, opts ports.DistanceOptions) (metric, error) {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case MethodBray, "bray-curtis", "braycurtis":
		return brayCurtis, nil
	case MethodJaccard:
		if opts.Weighted {
			return ruzicka, nil
		}
		return binaryJaccard, nil
	}
	return nil, core.NewInvalidInputError("method",
		fmt.Sprintf("unsupported distance method %q (expected one of %s)", method, strings.Join(Methods(), ", ")))
}

// profiles pivots the long table into a samples x taxa count matrix
func profiles(table *sip.AbundanceTable) ([]core.SampleID, *mat.Dense) {
	var ids []core.SampleID
	sampleIdx := make(map[core.SampleID]int)
	if table.Samples != nil {
		ids = append(ids, table.Samples.SampleIDs...)
		for i, id := range ids {
			sampleIdx[id] = i
		}
	} else {
		for _, r := range table.Records {
			if _, ok := sampleIdx[r.SampleID]; !ok {
				sampleIdx[r.SampleID] = len(ids)
				ids = append(ids, r.SampleID)
			}
		}
	}

	taxa := make([]core.TaxonID, 0)
	taxonIdx := make(map[core.TaxonID]int)
	for _, r := range table.Records {
		if _, ok := taxonIdx[r.TaxonID]; !ok {
			taxonIdx[r.TaxonID] = len(taxa)
			taxa = append(taxa, r.TaxonID)
		}
	}
	sort.Slice(taxa, func(i, j int) bool { return taxa[i] < taxa[j] })
	for i, t := range taxa {
		taxonIdx[t] = i
	}

	counts := mat.NewDense(len(ids), len(taxa), nil)
	for _, r := range table.Records {
		i, ok := sampleIdx[r.SampleID]
		if !ok || math.IsNaN(r.Count) {
			continue
		}
		j := taxonIdx[r.TaxonID]
		counts.Set(i, j, counts.At(i, j)+r.Count)
	}
	return ids, counts
}

// brayCurtis is sum|x-y| / sum(x+y); two empty profiles are identical
func brayCurtis(x, y []float64) float64 {
	var num, den float64
	for k := range x {
		num += math.Abs(x[k] - y[k])
		den += x[k] + y[k]
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// binaryJaccard is 1 - |shared| / |union| over present taxa
func binaryJaccard(x, y []float64) float64 {
	var shared, union float64
	for k := range x {
		a, b := x[k] > 0, y[k] > 0
		if a && b {
			shared++
		}
		if a || b {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return 1 - shared/union
}

// ruzicka is the quantitative Jaccard, 1 - sum min / sum max
func ruzicka(x, y []float64) float64 {
	var mins, maxs float64
	for k := range x {
		mins += math.Min(x[k], y[k])
		maxs += math.Max(x[k], y[k])
	}
	if maxs == 0 {
		return 0
	}
	return 1 - mins/maxs
}
