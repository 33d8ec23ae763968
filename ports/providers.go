package ports

import (
	"context"

	"gosip/domain/sip"
)

// SampleMetadataProvider returns per-sample metadata with the control/treatment
// classification already attached
type SampleMetadataProvider interface {
	SampleMetadata(ctx context.Context) (*sip.SampleTable, error)
}

// DistanceOptions are the method flags forwarded to a distance provider
type DistanceOptions struct {
	Weighted   bool `json:"weighted"`
	Normalized bool `json:"normalized"`
}

// DistanceProvider computes a symmetric pairwise beta-diversity matrix
type DistanceProvider interface {
	Distance(ctx context.Context, table *sip.AbundanceTable, method string, opts DistanceOptions) (*sip.DistanceMatrix, error)
}

// TaxonAbundanceProvider returns a long-form (taxon, sample, count) table with
// the sample metadata joined in
type TaxonAbundanceProvider interface {
	TaxonAbundance(ctx context.Context) (*sip.AbundanceTable, error)
}
