package sip

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"gosip/domain/core"
)

// DistanceMatrix is a symmetric pairwise distance matrix indexed by sample id
type DistanceMatrix struct {
	SampleIDs []core.SampleID
	Values    *mat.SymDense
}

// NewDistanceMatrix validates a square matrix and wraps it. Duplicate ids and
// asymmetric, negative or NaN entries are rejected.
func NewDistanceMatrix(ids []core.SampleID, values [][]float64) (*DistanceMatrix, error) {
	n := len(ids)
	if n == 0 {
		return nil, core.NewInvalidInputError("distance", "empty matrix")
	}
	if len(values) != n {
		return nil, core.NewInvalidInputError("distance", fmt.Sprintf("%d rows for %d samples", len(values), n))
	}

	seen := make(map[core.SampleID]struct{}, n)
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, core.NewInvalidInputError("distance", fmt.Sprintf("duplicate sample id %s", id))
		}
		seen[id] = struct{}{}
	}

	for i, row := range values {
		if len(row) != n {
			return nil, core.NewInvalidInputError("distance", fmt.Sprintf("row %s has %d columns, expected %d", ids[i], len(row), n))
		}
	}

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := values[i][j]
			if math.IsNaN(v) || v < 0 {
				return nil, core.NewInvalidInputError("distance", fmt.Sprintf("(%s, %s) = %v is not a non-negative number", ids[i], ids[j], v))
			}
			if math.Abs(values[j][i]-v) > 1e-12 {
				return nil, core.NewInvalidInputError("distance", fmt.Sprintf("matrix not symmetric at (%s, %s)", ids[i], ids[j]))
			}
			sym.SetSym(i, j, v)
		}
	}

	return &DistanceMatrix{SampleIDs: ids, Values: sym}, nil
}

// Len returns the number of samples covered by the matrix
func (d *DistanceMatrix) Len() int {
	return len(d.SampleIDs)
}

// At returns the distance between the i-th and j-th samples
func (d *DistanceMatrix) At(i, j int) float64 {
	return d.Values.At(i, j)
}
