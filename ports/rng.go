package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// Stream returns the generator for the index-th unit of work of a named
	// operation. The same (name, index, seed) always yields the same sequence,
	// whatever order the units are executed in.
	Stream(ctx context.Context, name string, index int, seed int64) (*rand.Rand, error)
}
