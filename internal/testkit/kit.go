package testkit

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"gosip/adapters/distance"
	"gosip/domain/sip"
	"gosip/ports"
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	rng       *RNGAdapter
	distances *distance.Provider
}

// NewTestKit creates a new test kit instance
func NewTestKit() *TestKit {
	return &TestKit{
		rng:       &RNGAdapter{},
		distances: distance.NewProvider(),
	}
}

// RNGAdapter returns an RNG adapter
func (t *TestKit) RNGAdapter() ports.RNGPort {
	return t.rng
}

// DistanceProvider returns a distance provider
func (t *TestKit) DistanceProvider() ports.DistanceProvider {
	return t.distances
}

// Gradient generates a synthetic experiment and its Bray-Curtis matrix
func (t *TestKit) Gradient(ctx context.Context, config GradientConfig) (*Gradient, *sip.DistanceMatrix, error) {
	g, err := NewGradientGenerator(config).Generate()
	if err != nil {
		return nil, nil, err
	}
	dist, err := t.distances.Distance(ctx, g.Abundance, distance.MethodBray, ports.DistanceOptions{Normalized: true})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute distances: %w", err)
	}
	return g, dist, nil
}

// RNGAdapter implements the RNGPort interface for testing. Every stream it
// hands out is recorded.
type RNGAdapter struct {
	mu    sync.Mutex
	calls []StreamCall
}

// StreamCall records one Stream request
type StreamCall struct {
	Name  string
	Index int
	Seed  int64
}

// Stream creates a deterministic RNG stream for one unit of work
func (r *RNGAdapter) Stream(ctx context.Context, name string, index int, baseSeed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.calls = append(r.calls, StreamCall{Name: name, Index: index, Seed: baseSeed})
	r.mu.Unlock()

	// Create deterministic seed by hashing name + index + baseSeed
	seed := baseSeed
	if name != "" {
		seed = int64(hashString(name)) + seed
	}
	seed = int64(hashString(fmt.Sprintf("%d", index))) + seed
	return rand.New(rand.NewSource(seed)), nil
}

// Calls returns the recorded Stream requests
func (r *RNGAdapter) Calls() []StreamCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StreamCall(nil), r.calls...)
}

// hashString creates a simple hash for deterministic seeding
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2 algorithm
	}
	return hash
}
