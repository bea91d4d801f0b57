package enrich

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/vnykmshr/ideaflow/pkg/idea"
)

// RandomScorer returns a uniformly random rating. It stands in for a real
// judge when the pipeline runs offline.
type RandomScorer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomScorer creates a RandomScorer. A zero seed draws a random one.
func NewRandomScorer(seed uint64) *RandomScorer {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &RandomScorer{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Score implements Scorer.
func (s *RandomScorer) Score(ctx context.Context, _ *idea.Item) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return MinRating + s.rng.IntN(MaxRating-MinRating+1), nil
}

// VariantGenerator produces "<seed>-<n>" where n counts the variants already
// generated from the same seed.
type VariantGenerator struct {
	mu   sync.Mutex
	seen map[string]int
}

// NewVariantGenerator creates an empty VariantGenerator.
func NewVariantGenerator() *VariantGenerator {
	return &VariantGenerator{seen: make(map[string]int)}
}

// Generate implements Generator.
func (g *VariantGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.Item == nil {
		return "", fmt.Errorf("variant: nil item")
	}

	g.mu.Lock()
	n := g.seen[req.Item.Seed]
	g.seen[req.Item.Seed] = n + 1
	g.mu.Unlock()

	return fmt.Sprintf("%s-%d", req.Item.Seed, n), nil
}
