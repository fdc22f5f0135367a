package compare

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sportcar/internal/model"
)

// ScoreProvider assigns the 0-100 AI score of a vehicle for one comparison
// run. It is the seam for a real scoring model.
type ScoreProvider interface {
	Score(ctx context.Context, v model.Vehicle) (int, error)
}

// ScoreFunc adapts a function to ScoreProvider.
type ScoreFunc func(ctx context.Context, v model.Vehicle) (int, error)

func (f ScoreFunc) Score(ctx context.Context, v model.Vehicle) (int, error) { return f(ctx, v) }

const (
	randomMin = 80
	randomMax = 99
)

// RandomScorer draws a uniform score in [80, 99] per vehicle per run.
// It stands in for a real model.
type RandomScorer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomScorer seeds from the runtime's random source.
func NewRandomScorer() *RandomScorer {
	return &RandomScorer{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededRandomScorer returns a reproducible RandomScorer.
func NewSeededRandomScorer(seed1, seed2 uint64) *RandomScorer {
	return &RandomScorer{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

func (r *RandomScorer) Score(_ context.Context, _ model.Vehicle) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return randomMin + r.rng.IntN(randomMax-randomMin+1), nil
}

// FixedScorer returns preassigned scores by vehicle id.
type FixedScorer map[string]int

func (f FixedScorer) Score(_ context.Context, v model.Vehicle) (int, error) {
	s, ok := f[v.ID]
	if !ok {
		return 0, eris.Errorf("compare: no fixed score for %s", v.ID)
	}
	return s, nil
}
