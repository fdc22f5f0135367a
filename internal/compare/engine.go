// Package compare builds enriched comparison records and ranks them.
package compare

import (
	"context"
	"slices"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sportcar/internal/model"
)

var (
	// ErrInvalidSize is returned when a comparison does not have 2 or 3 vehicles.
	ErrInvalidSize = eris.New("compare: comparison needs 2 or 3 vehicles")
	// ErrScoreOutOfRange is returned when a ScoreProvider leaves [0, 100].
	ErrScoreOutOfRange = eris.New("compare: score out of range")
)

const (
	minVehicles = 2
	maxVehicles = 3
)

// Engine runs comparisons.
type Engine struct {
	scorer ScoreProvider
	now    func() time.Time
}

// NewEngine returns an Engine scoring with scorer. A nil scorer uses
// a RandomScorer.
func NewEngine(scorer ScoreProvider) *Engine {
	if scorer == nil {
		scorer = NewRandomScorer()
	}
	return &Engine{scorer: scorer, now: time.Now}
}

// Compare enriches and scores vehicles and ranks them. Attribute derivation
// and ranking are deterministic; the scorer is the only source of variation.
func (e *Engine) Compare(ctx context.Context, vehicles []model.Vehicle) (*model.Result, error) {
	if n := len(vehicles); n < minVehicles || n > maxVehicles {
		return nil, eris.Wrapf(ErrInvalidSize, "got %d", n)
	}

	scored := make([]model.Scored, 0, len(vehicles))
	for _, v := range vehicles {
		s, err := e.scorer.Score(ctx, v)
		if err != nil {
			return nil, eris.Wrapf(err, "compare: score %s", v.ID)
		}
		if s < 0 || s > 100 {
			return nil, eris.Wrapf(ErrScoreOutOfRange, "%s scored %d", v.ID, s)
		}
		scored = append(scored, model.Scored{
			Vehicle:    v,
			Attributes: Derive(v),
			AIScore:    s,
		})
	}

	res := &model.Result{
		Vehicles:  scored,
		Ranking:   Rank(scored),
		Source:    model.SourceAnalysis,
		CreatedAt: e.now().UTC(),
	}

	if w, ok := res.Winner(); ok {
		zap.L().Debug("compare: ranked",
			zap.Int("vehicles", len(scored)),
			zap.String("winner", w.ID),
			zap.Int("score", w.AIScore),
		)
	}
	return res, nil
}

// Rank returns a copy of entries sorted by AIScore descending. Entries with
// equal scores keep their relative order.
func Rank(entries []model.Scored) []model.Scored {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b model.Scored) int {
		return b.AIScore - a.AIScore
	})
	return out
}

// Without returns a copy of res with the vehicle id removed from both the
// list and the ranking. Scores are not recomputed.
func Without(res *model.Result, id string) *model.Result {
	if res == nil {
		return nil
	}
	out := res.Clone()
	drop := func(s model.Scored) bool { return s.ID == id }
	out.Vehicles = slices.DeleteFunc(out.Vehicles, drop)
	out.Ranking = slices.DeleteFunc(out.Ranking, drop)
	return out
}
