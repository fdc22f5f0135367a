package compare

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sportcar/internal/model"
)

var (
	porsche = model.Vehicle{ID: "porsche-911-turbo-s", Brand: "Porsche", Model: "911", Version: "Turbo S", Name: "Porsche 911 Turbo S", Price: 245000, Power: 650}
	ferrari = model.Vehicle{ID: "ferrari-f8-tributo", Brand: "Ferrari", Model: "F8", Version: "Tributo", Name: "Ferrari F8 Tributo", Price: 280000, Power: 720}
	mclaren = model.Vehicle{ID: "mclaren-720s", Brand: "McLaren", Model: "720S", Version: "Standard", Name: "McLaren 720S", Price: 320000, Power: 720}
)

func rankedIDs(entries []model.Scored) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestCompare_RanksDescending(t *testing.T) {
	e := NewEngine(FixedScorer{porsche.ID: 85, ferrari.ID: 97, mclaren.ID: 90})

	res, err := e.Compare(context.Background(), []model.Vehicle{porsche, ferrari, mclaren})
	require.NoError(t, err)

	assert.Equal(t, []string{porsche.ID, ferrari.ID, mclaren.ID}, rankedIDs(res.Vehicles))
	assert.Equal(t, []string{ferrari.ID, mclaren.ID, porsche.ID}, rankedIDs(res.Ranking))
	assert.Equal(t, model.SourceAnalysis, res.Source)
	assert.False(t, res.CreatedAt.IsZero())

	w, ok := res.Winner()
	require.True(t, ok)
	assert.Equal(t, 97, w.AIScore)
}

func TestCompare_StableTies(t *testing.T) {
	e := NewEngine(FixedScorer{porsche.ID: 92, ferrari.ID: 92, mclaren.ID: 85})

	res, err := e.Compare(context.Background(), []model.Vehicle{porsche, ferrari, mclaren})
	require.NoError(t, err)
	assert.Equal(t, []string{porsche.ID, ferrari.ID, mclaren.ID}, rankedIDs(res.Ranking))

	res, err = e.Compare(context.Background(), []model.Vehicle{ferrari, porsche, mclaren})
	require.NoError(t, err)
	assert.Equal(t, []string{ferrari.ID, porsche.ID, mclaren.ID}, rankedIDs(res.Ranking))
}

func TestCompare_AttributesDeterministicAcrossPermutations(t *testing.T) {
	e := NewEngine(NewSeededRandomScorer(7, 11))
	perms := [][]model.Vehicle{
		{porsche, ferrari, mclaren},
		{mclaren, porsche, ferrari},
		{ferrari, mclaren, porsche},
	}

	want := map[string]model.Attributes{}
	for _, p := range perms {
		res, err := e.Compare(context.Background(), p)
		require.NoError(t, err)
		for _, s := range res.Vehicles {
			if prev, ok := want[s.ID]; ok {
				assert.Equal(t, prev, s.Attributes)
			}
			want[s.ID] = s.Attributes
		}
	}

	attrs := want[porsche.ID]
	assert.Equal(t, "Supercar", attrs.Category)
	assert.Equal(t, "Essence", attrs.Fuel)
	assert.Equal(t, "10.5L/100km", attrs.Consumption)
	assert.Equal(t, 2, attrs.Seats)
	assert.Equal(t, 5, attrs.Safety)
	assert.Equal(t, 4, attrs.Reliability)
}

func TestCompare_InvalidSize(t *testing.T) {
	e := NewEngine(nil)

	for _, vs := range [][]model.Vehicle{nil, {porsche}, {porsche, ferrari, mclaren, porsche}} {
		_, err := e.Compare(context.Background(), vs)
		assert.True(t, errors.Is(err, ErrInvalidSize), "size %d", len(vs))
	}
}

func TestCompare_ScoreOutOfRange(t *testing.T) {
	e := NewEngine(FixedScorer{porsche.ID: 101, ferrari.ID: 90})

	_, err := e.Compare(context.Background(), []model.Vehicle{porsche, ferrari})
	assert.True(t, errors.Is(err, ErrScoreOutOfRange))
}

func TestCompare_ScorerError(t *testing.T) {
	e := NewEngine(ScoreFunc(func(context.Context, model.Vehicle) (int, error) {
		return 0, errors.New("model offline")
	}))

	_, err := e.Compare(context.Background(), []model.Vehicle{porsche, ferrari})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model offline")
}

func TestRandomScorer_Range(t *testing.T) {
	s := NewSeededRandomScorer(1, 2)
	seen := map[int]bool{}
	for i := 0; i < 2000; i++ {
		n, err := s.Score(context.Background(), porsche)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 80)
		require.LessOrEqual(t, n, 99)
		seen[n] = true
	}
	assert.Len(t, seen, 20, "every value in [80, 99] should be drawn")
}

func TestWithout_KeepsScoresAndOrder(t *testing.T) {
	e := NewEngine(FixedScorer{porsche.ID: 95, ferrari.ID: 88, mclaren.ID: 91})
	res, err := e.Compare(context.Background(), []model.Vehicle{porsche, ferrari, mclaren})
	require.NoError(t, err)
	require.Equal(t, []string{porsche.ID, mclaren.ID, ferrari.ID}, rankedIDs(res.Ranking))

	got := Without(res, porsche.ID)
	assert.Equal(t, []string{mclaren.ID, ferrari.ID}, rankedIDs(got.Ranking))
	assert.Equal(t, []string{ferrari.ID, mclaren.ID}, rankedIDs(got.Vehicles))
	assert.Equal(t, 91, got.Ranking[0].AIScore)
	assert.Equal(t, 88, got.Ranking[1].AIScore)

	assert.Len(t, res.Ranking, 3, "input result must be untouched")
	assert.Nil(t, Without(nil, "x"))
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	in := []model.Scored{{Vehicle: porsche, AIScore: 80}, {Vehicle: ferrari, AIScore: 90}}
	out := Rank(in)
	assert.Equal(t, porsche.ID, in[0].ID)
	assert.Equal(t, ferrari.ID, out[0].ID)
}
