package model

import "time"

// ResultSource tells which path produced a comparison result.
type ResultSource string

const (
	// SourceAnalysis is the gated path: authenticated, quota consumed.
	SourceAnalysis ResultSource = "analysis"
	// SourcePopular is the promotional shortcut. It bypasses the
	// authentication and quota gates.
	SourcePopular ResultSource = "popular"
)

// Attributes are the display attributes shown next to each compared vehicle.
type Attributes struct {
	Category    string   `json:"category"`
	Fuel        string   `json:"fuel"`
	Consumption string   `json:"consumption"`
	Seats       int      `json:"seats"`
	Safety      int      `json:"safety"`      // 1-5
	Reliability int      `json:"reliability"` // 1-5
	Pros        []string `json:"pros,omitempty"`
	Cons        []string `json:"cons,omitempty"`
}

// Scored is a vehicle enriched with attributes and its AI score.
type Scored struct {
	Vehicle
	Attributes
	AIScore int `json:"ai_score"` // 0-100
}

// Result is one comparison run. Vehicles keeps input order, Ranking is
// sorted by AIScore descending with ties in input order.
type Result struct {
	Vehicles  []Scored     `json:"vehicles"`
	Ranking   []Scored     `json:"ranking"`
	Source    ResultSource `json:"source"`
	CreatedAt time.Time    `json:"created_at"`
}

// Winner returns the top-ranked entry.
func (r *Result) Winner() (Scored, bool) {
	if r == nil || len(r.Ranking) == 0 {
		return Scored{}, false
	}
	return r.Ranking[0], true
}

// Clone returns a deep copy so callers can hand results to other goroutines.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := *r
	out.Vehicles = cloneScored(r.Vehicles)
	out.Ranking = cloneScored(r.Ranking)
	return &out
}

func cloneScored(in []Scored) []Scored {
	if in == nil {
		return nil
	}
	out := make([]Scored, len(in))
	for i, s := range in {
		s.Pros = append([]string(nil), s.Pros...)
		s.Cons = append([]string(nil), s.Cons...)
		out[i] = s
	}
	return out
}
