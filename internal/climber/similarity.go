// Package climber ranks rows of the training spreadsheet by similarity to a
// caller's physical stats and climbing grade.
package climber

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/moorebrett0/climbcoach/internal/dataset"
)

// Weights of each similarity component. A candidate's score is the sum of the
// components that apply.
const (
	HeightWeight = 0.3
	WeightWeight = 0.3
	GradeWeight  = 0.4
)

// profileTerms select the columns copied into a match's profile.
var profileTerms = []string{"height", "weight", "grade", "level", "experience", "age"}

// Profile is what the user told us about themselves. Nil or zero numeric
// fields and empty strings are ignored.
type Profile struct {
	Height          *float64 `json:"height,omitempty"`
	Weight          *float64 `json:"weight,omitempty"`
	ClimbingGrade   string   `json:"climbing_grade,omitempty"`
	ExperienceLevel string   `json:"experience_level,omitempty"`
}

// Match is one similar climber.
type Match struct {
	Score   float64           `json:"similarity_score"`
	Profile map[string]string `json:"profile"`
}

// Scorer is read-only and safe for concurrent use.
type Scorer struct {
	table *dataset.Table
}

// NewScorer returns a scorer over the given sheet. A nil table yields a scorer
// for which Loaded reports false.
func NewScorer(t *dataset.Table) *Scorer {
	return &Scorer{table: t}
}

// Loaded reports whether there is a table to search.
func (s *Scorer) Loaded() bool {
	return s.table != nil
}

// FindSimilar scores every row against p and returns the best limit matches,
// highest first. Rows scoring 0 are dropped; ties keep table order.
func (s *Scorer) FindSimilar(p Profile, limit int) []Match {
	if limit <= 0 || s.table == nil || len(s.table.Rows) == 0 {
		return []Match{}
	}
	t := s.table
	scores := make([]float64, len(t.Rows))

	if p.Height != nil && *p.Height != 0 {
		addNumeric(t, scores, t.Column("height"), *p.Height, HeightWeight)
	}
	if p.Weight != nil && *p.Weight != 0 {
		addNumeric(t, scores, t.Column("weight"), *p.Weight, WeightWeight)
	}
	if p.ClimbingGrade != "" {
		if col := t.Column("grade", "level"); col >= 0 {
			want := strings.ToLower(p.ClimbingGrade)
			for i := range t.Rows {
				if strings.Contains(strings.ToLower(t.Value(i, col)), want) {
					scores[i] += GradeWeight
				}
			}
		}
	}

	order := make([]int, 0, len(t.Rows))
	for i, sc := range scores {
		if sc > 0 {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	if len(order) > limit {
		order = order[:limit]
	}

	out := make([]Match, 0, len(order))
	for _, i := range order {
		out = append(out, Match{Score: scores[i], Profile: s.profile(i)})
	}
	return out
}

// addNumeric adds weight * (1 - |Δ|/maxΔ) to every row with a numeric cell in
// col. Nothing is added when the column is missing or every row is equidistant
// at zero.
func addNumeric(t *dataset.Table, scores []float64, col int, want, weight float64) {
	if col < 0 {
		return
	}
	diffs := make([]float64, len(t.Rows))
	maxDiff := 0.0
	for i := range t.Rows {
		v, err := strconv.ParseFloat(t.Value(i, col), 64)
		if err != nil || math.IsNaN(v) {
			diffs[i] = math.NaN()
			continue
		}
		diffs[i] = math.Abs(v - want)
		maxDiff = math.Max(maxDiff, diffs[i])
	}
	if maxDiff == 0 {
		return
	}
	for i, d := range diffs {
		if math.IsNaN(d) {
			continue
		}
		scores[i] += (1 - d/maxDiff) * weight
	}
}

func (s *Scorer) profile(row int) map[string]string {
	out := make(map[string]string)
	for i, c := range s.table.Columns {
		lower := strings.ToLower(c)
		for _, term := range profileTerms {
			if strings.Contains(lower, term) {
				if v := s.table.Value(row, i); v != "" {
					out[c] = v
				}
				break
			}
		}
	}
	return out
}
