// Package load interprets the acute:chronic workload ratio (ACWR) reported by
// the training service.
package load

import (
	"fmt"
	"math"
	"strconv"

	"github.com/moorebrett0/climbcoach/internal/backend"
)

// Zone is where an ACWR value falls.
type Zone string

const (
	ZoneUnknown       Zone = "Unknown"
	ZoneUndertraining Zone = "Undertraining"
	ZoneOptimal       Zone = "Optimal"
	ZoneOvertraining  Zone = "Overtraining Risk"
)

// Bounds of the optimal zone, inclusive.
const (
	OptimalLow  = 0.8
	OptimalHigh = 1.5
)

// OptimalRange is the human-readable description of the optimal zone.
const OptimalRange = "ACWR between 0.8-1.5 is optimal for progressive training without excessive injury risk"

var recommendations = map[Zone]string{
	ZoneUnknown:       "Unable to provide recommendation without ACWR data.",
	ZoneUndertraining: "Consider gradually increasing training volume. You have capacity for more work.",
	ZoneOptimal:       "Your training load is well-balanced. Continue progressive training.",
	ZoneOvertraining:  "CAUTION: High injury risk. Reduce volume, focus on recovery, consider a deload week.",
}

// Classify returns the zone for an ACWR value. nil means the service had no
// ratio to report.
func Classify(acwr *float64) Zone {
	switch {
	case acwr == nil || math.IsNaN(*acwr):
		return ZoneUnknown
	case *acwr < OptimalLow:
		return ZoneUndertraining
	case *acwr <= OptimalHigh:
		return ZoneOptimal
	default:
		return ZoneOvertraining
	}
}

// Recommendation is the coaching advice for a zone.
func (z Zone) Recommendation() string {
	if r, ok := recommendations[z]; ok {
		return r
	}
	return recommendations[ZoneUnknown]
}

// Summary is the coach-facing view of a TrainingLoad.
type Summary struct {
	ACWR               *float64 `json:"acwr"`
	Interpretation     Zone     `json:"acwr_interpretation"`
	Recommendation     string   `json:"acwr_recommendation"`
	AcuteLoad7Day      *float64 `json:"acute_load_7day"`
	ChronicLoad42Day   *float64 `json:"chronic_load_42day"`
	MaxGradeClimbed    string   `json:"max_grade_climbed"`
	RecentSessions7Day int      `json:"recent_sessions_7days"`
	AverageSessionLoad float64  `json:"average_session_load"`
	TotalLoad          float64  `json:"total_load"`
	RecentSessions     any      `json:"recent_sessions"`
}

// Summarize interprets tl for the model and for chat front-ends.
func Summarize(tl *backend.TrainingLoad) Summary {
	zone := Classify(tl.CurrentACWR)

	var recent any = []any{}
	if len(tl.RecentSessions) > 0 && string(tl.RecentSessions) != "null" {
		recent = tl.RecentSessions
	}

	return Summary{
		ACWR:               tl.CurrentACWR,
		Interpretation:     zone,
		Recommendation:     zone.Recommendation(),
		AcuteLoad7Day:      tl.AcuteLoad,
		ChronicLoad42Day:   tl.ChronicLoad,
		MaxGradeClimbed:    FormatGrade(tl.MaxGrade),
		RecentSessions7Day: tl.RecentSessionCount,
		AverageSessionLoad: round2(tl.AverageSessionLoad),
		TotalLoad:          round2(tl.TotalLoad),
		RecentSessions:     recent,
	}
}

// FormatGrade renders a numeric V-grade, or "N/A".
func FormatGrade(g *float64) string {
	if g == nil {
		return "N/A"
	}
	return "V" + strconv.FormatFloat(*g, 'f', -1, 64)
}

// String is a one-line summary for chat messages.
func (s Summary) String() string {
	acwr := "n/a"
	if s.ACWR != nil {
		acwr = fmt.Sprintf("%.2f", *s.ACWR)
	}
	return fmt.Sprintf("ACWR %s (%s), %d sessions in the last 7 days, max grade %s",
		acwr, s.Interpretation, s.RecentSessions7Day, s.MaxGradeClimbed)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
