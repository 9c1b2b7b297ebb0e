// Package recommend ranks catalog opportunities for an evaluated resume.
package recommend

import (
	"cmp"
	"math"
	"slices"

	"github.com/spigell/skillsync/internal/catalog"
	"github.com/spigell/skillsync/internal/evaluation"
	"github.com/spigell/skillsync/internal/matching"
)

const (
	// DefaultLimit is the maximum number of recommendations returned.
	DefaultLimit = 6
	// DefaultSlack widens each score range on both sides for initial eligibility.
	DefaultSlack = 1.0
	// MinimumDisplayed is the lowest match percentage shown for an included opportunity.
	MinimumDisplayed = 10
)

// Recommendation is a catalog opportunity annotated with per-request match data.
type Recommendation struct {
	catalog.Opportunity
	MatchPercentage int      `json:"match_percentage"`
	MatchedSkills   []string `json:"matched_skills"`
}

// Stats counts opportunities at each ranking stage.
type Stats struct {
	Catalog  int
	InRange  int
	Included int
	Returned int
}

// Ranker holds the ranking constants. The zero value is not usable; use New.
// A Ranker has no mutable state and is safe for concurrent use.
type Ranker struct {
	limit int
	slack float64
	floor int
}

// New returns a ranker that keeps at most limit results. A non-positive limit
// selects DefaultLimit.
func New(limit int) *Ranker {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Ranker{limit: limit, slack: DefaultSlack, floor: MinimumDisplayed}
}

var defaultRanker = New(DefaultLimit)

// Recommend ranks opps with the default ranker.
func Recommend(ev evaluation.Evaluation, resumeText string, opps []catalog.Opportunity) []Recommendation {
	recs, _ := defaultRanker.Rank(ev, resumeText, opps)
	return recs
}

func (r *Ranker) Limit() int { return r.limit }

type scored struct {
	rec       Recommendation
	closeness float64
}

// Rank filters, scores, sorts and truncates opps for the given evaluation.
//
// An opportunity is eligible when the rating lies within its score range widened
// by the slack. Eligible entries are included when at least one required skill
// matches or the rating lies within the unwidened range. Included entries are
// ordered by displayed match percentage, then by closeness of the rating to the
// range midpoint, both descending; ties keep catalog order.
func (r *Ranker) Rank(ev evaluation.Evaluation, resumeText string, opps []catalog.Opportunity) ([]Recommendation, Stats) {
	rating := ev.OverallRating
	stats := Stats{Catalog: len(opps)}
	matcher := matching.NewMatcher(resumeText)

	candidates := make([]scored, 0, len(opps))
	for _, opp := range opps {
		if !opp.ScoreRange.Contains(rating, r.slack) {
			continue
		}
		stats.InRange++

		match := matcher.Match(opp.SkillsRequired)
		if match.Percentage == 0 && !opp.ScoreRange.Contains(rating, 0) {
			continue
		}

		candidates = append(candidates, scored{
			rec: Recommendation{
				Opportunity:     opp,
				MatchPercentage: max(match.Percentage, r.floor),
				MatchedSkills:   match.Matched,
			},
			closeness: -math.Abs(rating - opp.ScoreRange.Midpoint()),
		})
	}
	stats.Included = len(candidates)

	slices.SortStableFunc(candidates, func(a, b scored) int {
		if c := cmp.Compare(b.rec.MatchPercentage, a.rec.MatchPercentage); c != 0 {
			return c
		}
		return cmp.Compare(b.closeness, a.closeness)
	})

	if len(candidates) > r.limit {
		candidates = candidates[:r.limit]
	}

	out := make([]Recommendation, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.rec)
	}
	stats.Returned = len(out)

	return out, stats
}
