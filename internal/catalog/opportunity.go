// Package catalog holds the static set of opportunities available for recommendation.
package catalog

import (
	"encoding/json"
	"fmt"
)

// Opportunity is a single catalog entry. Values are read-only after load.
type Opportunity struct {
	ID             int        `json:"id"`
	Title          string     `json:"title"`
	Company        string     `json:"company"`
	Location       string     `json:"location"`
	SkillsRequired []Skill    `json:"skills_required"`
	ScoreRange     ScoreRange `json:"score_range"`
	Category       string     `json:"category"`
	Description    string     `json:"description"`
}

// Skill is one entry of an opportunity's required-skill list. The original
// JSON value is kept so that non-text entries still count towards coverage.
type Skill struct {
	value any
}

// NewSkill returns a textual skill.
func NewSkill(name string) Skill {
	return Skill{value: name}
}

// RawSkill wraps an arbitrary decoded JSON value.
func RawSkill(v any) Skill {
	return Skill{value: v}
}

// Skills is a shorthand for a list of textual skills.
func Skills(names ...string) []Skill {
	skills := make([]Skill, 0, len(names))
	for _, name := range names {
		skills = append(skills, NewSkill(name))
	}
	return skills
}

// Text returns the skill name and whether the entry is textual at all.
func (s Skill) Text() (string, bool) {
	name, ok := s.value.(string)
	return name, ok
}

func (s Skill) String() string {
	if name, ok := s.Text(); ok {
		return name
	}
	return fmt.Sprintf("%v", s.value)
}

func (s Skill) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.value)
}

func (s *Skill) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	s.value = v
	return nil
}

// ScoreRange is the band of overall ratings an opportunity targets, encoded as [low, high].
type ScoreRange struct {
	Low  float64
	High float64
}

// Midpoint returns the centre of the band.
func (r ScoreRange) Midpoint() float64 {
	return (r.Low + r.High) / 2
}

// Contains reports whether rating lies within [Low-slack, High+slack].
func (r ScoreRange) Contains(rating, slack float64) bool {
	return rating >= r.Low-slack && rating <= r.High+slack
}

func (r ScoreRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{r.Low, r.High})
}

func (r *ScoreRange) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("score range: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("score range: expected 2 values, got %d", len(pair))
	}
	r.Low, r.High = pair[0], pair[1]
	return nil
}
