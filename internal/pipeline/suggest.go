package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Gap criticality levels, ordered by urgency.
const (
	GapCritical    = "critical"
	GapImportant   = "important"
	GapEnhancement = "enhancement"
)

// Roadmap phase names, in chronological order.
const (
	PhaseQuickWins       = "quick_wins"
	PhaseCoreDevelopment = "core_development"
	PhaseMastery         = "mastery"
)

// SkillGap describes one missing skill and how to close it.
type SkillGap struct {
	Skill              string   `json:"skill"`
	Criticality        string   `json:"criticality"`
	LearningDifficulty string   `json:"learning_difficulty"`
	TimeToProficiency  string   `json:"time_to_proficiency"`
	Reason             string   `json:"reason"`
	LearningPath       []string `json:"learning_path"`
}

// RoadmapPhase groups learning steps into one phase of the plan.
type RoadmapPhase struct {
	Phase              string   `json:"phase"`
	Duration           string   `json:"duration"`
	FocusSkills        []string `json:"focus_skills"`
	ProjectedMatchGain float64  `json:"projected_match_gain"`
}

// MatchTrajectory holds the projected match percentage at checkpoints
// along the roadmap. Values are estimates of potential improvement,
// never guarantees.
type MatchTrajectory struct {
	ThreeMonth  float64 `json:"three_month"`
	SixMonth    float64 `json:"six_month"`
	TwelveMonth float64 `json:"twelve_month"`
}

// SuggestionPlan is the full improvement plan produced for a
// below-threshold match.
type SuggestionPlan struct {
	Gaps       []SkillGap      `json:"gaps"`
	Roadmap    []RoadmapPhase  `json:"roadmap"`
	Trajectory MatchTrajectory `json:"projected_match_trajectory"`
}

// parseSuggestionPlan decodes and sanitizes a model-produced plan.
// Unknown criticalities are coerced to enhancement rather than
// rejected; trajectory values are clamped into [current, 100] and kept
// monotonic so the plan never promises a regression or an impossible
// score.
func parseSuggestionPlan(raw string, currentMatch float64) (*SuggestionPlan, error) {
	cleaned := ExtractJSON(raw)
	if strings.TrimSpace(cleaned) == "" {
		return nil, &ParseError{Op: "suggestion_plan", Err: fmt.Errorf("empty response")}
	}

	var plan SuggestionPlan
	if err := json.Unmarshal([]byte(cleaned), &plan); err != nil {
		return nil, &ParseError{Op: "suggestion_plan", Err: err}
	}
	if len(plan.Gaps) == 0 && len(plan.Roadmap) == 0 {
		return nil, &ParseError{Op: "suggestion_plan", Err: fmt.Errorf("plan has neither gaps nor roadmap")}
	}

	for i := range plan.Gaps {
		switch plan.Gaps[i].Criticality {
		case GapCritical, GapImportant, GapEnhancement:
		default:
			plan.Gaps[i].Criticality = GapEnhancement
		}
	}

	plan.Trajectory.ThreeMonth = clampTrajectory(plan.Trajectory.ThreeMonth, currentMatch)
	plan.Trajectory.SixMonth = clampTrajectory(plan.Trajectory.SixMonth, plan.Trajectory.ThreeMonth)
	plan.Trajectory.TwelveMonth = clampTrajectory(plan.Trajectory.TwelveMonth, plan.Trajectory.SixMonth)

	return &plan, nil
}

// clampTrajectory keeps a projected value monotonic and within bounds.
func clampTrajectory(v, floor float64) float64 {
	if v < floor {
		v = floor
	}
	if v > 100 {
		v = 100
	}
	return Round2(v)
}
