package pipeline

import "time"

type Status string

const (
	StatusInitialized      Status = "initialized"
	StatusExtracting       Status = "extracting"
	StatusSynchronized     Status = "synchronized"
	StatusScored           Status = "scored"
	StatusSuggestionsReady Status = "suggestions_ready"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
)

// State is the single record threaded through the DAG. It is owned by
// exactly one pipeline run; stages read it and return sparse Updates,
// they never mutate it directly.
type State struct {
	ResumeID   string `json:"resume_id"`
	JDID       string `json:"jd_id"`
	ResumeText string `json:"resume_text"`
	JDText     string `json:"jd_text"`

	// Skill fields stay nil until their stage has run; a stage that
	// degraded sets an empty, non-nil slice.
	ResumeSkillsRaw        []Skill `json:"resume_skills_raw,omitempty"`
	ResumeSkillsValidated  []Skill `json:"resume_skills_validated,omitempty"`
	ResumeSkillsClassified []Skill `json:"resume_skills_classified,omitempty"`
	JDSkillsRaw            []Skill `json:"jd_skills_raw,omitempty"`
	JDSkillsValidated      []Skill `json:"jd_skills_validated,omitempty"`
	JDSkillsClassified     []Skill `json:"jd_skills_classified,omitempty"`

	MatchPercentage   float64  `json:"match_percentage"`
	TechnicalScore    float64  `json:"technical_score"`
	NonTechnicalScore float64  `json:"non_technical_score"`
	ExperienceScore   float64  `json:"experience_score"`
	MatchedSkills     []string `json:"matched_skills,omitempty"`
	MissingSkills     []string `json:"missing_skills,omitempty"`
	AdditionalSkills  []string `json:"additional_skills,omitempty"`
	Recommendation    string   `json:"recommendation,omitempty"`

	Suggestions *SuggestionPlan `json:"suggestions,omitempty"`

	Status       Status `json:"status"`
	Degraded     bool   `json:"degraded"`
	ErrorMessage string `json:"error_message,omitempty"`
	Err          error  `json:"-"`
}

// Update is a sparse set of field assignments produced by one stage.
// nil slices and empty strings mean "leave as-is"; an empty non-nil
// slice is a real assignment.
type Update struct {
	ResumeSkillsRaw        []Skill
	ResumeSkillsValidated  []Skill
	ResumeSkillsClassified []Skill
	JDSkillsRaw            []Skill
	JDSkillsValidated      []Skill
	JDSkillsClassified     []Skill

	MatchPercentage   *float64
	TechnicalScore    *float64
	NonTechnicalScore *float64
	ExperienceScore   *float64
	MatchedSkills     []string
	MissingSkills     []string
	AdditionalSkills  []string
	Recommendation    string

	Suggestions *SuggestionPlan

	Status   Status
	Degraded bool
	Err      error
}

// failedUpdate is the uniform shape a stage returns when its error is
// terminal for this pipeline run.
func failedUpdate(err error) Update {
	return Update{Status: StatusFailed, Err: err}
}

func (s *State) apply(u Update) {
	if u.ResumeSkillsRaw != nil {
		s.ResumeSkillsRaw = u.ResumeSkillsRaw
	}
	if u.ResumeSkillsValidated != nil {
		s.ResumeSkillsValidated = u.ResumeSkillsValidated
	}
	if u.ResumeSkillsClassified != nil {
		s.ResumeSkillsClassified = u.ResumeSkillsClassified
	}
	if u.JDSkillsRaw != nil {
		s.JDSkillsRaw = u.JDSkillsRaw
	}
	if u.JDSkillsValidated != nil {
		s.JDSkillsValidated = u.JDSkillsValidated
	}
	if u.JDSkillsClassified != nil {
		s.JDSkillsClassified = u.JDSkillsClassified
	}
	if u.MatchPercentage != nil {
		s.MatchPercentage = *u.MatchPercentage
	}
	if u.TechnicalScore != nil {
		s.TechnicalScore = *u.TechnicalScore
	}
	if u.NonTechnicalScore != nil {
		s.NonTechnicalScore = *u.NonTechnicalScore
	}
	if u.ExperienceScore != nil {
		s.ExperienceScore = *u.ExperienceScore
	}
	if u.MatchedSkills != nil {
		s.MatchedSkills = u.MatchedSkills
	}
	if u.MissingSkills != nil {
		s.MissingSkills = u.MissingSkills
	}
	if u.AdditionalSkills != nil {
		s.AdditionalSkills = u.AdditionalSkills
	}
	if u.Recommendation != "" {
		s.Recommendation = u.Recommendation
	}
	if u.Suggestions != nil {
		s.Suggestions = u.Suggestions
	}
	if u.Status != "" {
		// The state machine only moves forward; a stage cannot undo a
		// terminal failure recorded by a sibling.
		if s.Status != StatusFailed {
			s.Status = u.Status
		}
	}
	if u.Degraded {
		s.Degraded = true
	}
	if u.Err != nil && s.Err == nil {
		s.Err = u.Err
		s.ErrorMessage = u.Err.Error()
	}
}

// MatchResult is the terminal output of a successful pipeline run.
// Ownership transfers to the caller; the pipeline persists nothing.
type MatchResult struct {
	ResumeID          string          `json:"resume_id"`
	JDID              string          `json:"jd_id"`
	MatchPercentage   float64         `json:"match_percentage"`
	TechnicalScore    float64         `json:"technical_score"`
	NonTechnicalScore float64         `json:"non_technical_score"`
	ExperienceScore   float64         `json:"experience_score"`
	MatchedSkills     []string        `json:"matched_skills"`
	MissingSkills     []string        `json:"missing_skills"`
	AdditionalSkills  []string        `json:"additional_skills"`
	Recommendation    string          `json:"recommendation"`
	Suggestions       *SuggestionPlan `json:"suggestions,omitempty"`
	Degraded          bool            `json:"degraded"`
	ProcessedAt       time.Time       `json:"processed_at"`
}
