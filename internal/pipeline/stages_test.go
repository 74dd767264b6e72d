package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLLM answers prompts by substring matching, in rule order.
type scriptedLLM struct {
	mu    sync.Mutex
	rules []llmRule
	calls []string
}

type llmRule struct {
	contains []string
	response string
	err      error
}

func (s *scriptedLLM) GenerateText(_ context.Context, prompt string, _ float32) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, prompt)

	for _, rule := range s.rules {
		match := true
		for _, sub := range rule.contains {
			if !strings.Contains(prompt, sub) {
				match = false
				break
			}
		}
		if match {
			return rule.response, rule.err
		}
	}
	return "", fmt.Errorf("no scripted response for prompt")
}

func (s *scriptedLLM) GenerateEmbedding(context.Context, string) ([]float32, error) {
	return make([]float32, 768), nil
}

func (s *scriptedLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

const resumeExtractionJSON = "```json\n" + `[
  {"skill": "Go", "years_of_experience": 5, "justification": "5 years backend work"},
  {"skill": "Docker", "years_of_experience": 2, "justification": "containerized services"}
]` + "\n```"

const jdExtractionJSON = `[
  {"skill": "Go", "years_of_experience": "3+ years required", "justification": "required"},
  {"skill": "Kubernetes", "years_of_experience": "2 years", "justification": "required"}
]`

const resumeClassifiedJSON = `[
  {"skill": "Go", "years_of_experience": 5, "skill_class": "Technical"},
  {"skill": "Docker", "years_of_experience": 2, "skill_class": "Technical"}
]`

const jdClassifiedJSON = `[
  {"skill": "Go", "years_of_experience": "3+ years required", "skill_class": "Technical"},
  {"skill": "Kubernetes", "years_of_experience": "2 years", "skill_class": "Technical"}
]`

const minimalPlanJSON = `{
  "gaps": [
    {"skill": "Kubernetes", "criticality": "important", "learning_difficulty": "moderate", "time_to_proficiency": "2-3 months", "reason": "Required deployment stack", "learning_path": ["CKA course"]}
  ],
  "roadmap": [
    {"phase": "quick_wins", "duration": "1-3 months", "focus_skills": ["Kubernetes"], "projected_match_gain": 10.0}
  ],
  "projected_match_trajectory": {"three_month": 40.0, "six_month": 55.0, "twelve_month": 70.0}
}`

func matcherScript() *scriptedLLM {
	return &scriptedLLM{rules: []llmRule{
		{contains: []string{"DOCUMENT TYPE: RESUME"}, response: resumeExtractionJSON},
		{contains: []string{"DOCUMENT TYPE: JOB DESCRIPTION"}, response: jdExtractionJSON},
		{contains: []string{"taxonomy classifier", "kubernetes"}, response: jdClassifiedJSON},
		{contains: []string{"taxonomy classifier", "docker"}, response: resumeClassifiedJSON},
		{contains: []string{"career development advisor"}, response: minimalPlanJSON},
	}}
}

func newTestState() *State {
	return &State{
		ResumeID:   "resume-1",
		JDID:       "jd-1",
		ResumeText: "Backend engineer, five years of Go, two years of Docker.",
		JDText:     "Looking for Go (3+ years) and Kubernetes (2 years).",
		Status:     StatusInitialized,
	}
}

func TestPipelineFullRunAboveThreshold(t *testing.T) {
	llm := matcherScript()
	st := NewStages(llm, time.Minute)
	g, err := st.BuildGraph()
	require.NoError(t, err)

	s := g.Execute(context.Background(), newTestState())

	require.NotEqual(t, StatusFailed, s.Status, "pipeline error: %v", s.Err)

	// Go exact (100, experience 100), Kubernetes via Docker (65,
	// experience 90). Technical mean 82.5, experience mean 95, the
	// empty non-technical bucket's weight shifts to technical:
	// 82.5*0.9 + 95*0.1 = 83.75.
	assert.Equal(t, 83.75, s.MatchPercentage)
	assert.Equal(t, []string{"go", "kubernetes"}, s.MatchedSkills)
	assert.Empty(t, s.MissingSkills)
	assert.Equal(t, RecommendationGood, s.Recommendation)
	assert.False(t, s.Degraded)

	// 83.75 >= 80: the suggestion stage must not have been invoked.
	assert.Nil(t, s.Suggestions)
	assert.Equal(t, 4, llm.callCount())
}

// A third JD requirement nothing on the resume satisfies drags the
// match below 80.
const jdWithGapJSON = `[
  {"skill": "Go", "years_of_experience": "3+ years required", "justification": "required"},
  {"skill": "Kubernetes", "years_of_experience": "2 years", "justification": "required"},
  {"skill": "Haskell", "years_of_experience": "3 years", "justification": "required"}
]`

const jdWithGapClassifiedJSON = `[
  {"skill": "Go", "years_of_experience": "3+ years required", "skill_class": "Technical"},
  {"skill": "Kubernetes", "years_of_experience": "2 years", "skill_class": "Technical"},
  {"skill": "Haskell", "years_of_experience": "3 years", "skill_class": "Technical"}
]`

// gapScript scripts a below-threshold run; the advisor response is
// rule index 4 so tests can swap it.
func gapScript(advisorResponse string) *scriptedLLM {
	return &scriptedLLM{rules: []llmRule{
		{contains: []string{"DOCUMENT TYPE: RESUME"}, response: resumeExtractionJSON},
		{contains: []string{"DOCUMENT TYPE: JOB DESCRIPTION"}, response: jdWithGapJSON},
		{contains: []string{"taxonomy classifier", "haskell"}, response: jdWithGapClassifiedJSON},
		{contains: []string{"taxonomy classifier", "docker"}, response: resumeClassifiedJSON},
		{contains: []string{"career development advisor"}, response: advisorResponse},
	}}
}

func TestPipelineGeneratesSuggestionsBelowThreshold(t *testing.T) {
	suggestionJSON := `{
  "gaps": [
    {"skill": "Haskell", "criticality": "critical", "learning_difficulty": "difficult", "time_to_proficiency": "4-6 months", "reason": "Core language for the role", "learning_path": ["Learn You a Haskell", "Build a CLI tool"]}
  ],
  "roadmap": [
    {"phase": "quick_wins", "duration": "1-3 months", "focus_skills": ["Kubernetes"], "projected_match_gain": 5.0},
    {"phase": "core_development", "duration": "3-6 months", "focus_skills": ["Haskell"], "projected_match_gain": 10.0},
    {"phase": "mastery", "duration": "6-12 months", "focus_skills": ["Haskell"], "projected_match_gain": 5.0}
  ],
  "projected_match_trajectory": {"three_month": 70.0, "six_month": 80.0, "twelve_month": 85.0}
}`
	llm := gapScript(suggestionJSON)

	st := NewStages(llm, time.Minute)
	g, err := st.BuildGraph()
	require.NoError(t, err)

	s := g.Execute(context.Background(), newTestState())

	require.NotEqual(t, StatusFailed, s.Status, "pipeline error: %v", s.Err)
	assert.Less(t, s.MatchPercentage, 80.0)
	assert.Equal(t, []string{"haskell"}, s.MissingSkills)

	require.NotNil(t, s.Suggestions)
	require.Len(t, s.Suggestions.Gaps, 1)
	assert.Equal(t, GapCritical, s.Suggestions.Gaps[0].Criticality)
	assert.Len(t, s.Suggestions.Roadmap, 3)
	assert.Equal(t, StatusSuggestionsReady, s.Status)

	// Trajectory stays monotonic and within bounds.
	assert.LessOrEqual(t, s.Suggestions.Trajectory.ThreeMonth, s.Suggestions.Trajectory.SixMonth)
	assert.LessOrEqual(t, s.Suggestions.Trajectory.SixMonth, s.Suggestions.Trajectory.TwelveMonth)
	assert.LessOrEqual(t, s.Suggestions.Trajectory.TwelveMonth, 100.0)
}

func TestPipelineDegradesOnUnparseableSuggestionPlan(t *testing.T) {
	llm := gapScript("Focus on fundamentals and keep practicing!")

	st := NewStages(llm, time.Minute)
	g, err := st.BuildGraph()
	require.NoError(t, err)

	s := g.Execute(context.Background(), newTestState())

	// The match result stands; only the plan is lost.
	require.NotEqual(t, StatusFailed, s.Status, "pipeline error: %v", s.Err)
	assert.Equal(t, StatusSuggestionsReady, s.Status)
	assert.True(t, s.Degraded)
	assert.Nil(t, s.Suggestions)
	assert.Less(t, s.MatchPercentage, 80.0)
	assert.Greater(t, s.MatchPercentage, 0.0)
	assert.Equal(t, []string{"haskell"}, s.MissingSkills)
}

func TestPipelineDegradesOnUnparseableExtraction(t *testing.T) {
	llm := matcherScript()
	llm.rules[0] = llmRule{
		contains: []string{"DOCUMENT TYPE: RESUME"},
		response: "I could not find any skills in this document.",
	}
	// Resume classification of an empty set happens locally; only the
	// JD chain still calls the model for classification.

	st := NewStages(llm, time.Minute)
	g, err := st.BuildGraph()
	require.NoError(t, err)

	s := g.Execute(context.Background(), newTestState())

	require.NotEqual(t, StatusFailed, s.Status, "pipeline error: %v", s.Err)
	assert.True(t, s.Degraded)
	assert.NotNil(t, s.ResumeSkillsClassified)
	assert.Empty(t, s.ResumeSkillsClassified)
	// Every JD requirement is missing against an empty resume.
	assert.Equal(t, 0.0, s.MatchPercentage)
	assert.Len(t, s.MissingSkills, 2)
}

func TestPipelineFailsOnLLMError(t *testing.T) {
	llm := matcherScript()
	llm.rules[1] = llmRule{
		contains: []string{"DOCUMENT TYPE: JOB DESCRIPTION"},
		err:      &ServiceUnavailableError{Op: "gemini.generate_text", Attempts: 4, Err: context.DeadlineExceeded},
	}

	st := NewStages(llm, time.Minute)
	g, err := st.BuildGraph()
	require.NoError(t, err)

	s := g.Execute(context.Background(), newTestState())

	assert.Equal(t, StatusFailed, s.Status)
	var unavailable *ServiceUnavailableError
	assert.ErrorAs(t, s.Err, &unavailable)
}

func TestSuggestionGuardBoundary(t *testing.T) {
	st := NewStages(matcherScript(), time.Minute)
	g, err := st.BuildGraph()
	require.NoError(t, err)

	guard := g.stages[g.index[StageSuggestions]].Guard
	require.NotNil(t, guard)

	assert.True(t, guard(&State{MatchPercentage: 79.9}))
	assert.False(t, guard(&State{MatchPercentage: 80.0}))
	assert.False(t, guard(&State{MatchPercentage: 100}))
}

func TestSyncBarrierReportsMissingBranch(t *testing.T) {
	st := NewStages(matcherScript(), time.Minute)

	s := &State{
		Status:             StatusExtracting,
		JDSkillsClassified: []Skill{},
	}
	u := st.syncBarrier(context.Background(), s)

	assert.Equal(t, StatusFailed, u.Status)
	var syncErr *SynchronizationError
	require.ErrorAs(t, u.Err, &syncErr)
	assert.Equal(t, []string{"resume_skills_classified"}, syncErr.Missing)
}

func TestClassifyDefaultsMissingClassToTechnical(t *testing.T) {
	llm := &scriptedLLM{rules: []llmRule{
		{contains: []string{"taxonomy classifier"}, response: `[{"skill": "Go", "years_of_experience": 3}]`},
	}}
	st := NewStages(llm, time.Minute)

	u := st.classifyResume(context.Background(), &State{
		ResumeSkillsValidated: []Skill{{Name: "go", Experience: YearsOf(3)}},
	})

	require.Len(t, u.ResumeSkillsClassified, 1)
	assert.Equal(t, SkillTechnical, u.ResumeSkillsClassified[0].Class)
}

func TestClassifyDedupesEchoedModelOutput(t *testing.T) {
	llm := &scriptedLLM{rules: []llmRule{
		{contains: []string{"taxonomy classifier"}, response: `[
  {"skill": "Go", "years_of_experience": 3, "skill_class": "Technical"},
  {"skill": "golang", "years_of_experience": 3, "skill_class": "Technical"},
  {"skill": "SQL", "years_of_experience": 2, "skill_class": "Technical"}
]`},
	}}
	st := NewStages(llm, time.Minute)

	u := st.classifyResume(context.Background(), &State{
		ResumeSkillsValidated: []Skill{
			{Name: "go", Experience: YearsOf(3)},
			{Name: "sql", Experience: YearsOf(2)},
		},
	})

	require.Len(t, u.ResumeSkillsClassified, 2)
	assert.Equal(t, "go", u.ResumeSkillsClassified[0].Name)
	assert.Equal(t, "sql", u.ResumeSkillsClassified[1].Name)
}

func TestExtractJSONPrefersFirstOpeningStructure(t *testing.T) {
	arrayFirst := `Here you go: [{"skill": "Go"}] done`
	assert.Equal(t, `[{"skill": "Go"}]`, ExtractJSON(arrayFirst))

	objectOnly := "```json\n{\"gaps\": []}\n```"
	assert.Equal(t, `{"gaps": []}`, ExtractJSON(objectOnly))
}
