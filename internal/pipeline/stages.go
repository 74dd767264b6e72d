package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// Stage node names. The two document chains run in parallel and meet
// at the barrier.
const (
	StageExtractResume  = "extract_resume_skills"
	StageValidateResume = "validate_resume_skills"
	StageClassifyResume = "classify_resume_skills"
	StageExtractJD      = "extract_jd_skills"
	StageValidateJD     = "validate_jd_skills"
	StageClassifyJD     = "classify_jd_skills"
	StageSyncBarrier    = "sync_barrier"
	StageMatchSkills    = "match_skills"
	StageSuggestions    = "generate_suggestions"
)

// SuggestionThreshold is the match percentage at and above which the
// suggestion stage is skipped.
const SuggestionThreshold = 80.0

// InferenceClient is the LLM surface the stages need. Implementations
// are expected to handle retries internally; a returned error is
// terminal for the calling stage.
type InferenceClient interface {
	GenerateText(ctx context.Context, prompt string, temperature float32) (string, error)
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Temperatures per stage kind. Extraction and classification must be
// reproducible; suggestions benefit from some variety.
const (
	extractionTemperature = 0.1
	suggestionTemperature = 0.4
)

// Stages builds the node set of the matching pipeline around one
// inference client.
type Stages struct {
	llm         InferenceClient
	prompts     *PromptBuilder
	callTimeout time.Duration
}

func NewStages(llm InferenceClient, callTimeout time.Duration) *Stages {
	if callTimeout <= 0 {
		callTimeout = 2 * time.Minute
	}
	return &Stages{
		llm:         llm,
		prompts:     NewPromptBuilder(),
		callTimeout: callTimeout,
	}
}

// BuildGraph assembles the fixed topology:
//
//	extract -> validate -> classify   (resume chain)
//	extract -> validate -> classify   (jd chain, concurrent)
//	both chains -> sync_barrier -> match_skills -> generate_suggestions
func (st *Stages) BuildGraph() (*Graph, error) {
	return NewGraph([]Stage{
		{Name: StageExtractResume, Run: st.extractResume},
		{Name: StageExtractJD, Run: st.extractJD},
		{Name: StageValidateResume, Deps: []string{StageExtractResume}, Run: st.validateResume},
		{Name: StageValidateJD, Deps: []string{StageExtractJD}, Run: st.validateJD},
		{Name: StageClassifyResume, Deps: []string{StageValidateResume}, Run: st.classifyResume},
		{Name: StageClassifyJD, Deps: []string{StageValidateJD}, Run: st.classifyJD},
		{Name: StageSyncBarrier, Deps: []string{StageClassifyResume, StageClassifyJD}, Run: st.syncBarrier},
		{Name: StageMatchSkills, Deps: []string{StageSyncBarrier}, Run: st.matchSkills},
		{
			Name:  StageSuggestions,
			Deps:  []string{StageMatchSkills},
			Guard: func(s *State) bool { return s.MatchPercentage < SuggestionThreshold },
			Run:   st.generateSuggestions,
		},
	})
}

func (st *Stages) extractResume(ctx context.Context, s *State) Update {
	skills, err := st.extractSkills(ctx, s.ResumeText, "resume")
	if err != nil {
		return failedUpdate(err)
	}
	if skills == nil {
		// Unparseable response: the chain continues on an empty set
		// rather than losing the whole run.
		log.Printf("⚠️  Resume skill extraction degraded to empty set\n")
		return Update{ResumeSkillsRaw: []Skill{}, Status: StatusExtracting, Degraded: true}
	}
	log.Printf("✅ Extracted %d resume skills\n", len(skills))
	return Update{ResumeSkillsRaw: skills, Status: StatusExtracting}
}

func (st *Stages) extractJD(ctx context.Context, s *State) Update {
	skills, err := st.extractSkills(ctx, s.JDText, "job description")
	if err != nil {
		return failedUpdate(err)
	}
	if skills == nil {
		log.Printf("⚠️  JD skill extraction degraded to empty set\n")
		return Update{JDSkillsRaw: []Skill{}, Status: StatusExtracting, Degraded: true}
	}
	log.Printf("✅ Extracted %d JD skills\n", len(skills))
	return Update{JDSkillsRaw: skills, Status: StatusExtracting}
}

// extractSkills runs one extraction call. A transport or quota error
// comes back as err; an unparseable response comes back as (nil, nil)
// so the caller can degrade instead of failing.
func (st *Stages) extractSkills(ctx context.Context, text, documentType string) ([]Skill, error) {
	callCtx, cancel := context.WithTimeout(ctx, st.callTimeout)
	defer cancel()

	prompt := st.prompts.BuildSkillExtractionPrompt(text, documentType)
	response, err := st.llm.GenerateText(callCtx, prompt, extractionTemperature)
	if err != nil {
		return nil, fmt.Errorf("extract %s skills: %w", documentType, err)
	}

	skills, err := parseSkillArray(response)
	if err != nil {
		log.Printf("❌ Failed to parse %s extraction response: %v\n", documentType, err)
		return nil, nil
	}
	return skills, nil
}

func (st *Stages) validateResume(_ context.Context, s *State) Update {
	validated := DedupeSkills(s.ResumeSkillsRaw)
	return Update{ResumeSkillsValidated: validated}
}

func (st *Stages) validateJD(_ context.Context, s *State) Update {
	validated := DedupeSkills(s.JDSkillsRaw)
	return Update{JDSkillsValidated: validated}
}

func (st *Stages) classifyResume(ctx context.Context, s *State) Update {
	classified, u := st.classifySkills(ctx, s.ResumeSkillsValidated, "resume")
	if u != nil {
		return *u
	}
	if classified == nil {
		// Degraded classification still satisfies the barrier with an
		// empty, non-nil set.
		return Update{ResumeSkillsClassified: []Skill{}, Degraded: true}
	}
	return Update{ResumeSkillsClassified: classified}
}

func (st *Stages) classifyJD(ctx context.Context, s *State) Update {
	classified, u := st.classifySkills(ctx, s.JDSkillsValidated, "jd")
	if u != nil {
		return *u
	}
	if classified == nil {
		return Update{JDSkillsClassified: []Skill{}, Degraded: true}
	}
	return Update{JDSkillsClassified: classified}
}

// classifySkills asks the model to tag each skill Technical or
// Non-Technical. On an unparseable response it returns (nil, nil) so
// the wrapper can record a degraded empty set; a non-nil Update means
// terminal failure.
func (st *Stages) classifySkills(ctx context.Context, skills []Skill, side string) ([]Skill, *Update) {
	if len(skills) == 0 {
		empty := []Skill{}
		return empty, nil
	}

	payload, err := json.Marshal(skills)
	if err != nil {
		u := failedUpdate(fmt.Errorf("classify %s skills: %w", side, err))
		return nil, &u
	}

	callCtx, cancel := context.WithTimeout(ctx, st.callTimeout)
	defer cancel()

	response, err := st.llm.GenerateText(callCtx, st.prompts.BuildSkillClassificationPrompt(string(payload)), extractionTemperature)
	if err != nil {
		u := failedUpdate(fmt.Errorf("classify %s skills: %w", side, err))
		return nil, &u
	}

	classified, err := parseSkillArray(response)
	if err != nil {
		log.Printf("❌ Failed to parse %s classification response: %v\n", side, err)
		return nil, nil
	}

	// The model sometimes echoes an entry twice; deduping again keeps
	// matched and missing counts honest. Entries it dropped or left
	// untagged default to Technical so the scorer always sees a class.
	classified = DedupeSkills(classified)
	for i := range classified {
		if classified[i].Class != SkillTechnical && classified[i].Class != SkillNonTechnical {
			classified[i].Class = SkillTechnical
		}
	}
	log.Printf("✅ Classified %d %s skills\n", len(classified), side)
	return classified, nil
}

// syncBarrier verifies both classified sets exist before scoring. A
// degraded chain produced an empty non-nil set, so only a true
// scheduling fault trips it.
func (st *Stages) syncBarrier(_ context.Context, s *State) Update {
	var missing []string
	if s.ResumeSkillsClassified == nil {
		missing = append(missing, "resume_skills_classified")
	}
	if s.JDSkillsClassified == nil {
		missing = append(missing, "jd_skills_classified")
	}
	if len(missing) > 0 {
		return failedUpdate(&SynchronizationError{Missing: missing})
	}
	log.Printf("🔄 Both skill chains synchronized (%d resume, %d JD)\n",
		len(s.ResumeSkillsClassified), len(s.JDSkillsClassified))
	return Update{Status: StatusSynchronized}
}

func (st *Stages) matchSkills(_ context.Context, s *State) Update {
	breakdown := ScoreSkills(s.ResumeSkillsClassified, s.JDSkillsClassified)
	log.Printf("📊 Match computed: %.2f%% (%s)\n", breakdown.MatchPercentage, breakdown.Recommendation)
	return Update{
		MatchPercentage:   &breakdown.MatchPercentage,
		TechnicalScore:    &breakdown.TechnicalScore,
		NonTechnicalScore: &breakdown.NonTechnicalScore,
		ExperienceScore:   &breakdown.ExperienceScore,
		MatchedSkills:     orEmpty(breakdown.MatchedSkills),
		MissingSkills:     orEmpty(breakdown.MissingSkills),
		AdditionalSkills:  orEmpty(breakdown.AdditionalSkills),
		Recommendation:    breakdown.Recommendation,
		Status:            StatusScored,
		Degraded:          breakdown.Degraded,
	}
}

func (st *Stages) generateSuggestions(ctx context.Context, s *State) Update {
	resumeJSON, err := json.Marshal(s.ResumeSkillsClassified)
	if err != nil {
		return failedUpdate(fmt.Errorf("generate suggestions: %w", err))
	}
	jdJSON, err := json.Marshal(s.JDSkillsClassified)
	if err != nil {
		return failedUpdate(fmt.Errorf("generate suggestions: %w", err))
	}

	callCtx, cancel := context.WithTimeout(ctx, st.callTimeout)
	defer cancel()

	prompt := st.prompts.BuildSuggestionPrompt(string(resumeJSON), string(jdJSON), s.MissingSkills, s.MatchPercentage)
	response, err := st.llm.GenerateText(callCtx, prompt, suggestionTemperature)
	if err != nil {
		return failedUpdate(fmt.Errorf("generate suggestions: %w", err))
	}

	plan, err := parseSuggestionPlan(response, s.MatchPercentage)
	if err != nil {
		// The match result stands on its own; losing the plan is a
		// degradation, not a failure.
		log.Printf("⚠️  Suggestion plan unparseable, continuing without it: %v\n", err)
		return Update{Status: StatusSuggestionsReady, Degraded: true}
	}
	log.Printf("💡 Suggestion plan ready (%d gaps, %d phases)\n", len(plan.Gaps), len(plan.Roadmap))
	return Update{Suggestions: plan, Status: StatusSuggestionsReady}
}

// parseSkillArray decodes a model response into a skill array.
func parseSkillArray(response string) ([]Skill, error) {
	cleaned := ExtractJSON(response)
	var skills []Skill
	if err := json.Unmarshal([]byte(cleaned), &skills); err != nil {
		return nil, &ParseError{Op: "skill_array", Err: err}
	}
	if skills == nil {
		skills = []Skill{}
	}
	return skills, nil
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
