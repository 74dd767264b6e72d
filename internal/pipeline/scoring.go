package pipeline

import (
	"math"
	"sort"
)

// Top-level weights combining the three sub-scores. Fixed for result
// compatibility across deployments.
const (
	technicalWeight    = 0.70
	nonTechnicalWeight = 0.20
	experienceWeight   = 0.10
)

// Per-skill match tiers.
const (
	exactMatchScore = 100.0
	matchedFloor    = 50.0 // lowest per-skill score that still counts as matched
)

// Experience policy constants. The 30 ("unknown" against a concrete
// requirement) and 95 (high experience against a preferred
// requirement) values are inherited calibration policy.
const (
	unknownExperienceScore  = 30.0
	preferredHighExperience = 95.0
	highExperienceYears     = 4.0
)

// Recommendation bands, lower edge inclusive.
const (
	excellentThreshold = 85.0
	goodThreshold      = 75.0
	fairThreshold      = 65.0
	belowThreshold     = 50.0
)

const (
	RecommendationExcellent = "Excellent Match - Highly Recommended"
	RecommendationGood      = "Good Match - Recommended with minor gaps"
	RecommendationFair      = "Fair Match - Consider with skill development plan"
	RecommendationBelow     = "Below Threshold - Significant gaps present"
	RecommendationPoor      = "Poor Match - Not recommended"
)

// relatedSkills scores recognized non-exact pairs: close variants in
// the same category land in 70-90, same-domain-different-tool pairs in
// 50-70. Closer variants score higher.
var relatedSkills = map[[2]string]float64{
	// Close variants, same category.
	pairKey("react", "angular"):            80,
	pairKey("react", "vue"):                80,
	pairKey("angular", "vue"):              75,
	pairKey("mysql", "postgresql"):         85,
	pairKey("mysql", "mariadb"):            90,
	pairKey("tensorflow", "pytorch"):       85,
	pairKey("java", "kotlin"):              85,
	pairKey("javascript", "typescript"):    90,
	pairKey("rest", "graphql"):             75,
	pairKey("jenkins", "github actions"):   80,
	pairKey("terraform", "ansible"):        70,
	// Same domain, different tool.
	pairKey("tableau", "power bi"):         70,
	pairKey("java", "c#"):                  65,
	pairKey("go", "rust"):                  60,
	pairKey("python", "ruby"):              60,
	pairKey("aws", "azure"):                60,
	pairKey("aws", "gcp"):                  60,
	pairKey("azure", "gcp"):                60,
	pairKey("docker", "kubernetes"):        65,
	pairKey("postgresql", "mongodb"):       55,
	pairKey("project management", "agile"): 60,
}

func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

// ScoreBreakdown is the scoring engine's full output.
type ScoreBreakdown struct {
	MatchPercentage   float64
	TechnicalScore    float64
	NonTechnicalScore float64
	ExperienceScore   float64
	MatchedSkills     []string
	MissingSkills     []string
	AdditionalSkills  []string
	Recommendation    string
	Degraded          bool
}

// ScoreSkills compares two classified skill sets and produces the
// weighted match percentage plus the categorized skill breakdown. It
// is a pure function: no I/O, no randomness.
//
// A JD skill counts as matched when its best per-skill score reaches
// the matched floor (any recognized relation); otherwise it is
// missing. This keeps matched and missing disjoint and together
// covering exactly the JD's required-skill set.
func ScoreSkills(resumeSkills, jdSkills []Skill) ScoreBreakdown {
	if len(jdSkills) == 0 {
		// Nothing to match against: a conservative zeroed result the
		// caller can still act on.
		return ScoreBreakdown{
			MatchedSkills:    []string{},
			MissingSkills:    []string{},
			AdditionalSkills: additionalSkills(resumeSkills, nil),
			Recommendation:   RecommendationPoor,
			Degraded:         true,
		}
	}

	resumeByName := make(map[string]Skill, len(resumeSkills))
	for _, s := range resumeSkills {
		resumeByName[NormalizeSkillName(s.Name)] = s
	}

	var (
		technicalScores    []float64
		nonTechnicalScores []float64
		experienceScores   []float64
		matched            []string
		missing            []string
		matchedSet         = make(map[string]struct{})
	)

	for _, jdSkill := range jdSkills {
		score, counterpart := bestSkillMatch(jdSkill, resumeSkills, resumeByName)

		if jdSkill.Class == SkillNonTechnical {
			nonTechnicalScores = append(nonTechnicalScores, score)
		} else {
			technicalScores = append(technicalScores, score)
		}

		if score >= matchedFloor {
			matched = append(matched, jdSkill.Name)
			matchedSet[NormalizeSkillName(jdSkill.Name)] = struct{}{}
			if counterpart != nil {
				experienceScores = append(experienceScores, experienceBand(counterpart.Experience, jdSkill.Experience.Requirement()))
			}
		} else {
			missing = append(missing, jdSkill.Name)
		}
	}

	technical := mean(technicalScores)
	nonTechnical := mean(nonTechnicalScores)
	experience := mean(experienceScores)

	// A bucket the JD has no skills in must not drag the score down;
	// its weight shifts to the populated bucket.
	wTech, wNonTech := technicalWeight, nonTechnicalWeight
	switch {
	case len(technicalScores) == 0 && len(nonTechnicalScores) > 0:
		wNonTech += wTech
		wTech = 0
	case len(nonTechnicalScores) == 0 && len(technicalScores) > 0:
		wTech += wNonTech
		wNonTech = 0
	}

	percentage := Round2(clamp(technical*wTech + nonTechnical*wNonTech + experience*experienceWeight))

	return ScoreBreakdown{
		MatchPercentage:   percentage,
		TechnicalScore:    Round2(technical),
		NonTechnicalScore: Round2(nonTechnical),
		ExperienceScore:   Round2(experience),
		MatchedSkills:     matched,
		MissingSkills:     missing,
		AdditionalSkills:  additionalSkills(resumeSkills, matchedResumeNames(jdSkills, resumeSkills, matchedSet)),
		Recommendation:    RecommendationFor(percentage),
	}
}

// WeightedScore combines the three sub-scores with the fixed 70/20/10
// weights. Exposed for recomputation by callers projecting score
// changes.
func WeightedScore(technical, nonTechnical, experience float64) float64 {
	return Round2(clamp(technical*technicalWeight + nonTechnical*nonTechnicalWeight + experience*experienceWeight))
}

// RecommendationFor maps a match percentage onto its band label.
func RecommendationFor(percentage float64) string {
	switch {
	case percentage >= excellentThreshold:
		return RecommendationExcellent
	case percentage >= goodThreshold:
		return RecommendationGood
	case percentage >= fairThreshold:
		return RecommendationFair
	case percentage >= belowThreshold:
		return RecommendationBelow
	default:
		return RecommendationPoor
	}
}

// bestSkillMatch finds the highest-scoring resume counterpart for a
// required skill using the four tier rule: exact name, close variant,
// same domain, no relation.
func bestSkillMatch(jdSkill Skill, resumeSkills []Skill, resumeByName map[string]Skill) (float64, *Skill) {
	jdName := NormalizeSkillName(jdSkill.Name)

	if counterpart, ok := resumeByName[jdName]; ok {
		return exactMatchScore, &counterpart
	}

	best := 0.0
	var bestSkill *Skill
	for i := range resumeSkills {
		score, ok := relatedSkills[pairKey(jdName, NormalizeSkillName(resumeSkills[i].Name))]
		if ok && score > best {
			best = score
			bestSkill = &resumeSkills[i]
		}
	}
	return best, bestSkill
}

// experienceBand maps a resume experience value against a JD
// requirement onto the banded scale.
func experienceBand(resume Experience, req Requirement) float64 {
	years, known := resume.ResumeYears()

	if req.Preferred && known && years >= highExperienceYears {
		return preferredHighExperience
	}
	if !known {
		// "Unknown" against a stated requirement: benefit of the doubt
		// instead of zero.
		return unknownExperienceScore
	}
	if !req.Concrete {
		if years > 0 {
			return 90
		}
		return 0
	}

	switch {
	case years >= req.MinYears+2:
		return 100
	case years >= req.MinYears:
		return 90
	case years >= 0.80*req.MinYears:
		return 70
	case years >= 0.50*req.MinYears:
		return 40
	case years >= 0.25*req.MinYears:
		return 20
	case years > 0:
		return 10
	default:
		return 0
	}
}

// matchedResumeNames collects the normalized resume-side names that
// participated in a match, including variant counterparts.
func matchedResumeNames(jdSkills, resumeSkills []Skill, matchedJD map[string]struct{}) map[string]struct{} {
	used := make(map[string]struct{})
	resumeByName := make(map[string]Skill, len(resumeSkills))
	for _, s := range resumeSkills {
		resumeByName[NormalizeSkillName(s.Name)] = s
	}
	for _, jd := range jdSkills {
		jdName := NormalizeSkillName(jd.Name)
		if _, ok := matchedJD[jdName]; !ok {
			continue
		}
		if _, ok := resumeByName[jdName]; ok {
			used[jdName] = struct{}{}
			continue
		}
		if _, counterpart := bestSkillMatch(jd, resumeSkills, resumeByName); counterpart != nil {
			used[NormalizeSkillName(counterpart.Name)] = struct{}{}
		}
	}
	return used
}

// additionalSkills lists resume skills that played no part in any
// match, sorted for stable output.
func additionalSkills(resumeSkills []Skill, used map[string]struct{}) []string {
	extra := []string{}
	for _, s := range resumeSkills {
		name := NormalizeSkillName(s.Name)
		if used != nil {
			if _, ok := used[name]; ok {
				continue
			}
		}
		extra = append(extra, name)
	}
	sort.Strings(extra)
	return extra
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func clamp(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
