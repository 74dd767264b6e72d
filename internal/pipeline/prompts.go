package pipeline

import (
	"fmt"
	"strings"
)

// PromptBuilder renders the prompts the extraction, classification and
// suggestion stages send to the LLM. Prompt wording is not part of the
// pipeline contract; only the JSON shapes it requests are.
type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildSkillExtractionPrompt asks for every skill explicitly mentioned
// in a resume or job description, with an experience value and a
// justification per skill.
func (pb *PromptBuilder) BuildSkillExtractionPrompt(documentText, documentType string) string {
	return fmt.Sprintf(`You are an expert skills extraction specialist analyzing a %s.

Extract EVERY skill explicitly mentioned in the document: programming languages, frameworks, databases, cloud platforms, DevOps tools, methodologies, certifications, and soft skills (soft skills only if explicitly stated).

Experience rules:
- For resumes: compute years of experience from explicit statements or employment timelines. Use a number (e.g. 5.5). If no timeline can be established, use the string "Unknown".
- For job descriptions: keep the requirement as stated, e.g. "3+ years required", "2-5 years", "Preferred", "Experience required".

Normalization: fold variants onto one name ("JS" -> "JavaScript", "Amazon Web Services" -> "AWS"). No duplicate skills.

Return ONLY a valid JSON array, no commentary:
[
  {"skill": "Python", "years_of_experience": 5.5, "justification": "3 years at ABC Corp (2020-2022) plus 2.5 years at XYZ Inc, used for backend development"},
  {"skill": "AWS", "years_of_experience": "3+ years required", "justification": "Listed under Required Qualifications"}
]

DOCUMENT TYPE: %s

DOCUMENT:
%s`, documentType, strings.ToUpper(documentType), documentText)
}

// BuildSkillClassificationPrompt asks for the same array back with a
// skill_class added to each entry.
func (pb *PromptBuilder) BuildSkillClassificationPrompt(skillsJSON string) string {
	return fmt.Sprintf(`You are a skills taxonomy classifier.

Classify each skill in the JSON array below as "Technical" or "Non-Technical" by adding a "skill_class" key to each entry.

Technical: programming languages, frameworks, databases, cloud platforms, DevOps and engineering tools, data/analytics tools, security, mobile, testing, APIs, and any hybrid skill with a technical component (e.g. "Data Analysis").
Non-Technical: communication, leadership, teamwork, time management, sales, customer service, languages, and tools for non-technical work (e.g. "Microsoft Word").

Preserve every existing key and value exactly; add ONLY skill_class. Return ONLY the valid JSON array, no commentary.

INPUT SKILLS:
%s`, skillsJSON)
}

// BuildSuggestionPrompt asks for a prioritized gap analysis and a
// phased improvement roadmap for a below-threshold match.
func (pb *PromptBuilder) BuildSuggestionPrompt(resumeSkillsJSON, jdSkillsJSON string, missingSkills []string, matchPercentage float64) string {
	return fmt.Sprintf(`You are a senior career development advisor. A candidate matched %.2f%% against a job description (target: 80%%+). Recommend how to close the gap.

CANDIDATE SKILLS:
%s

JOB REQUIREMENTS:
%s

MISSING SKILLS: %s

For each missing skill assess criticality ("critical", "important" or "enhancement"), learning difficulty ("easy", "moderate" or "difficult") and a realistic time to proficiency (e.g. "6-8 weeks"). Then lay out a three phase roadmap: quick_wins (1-3 months), core_development (3-6 months), mastery (6-12 months). All projected percentages are estimates, not guarantees.

Return ONLY a valid JSON object, no commentary:
{
  "gaps": [
    {"skill": "Kubernetes", "criticality": "critical", "learning_difficulty": "moderate", "time_to_proficiency": "2-3 months", "reason": "Core deployment technology for the role", "learning_path": ["CKA course", "Deploy a sample cluster"]}
  ],
  "roadmap": [
    {"phase": "quick_wins", "duration": "1-3 months", "focus_skills": ["Docker"], "projected_match_gain": 6.0},
    {"phase": "core_development", "duration": "3-6 months", "focus_skills": ["Kubernetes"], "projected_match_gain": 9.0},
    {"phase": "mastery", "duration": "6-12 months", "focus_skills": ["Cloud architecture"], "projected_match_gain": 4.0}
  ],
  "projected_match_trajectory": {"three_month": 72.0, "six_month": 81.0, "twelve_month": 85.0}
}`, matchPercentage, resumeSkillsJSON, jdSkillsJSON, strings.Join(missingSkills, ", "))
}

// ExtractJSON strips markdown fences and surrounding prose from a
// model response, keeping the outermost JSON object or array.
func ExtractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	startObj := strings.Index(text, "{")
	endObj := strings.LastIndex(text, "}")
	startArr := strings.Index(text, "[")
	endArr := strings.LastIndex(text, "]")

	// Prefer whichever structure opens first so an array of objects is
	// not truncated to its first element.
	switch {
	case startArr != -1 && endArr > startArr && (startObj == -1 || startArr < startObj):
		return text[startArr : endArr+1]
	case startObj != -1 && endObj > startObj:
		return text[startObj : endObj+1]
	}
	return strings.TrimSpace(text)
}
