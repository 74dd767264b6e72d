package pipeline

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

type SkillClass string

const (
	SkillTechnical    SkillClass = "Technical"
	SkillNonTechnical SkillClass = "Non-Technical"
)

// Skill is a single competency extracted from a resume or a job
// description. On the resume side Experience holds years; on the JD
// side it holds the stated requirement ("3+ years required",
// "Preferred", ...). Class is empty until the classification stage.
type Skill struct {
	Name          string     `json:"skill"`
	Experience    Experience `json:"years_of_experience"`
	Justification string     `json:"justification,omitempty"`
	Class         SkillClass `json:"skill_class,omitempty"`
}

// Experience is either a concrete number of years or the raw string
// the model produced ("Unknown", "3+ years required", "2-5 years").
// It marshals back to whichever form it was extracted as.
type Experience struct {
	Years float64
	Raw   string
}

func YearsOf(v float64) Experience {
	return Experience{Years: v}
}

func ExperienceOf(raw string) Experience {
	return Experience{Raw: raw}
}

func (e Experience) MarshalJSON() ([]byte, error) {
	if e.Raw != "" {
		return json.Marshal(e.Raw)
	}
	return json.Marshal(e.Years)
}

func (e *Experience) UnmarshalJSON(data []byte) error {
	var years float64
	if err := json.Unmarshal(data, &years); err == nil {
		*e = Experience{Years: years}
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Experience{Raw: strings.TrimSpace(raw)}
	return nil
}

// ResumeYears reports the concrete years of experience on the resume
// side. known is false for "Unknown" or any string with no number.
func (e Experience) ResumeYears() (years float64, known bool) {
	if e.Raw == "" {
		return e.Years, true
	}
	if e.IsUnknown() {
		return 0, false
	}
	if v, ok := firstNumber(e.Raw); ok {
		return v, true
	}
	return 0, false
}

func (e Experience) IsUnknown() bool {
	return strings.EqualFold(strings.TrimSpace(e.Raw), "unknown")
}

// Requirement is the JD side of an Experience value.
type Requirement struct {
	MinYears  float64
	Concrete  bool // a numeric requirement was stated
	Preferred bool // nice-to-have rather than must-have
}

var numberPattern = regexp.MustCompile(`\d+(\.\d+)?`)

// Requirement interprets a JD-side experience value. "3+ years
// required" yields {3, true, false}; "2-5 years" takes the lower
// bound; "Preferred" with no number yields {0, false, true}.
func (e Experience) Requirement() Requirement {
	req := Requirement{}
	raw := strings.ToLower(e.Raw)

	if e.Raw == "" {
		if e.Years > 0 {
			req.MinYears = e.Years
			req.Concrete = true
		}
		return req
	}

	if strings.Contains(raw, "prefer") || strings.Contains(raw, "nice to have") || strings.Contains(raw, "nice-to-have") {
		req.Preferred = true
	}
	if v, ok := firstNumber(raw); ok {
		req.MinYears = v
		req.Concrete = true
	}
	return req
}

func firstNumber(s string) (float64, bool) {
	match := numberPattern.FindString(s)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// skillAliases folds common spelling variants onto one canonical name
// so that uniqueness and exact matching work across documents.
var skillAliases = map[string]string{
	"js":                    "javascript",
	"reactjs":               "react",
	"react.js":              "react",
	"nodejs":                "node.js",
	"node":                  "node.js",
	"golang":                "go",
	"amazon web services":   "aws",
	"google cloud":          "gcp",
	"google cloud platform": "gcp",
	"microsoft azure":       "azure",
	"postgres":              "postgresql",
	"k8s":                   "kubernetes",
	"ml":                    "machine learning",
	"ci/cd":                 "continuous integration",
}

// NormalizeSkillName lowercases, collapses whitespace and resolves
// known aliases. Normalized names are the uniqueness key per side.
func NormalizeSkillName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.Join(strings.Fields(name), " ")
	if canonical, ok := skillAliases[name]; ok {
		return canonical
	}
	return name
}

// DedupeSkills drops skills with empty names and removes duplicates by
// normalized name, keeping the first occurrence.
func DedupeSkills(skills []Skill) []Skill {
	seen := make(map[string]struct{}, len(skills))
	out := make([]Skill, 0, len(skills))

	for _, s := range skills {
		normalized := NormalizeSkillName(s.Name)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		s.Name = normalized
		out = append(out, s)
	}
	return out
}
