package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExperienceUnmarshalNumberAndString(t *testing.T) {
	var s Skill
	require.NoError(t, json.Unmarshal([]byte(`{"skill":"Python","years_of_experience":5.5}`), &s))
	years, known := s.Experience.ResumeYears()
	assert.True(t, known)
	assert.Equal(t, 5.5, years)

	require.NoError(t, json.Unmarshal([]byte(`{"skill":"AWS","years_of_experience":"3+ years required"}`), &s))
	req := s.Experience.Requirement()
	assert.True(t, req.Concrete)
	assert.Equal(t, 3.0, req.MinYears)
	assert.False(t, req.Preferred)
}

func TestExperienceUnknown(t *testing.T) {
	e := ExperienceOf("Unknown")
	assert.True(t, e.IsUnknown())
	_, known := e.ResumeYears()
	assert.False(t, known)
}

func TestRequirementRangeTakesLowerBound(t *testing.T) {
	req := ExperienceOf("2-5 years").Requirement()
	assert.True(t, req.Concrete)
	assert.Equal(t, 2.0, req.MinYears)
}

func TestRequirementPreferredWithoutNumber(t *testing.T) {
	req := ExperienceOf("Preferred").Requirement()
	assert.True(t, req.Preferred)
	assert.False(t, req.Concrete)
}

func TestNormalizeSkillName(t *testing.T) {
	assert.Equal(t, "javascript", NormalizeSkillName("JS"))
	assert.Equal(t, "go", NormalizeSkillName("Golang"))
	assert.Equal(t, "aws", NormalizeSkillName("Amazon  Web   Services"))
	assert.Equal(t, "kubernetes", NormalizeSkillName(" K8s "))
	assert.Equal(t, "postgresql", NormalizeSkillName("Postgres"))
	assert.Equal(t, "machine learning", NormalizeSkillName("ML"))
}

func TestDedupeSkillsKeepsFirstOccurrence(t *testing.T) {
	skills := []Skill{
		{Name: "Python", Experience: YearsOf(5)},
		{Name: "python", Experience: YearsOf(1)},
		{Name: ""},
		{Name: "Golang", Experience: YearsOf(3)},
		{Name: "Go", Experience: YearsOf(2)},
	}

	out := DedupeSkills(skills)
	require.Len(t, out, 2)
	assert.Equal(t, "python", out[0].Name)
	years, _ := out[0].Experience.ResumeYears()
	assert.Equal(t, 5.0, years)
	assert.Equal(t, "go", out[1].Name)
}

func TestDedupeSkillsEmptyInput(t *testing.T) {
	out := DedupeSkills(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestExperienceMarshalRoundTrip(t *testing.T) {
	data, err := json.Marshal(Skill{Name: "Go", Experience: ExperienceOf("3+ years required")})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"3+ years required"`)

	data, err = json.Marshal(Skill{Name: "Go", Experience: YearsOf(4)})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"years_of_experience":4`)
}
