package models

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchStatusQueued     MatchStatus = "queued"
	MatchStatusProcessing MatchStatus = "processing"
	MatchStatusCompleted  MatchStatus = "completed"
	MatchStatusFailed     MatchStatus = "failed"
)

// MatchJob is one queued resume-vs-JD evaluation. Result fields stay
// NULL until the worker finishes; skill lists and the suggestion plan
// are stored as JSON text.
type MatchJob struct {
	ID           uuid.UUID   `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ResumeID     uuid.UUID   `gorm:"type:uuid;not null" json:"resume_id"`
	JDID         uuid.UUID   `gorm:"type:uuid;not null" json:"jd_id"`
	Status       MatchStatus `gorm:"not null;default:'queued'" json:"status"`

	MatchPercentage   *float64 `gorm:"type:decimal(5,2)" json:"match_percentage,omitempty"`
	TechnicalScore    *float64 `gorm:"type:decimal(5,2)" json:"technical_score,omitempty"`
	NonTechnicalScore *float64 `gorm:"type:decimal(5,2)" json:"non_technical_score,omitempty"`
	ExperienceScore   *float64 `gorm:"type:decimal(5,2)" json:"experience_score,omitempty"`
	MatchedSkills     *string  `gorm:"type:text" json:"-"`
	MissingSkills     *string  `gorm:"type:text" json:"-"`
	AdditionalSkills  *string  `gorm:"type:text" json:"-"`
	Recommendation    *string  `gorm:"type:text" json:"recommendation,omitempty"`
	Suggestions       *string  `gorm:"type:text" json:"-"`
	Degraded          bool     `gorm:"default:false" json:"degraded"`
	ErrorMessage      *string  `gorm:"type:text" json:"error_message,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	Resume Document `gorm:"foreignKey:ResumeID" json:"-"`
	JD     Document `gorm:"foreignKey:JDID" json:"-"`
}

func (MatchJob) TableName() string {
	return "match_jobs"
}
