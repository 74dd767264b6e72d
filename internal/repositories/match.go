package repositories

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"skillbridge/resume-matcher/internal/models"
)

type MatchRepository interface {
	Create(job *models.MatchJob) error
	FindByID(id uuid.UUID) (*models.MatchJob, error)
	UpdateStatus(id uuid.UUID, status models.MatchStatus) error
	UpdateResult(id uuid.UUID, data *MatchResultData) error
	UpdateError(id uuid.UUID, errorMsg string) error
	FindPendingJobs(limit int) ([]models.MatchJob, error)
}

// MatchResultData carries the worker's outcome into the job row. nil
// fields are left untouched.
type MatchResultData struct {
	MatchPercentage   *float64
	TechnicalScore    *float64
	NonTechnicalScore *float64
	ExperienceScore   *float64
	MatchedSkills     *string
	MissingSkills     *string
	AdditionalSkills  *string
	Recommendation    *string
	Suggestions       *string
	Degraded          bool
}

type matchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(db *gorm.DB) MatchRepository {
	return &matchRepository{db: db}
}

func (r *matchRepository) Create(job *models.MatchJob) error {
	if err := r.db.Create(job).Error; err != nil {
		return fmt.Errorf("failed to create match job: %w", err)
	}
	return nil
}

func (r *matchRepository) FindByID(id uuid.UUID) (*models.MatchJob, error) {
	var job models.MatchJob
	if err := r.db.Where("id = ?", id).First(&job).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("match job not found")
		}
		return nil, fmt.Errorf("failed to find match job: %w", err)
	}
	return &job, nil
}

func (r *matchRepository) UpdateStatus(id uuid.UUID, status models.MatchStatus) error {
	result := r.db.Model(&models.MatchJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("match job not found")
	}
	return nil
}

func (r *matchRepository) UpdateResult(id uuid.UUID, data *MatchResultData) error {
	updates := map[string]interface{}{
		"status":     models.MatchStatusCompleted,
		"degraded":   data.Degraded,
		"updated_at": time.Now(),
	}

	if data.MatchPercentage != nil {
		updates["match_percentage"] = *data.MatchPercentage
	}
	if data.TechnicalScore != nil {
		updates["technical_score"] = *data.TechnicalScore
	}
	if data.NonTechnicalScore != nil {
		updates["non_technical_score"] = *data.NonTechnicalScore
	}
	if data.ExperienceScore != nil {
		updates["experience_score"] = *data.ExperienceScore
	}
	if data.MatchedSkills != nil {
		updates["matched_skills"] = *data.MatchedSkills
	}
	if data.MissingSkills != nil {
		updates["missing_skills"] = *data.MissingSkills
	}
	if data.AdditionalSkills != nil {
		updates["additional_skills"] = *data.AdditionalSkills
	}
	if data.Recommendation != nil {
		updates["recommendation"] = *data.Recommendation
	}
	if data.Suggestions != nil {
		updates["suggestions"] = *data.Suggestions
	}

	result := r.db.Model(&models.MatchJob{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update result: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("match job not found")
	}
	return nil
}

func (r *matchRepository) UpdateError(id uuid.UUID, errorMsg string) error {
	result := r.db.Model(&models.MatchJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.MatchStatusFailed,
			"error_message": errorMsg,
			"updated_at":    time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update error: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("match job not found")
	}
	return nil
}

func (r *matchRepository) FindPendingJobs(limit int) ([]models.MatchJob, error) {
	var jobs []models.MatchJob
	err := r.db.
		Where("status = ?", models.MatchStatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find pending jobs: %w", err)
	}
	return jobs, nil
}
