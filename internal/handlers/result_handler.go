package handlers

import (
	"encoding/json"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"skillbridge/resume-matcher/internal/models"
	"skillbridge/resume-matcher/internal/pipeline"
	"skillbridge/resume-matcher/internal/repositories"
)

type ResultHandler struct {
	matchRepo repositories.MatchRepository
}

func NewResultHandler(matchRepo repositories.MatchRepository) *ResultHandler {
	return &ResultHandler{
		matchRepo: matchRepo,
	}
}

// HandleGetResult handles GET /result/:id.
func (h *ResultHandler) HandleGetResult(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid match job ID format",
		})
	}

	job, err := h.matchRepo.FindByID(jobID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Match job not found",
		})
	}

	response := models.ResultResponse{
		ID:     job.ID.String(),
		Status: string(job.Status),
	}

	if job.Status == models.MatchStatusCompleted {
		response.Result = resultFromJob(job)
	}
	if job.Status == models.MatchStatusFailed {
		response.ErrorMessage = job.ErrorMessage
	}

	return c.JSON(response)
}

// resultFromJob reconstructs the pipeline result from the persisted
// row. JSON columns that fail to decode are logged and left empty
// rather than failing the read.
func resultFromJob(job *models.MatchJob) *pipeline.MatchResult {
	result := &pipeline.MatchResult{
		ResumeID:         job.ResumeID.String(),
		JDID:             job.JDID.String(),
		MatchedSkills:    []string{},
		MissingSkills:    []string{},
		AdditionalSkills: []string{},
		Degraded:         job.Degraded,
		ProcessedAt:      job.UpdatedAt,
	}

	if job.MatchPercentage != nil {
		result.MatchPercentage = *job.MatchPercentage
	}
	if job.TechnicalScore != nil {
		result.TechnicalScore = *job.TechnicalScore
	}
	if job.NonTechnicalScore != nil {
		result.NonTechnicalScore = *job.NonTechnicalScore
	}
	if job.ExperienceScore != nil {
		result.ExperienceScore = *job.ExperienceScore
	}
	if job.Recommendation != nil {
		result.Recommendation = *job.Recommendation
	}

	decodeColumn(job.ID, "matched_skills", job.MatchedSkills, &result.MatchedSkills)
	decodeColumn(job.ID, "missing_skills", job.MissingSkills, &result.MissingSkills)
	decodeColumn(job.ID, "additional_skills", job.AdditionalSkills, &result.AdditionalSkills)

	if job.Suggestions != nil {
		var plan pipeline.SuggestionPlan
		if err := json.Unmarshal([]byte(*job.Suggestions), &plan); err != nil {
			log.Printf("⚠️  Failed to decode suggestions for job %s: %v\n", job.ID, err)
		} else {
			result.Suggestions = &plan
		}
	}

	return result
}

func decodeColumn(jobID uuid.UUID, name string, raw *string, target *[]string) {
	if raw == nil {
		return
	}
	if err := json.Unmarshal([]byte(*raw), target); err != nil {
		log.Printf("⚠️  Failed to decode %s for job %s: %v\n", name, jobID, err)
	}
}
