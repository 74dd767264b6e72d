package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"skillbridge/resume-matcher/internal/models"
	"skillbridge/resume-matcher/internal/repositories"
	"skillbridge/resume-matcher/internal/services"
)

type MatchHandler struct {
	matchRepo repositories.MatchRepository
	docRepo   repositories.DocumentRepository
	matcher   services.MatcherService
	worker    services.Worker
}

func NewMatchHandler(
	matchRepo repositories.MatchRepository,
	docRepo repositories.DocumentRepository,
	matcher services.MatcherService,
	worker services.Worker,
) *MatchHandler {
	return &MatchHandler{
		matchRepo: matchRepo,
		docRepo:   docRepo,
		matcher:   matcher,
		worker:    worker,
	}
}

// HandleMatch handles POST /match. Queues one resume-vs-JD evaluation
// and returns the job ID immediately.
func (h *MatchHandler) HandleMatch(c *fiber.Ctx) error {
	var req models.MatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if req.ResumeID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "resume_id is required",
		})
	}
	if req.JDID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "jd_id is required",
		})
	}

	resumeID, err := uuid.Parse(req.ResumeID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid resume_id format",
		})
	}
	jdID, err := uuid.Parse(req.JDID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid jd_id format",
		})
	}

	resume, err := h.docRepo.FindByID(resumeID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Resume document not found",
		})
	}
	if resume.DocType != models.DocTypeResume {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "resume_id does not refer to a resume",
		})
	}

	jd, err := h.docRepo.FindByID(jdID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Job description document not found",
		})
	}
	if jd.DocType != models.DocTypeJD {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "jd_id does not refer to a job description",
		})
	}

	job := &models.MatchJob{
		ID:        uuid.New(),
		ResumeID:  resumeID,
		JDID:      jdID,
		Status:    models.MatchStatusQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := h.matchRepo.Create(job); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create match job",
		})
	}

	h.worker.EnqueueJob(job.ID)

	return c.Status(fiber.StatusAccepted).JSON(models.MatchResponse{
		ID:     job.ID.String(),
		Status: string(models.MatchStatusQueued),
	})
}

// HandleBatchMatch handles POST /match/batch. Runs several resumes
// against one JD synchronously and returns the categorized results.
func (h *MatchHandler) HandleBatchMatch(c *fiber.Ctx) error {
	var req models.BatchMatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if len(req.ResumeIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "resume_ids must not be empty",
		})
	}

	jdID, err := uuid.Parse(req.JDID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid jd_id format",
		})
	}

	resumeIDs := make([]uuid.UUID, 0, len(req.ResumeIDs))
	for _, raw := range req.ResumeIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid resume ID format: " + raw,
			})
		}
		resumeIDs = append(resumeIDs, id)
	}

	result, err := h.matcher.MatchBatch(c.Context(), resumeIDs, jdID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(result)
}
