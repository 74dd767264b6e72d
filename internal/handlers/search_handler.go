package handlers

import (
	"github.com/gofiber/fiber/v2"

	"skillbridge/resume-matcher/internal/services"
)

type SearchHandler struct {
	matcher services.MatcherService
}

func NewSearchHandler(matcher services.MatcherService) *SearchHandler {
	return &SearchHandler{
		matcher: matcher,
	}
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// HandleSearchResumes handles POST /search/resumes. Finds resumes
// whose content is semantically closest to a free text query, e.g. a
// pasted job description.
func (h *SearchHandler) HandleSearchResumes(c *fiber.Ctx) error {
	var req searchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "query is required",
		})
	}
	if req.Limit <= 0 || req.Limit > 50 {
		req.Limit = 10
	}

	results, err := h.matcher.SimilarResumes(c.Context(), req.Query, req.Limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"results": results,
	})
}
