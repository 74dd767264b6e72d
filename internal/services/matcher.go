package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"

	"skillbridge/resume-matcher/internal/models"
	"skillbridge/resume-matcher/internal/pipeline"
	"skillbridge/resume-matcher/internal/repositories"
)

type MatcherService interface {
	ProcessMatchJob(ctx context.Context, jobID uuid.UUID) error
	MatchBatch(ctx context.Context, resumeIDs []uuid.UUID, jdID uuid.UUID) (*models.BatchMatchResponse, error)
	SimilarResumes(ctx context.Context, queryText string, limit int) ([]models.SimilarResumeResponse, error)
}

type matcherService struct {
	matchRepo   repositories.MatchRepository
	docRepo     repositories.DocumentRepository
	gemini      GeminiService
	vectorStore VectorStoreService
	pdfParser   PDFParserService
	runner      *pipeline.Runner
}

func NewMatcherService(
	matchRepo repositories.MatchRepository,
	docRepo repositories.DocumentRepository,
	gemini GeminiService,
	vectorStore VectorStoreService,
	pdfParser PDFParserService,
	runner *pipeline.Runner,
) MatcherService {
	return &matcherService{
		matchRepo:   matchRepo,
		docRepo:     docRepo,
		gemini:      gemini,
		vectorStore: vectorStore,
		pdfParser:   pdfParser,
		runner:      runner,
	}
}

// ProcessMatchJob runs the matching pipeline for one queued job and
// persists the outcome. Called by the background worker.
func (m *matcherService) ProcessMatchJob(ctx context.Context, jobID uuid.UUID) error {
	if err := m.matchRepo.UpdateStatus(jobID, models.MatchStatusProcessing); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	log.Printf("🔄 Starting match job %s\n", jobID)

	job, err := m.matchRepo.FindByID(jobID)
	if err != nil {
		m.matchRepo.UpdateError(jobID, err.Error())
		return fmt.Errorf("failed to get match job: %w", err)
	}

	input, err := m.loadMatchInput(job.ResumeID, job.JDID)
	if err != nil {
		m.matchRepo.UpdateError(jobID, err.Error())
		return err
	}

	result, err := m.runner.RunSingle(ctx, *input)
	if err != nil {
		m.matchRepo.UpdateError(jobID, err.Error())
		return fmt.Errorf("pipeline failed: %w", err)
	}

	data, err := matchResultData(result)
	if err != nil {
		m.matchRepo.UpdateError(jobID, err.Error())
		return err
	}
	if err := m.matchRepo.UpdateResult(jobID, data); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	log.Printf("✅ Match job %s completed: %.2f%%\n", jobID, result.MatchPercentage)
	return nil
}

// MatchBatch evaluates several resumes against one job description
// synchronously and buckets the outcomes by match strength.
func (m *matcherService) MatchBatch(ctx context.Context, resumeIDs []uuid.UUID, jdID uuid.UUID) (*models.BatchMatchResponse, error) {
	jd, err := m.docRepo.FindByID(jdID)
	if err != nil {
		return nil, fmt.Errorf("failed to get job description: %w", err)
	}
	jdText, err := m.documentText(jd)
	if err != nil {
		return nil, err
	}

	inputs := make([]pipeline.MatchInput, 0, len(resumeIDs))
	for _, resumeID := range resumeIDs {
		resume, err := m.docRepo.FindByID(resumeID)
		if err != nil {
			return nil, fmt.Errorf("failed to get resume %s: %w", resumeID, err)
		}
		resumeText, err := m.documentText(resume)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, pipeline.MatchInput{
			ResumeID:   resumeID.String(),
			JDID:       jdID.String(),
			ResumeText: resumeText,
			JDText:     jdText,
		})
	}

	summary := m.runner.RunBatch(ctx, inputs)

	return &models.BatchMatchResponse{
		JDID:             jdID.String(),
		HighMatches:      summary.HighMatches,
		CloseMatches:     summary.CloseMatches,
		LowMatches:       summary.LowMatches,
		Failed:           summary.Failed,
		AverageMatch:     summary.AverageMatch,
		ProcessingTimeMS: summary.ProcessingTime.Milliseconds(),
	}, nil
}

// SimilarResumes embeds the query and searches the vector collection
// for the closest resume chunks.
func (m *matcherService) SimilarResumes(ctx context.Context, queryText string, limit int) ([]models.SimilarResumeResponse, error) {
	embedding, err := m.gemini.GenerateEmbedding(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := m.vectorStore.SearchSimilar(ctx, embedding, VectorDocResume, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search resumes: %w", err)
	}

	results := make([]models.SimilarResumeResponse, 0, len(hits))
	for _, hit := range hits {
		results = append(results, models.SimilarResumeResponse{
			DocID: hit.DocID,
			Score: hit.Score,
			Text:  hit.Text,
		})
	}
	return results, nil
}

func (m *matcherService) loadMatchInput(resumeID, jdID uuid.UUID) (*pipeline.MatchInput, error) {
	docs, err := m.docRepo.FindByIDs([]uuid.UUID{resumeID, jdID})
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	var resume, jd *models.Document
	for i := range docs {
		switch docs[i].ID {
		case resumeID:
			resume = &docs[i]
		case jdID:
			jd = &docs[i]
		}
	}
	if resume == nil {
		return nil, fmt.Errorf("resume %s not found", resumeID)
	}
	if jd == nil {
		return nil, fmt.Errorf("job description %s not found", jdID)
	}

	resumeText, err := m.documentText(resume)
	if err != nil {
		return nil, err
	}
	jdText, err := m.documentText(jd)
	if err != nil {
		return nil, err
	}

	return &pipeline.MatchInput{
		ResumeID:   resumeID.String(),
		JDID:       jdID.String(),
		ResumeText: resumeText,
		JDText:     jdText,
	}, nil
}

// documentText returns the persisted extraction, falling back to a
// fresh PDF parse for rows ingested before raw text was stored.
func (m *matcherService) documentText(doc *models.Document) (string, error) {
	if doc.RawText != "" {
		return doc.RawText, nil
	}

	log.Printf("📄 Re-parsing PDF for document %s\n", doc.ID)
	text, err := m.pdfParser.ExtractText(doc.FilePath)
	if err != nil {
		return "", fmt.Errorf("failed to parse document %s: %w", doc.ID, err)
	}
	return text, nil
}

func matchResultData(result *pipeline.MatchResult) (*repositories.MatchResultData, error) {
	matched, err := json.Marshal(result.MatchedSkills)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize matched skills: %w", err)
	}
	missing, err := json.Marshal(result.MissingSkills)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize missing skills: %w", err)
	}
	additional, err := json.Marshal(result.AdditionalSkills)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize additional skills: %w", err)
	}

	data := &repositories.MatchResultData{
		MatchPercentage:   &result.MatchPercentage,
		TechnicalScore:    &result.TechnicalScore,
		NonTechnicalScore: &result.NonTechnicalScore,
		ExperienceScore:   &result.ExperienceScore,
		MatchedSkills:     ptr(string(matched)),
		MissingSkills:     ptr(string(missing)),
		AdditionalSkills:  ptr(string(additional)),
		Recommendation:    &result.Recommendation,
		Degraded:          result.Degraded,
	}

	if result.Suggestions != nil {
		plan, err := json.Marshal(result.Suggestions)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize suggestion plan: %w", err)
		}
		data.Suggestions = ptr(string(plan))
	}
	return data, nil
}

func ptr[T any](v T) *T {
	return &v
}
