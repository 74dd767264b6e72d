package handlers

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"skillbridge/resume-matcher/internal/models"
	"skillbridge/resume-matcher/internal/repositories"
	"skillbridge/resume-matcher/internal/services"
)

type UploadHandler struct {
	docRepo        repositories.DocumentRepository
	storageService services.StorageService
	pdfParser      services.PDFParserService
	gemini         services.GeminiService
	vectorStore    services.VectorStoreService
	chunker        services.TextChunker
	maxFileSize    int64
}

func NewUploadHandler(
	docRepo repositories.DocumentRepository,
	storageService services.StorageService,
	pdfParser services.PDFParserService,
	gemini services.GeminiService,
	vectorStore services.VectorStoreService,
	chunker services.TextChunker,
	maxFileSize int64,
) *UploadHandler {
	return &UploadHandler{
		docRepo:        docRepo,
		storageService: storageService,
		pdfParser:      pdfParser,
		gemini:         gemini,
		vectorStore:    vectorStore,
		chunker:        chunker,
		maxFileSize:    maxFileSize,
	}
}

// HandleUpload handles POST /upload. Accepts "resume" and/or
// "job_description" PDF form fields; each file is parsed, persisted
// and indexed into the vector store.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to parse multipart form",
		})
	}

	var responses []models.UploadResponse

	for field, docType := range map[string]string{
		"resume":          models.DocTypeResume,
		"job_description": models.DocTypeJD,
	} {
		files, exists := form.File[field]
		if !exists || len(files) == 0 {
			continue
		}

		resp, status, err := h.ingestFile(c.Context(), files[0], docType)
		if err != nil {
			return c.Status(status).JSON(fiber.Map{"error": err.Error()})
		}
		responses = append(responses, *resp)
	}

	if len(responses) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No valid files uploaded. Please upload 'resume' and/or 'job_description' as PDF files.",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":   "Files uploaded successfully",
		"documents": responses,
	})
}

func (h *UploadHandler) ingestFile(ctx context.Context, file *multipart.FileHeader, docType string) (*models.UploadResponse, int, error) {
	if file.Size > h.maxFileSize {
		return nil, fiber.StatusBadRequest, fmt.Errorf("%s file too large, max size: %d bytes", docType, h.maxFileSize)
	}

	filename, filePath, err := h.storageService.SaveFile(file, docType)
	if err != nil {
		return nil, fiber.StatusInternalServerError, fmt.Errorf("failed to save %s file: %w", docType, err)
	}

	rawText, err := h.pdfParser.ExtractText(filePath)
	if err != nil {
		h.storageService.DeleteFile(filename)
		return nil, fiber.StatusBadRequest, fmt.Errorf("failed to extract text from %s: %w", docType, err)
	}

	doc := models.Document{
		ID:               uuid.New(),
		Filename:         filename,
		OriginalFileName: file.Filename,
		DocType:          docType,
		FilePath:         filePath,
		RawText:          rawText,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	if err := h.docRepo.Create(&doc); err != nil {
		h.storageService.DeleteFile(filename)
		return nil, fiber.StatusInternalServerError, fmt.Errorf("failed to save %s document record: %w", docType, err)
	}

	// Vector indexing powers similarity search only; the matching
	// pipeline reads the raw text, so an indexing failure is not fatal
	// to the upload.
	if err := h.indexDocument(ctx, doc.ID.String(), docType, rawText); err != nil {
		log.Printf("⚠️  Failed to index document %s: %v\n", doc.ID, err)
	}

	return &models.UploadResponse{
		ID:           doc.ID.String(),
		Filename:     doc.Filename,
		OriginalName: doc.OriginalFileName,
		DocType:      doc.DocType,
	}, 0, nil
}

func (h *UploadHandler) indexDocument(ctx context.Context, docID, docType, text string) error {
	chunks := h.chunker.ChunkText(text, services.DefaultChunkSize, services.DefaultChunkOverlap)
	if len(chunks) == 0 {
		return nil
	}

	embeddings, err := h.gemini.GenerateEmbeddings(ctx, chunks)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}

	return h.vectorStore.UpsertChunks(ctx, docID, docType, chunks, embeddings)
}
