package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"skillbridge/resume-matcher/internal/config"
	"skillbridge/resume-matcher/internal/models"
	"skillbridge/resume-matcher/internal/repositories"
	"skillbridge/resume-matcher/internal/services"
)

// Bulk-ingests a directory of PDFs as resumes or job descriptions:
// parses, persists document rows, and indexes the chunks into Qdrant.
func main() {
	dir := flag.String("dir", "./reference_docs", "directory of PDF files to ingest")
	docType := flag.String("type", models.DocTypeResume, "document type: resume or job_description")
	flag.Parse()

	if *docType != models.DocTypeResume && *docType != models.DocTypeJD {
		log.Fatalf("❌ Invalid document type: %s", *docType)
	}

	log.Println("🚀 Starting document ingestion...")

	cfg := config.Load()

	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}
	docRepo := repositories.NewDocumentRepository(db)

	geminiService, err := services.NewGeminiService(cfg.Gemini.APIKey, services.RetryPolicy{
		MaxRetries:   cfg.Pipeline.RetryMaxAttempts,
		InitialDelay: cfg.Pipeline.RetryInitialDelay,
	})
	if err != nil {
		log.Fatalf("❌ Failed to initialize Gemini: %v", err)
	}

	vectorStore, err := services.NewVectorStoreService(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
	)
	if err != nil {
		log.Fatalf("❌ Failed to initialize Qdrant: %v", err)
	}
	if err := vectorStore.InitCollection(); err != nil {
		log.Fatalf("❌ Failed to initialize collection: %v", err)
	}

	pdfParser := services.NewPDFParserService()
	chunker := services.NewTextChunker()

	entries, err := os.ReadDir(*dir)
	if err != nil {
		log.Fatalf("❌ Failed to read directory %s: %v", *dir, err)
	}

	ctx := context.Background()
	successCount := 0
	failCount := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		path := filepath.Join(*dir, entry.Name())

		log.Printf("📄 Processing %s", entry.Name())

		text, err := pdfParser.ExtractText(path)
		if err != nil {
			log.Printf("   ❌ Failed to extract text: %v", err)
			failCount++
			continue
		}

		doc := models.Document{
			ID:               uuid.New(),
			Filename:         entry.Name(),
			OriginalFileName: entry.Name(),
			DocType:          *docType,
			FilePath:         path,
			RawText:          text,
		}
		if err := docRepo.Create(&doc); err != nil {
			log.Printf("   ❌ Failed to save document record: %v", err)
			failCount++
			continue
		}

		chunks := chunker.ChunkText(text, services.DefaultChunkSize, services.DefaultChunkOverlap)
		log.Printf("   ✂️  Created %d chunks", len(chunks))

		embeddings, err := geminiService.GenerateEmbeddings(ctx, chunks)
		if err != nil {
			log.Printf("   ❌ Failed to embed chunks: %v", err)
			failCount++
			continue
		}

		if err := vectorStore.UpsertChunks(ctx, doc.ID.String(), *docType, chunks, embeddings); err != nil {
			log.Printf("   ❌ Failed to index chunks: %v", err)
			failCount++
			continue
		}

		log.Printf("   ✅ Ingested %s as %s (%s)", entry.Name(), *docType, doc.ID)
		successCount++
	}

	log.Println(strings.Repeat("=", 60))
	log.Printf("📊 Ingestion summary: %d succeeded, %d failed", successCount, failCount)
	log.Println(strings.Repeat("=", 60))

	if failCount > 0 {
		os.Exit(1)
	}
	log.Println("✅ All documents ingested successfully!")
}
