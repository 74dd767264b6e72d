package services

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/genai"
)

// EmbeddingDimension is the vector size of the embedding model. The
// Qdrant collections are created with the same size; a mismatch is a
// configuration fault, not something to paper over.
const EmbeddingDimension = 768

// Embedding inputs beyond this length get truncated before the call.
const maxEmbeddingInput = 40000

type GeminiService interface {
	GenerateText(ctx context.Context, prompt string, temperature float32) (string, error)
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

type geminiService struct {
	client     *genai.Client
	modelName  string
	embedModel string
	retry      RetryPolicy
}

// NewGeminiService builds the inference client every pipeline stage
// talks to. Retrying lives here so callers see only the final outcome.
func NewGeminiService(apiKey string, retry RetryPolicy) (GeminiService, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiService{
		client:     client,
		modelName:  "gemini-2.5-flash",
		embedModel: "text-embedding-004",
		retry:      retry.normalized(),
	}, nil
}

// GenerateText implements GeminiService.
func (g *geminiService) GenerateText(ctx context.Context, prompt string, temperature float32) (string, error) {
	return Retry(ctx, "gemini.generate_text", g.retry, func(ctx context.Context) (string, error) {
		config := &genai.GenerateContentConfig{
			Temperature:     &temperature,
			MaxOutputTokens: 8192,
		}

		resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), config)
		if err != nil {
			return "", fmt.Errorf("failed to generate text: %w", err)
		}
		if resp == nil {
			return "", fmt.Errorf("no response generated (nil response)")
		}

		text := resp.Text()
		if text == "" {
			// An empty candidate is usually a transient generation
			// hiccup; let the retry budget absorb it.
			log.Printf("❌ Gemini returned no text content\n")
			return "", fmt.Errorf("no text content in response")
		}
		return text, nil
	})
}

// GenerateEmbedding implements GeminiService.
func (g *geminiService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return Retry(ctx, "gemini.generate_embedding", g.retry, func(ctx context.Context) ([]float32, error) {
		return g.embedContent(ctx, text)
	})
}

// GenerateEmbeddings implements GeminiService. Each text is retried
// independently with bounded concurrency; the first failing input
// fails the whole batch since a partial embedding set cannot be
// indexed.
func (g *geminiService) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	results, errs := RetryEach(ctx, "gemini.generate_embedding", g.retry, DefaultMaxInFlight, texts, g.embedContent)
	if i, err := firstError(errs); err != nil {
		return nil, fmt.Errorf("embedding input %d: %w", i, err)
	}
	return results, nil
}

// embedContent performs one embedding round-trip without retrying;
// the callers above own the retry policy.
func (g *geminiService) embedContent(ctx context.Context, text string) ([]float32, error) {
	if len(text) > maxEmbeddingInput {
		text = text[:maxEmbeddingInput]
	}

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if result == nil || len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}

	values := result.Embeddings[0].Values
	if len(values) != EmbeddingDimension {
		return nil, fmt.Errorf("unexpected embedding dimension %d, want %d", len(values), EmbeddingDimension)
	}
	return values, nil
}
