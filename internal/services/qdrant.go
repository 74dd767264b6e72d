package services

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Document kinds stored in the vector collection. They mirror the
// relational document types so a vector hit can be joined back.
const (
	VectorDocResume = "resume"
	VectorDocJD     = "job_description"
)

type VectorStoreService interface {
	InitCollection() error
	UpsertChunks(ctx context.Context, docID, docType string, chunks []string, embeddings [][]float32) error
	SearchSimilar(ctx context.Context, queryEmbedding []float32, docType string, limit int) ([]SimilarDocument, error)
	DeleteDocument(ctx context.Context, docID string) error
}

// SimilarDocument is one vector search hit, already reduced to the
// payload fields callers care about.
type SimilarDocument struct {
	DocID      string
	DocType    string
	ChunkIndex int
	Score      float32
	Text       string
}

type vectorStoreService struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
}

func NewVectorStoreService(urlStr, apiKey, collectionName string) (VectorStoreService, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// gRPC port, not the REST one.
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &vectorStoreService{
		client:         client,
		collectionName: collectionName,
		vectorSize:     EmbeddingDimension,
	}, nil
}

// InitCollection implements VectorStoreService.
func (v *vectorStoreService) InitCollection() error {
	ctx := context.Background()

	exists, err := v.client.CollectionExists(ctx, v.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		log.Println("✅ Qdrant collection already exists")
		return nil
	}

	err = v.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: v.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     v.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.Printf("✅ Qdrant collection '%s' created\n", v.collectionName)
	return nil
}

// UpsertChunks implements VectorStoreService. Each chunk becomes one
// point carrying the parent document ID so search hits can be joined
// back and stale points deleted together.
func (v *vectorStoreService) UpsertChunks(ctx context.Context, docID, docType string, chunks []string, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for i, chunk := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id:      newPointID(),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: qdrant.NewValueMap(map[string]interface{}{
				"doc_id":      docID,
				"doc_type":    docType,
				"chunk_index": i,
				"text":        chunk,
			}),
		})
	}

	if _, err := v.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: v.collectionName,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	log.Printf("✅ Upserted %d chunks for %s %s\n", len(points), docType, docID)
	return nil
}

// newPointID mints a fresh UUID point ID. Full 128-bit IDs keep
// concurrent uploads from colliding and overwriting each other's
// chunks.
func newPointID() *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.New().String())
}

// SearchSimilar implements VectorStoreService.
func (v *vectorStoreService) SearchSimilar(ctx context.Context, queryEmbedding []float32, docType string, limit int) ([]SimilarDocument, error) {
	var filter *qdrant.Filter
	if docType != "" {
		filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("doc_type", docType),
			},
		}
	}

	points, err := v.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: v.collectionName,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SimilarDocument, 0, len(points))
	for _, point := range points {
		results = append(results, SimilarDocument{
			DocID:      payloadString(point.Payload, "doc_id"),
			DocType:    payloadString(point.Payload, "doc_type"),
			ChunkIndex: payloadInt(point.Payload, "chunk_index"),
			Score:      point.Score,
			Text:       payloadString(point.Payload, "text"),
		})
	}
	return results, nil
}

// DeleteDocument implements VectorStoreService. Removes every chunk
// point belonging to the document.
func (v *vectorStoreService) DeleteDocument(ctx context.Context, docID string) error {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("doc_id", docID),
		},
	}

	if _, err := v.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: v.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: filter},
		},
	}); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		if s, ok := v.GetKind().(*qdrant.Value_StringValue); ok {
			return s.StringValue
		}
	}
	return ""
}

func payloadInt(payload map[string]*qdrant.Value, key string) int {
	if v, ok := payload[key]; ok {
		if n, ok := v.GetKind().(*qdrant.Value_IntegerValue); ok {
			return int(n.IntegerValue)
		}
	}
	return 0
}
