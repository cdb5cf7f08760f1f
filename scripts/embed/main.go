// embed computes embeddings for verses that do not have one yet, stores them in the
// pgvector column and, when an index is given, upserts them into Vertex AI Vector Search.
//
// Environment variables:
//
//	POSTGRES_URI        - PostgreSQL connection string
//	EMBEDDING_PROVIDER  - vertex or custom
//	VERTEX_PROJECT_ID   - GCP project that owns the index (with -vertex-index)
//	VERTEX_LOCATION     - Region (default: us-central1)
//
// Usage:
//
//	go run ./scripts/embed [-batch 50] [-vertex-index INDEX_ID]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	aiplatformpb "cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"github.com/joho/godotenv"
	"github.com/sola-scriptura-chat-api/internal/config"
	"github.com/sola-scriptura-chat-api/internal/models"
	"github.com/sola-scriptura-chat-api/internal/repository/postgres"
	"github.com/sola-scriptura-chat-api/internal/repository/vertex"
	schemaconfig "github.com/sola-scriptura-chat-api/pkg/schema/config"
	"github.com/sola-scriptura-chat-api/pkg/schema/db"
	pkgservices "github.com/sola-scriptura-chat-api/pkg/schema/services"
	"google.golang.org/api/option"
)

// Namespace for the book restrict, alongside vertex.TranslationNamespace
const bookNamespace = "book"

func main() {
	batchSize := flag.Int("batch", 50, "Verses embedded per request")
	indexID := flag.String("vertex-index", "", "Vertex AI index to upsert into (optional)")
	flag.Parse()

	_ = godotenv.Load()

	if err := schemaconfig.LoadError(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if err := config.LoadError(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	cfg := config.GetConfig()

	ctx := context.Background()
	conn, err := db.Open(ctx, schemaconfig.GetConfig().PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	embeddings, err := pkgservices.NewEmbeddingsService(ctx, schemaconfig.GetConfig())
	if err != nil {
		log.Fatalf("Failed to initialize embeddings service: %v", err)
	}
	if embeddings == nil {
		log.Fatal("EMBEDDING_PROVIDER is none; set it to vertex or custom")
	}
	defer embeddings.Close()

	var (
		indexClient *aiplatform.IndexClient
		indexName   string
	)
	if *indexID != "" {
		if cfg.VertexProjectID == "" {
			log.Fatal("VERTEX_PROJECT_ID is required with -vertex-index")
		}
		endpoint := fmt.Sprintf("%s-aiplatform.googleapis.com:443", cfg.VertexLocation)
		indexClient, err = aiplatform.NewIndexClient(ctx, option.WithEndpoint(endpoint))
		if err != nil {
			log.Fatalf("Failed to create index client: %v", err)
		}
		defer indexClient.Close()
		indexName = fmt.Sprintf("projects/%s/locations/%s/indexes/%s", cfg.VertexProjectID, cfg.VertexLocation, *indexID)
		log.Printf("Upserting embeddings to index: %s", indexName)
	}

	verseRepo := postgres.NewVerseRepository(conn)

	var afterID int64
	total, batches := 0, 0
	for {
		verses, err := verseRepo.ListWithoutEmbedding(ctx, afterID, *batchSize)
		if err != nil {
			log.Fatalf("Failed to list verses: %v", err)
		}
		if len(verses) == 0 {
			break
		}
		afterID = verses[len(verses)-1].ID

		texts := make([]string, len(verses))
		for i, v := range verses {
			texts[i] = v.Text
		}
		vectors, err := embeddings.EmbedVerses(ctx, texts)
		if err != nil {
			log.Fatalf("Failed to embed verses after id %d: %v", afterID, err)
		}
		if len(vectors) != len(verses) {
			log.Fatalf("Embedder returned %d vectors for %d verses", len(vectors), len(verses))
		}

		for i, v := range verses {
			if err := verseRepo.SetEmbedding(ctx, v.ID, vectors[i]); err != nil {
				log.Fatalf("Failed to store embedding for %s: %v", v.Ref(), err)
			}
		}

		if indexClient != nil {
			if err := upsertBatch(ctx, indexClient, indexName, verses, vectors); err != nil {
				log.Fatalf("Failed to upsert batch: %v", err)
			}
		}

		total += len(verses)
		batches++
		log.Printf("Embedded batch %d (%d verses total)", batches, total)
	}

	log.Printf("Successfully embedded %d verses", total)
}

// upsertBatch sends one batch of datapoints keyed by verse id, restricted by translation
// and book
func upsertBatch(ctx context.Context, client *aiplatform.IndexClient, indexName string, verses []models.Verse, vectors [][]float64) error {
	datapoints := make([]*aiplatformpb.IndexDatapoint, len(verses))
	for i, v := range verses {
		datapoints[i] = &aiplatformpb.IndexDatapoint{
			DatapointId:   strconv.FormatInt(v.ID, 10),
			FeatureVector: toFloat32(vectors[i]),
			Restricts: []*aiplatformpb.IndexDatapoint_Restriction{
				{Namespace: vertex.TranslationNamespace, AllowList: []string{v.Translation}},
				{Namespace: bookNamespace, AllowList: []string{v.Book}},
			},
		}
	}

	_, err := client.UpsertDatapoints(ctx, &aiplatformpb.UpsertDatapointsRequest{
		Index:      indexName,
		Datapoints: datapoints,
	})
	return err
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, f := range in {
		out[i] = float32(f)
	}
	return out
}
