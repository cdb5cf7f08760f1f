// vertexindex provisions the Vertex AI Vector Search index used by VECTOR_BACKEND=vertex.
//
// Usage:
//
//	go run ./scripts/vertexindex create-index
//	go run ./scripts/vertexindex create-endpoint
//	go run ./scripts/vertexindex deploy --index-id=XXX --endpoint-id=YYY
//
// The index is created empty with streaming updates; fill it with
// go run ./scripts/embed -vertex-index=XXX. After deploying, add the printed
// VERTEX_INDEX_ENDPOINT_ID and VERTEX_DEPLOYED_INDEX_ID to .env.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"strings"
	"time"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	aiplatformpb "cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"github.com/joho/godotenv"
	"github.com/sola-scriptura-chat-api/internal/config"
	schemaconfig "github.com/sola-scriptura-chat-api/pkg/schema/config"
	"github.com/spf13/cobra"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"
)

const displayName = "sola-scriptura-chat-verses"

type target struct {
	endpoint string
	parent   string
}

var (
	tgt        target
	indexID    string
	endpointID string
)

var rootCmd = &cobra.Command{
	Use:           "vertexindex",
	Short:         "Provision the Vertex AI Vector Search index",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		if err := config.LoadError(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		cfg := config.GetConfig()
		if cfg.VertexProjectID == "" {
			return errors.New("VERTEX_PROJECT_ID is required")
		}
		tgt = target{
			endpoint: fmt.Sprintf("%s-aiplatform.googleapis.com:443", cfg.VertexLocation),
			parent:   fmt.Sprintf("projects/%s/locations/%s", cfg.VertexProjectID, cfg.VertexLocation),
		}
		return nil
	},
}

var createIndexCmd = &cobra.Command{
	Use:   "create-index",
	Short: "Create an empty streaming index sized to EMBEDDING_DIMENSIONS",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := schemaconfig.LoadError(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		createIndex(cmd.Context(), tgt, schemaconfig.GetConfig().EmbeddingDimensions)
		return nil
	},
}

var createEndpointCmd = &cobra.Command{
	Use:   "create-endpoint",
	Short: "Create a public index endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		createEndpoint(cmd.Context(), tgt)
		return nil
	},
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy an index to an endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		deploy(cmd.Context(), tgt, indexID, endpointID)
		return nil
	},
}

func init() {
	deployCmd.Flags().StringVar(&indexID, "index-id", "", "Index to deploy (required)")
	deployCmd.Flags().StringVar(&endpointID, "endpoint-id", "", "Endpoint to deploy to (required)")
	_ = deployCmd.MarkFlagRequired("index-id")
	_ = deployCmd.MarkFlagRequired("endpoint-id")

	rootCmd.AddCommand(createIndexCmd, createEndpointCmd, deployCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// indexMetadata describes a cosine tree-AH index over dims-wide verse embeddings
func indexMetadata(dims int) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"config": map[string]interface{}{
			"dimensions":                dims,
			"approximateNeighborsCount": 150,
			"distanceMeasureType":       "COSINE_DISTANCE",
			"algorithmConfig": map[string]interface{}{
				"treeAhConfig": map[string]interface{}{
					"leafNodeEmbeddingCount":   1000,
					"leafNodesToSearchPercent": 5,
				},
			},
		},
	})
}

func createIndex(ctx context.Context, t target, dims int) {
	log.Printf("Creating %d-dimension index under %s", dims, t.parent)

	client, err := aiplatform.NewIndexClient(ctx, option.WithEndpoint(t.endpoint))
	if err != nil {
		log.Fatalf("Failed to create index client: %v", err)
	}
	defer client.Close()

	metadata, err := indexMetadata(dims)
	if err != nil {
		log.Fatalf("Failed to build index metadata: %v", err)
	}

	op, err := client.CreateIndex(ctx, &aiplatformpb.CreateIndexRequest{
		Parent: t.parent,
		Index: &aiplatformpb.Index{
			DisplayName:       displayName,
			Description:       "Verse embeddings for the chat API's semantic search",
			Metadata:          structpb.NewStructValue(metadata),
			IndexUpdateMethod: aiplatformpb.Index_STREAM_UPDATE,
		},
	})
	if err != nil {
		log.Fatalf("Failed to create index: %v", err)
	}

	log.Printf("Index creation started (%s); this can take 30-60 minutes", op.Name())
	index, err := op.Wait(ctx)
	if err != nil {
		log.Fatalf("Index creation failed: %v", err)
	}

	log.Printf("Index created: %s", index.Name)
	log.Printf("Next: go run ./scripts/embed -vertex-index=%s", path.Base(index.Name))
}

func createEndpoint(ctx context.Context, t target) {
	log.Printf("Creating index endpoint under %s", t.parent)

	client, err := aiplatform.NewIndexEndpointClient(ctx, option.WithEndpoint(t.endpoint))
	if err != nil {
		log.Fatalf("Failed to create endpoint client: %v", err)
	}
	defer client.Close()

	op, err := client.CreateIndexEndpoint(ctx, &aiplatformpb.CreateIndexEndpointRequest{
		Parent: t.parent,
		IndexEndpoint: &aiplatformpb.IndexEndpoint{
			DisplayName:           displayName + "-endpoint",
			Description:           "Public endpoint for verse search",
			PublicEndpointEnabled: true,
		},
	})
	if err != nil {
		log.Fatalf("Failed to create endpoint: %v", err)
	}

	indexEndpoint, err := op.Wait(ctx)
	if err != nil {
		log.Fatalf("Endpoint creation failed: %v", err)
	}

	log.Printf("Endpoint created: %s", indexEndpoint.Name)
	log.Printf("  VERTEX_PUBLIC_ENDPOINT_DOMAIN=%s", indexEndpoint.PublicEndpointDomainName)
	log.Printf("Next: go run ./scripts/vertexindex deploy --index-id=<INDEX_ID> --endpoint-id=%s", path.Base(indexEndpoint.Name))
}

func deploy(ctx context.Context, t target, indexID, endpointID string) {
	client, err := aiplatform.NewIndexEndpointClient(ctx, option.WithEndpoint(t.endpoint))
	if err != nil {
		log.Fatalf("Failed to create endpoint client: %v", err)
	}
	defer client.Close()

	// Deployed ids must start with a letter and hold only letters, digits and underscores
	deployedIndexID := fmt.Sprintf("deployed_%s_%d", strings.ReplaceAll(displayName, "-", "_"), time.Now().Unix())

	op, err := client.DeployIndex(ctx, &aiplatformpb.DeployIndexRequest{
		IndexEndpoint: fmt.Sprintf("%s/indexEndpoints/%s", t.parent, endpointID),
		DeployedIndex: &aiplatformpb.DeployedIndex{
			Id:    deployedIndexID,
			Index: fmt.Sprintf("%s/indexes/%s", t.parent, indexID),
			AutomaticResources: &aiplatformpb.AutomaticResources{
				MinReplicaCount: 1,
				MaxReplicaCount: 2,
			},
		},
	})
	if err != nil {
		log.Fatalf("Failed to deploy index: %v", err)
	}

	log.Printf("Deployment started (%s); this can take 20-30 minutes", op.Name())
	if _, err := op.Wait(ctx); err != nil {
		log.Fatalf("Deployment failed: %v", err)
	}

	log.Println("Index deployed. Add to .env:")
	log.Printf("  VERTEX_INDEX_ENDPOINT_ID=%s", endpointID)
	log.Printf("  VERTEX_DEPLOYED_INDEX_ID=%s", deployedIndexID)
}
