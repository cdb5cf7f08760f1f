package vertex

import (
	"context"
	"fmt"
	"strconv"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	aiplatformpb "cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"github.com/jmoiron/sqlx"
	"github.com/sola-scriptura-chat-api/internal/models"
	"github.com/sola-scriptura-chat-api/internal/repository"
	"google.golang.org/api/option"
)

// Ensure VectorSearchRepository implements repository.VectorSearchRepository
var _ repository.VectorSearchRepository = (*VectorSearchRepository)(nil)

// TranslationNamespace is the restrict namespace datapoints are tagged with on upsert.
const TranslationNamespace = "translation"

// Config holds Vertex AI Vector Search configuration
type Config struct {
	ProjectID            string // GCP project ID
	Location             string // e.g., "us-central1"
	IndexEndpointID      string // Deployed index endpoint ID
	DeployedIndexID      string // The deployed index ID within the endpoint
	PublicEndpointDomain string // Public endpoint domain for queries
}

// VectorSearchRepository implements repository.VectorSearchRepository using Vertex AI Vector Search.
// Datapoint ids are verse row ids; verse text is resolved from PostgreSQL.
type VectorSearchRepository struct {
	config      Config
	matchClient *aiplatform.MatchClient
	db          *sqlx.DB
}

// NewVectorSearchRepository creates a new Vertex AI vector search repository
func NewVectorSearchRepository(ctx context.Context, config Config, db *sqlx.DB) (*VectorSearchRepository, error) {
	var endpoint string
	if config.PublicEndpointDomain != "" {
		endpoint = fmt.Sprintf("%s:443", config.PublicEndpointDomain)
	} else {
		endpoint = fmt.Sprintf("%s-aiplatform.googleapis.com:443", config.Location)
	}

	matchClient, err := aiplatform.NewMatchClient(ctx, option.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("create match client: %w", err)
	}

	return &VectorSearchRepository{
		config:      config,
		matchClient: matchClient,
		db:          db,
	}, nil
}

// Close closes the Vertex AI client
func (r *VectorSearchRepository) Close() error {
	if r.matchClient != nil {
		return r.matchClient.Close()
	}
	return nil
}

// SearchVersesByEmbedding finds the nearest verse datapoints restricted to one translation
func (r *VectorSearchRepository) SearchVersesByEmbedding(ctx context.Context, embedding []float64, topK int, translation string) ([]models.ScoredVerse, error) {
	resp, err := r.matchClient.FindNeighbors(ctx, r.neighborsRequest(embedding, topK, translation))
	if err != nil {
		return nil, fmt.Errorf("find neighbors: %w", err)
	}

	ids, scores := neighborScores(resp)
	results, err := r.lookupVerses(ctx, ids, scores)
	if err != nil {
		return nil, fmt.Errorf("lookup verses: %w", err)
	}
	return results, nil
}

func (r *VectorSearchRepository) neighborsRequest(embedding []float64, topK int, translation string) *aiplatformpb.FindNeighborsRequest {
	vec := make([]float32, len(embedding))
	for i, v := range embedding {
		vec[i] = float32(v)
	}

	return &aiplatformpb.FindNeighborsRequest{
		IndexEndpoint: fmt.Sprintf("projects/%s/locations/%s/indexEndpoints/%s",
			r.config.ProjectID, r.config.Location, r.config.IndexEndpointID),
		DeployedIndexId: r.config.DeployedIndexID,
		Queries: []*aiplatformpb.FindNeighborsRequest_Query{{
			Datapoint: &aiplatformpb.IndexDatapoint{
				FeatureVector: vec,
				Restricts: []*aiplatformpb.IndexDatapoint_Restriction{
					{Namespace: TranslationNamespace, AllowList: []string{translation}},
				},
			},
			NeighborCount: int32(topK),
		}},
	}
}

// neighborScores returns the verse ids of the first query's neighbours in rank order with
// their cosine similarity. Datapoints whose id is not a verse id are skipped.
func neighborScores(resp *aiplatformpb.FindNeighborsResponse) ([]int64, map[int64]float64) {
	scores := map[int64]float64{}
	if len(resp.GetNearestNeighbors()) == 0 {
		return nil, scores
	}

	var ids []int64
	for _, n := range resp.GetNearestNeighbors()[0].GetNeighbors() {
		id, err := strconv.ParseInt(n.GetDatapoint().GetDatapointId(), 10, 64)
		if err != nil {
			continue
		}
		if _, dup := scores[id]; dup {
			continue
		}
		ids = append(ids, id)
		scores[id] = 1 - n.GetDistance()
	}
	return ids, scores
}

// lookupVerses resolves verse rows for ids, preserving the neighbour order
func (r *VectorSearchRepository) lookupVerses(ctx context.Context, ids []int64, scores map[int64]float64) ([]models.ScoredVerse, error) {
	if len(ids) == 0 {
		return []models.ScoredVerse{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, book, chapter, verse, text, translation, testament
		FROM verses
		WHERE id IN (?)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("build IN query: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []models.Verse
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query verses: %w", err)
	}

	byID := make(map[int64]models.Verse, len(rows))
	for _, v := range rows {
		byID[v.ID] = v
	}

	results := make([]models.ScoredVerse, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			results = append(results, models.ScoredVerse{Verse: v, Score: scores[id]})
		}
	}
	return results, nil
}
