package vector

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/OHDSI/Hecate/pkg/apperrors"
	"github.com/OHDSI/Hecate/pkg/models"
)

// Config holds Qdrant connection settings.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// QdrantStore implements Store against a Qdrant collection.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	logger     *zap.Logger
}

var _ Store = (*QdrantStore)(nil)

// NewQdrantStore connects to Qdrant and returns a Store over the configured
// collection.
func NewQdrantStore(cfg *Config, logger *zap.Logger) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &QdrantStore{
		client:     client,
		collection: cfg.Collection,
		logger:     logger,
	}, nil
}

// Close releases the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func (s *QdrantStore) Retrieve(ctx context.Context, pointIDs []string) ([]models.SearchResponse, error) {
	ids := make([]*qdrant.PointId, 0, len(pointIDs))
	for _, id := range pointIDs {
		ids = append(ids, pointIDFromString(id))
	}

	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            ids,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get points: %v", apperrors.ErrVectorStore, err)
	}

	responses := make([]models.SearchResponse, 0, len(points))
	for _, p := range points {
		// Exact lookups carry a fixed score; ranking comes from the
		// recommend pass that follows them.
		resp, ok := payloadToResponse(p.GetPayload(), 1.0)
		if !ok {
			s.logger.Warn("Skipping point with malformed payload",
				zap.String("point_id", pointIDString(p.GetId())))
			continue
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func (s *QdrantStore) SearchByVector(ctx context.Context, vector []float32, limit uint64) ([]models.SearchResponse, error) {
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQueryDense(vector),
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", apperrors.ErrVectorStore, err)
	}

	return s.scoredToResponses(points), nil
}

func (s *QdrantStore) ScrollByNameLower(ctx context.Context, nameLower string) ([]string, error) {
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("concept_name_lower", nameLower),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scroll by name: %v", apperrors.ErrVectorStore, err)
	}

	ids := make([]string, 0, len(points))
	for _, p := range points {
		ids = append(ids, pointIDString(p.GetId()))
	}
	return ids, nil
}

func (s *QdrantStore) Recommend(ctx context.Context, positive, negative []string, scoreThreshold float32, limit uint64) ([]models.SearchResponse, error) {
	input := &qdrant.RecommendInput{}
	for _, id := range positive {
		input.Positive = append(input.Positive, qdrant.NewVectorInputID(pointIDFromString(id)))
	}
	for _, id := range negative {
		input.Negative = append(input.Negative, qdrant.NewVectorInputID(pointIDFromString(id)))
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQueryRecommend(input),
		Limit:          qdrant.PtrOf(limit),
		ScoreThreshold: qdrant.PtrOf(scoreThreshold),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: recommend: %v", apperrors.ErrVectorStore, err)
	}

	return s.scoredToResponses(points), nil
}

// scanPageSize bounds one scroll page during the startup walk.
const scanPageSize = uint32(10000)

func (s *QdrantStore) ScanNames(ctx context.Context, visit func(pointID, nameLower string)) error {
	var offset *qdrant.PointId
	for {
		resp, err := s.client.GetPointsClient().Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Limit:          qdrant.PtrOf(scanPageSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(false),
		})
		if err != nil {
			return fmt.Errorf("%w: scan collection: %v", apperrors.ErrVectorStore, err)
		}

		for _, p := range resp.GetResult() {
			nameLower, ok := stringField(p.GetPayload(), "concept_name_lower")
			if !ok {
				continue
			}
			visit(pointIDString(p.GetId()), nameLower)
		}

		offset = resp.GetNextPageOffset()
		if offset == nil {
			return nil
		}
	}
}

func (s *QdrantStore) scoredToResponses(points []*qdrant.ScoredPoint) []models.SearchResponse {
	responses := make([]models.SearchResponse, 0, len(points))
	for _, p := range points {
		resp, ok := payloadToResponse(p.GetPayload(), p.GetScore())
		if !ok {
			s.logger.Warn("Skipping point with malformed payload",
				zap.String("point_id", pointIDString(p.GetId())))
			continue
		}
		responses = append(responses, resp)
	}
	return responses
}

// pointIDString renders a point ID as its opaque string form.
func pointIDString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

// pointIDFromString restores a point ID from its string form.
func pointIDFromString(s string) *qdrant.PointId {
	if _, err := uuid.Parse(s); err == nil {
		return qdrant.NewID(s)
	}
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return qdrant.NewIDNum(n)
	}
	return qdrant.NewID(s)
}
