package services

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/OHDSI/Hecate/pkg/index"
	"github.com/OHDSI/Hecate/pkg/llm"
	"github.com/OHDSI/Hecate/pkg/models"
	"github.com/OHDSI/Hecate/pkg/repositories"
	"github.com/OHDSI/Hecate/pkg/vector"
)

// DefaultSearchLimit bounds search responses when the caller supplies no
// limit.
const DefaultSearchLimit = 100

const (
	// semanticSearchCap bounds nearest-neighbor fetches in the semantic
	// fallback; more results than requested are fetched to survive
	// post-retrieval filtering.
	semanticSearchCap = 150

	// expansionScoreThreshold and expansionLimit govern the recommend pass
	// that widens exact matches with similar names.
	expansionScoreThreshold = 0.50
	expansionLimit          = 150
)

// SearchService resolves one query string to a ranked, deduplicated,
// filtered list of search responses.
type SearchService interface {
	Search(ctx context.Context, query string, filters *models.SearchFilters, limit int) ([]models.SearchResponse, error)
}

type searchService struct {
	concepts repositories.ConceptRepository
	store    vector.Store
	embedder llm.EmbeddingClient
	idx      *index.ConceptIndex
	logger   *zap.Logger
}

// NewSearchService creates a new search service with dependencies.
func NewSearchService(
	concepts repositories.ConceptRepository,
	store vector.Store,
	embedder llm.EmbeddingClient,
	idx *index.ConceptIndex,
	logger *zap.Logger,
) SearchService {
	return &searchService{
		concepts: concepts,
		store:    store,
		embedder: embedder,
		idx:      idx,
		logger:   logger,
	}
}

// searchState names the stages of the cascading lookup. The cascade is
// strict: a cache or relational hit always proceeds to expansion, while the
// semantic fallback returns directly and skips it.
type searchState int

const (
	stateCacheHit searchState = iota
	stateRelationalHit
	stateSemanticFallback
	stateExpansion
	stateDone
)

// Search runs the cascade: exact-match index, relational name resolution,
// then semantic fallback; the first two paths feed the expansion step.
func (s *searchService) Search(ctx context.Context, query string, filters *models.SearchFilters, limit int) ([]models.SearchResponse, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	input := strings.TrimSpace(query)
	inputLower := strings.ToLower(input)

	s.logger.Info("Received search request", zap.String("query", input))

	var pointIDs []string
	state := stateCacheHit

	if cached := s.idx.Get(inputLower); len(cached) > 0 {
		pointIDs = append(pointIDs, cached...)
	} else {
		state = stateRelationalHit
	}

	if state == stateRelationalHit {
		s.logger.Debug("Nothing found in concept index", zap.String("query", input))
		names, err := s.resolveNames(ctx, input)
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			state = stateSemanticFallback
		} else {
			pointIDs, err = s.collectPointIDs(ctx, names)
			if err != nil {
				return nil, err
			}
		}
	}

	if state == stateSemanticFallback {
		return s.semanticFallback(ctx, input, filters, limit)
	}

	return s.expand(ctx, pointIDs, filters, limit)
}

// resolveNames asks the vocabulary store for candidate concept names,
// by ID for numeric input and by code for everything else.
func (s *searchService) resolveNames(ctx context.Context, input string) ([]string, error) {
	if id, err := strconv.ParseInt(input, 10, 32); err == nil {
		return s.concepts.GetConceptNameByNumber(ctx, int32(id))
	}
	return s.concepts.GetConceptNameByString(ctx, input)
}

// collectPointIDs maps candidate names to vector store point IDs, using the
// exact-match index when it knows the name and a filtered scroll otherwise.
func (s *searchService) collectPointIDs(ctx context.Context, names []string) ([]string, error) {
	var pointIDs []string
	for _, name := range names {
		lower := strings.ToLower(name)
		if cached := s.idx.Get(lower); len(cached) > 0 {
			pointIDs = append(pointIDs, cached...)
			continue
		}
		scrolled, err := s.store.ScrollByNameLower(ctx, lower)
		if err != nil {
			return nil, err
		}
		pointIDs = append(pointIDs, scrolled...)
	}
	return pointIDs, nil
}

// semanticFallback embeds the query and returns its nearest neighbors.
// This path never reaches expansion.
func (s *searchService) semanticFallback(ctx context.Context, input string, filters *models.SearchFilters, limit int) ([]models.SearchResponse, error) {
	vec, err := s.embedder.CreateEmbedding(ctx, input)
	if err != nil {
		return nil, err
	}

	// Fetch more than requested to account for post-retrieval filtering.
	searchLimit := min(limit*3, semanticSearchCap)
	neighbors, err := s.store.SearchByVector(ctx, vec, uint64(searchLimit))
	if err != nil {
		return nil, err
	}

	acc := models.NewResultAccumulator()
	accumulateFiltered(acc, neighbors, filters)

	s.logger.Debug("Semantic fallback produced results",
		zap.Int("neighbors", len(neighbors)),
		zap.Int("groups", acc.Len()))

	return acc.Ranked(limit), nil
}

// expand resolves the working point IDs into responses: a direct payload
// fetch for the exact IDs, then a recommend pass that pulls in similar
// names, merged progressively.
func (s *searchService) expand(ctx context.Context, pointIDs []string, filters *models.SearchFilters, limit int) ([]models.SearchResponse, error) {
	exact, err := s.store.Retrieve(ctx, pointIDs)
	if err != nil {
		return nil, err
	}

	similar, err := s.store.Recommend(ctx, pointIDs, nil, expansionScoreThreshold, expansionLimit)
	if err != nil {
		return nil, err
	}

	acc := models.NewResultAccumulator()
	accumulateFiltered(acc, exact, filters)
	accumulateFiltered(acc, similar, filters)

	return acc.Ranked(limit), nil
}

// accumulateFiltered applies the filter predicate to each response's
// concepts before merging; responses left with no concepts are dropped.
func accumulateFiltered(acc *models.ResultAccumulator, responses []models.SearchResponse, filters *models.SearchFilters) {
	for _, resp := range responses {
		resp.Concepts = filters.Apply(resp.Concepts)
		acc.Add(resp)
	}
}
