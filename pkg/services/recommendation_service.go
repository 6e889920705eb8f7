package services

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/OHDSI/Hecate/pkg/index"
	"github.com/OHDSI/Hecate/pkg/models"
	"github.com/OHDSI/Hecate/pkg/repositories"
	"github.com/OHDSI/Hecate/pkg/vector"
)

const (
	// recommendLimitPerConcept is the per-concept cap the analyzer passes
	// when requesting recommendations.
	recommendLimitPerConcept = 50

	// maxRecommendExamples caps positive and negative example lists; the
	// recommend query cost scales with example count.
	maxRecommendExamples = 50

	recommendScoreThreshold = 0.50
	recommendResultLimit    = 500
)

// RecommendationService suggests concepts similar to an expression's
// included items, steering away from its excluded ones.
type RecommendationService interface {
	Recommend(ctx context.Context, expression *models.ConceptSetExpression, limitPerConcept int) (*models.ConceptRecommendations, error)
}

type recommendationService struct {
	concepts repositories.ConceptRepository
	store    vector.Store
	idx      *index.ConceptIndex
	logger   *zap.Logger
}

// NewRecommendationService creates a new recommendation service with
// dependencies.
func NewRecommendationService(
	concepts repositories.ConceptRepository,
	store vector.Store,
	idx *index.ConceptIndex,
	logger *zap.Logger,
) RecommendationService {
	return &recommendationService{
		concepts: concepts,
		store:    store,
		idx:      idx,
		logger:   logger,
	}
}

// Recommend builds positive examples from the expression's included items
// and negative examples from its excluded ones, then filters the recommend
// query's results down to concepts not already reachable from the
// expression and within its domains.
//
// TODO: cap and attribute results per source concept; today limitPerConcept
// is accepted for interface stability and every recommendation is
// attributed to the first included item.
func (s *recommendationService) Recommend(ctx context.Context, expression *models.ConceptSetExpression, limitPerConcept int) (*models.ConceptRecommendations, error) {
	existing := s.allConceptsInSet(ctx, expression)
	s.logger.Debug("Collected existing concepts to exclude from recommendations",
		zap.Int("count", len(existing)))

	var topLevelIncluded []*models.ConceptSetItem
	allowedDomains := make(map[string]bool)
	vocabularies := make(map[string]bool)
	for i := range expression.Items {
		item := &expression.Items[i]
		if !item.IsExcluded {
			topLevelIncluded = append(topLevelIncluded, item)
		}
		allowedDomains[item.Concept.DomainID] = true
		vocabularies[item.Concept.VocabularyID] = true
	}

	positive := s.firstCachedPointIDs(topLevelIncluded)
	var excludedItems []*models.ConceptSetItem
	for i := range expression.Items {
		if expression.Items[i].IsExcluded {
			excludedItems = append(excludedItems, &expression.Items[i])
		}
	}
	negative := s.firstCachedPointIDs(excludedItems)

	if len(positive) == 0 {
		return &models.ConceptRecommendations{
			Recommendations:  []models.RecommendedConcept{},
			TotalCount:       0,
			UsedVocabularies: []string{},
		}, nil
	}

	positive = capExamples(positive, maxRecommendExamples)
	negative = capExamples(negative, maxRecommendExamples)

	responses, err := s.store.Recommend(ctx, positive, negative, recommendScoreThreshold, recommendResultLimit)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Recommend query returned results", zap.Int("count", len(responses)))

	// Attribution is a known simplification: every recommendation names
	// the first included item as its source.
	sourceConceptID := topLevelIncluded[0].Concept.ConceptID

	recommendations := []models.RecommendedConcept{}
	for _, resp := range responses {
		for _, concept := range resp.Concepts {
			if existing[concept.ConceptID] || !allowedDomains[concept.DomainID] {
				continue
			}
			standardConcept := ""
			if concept.StandardConcept != nil {
				standardConcept = *concept.StandardConcept
			}
			recommendations = append(recommendations, models.RecommendedConcept{
				ConceptID:       concept.ConceptID,
				ConceptName:     concept.ConceptName,
				VocabularyID:    concept.VocabularyID,
				DomainID:        concept.DomainID,
				ConceptClassID:  concept.ConceptClassID,
				ConceptCode:     concept.ConceptCode,
				StandardConcept: standardConcept,
				InvalidReason:   concept.InvalidReason,
				SimilarityScore: resp.Score,
				SourceConceptID: sourceConceptID,
			})
		}
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].SimilarityScore > recommendations[j].SimilarityScore
	})

	usedVocabularies := make([]string, 0, len(vocabularies))
	for v := range vocabularies {
		usedVocabularies = append(usedVocabularies, v)
	}
	sort.Strings(usedVocabularies)

	return &models.ConceptRecommendations{
		Recommendations:  recommendations,
		TotalCount:       len(recommendations),
		UsedVocabularies: usedVocabularies,
	}, nil
}

// allConceptsInSet unions every concept ID reachable from the expression:
// all direct items plus their descendants and mapped concepts, excluded
// items included since they must never be re-recommended. Expansion here is
// best-effort; a failed lookup leaves the guard set partial.
func (s *recommendationService) allConceptsInSet(ctx context.Context, expression *models.ConceptSetExpression) map[int32]bool {
	all := make(map[int32]bool, len(expression.Items))
	for i := range expression.Items {
		all[expression.Items[i].Concept.ConceptID] = true
	}

	needDescendants := conceptIDsWhere(expression, func(item *models.ConceptSetItem) bool {
		return item.IncludeDescendants
	})
	if len(needDescendants) > 0 {
		if descendants, err := s.concepts.GetBatchDescendants(ctx, needDescendants); err == nil {
			for _, ids := range descendants {
				for _, id := range ids {
					all[id] = true
				}
			}
		} else {
			s.logger.Warn("Descendant expansion failed for recommendation guard set", zap.Error(err))
		}
	}

	needMapped := conceptIDsWhere(expression, func(item *models.ConceptSetItem) bool {
		return item.IncludeMapped
	})
	if len(needMapped) > 0 {
		if mapped, err := s.concepts.GetBatchMapped(ctx, needMapped); err == nil {
			for _, ids := range mapped {
				for _, id := range ids {
					all[id] = true
				}
			}
		} else {
			s.logger.Warn("Mapped expansion failed for recommendation guard set", zap.Error(err))
		}
	}

	return all
}

// firstCachedPointIDs resolves items to recommend-query examples via the
// exact-match index, taking only the first cached point per concept name;
// further cached variants of the same name are redundant as examples.
// Concepts absent from the index are skipped.
func (s *recommendationService) firstCachedPointIDs(items []*models.ConceptSetItem) []string {
	var pointIDs []string
	for _, item := range items {
		nameLower := strings.ToLower(item.Concept.ConceptName)
		cached := s.idx.Get(nameLower)
		if len(cached) == 0 {
			s.logger.Debug("Concept not found in index",
				zap.String("concept_name", item.Concept.ConceptName),
				zap.Int32("concept_id", item.Concept.ConceptID))
			continue
		}
		pointIDs = append(pointIDs, cached[0])
	}
	return pointIDs
}

func capExamples(pointIDs []string, limit int) []string {
	if len(pointIDs) <= limit {
		return pointIDs
	}
	return pointIDs[:limit]
}
