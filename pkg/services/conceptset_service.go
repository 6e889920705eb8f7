package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/OHDSI/Hecate/pkg/models"
	"github.com/OHDSI/Hecate/pkg/repositories"
)

// ConceptSetService validates one submitted concept set expression and
// computes its exclusion-aware inclusion sets.
type ConceptSetService interface {
	// Analyze parses and validates the raw expression text. Every exit
	// path yields a ValidationResult; input problems become in-band
	// errors, expansion failures become warnings.
	Analyze(ctx context.Context, raw []byte) *models.ValidationResult
}

type conceptSetService struct {
	concepts    repositories.ConceptRepository
	recommender RecommendationService
	logger      *zap.Logger
}

// NewConceptSetService creates a new concept set service. recommender may
// be nil when no vector store is configured; analysis then skips the
// recommendation step.
func NewConceptSetService(
	concepts repositories.ConceptRepository,
	recommender RecommendationService,
	logger *zap.Logger,
) ConceptSetService {
	return &conceptSetService{
		concepts:    concepts,
		recommender: recommender,
		logger:      logger,
	}
}

func (s *conceptSetService) Analyze(ctx context.Context, raw []byte) *models.ValidationResult {
	s.logger.Info("Starting concept set analysis")
	result := models.NewValidationResult()

	if strings.TrimSpace(string(raw)) == "" {
		result.AddError("Concept set cannot be empty")
		return result
	}

	expression, err := models.ParseConceptSetExpression(raw)
	if err != nil {
		result.AddError(fmt.Sprintf("Invalid concept set format: %v", err))
		return result
	}

	if len(expression.Items) == 0 {
		result.AddError("Concept set expression contains no items")
		return result
	}

	gathering := gatherDirectConcepts(expression)
	s.logger.Debug("Gathered direct concepts",
		zap.Int("included", len(gathering.IncludedConcepts)),
		zap.Int("excluded", len(gathering.ExcludedConcepts)))

	if len(gathering.IncludedConcepts) == 0 &&
		len(gathering.IncludedDescendants) == 0 &&
		len(gathering.IncludedMapped) == 0 {
		result.AddWarning("No concepts are included in this concept set")
	}

	checkForDuplicates(result, expression)

	s.expandDescendants(ctx, result, expression, gathering)
	s.expandMapped(ctx, result, expression, gathering)

	sortAndDedup(&gathering.IncludedDescendants)
	sortAndDedup(&gathering.ExcludedDescendants)
	sortAndDedup(&gathering.IncludedMapped)
	sortAndDedup(&gathering.ExcludedMapped)

	applyExclusionDominance(gathering)

	result.Gathering = gathering
	result.ConceptSummary = gathering.Summary()

	if s.recommender != nil {
		recommendations, err := s.recommender.Recommend(ctx, expression, recommendLimitPerConcept)
		if err != nil {
			result.AddWarning(fmt.Sprintf("Could not generate recommendations: %v", err))
		} else {
			result.Recommendations = recommendations
		}
	}

	s.logger.Info("Concept set analysis completed",
		zap.Bool("valid", result.Valid),
		zap.Int("errors", len(result.Errors)),
		zap.Int("warnings", len(result.Warnings)))

	return result
}

// gatherDirectConcepts routes every item's concept ID into the included or
// excluded direct list. Items flagged include_mapped also seed their own ID
// into the matching mapped list; the actual mapped concepts join it during
// expansion.
func gatherDirectConcepts(expression *models.ConceptSetExpression) *models.ConceptGatheringResult {
	gathering := &models.ConceptGatheringResult{}

	for _, item := range expression.Items {
		conceptID := item.Concept.ConceptID
		if item.IsExcluded {
			gathering.ExcludedConcepts = append(gathering.ExcludedConcepts, conceptID)
			if item.IncludeMapped {
				gathering.ExcludedMapped = append(gathering.ExcludedMapped, conceptID)
			}
		} else {
			gathering.IncludedConcepts = append(gathering.IncludedConcepts, conceptID)
			if item.IncludeMapped {
				gathering.IncludedMapped = append(gathering.IncludedMapped, conceptID)
			}
		}
	}

	return gathering
}

func checkForDuplicates(result *models.ValidationResult, expression *models.ConceptSetExpression) {
	seen := make(map[int32]bool)
	duplicates := make(map[int32]bool)
	for _, item := range expression.Items {
		id := item.Concept.ConceptID
		if seen[id] {
			duplicates[id] = true
		}
		seen[id] = true
	}
	if len(duplicates) == 0 {
		return
	}

	ids := make([]int32, 0, len(duplicates))
	for id := range duplicates {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rendered := make([]string, len(ids))
	for i, id := range ids {
		rendered[i] = strconv.Itoa(int(id))
	}
	result.AddWarning("Duplicate concept IDs found in expression: " + strings.Join(rendered, ", "))
}

// expandDescendants resolves descendants for every item that asks for them
// in one batched lookup, routing each item's descendants by its excluded
// flag. A lookup failure downgrades to a warning.
func (s *conceptSetService) expandDescendants(
	ctx context.Context,
	result *models.ValidationResult,
	expression *models.ConceptSetExpression,
	gathering *models.ConceptGatheringResult,
) {
	needed := conceptIDsWhere(expression, func(item *models.ConceptSetItem) bool {
		return item.IncludeDescendants
	})
	if len(needed) == 0 {
		return
	}

	descendants, err := s.concepts.GetBatchDescendants(ctx, needed)
	if err != nil {
		result.AddWarning(fmt.Sprintf("Could not get descendants for concepts: %v", err))
		return
	}

	for _, item := range expression.Items {
		if !item.IncludeDescendants {
			continue
		}
		expanded := descendants[item.Concept.ConceptID]
		if len(expanded) == 0 {
			continue
		}
		if item.IsExcluded {
			gathering.ExcludedDescendants = append(gathering.ExcludedDescendants, expanded...)
		} else {
			gathering.IncludedDescendants = append(gathering.IncludedDescendants, expanded...)
		}
	}
}

// expandMapped is the "Maps to" analog of expandDescendants.
func (s *conceptSetService) expandMapped(
	ctx context.Context,
	result *models.ValidationResult,
	expression *models.ConceptSetExpression,
	gathering *models.ConceptGatheringResult,
) {
	needed := conceptIDsWhere(expression, func(item *models.ConceptSetItem) bool {
		return item.IncludeMapped
	})
	if len(needed) == 0 {
		return
	}

	mapped, err := s.concepts.GetBatchMapped(ctx, needed)
	if err != nil {
		result.AddWarning(fmt.Sprintf("Could not get mapped concepts for concepts: %v", err))
		return
	}

	for _, item := range expression.Items {
		if !item.IncludeMapped {
			continue
		}
		expanded := mapped[item.Concept.ConceptID]
		if len(expanded) == 0 {
			continue
		}
		if item.IsExcluded {
			gathering.ExcludedMapped = append(gathering.ExcludedMapped, expanded...)
		} else {
			gathering.IncludedMapped = append(gathering.IncludedMapped, expanded...)
		}
	}
}

// applyExclusionDominance removes every ID excluded through any path from
// all three included lists. Exclusion always wins, regardless of which rule
// contributed the ID.
func applyExclusionDominance(g *models.ConceptGatheringResult) {
	allExcluded := make(map[int32]bool,
		len(g.ExcludedConcepts)+len(g.ExcludedDescendants)+len(g.ExcludedMapped))
	for _, id := range g.ExcludedConcepts {
		allExcluded[id] = true
	}
	for _, id := range g.ExcludedDescendants {
		allExcluded[id] = true
	}
	for _, id := range g.ExcludedMapped {
		allExcluded[id] = true
	}

	g.IncludedConcepts = removeExcluded(g.IncludedConcepts, allExcluded)
	g.IncludedDescendants = removeExcluded(g.IncludedDescendants, allExcluded)
	g.IncludedMapped = removeExcluded(g.IncludedMapped, allExcluded)
}

func removeExcluded(ids []int32, excluded map[int32]bool) []int32 {
	kept := ids[:0]
	for _, id := range ids {
		if !excluded[id] {
			kept = append(kept, id)
		}
	}
	return kept
}

func conceptIDsWhere(expression *models.ConceptSetExpression, pred func(*models.ConceptSetItem) bool) []int32 {
	var ids []int32
	for i := range expression.Items {
		if pred(&expression.Items[i]) {
			ids = append(ids, expression.Items[i].Concept.ConceptID)
		}
	}
	return ids
}

func sortAndDedup(ids *[]int32) {
	s := *ids
	if len(s) < 2 {
		return
	}
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
	out := s[:1]
	for _, id := range s[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	*ids = out
}
