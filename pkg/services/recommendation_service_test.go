package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/OHDSI/Hecate/pkg/index"
	"github.com/OHDSI/Hecate/pkg/models"
)

func setItem(conceptID int32, name, domain string, excluded, descendants, mapped bool) models.ConceptSetItem {
	return models.ConceptSetItem{
		Concept: models.Concept{
			ConceptID:    conceptID,
			ConceptName:  name,
			VocabularyID: "SNOMED",
			DomainID:     domain,
		},
		IsExcluded:         excluded,
		IncludeDescendants: descendants,
		IncludeMapped:      mapped,
	}
}

func exprOf(items ...models.ConceptSetItem) *models.ConceptSetExpression {
	return &models.ConceptSetExpression{Items: items}
}

func TestRecommendEmptyPositivesShortCircuits(t *testing.T) {
	// No included item has a cached name, so no query is issued.
	idx := index.New(map[string][]string{})
	store := &mockStore{}
	svc := NewRecommendationService(&mockConceptRepo{}, store, idx, zap.NewNop())

	recs, err := svc.Recommend(context.Background(), exprOf(
		setItem(1, "Asthma", "Condition", false, false, false),
	), 50)
	require.NoError(t, err)

	assert.Empty(t, store.recommendPositives)
	assert.Empty(t, recs.Recommendations)
	assert.Zero(t, recs.TotalCount)
	assert.Empty(t, recs.UsedVocabularies)
}

func TestRecommendFiltersExistingAndForeignDomains(t *testing.T) {
	idx := index.New(map[string][]string{"asthma": {"p1", "p1b"}})
	resp := models.SearchResponse{
		ConceptName:      "Chronic asthma",
		ConceptNameLower: "chronic asthma",
		Score:            0.8,
		Concepts: []models.Concept{
			{ConceptID: 10, ConceptName: "Chronic asthma", VocabularyID: "SNOMED", DomainID: "Condition"},
			{ConceptID: 1, ConceptName: "Asthma", VocabularyID: "SNOMED", DomainID: "Condition"},
			{ConceptID: 99, ConceptName: "Albuterol", VocabularyID: "RxNorm", DomainID: "Drug"},
		},
	}
	store := &mockStore{recommended: []models.SearchResponse{resp}}
	svc := NewRecommendationService(&mockConceptRepo{}, store, idx, zap.NewNop())

	recs, err := svc.Recommend(context.Background(), exprOf(
		setItem(1, "Asthma", "Condition", false, false, false),
	), 50)
	require.NoError(t, err)

	// Only the first cached point per name is used as an example.
	require.Len(t, store.recommendPositives, 1)
	assert.Equal(t, []string{"p1"}, store.recommendPositives[0])

	// Concept 1 is already in the set; concept 99 is outside the
	// expression's domains.
	require.Len(t, recs.Recommendations, 1)
	assert.Equal(t, int32(10), recs.Recommendations[0].ConceptID)
	assert.Equal(t, int32(1), recs.Recommendations[0].SourceConceptID)
	assert.Equal(t, 1, recs.TotalCount)
	assert.Equal(t, []string{"SNOMED"}, recs.UsedVocabularies)
}

func TestRecommendExcludedItemsBecomeNegatives(t *testing.T) {
	idx := index.New(map[string][]string{
		"asthma":   {"p1"},
		"wheezing": {"p2"},
	})
	store := &mockStore{}
	svc := NewRecommendationService(&mockConceptRepo{}, store, idx, zap.NewNop())

	_, err := svc.Recommend(context.Background(), exprOf(
		setItem(1, "Asthma", "Condition", false, false, false),
		setItem(2, "Wheezing", "Condition", true, false, false),
	), 50)
	require.NoError(t, err)

	require.Len(t, store.recommendPositives, 1)
	assert.Equal(t, []string{"p1"}, store.recommendPositives[0])
	require.Len(t, store.recommendNegatives, 1)
	assert.Equal(t, []string{"p2"}, store.recommendNegatives[0])
}

func TestRecommendExpandedConceptsNeverResurface(t *testing.T) {
	// Descendants and mapped concepts of the expression must not be
	// recommended back, even though they are not direct items.
	idx := index.New(map[string][]string{"asthma": {"p1"}})
	repo := &mockConceptRepo{
		descendants: map[int32][]int32{1: {10}},
		mapped:      map[int32][]int32{1: {20}},
	}
	store := &mockStore{recommended: []models.SearchResponse{{
		ConceptName:      "Childhood asthma",
		ConceptNameLower: "childhood asthma",
		Score:            0.9,
		Concepts: []models.Concept{
			{ConceptID: 10, DomainID: "Condition"},
			{ConceptID: 20, DomainID: "Condition"},
			{ConceptID: 30, DomainID: "Condition"},
		},
	}}}
	svc := NewRecommendationService(repo, store, idx, zap.NewNop())

	recs, err := svc.Recommend(context.Background(), exprOf(
		setItem(1, "Asthma", "Condition", false, true, true),
	), 50)
	require.NoError(t, err)

	require.Len(t, recs.Recommendations, 1)
	assert.Equal(t, int32(30), recs.Recommendations[0].ConceptID)
}

func TestRecommendCapsExamples(t *testing.T) {
	byName := make(map[string][]string)
	var items []models.ConceptSetItem
	for i := int32(0); i < 60; i++ {
		name := string(rune('a'+i%26)) + string(rune('a'+i/26))
		byName[name] = []string{"p" + name}
		items = append(items, setItem(1000+i, name, "Condition", false, false, false))
	}
	store := &mockStore{}
	svc := NewRecommendationService(&mockConceptRepo{}, store, index.New(byName), zap.NewNop())

	_, err := svc.Recommend(context.Background(), exprOf(items...), 50)
	require.NoError(t, err)

	require.Len(t, store.recommendPositives, 1)
	assert.Len(t, store.recommendPositives[0], 50)
}

func TestRecommendResultsSortedByScore(t *testing.T) {
	idx := index.New(map[string][]string{"asthma": {"p1"}})
	store := &mockStore{recommended: []models.SearchResponse{
		{ConceptNameLower: "a", Score: 0.6, Concepts: []models.Concept{{ConceptID: 2, DomainID: "Condition"}}},
		{ConceptNameLower: "b", Score: 0.9, Concepts: []models.Concept{{ConceptID: 3, DomainID: "Condition"}}},
		{ConceptNameLower: "c", Score: 0.7, Concepts: []models.Concept{{ConceptID: 4, DomainID: "Condition"}}},
	}}
	svc := NewRecommendationService(&mockConceptRepo{}, store, idx, zap.NewNop())

	recs, err := svc.Recommend(context.Background(), exprOf(
		setItem(1, "Asthma", "Condition", false, false, false),
	), 50)
	require.NoError(t, err)

	require.Len(t, recs.Recommendations, 3)
	for i := 1; i < len(recs.Recommendations); i++ {
		assert.GreaterOrEqual(t,
			recs.Recommendations[i-1].SimilarityScore,
			recs.Recommendations[i].SimilarityScore)
	}
}

func TestRecommendationsSerializeWithArrayFields(t *testing.T) {
	recs := &models.ConceptRecommendations{
		Recommendations:  []models.RecommendedConcept{},
		TotalCount:       0,
		UsedVocabularies: []string{},
	}

	data, err := json.Marshal(recs)
	require.NoError(t, err)
	assert.JSONEq(t, `{"recommendations": [], "total_count": 0, "used_vocabularies": []}`, string(data))
}
