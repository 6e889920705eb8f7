package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bareExpression = `{
	"items": [{
		"concept": {
			"CONCEPT_ID": 317009,
			"CONCEPT_NAME": "Asthma",
			"VOCABULARY_ID": "SNOMED",
			"DOMAIN_ID": "Condition",
			"CONCEPT_CLASS_ID": "Clinical Finding",
			"STANDARD_CONCEPT": "S",
			"CONCEPT_CODE": "195967001"
		},
		"isExcluded": false,
		"includeDescendants": true,
		"includeMapped": false
	}]
}`

func TestParseConceptSetExpressionBareForm(t *testing.T) {
	expr, err := ParseConceptSetExpression([]byte(bareExpression))
	require.NoError(t, err)

	require.Len(t, expr.Items, 1)
	item := expr.Items[0]
	assert.Equal(t, int32(317009), item.Concept.ConceptID)
	assert.Equal(t, "Asthma", item.Concept.ConceptName)
	require.NotNil(t, item.Concept.StandardConcept)
	assert.Equal(t, "S", *item.Concept.StandardConcept)
	assert.False(t, item.IsExcluded)
	assert.True(t, item.IncludeDescendants)
}

func TestParseConceptSetExpressionWrappedForm(t *testing.T) {
	wrapped := `{"id": 3, "name": "Asthma concepts", "expression": ` + bareExpression + `}`

	expr, err := ParseConceptSetExpression([]byte(wrapped))
	require.NoError(t, err)
	require.Len(t, expr.Items, 1)
	assert.Equal(t, int32(317009), expr.Items[0].Concept.ConceptID)
}

func TestParseConceptSetExpressionWrappedWithoutMetadata(t *testing.T) {
	wrapped := `{"expression": {"items": []}}`

	expr, err := ParseConceptSetExpression([]byte(wrapped))
	require.NoError(t, err)
	assert.Empty(t, expr.Items)
}

func TestParseConceptSetExpressionRejectsOtherShapes(t *testing.T) {
	for _, raw := range []string{`{}`, `[]`, `"items"`, `{"expression": 5}`, `not json`} {
		_, err := ParseConceptSetExpression([]byte(raw))
		assert.Error(t, err, "input %q", raw)
	}
}

func TestConceptGatheringResultSummary(t *testing.T) {
	g := &ConceptGatheringResult{
		IncludedConcepts:    []int32{1, 2},
		IncludedDescendants: []int32{10, 20, 30},
		IncludedMapped:      []int32{40},
		ExcludedConcepts:    []int32{5},
		ExcludedMapped:      []int32{50, 51},
	}

	s := g.Summary()

	assert.Equal(t, 2, s.IncludedConceptsCount)
	assert.Equal(t, 3, s.IncludedDescendantsCount)
	assert.Equal(t, 1, s.IncludedMappedCount)
	assert.Equal(t, 1, s.ExcludedConceptsCount)
	assert.Equal(t, 0, s.ExcludedDescendantsCount)
	assert.Equal(t, 2, s.ExcludedMappedCount)
	assert.Equal(t, 6, s.TotalIncluded)
	assert.Equal(t, 3, s.TotalExcluded)
}

func TestValidationResultErrorsAffectValidity(t *testing.T) {
	r := NewValidationResult()
	assert.True(t, r.Valid)

	r.AddWarning("just a warning")
	assert.True(t, r.Valid)

	r.AddError("broken")
	assert.False(t, r.Valid)
	assert.Equal(t, []string{"broken"}, r.Errors)
	assert.Equal(t, []string{"just a warning"}, r.Warnings)
}
