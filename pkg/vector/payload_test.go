package vector

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadToResponse(t *testing.T) {
	payload := qdrant.NewValueMap(map[string]any{
		"concept_name":       "Asthma",
		"concept_name_lower": "asthma",
		"concepts": []any{
			map[string]any{
				"concept_id":       317009,
				"concept_name":     "Asthma",
				"vocabulary_id":    "SNOMED",
				"domain_id":        "Condition",
				"concept_class_id": "Clinical Finding",
				"concept_code":     "195967001",
				"standard_concept": "S",
			},
			map[string]any{
				"concept_id":   45877009,
				"concept_name": "Asthma",
			},
		},
	})

	resp, ok := payloadToResponse(payload, 0.91)
	require.True(t, ok)

	assert.Equal(t, "Asthma", resp.ConceptName)
	assert.Equal(t, "asthma", resp.ConceptNameLower)
	assert.InDelta(t, 0.91, resp.Score, 1e-6)
	require.Len(t, resp.Concepts, 2)
	assert.Equal(t, int32(317009), resp.Concepts[0].ConceptID)
	assert.Equal(t, "SNOMED", resp.Concepts[0].VocabularyID)
	require.NotNil(t, resp.Concepts[0].StandardConcept)
	assert.Equal(t, "S", *resp.Concepts[0].StandardConcept)
	assert.Nil(t, resp.Concepts[1].StandardConcept)
}

func TestPayloadToResponseDerivesLowerName(t *testing.T) {
	payload := qdrant.NewValueMap(map[string]any{
		"concept_name": "Asthma",
		"concepts": []any{
			map[string]any{"concept_id": 317009, "concept_name": "Asthma"},
		},
	})

	resp, ok := payloadToResponse(payload, 1.0)
	require.True(t, ok)
	assert.Equal(t, "asthma", resp.ConceptNameLower)
}

func TestPayloadToResponseMalformed(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]*qdrant.Value
	}{
		{"missing name", qdrant.NewValueMap(map[string]any{
			"concepts": []any{},
		})},
		{"missing concepts", qdrant.NewValueMap(map[string]any{
			"concept_name": "Asthma",
		})},
		{"all concepts malformed", qdrant.NewValueMap(map[string]any{
			"concept_name": "Asthma",
			"concepts":     []any{"not a struct"},
		})},
		{"concept without id", qdrant.NewValueMap(map[string]any{
			"concept_name": "Asthma",
			"concepts": []any{
				map[string]any{"concept_name": "Asthma"},
			},
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := payloadToResponse(tt.payload, 1.0)
			assert.False(t, ok)
		})
	}
}

func TestPointIDRoundTrip(t *testing.T) {
	u := "a3bb189e-8bf9-3888-9912-ace4e6543002"
	assert.Equal(t, u, pointIDString(pointIDFromString(u)))
	assert.Equal(t, "42", pointIDString(pointIDFromString("42")))
}
