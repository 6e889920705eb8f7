package vector

import (
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"github.com/OHDSI/Hecate/pkg/models"
)

// payloadToResponse converts one point payload into a search response.
// The expected shape is {"concept_name": string, "concept_name_lower":
// string, "concepts": [object]}. Returns false when the payload cannot
// yield a usable response; such points are skipped by callers.
func payloadToResponse(payload map[string]*qdrant.Value, score float32) (models.SearchResponse, bool) {
	name, ok := stringField(payload, "concept_name")
	if !ok || name == "" {
		return models.SearchResponse{}, false
	}

	nameLower, ok := stringField(payload, "concept_name_lower")
	if !ok || nameLower == "" {
		nameLower = strings.ToLower(name)
	}

	list := payload["concepts"].GetListValue()
	if list == nil {
		return models.SearchResponse{}, false
	}

	concepts := make([]models.Concept, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		c, ok := conceptFromValue(v)
		if !ok {
			continue
		}
		concepts = append(concepts, c)
	}
	if len(concepts) == 0 {
		return models.SearchResponse{}, false
	}

	return models.SearchResponse{
		ConceptName:      name,
		ConceptNameLower: nameLower,
		Score:            score,
		Concepts:         concepts,
	}, true
}

func conceptFromValue(v *qdrant.Value) (models.Concept, bool) {
	s := v.GetStructValue()
	if s == nil {
		return models.Concept{}, false
	}
	fields := s.GetFields()

	id, ok := intField(fields, "concept_id")
	if !ok {
		return models.Concept{}, false
	}
	name, ok := stringField(fields, "concept_name")
	if !ok {
		return models.Concept{}, false
	}

	c := models.Concept{
		ConceptID:   id,
		ConceptName: name,
	}
	c.VocabularyID, _ = stringField(fields, "vocabulary_id")
	c.DomainID, _ = stringField(fields, "domain_id")
	c.ConceptClassID, _ = stringField(fields, "concept_class_id")
	c.ConceptCode, _ = stringField(fields, "concept_code")
	c.StandardConcept = optionalStringField(fields, "standard_concept")
	c.StandardConceptCaption = optionalStringField(fields, "standard_concept_caption")
	c.InvalidReason = optionalStringField(fields, "invalid_reason")
	c.InvalidReasonCaption = optionalStringField(fields, "invalid_reason_caption")

	return c, true
}

func stringField(fields map[string]*qdrant.Value, key string) (string, bool) {
	v, ok := fields[key]
	if !ok {
		return "", false
	}
	if _, isStr := v.GetKind().(*qdrant.Value_StringValue); !isStr {
		return "", false
	}
	return v.GetStringValue(), true
}

// optionalStringField treats missing, null and empty values as absent.
func optionalStringField(fields map[string]*qdrant.Value, key string) *string {
	s, ok := stringField(fields, key)
	if !ok || s == "" {
		return nil
	}
	return &s
}

func intField(fields map[string]*qdrant.Value, key string) (int32, bool) {
	v, ok := fields[key]
	if !ok {
		return 0, false
	}
	switch v.GetKind().(type) {
	case *qdrant.Value_IntegerValue:
		return int32(v.GetIntegerValue()), true
	case *qdrant.Value_DoubleValue:
		return int32(v.GetDoubleValue()), true
	default:
		return 0, false
	}
}
