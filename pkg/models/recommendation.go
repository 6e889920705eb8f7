package models

// RecommendedConcept is one ranked suggestion produced by the recommendation
// engine. SourceConceptID names the expression concept that justified it.
type RecommendedConcept struct {
	ConceptID       int32   `json:"concept_id"`
	ConceptName     string  `json:"concept_name"`
	VocabularyID    string  `json:"vocabulary_id"`
	DomainID        string  `json:"domain_id"`
	ConceptClassID  string  `json:"concept_class_id"`
	ConceptCode     string  `json:"concept_code"`
	StandardConcept string  `json:"standard_concept"`
	InvalidReason   *string `json:"invalid_reason"`
	SimilarityScore float32 `json:"similarity_score"`
	SourceConceptID int32   `json:"source_concept_id"`
}

// ConceptRecommendations aggregates ranked suggestions for one expression.
// UsedVocabularies lists the distinct vocabularies of the input expression's
// items, not of the recommendations; the UI uses it for filter pre-selection.
type ConceptRecommendations struct {
	Recommendations  []RecommendedConcept `json:"recommendations"`
	TotalCount       int                  `json:"total_count"`
	UsedVocabularies []string             `json:"used_vocabularies"`
}
