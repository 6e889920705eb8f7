package models

// Concept is one OMOP vocabulary entry. The uppercase JSON field names match
// the Atlas concept set exchange format, which is what the UI submits and
// expects back.
type Concept struct {
	ConceptID              int32   `json:"CONCEPT_ID"`
	ConceptName            string  `json:"CONCEPT_NAME"`
	VocabularyID           string  `json:"VOCABULARY_ID"`
	DomainID               string  `json:"DOMAIN_ID"`
	ConceptClassID         string  `json:"CONCEPT_CLASS_ID"`
	StandardConcept        *string `json:"STANDARD_CONCEPT"`
	StandardConceptCaption *string `json:"STANDARD_CONCEPT_CAPTION"`
	InvalidReason          *string `json:"INVALID_REASON"`
	InvalidReasonCaption   *string `json:"INVALID_REASON_CAPTION"`
	ConceptCode            string  `json:"CONCEPT_CODE"`
}

// RelatedConcept is a concept reached from another concept through a row in
// the relationship table, annotated with the relationship that produced it.
type RelatedConcept struct {
	ConceptID       int32   `json:"CONCEPT_ID"`
	ConceptName     string  `json:"CONCEPT_NAME"`
	VocabularyID    string  `json:"VOCABULARY_ID"`
	DomainID        string  `json:"DOMAIN_ID"`
	ConceptClassID  string  `json:"CONCEPT_CLASS_ID"`
	StandardConcept *string `json:"STANDARD_CONCEPT"`
	ConceptCode     string  `json:"CONCEPT_CODE"`
	RelationshipID  string  `json:"RELATIONSHIP_ID"`
}
