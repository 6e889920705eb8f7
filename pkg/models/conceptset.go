package models

import (
	"encoding/json"
	"fmt"
)

// ConceptSetItem is one rule of a concept set expression: a concept, whether
// it is excluded, and whether its descendants and mapped concepts are pulled
// in with it.
type ConceptSetItem struct {
	Concept            Concept `json:"concept"`
	IsExcluded         bool    `json:"isExcluded"`
	IncludeDescendants bool    `json:"includeDescendants"`
	IncludeMapped      bool    `json:"includeMapped"`
}

// ConceptSetExpression is an ordered list of inclusion/exclusion rules.
type ConceptSetExpression struct {
	Items []ConceptSetItem `json:"items"`
}

// conceptSetWithMetadata is the wrapped exchange form: the expression plus
// optional id/name metadata, as exported by Atlas.
type conceptSetWithMetadata struct {
	ID         *int32                `json:"id"`
	Name       *string               `json:"name"`
	Expression *ConceptSetExpression `json:"expression"`
}

// ParseConceptSetExpression decodes a concept set from either accepted
// shape: a bare expression {"items": [...]} or a metadata wrapper
// {"id", "name", "expression": {"items": [...]}}.
func ParseConceptSetExpression(raw []byte) (*ConceptSetExpression, error) {
	var expr ConceptSetExpression
	if err := json.Unmarshal(raw, &expr); err == nil && expr.Items != nil {
		return &expr, nil
	}

	var wrapped conceptSetWithMetadata
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Expression != nil && wrapped.Expression.Items != nil {
		return wrapped.Expression, nil
	}

	return nil, fmt.Errorf("unable to parse concept set")
}

// ConceptGatheringResult holds the six ID sets produced by analyzing an
// expression: included/excluded crossed with direct, descendant and mapped.
// After finalization the descendant and mapped lists are sorted and
// duplicate-free, and no excluded ID remains in any included list.
type ConceptGatheringResult struct {
	IncludedConcepts    []int32
	IncludedDescendants []int32
	IncludedMapped      []int32
	ExcludedConcepts    []int32
	ExcludedDescendants []int32
	ExcludedMapped      []int32
}

// ConceptSummary is the count view of a gathering result returned to the
// client.
type ConceptSummary struct {
	IncludedConceptsCount    int `json:"included_concepts_count"`
	IncludedDescendantsCount int `json:"included_descendants_count"`
	IncludedMappedCount      int `json:"included_mapped_count"`
	ExcludedConceptsCount    int `json:"excluded_concepts_count"`
	ExcludedDescendantsCount int `json:"excluded_descendants_count"`
	ExcludedMappedCount      int `json:"excluded_mapped_count"`
	TotalIncluded            int `json:"total_included"`
	TotalExcluded            int `json:"total_excluded"`
}

// Summary returns the count view of the gathering result.
func (g *ConceptGatheringResult) Summary() *ConceptSummary {
	return &ConceptSummary{
		IncludedConceptsCount:    len(g.IncludedConcepts),
		IncludedDescendantsCount: len(g.IncludedDescendants),
		IncludedMappedCount:      len(g.IncludedMapped),
		ExcludedConceptsCount:    len(g.ExcludedConcepts),
		ExcludedDescendantsCount: len(g.ExcludedDescendants),
		ExcludedMappedCount:      len(g.ExcludedMapped),
		TotalIncluded:            len(g.IncludedConcepts) + len(g.IncludedDescendants) + len(g.IncludedMapped),
		TotalExcluded:            len(g.ExcludedConcepts) + len(g.ExcludedDescendants) + len(g.ExcludedMapped),
	}
}

// ValidationResult is the outcome of analyzing one concept set expression.
// Validity is false iff at least one error was recorded; warnings never
// affect it.
type ValidationResult struct {
	Valid           bool                    `json:"valid"`
	Errors          []string                `json:"errors"`
	Warnings        []string                `json:"warnings"`
	ConceptSummary  *ConceptSummary         `json:"concept_summary,omitempty"`
	Recommendations *ConceptRecommendations `json:"recommendations,omitempty"`

	// Gathering holds the full ID sets behind ConceptSummary. It is kept
	// off the wire; callers that need the raw sets read it directly.
	Gathering *ConceptGatheringResult `json:"-"`
}

// NewValidationResult returns a valid result with empty error and warning
// lists, so the JSON form always carries arrays rather than nulls.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid:    true,
		Errors:   []string{},
		Warnings: []string{},
	}
}

// AddError records an error and marks the result invalid.
func (r *ValidationResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Valid = false
}

// AddWarning records a warning without affecting validity.
func (r *ValidationResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
