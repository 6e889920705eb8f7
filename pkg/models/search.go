package models

import (
	"sort"
	"strings"
)

// SearchResponse is one row of search output: a display name, the concepts
// sharing that name, and the similarity score of the vector point that
// produced it. Exact lookups that never touch the vector index carry a
// score of 1.0.
type SearchResponse struct {
	ConceptName      string    `json:"concept_name"`
	ConceptNameLower string    `json:"concept_name_lower"`
	Score            float32   `json:"score"`
	Concepts         []Concept `json:"concepts"`
}

// SearchFilters narrows search results after retrieval. A nil slice or
// empty string imposes no constraint on its field.
type SearchFilters struct {
	VocabularyIDs   []string
	DomainIDs       []string
	ConceptClassIDs []string
	StandardConcept *string
}

// Matches reports whether the concept passes every supplied filter.
// List filters are case-insensitive membership tests. The standard-concept
// filter is an exact match, with the empty string selecting concepts that
// have no standard-concept value at all.
func (f *SearchFilters) Matches(c *Concept) bool {
	if f == nil {
		return true
	}
	if len(f.VocabularyIDs) > 0 && !containsFold(f.VocabularyIDs, c.VocabularyID) {
		return false
	}
	if f.StandardConcept != nil {
		switch {
		case c.StandardConcept != nil && *c.StandardConcept == *f.StandardConcept:
		case c.StandardConcept == nil && *f.StandardConcept == "":
		default:
			return false
		}
	}
	if len(f.DomainIDs) > 0 && !containsFold(f.DomainIDs, c.DomainID) {
		return false
	}
	if len(f.ConceptClassIDs) > 0 && !containsFold(f.ConceptClassIDs, c.ConceptClassID) {
		return false
	}
	return true
}

// Apply filters a concept list in place, returning the survivors.
func (f *SearchFilters) Apply(concepts []Concept) []Concept {
	if f == nil {
		return concepts
	}
	kept := concepts[:0]
	for _, c := range concepts {
		if f.Matches(&c) {
			kept = append(kept, c)
		}
	}
	return kept
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}

// ResultAccumulator merges search responses by lowercased name while
// preserving first-seen order. Responses sharing a name have their concept
// lists concatenated, keeping the first-seen score.
type ResultAccumulator struct {
	byName  map[string]int
	ordered []SearchResponse
}

// NewResultAccumulator returns an empty accumulator.
func NewResultAccumulator() *ResultAccumulator {
	return &ResultAccumulator{byName: make(map[string]int)}
}

// Add merges one response into the accumulator. Responses with an empty
// concept list are dropped.
func (a *ResultAccumulator) Add(resp SearchResponse) {
	if len(resp.Concepts) == 0 {
		return
	}
	if i, ok := a.byName[resp.ConceptNameLower]; ok {
		a.ordered[i].Concepts = append(a.ordered[i].Concepts, resp.Concepts...)
		return
	}
	a.byName[resp.ConceptNameLower] = len(a.ordered)
	a.ordered = append(a.ordered, resp)
}

// Len returns the number of distinct names accumulated so far.
func (a *ResultAccumulator) Len() int {
	return len(a.ordered)
}

// Ranked returns the merged responses sorted by score descending,
// truncated to limit when limit > 0. The sort is stable, so equal-score
// responses keep their first-seen order.
func (a *ResultAccumulator) Ranked(limit int) []SearchResponse {
	out := a.ordered
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
