// Package index holds the exact-match concept name index: a frozen mapping
// from lowercased concept name to the vector store point IDs carrying that
// name. It is built once at startup and only read afterwards, so a plain
// map is safe to share across requests.
package index

// ConceptIndex maps lowercased concept names to vector store point IDs.
type ConceptIndex struct {
	byName map[string][]string
}

// New builds a frozen index from the given mapping. The caller must not
// modify entries after passing them in.
func New(byName map[string][]string) *ConceptIndex {
	return &ConceptIndex{byName: byName}
}

// Get returns the point IDs cached for the lowercased name, or nil when the
// name is not indexed.
func (i *ConceptIndex) Get(nameLower string) []string {
	return i.byName[nameLower]
}

// Len returns the number of distinct names indexed.
func (i *ConceptIndex) Len() int {
	return len(i.byName)
}
