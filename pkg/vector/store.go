// Package vector wraps the Qdrant collection holding one point per concept
// name variant. Each point's payload carries the display name, its
// lowercased form, and every concept sharing that name.
package vector

import (
	"context"

	"github.com/OHDSI/Hecate/pkg/models"
)

// Store is the similarity-search surface consumed by the services.
// Implementations must be safe for concurrent use. Point IDs are opaque
// strings, round-tripped but never interpreted.
type Store interface {
	// Retrieve fetches points by ID and converts their payloads.
	// Points with malformed payloads are skipped, not errors.
	Retrieve(ctx context.Context, pointIDs []string) ([]models.SearchResponse, error)

	// SearchByVector returns the nearest neighbors of the query vector.
	SearchByVector(ctx context.Context, vector []float32, limit uint64) ([]models.SearchResponse, error)

	// ScrollByNameLower returns the IDs of points whose payload matches the
	// lowercased concept name exactly.
	ScrollByNameLower(ctx context.Context, nameLower string) ([]string, error)

	// Recommend ranks points by similarity to the positive examples,
	// penalized by the negative ones. Results below scoreThreshold are
	// excluded.
	Recommend(ctx context.Context, positive, negative []string, scoreThreshold float32, limit uint64) ([]models.SearchResponse, error)

	// ScanNames walks the whole collection once, calling visit with every
	// point's ID and lowercased name. Used to build the exact-match index
	// at startup.
	ScanNames(ctx context.Context, visit func(pointID, nameLower string)) error
}
