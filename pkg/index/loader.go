package index

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/OHDSI/Hecate/pkg/vector"
)

// Load builds the exact-match index by walking the vector collection once.
// Every point contributes its ID under its lowercased concept name.
func Load(ctx context.Context, store vector.Store, logger *zap.Logger) (*ConceptIndex, error) {
	start := time.Now()
	byName := make(map[string][]string)
	points := 0

	err := store.ScanNames(ctx, func(pointID, nameLower string) {
		byName[nameLower] = append(byName[nameLower], pointID)
		points++
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load concept index: %w", err)
	}

	logger.Info("Concept index loaded",
		zap.Int("names", len(byName)),
		zap.Int("points", points),
		zap.Duration("elapsed", time.Since(start)))

	return New(byName), nil
}
