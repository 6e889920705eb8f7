//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OHDSI/Hecate/pkg/apperrors"
	"github.com/OHDSI/Hecate/pkg/testhelpers"
)

func setupConceptRepo(t *testing.T) ConceptRepository {
	db := testhelpers.GetTestDB(t)
	return NewConceptRepository(db.DB)
}

func TestConceptRepository_GetConceptNameByNumber(t *testing.T) {
	repo := setupConceptRepo(t)
	ctx := context.Background()

	names, err := repo.GetConceptNameByNumber(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hypertensive disorder"}, names)

	names, err = repo.GetConceptNameByNumber(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestConceptRepository_GetConceptNameByString(t *testing.T) {
	repo := setupConceptRepo(t)
	ctx := context.Background()

	names, err := repo.GetConceptNameByString(ctx, "I10")
	require.NoError(t, err)
	assert.Equal(t, []string{"Hypertension NOS"}, names)

	names, err = repo.GetConceptNameByString(ctx, "no-such-code")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestConceptRepository_GetConceptByID(t *testing.T) {
	repo := setupConceptRepo(t)
	ctx := context.Background()

	concept, err := repo.GetConceptByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), concept.ConceptID)
	assert.Equal(t, "Hypertensive disorder", concept.ConceptName)
	require.NotNil(t, concept.StandardConcept)
	assert.Equal(t, "S", *concept.StandardConcept)
	require.NotNil(t, concept.StandardConceptCaption)
	assert.Equal(t, "Standard", *concept.StandardConceptCaption)
	require.NotNil(t, concept.InvalidReasonCaption)
	assert.Equal(t, "Valid", *concept.InvalidReasonCaption)
}

func TestConceptRepository_GetConceptByID_Captions(t *testing.T) {
	repo := setupConceptRepo(t)
	ctx := context.Background()

	concept, err := repo.GetConceptByID(ctx, 4)
	require.NoError(t, err)
	assert.Nil(t, concept.StandardConcept)
	require.NotNil(t, concept.StandardConceptCaption)
	assert.Equal(t, "Non-Standard", *concept.StandardConceptCaption)
	require.NotNil(t, concept.InvalidReason)
	require.NotNil(t, concept.InvalidReasonCaption)
	assert.Equal(t, "Invalid", *concept.InvalidReasonCaption)
}

func TestConceptRepository_GetConceptByID_NotFound(t *testing.T) {
	repo := setupConceptRepo(t)

	_, err := repo.GetConceptByID(context.Background(), 999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestConceptRepository_GetConceptRelationships(t *testing.T) {
	repo := setupConceptRepo(t)
	ctx := context.Background()

	related, err := repo.GetConceptRelationships(ctx, 2)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, int32(1), related[0].ConceptID)
	assert.Equal(t, "Is a", related[0].RelationshipID)

	// Concept 5's only relationship row is invalidated.
	related, err = repo.GetConceptRelationships(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, related)
}

func TestConceptRepository_GetConceptRecommended(t *testing.T) {
	repo := setupConceptRepo(t)

	related, err := repo.GetConceptRecommended(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, int32(6), related[0].ConceptID)
	assert.Equal(t, "Pulse taking", related[0].ConceptName)
}

func TestConceptRepository_GetBatchDescendants(t *testing.T) {
	repo := setupConceptRepo(t)

	result, err := repo.GetBatchDescendants(context.Background(), []int32{1, 3})
	require.NoError(t, err)
	require.Len(t, result, 2)

	// The zero-separation self row must not count as a descendant.
	assert.ElementsMatch(t, []int32{2, 3}, result[1])
	// Requested IDs with no descendants still get an entry.
	assert.Equal(t, []int32{}, result[3])
}

func TestConceptRepository_GetBatchMapped(t *testing.T) {
	repo := setupConceptRepo(t)

	result, err := repo.GetBatchMapped(context.Background(), []int32{2, 3})
	require.NoError(t, err)
	require.Len(t, result, 2)

	// Only the valid "Maps to" row counts; concept 5's row is invalidated.
	assert.Equal(t, []int32{4}, result[2])
	assert.Equal(t, []int32{}, result[3])
}

func TestConceptRepository_GetBatchDescendants_EmptyInput(t *testing.T) {
	repo := setupConceptRepo(t)

	result, err := repo.GetBatchDescendants(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result)
}
