package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/OHDSI/Hecate/pkg/apperrors"
	"github.com/OHDSI/Hecate/pkg/database"
	"github.com/OHDSI/Hecate/pkg/models"
)

// ConceptRepository provides read access to the OMOP vocabulary tables.
type ConceptRepository interface {
	// GetConceptNameByNumber resolves a numeric query to candidate concept
	// names, matching on concept ID or concept code.
	GetConceptNameByNumber(ctx context.Context, input int32) ([]string, error)

	// GetConceptNameByString resolves a non-numeric query to candidate
	// concept names, matching on concept code.
	GetConceptNameByString(ctx context.Context, input string) ([]string, error)

	// GetConceptByID returns the full concept record.
	GetConceptByID(ctx context.Context, conceptID int32) (*models.Concept, error)

	// GetConceptRelationships returns the valid relationship rows leading
	// out of the concept, joined with the target concept.
	GetConceptRelationships(ctx context.Context, conceptID int32) ([]models.RelatedConcept, error)

	// GetConceptRecommended returns the PHOEBE recommended concepts for
	// the concept.
	GetConceptRecommended(ctx context.Context, conceptID int32) ([]models.RelatedConcept, error)

	// GetBatchDescendants returns, per requested ID, its strict descendants
	// (separation level > 0) in one query. Every requested ID is present in
	// the result map, with an empty slice when it has no descendants.
	GetBatchDescendants(ctx context.Context, conceptIDs []int32) (map[int32][]int32, error)

	// GetBatchMapped returns, per requested ID, the concepts mapping to it
	// via valid "Maps to" relationships, in one query. Every requested ID
	// is present in the result map.
	GetBatchMapped(ctx context.Context, conceptIDs []int32) (map[int32][]int32, error)
}

type conceptRepository struct {
	db *database.DB
}

// NewConceptRepository creates a new ConceptRepository backed by the
// vocabulary database.
func NewConceptRepository(db *database.DB) ConceptRepository {
	return &conceptRepository{db: db}
}

var _ ConceptRepository = (*conceptRepository)(nil)

const conceptColumns = `
	concept_id, concept_name, vocabulary_id, domain_id, concept_class_id,
	standard_concept,
	CASE standard_concept
		WHEN 'S' THEN 'Standard'
		WHEN 'C' THEN 'Classification'
		ELSE 'Non-Standard'
	END AS standard_concept_caption,
	invalid_reason,
	CASE WHEN invalid_reason IS NULL THEN 'Valid' ELSE 'Invalid' END AS invalid_reason_caption,
	concept_code`

func (r *conceptRepository) GetConceptNameByNumber(ctx context.Context, input int32) ([]string, error) {
	query := `
		SELECT concept_name
		FROM cdm.concept
		WHERE concept_id = $1 OR concept_code = $2`

	rows, err := r.db.Query(ctx, query, input, strconv.Itoa(int(input)))
	if err != nil {
		return nil, wrapQueryErr("failed to resolve concept name by number", err)
	}
	defer rows.Close()

	return scanStrings(rows)
}

func (r *conceptRepository) GetConceptNameByString(ctx context.Context, input string) ([]string, error) {
	query := `
		SELECT concept_name
		FROM cdm.concept
		WHERE concept_code = $1`

	rows, err := r.db.Query(ctx, query, input)
	if err != nil {
		return nil, wrapQueryErr("failed to resolve concept name by string", err)
	}
	defer rows.Close()

	return scanStrings(rows)
}

func (r *conceptRepository) GetConceptByID(ctx context.Context, conceptID int32) (*models.Concept, error) {
	query := `SELECT ` + conceptColumns + `
		FROM cdm.concept
		WHERE concept_id = $1`

	var c models.Concept
	err := r.db.QueryRow(ctx, query, conceptID).Scan(
		&c.ConceptID,
		&c.ConceptName,
		&c.VocabularyID,
		&c.DomainID,
		&c.ConceptClassID,
		&c.StandardConcept,
		&c.StandardConceptCaption,
		&c.InvalidReason,
		&c.InvalidReasonCaption,
		&c.ConceptCode,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, wrapQueryErr("failed to get concept", err)
	}

	return &c, nil
}

func (r *conceptRepository) GetConceptRelationships(ctx context.Context, conceptID int32) ([]models.RelatedConcept, error) {
	query := `
		SELECT c.concept_id, c.concept_name, c.vocabulary_id, c.domain_id,
		       c.concept_class_id, c.standard_concept, c.concept_code,
		       cr.relationship_id
		FROM cdm.concept_relationship cr
		JOIN cdm.concept c ON c.concept_id = cr.concept_id_2
		WHERE cr.concept_id_1 = $1
		  AND cr.invalid_reason IS NULL`

	rows, err := r.db.Query(ctx, query, conceptID)
	if err != nil {
		return nil, wrapQueryErr("failed to get concept relationships", err)
	}
	defer rows.Close()

	return scanRelatedConcepts(rows)
}

func (r *conceptRepository) GetConceptRecommended(ctx context.Context, conceptID int32) ([]models.RelatedConcept, error) {
	query := `
		SELECT c.concept_id, c.concept_name, c.vocabulary_id, c.domain_id,
		       c.concept_class_id, c.standard_concept, c.concept_code,
		       cr.relationship_id
		FROM cdm.concept_recommended cr
		JOIN cdm.concept c ON c.concept_id = cr.concept_id_2
		WHERE cr.concept_id_1 = $1`

	rows, err := r.db.Query(ctx, query, conceptID)
	if err != nil {
		return nil, wrapQueryErr("failed to get recommended concepts", err)
	}
	defer rows.Close()

	return scanRelatedConcepts(rows)
}

func (r *conceptRepository) GetBatchDescendants(ctx context.Context, conceptIDs []int32) (map[int32][]int32, error) {
	query := `
		SELECT ancestor_concept_id, descendant_concept_id
		FROM cdm.concept_ancestor
		WHERE ancestor_concept_id = ANY($1)
		  AND min_levels_of_separation > 0`

	return r.queryBatch(ctx, query, conceptIDs, "failed to get descendant concepts")
}

func (r *conceptRepository) GetBatchMapped(ctx context.Context, conceptIDs []int32) (map[int32][]int32, error) {
	query := `
		SELECT cr.concept_id_2, cr.concept_id_1
		FROM cdm.concept_relationship cr
		WHERE cr.concept_id_2 = ANY($1)
		  AND cr.relationship_id = 'Maps to'
		  AND cr.invalid_reason IS NULL`

	return r.queryBatch(ctx, query, conceptIDs, "failed to get mapped concepts")
}

// queryBatch runs a two-column (source, target) query over the given IDs and
// groups targets by source. Every requested ID gets an entry, so callers can
// distinguish "no expansion" from "not requested".
func (r *conceptRepository) queryBatch(ctx context.Context, query string, conceptIDs []int32, errPrefix string) (map[int32][]int32, error) {
	result := make(map[int32][]int32, len(conceptIDs))
	if len(conceptIDs) == 0 {
		return result, nil
	}
	for _, id := range conceptIDs {
		result[id] = []int32{}
	}

	rows, err := r.db.Query(ctx, query, conceptIDs)
	if err != nil {
		return nil, wrapQueryErr(errPrefix, err)
	}
	defer rows.Close()

	for rows.Next() {
		var source, target int32
		if err := rows.Scan(&source, &target); err != nil {
			return nil, fmt.Errorf("%s: %w", errPrefix, err)
		}
		result[source] = append(result[source], target)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryErr(errPrefix, err)
	}

	return result, nil
}

func scanStrings(rows pgx.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan concept name: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryErr("failed to read concept names", err)
	}
	return out, nil
}

func scanRelatedConcepts(rows pgx.Rows) ([]models.RelatedConcept, error) {
	var out []models.RelatedConcept
	for rows.Next() {
		var rc models.RelatedConcept
		if err := rows.Scan(
			&rc.ConceptID,
			&rc.ConceptName,
			&rc.VocabularyID,
			&rc.DomainID,
			&rc.ConceptClassID,
			&rc.StandardConcept,
			&rc.ConceptCode,
			&rc.RelationshipID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan related concept: %w", err)
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryErr("failed to read related concepts", err)
	}
	return out, nil
}

// wrapQueryErr tags pool-acquisition timeouts with the distinct exhaustion
// sentinel; every other failure is wrapped as-is.
func wrapQueryErr(prefix string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", prefix, apperrors.ErrPoolExhausted, err)
	}
	return fmt.Errorf("%s: %w", prefix, err)
}
