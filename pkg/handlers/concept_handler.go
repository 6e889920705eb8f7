package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/OHDSI/Hecate/pkg/apperrors"
	"github.com/OHDSI/Hecate/pkg/models"
	"github.com/OHDSI/Hecate/pkg/repositories"
)

// ConceptHandler serves concept lookups straight from the vocabulary
// repository; these endpoints are pass-throughs with no business logic.
type ConceptHandler struct {
	concepts repositories.ConceptRepository
	logger   *zap.Logger
}

// NewConceptHandler creates a new concept handler.
func NewConceptHandler(concepts repositories.ConceptRepository, logger *zap.Logger) *ConceptHandler {
	return &ConceptHandler{concepts: concepts, logger: logger}
}

// RegisterRoutes registers the concept handler's routes on the given mux.
func (h *ConceptHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/concepts/{id}", h.Get)
	mux.HandleFunc("GET /api/concepts/{id}/relationships", h.Relationships)
	mux.HandleFunc("GET /api/concepts/{id}/phoebe", h.Phoebe)
}

// Get handles GET /api/concepts/{id}.
// Returns a single-element array for compatibility with the UI.
func (h *ConceptHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseConceptID(w, r, h.logger)
	if !ok {
		return
	}
	h.logger.Debug("Get concept", zap.Int32("concept_id", id))

	concept, err := h.concepts.GetConceptByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = ErrorResponse(w, http.StatusNotFound, "concept_not_found", "concept not found")
			return
		}
		h.logger.Error("Failed to get concept", zap.Int32("concept_id", id), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "lookup_failed", "concept lookup failed")
		return
	}

	if err := WriteJSON(w, http.StatusOK, []models.Concept{*concept}); err != nil {
		h.logger.Error("Failed to write concept response", zap.Error(err))
	}
}

// Relationships handles GET /api/concepts/{id}/relationships.
func (h *ConceptHandler) Relationships(w http.ResponseWriter, r *http.Request) {
	h.related(w, r, h.concepts.GetConceptRelationships)
}

// Phoebe handles GET /api/concepts/{id}/phoebe.
func (h *ConceptHandler) Phoebe(w http.ResponseWriter, r *http.Request) {
	h.related(w, r, h.concepts.GetConceptRecommended)
}

func (h *ConceptHandler) related(
	w http.ResponseWriter,
	r *http.Request,
	lookup func(ctx context.Context, conceptID int32) ([]models.RelatedConcept, error),
) {
	id, ok := ParseConceptID(w, r, h.logger)
	if !ok {
		return
	}
	h.logger.Debug("Get related concepts", zap.Int32("concept_id", id))

	related, err := lookup(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get related concepts", zap.Int32("concept_id", id), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "lookup_failed", "concept lookup failed")
		return
	}

	if related == nil {
		related = []models.RelatedConcept{}
	}
	if err := WriteJSON(w, http.StatusOK, related); err != nil {
		h.logger.Error("Failed to write related concepts response", zap.Error(err))
	}
}
