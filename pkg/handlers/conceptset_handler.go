package handlers

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/OHDSI/Hecate/pkg/services"
)

// maxConceptSetBody bounds the accepted expression size. Atlas exports of
// very large concept sets stay well under this.
const maxConceptSetBody = 8 << 20

// ConceptSetHandler serves concept set validation requests.
type ConceptSetHandler struct {
	analyzer services.ConceptSetService
	logger   *zap.Logger
}

// NewConceptSetHandler creates a new concept set handler.
func NewConceptSetHandler(analyzer services.ConceptSetService, logger *zap.Logger) *ConceptSetHandler {
	return &ConceptSetHandler{
		analyzer: analyzer,
		logger:   logger,
	}
}

// RegisterRoutes registers the concept set handler's routes on the given mux.
func (h *ConceptSetHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/validate-concept-set", h.Validate)
}

// Validate handles POST /api/validate-concept-set. The body is the concept
// set expression JSON, either bare or wrapped in expression metadata. Input
// problems never fail the request; they come back as in-band errors inside
// the validation result.
func (h *ConceptSetHandler) Validate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxConceptSetBody))
	if err != nil {
		h.logger.Error("Failed to read concept set body", zap.Error(err))
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_body", "failed to read request body")
		return
	}

	h.logger.Debug("Analyzing concept set", zap.Int("body_bytes", len(body)))

	result := h.analyzer.Analyze(r.Context(), body)
	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to write validation response", zap.Error(err))
	}
}
