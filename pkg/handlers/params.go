package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// ParseConceptID extracts and validates the {id} path parameter.
// Writes an error response and returns false when the value is not a
// numeric concept ID.
func ParseConceptID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int32, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		logger.Debug("Invalid concept ID in path", zap.String("id", raw))
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_concept_id", "concept ID must be numeric")
		return 0, false
	}
	return int32(id), true
}
