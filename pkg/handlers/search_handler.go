package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/OHDSI/Hecate/pkg/jsonutil"
	"github.com/OHDSI/Hecate/pkg/models"
	"github.com/OHDSI/Hecate/pkg/services"
)

// SearchHandler handles vocabulary search HTTP requests.
type SearchHandler struct {
	searchService services.SearchService
	logger        *zap.Logger
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(searchService services.SearchService, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		logger:        logger,
	}
}

// RegisterRoutes registers the search handler's routes on the given mux.
func (h *SearchHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/search", h.Search)
}

// Search handles GET /api/search.
//
// Query parameters: q (required), vocabulary_id, domain_id,
// concept_class_id (repeatable or comma-separated), standard_concept,
// limit (default 100).
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	q := query.Get("q")
	if q == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_query", "query parameter q is required")
		return
	}

	filters := parseSearchFilters(query)

	limit := services.DefaultSearchLimit
	if rawLimit := query.Get("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil || parsed <= 0 {
			_ = ErrorResponse(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	results, err := h.searchService.Search(r.Context(), q, filters, limit)
	if err != nil {
		h.logger.Error("Search failed", zap.String("query", q), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "search_failed", "search request failed")
		return
	}

	if results == nil {
		results = []models.SearchResponse{}
	}
	if err := WriteJSON(w, http.StatusOK, results); err != nil {
		h.logger.Error("Failed to write search response", zap.Error(err))
	}
}

// parseSearchFilters reads the filter parameters. Each list parameter
// accepts repeated values and comma-separated strings; standard_concept is
// a single value where presence matters ("" selects concepts without one).
func parseSearchFilters(query url.Values) *models.SearchFilters {
	filters := &models.SearchFilters{
		VocabularyIDs:   parseListParam(query, "vocabulary_id"),
		DomainIDs:       parseListParam(query, "domain_id"),
		ConceptClassIDs: parseListParam(query, "concept_class_id"),
	}
	if values, ok := query["standard_concept"]; ok && len(values) > 0 {
		filters.StandardConcept = &values[0]
	}
	return filters
}

func parseListParam(query url.Values, key string) []string {
	var out []string
	for _, value := range query[key] {
		out = append(out, jsonutil.SplitCSV(value)...)
	}
	return out
}
