package handlers

import (
	"net/http"
	"strings"

	"github.com/caldermed/chartsync/internal/application/services"
	apperrors "github.com/caldermed/chartsync/pkg/errors"
)

// VisitHistoryHandler serves the read side of the visit history ledger
type VisitHistoryHandler struct {
	service *services.VisitHistoryService
}

// NewVisitHistoryHandler creates a new visit history handler
func NewVisitHistoryHandler(service *services.VisitHistoryService) *VisitHistoryHandler {
	return &VisitHistoryHandler{service: service}
}

// GetVisitHistory handles GET /api/v1/chart/entities/{entityID}/visit-history
func (h *VisitHistoryHandler) GetVisitHistory(w http.ResponseWriter, r *http.Request) {
	entityID := r.PathValue("entityID")
	if strings.TrimSpace(entityID) == "" {
		respondWithError(w, http.StatusBadRequest, "entity id is required")
		return
	}

	entries, err := h.service.List(r.Context(), entityID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			respondWithError(w, http.StatusNotFound, "chart entity not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "failed to load visit history")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"entity_id":     entityID,
		"visit_history": entries,
	})
}

// GetEntity handles GET /api/v1/chart/entities/{entityID}
func (h *VisitHistoryHandler) GetEntity(w http.ResponseWriter, r *http.Request) {
	entityID := r.PathValue("entityID")
	if strings.TrimSpace(entityID) == "" {
		respondWithError(w, http.StatusBadRequest, "entity id is required")
		return
	}

	entity, err := h.service.GetEntity(r.Context(), entityID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			respondWithError(w, http.StatusNotFound, "chart entity not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "failed to load chart entity")
		return
	}

	respondWithJSON(w, http.StatusOK, entity)
}
