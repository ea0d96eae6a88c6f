package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/caldermed/chartsync/internal/application/services"
	"github.com/caldermed/chartsync/internal/domain/entities"
	"github.com/caldermed/chartsync/internal/infrastructure/observability"
	apperrors "github.com/caldermed/chartsync/pkg/errors"
)

// ChartProcessingHandler exposes the processing run endpoint
type ChartProcessingHandler struct {
	coordinator *services.SectionCoordinator
	registry    *services.ProcessorRegistry
}

// NewChartProcessingHandler creates a new chart processing handler
func NewChartProcessingHandler(coordinator *services.SectionCoordinator, registry *services.ProcessorRegistry) *ChartProcessingHandler {
	return &ChartProcessingHandler{
		coordinator: coordinator,
		registry:    registry,
	}
}

type processRequest struct {
	Content           string   `json:"content"`
	SourceType        string   `json:"source_type"`
	SourceReference   *string  `json:"source_reference,omitempty"`
	EncounterID       *string  `json:"encounter_id,omitempty"`
	AttachmentID      *string  `json:"attachment_id,omitempty"`
	ActingUserID      string   `json:"acting_user_id"`
	EnabledCategories []string `json:"enabled_categories,omitempty"`
}

// ProcessChart handles POST /api/v1/patients/{patientID}/chart/process
func (h *ChartProcessingHandler) ProcessChart(w http.ResponseWriter, r *http.Request) {
	patientID := r.PathValue("patientID")
	if strings.TrimSpace(patientID) == "" {
		respondWithError(w, http.StatusBadRequest, "patient id is required")
		return
	}

	var payload processRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if strings.TrimSpace(payload.Content) == "" {
		respondWithError(w, http.StatusBadRequest, "content is required")
		return
	}

	sourceType := entities.SourceType(payload.SourceType)
	switch sourceType {
	case entities.SourceTypeManual, entities.SourceTypeEncounterNote, entities.SourceTypeAttachmentExtraction:
	default:
		respondWithError(w, http.StatusBadRequest, "unknown source type")
		return
	}

	content := entities.SubmissionContent{
		Text:            payload.Content,
		SourceType:      sourceType,
		SourceReference: payload.SourceReference,
	}
	pctx := entities.ProcessingContext{
		PatientID:    patientID,
		EncounterID:  payload.EncounterID,
		AttachmentID: payload.AttachmentID,
		ActingUserID: payload.ActingUserID,
	}

	var enabled []entities.Category
	if payload.EnabledCategories != nil {
		enabled = make([]entities.Category, 0, len(payload.EnabledCategories))
		for _, name := range payload.EnabledCategories {
			enabled = append(enabled, entities.Category(name))
		}
	}

	report, err := h.coordinator.ProcessAll(r.Context(), content, pctx, enabled)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Type == apperrors.ErrorTypeValidation {
			respondWithError(w, http.StatusBadRequest, appErr.Message)
			return
		}
		observability.LoggerFromContext(r.Context()).Error().Err(err).Msg("processing run failed")
		respondWithError(w, http.StatusInternalServerError, "processing run failed")
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}

// ListSections handles GET /api/v1/processing/sections
func (h *ChartProcessingHandler) ListSections(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"sections": h.registry.List(),
	})
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
