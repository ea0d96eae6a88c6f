package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/caldermed/chartsync/internal/adapters/database"
	"github.com/caldermed/chartsync/internal/api/handlers"
	"github.com/caldermed/chartsync/internal/application/services"
	"github.com/caldermed/chartsync/internal/domain/entities"
)

func newVisitHistoryHandler(t *testing.T) (*handlers.VisitHistoryHandler, string) {
	t.Helper()
	repo := database.NewMemoryChartAdapter()

	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	entityID, err := repo.CreateEntity(context.Background(), &entities.ChartEntity{
		ID:        "ent-1",
		PatientID: "pat-1",
		Category:  entities.CategorySurgicalHistory,
		Fields: map[string]entities.FieldValue{
			"procedure_name": entities.TextField("appendectomy"),
			"procedure_date": entities.TextField("2024-01-10"),
		},
		SourceType: entities.SourceTypeEncounterNote,
		CreatedAt:  created,
		UpdatedAt:  created,
		VisitHistory: []entities.ProvenanceEntry{{
			ID:         "prov-1",
			EntityID:   "ent-1",
			Date:       created,
			SourceType: entities.SourceTypeEncounterNote,
			Notes:      "created from encounter-note",
		}},
	})
	assert.NoError(t, err)

	err = repo.UpdateEntity(context.Background(), entityID,
		map[string]entities.FieldValue{"procedure_date": entities.TextField("2024-02-01")},
		entities.ProvenanceEntry{
			ID:            "prov-2",
			Date:          created.Add(72 * time.Hour),
			SourceType:    entities.SourceTypeAttachmentExtraction,
			Notes:         "procedure_date: 2024-01-10 -> 2024-02-01",
			FieldsChanged: []string{"procedure_date"},
		})
	assert.NoError(t, err)

	return handlers.NewVisitHistoryHandler(services.NewVisitHistoryService(repo)), entityID
}

func getWithEntityID(handle http.HandlerFunc, path, entityID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	req.SetPathValue("entityID", entityID)
	w := httptest.NewRecorder()
	handle(w, req)
	return w
}

func TestVisitHistoryHandler_GetVisitHistory(t *testing.T) {
	handler, entityID := newVisitHistoryHandler(t)

	w := getWithEntityID(handler.GetVisitHistory, "/api/v1/chart/entities/"+entityID+"/visit-history", entityID)
	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		EntityID     string                     `json:"entity_id"`
		VisitHistory []entities.ProvenanceEntry `json:"visit_history"`
	}
	err := json.NewDecoder(w.Body).Decode(&response)
	assert.NoError(t, err)
	assert.Equal(t, entityID, response.EntityID)
	assert.Len(t, response.VisitHistory, 2)
	assert.Equal(t, "prov-1", response.VisitHistory[0].ID)
	assert.Equal(t, []string{"procedure_date"}, response.VisitHistory[1].FieldsChanged)
}

func TestVisitHistoryHandler_GetVisitHistory_NotFound(t *testing.T) {
	handler, _ := newVisitHistoryHandler(t)

	w := getWithEntityID(handler.GetVisitHistory, "/api/v1/chart/entities/missing/visit-history", "missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVisitHistoryHandler_GetEntity(t *testing.T) {
	handler, entityID := newVisitHistoryHandler(t)

	w := getWithEntityID(handler.GetEntity, "/api/v1/chart/entities/"+entityID, entityID)
	assert.Equal(t, http.StatusOK, w.Code)

	var entity entities.ChartEntity
	err := json.NewDecoder(w.Body).Decode(&entity)
	assert.NoError(t, err)
	assert.Equal(t, entityID, entity.ID)
	assert.Equal(t, "2024-02-01", entity.Fields["procedure_date"].Text)
	assert.Len(t, entity.VisitHistory, 2)
}

func TestVisitHistoryHandler_GetEntity_NotFound(t *testing.T) {
	handler, _ := newVisitHistoryHandler(t)

	w := getWithEntityID(handler.GetEntity, "/api/v1/chart/entities/missing", "missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
