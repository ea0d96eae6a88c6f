package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/caldermed/chartsync/internal/adapters/database"
	"github.com/caldermed/chartsync/internal/adapters/locks"
	"github.com/caldermed/chartsync/internal/adapters/providers/extraction"
	"github.com/caldermed/chartsync/internal/api/handlers"
	"github.com/caldermed/chartsync/internal/application/reconcile"
	"github.com/caldermed/chartsync/internal/application/services"
	"github.com/caldermed/chartsync/internal/domain/entities"
	"github.com/caldermed/chartsync/internal/domain/repositories"
)

func newProcessingHandler() (*handlers.ChartProcessingHandler, repositories.ChartRepository) {
	repo := database.NewMemoryChartAdapter()
	engine := reconcile.NewEngine(repo, locks.NewKeyedLocker(), nil, nil, nil)
	producer := extraction.NewMockProducer()

	registry := services.NewProcessorRegistry()
	registry.Register(services.NewVitalsProcessor(producer, engine))
	registry.Register(services.NewSurgicalHistoryProcessor(producer, engine))
	registry.RegisterStub(entities.CategoryProblems, 90)

	coordinator := services.NewSectionCoordinator(registry, 5*time.Second, 0, nil)
	return handlers.NewChartProcessingHandler(coordinator, registry), repo
}

func processRequest(handler *handlers.ChartProcessingHandler, patientID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/v1/patients/"+patientID+"/chart/process", strings.NewReader(body))
	req.SetPathValue("patientID", patientID)
	w := httptest.NewRecorder()
	handler.ProcessChart(w, req)
	return w
}

func TestChartProcessingHandler_ProcessChart_Success(t *testing.T) {
	handler, repo := newProcessingHandler()

	body := `{"content":"BP: 122/78, HR 70. surgery: appendectomy on 2024-01-15","source_type":"encounter-note","encounter_id":"enc-1","acting_user_id":"dr-1"}`
	w := processRequest(handler, "pat-1", body)

	assert.Equal(t, http.StatusOK, w.Code)

	var report entities.AggregateReport
	err := json.NewDecoder(w.Body).Decode(&report)
	assert.NoError(t, err)
	assert.Equal(t, 3, report.TotalTasks)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Failed)

	vitals, err := repo.LoadEntities(context.Background(), "pat-1", entities.CategoryVitals, repositories.EntityFilter{})
	assert.NoError(t, err)
	assert.Len(t, vitals, 1)

	surgeries, err := repo.LoadEntities(context.Background(), "pat-1", entities.CategorySurgicalHistory, repositories.EntityFilter{})
	assert.NoError(t, err)
	assert.Len(t, surgeries, 1)
}

func TestChartProcessingHandler_ProcessChart_Validation(t *testing.T) {
	handler, _ := newProcessingHandler()

	t.Run("missing content", func(t *testing.T) {
		w := processRequest(handler, "pat-1", `{"source_type":"manual"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown source type", func(t *testing.T) {
		w := processRequest(handler, "pat-1", `{"content":"BP: 120/80","source_type":"fax"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed payload", func(t *testing.T) {
		w := processRequest(handler, "pat-1", `{`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing patient id", func(t *testing.T) {
		w := processRequest(handler, "", `{"content":"BP: 120/80","source_type":"manual"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestChartProcessingHandler_ProcessChart_EnabledCategoriesFilter(t *testing.T) {
	handler, _ := newProcessingHandler()

	body := `{"content":"BP: 122/78","source_type":"manual","enabled_categories":["vitals"]}`
	w := processRequest(handler, "pat-1", body)

	assert.Equal(t, http.StatusOK, w.Code)

	var report entities.AggregateReport
	err := json.NewDecoder(w.Body).Decode(&report)
	assert.NoError(t, err)
	assert.Equal(t, 1, report.TotalTasks)
	assert.Equal(t, entities.CategoryVitals, report.Tasks[0].Category)
}

func TestChartProcessingHandler_ListSections(t *testing.T) {
	handler, _ := newProcessingHandler()

	req := httptest.NewRequest("GET", "/api/v1/processing/sections", nil)
	w := httptest.NewRecorder()
	handler.ListSections(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Sections []services.Registration `json:"sections"`
	}
	err := json.NewDecoder(w.Body).Decode(&response)
	assert.NoError(t, err)
	assert.Len(t, response.Sections, 3)
	assert.Equal(t, entities.CategoryVitals, response.Sections[0].Category)
	assert.False(t, response.Sections[2].Implemented)
}
