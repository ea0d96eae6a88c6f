package routes

import (
	"net/http"

	"github.com/caldermed/chartsync/internal/api/handlers"
	"github.com/caldermed/chartsync/internal/api/middleware"
	"github.com/caldermed/chartsync/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	processingHandler   *handlers.ChartProcessingHandler
	visitHistoryHandler *handlers.VisitHistoryHandler

	metrics *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	processingHandler *handlers.ChartProcessingHandler,
	visitHistoryHandler *handlers.VisitHistoryHandler,
	metrics *observability.Metrics,
) *Router {
	r := &Router{
		mux:                 http.NewServeMux(),
		processingHandler:   processingHandler,
		visitHistoryHandler: visitHistoryHandler,
		metrics:             metrics,
	}
	r.registerRoutes()
	return r
}

func (r *Router) registerRoutes() {
	r.mux.HandleFunc("POST /api/v1/patients/{patientID}/chart/process", r.processingHandler.ProcessChart)
	r.mux.HandleFunc("GET /api/v1/processing/sections", r.processingHandler.ListSections)
	r.mux.HandleFunc("GET /api/v1/chart/entities/{entityID}", r.visitHistoryHandler.GetEntity)
	r.mux.HandleFunc("GET /api/v1/chart/entities/{entityID}/visit-history", r.visitHistoryHandler.GetVisitHistory)
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}

// Handler returns the root HTTP handler with middleware applied
func (r *Router) Handler() http.Handler {
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(r.metrics)(handler)
	handler = middleware.CORSMiddleware(handler)
	return handler
}
