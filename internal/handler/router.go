package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chartHandler "github.com/tracelight/defectdesk/internal/handler/chart"
	chatHandler "github.com/tracelight/defectdesk/internal/handler/chat"
	exportHandler "github.com/tracelight/defectdesk/internal/handler/export"
	middlewarePkg "github.com/tracelight/defectdesk/internal/middleware"
	exportService "github.com/tracelight/defectdesk/internal/service/export"
	"github.com/tracelight/defectdesk/internal/service/orchestrator"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(orch *orchestrator.Orchestrator, bundles *exportService.Store, chartDir string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api", func(api chi.Router) {
		chatHandler.New(orch).RegisterRoutes(api)
		chartHandler.New(chartDir).RegisterRoutes(api)
		exportHandler.New(bundles).RegisterRoutes(api)
	})

	return r
}
