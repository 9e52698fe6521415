package api

import (
	"context"
	"net/http"
	"time"

	"example.com/grocer/services/assistant/config"
	"example.com/grocer/services/assistant/internal/api/handlers"
	"example.com/grocer/services/assistant/internal/metrics"
	"example.com/grocer/services/assistant/internal/repositories"
	"example.com/grocer/services/assistant/internal/tracing"
	"example.com/grocer/services/assistant/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Server represents the HTTP server
type Server struct {
	config     config.Config
	router     *gin.Engine
	httpServer *http.Server
	workflow   *workflow.Router
	orders     *repositories.OrderRepository
	catalog    *repositories.CatalogRepository
	metrics    *metrics.Metrics
	tracer     tracing.Tracer
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.Config,
	workflowRouter *workflow.Router,
	orders *repositories.OrderRepository,
	catalog *repositories.CatalogRepository,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
) *Server {
	server := &Server{
		config:   cfg,
		workflow: workflowRouter,
		orders:   orders,
		catalog:  catalog,
		metrics:  metricsCollector,
		tracer:   tracer,
	}

	router := server.setupRouter()
	server.router = router

	httpServer := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: router,
	}
	server.httpServer = httpServer

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	if s.config.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(gin.Recovery())

	if app := s.tracer.Application(); app != nil {
		router.Use(nrgin.Middleware(app))
	}

	assistantHandler := handlers.NewAssistantHandler(s.workflow, s.metrics, s.tracer)
	assistantHandler.RegisterRoutes(router)

	orderHandler := handlers.NewOrderHandler(s.orders, s.tracer)
	orderHandler.RegisterRoutes(router)

	catalogHandler := handlers.NewCatalogHandler(s.catalog, s.tracer)
	catalogHandler.RegisterRoutes(router)

	metricsHandler := handlers.NewMetricsHandler(s.metrics, s.tracer)
	metricsHandler.RegisterRoutes(router)

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.ServerAddress).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
