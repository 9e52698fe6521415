package handlers

import (
	"net/http"

	"example.com/grocer/services/assistant/internal/repositories"
	"example.com/grocer/services/assistant/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// CatalogHandler handles catalog browse requests
type CatalogHandler struct {
	catalog *repositories.CatalogRepository
	tracer  tracing.Tracer
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog *repositories.CatalogRepository, tracer tracing.Tracer) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		tracer:  tracer,
	}
}

// HandleListCatalog returns catalog entries, optionally one category.
func (h *CatalogHandler) HandleListCatalog(c *gin.Context) {
	category := c.Query("category")

	products, err := h.catalog.List(c.Request.Context(), category)
	if err != nil {
		log.Error().Err(err).Str("category", category).Msg("Failed to list catalog")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

// RegisterRoutes registers the handler's routes
func (h *CatalogHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/catalog", h.HandleListCatalog)
}
