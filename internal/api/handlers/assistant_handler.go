package handlers

import (
	"net/http"
	"time"

	"example.com/grocer/services/assistant/internal/metrics"
	"example.com/grocer/services/assistant/internal/models"
	"example.com/grocer/services/assistant/internal/tracing"
	"example.com/grocer/services/assistant/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// AssistantHandler handles conversation turn requests
type AssistantHandler struct {
	workflow *workflow.Router
	metrics  *metrics.Metrics
	tracer   tracing.Tracer
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(workflowRouter *workflow.Router, metricsCollector *metrics.Metrics, tracer tracing.Tracer) *AssistantHandler {
	return &AssistantHandler{
		workflow: workflowRouter,
		metrics:  metricsCollector,
		tracer:   tracer,
	}
}

// HandleConversationTurn handles one inbound conversation turn: a grocery
// list image, a typed item list or a confirmation of a pending proposal.
func (h *AssistantHandler) HandleConversationTurn(c *gin.Context) {
	start := time.Now()

	var req models.ConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.workflow.HandleTurn(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.metrics.RecordTimer("conversation_turn_ms", time.Since(start).Milliseconds())
	c.JSON(http.StatusOK, result)
}

// respondError maps workflow errors to HTTP statuses. Rejections of the
// request itself are 4xx; only infrastructure failures surface as 500.
func (h *AssistantHandler) respondError(c *gin.Context, err error) {
	var extractionErr *workflow.ExtractionError
	var mismatchErr *workflow.TotalMismatchError
	var persistErr *workflow.PersistenceError

	switch {
	case errors.Is(err, workflow.ErrUnrecognizedInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrNoProposal):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrProposalExpired):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.As(err, &extractionErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": extractionErr.Error()})
	case errors.As(err, &mismatchErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": mismatchErr.Error()})
	case errors.As(err, &persistErr):
		log.Error().Err(err).Msg("Order persistence failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "order could not be placed"})
	default:
		log.Error().Err(err).Msg("Conversation turn failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// RegisterRoutes registers the handler's routes
func (h *AssistantHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/conversation", h.HandleConversationTurn)
}
