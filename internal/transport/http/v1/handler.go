// Package v1 provides the HTTP handlers of the tutor API.
package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/tutor/internal/config"
	"github.com/xiaot623/gogo/tutor/internal/domain"
	"github.com/xiaot623/gogo/tutor/internal/logger"
	"github.com/xiaot623/gogo/tutor/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	config  *config.Config
	log     *logger.Logger
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, cfg *config.Config, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		service: service,
		config:  cfg,
		log:     log,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	api := e.Group("/api", h.Identity)

	// Conversations
	api.POST("/conversations", h.CreateConversation)
	api.POST("/conversations/get-or-create", h.GetOrCreateConversation)
	api.GET("/conversations", h.ListConversations)
	api.GET("/conversations/:conversation_id", h.GetConversation)
	api.GET("/conversations/:conversation_id/state", h.GetConversationState)

	// Tutoring
	api.POST("/process-message", h.ProcessMessage)
	api.POST("/generate-questions", h.GenerateQuestions)
	api.POST("/evaluate-answer", h.EvaluateAnswer)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	if err := h.service.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// errorResponse maps service errors to status codes. Anything unrecognised is a 500.
func (h *Handler) errorResponse(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrQuestionNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

func queryLimit(c echo.Context) int {
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			return val
		}
	}
	return domain.DefaultHistoryLimit
}
