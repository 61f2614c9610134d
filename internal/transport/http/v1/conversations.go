package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/tutor/internal/domain"
)

// CreateConversation creates a conversation, or returns the existing one with the same id.
// POST /api/conversations
func (h *Handler) CreateConversation(c echo.Context) error {
	var req domain.CreateConversationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	conv, created, err := h.service.CreateConversation(c.Request().Context(), userID(c), req)
	if err != nil {
		return h.errorResponse(c, err)
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, conv)
}

// GetOrCreateConversation returns a conversation with its recent history.
// POST /api/conversations/get-or-create
func (h *Handler) GetOrCreateConversation(c echo.Context) error {
	var req domain.CreateConversationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	res, err := h.service.GetOrCreateConversation(c.Request().Context(), userID(c), req, queryLimit(c))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ListConversations lists the caller's conversations.
// GET /api/conversations
func (h *Handler) ListConversations(c echo.Context) error {
	convs, err := h.service.ListConversations(c.Request().Context(), userID(c))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"conversations": convs,
	})
}

// GetConversation returns a conversation and its recent messages.
// GET /api/conversations/:conversation_id
func (h *Handler) GetConversation(c echo.Context) error {
	res, err := h.service.GetConversation(c.Request().Context(), userID(c), c.Param("conversation_id"), queryLimit(c))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// GetConversationState returns the learning state.
// GET /api/conversations/:conversation_id/state
func (h *Handler) GetConversationState(c echo.Context) error {
	state, err := h.service.GetState(c.Request().Context(), userID(c), c.Param("conversation_id"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, state)
}
