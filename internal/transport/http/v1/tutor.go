package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/tutor/internal/domain"
)

// ProcessMessage runs one chat turn.
// POST /api/process-message
func (h *Handler) ProcessMessage(c echo.Context) error {
	var req domain.ProcessMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	resp, err := h.service.ProcessMessage(c.Request().Context(), userID(c), req)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// GenerateQuestions produces practice questions outside the chat flow.
// POST /api/generate-questions
func (h *Handler) GenerateQuestions(c echo.Context) error {
	var req domain.GenerateQuestionsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	resp, err := h.service.GenerateQuestions(c.Request().Context(), userID(c), req)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// EvaluateAnswer grades an answer to a posted question.
// POST /api/evaluate-answer
func (h *Handler) EvaluateAnswer(c echo.Context) error {
	var req domain.EvaluateAnswerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.ConversationID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "conversation_id is required"})
	}
	if req.QuestionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "question_id is required"})
	}

	resp, err := h.service.EvaluateAnswer(c.Request().Context(), userID(c), req)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}
