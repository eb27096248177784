package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LeaveFeedbackRequest is the JSON payload for rating an assistant reply.
type LeaveFeedbackRequest struct {
	UserID string `json:"userId" example:"user123"`
	// Value is +1 (helpful) or -1 (not helpful).
	Value int `json:"value" binding:"required,oneof=-1 1" example:"1"`
}

// LeaveFeedback godoc
// @ID          leaveFeedback
// @Summary     Rate an assistant reply
// @Description Records +1 or -1 for an assistant message in one of the user's entries. One rating per user per message.
// @Tags        Journal
// @Accept      json
// @Produce     json
// @Param       messageId  path    string  true  "Message ID (UUID)"  format(uuid)
// @Param       body       body    handlers.LeaveFeedbackRequest  true  "Feedback payload"
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     403  {object} handlers.ErrorResponse "Not allowed to rate this message"
// @Failure     404  {object} handlers.ErrorResponse "Message not found"
// @Failure     409  {object} handlers.ErrorResponse "Already rated"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /journal/messages/{messageId}/feedback [post]
func (h *Handlers) LeaveFeedback(c *gin.Context) {
	var req LeaveFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "value must be -1 or 1")
		return
	}
	uc, okUser := h.userContext(c, req.UserID)
	if !okUser {
		return
	}

	if err := h.feedback.Leave(c.Request.Context(), uc, c.Param("messageId"), req.Value); err != nil {
		failFrom(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}
