// Assessment HTTP handlers.
//
//   - POST /assessments            (submit a daily check-in)
//   - GET  /assessments            (history, newest first)
//   - GET  /assessments/streak     (current and longest streak)
//   - GET  /assessments/today      (whether a check-in is still open today)
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wellness-backend/internal/services"
	"github.com/tbourn/go-wellness-backend/internal/utils"
)

// SubmitAssessmentRequest is the JSON payload of a check-in. Score is a
// pointer so that 0 is accepted and a missing score is rejected.
type SubmitAssessmentRequest struct {
	UserID         string          `json:"userId" example:"user123"`
	AssessmentType string          `json:"assessmentType" example:"daily"`
	Score          *int            `json:"score" example:"14"`
	Answers        json.RawMessage `json:"answers" swaggertype:"array,integer" example:"3,2,4,1,4"`
}

// TodayStatusResponse reports whether the user can still check in today.
type TodayStatusResponse struct {
	CanSubmit bool   `json:"canSubmit"`
	Day       string `json:"day" example:"2025-03-14"`
}

// SubmitAssessment godoc
// @ID          submitAssessment
// @Summary     Submit a daily check-in
// @Tags        Assessments
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.SubmitAssessmentRequest  true  "Check-in"
// @Success     201   {object}  domain.Assessment
// @Failure     400   {object}  handlers.ErrorResponse  "Missing fields"
// @Failure     500   {object}  handlers.ErrorResponse  "Storage failure"
// @Router      /assessments [post]
func (h *Handlers) SubmitAssessment(c *gin.Context) {
	var req SubmitAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	uc, okUser := h.userContext(c, req.UserID)
	if !okUser {
		return
	}

	a, err := h.assessments.Submit(c.Request.Context(), uc, services.AssessmentInput{
		Type:    req.AssessmentType,
		Score:   req.Score,
		Answers: req.Answers,
	})
	if err != nil {
		failFrom(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, a)
}

// ListAssessments godoc
// @ID          listAssessments
// @Summary     List check-ins, newest first
// @Tags        Assessments
// @Produce     json
// @Param       userId  query     string  true   "User ID"
// @Param       limit   query     int     false  "Max items"  minimum(1) maximum(366) default(30)
// @Success     200     {array}   domain.Assessment
// @Failure     400     {object}  handlers.ErrorResponse
// @Failure     500     {object}  handlers.ErrorResponse
// @Router      /assessments [get]
func (h *Handlers) ListAssessments(c *gin.Context) {
	uc, okUser := h.userContext(c, "")
	if !okUser {
		return
	}
	items, err := h.assessments.List(c.Request.Context(), uc, utils.LimitParam(c.Query("limit"), 30, 366))
	if err != nil {
		failFrom(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, items)
}

// GetStreak godoc
// @ID          getStreak
// @Summary     Current and longest check-in streak
// @Description The current streak survives until the end of the day after the last check-in.
// @Tags        Assessments
// @Produce     json
// @Param       userId  query     string  true  "User ID"
// @Success     200     {object}  streak.Snapshot
// @Failure     400     {object}  handlers.ErrorResponse
// @Failure     500     {object}  handlers.ErrorResponse
// @Router      /assessments/streak [get]
func (h *Handlers) GetStreak(c *gin.Context) {
	uc, okUser := h.userContext(c, "")
	if !okUser {
		return
	}
	snap, err := h.assessments.GetStreak(c.Request.Context(), uc)
	if err != nil {
		failFrom(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, snap)
}

// TodayStatus godoc
// @ID          assessmentToday
// @Summary     Whether a check-in can be submitted today
// @Tags        Assessments
// @Produce     json
// @Param       userId  query     string  true  "User ID"
// @Success     200     {object}  handlers.TodayStatusResponse
// @Failure     400     {object}  handlers.ErrorResponse
// @Failure     500     {object}  handlers.ErrorResponse
// @Router      /assessments/today [get]
func (h *Handlers) TodayStatus(c *gin.Context) {
	uc, okUser := h.userContext(c, "")
	if !okUser {
		return
	}
	can, day, err := h.assessments.CanSubmitToday(c.Request.Context(), uc)
	if err != nil {
		failFrom(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, TodayStatusResponse{CanSubmit: can, Day: day})
}
