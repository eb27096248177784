package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wellness-backend/internal/services"
)

// DailyMetricsPayload carries the day's health readings. All fields are
// optional.
type DailyMetricsPayload struct {
	Steps            *float64 `json:"steps" example:"8400"`
	ActiveEnergy     *float64 `json:"activeEnergy" example:"420.5"`
	HeartRate        *float64 `json:"heartRate" example:"72"`
	SleepHours       *float64 `json:"sleepHours" example:"7.5"`
	MindfulMinutes   *float64 `json:"mindfulMinutes" example:"10"`
	RestingHeartRate *float64 `json:"restingHeartRate" example:"58"`
}

// TypingMetricsPayload describes recent typing behavior.
type TypingMetricsPayload struct {
	WordsPerMinute *float64 `json:"wordsPerMinute" example:"38.2"`
	TotalEditCount *int     `json:"totalEditCount" example:"12"`
}

// MotionMetricsPayload holds averaged accelerometer readings.
type MotionMetricsPayload struct {
	AvgAccelerationX *float64 `json:"avgAccelerationX"`
	AvgAccelerationY *float64 `json:"avgAccelerationY"`
	AvgAccelerationZ *float64 `json:"avgAccelerationZ"`
}

// SubmitMetricsRequest is the JSON payload of POST /metrics/submit.
type SubmitMetricsRequest struct {
	UserID        string               `json:"userId" example:"user123"`
	DailyMetrics  DailyMetricsPayload  `json:"dailyMetrics"`
	TypingMetrics TypingMetricsPayload `json:"typingMetrics"`
	MotionMetrics MotionMetricsPayload `json:"motionMetrics"`
}

// SubmitMetrics godoc
// @ID          submitMetrics
// @Summary     Submit device metrics
// @Description The latest submission is linked to the user's next journal messages.
// @Tags        Metrics
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.SubmitMetricsRequest  true  "Metrics"
// @Success     201   {object}  domain.MetricsSnapshot
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     500   {object}  handlers.ErrorResponse
// @Router      /metrics/submit [post]
func (h *Handlers) SubmitMetrics(c *gin.Context) {
	var req SubmitMetricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	uc, okUser := h.userContext(c, req.UserID)
	if !okUser {
		return
	}

	d, ty, m := req.DailyMetrics, req.TypingMetrics, req.MotionMetrics
	snap, err := h.metrics.Submit(c.Request.Context(), uc, services.MetricsInput{
		Daily: services.DailyMetrics{
			Steps:            d.Steps,
			ActiveEnergy:     d.ActiveEnergy,
			HeartRate:        d.HeartRate,
			RestingHeartRate: d.RestingHeartRate,
			SleepHours:       d.SleepHours,
			MindfulMinutes:   d.MindfulMinutes,
		},
		Typing: services.TypingMetrics{
			WordsPerMinute: ty.WordsPerMinute,
			TotalEditCount: ty.TotalEditCount,
		},
		Motion: services.MotionMetrics{
			AvgAccelerationX: m.AvgAccelerationX,
			AvgAccelerationY: m.AvgAccelerationY,
			AvgAccelerationZ: m.AvgAccelerationZ,
		},
	})
	if err != nil {
		failFrom(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, snap)
}
