package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/memoapp/planner-backend/internal/pkg/logger"
	"github.com/memoapp/planner-backend/internal/planner/lifecycle"
	"github.com/memoapp/planner-backend/internal/requestdata"
	"github.com/memoapp/planner-backend/internal/services"
	"github.com/memoapp/planner-backend/internal/types"
)

type PlannerHandler struct {
	log        *logger.Logger
	plannerSvc *services.PlannerService
}

func NewPlannerHandler(log *logger.Logger, plannerSvc *services.PlannerService) *PlannerHandler {
	return &PlannerHandler{
		log:        log.With("handler", "PlannerHandler"),
		plannerSvc: plannerSvc,
	}
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("no authenticated user"))
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", errors.New("invalid id in path"))
		return uuid.Nil, false
	}
	return id, true
}

// parseDay accepts a bare date or a full RFC3339 timestamp.
func parseDay(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

type generateScheduleRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	Mode      string `json:"mode"`
}

// POST /api/planner/schedules/generate
func (h *PlannerHandler) GenerateSchedule(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req generateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	start, err := parseDay(req.StartDate)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	end, err := parseDay(req.EndDate)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}

	schedule, err := h.plannerSvc.GenerateSchedule(c.Request.Context(), userID, start.UTC(), end.UTC(), req.Mode)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, schedule)
}

// POST /api/planner/schedules/:id/activate
func (h *PlannerHandler) ActivateSchedule(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	scheduleID, ok := pathID(c)
	if !ok {
		return
	}
	schedule, err := h.plannerSvc.ActivateSchedule(c.Request.Context(), userID, scheduleID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, schedule)
}

// DELETE /api/planner/schedules/:id
func (h *PlannerHandler) DeleteSchedule(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	scheduleID, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.plannerSvc.DeleteSchedule(c.Request.Context(), userID, scheduleID); err != nil {
		RespondAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/planner/schedules/active
func (h *PlannerHandler) GetActiveSchedule(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	schedule, err := h.plannerSvc.GetActiveSchedule(c.Request.Context(), userID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, schedule)
}

// PUT /api/planner/settings
func (h *PlannerHandler) UpdateSettings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var settings types.PlannerSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	settings.UserID = userID

	saved, err := h.plannerSvc.UpdateSettings(c.Request.Context(), &settings)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, saved)
}

type examResultRequest struct {
	Score float64 `json:"score"`
}

// POST /api/planner/exams/:id/result
// The path id is the exam's subject.
func (h *PlannerHandler) RecordExamResult(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	subjectID, ok := pathID(c)
	if !ok {
		return
	}
	var req examResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	outcome, err := h.plannerSvc.RecordExamResult(c.Request.Context(), userID, subjectID, req.Score)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, outcome)
}

// POST /api/planner/sessions/:id/topic-test-result
func (h *PlannerHandler) RecordTopicTestResult(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID, ok := pathID(c)
	if !ok {
		return
	}
	var req examResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	outcome, err := h.plannerSvc.RecordTopicTestResult(c.Request.Context(), userID, sessionID, req.Score)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, outcome)
}

type sessionStatusRequest struct {
	Status            string   `json:"status" binding:"required"`
	CompletionPercent *int     `json:"completion_percent"`
	Mood              *string  `json:"mood"`
	Score             *float64 `json:"score"`
	Notes             *string  `json:"notes"`
	SkipReason        *string  `json:"skip_reason"`
}

// POST /api/planner/sessions/:id/status
func (h *PlannerHandler) MarkSessionStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID, ok := pathID(c)
	if !ok {
		return
	}
	var req sessionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	session, err := h.plannerSvc.MarkSession(c.Request.Context(), userID, sessionID, req.Status, lifecycle.SessionOutcome{
		CompletionPercent: req.CompletionPercent,
		Mood:              req.Mood,
		Score:             req.Score,
		Notes:             req.Notes,
		SkipReason:        req.SkipReason,
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, session)
}

// POST /api/planner/sessions/check-missed
func (h *PlannerHandler) RunMissedSessionCheck(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	outcome, err := h.plannerSvc.RunMissedSessionCheck(c.Request.Context(), userID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	if outcome == nil {
		RespondOK(c, gin.H{"pattern_detected": false})
		return
	}
	RespondOK(c, outcome)
}

// POST /api/planner/priorities/recompute
func (h *PlannerHandler) RecomputePriorities(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	outcome, err := h.plannerSvc.RecomputePriorities(c.Request.Context(), userID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, outcome)
}

// GET /api/planner/priorities
func (h *PlannerHandler) GetPriorities(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rows, err := h.plannerSvc.GetPriorities(c.Request.Context(), userID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, rows)
}

// GET /api/planner/adaptations
func (h *PlannerHandler) ListAdaptationEvents(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			RespondError(c, http.StatusBadRequest, "validation", errors.New("limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}
	events, err := h.plannerSvc.ListAdaptationEvents(c.Request.Context(), userID, limit)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, events)
}
