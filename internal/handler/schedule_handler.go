package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/timetable-api/internal/models"
	"github.com/campuskit/timetable-api/internal/service"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
	"github.com/campuskit/timetable-api/pkg/response"
)

// ScheduleHandler handles timetable endpoints.
type ScheduleHandler struct {
	service *service.ScheduleService
	metrics *service.MetricsService
}

// NewScheduleHandler constructs a schedule handler.
func NewScheduleHandler(svc *service.ScheduleService, metrics *service.MetricsService) *ScheduleHandler {
	return &ScheduleHandler{service: svc, metrics: metrics}
}

// List godoc
// @Summary List schedules
// @Tags Schedules
// @Produce json
// @Param course_id query string false "Course"
// @Param year_level query int false "Year level"
// @Param semester query int false "Semester"
// @Param academic_year query string false "Academic year"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	filter := models.ScheduleFilter{
		CourseID:     c.Query("course_id"),
		YearLevel:    queryInt(c, "year_level", 0),
		Semester:     queryInt(c, "semester", 0),
		AcademicYear: c.Query("academic_year"),
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "limit", 20),
	}

	schedules, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, pagination)
}

// Get godoc
// @Summary Get schedule with events
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail.Schedule, nil, warningsMeta(detail.Warnings))
}

// ConflictContext godoc
// @Summary Schedules relevant to conflict checking for an academic year
// @Tags Schedules
// @Produce json
// @Param academic_year query string true "Academic year"
// @Param exclude query string false "Schedule to exclude"
// @Success 200 {object} response.Envelope
// @Router /schedules/conflict-context [get]
func (h *ScheduleHandler) ConflictContext(c *gin.Context) {
	schedules, err := h.service.ConflictContext(c.Request.Context(), c.Query("academic_year"), c.Query("exclude"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// ValidatePlacement godoc
// @Summary Validate one candidate event placement
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.ValidatePlacementRequest true "Placement payload"
// @Success 200 {object} response.Envelope
// @Router /schedules/validate-event [post]
func (h *ScheduleHandler) ValidatePlacement(c *gin.Context) {
	var req service.ValidatePlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	start := time.Now()
	assessment, err := h.service.ValidatePlacement(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveConflictCheck(len(assessment.Conflicts) > 0, time.Since(start))
	response.JSON(c, http.StatusOK, assessment, nil)
}

// Create godoc
// @Summary Create schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.SaveScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req service.SaveScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	detail, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.saveError(c, err)
		return
	}
	h.metrics.ObserveScheduleSave()
	response.JSON(c, http.StatusCreated, detail.Schedule, nil, warningsMeta(detail.Warnings))
}

// Update godoc
// @Summary Update schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body service.SaveScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /schedules/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req service.SaveScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	detail, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.saveError(c, err)
		return
	}
	h.metrics.ObserveScheduleSave()
	response.JSON(c, http.StatusOK, detail.Schedule, nil, warningsMeta(detail.Warnings))
}

// Delete godoc
// @Summary Delete schedule
// @Tags Schedules
// @Param id path string true "Schedule ID"
// @Success 204
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// saveError surfaces conflict and hour-budget rejections with their full
// detail lists so the editor can highlight every offending event.
func (h *ScheduleHandler) saveError(c *gin.Context, err error) {
	var conflictErr *models.ScheduleConflictError
	if errors.As(err, &conflictErr) {
		appErr := appErrors.FromError(err)
		c.JSON(appErr.Status, response.Envelope{
			Error: appErr,
			Meta:  map[string]interface{}{"conflicts": conflictErr.Conflicts},
		})
		return
	}

	var hoursErr *service.HoursViolationError
	if errors.As(err, &hoursErr) {
		appErr := appErrors.FromError(err)
		c.JSON(appErr.Status, response.Envelope{
			Error: appErr,
			Meta:  map[string]interface{}{"violations": hoursErr.Violations},
		})
		return
	}

	response.Error(c, err)
}

func warningsMeta(warnings []string) map[string]interface{} {
	if len(warnings) == 0 {
		return nil
	}
	return map[string]interface{}{"warnings": warnings}
}
