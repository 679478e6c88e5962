package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/timetable-api/internal/service"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
	"github.com/campuskit/timetable-api/pkg/response"
)

// WorkloadHandler handles teacher workload endpoints.
type WorkloadHandler struct {
	service *service.WorkloadService
}

// NewWorkloadHandler constructs a workload handler.
func NewWorkloadHandler(svc *service.WorkloadService) *WorkloadHandler {
	return &WorkloadHandler{service: svc}
}

// Check godoc
// @Summary Check whether a teacher can absorb another subject
// @Tags Workload
// @Accept json
// @Produce json
// @Param payload body service.WorkloadCheckRequest true "Workload check payload"
// @Success 200 {object} response.Envelope
// @Router /workload/validate [post]
func (h *WorkloadHandler) Check(c *gin.Context) {
	var req service.WorkloadCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Check(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Summary godoc
// @Summary Teacher unit load for a term
// @Tags Workload
// @Produce json
// @Param id path string true "Teacher ID"
// @Param academic_year query string true "Academic year"
// @Param semester query int true "Semester"
// @Success 200 {object} response.Envelope
// @Router /workload/teachers/{id} [get]
func (h *WorkloadHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), c.Param("id"), c.Query("academic_year"), queryInt(c, "semester", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
