package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campuskit/timetable-api/internal/service"
	"github.com/campuskit/timetable-api/pkg/response"
)

// ExportHandler streams rendered schedule documents.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs an export handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// PDF godoc
// @Summary Download a schedule as a weekly-grid PDF
// @Tags Exports
// @Produce application/pdf
// @Param id path string true "Schedule ID"
// @Success 200 {file} binary
// @Router /schedules/{id}/export/pdf [get]
func (h *ExportHandler) PDF(c *gin.Context) {
	file, err := h.service.SchedulePDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(200, file.ContentType, file.Content)
}

// CSV godoc
// @Summary Download a schedule event list as CSV
// @Tags Exports
// @Produce text/csv
// @Param id path string true "Schedule ID"
// @Success 200 {file} binary
// @Router /schedules/{id}/export/csv [get]
func (h *ExportHandler) CSV(c *gin.Context) {
	file, err := h.service.ScheduleCSV(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(200, file.ContentType, file.Content)
}
