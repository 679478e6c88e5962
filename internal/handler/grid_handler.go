package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/timetable-api/internal/models"
	"github.com/campuskit/timetable-api/internal/timetable"
	"github.com/campuskit/timetable-api/pkg/response"
)

// GridHandler exposes the canonical scheduling grid so clients never
// hardcode the slot sequence.
type GridHandler struct{}

// NewGridHandler constructs a grid handler.
func NewGridHandler() *GridHandler {
	return &GridHandler{}
}

// Slots godoc
// @Summary The canonical half-hour slot sequence and day list
// @Tags Grid
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /grid [get]
func (h *GridHandler) Slots(c *gin.Context) {
	response.JSON(c, http.StatusOK, gin.H{
		"days":           models.Days,
		"slots":          timetable.Slots(),
		"hours_per_slot": timetable.HoursPerSlot,
	}, nil)
}
