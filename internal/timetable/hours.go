package timetable

import (
	"fmt"

	"github.com/campuskit/timetable-api/internal/models"
)

// HoursStatus compares projected hours against a subject's required hours.
type HoursStatus string

const (
	HoursUnder    HoursStatus = "under"
	HoursComplete HoursStatus = "complete"
	HoursOver     HoursStatus = "over"
)

// HoursReport summarises the hour budget for one subject/session-type pair.
type HoursReport struct {
	Required  float64     `json:"required"`
	Current   float64     `json:"current"`
	Projected float64     `json:"projected"`
	Status    HoursStatus `json:"status"`
}

// HoursExceededError rejects a placement that would push a subject's
// session-type hours strictly above its required hours.
type HoursExceededError struct {
	SubjectCode string
	SessionType models.SessionType
	Report      HoursReport
}

func (e *HoursExceededError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %s hours would reach %.1f of %.1f required",
		e.SubjectCode, e.SessionType, e.Report.Projected, e.Report.Required)
}

// RequiredHours derives the weekly hour budget from catalog units: one
// lecture unit is one hour, one lab unit is three hours.
func RequiredHours(subject models.SubjectRef, sessionType models.SessionType) float64 {
	switch sessionType {
	case models.SessionLecture:
		return float64(subject.LectureUnits)
	case models.SessionLab:
		return float64(subject.LabUnits) * 3
	default:
		return 0
	}
}

// EventHours returns the duration of an event in hours.
func EventHours(event models.ScheduledEvent) (float64, error) {
	startIdx, err := SlotIndex(event.StartTime)
	if err != nil {
		return 0, err
	}
	endIdx, err := SlotIndex(event.EndTime)
	if err != nil {
		return 0, err
	}
	if endIdx <= startIdx {
		return 0, fmt.Errorf("%w: %s-%s", ErrInvalidTimeRange, event.StartTime, event.EndTime)
	}
	return float64(endIdx-startIdx) * HoursPerSlot, nil
}

// HoursFor sums the scheduled hours of every anchored event matching the
// subject and session type. The grid is small, so a full scan per call is
// fine.
func (s *Store) HoursFor(subjectID string, sessionType models.SessionType) float64 {
	total := 0.0
	for _, event := range s.Events() {
		if event.SubjectID != subjectID || event.SessionType != sessionType {
			continue
		}
		hours, err := EventHours(event)
		if err != nil {
			continue
		}
		total += hours
	}
	return total
}

// ProjectHours reports where the subject's session-type budget would stand
// after adding the given hours.
func (s *Store) ProjectHours(subject models.SubjectRef, sessionType models.SessionType, addedHours float64) HoursReport {
	required := RequiredHours(subject, sessionType)
	current := s.HoursFor(subject.ID, sessionType)
	projected := current + addedHours

	status := HoursUnder
	switch {
	case projected > required:
		status = HoursOver
	case projected == required:
		status = HoursComplete
	}

	return HoursReport{
		Required:  required,
		Current:   current,
		Projected: projected,
		Status:    status,
	}
}

// EnsureWithinHours fails with HoursExceededError when the projected hours
// would strictly exceed the required hours. Exact equality is allowed, and
// under-booking is never rejected.
func (s *Store) EnsureWithinHours(subject models.SubjectRef, sessionType models.SessionType, addedHours float64) error {
	report := s.ProjectHours(subject, sessionType, addedHours)
	if report.Status == HoursOver {
		return &HoursExceededError{
			SubjectCode: subject.Code,
			SessionType: sessionType,
			Report:      report,
		}
	}
	return nil
}
