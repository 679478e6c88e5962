package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/timetable-api/internal/models"
)

func TestRequiredHoursDerivation(t *testing.T) {
	subject := models.SubjectRef{ID: "s1", Code: "CS101", LectureUnits: 3, LabUnits: 2, HasLab: true}

	assert.Equal(t, 3.0, RequiredHours(subject, models.SessionLecture))
	assert.Equal(t, 6.0, RequiredHours(subject, models.SessionLab))
	assert.Equal(t, 0.0, RequiredHours(subject, models.SessionType("unknown")))
}

func TestEventHours(t *testing.T) {
	hours, err := EventHours(event("Monday", "08:00", "09:30", "s1", models.SessionLecture))
	require.NoError(t, err)
	assert.Equal(t, 1.5, hours)

	_, err = EventHours(event("Monday", "09:00", "09:00", "s1", models.SessionLecture))
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestHoursForSumsMatchingAnchorsOnly(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Place(event("Monday", "08:00", "09:30", "s1", models.SessionLecture), nil))
	require.NoError(t, store.Place(event("Tuesday", "10:00", "11:30", "s1", models.SessionLecture), nil))
	require.NoError(t, store.Place(event("Wednesday", "08:00", "11:00", "s1", models.SessionLab), nil))
	require.NoError(t, store.Place(event("Monday", "13:00", "14:00", "s2", models.SessionLecture), nil))

	assert.Equal(t, 3.0, store.HoursFor("s1", models.SessionLecture))
	assert.Equal(t, 3.0, store.HoursFor("s1", models.SessionLab))
	assert.Equal(t, 1.0, store.HoursFor("s2", models.SessionLecture))
	assert.Equal(t, 0.0, store.HoursFor("s3", models.SessionLecture))
}

func TestProjectHoursStatusTransitions(t *testing.T) {
	subject := models.SubjectRef{ID: "s1", Code: "CS101", LectureUnits: 3}
	store := NewStore()

	report := store.ProjectHours(subject, models.SessionLecture, 1.5)
	assert.Equal(t, HoursUnder, report.Status)
	assert.Equal(t, 1.5, report.Projected)

	require.NoError(t, store.Place(event("Monday", "08:00", "09:30", "s1", models.SessionLecture), nil))
	report = store.ProjectHours(subject, models.SessionLecture, 1.5)
	assert.Equal(t, HoursComplete, report.Status)
	assert.Equal(t, 1.5, report.Current)
	assert.Equal(t, 3.0, report.Projected)

	require.NoError(t, store.Place(event("Monday", "10:00", "11:30", "s1", models.SessionLecture), nil))
	report = store.ProjectHours(subject, models.SessionLecture, 1.0)
	assert.Equal(t, HoursOver, report.Status)
	assert.Equal(t, 4.0, report.Projected)
}

// A subject with three lecture units takes exactly two 1.5h sessions; a
// third hour must be rejected while equality is allowed.
func TestEnsureWithinHoursStrictOverOnly(t *testing.T) {
	subject := models.SubjectRef{ID: "s1", Code: "CS101", LectureUnits: 3, LabUnits: 0}
	store := NewStore()

	require.NoError(t, store.EnsureWithinHours(subject, models.SessionLecture, 1.5))
	require.NoError(t, store.Place(event("Monday", "08:00", "09:30", "s1", models.SessionLecture), nil))

	require.NoError(t, store.EnsureWithinHours(subject, models.SessionLecture, 1.5))
	require.NoError(t, store.Place(event("Monday", "10:00", "11:30", "s1", models.SessionLecture), nil))

	err := store.EnsureWithinHours(subject, models.SessionLecture, 1.0)
	var exceeded *HoursExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, "CS101", exceeded.SubjectCode)
	assert.Equal(t, models.SessionLecture, exceeded.SessionType)
	assert.Equal(t, 4.0, exceeded.Report.Projected)
	assert.Equal(t, 3.0, exceeded.Report.Required)

	// Zero additional hours at the cap stays allowed.
	require.NoError(t, store.EnsureWithinHours(subject, models.SessionLecture, 0))
}

func TestLabHoursBudgetIndependentOfLecture(t *testing.T) {
	subject := models.SubjectRef{ID: "s1", Code: "CS102", LectureUnits: 2, LabUnits: 1, HasLab: true}
	store := NewStore()

	require.NoError(t, store.Place(event("Monday", "08:00", "10:00", "s1", models.SessionLecture), nil))

	// Lecture is at its cap; the 3h lab budget is untouched.
	err := store.EnsureWithinHours(subject, models.SessionLecture, 0.5)
	var exceeded *HoursExceededError
	require.ErrorAs(t, err, &exceeded)
	require.NoError(t, store.EnsureWithinHours(subject, models.SessionLab, 3.0))
}
