package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/timetable-api/internal/models"
)

func strPtr(s string) *string { return &s }

func externalSchedule(id, courseID string, yearLevel, semester int, events ...models.ScheduledEvent) models.Schedule {
	return models.Schedule{
		ID:        id,
		Name:      "Schedule " + id,
		CourseID:  courseID,
		YearLevel: yearLevel,
		Semester:  semester,
		Events:    events,
	}
}

func externalEvent(day, start, end, teacherID, room string) models.ScheduledEvent {
	ev := models.ScheduledEvent{
		Day:         day,
		StartTime:   start,
		EndTime:     end,
		SubjectID:   "ext",
		SubjectCode: "EXT101",
		SubjectName: "External Subject",
		SessionType: models.SessionLecture,
		Room:        room,
	}
	if teacherID != "" {
		ev.TeacherID = strPtr(teacherID)
		ev.TeacherName = strPtr("Teacher " + teacherID)
	}
	return ev
}

func TestOverlapsHalfOpen(t *testing.T) {
	// touching boundaries never overlap
	assert.False(t, Overlaps(0, 4, 4, 8))
	assert.False(t, Overlaps(4, 8, 0, 4))
	// partial and full containment do
	assert.True(t, Overlaps(0, 4, 2, 6))
	assert.True(t, Overlaps(2, 6, 0, 4))
	assert.True(t, Overlaps(0, 8, 2, 4))
	assert.True(t, Overlaps(2, 4, 0, 8))
	assert.True(t, Overlaps(2, 4, 2, 4))
}

func TestCheckExternalNoConflictOnTouchingBoundary(t *testing.T) {
	cand := Candidate{Day: "Monday", StartTime: "09:00", EndTime: "10:00", Room: "Lab 1", TeacherID: "t1"}
	cohort := Cohort{CourseID: "c1", YearLevel: 1, Semester: 1}

	others := []models.Schedule{
		externalSchedule("x1", "c1", 1, 1, externalEvent("Monday", "08:00", "09:00", "t1", "Lab 1")),
		externalSchedule("x2", "c1", 1, 1, externalEvent("Monday", "10:00", "11:00", "t1", "Lab 1")),
	}

	conflicts, err := CheckExternal(cand, cohort, others)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestCheckExternalStudentPriorityOverTeacher(t *testing.T) {
	// Same cohort AND same teacher: STUDENT wins the classification.
	cand := Candidate{Day: "Monday", StartTime: "09:30", EndTime: "10:30", TeacherID: "t1", Room: "R1"}
	cohort := Cohort{CourseID: "c1", YearLevel: 1, Semester: 1}

	others := []models.Schedule{
		externalSchedule("x1", "c1", 1, 1, externalEvent("Monday", "09:00", "10:00", "t1", "R1")),
	}

	conflicts, err := CheckExternal(cand, cohort, others)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictStudent, conflicts[0].Kind)
	assert.Equal(t, "x1", conflicts[0].ScheduleID)
}

func TestCheckExternalTeacherPriorityOverRoom(t *testing.T) {
	cand := Candidate{Day: "Monday", StartTime: "09:30", EndTime: "10:30", TeacherID: "t1", Room: "R1"}
	cohort := Cohort{CourseID: "c1", YearLevel: 1, Semester: 1}

	// Different cohort, same teacher and same room: TEACHER wins.
	others := []models.Schedule{
		externalSchedule("x1", "c2", 1, 1, externalEvent("Monday", "09:00", "10:00", "t1", "R1")),
	}

	conflicts, err := CheckExternal(cand, cohort, others)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictTeacher, conflicts[0].Kind)
}

func TestCheckExternalRoomCaseInsensitiveTrimmed(t *testing.T) {
	cand := Candidate{Day: "Monday", StartTime: "09:30", EndTime: "10:30", TeacherID: "t9", Room: "  lab 1 "}
	cohort := Cohort{CourseID: "c1", YearLevel: 1, Semester: 1}

	others := []models.Schedule{
		externalSchedule("x1", "c2", 2, 1, externalEvent("Monday", "09:00", "10:00", "t1", "LAB 1")),
	}

	conflicts, err := CheckExternal(cand, cohort, others)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictRoom, conflicts[0].Kind)
}

func TestCheckExternalEmptyRoomsNeverMatch(t *testing.T) {
	cand := Candidate{Day: "Monday", StartTime: "09:30", EndTime: "10:30", TeacherID: "t9", Room: ""}
	cohort := Cohort{CourseID: "c1", YearLevel: 1, Semester: 1}

	others := []models.Schedule{
		externalSchedule("x1", "c2", 2, 1, externalEvent("Monday", "09:00", "10:00", "t1", "")),
	}

	conflicts, err := CheckExternal(cand, cohort, others)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestCheckExternalCollectsAllMatches(t *testing.T) {
	cand := Candidate{Day: "Monday", StartTime: "09:00", EndTime: "11:00", TeacherID: "t1", Room: "R1"}
	cohort := Cohort{CourseID: "c1", YearLevel: 1, Semester: 1}

	others := []models.Schedule{
		externalSchedule("x1", "c1", 1, 1, externalEvent("Monday", "09:00", "10:00", "", "R9")),
		externalSchedule("x2", "c2", 1, 1, externalEvent("Monday", "10:00", "11:00", "t1", "R9")),
		externalSchedule("x3", "c3", 2, 2, externalEvent("Monday", "09:30", "10:30", "t8", "R1")),
		// overlapping but unrelated: different teacher, room and cohort
		externalSchedule("x4", "c4", 3, 1, externalEvent("Monday", "09:00", "10:00", "t7", "R5")),
		// same teacher but different day
		externalSchedule("x5", "c5", 1, 2, externalEvent("Tuesday", "09:00", "10:00", "t1", "R1")),
	}

	conflicts, err := CheckExternal(cand, cohort, others)
	require.NoError(t, err)
	require.Len(t, conflicts, 3)

	kinds := map[string]models.ConflictKind{}
	for _, c := range conflicts {
		kinds[c.ScheduleID] = c.Kind
	}
	assert.Equal(t, models.ConflictStudent, kinds["x1"])
	assert.Equal(t, models.ConflictTeacher, kinds["x2"])
	assert.Equal(t, models.ConflictRoom, kinds["x3"])
}

func TestCheckExternalSkipsMalformedPersistedEvents(t *testing.T) {
	cand := Candidate{Day: "Monday", StartTime: "09:00", EndTime: "10:00", TeacherID: "t1"}
	cohort := Cohort{CourseID: "c1", YearLevel: 1, Semester: 1}

	broken := externalEvent("Monday", "9am", "10am", "t1", "R1")
	others := []models.Schedule{externalSchedule("x1", "c1", 1, 1, broken)}

	conflicts, err := CheckExternal(cand, cohort, others)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestCheckExternalInvalidCandidateRange(t *testing.T) {
	cand := Candidate{Day: "Monday", StartTime: "10:00", EndTime: "09:00"}
	_, err := CheckExternal(cand, Cohort{}, nil)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestCheckInternalFirstHitOnly(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Place(event("Monday", "09:00", "10:00", "s1", models.SessionLecture), nil))
	require.NoError(t, store.Place(event("Monday", "10:00", "11:00", "s2", models.SessionLecture), nil))

	cand := Candidate{Day: "Monday", StartTime: "09:30", EndTime: "10:30"}
	conflict, err := store.CheckInternal(cand, nil)
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, models.ConflictInternal, conflict.Kind)
	assert.Equal(t, "SUB-s1", conflict.SubjectCode)
	assert.Equal(t, "09:00", conflict.StartTime)
}

func TestCheckInternalSelfExclusion(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Place(event("Monday", "09:00", "10:00", "s1", models.SessionLecture), nil))

	cand := Candidate{Day: "Monday", StartTime: "09:00", EndTime: "10:00"}
	prev := &Span{Day: "Monday", Start: "09:00", End: "10:00"}
	conflict, err := store.CheckInternal(cand, prev)
	require.NoError(t, err)
	assert.Nil(t, conflict)
}

func TestCheckInternalCleanSpan(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Place(event("Monday", "09:00", "10:00", "s1", models.SessionLecture), nil))

	cand := Candidate{Day: "Monday", StartTime: "10:00", EndTime: "11:00"}
	conflict, err := store.CheckInternal(cand, nil)
	require.NoError(t, err)
	assert.Nil(t, conflict)
}
