package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/timetable-api/internal/models"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
)

type mockWorkloadOfferings struct {
	offerings []models.Offering
}

func (m *mockWorkloadOfferings) ListByTeacher(ctx context.Context, teacherID, academicYear string, semester int) ([]models.Offering, error) {
	var out []models.Offering
	for _, o := range m.offerings {
		if o.AcademicYear == academicYear && o.Semester == semester {
			out = append(out, o)
		}
	}
	return out, nil
}

type mockWorkloadSubjects struct {
	subjects map[string]*models.Subject
}

func (m *mockWorkloadSubjects) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockWorkloadSubjects) FindByIDs(ctx context.Context, ids []string) ([]models.Subject, error) {
	var out []models.Subject
	for _, id := range ids {
		if s, ok := m.subjects[id]; ok {
			out = append(out, *s)
		}
	}
	return out, nil
}

type mockWorkloadTeachers struct {
	teachers map[string]*models.Teacher
}

func (m *mockWorkloadTeachers) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if t, ok := m.teachers[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func workloadFixtures() (*mockWorkloadOfferings, *mockWorkloadSubjects, *mockWorkloadTeachers) {
	offerings := &mockWorkloadOfferings{offerings: []models.Offering{
		{
			ID:           "o1",
			SubjectID:    "s1",
			YearLevel:    1,
			Semester:     1,
			AcademicYear: "2025-2026",
			AssignedTeachers: types.JSONText(
				`[{"teacher_id":"t1","teacher_name":"Alex Reyes","type":"both"}]`),
		},
		{
			ID:           "o2",
			SubjectID:    "s2",
			YearLevel:    2,
			Semester:     1,
			AcademicYear: "2025-2026",
			AssignedTeachers: types.JSONText(
				`[{"teacher_id":"t2","teacher_name":"Sam Cruz","type":"lecture"},{"teacher_id":"t1","teacher_name":"Alex Reyes","type":"lab"}]`),
		},
	}}
	subjects := &mockWorkloadSubjects{subjects: map[string]*models.Subject{
		"s1": {ID: "s1", Code: "CS101", Name: "Intro to CS", LectureUnits: 3, LabUnits: 1},
		"s2": {ID: "s2", Code: "CS201", Name: "Data Structures", LectureUnits: 3, LabUnits: 1},
		"s3": {ID: "s3", Code: "CS301", Name: "Databases", LectureUnits: 18, LabUnits: 0},
	}}
	teachers := &mockWorkloadTeachers{teachers: map[string]*models.Teacher{
		"t1": {ID: "t1", FullName: "Alex Reyes"},
		"t2": {ID: "t2", FullName: "Sam Cruz"},
	}}
	return offerings, subjects, teachers
}

func TestWorkloadCheckWithinLimit(t *testing.T) {
	offerings, subjects, teachers := workloadFixtures()
	svc := NewWorkloadService(offerings, subjects, teachers, nil, nil, 24)

	result, err := svc.Check(context.Background(), WorkloadCheckRequest{
		TeacherID:    "t1",
		SubjectID:    "s2",
		AcademicYear: "2025-2026",
		Semester:     1,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.RequiresOverload)
	assert.Equal(t, 8, result.CurrentAssignmentUnits)
	assert.Equal(t, 4, result.SubjectUnits)
	assert.Equal(t, 12, result.NewTotal)
	assert.Equal(t, 24, result.MaxUnitLimit)
}

func TestWorkloadCheckFlagsOverloadWithoutBlocking(t *testing.T) {
	offerings, subjects, teachers := workloadFixtures()
	svc := NewWorkloadService(offerings, subjects, teachers, nil, nil, 24)

	result, err := svc.Check(context.Background(), WorkloadCheckRequest{
		TeacherID:    "t1",
		SubjectID:    "s3",
		AcademicYear: "2025-2026",
		Semester:     1,
	})
	require.NoError(t, err)
	assert.True(t, result.Success, "overload is flagged, never blocked")
	assert.True(t, result.RequiresOverload)
	assert.Equal(t, 26, result.NewTotal)
	assert.NotEmpty(t, result.Reason)
}

func TestWorkloadCheckUnknownTeacher(t *testing.T) {
	offerings, subjects, teachers := workloadFixtures()
	svc := NewWorkloadService(offerings, subjects, teachers, nil, nil, 24)

	_, err := svc.Check(context.Background(), WorkloadCheckRequest{
		TeacherID:    "ghost",
		SubjectID:    "s1",
		AcademicYear: "2025-2026",
		Semester:     1,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestWorkloadSummaryCreditsOnlyAssignedOfferings(t *testing.T) {
	offerings, subjects, teachers := workloadFixtures()
	svc := NewWorkloadService(offerings, subjects, teachers, nil, nil, 24)

	summary, err := svc.Summary(context.Background(), "t2", "2025-2026", 1)
	require.NoError(t, err)
	assert.Equal(t, "Sam Cruz", summary.TeacherName)
	assert.Equal(t, 4, summary.TotalUnits)
	assert.False(t, summary.Overloaded)
	require.Len(t, summary.Assignments, 1)
	assert.Equal(t, "CS201", summary.Assignments[0].SubjectCode)
}

func TestWorkloadSummaryEmptyTerm(t *testing.T) {
	offerings, subjects, teachers := workloadFixtures()
	svc := NewWorkloadService(offerings, subjects, teachers, nil, nil, 24)

	summary, err := svc.Summary(context.Background(), "t1", "2025-2026", 2)
	require.NoError(t, err)
	assert.Zero(t, summary.TotalUnits)
	assert.Empty(t, summary.Assignments)
}
