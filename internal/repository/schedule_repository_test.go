package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/timetable-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func scheduleRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "name", "academic_year", "course_id", "year_level", "semester", "created_at", "updated_at"})
	now := time.Now()
	for _, id := range ids {
		rows.AddRow(id, "Schedule "+id, "2025-2026", "c1", 1, 1, now, now)
	}
	return rows
}

func eventRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "schedule_id", "day", "start_time", "end_time", "subject_id", "subject_code", "subject_name", "session_type", "room", "teacher_id", "teacher_name"})
}

func TestScheduleRepositoryListAppliesFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM schedules WHERE 1=1 AND course_id = \$1 AND academic_year = \$2 ORDER BY`).
		WithArgs("c1", "2025-2026").
		WillReturnRows(scheduleRows("sch-1", "sch-2"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM schedules WHERE 1=1 AND course_id = \$1 AND academic_year = \$2`).
		WithArgs("c1", "2025-2026").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	schedules, total, err := repo.List(context.Background(), models.ScheduleFilter{CourseID: "c1", AcademicYear: "2025-2026"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, schedules, 2)
	assert.Equal(t, "sch-1", schedules[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryFindByIDLoadsEvents(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM schedules WHERE id = \$1`).
		WithArgs("sch-1").
		WillReturnRows(scheduleRows("sch-1"))
	mock.ExpectQuery(`SELECT .+ FROM schedule_events WHERE schedule_id = \$1 ORDER BY day, start_time`).
		WithArgs("sch-1").
		WillReturnRows(eventRows().
			AddRow("ev-1", "sch-1", "Monday", "08:00", "09:30", "s1", "CS101", "Intro to CS", "lecture", "R1", nil, nil))

	schedule, err := repo.FindByID(context.Background(), "sch-1")
	require.NoError(t, err)
	require.Len(t, schedule.Events, 1)
	assert.Equal(t, "CS101", schedule.Events[0].SubjectCode)
	assert.Nil(t, schedule.Events[0].TeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListForConflictCheckExcludesSelf(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM schedules WHERE academic_year = \$1 AND id <> \$2`).
		WithArgs("2025-2026", "sch-self").
		WillReturnRows(scheduleRows("sch-other"))
	mock.ExpectQuery(`SELECT .+ FROM schedule_events WHERE schedule_id IN \(\$1\)`).
		WithArgs("sch-other").
		WillReturnRows(eventRows().
			AddRow("ev-1", "sch-other", "Monday", "08:00", "09:00", "s9", "MATH1", "Calculus", "lecture", "R2", "t1", "Teacher One"))

	schedules, err := repo.ListForConflictCheck(context.Background(), "2025-2026", "sch-self")
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, "sch-other", schedules[0].ID)
	require.Len(t, schedules[0].Events, 1)
	assert.Equal(t, "t1", *schedules[0].Events[0].TeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListForConflictCheckEmptyYear(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM schedules WHERE academic_year = \$1`).
		WithArgs("2025-2026").
		WillReturnRows(scheduleRows())

	schedules, err := repo.ListForConflictCheck(context.Background(), "2025-2026", "")
	require.NoError(t, err)
	assert.Empty(t, schedules)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryUpdateReplacesEvents(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE schedules SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM schedule_events WHERE schedule_id = \$1`).
		WithArgs("sch-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`INSERT INTO schedule_events`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	schedule := &models.Schedule{
		ID:           "sch-1",
		Name:         "BSCS 1-1",
		AcademicYear: "2025-2026",
		CourseID:     "c1",
		YearLevel:    1,
		Semester:     1,
		Events: []models.ScheduledEvent{
			{Day: "Monday", StartTime: "08:00", EndTime: "09:30", SubjectID: "s1", SubjectCode: "CS101", SubjectName: "Intro to CS", SessionType: models.SessionLecture, Room: "R1"},
		},
	}

	require.NoError(t, repo.Update(context.Background(), schedule))
	assert.NotEmpty(t, schedule.Events[0].ID)
	assert.Equal(t, "sch-1", schedule.Events[0].ScheduleID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryDeleteRollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM schedule_events WHERE schedule_id = \$1`).
		WithArgs("sch-1").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "sch-1")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
