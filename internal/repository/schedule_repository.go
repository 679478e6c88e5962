package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuskit/timetable-api/internal/models"
)

// ScheduleRepository provides persistence for weekly schedules and their
// placed events.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = "id, name, academic_year, course_id, year_level, semester, created_at, updated_at"

const eventColumns = "id, schedule_id, day, start_time, end_time, subject_id, subject_code, subject_name, session_type, room, teacher_id, teacher_name"

// List returns schedules matching the filter without their events.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	base := "FROM schedules WHERE 1=1"
	var args []interface{}

	if filter.CourseID != "" {
		base += fmt.Sprintf(" AND course_id = $%d", len(args)+1)
		args = append(args, filter.CourseID)
	}
	if filter.YearLevel > 0 {
		base += fmt.Sprintf(" AND year_level = $%d", len(args)+1)
		args = append(args, filter.YearLevel)
	}
	if filter.Semester > 0 {
		base += fmt.Sprintf(" AND semester = $%d", len(args)+1)
		args = append(args, filter.Semester)
	}
	if filter.AcademicYear != "" {
		base += fmt.Sprintf(" AND academic_year = $%d", len(args)+1)
		args = append(args, filter.AcademicYear)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY academic_year DESC, name ASC LIMIT %d OFFSET %d", scheduleColumns, base, size, offset)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	return schedules, total, nil
}

// FindByID loads one schedule with its events.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, fmt.Sprintf("SELECT %s FROM schedules WHERE id = $1", scheduleColumns), id); err != nil {
		return nil, err
	}

	events, err := r.loadEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	schedule.Events = events
	return &schedule, nil
}

// FindByCohort loads the schedule for one cohort in an academic year, with
// its events. Returns sql.ErrNoRows when the cohort has no schedule yet.
func (r *ScheduleRepository) FindByCohort(ctx context.Context, courseID string, yearLevel, semester int, academicYear string) (*models.Schedule, error) {
	const query = `SELECT id, name, academic_year, course_id, year_level, semester, created_at, updated_at
		FROM schedules WHERE course_id = $1 AND year_level = $2 AND semester = $3 AND academic_year = $4`
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, courseID, yearLevel, semester, academicYear); err != nil {
		return nil, err
	}

	events, err := r.loadEvents(ctx, schedule.ID)
	if err != nil {
		return nil, err
	}
	schedule.Events = events
	return &schedule, nil
}

// ListForConflictCheck loads every schedule in the academic year except the
// excluded one, events included. This is the external side of a conflict
// check.
func (r *ScheduleRepository) ListForConflictCheck(ctx context.Context, academicYear, excludeScheduleID string) ([]models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE academic_year = $1", scheduleColumns)
	args := []interface{}{academicYear}
	if excludeScheduleID != "" {
		query += " AND id <> $2"
		args = append(args, excludeScheduleID)
	}

	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, fmt.Errorf("list schedules for conflict check: %w", err)
	}
	if len(schedules) == 0 {
		return nil, nil
	}

	ids := make([]string, len(schedules))
	for i, s := range schedules {
		ids[i] = s.ID
	}

	inQuery, inArgs, err := sqlx.In(fmt.Sprintf("SELECT %s FROM schedule_events WHERE schedule_id IN (?) ORDER BY day, start_time", eventColumns), ids)
	if err != nil {
		return nil, fmt.Errorf("build events query: %w", err)
	}
	inQuery = r.db.Rebind(inQuery)

	var events []models.ScheduledEvent
	if err := r.db.SelectContext(ctx, &events, inQuery, inArgs...); err != nil {
		return nil, fmt.Errorf("load schedule events: %w", err)
	}

	byID := make(map[string]int, len(schedules))
	for i, s := range schedules {
		byID[s.ID] = i
	}
	for _, ev := range events {
		if i, ok := byID[ev.ScheduleID]; ok {
			schedules[i].Events = append(schedules[i].Events, ev)
		}
	}

	return schedules, nil
}

// Create stores a schedule together with its events in one transaction.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create schedule: %w", err)
	}
	defer tx.Rollback()

	const query = `INSERT INTO schedules (id, name, academic_year, course_id, year_level, semester, created_at, updated_at)
		VALUES (:id, :name, :academic_year, :course_id, :year_level, :semester, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}

	if err := insertEvents(ctx, tx, schedule.ID, schedule.Events); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create schedule: %w", err)
	}
	return nil
}

// Update rewrites the schedule header and replaces the full event set in one
// transaction.
func (r *ScheduleRepository) Update(ctx context.Context, schedule *models.Schedule) error {
	schedule.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update schedule: %w", err)
	}
	defer tx.Rollback()

	const query = `UPDATE schedules SET name = :name, academic_year = :academic_year, course_id = :course_id, year_level = :year_level, semester = :semester, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_events WHERE schedule_id = $1`, schedule.ID); err != nil {
		return fmt.Errorf("clear schedule events: %w", err)
	}

	if err := insertEvents(ctx, tx, schedule.ID, schedule.Events); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update schedule: %w", err)
	}
	return nil
}

// Delete removes a schedule and its events.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete schedule: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_events WHERE schedule_id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule events: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete schedule: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) loadEvents(ctx context.Context, scheduleID string) ([]models.ScheduledEvent, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_events WHERE schedule_id = $1 ORDER BY day, start_time", eventColumns)
	var events []models.ScheduledEvent
	if err := r.db.SelectContext(ctx, &events, query, scheduleID); err != nil {
		return nil, fmt.Errorf("load schedule events: %w", err)
	}
	return events, nil
}

func insertEvents(ctx context.Context, tx *sqlx.Tx, scheduleID string, events []models.ScheduledEvent) error {
	const query = `INSERT INTO schedule_events (id, schedule_id, day, start_time, end_time, subject_id, subject_code, subject_name, session_type, room, teacher_id, teacher_name)
		VALUES (:id, :schedule_id, :day, :start_time, :end_time, :subject_id, :subject_code, :subject_name, :session_type, :room, :teacher_id, :teacher_name)`
	for i := range events {
		events[i].ScheduleID = scheduleID
		if events[i].ID == "" {
			events[i].ID = uuid.NewString()
		}
		if _, err := tx.NamedExecContext(ctx, query, events[i]); err != nil {
			return fmt.Errorf("insert schedule event: %w", err)
		}
	}
	return nil
}
