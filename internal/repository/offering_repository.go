package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuskit/timetable-api/internal/models"
)

// OfferingRepository provides persistence for subject offerings.
type OfferingRepository struct {
	db *sqlx.DB
}

// NewOfferingRepository creates a new offering repository.
func NewOfferingRepository(db *sqlx.DB) *OfferingRepository {
	return &OfferingRepository{db: db}
}

// List returns offerings matching the filter, newest first.
func (r *OfferingRepository) List(ctx context.Context, filter models.OfferingFilter) ([]models.Offering, int, error) {
	base := "FROM offerings WHERE 1=1"
	var args []interface{}

	if filter.CourseID != "" {
		base += fmt.Sprintf(" AND $%d = ANY(course_ids)", len(args)+1)
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
	if filter.SubjectID != "" {
		base += fmt.Sprintf(" AND subject_id = $%d", len(args)+1)
		args = append(args, filter.SubjectID)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, subject_id, course_ids, year_level, semester, academic_year, assigned_teachers, preferred_rooms, created_at, updated_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d", base, size, offset)
	var offerings []models.Offering
	if err := r.db.SelectContext(ctx, &offerings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list offerings: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count offerings: %w", err)
	}

	return offerings, total, nil
}

// FindByID loads an offering by id.
func (r *OfferingRepository) FindByID(ctx context.Context, id string) (*models.Offering, error) {
	const query = `SELECT id, subject_id, course_ids, year_level, semester, academic_year, assigned_teachers, preferred_rooms, created_at, updated_at FROM offerings WHERE id = $1`
	var offering models.Offering
	if err := r.db.GetContext(ctx, &offering, query, id); err != nil {
		return nil, err
	}
	return &offering, nil
}

// ListByTeacher returns offerings where the teacher appears in the assigned
// teachers document, scoped to one academic year and semester. Uses JSONB
// containment so the match stays index-friendly.
func (r *OfferingRepository) ListByTeacher(ctx context.Context, teacherID, academicYear string, semester int) ([]models.Offering, error) {
	const query = `SELECT id, subject_id, course_ids, year_level, semester, academic_year, assigned_teachers, preferred_rooms, created_at, updated_at
		FROM offerings
		WHERE academic_year = $1 AND semester = $2
		  AND assigned_teachers @> jsonb_build_array(jsonb_build_object('teacher_id', $3::text))`
	var offerings []models.Offering
	if err := r.db.SelectContext(ctx, &offerings, query, academicYear, semester, teacherID); err != nil {
		return nil, fmt.Errorf("list offerings by teacher: %w", err)
	}
	return offerings, nil
}

// Exists reports whether an offering for the same subject, year level,
// semester and academic year already exists, optionally excluding one record.
func (r *OfferingRepository) Exists(ctx context.Context, subjectID string, yearLevel, semester int, academicYear, excludeID string) (bool, error) {
	query := `SELECT COUNT(*) FROM offerings WHERE subject_id = $1 AND year_level = $2 AND semester = $3 AND academic_year = $4`
	args := []interface{}{subjectID, yearLevel, semester, academicYear}
	if excludeID != "" {
		query += ` AND id <> $5`
		args = append(args, excludeID)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("check offering exists: %w", err)
	}
	return count > 0, nil
}

// Create stores a new offering record.
func (r *OfferingRepository) Create(ctx context.Context, offering *models.Offering) error {
	if offering.ID == "" {
		offering.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if offering.CreatedAt.IsZero() {
		offering.CreatedAt = now
	}
	offering.UpdatedAt = now

	const query = `INSERT INTO offerings (id, subject_id, course_ids, year_level, semester, academic_year, assigned_teachers, preferred_rooms, created_at, updated_at)
		VALUES (:id, :subject_id, :course_ids, :year_level, :semester, :academic_year, :assigned_teachers, :preferred_rooms, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, offering); err != nil {
		return fmt.Errorf("create offering: %w", err)
	}
	return nil
}

// Update modifies an offering record.
func (r *OfferingRepository) Update(ctx context.Context, offering *models.Offering) error {
	offering.UpdatedAt = time.Now().UTC()
	const query = `UPDATE offerings SET subject_id = :subject_id, course_ids = :course_ids, year_level = :year_level, semester = :semester, academic_year = :academic_year, assigned_teachers = :assigned_teachers, preferred_rooms = :preferred_rooms, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, offering); err != nil {
		return fmt.Errorf("update offering: %w", err)
	}
	return nil
}

// Delete removes an offering by id.
func (r *OfferingRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM offerings WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete offering: %w", err)
	}
	return nil
}
