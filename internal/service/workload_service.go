package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/campuskit/timetable-api/internal/models"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
)

type workloadOfferingRepository interface {
	ListByTeacher(ctx context.Context, teacherID, academicYear string, semester int) ([]models.Offering, error)
}

type workloadSubjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Subject, error)
}

type workloadTeacherRepository interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// WorkloadCheckRequest asks whether a teacher can absorb one more subject
// assignment in a term.
type WorkloadCheckRequest struct {
	TeacherID    string `json:"teacher_id" validate:"required"`
	SubjectID    string `json:"subject_id" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required"`
	Semester     int    `json:"semester" validate:"required,min=1,max=3"`
}

// WorkloadCheckResult is the verdict for a workload check. The assignment is
// never blocked outright; crossing the unit cap flags it as needing
// overload approval.
type WorkloadCheckResult struct {
	Success                bool   `json:"success"`
	RequiresOverload       bool   `json:"requires_overload"`
	Reason                 string `json:"reason,omitempty"`
	CurrentAssignmentUnits int    `json:"current_assignment_units"`
	SubjectUnits           int    `json:"subject_units"`
	NewTotal               int    `json:"new_total"`
	MaxUnitLimit           int    `json:"max_unit_limit"`
}

// WorkloadAssignment is one line of a teacher's load summary.
type WorkloadAssignment struct {
	OfferingID   string `json:"offering_id"`
	SubjectID    string `json:"subject_id"`
	SubjectCode  string `json:"subject_code"`
	SubjectName  string `json:"subject_name"`
	Units        int    `json:"units"`
	YearLevel    int    `json:"year_level"`
	AcademicYear string `json:"academic_year"`
	Semester     int    `json:"semester"`
}

// WorkloadSummary aggregates a teacher's assignments for one term.
type WorkloadSummary struct {
	TeacherID    string               `json:"teacher_id"`
	TeacherName  string               `json:"teacher_name"`
	AcademicYear string               `json:"academic_year"`
	Semester     int                  `json:"semester"`
	TotalUnits   int                  `json:"total_units"`
	MaxUnitLimit int                  `json:"max_unit_limit"`
	Overloaded   bool                 `json:"overloaded"`
	Assignments  []WorkloadAssignment `json:"assignments"`
}

// WorkloadService accounts teacher unit loads across offerings.
type WorkloadService struct {
	offerings workloadOfferingRepository
	subjects  workloadSubjectRepository
	teachers  workloadTeacherRepository
	validator *validator.Validate
	logger    *zap.Logger
	maxUnits  int
}

// NewWorkloadService creates a new workload service.
func NewWorkloadService(offerings workloadOfferingRepository, subjects workloadSubjectRepository, teachers workloadTeacherRepository, validate *validator.Validate, logger *zap.Logger, maxUnits int) *WorkloadService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxUnits <= 0 {
		maxUnits = 24
	}
	return &WorkloadService{
		offerings: offerings,
		subjects:  subjects,
		teachers:  teachers,
		validator: validate,
		logger:    logger,
		maxUnits:  maxUnits,
	}
}

// Check projects the teacher's unit total with one more subject added.
func (s *WorkloadService) Check(ctx context.Context, req WorkloadCheckRequest) (*WorkloadCheckResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid workload check payload")
	}

	if _, err := s.teachers.FindByID(ctx, req.TeacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	current, _, err := s.loadAssignments(ctx, req.TeacherID, req.AcademicYear, req.Semester)
	if err != nil {
		return nil, err
	}

	units := subjectUnits(subject)
	total := current + units

	result := &WorkloadCheckResult{
		Success:                true,
		CurrentAssignmentUnits: current,
		SubjectUnits:           units,
		NewTotal:               total,
		MaxUnitLimit:           s.maxUnits,
	}
	if total > s.maxUnits {
		result.RequiresOverload = true
		result.Reason = "assignment pushes the teacher past the unit limit"
	}
	return result, nil
}

// Summary reports a teacher's full assignment list and unit total for one
// term.
func (s *WorkloadService) Summary(ctx context.Context, teacherID, academicYear string, semester int) (*WorkloadSummary, error) {
	if teacherID == "" || academicYear == "" || semester < 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher id, academic year and semester are required")
	}

	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	total, assignments, err := s.loadAssignments(ctx, teacherID, academicYear, semester)
	if err != nil {
		return nil, err
	}

	return &WorkloadSummary{
		TeacherID:    teacher.ID,
		TeacherName:  teacher.FullName,
		AcademicYear: academicYear,
		Semester:     semester,
		TotalUnits:   total,
		MaxUnitLimit: s.maxUnits,
		Overloaded:   total > s.maxUnits,
		Assignments:  assignments,
	}, nil
}

func (s *WorkloadService) loadAssignments(ctx context.Context, teacherID, academicYear string, semester int) (int, []WorkloadAssignment, error) {
	offerings, err := s.offerings.ListByTeacher(ctx, teacherID, academicYear, semester)
	if err != nil {
		return 0, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher assignments")
	}
	if len(offerings) == 0 {
		return 0, []WorkloadAssignment{}, nil
	}

	ids := make([]string, 0, len(offerings))
	for _, o := range offerings {
		ids = append(ids, o.SubjectID)
	}
	subjects, err := s.subjects.FindByIDs(ctx, ids)
	if err != nil {
		return 0, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve assignment subjects")
	}
	byID := make(map[string]*models.Subject, len(subjects))
	for i := range subjects {
		byID[subjects[i].ID] = &subjects[i]
	}

	total := 0
	assignments := make([]WorkloadAssignment, 0, len(offerings))
	for _, o := range offerings {
		subject, ok := byID[o.SubjectID]
		if !ok {
			s.logger.Warn("assignment references missing subject",
				zap.String("offering_id", o.ID),
				zap.String("subject_id", o.SubjectID))
			continue
		}
		if !teacherAssigned(o.AssignedTeachers, teacherID) {
			continue
		}
		units := subjectUnits(subject)
		total += units
		assignments = append(assignments, WorkloadAssignment{
			OfferingID:   o.ID,
			SubjectID:    subject.ID,
			SubjectCode:  subject.Code,
			SubjectName:  subject.Name,
			Units:        units,
			YearLevel:    o.YearLevel,
			AcademicYear: o.AcademicYear,
			Semester:     o.Semester,
		})
	}
	return total, assignments, nil
}

// teacherAssigned double-checks the JSONB containment match in Go; a partial
// document match must not credit units to the wrong teacher.
func teacherAssigned(raw types.JSONText, teacherID string) bool {
	var assigned []models.AssignedTeacher
	if err := json.Unmarshal(raw, &assigned); err != nil {
		return false
	}
	for _, a := range assigned {
		if a.TeacherID == teacherID {
			return true
		}
	}
	return false
}

func subjectUnits(subject *models.Subject) int {
	return subject.LectureUnits + subject.LabUnits
}
