package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/campuskit/timetable-api/internal/models"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
)

type offeringRepository interface {
	List(ctx context.Context, filter models.OfferingFilter) ([]models.Offering, int, error)
	FindByID(ctx context.Context, id string) (*models.Offering, error)
	Exists(ctx context.Context, subjectID string, yearLevel, semester int, academicYear, excludeID string) (bool, error)
	Create(ctx context.Context, offering *models.Offering) error
	Update(ctx context.Context, offering *models.Offering) error
	Delete(ctx context.Context, id string) error
}

type offeringSubjectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Subject, error)
}

// OfferingRequest captures fields for creating or updating offerings.
type OfferingRequest struct {
	SubjectID        string                   `json:"subject_id" validate:"required"`
	CourseIDs        []string                 `json:"course_ids" validate:"required,min=1"`
	YearLevel        int                      `json:"year_level" validate:"required,min=1,max=6"`
	Semester         int                      `json:"semester" validate:"required,min=1,max=3"`
	AcademicYear     string                   `json:"academic_year" validate:"required"`
	AssignedTeachers []models.AssignedTeacher `json:"assigned_teachers" validate:"dive"`
	PreferredRooms   []models.PreferredRoom   `json:"preferred_rooms" validate:"dive"`
}

// OfferingService handles subject-offering workflows. Every offering handed
// out of this service is normalized: the embedded subject is always the
// resolved catalog entry.
type OfferingService struct {
	repo      offeringRepository
	subjects  offeringSubjectRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOfferingService creates a new offering service.
func NewOfferingService(repo offeringRepository, subjects offeringSubjectRepository, validate *validator.Validate, logger *zap.Logger) *OfferingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfferingService{repo: repo, subjects: subjects, validator: validate, logger: logger}
}

// List returns paginated normalized offering views.
func (s *OfferingService) List(ctx context.Context, filter models.OfferingFilter) ([]models.OfferingView, *models.Pagination, error) {
	offerings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list offerings")
	}

	views, err := s.normalizeAll(ctx, offerings)
	if err != nil {
		return nil, nil, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	return views, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a normalized offering by identifier.
func (s *OfferingService) Get(ctx context.Context, id string) (*models.OfferingView, error) {
	offering, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}

	views, err := s.normalizeAll(ctx, []models.Offering{*offering})
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, appErrors.Clone(appErrors.ErrDataIntegrity, "offering references a missing subject")
	}
	return &views[0], nil
}

// Create adds a new offering after verifying the subject exists and the
// cohort does not already carry the subject in the academic year.
func (s *OfferingService) Create(ctx context.Context, req OfferingRequest) (*models.OfferingView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid offering payload")
	}

	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "subject does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	if err := validateTeacherAssignments(subject, req.AssignedTeachers); err != nil {
		return nil, err
	}

	exists, err := s.repo.Exists(ctx, req.SubjectID, req.YearLevel, req.Semester, req.AcademicYear, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check offering uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "offering already exists for this subject, year level and semester")
	}

	offering, err := buildOffering("", req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, offering); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create offering")
	}

	view := toOfferingView(*offering, subjectRef(subject))
	return &view, nil
}

// Update modifies an existing offering.
func (s *OfferingService) Update(ctx context.Context, id string, req OfferingRequest) (*models.OfferingView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid offering payload")
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}

	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "subject does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	if err := validateTeacherAssignments(subject, req.AssignedTeachers); err != nil {
		return nil, err
	}

	exists, err := s.repo.Exists(ctx, req.SubjectID, req.YearLevel, req.Semester, req.AcademicYear, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check offering uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "offering already exists for this subject, year level and semester")
	}

	offering, err := buildOffering(id, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, offering); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update offering")
	}

	view := toOfferingView(*offering, subjectRef(subject))
	return &view, nil
}

// Delete removes an offering.
func (s *OfferingService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "offering not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete offering")
	}
	return nil
}

// SubjectResolver returns a resolver that maps either a catalog subject id
// or an offering id to the catalog subject. The editor's picker works on
// offerings, so both forms arrive in event payloads.
func (s *OfferingService) SubjectResolver(ctx context.Context) func(id string) (models.SubjectRef, bool) {
	return func(id string) (models.SubjectRef, bool) {
		if subject, err := s.subjects.FindByID(ctx, id); err == nil {
			return subjectRef(subject), true
		}
		offering, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return models.SubjectRef{}, false
		}
		subject, err := s.subjects.FindByID(ctx, offering.SubjectID)
		if err != nil {
			return models.SubjectRef{}, false
		}
		return subjectRef(subject), true
	}
}

// normalizeAll resolves subjects for a batch of offerings in one query.
// Offerings whose subject no longer exists are dropped with a warning rather
// than surfaced half-formed.
func (s *OfferingService) normalizeAll(ctx context.Context, offerings []models.Offering) ([]models.OfferingView, error) {
	if len(offerings) == 0 {
		return []models.OfferingView{}, nil
	}

	ids := make([]string, 0, len(offerings))
	seen := make(map[string]struct{}, len(offerings))
	for _, o := range offerings {
		if _, ok := seen[o.SubjectID]; ok {
			continue
		}
		seen[o.SubjectID] = struct{}{}
		ids = append(ids, o.SubjectID)
	}

	subjects, err := s.subjects.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve offering subjects")
	}
	byID := make(map[string]models.SubjectRef, len(subjects))
	for i := range subjects {
		byID[subjects[i].ID] = subjectRef(&subjects[i])
	}

	views := make([]models.OfferingView, 0, len(offerings))
	for _, o := range offerings {
		ref, ok := byID[o.SubjectID]
		if !ok {
			s.logger.Warn("offering references missing subject",
				zap.String("offering_id", o.ID),
				zap.String("subject_id", o.SubjectID))
			continue
		}
		views = append(views, toOfferingView(o, ref))
	}
	return views, nil
}

func subjectRef(subject *models.Subject) models.SubjectRef {
	return models.SubjectRef{
		ID:           subject.ID,
		Code:         subject.Code,
		Name:         subject.Name,
		LectureUnits: subject.LectureUnits,
		LabUnits:     subject.LabUnits,
		HasLab:       subject.HasLab,
	}
}

func validateTeacherAssignments(subject *models.Subject, assignments []models.AssignedTeacher) error {
	for _, a := range assignments {
		switch a.Type {
		case "lecture", "both":
		case "lab":
			if !subject.HasLab {
				return appErrors.Clone(appErrors.ErrValidation, "subject has no lab component")
			}
		default:
			return appErrors.Clone(appErrors.ErrValidation, "teacher assignment type must be lecture, lab or both")
		}
		if a.TeacherID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "teacher assignment is missing teacher id")
		}
	}
	return nil
}

func buildOffering(id string, req OfferingRequest) (*models.Offering, error) {
	teachers, err := json.Marshal(req.AssignedTeachers)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode teacher assignments")
	}
	rooms, err := json.Marshal(req.PreferredRooms)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode preferred rooms")
	}
	return &models.Offering{
		ID:               id,
		SubjectID:        req.SubjectID,
		CourseIDs:        pq.StringArray(req.CourseIDs),
		YearLevel:        req.YearLevel,
		Semester:         req.Semester,
		AcademicYear:     req.AcademicYear,
		AssignedTeachers: teachers,
		PreferredRooms:   rooms,
	}, nil
}

func toOfferingView(offering models.Offering, subject models.SubjectRef) models.OfferingView {
	view := models.OfferingView{
		OfferingID:   offering.ID,
		Subject:      subject,
		CourseIDs:    []string(offering.CourseIDs),
		YearLevel:    offering.YearLevel,
		Semester:     offering.Semester,
		AcademicYear: offering.AcademicYear,
	}
	if len(offering.AssignedTeachers) > 0 {
		_ = json.Unmarshal(offering.AssignedTeachers, &view.AssignedTeachers)
	}
	if len(offering.PreferredRooms) > 0 {
		_ = json.Unmarshal(offering.PreferredRooms, &view.PreferredRooms)
	}
	return view
}
