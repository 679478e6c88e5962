package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuskit/timetable-api/internal/models"
	"github.com/campuskit/timetable-api/internal/timetable"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
	"github.com/campuskit/timetable-api/pkg/jobs"
)

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error)
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	FindByCohort(ctx context.Context, courseID string, yearLevel, semester int, academicYear string) (*models.Schedule, error)
	ListForConflictCheck(ctx context.Context, academicYear, excludeScheduleID string) ([]models.Schedule, error)
	Create(ctx context.Context, schedule *models.Schedule) error
	Update(ctx context.Context, schedule *models.Schedule) error
	Delete(ctx context.Context, id string) error
}

// ConflictCache is the cache surface the schedule service needs for the
// per-year conflict context.
type ConflictCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type subjectResolverSource interface {
	SubjectResolver(ctx context.Context) func(id string) (models.SubjectRef, bool)
}

// SaveScheduleRequest carries a full schedule payload for create or update.
// Events are the complete event set; the previous set is replaced wholesale.
type SaveScheduleRequest struct {
	Name         string                  `json:"name" validate:"required"`
	AcademicYear string                  `json:"academic_year" validate:"required"`
	CourseID     string                  `json:"course_id" validate:"required"`
	YearLevel    int                     `json:"year_level" validate:"required,min=1,max=6"`
	Semester     int                     `json:"semester" validate:"required,min=1,max=3"`
	Events       []models.ScheduledEvent `json:"events"`
}

// PrevSpan identifies the slots an event held before the edit being
// validated. Those slots count as free for the event itself.
type PrevSpan struct {
	Day       string `json:"day" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// ValidatePlacementRequest asks whether one candidate placement is legal
// against both the editor's live grid and every other persisted schedule.
type ValidatePlacementRequest struct {
	ScheduleID   string                  `json:"schedule_id"`
	AcademicYear string                  `json:"academic_year" validate:"required"`
	CourseID     string                  `json:"course_id" validate:"required"`
	YearLevel    int                     `json:"year_level" validate:"required,min=1,max=6"`
	Semester     int                     `json:"semester" validate:"required,min=1,max=3"`
	Day          string                  `json:"day" validate:"required"`
	StartTime    string                  `json:"start_time" validate:"required"`
	EndTime      string                  `json:"end_time" validate:"required"`
	SubjectID    string                  `json:"subject_id" validate:"required"`
	SessionType  models.SessionType      `json:"session_type" validate:"required"`
	TeacherID    string                  `json:"teacher_id"`
	Room         string                  `json:"room"`
	Prev         *PrevSpan               `json:"prev,omitempty"`
	Events       []models.ScheduledEvent `json:"events"`
}

// PlacementAssessment is the verdict for one candidate placement.
type PlacementAssessment struct {
	Allowed   bool                      `json:"allowed"`
	Conflicts []models.ScheduleConflict `json:"conflicts"`
	Hours     *timetable.HoursReport    `json:"hours,omitempty"`
	Warnings  []string                  `json:"warnings,omitempty"`
}

// ScheduleDetail is a persisted schedule plus any data-integrity warnings
// produced while hydrating its events.
type ScheduleDetail struct {
	Schedule *models.Schedule `json:"schedule"`
	Warnings []string         `json:"warnings,omitempty"`
}

// HoursViolationError aggregates every subject over its hour budget in a
// save payload.
type HoursViolationError struct {
	Violations []models.HoursViolation
}

func (e *HoursViolationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%d subject hour budgets exceeded", len(e.Violations))
}

// ScheduleService orchestrates schedule persistence, conflict detection and
// hour accounting. The cross-schedule conflict context for an academic year
// is cached in Redis and refreshed on a debounce after writes.
type ScheduleService struct {
	repo      scheduleRepository
	cache     ConflictCache
	resolver  subjectResolverSource
	debouncer *jobs.Debouncer
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewScheduleService creates a new schedule service. cache and debouncer may
// be nil; the service then reads the conflict context straight from the
// database on every check.
func NewScheduleService(repo scheduleRepository, cache ConflictCache, resolver subjectResolverSource, debouncer *jobs.Debouncer, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ScheduleService{
		repo:      repo,
		cache:     cache,
		resolver:  resolver,
		debouncer: debouncer,
		validator: validate,
		logger:    logger,
		cacheTTL:  cacheTTL,
	}
}

// List returns paginated schedule headers.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, *models.Pagination, error) {
	schedules, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return schedules, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads one schedule and hydrates its events through the grid so
// malformed rows are filtered out with warnings instead of breaking the
// editor.
func (s *ScheduleService) Get(ctx context.Context, id string) (*ScheduleDetail, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	store, warnings := timetable.EventsToGrid(schedule.Events, s.logger)
	schedule.Events = store.Events()
	return &ScheduleDetail{Schedule: schedule, Warnings: warnings}, nil
}

// ConflictContext returns every persisted schedule in the academic year
// except the excluded one, reading through the Redis cache when available.
func (s *ScheduleService) ConflictContext(ctx context.Context, academicYear, excludeScheduleID string) ([]models.Schedule, error) {
	if academicYear == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academic year is required")
	}

	var schedules []models.Schedule
	key := conflictContextKey(academicYear)

	if s.cache != nil {
		err := s.cache.Get(ctx, key, &schedules)
		switch {
		case err == nil:
			return excludeSchedule(schedules, excludeScheduleID), nil
		case errors.Is(err, appErrors.ErrCacheMiss):
			// fall through to the database
		default:
			s.logger.Warn("conflict context cache read failed", zap.Error(err))
		}
	}

	schedules, err := s.repo.ListForConflictCheck(ctx, academicYear, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conflict context")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, schedules, s.cacheTTL); err != nil {
			s.logger.Warn("conflict context cache write failed", zap.Error(err))
		}
	}
	return excludeSchedule(schedules, excludeScheduleID), nil
}

// ValidatePlacement runs the full two-phase check for one candidate: phase
// one scans every other schedule in the academic year and collects all
// classified conflicts; phase two scans the editor's own grid and stops at
// the first occupied slot. The hour budget is projected on top.
func (s *ScheduleService) ValidatePlacement(ctx context.Context, req ValidatePlacementRequest) (*PlacementAssessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid placement payload")
	}
	if !req.SessionType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session type must be lecture or lab")
	}
	if !models.ValidDay(req.Day) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown day")
	}

	resolve := s.resolver.SubjectResolver(ctx)
	subject, ok := resolve(req.SubjectID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject does not exist")
	}

	cand := timetable.Candidate{
		Day:         req.Day,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		SubjectID:   subject.ID,
		SubjectCode: subject.Code,
		SubjectName: subject.Name,
		SessionType: req.SessionType,
		TeacherID:   req.TeacherID,
		Room:        req.Room,
	}
	cohort := timetable.Cohort{CourseID: req.CourseID, YearLevel: req.YearLevel, Semester: req.Semester}

	others, err := s.ConflictContext(ctx, req.AcademicYear, req.ScheduleID)
	if err != nil {
		return nil, err
	}

	external, err := timetable.CheckExternal(cand, cohort, others)
	if err != nil {
		return nil, placementError(err)
	}

	store, warnings := timetable.EventsToGrid(req.Events, s.logger)

	var prev *timetable.Span
	if req.Prev != nil {
		prev = &timetable.Span{Day: req.Prev.Day, Start: req.Prev.StartTime, End: req.Prev.EndTime}
	}
	internal, err := store.CheckInternal(cand, prev)
	if err != nil {
		return nil, placementError(err)
	}

	conflicts := external
	if internal != nil {
		conflicts = append(conflicts, *internal)
	}

	added, err := timetable.EventHours(models.ScheduledEvent{StartTime: req.StartTime, EndTime: req.EndTime})
	if err != nil {
		return nil, placementError(err)
	}
	if prev != nil {
		// The moved event's old hours leave the budget only when the pre-edit
		// event fed the same subject/session bucket. Changing the session type
		// or subject moves the hours to a different bucket, so the old ones
		// stay where they are.
		cell := store.CellAt(prev.Day, prev.Start)
		if cell.State == timetable.CellAnchor && cell.Event != nil &&
			cell.Event.SubjectID == subject.ID && cell.Event.SessionType == req.SessionType {
			if prevHours, perr := timetable.EventHours(*cell.Event); perr == nil {
				added -= prevHours
			}
		}
	}

	hours := store.ProjectHours(subject, req.SessionType, added)
	allowed := len(conflicts) == 0
	if err := store.EnsureWithinHours(subject, req.SessionType, added); err != nil {
		allowed = false
		var exceeded *timetable.HoursExceededError
		if errors.As(err, &exceeded) {
			warnings = append(warnings, exceeded.Error())
		}
	}

	return &PlacementAssessment{
		Allowed:   allowed,
		Conflicts: conflicts,
		Hours:     &hours,
		Warnings:  warnings,
	}, nil
}

// Create persists a new schedule after running the full event set through
// integrity, conflict and hour checks.
func (s *ScheduleService) Create(ctx context.Context, req SaveScheduleRequest) (*ScheduleDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	if _, err := s.repo.FindByCohort(ctx, req.CourseID, req.YearLevel, req.Semester, req.AcademicYear); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a schedule already exists for this cohort and academic year")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing schedule")
	}

	events, warnings, err := s.prepareEvents(ctx, "", req)
	if err != nil {
		return nil, err
	}

	schedule := &models.Schedule{
		Name:         req.Name,
		AcademicYear: req.AcademicYear,
		CourseID:     req.CourseID,
		YearLevel:    req.YearLevel,
		Semester:     req.Semester,
		Events:       events,
	}
	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}

	s.refreshConflictContext(req.AcademicYear)
	return &ScheduleDetail{Schedule: schedule, Warnings: warnings}, nil
}

// Update replaces an existing schedule's header and event set.
func (s *ScheduleService) Update(ctx context.Context, id string, req SaveScheduleRequest) (*ScheduleDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	events, warnings, err := s.prepareEvents(ctx, id, req)
	if err != nil {
		return nil, err
	}

	existing.Name = req.Name
	existing.AcademicYear = req.AcademicYear
	existing.CourseID = req.CourseID
	existing.YearLevel = req.YearLevel
	existing.Semester = req.Semester
	existing.Events = events

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}

	s.refreshConflictContext(req.AcademicYear)
	return &ScheduleDetail{Schedule: existing, Warnings: warnings}, nil
}

// Delete removes a schedule and invalidates the year's conflict context.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}

	s.refreshConflictContext(schedule.AcademicYear)
	return nil
}

// prepareEvents runs the save-time pipeline: hydrate the grid (dropping
// malformed events with warnings), resolve offering ids back to catalog
// subjects, scan the rest of the academic year for conflicts, then enforce
// every subject's hour budget.
func (s *ScheduleService) prepareEvents(ctx context.Context, scheduleID string, req SaveScheduleRequest) ([]models.ScheduledEvent, []string, error) {
	store, warnings := timetable.EventsToGrid(req.Events, s.logger)

	resolve := s.resolver.SubjectResolver(ctx)
	events, resolveWarnings := timetable.GridToEvents(store, resolve, s.logger)
	warnings = append(warnings, resolveWarnings...)

	others, err := s.ConflictContext(ctx, req.AcademicYear, scheduleID)
	if err != nil {
		return nil, nil, err
	}

	cohort := timetable.Cohort{CourseID: req.CourseID, YearLevel: req.YearLevel, Semester: req.Semester}
	var conflicts []models.ScheduleConflict
	for _, event := range events {
		cand := timetable.Candidate{
			Day:         event.Day,
			StartTime:   event.StartTime,
			EndTime:     event.EndTime,
			SubjectID:   event.SubjectID,
			SubjectCode: event.SubjectCode,
			SubjectName: event.SubjectName,
			SessionType: event.SessionType,
			Room:        event.Room,
		}
		if event.TeacherID != nil {
			cand.TeacherID = *event.TeacherID
		}
		found, err := timetable.CheckExternal(cand, cohort, others)
		if err != nil {
			return nil, nil, placementError(err)
		}
		conflicts = append(conflicts, found...)
	}
	if len(conflicts) > 0 {
		return nil, nil, appErrors.Wrap(
			&models.ScheduleConflictError{Message: "schedule conflicts with other timetables", Conflicts: conflicts},
			appErrors.ErrScheduleConflict.Code, appErrors.ErrScheduleConflict.Status, "schedule conflicts with other timetables")
	}

	if violations := s.hoursViolations(events, resolve); len(violations) > 0 {
		return nil, nil, appErrors.Wrap(
			&HoursViolationError{Violations: violations},
			appErrors.ErrHoursExceeded.Code, appErrors.ErrHoursExceeded.Status, "scheduled hours exceed subject requirements")
	}

	return events, warnings, nil
}

// hoursViolations totals scheduled hours per subject and session type and
// reports every strict overrun. Exactly meeting the budget is not a
// violation, and under-booking never blocks a save.
func (s *ScheduleService) hoursViolations(events []models.ScheduledEvent, resolve func(string) (models.SubjectRef, bool)) []models.HoursViolation {
	type bucket struct {
		subject models.SubjectRef
		session models.SessionType
		hours   float64
	}
	totals := make(map[string]*bucket)

	for _, event := range events {
		hours, err := timetable.EventHours(event)
		if err != nil {
			continue
		}
		subject, ok := resolve(event.SubjectID)
		if !ok {
			continue
		}
		key := subject.ID + "|" + string(event.SessionType)
		if b, exists := totals[key]; exists {
			b.hours += hours
		} else {
			totals[key] = &bucket{subject: subject, session: event.SessionType, hours: hours}
		}
	}

	var violations []models.HoursViolation
	for _, b := range totals {
		required := timetable.RequiredHours(b.subject, b.session)
		if b.hours > required {
			violations = append(violations, models.HoursViolation{
				SubjectCode:    b.subject.Code,
				SubjectName:    b.subject.Name,
				SessionType:    b.session,
				ScheduledHours: b.hours,
				RequiredHours:  required,
				ExcessHours:    b.hours - required,
			})
		}
	}
	return violations
}

// refreshConflictContext invalidates the year's cached context immediately
// and rebuilds it after the debounce window, so bursts of saves cause one
// rebuild instead of many.
func (s *ScheduleService) refreshConflictContext(academicYear string) {
	if s.cache == nil {
		return
	}
	key := conflictContextKey(academicYear)

	invalidateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.cache.Delete(invalidateCtx, key); err != nil {
		s.logger.Warn("conflict context invalidation failed", zap.Error(err))
	}

	if s.debouncer == nil {
		return
	}
	s.debouncer.Trigger(key, func(ctx context.Context) {
		schedules, err := s.repo.ListForConflictCheck(ctx, academicYear, "")
		if err != nil {
			s.logger.Warn("conflict context rebuild failed", zap.Error(err))
			return
		}
		if err := s.cache.Set(ctx, key, schedules, s.cacheTTL); err != nil {
			s.logger.Warn("conflict context cache write failed", zap.Error(err))
		}
	})
}

func conflictContextKey(academicYear string) string {
	return "conflict-context:" + academicYear
}

func excludeSchedule(schedules []models.Schedule, excludeID string) []models.Schedule {
	if excludeID == "" {
		return schedules
	}
	out := schedules[:0:0]
	for _, s := range schedules {
		if s.ID != excludeID {
			out = append(out, s)
		}
	}
	return out
}

// placementError maps core grid errors onto typed API errors.
func placementError(err error) error {
	switch {
	case errors.Is(err, timetable.ErrInvalidTimeRange):
		return appErrors.Wrap(err, appErrors.ErrInvalidTimeRange.Code, appErrors.ErrInvalidTimeRange.Status, appErrors.ErrInvalidTimeRange.Message)
	case errors.Is(err, timetable.ErrUnknownSlot):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "time is not on the scheduling grid")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "placement check failed")
	}
}
