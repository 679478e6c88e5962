package models

import "time"

// SessionType distinguishes lecture and laboratory sessions, each with its
// own weekly hour budget.
type SessionType string

const (
	SessionLecture SessionType = "lecture"
	SessionLab     SessionType = "lab"
)

// Valid reports whether the session type is one of the known values.
func (t SessionType) Valid() bool {
	return t == SessionLecture || t == SessionLab
}

// Days lists the schedulable days in grid order.
var Days = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// ValidDay reports whether day is a known day name.
func ValidDay(day string) bool {
	for _, d := range Days {
		if d == day {
			return true
		}
	}
	return false
}

// ScheduledEvent is one placed class session inside a weekly schedule. The
// subject fields are a denormalized snapshot taken at placement time;
// SubjectID always references the catalog subject, never an offering.
type ScheduledEvent struct {
	ID          string      `db:"id" json:"id,omitempty"`
	ScheduleID  string      `db:"schedule_id" json:"-"`
	Day         string      `db:"day" json:"day"`
	StartTime   string      `db:"start_time" json:"start_time"`
	EndTime     string      `db:"end_time" json:"end_time"`
	SubjectID   string      `db:"subject_id" json:"subject_id"`
	SubjectCode string      `db:"subject_code" json:"subject_code"`
	SubjectName string      `db:"subject_name" json:"subject_name"`
	SessionType SessionType `db:"session_type" json:"session_type"`
	Room        string      `db:"room" json:"room"`
	TeacherID   *string     `db:"teacher_id" json:"teacher_id,omitempty"`
	TeacherName *string     `db:"teacher_name" json:"teacher_name,omitempty"`
}

// Schedule is a weekly timetable for one cohort (course + year level +
// semester) in an academic year.
type Schedule struct {
	ID           string           `db:"id" json:"id"`
	Name         string           `db:"name" json:"name"`
	AcademicYear string           `db:"academic_year" json:"academic_year"`
	CourseID     string           `db:"course_id" json:"course_id"`
	YearLevel    int              `db:"year_level" json:"year_level"`
	Semester     int              `db:"semester" json:"semester"`
	Events       []ScheduledEvent `db:"-" json:"events"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	CourseID     string
	YearLevel    int
	Semester     int
	AcademicYear string
	Page         int
	PageSize     int
}

// ConflictKind classifies why a candidate placement collides with an
// existing event. For external events exactly one kind is reported, in
// STUDENT > TEACHER > ROOM priority order.
type ConflictKind string

const (
	ConflictStudent  ConflictKind = "STUDENT"
	ConflictTeacher  ConflictKind = "TEACHER"
	ConflictRoom     ConflictKind = "ROOM"
	ConflictInternal ConflictKind = "INTERNAL"
)

// ScheduleConflict describes one colliding event.
type ScheduleConflict struct {
	Kind         ConflictKind `json:"kind"`
	ScheduleID   string       `json:"schedule_id,omitempty"`
	ScheduleName string       `json:"schedule_name,omitempty"`
	SubjectCode  string       `json:"subject_code"`
	SubjectName  string       `json:"subject_name"`
	Day          string       `json:"day"`
	StartTime    string       `json:"start_time"`
	EndTime      string       `json:"end_time"`
	TeacherName  string       `json:"teacher_name,omitempty"`
	Room         string       `json:"room,omitempty"`
}

// ScheduleConflictError is returned when a placement collides with existing
// events. Conflicts holds every classified collision.
type ScheduleConflictError struct {
	Message   string             `json:"message"`
	Conflicts []ScheduleConflict `json:"conflicts"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// HoursViolation reports a subject whose scheduled hours exceed its required
// hours for a session type. This is the shape returned in 422 responses.
type HoursViolation struct {
	SubjectCode    string      `json:"subject_code"`
	SubjectName    string      `json:"subject_name"`
	SessionType    SessionType `json:"session_type"`
	ScheduledHours float64     `json:"scheduled_hours"`
	RequiredHours  float64     `json:"required_hours"`
	ExcessHours    float64     `json:"excess_hours"`
}
