package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// AssignedTeacher binds a teacher to an offering for a session type.
type AssignedTeacher struct {
	TeacherID   string `json:"teacher_id"`
	TeacherName string `json:"teacher_name"`
	Type        string `json:"type"` // lecture | lab | both
}

// PreferredRoom is a room suggestion attached to an offering.
type PreferredRoom struct {
	RoomID   string `json:"room_id"`
	RoomName string `json:"room_name"`
	RoomType string `json:"room_type"`
	Capacity int    `json:"capacity"`
}

// Offering instantiates a catalog subject for specific courses, year level,
// semester and academic year. Teacher and room assignments are stored as
// JSONB documents.
type Offering struct {
	ID               string         `db:"id" json:"id"`
	SubjectID        string         `db:"subject_id" json:"subject_id"`
	CourseIDs        pq.StringArray `db:"course_ids" json:"course_ids"`
	YearLevel        int            `db:"year_level" json:"year_level"`
	Semester         int            `db:"semester" json:"semester"`
	AcademicYear     string         `db:"academic_year" json:"academic_year"`
	AssignedTeachers types.JSONText `db:"assigned_teachers" json:"assigned_teachers"`
	PreferredRooms   types.JSONText `db:"preferred_rooms" json:"preferred_rooms"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// OfferingView is the canonical normalized offering shape handed to the
/// scheduling core: the nested catalog subject is always resolved, never an
// offering id masquerading as a subject id.
type OfferingView struct {
	OfferingID       string            `json:"offering_id"`
	Subject          SubjectRef        `json:"subject"`
	CourseIDs        []string          `json:"course_ids"`
	YearLevel        int               `json:"year_level"`
	Semester         int               `json:"semester"`
	AcademicYear     string            `json:"academic_year"`
	AssignedTeachers []AssignedTeacher `json:"assigned_teachers"`
	PreferredRooms   []PreferredRoom   `json:"preferred_rooms"`
}

// OfferingFilter captures list filters for offerings.
type OfferingFilter struct {
	CourseID     string
	YearLevel    int
	Semester     int
	AcademicYear string
	SubjectID    string
	Page         int
	PageSize     int
}
