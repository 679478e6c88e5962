package models

import "time"

// Subject is a catalog entry defining a class's unit composition. Required
// weekly hours derive from units: one lecture unit equals one hour, one lab
// unit equals three hours.
type Subject struct {
	ID           string    `db:"id" json:"id"`
	Code         string    `db:"code" json:"code"`
	Name         string    `db:"name" json:"name"`
	LectureUnits int       `db:"lecture_units" json:"lecture_units"`
	LabUnits     int       `db:"lab_units" json:"lab_units"`
	HasLab       bool      `db:"has_lab" json:"has_lab"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	Search    string
	HasLab    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// SubjectRef is the denormalized subject view embedded in offerings.
type SubjectRef struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	LectureUnits int    `json:"lecture_units"`
	LabUnits     int    `json:"lab_units"`
	HasLab       bool   `json:"has_lab"`
}
