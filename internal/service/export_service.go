package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/campuskit/timetable-api/internal/models"
	"github.com/campuskit/timetable-api/internal/timetable"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
	"github.com/campuskit/timetable-api/pkg/export"
)

type exportScheduleSource interface {
	Get(ctx context.Context, id string) (*ScheduleDetail, error)
}

// ExportFile is a rendered export ready to stream to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportService renders schedules into downloadable documents.
type ExportService struct {
	schedules exportScheduleSource
	pdf       *export.PDFExporter
	csv       *export.CSVExporter
	logger    *zap.Logger
	enabled   bool
}

// NewExportService creates a new export service.
func NewExportService(schedules exportScheduleSource, pdf *export.PDFExporter, csv *export.CSVExporter, logger *zap.Logger, enabled bool) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{schedules: schedules, pdf: pdf, csv: csv, logger: logger, enabled: enabled}
}

// SchedulePDF renders the weekly grid for one schedule as a landscape PDF.
func (s *ExportService) SchedulePDF(ctx context.Context, scheduleID string) (*ExportFile, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}

	detail, err := s.schedules.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	schedule := detail.Schedule

	doc := export.TimetableDocument{
		Title:    schedule.Name,
		Subtitle: fmt.Sprintf("Academic Year %s - Semester %d", schedule.AcademicYear, schedule.Semester),
		Days:     scheduledDays(schedule.Events),
		Rows:     buildTimetableRows(schedule.Events),
	}

	content, err := s.pdf.RenderTimetable(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule pdf")
	}

	return &ExportFile{
		Filename:    exportFilename(schedule, "pdf"),
		ContentType: "application/pdf",
		Content:     content,
	}, nil
}

// ScheduleCSV renders the flat event list for one schedule as CSV.
func (s *ExportService) ScheduleCSV(ctx context.Context, scheduleID string) (*ExportFile, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}

	detail, err := s.schedules.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	schedule := detail.Schedule

	dataset := export.Dataset{
		Headers: []string{"Day", "Start", "End", "Subject Code", "Subject", "Type", "Teacher", "Room"},
	}
	for _, event := range schedule.Events {
		teacher := ""
		if event.TeacherName != nil {
			teacher = *event.TeacherName
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Day":          event.Day,
			"Start":        event.StartTime,
			"End":          event.EndTime,
			"Subject Code": event.SubjectCode,
			"Subject":      event.SubjectName,
			"Type":         string(event.SessionType),
			"Teacher":      teacher,
			"Room":         event.Room,
		})
	}

	content, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule csv")
	}

	return &ExportFile{
		Filename:    exportFilename(schedule, "csv"),
		ContentType: "text/csv",
		Content:     content,
	}, nil
}

// scheduledDays keeps weekend columns out of the export unless something is
// actually placed there.
func scheduledDays(events []models.ScheduledEvent) []string {
	used := make(map[string]bool, len(events))
	for _, event := range events {
		used[event.Day] = true
	}
	days := make([]string, 0, 6)
	for _, day := range models.Days {
		if day == "Saturday" || day == "Sunday" {
			if !used[day] {
				continue
			}
		}
		days = append(days, day)
	}
	return days
}

// buildTimetableRows expands every event across the half-hour bands it
// covers so multi-slot sessions fill their whole column segment.
func buildTimetableRows(events []models.ScheduledEvent) []export.TimetableRow {
	cells := make(map[string]map[string]string)
	for _, event := range events {
		startIdx, err := timetable.SlotIndex(event.StartTime)
		if err != nil {
			continue
		}
		endIdx, err := timetable.SlotIndex(event.EndTime)
		if err != nil {
			continue
		}
		label := event.SubjectCode
		if event.Room != "" {
			label += " @" + event.Room
		}
		for i := startIdx; i < endIdx; i++ {
			key, err := timetable.SlotKey(i)
			if err != nil {
				continue
			}
			if cells[key] == nil {
				cells[key] = make(map[string]string)
			}
			cells[key][event.Day] = label
		}
	}

	rows := make([]export.TimetableRow, 0, timetable.SlotCount())
	for _, slot := range timetable.Slots() {
		rows = append(rows, export.TimetableRow{
			Time:  slot.Display,
			Cells: cells[slot.Key],
		})
	}
	return rows
}

func exportFilename(schedule *models.Schedule, ext string) string {
	name := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(schedule.Name), " ", "-"))
	if name == "" {
		name = "schedule"
	}
	return fmt.Sprintf("%s-%s.%s", name, schedule.AcademicYear, ext)
}
