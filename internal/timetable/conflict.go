package timetable

import (
	"strings"

	"github.com/campuskit/timetable-api/internal/models"
)

// Candidate is one placement being validated before it touches the grid.
type Candidate struct {
	Day         string
	StartTime   string
	EndTime     string
	SubjectID   string
	SubjectCode string
	SubjectName string
	SessionType models.SessionType
	TeacherID   string
	Room        string
}

// Cohort is the student-group context a schedule belongs to. Two schedules
// with the same triple serve the same students.
type Cohort struct {
	CourseID  string
	YearLevel int
	Semester  int
}

// Matches reports whether the schedule belongs to this cohort.
func (c Cohort) Matches(schedule models.Schedule) bool {
	return schedule.CourseID == c.CourseID &&
		schedule.YearLevel == c.YearLevel &&
		schedule.Semester == c.Semester
}

// Overlaps is the half-open interval test: [aStart,aEnd) and [bStart,bEnd)
// overlap iff aStart < bEnd && bStart < aEnd. Touching boundaries do not
// overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// CheckExternal runs the Phase A conflict scan: the candidate interval
// against every event of every previously persisted schedule. Each external
// event yields at most one conflict, classified in STUDENT > TEACHER > ROOM
// priority; all matches across the set are collected.
func CheckExternal(cand Candidate, cohort Cohort, others []models.Schedule) ([]models.ScheduleConflict, error) {
	startIdx, err := SlotIndex(cand.StartTime)
	if err != nil {
		return nil, err
	}
	endIdx, err := SlotIndex(cand.EndTime)
	if err != nil {
		return nil, err
	}
	if endIdx <= startIdx {
		return nil, ErrInvalidTimeRange
	}

	var conflicts []models.ScheduleConflict
	for _, schedule := range others {
		sameCohort := cohort.Matches(schedule)
		for _, event := range schedule.Events {
			if event.Day != cand.Day {
				continue
			}
			evStart, err := SlotIndex(event.StartTime)
			if err != nil {
				continue // malformed persisted event, cannot be judged
			}
			evEnd, err := SlotIndex(event.EndTime)
			if err != nil {
				continue
			}
			if !Overlaps(startIdx, endIdx, evStart, evEnd) {
				continue
			}

			kind, ok := classify(cand, sameCohort, event)
			if !ok {
				continue
			}
			conflicts = append(conflicts, externalConflict(kind, schedule, event))
		}
	}
	return conflicts, nil
}

// classify picks the single highest-priority dimension for one overlapping
// external event.
func classify(cand Candidate, sameCohort bool, event models.ScheduledEvent) (models.ConflictKind, bool) {
	if sameCohort {
		return models.ConflictStudent, true
	}
	if cand.TeacherID != "" && event.TeacherID != nil && *event.TeacherID == cand.TeacherID {
		return models.ConflictTeacher, true
	}
	if roomsEqual(cand.Room, event.Room) {
		return models.ConflictRoom, true
	}
	return "", false
}

func roomsEqual(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}

func externalConflict(kind models.ConflictKind, schedule models.Schedule, event models.ScheduledEvent) models.ScheduleConflict {
	conflict := models.ScheduleConflict{
		Kind:         kind,
		ScheduleID:   schedule.ID,
		ScheduleName: schedule.Name,
		SubjectCode:  event.SubjectCode,
		SubjectName:  event.SubjectName,
		Day:          event.Day,
		StartTime:    event.StartTime,
		EndTime:      event.EndTime,
		Room:         event.Room,
	}
	if event.TeacherName != nil {
		conflict.TeacherName = *event.TeacherName
	}
	return conflict
}

// CheckInternal runs the Phase B scan: the candidate span against the live
// grid, skipping the candidate's own pre-edit span. Unlike Phase A this
// stops at the first occupied slot.
func (s *Store) CheckInternal(cand Candidate, prev *Span) (*models.ScheduleConflict, error) {
	startIdx, err := SlotIndex(cand.StartTime)
	if err != nil {
		return nil, err
	}
	endIdx, err := SlotIndex(cand.EndTime)
	if err != nil {
		return nil, err
	}
	if endIdx <= startIdx {
		return nil, ErrInvalidTimeRange
	}

	excluded, err := s.spanKeys(prev)
	if err != nil {
		return nil, err
	}

	for i := startIdx; i < endIdx; i++ {
		key := CellKey(cand.Day, slots[i].Key)
		if _, self := excluded[key]; self {
			continue
		}
		cell := s.cells[key]
		if cell.State == CellEmpty {
			continue
		}

		conflict := models.ScheduleConflict{
			Kind:      models.ConflictInternal,
			Day:       cand.Day,
			StartTime: slots[i].Key,
		}
		if occupying := s.anchorFor(cand.Day, i); occupying != nil {
			conflict.SubjectCode = occupying.SubjectCode
			conflict.SubjectName = occupying.SubjectName
			conflict.StartTime = occupying.StartTime
			conflict.EndTime = occupying.EndTime
			conflict.Room = occupying.Room
			if occupying.TeacherName != nil {
				conflict.TeacherName = *occupying.TeacherName
			}
		}
		return &conflict, nil
	}
	return nil, nil
}
