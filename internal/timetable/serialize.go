package timetable

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/campuskit/timetable-api/internal/models"
)

// SubjectResolver maps a subject-or-offering identifier to the catalog
// subject. The editor's picker works on offerings, so events arriving from a
// client may carry an offering id where the catalog subject id belongs.
type SubjectResolver func(id string) (models.SubjectRef, bool)

// EventsToGrid hydrates a placement store from a persisted event list.
// Malformed events (missing subject id, unresolvable slot key, inverted
// range, double-booked span) are skipped with a warning so one bad record
// never makes the rest of the schedule unusable.
func EventsToGrid(events []models.ScheduledEvent, logger *zap.Logger) (*Store, []string) {
	if logger == nil {
		logger = zap.NewNop()
	}
	store := NewStore()
	var warnings []string

	for _, event := range events {
		if event.SubjectID == "" {
			warnings = appendWarning(warnings, logger, event, "missing subject id")
			continue
		}
		if err := store.Place(event, nil); err != nil {
			var conflict *PlacementConflictError
			switch {
			case errors.Is(err, ErrUnknownSlot):
				warnings = appendWarning(warnings, logger, event, "unresolvable time slot")
			case errors.Is(err, ErrInvalidTimeRange):
				warnings = appendWarning(warnings, logger, event, "end time not after start time")
			case errors.As(err, &conflict):
				warnings = appendWarning(warnings, logger, event, "overlaps an already placed event")
			default:
				warnings = appendWarning(warnings, logger, event, err.Error())
			}
		}
	}
	return store, warnings
}

// GridToEvents flattens the store back into the persisted representation.
// Events are deduplicated by (day, startTime, subjectID, sessionType), and
// every surviving event has its subject id resolved to the catalog subject;
// events with no resolvable subject are dropped with a diagnostic rather
// than written out corrupted.
func GridToEvents(store *Store, resolve SubjectResolver, logger *zap.Logger) ([]models.ScheduledEvent, []string) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var out []models.ScheduledEvent
	var warnings []string
	seen := make(map[string]struct{})

	for _, event := range store.Events() {
		dedupKey := fmt.Sprintf("%s|%s|%s|%s", event.Day, event.StartTime, event.SubjectID, event.SessionType)
		if _, dup := seen[dedupKey]; dup {
			continue
		}
		seen[dedupKey] = struct{}{}

		if resolve != nil {
			subject, ok := resolve(event.SubjectID)
			if !ok {
				warnings = appendWarning(warnings, logger, event, "subject not resolvable to catalog entry")
				continue
			}
			event.SubjectID = subject.ID
			if event.SubjectCode == "" {
				event.SubjectCode = subject.Code
			}
			if event.SubjectName == "" {
				event.SubjectName = subject.Name
			}
		}
		out = append(out, event)
	}
	return out, warnings
}

func appendWarning(warnings []string, logger *zap.Logger, event models.ScheduledEvent, reason string) []string {
	msg := fmt.Sprintf("skipped event %s %s-%s (%s %s): %s",
		event.Day, event.StartTime, event.EndTime, event.SubjectCode, event.SessionType, reason)
	logger.Warn("schedule data integrity",
		zap.String("day", event.Day),
		zap.String("start", event.StartTime),
		zap.String("end", event.EndTime),
		zap.String("subject", event.SubjectCode),
		zap.String("reason", reason),
	)
	return append(warnings, msg)
}
