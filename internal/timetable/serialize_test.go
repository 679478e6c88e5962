package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/timetable-api/internal/models"
)

func TestEventsToGridPlacesWellFormedEvents(t *testing.T) {
	events := []models.ScheduledEvent{
		event("Monday", "08:00", "09:30", "s1", models.SessionLecture),
		event("Tuesday", "10:00", "13:00", "s2", models.SessionLab),
	}

	store, warnings := EventsToGrid(events, nil)
	assert.Empty(t, warnings)
	assert.Len(t, store.Events(), 2)
	assert.Equal(t, CellAnchor, store.CellAt("Monday", "08:00").State)
	assert.Equal(t, CellOccupied, store.CellAt("Tuesday", "12:30").State)
}

func TestEventsToGridSkipsMalformedWithoutAborting(t *testing.T) {
	missingSubject := event("Monday", "08:00", "09:00", "", models.SessionLecture)
	badSlot := event("Monday", "06:00", "09:00", "s2", models.SessionLecture)
	inverted := event("Monday", "10:00", "09:00", "s3", models.SessionLecture)
	good := event("Friday", "08:00", "09:00", "s4", models.SessionLecture)

	store, warnings := EventsToGrid([]models.ScheduledEvent{missingSubject, badSlot, inverted, good}, nil)

	require.Len(t, warnings, 3)
	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "s4", events[0].SubjectID)
}

func TestEventsToGridSkipsDoubleBookedPersistedData(t *testing.T) {
	first := event("Monday", "08:00", "10:00", "s1", models.SessionLecture)
	overlapping := event("Monday", "09:00", "11:00", "s2", models.SessionLecture)

	store, warnings := EventsToGrid([]models.ScheduledEvent{first, overlapping}, nil)

	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "overlaps")
	assert.Len(t, store.Events(), 1)
}

func TestGridToEventsRoundTrip(t *testing.T) {
	original := []models.ScheduledEvent{
		event("Monday", "08:00", "09:30", "s1", models.SessionLecture),
		event("Monday", "10:00", "11:30", "s1", models.SessionLecture),
		event("Wednesday", "13:00", "16:00", "s2", models.SessionLab),
	}

	store, warnings := EventsToGrid(original, nil)
	require.Empty(t, warnings)

	out, warnings := GridToEvents(store, nil, nil)
	require.Empty(t, warnings)
	require.Len(t, out, len(original))

	type tuple struct {
		day, start, end, subject string
		session                  models.SessionType
	}
	want := make(map[tuple]struct{})
	for _, ev := range original {
		want[tuple{ev.Day, ev.StartTime, ev.EndTime, ev.SubjectID, ev.SessionType}] = struct{}{}
	}
	for _, ev := range out {
		_, ok := want[tuple{ev.Day, ev.StartTime, ev.EndTime, ev.SubjectID, ev.SessionType}]
		assert.True(t, ok, "unexpected event %+v", ev)
	}
}

func TestGridToEventsResolvesOfferingIDs(t *testing.T) {
	// The event carries an offering id; the resolver maps it to the catalog
	// subject.
	offering := event("Monday", "08:00", "09:00", "off-1", models.SessionLecture)
	offering.SubjectCode = ""
	offering.SubjectName = ""

	store, _ := EventsToGrid([]models.ScheduledEvent{offering}, nil)

	resolver := func(id string) (models.SubjectRef, bool) {
		if id == "off-1" {
			return models.SubjectRef{ID: "subj-9", Code: "CS101", Name: "Intro to CS"}, true
		}
		return models.SubjectRef{}, false
	}

	out, warnings := GridToEvents(store, resolver, nil)
	require.Empty(t, warnings)
	require.Len(t, out, 1)
	assert.Equal(t, "subj-9", out[0].SubjectID)
	assert.Equal(t, "CS101", out[0].SubjectCode)
	assert.Equal(t, "Intro to CS", out[0].SubjectName)
}

func TestGridToEventsDropsUnresolvableSubjects(t *testing.T) {
	ev := event("Monday", "08:00", "09:00", "ghost", models.SessionLecture)
	store, _ := EventsToGrid([]models.ScheduledEvent{ev}, nil)

	resolver := func(string) (models.SubjectRef, bool) { return models.SubjectRef{}, false }

	out, warnings := GridToEvents(store, resolver, nil)
	assert.Empty(t, out)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "not resolvable")
}

func TestGridToEventsKeepsSnapshotOverResolverNames(t *testing.T) {
	ev := event("Monday", "08:00", "09:00", "subj-1", models.SessionLecture)
	store, _ := EventsToGrid([]models.ScheduledEvent{ev}, nil)

	resolver := func(id string) (models.SubjectRef, bool) {
		return models.SubjectRef{ID: "subj-1", Code: "RENAMED", Name: "Renamed Subject"}, true
	}

	out, _ := GridToEvents(store, resolver, nil)
	require.Len(t, out, 1)
	// Denormalized snapshot taken at placement time wins over later renames.
	assert.Equal(t, "SUB-subj-1", out[0].SubjectCode)
}
