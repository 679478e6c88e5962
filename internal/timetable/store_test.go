package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/timetable-api/internal/models"
)

func event(day, start, end, subjectID string, sessionType models.SessionType) models.ScheduledEvent {
	return models.ScheduledEvent{
		Day:         day,
		StartTime:   start,
		EndTime:     end,
		SubjectID:   subjectID,
		SubjectCode: "SUB-" + subjectID,
		SubjectName: "Subject " + subjectID,
		SessionType: sessionType,
		Room:        "Room 101",
	}
}

func TestPlaceMarksAnchorAndSentinels(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Place(event("Monday", "09:00", "10:30", "s1", models.SessionLecture), nil))

	anchor := store.CellAt("Monday", "09:00")
	require.Equal(t, CellAnchor, anchor.State)
	require.NotNil(t, anchor.Event)
	assert.Equal(t, "s1", anchor.Event.SubjectID)

	assert.Equal(t, CellOccupied, store.CellAt("Monday", "09:30").State)
	assert.Equal(t, CellOccupied, store.CellAt("Monday", "10:00").State)
	assert.Equal(t, CellEmpty, store.CellAt("Monday", "10:30").State)
	assert.Equal(t, CellEmpty, store.CellAt("Tuesday", "09:00").State)
}

func TestPlaceRejectsInvalidRange(t *testing.T) {
	store := NewStore()

	err := store.Place(event("Monday", "10:00", "10:00", "s1", models.SessionLecture), nil)
	require.ErrorIs(t, err, ErrInvalidTimeRange)

	err = store.Place(event("Monday", "10:00", "09:00", "s1", models.SessionLecture), nil)
	require.ErrorIs(t, err, ErrInvalidTimeRange)

	err = store.Place(event("Monday", "06:00", "09:00", "s1", models.SessionLecture), nil)
	require.ErrorIs(t, err, ErrUnknownSlot)
}

func TestPlaceRejectsOverlap(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Place(event("Monday", "09:00", "10:00", "s1", models.SessionLecture), nil))

	err := store.Place(event("Monday", "09:30", "10:30", "s2", models.SessionLecture), nil)
	var conflict *PlacementConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "Monday", conflict.Day)
	assert.Equal(t, "09:30", conflict.SlotKey)
	require.NotNil(t, conflict.Occupying)
	assert.Equal(t, "s1", conflict.Occupying.SubjectID)
}

func TestPlaceAllowsTouchingBoundaries(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Place(event("Monday", "08:00", "09:00", "s1", models.SessionLecture), nil))
	require.NoError(t, store.Place(event("Monday", "09:00", "10:00", "s2", models.SessionLecture), nil))
	require.NoError(t, store.Place(event("Tuesday", "08:30", "09:30", "s1", models.SessionLecture), nil))
}

func TestEditInPlaceIsIdempotent(t *testing.T) {
	store := NewStore()
	ev := event("Monday", "09:00", "10:30", "s1", models.SessionLecture)
	require.NoError(t, store.Place(ev, nil))

	// Re-placing with identical coordinates and the pre-edit span must
	// succeed and leave occupancy unchanged.
	prev := &Span{Day: ev.Day, Start: ev.StartTime, End: ev.EndTime}
	require.NoError(t, store.Place(ev, prev))

	assert.Equal(t, CellAnchor, store.CellAt("Monday", "09:00").State)
	assert.Equal(t, CellOccupied, store.CellAt("Monday", "09:30").State)
	assert.Equal(t, CellOccupied, store.CellAt("Monday", "10:00").State)
	assert.Len(t, store.Events(), 1)
}

func TestEditShrinkFreesTailSlots(t *testing.T) {
	store := NewStore()
	ev := event("Monday", "09:00", "11:00", "s1", models.SessionLecture)
	require.NoError(t, store.Place(ev, nil))

	shorter := event("Monday", "09:00", "10:00", "s1", models.SessionLecture)
	prev := &Span{Day: "Monday", Start: "09:00", End: "11:00"}
	require.NoError(t, store.Place(shorter, prev))

	// Freed tail must be empty, not self-owned leftovers.
	assert.Equal(t, CellEmpty, store.CellAt("Monday", "10:00").State)
	assert.Equal(t, CellEmpty, store.CellAt("Monday", "10:30").State)

	require.NoError(t, store.Place(event("Monday", "10:00", "11:00", "s2", models.SessionLab), nil))
}

func TestEditMoveAcrossDays(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Place(event("Monday", "09:00", "10:00", "s1", models.SessionLecture), nil))

	moved := event("Wednesday", "13:00", "14:00", "s1", models.SessionLecture)
	prev := &Span{Day: "Monday", Start: "09:00", End: "10:00"}
	require.NoError(t, store.Place(moved, prev))

	assert.Equal(t, CellEmpty, store.CellAt("Monday", "09:00").State)
	assert.Equal(t, CellAnchor, store.CellAt("Wednesday", "13:00").State)
}

func TestSelfExclusionUsesPreEditSnapshotOnly(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Place(event("Monday", "09:00", "10:00", "s1", models.SessionLecture), nil))
	require.NoError(t, store.Place(event("Monday", "10:00", "11:00", "s2", models.SessionLecture), nil))

	// Extending s1 into s2's slots must fail: only s1's own prior span is
	// excluded from the check.
	longer := event("Monday", "09:00", "11:00", "s1", models.SessionLecture)
	prev := &Span{Day: "Monday", Start: "09:00", End: "10:00"}
	err := store.Place(longer, prev)
	var conflict *PlacementConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "s2", conflict.Occupying.SubjectID)

	// The failed edit must not have disturbed the original placements.
	assert.Equal(t, CellAnchor, store.CellAt("Monday", "09:00").State)
	assert.Equal(t, CellAnchor, store.CellAt("Monday", "10:00").State)
}

func TestRemoveFreesWholeSpan(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Place(event("Monday", "09:00", "10:00", "s1", models.SessionLecture), nil))

	store.Remove("Monday", "09:00")

	assert.Equal(t, CellEmpty, store.CellAt("Monday", "09:00").State)
	assert.Equal(t, CellEmpty, store.CellAt("Monday", "09:30").State)
	assert.Empty(t, store.Events())
}

func TestRemoveNonAnchorIsNoop(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Place(event("Monday", "09:00", "10:00", "s1", models.SessionLecture), nil))

	// Removing at an occupied (non-anchor) slot or an empty slot changes
	// nothing.
	store.Remove("Monday", "09:30")
	store.Remove("Monday", "15:00")

	assert.Equal(t, CellAnchor, store.CellAt("Monday", "09:00").State)
	assert.Equal(t, CellOccupied, store.CellAt("Monday", "09:30").State)
}

func TestEventsReturnsDayThenSlotOrder(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Place(event("Tuesday", "08:00", "09:00", "s2", models.SessionLecture), nil))
	require.NoError(t, store.Place(event("Monday", "13:00", "14:00", "s3", models.SessionLab), nil))
	require.NoError(t, store.Place(event("Monday", "08:00", "09:00", "s1", models.SessionLecture), nil))

	events := store.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "s1", events[0].SubjectID)
	assert.Equal(t, "s3", events[1].SubjectID)
	assert.Equal(t, "s2", events[2].SubjectID)
}
