package timetable

import (
	"errors"
	"fmt"

	"github.com/campuskit/timetable-api/internal/models"
)

// ErrInvalidTimeRange marks a placement whose end slot does not come after
// its start slot.
var ErrInvalidTimeRange = errors.New("end time must be after start time")

// CellState tags what a grid cell holds.
type CellState int

const (
	// CellEmpty means the slot is free.
	CellEmpty CellState = iota
	// CellOccupied means the slot is covered by a multi-slot event anchored
	// at an earlier slot. Renderers skip these; the anchor carries the event.
	CellOccupied
	// CellAnchor means the slot holds the start of a placed event.
	CellAnchor
)

// Cell is one grid cell. Event is non-nil only for CellAnchor.
type Cell struct {
	State CellState
	Event *models.ScheduledEvent
}

// Span identifies the slots an event occupied before an edit. Passing the
// pre-edit span to Place makes those slots count as free for the event being
// moved (self-exclusion).
type Span struct {
	Day   string
	Start string
	End   string
}

// PlacementConflictError reports the first occupied slot blocking a
// placement, along with the event holding it.
type PlacementConflictError struct {
	Day       string
	SlotKey   string
	Occupying *models.ScheduledEvent
}

func (e *PlacementConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Occupying != nil {
		return fmt.Sprintf("slot %s %s already holds %s (%s-%s)",
			e.Day, e.SlotKey, e.Occupying.SubjectCode, e.Occupying.StartTime, e.Occupying.EndTime)
	}
	return fmt.Sprintf("slot %s %s already occupied", e.Day, e.SlotKey)
}

// Store is the in-memory event placement grid. Only the start slot of an
// event holds the event itself; the remaining slots of its span hold the
// occupied sentinel.
type Store struct {
	cells map[string]Cell
}

// NewStore returns an empty placement store.
func NewStore() *Store {
	return &Store{cells: make(map[string]Cell)}
}

// CellKey builds the map key for a day/slot pair.
func CellKey(day, slotKey string) string {
	return day + "-" + slotKey
}

// CellAt returns the cell for a day/slot pair.
func (s *Store) CellAt(day, slotKey string) Cell {
	return s.cells[CellKey(day, slotKey)]
}

// Place writes an event into the grid after verifying every slot of its span
// is free. When prev is non-nil the slots of that pre-edit span are treated
// as self-owned; on success the old span is cleared before the new one is
// written, so editing never leaks sentinels.
func (s *Store) Place(event models.ScheduledEvent, prev *Span) error {
	startIdx, err := SlotIndex(event.StartTime)
	if err != nil {
		return err
	}
	endIdx, err := SlotIndex(event.EndTime)
	if err != nil {
		return err
	}
	if endIdx <= startIdx {
		return fmt.Errorf("%w: %s-%s", ErrInvalidTimeRange, event.StartTime, event.EndTime)
	}

	excluded, err := s.spanKeys(prev)
	if err != nil {
		return err
	}

	for i := startIdx; i < endIdx; i++ {
		key := CellKey(event.Day, slots[i].Key)
		if _, self := excluded[key]; self {
			continue
		}
		cell := s.cells[key]
		if cell.State != CellEmpty {
			return &PlacementConflictError{
				Day:       event.Day,
				SlotKey:   slots[i].Key,
				Occupying: s.anchorFor(event.Day, i),
			}
		}
	}

	if prev != nil {
		s.clearSpan(*prev)
	}

	s.cells[CellKey(event.Day, slots[startIdx].Key)] = Cell{State: CellAnchor, Event: &event}
	for i := startIdx + 1; i < endIdx; i++ {
		s.cells[CellKey(event.Day, slots[i].Key)] = Cell{State: CellOccupied}
	}
	return nil
}

// Remove clears the full span of the event anchored at (day, start). Removing
// a slot that holds no anchor is a no-op.
func (s *Store) Remove(day, start string) {
	cell := s.cells[CellKey(day, start)]
	if cell.State != CellAnchor || cell.Event == nil {
		return
	}
	s.clearSpan(Span{Day: day, Start: cell.Event.StartTime, End: cell.Event.EndTime})
}

// Events returns all anchored events in day-then-slot order.
func (s *Store) Events() []models.ScheduledEvent {
	var out []models.ScheduledEvent
	for _, day := range models.Days {
		for _, slot := range slots {
			cell := s.cells[CellKey(day, slot.Key)]
			if cell.State == CellAnchor && cell.Event != nil {
				out = append(out, *cell.Event)
			}
		}
	}
	return out
}

// spanKeys expands a span into its cell keys.
func (s *Store) spanKeys(span *Span) (map[string]struct{}, error) {
	if span == nil {
		return nil, nil
	}
	startIdx, err := SlotIndex(span.Start)
	if err != nil {
		return nil, err
	}
	endIdx, err := SlotIndex(span.End)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]struct{}, endIdx-startIdx)
	for i := startIdx; i < endIdx; i++ {
		keys[CellKey(span.Day, slots[i].Key)] = struct{}{}
	}
	return keys, nil
}

func (s *Store) clearSpan(span Span) {
	startIdx, err := SlotIndex(span.Start)
	if err != nil {
		return
	}
	endIdx, err := SlotIndex(span.End)
	if err != nil {
		return
	}
	for i := startIdx; i < endIdx; i++ {
		delete(s.cells, CellKey(span.Day, slots[i].Key))
	}
}

// anchorFor walks backwards from idx to the anchor covering it.
func (s *Store) anchorFor(day string, idx int) *models.ScheduledEvent {
	for i := idx; i >= 0; i-- {
		cell := s.cells[CellKey(day, slots[i].Key)]
		switch cell.State {
		case CellAnchor:
			return cell.Event
		case CellOccupied:
			continue
		default:
			return nil
		}
	}
	return nil
}
