// Package timetable implements the weekly scheduling core: the canonical
// half-hour time grid, the event placement store, hours accounting against
// subject unit loads, two-phase conflict detection and the conversion
// between the persisted event list and the editable grid.
package timetable

import (
	"errors"
	"fmt"
)

const (
	gridStartHour = 7
	gridEndHour   = 18
	slotMinutes   = 30

	// HoursPerSlot is the duration of one grid slot in hours.
	HoursPerSlot = 0.5
)

// ErrUnknownSlot marks a slot key outside the canonical grid. Persisted data
// referencing such a key is malformed and must not be silently placed.
var ErrUnknownSlot = errors.New("unknown time slot")

// TimeSlot is one schedulable half-hour boundary of the weekly grid.
type TimeSlot struct {
	Index   int    `json:"index"`
	Key     string `json:"key"`     // 24h "HH:MM"
	Display string `json:"display"` // "H:MM AM/PM"
}

var (
	slots     []TimeSlot
	slotIndex map[string]int
)

func init() {
	slots = generateSlots()
	slotIndex = make(map[string]int, len(slots))
	for _, s := range slots {
		slotIndex[s.Key] = s.Index
	}
}

// generateSlots builds the ordered 07:00..18:00 half-hour sequence. Pure and
// deterministic; init caches the result since the grid never changes.
func generateSlots() []TimeSlot {
	var out []TimeSlot
	idx := 0
	for h := gridStartHour; h <= gridEndHour; h++ {
		for m := 0; m < 60; m += slotMinutes {
			if h == gridEndHour && m > 0 {
				break
			}
			out = append(out, TimeSlot{
				Index:   idx,
				Key:     fmt.Sprintf("%02d:%02d", h, m),
				Display: displayTime(h, m),
			})
			idx++
		}
	}
	return out
}

func displayTime(h, m int) string {
	suffix := "AM"
	display := h
	switch {
	case h == 12:
		suffix = "PM"
	case h > 12:
		suffix = "PM"
		display = h - 12
	case h == 0:
		display = 12
	}
	return fmt.Sprintf("%d:%02d %s", display, m, suffix)
}

// Slots returns the canonical slot sequence.
func Slots() []TimeSlot {
	out := make([]TimeSlot, len(slots))
	copy(out, slots)
	return out
}

// SlotCount returns the number of slots in the grid.
func SlotCount() int {
	return len(slots)
}

// SlotIndex resolves a 24h "HH:MM" key to its grid index.
func SlotIndex(key string) (int, error) {
	idx, ok := slotIndex[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSlot, key)
	}
	return idx, nil
}

// SlotKey returns the key at the given grid index.
func SlotKey(index int) (string, error) {
	if index < 0 || index >= len(slots) {
		return "", fmt.Errorf("%w: index %d", ErrUnknownSlot, index)
	}
	return slots[index].Key, nil
}
