package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotsCoverSevenToSix(t *testing.T) {
	all := Slots()
	require.Len(t, all, 23)
	assert.Equal(t, "07:00", all[0].Key)
	assert.Equal(t, "7:00 AM", all[0].Display)
	assert.Equal(t, "18:00", all[22].Key)
	assert.Equal(t, "6:00 PM", all[22].Display)
	assert.Equal(t, "12:00", all[10].Key)
	assert.Equal(t, "12:00 PM", all[10].Display)
}

func TestSlotsMonotonicAndUnique(t *testing.T) {
	all := Slots()
	seen := make(map[string]struct{})
	for i, slot := range all {
		assert.Equal(t, i, slot.Index)
		_, dup := seen[slot.Key]
		assert.False(t, dup, "duplicate key %s", slot.Key)
		seen[slot.Key] = struct{}{}
		if i > 0 {
			assert.Greater(t, slot.Key, all[i-1].Key)
		}
	}
}

func TestSlotsIsDeterministic(t *testing.T) {
	assert.Equal(t, generateSlots(), generateSlots())
}

func TestSlotIndex(t *testing.T) {
	idx, err := SlotIndex("09:30")
	require.NoError(t, err)
	assert.Equal(t, 5, idx)

	_, err = SlotIndex("06:30")
	require.ErrorIs(t, err, ErrUnknownSlot)

	_, err = SlotIndex("9:30")
	require.ErrorIs(t, err, ErrUnknownSlot, "keys are zero padded")
}

func TestSlotKeyRoundTrip(t *testing.T) {
	for _, slot := range Slots() {
		key, err := SlotKey(slot.Index)
		require.NoError(t, err)
		assert.Equal(t, slot.Key, key)
	}

	_, err := SlotKey(23)
	assert.ErrorIs(t, err, ErrUnknownSlot)
	_, err = SlotKey(-1)
	assert.ErrorIs(t, err, ErrUnknownSlot)
}
