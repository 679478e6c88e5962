package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncerFiresOnceForRapidTriggers(t *testing.T) {
	d := NewDebouncer(DebouncerConfig{Delay: 20 * time.Millisecond})
	defer d.Stop()

	var fired int32
	for i := 0; i < 5; i++ {
		d.Trigger("ctx:a", func(context.Context) {
			atomic.AddInt32(&fired, 1)
		})
	}

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fired) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestDebouncerIndependentKeys(t *testing.T) {
	d := NewDebouncer(DebouncerConfig{Delay: 10 * time.Millisecond})
	defer d.Stop()

	var a, b int32
	d.Trigger("ctx:a", func(context.Context) { atomic.AddInt32(&a, 1) })
	d.Trigger("ctx:b", func(context.Context) { atomic.AddInt32(&b, 1) })

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&a) == 1 && atomic.LoadInt32(&b) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	d := NewDebouncer(DebouncerConfig{Delay: 100 * time.Millisecond})

	var fired int32
	d.Trigger("ctx:a", func(context.Context) { atomic.AddInt32(&fired, 1) })
	d.Stop()

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}

func TestDebouncerTriggerAfterStopIsNoop(t *testing.T) {
	d := NewDebouncer(DebouncerConfig{Delay: time.Millisecond})
	d.Stop()

	var fired int32
	d.Trigger("ctx:a", func(context.Context) { atomic.AddInt32(&fired, 1) })

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}
