package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is the function executed when a debounce window elapses.
type Task func(context.Context)

// DebouncerConfig configures debounce behaviour.
type DebouncerConfig struct {
	Delay  time.Duration
	Logger *zap.Logger
}

// Debouncer coalesces repeated triggers per key into a single task execution.
// Each Trigger re-arms a single-shot timer for that key; an earlier pending
// timer for the same key is cancelled, so only the last trigger within the
// delay window fires. Stop cancels everything still pending.
type Debouncer struct {
	delay  time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	timers  map[string]*time.Timer
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped bool
}

// NewDebouncer builds a debouncer with the provided delay.
func NewDebouncer(cfg DebouncerConfig) *Debouncer {
	if cfg.Delay <= 0 {
		cfg.Delay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Debouncer{
		delay:  cfg.Delay,
		logger: cfg.Logger,
		timers: make(map[string]*time.Timer),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Trigger (re)arms the timer for key. A pending timer for the same key is
// superseded; its task never runs.
func (d *Debouncer) Trigger(key string, task Task) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if existing, ok := d.timers[key]; ok {
		if existing.Stop() {
			d.wg.Done()
		}
	}

	d.wg.Add(1)
	d.timers[key] = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()

		d.mu.Lock()
		delete(d.timers, key)
		stopped := d.stopped
		d.mu.Unlock()

		if stopped || d.ctx.Err() != nil {
			return
		}

		d.logger.Debug("debounced task firing", zap.String("key", key))
		task(d.ctx)
	})
}

// Stop cancels pending timers and the context handed to running tasks.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	for key, timer := range d.timers {
		if timer.Stop() {
			d.wg.Done()
		}
		delete(d.timers, key)
	}
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
}
