// Package controller runs the signal cycle loop and exposes the control surface.
//
// One goroutine drives the loop for the lifetime of a controller. It is
// created on the first Start and afterwards only paused and resumed; Close
// ends it at process shutdown.
package controller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sweeney/traffic-signal/internal/logic"
)

// Sink receives display notifications from the loop.
// Implementations must not block and must not call back into the Controller.
type Sink interface {
	// OnTick reports the seconds remaining on the countdown; 0 means blank.
	OnTick(remaining int)
	// OnRepaintRequested signals that the lamps changed.
	OnRepaintRequested()
}

// Timing holds the loop periods.
type Timing struct {
	Tick  time.Duration // countdown step in normal mode
	Blink time.Duration // emergency blink half-period
	Idle  time.Duration // poll interval while paused
}

// DefaultTiming returns 1s ticks, a 500ms blink and a 300ms idle poll.
func DefaultTiming() Timing {
	return Timing{
		Tick:  time.Second,
		Blink: 500 * time.Millisecond,
		Idle:  300 * time.Millisecond,
	}
}

// SleepFunc blocks for d, or until ctx is done or wake fires.
// An early return is treated the same as a full sleep.
type SleepFunc func(ctx context.Context, d time.Duration, wake <-chan struct{})

// Option configures a Controller.
type Option func(*Controller)

// WithSleep replaces the sleep function. Used by tests to step the loop.
func WithSleep(fn SleepFunc) Option {
	return func(c *Controller) { c.sleep = fn }
}

// Controller owns the cycle loop.
type Controller struct {
	model  *logic.Model
	sink   Sink
	timing Timing
	sleep  SleepFunc

	// mu serialises lamp/timer writes between the loop and Stop so a
	// stopped signal can never be relit by an in-flight loop step.
	mu        sync.Mutex
	gen       atomic.Uint64 // bumped by every preemption
	paused    atomic.Bool
	started   atomic.Bool
	index     atomic.Int32
	remaining atomic.Int32
	session   atomic.Value // string

	blink bool // loop goroutine only

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a controller for the given model. The loop does not run
// until Start is called.
func New(model *logic.Model, sink Sink, timing Timing, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		model:  model,
		sink:   sink,
		timing: timing,
		sleep:  sleepCtx,
		blink:  true,
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.index.Store(int32(logic.SlotGreen))
	c.session.Store("")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start creates the loop on first use, or resumes it after Stop.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx.Err() != nil {
		return
	}
	wasPaused := c.paused.Swap(false)
	if c.started.Load() {
		// A running loop is left alone; only a paused one is woken.
		if wasPaused {
			c.nudge()
		}
		return
	}
	c.started.Store(true)
	c.session.Store(uuid.NewString())
	go c.run()
}

// Stop pauses the loop and immediately darkens every lamp and clears the
// timer. The loop index is kept, so Start resumes at the same slot.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started.Load() {
		return
	}
	c.paused.Store(true)
	c.gen.Add(1)
	c.model.SetLightOn(logic.NoSlot)
	c.remaining.Store(0)
	c.sink.OnTick(0)
	c.sink.OnRepaintRequested()
	c.nudge()
}

// ToggleEmergency flips emergency mode. A running countdown is abandoned.
func (c *Controller) ToggleEmergency() {
	c.model.ToggleEmergency()
	c.gen.Add(1)
	c.nudge()
}

// SetDensity sets the traffic density. It takes effect the next time the
// green slot is activated.
func (c *Controller) SetDensity(d logic.Density) {
	c.model.SetDensity(d)
}

// Dispatch applies a command from any control surface.
func (c *Controller) Dispatch(cmd logic.Command) {
	switch cmd.Action {
	case logic.ActionStart:
		c.Start()
	case logic.ActionStop:
		c.Stop()
	case logic.ActionEmergency:
		c.ToggleEmergency()
	case logic.ActionDensity:
		c.SetDensity(cmd.Density)
	}
}

// State returns a point-in-time view of the signal.
func (c *Controller) State() logic.SignalState {
	return logic.SignalState{
		Lights:    c.model.Lights(),
		Index:     logic.Slot(c.index.Load()),
		Remaining: int(c.remaining.Load()),
		Density:   c.model.Density(),
		Emergency: c.model.Emergency(),
		Paused:    c.paused.Load(),
		Running:   c.started.Load(),
		SessionID: c.session.Load().(string),
	}
}

// Close stops the loop goroutine and waits for it to exit.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.cancel()
	c.mu.Unlock()
	if c.started.Load() {
		<-c.done
	}
	return nil
}

func (c *Controller) nudge() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Controller) interrupted() bool {
	return c.paused.Load() || c.model.Emergency() || c.ctx.Err() != nil
}

func (c *Controller) run() {
	defer close(c.done)
	for c.ctx.Err() == nil {
		if c.paused.Load() {
			c.sleep(c.ctx, c.timing.Idle, c.wake)
			continue
		}

		if c.model.Emergency() {
			c.blinkStep()
			c.sleep(c.ctx, c.timing.Blink, c.wake)
			continue
		}

		idx := logic.Slot(c.index.Load())
		gen, ok := c.activate(idx)
		if !ok {
			continue
		}

		remaining := c.model.Delay(idx)
		for remaining > 0 {
			if !c.tick(gen, remaining) {
				break
			}
			c.sleep(c.ctx, c.timing.Tick, c.wake)
			if c.preempted(gen) {
				break
			}
			remaining--
		}

		// An abandoned countdown keeps its slot; it restarts in full later.
		// That includes a flag raised during the final second.
		if remaining == 0 {
			c.index.Store(int32(idx.Next()))
		}
	}
}

// activate lights slot s unless a pause or emergency raced in. It returns
// the generation the countdown belongs to.
func (c *Controller) activate(s logic.Slot) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen := c.gen.Load()
	if c.paused.Load() || c.model.Emergency() {
		return 0, false
	}
	// Drop wake-ups left over from earlier toggles so the fresh countdown
	// gets full-length ticks.
	select {
	case <-c.wake:
	default:
	}
	c.model.SetLightOn(s)
	c.sink.OnRepaintRequested()
	return gen, true
}

// preempted reports whether a stop or emergency toggle has happened since
// the countdown for gen began, even one already undone by Start.
func (c *Controller) preempted(gen uint64) bool {
	return c.gen.Load() != gen || c.interrupted()
}

func (c *Controller) tick(gen uint64, remaining int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.preempted(gen) {
		return false
	}
	c.remaining.Store(int32(remaining))
	c.sink.OnTick(remaining)
	return true
}

func (c *Controller) blinkStep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused.Load() {
		return
	}
	if c.blink {
		c.model.SetLightOn(logic.SlotGreen)
	} else {
		c.model.SetLightOn(logic.NoSlot)
	}
	c.blink = !c.blink
	c.remaining.Store(0)
	c.sink.OnTick(0)
	c.sink.OnRepaintRequested()
}

// sleepCtx waits for d. Cancellation and wake-ups end the wait early and
// are not reported; the loop re-reads its flags either way.
func sleepCtx(ctx context.Context, d time.Duration, wake <-chan struct{}) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-wake:
	case <-ctx.Done():
	}
}
