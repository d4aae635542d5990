// Package clock drives the fixed tick rate that advances the simulation,
// kept as a standalone component so it can be started, stopped and tested
// without an engine attached.
package clock

import (
	"sync"
	"time"

	"github.com/eventarena/server/internal/events"
)

// MaxDtSeconds is the upper clamp applied to the measured delta between
// ticks. This prevents a debugger pause or GC stall from producing one
// huge catch-up step.
const MaxDtSeconds = 0.1

// NowFunc returns the current time in epoch milliseconds. Exposed so tests
// can substitute a deterministic clock.
type NowFunc func() int64

func defaultNow() int64 {
	return time.Now().UnixMilli()
}

// Clock emits events.TickPre then events.TickPost on every tick at a fixed
// rate. It does not own simulation state; subscribers to TickPre/TickPost
// perform the actual world update.
type Clock struct {
	bus *events.Bus
	hz  int
	now NowFunc

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	prev    int64
	submit  chan func()
}

// New constructs a Clock driving bus at hz ticks per second.
func New(bus *events.Bus, hz int) *Clock {
	return &Clock{bus: bus, hz: hz, now: defaultNow, submit: make(chan func(), 256)}
}

// Start begins ticking in a background goroutine. A second call while
// already running is a no-op.
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	c.prev = c.now()

	go c.run(c.stop, c.done)
}

// Stop halts future ticks and blocks until the loop goroutine has exited.
// There is no catch-up after Stop/Start: the first tick after a resume
// uses whatever dt has elapsed, clamped like any other tick.
func (c *Clock) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	stop, done := c.stop, c.done
	c.mu.Unlock()

	close(stop)
	<-done
}

// Running reports whether the clock is currently ticking.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Submit hands fn to the clock's own run loop goroutine, where it executes
// interleaved with ticks. Every caller outside the sim loop (the transport
// adapter decoding an inbound command, an HTTP handler) must go through
// Submit rather than touching the bus directly, so the bus only ever
// dispatches from one goroutine at a time. If the clock isn't running, fn
// runs inline:
// there is no loop goroutine yet to race with.
func (c *Clock) Submit(fn func()) {
	if !c.Running() {
		fn()
		return
	}
	c.submit <- fn
}

func (c *Clock) run(stop, done chan struct{}) {
	defer close(done)

	interval := time.Second / time.Duration(c.hz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.tick()
		case fn := <-c.submit:
			fn()
		}
	}
}

func (c *Clock) tick() {
	now := c.now()
	dtSeconds := float64(now-c.prev) / 1000.0
	if dtSeconds > MaxDtSeconds {
		dtSeconds = MaxDtSeconds
	}
	if dtSeconds < 0 {
		dtSeconds = 0
	}
	c.prev = now

	payload := events.TickPayload{DtSeconds: dtSeconds, Now: now}
	c.bus.Emit(events.New(events.TypeTickPre, payload))
	c.bus.Emit(events.New(events.TypeTickPost, payload))
}
