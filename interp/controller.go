package interp

import (
	"context"
	"time"
)

// StopReason explains why a tick returned.
type StopReason string

const (
	StopDone      StopReason = "done"
	StopError     StopReason = "error"
	StopAwaiting  StopReason = "awaiting"
	StopQuota     StopReason = "quota"
	StopDeadline  StopReason = "deadline"
	StopPredicate StopReason = "predicate"
	StopCanceled  StopReason = "canceled"
)

// RuntimeController meters a tick. Work is counted in fractional ticks:
// every freshly evaluated node costs NodeCost and every tool invocation
// CallCost. The engine consults the controller at statement boundaries and
// at each loop iteration, never in the middle of a tool call.
type RuntimeController struct {
	// MaxTicks stops the run once this many ticks were used. Zero means no
	// quota.
	MaxTicks float64

	// Deadline stops the run once passed. The zero time means none.
	Deadline time.Time

	// StopWhen is consulted with the ticks used so far; returning true
	// stops the run.
	StopWhen func(used float64) bool

	used  float64
	clock func() time.Time
}

// ControllerOption configures a RuntimeController.
type ControllerOption func(*RuntimeController)

// WithQuota limits a run to n ticks.
func WithQuota(n float64) ControllerOption {
	return func(c *RuntimeController) {
		c.MaxTicks = n
	}
}

// WithDeadline stops a run at t.
func WithDeadline(t time.Time) ControllerOption {
	return func(c *RuntimeController) {
		c.Deadline = t
	}
}

// WithTimeout stops a run d after the controller is created.
func WithTimeout(d time.Duration) ControllerOption {
	return func(c *RuntimeController) {
		c.Deadline = c.clock().Add(d)
	}
}

// WithStopWhen installs an early-stop predicate.
func WithStopWhen(fn func(used float64) bool) ControllerOption {
	return func(c *RuntimeController) {
		c.StopWhen = fn
	}
}

// WithControllerClock replaces time.Now for deadline checks.
func WithControllerClock(clock func() time.Time) ControllerOption {
	return func(c *RuntimeController) {
		c.clock = clock
	}
}

// NewController creates a controller. Without options it never stops a run.
func NewController(opts ...ControllerOption) *RuntimeController {
	c := &RuntimeController{clock: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Used returns the ticks consumed so far.
func (c *RuntimeController) Used() float64 {
	return c.used
}

// Reset zeroes the counter so the controller can meter another run.
func (c *RuntimeController) Reset() {
	c.used = 0
}

func (c *RuntimeController) charge(cost float64) {
	c.used += cost
}

// check reports whether the run must stop, and why.
func (c *RuntimeController) check(ctx context.Context) (StopReason, bool) {
	if ctx.Err() != nil {
		return StopCanceled, true
	}
	if c.MaxTicks > 0 && c.used >= c.MaxTicks {
		return StopQuota, true
	}
	if !c.Deadline.IsZero() {
		clock := c.clock
		if clock == nil {
			clock = time.Now
		}
		if !clock().Before(c.Deadline) {
			return StopDeadline, true
		}
	}
	if c.StopWhen != nil && c.StopWhen(c.used) {
		return StopPredicate, true
	}
	return "", false
}
