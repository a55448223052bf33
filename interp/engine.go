// Package interp runs scripts against a frame tree.
//
// The engine is a tree-walking interpreter whose only execution state is the
// frame tree: every node occurrence evaluates into the frame at its trace,
// and a frame that is done is never evaluated again. A tick walks the tree
// from the root, skipping finished work, until the script completes, a tool
// call suspends awaiting an event, a frame fails, or the controller stops the
// run. Ticking the same tree again continues where the last tick left off,
// in this process or in another one after the tree was serialized.
package interp

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/everydev1618/vegascript/ast"
	"github.com/everydev1618/vegascript/frame"
	"github.com/everydev1618/vegascript/tools"
	"github.com/everydev1618/vegascript/value"
)

const (
	// DefaultNodeCost is charged for every node evaluated to completion.
	DefaultNodeCost = 0.1

	// DefaultCallCost is charged for every tool handler invocation.
	DefaultCallCost = 1.0
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for tick and console output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock replaces time.Now for frame timestamps and Date built-ins.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithCosts sets the tick cost of a node and of a tool invocation.
func WithCosts(node, call float64) Option {
	return func(e *Engine) {
		e.nodeCost = node
		e.callCost = call
	}
}

// Engine evaluates scripts against the tools of one runtime. It holds no
// per-script state and may tick any number of frame trees, one at a time
// per tree.
type Engine struct {
	rt       *tools.Runtime
	logger   *slog.Logger
	clock    func() time.Time
	nodeCost float64
	callCost float64
}

// New creates an engine calling into rt.
func New(rt *tools.Runtime, opts ...Option) *Engine {
	e := &Engine{
		rt:       rt,
		logger:   slog.Default(),
		clock:    time.Now,
		nodeCost: DefaultNodeCost,
		callCost: DefaultCallCost,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Runtime returns the tools the engine calls.
func (e *Engine) Runtime() *tools.Runtime {
	return e.rt
}

// Now returns the engine clock truncated to milliseconds, the precision
// frames are persisted with.
func (e *Engine) Now() time.Time {
	return e.clock().UTC().Truncate(time.Millisecond)
}

// NewRoot returns the root frame of a fresh run, with input bound in its
// scope.
func (e *Engine) NewRoot(input value.Value) *frame.Frame {
	root := frame.New("0", e.Now())
	root.Variables = value.NewObject()
	root.Variables.Set("input", input)
	return root
}

// TickResult reports what a tick did.
type TickResult struct {
	TicksUsed float64
	Done      bool
	Status    frame.Status
	Reason    StopReason
	Error     string
}

// Tick advances the script prog whose state is root. A *RuntimeError leaves
// root exactly as it was before the call. Script failures are not returned
// as errors: they end the run with the root frame in error and Reason
// StopError.
func (e *Engine) Tick(ctx context.Context, prog *ast.Program, root *frame.Frame, ctrl *RuntimeController) (TickResult, error) {
	if ctrl == nil {
		ctrl = NewController()
	}
	start := ctrl.Used()
	result := func(reason StopReason) TickResult {
		return TickResult{
			TicksUsed: ctrl.Used() - start,
			Done:      root.Status.Terminal(),
			Status:    root.Status,
			Reason:    reason,
			Error:     root.Err,
		}
	}

	switch root.Status {
	case frame.StatusDone:
		return result(StopDone), nil
	case frame.StatusError:
		return result(StopError), nil
	}

	epoch := root.StartedAt
	snap, err := frame.Capture(root, epoch)
	if err != nil {
		return result(""), err
	}

	if root.Variables == nil {
		root.Variables = value.NewObject()
	}
	r := &run{
		eng:  e,
		ctx:  ctx,
		prog: prog,
		tree: frame.NewTree(root),
		ctrl: ctrl,
	}

	e.logger.Debug("tick started", "trace", root.Trace, "status", root.Status)
	v, _, err := r.block(prog.Body, root)
	err = r.settle(root, v, err)

	var rerr *RuntimeError
	switch {
	case err == nil:
		e.logger.Debug("tick finished", "status", root.Status, "ticks", ctrl.Used()-start)
		return result(StopDone), nil
	case errors.As(err, &rerr):
		restored, serr := snap.Restore(epoch)
		if serr != nil {
			return result(""), errors.Join(err, serr)
		}
		*root = *restored
		e.logger.Warn("tick aborted", "trace", rerr.Trace, "error", rerr)
		return result(""), err
	case errors.Is(err, errAwait):
		e.logger.Debug("tick suspended", "ticks", ctrl.Used()-start)
		return result(StopAwaiting), nil
	case errors.Is(err, errStopped):
		e.logger.Debug("tick stopped", "reason", r.reason, "ticks", ctrl.Used()-start)
		return result(r.reason), nil
	}

	var fe *frameError
	if errors.As(err, &fe) {
		e.logger.Info("script failed", "error", fe.msg)
		return result(StopError), nil
	}
	return result(""), err
}

// run is the state of one tick.
type run struct {
	eng    *Engine
	ctx    context.Context
	prog   *ast.Program
	tree   *frame.Tree
	ctrl   *RuntimeController
	reason StopReason
}

func (r *run) now() time.Time {
	return r.eng.Now()
}

// checkpoint consults the controller.
func (r *run) checkpoint() error {
	if reason, stop := r.ctrl.check(r.ctx); stop {
		r.reason = reason
		return errStopped
	}
	return nil
}

// settle records the outcome of evaluating f. Script-level failures become
// the frame's error and come back as *frameError so every enclosing frame
// fails with the same message.
func (r *run) settle(f *frame.Frame, v value.Value, err error) error {
	now := r.now()
	if err == nil {
		r.ctrl.charge(r.eng.nodeCost)
		f.Complete(v, now)
		return nil
	}
	if errors.Is(err, errAwait) {
		f.Suspend(now)
		return err
	}
	if msg, ok := localError(err); ok {
		f.Fail(msg, now)
		return &frameError{msg: msg}
	}
	return err
}

// localError reports whether err fails only the frame that raised it.
func localError(err error) (string, bool) {
	var (
		fe *frameError
		te *value.TypeError
		se *value.SyntaxError
		ve *tools.ValidationError
		he *tools.HandlerError
	)
	switch {
	case errors.As(err, &fe):
		return fe.msg, true
	case errors.As(err, &te), errors.As(err, &se), errors.As(err, &ve), errors.As(err, &he):
		return err.Error(), true
	}
	return "", false
}

// structural builds a RuntimeError for the frame f.
func (r *run) structural(f *frame.Frame, err error, detail string) *RuntimeError {
	return &RuntimeError{Trace: f.Trace, Err: err, Detail: detail}
}
