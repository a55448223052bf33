package interp

import (
	"errors"
	"fmt"

	"github.com/everydev1618/vegascript/ast"
	"github.com/everydev1618/vegascript/frame"
	"github.com/everydev1618/vegascript/tools"
	"github.com/everydev1618/vegascript/value"
)

// Event delivery errors
var (
	ErrTraceNotFound = errors.New("trace not found")
	ErrNotACall      = errors.New("node is not a call")
	ErrNoEventSchema = errors.New("tool does not accept events")
	ErrNotAwaiting   = errors.New("frame is not awaiting")
)

// PushEvent appends payload to the event log of the awaiting call at tr and
// flips that frame and its awaiting ancestors back to running. The handler
// sees the event on the next tick.
func (e *Engine) PushEvent(prog *ast.Program, root *frame.Frame, tr string, payload value.Value) error {
	tree := frame.NewTree(root)
	f, ok := tree.Get(tr)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTraceNotFound, tr)
	}
	node, err := ast.Resolve(prog, tr)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrTraceNotFound, tr)
	}
	call, ok := node.(*ast.Call)
	if !ok {
		return fmt.Errorf("%w: %s is %s", ErrNotACall, tr, node.Kind())
	}

	t, err := e.calleeTool(call, tree, f)
	if err != nil {
		return err
	}
	if !t.AcceptsEvents() {
		return fmt.Errorf("%w: %s", ErrNoEventSchema, t.Name)
	}
	if f.Status != frame.StatusAwaiting {
		return fmt.Errorf("%w: %s is %s", ErrNotAwaiting, tr, f.Status)
	}

	if payload, err = value.Normalize(payload); err != nil {
		return &tools.ValidationError{ToolName: t.Name, Role: tools.RoleEvent, Err: err}
	}
	payload, err = t.Coerce(tools.RoleEvent, payload)
	if err != nil {
		return err
	}

	now := e.Now()
	f.Events = append(f.Events, &frame.Event{Timestamp: now, Payload: payload})
	for cur := f; cur != nil; {
		if cur.Status == frame.StatusAwaiting {
			cur.Resume(now)
		}
		parent, ok := tree.Parent(cur)
		if !ok {
			break
		}
		cur = parent
	}
	e.logger.Debug("event delivered", "trace", tr, "tool", t.Name)
	return nil
}

// calleeTool resolves the tool a call frame invokes.
func (e *Engine) calleeTool(call *ast.Call, tree *frame.Tree, f *frame.Frame) (*tools.Tool, error) {
	var segs []string
	cur := call.Callee
	for {
		if m, ok := cur.(*ast.Member); ok && !m.Optional {
			segs = append([]string{m.Property}, segs...)
			cur = m.Object
			continue
		}
		break
	}
	id, ok := cur.(*ast.Identifier)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotATool, describeCallee(call.Callee))
	}
	if _, isVar := tree.Scope(f, id.Name); isVar {
		return nil, fmt.Errorf("%w: %s is a variable", ErrNotATool, id.Name)
	}
	segs = append([]string{id.Name}, segs...)
	entry, ok := e.rt.Resolve(segs...)
	if !ok || !entry.IsTool() {
		return nil, fmt.Errorf("%w: %s", ErrNotATool, describeCallee(call.Callee))
	}
	return entry.Tool, nil
}
