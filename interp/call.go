package interp

import (
	"context"
	"errors"
	"strings"

	"github.com/everydev1618/vegascript/ast"
	"github.com/everydev1618/vegascript/frame"
	"github.com/everydev1618/vegascript/tools"
	"github.com/everydev1618/vegascript/value"
)

// call evaluates a Call. A callee that is a member chain rooted at a
// non-variable names a tool or a built-in function; any other member callee
// is a method on the value of its object, which is evaluated as child
// len(args) of the call.
func (r *run) call(n *ast.Call, f *frame.Frame) (value.Value, error) {
	if path, ok := r.staticPath(n.Callee, f); ok {
		return r.callPath(n, f, path)
	}

	recvIdx := len(n.Args)
	switch c := n.Callee.(type) {
	case *ast.Member:
		recv, err := r.expr(f, recvIdx, c.Object)
		if err != nil {
			return nil, err
		}
		if (c.Optional || n.Optional) && value.IsNullish(recv) {
			return value.Undefined, nil
		}
		args, err := r.list(n.Args, f, 0)
		if err != nil {
			return nil, err
		}
		return r.method(f, recv, c.Property, args)

	case *ast.Index:
		recv, err := r.expr(f, recvIdx, c.Object)
		if err != nil {
			return nil, err
		}
		if (c.Optional || n.Optional) && value.IsNullish(recv) {
			return value.Undefined, nil
		}
		key, err := r.expr(f, recvIdx+1, c.Index)
		if err != nil {
			return nil, err
		}
		args, err := r.list(n.Args, f, 0)
		if err != nil {
			return nil, err
		}
		return r.method(f, recv, value.ToPropertyKey(key), args)

	case *ast.Identifier:
		return nil, value.Errorf("%s is not a function", c.Name)
	}
	return nil, value.Errorf("%s is not a function", describeCallee(n.Callee))
}

// callPath calls the tool or built-in named by path.
func (r *run) callPath(n *ast.Call, f *frame.Frame, path []string) (value.Value, error) {
	name := strings.Join(path, ".")
	if r.eng.rt.Has(path[0]) {
		e, ok := r.eng.rt.Resolve(path...)
		if !ok {
			err := r.structural(f, ErrNotATool, name)
			if s, ok := r.eng.rt.Suggest(name); ok {
				err.Suggestion = s
			}
			return nil, err
		}
		if !e.IsTool() {
			return nil, r.structural(f, ErrNotATool, name+" is a namespace")
		}
		return r.callTool(n, f, e.Tool)
	}

	if fn, ok := builtins[name]; ok {
		args, err := r.list(n.Args, f, 0)
		if err != nil {
			return nil, err
		}
		return fn(r, f, args)
	}
	if globals[path[0]] {
		return nil, value.Errorf("%s is not a function", name)
	}
	return nil, r.unknown(f, path[0])
}

// callTool runs the tool invocation protocol for the call frame f. The
// handler is not invoked while the frame awaits an event; pushing an event
// flips the frame back to running.
func (r *run) callTool(n *ast.Call, f *frame.Frame, t *tools.Tool) (value.Value, error) {
	args, err := r.list(n.Args, f, 0)
	if err != nil {
		return nil, err
	}
	if f.Status == frame.StatusAwaiting {
		return nil, errAwait
	}

	var input value.Value = value.Undefined
	switch len(args) {
	case 0:
	case 1:
		input = args[0]
	default:
		input = value.NewArray(args...)
	}
	input, err = t.Coerce(tools.RoleInput, input)
	if err != nil {
		return nil, err
	}

	var state *tools.StateHandle
	if t.Stateful() {
		if !f.HasState {
			f.State = t.InitialState()
			f.HasState = true
		}
		state = tools.NewStateHandle(f.State)
	}

	if err := r.ctx.Err(); err != nil {
		r.reason = StopCanceled
		return nil, errStopped
	}

	call := &tools.Call{
		Tool:   t.Name,
		Trace:  f.Trace,
		Input:  input,
		State:  state,
		Events: f.Events,
	}
	r.ctrl.charge(r.eng.callCost)
	out, err := r.eng.rt.Invoke(r.ctx, t, call)
	if err != nil {
		if r.ctx.Err() != nil && errors.Is(err, context.Cause(r.ctx)) {
			r.reason = StopCanceled
			return nil, errStopped
		}
		return nil, err
	}
	if state != nil {
		f.State = state.Get()
	}
	if out.Awaiting() {
		return nil, errAwait
	}
	return out.Value(), nil
}

// construct evaluates `new C(args)` for the built-in constructors.
func (r *run) construct(n *ast.New, f *frame.Frame) (value.Value, error) {
	path, ok := r.staticPath(n.Callee, f)
	if !ok || len(path) != 1 {
		return nil, value.Errorf("%s is not a constructor", describeCallee(n.Callee))
	}
	ctor, ok := constructors[path[0]]
	if !ok {
		if r.eng.rt.Has(path[0]) || globals[path[0]] {
			return nil, value.Errorf("%s is not a constructor", path[0])
		}
		return nil, r.unknown(f, path[0])
	}
	args, err := r.list(n.Args, f, 0)
	if err != nil {
		return nil, err
	}
	return ctor(r, f, args)
}

func describeCallee(e ast.Expression) string {
	switch e := e.(type) {
	case *ast.Identifier:
		return e.Name
	case *ast.Member:
		return describeCallee(e.Object) + "." + e.Property
	case *ast.Index:
		return describeCallee(e.Object) + "[...]"
	}
	return "expression"
}

func arg(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Undefined
}
