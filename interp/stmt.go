package interp

import (
	"github.com/everydev1618/vegascript/ast"
	"github.com/everydev1618/vegascript/frame"
	"github.com/everydev1618/vegascript/value"
)

// completion is how a statement ended.
type completion int

const (
	normal completion = iota
	brk
	ret
)

// stmt evaluates statement s as child i of parent.
func (r *run) stmt(parent *frame.Frame, i int, s ast.Statement) (value.Value, completion, error) {
	f := r.tree.Enter(parent, i, r.now())
	switch f.Status {
	case frame.StatusDone:
		return f.Value, completionOf(s, f), nil
	case frame.StatusError:
		return nil, normal, &frameError{msg: f.Err}
	}
	if err := r.checkpoint(); err != nil {
		return nil, normal, err
	}

	v, c, err := r.execStmt(s, f)
	if err := r.settle(f, v, err); err != nil {
		return nil, normal, err
	}
	return v, c, nil
}

func (r *run) execStmt(s ast.Statement, f *frame.Frame) (value.Value, completion, error) {
	switch s := s.(type) {
	case *ast.VariableDeclaration:
		return value.Undefined, normal, r.declare(s, f)

	case *ast.ExpressionStatement:
		v, err := r.expr(f, 0, s.Expr)
		return v, normal, err

	case *ast.If:
		cond, err := r.expr(f, 0, s.Cond)
		if err != nil {
			return nil, normal, err
		}
		if value.Truthy(cond) {
			return r.stmt(f, 1, s.Then)
		}
		if s.Else != nil {
			return r.stmt(f, 2, s.Else)
		}
		return value.Undefined, normal, nil

	case *ast.While:
		return r.loop(s, f)

	case *ast.Break:
		return value.Undefined, brk, nil

	case *ast.Block:
		return r.block(s.Body, f)

	case *ast.Return:
		if s.Arg == nil {
			return value.Undefined, ret, nil
		}
		v, err := r.expr(f, 0, s.Arg)
		return v, ret, err
	}
	return nil, normal, r.structural(f, ErrUnsupportedNode, string(s.Kind()))
}

// block runs a statement list in the scope of f. Its value is the value of
// the last statement that produced one.
func (r *run) block(body []ast.Statement, f *frame.Frame) (value.Value, completion, error) {
	if f.Variables == nil {
		f.Variables = value.NewObject()
	}
	var last value.Value = value.Undefined
	for i, s := range body {
		v, c, err := r.stmt(f, i, s)
		if err != nil {
			return nil, normal, err
		}
		if c != normal {
			return v, c, nil
		}
		if _, decl := s.(*ast.VariableDeclaration); !decl {
			last = v
		}
	}
	return last, normal, nil
}

// loop runs a While. Iteration i lives at child i; its value is true when
// the loop goes on to iteration i+1. Finished iterations that continue the
// loop are pruned down to their own frame.
func (r *run) loop(s *ast.While, f *frame.Frame) (value.Value, completion, error) {
	for i := 0; ; i++ {
		it := r.tree.Enter(f, i, r.now())
		switch it.Status {
		case frame.StatusDone:
			if value.Truthy(it.Value) {
				continue
			}
			if body := it.Child(1); body != nil && completionOf(s.Body, body) == ret {
				return body.Value, ret, nil
			}
			return value.Undefined, normal, nil
		case frame.StatusError:
			return nil, normal, &frameError{msg: it.Err}
		}
		if err := r.checkpoint(); err != nil {
			return nil, normal, err
		}

		more, v, c, err := r.iteration(s, it)
		if err := r.settle(it, more, err); err != nil {
			return nil, normal, err
		}
		if c == ret {
			return v, ret, nil
		}
		if !more {
			return value.Undefined, normal, nil
		}
		r.tree.Drop(it)
	}
}

func (r *run) iteration(s *ast.While, it *frame.Frame) (bool, value.Value, completion, error) {
	cond, err := r.expr(it, 0, s.Cond)
	if err != nil {
		return false, nil, normal, err
	}
	if !value.Truthy(cond) {
		return false, value.Undefined, normal, nil
	}
	v, c, err := r.stmt(it, 1, s.Body)
	if err != nil {
		return false, nil, normal, err
	}
	switch c {
	case brk:
		return false, value.Undefined, normal, nil
	case ret:
		return false, v, ret, nil
	}
	return true, v, normal, nil
}

// completionOf recovers how the done statement s at f ended.
func completionOf(s ast.Statement, f *frame.Frame) completion {
	switch s := s.(type) {
	case *ast.Break:
		return brk
	case *ast.Return:
		return ret
	case *ast.Block:
		return blockCompletion(s.Body, f)
	case *ast.If:
		if c := f.Child(1); c != nil {
			return completionOf(s.Then, c)
		}
		if c := f.Child(2); c != nil && s.Else != nil {
			return completionOf(s.Else, c)
		}
	case *ast.While:
		if it := f.Child(f.LastChild()); it != nil {
			if body := it.Child(1); body != nil && completionOf(s.Body, body) == ret {
				return ret
			}
		}
	}
	return normal
}

func blockCompletion(body []ast.Statement, f *frame.Frame) completion {
	k := f.LastChild()
	if k < 0 || k >= len(body) {
		return normal
	}
	return completionOf(body[k], f.Child(k))
}

// declare evaluates a variable declaration and binds its names in the
// nearest scope. Every value is computed before any name is bound, so a
// declaration that suspends halfway binds nothing.
func (r *run) declare(s *ast.VariableDeclaration, f *frame.Frame) error {
	var init value.Value = value.Undefined
	if s.Init != nil {
		v, err := r.expr(f, 0, s.Init)
		if err != nil {
			return err
		}
		init = v
	}

	b := &binder{r: r, f: f, next: 1}
	if err := b.bind(s.Pattern, init); err != nil {
		return err
	}

	scope, ok := r.tree.NearestScope(f)
	if !ok {
		return r.structural(f, ErrUnsupportedNode, "declaration outside any scope")
	}
	for _, nv := range b.out {
		if scope.Variables.Has(nv.name) {
			return value.Errorf("Identifier '%s' has already been declared", nv.name)
		}
	}
	for _, nv := range b.out {
		scope.Variables.Set(nv.name, nv.v)
	}
	return nil
}
