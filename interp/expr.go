package interp

import (
	"math"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/everydev1618/vegascript/ast"
	"github.com/everydev1618/vegascript/frame"
	"github.com/everydev1618/vegascript/value"
)

// expr evaluates expression n as child i of parent.
func (r *run) expr(parent *frame.Frame, i int, n ast.Expression) (value.Value, error) {
	f := r.tree.Enter(parent, i, r.now())
	switch f.Status {
	case frame.StatusDone:
		return f.Value, nil
	case frame.StatusError:
		return nil, &frameError{msg: f.Err}
	}

	v, err := r.evalExpr(n, f)
	if err := r.settle(f, v, err); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *run) evalExpr(n ast.Expression, f *frame.Frame) (value.Value, error) {
	switch n := n.(type) {
	case *ast.Literal:
		if n.BigInt != nil {
			return new(big.Int).Set(n.BigInt), nil
		}
		if n.Value == nil {
			return nil, nil
		}
		return n.Value, nil

	case *ast.Identifier:
		return r.ident(n, f)

	case *ast.Member:
		if path, ok := r.staticPath(n, f); ok {
			return r.staticValue(path, f)
		}
		obj, err := r.expr(f, 0, n.Object)
		if err != nil {
			return nil, err
		}
		if n.Optional && value.IsNullish(obj) {
			return value.Undefined, nil
		}
		return getProperty(obj, n.Property)

	case *ast.Index:
		obj, err := r.expr(f, 0, n.Object)
		if err != nil {
			return nil, err
		}
		if n.Optional && value.IsNullish(obj) {
			return value.Undefined, nil
		}
		key, err := r.expr(f, 1, n.Index)
		if err != nil {
			return nil, err
		}
		return getProperty(obj, key)

	case *ast.Call:
		return r.call(n, f)

	case *ast.New:
		return r.construct(n, f)

	case *ast.Assignment:
		return r.assign(n, f)

	case *ast.ObjectLiteral:
		return r.object(n, f)

	case *ast.ArrayLiteral:
		items, err := r.list(n.Items, f, 0)
		if err != nil {
			return nil, err
		}
		return value.NewArray(items...), nil

	case *ast.TemplateLiteral:
		var b strings.Builder
		for i, q := range n.Quasis {
			b.WriteString(q)
			if i < len(n.Exprs) {
				v, err := r.expr(f, i, n.Exprs[i])
				if err != nil {
					return nil, err
				}
				if _, ok := v.(*value.Symbol); ok {
					return nil, value.Errorf("Cannot convert a Symbol value to a string")
				}
				b.WriteString(value.ToString(v))
			}
		}
		return b.String(), nil

	case *ast.RegexLiteral:
		re := value.NewRegExp(n.Pattern, n.Flags)
		if _, err := re.Compile(); err != nil {
			return nil, err
		}
		return re, nil

	case *ast.UpdateExpr:
		return r.update(n, f)

	case *ast.BinaryExpr:
		if n.Operator == "instanceof" {
			return r.instanceOf(n, f)
		}
		left, err := r.expr(f, 0, n.Left)
		if err != nil {
			return nil, err
		}
		right, err := r.expr(f, 1, n.Right)
		if err != nil {
			return nil, err
		}
		return r.binary(f, n.Operator, left, right)

	case *ast.LogicalExpr:
		left, err := r.expr(f, 0, n.Left)
		if err != nil {
			return nil, err
		}
		switch n.Operator {
		case "&&":
			if !value.Truthy(left) {
				return left, nil
			}
		case "||":
			if value.Truthy(left) {
				return left, nil
			}
		case "??":
			if !value.IsNullish(left) {
				return left, nil
			}
		default:
			return nil, r.structural(f, ErrUnsupportedNode, "logical operator "+n.Operator)
		}
		return r.expr(f, 1, n.Right)

	case *ast.UnaryExpr:
		arg, err := r.expr(f, 0, n.Arg)
		if err != nil {
			return nil, err
		}
		return r.unary(f, n.Operator, arg)

	case *ast.ConditionalExpr:
		test, err := r.expr(f, 0, n.Test)
		if err != nil {
			return nil, err
		}
		if value.Truthy(test) {
			return r.expr(f, 1, n.Consequent)
		}
		return r.expr(f, 2, n.Alternate)

	case *ast.Spread:
		// The enclosing literal or call expands the value.
		return r.expr(f, 0, n.Arg)
	}
	return nil, r.structural(f, ErrUnsupportedNode, string(n.Kind()))
}

// list evaluates items as children first, first+1, ... expanding spreads.
// A nil item is a hole and reads as undefined.
func (r *run) list(items []ast.Expression, f *frame.Frame, first int) ([]value.Value, error) {
	out := make([]value.Value, 0, len(items))
	for i, it := range items {
		if it == nil {
			out = append(out, value.Undefined)
			continue
		}
		v, err := r.expr(f, first+i, it)
		if err != nil {
			return nil, err
		}
		if _, spread := it.(*ast.Spread); spread {
			vs, err := iterate(v)
			if err != nil {
				return nil, err
			}
			out = append(out, vs...)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *run) object(n *ast.ObjectLiteral, f *frame.Frame) (value.Value, error) {
	obj := value.NewObject()
	for i, p := range n.Props {
		if p.Spread {
			v, err := r.expr(f, i, p.Value)
			if err != nil {
				return nil, err
			}
			for _, e := range ownEntries(v) {
				obj.Set(e.name, e.v)
			}
			continue
		}
		key := p.Key
		if p.Computed != nil {
			k, err := r.expr(f, len(n.Props)+i, p.Computed)
			if err != nil {
				return nil, err
			}
			key = value.ToPropertyKey(k)
		}
		v, err := r.expr(f, i, p.Value)
		if err != nil {
			return nil, err
		}
		obj.Set(key, v)
	}
	return obj, nil
}

// ident reads a name: a variable in scope, then a built-in constant.
func (r *run) ident(n *ast.Identifier, f *frame.Frame) (value.Value, error) {
	if v, ok := r.tree.Lookup(f, n.Name); ok {
		return v, nil
	}
	if v, ok := constants[n.Name]; ok {
		return v, nil
	}
	if r.eng.rt.Has(n.Name) {
		return nil, value.Errorf("%s is a tool and cannot be used as a value", n.Name)
	}
	if globals[n.Name] {
		return nil, value.Errorf("%s cannot be used as a value", n.Name)
	}
	return nil, r.unknown(f, n.Name)
}

// staticPath returns the dotted segments of an identifier or member chain
// whose root is not a variable: such a chain names a tool, a tool
// namespace, or a built-in, and is resolved without creating frames.
func (r *run) staticPath(e ast.Expression, f *frame.Frame) ([]string, bool) {
	var segs []string
	for {
		switch x := e.(type) {
		case *ast.Identifier:
			if _, isVar := r.tree.Scope(f, x.Name); isVar {
				return nil, false
			}
			segs = append(segs, x.Name)
			for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
				segs[i], segs[j] = segs[j], segs[i]
			}
			return segs, true
		case *ast.Member:
			if x.Optional {
				return nil, false
			}
			segs = append(segs, x.Property)
			e = x.Object
		default:
			return nil, false
		}
	}
}

// staticValue reads a member chain rooted at a non-variable.
func (r *run) staticValue(path []string, f *frame.Frame) (value.Value, error) {
	name := strings.Join(path, ".")
	if v, ok := constants[name]; ok {
		return v, nil
	}
	if v, ok := constants[path[0]]; ok {
		var err error
		for _, p := range path[1:] {
			if v, err = getProperty(v, p); err != nil {
				return nil, err
			}
		}
		return v, nil
	}
	if r.eng.rt.Has(path[0]) {
		return nil, value.Errorf("%s is a tool path and cannot be used as a value", name)
	}
	if globals[path[0]] {
		if _, fn := builtins[name]; fn {
			return nil, value.Errorf("%s cannot be used as a value", name)
		}
		if len(path) == 1 {
			return nil, value.Errorf("%s cannot be used as a value", name)
		}
		return value.Undefined, nil
	}
	return nil, r.unknown(f, path[0])
}

// unknown builds the error for a name that resolves to nothing.
func (r *run) unknown(f *frame.Frame, name string) *RuntimeError {
	var candidates []string
	r.tree.Walk(func(fr *frame.Frame) {
		if fr.Variables != nil {
			candidates = append(candidates, fr.Variables.Keys()...)
		}
	})
	candidates = append(candidates, r.eng.rt.Globals()...)
	candidates = append(candidates, globalNames()...)
	err := r.structural(f, ErrUnknownIdentifier, name)
	if s, ok := suggest(name, candidates); ok {
		err.Suggestion = s
	}
	return err
}

// getProperty reads obj[key].
func getProperty(obj, key value.Value) (value.Value, error) {
	if value.IsNullish(obj) {
		return nil, value.Errorf("Cannot read properties of %s (reading '%s')", value.ToString(obj), value.ToPropertyKey(key))
	}
	k := value.ToPropertyKey(key)
	switch x := obj.(type) {
	case *value.Object:
		return x.Lookup(k), nil
	case *value.Array:
		if k == "length" {
			return float64(x.Len()), nil
		}
		if i, ok := value.ToIndex(key); ok {
			return x.Get(i), nil
		}
	case string:
		if k == "length" {
			return float64(utf8.RuneCountInString(x)), nil
		}
		if i, ok := value.ToIndex(key); ok {
			runes := []rune(x)
			if i < len(runes) {
				return string(runes[i]), nil
			}
		}
	case *value.Set:
		if k == "size" {
			return float64(x.Len()), nil
		}
	case *value.RegExp:
		switch k {
		case "source":
			return x.Source, nil
		case "flags":
			return x.Flags, nil
		case "global":
			return x.Global(), nil
		}
	case *value.Symbol:
		if k == "description" {
			if x.HasDescription {
				return x.Description, nil
			}
		}
	}
	return value.Undefined, nil
}

// setProperty writes obj[key] = v.
func setProperty(obj, key, v value.Value) error {
	k := value.ToPropertyKey(key)
	switch x := obj.(type) {
	case *value.Object:
		x.Set(k, v)
		return nil
	case *value.Array:
		if k == "length" {
			n, ok := value.ToIndex(v)
			if !ok {
				return value.Errorf("Invalid array length")
			}
			if n < x.Len() {
				x.Items = x.Items[:n]
			} else if n > x.Len() {
				x.Set(n-1, value.Undefined)
			}
			return nil
		}
		if i, ok := value.ToIndex(key); ok {
			x.Set(i, v)
			return nil
		}
		return value.Errorf("Cannot set property '%s' of an array", k)
	}
	if value.IsNullish(obj) {
		return value.Errorf("Cannot set properties of %s (setting '%s')", value.ToString(obj), k)
	}
	return value.Errorf("Cannot create property '%s' on %s", k, value.Describe(obj))
}

// binary applies a non-short-circuit binary operator.
func (r *run) binary(f *frame.Frame, op string, a, b value.Value) (value.Value, error) {
	switch op {
	case "+":
		return value.Add(a, b)
	case "-", "*", "/", "%", "**", "&", "|", "^", "<<", ">>", ">>>":
		return value.Arithmetic(op, numeric(a), numeric(b))
	case "==":
		return value.LooseEquals(a, b), nil
	case "!=":
		return !value.LooseEquals(a, b), nil
	case "===":
		return value.StrictEquals(a, b), nil
	case "!==":
		return !value.StrictEquals(a, b), nil
	case "<", "<=", ">", ">=":
		return value.Compare(op, numeric(a), numeric(b))
	case "in":
		k := value.ToPropertyKey(a)
		switch x := b.(type) {
		case *value.Object:
			return x.Has(k), nil
		case *value.Array:
			if k == "length" {
				return true, nil
			}
			i, ok := value.ToIndex(a)
			return ok && i < x.Len(), nil
		}
		return nil, value.Errorf("Cannot use 'in' operator to search for '%s' in %s", k, value.ToString(b))
	}
	return nil, r.structural(f, ErrUnsupportedNode, "binary operator "+op)
}

// numeric converts v to a primitive with a number hint: dates read as
// their timestamp.
func numeric(v value.Value) value.Value {
	if d, ok := v.(*value.Date); ok {
		return d.Millis()
	}
	return value.ToPrimitive(v)
}

// instanceOf checks the left operand against a built-in constructor named
// by the right operand. The right side is never evaluated as a value.
func (r *run) instanceOf(n *ast.BinaryExpr, f *frame.Frame) (value.Value, error) {
	left, err := r.expr(f, 0, n.Left)
	if err != nil {
		return nil, err
	}
	id, ok := n.Right.(*ast.Identifier)
	if ok {
		if _, isVar := r.tree.Scope(f, id.Name); isVar {
			ok = false
		}
	}
	if !ok {
		return nil, value.Errorf("Right-hand side of 'instanceof' is not callable")
	}
	switch id.Name {
	case "Array":
		_, is := left.(*value.Array)
		return is, nil
	case "Date":
		_, is := left.(*value.Date)
		return is, nil
	case "Set":
		_, is := left.(*value.Set)
		return is, nil
	case "RegExp":
		_, is := left.(*value.RegExp)
		return is, nil
	case "Object":
		switch left.(type) {
		case *value.Object, *value.Array, *value.Set, *value.Date, *value.RegExp:
			return true, nil
		}
		return false, nil
	}
	if !globals[id.Name] {
		return nil, r.unknown(f, id.Name)
	}
	return nil, value.Errorf("Right-hand side of 'instanceof' is not callable")
}

func (r *run) unary(f *frame.Frame, op string, v value.Value) (value.Value, error) {
	switch op {
	case "!":
		return !value.Truthy(v), nil
	case "typeof":
		return value.TypeOf(v), nil
	case "void":
		return value.Undefined, nil
	case "-":
		if b, ok := v.(*big.Int); ok {
			return new(big.Int).Neg(b), nil
		}
		if _, ok := v.(*value.Symbol); ok {
			return nil, value.Errorf("Cannot convert a Symbol value to a number")
		}
		return -value.ToNumber(numeric(v)), nil
	case "+":
		switch v.(type) {
		case *big.Int:
			return nil, value.Errorf("Cannot convert a BigInt value to a number")
		case *value.Symbol:
			return nil, value.Errorf("Cannot convert a Symbol value to a number")
		}
		return value.ToNumber(numeric(v)), nil
	case "~":
		if b, ok := v.(*big.Int); ok {
			return new(big.Int).Not(b), nil
		}
		return value.Arithmetic("^", value.ToNumber(numeric(v)), -1.0)
	}
	return nil, r.structural(f, ErrUnsupportedNode, "unary operator "+op)
}

// place is an assignable location whose operands were already evaluated.
type place struct {
	ident bool
	name  string
	obj   value.Value
	key   value.Value
}

// target evaluates the operands of e as children first, first+1, ...
func (r *run) target(e ast.Node, f *frame.Frame, first int) (place, error) {
	switch t := e.(type) {
	case *ast.Identifier:
		return place{ident: true, name: t.Name}, nil
	case *ast.Member:
		obj, err := r.expr(f, first, t.Object)
		if err != nil {
			return place{}, err
		}
		return place{obj: obj, key: t.Property}, nil
	case *ast.Index:
		obj, err := r.expr(f, first, t.Object)
		if err != nil {
			return place{}, err
		}
		key, err := r.expr(f, first+1, t.Index)
		if err != nil {
			return place{}, err
		}
		return place{obj: obj, key: key}, nil
	}
	return place{}, r.structural(f, ErrUnsupportedNode, "assignment target "+string(e.Kind()))
}

func (r *run) read(p place, f *frame.Frame) (value.Value, error) {
	if p.ident {
		return r.ident(&ast.Identifier{Name: p.name}, f)
	}
	return getProperty(p.obj, p.key)
}

func (r *run) write(p place, f *frame.Frame, v value.Value) error {
	if p.ident {
		return r.assignVar(f, p.name, v)
	}
	return setProperty(p.obj, p.key, v)
}

// assignVar stores v in the scope that declares name.
func (r *run) assignVar(f *frame.Frame, name string, v value.Value) error {
	scope, ok := r.tree.Scope(f, name)
	if !ok {
		if _, isConst := constants[name]; isConst || globals[name] || r.eng.rt.Has(name) {
			return value.Errorf("Assignment to constant variable.")
		}
		return r.unknown(f, name)
	}
	if r.isConst(scope, name) {
		return value.Errorf("Assignment to constant variable.")
	}
	scope.Variables.Set(name, v)
	return nil
}

// isConst reports whether name was declared const directly in the scope
// opened by scope.
func (r *run) isConst(scope *frame.Frame, name string) bool {
	n, err := ast.Resolve(r.prog, scope.Trace)
	if err != nil {
		return false
	}
	var body []ast.Statement
	switch n := n.(type) {
	case *ast.Program:
		body = n.Body
	case *ast.Block:
		body = n.Body
	}
	for _, s := range body {
		d, ok := s.(*ast.VariableDeclaration)
		if ok && d.Declare == "const" && binds(d.Pattern, name) {
			return true
		}
	}
	return false
}

func binds(p ast.Pattern, name string) bool {
	switch p := p.(type) {
	case *ast.Identifier:
		return p.Name == name
	case *ast.ObjectPattern:
		for _, prop := range p.Props {
			if binds(prop.Target, name) {
				return true
			}
		}
		return p.Rest == name
	case *ast.ArrayPattern:
		for _, el := range p.Elems {
			if el.Target != nil && binds(el.Target, name) {
				return true
			}
		}
		return p.Rest == name
	}
	return false
}

func (r *run) assign(n *ast.Assignment, f *frame.Frame) (value.Value, error) {
	switch left := n.Left.(type) {
	case *ast.ObjectPattern, *ast.ArrayPattern:
		if n.Operator != "=" {
			return nil, r.structural(f, ErrUnsupportedNode, "operator "+n.Operator+" on a pattern")
		}
		right, err := r.expr(f, 0, n.Right)
		if err != nil {
			return nil, err
		}
		b := &binder{r: r, f: f, next: 1}
		if err := b.bind(left.(ast.Pattern), right); err != nil {
			return nil, err
		}
		for _, nv := range b.out {
			if err := r.assignVar(f, nv.name, nv.v); err != nil {
				return nil, err
			}
		}
		return right, nil
	}

	p, err := r.target(n.Left, f, 1)
	if err != nil {
		return nil, err
	}

	op := n.Operator
	if op == "=" {
		right, err := r.expr(f, 0, n.Right)
		if err != nil {
			return nil, err
		}
		return right, r.write(p, f, right)
	}

	cur, err := r.read(p, f)
	if err != nil {
		return nil, err
	}
	switch op {
	case "&&=", "||=", "??=":
		short := map[string]bool{
			"&&=": !value.Truthy(cur),
			"||=": value.Truthy(cur),
			"??=": !value.IsNullish(cur),
		}[op]
		if short {
			return cur, nil
		}
		right, err := r.expr(f, 0, n.Right)
		if err != nil {
			return nil, err
		}
		return right, r.write(p, f, right)
	}

	if !strings.HasSuffix(op, "=") {
		return nil, r.structural(f, ErrUnsupportedNode, "assignment operator "+op)
	}
	right, err := r.expr(f, 0, n.Right)
	if err != nil {
		return nil, err
	}
	v, err := r.binary(f, strings.TrimSuffix(op, "="), cur, right)
	if err != nil {
		return nil, err
	}
	return v, r.write(p, f, v)
}

func (r *run) update(n *ast.UpdateExpr, f *frame.Frame) (value.Value, error) {
	p, err := r.target(n.Target, f, 0)
	if err != nil {
		return nil, err
	}
	cur, err := r.read(p, f)
	if err != nil {
		return nil, err
	}

	var old, next value.Value
	switch x := numeric(cur).(type) {
	case *big.Int:
		old = x
		if n.Operator == "++" {
			next = new(big.Int).Add(x, big.NewInt(1))
		} else {
			next = new(big.Int).Sub(x, big.NewInt(1))
		}
	case *value.Symbol:
		return nil, value.Errorf("Cannot convert a Symbol value to a number")
	default:
		num := value.ToNumber(x)
		old = num
		switch n.Operator {
		case "++":
			next = num + 1
		case "--":
			next = num - 1
		default:
			return nil, r.structural(f, ErrUnsupportedNode, "update operator "+n.Operator)
		}
	}
	if err := r.write(p, f, next); err != nil {
		return nil, err
	}
	if n.Prefix {
		return next, nil
	}
	return old, nil
}

// toLength clamps a numeric argument into [0, n] relative index space, the
// way slice and friends interpret negative positions.
func toLength(v value.Value, n int, def int) int {
	if value.IsUndefined(v) {
		return def
	}
	f := value.ToInteger(v)
	switch {
	case math.IsInf(f, -1):
		return 0
	case math.IsInf(f, 1):
		return n
	case f < 0:
		f += float64(n)
		if f < 0 {
			return 0
		}
	case f > float64(n):
		return n
	}
	return int(f)
}
