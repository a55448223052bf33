package ast

// Constructors for building trees by hand. Hosts that embed their own parser
// emit documents instead; these exist for programmatic scripts and tests.

// Ident returns an identifier.
func Ident(name string) *Identifier { return &Identifier{Name: name} }

// Num returns a number literal.
func Num(f float64) *Literal { return &Literal{Value: f} }

// Str returns a string literal.
func Str(s string) *Literal { return &Literal{Value: s} }

// Bool returns a boolean literal.
func Bool(b bool) *Literal { return &Literal{Value: b} }

// Null returns the null literal.
func Null() *Literal { return &Literal{} }

// Dot returns obj.prop.
func Dot(obj Expression, prop string) *Member {
	return &Member{Object: obj, Property: prop}
}

// Path returns a member chain such as a.b.c from its segments.
func Path(root string, props ...string) Expression {
	var e Expression = Ident(root)
	for _, p := range props {
		e = Dot(e, p)
	}
	return e
}

// CallOf returns callee(args...).
func CallOf(callee Expression, args ...Expression) *Call {
	return &Call{Callee: callee, Args: args}
}

// Let returns `let name = init`.
func Let(name string, init Expression) *VariableDeclaration {
	return &VariableDeclaration{Declare: "let", Pattern: Ident(name), Init: init}
}

// Const returns `const name = init`.
func Const(name string, init Expression) *VariableDeclaration {
	return &VariableDeclaration{Declare: "const", Pattern: Ident(name), Init: init}
}

// Do wraps an expression as a statement.
func Do(e Expression) *ExpressionStatement { return &ExpressionStatement{Expr: e} }

// Assign returns `target = value`.
func Assign(target Node, value Expression) *Assignment {
	return &Assignment{Operator: "=", Left: target, Right: value}
}

// Bin returns a binary expression.
func Bin(op string, left, right Expression) *BinaryExpr {
	return &BinaryExpr{Operator: op, Left: left, Right: right}
}

// Obj returns an object literal from alternating key/value pairs.
func Obj(kv ...any) *ObjectLiteral {
	o := &ObjectLiteral{}
	for i := 0; i+1 < len(kv); i += 2 {
		o.Props = append(o.Props, Property{Key: kv[i].(string), Value: kv[i+1].(Expression)})
	}
	return o
}

// Arr returns an array literal.
func Arr(items ...Expression) *ArrayLiteral { return &ArrayLiteral{Items: items} }
