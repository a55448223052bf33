package ast

import (
	"fmt"

	"github.com/everydev1618/vegascript/trace"
)

// ChildAt returns the child of n at canonical position i. The mapping from
// node type to ordered child list is total and fixed; it is what makes a
// trace a stable address:
//
//	Program, Block            statements in order
//	VariableDeclaration       0 = initializer, 1.. = pattern defaults
//	ExpressionStatement       0 = expression
//	If                        0 = condition, 1 = then, 2 = else
//	While                     i = iteration i
//	Iteration                 0 = condition, 1 = body
//	Return                    0 = argument
//	Member                    0 = object
//	Index                     0 = object, 1 = index
//	Call, New                 0..n-1 = arguments, n.. = method receiver
//	Assignment                0 = right, 1.. = target sub-expressions
//	ObjectLiteral             i = value of property i, n+i = computed key i
//	ArrayLiteral              i = item i
//	TemplateLiteral           i = embedded expression i
//	UpdateExpr                target sub-expressions
//	BinaryExpr, LogicalExpr   0 = left, 1 = right
//	UnaryExpr, Spread         0 = argument
//	ConditionalExpr           0 = test, 1 = consequent, 2 = alternate
//
// A false second result means position i does not exist for n.
func ChildAt(n Node, i int) (Node, bool) {
	if i < 0 {
		return nil, false
	}
	switch n := n.(type) {
	case *Program:
		return stmtAt(n.Body, i)
	case *Block:
		return stmtAt(n.Body, i)
	case *VariableDeclaration:
		if i == 0 {
			return exprOK(n.Init)
		}
		return exprAt(PatternDefaults(n.Pattern), i-1)
	case *ExpressionStatement:
		if i == 0 {
			return exprOK(n.Expr)
		}
	case *If:
		switch i {
		case 0:
			return exprOK(n.Cond)
		case 1:
			return stmtOK(n.Then)
		case 2:
			return stmtOK(n.Else)
		}
	case *While:
		return &Iteration{Loop: n, N: i}, true
	case *Iteration:
		switch i {
		case 0:
			return exprOK(n.Loop.Cond)
		case 1:
			return stmtOK(n.Loop.Body)
		}
	case *Return:
		if i == 0 {
			return exprOK(n.Arg)
		}
	case *Member:
		if i == 0 {
			return exprOK(n.Object)
		}
	case *Index:
		switch i {
		case 0:
			return exprOK(n.Object)
		case 1:
			return exprOK(n.Index)
		}
	case *Call:
		if i < len(n.Args) {
			return exprOK(n.Args[i])
		}
		return exprAt(TargetOperands(n.Callee), i-len(n.Args))
	case *New:
		return exprAt(n.Args, i)
	case *Assignment:
		if i == 0 {
			return exprOK(n.Right)
		}
		if p, ok := n.Left.(Pattern); ok {
			if _, isIdent := p.(*Identifier); !isIdent {
				return exprAt(PatternDefaults(p), i-1)
			}
		}
		if e, ok := n.Left.(Expression); ok {
			return exprAt(TargetOperands(e), i-1)
		}
	case *ObjectLiteral:
		if i < len(n.Props) {
			return exprOK(n.Props[i].Value)
		}
		if j := i - len(n.Props); j < len(n.Props) {
			return exprOK(n.Props[j].Computed)
		}
	case *ArrayLiteral:
		return exprAt(n.Items, i)
	case *TemplateLiteral:
		return exprAt(n.Exprs, i)
	case *UpdateExpr:
		return exprAt(TargetOperands(n.Target), i)
	case *BinaryExpr:
		return pair(n.Left, n.Right, i)
	case *LogicalExpr:
		return pair(n.Left, n.Right, i)
	case *UnaryExpr:
		if i == 0 {
			return exprOK(n.Arg)
		}
	case *ConditionalExpr:
		switch i {
		case 0:
			return exprOK(n.Test)
		case 1:
			return exprOK(n.Consequent)
		case 2:
			return exprOK(n.Alternate)
		}
	case *Spread:
		if i == 0 {
			return exprOK(n.Arg)
		}
	}
	return nil, false
}

// TargetOperands lists the sub-expressions that must be evaluated before e
// can be read from or written to as a place: the object of a Member, the
// object and key of an Index, nothing for an Identifier.
func TargetOperands(e Expression) []Expression {
	switch e := e.(type) {
	case *Member:
		return []Expression{e.Object}
	case *Index:
		return []Expression{e.Object, e.Index}
	}
	return nil
}

// PatternDefaults lists the default-value expressions of p in depth-first
// order. Position k in the list is child 1+k of the declaring node.
func PatternDefaults(p Pattern) []Expression {
	var out []Expression
	var walk func(Pattern)
	walk = func(p Pattern) {
		switch p := p.(type) {
		case *ObjectPattern:
			for _, prop := range p.Props {
				if prop.Default != nil {
					out = append(out, prop.Default)
				}
				walk(prop.Target)
			}
		case *ArrayPattern:
			for _, el := range p.Elems {
				if el.Default != nil {
					out = append(out, el.Default)
				}
				if el.Target != nil {
					walk(el.Target)
				}
			}
		}
	}
	walk(p)
	return out
}

// Resolve returns the node addressed by tr within prog.
func Resolve(prog *Program, tr string) (Node, error) {
	path, err := trace.Parse(tr)
	if err != nil {
		return nil, err
	}
	var n Node = prog
	for depth, i := range path {
		child, ok := ChildAt(n, i)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no child %d at depth %d",
				ErrNodeNotFound, n.Kind(), i, depth+1)
		}
		n = child
	}
	return n, nil
}

func stmtAt(list []Statement, i int) (Node, bool) {
	if i >= len(list) || list[i] == nil {
		return nil, false
	}
	return list[i], true
}

func exprAt(list []Expression, i int) (Node, bool) {
	if i < 0 || i >= len(list) || list[i] == nil {
		return nil, false
	}
	return list[i], true
}

func exprOK(e Expression) (Node, bool) {
	if e == nil {
		return nil, false
	}
	return e, true
}

func stmtOK(s Statement) (Node, bool) {
	if s == nil {
		return nil, false
	}
	return s, true
}

func pair(left, right Expression, i int) (Node, bool) {
	switch i {
	case 0:
		return exprOK(left)
	case 1:
		return exprOK(right)
	}
	return nil, false
}
