package ast

import (
	"encoding/json"
	"fmt"
)

// Encode renders s as a canonical JSON document that Decode reads back into
// an equivalent tree. Object keys are sorted, so equal trees encode to equal
// bytes.
func Encode(s *Script) ([]byte, error) {
	if s == nil || s.AST == nil {
		return nil, &ParseError{Message: "script has no program"}
	}
	body := make([]any, 0, len(s.AST.Body))
	for _, st := range s.AST.Body {
		m, err := encodeNode(st)
		if err != nil {
			return nil, err
		}
		body = append(body, m)
	}
	doc := map[string]any{"body": body}
	if s.Source != "" {
		doc["source"] = s.Source
	}
	return json.Marshal(doc)
}

func encodeNode(n Node) (any, error) {
	if n == nil || isNilNode(n) {
		return nil, nil
	}
	m := map[string]any{"type": string(n.Kind())}
	var err error
	set := func(key string, child Node) {
		if err != nil || child == nil || isNilNode(child) {
			return
		}
		var v any
		v, err = encodeNode(child)
		m[key] = v
	}
	list := func(key string, items []Expression) {
		if err != nil {
			return
		}
		out := make([]any, len(items))
		for i, it := range items {
			if it == nil {
				continue
			}
			if out[i], err = encodeNode(it); err != nil {
				return
			}
		}
		m[key] = out
	}

	switch n := n.(type) {
	case *VariableDeclaration:
		m["declare"] = n.Declare
		set("pattern", n.Pattern)
		set("init", n.Init)
	case *ExpressionStatement:
		set("expr", n.Expr)
	case *If:
		set("cond", n.Cond)
		set("then", n.Then)
		set("else", n.Else)
	case *While:
		set("cond", n.Cond)
		set("body", n.Body)
	case *Break:
	case *Block:
		body := make([]any, 0, len(n.Body))
		for _, st := range n.Body {
			v, e := encodeNode(st)
			if e != nil {
				return nil, e
			}
			body = append(body, v)
		}
		m["body"] = body
	case *Return:
		set("arg", n.Arg)
	case *Literal:
		if n.BigInt != nil {
			m["bigint"] = n.BigInt.String()
		} else {
			m["value"] = n.Value
		}
	case *Identifier:
		m["name"] = n.Name
	case *Member:
		set("object", n.Object)
		m["property"] = n.Property
		if n.Optional {
			m["optional"] = true
		}
	case *Index:
		set("object", n.Object)
		set("index", n.Index)
		if n.Optional {
			m["optional"] = true
		}
	case *Call:
		set("callee", n.Callee)
		list("args", n.Args)
		if n.Optional {
			m["optional"] = true
		}
	case *New:
		set("callee", n.Callee)
		list("args", n.Args)
	case *Assignment:
		m["operator"] = n.Operator
		set("left", n.Left)
		set("right", n.Right)
	case *ObjectLiteral:
		props := make([]any, 0, len(n.Props))
		for _, p := range n.Props {
			pm := map[string]any{}
			if p.Key != "" {
				pm["key"] = p.Key
			}
			if p.Spread {
				pm["spread"] = true
			}
			if p.Value != nil {
				if pm["value"], err = encodeNode(p.Value); err != nil {
					return nil, err
				}
			}
			if p.Computed != nil {
				if pm["computed"], err = encodeNode(p.Computed); err != nil {
					return nil, err
				}
			}
			props = append(props, pm)
		}
		m["props"] = props
	case *ArrayLiteral:
		list("items", n.Items)
	case *TemplateLiteral:
		m["quasis"] = n.Quasis
		list("exprs", n.Exprs)
	case *RegexLiteral:
		m["pattern"] = n.Pattern
		m["flags"] = n.Flags
	case *UpdateExpr:
		m["operator"] = n.Operator
		m["prefix"] = n.Prefix
		set("target", n.Target)
	case *BinaryExpr:
		m["operator"] = n.Operator
		set("left", n.Left)
		set("right", n.Right)
	case *LogicalExpr:
		m["operator"] = n.Operator
		set("left", n.Left)
		set("right", n.Right)
	case *UnaryExpr:
		m["operator"] = n.Operator
		set("arg", n.Arg)
	case *ConditionalExpr:
		set("test", n.Test)
		set("consequent", n.Consequent)
		set("alternate", n.Alternate)
	case *Spread:
		set("arg", n.Arg)
	case *ObjectPattern:
		props := make([]any, 0, len(n.Props))
		for _, p := range n.Props {
			pm := map[string]any{"key": p.Key}
			if p.Target != nil {
				if pm["target"], err = encodeNode(p.Target); err != nil {
					return nil, err
				}
			}
			if p.Default != nil {
				if pm["default"], err = encodeNode(p.Default); err != nil {
					return nil, err
				}
			}
			props = append(props, pm)
		}
		m["props"] = props
		if n.Rest != "" {
			m["rest"] = n.Rest
		}
	case *ArrayPattern:
		elems := make([]any, 0, len(n.Elems))
		for _, el := range n.Elems {
			if el.Target == nil && el.Default == nil {
				elems = append(elems, nil)
				continue
			}
			em := map[string]any{}
			if el.Target != nil {
				if em["target"], err = encodeNode(el.Target); err != nil {
					return nil, err
				}
			}
			if el.Default != nil {
				if em["default"], err = encodeNode(el.Default); err != nil {
					return nil, err
				}
			}
			elems = append(elems, em)
		}
		m["elems"] = elems
		if n.Rest != "" {
			m["rest"] = n.Rest
		}
	default:
		return nil, &ParseError{Message: fmt.Sprintf("cannot encode %s", n.Kind()), Err: ErrUnknownNode}
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// isNilNode reports a typed nil stored in a Node interface.
func isNilNode(n Node) bool {
	switch n := n.(type) {
	case *Identifier:
		return n == nil
	case *Block:
		return n == nil
	case *ObjectPattern:
		return n == nil
	case *ArrayPattern:
		return n == nil
	}
	return false
}
