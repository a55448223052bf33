package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"gopkg.in/yaml.v3"
)

// document is the on-disk shape of a script.
type document struct {
	Source string            `json:"source,omitempty"`
	Body   []json.RawMessage `json:"body"`
}

// Decode parses a JSON script document:
//
//	{"source": "tool(\"foo\")", "body": [{"type": "ExpressionStatement", ...}]}
//
// Every node is an object with a "type" tag naming its Kind.
func Decode(data []byte) (*Script, error) {
	var doc document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, &ParseError{Message: "invalid document", Err: err}
	}
	d := &decoder{}
	body, err := d.statements("body", doc.Body)
	if d.err != nil {
		return nil, d.err
	}
	if err != nil {
		return nil, err
	}
	return &Script{AST: &Program{Body: body}, Source: doc.Source}, nil
}

// DecodeYAML parses the same document shape written as YAML.
func DecodeYAML(data []byte) (*Script, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Message: "invalid yaml document", Err: err}
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return nil, &ParseError{Message: "yaml document is not JSON compatible", Err: err}
	}
	return Decode(js)
}

// decoder records the first field type mismatch it meets so scalar reads
// stay one-liners; Decode reports it.
type decoder struct {
	err error
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

type fields map[string]json.RawMessage

func (d *decoder) fields(path string, raw json.RawMessage) (fields, string, error) {
	if isNull(raw) {
		return nil, "", nil
	}
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, "", &ParseError{Path: path, Message: "node must be an object", Err: err}
	}
	var kind string
	if err := json.Unmarshal(f["type"], &kind); err != nil || kind == "" {
		return nil, "", &ParseError{Path: path, Message: "node is missing its type tag"}
	}
	return f, kind, nil
}

func (d *decoder) statements(path string, raws []json.RawMessage) ([]Statement, error) {
	out := make([]Statement, 0, len(raws))
	for i, raw := range raws {
		s, err := d.statement(fmt.Sprintf("%s[%d]", path, i), raw)
		if err != nil {
			return nil, err
		}
		if s == nil {
			return nil, &ParseError{Path: fmt.Sprintf("%s[%d]", path, i), Message: "statement is null"}
		}
		out = append(out, s)
	}
	return out, nil
}

func (d *decoder) statement(path string, raw json.RawMessage) (Statement, error) {
	f, kind, err := d.fields(path, raw)
	if err != nil || f == nil {
		return nil, err
	}
	switch Kind(kind) {
	case KindVariableDeclaration:
		n := &VariableDeclaration{Declare: d.str(path, f, "declare")}
		if n.Declare == "" {
			n.Declare = "let"
		}
		if err := d.operator(path, KindVariableDeclaration, n.Declare); err != nil {
			return nil, err
		}
		if n.Pattern, err = d.pattern(path+".pattern", f["pattern"]); err != nil {
			return nil, err
		}
		if n.Pattern == nil {
			return nil, &ParseError{Path: path, Message: "declaration has no pattern"}
		}
		if n.Init, err = d.expr(path+".init", f["init"]); err != nil {
			return nil, err
		}
		return n, nil
	case KindExpressionStatement:
		e, err := d.requiredExpr(path+".expr", f["expr"])
		if err != nil {
			return nil, err
		}
		return &ExpressionStatement{Expr: e}, nil
	case KindIf:
		n := &If{}
		if n.Cond, err = d.requiredExpr(path+".cond", f["cond"]); err != nil {
			return nil, err
		}
		if n.Then, err = d.statement(path+".then", f["then"]); err != nil {
			return nil, err
		}
		if n.Then == nil {
			return nil, &ParseError{Path: path, Message: "if has no then branch"}
		}
		if n.Else, err = d.statement(path+".else", f["else"]); err != nil {
			return nil, err
		}
		return n, nil
	case KindWhile:
		n := &While{}
		if n.Cond, err = d.requiredExpr(path+".cond", f["cond"]); err != nil {
			return nil, err
		}
		if n.Body, err = d.statement(path+".body", f["body"]); err != nil {
			return nil, err
		}
		if n.Body == nil {
			n.Body = &Block{}
		}
		return n, nil
	case KindBreak:
		return &Break{}, nil
	case KindBlock:
		var raws []json.RawMessage
		if err := d.list(path+".body", f["body"], &raws); err != nil {
			return nil, err
		}
		body, err := d.statements(path+".body", raws)
		if err != nil {
			return nil, err
		}
		return &Block{Body: body}, nil
	case KindReturn:
		arg, err := d.expr(path+".arg", f["arg"])
		if err != nil {
			return nil, err
		}
		return &Return{Arg: arg}, nil
	}
	return nil, &ParseError{Path: path, Message: fmt.Sprintf("%q is not a statement", kind), Err: ErrUnknownNode}
}

func (d *decoder) requiredExpr(path string, raw json.RawMessage) (Expression, error) {
	e, err := d.expr(path, raw)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, &ParseError{Path: path, Message: "expression is required"}
	}
	return e, nil
}

func (d *decoder) exprs(path string, raw json.RawMessage, allowHoles bool) ([]Expression, error) {
	var raws []json.RawMessage
	if err := d.list(path, raw, &raws); err != nil {
		return nil, err
	}
	out := make([]Expression, len(raws))
	for i, r := range raws {
		p := fmt.Sprintf("%s[%d]", path, i)
		e, err := d.expr(p, r)
		if err != nil {
			return nil, err
		}
		if e == nil && !allowHoles {
			return nil, &ParseError{Path: p, Message: "expression is required"}
		}
		out[i] = e
	}
	return out, nil
}

func (d *decoder) expr(path string, raw json.RawMessage) (Expression, error) {
	f, kind, err := d.fields(path, raw)
	if err != nil || f == nil {
		return nil, err
	}
	switch Kind(kind) {
	case KindLiteral:
		return d.literal(path, f)
	case KindIdentifier:
		name := d.str(path, f, "name")
		if name == "" {
			return nil, &ParseError{Path: path, Message: "identifier has no name"}
		}
		return &Identifier{Name: name}, nil
	case KindMember:
		obj, err := d.requiredExpr(path+".object", f["object"])
		if err != nil {
			return nil, err
		}
		n := &Member{Object: obj, Property: d.str(path, f, "property"), Optional: d.boolean(path, f, "optional")}
		if n.Property == "" {
			return nil, &ParseError{Path: path, Message: "member has no property"}
		}
		return n, nil
	case KindIndex:
		n := &Index{Optional: d.boolean(path, f, "optional")}
		if n.Object, err = d.requiredExpr(path+".object", f["object"]); err != nil {
			return nil, err
		}
		if n.Index, err = d.requiredExpr(path+".index", f["index"]); err != nil {
			return nil, err
		}
		return n, nil
	case KindCall:
		n := &Call{Optional: d.boolean(path, f, "optional")}
		if n.Callee, err = d.requiredExpr(path+".callee", f["callee"]); err != nil {
			return nil, err
		}
		if n.Args, err = d.exprs(path+".args", f["args"], false); err != nil {
			return nil, err
		}
		return n, nil
	case KindNew:
		n := &New{}
		if n.Callee, err = d.requiredExpr(path+".callee", f["callee"]); err != nil {
			return nil, err
		}
		if n.Args, err = d.exprs(path+".args", f["args"], false); err != nil {
			return nil, err
		}
		return n, nil
	case KindAssignment:
		n := &Assignment{Operator: d.str(path, f, "operator")}
		if n.Operator == "" {
			n.Operator = "="
		}
		if err := d.operator(path, KindAssignment, n.Operator); err != nil {
			return nil, err
		}
		if n.Right, err = d.requiredExpr(path+".right", f["right"]); err != nil {
			return nil, err
		}
		if n.Left, err = d.target(path+".left", f["left"]); err != nil {
			return nil, err
		}
		return n, nil
	case KindObject:
		return d.object(path, f)
	case KindArray:
		items, err := d.exprs(path+".items", f["items"], true)
		if err != nil {
			return nil, err
		}
		return &ArrayLiteral{Items: items}, nil
	case KindTemplate:
		n := &TemplateLiteral{}
		if err := d.list(path+".quasis", f["quasis"], &n.Quasis); err != nil {
			return nil, err
		}
		if n.Exprs, err = d.exprs(path+".exprs", f["exprs"], false); err != nil {
			return nil, err
		}
		if len(n.Quasis) != len(n.Exprs)+1 {
			return nil, &ParseError{Path: path, Message: "template needs exactly one more quasi than expressions"}
		}
		return n, nil
	case KindRegex:
		return &RegexLiteral{Pattern: d.str(path, f, "pattern"), Flags: d.str(path, f, "flags")}, nil
	case KindUpdate:
		n := &UpdateExpr{Operator: d.str(path, f, "operator"), Prefix: d.boolean(path, f, "prefix")}
		if err := d.operator(path, KindUpdate, n.Operator); err != nil {
			return nil, err
		}
		if n.Target, err = d.requiredExpr(path+".target", f["target"]); err != nil {
			return nil, err
		}
		return n, nil
	case KindBinary, KindLogical:
		left, err := d.requiredExpr(path+".left", f["left"])
		if err != nil {
			return nil, err
		}
		right, err := d.requiredExpr(path+".right", f["right"])
		if err != nil {
			return nil, err
		}
		op := d.str(path, f, "operator")
		if err := d.operator(path, Kind(kind), op); err != nil {
			return nil, err
		}
		if Kind(kind) == KindLogical {
			return &LogicalExpr{Operator: op, Left: left, Right: right}, nil
		}
		return &BinaryExpr{Operator: op, Left: left, Right: right}, nil
	case KindUnary:
		arg, err := d.requiredExpr(path+".arg", f["arg"])
		if err != nil {
			return nil, err
		}
		op := d.str(path, f, "operator")
		if err := d.operator(path, KindUnary, op); err != nil {
			return nil, err
		}
		return &UnaryExpr{Operator: op, Arg: arg}, nil
	case KindConditional:
		n := &ConditionalExpr{}
		if n.Test, err = d.requiredExpr(path+".test", f["test"]); err != nil {
			return nil, err
		}
		if n.Consequent, err = d.requiredExpr(path+".consequent", f["consequent"]); err != nil {
			return nil, err
		}
		if n.Alternate, err = d.requiredExpr(path+".alternate", f["alternate"]); err != nil {
			return nil, err
		}
		return n, nil
	case KindSpread:
		arg, err := d.requiredExpr(path+".arg", f["arg"])
		if err != nil {
			return nil, err
		}
		return &Spread{Arg: arg}, nil
	}
	return nil, &ParseError{Path: path, Message: fmt.Sprintf("%q is not an expression", kind), Err: ErrUnknownNode}
}

func (d *decoder) literal(path string, f fields) (Expression, error) {
	if raw, ok := f["bigint"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, &ParseError{Path: path, Message: "bigint literal must be a decimal string", Err: err}
		}
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, &ParseError{Path: path, Message: fmt.Sprintf("bad bigint literal %q", s)}
		}
		return &Literal{BigInt: n}, nil
	}
	raw, ok := f["value"]
	if !ok || isNull(raw) {
		return &Literal{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &ParseError{Path: path, Message: "bad literal", Err: err}
	}
	switch v := v.(type) {
	case json.Number:
		fv, err := v.Float64()
		if err != nil {
			return nil, &ParseError{Path: path, Message: "bad number literal", Err: err}
		}
		return &Literal{Value: fv}, nil
	case string, bool:
		return &Literal{Value: v}, nil
	}
	return nil, &ParseError{Path: path, Message: "literal value must be null, boolean, number or string"}
}

func (d *decoder) object(path string, f fields) (Expression, error) {
	var raws []json.RawMessage
	if err := d.list(path+".props", f["props"], &raws); err != nil {
		return nil, err
	}
	n := &ObjectLiteral{Props: make([]Property, 0, len(raws))}
	for i, raw := range raws {
		p := fmt.Sprintf("%s.props[%d]", path, i)
		var pf fields
		if err := json.Unmarshal(raw, &pf); err != nil {
			return nil, &ParseError{Path: p, Message: "property must be an object", Err: err}
		}
		prop := Property{Key: d.str(p, pf, "key"), Spread: d.boolean(p, pf, "spread")}
		var err error
		if prop.Value, err = d.requiredExpr(p+".value", pf["value"]); err != nil {
			return nil, err
		}
		if prop.Computed, err = d.expr(p+".computed", pf["computed"]); err != nil {
			return nil, err
		}
		n.Props = append(n.Props, prop)
	}
	return n, nil
}

func (d *decoder) target(path string, raw json.RawMessage) (Node, error) {
	f, kind, err := d.fields(path, raw)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, &ParseError{Path: path, Message: "assignment has no target"}
	}
	switch Kind(kind) {
	case KindObjectPattern, KindArrayPattern:
		return d.pattern(path, raw)
	case KindIdentifier, KindMember, KindIndex:
		return d.expr(path, raw)
	}
	return nil, &ParseError{Path: path, Message: fmt.Sprintf("%q is not assignable", kind)}
}

func (d *decoder) pattern(path string, raw json.RawMessage) (Pattern, error) {
	f, kind, err := d.fields(path, raw)
	if err != nil || f == nil {
		return nil, err
	}
	switch Kind(kind) {
	case KindIdentifier:
		name := d.str(path, f, "name")
		if name == "" {
			return nil, &ParseError{Path: path, Message: "identifier has no name"}
		}
		return &Identifier{Name: name}, nil
	case KindObjectPattern:
		var raws []json.RawMessage
		if err := d.list(path+".props", f["props"], &raws); err != nil {
			return nil, err
		}
		n := &ObjectPattern{Rest: d.str(path, f, "rest")}
		for i, r := range raws {
			p := fmt.Sprintf("%s.props[%d]", path, i)
			var pf fields
			if err := json.Unmarshal(r, &pf); err != nil {
				return nil, &ParseError{Path: p, Message: "pattern property must be an object", Err: err}
			}
			prop := PatternProp{Key: d.str(p, pf, "key")}
			if prop.Target, err = d.pattern(p+".target", pf["target"]); err != nil {
				return nil, err
			}
			if prop.Target == nil {
				prop.Target = &Identifier{Name: prop.Key}
			}
			if prop.Default, err = d.expr(p+".default", pf["default"]); err != nil {
				return nil, err
			}
			n.Props = append(n.Props, prop)
		}
		return n, nil
	case KindArrayPattern:
		var raws []json.RawMessage
		if err := d.list(path+".elems", f["elems"], &raws); err != nil {
			return nil, err
		}
		n := &ArrayPattern{Rest: d.str(path, f, "rest")}
		for i, r := range raws {
			p := fmt.Sprintf("%s.elems[%d]", path, i)
			if isNull(r) {
				n.Elems = append(n.Elems, PatternElem{})
				continue
			}
			var ef fields
			if err := json.Unmarshal(r, &ef); err != nil {
				return nil, &ParseError{Path: p, Message: "pattern element must be an object", Err: err}
			}
			var el PatternElem
			if el.Target, err = d.pattern(p+".target", ef["target"]); err != nil {
				return nil, err
			}
			if el.Default, err = d.expr(p+".default", ef["default"]); err != nil {
				return nil, err
			}
			n.Elems = append(n.Elems, el)
		}
		return n, nil
	}
	return nil, &ParseError{Path: path, Message: fmt.Sprintf("%q is not a pattern", kind)}
}

func (d *decoder) list(path string, raw json.RawMessage, out any) error {
	if isNull(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ParseError{Path: path, Message: "expected a list", Err: err}
	}
	return nil
}

func (d *decoder) str(path string, f fields, key string) string {
	raw, ok := f[key]
	if !ok || isNull(raw) {
		return ""
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		d.fail(&ParseError{Path: path + "." + key, Message: "must be a string", Err: err})
	}
	return v
}

func (d *decoder) boolean(path string, f fields, key string) bool {
	raw, ok := f[key]
	if !ok || isNull(raw) {
		return false
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		d.fail(&ParseError{Path: path + "." + key, Message: "must be a boolean", Err: err})
	}
	return v
}

// operator checks op against the operators a node kind accepts.
func (d *decoder) operator(path string, kind Kind, op string) error {
	if !operators[kind][op] {
		field := ".operator"
		if kind == KindVariableDeclaration {
			field = ".declare"
		}
		return &ParseError{Path: path + field, Message: fmt.Sprintf("bad %s operator %q", kind, op)}
	}
	return nil
}

var operators = map[Kind]map[string]bool{
	KindBinary: opSet("+", "-", "*", "/", "%", "**", "&", "|", "^", "<<", ">>", ">>>",
		"==", "!=", "===", "!==", "<", "<=", ">", ">=", "in", "instanceof"),
	KindLogical: opSet("&&", "||", "??"),
	KindUnary:   opSet("!", "-", "+", "~", "typeof", "void"),
	KindUpdate:  opSet("++", "--"),
	KindAssignment: opSet("=", "+=", "-=", "*=", "/=", "%=", "**=", "&=", "|=", "^=",
		"<<=", ">>=", ">>>=", "&&=", "||=", "??="),
	KindVariableDeclaration: opSet("let", "const", "var"),
}

func opSet(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
