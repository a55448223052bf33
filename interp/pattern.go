package interp

import (
	"github.com/everydev1618/vegascript/ast"
	"github.com/everydev1618/vegascript/frame"
	"github.com/everydev1618/vegascript/value"
)

type binding struct {
	name string
	v    value.Value
}

// binder destructures a value against a pattern, collecting the names to
// bind. Default expressions are evaluated as children of f, numbered from
// next in the order ast.PatternDefaults lists them. A default's slot is
// consumed even when the default is not needed, so positions stay fixed.
type binder struct {
	r    *run
	f    *frame.Frame
	next int
	out  []binding
}

func (b *binder) bind(p ast.Pattern, v value.Value) error {
	switch p := p.(type) {
	case *ast.Identifier:
		b.out = append(b.out, binding{name: p.Name, v: v})
		return nil

	case *ast.ObjectPattern:
		if value.IsNullish(v) {
			return value.Errorf("Cannot destructure '%s' as it is %s.", value.ToString(v), value.Describe(v))
		}
		for _, prop := range p.Props {
			pv, err := getProperty(v, prop.Key)
			if err != nil {
				return err
			}
			if pv, err = b.orDefault(pv, prop.Default); err != nil {
				return err
			}
			if err := b.bind(prop.Target, pv); err != nil {
				return err
			}
		}
		if p.Rest != "" {
			rest := value.NewObject()
			taken := make(map[string]bool, len(p.Props))
			for _, prop := range p.Props {
				taken[prop.Key] = true
			}
			for _, e := range ownEntries(v) {
				if !taken[e.name] {
					rest.Set(e.name, e.v)
				}
			}
			b.out = append(b.out, binding{name: p.Rest, v: rest})
		}
		return nil

	case *ast.ArrayPattern:
		items, err := iterate(v)
		if err != nil {
			return err
		}
		for i, el := range p.Elems {
			var ev value.Value = value.Undefined
			if i < len(items) {
				ev = items[i]
			}
			if ev, err = b.orDefault(ev, el.Default); err != nil {
				return err
			}
			if el.Target == nil {
				continue
			}
			if err := b.bind(el.Target, ev); err != nil {
				return err
			}
		}
		if p.Rest != "" {
			rest := value.NewArray()
			if len(items) > len(p.Elems) {
				rest.Items = append(rest.Items, items[len(p.Elems):]...)
			}
			b.out = append(b.out, binding{name: p.Rest, v: rest})
		}
		return nil
	}
	return b.r.structural(b.f, ErrUnsupportedNode, "pattern "+string(p.Kind()))
}

func (b *binder) orDefault(v value.Value, def ast.Expression) (value.Value, error) {
	if def == nil {
		return v, nil
	}
	idx := b.next
	b.next++
	if !value.IsUndefined(v) {
		return v, nil
	}
	return b.r.expr(b.f, idx, def)
}

// ownEntries lists the enumerable own properties of v in order.
func ownEntries(v value.Value) []binding {
	var out []binding
	switch x := v.(type) {
	case *value.Object:
		x.Each(func(k string, it value.Value) {
			out = append(out, binding{name: k, v: it})
		})
	case *value.Array:
		for i, it := range x.Items {
			out = append(out, binding{name: value.NumberToString(float64(i)), v: it})
		}
	case string:
		for i, ch := range []rune(x) {
			out = append(out, binding{name: value.NumberToString(float64(i)), v: string(ch)})
		}
	}
	return out
}

// iterate spreads an iterable into its items.
func iterate(v value.Value) ([]value.Value, error) {
	switch x := v.(type) {
	case *value.Array:
		return append([]value.Value(nil), x.Items...), nil
	case *value.Set:
		return x.Values(), nil
	case string:
		runes := []rune(x)
		out := make([]value.Value, len(runes))
		for i, ch := range runes {
			out[i] = string(ch)
		}
		return out, nil
	}
	return nil, value.Errorf("%s is not iterable", value.Describe(v))
}
