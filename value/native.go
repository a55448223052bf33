package value

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"sort"
	"time"
)

// ToNative converts v to plain Go data: map[string]any, []any, float64,
// string, bool and nil. Undefined object members are dropped and undefined
// array items become nil. Dates become ISO strings, bigints decimal strings.
// Cycles are reported as an error.
func ToNative(v Value) (any, error) {
	return toNative(v, map[any]bool{})
}

func toNative(v Value, stack map[any]bool) (any, error) {
	switch x := v.(type) {
	case UndefinedType, nil:
		return nil, nil
	case bool, string:
		return x, nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, nil
		}
		return x, nil
	case *big.Int:
		return x.String(), nil
	case *Date:
		if x.Invalid {
			return nil, nil
		}
		return x.ISO(), nil
	case *RegExp:
		return x.String(), nil
	case *Symbol:
		return nil, nil
	case *Array:
		if stack[x] {
			return nil, Errorf("cannot convert circular structure")
		}
		stack[x] = true
		defer delete(stack, x)
		out := make([]any, len(x.Items))
		for i, it := range x.Items {
			n, err := toNative(it, stack)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case *Set:
		if stack[x] {
			return nil, Errorf("cannot convert circular structure")
		}
		stack[x] = true
		defer delete(stack, x)
		vals := x.Values()
		out := make([]any, len(vals))
		for i, it := range vals {
			n, err := toNative(it, stack)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case *Object:
		if stack[x] {
			return nil, Errorf("cannot convert circular structure")
		}
		stack[x] = true
		defer delete(stack, x)
		out := make(map[string]any, x.Len())
		var err error
		x.Each(func(k string, it Value) {
			if err != nil || IsUndefined(it) {
				return
			}
			out[k], err = toNative(it, stack)
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("value: cannot convert %T", v)
}

// FromNative converts plain Go data into a Value. Map keys are inserted in
// sorted order so the result is deterministic.
func FromNative(n any) (Value, error) {
	switch x := n.(type) {
	case nil:
		return nil, nil
	case UndefinedType, *Array, *Object, *Set, *Date, *RegExp, *Symbol, *big.Int:
		return x, nil
	case bool, string, float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("value: bad number %q: %w", x, err)
		}
		return f, nil
	case json.RawMessage:
		return ParseJSON(string(x))
	case time.Time:
		return NewDate(x), nil
	case []string:
		arr := NewArray()
		for _, s := range x {
			arr.Items = append(arr.Items, s)
		}
		return arr, nil
	case []any:
		arr := &Array{Items: make([]Value, len(x))}
		for i, it := range x {
			v, err := FromNative(it)
			if err != nil {
				return nil, err
			}
			arr.Items[i] = v
		}
		return arr, nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, k := range keys {
			v, err := FromNative(x[k])
			if err != nil {
				return nil, err
			}
			obj.Set(k, v)
		}
		return obj, nil
	case map[string]string:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, k := range keys {
			obj.Set(k, x[k])
		}
		return obj, nil
	}
	return nil, fmt.Errorf("value: cannot convert %T", n)
}

// Normalize makes v safe to hand to a script: Go data is converted with
// FromNative, and members of arrays, objects and sets that are not Values are
// converted in place. Shared and cyclic composites are visited once.
func Normalize(v any) (Value, error) {
	return normalize(v, map[any]bool{})
}

func normalize(v any, seen map[any]bool) (Value, error) {
	switch x := v.(type) {
	case *Array:
		if seen[x] {
			return x, nil
		}
		seen[x] = true
		for i, it := range x.Items {
			n, err := normalize(it, seen)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			x.Items[i] = n
		}
		return x, nil
	case *Object:
		if seen[x] {
			return x, nil
		}
		seen[x] = true
		for _, k := range x.Keys() {
			n, err := normalize(x.Lookup(k), seen)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			x.Set(k, n)
		}
		return x, nil
	case *Set:
		if seen[x] {
			return x, nil
		}
		seen[x] = true
		items := x.Values()
		changed := false
		for i, it := range items {
			n, err := normalize(it, seen)
			if err != nil {
				return nil, err
			}
			changed = changed || n != it
			items[i] = n
		}
		if changed {
			x.Clear()
			for _, it := range items {
				x.Add(it)
			}
		}
		return x, nil
	}
	return FromNative(v)
}

// MustFromNative is FromNative for literals known to convert.
func MustFromNative(n any) Value {
	v, err := FromNative(n)
	if err != nil {
		panic(err)
	}
	return v
}
