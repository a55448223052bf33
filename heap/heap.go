// Package heap flattens value graphs into an index-addressed list of JSON
// entries and rebuilds them.
//
// Each composite value is stored once, at the index reserved for it when it
// was first reached; every later reference is that index. Shared structure
// therefore stays shared after a round trip and cycles terminate. Undefined
// is never stored and is referenced as -1.
//
// Entry forms:
//
//	null, true, 1.5, "text"                     primitives
//	{"t":"number","v":"NaN"}                    non-finite numbers
//	{"t":"bigint","v":"123"}
//	{"t":"date","v":"2024-01-02T03:04:05.006Z"} (v is null when invalid;
//	                                             years past 9999 as +010000-...)
//	{"t":"regexp","v":"a+","f":"gi"}
//	{"t":"symbol","v":"desc"}                   (v absent without description)
//	{"t":"array","v":[0,-1,3]}
//	{"t":"object","k":["a","b"],"v":[4,5]}
//	{"t":"set","v":[6,7]}
package heap

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/everydev1618/vegascript/value"
)

// UndefinedIndex references undefined.
const UndefinedIndex = -1

// Standard errors
var (
	// ErrBadIndex is returned for a reference outside the heap.
	ErrBadIndex = errors.New("heap index out of range")

	// ErrCorrupt is returned for entries that do not decode.
	ErrCorrupt = errors.New("corrupt heap entry")

	// ErrUnsupported is returned when a value has no heap form.
	ErrUnsupported = errors.New("value cannot be serialized")
)

// Entry is one heap cell.
type Entry = json.RawMessage

const (
	tagNumber = "number"
	tagBigInt = "bigint"
	tagDate   = "date"
	tagRegExp = "regexp"
	tagSymbol = "symbol"
	tagArray  = "array"
	tagObject = "object"
	tagSet    = "set"
)

// Serializer appends values to a heap, deduplicating composites by identity.
// One serializer must be used for every value that belongs to the same
// snapshot so that references across them stay shared.
type Serializer struct {
	entries []Entry
	index   map[any]int
}

// NewSerializer returns an empty serializer.
func NewSerializer() *Serializer {
	return &Serializer{index: make(map[any]int)}
}

// Heap returns the entries written so far.
func (s *Serializer) Heap() []Entry {
	return s.entries
}

// Push stores v and returns its index.
func (s *Serializer) Push(v value.Value) (int, error) {
	switch x := v.(type) {
	case value.UndefinedType:
		return UndefinedIndex, nil
	case nil, bool, string:
		return s.appendJSON(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return s.appendJSON(map[string]any{"t": tagNumber, "v": value.NumberToString(x)})
		}
		return s.appendJSON(x)
	}

	switch v.(type) {
	case *big.Int, *value.Date, *value.RegExp, *value.Symbol, *value.Array, *value.Set, *value.Object:
	default:
		// Checked before the identity lookup: maps and funcs are unhashable.
		return 0, fmt.Errorf("%w: %T", ErrUnsupported, v)
	}
	if idx, ok := s.index[v]; ok {
		return idx, nil
	}
	idx := s.reserve(v)

	var entry map[string]any
	switch x := v.(type) {
	case *big.Int:
		entry = map[string]any{"t": tagBigInt, "v": x.String()}
	case *value.Date:
		var iso any
		if !x.Invalid {
			iso = x.ISO()
		}
		entry = map[string]any{"t": tagDate, "v": iso}
	case *value.RegExp:
		entry = map[string]any{"t": tagRegExp, "v": x.Source, "f": x.Flags}
	case *value.Symbol:
		entry = map[string]any{"t": tagSymbol}
		if x.HasDescription {
			entry["v"] = x.Description
		}
	case *value.Array:
		refs, err := s.pushAll(x.Items)
		if err != nil {
			return 0, err
		}
		entry = map[string]any{"t": tagArray, "v": refs}
	case *value.Set:
		refs, err := s.pushAll(x.Values())
		if err != nil {
			return 0, err
		}
		entry = map[string]any{"t": tagSet, "v": refs}
	case *value.Object:
		keys := x.Keys()
		vals := make([]value.Value, len(keys))
		for i, k := range keys {
			vals[i] = x.Lookup(k)
		}
		refs, err := s.pushAll(vals)
		if err != nil {
			return 0, err
		}
		entry = map[string]any{"t": tagObject, "k": keys, "v": refs}
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupported, v)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("encode heap entry %d: %w", idx, err)
	}
	s.entries[idx] = data
	return idx, nil
}

func (s *Serializer) pushAll(items []value.Value) ([]int, error) {
	refs := make([]int, len(items))
	for i, it := range items {
		idx, err := s.Push(it)
		if err != nil {
			return nil, err
		}
		refs[i] = idx
	}
	return refs, nil
}

func (s *Serializer) reserve(v value.Value) int {
	idx := len(s.entries)
	s.entries = append(s.entries, nil)
	s.index[v] = idx
	return idx
}

func (s *Serializer) appendJSON(v any) (int, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("encode heap entry: %w", err)
	}
	s.entries = append(s.entries, data)
	return len(s.entries) - 1, nil
}

// Deserializer rebuilds values from a heap. Each index is materialized at
// most once, so references to the same index yield the same pointer.
type Deserializer struct {
	entries []Entry
	memo    map[int]value.Value
}

// NewDeserializer reads from entries.
func NewDeserializer(entries []Entry) *Deserializer {
	return &Deserializer{entries: entries, memo: make(map[int]value.Value)}
}

type envelope struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v"`
	K []string        `json:"k"`
	F string          `json:"f"`
}

// Value returns the value at idx.
func (d *Deserializer) Value(idx int) (value.Value, error) {
	if idx == UndefinedIndex {
		return value.Undefined, nil
	}
	if idx < 0 || idx >= len(d.entries) {
		return nil, fmt.Errorf("%w: %d (heap has %d entries)", ErrBadIndex, idx, len(d.entries))
	}
	if v, ok := d.memo[idx]; ok {
		return v, nil
	}
	raw := d.entries[idx]
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: entry %d is empty", ErrCorrupt, idx)
	}

	if raw[0] != '{' {
		var prim any
		if err := json.Unmarshal(raw, &prim); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrCorrupt, idx, err)
		}
		switch prim.(type) {
		case nil, bool, string, float64:
		default:
			return nil, fmt.Errorf("%w: entry %d is not a scalar", ErrCorrupt, idx)
		}
		d.memo[idx] = prim
		return prim, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: entry %d: %v", ErrCorrupt, idx, err)
	}
	corrupt := func(msg string) error {
		return fmt.Errorf("%w: entry %d (%s): %s", ErrCorrupt, idx, env.T, msg)
	}

	switch env.T {
	case tagNumber:
		var s string
		if err := json.Unmarshal(env.V, &s); err != nil {
			return nil, corrupt("value must be a string")
		}
		var f float64
		switch s {
		case "NaN":
			f = math.NaN()
		case "Infinity":
			f = math.Inf(1)
		case "-Infinity":
			f = math.Inf(-1)
		default:
			return nil, corrupt(fmt.Sprintf("unknown number %q", s))
		}
		d.memo[idx] = f
		return f, nil
	case tagBigInt:
		var s string
		if err := json.Unmarshal(env.V, &s); err != nil {
			return nil, corrupt("value must be a string")
		}
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, corrupt(fmt.Sprintf("bad bigint %q", s))
		}
		d.memo[idx] = n
		return n, nil
	case tagDate:
		var s *string
		if err := json.Unmarshal(env.V, &s); err != nil {
			return nil, corrupt("value must be a string or null")
		}
		if s == nil {
			dt := &value.Date{Invalid: true}
			d.memo[idx] = dt
			return dt, nil
		}
		t, err := value.ParseISO(*s)
		if err != nil {
			return nil, corrupt(err.Error())
		}
		dt := value.NewDate(t)
		d.memo[idx] = dt
		return dt, nil
	case tagRegExp:
		var src string
		if err := json.Unmarshal(env.V, &src); err != nil {
			return nil, corrupt("source must be a string")
		}
		re := value.NewRegExp(src, env.F)
		d.memo[idx] = re
		return re, nil
	case tagSymbol:
		sym := &value.Symbol{}
		if len(env.V) > 0 {
			if err := json.Unmarshal(env.V, &sym.Description); err != nil {
				return nil, corrupt("description must be a string")
			}
			sym.HasDescription = true
		}
		d.memo[idx] = sym
		return sym, nil
	case tagArray, tagSet, tagObject:
		var refs []int
		if len(env.V) > 0 {
			if err := json.Unmarshal(env.V, &refs); err != nil {
				return nil, corrupt("members must be indices")
			}
		}
		return d.composite(idx, env, refs, corrupt)
	}
	return nil, corrupt("unknown tag")
}

func (d *Deserializer) composite(idx int, env envelope, refs []int, corrupt func(string) error) (value.Value, error) {
	switch env.T {
	case tagArray:
		arr := &value.Array{Items: make([]value.Value, len(refs))}
		d.memo[idx] = arr
		for i, r := range refs {
			v, err := d.Value(r)
			if err != nil {
				return nil, err
			}
			arr.Items[i] = v
		}
		return arr, nil
	case tagSet:
		set := value.NewSet()
		d.memo[idx] = set
		for _, r := range refs {
			v, err := d.Value(r)
			if err != nil {
				return nil, err
			}
			set.Add(v)
		}
		return set, nil
	default:
		if len(env.K) != len(refs) {
			return nil, corrupt(fmt.Sprintf("%d keys but %d values", len(env.K), len(refs)))
		}
		obj := value.NewObject()
		d.memo[idx] = obj
		for i, r := range refs {
			v, err := d.Value(r)
			if err != nil {
				return nil, err
			}
			obj.Set(env.K[i], v)
		}
		return obj, nil
	}
}

// Encode serializes a single value into a fresh heap.
func Encode(v value.Value) ([]Entry, int, error) {
	s := NewSerializer()
	idx, err := s.Push(v)
	if err != nil {
		return nil, 0, err
	}
	return s.Heap(), idx, nil
}

// Decode is the inverse of Encode.
func Decode(entries []Entry, idx int) (value.Value, error) {
	return NewDeserializer(entries).Value(idx)
}
