// Package value implements the runtime values of the scripting dialect.
//
// A Value is one of:
//
//	Undefined          the undefined sentinel
//	nil                null
//	bool, float64, string
//	*big.Int           bigint
//	*Date, *RegExp, *Symbol
//	*Array, *Object, *Set
//
// Composite values are pointers, so identity is pointer identity. Two
// variables holding the same *Object alias one another, and that aliasing is
// preserved by the heap codec.
package value

import (
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/emirpasic/gods/sets/linkedhashset"
)

// Value is any runtime value.
type Value = any

// UndefinedType is the type of Undefined.
type UndefinedType struct{}

// Undefined is the undefined value. It is distinct from nil, which is null.
var Undefined Value = UndefinedType{}

// IsUndefined reports whether v is undefined.
func IsUndefined(v Value) bool {
	_, ok := v.(UndefinedType)
	return ok
}

// IsNullish reports whether v is null or undefined.
func IsNullish(v Value) bool {
	return v == nil || IsUndefined(v)
}

// ---------------------------------------------------------------------------
// Array
// ---------------------------------------------------------------------------

// Array is an ordered list. A hole reads as undefined.
type Array struct {
	Items []Value
}

// NewArray returns an array holding items.
func NewArray(items ...Value) *Array {
	if items == nil {
		items = []Value{}
	}
	return &Array{Items: items}
}

// Get returns item i or undefined when out of range.
func (a *Array) Get(i int) Value {
	if i < 0 || i >= len(a.Items) {
		return Undefined
	}
	return a.Items[i]
}

// Set stores v at i, growing the array with undefined as needed.
func (a *Array) Set(i int, v Value) {
	for len(a.Items) <= i {
		a.Items = append(a.Items, Undefined)
	}
	a.Items[i] = v
}

// Len returns the length.
func (a *Array) Len() int { return len(a.Items) }

// ---------------------------------------------------------------------------
// Object
// ---------------------------------------------------------------------------

// Object is a string-keyed record that remembers insertion order.
type Object struct {
	m *linkedhashmap.Map
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{m: linkedhashmap.New()}
}

// ObjectOf builds an object from alternating key/value pairs.
func ObjectOf(kv ...Value) *Object {
	o := NewObject()
	for i := 0; i+1 < len(kv); i += 2 {
		o.Set(kv[i].(string), kv[i+1])
	}
	return o
}

// Get returns the value under key.
func (o *Object) Get(key string) (Value, bool) {
	return o.m.Get(key)
}

// Lookup returns the value under key or undefined.
func (o *Object) Lookup(key string) Value {
	if v, ok := o.m.Get(key); ok {
		return v
	}
	return Undefined
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.m.Get(key)
	return ok
}

// Set stores v under key. An existing key keeps its position.
func (o *Object) Set(key string, v Value) {
	o.m.Put(key, v)
}

// Delete removes key.
func (o *Object) Delete(key string) {
	o.m.Remove(key)
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	raw := o.m.Keys()
	keys := make([]string, len(raw))
	for i, k := range raw {
		keys[i] = k.(string)
	}
	return keys
}

// Len returns the number of keys.
func (o *Object) Len() int { return o.m.Size() }

// Each calls fn for every entry in insertion order.
func (o *Object) Each(fn func(key string, v Value)) {
	it := o.m.Iterator()
	for it.Next() {
		fn(it.Key().(string), it.Value())
	}
}

// ---------------------------------------------------------------------------
// Set
// ---------------------------------------------------------------------------

// Set is an insertion-ordered collection of unique values compared with
// SameValueZero.
type Set struct {
	s *linkedhashset.Set
}

// NewSet returns a set holding the distinct members of items.
func NewSet(items ...Value) *Set {
	s := &Set{s: linkedhashset.New()}
	for _, it := range items {
		s.Add(it)
	}
	return s
}

// Add inserts v unless an equal member exists.
func (s *Set) Add(v Value) {
	if s.Has(v) {
		return
	}
	s.s.Add(v)
}

// Has reports membership.
func (s *Set) Has(v Value) bool {
	switch x := v.(type) {
	case *big.Int:
		for _, m := range s.s.Values() {
			if b, ok := m.(*big.Int); ok && b.Cmp(x) == 0 {
				return true
			}
		}
		return false
	case float64:
		if math.IsNaN(x) {
			for _, m := range s.s.Values() {
				if f, ok := m.(float64); ok && math.IsNaN(f) {
					return true
				}
			}
			return false
		}
	}
	return s.s.Contains(v)
}

// Delete removes v and reports whether it was present.
func (s *Set) Delete(v Value) bool {
	for _, m := range s.s.Values() {
		if SameValueZero(m, v) {
			s.s.Remove(m)
			return true
		}
	}
	return false
}

// Clear removes every member.
func (s *Set) Clear() { s.s.Clear() }

// Values returns the members in insertion order.
func (s *Set) Values() []Value { return s.s.Values() }

// Len returns the member count.
func (s *Set) Len() int { return s.s.Size() }

// ---------------------------------------------------------------------------
// Date, RegExp, Symbol
// ---------------------------------------------------------------------------

// Date is an instant with millisecond precision. An invalid date has
// Invalid set and reads as NaN.
type Date struct {
	Time    time.Time
	Invalid bool
}

// MaxDateMillis bounds the representable range: 100,000,000 days either
// side of the Unix epoch.
const MaxDateMillis = 8.64e15

// NewDate truncates t to milliseconds in UTC. Instants outside the
// representable range give an invalid date.
func NewDate(t time.Time) *Date {
	t = t.UTC().Truncate(time.Millisecond)
	if ms := t.UnixMilli(); float64(ms) > MaxDateMillis || float64(ms) < -MaxDateMillis || !sameInstant(t, ms) {
		return &Date{Invalid: true}
	}
	return &Date{Time: t}
}

// sameInstant catches UnixMilli overflow for times far outside int64 millis.
func sameInstant(t time.Time, ms int64) bool {
	return time.UnixMilli(ms).Equal(t)
}

// DateFromMillis builds a date from a Unix millisecond timestamp.
func DateFromMillis(ms float64) *Date {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return &Date{Invalid: true}
	}
	ms = math.Trunc(ms)
	if ms > MaxDateMillis || ms < -MaxDateMillis {
		return &Date{Invalid: true}
	}
	return NewDate(time.UnixMilli(int64(ms)))
}

// Millis returns the Unix millisecond timestamp, NaN when invalid.
func (d *Date) Millis() float64 {
	if d.Invalid {
		return math.NaN()
	}
	return float64(d.Time.UnixMilli())
}

// ISO renders the date as YYYY-MM-DDTHH:mm:ss.sssZ. Years outside 0..9999
// use the six-digit signed form, +010000-01-01T00:00:00.000Z.
func (d *Date) ISO() string {
	if d.Invalid {
		return ""
	}
	t := d.Time.UTC()
	rest := t.Format("-01-02T15:04:05.000Z")
	switch y := t.Year(); {
	case y < 0:
		return fmt.Sprintf("-%06d%s", -y, rest)
	case y > 9999:
		return fmt.Sprintf("+%06d%s", y, rest)
	default:
		return fmt.Sprintf("%04d%s", y, rest)
	}
}

// ParseISO reads an RFC 3339 timestamp, also accepting the signed six-digit
// year form that ISO writes for years outside 0..9999.
func ParseISO(s string) (time.Time, error) {
	if len(s) < 7 || (s[0] != '+' && s[0] != '-') {
		return time.Parse(time.RFC3339Nano, s)
	}
	year, err := strconv.Atoi(s[1:7])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad extended year in %q", s)
	}
	if s[0] == '-' {
		if year == 0 {
			return time.Time{}, fmt.Errorf("bad extended year in %q", s)
		}
		year = -year
	}
	// Parse the remainder against a leap year so Feb 29 survives.
	t, err := time.Parse(time.RFC3339Nano, "2000"+s[7:])
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(year, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()), nil
}

// RegExp is a regular expression literal. Source and Flags are what the
// script wrote; the compiled form is derived on demand.
type RegExp struct {
	Source string
	Flags  string

	once sync.Once
	re   *regexp.Regexp
	err  error
}

// NewRegExp returns a regexp with the given source and flags.
func NewRegExp(source, flags string) *RegExp {
	return &RegExp{Source: source, Flags: flags}
}

// Global reports the g flag.
func (r *RegExp) Global() bool { return strings.Contains(r.Flags, "g") }

// Compile returns the compiled expression. Flags i, m and s map to inline
// RE2 flags; g and y affect only how the methods iterate.
func (r *RegExp) Compile() (*regexp.Regexp, error) {
	r.once.Do(func() {
		var inline string
		for _, f := range r.Flags {
			switch f {
			case 'i', 'm', 's':
				inline += string(f)
			case 'g', 'y', 'u', 'd':
			default:
				r.err = &TypeError{Message: fmt.Sprintf("invalid regular expression flag %q", f)}
				return
			}
		}
		src := r.Source
		if inline != "" {
			src = "(?" + inline + ")" + src
		}
		r.re, r.err = regexp.Compile(src)
		if r.err != nil {
			r.err = &TypeError{Message: "invalid regular expression: " + r.err.Error()}
		}
	})
	return r.re, r.err
}

func (r *RegExp) String() string {
	return "/" + r.Source + "/" + r.Flags
}

// Symbol is a unique token. Two symbols are equal only if they are the same
// pointer.
type Symbol struct {
	Description    string
	HasDescription bool
}

// NewSymbol returns a fresh symbol.
func NewSymbol(desc *string) *Symbol {
	if desc == nil {
		return &Symbol{}
	}
	return &Symbol{Description: *desc, HasDescription: true}
}

func (s *Symbol) String() string {
	return "Symbol(" + s.Description + ")"
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// TypeError is raised by operations applied to values of the wrong type.
// It is a script-level error: it fails the frame that raised it.
type TypeError struct {
	Message string
}

func (e *TypeError) Error() string {
	return "TypeError: " + e.Message
}

// Errorf builds a TypeError.
func Errorf(format string, args ...any) error {
	return &TypeError{Message: fmt.Sprintf(format, args...)}
}
