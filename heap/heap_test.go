package heap

import (
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/everydev1618/vegascript/value"
)

func roundTrip(t *testing.T, v value.Value) value.Value {
	t.Helper()
	entries, idx, err := Encode(v)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// Go through the wire form, as a store would.
	data, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back []Entry
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	out, err := Decode(back, idx)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return out
}

func TestPrimitives(t *testing.T) {
	tests := []struct {
		name string
		in   value.Value
	}{
		{"null", nil},
		{"bool", true},
		{"number", 3.25},
		{"string", "hello"},
		{"infinity", math.Inf(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := roundTrip(t, tt.in); got != tt.in {
				t.Errorf("roundTrip(%v) = %v", tt.in, got)
			}
		})
	}

	if got := roundTrip(t, math.NaN()); !math.IsNaN(got.(float64)) {
		t.Errorf("roundTrip(NaN) = %v", got)
	}
	if _, idx, _ := Encode(value.Undefined); idx != UndefinedIndex {
		t.Errorf("undefined index = %d, want %d", idx, UndefinedIndex)
	}
}

func TestSpecialValues(t *testing.T) {
	when := time.Date(2024, 5, 6, 7, 8, 9, 123e6, time.UTC)
	desc := "tag"
	obj := value.ObjectOf(
		"n", new(big.Int).Exp(big.NewInt(2), big.NewInt(80), nil),
		"d", value.NewDate(when),
		"bad", &value.Date{Invalid: true},
		"re", value.NewRegExp("a+b", "gi"),
		"sym", value.NewSymbol(&desc),
		"anon", value.NewSymbol(nil),
		"set", value.NewSet(1.0, "x"),
	)
	out := roundTrip(t, obj).(*value.Object)

	if n := out.Lookup("n").(*big.Int); n.String() != "1208925819614629174706176" {
		t.Errorf("bigint = %s", n)
	}
	if d := out.Lookup("d").(*value.Date); !d.Time.Equal(when) {
		t.Errorf("date = %v, want %v", d.Time, when)
	}
	if d := out.Lookup("bad").(*value.Date); !d.Invalid {
		t.Error("invalid date lost its invalidity")
	}
	if re := out.Lookup("re").(*value.RegExp); re.Source != "a+b" || re.Flags != "gi" {
		t.Errorf("regexp = %s", re)
	}
	if s := out.Lookup("sym").(*value.Symbol); !s.HasDescription || s.Description != "tag" {
		t.Errorf("symbol = %+v", s)
	}
	if s := out.Lookup("anon").(*value.Symbol); s.HasDescription {
		t.Errorf("anonymous symbol gained a description: %+v", s)
	}
	if s := out.Lookup("set").(*value.Set); s.Len() != 2 || !s.Has("x") {
		t.Errorf("set = %v", s.Values())
	}
}

func TestDateRange(t *testing.T) {
	tests := []struct {
		name string
		ms   float64
		iso  string
	}{
		{"year 10000", 253402300800000, "+010000-01-01T00:00:00.000Z"},
		{"year -1", -62198755200000, "-000001-01-01T00:00:00.000Z"},
		{"year 0", -62167219200000, "0000-01-01T00:00:00.000Z"},
		{"max", 8.64e15, "+275760-09-13T00:00:00.000Z"},
		{"min", -8.64e15, "-271821-04-20T00:00:00.000Z"},
		{"leap day", 951782400000, "2000-02-29T00:00:00.000Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := value.DateFromMillis(tt.ms)
			if got := d.ISO(); got != tt.iso {
				t.Fatalf("ISO() = %q, want %q", got, tt.iso)
			}
			out, ok := roundTrip(t, d).(*value.Date)
			if !ok || out.Invalid {
				t.Fatalf("roundTrip = %#v", out)
			}
			if got := out.Millis(); got != tt.ms {
				t.Errorf("Millis() = %v, want %v", got, tt.ms)
			}
		})
	}

	for _, ms := range []float64{8.64e15 + 1, -8.64e15 - 1, 1e300} {
		d := value.DateFromMillis(ms)
		if !d.Invalid {
			t.Errorf("DateFromMillis(%v) should be invalid, got %s", ms, d.ISO())
		}
		if out := roundTrip(t, d).(*value.Date); !out.Invalid {
			t.Errorf("DateFromMillis(%v) lost its invalidity in the heap", ms)
		}
	}
}

func TestUnsupported(t *testing.T) {
	tests := []struct {
		name string
		in   value.Value
	}{
		{"func", func() {}},
		{"int", 41},
		{"native map", map[string]any{"a": 1.0}},
		{"nested", value.ObjectOf("ok", 1.0, "bad", value.NewArray(int64(2)))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Encode(tt.in); !errors.Is(err, ErrUnsupported) {
				t.Errorf("Encode(%T) err = %v, want ErrUnsupported", tt.in, err)
			}
		})
	}
}

func TestSharedReferences(t *testing.T) {
	shared := value.ObjectOf("k", 1.0)
	root := value.NewArray(shared, shared, value.ObjectOf("inner", shared))

	out := roundTrip(t, root).(*value.Array)
	a := out.Items[0].(*value.Object)
	b := out.Items[1].(*value.Object)
	c := out.Items[2].(*value.Object).Lookup("inner").(*value.Object)
	if a != b || a != c {
		t.Error("shared object was duplicated")
	}
	a.Set("k", 2.0)
	if b.Lookup("k") != 2.0 {
		t.Error("mutation through one alias not visible through another")
	}
}

func TestCycles(t *testing.T) {
	obj := value.NewObject()
	arr := value.NewArray(obj)
	obj.Set("self", obj)
	obj.Set("list", arr)
	set := value.NewSet()
	set.Add(set)
	obj.Set("set", set)

	out := roundTrip(t, obj).(*value.Object)
	if out.Lookup("self") != out {
		t.Error("self cycle not preserved")
	}
	if out.Lookup("list").(*value.Array).Items[0] != out {
		t.Error("array back-reference not preserved")
	}
	s := out.Lookup("set").(*value.Set)
	if !s.Has(s) {
		t.Error("set containing itself not preserved")
	}
}

func TestSerializerSharesAcrossPushes(t *testing.T) {
	shared := value.NewArray(1.0)
	s := NewSerializer()
	i1, _ := s.Push(value.ObjectOf("a", shared))
	i2, _ := s.Push(value.ObjectOf("b", shared))

	d := NewDeserializer(s.Heap())
	o1, _ := d.Value(i1)
	o2, _ := d.Value(i2)
	if o1.(*value.Object).Lookup("a") != o2.(*value.Object).Lookup("b") {
		t.Error("values pushed separately lost their shared member")
	}
}

func TestHoles(t *testing.T) {
	arr := value.NewArray(1.0, value.Undefined, 3.0)
	out := roundTrip(t, arr).(*value.Array)
	if len(out.Items) != 3 || !value.IsUndefined(out.Items[1]) {
		t.Errorf("items = %v", out.Items)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		idx     int
		want    error
	}{
		{"out of range", []Entry{Entry(`1`)}, 3, ErrBadIndex},
		{"unknown tag", []Entry{Entry(`{"t":"map","v":[]}`)}, 0, ErrCorrupt},
		{"key mismatch", []Entry{Entry(`{"t":"object","k":["a","b"],"v":[-1]}`)}, 0, ErrCorrupt},
		{"dangling member", []Entry{Entry(`{"t":"array","v":[9]}`)}, 0, ErrBadIndex},
		{"bad bigint", []Entry{Entry(`{"t":"bigint","v":"12x"}`)}, 0, ErrCorrupt},
		{"bad date", []Entry{Entry(`{"t":"date","v":"yesterday"}`)}, 0, ErrCorrupt},
		{"negative zero year", []Entry{Entry(`{"t":"date","v":"-000000-01-01T00:00:00.000Z"}`)}, 0, ErrCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.entries, tt.idx)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() err = %v, want %v", err, tt.want)
			}
		})
	}
}
