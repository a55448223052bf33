package interp

import (
	"math"
	"math/big"
	"math/rand/v2"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/everydev1618/vegascript/frame"
	"github.com/everydev1618/vegascript/tools"
	"github.com/everydev1618/vegascript/value"
)

// builtin is a host function callable from scripts. Built-ins are
// synchronous and never suspend.
type builtin func(r *run, f *frame.Frame, args []value.Value) (value.Value, error)

// globals is the allow-list of built-in root names.
var globals = map[string]bool{
	"Math": true, "JSON": true, "Object": true, "Array": true, "String": true,
	"Number": true, "Boolean": true, "Date": true, "Set": true, "RegExp": true,
	"Symbol": true, "BigInt": true, "console": true,
	"parseInt": true, "parseFloat": true, "isNaN": true, "isFinite": true,
	"undefined": true, "NaN": true, "Infinity": true,
}

func globalNames() []string {
	names := make([]string, 0, len(globals))
	for k := range globals {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// constants are the built-in values reachable by name.
var constants = map[string]value.Value{
	"undefined": value.Undefined,
	"NaN":       math.NaN(),
	"Infinity":  math.Inf(1),

	"Math.PI":      math.Pi,
	"Math.E":       math.E,
	"Math.LN2":     math.Ln2,
	"Math.LN10":    math.Ln10,
	"Math.LOG2E":   math.Log2E,
	"Math.LOG10E":  math.Log10E,
	"Math.SQRT2":   math.Sqrt2,
	"Math.SQRT1_2": math.Sqrt2 / 2,

	"Number.MAX_SAFE_INTEGER":  float64(1<<53 - 1),
	"Number.MIN_SAFE_INTEGER":  -float64(1<<53 - 1),
	"Number.MAX_VALUE":         math.MaxFloat64,
	"Number.MIN_VALUE":         math.SmallestNonzeroFloat64,
	"Number.EPSILON":           math.Pow(2, -52),
	"Number.POSITIVE_INFINITY": math.Inf(1),
	"Number.NEGATIVE_INFINITY": math.Inf(-1),
	"Number.NaN":               math.NaN(),
}

var builtins map[string]builtin

var constructors map[string]builtin

func init() {
	builtins = map[string]builtin{
		"parseInt":   func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) { return parseInt(arg(a, 0), arg(a, 1)), nil },
		"parseFloat": func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) { return parseFloat(arg(a, 0)), nil },
		"isNaN": func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
			return math.IsNaN(value.ToNumber(numeric(arg(a, 0)))), nil
		},
		"isFinite": func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
			n := value.ToNumber(numeric(arg(a, 0)))
			return !math.IsNaN(n) && !math.IsInf(n, 0), nil
		},
		"String":  builtinString,
		"Number":  builtinNumber,
		"Boolean": func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) { return value.Truthy(arg(a, 0)), nil },
		"Symbol":  builtinSymbol,
		"BigInt":  builtinBigInt,
		"Date": func(r *run, _ *frame.Frame, _ []value.Value) (value.Value, error) {
			return value.ToString(value.NewDate(r.now())), nil
		},
		"Array": newArray,

		"Math.abs":   math1(math.Abs),
		"Math.ceil":  math1(math.Ceil),
		"Math.floor": math1(math.Floor),
		"Math.round": math1(func(x float64) float64 { return math.Floor(x + 0.5) }),
		"Math.trunc": math1(math.Trunc),
		"Math.sign": math1(func(x float64) float64 {
			switch {
			case x > 0:
				return 1
			case x < 0:
				return -1
			}
			return x
		}),
		"Math.sqrt":  math1(math.Sqrt),
		"Math.cbrt":  math1(math.Cbrt),
		"Math.exp":   math1(math.Exp),
		"Math.log":   math1(math.Log),
		"Math.log2":  math1(math.Log2),
		"Math.log10": math1(math.Log10),
		"Math.sin":   math1(math.Sin),
		"Math.cos":   math1(math.Cos),
		"Math.tan":   math1(math.Tan),
		"Math.atan":  math1(math.Atan),
		"Math.pow": func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
			return value.Arithmetic("**", value.ToNumber(numeric(arg(a, 0))), value.ToNumber(numeric(arg(a, 1))))
		},
		"Math.atan2": func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
			return math.Atan2(value.ToNumber(arg(a, 0)), value.ToNumber(arg(a, 1))), nil
		},
		"Math.hypot": func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
			var sum float64
			for _, v := range a {
				n := value.ToNumber(numeric(v))
				sum += n * n
			}
			return math.Sqrt(sum), nil
		},
		"Math.max":    mathFold(math.Inf(-1), math.Max),
		"Math.min":    mathFold(math.Inf(1), math.Min),
		"Math.random": func(_ *run, _ *frame.Frame, _ []value.Value) (value.Value, error) { return rand.Float64(), nil },

		"JSON.stringify": jsonStringify,
		"JSON.parse": func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
			return value.ParseJSON(value.ToString(arg(a, 0)))
		},

		"Object.keys": func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
			out := value.NewArray()
			for _, e := range ownEntries(arg(a, 0)) {
				out.Items = append(out.Items, e.name)
			}
			return out, nil
		},
		"Object.values": func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
			out := value.NewArray()
			for _, e := range ownEntries(arg(a, 0)) {
				out.Items = append(out.Items, e.v)
			}
			return out, nil
		},
		"Object.entries": func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
			out := value.NewArray()
			for _, e := range ownEntries(arg(a, 0)) {
				out.Items = append(out.Items, value.NewArray(e.name, e.v))
			}
			return out, nil
		},
		"Object.fromEntries": func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
			items, err := iterate(arg(a, 0))
			if err != nil {
				return nil, err
			}
			out := value.NewObject()
			for _, it := range items {
				pair, ok := it.(*value.Array)
				if !ok {
					return nil, value.Errorf("Iterator value %s is not an entry object", value.ToString(it))
				}
				out.Set(value.ToPropertyKey(pair.Get(0)), pair.Get(1))
			}
			return out, nil
		},
		"Object.assign": func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
			dst, ok := arg(a, 0).(*value.Object)
			if !ok {
				return nil, value.Errorf("Object.assign target must be an object")
			}
			for _, src := range a[1:] {
				for _, e := range ownEntries(src) {
					dst.Set(e.name, e.v)
				}
			}
			return dst, nil
		},
		"Object.freeze": func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) { return arg(a, 0), nil },

		"Array.isArray": func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
			_, ok := arg(a, 0).(*value.Array)
			return ok, nil
		},
		"Array.from": func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
			if value.IsNullish(arg(a, 0)) {
				return nil, value.Errorf("%s is not iterable", value.ToString(arg(a, 0)))
			}
			items, err := iterate(arg(a, 0))
			if err != nil {
				return value.NewArray(), nil
			}
			return value.NewArray(items...), nil
		},
		"Array.of": func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
			return value.NewArray(append([]value.Value(nil), a...)...), nil
		},

		"Number.isInteger": func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
			n, ok := arg(a, 0).(float64)
			return ok && !math.IsInf(n, 0) && n == math.Trunc(n), nil
		},
		"Number.isSafeInteger": func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
			n, ok := arg(a, 0).(float64)
			return ok && n == math.Trunc(n) && math.Abs(n) <= 1<<53-1, nil
		},
		"Number.isFinite": func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
			n, ok := arg(a, 0).(float64)
			return ok && !math.IsNaN(n) && !math.IsInf(n, 0), nil
		},
		"Number.isNaN": func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
			n, ok := arg(a, 0).(float64)
			return ok && math.IsNaN(n), nil
		},
		"Number.parseFloat": func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) { return parseFloat(arg(a, 0)), nil },
		"Number.parseInt":   func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) { return parseInt(arg(a, 0), arg(a, 1)), nil },

		"Date.now": func(r *run, _ *frame.Frame, _ []value.Value) (value.Value, error) {
			return float64(r.now().UnixMilli()), nil
		},
		"Date.parse": func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
			return parseDate(value.ToString(arg(a, 0))).Millis(), nil
		},

		"console.log":   consoleLog("log"),
		"console.info":  consoleLog("info"),
		"console.warn":  consoleLog("warn"),
		"console.error": consoleLog("error"),
		"console.debug": consoleLog("debug"),
	}

	constructors = map[string]builtin{
		"Date":   newDate,
		"Set":    newSet,
		"RegExp": newRegExp,
		"Array":  newArray,
		"Object": func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
			if o, ok := arg(a, 0).(*value.Object); ok {
				return o, nil
			}
			return value.NewObject(), nil
		},
	}
}

func math1(fn func(float64) float64) builtin {
	return func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
		if _, ok := arg(a, 0).(*big.Int); ok {
			return nil, value.Errorf("Cannot convert a BigInt value to a number")
		}
		return fn(value.ToNumber(numeric(arg(a, 0)))), nil
	}
}

func mathFold(start float64, fn func(a, b float64) float64) builtin {
	return func(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
		acc := start
		for _, v := range a {
			n := value.ToNumber(numeric(v))
			if math.IsNaN(n) {
				return math.NaN(), nil
			}
			acc = fn(acc, n)
		}
		return acc, nil
	}
}

func builtinString(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
	if len(a) == 0 {
		return "", nil
	}
	return value.ToString(a[0]), nil
}

func builtinNumber(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
	if len(a) == 0 {
		return 0.0, nil
	}
	if b, ok := a[0].(*big.Int); ok {
		f, _ := new(big.Float).SetInt(b).Float64()
		return f, nil
	}
	if _, ok := a[0].(*value.Symbol); ok {
		return nil, value.Errorf("Cannot convert a Symbol value to a number")
	}
	return value.ToNumber(numeric(a[0])), nil
}

func builtinSymbol(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
	if len(a) == 0 || value.IsUndefined(a[0]) {
		return value.NewSymbol(nil), nil
	}
	desc := value.ToString(a[0])
	return value.NewSymbol(&desc), nil
}

func builtinBigInt(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
	switch x := arg(a, 0).(type) {
	case *big.Int:
		return new(big.Int).Set(x), nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || math.IsNaN(x) {
			return nil, value.Errorf("The number %s cannot be converted to a BigInt because it is not an integer", value.NumberToString(x))
		}
		b, _ := big.NewFloat(x).Int(nil)
		return b, nil
	case bool:
		if x {
			return big.NewInt(1), nil
		}
		return big.NewInt(0), nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return big.NewInt(0), nil
		}
		b, ok := new(big.Int).SetString(s, 0)
		if !ok {
			return nil, &value.SyntaxError{Message: "Cannot convert " + x + " to a BigInt"}
		}
		return b, nil
	}
	return nil, value.Errorf("Cannot convert %s to a BigInt", value.ToString(arg(a, 0)))
}

var (
	intPrefix   = regexp.MustCompile(`^[+-]?[0-9a-zA-Z]+`)
	floatPrefix = regexp.MustCompile(`^[+-]?(Infinity|([0-9]+\.?[0-9]*|\.[0-9]+)([eE][+-]?[0-9]+)?)`)
)

func parseInt(v, radixArg value.Value) value.Value {
	s := strings.TrimSpace(value.ToString(v))
	radix := int(value.ToInteger(radixArg))
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if radix == 0 || radix == 16 {
		if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
			s = s[2:]
			radix = 16
		}
	}
	if radix == 0 {
		radix = 10
	}
	if radix < 2 || radix > 36 {
		return math.NaN()
	}
	digits := intPrefix.FindString(s)
	end := 0
	for end < len(digits) {
		d := digitValue(digits[end])
		if d < 0 || d >= radix {
			break
		}
		end++
	}
	if end == 0 {
		return math.NaN()
	}
	n, ok := new(big.Int).SetString(digits[:end], radix)
	if !ok {
		return math.NaN()
	}
	f, _ := new(big.Float).SetInt(n).Float64()
	if neg {
		f = -f
	}
	return f
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return -1
}

func parseFloat(v value.Value) value.Value {
	s := strings.TrimSpace(value.ToString(v))
	m := floatPrefix.FindString(s)
	if m == "" {
		return math.NaN()
	}
	switch strings.TrimLeft(m, "+-") {
	case "Infinity":
		if strings.HasPrefix(m, "-") {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func jsonStringify(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
	var indent string
	switch x := arg(a, 2).(type) {
	case float64:
		n := int(math.Min(10, math.Max(0, math.Trunc(x))))
		indent = strings.Repeat(" ", n)
	case string:
		indent = x
		if len(indent) > 10 {
			indent = indent[:10]
		}
	}
	s, ok, err := value.Stringify(arg(a, 0), indent)
	if err != nil {
		return nil, err
	}
	if !ok {
		return value.Undefined, nil
	}
	return s, nil
}

func consoleLog(level string) builtin {
	return func(r *run, f *frame.Frame, a []value.Value) (value.Value, error) {
		parts := make([]string, len(a))
		for i, v := range a {
			if s, ok := v.(string); ok {
				parts[i] = s
				continue
			}
			if js, ok, err := value.Stringify(v, ""); err == nil && ok {
				parts[i] = js
				continue
			}
			parts[i] = value.ToString(v)
		}
		msg := strings.Join(parts, " ")
		logger := r.eng.logger.With("trace", f.Trace)
		switch level {
		case "error":
			logger.Error(msg)
		case "warn":
			logger.Warn(msg)
		case "debug":
			logger.Debug(msg)
		default:
			logger.Info(msg)
		}
		return value.Undefined, nil
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01",
	"2006",
}

// parseDate accepts the ISO-8601 forms, including signed six-digit years.
// Forms without an offset are read as UTC.
func parseDate(s string) *value.Date {
	s = strings.TrimSpace(s)
	if s != "" && (s[0] == '+' || s[0] == '-') {
		if t, err := value.ParseISO(s); err == nil {
			return value.NewDate(t)
		}
		return &value.Date{Invalid: true}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return value.NewDate(t)
		}
	}
	return &value.Date{Invalid: true}
}

func newDate(r *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
	switch len(a) {
	case 0:
		return value.NewDate(r.now()), nil
	case 1:
		switch x := a[0].(type) {
		case *value.Date:
			return &value.Date{Time: x.Time, Invalid: x.Invalid}, nil
		case string:
			return parseDate(x), nil
		}
		return value.DateFromMillis(value.ToNumber(numeric(a[0]))), nil
	}
	parts := [7]float64{0, 0, 1, 0, 0, 0, 0}
	for i := 0; i < len(a) && i < 7; i++ {
		n := value.ToNumber(numeric(a[i]))
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return &value.Date{Invalid: true}, nil
		}
		parts[i] = math.Trunc(n)
	}
	t := time.Date(int(parts[0]), time.Month(int(parts[1])+1), int(parts[2]),
		int(parts[3]), int(parts[4]), int(parts[5]), int(parts[6])*int(time.Millisecond), time.UTC)
	return value.NewDate(t), nil
}

func newSet(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
	if value.IsNullish(arg(a, 0)) {
		return value.NewSet(), nil
	}
	items, err := iterate(arg(a, 0))
	if err != nil {
		return nil, err
	}
	return value.NewSet(items...), nil
}

func newRegExp(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
	var re *value.RegExp
	switch x := arg(a, 0).(type) {
	case *value.RegExp:
		flags := x.Flags
		if !value.IsUndefined(arg(a, 1)) {
			flags = value.ToString(arg(a, 1))
		}
		re = value.NewRegExp(x.Source, flags)
	default:
		src := "(?:)"
		if !value.IsUndefined(x) {
			src = value.ToString(x)
		}
		flags := ""
		if !value.IsUndefined(arg(a, 1)) {
			flags = value.ToString(arg(a, 1))
		}
		re = value.NewRegExp(src, flags)
	}
	if _, err := re.Compile(); err != nil {
		return nil, err
	}
	return re, nil
}

func newArray(_ *run, _ *frame.Frame, a []value.Value) (value.Value, error) {
	if len(a) == 1 {
		if n, ok := a[0].(float64); ok {
			size, ok := value.ToIndex(n)
			if !ok {
				return nil, value.Errorf("Invalid array length")
			}
			items := make([]value.Value, size)
			for i := range items {
				items[i] = value.Undefined
			}
			return value.NewArray(items...), nil
		}
	}
	return value.NewArray(append([]value.Value(nil), a...)...), nil
}

// suggest finds the closest candidate to name.
func suggest(name string, candidates []string) (string, bool) {
	seen := make(map[string]bool, len(candidates))
	uniq := candidates[:0:0]
	for _, c := range candidates {
		if c != name && !seen[c] {
			seen[c] = true
			uniq = append(uniq, c)
		}
	}
	return tools.Suggest(name, uniq)
}
