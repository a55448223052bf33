package interp

import (
	"math"
	"math/big"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/everydev1618/vegascript/frame"
	"github.com/everydev1618/vegascript/value"
)

var (
	upper = cases.Upper(language.Und)
	lower = cases.Lower(language.Und)
)

// method calls recv.name(args...).
func (r *run) method(f *frame.Frame, recv value.Value, name string, args []value.Value) (value.Value, error) {
	var (
		v   value.Value
		ok  bool
		err error
	)
	switch x := recv.(type) {
	case string:
		v, ok, err = stringMethod(x, name, args)
	case *value.Array:
		v, ok, err = arrayMethod(x, name, args)
	case *value.Set:
		v, ok, err = setMethod(x, name, args)
	case *value.Date:
		v, ok, err = dateMethod(x, name, args)
	case *value.RegExp:
		v, ok, err = regexpMethod(x, name, args)
	case float64:
		v, ok, err = numberMethod(x, name, args)
	case *big.Int:
		if name == "toString" {
			base := 10
			if !value.IsUndefined(arg(args, 0)) {
				base = int(value.ToInteger(args[0]))
			}
			if base < 2 || base > 36 {
				return nil, value.Errorf("toString() radix must be between 2 and 36")
			}
			return x.Text(base), nil
		}
	case *value.Object:
		switch name {
		case "hasOwnProperty":
			return x.Has(value.ToPropertyKey(arg(args, 0))), nil
		case "toString":
			return value.ToString(x), nil
		}
	case *value.Symbol:
		if name == "toString" {
			return x.String(), nil
		}
	case bool:
		if name == "toString" {
			return strconv.FormatBool(x), nil
		}
	case nil, value.UndefinedType:
		return nil, value.Errorf("Cannot read properties of %s (reading '%s')", value.ToString(recv), name)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		if name == "valueOf" {
			return recv, nil
		}
		return nil, value.Errorf("%s.%s is not a function", value.Describe(recv), name)
	}
	return v, nil
}

// ---------------------------------------------------------------------------
// String
// ---------------------------------------------------------------------------

// Strings are indexed by code point.
func stringMethod(s string, name string, args []value.Value) (value.Value, bool, error) {
	runes := []rune(s)
	n := len(runes)
	str := func(i int) string {
		if i < len(args) {
			return value.ToString(args[i])
		}
		return "undefined"
	}

	switch name {
	case "charAt":
		i := int(value.ToInteger(arg(args, 0)))
		if i < 0 || i >= n {
			return "", true, nil
		}
		return string(runes[i]), true, nil
	case "charCodeAt", "codePointAt":
		i := int(value.ToInteger(arg(args, 0)))
		if i < 0 || i >= n {
			if name == "codePointAt" {
				return value.Undefined, true, nil
			}
			return math.NaN(), true, nil
		}
		return float64(runes[i]), true, nil
	case "at":
		i := int(value.ToInteger(arg(args, 0)))
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return value.Undefined, true, nil
		}
		return string(runes[i]), true, nil
	case "indexOf":
		start := clampIndex(arg(args, 1), n)
		return float64(runeIndex(runes, []rune(str(0)), start)), true, nil
	case "lastIndexOf":
		needle := []rune(str(0))
		for i := n - len(needle); i >= 0; i-- {
			if string(runes[i:i+len(needle)]) == string(needle) {
				return float64(i), true, nil
			}
		}
		return -1.0, true, nil
	case "includes":
		if _, isRe := arg(args, 0).(*value.RegExp); isRe {
			return nil, true, value.Errorf("First argument to String.prototype.includes must not be a regular expression")
		}
		start := clampIndex(arg(args, 1), n)
		return runeIndex(runes, []rune(str(0)), start) >= 0, true, nil
	case "startsWith":
		start := clampIndex(arg(args, 1), n)
		return strings.HasPrefix(string(runes[start:]), str(0)), true, nil
	case "endsWith":
		end := n
		if !value.IsUndefined(arg(args, 1)) {
			end = clampIndex(args[1], n)
		}
		return strings.HasSuffix(string(runes[:end]), str(0)), true, nil
	case "slice":
		start := toLength(arg(args, 0), n, 0)
		end := toLength(arg(args, 1), n, n)
		if start >= end {
			return "", true, nil
		}
		return string(runes[start:end]), true, nil
	case "substring":
		start := clampIndex(arg(args, 0), n)
		end := n
		if !value.IsUndefined(arg(args, 1)) {
			end = clampIndex(args[1], n)
		}
		if start > end {
			start, end = end, start
		}
		return string(runes[start:end]), true, nil
	case "substr":
		start := toLength(arg(args, 0), n, 0)
		length := n - start
		if !value.IsUndefined(arg(args, 1)) {
			length = int(math.Max(0, math.Min(value.ToInteger(args[1]), float64(n-start))))
		}
		return string(runes[start : start+length]), true, nil
	case "toUpperCase", "toLocaleUpperCase":
		return upper.String(s), true, nil
	case "toLowerCase", "toLocaleLowerCase":
		return lower.String(s), true, nil
	case "trim":
		return strings.TrimFunc(s, unicode.IsSpace), true, nil
	case "trimStart":
		return strings.TrimLeftFunc(s, unicode.IsSpace), true, nil
	case "trimEnd":
		return strings.TrimRightFunc(s, unicode.IsSpace), true, nil
	case "padStart", "padEnd":
		target := int(value.ToInteger(arg(args, 0)))
		fill := " "
		if !value.IsUndefined(arg(args, 1)) {
			fill = value.ToString(args[1])
		}
		if target <= n || fill == "" {
			return s, true, nil
		}
		fr := []rune(fill)
		pad := make([]rune, 0, target-n)
		for len(pad) < target-n {
			pad = append(pad, fr[len(pad)%len(fr)])
		}
		if name == "padStart" {
			return string(pad) + s, true, nil
		}
		return s + string(pad), true, nil
	case "repeat":
		count := value.ToInteger(arg(args, 0))
		if count < 0 || math.IsInf(count, 0) {
			return nil, true, value.Errorf("Invalid count value: %s", value.NumberToString(count))
		}
		return strings.Repeat(s, int(count)), true, nil
	case "concat":
		var b strings.Builder
		b.WriteString(s)
		for _, a := range args {
			b.WriteString(value.ToString(a))
		}
		return b.String(), true, nil
	case "split":
		return splitString(s, arg(args, 0), arg(args, 1))
	case "replace", "replaceAll":
		return replaceString(s, name == "replaceAll", arg(args, 0), arg(args, 1))
	case "match":
		re, err := toRegExp(arg(args, 0))
		if err != nil {
			return nil, true, err
		}
		if re.Global() {
			cre, err := re.Compile()
			if err != nil {
				return nil, true, err
			}
			all := cre.FindAllString(s, -1)
			if all == nil {
				return nil, true, nil
			}
			out := value.NewArray()
			for _, m := range all {
				out.Items = append(out.Items, m)
			}
			return out, true, nil
		}
		v, err := execRegExp(re, s)
		return v, true, err
	case "matchAll":
		re, err := toRegExp(arg(args, 0))
		if err != nil {
			return nil, true, err
		}
		cre, err := re.Compile()
		if err != nil {
			return nil, true, err
		}
		out := value.NewArray()
		for _, m := range cre.FindAllStringSubmatchIndex(s, -1) {
			out.Items = append(out.Items, matchArray(s, m))
		}
		return out, true, nil
	case "search":
		re, err := toRegExp(arg(args, 0))
		if err != nil {
			return nil, true, err
		}
		cre, err := re.Compile()
		if err != nil {
			return nil, true, err
		}
		loc := cre.FindStringIndex(s)
		if loc == nil {
			return -1.0, true, nil
		}
		return float64(len([]rune(s[:loc[0]]))), true, nil
	case "localeCompare":
		return float64(strings.Compare(s, str(0))), true, nil
	case "normalize":
		form := "NFC"
		if !value.IsUndefined(arg(args, 0)) {
			form = value.ToString(args[0])
		}
		switch form {
		case "NFC":
			return norm.NFC.String(s), true, nil
		case "NFD":
			return norm.NFD.String(s), true, nil
		case "NFKC":
			return norm.NFKC.String(s), true, nil
		case "NFKD":
			return norm.NFKD.String(s), true, nil
		}
		return nil, true, value.Errorf("The normalization form should be one of NFC, NFD, NFKC, NFKD.")
	case "toString", "valueOf":
		return s, true, nil
	}
	return nil, false, nil
}

func clampIndex(v value.Value, n int) int {
	f := value.ToInteger(v)
	switch {
	case f < 0:
		return 0
	case f > float64(n):
		return n
	}
	return int(f)
}

func runeIndex(hay, needle []rune, start int) int {
	for i := start; i+len(needle) <= len(hay); i++ {
		if string(hay[i:i+len(needle)]) == string(needle) {
			return i
		}
	}
	return -1
}

func splitString(s string, sep, limitArg value.Value) (value.Value, bool, error) {
	limit := -1
	if !value.IsUndefined(limitArg) {
		limit = int(value.ToInteger(limitArg))
	}
	var parts []string
	switch x := sep.(type) {
	case value.UndefinedType:
		parts = []string{s}
	case *value.RegExp:
		cre, err := x.Compile()
		if err != nil {
			return nil, true, err
		}
		parts = cre.Split(s, -1)
	default:
		sepStr := value.ToString(x)
		if sepStr == "" {
			for _, ch := range s {
				parts = append(parts, string(ch))
			}
		} else {
			parts = strings.Split(s, sepStr)
		}
	}
	if limit >= 0 && limit < len(parts) {
		parts = parts[:limit]
	}
	out := value.NewArray()
	for _, p := range parts {
		out.Items = append(out.Items, p)
	}
	return out, true, nil
}

func replaceString(s string, all bool, pattern, replacement value.Value) (value.Value, bool, error) {
	repl := value.ToString(replacement)
	re, isRe := pattern.(*value.RegExp)
	if !isRe {
		needle := value.ToString(pattern)
		if all {
			return strings.ReplaceAll(s, needle, strings.ReplaceAll(repl, "$$", "$")), true, nil
		}
		i := strings.Index(s, needle)
		if i < 0 {
			return s, true, nil
		}
		return s[:i] + expand(repl, s, []int{i, i + len(needle)}) + s[i+len(needle):], true, nil
	}
	if all && !re.Global() {
		return nil, true, value.Errorf("replaceAll must be called with a global RegExp")
	}
	cre, err := re.Compile()
	if err != nil {
		return nil, true, err
	}
	matches := cre.FindAllStringSubmatchIndex(s, -1)
	if !re.Global() && len(matches) > 1 {
		matches = matches[:1]
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		b.WriteString(expand(repl, s, m))
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String(), true, nil
}

// expand substitutes $$, $& and $1..$99 in a replacement string.
func expand(repl, s string, m []int) string {
	var b strings.Builder
	for i := 0; i < len(repl); i++ {
		c := repl[i]
		if c != '$' || i+1 >= len(repl) {
			b.WriteByte(c)
			continue
		}
		next := repl[i+1]
		switch {
		case next == '$':
			b.WriteByte('$')
			i++
		case next == '&':
			b.WriteString(s[m[0]:m[1]])
			i++
		case next >= '0' && next <= '9':
			j := i + 2
			if j < len(repl) && repl[j] >= '0' && repl[j] <= '9' {
				j++
			}
			g, _ := strconv.Atoi(repl[i+1 : j])
			if g == 0 || 2*g+1 >= len(m) {
				b.WriteByte(c)
				continue
			}
			if m[2*g] >= 0 {
				b.WriteString(s[m[2*g]:m[2*g+1]])
			}
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func toRegExp(v value.Value) (*value.RegExp, error) {
	if re, ok := v.(*value.RegExp); ok {
		return re, nil
	}
	src := "(?:)"
	if !value.IsUndefined(v) {
		src = regexp.QuoteMeta(value.ToString(v))
	}
	re := value.NewRegExp(src, "")
	_, err := re.Compile()
	return re, err
}

// ---------------------------------------------------------------------------
// RegExp
// ---------------------------------------------------------------------------

func regexpMethod(re *value.RegExp, name string, args []value.Value) (value.Value, bool, error) {
	switch name {
	case "test":
		cre, err := re.Compile()
		if err != nil {
			return nil, true, err
		}
		return cre.MatchString(value.ToString(arg(args, 0))), true, nil
	case "exec":
		v, err := execRegExp(re, value.ToString(arg(args, 0)))
		return v, true, err
	case "toString":
		return re.String(), true, nil
	}
	return nil, false, nil
}

// execRegExp returns the first match and its groups, or null.
func execRegExp(re *value.RegExp, s string) (value.Value, error) {
	cre, err := re.Compile()
	if err != nil {
		return nil, err
	}
	m := cre.FindStringSubmatchIndex(s)
	if m == nil {
		return nil, nil
	}
	return matchArray(s, m), nil
}

func matchArray(s string, m []int) *value.Array {
	out := value.NewArray()
	for g := 0; 2*g+1 < len(m); g++ {
		if m[2*g] < 0 {
			out.Items = append(out.Items, value.Undefined)
			continue
		}
		out.Items = append(out.Items, s[m[2*g]:m[2*g+1]])
	}
	return out
}

// ---------------------------------------------------------------------------
// Array
// ---------------------------------------------------------------------------

func arrayMethod(a *value.Array, name string, args []value.Value) (value.Value, bool, error) {
	n := a.Len()
	switch name {
	case "push":
		a.Items = append(a.Items, args...)
		return float64(a.Len()), true, nil
	case "pop":
		if n == 0 {
			return value.Undefined, true, nil
		}
		last := a.Items[n-1]
		a.Items = a.Items[:n-1]
		return last, true, nil
	case "shift":
		if n == 0 {
			return value.Undefined, true, nil
		}
		first := a.Items[0]
		a.Items = append([]value.Value(nil), a.Items[1:]...)
		return first, true, nil
	case "unshift":
		a.Items = append(append([]value.Value(nil), args...), a.Items...)
		return float64(a.Len()), true, nil
	case "slice":
		start := toLength(arg(args, 0), n, 0)
		end := toLength(arg(args, 1), n, n)
		if start >= end {
			return value.NewArray(), true, nil
		}
		return value.NewArray(append([]value.Value(nil), a.Items[start:end]...)...), true, nil
	case "splice":
		start := toLength(arg(args, 0), n, 0)
		count := n - start
		if len(args) > 1 {
			count = int(math.Max(0, math.Min(value.ToInteger(args[1]), float64(n-start))))
		} else if len(args) == 0 {
			count = 0
		}
		removed := append([]value.Value(nil), a.Items[start:start+count]...)
		var insert []value.Value
		if len(args) > 2 {
			insert = args[2:]
		}
		rest := append([]value.Value(nil), a.Items[start+count:]...)
		a.Items = append(append(a.Items[:start], insert...), rest...)
		return value.NewArray(removed...), true, nil
	case "concat":
		out := append([]value.Value(nil), a.Items...)
		for _, x := range args {
			if arr, ok := x.(*value.Array); ok {
				out = append(out, arr.Items...)
			} else {
				out = append(out, x)
			}
		}
		return value.NewArray(out...), true, nil
	case "join":
		sep := ","
		if !value.IsUndefined(arg(args, 0)) {
			sep = value.ToString(args[0])
		}
		return value.Join(a, sep), true, nil
	case "indexOf":
		for i := clampIndex(arg(args, 1), n); i < n; i++ {
			if value.StrictEquals(a.Items[i], arg(args, 0)) {
				return float64(i), true, nil
			}
		}
		return -1.0, true, nil
	case "lastIndexOf":
		for i := n - 1; i >= 0; i-- {
			if value.StrictEquals(a.Items[i], arg(args, 0)) {
				return float64(i), true, nil
			}
		}
		return -1.0, true, nil
	case "includes":
		for i := clampIndex(arg(args, 1), n); i < n; i++ {
			if value.SameValueZero(a.Items[i], arg(args, 0)) {
				return true, true, nil
			}
		}
		return false, true, nil
	case "reverse":
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			a.Items[i], a.Items[j] = a.Items[j], a.Items[i]
		}
		return a, true, nil
	case "sort":
		if !value.IsUndefined(arg(args, 0)) {
			return nil, true, value.Errorf("custom sort comparators are not supported")
		}
		sort.SliceStable(a.Items, func(i, j int) bool {
			x, y := a.Items[i], a.Items[j]
			if value.IsUndefined(x) {
				return false
			}
			if value.IsUndefined(y) {
				return true
			}
			return value.ToString(x) < value.ToString(y)
		})
		return a, true, nil
	case "at":
		i := int(value.ToInteger(arg(args, 0)))
		if i < 0 {
			i += n
		}
		return a.Get(i), true, nil
	case "flat":
		depth := 1
		if !value.IsUndefined(arg(args, 0)) {
			depth = int(value.ToInteger(args[0]))
		}
		return value.NewArray(flatten(a.Items, depth)...), true, nil
	case "fill":
		start := toLength(arg(args, 1), n, 0)
		end := toLength(arg(args, 2), n, n)
		for i := start; i < end; i++ {
			a.Items[i] = arg(args, 0)
		}
		return a, true, nil
	case "keys":
		out := value.NewArray()
		for i := range a.Items {
			out.Items = append(out.Items, float64(i))
		}
		return out, true, nil
	case "entries":
		out := value.NewArray()
		for i, it := range a.Items {
			out.Items = append(out.Items, value.NewArray(float64(i), it))
		}
		return out, true, nil
	case "toString":
		return value.Join(a, ","), true, nil
	}
	return nil, false, nil
}

func flatten(items []value.Value, depth int) []value.Value {
	out := make([]value.Value, 0, len(items))
	for _, it := range items {
		if arr, ok := it.(*value.Array); ok && depth > 0 {
			out = append(out, flatten(arr.Items, depth-1)...)
			continue
		}
		out = append(out, it)
	}
	return out
}

// ---------------------------------------------------------------------------
// Set
// ---------------------------------------------------------------------------

func setMethod(s *value.Set, name string, args []value.Value) (value.Value, bool, error) {
	switch name {
	case "add":
		s.Add(arg(args, 0))
		return s, true, nil
	case "has":
		return s.Has(arg(args, 0)), true, nil
	case "delete":
		return s.Delete(arg(args, 0)), true, nil
	case "clear":
		s.Clear()
		return value.Undefined, true, nil
	case "values", "keys":
		return value.NewArray(s.Values()...), true, nil
	case "toString":
		return value.ToString(s), true, nil
	}
	return nil, false, nil
}

// ---------------------------------------------------------------------------
// Date
// ---------------------------------------------------------------------------

// Dates are always read in UTC.
func dateMethod(d *value.Date, name string, args []value.Value) (value.Value, bool, error) {
	field := func(get func(t time.Time) int) (value.Value, bool, error) {
		if d.Invalid {
			return math.NaN(), true, nil
		}
		return float64(get(d.Time.UTC())), true, nil
	}
	switch name {
	case "getTime", "valueOf":
		return d.Millis(), true, nil
	case "toISOString", "toJSON":
		if d.Invalid {
			if name == "toJSON" {
				return nil, true, nil
			}
			return nil, true, value.Errorf("Invalid time value")
		}
		return d.ISO(), true, nil
	case "toString", "toUTCString":
		return value.ToString(d), true, nil
	case "getFullYear", "getUTCFullYear":
		return field(func(t time.Time) int { return t.Year() })
	case "getMonth", "getUTCMonth":
		return field(func(t time.Time) int { return int(t.Month()) - 1 })
	case "getDate", "getUTCDate":
		return field(func(t time.Time) int { return t.Day() })
	case "getDay", "getUTCDay":
		return field(func(t time.Time) int { return int(t.Weekday()) })
	case "getHours", "getUTCHours":
		return field(func(t time.Time) int { return t.Hour() })
	case "getMinutes", "getUTCMinutes":
		return field(func(t time.Time) int { return t.Minute() })
	case "getSeconds", "getUTCSeconds":
		return field(func(t time.Time) int { return t.Second() })
	case "getMilliseconds", "getUTCMilliseconds":
		return field(func(t time.Time) int { return t.Nanosecond() / int(time.Millisecond) })
	case "getTimezoneOffset":
		return 0.0, true, nil
	case "setTime":
		nd := value.DateFromMillis(value.ToNumber(arg(args, 0)))
		d.Time, d.Invalid = nd.Time, nd.Invalid
		return d.Millis(), true, nil
	}
	return nil, false, nil
}

// ---------------------------------------------------------------------------
// Number
// ---------------------------------------------------------------------------

func numberMethod(x float64, name string, args []value.Value) (value.Value, bool, error) {
	switch name {
	case "toFixed":
		digits := int(value.ToInteger(arg(args, 0)))
		if digits < 0 || digits > 100 {
			return nil, true, value.Errorf("toFixed() digits argument must be between 0 and 100")
		}
		if math.IsNaN(x) || math.IsInf(x, 0) || math.Abs(x) >= 1e21 {
			return value.NumberToString(x), true, nil
		}
		return strconv.FormatFloat(x, 'f', digits, 64), true, nil
	case "toString":
		if value.IsUndefined(arg(args, 0)) {
			return value.NumberToString(x), true, nil
		}
		base := int(value.ToInteger(args[0]))
		if base < 2 || base > 36 {
			return nil, true, value.Errorf("toString() radix must be between 2 and 36")
		}
		if base == 10 || x != math.Trunc(x) || math.IsInf(x, 0) || math.IsNaN(x) {
			return value.NumberToString(x), true, nil
		}
		return strconv.FormatInt(int64(x), base), true, nil
	case "toPrecision":
		if value.IsUndefined(arg(args, 0)) {
			return value.NumberToString(x), true, nil
		}
		p := int(value.ToInteger(args[0]))
		if p < 1 || p > 100 {
			return nil, true, value.Errorf("toPrecision() argument must be between 1 and 100")
		}
		return strconv.FormatFloat(x, 'g', p, 64), true, nil
	}
	return nil, false, nil
}
