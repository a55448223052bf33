package value

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// TypeOf returns the typeof string of v.
func TypeOf(v Value) string {
	switch v.(type) {
	case UndefinedType:
		return "undefined"
	case nil:
		return "object"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case *big.Int:
		return "bigint"
	case *Symbol:
		return "symbol"
	}
	return "object"
}

// Describe names the type of v for error messages.
func Describe(v Value) string {
	switch v.(type) {
	case nil:
		return "null"
	case *Array:
		return "array"
	case *Set:
		return "Set"
	case *Date:
		return "Date"
	case *RegExp:
		return "RegExp"
	}
	return TypeOf(v)
}

// Truthy applies boolean coercion.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case UndefinedType, nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case string:
		return x != ""
	case *big.Int:
		return x.Sign() != 0
	}
	return true
}

// ToNumber applies numeric coercion.
func ToNumber(v Value) float64 {
	switch x := v.(type) {
	case UndefinedType:
		return math.NaN()
	case nil:
		return 0
	case bool:
		if x {
			return 1
		}
		return 0
	case float64:
		return x
	case string:
		return StringToNumber(x)
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f
	case *Date:
		return x.Millis()
	case *Array:
		switch len(x.Items) {
		case 0:
			return 0
		case 1:
			return ToNumber(ToString(x.Items[0]))
		}
	}
	return math.NaN()
}

// StringToNumber parses s the way Number(s) does.
func StringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(s[2:], base, 64)
			if err != nil {
				return math.NaN()
			}
			return float64(n)
		}
	}
	if strings.ContainsAny(s, "_xXpP") || strings.EqualFold(s, "inf") || strings.EqualFold(s, "nan") ||
		strings.EqualFold(s, "+inf") || strings.EqualFold(s, "-inf") || strings.EqualFold(s, "infinity") {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f
		}
		return math.NaN()
	}
	return f
}

// NumberToString formats f the way the dialect prints numbers: integers
// without a fraction, shortest round-trip digits otherwise, exponent form
// outside [1e-6, 1e21).
func NumberToString(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign := exp[0]
		exp = strings.TrimLeft(exp[1:], "0")
		if exp == "" {
			exp = "0"
		}
		return mant + "e" + string(sign) + exp
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ToString applies string coercion.
func ToString(v Value) string {
	switch x := v.(type) {
	case UndefinedType:
		return "undefined"
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return NumberToString(x)
	case string:
		return x
	case *big.Int:
		return x.String()
	case *Symbol:
		return x.String()
	case *Array:
		return joinArray(x, ",", map[*Array]bool{})
	case *Date:
		if x.Invalid {
			return "Invalid Date"
		}
		return x.Time.UTC().Format("Mon Jan 02 2006 15:04:05 GMT+0000 (Coordinated Universal Time)")
	case *RegExp:
		return x.String()
	case *Set:
		return "[object Set]"
	}
	return "[object Object]"
}

func joinArray(a *Array, sep string, seen map[*Array]bool) string {
	if seen[a] {
		return ""
	}
	seen[a] = true
	defer delete(seen, a)
	parts := make([]string, len(a.Items))
	for i, it := range a.Items {
		switch x := it.(type) {
		case UndefinedType, nil:
		case *Array:
			parts[i] = joinArray(x, ",", seen)
		default:
			parts[i] = ToString(x)
		}
	}
	return strings.Join(parts, sep)
}

// Join renders the items of a joined by sep.
func Join(a *Array, sep string) string {
	return joinArray(a, sep, map[*Array]bool{})
}

// ToPropertyKey coerces v to an object key.
func ToPropertyKey(v Value) string {
	return ToString(v)
}

// ToIndex converts v to an array index, reporting false when v is not a
// non-negative integer.
func ToIndex(v Value) (int, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		n, err := strconv.Atoi(x)
		if err != nil || strconv.Itoa(n) != x {
			return 0, false
		}
		f = float64(n)
	default:
		return 0, false
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// ToInteger truncates toward zero; NaN becomes 0.
func ToInteger(v Value) float64 {
	f := ToNumber(v)
	if math.IsNaN(f) {
		return 0
	}
	return math.Trunc(f)
}

// StrictEquals implements ===.
func StrictEquals(a, b Value) bool {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		return ok && x == y
	case *big.Int:
		y, ok := b.(*big.Int)
		return ok && x.Cmp(y) == 0
	case UndefinedType:
		return IsUndefined(b)
	case nil:
		return b == nil
	case bool, string:
		return a == b
	}
	return a == b
}

// SameValueZero is StrictEquals except that NaN equals NaN.
func SameValueZero(a, b Value) bool {
	if x, ok := a.(float64); ok {
		if y, ok := b.(float64); ok && math.IsNaN(x) && math.IsNaN(y) {
			return true
		}
	}
	return StrictEquals(a, b)
}

// LooseEquals implements ==.
func LooseEquals(a, b Value) bool {
	if IsNullish(a) || IsNullish(b) {
		return IsNullish(a) && IsNullish(b)
	}
	if TypeOf(a) == TypeOf(b) {
		return StrictEquals(a, b)
	}
	switch a.(type) {
	case *Array, *Object, *Set, *Date, *RegExp:
		return LooseEquals(ToPrimitive(a), b)
	}
	switch b.(type) {
	case *Array, *Object, *Set, *Date, *RegExp:
		return LooseEquals(a, ToPrimitive(b))
	}
	if x, ok := a.(*big.Int); ok {
		return bigEqualsNumber(x, ToNumber(b))
	}
	if y, ok := b.(*big.Int); ok {
		return bigEqualsNumber(y, ToNumber(a))
	}
	if _, ok := a.(*Symbol); ok {
		return false
	}
	if _, ok := b.(*Symbol); ok {
		return false
	}
	return ToNumber(a) == ToNumber(b)
}

func bigEqualsNumber(x *big.Int, f float64) bool {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return false
	}
	y, _ := new(big.Float).SetFloat64(f).Int(nil)
	return x.Cmp(y) == 0
}

// ToPrimitive reduces a composite to a primitive for operators.
func ToPrimitive(v Value) Value {
	switch x := v.(type) {
	case *Date:
		return ToString(x)
	case *Array, *Object, *Set, *RegExp:
		return ToString(x)
	}
	return v
}

// Add implements +.
func Add(a, b Value) (Value, error) {
	a, b = ToPrimitive(a), ToPrimitive(b)
	if sa, ok := a.(string); ok {
		return sa + ToString(b), nil
	}
	if sb, ok := b.(string); ok {
		return ToString(a) + sb, nil
	}
	return Arithmetic("+", a, b)
}

// Arithmetic implements the numeric binary operators - * / % ** and, for
// bigint operands, + as well. Bitwise and shift operators are included.
func Arithmetic(op string, a, b Value) (Value, error) {
	ba, aBig := a.(*big.Int)
	bb, bBig := b.(*big.Int)
	if aBig || bBig {
		if !aBig || !bBig {
			return nil, Errorf("cannot mix BigInt and other types, use explicit conversions")
		}
		return bigArithmetic(op, ba, bb)
	}
	if _, ok := a.(*Symbol); ok {
		return nil, Errorf("cannot convert a Symbol value to a number")
	}
	if _, ok := b.(*Symbol); ok {
		return nil, Errorf("cannot convert a Symbol value to a number")
	}
	x, y := ToNumber(a), ToNumber(b)
	switch op {
	case "+":
		return x + y, nil
	case "-":
		return x - y, nil
	case "*":
		return x * y, nil
	case "/":
		return x / y, nil
	case "%":
		if y == 0 || math.IsInf(x, 0) || math.IsNaN(x) || math.IsNaN(y) {
			return math.NaN(), nil
		}
		if math.IsInf(y, 0) {
			return x, nil
		}
		return math.Mod(x, y), nil
	case "**":
		if math.IsNaN(y) || (math.Abs(x) == 1 && math.IsInf(y, 0)) {
			return math.NaN(), nil
		}
		return math.Pow(x, y), nil
	case "&":
		return float64(toInt32(x) & toInt32(y)), nil
	case "|":
		return float64(toInt32(x) | toInt32(y)), nil
	case "^":
		return float64(toInt32(x) ^ toInt32(y)), nil
	case "<<":
		return float64(toInt32(x) << (toUint32(y) & 31)), nil
	case ">>":
		return float64(toInt32(x) >> (toUint32(y) & 31)), nil
	case ">>>":
		return float64(toUint32(x) >> (toUint32(y) & 31)), nil
	}
	return nil, Errorf("unsupported operator %s", op)
}

func bigArithmetic(op string, a, b *big.Int) (Value, error) {
	r := new(big.Int)
	switch op {
	case "+":
		return r.Add(a, b), nil
	case "-":
		return r.Sub(a, b), nil
	case "*":
		return r.Mul(a, b), nil
	case "/":
		if b.Sign() == 0 {
			return nil, &TypeError{Message: "division by zero"}
		}
		return r.Quo(a, b), nil
	case "%":
		if b.Sign() == 0 {
			return nil, &TypeError{Message: "division by zero"}
		}
		return r.Rem(a, b), nil
	case "**":
		if b.Sign() < 0 {
			return nil, Errorf("exponent must be non-negative")
		}
		return r.Exp(a, b, nil), nil
	case "&":
		return r.And(a, b), nil
	case "|":
		return r.Or(a, b), nil
	case "^":
		return r.Xor(a, b), nil
	case "<<":
		return r.Lsh(a, uint(b.Uint64())), nil
	case ">>":
		return r.Rsh(a, uint(b.Uint64())), nil
	}
	return nil, Errorf("unsupported BigInt operator %s", op)
}

func toInt32(f float64) int32 {
	return int32(toUint32(f))
}

func toUint32(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return uint32(int64(math.Mod(math.Trunc(f), 1<<32)))
}

// Compare implements < <= > >=. Comparisons with NaN are false.
func Compare(op string, a, b Value) (bool, error) {
	a, b = ToPrimitive(a), ToPrimitive(b)
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			c := strings.Compare(sa, sb)
			return cmpResult(op, c), nil
		}
	}
	ba, aBig := a.(*big.Int)
	bb, bBig := b.(*big.Int)
	switch {
	case aBig && bBig:
		return cmpResult(op, ba.Cmp(bb)), nil
	case aBig || bBig:
		var f float64
		var n *big.Int
		if aBig {
			n, f = ba, ToNumber(b)
		} else {
			n, f = bb, ToNumber(a)
		}
		if math.IsNaN(f) {
			return false, nil
		}
		c := new(big.Float).SetInt(n).Cmp(big.NewFloat(f))
		if !aBig {
			c = -c
		}
		return cmpResult(op, c), nil
	}
	x, y := ToNumber(a), ToNumber(b)
	if math.IsNaN(x) || math.IsNaN(y) {
		return false, nil
	}
	c := 0
	if x < y {
		c = -1
	} else if x > y {
		c = 1
	}
	return cmpResult(op, c), nil
}

func cmpResult(op string, c int) bool {
	switch op {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return false
}
