package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"math/big"
	"strings"
)

// Stringify renders v as JSON the way JSON.stringify does: object keys keep
// insertion order, undefined members are dropped, non-finite numbers become
// null and dates become ISO strings. It returns a TypeError for cycles and
// bigints. The second result is false when v itself has no JSON form.
func Stringify(v Value, indent string) (string, bool, error) {
	var b strings.Builder
	st := stringifier{b: &b, indent: indent, stack: map[any]bool{}}
	ok, err := st.write(v, "")
	if err != nil || !ok {
		return "", false, err
	}
	return b.String(), true, nil
}

type stringifier struct {
	b      *strings.Builder
	indent string
	stack  map[any]bool
}

func (s *stringifier) write(v Value, cur string) (bool, error) {
	switch x := v.(type) {
	case UndefinedType, *Symbol:
		return false, nil
	case nil:
		s.b.WriteString("null")
	case bool:
		if x {
			s.b.WriteString("true")
		} else {
			s.b.WriteString("false")
		}
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			s.b.WriteString("null")
		} else {
			s.b.WriteString(NumberToString(x))
		}
	case string:
		s.quote(x)
	case *big.Int:
		return false, Errorf("do not know how to serialize a BigInt")
	case *Date:
		if x.Invalid {
			s.b.WriteString("null")
		} else {
			s.quote(x.ISO())
		}
	case *Array:
		if s.stack[x] {
			return false, Errorf("converting circular structure to JSON")
		}
		s.stack[x] = true
		defer delete(s.stack, x)
		if len(x.Items) == 0 {
			s.b.WriteString("[]")
			return true, nil
		}
		inner := cur + s.indent
		s.b.WriteByte('[')
		for i, it := range x.Items {
			if i > 0 {
				s.b.WriteByte(',')
			}
			s.newline(inner)
			ok, err := s.write(it, inner)
			if err != nil {
				return false, err
			}
			if !ok {
				s.b.WriteString("null")
			}
		}
		s.newline(cur)
		s.b.WriteByte(']')
	case *Object:
		if s.stack[x] {
			return false, Errorf("converting circular structure to JSON")
		}
		s.stack[x] = true
		defer delete(s.stack, x)
		inner := cur + s.indent
		s.b.WriteByte('{')
		n := 0
		var err error
		x.Each(func(k string, it Value) {
			if err != nil || !hasJSON(it) {
				return
			}
			if n > 0 {
				s.b.WriteByte(',')
			}
			n++
			s.newline(inner)
			s.quote(k)
			s.b.WriteByte(':')
			if s.indent != "" {
				s.b.WriteByte(' ')
			}
			_, err = s.write(it, inner)
		})
		if err != nil {
			return false, err
		}
		if n > 0 {
			s.newline(cur)
		}
		s.b.WriteByte('}')
	default:
		s.b.WriteString("{}")
	}
	return true, nil
}

func hasJSON(v Value) bool {
	switch v.(type) {
	case UndefinedType, *Symbol:
		return false
	}
	return true
}

func (s *stringifier) newline(cur string) {
	if s.indent == "" {
		return
	}
	s.b.WriteByte('\n')
	s.b.WriteString(cur)
}

func (s *stringifier) quote(str string) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(str)
	s.b.Write(bytes.TrimRight(buf.Bytes(), "\n"))
}

// SyntaxError reports malformed JSON text.
type SyntaxError struct {
	Message string
}

func (e *SyntaxError) Error() string {
	return "SyntaxError: " + e.Message
}

// ParseJSON decodes text into a Value, keeping object key order.
func ParseJSON(text string) (Value, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, syntaxError(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, syntaxError(errors.New("unexpected data after JSON value"))
	}
	return v, nil
}

func syntaxError(err error) error {
	return &SyntaxError{Message: err.Error()}
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, errors.New("object key must be a string")
				}
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := NewArray()
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr.Items = append(arr.Items, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, errors.New("unexpected delimiter")
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case string, bool, nil:
		return t, nil
	}
	return nil, errors.New("unexpected token")
}
