package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/everydev1618/vegascript/value"
)

// Role names which schema of a tool a value is checked against.
type Role string

const (
	RoleInput  Role = "input"
	RoleOutput Role = "output"
	RoleState  Role = "state"
	RoleEvent  Role = "event"
)

// ValidationError is a value that does not satisfy one of a tool's schemas.
type ValidationError struct {
	ToolName string
	Role     Role
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid %s: %v", e.ToolName, e.Role, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (t *Tool) schema(role Role) *jsonschema.Schema {
	switch role {
	case RoleInput:
		return t.Input
	case RoleOutput:
		return t.Output
	case RoleState:
		return t.State
	case RoleEvent:
		return t.Event
	}
	return nil
}

// compile resolves every declared schema once so invalid schemas surface at
// registration time.
func (t *Tool) compile() error {
	t.resolved = make(map[Role]*jsonschema.Resolved)
	for _, role := range []Role{RoleInput, RoleOutput, RoleState, RoleEvent} {
		s := t.schema(role)
		if s == nil {
			continue
		}
		rs, err := s.Resolve(nil)
		if err != nil {
			return fmt.Errorf("%s schema: %w", role, err)
		}
		t.resolved[role] = rs
	}
	return nil
}

// Coerce converts v toward the schema for role and validates the result.
// Missing object properties with defaults are filled in, numeric strings
// become numbers where a number is expected, and scalars become strings
// where a string is expected. A tool without a schema for role accepts
// anything unchanged.
func (t *Tool) Coerce(role Role, v value.Value) (value.Value, error) {
	s := t.schema(role)
	if s == nil {
		return v, nil
	}
	out := coerce(s, v)
	native, err := value.ToNative(out)
	if err != nil {
		return nil, &ValidationError{ToolName: t.Name, Role: role, Err: err}
	}
	rs := t.resolved[role]
	if rs == nil {
		if rs, err = s.Resolve(nil); err != nil {
			return nil, &ValidationError{ToolName: t.Name, Role: role, Err: err}
		}
	}
	if err := rs.Validate(native); err != nil {
		return nil, &ValidationError{ToolName: t.Name, Role: role, Err: err}
	}
	return out, nil
}

// InitialState builds the starting state of a call from the state schema's
// defaults.
func (t *Tool) InitialState() value.Value {
	if t.State == nil {
		return value.Undefined
	}
	v := defaultOf(t.State)
	if value.IsUndefined(v) && schemaType(t.State) == "object" {
		v = coerce(t.State, value.NewObject())
	}
	return v
}

func schemaType(s *jsonschema.Schema) string {
	if s.Type != "" {
		return s.Type
	}
	for _, ty := range s.Types {
		if ty != "null" {
			return ty
		}
	}
	if len(s.Properties) > 0 {
		return "object"
	}
	return ""
}

func defaultOf(s *jsonschema.Schema) value.Value {
	if len(s.Default) == 0 {
		return value.Undefined
	}
	v, err := value.ParseJSON(string(s.Default))
	if err != nil {
		return value.Undefined
	}
	return v
}

func coerce(s *jsonschema.Schema, v value.Value) value.Value {
	if s == nil {
		return v
	}
	if value.IsUndefined(v) {
		if d := defaultOf(s); !value.IsUndefined(d) {
			return d
		}
		return v
	}
	switch schemaType(s) {
	case "object":
		obj, ok := v.(*value.Object)
		if !ok {
			return v
		}
		out := value.NewObject()
		obj.Each(func(k string, it value.Value) {
			out.Set(k, coerce(s.Properties[k], it))
		})
		for _, k := range sortedKeys(s.Properties) {
			if out.Has(k) {
				continue
			}
			if d := coerce(s.Properties[k], value.Undefined); !value.IsUndefined(d) {
				out.Set(k, d)
			}
		}
		return out
	case "array":
		arr, ok := v.(*value.Array)
		if !ok || s.Items == nil {
			return v
		}
		out := &value.Array{Items: make([]value.Value, len(arr.Items))}
		for i, it := range arr.Items {
			out.Items[i] = coerce(s.Items, it)
		}
		return out
	case "number":
		if str, ok := v.(string); ok {
			if f := value.StringToNumber(str); !math.IsNaN(f) && str != "" {
				return f
			}
		}
	case "integer":
		if str, ok := v.(string); ok {
			if n, err := strconv.ParseInt(str, 10, 64); err == nil {
				return float64(n)
			}
		}
	case "string":
		switch x := v.(type) {
		case float64, bool:
			return value.ToString(x)
		case *value.Date:
			return x.ISO()
		}
	case "boolean":
		if str, ok := v.(string); ok {
			switch str {
			case "true":
				return true
			case "false":
				return false
			}
		}
	}
	return v
}

func sortedKeys(m map[string]*jsonschema.Schema) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SchemaFromJSON decodes a JSON Schema document.
func SchemaFromJSON(data []byte) (*jsonschema.Schema, error) {
	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return &s, nil
}

// SchemaFromNative converts decoded YAML or JSON data into a schema.
func SchemaFromNative(n any) (*jsonschema.Schema, error) {
	if n == nil {
		return nil, nil
	}
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	return SchemaFromJSON(data)
}
