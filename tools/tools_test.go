package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/everydev1618/vegascript/value"
)

func echoTool() *Tool {
	return &Tool{
		Description: "Echoes its input",
		Handler: func(ctx context.Context, call *Call) (Outcome, error) {
			return Done(call.Input), nil
		},
	}
}

func TestRegisterNamespaces(t *testing.T) {
	r := NewRuntime()
	r.MustRegister("github.issues.create", echoTool())
	r.MustRegister("github.issues.list", echoTool())
	r.MustRegister("search", echoTool())

	e, ok := r.Resolve("github")
	if !ok || e.IsTool() {
		t.Fatalf("github should resolve to a namespace, got %+v", e)
	}
	if e.Namespace.Name() != "github" {
		t.Errorf("Name() = %q, want github", e.Namespace.Name())
	}
	e, ok = r.Resolve("github", "issues", "create")
	if !ok || !e.IsTool() || e.Tool.Name != "github.issues.create" {
		t.Fatalf("Resolve(github.issues.create) = %+v, %v", e, ok)
	}
	if _, ok := r.Resolve("github", "pulls"); ok {
		t.Error("github.pulls should not resolve")
	}

	want := []string{"github.issues.create", "github.issues.list", "search"}
	got := r.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	globals := r.Globals()
	if len(globals) != 2 || globals[0] != "github" || globals[1] != "search" {
		t.Errorf("Globals() = %v", globals)
	}
	if !r.Has("search") || r.Has("missing") {
		t.Error("Has() mismatch")
	}
}

func TestRegisterErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   []string
		path    string
		tool    *Tool
		wantErr error
	}{
		{name: "duplicate", setup: []string{"a"}, path: "a", tool: echoTool(), wantErr: ErrToolAlreadyRegistered},
		{name: "through tool", setup: []string{"a"}, path: "a.b", tool: echoTool(), wantErr: ErrToolAlreadyRegistered},
		{name: "over namespace", setup: []string{"a.b"}, path: "a", tool: echoTool(), wantErr: ErrToolAlreadyRegistered},
		{name: "empty path", path: "", tool: echoTool(), wantErr: ErrInvalidPath},
		{name: "empty segment", path: "a..b", tool: echoTool(), wantErr: ErrInvalidPath},
		{name: "no handler", path: "x", tool: &Tool{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRuntime()
			for _, p := range tt.setup {
				r.MustRegister(p, echoTool())
			}
			err := r.Register(tt.path, tt.tool)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLookupNotFound(t *testing.T) {
	r := NewRuntime()
	r.MustRegister("ns.tool", echoTool())

	for _, path := range []string{"missing", "ns", "ns.tool.extra"} {
		_, err := r.Lookup(path)
		if !errors.Is(err, ErrToolNotFound) {
			t.Errorf("Lookup(%q) err = %v, want ErrToolNotFound", path, err)
		}
	}
}

func TestInvokeMiddleware(t *testing.T) {
	var order []string
	trace := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, call *Call) (Outcome, error) {
				order = append(order, name)
				return next(ctx, call)
			}
		}
	}

	r := NewRuntime(WithMiddleware(trace("outer")))
	r.Use(trace("inner"))
	r.MustRegister("echo", echoTool())

	tl, _ := r.Lookup("echo")
	out, err := r.Invoke(context.Background(), tl, &Call{Tool: "echo", Input: "hi"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out.Value() != "hi" {
		t.Errorf("Value() = %v, want hi", out.Value())
	}
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("middleware order = %v, want [outer inner]", order)
	}
}

func TestInvokeErrors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name  string
		tool  *Tool
		check func(t *testing.T, err error)
	}{
		{
			name: "handler failure",
			tool: &Tool{Handler: func(ctx context.Context, call *Call) (Outcome, error) {
				return Outcome{}, boom
			}},
			check: func(t *testing.T, err error) {
				var he *HandlerError
				if !errors.As(err, &he) || !errors.Is(err, boom) {
					t.Errorf("err = %v, want HandlerError wrapping boom", err)
				}
			},
		},
		{
			name: "await without event schema",
			tool: &Tool{Handler: func(ctx context.Context, call *Call) (Outcome, error) {
				return Await(), nil
			}},
			check: func(t *testing.T, err error) {
				var he *HandlerError
				if !errors.As(err, &he) || !errors.Is(err, ErrNoEventSchema) {
					t.Errorf("err = %v, want HandlerError wrapping ErrNoEventSchema", err)
				}
			},
		},
		{
			name: "output mismatch",
			tool: &Tool{
				Output: &jsonschema.Schema{Type: "number"},
				Handler: func(ctx context.Context, call *Call) (Outcome, error) {
					return Done("not a number"), nil
				},
			},
			check: func(t *testing.T, err error) {
				var ve *ValidationError
				if !errors.As(err, &ve) || ve.Role != RoleOutput {
					t.Errorf("err = %v, want output ValidationError", err)
				}
			},
		},
		{
			name: "unconvertible output",
			tool: &Tool{Handler: func(ctx context.Context, call *Call) (Outcome, error) {
				return Done(func() {}), nil
			}},
			check: func(t *testing.T, err error) {
				var he *HandlerError
				if !errors.As(err, &he) {
					t.Errorf("err = %v, want HandlerError", err)
				}
			},
		},
		{
			name: "unconvertible state",
			tool: &Tool{
				State: &jsonschema.Schema{Type: "object"},
				Handler: func(ctx context.Context, call *Call) (Outcome, error) {
					call.State.Set(struct{}{})
					return Done(1.0), nil
				},
			},
			check: func(t *testing.T, err error) {
				var he *HandlerError
				if !errors.As(err, &he) {
					t.Errorf("err = %v, want HandlerError", err)
				}
			},
		},
		{
			name: "state mismatch",
			tool: &Tool{
				State: &jsonschema.Schema{Type: "object"},
				Handler: func(ctx context.Context, call *Call) (Outcome, error) {
					call.State.Set("flat")
					return Done(1.0), nil
				},
			},
			check: func(t *testing.T, err error) {
				var ve *ValidationError
				if !errors.As(err, &ve) || ve.Role != RoleState {
					t.Errorf("err = %v, want state ValidationError", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRuntime()
			r.MustRegister("t", tt.tool)
			call := &Call{Tool: "t", Input: value.Undefined, State: NewStateHandle(tt.tool.InitialState())}
			_, err := r.Invoke(context.Background(), tt.tool, call)
			tt.check(t, err)
		})
	}
}

func TestInvokeCoercesOutput(t *testing.T) {
	r := NewRuntime()
	r.MustRegister("count", &Tool{
		Output: &jsonschema.Schema{Type: "number"},
		Handler: func(ctx context.Context, call *Call) (Outcome, error) {
			return Done("42"), nil
		},
	})
	tl, _ := r.Lookup("count")
	out, err := r.Invoke(context.Background(), tl, &Call{Tool: "count"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out.Value() != 42.0 {
		t.Errorf("Value() = %v (%T), want 42", out.Value(), out.Value())
	}
}

func TestInvokeNormalizesNative(t *testing.T) {
	shared := value.NewArray(int64(7))
	tests := []struct {
		name string
		out  any
		want string
	}{
		{"int", 41, `41`},
		{"uint8", uint8(3), `3`},
		{"native map", map[string]any{"b": []any{1, "x"}, "a": int32(2)}, `{"a":2,"b":[1,"x"]}`},
		{"array member", value.NewArray(1, value.ObjectOf("n", int16(5))), `[1,{"n":5}]`},
		{"shared member", value.ObjectOf("p", shared, "q", shared), `{"p":[7],"q":[7]}`},
		{"value", "already", `"already"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRuntime()
			tl := &Tool{Handler: func(ctx context.Context, call *Call) (Outcome, error) {
				return Done(tt.out), nil
			}}
			r.MustRegister("native", tl)
			out, err := r.Invoke(context.Background(), tl, &Call{Tool: "native"})
			if err != nil {
				t.Fatalf("Invoke: %v", err)
			}
			got, ok, err := value.Stringify(out.Value(), "")
			if err != nil || !ok {
				t.Fatalf("Stringify(%#v) = %v, %v", out.Value(), ok, err)
			}
			if got != tt.want {
				t.Errorf("Value() = %s, want %s", got, tt.want)
			}
		})
	}

	r := NewRuntime()
	tl := &Tool{
		State: &jsonschema.Schema{Type: "object"},
		Handler: func(ctx context.Context, call *Call) (Outcome, error) {
			call.State.Set(map[string]any{"count": 1})
			return Done(nil), nil
		},
	}
	r.MustRegister("stateful", tl)
	call := &Call{Tool: "stateful", State: NewStateHandle(tl.InitialState())}
	if _, err := r.Invoke(context.Background(), tl, call); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	st, ok := call.State.Get().(*value.Object)
	if !ok || st.Lookup("count") != 1.0 {
		t.Errorf("state = %#v, want object with count 1", call.State.Get())
	}
}

func TestCoerce(t *testing.T) {
	tl := &Tool{
		Name: "t",
		Input: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"limit":   {Type: "integer", Default: []byte("10")},
				"query":   {Type: "string"},
				"verbose": {Type: "boolean"},
				"tags":    {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			},
			Required: []string{"query"},
		},
	}
	if err := tl.compile(); err != nil {
		t.Fatalf("compile: %v", err)
	}

	t.Run("fills defaults and converts scalars", func(t *testing.T) {
		in := value.ObjectOf(
			"query", 7.0,
			"verbose", "true",
			"tags", &value.Array{Items: []value.Value{1.0, true}},
		)
		out, err := tl.Coerce(RoleInput, in)
		if err != nil {
			t.Fatalf("Coerce: %v", err)
		}
		obj := out.(*value.Object)
		if obj.Lookup("query") != "7" {
			t.Errorf("query = %v, want \"7\"", obj.Lookup("query"))
		}
		if obj.Lookup("verbose") != true {
			t.Errorf("verbose = %v, want true", obj.Lookup("verbose"))
		}
		if obj.Lookup("limit") != 10.0 {
			t.Errorf("limit = %v, want 10", obj.Lookup("limit"))
		}
		tags := obj.Lookup("tags").(*value.Array)
		if tags.Items[0] != "1" || tags.Items[1] != "true" {
			t.Errorf("tags = %v", tags.Items)
		}
		keys := obj.Keys()
		if keys[len(keys)-1] != "limit" {
			t.Errorf("defaults should follow supplied keys, got %v", keys)
		}
	})

	t.Run("missing required property", func(t *testing.T) {
		_, err := tl.Coerce(RoleInput, value.ObjectOf("limit", 1.0))
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Role != RoleInput {
			t.Errorf("err = %v, want input ValidationError", err)
		}
	})

	t.Run("no schema passes through", func(t *testing.T) {
		v := value.ObjectOf("anything", 1.0)
		out, err := tl.Coerce(RoleEvent, v)
		if err != nil || out != v {
			t.Errorf("Coerce(event) = %v, %v, want input unchanged", out, err)
		}
	})
}

func TestInitialState(t *testing.T) {
	tests := []struct {
		name  string
		state *jsonschema.Schema
		check func(t *testing.T, v value.Value)
	}{
		{
			name: "stateless",
			check: func(t *testing.T, v value.Value) {
				if !value.IsUndefined(v) {
					t.Errorf("state = %v, want undefined", v)
				}
			},
		},
		{
			name:  "top-level default",
			state: &jsonschema.Schema{Type: "number", Default: []byte("3")},
			check: func(t *testing.T, v value.Value) {
				if v != 3.0 {
					t.Errorf("state = %v, want 3", v)
				}
			},
		},
		{
			name: "object with property defaults",
			state: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"attempts": {Type: "number", Default: []byte("0")},
					"cursor":   {Type: "string"},
				},
			},
			check: func(t *testing.T, v value.Value) {
				obj, ok := v.(*value.Object)
				if !ok {
					t.Fatalf("state = %v, want object", v)
				}
				if obj.Lookup("attempts") != 0.0 {
					t.Errorf("attempts = %v, want 0", obj.Lookup("attempts"))
				}
				if obj.Has("cursor") {
					t.Error("cursor has no default and should be absent")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := &Tool{State: tt.state}
			tt.check(t, tl.InitialState())
		})
	}
}

func TestCallPending(t *testing.T) {
	call := &Call{}
	if len(call.Pending()) != 0 {
		t.Fatal("no events should mean nothing pending")
	}
	native, err := (&Call{Input: "x"}).Native()
	if err != nil || native["input"] != "x" {
		t.Errorf("Native() = %v, %v", native, err)
	}
}

func TestCatalog(t *testing.T) {
	r := NewRuntime()
	r.MustRegister("github.issues.create", &Tool{
		Description: "Create an issue",
		Tags:        []string{"GitHub"},
		Event:       &jsonschema.Schema{Type: "object"},
		State:       &jsonschema.Schema{Type: "object"},
		Handler:     echoTool().Handler,
	})
	r.MustRegister("search", echoTool())

	cat := r.Catalog()
	if len(cat) != 2 {
		t.Fatalf("Catalog() has %d entries, want 2", len(cat))
	}
	gh := cat[0]
	if gh.Namespace != "github.issues" || gh.Name != "create" {
		t.Errorf("namespace/name = %q/%q", gh.Namespace, gh.Name)
	}
	tags := make(map[string]bool)
	for _, tag := range gh.Tags {
		tags[tag] = true
	}
	for _, want := range []string{"github", "awaits-events", "stateful"} {
		if !tags[want] {
			t.Errorf("tags %v missing %q", gh.Tags, want)
		}
	}
	if cat[1].Namespace != "" || cat[1].Name != "search" {
		t.Errorf("search entry = %q/%q", cat[1].Namespace, cat[1].Name)
	}
	if cat[1].InputSchema == nil {
		t.Error("tools without an input schema should advertise an object schema")
	}
}

func TestSuggest(t *testing.T) {
	r := NewRuntime()
	r.MustRegister("search", echoTool())
	r.MustRegister("github.issues.create", echoTool())

	tests := []struct {
		target string
		want   string
		ok     bool
	}{
		{"serch", "search", true},
		{"github.issues.creat", "github.issues.create", true},
		{"zzzzzz", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := r.Suggest(tt.target)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Suggest(%q) = %q, %v, want %q, %v", tt.target, got, ok, tt.want, tt.ok)
		}
	}
}
