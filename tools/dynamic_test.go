package tools

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/everydev1618/vegascript/frame"
	"github.com/everydev1618/vegascript/value"
)

// execute runs a tool the way the interpreter does: coerce the input, then
// invoke the handler through the runtime.
func execute(r *Runtime, name string, params map[string]any) (value.Value, error) {
	t, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	in, err := value.FromNative(params)
	if err != nil {
		return nil, err
	}
	in, err = t.Coerce(RoleInput, in)
	if err != nil {
		return nil, err
	}
	out, err := r.Invoke(context.Background(), t, &Call{Tool: name, Trace: "0:0:0", Input: in})
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

func executeString(r *Runtime, name string, params map[string]any) (string, error) {
	v, err := execute(r, name, params)
	if err != nil {
		return "", err
	}
	return value.ToString(v), nil
}

// --- RegisterDynamicTool ---

func TestRegisterDynamicTool(t *testing.T) {
	t.Run("exec type registers and executes", func(t *testing.T) {
		r := NewRuntime()
		err := r.RegisterDynamicTool(DynamicToolDef{
			Name:        "say_hello",
			Description: "Says hello",
			Params:      []DynamicParamDef{{Name: "name", Type: "string", Required: true}},
			Implementation: DynamicToolImpl{
				Type:    "exec",
				Command: "echo hello {{.name}}",
			},
		})
		if err != nil {
			t.Fatalf("RegisterDynamicTool: %v", err)
		}

		result, err := executeString(r, "say_hello", map[string]any{"name": "world"})
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		if !strings.Contains(result, "hello world") {
			t.Errorf("result = %q, want to contain 'hello world'", result)
		}
	})

	t.Run("unknown implementation type returns error", func(t *testing.T) {
		r := NewRuntime()
		err := r.RegisterDynamicTool(DynamicToolDef{
			Name:           "bad_tool",
			Implementation: DynamicToolImpl{Type: "magic"},
		})
		if err == nil {
			t.Fatal("expected error for unknown type, got nil")
		}
	})

	t.Run("duplicate name returns error", func(t *testing.T) {
		r := NewRuntime()
		def := DynamicToolDef{
			Name:           "dup",
			Implementation: DynamicToolImpl{Type: "exec", Command: "echo ok"},
		}
		if err := r.RegisterDynamicTool(def); err != nil {
			t.Fatalf("first register: %v", err)
		}
		if err := r.RegisterDynamicTool(def); err == nil {
			t.Fatal("expected error on duplicate register, got nil")
		}
	})

	t.Run("params are reflected in schema", func(t *testing.T) {
		r := NewRuntime()
		r.RegisterDynamicTool(DynamicToolDef{
			Name:        "weather.lookup",
			Description: "Has params",
			Params: []DynamicParamDef{
				{Name: "city", Type: "string", Required: true, Description: "The city"},
				{Name: "units", Type: "string", Enum: []string{"metric", "imperial"}, Default: "metric"},
			},
			Implementation: DynamicToolImpl{Type: "exec", Command: "echo ok"},
		})

		tl, err := r.Lookup("weather.lookup")
		if err != nil {
			t.Fatalf("Lookup: %v", err)
		}
		if _, ok := tl.Input.Properties["city"]; !ok {
			t.Error("city should be in schema properties")
		}
		if len(tl.Input.Required) != 1 || tl.Input.Required[0] != "city" {
			t.Errorf("Required = %v, want [city]", tl.Input.Required)
		}

		in, err := tl.Coerce(RoleInput, value.ObjectOf("city", "Oslo"))
		if err != nil {
			t.Fatalf("Coerce: %v", err)
		}
		if got := in.(*value.Object).Lookup("units"); got != "metric" {
			t.Errorf("units default = %v, want metric", got)
		}
		if _, err := tl.Coerce(RoleInput, value.ObjectOf("city", "Oslo", "units", "kelvin")); err == nil {
			t.Error("enum violation should fail validation")
		}
	})
}

// --- LoadFile ---

func TestLoadFile(t *testing.T) {
	t.Run("loads valid YAML and registers tool", func(t *testing.T) {
		dir := t.TempDir()
		yaml := `
name: greet
description: Greets someone
params:
  - name: name
    type: string
    required: true
implementation:
  type: exec
  command: echo hi {{.name}}
`
		path := filepath.Join(dir, "greet.yaml")
		if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
			t.Fatal(err)
		}

		r := NewRuntime()
		if err := r.LoadFile(path); err != nil {
			t.Fatalf("LoadFile: %v", err)
		}

		result, err := executeString(r, "greet", map[string]any{"name": "Alice"})
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		if !strings.Contains(result, "Alice") {
			t.Errorf("result = %q, want to contain 'Alice'", result)
		}
	})

	t.Run("file not found returns error", func(t *testing.T) {
		r := NewRuntime()
		if err := r.LoadFile("/nonexistent/path.yaml"); err == nil {
			t.Fatal("expected error for missing file")
		}
	})

	t.Run("invalid YAML returns error", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "bad.yaml")
		if err := os.WriteFile(path, []byte(":\t invalid: [yaml"), 0644); err != nil {
			t.Fatal(err)
		}
		r := NewRuntime()
		if err := r.LoadFile(path); err == nil {
			t.Fatal("expected error for invalid YAML")
		}
	})

	t.Run("unknown impl type in file returns error", func(t *testing.T) {
		dir := t.TempDir()
		yaml := "name: bad\nimplementation:\n  type: unknown\n"
		path := filepath.Join(dir, "bad.yaml")
		os.WriteFile(path, []byte(yaml), 0644)

		r := NewRuntime()
		if err := r.LoadFile(path); err == nil {
			t.Fatal("expected error for unknown implementation type")
		}
	})
}

// --- LoadDirectory ---

func TestLoadDirectory(t *testing.T) {
	t.Run("loads .yaml and .yml files", func(t *testing.T) {
		dir := t.TempDir()
		write := func(name, content string) {
			t.Helper()
			if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
				t.Fatal(err)
			}
		}
		write("alpha.yaml", "name: alpha\nimplementation:\n  type: exec\n  command: echo alpha\n")
		write("beta.yml", "name: beta\nimplementation:\n  type: exec\n  command: echo beta\n")

		r := NewRuntime()
		if err := r.LoadDirectory(dir); err != nil {
			t.Fatalf("LoadDirectory: %v", err)
		}

		names := toolNames(r)
		if !names["alpha"] {
			t.Error("alpha should be registered")
		}
		if !names["beta"] {
			t.Error("beta should be registered")
		}
	})

	t.Run("skips non-YAML files", func(t *testing.T) {
		dir := t.TempDir()
		os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("not yaml"), 0644)
		os.WriteFile(filepath.Join(dir, "script.sh"), []byte("#!/bin/bash"), 0644)

		r := NewRuntime()
		if err := r.LoadDirectory(dir); err != nil {
			t.Fatalf("LoadDirectory: %v", err)
		}
		if len(r.Names()) != 0 {
			t.Errorf("expected 0 tools, got %d", len(r.Names()))
		}
	})

	t.Run("skips subdirectories", func(t *testing.T) {
		dir := t.TempDir()
		subdir := filepath.Join(dir, "sub")
		os.Mkdir(subdir, 0755)
		os.WriteFile(filepath.Join(subdir, "nested.yaml"),
			[]byte("name: nested\nimplementation:\n  type: exec\n  command: echo ok\n"), 0644)

		r := NewRuntime()
		if err := r.LoadDirectory(dir); err != nil {
			t.Fatalf("LoadDirectory: %v", err)
		}
		if len(r.Names()) != 0 {
			t.Errorf("expected 0 tools (subdirs skipped), got %d", len(r.Names()))
		}
	})

	t.Run("directory not found returns error", func(t *testing.T) {
		r := NewRuntime()
		if err := r.LoadDirectory("/nonexistent/dir"); err == nil {
			t.Fatal("expected error for missing directory")
		}
	})
}

// --- Exec executor ---

func TestExecExecutor(t *testing.T) {
	t.Run("runs command and captures stdout", func(t *testing.T) {
		r := NewRuntime()
		r.RegisterDynamicTool(DynamicToolDef{
			Name:           "run_echo",
			Implementation: DynamicToolImpl{Type: "exec", Command: "echo hello"},
		})
		result, err := executeString(r, "run_echo", map[string]any{})
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		if !strings.Contains(result, "hello") {
			t.Errorf("result = %q, want to contain 'hello'", result)
		}
	})

	t.Run("settings fill missing params", func(t *testing.T) {
		r := NewRuntime(WithSettings(map[string]any{"name": "Carol"}))
		r.RegisterDynamicTool(DynamicToolDef{
			Name:           "greet",
			Implementation: DynamicToolImpl{Type: "exec", Command: "echo {{.name}}"},
		})
		result, err := executeString(r, "greet", map[string]any{})
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		if !strings.Contains(result, "Carol") {
			t.Errorf("result = %q, want to contain 'Carol'", result)
		}
	})

	t.Run("json output is decoded", func(t *testing.T) {
		r := NewRuntime()
		r.RegisterDynamicTool(DynamicToolDef{
			Name:           "emit",
			Implementation: DynamicToolImpl{Type: "exec", Command: `echo '{"n":3}'`, Parse: "json"},
		})
		v, err := execute(r, "emit", map[string]any{})
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		obj, ok := v.(*value.Object)
		if !ok || obj.Lookup("n") != 3.0 {
			t.Errorf("result = %v, want {n: 3}", v)
		}
	})

	t.Run("returns handler error on non-zero exit code", func(t *testing.T) {
		r := NewRuntime()
		r.RegisterDynamicTool(DynamicToolDef{
			Name:           "fail_cmd",
			Implementation: DynamicToolImpl{Type: "exec", Command: "false"},
		})
		_, err := execute(r, "fail_cmd", map[string]any{})
		var he *HandlerError
		if !errors.As(err, &he) {
			t.Fatalf("err = %v, want *HandlerError", err)
		}
	})

	t.Run("respects quoted arguments", func(t *testing.T) {
		r := NewRuntime()
		r.RegisterDynamicTool(DynamicToolDef{
			Name:           "quoted",
			Implementation: DynamicToolImpl{Type: "exec", Command: "echo 'hello world'"},
		})
		result, err := executeString(r, "quoted", map[string]any{})
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		if !strings.Contains(result, "hello world") {
			t.Errorf("result = %q, want 'hello world'", result)
		}
	})
}

// --- File executors ---

func TestFileExecutors(t *testing.T) {
	t.Run("file_write then file_read round-trips content", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "test.txt")

		r := NewRuntime()
		r.RegisterDynamicTool(DynamicToolDef{Name: "fs.write", Implementation: DynamicToolImpl{Type: "file_write"}})
		r.RegisterDynamicTool(DynamicToolDef{Name: "fs.read", Implementation: DynamicToolImpl{Type: "file_read"}})

		if _, err := execute(r, "fs.write", map[string]any{
			"path": path, "content": "hello from dynamic tool",
		}); err != nil {
			t.Fatalf("write: %v", err)
		}

		result, err := executeString(r, "fs.read", map[string]any{"path": path})
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if result != "hello from dynamic tool" {
			t.Errorf("content = %q, want 'hello from dynamic tool'", result)
		}
	})

	t.Run("file_read missing path returns error", func(t *testing.T) {
		r := NewRuntime()
		r.RegisterDynamicTool(DynamicToolDef{Name: "read_it", Implementation: DynamicToolImpl{Type: "file_read"}})
		if _, err := execute(r, "read_it", map[string]any{}); err == nil {
			t.Fatal("expected error for missing path")
		}
	})

	t.Run("file_write missing content returns error", func(t *testing.T) {
		r := NewRuntime()
		r.RegisterDynamicTool(DynamicToolDef{Name: "write_it", Implementation: DynamicToolImpl{Type: "file_write"}})
		if _, err := execute(r, "write_it", map[string]any{"path": filepath.Join(t.TempDir(), "x")}); err == nil {
			t.Fatal("expected error for missing content")
		}
	})
}

// --- HTTP executor ---

func TestHTTPExecutor(t *testing.T) {
	t.Run("GET request returns response body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("method = %q, want GET", r.Method)
			}
			w.Write([]byte(`{"status":"ok"}`))
		}))
		defer srv.Close()

		r := NewRuntime()
		r.RegisterDynamicTool(DynamicToolDef{
			Name:           "ping",
			Implementation: DynamicToolImpl{Type: "http", URL: srv.URL},
		})

		result, err := executeString(r, "ping", map[string]any{})
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		if !strings.Contains(result, "ok") {
			t.Errorf("result = %q, want to contain 'ok'", result)
		}
	})

	t.Run("interpolates URL with params", func(t *testing.T) {
		var gotPath string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			w.Write([]byte("ok"))
		}))
		defer srv.Close()

		r := NewRuntime()
		r.RegisterDynamicTool(DynamicToolDef{
			Name:           "get_item",
			Params:         []DynamicParamDef{{Name: "id", Type: "string"}},
			Implementation: DynamicToolImpl{Type: "http", URL: srv.URL + "/items/{{.id}}"},
		})

		// A number is coerced to the declared string type.
		execute(r, "get_item", map[string]any{"id": 42})
		if gotPath != "/items/42" {
			t.Errorf("path = %q, want /items/42", gotPath)
		}
	})

	t.Run("POST with string body interpolates params", func(t *testing.T) {
		var gotBody string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)
			w.Write([]byte("ok"))
		}))
		defer srv.Close()

		r := NewRuntime()
		r.RegisterDynamicTool(DynamicToolDef{
			Name:   "create",
			Params: []DynamicParamDef{{Name: "msg", Type: "string"}},
			Implementation: DynamicToolImpl{
				Type:   "http",
				Method: "POST",
				URL:    srv.URL,
				Body:   `{"message":"{{.msg}}"}`,
			},
		})

		execute(r, "create", map[string]any{"msg": "hello"})
		if !strings.Contains(gotBody, "hello") {
			t.Errorf("body = %q, want to contain 'hello'", gotBody)
		}
	})

	t.Run("sets custom headers with interpolation", func(t *testing.T) {
		var gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.Write([]byte("ok"))
		}))
		defer srv.Close()

		r := NewRuntime()
		r.RegisterDynamicTool(DynamicToolDef{
			Name:   "auth_req",
			Params: []DynamicParamDef{{Name: "token", Type: "string"}},
			Implementation: DynamicToolImpl{
				Type:    "http",
				URL:     srv.URL,
				Headers: map[string]string{"Authorization": "Bearer {{.token}}"},
			},
		})

		execute(r, "auth_req", map[string]any{"token": "secret123"})
		if gotAuth != "Bearer secret123" {
			t.Errorf("Authorization = %q, want 'Bearer secret123'", gotAuth)
		}
	})

	t.Run("appends query params", func(t *testing.T) {
		var gotQ string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQ = r.URL.Query().Get("q")
			w.Write([]byte("ok"))
		}))
		defer srv.Close()

		r := NewRuntime()
		r.RegisterDynamicTool(DynamicToolDef{
			Name:   "search",
			Params: []DynamicParamDef{{Name: "query", Type: "string"}},
			Implementation: DynamicToolImpl{
				Type:  "http",
				URL:   srv.URL,
				Query: map[string]string{"q": "{{.query}}"},
			},
		})

		execute(r, "search", map[string]any{"query": "golang"})
		if gotQ != "golang" {
			t.Errorf("query param q = %q, want 'golang'", gotQ)
		}
	})

	t.Run("4xx status returns error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "not found", http.StatusNotFound)
		}))
		defer srv.Close()

		r := NewRuntime()
		r.RegisterDynamicTool(DynamicToolDef{
			Name:           "bad_req",
			Implementation: DynamicToolImpl{Type: "http", URL: srv.URL},
		})

		if _, err := execute(r, "bad_req", map[string]any{}); err == nil {
			t.Fatal("expected error for 4xx response")
		}
	})
}

// --- Approval ---

func TestApprovalTool(t *testing.T) {
	r := NewRuntime()
	if err := r.RegisterDynamicTool(DynamicToolDef{
		Name:           "approve",
		Implementation: DynamicToolImpl{Type: "approval", Prompt: "Ship it?"},
	}); err != nil {
		t.Fatalf("RegisterDynamicTool: %v", err)
	}
	tl, _ := r.Lookup("approve")
	if !tl.AcceptsEvents() {
		t.Fatal("approval tool should declare an event schema")
	}

	call := &Call{Tool: "approve", Trace: "0:0:0", Input: "deploy v2"}
	out, err := r.Invoke(context.Background(), tl, call)
	if err != nil || !out.Awaiting() {
		t.Fatalf("first Invoke = %+v, %v, want await", out, err)
	}

	if _, err := tl.Coerce(RoleEvent, value.ObjectOf("comment", "no decision")); err == nil {
		t.Error("event without approved should fail validation")
	}
	ev, err := tl.Coerce(RoleEvent, value.ObjectOf("approved", "true", "comment", "lgtm"))
	if err != nil {
		t.Fatalf("Coerce event: %v", err)
	}
	call.Events = append(call.Events, &frame.Event{Payload: ev})

	out, err = r.Invoke(context.Background(), tl, call)
	if err != nil || out.Awaiting() {
		t.Fatalf("second Invoke = %+v, %v, want done", out, err)
	}
	res := out.Value().(*value.Object)
	if res.Lookup("approved") != true || res.Lookup("comment") != "lgtm" {
		t.Errorf("result = %v", res.Keys())
	}
	if !call.Events[0].Processed {
		t.Error("event should be marked processed")
	}
}

func TestApprovalDecisions(t *testing.T) {
	tests := []struct {
		name     string
		payloads []value.Value
		approved bool
		comment  value.Value
		wantErr  bool
	}{
		{"approve", []value.Value{value.ObjectOf("approved", true, "comment", "lgtm")}, true, "lgtm", false},
		{"reject without comment", []value.Value{value.ObjectOf("approved", false)}, false, value.Undefined, false},
		{"first event wins", []value.Value{value.ObjectOf("approved", false, "comment", "no"), value.ObjectOf("approved", true)}, false, "no", false},
		{"non-object event", []value.Value{"yes"}, false, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRuntime()
			if err := r.RegisterDynamicTool(DynamicToolDef{
				Name:           "ops.approve",
				Params:         []DynamicParamDef{{Name: "change", Required: true}},
				Implementation: DynamicToolImpl{Type: "approval", Prompt: "Apply change?"},
			}); err != nil {
				t.Fatalf("RegisterDynamicTool: %v", err)
			}
			tl, err := r.Lookup("ops.approve")
			if err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			call := &Call{Tool: "ops.approve", Trace: "0:1:0", Input: value.ObjectOf("change", "rotate keys")}
			for _, p := range tt.payloads {
				call.Events = append(call.Events, &frame.Event{Payload: p})
			}

			out, err := r.Invoke(context.Background(), tl, call)
			if tt.wantErr {
				var he *HandlerError
				if !errors.As(err, &he) {
					t.Fatalf("Invoke() err = %v, want HandlerError", err)
				}
				return
			}
			if err != nil || out.Awaiting() {
				t.Fatalf("Invoke() = %+v, %v, want done", out, err)
			}
			res := out.Value().(*value.Object)
			if res.Lookup("approved") != tt.approved {
				t.Errorf("approved = %v, want %v", res.Lookup("approved"), tt.approved)
			}
			if res.Lookup("comment") != tt.comment {
				t.Errorf("comment = %v, want %v", res.Lookup("comment"), tt.comment)
			}
			if res.Lookup("prompt") != "Apply change?" {
				t.Errorf("prompt = %v", res.Lookup("prompt"))
			}
			if req, ok := res.Lookup("request").(*value.Object); !ok || req.Lookup("change") != "rotate keys" {
				t.Errorf("request = %v, want the call input", res.Lookup("request"))
			}
			if len(call.Pending()) != len(tt.payloads)-1 {
				t.Errorf("pending after decision = %d, want %d", len(call.Pending()), len(tt.payloads)-1)
			}
		})
	}
}

func TestParseJSONOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/broken":
			w.Write([]byte("<html>oops</html>"))
		default:
			w.Write([]byte(`{"items":[{"id":1},{"id":2}],"next":null}`))
		}
	}))
	defer srv.Close()

	r := NewRuntime()
	for _, def := range []DynamicToolDef{
		{
			Name:           "list_items",
			Output:         map[string]any{"type": "object", "properties": map[string]any{"items": map[string]any{"type": "array"}}},
			Implementation: DynamicToolImpl{Type: "http", URL: srv.URL + "/items", Parse: "json"},
		},
		{
			Name:           "broken",
			Implementation: DynamicToolImpl{Type: "http", URL: srv.URL + "/broken", Parse: "json"},
		},
		{
			Name:           "raw_items",
			Implementation: DynamicToolImpl{Type: "http", URL: srv.URL + "/items"},
		},
	} {
		if err := r.RegisterDynamicTool(def); err != nil {
			t.Fatalf("RegisterDynamicTool(%s): %v", def.Name, err)
		}
	}

	t.Run("decodes into script values", func(t *testing.T) {
		v, err := execute(r, "list_items", map[string]any{})
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		obj, ok := v.(*value.Object)
		if !ok {
			t.Fatalf("result = %T, want object", v)
		}
		items, ok := obj.Lookup("items").(*value.Array)
		if !ok || items.Len() != 2 {
			t.Fatalf("items = %v", obj.Lookup("items"))
		}
		if id := items.Get(1).(*value.Object).Lookup("id"); id != 2.0 {
			t.Errorf("items[1].id = %v (%T), want 2", id, id)
		}
		if !obj.Has("next") || obj.Lookup("next") != nil {
			t.Errorf("next = %v, want null", obj.Lookup("next"))
		}
	})

	t.Run("undecodable output is a handler error", func(t *testing.T) {
		_, err := execute(r, "broken", map[string]any{})
		var he *HandlerError
		if !errors.As(err, &he) {
			t.Fatalf("err = %v, want HandlerError", err)
		}
		if !strings.Contains(err.Error(), "decode output") {
			t.Errorf("err = %v, want a decode failure", err)
		}
	})

	t.Run("text is the default", func(t *testing.T) {
		v, err := execute(r, "raw_items", map[string]any{})
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		if s, ok := v.(string); !ok || !strings.HasPrefix(s, `{"items"`) {
			t.Errorf("result = %#v, want the raw body", v)
		}
	})
}

// --- parseCommand ---

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"echo hello", []string{"echo", "hello"}},
		{"echo 'hello world'", []string{"echo", "hello world"}},
		{`echo "hello world"`, []string{"echo", "hello world"}},
		{"git commit -m 'fix bug'", []string{"git", "commit", "-m", "fix bug"}},
		{"singleword", []string{"singleword"}},
		{"", nil},
	}

	for _, tt := range tests {
		got := parseCommand(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("parseCommand(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i, v := range got {
			if v != tt.want[i] {
				t.Errorf("parseCommand(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
			}
		}
	}
}

// --- interpolateTemplate ---

func TestInterpolateTemplate(t *testing.T) {
	t.Run("no placeholders returns string unchanged", func(t *testing.T) {
		result, err := interpolateTemplate("hello world", map[string]any{})
		if err != nil {
			t.Fatal(err)
		}
		if result != "hello world" {
			t.Errorf("= %q, want 'hello world'", result)
		}
	})

	t.Run("replaces placeholder with param value", func(t *testing.T) {
		result, err := interpolateTemplate("hello {{.name}}", map[string]any{"name": "Alice"})
		if err != nil {
			t.Fatal(err)
		}
		if result != "hello Alice" {
			t.Errorf("= %q, want 'hello Alice'", result)
		}
	})

	t.Run("invalid template syntax returns error", func(t *testing.T) {
		if _, err := interpolateTemplate("{{.unclosed", map[string]any{}); err == nil {
			t.Fatal("expected error for invalid template")
		}
	})
}

// --- helpers ---

func toolNames(r *Runtime) map[string]bool {
	names := make(map[string]bool)
	for _, n := range r.Names() {
		names[n] = true
	}
	return names
}
