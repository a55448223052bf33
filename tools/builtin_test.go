package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/everydev1618/vegascript/frame"
	"github.com/everydev1618/vegascript/value"
)

func builtinRuntime(t *testing.T, opts ...BuiltinOption) *Runtime {
	t.Helper()
	r := NewRuntime()
	if err := r.RegisterBuiltins(opts...); err != nil {
		t.Fatalf("RegisterBuiltins: %v", err)
	}
	return r
}

// invoke coerces input the way the engine does and runs the tool once.
func invoke(t *testing.T, r *Runtime, path string, input value.Value) (value.Value, error) {
	t.Helper()
	tl, err := r.Lookup(path)
	if err != nil {
		t.Fatalf("Lookup(%s): %v", path, err)
	}
	in, err := tl.Coerce(RoleInput, input)
	if err != nil {
		return nil, err
	}
	out, err := r.Invoke(context.Background(), tl, &Call{Tool: path, Trace: "0:0", Input: in})
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

func TestFileTools(t *testing.T) {
	dir := t.TempDir()
	r := builtinRuntime(t, WithSandbox(dir))

	if _, err := invoke(t, r, "fs.write", value.ObjectOf("path", "notes/a.txt", "content", "one")); err != nil {
		t.Fatalf("fs.write: %v", err)
	}
	if _, err := invoke(t, r, "fs.append", value.ObjectOf("path", "notes/a.txt", "content", " two")); err != nil {
		t.Fatalf("fs.append: %v", err)
	}

	got, err := invoke(t, r, "fs.read", value.ObjectOf("path", "notes/a.txt"))
	if err != nil {
		t.Fatalf("fs.read: %v", err)
	}
	if got != "one two" {
		t.Errorf("fs.read = %v, want %q", got, "one two")
	}
	if data, _ := os.ReadFile(filepath.Join(dir, "notes", "a.txt")); string(data) != "one two" {
		t.Errorf("file on disk = %q", data)
	}

	list, err := invoke(t, r, "fs.list", value.NewObject())
	if err != nil {
		t.Fatalf("fs.list: %v", err)
	}
	if arr, ok := list.(*value.Array); !ok || arr.Len() != 1 || arr.Get(0) != "notes/" {
		t.Errorf("fs.list = %v, want [notes/]", list)
	}
}

func TestFileToolsSandbox(t *testing.T) {
	r := builtinRuntime(t, WithSandbox(t.TempDir()))

	tests := []struct {
		name  string
		path  string
		input value.Value
	}{
		{"parent escape", "fs.read", value.ObjectOf("path", "../secret")},
		{"absolute escape", "fs.read", value.ObjectOf("path", "/etc/passwd")},
		{"write escape", "fs.write", value.ObjectOf("path", "../../x", "content", "y")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := invoke(t, r, tt.path, tt.input)
			var herr *HandlerError
			if !errors.As(err, &herr) || !strings.Contains(err.Error(), "outside the sandbox") {
				t.Errorf("%s = %v, want a sandbox HandlerError", tt.path, err)
			}
		})
	}

	if _, err := invoke(t, r, "fs.read", value.NewObject()); err == nil {
		t.Error("fs.read without path should fail input validation")
	}
}

func TestExecTool(t *testing.T) {
	dir := t.TempDir()
	r := builtinRuntime(t, WithSandbox(dir))

	out, err := invoke(t, r, "shell.exec", value.ObjectOf("command", "echo hello > out.txt && cat out.txt && echo $HOME"))
	if err != nil {
		t.Fatalf("shell.exec: %v", err)
	}
	s := value.ToString(out)
	if !strings.Contains(s, "hello") || !strings.Contains(s, dir) {
		t.Errorf("shell.exec output = %q", s)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.txt")); err != nil {
		t.Errorf("command did not run in the sandbox: %v", err)
	}

	if _, err := invoke(t, r, "shell.exec", value.ObjectOf("command", "exit 3")); err == nil {
		t.Error("failing command should return an error")
	}
}

func TestRewriteCommandPaths(t *testing.T) {
	tests := []struct {
		command string
		want    string
	}{
		{"cat /sandbox/a.txt", "cat /sandbox/a.txt"},
		{"cat /etc/passwd", "cat /sandbox/passwd"},
		{"ls", "ls"},
	}
	for _, tt := range tests {
		if got := rewriteCommandPaths(tt.command, "/sandbox"); got != tt.want {
			t.Errorf("rewriteCommandPaths(%q) = %q, want %q", tt.command, got, tt.want)
		}
	}
}

func TestFetchTool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/plain":
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprint(w, "Hello, world!")
		case "/html":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><head><title>Test Page</title></head><body><h1>Hello</h1><p>This is a test.</p><script>alert('x')</script></body></html>`)
		case "/long":
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprint(w, strings.Repeat("abcdefghij", 100)) // 1000 chars
		case "/error":
			http.Error(w, "not found", http.StatusNotFound)
		default:
			http.Error(w, "unknown", http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	r := builtinRuntime(t, WithHTTPClient(server.Client()))
	fetch := func(t *testing.T, kv ...value.Value) *value.Object {
		t.Helper()
		out, err := invoke(t, r, "http.fetch", value.ObjectOf(kv...))
		if err != nil {
			t.Fatalf("http.fetch: %v", err)
		}
		return out.(*value.Object)
	}

	t.Run("plain text", func(t *testing.T) {
		res := fetch(t, "url", server.URL+"/plain")
		if res.Lookup("content") != "Hello, world!" {
			t.Errorf("content = %v", res.Lookup("content"))
		}
		if res.Has("next") {
			t.Error("short content should not paginate")
		}
	})

	t.Run("html stripping", func(t *testing.T) {
		res := fetch(t, "url", server.URL+"/html")
		content := value.ToString(res.Lookup("content"))
		if res.Lookup("title") != "Test Page" {
			t.Errorf("title = %v", res.Lookup("title"))
		}
		if strings.Contains(content, "<h1>") {
			t.Error("HTML tags should be stripped")
		}
		if strings.Contains(content, "alert") {
			t.Error("script content should be removed")
		}
		if !strings.Contains(content, "Hello") {
			t.Error("body text should be preserved")
		}
	})

	t.Run("raw mode", func(t *testing.T) {
		res := fetch(t, "url", server.URL+"/html", "raw", true)
		if !strings.Contains(value.ToString(res.Lookup("content")), "<h1>Hello</h1>") {
			t.Errorf("raw mode should preserve HTML, got: %v", res.Lookup("content"))
		}
	})

	t.Run("pagination", func(t *testing.T) {
		res := fetch(t, "url", server.URL+"/long", "max_length", 10.0, "start_index", 5.0)
		if res.Lookup("content") != "fghijabcde" {
			t.Errorf("content = %v, want fghijabcde", res.Lookup("content"))
		}
		if res.Lookup("next") != 15.0 || res.Lookup("length") != 1000.0 {
			t.Errorf("next = %v, length = %v", res.Lookup("next"), res.Lookup("length"))
		}
	})

	t.Run("HTTP error", func(t *testing.T) {
		_, err := invoke(t, r, "http.fetch", value.ObjectOf("url", server.URL+"/error"))
		if err == nil || !strings.Contains(err.Error(), "404") {
			t.Errorf("http.fetch(/error) = %v, want a 404 error", err)
		}
	})

	t.Run("missing url", func(t *testing.T) {
		if _, err := invoke(t, r, "http.fetch", value.NewObject()); err == nil {
			t.Error("expected error for missing url")
		}
	})
}

func TestApproveBuiltin(t *testing.T) {
	r := builtinRuntime(t)
	tl, err := r.Lookup("human.approve")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	call := &Call{Tool: "human.approve", Trace: "0:1:0", Input: "deploy"}
	out, err := r.Invoke(context.Background(), tl, call)
	if err != nil || !out.Awaiting() {
		t.Fatalf("Invoke = %+v, %v, want await", out, err)
	}

	call.Events = append(call.Events, &frame.Event{Payload: value.ObjectOf("approved", false, "comment", "not today")})
	out, err = r.Invoke(context.Background(), tl, call)
	if err != nil || out.Awaiting() {
		t.Fatalf("Invoke = %+v, %v, want done", out, err)
	}
	res := out.Value().(*value.Object)
	if res.Lookup("approved") != false || res.Lookup("request") != "deploy" {
		t.Errorf("result approved=%v request=%v", res.Lookup("approved"), res.Lookup("request"))
	}
}
