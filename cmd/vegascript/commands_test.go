package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	vegascript "github.com/everydev1618/vegascript"
	"github.com/everydev1618/vegascript/frame"
	"github.com/everydev1618/vegascript/value"
)

func TestReorder(t *testing.T) {
	tests := []struct {
		args []string
		want []string
	}{
		{[]string{"s.json", "--input", "{}"}, []string{"--input", "{}", "s.json"}},
		{[]string{"id", "0:1", "{}", "--tick"}, []string{"--tick", "id", "0:1", "{}"}},
		{[]string{"--id=x", "s.json"}, []string{"--id=x", "s.json"}},
		{[]string{"a", "--", "-b"}, []string{"a", "-b"}},
	}
	for _, tt := range tests {
		if got := reorder(tt.args); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("reorder(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}

func TestParseInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.json")
	if err := os.WriteFile(path, []byte(`{"env":"prod"}`), 0644); err != nil {
		t.Fatal(err)
	}

	v, err := parseInput("@" + path)
	if err != nil {
		t.Fatalf("parseInput(@file): %v", err)
	}
	if obj, ok := v.(*value.Object); !ok || obj.Lookup("env") != "prod" {
		t.Errorf("parseInput(@file) = %v", v)
	}
	if v, _ := parseInput(""); !value.IsUndefined(v) {
		t.Errorf("parseInput(\"\") = %v, want undefined", v)
	}
	if _, err := parseInput("{nope"); err == nil {
		t.Error("parseInput should reject malformed JSON")
	}
}

func TestLoadRuntime(t *testing.T) {
	dir := t.TempDir()
	toolsDir := filepath.Join(dir, "tools")
	if err := os.MkdirAll(toolsDir, 0755); err != nil {
		t.Fatal(err)
	}
	def := "name: deploy.approve\ndescription: Approve a deploy\nimplementation:\n  type: approval\n  prompt: Ship it?\n"
	if err := os.WriteFile(filepath.Join(toolsDir, "approve.yaml"), []byte(def), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := &vegascript.Config{Tools: []string{toolsDir}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt, err := loadRuntime(cfg, logger, dir)
	if err != nil {
		t.Fatalf("loadRuntime: %v", err)
	}
	for _, name := range []string{"deploy.approve", "fs.read", "http.fetch", "human.approve"} {
		if _, err := rt.Lookup(name); err != nil {
			t.Errorf("Lookup(%s): %v", name, err)
		}
	}

	cfg.Tools = []string{filepath.Join(dir, "missing.yaml")}
	if _, err := loadRuntime(cfg, logger, dir); err == nil {
		t.Error("loadRuntime should fail on a missing tool file")
	}
}

func TestPrintFrame(t *testing.T) {
	now := time.Now()
	root := frame.New("0", now)
	call := frame.New("0:0", now)
	call.Suspend(now)
	call.Events = []*frame.Event{{Timestamp: now, Payload: "x"}}
	arg := frame.New("0:0:0", now)
	arg.Complete("foo", now)
	call.SetChild(0, arg)
	root.SetChild(0, call)

	var buf bytes.Buffer
	printFrame(&buf, root, 0)
	out := buf.String()
	for _, want := range []string{"0:0:0", `= "foo"`, "awaiting", "1 event(s), 1 pending"} {
		if !strings.Contains(out, want) {
			t.Errorf("printFrame output missing %q:\n%s", want, out)
		}
	}
}
