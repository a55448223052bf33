package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	vegascript "github.com/everydev1618/vegascript"
	"github.com/everydev1618/vegascript/ast"
	"github.com/everydev1618/vegascript/frame"
	"github.com/everydev1618/vegascript/tools"
	"github.com/everydev1618/vegascript/value"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serialized(t *testing.T, id string, script *ast.Script) *vegascript.AgentSerialized {
	t.Helper()
	a, err := vegascript.Create(tools.NewRuntime(), script, value.Undefined,
		vegascript.WithID(id), vegascript.WithLogger(quiet()))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := a.Tick(context.Background(), nil); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	s, err := a.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	return s
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	js, err := NewJSONStore(filepath.Join(dir, "agents"), quiet())
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	sq, err := NewSQLiteStore(filepath.Join(dir, "agents.db"), quiet())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := sq.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	tick := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	sq.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	t.Cleanup(func() { sq.Close() })
	return map[string]Store{"json": js, "sqlite": sq}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			done := serialized(t, "done-1", ast.NewScript("", &ast.Return{Arg: ast.Str("ok")}))
			if err := st.Save(ctx, done); err != nil {
				t.Fatalf("Save: %v", err)
			}

			got, err := st.Load(ctx, "done-1")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			want, _ := json.Marshal(done)
			have, _ := json.Marshal(got)
			if string(want) != string(have) {
				t.Errorf("Load() = %s, want %s", have, want)
			}

			agent, err := vegascript.Restore(got, tools.NewRuntime(), vegascript.WithLogger(quiet()))
			if err != nil {
				t.Fatalf("Restore: %v", err)
			}
			if out, _ := agent.Output(); out != "ok" {
				t.Errorf("restored output = %v, want ok", out)
			}
		})
	}
}

func TestStoreListAndDelete(t *testing.T) {
	ctx := context.Background()
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			first := serialized(t, "a", ast.NewScript("", &ast.Return{Arg: ast.Num(1)}))
			second := serialized(t, "b", ast.NewScript("", ast.Do(ast.Num(1))))
			for _, s := range []*vegascript.AgentSerialized{first, second} {
				if err := st.Save(ctx, s); err != nil {
					t.Fatalf("Save(%s): %v", s.ID, err)
				}
			}
			// Overwrite keeps one entry per id.
			if err := st.Save(ctx, first); err != nil {
				t.Fatalf("Save again: %v", err)
			}

			list, err := st.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(list) != 2 {
				t.Fatalf("List() = %+v, want 2 entries", list)
			}
			for _, sum := range list {
				if sum.Status != frame.StatusDone {
					t.Errorf("%s status = %s, want done", sum.ID, sum.Status)
				}
				if sum.Hash == "" {
					t.Errorf("%s has no hash", sum.ID)
				}
			}

			if err := st.Delete(ctx, "a"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := st.Load(ctx, "a"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Load(deleted) = %v, want ErrNotFound", err)
			}
			if err := st.Delete(ctx, "a"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Delete(deleted) = %v, want ErrNotFound", err)
			}
			if list, _ := st.List(ctx); len(list) != 1 || list[0].ID != "b" {
				t.Errorf("List() after delete = %+v", list)
			}
		})
	}
}

func TestStoreRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := st.Save(ctx, &vegascript.AgentSerialized{}); !errors.Is(err, vegascript.ErrInvalidState) {
				t.Errorf("Save(empty) = %v, want ErrInvalidState", err)
			}
			if _, err := st.Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Load(missing) = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestJSONStoreBadID(t *testing.T) {
	st, err := NewJSONStore(t.TempDir(), quiet())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.Load(context.Background(), "../etc/passwd"); !errors.Is(err, vegascript.ErrInvalidState) {
		t.Errorf("Load(../etc/passwd) = %v, want ErrInvalidState", err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		store string
		want  string
	}{
		{"json", "*store.JSONStore"},
		{"sqlite", "*store.SQLiteStore"},
	}
	for _, tt := range tests {
		t.Run(tt.store, func(t *testing.T) {
			cfg := &vegascript.Config{
				Store:    tt.store,
				StateDir: filepath.Join(dir, "state"),
				DBPath:   filepath.Join(dir, "agents.db"),
			}
			st, err := Open(cfg, quiet())
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer st.Close()
			switch st.(type) {
			case *JSONStore:
				if tt.want != "*store.JSONStore" {
					t.Errorf("Open(%s) returned a JSON store", tt.store)
				}
			case *SQLiteStore:
				if tt.want != "*store.SQLiteStore" {
					t.Errorf("Open(%s) returned a SQLite store", tt.store)
				}
			}
		})
	}

	if _, err := Open(&vegascript.Config{Store: "redis"}, quiet()); !errors.Is(err, vegascript.ErrInvalidConfig) {
		t.Errorf("Open(redis) = %v, want ErrInvalidConfig", err)
	}
}
