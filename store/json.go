package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	vegascript "github.com/everydev1618/vegascript"
)

// JSONStore keeps one indented JSON document per agent in a directory.
type JSONStore struct {
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewJSONStore creates dir if needed and returns a store backed by it.
func NewJSONStore(dir string, logger *slog.Logger) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONStore{dir: dir, logger: logger}, nil
}

func (j *JSONStore) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("%w: bad agent id %q", vegascript.ErrInvalidState, id)
	}
	return filepath.Join(j.dir, id+".json"), nil
}

// Save writes the agent atomically through a temp file.
func (j *JSONStore) Save(ctx context.Context, s *vegascript.AgentSerialized) error {
	if err := validate(s); err != nil {
		return err
	}
	p, err := j.path(s.ID)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return err
	}
	j.logger.Debug("agent saved", "agent", s.ID, "path", p, "bytes", len(data))
	return nil
}

// Load reads the agent stored under id.
func (j *JSONStore) Load(ctx context.Context, id string) (*vegascript.AgentSerialized, error) {
	p, err := j.path(id)
	if err != nil {
		return nil, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	var s vegascript.AgentSerialized
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", vegascript.ErrInvalidState, p, err)
	}
	return &s, nil
}

// List decodes every document in the directory.
func (j *JSONStore) List(ctx context.Context) ([]Summary, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entries, err := os.ReadDir(j.dir)
	if err != nil {
		return nil, err
	}
	var out []Summary
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(j.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		var s vegascript.AgentSerialized
		if err := json.Unmarshal(data, &s); err != nil || validate(&s) != nil {
			j.logger.Warn("skipping unreadable agent file", "file", e.Name(), "error", err)
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		out = append(out, summarize(&s, info.ModTime()))
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].UpdatedAt.After(out[b].UpdatedAt)
	})
	return out, nil
}

// Delete removes the agent file.
func (j *JSONStore) Delete(ctx context.Context, id string) error {
	p, err := j.path(id)
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return err
	}
	j.logger.Debug("agent deleted", "agent", id)
	return nil
}

// Close is a no-op.
func (j *JSONStore) Close() error { return nil }
