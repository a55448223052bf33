// Package store persists serialized agents between process runs.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	vegascript "github.com/everydev1618/vegascript"
	"github.com/everydev1618/vegascript/frame"
)

// ErrNotFound is returned when no agent is stored under an id.
var ErrNotFound = errors.New("agent not found")

// Store saves and loads serialized agents by id.
type Store interface {
	// Save creates or replaces the agent stored under s.ID.
	Save(ctx context.Context, s *vegascript.AgentSerialized) error

	// Load returns the agent stored under id, or ErrNotFound.
	Load(ctx context.Context, id string) (*vegascript.AgentSerialized, error)

	// List returns a summary of every stored agent, most recently saved first.
	List(ctx context.Context) ([]Summary, error)

	// Delete removes the agent stored under id, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Close releases the store.
	Close() error
}

// Summary describes a stored agent without decoding its heap.
type Summary struct {
	ID        string       `json:"id"`
	Hash      string       `json:"hash"`
	Status    frame.Status `json:"status"`
	Chain     int          `json:"chain"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func summarize(s *vegascript.AgentSerialized, updated time.Time) Summary {
	st, _ := frame.StatusFromCode(s.Root.S)
	return Summary{
		ID:        s.ID,
		Hash:      s.Runtime.Hash,
		Status:    st,
		Chain:     len(s.Chain),
		UpdatedAt: updated,
	}
}

func validate(s *vegascript.AgentSerialized) error {
	if s == nil || s.ID == "" || s.Root == nil {
		return vegascript.ErrInvalidState
	}
	return nil
}

// Open returns the store selected by cfg.Store.
func Open(cfg *vegascript.Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Store {
	case "json":
		return NewJSONStore(cfg.StateDir, logger)
	case "", "sqlite":
		s, err := NewSQLiteStore(cfg.DBPath, logger)
		if err != nil {
			return nil, err
		}
		if err := s.Init(); err != nil {
			s.Close()
			return nil, fmt.Errorf("init sqlite store: %w", err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: unknown store %q", vegascript.ErrInvalidConfig, cfg.Store)
}
