package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	vegascript "github.com/everydev1618/vegascript"
	"github.com/everydev1618/vegascript/frame"
)

// SQLiteStore implements Store using modernc.org/sqlite (pure Go).
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Enable WAL mode for concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteStore{db: db, logger: logger, now: time.Now}, nil
}

// Init creates the schema tables.
func (s *SQLiteStore) Init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id         TEXT PRIMARY KEY,
		hash       TEXT NOT NULL,
		status     TEXT NOT NULL DEFAULT 'R',
		chain      INTEGER NOT NULL DEFAULT 0,
		data       TEXT NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_agents_updated ON agents(updated_at);
	CREATE INDEX IF NOT EXISTS idx_agents_status ON agents(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save upserts the agent row.
func (s *SQLiteStore) Save(ctx context.Context, a *vegascript.AgentSerialized) error {
	if err := validate(a); err != nil {
		return err
	}
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO agents (id, hash, status, chain, data, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   hash = excluded.hash, status = excluded.status, chain = excluded.chain,
		   data = excluded.data, updated_at = excluded.updated_at`,
		a.ID, a.Runtime.Hash, a.Root.S, len(a.Chain), string(data), s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save agent %s: %w", a.ID, err)
	}
	s.logger.Debug("agent saved", "agent", a.ID, "bytes", len(data))
	return nil
}

// Load reads the agent row.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*vegascript.AgentSerialized, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM agents WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var a vegascript.AgentSerialized
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", vegascript.ErrInvalidState, id, err)
	}
	return &a, nil
}

// List returns summaries from the indexed columns.
func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, hash, status, chain, updated_at FROM agents ORDER BY updated_at DESC, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var code string
		if err := rows.Scan(&sum.ID, &sum.Hash, &code, &sum.Chain, &sum.UpdatedAt); err != nil {
			return nil, err
		}
		sum.Status, _ = frame.StatusFromCode(code)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes the agent row.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM agents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.logger.Debug("agent deleted", "agent", id)
	return nil
}
