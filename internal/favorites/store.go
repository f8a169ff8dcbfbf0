/*
Package favorites keeps a device-local list of favourite tools.

The list lives in a single SQLite file (modernc.org/sqlite, no CGo) and is
never synced to the server. Each entry is a snapshot of the tool view at the
time it was added.
*/
package favorites

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Clark-Hu/ai-tool-finder/internal/domain"
)

// Store is the favourites collaborator.
type Store interface {
	// List returns the favourites, oldest first.
	List(ctx context.Context) ([]domain.ToolView, error)
	// Add stores a snapshot of v. It reports false when the tool is already a favourite.
	Add(ctx context.Context, v domain.ToolView) (bool, error)
	// Remove deletes the tool. It reports false when it was not a favourite.
	Remove(ctx context.Context, toolID string) (bool, error)
	// Contains reports whether the tool is a favourite.
	Contains(ctx context.Context, toolID string) (bool, error)
	Close() error
}

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
	now    func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

const schema = `
	CREATE TABLE IF NOT EXISTS favorites (
		tool_id  TEXT PRIMARY KEY,
		slug     TEXT NOT NULL,
		snapshot TEXT NOT NULL,
		added_at TEXT NOT NULL
	)
`

// addedAtLayout is RFC 3339 with fixed-width nanoseconds.
const addedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Open creates the database file and its directory on first use.
func Open(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create favorites directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open favorites db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping favorites db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create favorites schema: %w", err)
	}

	logger.Named("favorites").Debug("favorites store opened", zap.String("path", path))
	return &SQLiteStore{db: db, logger: logger.Named("favorites"), now: time.Now}, nil
}

// List returns the favourites in the order they were added. Entries whose
// snapshot cannot be decoded are skipped with a warning.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.ToolView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT tool_id, snapshot FROM favorites ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ToolView, 0)
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var v domain.ToolView
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			s.logger.Warn("skipping unreadable favorite", zap.String("tool_id", id), zap.Error(err))
			continue
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) Add(ctx context.Context, v domain.ToolView) (bool, error) {
	if v.ID == "" {
		return false, errors.New("favorite requires a tool id")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("encode favorite: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO favorites (tool_id, slug, snapshot, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (tool_id) DO NOTHING
	`, v.ID, v.Slug, string(raw), s.now().UTC().Format(addedAtLayout))
	if err != nil {
		return false, fmt.Errorf("add favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQLiteStore) Remove(ctx context.Context, toolID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM favorites WHERE tool_id = ?`, toolID)
	if err != nil {
		return false, fmt.Errorf("remove favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQLiteStore) Contains(ctx context.Context, toolID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM favorites WHERE tool_id = ?)`, toolID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return exists, nil
}

// Toggle adds v when absent and removes it otherwise. It reports whether the
// tool is a favourite afterwards.
func Toggle(ctx context.Context, s Store, v domain.ToolView) (bool, error) {
	removed, err := s.Remove(ctx, v.ID)
	if err != nil {
		return false, err
	}
	if removed {
		return false, nil
	}
	if _, err := s.Add(ctx, v); err != nil {
		return false, err
	}
	return true, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
