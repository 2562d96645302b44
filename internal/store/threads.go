package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cloudiagent/cloudiagent/internal/thread"
)

// DefaultKnownThreadsCacheSize bounds the in-process cache of thread ids
// already seen in the database.
const DefaultKnownThreadsCacheSize = 4096

// ThreadStore persists threads and their turns in SQLite.
// Threads are never deleted, so a cached id stays valid.
type ThreadStore struct {
	db    *DB
	known *lru.Cache[string, struct{}]
}

// NewThreadStore returns a store over db. cacheSize <= 0 uses the default.
func NewThreadStore(db *DB, cacheSize int) (*ThreadStore, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultKnownThreadsCacheSize
	}
	known, err := lru.New[string, struct{}](cacheSize)
	if err != nil {
		return nil, err
	}
	return &ThreadStore{db: db, known: known}, nil
}

// Create inserts the thread row. Creating an existing id is a no-op.
func (s *ThreadStore) Create(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO threads (id) VALUES (?)`, id); err != nil {
		return err
	}
	s.known.Add(id, struct{}{})
	return nil
}

// Exists checks the cache first, then the threads table.
func (s *ThreadStore) Exists(ctx context.Context, id string) (bool, error) {
	if s.known.Contains(id) {
		return true, nil
	}
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM threads WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.known.Add(id, struct{}{})
	return true, nil
}

// Append writes the turn with the next sequence number of the thread.
func (s *ThreadStore) Append(ctx context.Context, id string, turn thread.Turn) error {
	ok, err := s.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return thread.ErrUnknownThread
	}

	var assetID, result sql.NullString
	if turn.AssetID != "" {
		assetID = sql.NullString{String: turn.AssetID, Valid: true}
	}
	if len(turn.Result) > 0 {
		result = sql.NullString{String: string(turn.Result), Valid: true}
	}
	// The sequence number is computed inside the insert so the write is one
	// statement and holds the write lock only once.
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO turns (thread_id, seq, role, kind, content, asset_id, tool_result, created_at)
		 SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?, ?, ?, ? FROM turns WHERE thread_id = ?`,
		id, string(turn.Role), string(turn.Kind), turn.Text, assetID, result, turn.CreatedAt.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// Turns returns the thread's turns ordered by sequence.
func (s *ThreadStore) Turns(ctx context.Context, id string) ([]thread.Turn, error) {
	ok, err := s.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, thread.ErrUnknownThread
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, kind, content, asset_id, tool_result, created_at FROM turns WHERE thread_id = ? ORDER BY seq ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []thread.Turn
	for rows.Next() {
		var t thread.Turn
		var role, kind string
		var assetID, result sql.NullString
		if err := rows.Scan(&role, &kind, &t.Text, &assetID, &result, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Role = thread.Role(role)
		t.Kind = thread.ContentKind(kind)
		if assetID.Valid {
			t.AssetID = assetID.String
		}
		if result.Valid {
			t.Result = []byte(result.String)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountThreads returns the number of stored threads.
func (s *ThreadStore) CountThreads(ctx context.Context) (int, error) {
	return s.db.CountThreads(ctx)
}

var _ thread.Store = (*ThreadStore)(nil)
