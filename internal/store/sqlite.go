package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// BusyTimeout is how long a connection waits for another writer's lock
// before failing with SQLITE_BUSY.
const BusyTimeout = 5 * time.Second

// DB wraps *sql.DB for cloudiagent storage. The schema is owned by the app.
type DB struct {
	*sql.DB

	healthMu     sync.Mutex
	lastHealthOK time.Time
}

// dsn applies the connection pragmas to every pooled connection. Transactions
// begin IMMEDIATE so a writer takes the write lock up front and waits for
// other writers instead of failing on lock upgrade.
func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", BusyTimeout.Milliseconds()))
	q.Add("_pragma", "foreign_keys(1)")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// Open opens the SQLite database at path and applies the schema. Creates the file if missing.
func Open(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}

	// Columns added after the first release; nullable so existing rows survive.
	var count int
	for _, col := range []struct{ table, name, def string }{
		{"turns", "asset_id", "TEXT"},
		{"turns", "tool_result", "TEXT"},
	} {
		q := fmt.Sprintf("SELECT COUNT(*) FROM pragma_table_info('%s') WHERE name=?", col.table)
		if err := db.QueryRowContext(ctx, q, col.name).Scan(&count); err == nil && count == 0 {
			if _, err := db.ExecContext(ctx, "ALTER TABLE "+col.table+" ADD COLUMN "+col.name+" "+col.def); err != nil {
				db.Close()
				return nil, fmt.Errorf("migrating schema (%s.%s): %w", col.table, col.name, err)
			}
		}
	}

	return &DB{DB: db}, nil
}

// Close closes the database.
func (db *DB) Close() error {
	return db.DB.Close()
}
