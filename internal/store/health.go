package store

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudiagent/cloudiagent/internal/health"
)

// CountThreads returns the number of stored threads.
func (db *DB) CountThreads(ctx context.Context) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM threads`).Scan(&n)
	return n, err
}

// HealthCheck pings the database and reports the number of stored threads.
func (db *DB) HealthCheck() health.ComponentHealth {
	h := health.ComponentHealth{
		Name:   "database",
		Status: "ok",
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		h.Status = "error"
		h.Message = err.Error()
		h.LastError = time.Now()
		return h
	}

	n, err := db.CountThreads(ctx)
	if err != nil {
		h.Status = "degraded"
		h.Message = "cannot query threads: " + err.Error()
		h.LastError = time.Now()
		return h
	}
	h.Message = fmt.Sprintf("%d threads", n)

	db.healthMu.Lock()
	db.lastHealthOK = time.Now()
	h.LastOK = db.lastHealthOK
	db.healthMu.Unlock()
	return h
}
