package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// DSN builds a modernc.org/sqlite connection string with foreign keys enforced.
// Cascading deletes from users to tasks and sessions depend on it.
func DSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	return fmt.Sprintf("file:%s?%s", path, q.Encode())
}

// Open creates the parent directory, opens the database and validates the connection.
func Open(ctx context.Context, path string, logger *zap.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection serialises writes without SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("opened sqlite database", zap.String("path", path))
	return db, nil
}

// Close releases the database and logs the result.
func Close(db *sql.DB, logger *zap.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil && logger != nil {
		logger.Warn("sqlite close failed", zap.Error(err))
		return
	}
	if logger != nil {
		logger.Info("sqlite database closed")
	}
}
