package imdbload

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
)

// DatabaseManager performs server-level operations used by `schema init`.
type DatabaseManager interface {
	// Exists checks if a database exists.
	Exists(ctx context.Context, conn DBConnection, dbName string) (bool, error)

	// Create creates a new database.
	Create(ctx context.Context, conn DBConnection, dbName string) error
}

// DBConnection abstracts the handful of pool operations DatabaseManager needs,
// so it can be exercised without a server.
type DBConnection interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	// QueryRow always returns a non-nil Row; errors surface from Scan.
	QueryRow(ctx context.Context, sql string, args ...any) Row

	// Acquire obtains a dedicated connection. CREATE DATABASE cannot run inside
	// a transaction block, so it is issued on its own connection.
	Acquire(ctx context.Context) (PooledConnection, error)
}

// Row represents a single row returned by QueryRow.
type Row interface {
	Scan(dest ...any) error
}

// PooledConnection represents a connection acquired from a pool.
// The caller must call Release() when done.
type PooledConnection interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Release()
}
