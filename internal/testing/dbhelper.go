// Package testing holds helpers shared by integration tests.
package testing

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/imdbload/internal/db"
	"github.com/vvka-141/imdbload/internal/logging"
	"github.com/vvka-141/imdbload/internal/schema"
	"github.com/vvka-141/imdbload/internal/testinfra"
	"github.com/vvka-141/imdbload/pkg/imdbload"
)

var (
	pgOnce sync.Once
	pgConn string
	pgErr  error

	redisOnce sync.Once
	redisURL  string
	redisErr  error
)

func getOrStartPostgres() (string, error) {
	pgOnce.Do(func() {
		pgConn, pgErr = startGuarded("postgres", func(ctx context.Context) (string, error) {
			ctr, err := testinfra.StartPostgres(ctx)
			if err != nil {
				return "", err
			}
			return ctr.ConnString, nil
		})
	})
	return pgConn, pgErr
}

func getOrStartRedis() (string, error) {
	redisOnce.Do(func() {
		redisURL, redisErr = startGuarded("redis", func(ctx context.Context) (string, error) {
			ctr, err := testinfra.StartRedis(ctx)
			if err != nil {
				return "", err
			}
			return ctr.URL, nil
		})
	})
	return redisURL, redisErr
}

// startGuarded runs start and turns a panic into an error. testcontainers
// panics when no Docker host can be found; callers skip on the error.
func startGuarded(what string, start func(context.Context) (string, error)) (addr string, err error) {
	defer func() {
		if r := recover(); r != nil {
			addr, err = "", fmt.Errorf("starting %s container: docker unavailable: %v", what, r)
		}
	}()
	return start(context.Background())
}

// GetTestConnectionString returns the test database connection string.
// Priority: IMDBLOAD_TEST_CONN env var > auto-started testcontainer > skip test.
func GetTestConnectionString(t *testing.T) string {
	t.Helper()

	if connString := os.Getenv("IMDBLOAD_TEST_CONN"); connString != "" {
		return connString
	}

	connString, err := getOrStartPostgres()
	if err != nil {
		t.Skipf("IMDBLOAD_TEST_CONN not set and Docker unavailable: %v", err)
	}
	return connString
}

// SkipIfShort skips the test if running in short mode (-short flag).
func SkipIfShort(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// RequireDatabase combines SkipIfShort and GetTestConnectionString for convenience.
func RequireDatabase(t *testing.T) string {
	t.Helper()

	SkipIfShort(t)
	return GetTestConnectionString(t)
}

// RequireRedis returns a Redis URL from IMDBLOAD_TEST_REDIS or a container,
// skipping the test when neither is available.
func RequireRedis(t *testing.T) string {
	t.Helper()

	SkipIfShort(t)
	if url := os.Getenv("IMDBLOAD_TEST_REDIS"); url != "" {
		return url
	}
	url, err := getOrStartRedis()
	if err != nil {
		t.Skipf("IMDBLOAD_TEST_REDIS not set and Docker unavailable: %v", err)
	}
	return url
}

// ConnectionConfig parses connString for use with db.NewConnector.
func ConnectionConfig(t *testing.T, connString string) *imdbload.ConnectionConfig {
	t.Helper()

	cfg, err := db.ParseConnectionString(connString)
	if err != nil {
		t.Fatalf("Failed to parse connection string: %v", err)
	}
	return cfg
}

// GetTestPool creates a connection pool for connString.
// The pool is automatically closed when the test completes.
func GetTestPool(t *testing.T, connString string) *pgxpool.Pool {
	t.Helper()

	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		t.Fatalf("Failed to create connection pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// CreateTestSchema creates a uniquely named schema holding every relation and
// drops it when the test completes. It returns the schema name.
func CreateTestSchema(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	name := "imdb_test_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")
	ctx := context.Background()
	if err := schema.Create(ctx, pool, name, logging.NewNullLogger()); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}
	t.Cleanup(func() {
		if err := schema.Drop(context.Background(), pool, name, logging.NewNullLogger()); err != nil {
			t.Logf("Warning: Failed to drop schema %s: %v", name, err)
		}
	})
	return name
}

// CountRows returns the number of rows in schemaName.table.
func CountRows(t *testing.T, pool *pgxpool.Pool, schemaName, table string) int64 {
	t.Helper()

	var n int64
	query := fmt.Sprintf("SELECT count(*) FROM %s", pgx.Identifier{schemaName, table}.Sanitize())
	if err := pool.QueryRow(context.Background(), query).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}

// CreateTestDB creates a database and drops it when the test completes.
func CreateTestDB(t *testing.T, connString, dbName string) {
	t.Helper()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect for test DB creation: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{dbName}.Sanitize()); err != nil {
		t.Fatalf("Failed to create test database %s: %v", dbName, err)
	}
	t.Cleanup(func() { CleanupTestDB(t, connString, dbName) })
}

// CleanupTestDB drops the test database.
// Safe to call multiple times (uses DROP DATABASE IF EXISTS).
func CleanupTestDB(t *testing.T, connString, dbName string) {
	t.Helper()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Logf("Warning: Failed to connect for cleanup: %v", err)
		return
	}
	defer pool.Close()

	terminateQuery := `
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()
	`
	if _, err := pool.Exec(ctx, terminateQuery, dbName); err != nil {
		t.Logf("Warning: Failed to terminate connections to %s: %v", dbName, err)
	}
	if _, err := pool.Exec(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{dbName}.Sanitize()); err != nil {
		t.Logf("Warning: Failed to drop database %s: %v", dbName, err)
	}
}
