package services

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/imdbload/internal/db"
	"github.com/vvka-141/imdbload/pkg/imdbload"
)

// withPool opens a short-lived pool for fn and releases it, together with
// the connector, afterwards.
func withPool(ctx context.Context, factory imdbload.ConnectorFactory, connConfig *imdbload.ConnectionConfig, fn func(*pgxpool.Pool) error) error {
	connector, err := factory(connConfig)
	if err != nil {
		return fmt.Errorf("failed to create connector: %w", err)
	}
	if c, ok := connector.(io.Closer); ok {
		defer closeQuietly(c)
	}
	pool, err := connector.Connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to database %q: %w", connConfig.Database, err)
	}
	defer pool.Close()
	return fn(pool)
}

// CheckHealth connects once and reports the server role.
func CheckHealth(ctx context.Context, factory imdbload.ConnectorFactory, connConfig *imdbload.ConnectionConfig) (string, error) {
	if factory == nil {
		panic("factory cannot be nil")
	}
	var role string
	err := withPool(ctx, factory, connConfig, func(pool *pgxpool.Pool) error {
		var err error
		role, err = db.ServerRole(ctx, pool)
		return err
	})
	return role, err
}
