package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Server roles reported by ServerRole.
const (
	RolePrimary = "primary"
	RoleStandby = "standby"
)

// RowQuerier is satisfied by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
type RowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ServerRole reports whether the server accepts writes. A standby is what a
// stale connection lands on after a failover, which is why writes there fail
// with read_only_sql_transaction.
func ServerRole(ctx context.Context, q RowQuerier) (string, error) {
	var inRecovery bool
	if err := q.QueryRow(ctx, "SELECT pg_is_in_recovery()").Scan(&inRecovery); err != nil {
		return "", fmt.Errorf("failed to query server role: %w", err)
	}
	if inRecovery {
		return RoleStandby, nil
	}
	return RolePrimary, nil
}
