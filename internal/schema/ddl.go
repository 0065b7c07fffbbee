package schema

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/imdbload/pkg/imdbload"
)

// Execer is satisfied by *pgxpool.Pool, *pgxpool.Conn, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// CreateStatements returns the statements that create the schema and every
// relation. They are idempotent.
func CreateStatements(schemaName string) []string {
	stmts := []string{
		fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pgx.Identifier{schemaName}.Sanitize()),
	}
	for _, r := range All() {
		stmts = append(stmts, r.CreateTableSQL(schemaName))
	}
	return stmts
}

// DropStatement returns the statement removing the schema and its contents.
func DropStatement(schemaName string) string {
	return fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", pgx.Identifier{schemaName}.Sanitize())
}

// Create runs CreateStatements in order.
func Create(ctx context.Context, db Execer, schemaName string, logger imdbload.Logger) error {
	for _, stmt := range CreateStatements(schemaName) {
		logger.Verbose("%s", stmt)
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema %q: %w", schemaName, err)
		}
	}
	logger.Info("Schema %s ready (%d relations)", schemaName, len(All()))
	return nil
}

// Drop removes the schema.
func Drop(ctx context.Context, db Execer, schemaName string, logger imdbload.Logger) error {
	if _, err := db.Exec(ctx, DropStatement(schemaName)); err != nil {
		return fmt.Errorf("dropping schema %q: %w", schemaName, err)
	}
	logger.Info("Schema %s dropped", schemaName)
	return nil
}
