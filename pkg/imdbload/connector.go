package imdbload

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connector establishes database connection pools. Implementations differ by
// authentication method (password, AWS IAM, Azure Entra ID, Google Cloud SQL IAM).
type Connector interface {
	// Connect establishes a connection pool to the database.
	// The returned pool should be closed by the caller when done.
	Connect(ctx context.Context) (*pgxpool.Pool, error)
}

// ConnectorFactory builds a Connector for a resolved connection configuration.
type ConnectorFactory func(*ConnectionConfig) (Connector, error)
