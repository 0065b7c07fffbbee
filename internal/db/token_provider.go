package db

import (
	"context"
	"time"
)

// TokenProvider acquires short-lived cloud tokens used as the database password.
type TokenProvider interface {
	GetToken(ctx context.Context) (token string, expiresOn time.Time, err error)

	// String describes the provider without secrets.
	String() string
}

// AzurePostgreSQLScope is the OAuth scope for Azure Database for PostgreSQL.
const AzurePostgreSQLScope = "https://ossrdbms-aad.database.windows.net/.default"

// tokenExpiryWarning is how close to expiry a fresh token may be before a
// warning is printed. Pools opened with such a token cannot reconnect later.
const tokenExpiryWarning = 5 * time.Minute
