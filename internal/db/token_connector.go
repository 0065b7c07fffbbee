package db

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/imdbload/internal/retry"
	"github.com/vvka-141/imdbload/pkg/imdbload"
)

// TokenBasedConnector authenticates with a token from a TokenProvider
// (AWS RDS IAM, Azure Entra ID). Each connection attempt, including the
// reconnect after a failed flush, acquires a fresh token.
type TokenBasedConnector struct {
	config        *imdbload.ConnectionConfig
	tokenProvider TokenProvider
	retryExecutor *retry.Executor
	providerName  string
}

// NewTokenBasedConnector creates a connector. providerName appears in messages.
func NewTokenBasedConnector(config *imdbload.ConnectionConfig, tokenProvider TokenProvider, providerName string) *TokenBasedConnector {
	return &TokenBasedConnector{
		config:        config,
		tokenProvider: tokenProvider,
		retryExecutor: newConnectExecutor(),
		providerName:  providerName,
	}
}

func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool

	err := c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		token, expiresOn, err := c.tokenProvider.GetToken(ctx)
		if err != nil {
			return fmt.Errorf("failed to acquire %s token: %w", c.providerName, err)
		}
		if left := time.Until(expiresOn); left < tokenExpiryWarning {
			fmt.Fprintf(os.Stderr, "Warning: %s token expires in %v\n", c.providerName, left.Round(time.Second))
		}

		withToken := *c.config
		withToken.Password = token

		pool, err = openPool(ctx, BuildConnectionString(&withToken), c.config)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", imdbload.ErrConnectionFailed, err)
	}
	return pool, nil
}
