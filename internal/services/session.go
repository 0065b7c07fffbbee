package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/imdbload/internal/metrics"
	"github.com/vvka-141/imdbload/internal/retry"
	"github.com/vvka-141/imdbload/internal/staging"
	"github.com/vvka-141/imdbload/pkg/imdbload"
)

// reconnectDelay is the pause before reopening the pool after a failover.
const reconnectDelay = 500 * time.Millisecond

// pinnedConn is the subset of *pgxpool.Conn a Session uses.
type pinnedConn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Release()
}

// dialFunc opens a pool and pins one prepared connection from it.
// pool may be nil for test doubles.
type dialFunc func(ctx context.Context) (pool *pgxpool.Pool, conn pinnedConn, closer io.Closer, err error)

// Session is the single database connection a load run works on.
//
// It decides which unit of work owns the transaction. With CommitPerFlush each
// flush begins and commits its own transaction and a flush that fails on a
// dead or read-only connection is replayed once on a freshly opened pool.
// With a coarser granularity Scope holds the transaction open and flushes run
// inside it; a failure then aborts the whole scope and is not replayed,
// since earlier flushes of the scope are lost with the connection.
//
// Thread-Safety: NOT safe for concurrent use.
type Session struct {
	dial    dialFunc
	commit  imdbload.CommitGranularity
	logger  imdbload.Logger
	metrics *metrics.Recorder

	pool   *pgxpool.Pool
	conn   pinnedConn
	closer io.Closer
	tx     pgx.Tx

	retrier *retry.Executor
}

// OpenSession connects through factory, pins one connection and puts schema
// first on its search path.
func OpenSession(
	ctx context.Context,
	factory imdbload.ConnectorFactory,
	connConfig *imdbload.ConnectionConfig,
	schemaName string,
	commit imdbload.CommitGranularity,
	logger imdbload.Logger,
	rec *metrics.Recorder,
) (*Session, error) {
	if factory == nil {
		panic("factory cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	dial := func(ctx context.Context) (*pgxpool.Pool, pinnedConn, io.Closer, error) {
		return dialPinned(ctx, factory, connConfig, schemaName, logger)
	}
	return newSession(ctx, dial, commit, logger, rec)
}

func newSession(ctx context.Context, dial dialFunc, commit imdbload.CommitGranularity, logger imdbload.Logger, rec *metrics.Recorder) (*Session, error) {
	s := &Session{dial: dial, commit: commit, logger: logger, metrics: rec}
	if err := s.open(ctx); err != nil {
		return nil, err
	}
	s.retrier = retry.NewExecutor(
		retry.NewFailoverClassifier(),
		retry.NewConstantBackoff(imdbload.FlushReconnectAttempts, reconnectDelay),
	).WithRecover(s.reconnect)
	return s, nil
}

func dialPinned(
	ctx context.Context,
	factory imdbload.ConnectorFactory,
	connConfig *imdbload.ConnectionConfig,
	schemaName string,
	logger imdbload.Logger,
) (*pgxpool.Pool, pinnedConn, io.Closer, error) {
	logger.Verbose("Connecting to database '%s'", connConfig.Database)

	connector, err := factory(connConfig)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create connector: %w", err)
	}
	pool, err := connector.Connect(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database %q: %w", connConfig.Database, err)
	}
	// The Google connector owns a dialer that outlives the pool.
	closer, _ := connector.(io.Closer)

	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		closeQuietly(closer)
		return nil, nil, nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	searchPath := fmt.Sprintf("SET search_path TO %s, public", pgx.Identifier{schemaName}.Sanitize())
	if _, err := conn.Exec(ctx, searchPath); err != nil {
		conn.Release()
		pool.Close()
		closeQuietly(closer)
		return nil, nil, nil, fmt.Errorf("failed to set search_path: %w", err)
	}
	return pool, conn, closer, nil
}

func (s *Session) open(ctx context.Context) error {
	pool, conn, closer, err := s.dial(ctx)
	if err != nil {
		return err
	}
	s.pool, s.conn, s.closer = pool, conn, closer
	return nil
}

// reconnect closes the pool and opens a new one. It runs between a failed
// flush and its replay.
func (s *Session) reconnect(ctx context.Context, cause error) error {
	s.logger.Info("Connection lost or read-only (%v); reopening the pool", cause)
	s.release()
	return s.open(ctx)
}

// Flush runs fn in the transaction owned by the configured granularity.
// It implements staging.Runner.
func (s *Session) Flush(ctx context.Context, relation string, fn staging.FlushFunc) error {
	if s.tx != nil {
		return fn(ctx, s.tx)
	}

	retrier := s.retrier.WithOnRetry(func(_ int, err error, _ time.Duration) {
		s.metrics.ObserveRetry(relation)
		s.logger.Verbose("Replaying %s flush after: %v", relation, err)
	})
	return retrier.Execute(ctx, func(ctx context.Context) error {
		return s.inTx(ctx, func(ctx context.Context, tx pgx.Tx) error { return fn(ctx, tx) })
	})
}

// Scope runs fn. When level is the configured granularity, fn runs inside one
// transaction that is committed on success and rolled back on error; nested
// flushes join it. Any other level just runs fn.
func (s *Session) Scope(ctx context.Context, level imdbload.CommitGranularity, fn func(ctx context.Context) error) error {
	if level != s.commit || level == imdbload.CommitPerFlush || s.tx != nil {
		return fn(ctx)
	}
	return s.inTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		s.tx = tx
		defer func() { s.tx = nil }()
		return fn(ctx)
	})
}

func (s *Session) inTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Verbose("Rollback failed: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (s *Session) release() {
	if s.conn != nil {
		s.conn.Release()
		s.conn = nil
	}
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	closeQuietly(s.closer)
	s.closer = nil
}

// Close releases the connection and closes the pool. It is idempotent.
func (s *Session) Close() {
	s.release()
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

var _ staging.Runner = (*Session)(nil)
