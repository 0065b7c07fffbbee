package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/imdbload/internal/db"
	"github.com/vvka-141/imdbload/internal/retry"
	"github.com/vvka-141/imdbload/internal/schema"
	"github.com/vvka-141/imdbload/pkg/imdbload"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	conflictDoNothing = "ON CONFLICT (nconst) DO NOTHING"
	conflictDoUpdate  = "ON CONFLICT (nconst) DO UPDATE SET " +
		"primaryname = EXCLUDED.primaryname, " +
		"birthyear = EXCLUDED.birthyear, " +
		"deathyear = EXCLUDED.deathyear"
)

// OpenFunc opens a fresh pool.
type OpenFunc func(ctx context.Context) (*pgxpool.Pool, error)

// PgStore writes name records to PostgreSQL and reports the server role.
//
// A write that fails because the pool points at a standby or lost its
// connection is retried once after the pool is reopened. Behind a virtual IP
// the reopened pool reaches the new primary.
//
// Thread-Safety: safe for concurrent use.
type PgStore struct {
	open    OpenFunc
	table   string
	logger  imdbload.Logger
	retrier *retry.Executor

	mu   sync.RWMutex
	pool *pgxpool.Pool
}

// NewPgStore opens the first pool and targets schemaName.name_basics.
func NewPgStore(ctx context.Context, open OpenFunc, schemaName string, logger imdbload.Logger) (*PgStore, error) {
	if open == nil {
		panic("open cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	pool, err := open(ctx)
	if err != nil {
		return nil, err
	}
	s := &PgStore{
		open:   open,
		table:  schema.Qualified(schemaName, schema.NameBasics.Name),
		logger: logger,
		pool:   pool,
	}
	s.retrier = retry.NewExecutor(
		retry.NewFailoverClassifier(),
		retry.NewConstantBackoff(imdbload.FlushReconnectAttempts, 200*time.Millisecond),
	).WithOnRetry(func(_ int, err error, _ time.Duration) {
		s.logger.Info("Write failed (%v), reopening pool", err)
	}).WithRecover(s.reopen)
	return s, nil
}

func (s *PgStore) current() *pgxpool.Pool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool
}

func (s *PgStore) reopen(ctx context.Context, _ error) error {
	pool, err := s.open(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	old := s.pool
	s.pool = pool
	s.mu.Unlock()
	old.Close()
	return nil
}

// InsertSQL builds the single-row statement.
func InsertSQL(table string, n NameBasic, upsert bool) (string, []any, error) {
	suffix := conflictDoNothing
	if upsert {
		suffix = conflictDoUpdate
	}
	return psql.Insert(table).
		Columns("nconst", "primaryname", "birthyear", "deathyear").
		Values(n.NConst, n.PrimaryName, n.BirthYear, n.DeathYear).
		Suffix(suffix).
		ToSql()
}

func (s *PgStore) Insert(ctx context.Context, n NameBasic, upsert bool) error {
	sqlStr, args, err := InsertSQL(s.table, n, upsert)
	if err != nil {
		return err
	}
	return s.retrier.Execute(ctx, func(ctx context.Context) error {
		if _, err := s.current().Exec(ctx, sqlStr, args...); err != nil {
			return fmt.Errorf("insert %s: %w", n.NConst, err)
		}
		return nil
	})
}

// InsertBatch sends the rows as one pgx batch, which runs in a single
// implicit transaction.
func (s *PgStore) InsertBatch(ctx context.Context, items []NameBasic, upsert bool) error {
	if len(items) == 0 {
		return nil
	}
	type stmt struct {
		sql  string
		args []any
	}
	stmts := make([]stmt, 0, len(items))
	for _, n := range items {
		sqlStr, args, err := InsertSQL(s.table, n, upsert)
		if err != nil {
			return err
		}
		stmts = append(stmts, stmt{sqlStr, args})
	}
	return s.retrier.Execute(ctx, func(ctx context.Context) error {
		batch := &pgx.Batch{}
		for _, st := range stmts {
			batch.Queue(st.sql, st.args...)
		}
		if err := s.current().SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert batch of %d: %w", len(items), err)
		}
		return nil
	})
}

func (s *PgStore) Role(ctx context.Context) (string, error) {
	return db.ServerRole(ctx, s.current())
}

func (s *PgStore) Close() {
	s.current().Close()
}

var (
	_ NameStore    = (*PgStore)(nil)
	_ RoleReporter = (*PgStore)(nil)
)
