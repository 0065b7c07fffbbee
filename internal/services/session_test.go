package services

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/imdbload/internal/logging"
	"github.com/vvka-141/imdbload/internal/metrics"
	"github.com/vvka-141/imdbload/internal/staging"
	"github.com/vvka-141/imdbload/pkg/imdbload"
)

// fakeTx embeds pgx.Tx so only the methods a Session calls need bodies.
type fakeTx struct {
	pgx.Tx
	conn *fakeConn
}

func (t *fakeTx) Commit(context.Context) error {
	t.conn.commits++
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.conn.rollbacks++
	return nil
}

type fakeConn struct {
	id        int
	begins    int
	commits   int
	rollbacks int
	released  bool
}

func (c *fakeConn) Begin(context.Context) (pgx.Tx, error) {
	c.begins++
	return &fakeTx{conn: c}, nil
}

func (c *fakeConn) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (c *fakeConn) Release() { c.released = true }

type dialer struct {
	conns []*fakeConn
	err   error
}

func (d *dialer) dial(context.Context) (*pgxpool.Pool, pinnedConn, io.Closer, error) {
	if d.err != nil {
		return nil, nil, nil, d.err
	}
	c := &fakeConn{id: len(d.conns) + 1}
	d.conns = append(d.conns, c)
	return nil, c, nil, nil
}

func newTestSession(t *testing.T, commit imdbload.CommitGranularity) (*Session, *dialer) {
	t.Helper()
	d := &dialer{}
	s, err := newSession(context.Background(), d.dial, commit, logging.NewNullLogger(), metrics.New())
	require.NoError(t, err)
	return s, d
}

var readOnly = &pgconn.PgError{Code: "25006", Message: "cannot execute INSERT in a read-only transaction"}

func TestSession_FlushCommitsOwnTransaction(t *testing.T) {
	s, d := newTestSession(t, imdbload.CommitPerFlush)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Flush(context.Background(), "ratings", func(context.Context, staging.Tx) error { return nil }))
	}
	assert.Equal(t, 3, d.conns[0].begins)
	assert.Equal(t, 3, d.conns[0].commits)
}

func TestSession_FlushReplaysOnceAfterReconnect(t *testing.T) {
	s, d := newTestSession(t, imdbload.CommitPerFlush)

	calls := 0
	err := s.Flush(context.Background(), "akas", func(context.Context, staging.Tx) error {
		calls++
		if calls == 1 {
			return readOnly
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, d.conns, 2, "pool reopened once")
	assert.True(t, d.conns[0].released)
	assert.Equal(t, 1, d.conns[0].rollbacks)
	assert.Equal(t, 1, d.conns[1].commits)
}

func TestSession_SecondFailureIsFatal(t *testing.T) {
	s, d := newTestSession(t, imdbload.CommitPerFlush)

	calls := 0
	err := s.Flush(context.Background(), "akas", func(context.Context, staging.Tx) error {
		calls++
		return readOnly
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, d.conns, 2)
}

func TestSession_NonConnectionErrorNotReplayed(t *testing.T) {
	s, d := newTestSession(t, imdbload.CommitPerFlush)

	syntax := &pgconn.PgError{Code: "42601"}
	calls := 0
	err := s.Flush(context.Background(), "akas", func(context.Context, staging.Tx) error {
		calls++
		return syntax
	})
	assert.ErrorIs(t, err, syntax)
	assert.Equal(t, 1, calls)
	assert.Len(t, d.conns, 1)
}

func TestSession_ReconnectFailureStops(t *testing.T) {
	s, d := newTestSession(t, imdbload.CommitPerFlush)
	d.err = errors.New("server gone")

	err := s.Flush(context.Background(), "akas", func(context.Context, staging.Tx) error { return readOnly })
	require.Error(t, err)
	assert.ErrorContains(t, err, "server gone")
}

func TestSession_EntityScopeOwnsTransaction(t *testing.T) {
	s, d := newTestSession(t, imdbload.CommitPerEntity)
	ctx := context.Background()

	err := s.Scope(ctx, imdbload.CommitPerRun, func(ctx context.Context) error {
		for e := 0; e < 2; e++ {
			if err := s.Scope(ctx, imdbload.CommitPerEntity, func(ctx context.Context) error {
				for f := 0; f < 3; f++ {
					if err := s.Flush(ctx, "x", func(context.Context, staging.Tx) error { return nil }); err != nil {
						return err
					}
				}
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, d.conns[0].begins)
	assert.Equal(t, 2, d.conns[0].commits)
}

func TestSession_RunScopeFailureRollsBackWithoutReplay(t *testing.T) {
	s, d := newTestSession(t, imdbload.CommitPerRun)
	ctx := context.Background()

	calls := 0
	err := s.Scope(ctx, imdbload.CommitPerRun, func(ctx context.Context) error {
		return s.Flush(ctx, "x", func(context.Context, staging.Tx) error {
			calls++
			return readOnly
		})
	})
	assert.ErrorIs(t, err, readOnly)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, d.conns[0].rollbacks)
	assert.Zero(t, d.conns[0].commits)
	assert.Len(t, d.conns, 1)
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	s, d := newTestSession(t, imdbload.CommitPerFlush)
	s.Close()
	s.Close()
	assert.True(t, d.conns[0].released)
}

func TestOpenSession_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = OpenSession(context.Background(), nil, &imdbload.ConnectionConfig{}, "imdb", imdbload.CommitPerFlush, logging.NewNullLogger(), nil)
	})
}
