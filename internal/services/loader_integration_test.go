package services_test

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/imdbload/internal/db"
	"github.com/vvka-141/imdbload/internal/files/filesystem"
	"github.com/vvka-141/imdbload/internal/logging"
	"github.com/vvka-141/imdbload/internal/metrics"
	"github.com/vvka-141/imdbload/internal/schema"
	"github.com/vvka-141/imdbload/internal/services"
	"github.com/vvka-141/imdbload/internal/staging"
	testhelpers "github.com/vvka-141/imdbload/internal/testing"
	"github.com/vvka-141/imdbload/internal/testing/fixtures"
	"github.com/vvka-141/imdbload/pkg/imdbload"
)

type harness struct {
	pool   *pgxpool.Pool
	schema string
	conn   *imdbload.ConnectionConfig
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	connString := testhelpers.RequireDatabase(t)
	pool := testhelpers.GetTestPool(t, connString)
	return &harness{
		pool:   pool,
		schema: testhelpers.CreateTestSchema(t, pool),
		conn:   testhelpers.ConnectionConfig(t, connString),
	}
}

func (h *harness) config(only ...string) *imdbload.LoadConfig {
	return &imdbload.LoadConfig{
		Connection:  h.conn,
		Schema:      h.schema,
		DataDir:     "memory",
		BatchSmall:  2,
		BatchMedium: 3,
		Only:        only,
	}
}

func (h *harness) run(t *testing.T, fs filesystem.FileSystemProvider, cfg *imdbload.LoadConfig) (*imdbload.Summary, error) {
	t.Helper()
	svc := services.NewLoadService(db.NewConnector, logging.NewNullLogger(),
		services.WithFileSystem(fs),
		services.WithProgress(io.Discard),
		services.WithMetrics(metrics.New()),
	)
	return svc.Run(context.Background(), cfg)
}

func (h *harness) counts(t *testing.T) map[string]int64 {
	t.Helper()
	out := make(map[string]int64)
	for _, r := range schema.All() {
		out[r.Name] = testhelpers.CountRows(t, h.pool, h.schema, r.Name)
	}
	return out
}

var completeCounts = map[string]int64{
	"title_basics":     4,
	"basics_genres":    6,
	"name_basics":      2,
	"name_professions": 3,
	"name_known_for":   2,
	"akas":             2,
	"aka_types":        3,
	"aka_attributes":   1,
	"crew_directors":   1,
	"crew_writers":     1,
	"episodes":         2,
	"principals":       2,
	"ratings":          2,
}

func TestLoad_CompleteDataset(t *testing.T) {
	h := newHarness(t)

	summary, err := h.run(t, fixtures.Complete().Build(), h.config())
	require.NoError(t, err)
	assert.Equal(t, imdbload.StatusLoaded, services.Status(err))
	assert.Equal(t, completeCounts, h.counts(t))

	// Offered is the self-reported count, not what survived filtering.
	assert.Equal(t, int64(5), summary.Get("title_basics").Offered)
	assert.Equal(t, int64(4), summary.Get("title_basics").Inserted)
	assert.Equal(t, int64(3), summary.Get("ratings").Offered)
}

func TestLoad_Idempotent(t *testing.T) {
	h := newHarness(t)
	fs := fixtures.Complete().Build()

	_, err := h.run(t, fs, h.config())
	require.NoError(t, err)
	first := h.counts(t)

	summary, err := h.run(t, fs, h.config())
	require.NoError(t, err)
	assert.Equal(t, first, h.counts(t))
	for _, rc := range summary.Relations {
		assert.Zero(t, rc.Inserted, "%s inserted rows on rerun", rc.Relation)
	}
}

func TestLoad_ReferentialSoundness(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, fixtures.Complete().Build(), h.config())
	require.NoError(t, err)

	for _, rel := range schema.All() {
		for _, p := range rel.Parents {
			match := ""
			for i, ref := range p.On {
				if i > 0 {
					match += " AND "
				}
				match += fmt.Sprintf("p.%s = c.%s", ref.Parent, ref.Child)
			}
			cond := fmt.Sprintf("NOT EXISTS (SELECT 1 FROM %s p WHERE %s)", schema.Qualified(h.schema, p.Table), match)
			if p.Optional {
				cond = fmt.Sprintf("c.%s IS NOT NULL AND %s", p.On[0].Child, cond)
			}
			query := fmt.Sprintf("SELECT count(*) FROM %s c WHERE %s", schema.Qualified(h.schema, rel.Name), cond)

			var orphans int64
			require.NoError(t, h.pool.QueryRow(context.Background(), query).Scan(&orphans))
			assert.Zero(t, orphans, "%s has rows without %s", rel.Name, p.Table)
		}
	}
}

func TestLoad_FanOutAndSentinels(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, fixtures.Complete().Build(), h.config())
	require.NoError(t, err)
	ctx := context.Background()

	var genres int
	require.NoError(t, h.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT count(*) FROM %s WHERE tconst = 'tt0000004'", schema.Qualified(h.schema, "basics_genres"))).Scan(&genres))
	assert.Equal(t, 2, genres)

	var primary string
	var adult bool
	require.NoError(t, h.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT primarytitle, isadult FROM %s WHERE tconst = 'tt0000002'", schema.Qualified(h.schema, "title_basics"))).Scan(&primary, &adult))
	assert.Equal(t, `\N`, primary, "sentinel stored as a literal, not NULL")
	assert.True(t, adult)

	var adult3 bool
	require.NoError(t, h.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT isadult FROM %s WHERE tconst = 'tt0000003'", schema.Qualified(h.schema, "title_basics"))).Scan(&adult3))
	assert.False(t, adult3)

	var first string
	require.NoError(t, h.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT primarytitle FROM %s WHERE tconst = 'tt0000001'", schema.Qualified(h.schema, "title_basics"))).Scan(&first))
	assert.Equal(t, "Carmencita", first, "first occurrence wins")

	var votes int
	var avg float64
	require.NoError(t, h.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT averagerating::float8, numvotes FROM %s WHERE tconst = 'tt0000002'", schema.Qualified(h.schema, "ratings"))).Scan(&avg, &votes))
	assert.Zero(t, avg)
	assert.Zero(t, votes)
}

func TestLoad_PartialRunDurability(t *testing.T) {
	h := newHarness(t)
	fs := fixtures.Complete().Build()

	_, err := h.run(t, fs, h.config("title.basics"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), testhelpers.CountRows(t, h.pool, h.schema, "title_basics"))
	assert.Zero(t, testhelpers.CountRows(t, h.pool, h.schema, "name_basics"))

	_, err = h.run(t, fs, h.config())
	require.NoError(t, err)
	assert.Equal(t, completeCounts, h.counts(t))
}

func TestLoad_FailureKeepsEarlierCommits(t *testing.T) {
	h := newHarness(t)
	fs := fixtures.NewDatasetBuilder().
		Title("tt1", "movie", "A", "0", "Drama").
		Title("tt2", "movie", "B", "0", `\N`).
		Title("tt3", "movie", "C", "0", `\N`).
		Build()

	_, err := h.run(t, fs, h.config())
	require.Error(t, err)
	assert.ErrorIs(t, err, imdbload.ErrLoadFailed)
	assert.ErrorIs(t, err, imdbload.ErrSourceMissing)
	assert.Equal(t, imdbload.StatusFailed, services.Status(err))

	assert.Equal(t, int64(3), testhelpers.CountRows(t, h.pool, h.schema, "title_basics"))
	assert.Equal(t, int64(1), testhelpers.CountRows(t, h.pool, h.schema, "basics_genres"))
}

func TestLoad_RunGranularityIsAllOrNothing(t *testing.T) {
	h := newHarness(t)
	fs := fixtures.NewDatasetBuilder().
		Title("tt1", "movie", "A", "0", "Drama").
		Title("tt2", "movie", "B", "0", `\N`).
		Title("tt3", "movie", "C", "0", `\N`).
		Build()

	cfg := h.config()
	cfg.Commit = imdbload.CommitPerRun
	_, err := h.run(t, fs, cfg)
	require.Error(t, err)

	assert.Zero(t, testhelpers.CountRows(t, h.pool, h.schema, "title_basics"))
}

func TestLoad_EntityGranularity(t *testing.T) {
	h := newHarness(t)
	cfg := h.config()
	cfg.Commit = imdbload.CommitPerEntity

	_, err := h.run(t, fixtures.Complete().Build(), cfg)
	require.NoError(t, err)
	assert.Equal(t, completeCounts, h.counts(t))
}

func TestLoad_Diagnostics(t *testing.T) {
	h := newHarness(t)
	cfg := h.config()
	cfg.Diagnostics = true

	summary, err := h.run(t, fixtures.Complete().Build(), cfg)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Get("name_known_for").Filtered)
	assert.Equal(t, int64(1), summary.Get("akas").Filtered)
	assert.Equal(t, int64(1), summary.Get("episodes").Filtered)
	assert.Equal(t, int64(1), summary.Get("principals").Filtered)
	assert.Zero(t, summary.Get("title_basics").Filtered)
}

// A child batch flushed while its parent is still buffered sees no parent
// and loses its rows for good.
func TestInsertFiltered_ChildBeforeParentFlush(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	logger := logging.NewNullLogger()

	session, err := services.OpenSession(ctx, db.NewConnector, h.conn, h.schema, imdbload.CommitPerFlush, logger, nil)
	require.NoError(t, err)
	defer session.Close()
	ins := staging.NewInserter(h.schema, session, logger)

	_, err = ins.InsertFiltered(ctx, schema.TitleBasics, [][]any{{"tt1", "movie", "A", "A", false, nil, nil, nil}})
	require.NoError(t, err)

	bufferedAka := []any{"tt1", int32(1), "A", nil, true}
	res, err := ins.InsertFiltered(ctx, schema.AkaTypes, [][]any{{"tt1", int32(1), "original"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Offered)
	assert.Zero(t, res.Inserted)

	_, err = ins.InsertFiltered(ctx, schema.Akas, [][]any{bufferedAka})
	require.NoError(t, err)
	assert.Zero(t, testhelpers.CountRows(t, h.pool, h.schema, "aka_types"), "dropped rows are not retried")
}

func TestSession_ReconnectsAfterBackendTerminated(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	logger := logging.NewNullLogger()

	session, err := services.OpenSession(ctx, db.NewConnector, h.conn, h.schema, imdbload.CommitPerFlush, logger, nil)
	require.NoError(t, err)
	defer session.Close()

	var pid int32
	require.NoError(t, session.Flush(ctx, "probe", func(ctx context.Context, tx staging.Tx) error {
		return tx.QueryRow(ctx, "SELECT pg_backend_pid()").Scan(&pid)
	}))
	_, err = h.pool.Exec(ctx, "SELECT pg_terminate_backend($1, 5000)", pid)
	require.NoError(t, err)

	ins := staging.NewInserter(h.schema, session, logger)
	res, err := ins.InsertFiltered(ctx, schema.TitleBasics, [][]any{{"tt1", "movie", "A", "A", false, nil, nil, nil}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Inserted)
	assert.Equal(t, int64(1), testhelpers.CountRows(t, h.pool, h.schema, "title_basics"))
}
