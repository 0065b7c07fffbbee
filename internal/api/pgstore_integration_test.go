package api_test

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/imdbload/internal/api"
	"github.com/vvka-141/imdbload/internal/db"
	"github.com/vvka-141/imdbload/internal/logging"
	testhelpers "github.com/vvka-141/imdbload/internal/testing"
)

type storeHarness struct {
	admin  *pgxpool.Pool
	schema string
	store  *api.PgStore
	opens  *atomic.Int32
}

func newStoreHarness(t *testing.T) *storeHarness {
	t.Helper()
	connString := testhelpers.RequireDatabase(t)
	admin := testhelpers.GetTestPool(t, connString)
	schemaName := testhelpers.CreateTestSchema(t, admin)

	opens := &atomic.Int32{}
	open := func(ctx context.Context) (*pgxpool.Pool, error) {
		opens.Add(1)
		return pgxpool.New(ctx, connString)
	}
	store, err := api.NewPgStore(context.Background(), open, schemaName, logging.NewNullLogger())
	require.NoError(t, err)
	t.Cleanup(store.Close)

	return &storeHarness{admin: admin, schema: schemaName, store: store, opens: opens}
}

func (h *storeHarness) name(t *testing.T, nconst string) (string, *int32) {
	t.Helper()
	var primary string
	var birth *int32
	query := fmt.Sprintf("SELECT primaryname, birthyear FROM %s WHERE nconst = $1",
		pgx.Identifier{h.schema, "name_basics"}.Sanitize())
	require.NoError(t, h.admin.QueryRow(context.Background(), query, nconst).Scan(&primary, &birth))
	return primary, birth
}

func yearPtr(v int32) *int32 { return &v }

func TestPgStore_InsertAndUpsert(t *testing.T) {
	h := newStoreHarness(t)
	ctx := context.Background()

	require.NoError(t, h.store.Insert(ctx, api.NameBasic{NConst: "nm1", PrimaryName: "First", BirthYear: yearPtr(1900)}, true))

	require.NoError(t, h.store.Insert(ctx, api.NameBasic{NConst: "nm1", PrimaryName: "Ignored"}, false))
	name, birth := h.name(t, "nm1")
	assert.Equal(t, "First", name)
	require.NotNil(t, birth)
	assert.Equal(t, int32(1900), *birth)

	require.NoError(t, h.store.Insert(ctx, api.NameBasic{NConst: "nm1", PrimaryName: "Second"}, true))
	name, birth = h.name(t, "nm1")
	assert.Equal(t, "Second", name)
	assert.Nil(t, birth, "upsert overwrites with null")
}

func TestPgStore_InsertBatch(t *testing.T) {
	h := newStoreHarness(t)
	ctx := context.Background()

	items := []api.NameBasic{
		{NConst: "nm1", PrimaryName: "A"},
		{NConst: "nm2", PrimaryName: "B", BirthYear: yearPtr(1950)},
		{NConst: "nm3", PrimaryName: "C"},
	}
	require.NoError(t, h.store.InsertBatch(ctx, items, true))
	assert.Equal(t, int64(3), testhelpers.CountRows(t, h.admin, h.schema, "name_basics"))

	require.NoError(t, h.store.InsertBatch(ctx, nil, true))
}

func TestPgStore_BatchIsAtomic(t *testing.T) {
	h := newStoreHarness(t)
	ctx := context.Background()

	items := []api.NameBasic{
		{NConst: "nm1", PrimaryName: "A"},
		{NConst: "nm2", PrimaryName: strings.Repeat("x", 600)},
	}
	require.Error(t, h.store.InsertBatch(ctx, items, true))
	assert.Equal(t, int64(0), testhelpers.CountRows(t, h.admin, h.schema, "name_basics"))
}

func TestPgStore_ReopensClosedPool(t *testing.T) {
	h := newStoreHarness(t)
	ctx := context.Background()

	// Simulates a failover: the pool the store holds is gone.
	h.store.Close()

	require.NoError(t, h.store.Insert(ctx, api.NameBasic{NConst: "nm9", PrimaryName: "After"}, true))
	assert.Equal(t, int32(2), h.opens.Load())
	assert.Equal(t, int64(1), testhelpers.CountRows(t, h.admin, h.schema, "name_basics"))
}

func TestPgStore_Role(t *testing.T) {
	h := newStoreHarness(t)
	role, err := h.store.Role(context.Background())
	require.NoError(t, err)
	assert.Equal(t, db.RolePrimary, role)
}
