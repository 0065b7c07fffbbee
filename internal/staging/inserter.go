// Package staging implements the staged referential insert shared by every
// relation: the buffer is copied into a temporary table, and only rows whose
// parents already exist are moved into the destination with
// ON CONFLICT DO NOTHING.
package staging

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/imdbload/internal/metrics"
	"github.com/vvka-141/imdbload/internal/schema"
	"github.com/vvka-141/imdbload/pkg/imdbload"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Tx is the subset of pgx.Tx a flush needs.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

// FlushFunc performs one flush inside tx.
type FlushFunc func(ctx context.Context, tx Tx) error

// Runner decides the transaction a flush runs in. It commits, rolls back and
// replays the flush according to the configured commit granularity.
type Runner interface {
	Flush(ctx context.Context, relation string, fn FlushFunc) error
}

// Result reports one flush.
type Result struct {
	// Offered is the number of buffered rows handed in. It is an upper bound
	// on affected rows and only meant for progress output.
	Offered int64
	// Inserted is the row count reported by the INSERT.
	Inserted int64
	// Filtered counts staged rows failing a parent or NOT NULL check.
	// Only populated with diagnostics enabled.
	Filtered int64
}

// Inserter runs staged referential inserts against one schema.
type Inserter struct {
	schema      string
	runner      Runner
	logger      imdbload.Logger
	metrics     *metrics.Recorder
	diagnostics bool
	seq         atomic.Uint64
}

// Option configures an Inserter.
type Option func(*Inserter)

// WithDiagnostics enables counting rows dropped by the parent checks. It costs
// one extra scan of the staging table per flush.
func WithDiagnostics(enabled bool) Option {
	return func(i *Inserter) { i.diagnostics = enabled }
}

// WithMetrics records every flush on rec.
func WithMetrics(rec *metrics.Recorder) Option {
	return func(i *Inserter) { i.metrics = rec }
}

// NewInserter creates an Inserter writing into schemaName.
// Panics if runner or logger is nil.
func NewInserter(schemaName string, runner Runner, logger imdbload.Logger, opts ...Option) *Inserter {
	if runner == nil {
		panic("runner cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	i := &Inserter{schema: schemaName, runner: runner, logger: logger}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// InsertFiltered stages rows and copies the referentially valid ones into rel.
// An empty batch is a no-op.
func (i *Inserter) InsertFiltered(ctx context.Context, rel schema.Relation, rows [][]any) (Result, error) {
	res := Result{Offered: int64(len(rows))}
	if len(rows) == 0 {
		return res, nil
	}

	stage := fmt.Sprintf("stage_%s_%d", rel.Name, i.seq.Add(1))
	insertSQL, err := InsertSQL(i.schema, rel, stage)
	if err != nil {
		return res, err
	}
	var countSQL string
	if i.diagnostics {
		if countSQL, err = FilteredCountSQL(i.schema, rel, stage); err != nil {
			return res, err
		}
	}

	start := time.Now()
	err = i.runner.Flush(ctx, rel.Name, func(ctx context.Context, tx Tx) error {
		// Reset so a replayed flush does not double count.
		res.Inserted, res.Filtered = 0, 0

		if _, err := tx.Exec(ctx, rel.StageTableSQL(stage)); err != nil {
			return fmt.Errorf("create staging table for %s: %w", rel.Name, err)
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{stage}, rel.ColumnNames(), pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("copy %d rows into staging for %s: %w", len(rows), rel.Name, err)
		}
		if countSQL != "" {
			if err := tx.QueryRow(ctx, countSQL).Scan(&res.Filtered); err != nil {
				return fmt.Errorf("count filtered rows for %s: %w", rel.Name, err)
			}
		}
		tag, err := tx.Exec(ctx, insertSQL)
		if err != nil {
			return fmt.Errorf("insert into %s: %w", rel.Name, err)
		}
		res.Inserted = tag.RowsAffected()

		if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+pgx.Identifier{stage}.Sanitize()); err != nil {
			return fmt.Errorf("drop staging table for %s: %w", rel.Name, err)
		}
		return nil
	})
	if err != nil {
		return res, err
	}

	elapsed := time.Since(start)
	i.metrics.ObserveFlush(rel.Name, res.Offered, res.Inserted, res.Filtered, elapsed)
	i.logger.Verbose("flushed %s: offered=%d inserted=%d filtered=%d in %v",
		rel.Name, res.Offered, res.Inserted, res.Filtered, elapsed.Round(time.Millisecond))
	return res, nil
}

// InsertSQL builds the INSERT ... SELECT moving valid rows from stage into rel.
// Rows are read in physical staging order so the first occurrence of a
// repeated key within one batch is the one kept.
func InsertSQL(schemaName string, rel schema.Relation, stage string) (string, error) {
	cols := quoted(rel.ColumnNames())
	selected := make([]string, len(cols))
	for i, c := range cols {
		selected[i] = "t." + c
	}

	sel := psql.Select(selected...).
		From(pgx.Identifier{stage}.Sanitize() + " t").
		Where(predicates(schemaName, rel)).
		OrderBy("t.ctid")

	sqlStr, _, err := psql.Insert(schema.Qualified(schemaName, rel.Name)).
		Columns(cols...).
		Select(sel).
		Suffix(fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", strings.Join(quoted(rel.Key), ", "))).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build insert for %s: %w", rel.Name, err)
	}
	return sqlStr, nil
}

// FilteredCountSQL builds the query counting staged rows that InsertSQL skips
// for a reason other than a key conflict.
func FilteredCountSQL(schemaName string, rel schema.Relation, stage string) (string, error) {
	cond, _, err := predicates(schemaName, rel).ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build predicates for %s: %w", rel.Name, err)
	}
	sqlStr, _, err := psql.Select("count(*)").
		From(pgx.Identifier{stage}.Sanitize() + " t").
		Where("NOT " + cond).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build filtered count for %s: %w", rel.Name, err)
	}
	return sqlStr, nil
}

// predicates returns the row filter: NOT NULL columns must be present, and
// every parent must have a matching row.
func predicates(schemaName string, rel schema.Relation) sq.And {
	var preds sq.And
	for _, c := range rel.Columns {
		if c.NotNull {
			preds = append(preds, sq.Expr("t."+pgx.Identifier{c.Name}.Sanitize()+" IS NOT NULL"))
		}
	}
	for n, p := range rel.Parents {
		alias := fmt.Sprintf("p%d", n)
		match := make([]string, len(p.On))
		for k, ref := range p.On {
			match[k] = fmt.Sprintf("%s.%s = t.%s", alias,
				pgx.Identifier{ref.Parent}.Sanitize(), pgx.Identifier{ref.Child}.Sanitize())
		}
		exists := fmt.Sprintf("EXISTS (SELECT 1 FROM %s %s WHERE %s)",
			schema.Qualified(schemaName, p.Table), alias, strings.Join(match, " AND "))
		if p.Optional {
			exists = fmt.Sprintf("(t.%s IS NULL OR %s)", pgx.Identifier{p.On[0].Child}.Sanitize(), exists)
		}
		preds = append(preds, sq.Expr(exists))
	}
	return preds
}

func quoted(names []string) []string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = pgx.Identifier{n}.Sanitize()
	}
	return q
}
