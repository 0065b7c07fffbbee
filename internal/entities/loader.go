// Package entities streams one dump per entity type into its relations.
//
// Every loader produces one primary tuple per source line plus zero or more
// fan-out tuples exploded from multi-valued fields. Tuples accumulate in one
// buffer per relation and are flushed through the staged inserter whenever a
// buffer reaches its threshold, so memory stays bounded by the thresholds
// regardless of file size.
package entities

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/vvka-141/imdbload/internal/batch"
	"github.com/vvka-141/imdbload/internal/files/filesystem"
	"github.com/vvka-141/imdbload/internal/files/tsv"
	"github.com/vvka-141/imdbload/internal/schema"
	"github.com/vvka-141/imdbload/internal/staging"
	"github.com/vvka-141/imdbload/pkg/imdbload"
)

// Inserter flushes one buffer. *staging.Inserter implements it.
type Inserter interface {
	InsertFiltered(ctx context.Context, rel schema.Relation, rows [][]any) (staging.Result, error)
}

// Target is one relation a loader writes.
type Target struct {
	Relation schema.Relation
	Tier     batch.Tier
	// After lists relations (of the same loader) that are flushed before this
	// one whenever this one flushes, so freshly buffered parents are visible
	// to its existence checks.
	After []string
}

// Emit appends a tuple to the named relation's buffer.
type Emit func(relation string, tuple ...any)

// Spec declares one entity loader.
type Spec struct {
	// Entity is the dump's base name, e.g. "title.basics".
	Entity string
	// Required header columns.
	Required []string
	// Targets in flush order, parents first.
	Targets []Target
	// Map turns one record into tuples.
	Map func(rec tsv.Record, emit Emit)
}

// FlushFunc observes every completed flush.
type FlushFunc func(relation string, res staging.Result)

// Loader runs entity specs against a source directory.
type Loader struct {
	files    filesystem.FileSystemProvider
	inserter Inserter
	sizes    batch.Sizes
	logger   imdbload.Logger
}

// NewLoader creates a Loader.
// Panics if files, inserter or logger is nil.
func NewLoader(files filesystem.FileSystemProvider, inserter Inserter, sizes batch.Sizes, logger imdbload.Logger) *Loader {
	if files == nil {
		panic("files cannot be nil")
	}
	if inserter == nil {
		panic("inserter cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Loader{files: files, inserter: inserter, sizes: sizes, logger: logger}
}

// run holds the buffers of one Load call.
type run struct {
	l       *Loader
	spec    Spec
	buffers []*batch.Buffer
	index   map[string]int
	onFlush FlushFunc
}

// Load streams spec's dump to completion. A missing dump or a missing
// required column is fatal for this entity; malformed fields are not.
func (l *Loader) Load(ctx context.Context, spec Spec, onFlush FlushFunc) error {
	r, err := tsv.Open(l.files, spec.Entity, spec.Required...)
	if err != nil {
		return err
	}
	defer r.Close()

	ru := &run{l: l, spec: spec, index: make(map[string]int, len(spec.Targets)), onFlush: onFlush}
	for i, t := range spec.Targets {
		ru.buffers = append(ru.buffers, batch.NewBuffer(l.sizes.For(t.Tier)))
		ru.index[t.Relation.Name] = i
	}
	emit := func(relation string, tuple ...any) {
		i, ok := ru.index[relation]
		if !ok {
			panic(fmt.Sprintf("%s: no target relation %q", spec.Entity, relation))
		}
		ru.buffers[i].Add(tuple...)
	}

	l.logger.Verbose("Reading %s (%d columns)", r.Name(), len(r.Header()))
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%s: %w", spec.Entity, err)
		}

		spec.Map(rec, emit)

		for i := range ru.buffers {
			if ru.buffers[i].Due() {
				if err := ru.flush(ctx, i); err != nil {
					return err
				}
			}
		}
	}

	for i := range ru.buffers {
		if err := ru.flush(ctx, i); err != nil {
			return err
		}
	}

	l.logger.Verbose("%s: read %d lines", r.Name(), r.Line())
	if r.Ragged > 0 {
		l.logger.Verbose("%s: %d rows had a field count different from the header", r.Name(), r.Ragged)
	}
	return nil
}

// flush drains buffer i after its prerequisites. Empty buffers are skipped.
func (ru *run) flush(ctx context.Context, i int) error {
	for _, dep := range ru.spec.Targets[i].After {
		j, ok := ru.index[dep]
		if !ok {
			return fmt.Errorf("%s: %s flushes after unknown relation %q", ru.spec.Entity, ru.spec.Targets[i].Relation.Name, dep)
		}
		if err := ru.flush(ctx, j); err != nil {
			return err
		}
	}

	buf := ru.buffers[i]
	if buf.Len() == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rel := ru.spec.Targets[i].Relation
	res, err := ru.l.inserter.InsertFiltered(ctx, rel, buf.Drain())
	if err != nil {
		return fmt.Errorf("%s: flushing %s: %w", ru.spec.Entity, rel.Name, err)
	}
	if ru.onFlush != nil {
		ru.onFlush(rel.Name, res)
	}
	return nil
}
