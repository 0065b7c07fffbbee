package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/vvka-141/imdbload/internal/batch"
	"github.com/vvka-141/imdbload/internal/entities"
	"github.com/vvka-141/imdbload/internal/files/filesystem"
	"github.com/vvka-141/imdbload/internal/metrics"
	"github.com/vvka-141/imdbload/internal/staging"
	"github.com/vvka-141/imdbload/pkg/imdbload"
)

// LoadService runs the entity loaders in dependency order over one session.
//
// Thread-Safety: NOT safe for concurrent Run() calls on the same instance.
type LoadService struct {
	connectorFactory imdbload.ConnectorFactory
	logger           imdbload.Logger
	metrics          *metrics.Recorder
	progress         io.Writer
	files            func(dir string) filesystem.FileSystemProvider
}

// LoadOption configures a LoadService.
type LoadOption func(*LoadService)

// WithMetrics records flushes on rec.
func WithMetrics(rec *metrics.Recorder) LoadOption {
	return func(s *LoadService) { s.metrics = rec }
}

// WithProgress sends the per-entity "relation=<count>" lines to w instead of
// stdout.
func WithProgress(w io.Writer) LoadOption {
	return func(s *LoadService) { s.progress = w }
}

// WithFileSystem reads dumps from p instead of the configured directory.
func WithFileSystem(p filesystem.FileSystemProvider) LoadOption {
	return func(s *LoadService) {
		s.files = func(string) filesystem.FileSystemProvider { return p }
	}
}

// NewLoadService creates a LoadService.
// Panics if connectorFactory or logger is nil.
func NewLoadService(connectorFactory imdbload.ConnectorFactory, logger imdbload.Logger, opts ...LoadOption) *LoadService {
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	s := &LoadService{
		connectorFactory: connectorFactory,
		logger:           logger,
		progress:         os.Stdout,
		files: func(dir string) filesystem.FileSystemProvider {
			return filesystem.NewOSFileSystem(dir)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run loads every selected entity. The returned summary is never nil and
// holds whatever was flushed before a failure; committed flushes are not
// undone when the run fails.
func (s *LoadService) Run(ctx context.Context, cfg *imdbload.LoadConfig) (*imdbload.Summary, error) {
	summary := imdbload.NewSummary()
	defer func() { summary.Duration = time.Since(summary.StartedAt) }()

	if err := cfg.Validate(); err != nil {
		return summary, err
	}
	specs, err := entities.Select(cfg.Only)
	if err != nil {
		return summary, err
	}

	files := s.files(cfg.DataDir)
	s.logger.Info("Data directory: %s", files.Root())
	s.logger.Info("Schema: %s", cfg.Schema)
	s.logger.Verbose("Run %s, commit per %s, batches %d/%d", summary.RunID, cfg.Commit, cfg.BatchSmall, cfg.BatchMedium)

	session, err := OpenSession(ctx, s.connectorFactory, cfg.Connection, cfg.Schema, cfg.Commit, s.logger, s.metrics)
	if err != nil {
		return summary, fmt.Errorf("%w: %w", imdbload.ErrLoadFailed, err)
	}
	defer session.Close()

	inserter := staging.NewInserter(cfg.Schema, session, s.logger,
		staging.WithDiagnostics(cfg.Diagnostics),
		staging.WithMetrics(s.metrics),
	)
	loader := entities.NewLoader(files, inserter, batch.Sizes{Small: cfg.BatchSmall, Medium: cfg.BatchMedium}, s.logger)
	onFlush := func(relation string, res staging.Result) {
		summary.Add(relation, res.Offered, res.Inserted, res.Filtered)
	}

	err = session.Scope(ctx, imdbload.CommitPerRun, func(ctx context.Context) error {
		for _, spec := range specs {
			s.logger.Info("Loading %s...", spec.Entity)
			err := session.Scope(ctx, imdbload.CommitPerEntity, func(ctx context.Context) error {
				return loader.Load(ctx, spec, onFlush)
			})
			if err != nil {
				return err
			}
			s.printProgress(spec, summary, cfg.Diagnostics)
		}
		return nil
	})
	if err != nil {
		return summary, fmt.Errorf("%w: %w", imdbload.ErrLoadFailed, err)
	}
	return summary, nil
}

func (s *LoadService) printProgress(spec entities.Spec, summary *imdbload.Summary, diagnostics bool) {
	parts := make([]string, 0, len(spec.Targets))
	for _, t := range spec.Targets {
		rc := summary.Get(t.Relation.Name)
		part := fmt.Sprintf("%s=%d", rc.Relation, rc.Offered)
		if diagnostics {
			part += fmt.Sprintf(" (inserted %d, filtered %d)", rc.Inserted, rc.Filtered)
		}
		parts = append(parts, part)
	}
	fmt.Fprintf(s.progress, "OK %s\n", strings.Join(parts, ", "))
}

// Status maps a run outcome to the coarse status message.
func Status(err error) string {
	if err != nil {
		return imdbload.StatusFailed
	}
	return imdbload.StatusLoaded
}
