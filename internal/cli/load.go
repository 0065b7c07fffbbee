package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vvka-141/imdbload/internal/api"
	"github.com/vvka-141/imdbload/internal/config"
	"github.com/vvka-141/imdbload/internal/db"
	"github.com/vvka-141/imdbload/internal/metrics"
	"github.com/vvka-141/imdbload/internal/services"
	"github.com/vvka-141/imdbload/internal/ui"
	"github.com/vvka-141/imdbload/pkg/imdbload"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the TSV dumps into PostgreSQL",
	Long: `Load streams each dump and inserts it in dependency order:

  title.basics → name.basics → title.akas → title.crew → title.episode →
  title.principals → title.ratings

For every entity the files <entity>.tsv and <entity>.tsv.gz are tried in the
data directory. Rows referencing a title or person that is not loaded are
skipped; duplicate keys are ignored.

Commit granularity (--commit):
  flush   commit after every batch (default); an interrupted run keeps what
          was committed and a rerun resumes by skipping duplicates
  entity  commit once per dump file
  run     one transaction for the whole run

Password Authentication:
  Password is NOT accepted as a CLI flag. Use $PGPASSWORD, .env, or a
  connection string.

Examples:
  imdbload load --data-dir ./data
  imdbload load --only title.basics,title.ratings --commit entity
  imdbload load --connection postgresql://loader@db/bases2_proyectos --diagnostics`,
	Args: cobra.NoArgs,
	RunE: runLoad,
}

type loadFlagValues struct {
	conn        connectionFlags
	schema      string
	dataDir     string
	only        []string
	commit      string
	batchSmall  int
	batchMedium int
	diagnostics bool
	timeout     time.Duration
	metricsAddr string
}

var loadFlags loadFlagValues

func init() {
	rootCmd.AddCommand(loadCmd)
	addLoadFlags(loadCmd, &loadFlags)
}

func addLoadFlags(cmd *cobra.Command, f *loadFlagValues) {
	addConnectionFlags(cmd, &f.conn)

	cmd.Flags().StringVar(&f.schema, "schema", imdbload.DefaultSchema,
		"Destination schema (or $PGSCHEMA)")
	cmd.Flags().StringVar(&f.dataDir, "data-dir", imdbload.DefaultDataDir,
		"Directory holding the dumps (or $IMDB_DATA_DIR)")
	cmd.Flags().StringSliceVar(&f.only, "only", nil,
		"Load only these entities, still in dependency order\n"+
			"Example: --only title.basics,title.akas")
	cmd.Flags().StringVar(&f.commit, "commit", "flush",
		"Transaction boundary: flush|entity|run")
	cmd.Flags().IntVar(&f.batchSmall, "batch-small", imdbload.DefaultBatchSmall,
		"Flush threshold for primary relations (or $IMDB_BATCH_SMALL)")
	cmd.Flags().IntVar(&f.batchMedium, "batch-medium", imdbload.DefaultBatchMedium,
		"Flush threshold for child relations (or $IMDB_BATCH_MEDIUM)")
	cmd.Flags().BoolVar(&f.diagnostics, "diagnostics", false,
		"Count rows dropped by parent checks (one extra query per flush)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", imdbload.DefaultTimeout,
		"Abort the run after this long. Examples: 30m, 6h")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "",
		"Serve Prometheus flush metrics on this address during the run (or $IMDB_METRICS_ADDR)\n"+
			"Example: --metrics-addr :9102")

	_ = cmd.RegisterFlagCompletionFunc("only", completeEntities)
	_ = cmd.RegisterFlagCompletionFunc("commit", completeFrom(commitModes))
}

// buildLoadConfig resolves a LoadConfig from flags, environment and
// imdbload.yaml.
func buildLoadConfig(cmd *cobra.Command, f loadFlagValues, projectCfg *config.ProjectConfig, verbose bool) (*imdbload.LoadConfig, error) {
	pc := projectCfg
	if pc == nil {
		pc = &config.ProjectConfig{}
	}

	connConfig, maintenanceDB, err := resolveConnection(f.conn, projectCfg)
	if err != nil {
		return nil, err
	}
	if verbose {
		logConnectionVerbose(connConfig, maintenanceDB)
	}

	commit, err := imdbload.ParseCommitGranularity(pickString(cmd, "commit", f.commit, "", pc.Commit, f.commit))
	if err != nil {
		return nil, err
	}
	small, err := pickInt(cmd, "batch-small", f.batchSmall, "IMDB_BATCH_SMALL", pc.Batch.Small, imdbload.DefaultBatchSmall)
	if err != nil {
		return nil, err
	}
	medium, err := pickInt(cmd, "batch-medium", f.batchMedium, "IMDB_BATCH_MEDIUM", pc.Batch.Medium, imdbload.DefaultBatchMedium)
	if err != nil {
		return nil, err
	}
	timeout, err := resolveEffectiveTimeout(cmd, projectCfg, f.timeout)
	if err != nil {
		return nil, err
	}

	var only []string
	for _, name := range f.only {
		if name = strings.TrimSpace(name); name != "" {
			only = append(only, name)
		}
	}

	return &imdbload.LoadConfig{
		Connection:  connConfig,
		Schema:      pickString(cmd, "schema", f.schema, "PGSCHEMA", pc.Schema, imdbload.DefaultSchema),
		DataDir:     pickString(cmd, "data-dir", f.dataDir, "IMDB_DATA_DIR", pc.DataDir, imdbload.DefaultDataDir),
		BatchSmall:  small,
		BatchMedium: medium,
		Commit:      commit,
		Only:        only,
		Diagnostics: f.diagnostics,
		Timeout:     timeout,
		Verbose:     verbose,
	}, nil
}

func runLoad(cmd *cobra.Command, _ []string) error {
	verbose := getVerboseFlag(cmd)
	projectCfg, err := loadProjectConfig(getConfigFlag(cmd))
	if err != nil {
		return err
	}
	cfg, err := buildLoadConfig(cmd, loadFlags, projectCfg, verbose)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cfg.Timeout, "load")
	defer cancel()

	rec := metrics.New()
	stopMetrics := startMetricsEndpoint(ctx, pickString(cmd, "metrics-addr", loadFlags.metricsAddr, "IMDB_METRICS_ADDR", "", ""), rec)
	defer stopMetrics()

	svc := services.NewLoadService(db.NewConnector, newConsoleLogger(cmd), services.WithMetrics(rec))
	summary, err := svc.Run(ctx, cfg)

	renderer := ui.NewRenderer(os.Stdout, ui.IsInteractive())
	if len(summary.Relations) > 0 {
		renderer.Summary(summary)
	}
	renderer.Status(services.Status(err), err == nil)
	return err
}

// startMetricsEndpoint serves rec on addr until the returned stop is called
// or ctx ends. An empty addr serves nothing.
func startMetricsEndpoint(ctx context.Context, addr string, rec *metrics.Recorder) (stop func()) {
	if addr == "" {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := api.NewServer(addr, rec.Handler()).Run(ctx, zap.NewNop(), 2*time.Second); err != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] metrics endpoint %s: %v\n", addr, err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
