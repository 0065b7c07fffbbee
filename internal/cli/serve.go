package cli

import (
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vvka-141/imdbload/internal/api"
	"github.com/vvka-141/imdbload/internal/backuplog"
	"github.com/vvka-141/imdbload/internal/config"
	"github.com/vvka-141/imdbload/internal/db"
	"github.com/vvka-141/imdbload/internal/logging"
	"github.com/vvka-141/imdbload/internal/metrics"
	"github.com/vvka-141/imdbload/pkg/imdbload"
)

const (
	defaultServeAddr = ":8000"
	shutdownGrace    = 15 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP façade for name records and backup logs",
	Long: `Serve exposes:

  POST /name_basics?upsert=true|false   insert or upsert one person
  POST /name_basics/batch               {"items": [...], "upsert": true}
  GET  /health                          {"status": "ok", "role": "primary|standby"}
  POST /backup/log                      record a backup event
  GET  /backup/logs?limit=50            newest backup events first
  GET  /metrics                         Prometheus metrics

Writes that fail on a read-only standby or a dropped connection are retried
once on a reopened pool. Backup events go to Redis when --redis-url (or
$REDIS_URL) is set, otherwise to an in-memory ring.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

type serveFlagValues struct {
	conn     connectionFlags
	schema   string
	addr     string
	redisURL string
	logLevel string
}

var serveFlags serveFlagValues

func init() {
	rootCmd.AddCommand(serveCmd)
	addConnectionFlags(serveCmd, &serveFlags.conn)
	serveCmd.Flags().StringVar(&serveFlags.schema, "schema", imdbload.DefaultSchema, "Schema holding name_basics (or $PGSCHEMA)")
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", defaultServeAddr, "Listen address")
	serveCmd.Flags().StringVar(&serveFlags.redisURL, "redis-url", "", "Redis URL for the backup log (or $REDIS_URL)")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "info", "debug|info|warn|error")
}

type serveSettings struct {
	addr     string
	schema   string
	redisURL string
	logLevel string
}

func resolveServeSettings(cmd *cobra.Command, f serveFlagValues, projectCfg *config.ProjectConfig) serveSettings {
	pc := projectCfg
	if pc == nil {
		pc = &config.ProjectConfig{}
	}
	return serveSettings{
		addr:     pickString(cmd, "addr", f.addr, "", pc.Serve.Addr, defaultServeAddr),
		schema:   pickString(cmd, "schema", f.schema, "PGSCHEMA", pc.Schema, imdbload.DefaultSchema),
		redisURL: pickString(cmd, "redis-url", f.redisURL, "REDIS_URL", pc.Serve.RedisURL, ""),
		logLevel: pickString(cmd, "log-level", f.logLevel, "", pc.Serve.LogLevel, "info"),
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	projectCfg, err := loadProjectConfig(getConfigFlag(cmd))
	if err != nil {
		return err
	}
	settings := resolveServeSettings(cmd, serveFlags, projectCfg)

	zl, err := logging.NewZap(settings.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()
	logger := logging.NewZapLogger(zl)

	connConfig, _, err := resolveConnection(serveFlags.conn, projectCfg)
	if err != nil {
		return err
	}
	connector, err := db.NewConnector(connConfig)
	if err != nil {
		return err
	}
	if c, ok := connector.(io.Closer); ok {
		defer c.Close()
	}

	ctx, cancel := signalContext(0, "server")
	defer cancel()

	names, err := api.NewPgStore(ctx, connector.Connect, settings.schema, logger)
	if err != nil {
		return err
	}
	defer names.Close()

	backups, err := backuplog.NewStore(settings.redisURL, imdbload.BackupLogCapacity)
	if err != nil {
		return err
	}
	if c, ok := backups.(io.Closer); ok {
		defer c.Close()
	}
	backend := "memory"
	if settings.redisURL != "" {
		backend = "redis"
	}

	router := api.NewRouter(api.Deps{
		Names:   names,
		Roles:   names,
		Backups: backups,
		Metrics: metrics.New(),
		Logger:  zl,
	})

	zl.Info("serving",
		zap.String("database", connConfig.Database),
		zap.String("schema", settings.schema),
		zap.String("backup_log", backend))
	return api.NewServer(settings.addr, router).Run(ctx, zl, shutdownGrace)
}
