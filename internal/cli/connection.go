package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vvka-141/imdbload/internal/config"
	"github.com/vvka-141/imdbload/internal/db"
	"github.com/vvka-141/imdbload/pkg/imdbload"
)

// connectionFlags holds the common connection-related flag values.
type connectionFlags struct {
	connection string
	host       string
	port       int
	username   string
	database   string
	sslMode    string
	authMethod string
	awsRegion  string
}

// addConnectionFlags registers the connection flags shared by every command
// that talks to PostgreSQL.
func addConnectionFlags(cmd *cobra.Command, f *connectionFlags) {
	cmd.Flags().StringVar(&f.connection, "connection", "",
		"PostgreSQL connection string (URI or ADO.NET format).\n"+
			"Mutually exclusive with granular flags (--host, --port, --username, --sslmode).\n"+
			"Alternative: DATABASE_URL environment variable.")
	cmd.Flags().StringVarP(&f.host, "host", "H", "",
		"PostgreSQL server host\nPrecedence: --host > $PGHOST > imdbload.yaml > localhost")
	cmd.Flags().IntVarP(&f.port, "port", "p", 0,
		"PostgreSQL server port\nPrecedence: --port > $PGPORT > imdbload.yaml > 5432")
	cmd.Flags().StringVarP(&f.username, "username", "U", "",
		"PostgreSQL user (default: $PGUSER or postgres)")
	cmd.Flags().StringVarP(&f.database, "database", "d", "",
		"Target database (default: $PGDATABASE or bases2_proyectos)")
	cmd.Flags().StringVar(&f.sslMode, "sslmode", "",
		"SSL mode: disable|allow|prefer|require|verify-ca|verify-full\n(default: prefer, or $PGSSLMODE)")
	cmd.Flags().StringVar(&f.authMethod, "auth", "",
		"Authentication method: standard|aws|azure|google (default: standard)")
	cmd.Flags().StringVar(&f.awsRegion, "aws-region", "",
		"AWS region for RDS IAM authentication (overrides $AWS_REGION)")

	_ = cmd.RegisterFlagCompletionFunc("sslmode", completeFrom(sslModes))
	_ = cmd.RegisterFlagCompletionFunc("auth", completeFrom(authMethods))
}

// resolveConnection returns the target connection and the maintenance
// database used for CREATE DATABASE.
func resolveConnection(f connectionFlags, projectCfg *config.ProjectConfig) (*imdbload.ConnectionConfig, string, error) {
	granular := &db.GranularConnFlags{
		Host:       f.host,
		Port:       f.port,
		Username:   f.username,
		Database:   f.database,
		SSLMode:    f.sslMode,
		AuthMethod: f.authMethod,
		AWSRegion:  f.awsRegion,
	}
	return db.ResolveConnectionParams(f.connection, granular, db.LoadFromEnvironment(), projectCfg)
}

// logConnectionVerbose logs connection details when verbose mode is enabled.
func logConnectionVerbose(connConfig *imdbload.ConnectionConfig, maintenanceDB string) {
	fmt.Fprintf(os.Stderr, "[VERBOSE] Connection resolved:\n")
	fmt.Fprintf(os.Stderr, "  Host: %s\n", connConfig.Host)
	fmt.Fprintf(os.Stderr, "  Port: %d\n", connConfig.Port)
	fmt.Fprintf(os.Stderr, "  User: %s\n", connConfig.Username)
	fmt.Fprintf(os.Stderr, "  Database: %s\n", connConfig.Database)
	if maintenanceDB != "" {
		fmt.Fprintf(os.Stderr, "  Maintenance Database: %s\n", maintenanceDB)
	}
	fmt.Fprintf(os.Stderr, "  SSL Mode: %s\n", connConfig.SSLMode)
	fmt.Fprintf(os.Stderr, "  Auth Method: %s\n", connConfig.AuthMethod)
}
