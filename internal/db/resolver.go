package db

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/vvka-141/imdbload/internal/config"
	"github.com/vvka-141/imdbload/pkg/imdbload"
)

// Connection defaults used when neither flags, environment nor imdbload.yaml
// provide a value.
const (
	DefaultHost     = "localhost"
	DefaultPort     = 5432
	DefaultUser     = "postgres"
	DefaultPassword = "bases2_proyecto"
	DefaultDatabase = "bases2_proyectos"
	DefaultSSLMode  = "prefer"
	DefaultAppName  = "imdbload"
)

// GranularConnFlags holds the -h/-p/-U/-d style CLI flags. There is no
// password flag; use $PGPASSWORD, .env or a connection string.
type GranularConnFlags struct {
	Host       string
	Port       int
	Username   string
	Database   string
	SSLMode    string
	AuthMethod string
	AWSRegion  string
}

// IsEmpty reports whether no connection-shaping flag was given. Database is
// excluded because it may override the database of a connection string.
func (g *GranularConnFlags) IsEmpty() bool {
	return g.Host == "" && g.Port == 0 && g.Username == "" && g.SSLMode == ""
}

// EnvVars is the subset of the environment the resolver reads.
type EnvVars struct {
	PGHOST       string
	PGPORT       string
	PGUSER       string
	PGPASSWORD   string
	PGDATABASE   string
	PGSSLMODE    string
	DATABASE_URL string

	AWS_REGION string

	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string
}

// LoadFromEnvironment reads EnvVars from the process environment.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		PGHOST:              os.Getenv("PGHOST"),
		PGPORT:              os.Getenv("PGPORT"),
		PGUSER:              os.Getenv("PGUSER"),
		PGPASSWORD:          os.Getenv("PGPASSWORD"),
		PGDATABASE:          os.Getenv("PGDATABASE"),
		PGSSLMODE:           os.Getenv("PGSSLMODE"),
		DATABASE_URL:        os.Getenv("DATABASE_URL"),
		AWS_REGION:          os.Getenv("AWS_REGION"),
		AZURE_TENANT_ID:     os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:     os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET: os.Getenv("AZURE_CLIENT_SECRET"),
	}
}

// ErrConflictingConnectionFlags is returned when --connection is combined with
// granular flags.
var ErrConflictingConnectionFlags = errors.New(
	"cannot specify both --connection and granular flags (-h, -p, -U, --sslmode)")

// ResolveConnectionParams resolves the target connection.
//
// Precedence:
//  1. --connection string
//  2. DATABASE_URL, when no granular flag is given
//  3. per parameter: flag > environment > imdbload.yaml > default
//
// Environment supplies PGSSLMODE and PGPASSWORD as fallbacks for a connection
// string that omits them. Azure credentials switch the auth method to Entra ID
// unless imdbload.yaml or a flag chose one explicitly.
//
// The second return value is the maintenance database used for CREATE DATABASE.
func ResolveConnectionParams(
	connStringFlag string,
	flags *GranularConnFlags,
	env *EnvVars,
	projectConfig *config.ProjectConfig,
) (*imdbload.ConnectionConfig, string, error) {
	if flags == nil {
		flags = &GranularConnFlags{}
	}
	if env == nil {
		env = &EnvVars{}
	}
	var pc config.ConnectionConfig
	if projectConfig != nil {
		pc = projectConfig.Connection
	}

	if connStringFlag != "" && !flags.IsEmpty() {
		return nil, "", fmt.Errorf("%w: %w", ErrConflictingConnectionFlags, imdbload.ErrInvalidConfig)
	}

	var (
		cfg           *imdbload.ConnectionConfig
		maintenanceDB string
		err           error
	)
	switch {
	case connStringFlag != "":
		cfg, maintenanceDB, err = resolveFromConnectionString(connStringFlag, flags, env)
	case flags.IsEmpty() && env.DATABASE_URL != "":
		cfg, maintenanceDB, err = resolveFromConnectionString(env.DATABASE_URL, flags, env)
	default:
		cfg, maintenanceDB, err = resolveFromGranularParams(flags, env, pc)
	}
	if err != nil {
		return nil, "", err
	}

	if cfg.AppName == "" {
		cfg.AppName = DefaultAppName
	}
	if err := applyAuth(cfg, flags, env, pc); err != nil {
		return nil, "", err
	}
	return cfg, maintenanceDB, nil
}

func resolveFromConnectionString(connStr string, flags *GranularConnFlags, env *EnvVars) (*imdbload.ConnectionConfig, string, error) {
	cfg, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, "", fmt.Errorf("invalid connection string: %w", err)
	}
	if cfg.Password == "" {
		cfg.Password = env.PGPASSWORD
	}
	if env.PGSSLMODE != "" && cfg.SSLMode == DefaultSSLMode {
		cfg.SSLMode = env.PGSSLMODE
	}

	// The string's database doubles as the maintenance database; -d picks
	// another target on the same server.
	maintenanceDB := cfg.Database
	if flags.Database != "" {
		cfg.Database = flags.Database
	}
	return cfg, maintenanceDB, nil
}

func resolveFromGranularParams(flags *GranularConnFlags, env *EnvVars, pc config.ConnectionConfig) (*imdbload.ConnectionConfig, string, error) {
	cfg := &imdbload.ConnectionConfig{
		AuthMethod:       imdbload.AuthMethodStandard,
		AdditionalParams: make(map[string]string),
	}

	cfg.Host = first(flags.Host, env.PGHOST, pc.Host, DefaultHost)

	switch {
	case flags.Port != 0:
		cfg.Port = flags.Port
	case env.PGPORT != "":
		port, err := strconv.Atoi(env.PGPORT)
		if err != nil {
			return nil, "", fmt.Errorf("invalid $PGPORT value '%s': must be an integer: %w", env.PGPORT, imdbload.ErrInvalidConfig)
		}
		cfg.Port = port
	case pc.Port != 0:
		cfg.Port = pc.Port
	default:
		cfg.Port = DefaultPort
	}

	cfg.Username = first(flags.Username, env.PGUSER, pc.Username, DefaultUser)
	cfg.Password = first(env.PGPASSWORD, DefaultPassword)
	cfg.Database = first(flags.Database, env.PGDATABASE, pc.Database, DefaultDatabase)
	cfg.SSLMode = first(flags.SSLMode, env.PGSSLMODE, pc.SSLMode, DefaultSSLMode)

	return cfg, first(pc.ManagementDatabase, imdbload.DefaultManagementDB), nil
}

func applyAuth(cfg *imdbload.ConnectionConfig, flags *GranularConnFlags, env *EnvVars, pc config.ConnectionConfig) error {
	cfg.AWSRegion = first(flags.AWSRegion, env.AWS_REGION, pc.AWSRegion)
	cfg.GoogleInstance = pc.GoogleInstance
	cfg.AzureTenantID = first(env.AZURE_TENANT_ID, pc.AzureTenantID)
	cfg.AzureClientID = first(env.AZURE_CLIENT_ID, pc.AzureClientID)
	cfg.AzureClientSecret = env.AZURE_CLIENT_SECRET

	if method := first(flags.AuthMethod, pc.AuthMethod); method != "" {
		m, err := imdbload.ParseAuthMethod(method)
		if err != nil {
			return err
		}
		cfg.AuthMethod = m
		return nil
	}

	if cfg.AzureTenantID != "" || cfg.AzureClientID != "" {
		cfg.AuthMethod = imdbload.AuthMethodAzureEntraID
	}
	return nil
}

// first returns the first non-empty value.
func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
