package imdbload

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// CommitGranularity selects which unit of work owns a database transaction.
//
// Committing per flush trades all-or-nothing atomicity for bounded memory and
// restartability: an interrupted run leaves every earlier flush committed, and
// because every insert is "do nothing on conflict" a rerun from scratch
// converges on the same contents.
type CommitGranularity int

const (
	// CommitPerFlush commits after every buffer flush (default).
	CommitPerFlush CommitGranularity = iota
	// CommitPerEntity commits once per entity loader (one source file).
	CommitPerEntity
	// CommitPerRun wraps the whole run in one transaction.
	CommitPerRun
)

// String returns the configuration spelling of the granularity.
func (g CommitGranularity) String() string {
	switch g {
	case CommitPerFlush:
		return "flush"
	case CommitPerEntity:
		return "entity"
	case CommitPerRun:
		return "run"
	default:
		return fmt.Sprintf("Unknown(%d)", int(g))
	}
}

// ParseCommitGranularity parses "flush", "entity" or "run". Empty means flush.
func ParseCommitGranularity(s string) (CommitGranularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "flush":
		return CommitPerFlush, nil
	case "entity", "loader":
		return CommitPerEntity, nil
	case "run":
		return CommitPerRun, nil
	default:
		return 0, fmt.Errorf("unknown commit granularity %q (want flush|entity|run): %w", s, ErrInvalidConfig)
	}
}

// LoadConfig contains everything a load run needs.
type LoadConfig struct {
	// Connection is the resolved target database connection.
	Connection *ConnectionConfig

	// Schema is the destination schema; it is pinned first on the search path.
	Schema string

	// DataDir is the directory holding the <entity>.tsv[.gz] dumps.
	DataDir string

	// BatchSmall and BatchMedium are the two flush thresholds.
	BatchSmall  int
	BatchMedium int

	// Commit selects the transaction boundary.
	Commit CommitGranularity

	// Only restricts the run to the named entities (in the fixed order).
	// Empty means all entities.
	Only []string

	// Diagnostics enables the per-relation count of rows dropped by parent checks.
	Diagnostics bool

	// Timeout bounds the whole run.
	Timeout time.Duration

	Verbose bool
}

// Validate checks required fields and value ranges.
func (c *LoadConfig) Validate() error {
	var errs []error

	if c.Connection == nil {
		errs = append(errs, fmt.Errorf("connection is required: %w", ErrInvalidConfig))
	}
	if c.Schema == "" {
		errs = append(errs, fmt.Errorf("schema is required: %w", ErrInvalidConfig))
	}
	if c.DataDir == "" {
		errs = append(errs, fmt.Errorf("data directory is required: %w", ErrInvalidConfig))
	}
	if c.BatchSmall <= 0 || c.BatchMedium <= 0 {
		errs = append(errs, fmt.Errorf("batch sizes must be positive (small=%d, medium=%d): %w", c.BatchSmall, c.BatchMedium, ErrInvalidConfig))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	AuthMethod AuthMethod

	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// AWS RDS IAM
	AWSRegion string

	// Google Cloud SQL instance connection name (project:region:instance)
	GoogleInstance string

	// Azure Entra ID. With all three set a service principal is used,
	// otherwise the DefaultAzureCredential chain.
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                         // AWS RDS IAM
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Entra ID
)

func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// ParseAuthMethod parses the yaml/flag spelling of an auth method.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "password":
		return AuthMethodStandard, nil
	case "aws", "aws-iam":
		return AuthMethodAWSIAM, nil
	case "google", "gcp", "google-iam":
		return AuthMethodGoogleIAM, nil
	case "azure", "entra", "azure-entra-id":
		return AuthMethodAzureEntraID, nil
	default:
		return 0, fmt.Errorf("auth method %q: %w", s, ErrUnsupportedAuthMethod)
	}
}
