package imdbload

import "time"

// Exit codes. The loader reports a coarse two-valued outcome; usage and panic
// codes follow the usual CLI conventions.
const (
	ExitSuccess    = 0 // Run completed
	ExitFailure    = 1 // Run failed (any cause)
	ExitUsageError = 2 // CLI usage error (missing args, invalid flags)
	ExitPanic      = 3 // Internal panic
)

// Status messages returned by the orchestrator.
const (
	StatusLoaded = "loaded successfully"
	StatusFailed = "error processing input data"
)

// NullSentinel is the dataset's reserved token for a missing value.
const NullSentinel = `\N`

const (
	// DefaultBatchSmall is the flush threshold for primary and high-arity relations.
	DefaultBatchSmall = 2000

	// DefaultBatchMedium is the flush threshold for child and fan-out relations.
	DefaultBatchMedium = 4000

	// DefaultSchema is the destination schema.
	DefaultSchema = "imdb"

	// DefaultDataDir is where the TSV dumps are looked up when nothing else is configured.
	DefaultDataDir = "data"

	// DefaultManagementDB is the database used for CREATE DATABASE.
	DefaultManagementDB = "postgres"

	// DefaultTimeout bounds a whole load run.
	DefaultTimeout = 12 * time.Hour

	// DefaultRetryInitialDelay is the initial delay before the first connection retry.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay caps the delay between connection retries.
	DefaultRetryMaxDelay = 30 * time.Second

	// DefaultRetryMaxAttempts is the number of connection retries.
	DefaultRetryMaxAttempts = 3

	// FlushReconnectAttempts is how many times a failed flush is retried after
	// reopening the pool. A second failure is fatal.
	FlushReconnectAttempts = 1

	// BackupLogCapacity is how many backup events the log façade retains.
	BackupLogCapacity = 500

	// DefaultBackupLogLimit is the page size of GET /backup/logs.
	DefaultBackupLogLimit = 50

	// DefaultForceApprovalCountdown is how long `schema drop --force` waits
	// before dropping.
	DefaultForceApprovalCountdown = 5 * time.Second
)
