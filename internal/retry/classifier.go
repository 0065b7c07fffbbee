package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes for transient conditions
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	// Class 25 - Invalid Transaction State
	pgCodeReadOnlySQLTransaction = "25006"

	// Class 40 - Transaction Rollback
	pgCodeSerializationFailure = "40001"
	pgCodeDeadlockDetected     = "40P01"

	// Class 55 - Object Not In Prerequisite State
	pgCodeLockNotAvailable = "55P03"

	// Class 57 - Operator Intervention
	pgCodeAdminShutdown    = "57P01"
	pgCodeCrashShutdown    = "57P02"
	pgCodeCannotConnectNow = "57P03"
)

// connectionMessages are substrings of driver and network errors that mean the
// connection itself is gone or never came up.
var connectionMessages = []string{
	"connection refused",
	"connection reset",
	"connection timeout",
	"connection failure",
	"conn closed",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"broken pipe",
	"too many connections",
	"server closed the connection",
	"unexpected eof",
	"connection pool exhausted",
	"closed pool",
}

// PostgreSQLErrorClassifier classifies errors seen while opening a pool.
type PostgreSQLErrorClassifier struct{}

// NewPostgreSQLErrorClassifier creates a new PostgreSQL error classifier.
func NewPostgreSQLErrorClassifier() *PostgreSQLErrorClassifier {
	return &PostgreSQLErrorClassifier{}
}

// IsTransient reports whether retrying the connection attempt may succeed.
func (c *PostgreSQLErrorClassifier) IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"), // connection exception
			strings.HasPrefix(pgErr.Code, "53"), // insufficient resources
			strings.HasPrefix(pgErr.Code, "57"): // operator intervention
			return true
		}
		switch pgErr.Code {
		case pgCodeSerializationFailure, pgCodeDeadlockDetected, pgCodeLockNotAvailable:
			return true
		}
		return false
	}

	return isNetworkError(err) || isConnectionMessage(err) || errors.Is(err, context.DeadlineExceeded)
}

// FailoverClassifier recognizes failures after which reopening the pool and
// replaying the work may succeed: the session ended up on a read-only standby
// (typically after a primary failover behind a virtual IP), or the connection
// dropped mid-statement.
type FailoverClassifier struct{}

// NewFailoverClassifier creates a new FailoverClassifier.
func NewFailoverClassifier() *FailoverClassifier {
	return &FailoverClassifier{}
}

// IsTransient reports whether err warrants a reconnect and replay.
func (c *FailoverClassifier) IsTransient(err error) bool {
	return NeedsReconnect(err)
}

// NeedsReconnect reports whether err is a read-only-transaction error or a
// lost connection. Context cancellation and deadline expiry never qualify.
func NeedsReconnect(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCodeReadOnlySQLTransaction, pgCodeAdminShutdown, pgCodeCrashShutdown, pgCodeCannotConnectNow:
			return true
		}
		return strings.HasPrefix(pgErr.Code, "08")
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return isNetworkError(err) || isConnectionMessage(err)
}

func isNetworkError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() || dnsErr.Timeout()
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return true
		}
		return errors.Is(opErr.Err, syscall.ECONNREFUSED) ||
			errors.Is(opErr.Err, syscall.ECONNRESET) ||
			errors.Is(opErr.Err, syscall.ENETUNREACH) ||
			errors.Is(opErr.Err, syscall.EHOSTUNREACH) ||
			errors.Is(opErr.Err, syscall.EPIPE)
	}
	return false
}

func isConnectionMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, pattern := range connectionMessages {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
