// Package retry provides retry logic for transient database failures.
//
// Two situations are covered:
//
//   - Opening the connection pool. PostgreSQLErrorClassifier recognizes
//     connection refused, resets, resource exhaustion and shutdown states, and
//     the Executor retries with exponential backoff.
//   - Replaying a failed flush. FailoverClassifier recognizes a session that
//     landed on a read-only standby (SQLSTATE 25006) or lost its connection;
//     the caller reopens the pool through WithRecover and replays the flush.
//
// # Example Usage
//
//	executor := retry.NewExecutor(retry.NewPostgreSQLErrorClassifier(), retry.NewExponentialBackoff(3))
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return connectToDatabase(ctx)
//	})
package retry
