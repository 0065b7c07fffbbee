package imdbload

import "time"

// ErrorClassifier decides whether a failed flush or write may be replayed on a
// fresh connection.
type ErrorClassifier interface {
	IsTransient(err error) bool
}

// BackoffStrategy calculates the delay before the next retry attempt.
type BackoffStrategy interface {
	// NextDelay is the pause before retry number attempt (zero-indexed).
	NextDelay(attempt int) time.Duration

	// MaxAttempts caps the retries; 0 disables them and -1 removes the cap.
	MaxAttempts() int
}
