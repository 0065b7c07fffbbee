// Package logging provides concrete implementations of the imdbload.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: writes formatted messages to stderr (used by the load, schema and health commands)
//   - ZapLogger: structured JSON through zap (used by the long-running serve command)
//   - NullLogger: discards all messages (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
