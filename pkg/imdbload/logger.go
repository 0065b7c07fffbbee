package imdbload

// Logger is the printf-style sink used by the loader, schema commands and the
// façade store. Implementations must be safe for concurrent use; the load
// generator logs from every simulated user.
type Logger interface {
	// Verbose is for per-flush detail, shown only with --verbose.
	Verbose(format string, args ...interface{})

	Info(format string, args ...interface{})

	Error(format string, args ...interface{})
}
