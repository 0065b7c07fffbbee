// Package filesystem provides the source abstraction the entity loaders read
// dataset dumps from.
//
// Key interfaces:
//   - FileSystemProvider: opens a named dump as a stream and stats it
//   - FileInfo: file metadata, an alias of fs.FileInfo
//
// Implementations:
//   - OSFileSystem: production implementation rooted at a data directory
//   - MemoryFileSystem: in-memory implementation for testing
package filesystem
