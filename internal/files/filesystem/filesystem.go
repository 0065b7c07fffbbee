package filesystem

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/vvka-141/imdbload/pkg/imdbload"
)

// FileInfo is an alias for fs.FileInfo from the standard library.
type FileInfo = fs.FileInfo

// FileSystemProvider opens dataset dumps by name relative to its root.
type FileSystemProvider interface {
	// Open returns a stream over the named file. The caller must close it.
	Open(name string) (io.ReadCloser, error)

	// Stat returns file information for the named file.
	Stat(name string) (FileInfo, error)

	// Root describes where files are looked up, for messages.
	Root() string
}

// Candidates lists the file names tried for an entity, in order.
func Candidates(entity string) []string {
	return []string{entity + ".tsv", entity + ".tsv.gz"}
}

// Resolve returns the first existing candidate for an entity. When none exists
// the error wraps imdbload.ErrSourceMissing.
func Resolve(p FileSystemProvider, entity string) (string, error) {
	for _, name := range Candidates(entity) {
		info, err := p.Stat(name)
		if err == nil && !info.IsDir() {
			return name, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", name, err)
		}
	}
	return "", fmt.Errorf("%s: no %s.tsv or %s.tsv.gz in %s: %w",
		entity, entity, entity, p.Root(), imdbload.ErrSourceMissing)
}
