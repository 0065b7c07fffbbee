package filesystem

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// OSFileSystem implements FileSystemProvider for a directory on disk.
type OSFileSystem struct {
	root string
}

// NewOSFileSystem creates a provider rooted at dir.
func NewOSFileSystem(dir string) *OSFileSystem {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &OSFileSystem{root: dir}
}

func (p *OSFileSystem) Root() string { return p.root }

func (p *OSFileSystem) Open(name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(p.root, name))
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	return f, nil
}

func (p *OSFileSystem) Stat(name string) (FileInfo, error) {
	// os.Stat returns os.FileInfo which implements fs.FileInfo
	return os.Stat(filepath.Join(p.root, name))
}
