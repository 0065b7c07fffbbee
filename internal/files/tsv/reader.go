// Package tsv reads tab-separated dataset dumps with a header row.
//
// Fields are addressed by header name, so column order in the file does not
// matter. The dumps are not quoted: a double quote is ordinary text and only
// TAB and newline are structural.
package tsv

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/vvka-141/imdbload/internal/files/filesystem"
	"github.com/vvka-141/imdbload/pkg/imdbload"
)

const readBufferSize = 1 << 20

// Reader streams records from one dump.
type Reader struct {
	name    string
	br      *bufio.Reader
	closers []io.Closer
	index   map[string]int
	header  []string
	line    int
	rec     Record

	// Ragged counts data rows whose field count differs from the header.
	Ragged int
}

// Record is one data row. It is only valid until the next call to Read.
type Record struct {
	fields []string
	index  map[string]int
}

// Get returns the raw value of a column. A column absent from the header or
// from a short row reads as the empty string, which normalizes to null.
func (r Record) Get(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

// Open resolves the entity's dump through p (plain .tsv first, then .tsv.gz)
// and returns a reader positioned after the header. Every name in required
// must be present in the header.
func Open(p filesystem.FileSystemProvider, entity string, required ...string) (*Reader, error) {
	name, err := filesystem.Resolve(p, entity)
	if err != nil {
		return nil, err
	}

	rc, err := p.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	closers := []io.Closer{rc}
	var src io.Reader = rc
	if strings.HasSuffix(name, ".gz") {
		zr, err := gzip.NewReader(rc)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("%s: reading gzip header: %w", name, err)
		}
		closers = append([]io.Closer{zr}, closers...)
		src = zr
	}

	r, err := newReader(src, name, required)
	if err != nil {
		closeAll(closers)
		return nil, err
	}
	r.closers = closers
	return r, nil
}

// NewReader wraps an already-open stream. The caller keeps ownership of it.
func NewReader(src io.Reader, name string, required ...string) (*Reader, error) {
	return newReader(src, name, required)
}

func newReader(src io.Reader, name string, required []string) (*Reader, error) {
	r := &Reader{
		name: name,
		br:   bufio.NewReaderSize(src, readBufferSize),
	}

	header, err := r.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty file, expected a header row: %w", name, imdbload.ErrMissingColumn)
		}
		return nil, fmt.Errorf("%s: reading header: %w", name, err)
	}

	r.header = strings.Split(header, "\t")
	r.index = make(map[string]int, len(r.header))
	for i, col := range r.header {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		r.header[i] = col
		if _, dup := r.index[col]; !dup {
			r.index[col] = i
		}
	}

	var missing []string
	for _, col := range required {
		if _, ok := r.index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: header lacks %s: %w", name, strings.Join(missing, ", "), imdbload.ErrMissingColumn)
	}

	r.rec.index = r.index
	return r, nil
}

// Name returns the resolved file name.
func (r *Reader) Name() string { return r.name }

// Header returns the column names in file order.
func (r *Reader) Header() []string { return r.header }

// Line returns the 1-based line number of the last record read.
func (r *Reader) Line() int { return r.line }

// Read returns the next record, or io.EOF after the last one.
// Blank lines are skipped.
func (r *Reader) Read() (Record, error) {
	for {
		line, err := r.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Record{}, io.EOF
			}
			return Record{}, fmt.Errorf("%s line %d: %w", r.name, r.line+1, err)
		}
		if line == "" {
			continue
		}

		r.rec.fields = strings.Split(line, "\t")
		if len(r.rec.fields) != len(r.header) {
			r.Ragged++
		}
		return r.rec, nil
	}
}

// readLine returns the next line without its terminator. A final line without
// a newline is returned normally; io.EOF is only returned when nothing is left.
func (r *Reader) readLine() (string, error) {
	line, err := r.br.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	r.line++
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// Close releases the underlying stream (and decompressor) when the reader
// opened it.
func (r *Reader) Close() error {
	err := closeAll(r.closers)
	r.closers = nil
	return err
}

func closeAll(closers []io.Closer) error {
	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
