// Package split describes byte ranges ("splits") of record files and opens
// them for line-oriented reading.  A reader assigned a split is responsible
// for every record that starts inside it; the format readers in encoding/...
// take care of records that straddle split boundaries.
package split

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/golang/snappy"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/klauspost/compress/gzip"
)

// Unbounded is the End() of a split that extends to the end of its file.
const Unbounded = math.MaxInt64

// Split is a byte range of a file.
type Split struct {
	Path string
	// Start is the offset of the first byte of the split.
	Start int64
	// Length is the number of bytes in the split.  Length <= 0 means the
	// split extends to the end of the file.
	Length int64
}

// End returns the offset one past the last byte of the split.
func (s Split) End() int64 {
	if s.Length <= 0 || s.Start > Unbounded-s.Length {
		return Unbounded
	}
	return s.Start + s.Length
}

// String implements fmt.Stringer.
func (s Split) String() string {
	if s.End() == Unbounded {
		return fmt.Sprintf("%s:%d-", s.Path, s.Start)
	}
	return fmt.Sprintf("%s:%d-%d", s.Path, s.Start, s.End())
}

// Whole returns a split covering all of path.
func Whole(path string) Split { return Split{Path: path} }

// Opts controls how splits are opened.
type Opts struct {
	// BufferSize is the read buffer size.
	BufferSize int
}

// DefaultOpts is the default value of Opts.
var DefaultOpts = Opts{
	BufferSize: 64 << 10,
}

// Compression identifies a compressed file format by file name suffix.
type Compression int

const (
	// None is an uncompressed file.
	None Compression = iota
	// Gzip is a gzip (".gz") file.
	Gzip
	// Snappy is a snappy framed (".sz", ".snappy") file.
	Snappy
)

// DetectCompression guesses the compression format of path from its suffix.
func DetectCompression(path string) Compression {
	switch {
	case strings.HasSuffix(path, ".gz"):
		return Gzip
	case strings.HasSuffix(path, ".sz"), strings.HasSuffix(path, ".snappy"):
		return Snappy
	}
	return None
}

// Reader reads lines from a split.  It embeds a LineReader positioned at the
// start of the split.
type Reader struct {
	*LineReader
	// Split is the split being read.  For compressed files, Split.Length is
	// cleared, since byte offsets in the compressed file say nothing about
	// record positions: the whole stream is one split.
	Split Split
	// Size is the size of the file, or Unbounded if it is compressed.
	Size int64

	f file.File
}

// Open opens the split s for reading.  Compressed files can only be read as a
// single split starting at offset 0.
func Open(ctx context.Context, s Split, opts Opts) (*Reader, error) {
	f, err := file.Open(ctx, s.Path)
	if err != nil {
		return nil, errors.E(err, s.Path)
	}
	r, err := newReader(ctx, f, s, opts)
	if err != nil {
		f.Close(ctx) // nolint: errcheck
		return nil, err
	}
	return r, nil
}

func newReader(ctx context.Context, f file.File, s Split, opts Opts) (*Reader, error) {
	var (
		r    = &Reader{Split: s, f: f}
		in   = f.Reader(ctx)
		comp = DetectCompression(s.Path)
	)
	if comp == None {
		info, err := f.Stat(ctx)
		if err != nil {
			return nil, errors.E(err, s.Path)
		}
		r.Size = info.Size()
		if s.Start > 0 {
			if _, err := in.Seek(s.Start, io.SeekStart); err != nil {
				return nil, errors.E(err, s.Path)
			}
		}
		r.LineReader = NewLineReader(in, s.Start, opts.BufferSize)
		return r, nil
	}
	if s.Start != 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("%v: compressed files cannot be split", s))
	}
	var zr io.Reader
	switch comp {
	case Gzip:
		gz, err := gzip.NewReader(in)
		if err != nil {
			return nil, errors.E(err, s.Path)
		}
		zr = gz
	case Snappy:
		zr = snappy.NewReader(in)
	}
	if log.At(log.Debug) {
		log.Debug.Printf("%s: compressed input, reading to end of stream", s.Path)
	}
	r.Split.Length = 0
	r.Size = Unbounded
	r.LineReader = NewLineReader(zr, 0, opts.BufferSize)
	return r, nil
}

// End returns the end offset of the split, or Unbounded.
func (r *Reader) End() int64 { return r.Split.End() }

// Close closes the underlying file.
func (r *Reader) Close(ctx context.Context) error {
	return r.f.Close(ctx)
}

// Splits divides path into about n splits of equal size.  Compressed files
// always yield a single split.
func Splits(ctx context.Context, path string, n int) ([]Split, error) {
	if n <= 1 || DetectCompression(path) != None {
		return []Split{Whole(path)}, nil
	}
	info, err := file.Stat(ctx, path)
	if err != nil {
		return nil, errors.E(err, path)
	}
	size := info.Size()
	step := (size + int64(n) - 1) / int64(n)
	if step == 0 {
		return []Split{Whole(path)}, nil
	}
	var splits []Split
	for start := int64(0); start < size; start += step {
		length := step
		if start+length >= size {
			length = 0
		}
		splits = append(splits, Split{Path: path, Start: start, Length: length})
	}
	return splits, nil
}
