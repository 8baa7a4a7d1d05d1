package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/seqio/encoding/fasta"
	"github.com/grailbio/seqio/encoding/fastq"
	"github.com/grailbio/seqio/encoding/sam"
	"github.com/grailbio/seqio/encoding/split"
	"github.com/grailbio/seqio/reads"
)

type format int

const (
	unknownFormat format = iota
	fastqFormat
	flatFormat
	samFormat
	fastaFormat
)

var formatNames = map[string]format{
	"fastq": fastqFormat,
	"flat":  flatFormat,
	"sam":   samFormat,
	"fasta": fastaFormat,
}

func (f format) String() string {
	for name, v := range formatNames {
		if v == f {
			return name
		}
	}
	return "unknown"
}

func parseFormat(name string) (format, error) {
	f, ok := formatNames[strings.ToLower(name)]
	if !ok {
		return unknownFormat, fmt.Errorf("unknown format %q", name)
	}
	return f, nil
}

// guessFormat guesses the record format of path from its extension,
// ignoring any compression suffix.
func guessFormat(path string) format {
	switch split.DetectCompression(path) {
	case split.Gzip, split.Snappy:
		path = strings.TrimSuffix(path, filepath.Ext(path))
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fq", ".fastq":
		return fastqFormat
	case ".sam":
		return samFormat
	case ".fa", ".fasta", ".fna":
		return fastaFormat
	case ".flat", ".tsv":
		return flatFormat
	}
	return unknownFormat
}

// inputOpts configures how the splits of an input are read.
type inputOpts struct {
	format  format
	nsplits int
	fastq   fastq.Opts
	sam     sam.Opts
}

func (o *inputOpts) resolve(path string) error {
	if o.format == unknownFormat {
		o.format = guessFormat(path)
	}
	if o.format == unknownFormat {
		return errors.E(errors.Invalid, fmt.Sprintf("%s: cannot guess the format; use -format", path))
	}
	if o.nsplits <= 0 {
		o.nsplits = 1
	}
	return nil
}

// splitReader is a template scanner over one split.
type splitReader interface {
	reads.Scanner
	Close(ctx context.Context) error
}

type lineSplitReader struct {
	reads.Scanner
	in *split.Reader
}

func (r lineSplitReader) Close(ctx context.Context) error { return r.in.Close(ctx) }

// fastaTemplates presents each FASTA record as a one-read template without
// qualities.
type fastaTemplates struct {
	*fasta.Scanner
	rec fasta.Record
}

func (f *fastaTemplates) Scan(t *reads.Template) bool {
	if !f.Scanner.Scan(&f.rec) {
		return false
	}
	t.Reset()
	t.Name = f.rec.Name
	t.Add(reads.NewUnaligned(f.rec.Name, f.rec.Seq, nil))
	return true
}

// openSplit opens s as templates in the format given by opts.
func openSplit(ctx context.Context, s split.Split, opts inputOpts) (splitReader, error) {
	if opts.format == samFormat {
		r, err := sam.Open(ctx, s, opts.sam)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	in, err := split.Open(ctx, s, split.DefaultOpts)
	if err != nil {
		return nil, err
	}
	var scanner reads.Scanner
	switch opts.format {
	case fastqFormat:
		scanner = fastq.NewScanner(in.LineReader, in.End(), opts.fastq)
	case flatFormat:
		scanner = fastq.NewFlatScanner(in.LineReader, in.End(), opts.fastq)
	case fastaFormat:
		scanner = &fastaTemplates{Scanner: fasta.NewScanner(in.LineReader, in.End(), fasta.DefaultOpts)}
	default:
		in.Close(ctx) // nolint: errcheck
		return nil, errors.E(errors.Invalid, fmt.Sprintf("%v: unsupported format %v", s, opts.format))
	}
	return lineSplitReader{Scanner: scanner, in: in}, nil
}

// inputSplits divides path into splits and fills in opts.
func inputSplits(ctx context.Context, path string, opts *inputOpts) ([]split.Split, error) {
	if err := opts.resolve(path); err != nil {
		return nil, err
	}
	if opts.format == samFormat && opts.sam.Headers == nil {
		opts.sam.Headers = sam.NewHeaderCache()
	}
	return split.Splits(ctx, path, opts.nsplits)
}

// scanSplit calls fn for every template of s.  The template is reused
// between calls.
func scanSplit(ctx context.Context, s split.Split, opts inputOpts, fn func(t *reads.Template) error) error {
	r, err := openSplit(ctx, s, opts)
	if err != nil {
		return err
	}
	var t reads.Template
	for r.Scan(&t) {
		if err := fn(&t); err != nil {
			r.Close(ctx) // nolint: errcheck
			return err
		}
	}
	err = r.Err()
	if e := r.Close(ctx); e != nil && err == nil {
		err = e
	}
	if err != nil {
		return errors.E(err, s.String())
	}
	return nil
}
