package main

import (
	"bytes"
	"context"
	"io"

	"github.com/grailbio/base/errorreporter"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/seqio/encoding/fasta"
	"github.com/grailbio/seqio/encoding/fastq"
	gsam "github.com/grailbio/seqio/encoding/sam"
	"github.com/grailbio/seqio/reads"
)

type viewOpts struct {
	input inputOpts
	// output is the output format.  unknownFormat means the input format.
	output format
	// sequenced flips reverse-strand reads back to their sequenced
	// orientation before writing them.
	sequenced bool
	// header causes the SAM header to be written, for SAM inputs.
	header bool
}

// templateWriter is a reads.Writer that may buffer.
type templateWriter interface {
	reads.Writer
	Flush() error
}

type unbuffered struct{ reads.Writer }

func (unbuffered) Flush() error { return nil }

// fastaWriter writes each read as a FASTA record, dropping qualities.
type fastaWriter struct {
	w *fasta.Writer
}

func (f fastaWriter) WriteTemplate(t *reads.Template) error {
	for _, r := range t.Reads {
		if err := f.w.Write(&fasta.Record{Name: r.Name, Seq: r.Seq}); err != nil {
			return err
		}
	}
	return nil
}

func (fastaWriter) Flush() error { return nil }

func newTemplateWriter(w io.Writer, f format) templateWriter {
	switch f {
	case samFormat:
		return gsam.NewWriter(w)
	case flatFormat:
		return unbuffered{fastq.NewFlatWriter(w)}
	case fastaFormat:
		return fastaWriter{fasta.NewWriter(w, fasta.DefaultLineWidth)}
	}
	return unbuffered{fastq.NewWriter(w)}
}

// view re-emits the templates of path, split by split, in file order.  Splits
// are read in parallel and their output is buffered in memory.
func view(ctx context.Context, path string, out io.Writer, opts viewOpts) error {
	splits, err := inputSplits(ctx, path, &opts.input)
	if err != nil {
		return err
	}
	if opts.output == unknownFormat {
		opts.output = opts.input.format
	}
	if opts.header && opts.input.format == samFormat && opts.output == samFormat {
		h, err := opts.input.sam.Headers.Get(ctx, path)
		if err != nil {
			return err
		}
		if err := writeHeader(out, h); err != nil {
			return err
		}
	}
	bufs := make([]bytes.Buffer, len(splits))
	err = traverse.Each(len(splits), func(i int) error {
		w := newTemplateWriter(&bufs[i], opts.output)
		var err errorreporter.T
		err.Set(scanSplit(ctx, splits[i], opts.input, func(t *reads.Template) error {
			if opts.sequenced {
				for j, r := range t.Reads {
					t.Reads[j] = r.AsSequenced()
				}
			}
			return w.WriteTemplate(t)
		}))
		err.Set(w.Flush())
		if log.At(log.Debug) {
			log.Debug.Printf("%v: %d bytes of output", splits[i], bufs[i].Len())
		}
		return err.Err()
	})
	if err != nil {
		return err
	}
	for i := range bufs {
		if _, err := bufs[i].WriteTo(out); err != nil {
			return err
		}
	}
	return nil
}

func writeHeader(out io.Writer, h *sam.Header) error {
	w := gsam.NewWriter(out)
	if err := w.WriteHeader(h); err != nil {
		return err
	}
	return w.Flush()
}
