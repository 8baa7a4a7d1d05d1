package fastq

import (
	"io"

	"github.com/grailbio/seqio/reads"
)

var newline = []byte{'\n'}

// Writer is a FASTQ file writer.
type Writer struct {
	w   io.Writer
	err error
}

// NewWriter constructs a new FASTQ writer
// that writes reads to the underlying writer w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write writes the read r in FASTQ format, as stored: reads flagged
// sam.Reverse are not flipped back (see reads.Read.AsSequenced).
// An error is returned if the write failed.
func (w *Writer) Write(r *reads.Read) error {
	w.writeln([]byte{'@'}, []byte(r.Name))
	w.writeln(r.Seq)
	w.writeln([]byte{'+'})
	w.writeln(r.Qual)
	return w.err
}

// WriteTemplate writes every read of t.
func (w *Writer) WriteTemplate(t *reads.Template) error {
	for _, r := range t.Reads {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return w.err
}

func (w *Writer) writeln(parts ...[]byte) {
	for _, p := range parts {
		if w.err != nil {
			return
		}
		_, w.err = w.w.Write(p)
	}
	if w.err == nil {
		_, w.err = w.w.Write(newline)
	}
}
