package sam

import (
	"io"
	"strconv"

	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/seqio/reads"
)

// Writer writes templates as SAM alignment lines.  Writes are buffered;
// Flush must be called at the end.
type Writer struct {
	w   io.Writer
	tsv *tsv.Writer
}

// NewWriter creates a SAM writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, tsv: tsv.NewWriter(w)}
}

// WriteHeader writes h.  It must be called before any template is written.
func (w *Writer) WriteHeader(h *sam.Header) error {
	text, err := h.MarshalText()
	if err != nil {
		return err
	}
	_, err = w.w.Write(text)
	return err
}

func orStar(s string) string {
	if s == "" {
		return "*"
	}
	return s
}

// WriteTemplate writes one line per read of t.  The TLEN column holds
// t.Length, negated for reverse-strand reads.
func (w *Writer) WriteTemplate(t *reads.Template) error {
	for _, r := range t.Reads {
		tlen := t.Length
		if r.Flags&sam.Reverse != 0 && tlen > 0 {
			tlen = -tlen
		}
		if err := w.Write(r, tlen); err != nil {
			return err
		}
	}
	return nil
}

// Write writes a single read with the given TLEN column.
func (w *Writer) Write(r *reads.Read, tlen int) error {
	w.tsv.WriteString(orStar(r.Name))
	w.tsv.WriteString(strconv.Itoa(int(r.Flags)))
	w.tsv.WriteString(orStar(r.Ref))
	w.tsv.WriteString(strconv.Itoa(r.Pos))
	w.tsv.WriteString(strconv.Itoa(r.MapQ))
	if len(r.Cigar) == 0 {
		w.tsv.WriteString("*")
	} else {
		w.tsv.WriteString(r.Cigar.String())
	}
	w.tsv.WriteString(orStar(r.NextRef))
	w.tsv.WriteString(strconv.Itoa(r.NextPos))
	w.tsv.WriteString(strconv.Itoa(tlen))
	w.tsv.WriteString(orStar(string(r.Seq)))
	w.tsv.WriteString(orStar(string(r.Qual)))
	for _, tag := range r.Tags {
		w.tsv.WriteString(tag.String())
	}
	return w.tsv.EndLine()
}

// Flush writes any buffered lines.
func (w *Writer) Flush() error { return w.tsv.Flush() }
