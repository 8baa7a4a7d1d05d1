package fasta

import "io"

// DefaultLineWidth is the number of bases per line written by a Writer
// created with width 0.
const DefaultLineWidth = 60

// Writer writes FASTA records with line-wrapped sequences.
type Writer struct {
	w     io.Writer
	width int
	buf   []byte
}

// NewWriter creates a writer that puts width bases on each line.
func NewWriter(w io.Writer, width int) *Writer {
	if width <= 0 {
		width = DefaultLineWidth
	}
	return &Writer{w: w, width: width}
}

// Write writes one record.
func (w *Writer) Write(r *Record) error {
	w.buf = append(w.buf[:0], '>')
	w.buf = append(w.buf, r.Name...)
	if r.Description != "" {
		w.buf = append(w.buf, ' ')
		w.buf = append(w.buf, r.Description...)
	}
	w.buf = append(w.buf, '\n')
	for seq := r.Seq; len(seq) > 0; {
		n := w.width
		if n > len(seq) {
			n = len(seq)
		}
		w.buf = append(w.buf, seq[:n]...)
		w.buf = append(w.buf, '\n')
		seq = seq[n:]
	}
	_, err := w.w.Write(w.buf)
	return err
}
