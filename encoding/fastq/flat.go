package fastq

import (
	"bytes"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/seqio/encoding/split"
	"github.com/grailbio/seqio/reads"
)

// FlatScanner reads flat FASTQ: one template per line, as
//
//   name <TAB> seq1 <TAB> qual1 [<TAB> seq2 <TAB> qual2 [<TAB> seqN <TAB> qualN ...]]
//
// The first pair of columns is the first segment (named name/1), the second
// the last segment (name/2), and any further pairs are middle segments named
// just name.  Every line that begins inside the split is returned.
type FlatScanner struct {
	in      *split.LineReader
	end     int64
	opts    Opts
	pos     int64
	started bool
	err     error
}

// NewFlatScanner creates a scanner for the split [in.Pos(), end).
// Opts.MaxFrameShifts is ignored.
func NewFlatScanner(in *split.LineReader, end int64, opts Opts) *FlatScanner {
	return &FlatScanner{in: in, end: end, opts: opts, pos: in.Pos()}
}

// Scan reads the next line into t, replacing its contents.
func (s *FlatScanner) Scan(t *reads.Template) bool {
	if s.err != nil {
		return false
	}
	if !s.started {
		s.started = true
		if s.pos != 0 {
			if s.err = s.in.SeekTo(s.pos - 1); s.err != nil {
				return false
			}
			_, n, err := s.in.ReadLine(s.opts.MaxLineLength)
			if err != nil && err != io.EOF {
				s.err = err
				return false
			}
			s.pos += int64(n) - 1
		}
	}
	for s.pos < s.end {
		line, n, err := s.in.ReadLine(s.opts.MaxLineLength)
		if err == io.EOF {
			break
		}
		if err != nil {
			s.err = err
			return false
		}
		s.pos += int64(n)
		if s.opts.MaxLineLength > 0 && n >= s.opts.MaxLineLength {
			log.Printf("fastq: skipped line of size %d at offset %d", n, s.pos-int64(n))
			continue
		}
		if s.err = s.parse(line, t); s.err != nil {
			s.err = errors.E(s.err, fmt.Sprintf("line at offset %d", s.pos-int64(n)))
			return false
		}
		return true
	}
	s.err = errEOF
	return false
}

func (s *FlatScanner) parse(line []byte, t *reads.Template) error {
	cols := bytes.Split(line, []byte{'\t'})
	if len(cols) < 3 || len(cols)%2 != 1 {
		return errors.E(errors.Integrity, fmt.Sprintf("flat FASTQ: expected a name and seq/qual pairs, found %d columns", len(cols)))
	}
	t.Reset()
	t.Name = string(cols[0])
	for i := 1; i < len(cols); i += 2 {
		var (
			name  = t.Name
			flags = sam.Paired | sam.Read1 | sam.Read2
		)
		switch i {
		case 1:
			name, flags = name+"/1", sam.Paired|sam.Read1
		case 3:
			name, flags = name+"/2", sam.Paired|sam.Read2
		}
		r := reads.NewUnaligned(name,
			append([]byte(nil), cols[i]...),
			append([]byte(nil), cols[i+1]...))
		r.Flags = sam.Unmapped | flags
		if s.opts.Validate {
			if err := r.Validate(); err != nil {
				return err
			}
		}
		t.Add(r)
	}
	return nil
}

// Err returns the scanning error, if any.
func (s *FlatScanner) Err() error {
	if s.err == errEOF {
		return nil
	}
	return s.err
}

// FlatWriter writes templates as flat FASTQ.  Only templates with both a
// first and a last segment are written.  Reads flagged sam.Reverse are
// written in the orientation they were sequenced in.
type FlatWriter struct {
	w   io.Writer
	buf []byte
	// Skipped counts the templates not written for lack of a mate.
	Skipped int
}

// NewFlatWriter constructs a new flat FASTQ writer.
func NewFlatWriter(w io.Writer) *FlatWriter {
	return &FlatWriter{w: w}
}

// WriteTemplate writes t as one line, or nothing if t is not a pair.
func (w *FlatWriter) WriteTemplate(t *reads.Template) error {
	first, last := t.First(), t.Last()
	if first == nil || last == nil {
		for _, r := range t.Reads {
			log.Printf("fastq: unpaired read %s", r.Name)
		}
		w.Skipped++
		return nil
	}
	first, last = first.AsSequenced(), last.AsSequenced()
	w.buf = append(w.buf[:0], t.Name...)
	for _, col := range [][]byte{first.Seq, first.Qual, last.Seq, last.Qual} {
		w.buf = append(w.buf, '\t')
		w.buf = append(w.buf, col...)
	}
	w.buf = append(w.buf, '\n')
	_, err := w.w.Write(w.buf)
	return err
}
