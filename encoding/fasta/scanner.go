package fasta

import (
	"bytes"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/seqio/biosimd"
	"github.com/grailbio/seqio/encoding/split"
)

// Opts controls the behavior of Scanner.
type Opts struct {
	// Validate causes every sequence to be checked for illegal IUPAC codes.
	Validate bool
}

// DefaultOpts is the default value of Opts.
var DefaultOpts = Opts{Validate: true}

var errEOF = errors.E("eof")

// IsFormatError checks if err was caused by malformed input.
func IsFormatError(err error) bool { return errors.Is(errors.Integrity, err) }

func isHeader(b byte) bool { return b == '>' || b == ';' }

// Scanner reads the FASTA records of a split.  Every record whose header line
// begins inside the split is returned, with its whole sequence, even if the
// sequence runs past the end of the split.  Sequence lines at the start of a
// split belong to a record of an earlier split and are skipped.
//
// Scanners are not threadsafe.
type Scanner struct {
	in      *split.LineReader
	end     int64
	opts    Opts
	started bool
	err     error
}

// NewScanner creates a scanner for the split [in.Pos(), end).
func NewScanner(in *split.LineReader, end int64, opts Opts) *Scanner {
	return &Scanner{in: in, end: end, opts: opts}
}

// start skips the partial line at the start of a split that does not begin at
// offset 0.
func (s *Scanner) start() error {
	s.started = true
	pos := s.in.Pos()
	if pos == 0 {
		return nil
	}
	if err := s.in.SeekTo(pos - 1); err != nil {
		return err
	}
	if _, _, err := s.in.ReadLine(1); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// seekHeader reads up to and including the next header line that starts
// before the end of the split.
func (s *Scanner) seekHeader() ([]byte, int64, error) {
	for {
		off := s.in.Pos()
		if off >= s.end {
			return nil, off, errEOF
		}
		line, _, err := s.in.ReadLine(0)
		if err == io.EOF {
			return nil, off, errEOF
		}
		if err != nil {
			return nil, off, err
		}
		if len(line) > 0 && isHeader(line[0]) {
			return line, off, nil
		}
		if off == 0 && len(bytes.TrimSpace(line)) > 0 {
			return nil, off, errors.E(errors.Integrity, "FASTA file does not start with a header line")
		}
	}
}

// Scan reads the next record into r, replacing its contents.  Scan returns a
// boolean indicating whether the scan succeeded. Once Scan returns false, it
// never returns true again. Upon completion, the user should check the Err
// method to determine whether scanning stopped because of an error or
// because the end of the split was reached.
func (s *Scanner) Scan(r *Record) bool {
	if s.err != nil {
		return false
	}
	if !s.started {
		if s.err = s.start(); s.err != nil {
			return false
		}
	}
	header, off, err := s.seekHeader()
	if err != nil {
		s.err = err
		return false
	}
	name := header[1:]
	var desc []byte
	if i := bytes.IndexAny(name, " \t"); i >= 0 {
		name, desc = name[:i], bytes.TrimSpace(name[i+1:])
	}
	r.Name = string(name)
	r.Description = string(desc)
	r.Offset = off
	r.Seq = nil
	for {
		b, err := s.in.PeekByte()
		if err == io.EOF || (err == nil && isHeader(b)) {
			break
		}
		if err != nil {
			s.err = err
			return false
		}
		line, _, err := s.in.ReadLine(0)
		if err != nil {
			s.err = err
			return false
		}
		r.Seq = append(r.Seq, bytes.TrimRight(line, " \t")...)
	}
	if s.opts.Validate {
		if bad := biosimd.FirstNonIUPAC(r.Seq); bad >= 0 {
			s.err = errors.E(errors.Integrity,
				fmt.Sprintf("FASTA record %s at offset %d: illegal IUPAC code %q at base %d", r.Name, off, r.Seq[bad], bad))
			return false
		}
	}
	if log.At(log.Debug) {
		log.Debug.Printf("fasta: record %s at offset %d, %d bases", r.Name, off, len(r.Seq))
	}
	return true
}

// Err returns the scanning error, if any.
func (s *Scanner) Err() error {
	if s.err == errEOF {
		return nil
	}
	return s.err
}
