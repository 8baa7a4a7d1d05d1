// Package fastq reads and writes FASTQ files, and the flat "one template per
// line" variant of it.  Readers work on splits: byte ranges of a file that
// may begin or end in the middle of a record.
package fastq

import (
	"bytes"
	"fmt"
	"io"
	"regexp"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/seqio/encoding/split"
	"github.com/grailbio/seqio/reads"
)

var (
	// ErrShort is returned when a truncated FASTQ file is encountered.
	ErrShort = errors.E(errors.Integrity, "short FASTQ file")
	// ErrInvalid is returned when an invalid FASTQ file is encountered.
	ErrInvalid = errors.E(errors.Integrity, "invalid FASTQ file")
	// ErrFrame is returned when no four consecutive lines at the start of a
	// split look like a FASTQ record.
	ErrFrame = errors.E(errors.Integrity, "unable to match four lines to FASTQ format")
	// ErrDiscordant is returned when two underlying FASTQ files are discordant.
	ErrDiscordant = errors.E(errors.Integrity, "discordant FASTQ pairs")
)

var errEOF = errors.E("eof")

// IsFormatError checks if err was caused by malformed input.
func IsFormatError(err error) bool { return errors.Is(errors.Integrity, err) }

var (
	idPattern       = regexp.MustCompile(`^@\S+(\s\S*)*$`)
	sequencePattern = regexp.MustCompile(`^[ACTGURYSKWMBDHVNactguryskwmbdhvn\-\.]+$`)
	commentPattern  = regexp.MustCompile(`^\+.*$`)
)

// Opts controls the behavior of Scanner.
type Opts struct {
	// MaxLineLength is the longest line kept in full.  Records whose total
	// size reaches MaxLineLength are logged and skipped.  Zero means no
	// limit.
	MaxLineLength int
	// MaxFrameShifts is the number of lines the scanner may skip at the
	// start of a split while looking for the first record.
	MaxFrameShifts int
	// Validate causes every read to be checked for illegal bases and for a
	// quality string that does not match the sequence length.
	Validate bool
}

// DefaultOpts is the default value of Opts.
var DefaultOpts = Opts{
	MaxFrameShifts: 4,
	Validate:       true,
}

type windowLine struct {
	text []byte
	size int
}

// Scanner reads FASTQ records from a split.  Every record whose "@" line
// begins inside the split is returned, in order, as a one-read template.  A
// split that starts in the middle of a record is aligned to the next record
// boundary by checking four-line windows against the FASTQ grammar; once the
// first record is found, later records are read without the full check.
//
// Scanners are not threadsafe.
type Scanner struct {
	in     *split.LineReader
	end    int64
	opts   Opts
	pos    int64
	window [4]windowLine

	started, framed bool
	err             error
}

// NewScanner creates a scanner for the split [in.Pos(), end).  in must be
// positioned at the start of the split.  Use split.Unbounded for end to read
// to the end of the stream.
func NewScanner(in *split.LineReader, end int64, opts Opts) *Scanner {
	if opts.MaxFrameShifts <= 0 {
		opts.MaxFrameShifts = DefaultOpts.MaxFrameShifts
	}
	return &Scanner{in: in, end: end, opts: opts, pos: in.Pos()}
}

// Pos returns the offset of the next record to be read.
func (s *Scanner) Pos() int64 { return s.pos }

// start skips the partial line at the start of a split that does not begin at
// offset 0.  Starting one byte early means a line that begins exactly at the
// split start is kept.
func (s *Scanner) start() bool {
	s.started = true
	if s.pos == 0 {
		return true
	}
	if err := s.in.SeekTo(s.pos - 1); err != nil {
		s.err = err
		return false
	}
	_, n, err := s.in.ReadLine(s.opts.MaxLineLength)
	if err != nil && err != io.EOF {
		s.err = err
		return false
	}
	s.pos += int64(n) - 1
	return true
}

func (s *Scanner) readLine(w *windowLine) error {
	line, n, err := s.in.ReadLine(s.opts.MaxLineLength)
	if err != nil && err != io.EOF {
		return err
	}
	w.text = append(w.text[:0], line...)
	w.size = n
	return nil
}

func (s *Scanner) inFrame() bool {
	return idPattern.Match(s.window[0].text) &&
		sequencePattern.Match(s.window[1].text) &&
		commentPattern.Match(s.window[2].text)
}

func (s *Scanner) windowSize() int {
	return s.window[0].size + s.window[1].size + s.window[2].size + s.window[3].size
}

// findFrame fills the window with the first record of the split.  It returns
// false at the end of input.
func (s *Scanner) findFrame() (bool, error) {
	for i := range s.window {
		if err := s.readLine(&s.window[i]); err != nil {
			return false, err
		}
	}
	for shifts := 0; !s.inFrame(); shifts++ {
		if s.windowSize() == 0 {
			return false, nil
		}
		if shifts == s.opts.MaxFrameShifts {
			return false, errors.E(ErrFrame, fmt.Sprintf("near offset %d; most recent lines:\n  %s\n  %s\n  %s\n  %s",
				s.pos, s.window[0].text, s.window[1].text, s.window[2].text, s.window[3].text))
		}
		s.pos += int64(s.window[0].size)
		first := s.window[0]
		copy(s.window[:], s.window[1:])
		s.window[3] = first
		if err := s.readLine(&s.window[3]); err != nil {
			return false, err
		}
	}
	if s.window[3].size == 0 {
		return false, errors.E(ErrShort, fmt.Sprintf("record at offset %d", s.pos))
	}
	s.framed = true
	return true, nil
}

// readRecord reads the four lines of the next record into the window.  It
// returns false at the end of input.
func (s *Scanner) readRecord() (bool, error) {
	if !s.framed {
		return s.findFrame()
	}
	for i := range s.window {
		if err := s.readLine(&s.window[i]); err != nil {
			return false, err
		}
		if s.window[i].size == 0 {
			if i == 0 {
				return false, nil
			}
			return false, errors.E(ErrShort, fmt.Sprintf("record at offset %d", s.pos))
		}
	}
	if id, unk := s.window[0].text, s.window[2].text; len(id) == 0 || id[0] != '@' || len(unk) == 0 || unk[0] != '+' {
		return false, errors.E(ErrInvalid, fmt.Sprintf("record at offset %d", s.pos))
	}
	return true, nil
}

// Scan reads the next record into t, replacing its contents.  Scan returns a
// boolean indicating whether the scan succeeded. Once Scan returns false, it
// never returns true again. Upon completion, the user should check the Err
// method to determine whether scanning stopped because of an error or
// because the end of the split was reached.
func (s *Scanner) Scan(t *reads.Template) bool {
	if s.err != nil {
		return false
	}
	if !s.started && !s.start() {
		return false
	}
	for {
		if s.pos >= s.end {
			s.err = errEOF
			return false
		}
		ok, err := s.readRecord()
		if err != nil {
			s.err = err
			return false
		}
		if !ok || s.pos >= s.end {
			s.err = errEOF
			return false
		}
		size := s.windowSize()
		s.pos += int64(size)
		if s.opts.MaxLineLength > 0 && size >= s.opts.MaxLineLength {
			log.Printf("fastq: skipped entry of size %d at offset %d", size, s.pos-int64(size))
			continue
		}
		return s.parse(t)
	}
}

func (s *Scanner) parse(t *reads.Template) bool {
	name := s.window[0].text[1:]
	if i := bytes.IndexAny(name, " \t"); i >= 0 {
		name = name[:i]
	}
	r := reads.NewUnaligned(string(name),
		append([]byte(nil), s.window[1].text...),
		append([]byte(nil), s.window[3].text...))
	if s.opts.Validate {
		if err := r.Validate(); err != nil {
			s.err = err
			return false
		}
	}
	t.Reset()
	t.Name = reads.TemplateName(r.Name)
	t.Add(r)
	if log.At(log.Debug) {
		log.Debug.Printf("fastq: read %s flags %v", r.Name, r.Flags)
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
