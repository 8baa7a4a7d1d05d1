package sam

import (
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/seqio/encoding/split"
	"github.com/grailbio/seqio/reads"
)

// Opts controls the behavior of Scanner.
type Opts struct {
	// BackpedalStep is the number of bytes a scanner backs up at a time,
	// from the start of its split, to find the first template boundary.
	BackpedalStep int
	// PairSuffix causes "/1" or "/2" to be appended to read names that lack
	// a suffix, according to the read's segment flags.
	PairSuffix bool
	// Headers, if set, caches file headers across the readers created by
	// Open.
	Headers *HeaderCache
}

// DefaultOpts is the default value of Opts.
var DefaultOpts = Opts{
	BackpedalStep: 1024,
	PairSuffix:    true,
}

var errEOF = errors.E("eof")

// pending is an alignment line read past the end of a template.  It starts
// the next template.
type pending struct {
	read *reads.Read
	tlen int
	size int64
}

// Scanner reads the templates of a split of a SAM file.  A template is a run
// of consecutive alignment lines whose read names agree up to the "/N" pair
// suffix.  Every template whose first line begins inside the split is
// returned; a template may extend past the end of the split.
//
// Header lines and blank lines are skipped.  A malformed alignment line stops
// the scan with an error for which IsFormatError is true.
//
// Scanners are not threadsafe.
type Scanner struct {
	in   *split.LineReader
	end  int64
	opts Opts
	// pos is the offset of the next template, or of the header or blank
	// lines that precede it.
	pos  int64
	next *pending

	started bool
	err     error
}

// NewScanner creates a scanner for the split [in.Pos(), end).  in must be
// positioned at the start of the split, and must be seekable unless the split
// starts at offset 0.
func NewScanner(in *split.LineReader, end int64, opts Opts) *Scanner {
	if opts.BackpedalStep <= 0 {
		opts.BackpedalStep = DefaultOpts.BackpedalStep
	}
	return &Scanner{in: in, end: end, opts: opts, pos: in.Pos()}
}

// Pos returns the offset of the next template to be read.
func (s *Scanner) Pos() int64 { return s.pos }

// start moves a scanner whose split begins past offset 0 to the first
// template that starts at or after the split start.  The line at an arbitrary
// offset may be the second read of a template that began earlier, so the
// scanner backs up BackpedalStep bytes at a time, drops the (possibly
// partial) first line, and reads whole templates forward until it reaches the
// split start.  At least one template must be read on the way for the
// boundary to be trusted.
func (s *Scanner) start() bool {
	s.started = true
	if s.pos == 0 {
		return true
	}
	var (
		splitStart = s.pos
		scratch    reads.Template
	)
	for back := int64(s.opts.BackpedalStep); ; back += int64(s.opts.BackpedalStep) {
		from := splitStart - back
		if from < 0 {
			from = 0
		}
		if s.err = s.in.SeekTo(from); s.err != nil {
			return false
		}
		s.pos, s.next = from, nil
		if from > 0 {
			_, n, err := s.in.ReadLine(0)
			if err != nil && err != io.EOF {
				s.err = err
				return false
			}
			s.pos += int64(n)
		}
		found := false
		for s.pos < splitStart {
			scratch.Reset()
			n, err := s.readTemplate(&scratch)
			if err != nil {
				s.err = errors.E(err, fmt.Sprintf("backing up from offset %d", splitStart))
				return false
			}
			if scratch.Len() == 0 {
				break
			}
			s.pos += n
			found = true
		}
		if found {
			if log.At(log.Debug) {
				log.Debug.Printf("sam: split at %d starts at %d, backed up %d bytes", splitStart, s.pos, back)
			}
			return true
		}
		if from == 0 {
			log.Printf("sam: backing up from offset %d reached the start of the file, no template starts in the split", splitStart)
			s.err = errEOF
			return false
		}
	}
}

// readRead reads lines up to and including the next alignment line.  It
// returns the bytes taken by skipped header and blank lines, and a nil
// pending at the end of input.
func (s *Scanner) readRead() (*pending, int64, error) {
	var skipped int64
	for {
		line, n, err := s.in.ReadLine(0)
		if err == io.EOF {
			return nil, skipped, nil
		}
		if err != nil {
			return nil, skipped, err
		}
		if len(line) == 0 || line[0] == '@' {
			skipped += int64(n)
			continue
		}
		r, tlen, err := ParseLine(line)
		if err != nil {
			return nil, skipped, errors.E(err, fmt.Sprintf("line at offset %d", s.in.Pos()-int64(n)))
		}
		if s.opts.PairSuffix {
			r.Name = reads.WithPairSuffix(r.Name, r.Flags)
		}
		return &pending{read: r, tlen: tlen, size: int64(n)}, skipped, nil
	}
}

func begin(t *reads.Template, p *pending) {
	t.Name = reads.TemplateName(p.read.Name)
	t.Length = p.tlen
	if t.Length < 0 {
		t.Length = -t.Length
	}
	t.Add(p.read)
}

// readTemplate reads the next template into t, which must be empty.  It
// returns the number of bytes between the start of the template and the
// start of the line read past it.  t is left empty at the end of input.
func (s *Scanner) readTemplate(t *reads.Template) (int64, error) {
	var n int64
	if p := s.next; p != nil {
		s.next = nil
		begin(t, p)
		n += p.size
	}
	for {
		p, skipped, err := s.readRead()
		n += skipped
		if err != nil || p == nil {
			return n, err
		}
		if t.Len() == 0 {
			begin(t, p)
		} else if reads.TemplateName(p.read.Name) != t.Name {
			s.next = p
			return n, nil
		} else {
			t.Add(p.read)
		}
		n += p.size
	}
}

// Scan reads the next template into t, replacing its contents.  Scan returns
// a boolean indicating whether the scan succeeded. Once Scan returns false,
// it never returns true again. Upon completion, the user should check the Err
// method to determine whether scanning stopped because of an error or
// because the end of the split was reached.
func (s *Scanner) Scan(t *reads.Template) bool {
	if s.err != nil {
		return false
	}
	if !s.started && !s.start() {
		return false
	}
	if s.pos >= s.end {
		s.err = errEOF
		return false
	}
	t.Reset()
	n, err := s.readTemplate(t)
	if err != nil {
		s.err = err
		return false
	}
	if t.Len() == 0 {
		s.err = errEOF
		return false
	}
	s.pos += n
	if log.At(log.Debug) {
		log.Debug.Printf("sam: template %s with %d reads", t.Name, t.Len())
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

// Reader is a Scanner over a split opened by Open.
type Reader struct {
	*Scanner
	// Header is the header of the file the split belongs to.
	Header *sam.Header

	r *split.Reader
}

// Open opens the split s of a SAM file.  The file header is read through
// opts.Headers if set, and directly otherwise.
func Open(ctx context.Context, s split.Split, opts Opts) (*Reader, error) {
	var (
		h   *sam.Header
		err error
	)
	if opts.Headers != nil {
		h, err = opts.Headers.Get(ctx, s.Path)
	} else {
		h, err = loadHeader(ctx, s.Path)
	}
	if err != nil {
		return nil, err
	}
	in, err := split.Open(ctx, s, split.DefaultOpts)
	if err != nil {
		return nil, err
	}
	return &Reader{
		Scanner: NewScanner(in.LineReader, in.End(), opts),
		Header:  h,
		r:       in,
	}, nil
}

// Close closes the underlying file.
func (r *Reader) Close(ctx context.Context) error {
	return r.r.Close(ctx)
}
