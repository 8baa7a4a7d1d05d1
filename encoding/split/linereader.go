package split

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
)

// LineReader reads lines from a byte stream while keeping track of the
// absolute stream offset.  Lines may end in "\n", "\r\n", or a lone "\r".
//
// If the underlying reader is an io.Seeker, Seek may move anywhere in the
// stream; otherwise it may only move forward.
type LineReader struct {
	r      io.Reader
	seeker io.Seeker
	br     *bufio.Reader
	pos    int64
	line   []byte
}

// NewLineReader creates a LineReader that reads from r, starting at offset
// pos.  bufSize is the read buffer size; values <= 0 select a default.
func NewLineReader(r io.Reader, pos int64, bufSize int) *LineReader {
	if bufSize <= 0 {
		bufSize = DefaultOpts.BufferSize
	}
	l := &LineReader{r: r, br: bufio.NewReaderSize(r, bufSize), pos: pos}
	l.seeker, _ = r.(io.Seeker)
	return l
}

// Pos returns the offset of the next byte to be read.
func (l *LineReader) Pos() int64 { return l.pos }

// Seekable checks if the reader can move backwards.
func (l *LineReader) Seekable() bool { return l.seeker != nil }

// SeekTo moves to the absolute offset pos.
func (l *LineReader) SeekTo(pos int64) error {
	if pos == l.pos {
		return nil
	}
	if l.seeker == nil {
		if pos < l.pos {
			return errors.E(errors.Invalid, fmt.Sprintf("cannot seek back from %d to %d on a stream", l.pos, pos))
		}
		n, err := l.br.Discard(int(pos - l.pos))
		l.pos += int64(n)
		return err
	}
	// Short forward seeks within the buffer avoid a reset.
	if pos > l.pos && pos-l.pos <= int64(l.br.Buffered()) {
		n, err := l.br.Discard(int(pos - l.pos))
		l.pos += int64(n)
		return err
	}
	if _, err := l.seeker.Seek(pos, io.SeekStart); err != nil {
		return err
	}
	l.br.Reset(l.r)
	l.pos = pos
	return nil
}

// ReadByte reads a single byte.
func (l *LineReader) ReadByte() (byte, error) {
	b, err := l.br.ReadByte()
	if err == nil {
		l.pos++
	}
	return b, err
}

// PeekByte returns the next byte without consuming it.
func (l *LineReader) PeekByte() (byte, error) {
	b, err := l.br.Peek(1)
	if len(b) == 0 {
		return 0, err
	}
	return b[0], nil
}

// ReadLine reads the next line, without its terminator.  At most maxLength
// bytes of the line are kept (all of them if maxLength <= 0), but the whole
// line is consumed.  It returns the number of bytes consumed, terminator
// included.  The returned slice is valid until the next call.
//
// ReadLine returns io.EOF only when there is nothing left to read; a final
// line without a terminator is returned normally.
func (l *LineReader) ReadLine(maxLength int) (line []byte, consumed int, err error) {
	l.line = l.line[:0]
	defer func() { l.pos += int64(consumed) }()
	for {
		if _, err = l.br.Peek(1); err != nil {
			if err == io.EOF && consumed > 0 {
				err = nil
			}
			return l.line, consumed, err
		}
		buf, _ := l.br.Peek(l.br.Buffered())
		i := bytes.IndexAny(buf, "\r\n")
		if i < 0 {
			l.keep(buf, maxLength)
			consumed += len(buf)
			l.br.Discard(len(buf)) // nolint: errcheck
			continue
		}
		l.keep(buf[:i], maxLength)
		term := buf[i]
		consumed += i + 1
		l.br.Discard(i + 1) // nolint: errcheck
		if term == '\r' {
			if next, perr := l.br.Peek(1); perr == nil && next[0] == '\n' {
				consumed++
				l.br.Discard(1) // nolint: errcheck
			}
		}
		return l.line, consumed, nil
	}
}

func (l *LineReader) keep(b []byte, maxLength int) {
	if maxLength > 0 {
		if room := maxLength - len(l.line); room < len(b) {
			if room <= 0 {
				return
			}
			b = b[:room]
		}
	}
	l.line = append(l.line, b...)
}
