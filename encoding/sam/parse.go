// Package sam reads and writes SAM text files.  The Scanner groups
// consecutive alignment lines that share a read name into templates, and can
// start reading at an arbitrary byte offset of a file: it backs up far enough
// to find the template boundary at or after the offset.
package sam

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/unsafe"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/seqio/reads"
)

// NumFields is the number of mandatory columns in a SAM alignment line.
const NumFields = 11

// IsFormatError checks if err was caused by malformed input.
func IsFormatError(err error) bool { return errors.Is(errors.Integrity, err) }

func formatError(format string, args ...interface{}) error {
	return errors.E(errors.Integrity, fmt.Sprintf(format, args...))
}

func parseInt(field []byte, column string) (int, error) {
	v, err := strconv.Atoi(unsafe.BytesToString(field))
	if err != nil {
		return 0, formatError("SAM %s column %q is not an integer", column, field)
	}
	return v, nil
}

func textField(field []byte) []byte {
	if len(field) == 1 && field[0] == '*' {
		return nil
	}
	return append([]byte(nil), field...)
}

// ParseLine parses one alignment line.  It returns the read and the signed
// TLEN column.  The read name is kept as found; see reads.WithPairSuffix.
func ParseLine(line []byte) (*reads.Read, int, error) {
	cols := bytes.Split(line, []byte{'\t'})
	if len(cols) < NumFields {
		return nil, 0, formatError("SAM line has %d columns, expected at least %d", len(cols), NumFields)
	}
	r := &reads.Read{
		Name:    string(cols[0]),
		Ref:     string(cols[2]),
		NextRef: string(cols[6]),
		Seq:     textField(cols[9]),
		Qual:    textField(cols[10]),
	}
	flag, err := parseInt(cols[1], "FLAG")
	if err != nil {
		return nil, 0, err
	}
	if flag < 0 || flag > 0xffff {
		return nil, 0, formatError("SAM FLAG %d out of range", flag)
	}
	r.Flags = sam.Flags(flag)
	if r.Pos, err = parseInt(cols[3], "POS"); err != nil {
		return nil, 0, err
	}
	if r.MapQ, err = parseInt(cols[4], "MAPQ"); err != nil {
		return nil, 0, err
	}
	if c := cols[5]; !(len(c) == 1 && c[0] == '*') {
		if r.Cigar, err = sam.ParseCigar(c); err != nil {
			return nil, 0, errors.E(errors.Integrity, fmt.Sprintf("SAM CIGAR %q", c), err)
		}
	}
	if r.NextPos, err = parseInt(cols[7], "PNEXT"); err != nil {
		return nil, 0, err
	}
	tlen, err := parseInt(cols[8], "TLEN")
	if err != nil {
		return nil, 0, err
	}
	if len(r.Qual) > 0 && len(r.Qual) != len(r.Seq) {
		return nil, 0, formatError("read %s: %d bases but %d quality scores", r.Name, len(r.Seq), len(r.Qual))
	}
	if n := len(cols) - NumFields; n > 0 {
		r.Tags = make([]reads.Tag, 0, n)
		for _, col := range cols[NumFields:] {
			tag, err := reads.ParseTag(string(col))
			if err != nil {
				return nil, 0, err
			}
			r.Tags = append(r.Tags, tag)
		}
	}
	return r, tlen, nil
}
