// Package fasta reads and writes FASTA files.  See
// http://www.htslib.org/doc/faidx.html.  Briefly, FASTA files consist of a
// number of named sequences that may be interrupted by newlines.  For example:
//
// >chr7
// ACGTAC
// GAGGAC
// GCG
// >chr8
// ACGT
//
// Note: Sequence names are defined to be the stretch of characters excluding
// whitespace immediately after '>'.  The rest of the header line is the
// description.  For example, '>chr1 A viral sequence' becomes 'chr1'.  Header
// lines starting with the legacy ';' marker are accepted too.
package fasta

import (
	"io"

	"github.com/grailbio/seqio/encoding/split"
	"github.com/pkg/errors"
)

// Record is one FASTA entry.
type Record struct {
	Name        string
	Description string
	Seq         []byte
	// Offset is the file offset of the header line.
	Offset int64
}

// Fasta represents FASTA-formatted data, consisting of a set of named
// sequences.
type Fasta interface {
	// Get returns a substring of the given sequence name at the given
	// coordinates, which are treated as a 0-based half-open interval
	// [start, end). Get is thread-safe.
	Get(seqName string, start, end uint64) (string, error)

	// Len returns the length of the given sequence.
	Len(seqName string) (uint64, error)

	// SeqNames returns the names of all sequences, in the order of appearance in
	// the FASTA file.
	SeqNames() []string
}

type fasta struct {
	seqs     map[string]string
	seqNames []string
}

// New creates a new Fasta that holds all the FASTA data from the given reader
// in memory.  Bases are not validated.
func New(r io.Reader) (Fasta, error) {
	f := &fasta{seqs: make(map[string]string)}
	s := NewScanner(split.NewLineReader(r, 0, 0), split.Unbounded, Opts{})
	var rec Record
	for s.Scan(&rec) {
		if _, ok := f.seqs[rec.Name]; !ok {
			f.seqNames = append(f.seqNames, rec.Name)
		}
		f.seqs[rec.Name] = string(rec.Seq)
	}
	if err := s.Err(); err != nil {
		return nil, errors.Wrap(err, "couldn't read FASTA data")
	}
	return f, nil
}

func checkRange(seqName string, start, end, length uint64) error {
	if end <= start {
		return errors.New("start must be less than end")
	}
	if end > length {
		return errors.Errorf("end is past end of sequence %s: %d", seqName, length)
	}
	return nil
}

// Get implements Fasta.Get().
func (f *fasta) Get(seqName string, start, end uint64) (string, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return "", errors.Errorf("sequence not found: %s", seqName)
	}
	if err := checkRange(seqName, start, end, uint64(len(s))); err != nil {
		return "", err
	}
	return s[start:end], nil
}

// Len implements Fasta.Len().
func (f *fasta) Len(seqName string) (uint64, error) {
	s, ok := f.seqs[seqName]
	if !ok {
		return 0, errors.Errorf("sequence not found: %s", seqName)
	}
	return uint64(len(s)), nil
}

// SeqNames implements Fasta.SeqNames().
func (f *fasta) SeqNames() []string {
	return f.seqNames
}
