package svsim

import (
	"fmt"
	"io"
	"strconv"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/seqio/encoding/fasta"
)

// Kind is the type of a simulated event.
type Kind int

const (
	Deletion Kind = iota
	Insertion
	Inversion
	Duplication
	TandemDuplication
	Translocation
)

var kindNames = [...]string{
	Deletion:          "deletion",
	Insertion:         "insertion",
	Inversion:         "inversion",
	Duplication:       "duplication",
	TandemDuplication: "tandem-duplication",
	Translocation:     "translocation",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Event is one applied variant.  Positions are those at the time of the
// event.
type Event struct {
	Kind Kind
	// First and Length give the affected range.  For an insertion they give
	// the range of the inserted sequence in its own numbering.
	First, Length int
	// Before is the insertion point of insertions, duplications and
	// translocations.
	Before   int
	Inverted bool
	// Count is the number of copies made by a duplication.
	Count int
	// Source is the name of the inserted sequence; empty for novel bases.
	Source string
}

func (e Event) String() string {
	return fmt.Sprintf("%v %d..%d before=%d inverted=%v count=%d source=%q",
		e.Kind, e.First, e.First+e.Length-1, e.Before, e.Inverted, e.Count, e.Source)
}

// WriteEvents writes the event log as a TSV table with a header line.
func (s *Simulator) WriteEvents(w io.Writer) error {
	tw := tsv.NewWriter(w)
	for _, col := range []string{"#kind", "first", "length", "before", "inverted", "count", "source"} {
		tw.WriteString(col)
	}
	if err := tw.EndLine(); err != nil {
		return err
	}
	for _, e := range s.events {
		tw.WriteString(e.Kind.String())
		tw.WriteString(strconv.Itoa(e.First))
		tw.WriteString(strconv.Itoa(e.Length))
		tw.WriteString(strconv.Itoa(e.Before))
		tw.WriteString(strconv.FormatBool(e.Inverted))
		tw.WriteString(strconv.Itoa(e.Count))
		tw.WriteString(e.Source)
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteSummary writes the provenance of the mutated sequence; see
// sequence.WriteSummary.
func (s *Simulator) WriteSummary(w io.Writer) error {
	return s.seq.WriteSummary(w)
}

// WriteFASTA writes the mutated sequence as one FASTA record with width bases
// per line.  An unnamed sequence is named after a fingerprint of its bases.
func (s *Simulator) WriteFASTA(w io.Writer, width int) error {
	rec := fasta.Record{Name: s.seq.Name(), Seq: s.seq.Bases()}
	if rec.Name == "" {
		rec.Name = fmt.Sprintf("UnknownSequence-%X", farm.Fingerprint64(rec.Seq))
	}
	return fasta.NewWriter(w, width).Write(&rec)
}
