package sequence

import (
	"fmt"

	"github.com/grailbio/base/log"
	"github.com/grailbio/seqio/biosimd"
)

// DefaultFirstBasePosition is the coordinate of the first base of a sequence
// unless specified otherwise.
const DefaultFirstBasePosition = 1

// Orientation tells whether a segment's bases, read left to right, match its
// source (Plus) or are the reverse-complement of it (Minus).
type Orientation int8

const (
	// Plus matches the source's 5'->3' direction.
	Plus Orientation = iota
	// Minus is reverse-complemented relative to the source.
	Minus
)

// Invert returns the opposite orientation.
func (o Orientation) Invert() Orientation {
	if o == Plus {
		return Minus
	}
	return Plus
}

// String returns "+" or "-".
func (o Orientation) String() string {
	if o == Plus {
		return "+"
	}
	return "-"
}

// Range is a closed interval of 1-based positions [First, First+Length-1].
// An empty range has Length 0.
type Range struct {
	First  int
	Length int
}

// Last returns the position of the last base in the range.
func (r Range) Last() int { return r.First + r.Length - 1 }

// End returns the position one past the last base in the range.
func (r Range) End() int { return r.First + r.Length }

// Contains checks if pos lies within the range.
func (r Range) Contains(pos int) bool { return pos >= r.First && pos < r.End() }

// String implements fmt.Stringer.
func (r Range) String() string { return fmt.Sprintf("%d..%d", r.First, r.Last()) }

// Segment is a run of bases that came from one contiguous range of a source
// sequence, in one orientation.
type Segment struct {
	// Current is the segment's position in the (possibly edited) sequence
	// that owns it.  It is only valid while the segment belongs to a
	// Sequence; the Sequence recomputes it after every edit.
	Current Range
	// Origin is the range in the source sequence the bases were taken from.
	Origin Range
	// Orientation of the bases relative to the source.
	Orientation Orientation
	// Source names the sequence the bases came from.  It is empty for bases
	// that were made up (e.g., random insertions).
	Source string

	bases []byte
}

// Len returns the number of bases in the segment.
func (s *Segment) Len() int { return len(s.bases) }

// Bases returns the segment's bases.  The caller must not modify them.
func (s *Segment) Bases() []byte { return s.bases }

// Clone returns a deep copy of s that shares no memory with it.
func (s *Segment) Clone() *Segment {
	c := *s
	c.bases = append([]byte(nil), s.bases...)
	return &c
}

// reverseComplement flips the segment in place.  Origin is unchanged: the
// segment still covers the same source bases, only read the other way.
func (s *Segment) reverseComplement() {
	if bad := biosimd.ReverseCompIUPACInplace(s.bases); bad >= 0 {
		log.Panicf("segment %v: illegal base %q at offset %d", s.Current, s.bases[bad], bad)
	}
	s.Orientation = s.Orientation.Invert()
}

// splitAt divides s into two segments, the first covering
// [s.Current.First, pos) and the second [pos, s.Current.End()).  REQUIRES:
// s.Current.First < pos < s.Current.End().
//
// The halves share s's base buffer but their capacities are clipped, so they
// cannot write into each other.
func (s *Segment) splitAt(pos int) (head, tail *Segment) {
	n := pos - s.Current.First
	if n <= 0 || n >= s.Len() {
		log.Panicf("segment %v: split position %d out of range", s.Current, pos)
	}
	head = &Segment{
		Current:     Range{s.Current.First, n},
		Orientation: s.Orientation,
		Source:      s.Source,
		bases:       s.bases[:n:n],
	}
	tail = &Segment{
		Current:     Range{pos, s.Len() - n},
		Orientation: s.Orientation,
		Source:      s.Source,
		bases:       s.bases[n:len(s.bases):len(s.bases)],
	}
	if s.Orientation == Plus {
		head.Origin = Range{s.Origin.First, n}
		tail.Origin = Range{s.Origin.First + n, s.Len() - n}
	} else {
		// The 5' end of a Minus segment is the 3' end of its origin.
		head.Origin = Range{s.Origin.Last() - n + 1, n}
		tail.Origin = Range{s.Origin.First, s.Len() - n}
	}
	return head, tail
}

// String returns the segment as a tab-separated provenance line.
func (s *Segment) String() string {
	raw := ""
	if s.Source == "" {
		raw = string(s.bases)
	}
	return fmt.Sprintf("%d\t%d\t%s\t%d\t%v\t%s", s.Current.First, s.Len(), s.Source, s.Origin.First, s.Orientation, raw)
}
