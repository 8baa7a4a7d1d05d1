// Package sequence represents a mutable DNA sequence as an ordered list of
// segments, each of which remembers where its bases came from.  Structural
// edits (delete, insert, invert, duplicate) only split the segments that
// straddle an edit boundary; bases outside the edited range are never copied.
package sequence

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/seqio/biosimd"
)

// Sequence is a named DNA sequence whose bases are tiled by segments.  The
// segments' Current ranges are contiguous, ordered, and cover exactly
// [First(), First()+Len()).  No segment is empty.
//
// A Sequence is not safe for concurrent use.
type Sequence struct {
	name     string
	first    int
	length   int
	segments []*Segment
}

// New creates a sequence from the given bases, numbered from
// DefaultFirstBasePosition.  The sequence is its own source: its single
// segment has Source == name and Orientation == Plus.  The bases are copied.
// It returns an errors.Integrity error if bases contains a non-IUPAC code.
func New(name string, bases []byte) (*Sequence, error) {
	return NewAt(name, bases, DefaultFirstBasePosition)
}

// NewAt is like New, but numbers the bases starting at first.
//
// 'U' and 'u' are stored as 'T' and 't', so that reverse-complementing a
// segment twice gives back its bases.
func NewAt(name string, bases []byte, first int) (*Sequence, error) {
	if bad := biosimd.FirstNonIUPAC(bases); bad >= 0 {
		return nil, errors.E(errors.Integrity,
			fmt.Sprintf("sequence %s: illegal IUPAC code %q at position %d", name, bases[bad], first+bad))
	}
	s := &Sequence{name: name, first: first}
	if len(bases) > 0 {
		s.segments = []*Segment{{
			Origin:      Range{first, len(bases)},
			Orientation: Plus,
			Source:      name,
			bases:       toDNA(append([]byte(nil), bases...)),
		}}
	}
	s.rebuildPositionData()
	return s, nil
}

func toDNA(bases []byte) []byte {
	for i, b := range bases {
		switch b {
		case 'U':
			bases[i] = 'T'
		case 'u':
			bases[i] = 't'
		}
	}
	return bases
}

// Name returns the sequence's name.
func (s *Sequence) Name() string { return s.name }

// SetName renames the sequence.  Existing segments keep their sources.
func (s *Sequence) SetName(name string) { s.name = name }

// First returns the position of the first base.
func (s *Sequence) First() int { return s.first }

// Len returns the number of bases.
func (s *Sequence) Len() int { return s.length }

// End returns the position one past the last base.  This is also the only
// out-of-sequence position accepted by Insert and BreakpointAt.
func (s *Sequence) End() int { return s.first + s.length }

// NumSegments returns the number of segments.
func (s *Sequence) NumSegments() int { return len(s.segments) }

// Segments returns deep copies of the segments, in order.
func (s *Sequence) Segments() []*Segment {
	out := make([]*Segment, len(s.segments))
	for i, seg := range s.segments {
		out[i] = seg.Clone()
	}
	return out
}

// Bases returns a newly allocated copy of the bases.
func (s *Sequence) Bases() []byte {
	out := make([]byte, 0, s.length)
	for _, seg := range s.segments {
		out = append(out, seg.bases...)
	}
	return out
}

// String returns the bases as a string.
func (s *Sequence) String() string { return string(s.Bases()) }

// Clone returns a deep copy of s.
func (s *Sequence) Clone() *Sequence {
	c := &Sequence{name: s.name, first: s.first, length: s.length}
	c.segments = s.Segments()
	return c
}

// Reposition renumbers the sequence so that its first base is at first.
func (s *Sequence) Reposition(first int) {
	s.first = first
	s.rebuildPositionData()
}

func outOfRange(format string, args ...interface{}) error {
	return errors.E(errors.Invalid, fmt.Sprintf(format, args...))
}

// IsOutOfRange checks if err was caused by an edit outside a sequence's
// bounds.
func IsOutOfRange(err error) bool { return errors.Is(errors.Invalid, err) }

// IsFormatError checks if err was caused by an illegal base.
func IsFormatError(err error) bool { return errors.Is(errors.Integrity, err) }

// checkRange verifies that [first, first+length) lies within the sequence.
func (s *Sequence) checkRange(first, length int) error {
	if length < 0 {
		return outOfRange("sequence %s: negative length %d", s.name, length)
	}
	if first < s.first || first+length > s.End() {
		return outOfRange("sequence %s: range [%d,%d) outside [%d,%d)", s.name, first, first+length, s.first, s.End())
	}
	return nil
}

func (s *Sequence) checkPos(pos int) error {
	if pos < s.first || pos > s.End() {
		return outOfRange("sequence %s: position %d outside [%d,%d]", s.name, pos, s.first, s.End())
	}
	return nil
}

// segmentIndex returns the index of the segment containing pos, or
// len(s.segments) if pos == s.End().
func (s *Sequence) segmentIndex(pos int) int {
	return sort.Search(len(s.segments), func(i int) bool {
		return s.segments[i].Current.End() > pos
	})
}

// BreakpointAt makes sure that a segment starts at pos, splitting the segment
// containing pos if needed.  It returns the index of the segment starting at
// pos, i.e., the index at which segments inserted before pos would go.  pos
// may be End(), in which case the number of segments is returned.
//
// Calling BreakpointAt twice with the same position is the same as calling it
// once.  The bases of the sequence are unchanged.
func (s *Sequence) BreakpointAt(pos int) (int, error) {
	if err := s.checkPos(pos); err != nil {
		return 0, err
	}
	i := s.segmentIndex(pos)
	if i == len(s.segments) || s.segments[i].Current.First == pos {
		return i, nil
	}
	head, tail := s.segments[i].splitAt(pos)
	s.segments = append(s.segments, nil)
	copy(s.segments[i+2:], s.segments[i+1:])
	s.segments[i], s.segments[i+1] = head, tail
	return i + 1, nil
}

// breakRange places breakpoints at both ends of [first, first+length) and
// returns the segment index range [i, j) that covers it.
func (s *Sequence) breakRange(first, length int) (i, j int, err error) {
	if err = s.checkRange(first, length); err != nil {
		return
	}
	if i, err = s.BreakpointAt(first); err != nil {
		return
	}
	j, err = s.BreakpointAt(first + length)
	return
}

// Delete removes the bases in [first, first+length).
func (s *Sequence) Delete(first, length int) error {
	i, j, err := s.breakRange(first, length)
	if err != nil {
		return err
	}
	n := copy(s.segments[i:], s.segments[j:])
	for k := i + n; k < len(s.segments); k++ {
		s.segments[k] = nil
	}
	s.segments = s.segments[:i+n]
	s.rebuildPositionData()
	return nil
}

// Insert copies src's segments in front of position before.  The inserted
// segments keep their origins, orientations, and sources.  before may be
// End(), which appends.  src may be s itself.
func (s *Sequence) Insert(before int, src *Sequence) error {
	if err := s.checkPos(before); err != nil {
		return err
	}
	ins := src.Segments()
	i, err := s.BreakpointAt(before)
	if err != nil {
		return err
	}
	segs := make([]*Segment, 0, len(s.segments)+len(ins))
	segs = append(segs, s.segments[:i]...)
	segs = append(segs, ins...)
	segs = append(segs, s.segments[i:]...)
	s.segments = segs
	s.rebuildPositionData()
	return nil
}

// Append adds a copy of src's bases to the end of s.
func (s *Sequence) Append(src *Sequence) error {
	return s.Insert(s.End(), src)
}

// Invert reverse-complements the bases in [first, first+length) in place.
// The segments in the range are reversed in order and each one is flipped.
func (s *Sequence) Invert(first, length int) error {
	i, j, err := s.breakRange(first, length)
	if err != nil {
		return err
	}
	for lo, hi := i, j-1; lo <= hi; lo, hi = lo+1, hi-1 {
		if lo == hi {
			s.segments[lo].reverseComplement()
			break
		}
		s.segments[lo], s.segments[hi] = s.segments[hi], s.segments[lo]
		s.segments[lo].reverseComplement()
		s.segments[hi].reverseComplement()
	}
	s.rebuildPositionData()
	return nil
}

// ReverseComplement reverse-complements the whole sequence.
func (s *Sequence) ReverseComplement() {
	if s.length == 0 {
		return
	}
	if err := s.Invert(s.first, s.length); err != nil {
		panic(err)
	}
}

// SubSequence returns a deep copy of the bases in [first, first+length),
// with their provenance.  The result keeps s's name and numbering, so its
// first base is at first.  s is not modified.
func (s *Sequence) SubSequence(first, length int) (*Sequence, error) {
	if err := s.checkRange(first, length); err != nil {
		return nil, err
	}
	sub := &Sequence{name: s.name, first: first}
	end := first + length
	for i := s.segmentIndex(first); length > 0 && i < len(s.segments); i++ {
		seg := s.segments[i]
		if seg.Current.First >= end {
			break
		}
		if seg.Current.First < first {
			_, seg = seg.splitAt(first)
		}
		if seg.Current.End() > end {
			seg, _ = seg.splitAt(end)
		}
		sub.segments = append(sub.segments, seg.Clone())
	}
	sub.rebuildPositionData()
	return sub, nil
}

// Duplicate copies the bases in [first, first+length) and inserts the copy in
// front of position before, reverse-complementing it first if invert is set.
// before is interpreted in the coordinates prior to the edit.
//
// Tandem duplication is Duplicate(first, length, first+length, false).
func (s *Sequence) Duplicate(first, length, before int, invert bool) error {
	if err := s.checkPos(before); err != nil {
		return err
	}
	dup, err := s.SubSequence(first, length)
	if err != nil {
		return err
	}
	if invert {
		dup.ReverseComplement()
	}
	return s.Insert(before, dup)
}

// Translocate moves the bases in [first, first+length) in front of position
// before, reverse-complementing them if invert is set.  All positions are in
// the coordinates prior to the edit.  before must not lie strictly inside the
// moved range.
func (s *Sequence) Translocate(first, length, before int, invert bool) error {
	if err := s.checkRange(first, length); err != nil {
		return err
	}
	if err := s.checkPos(before); err != nil {
		return err
	}
	if before > first && before < first+length {
		return outOfRange("sequence %s: cannot move [%d,%d) in front of %d", s.name, first, first+length, before)
	}
	if err := s.Duplicate(first, length, before, invert); err != nil {
		return err
	}
	if before <= first {
		first += length
	}
	return s.Delete(first, length)
}

// rebuildPositionData recomputes every segment's Current range and the
// sequence length from the segment order, dropping empty segments.  Every
// method that changes the segment list calls it before returning.
func (s *Sequence) rebuildPositionData() {
	pos := s.first
	kept := s.segments[:0]
	for _, seg := range s.segments {
		if seg.Len() == 0 {
			continue
		}
		seg.Current = Range{pos, seg.Len()}
		pos += seg.Len()
		kept = append(kept, seg)
	}
	for i := len(kept); i < len(s.segments); i++ {
		s.segments[i] = nil
	}
	s.segments = kept
	s.length = pos - s.first
}

// Check verifies the tiling invariant.  It is meant for tests.
func (s *Sequence) Check() error {
	pos, n := s.first, 0
	for i, seg := range s.segments {
		switch {
		case seg.Len() == 0:
			return errors.E(fmt.Sprintf("sequence %s: segment %d is empty", s.name, i))
		case seg.Current.First != pos || seg.Current.Length != seg.Len():
			return errors.E(
				fmt.Sprintf("sequence %s: segment %d at %v, expected %d..%d", s.name, i, seg.Current, pos, pos+seg.Len()-1))
		case seg.Origin.Length != seg.Len():
			return errors.E(
				fmt.Sprintf("sequence %s: segment %d origin %v does not match length %d", s.name, i, seg.Origin, seg.Len()))
		}
		pos += seg.Len()
		n += seg.Len()
	}
	if n != s.length {
		return errors.E(fmt.Sprintf("sequence %s: length %d, segments cover %d", s.name, s.length, n))
	}
	return nil
}

// Equal checks if a and b have the same numbering, bases and provenance.
// Segment boundaries that do not change provenance are ignored.
func Equal(a, b *Sequence) bool {
	if a.first != b.first || a.length != b.length || !bytes.Equal(a.Bases(), b.Bases()) {
		return false
	}
	pa, pb := a.Summarize(), b.Summarize()
	if len(pa) != len(pb) {
		return false
	}
	for i := range pa {
		if pa[i].Current != pb[i].Current || pa[i].Origin != pb[i].Origin ||
			pa[i].Source != pb[i].Source || pa[i].Orientation != pb[i].Orientation {
			return false
		}
	}
	return true
}
