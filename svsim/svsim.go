// Package svsim simulates structural variants.  A Simulator applies random or
// explicit deletions, insertions, inversions, duplications and translocations
// to a sequence.Sequence, keeping a log of the events.  The mutated sequence
// remembers the provenance of every base, so sequence.WriteSummary gives the
// ground truth for the simulated variants.
//
// Positions are those of the sequence being edited, at the time of the edit;
// by default the first base is at position 1.
package svsim

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/seqio/sequence"
)

// SizeDist is a normal distribution of variant sizes, truncated to the range
// of sizes that fit in the sequence.
type SizeDist struct {
	Mean, StdDev float64
}

// Opts controls the random events of a Simulator.
type Opts struct {
	// Seed seeds the random generator.
	Seed int64
	// Deletion, Inversion and Duplication are the size distributions of
	// random large variants.  Duplication applies to tandem duplications and
	// translocations too.
	Deletion, Inversion, Duplication SizeDist
	// MaxSize, if positive, caps the size of random large variants.
	MaxSize int
}

// DefaultOpts is the default value of Opts.
var DefaultOpts = Opts{
	Deletion:    SizeDist{10000, 30000},
	Inversion:   SizeDist{20000, 30000},
	Duplication: SizeDist{10000, 10000},
}

// smallSizeScale caps small variant sizes at 35 bases;
// sizes above 6 occur less than 3% of the time, and above 10 less than 0.2%.
const smallSizeScale = 1.125e15

// maxRejections bounds the resampling of a truncated normal size.
const maxRejections = 10000

var randomBases = []byte("ACTG")

// Simulator applies structural variants to a sequence.  It is not safe for
// concurrent use.
type Simulator struct {
	seq    *sequence.Sequence
	opts   Opts
	rand   *rand.Rand
	events []Event
}

// New creates a simulator that edits seq in place.
func New(seq *sequence.Sequence, opts Opts) *Simulator {
	return &Simulator{
		seq:  seq,
		opts: opts,
		rand: rand.New(rand.NewSource(opts.Seed)),
	}
}

// Sequence returns the sequence being edited.
func (s *Simulator) Sequence() *sequence.Sequence { return s.seq }

// Events returns the events applied so far, in order.
func (s *Simulator) Events() []Event { return s.events }

func (s *Simulator) record(e Event) {
	if log.At(log.Debug) {
		log.Debug.Printf("svsim: %v", e)
	}
	s.events = append(s.events, e)
}

// SmallSize draws the size of a small indel.  Sizes are at least 1, and
// decay exponentially.
func (s *Simulator) SmallSize() int {
	v := s.rand.Float64() * smallSizeScale
	return int(1 + math.Log((1+smallSizeScale)/(1+v)))
}

// Size draws a size from d, truncated to [1, max].
func (s *Simulator) Size(d SizeDist, max int) int {
	if s.opts.MaxSize > 0 && max > s.opts.MaxSize {
		max = s.opts.MaxSize
	}
	if max < 1 {
		return 0
	}
	switch {
	case float64(max) < d.Mean-2*d.StdDev:
		log.Printf("svsim: maximum size %d < mean - 2 x stddev, using the maximum", max)
		return max
	case 1 > d.Mean+2*d.StdDev:
		log.Printf("svsim: minimum size 1 > mean + 2 x stddev, using the minimum")
		return 1
	}
	var size int
	for i := 0; i < maxRejections; i++ {
		size = int(s.rand.NormFloat64()*d.StdDev + d.Mean)
		if size >= 1 && size <= max {
			return size
		}
	}
	if size < 1 {
		return 1
	}
	return max
}

// randomRange picks a random range of the given length.
func (s *Simulator) randomRange(length int) int {
	return s.seq.First() + s.rand.Intn(s.seq.Len()-length+1)
}

// randomPos picks a random position in [First(), End()].
func (s *Simulator) randomPos() int {
	return s.seq.First() + s.rand.Intn(s.seq.Len()+1)
}

func (s *Simulator) tooShort(what string) error {
	return errors.E(errors.Invalid, fmt.Sprintf("svsim: sequence %s of length %d is too short for a random %s", s.seq.Name(), s.seq.Len(), what))
}

// Delete removes the bases in [first, first+length).
func (s *Simulator) Delete(first, length int) error {
	if err := s.seq.Delete(first, length); err != nil {
		return err
	}
	s.record(Event{Kind: Deletion, First: first, Length: length})
	return nil
}

// RandomDeletion deletes a random range with a size drawn from
// Opts.Deletion.
func (s *Simulator) RandomDeletion() error {
	length := s.Size(s.opts.Deletion, s.seq.Len()-1)
	if length < 1 {
		return s.tooShort("deletion")
	}
	return s.Delete(s.randomRange(length), length)
}

// RandomSmallDeletion deletes a random range with a size drawn by SmallSize.
func (s *Simulator) RandomSmallDeletion() error {
	if s.seq.Len() < 2 {
		return s.tooShort("small deletion")
	}
	length := s.SmallSize()
	for length >= s.seq.Len() {
		length = s.SmallSize()
	}
	return s.Delete(s.randomRange(length), length)
}

// Insert copies the bases of src in front of position before.  A src with an
// empty name is reported as novel sequence: sequence.WriteSummary lists its
// bases.
func (s *Simulator) Insert(before int, src *sequence.Sequence) error {
	if err := s.seq.Insert(before, src); err != nil {
		return err
	}
	s.record(Event{Kind: Insertion, First: src.First(), Length: src.Len(), Before: before, Source: src.Name()})
	return nil
}

// RandomSmallInsertion inserts novel random bases, as many as SmallSize
// draws, at a random position.
func (s *Simulator) RandomSmallInsertion() error {
	bases := make([]byte, s.SmallSize())
	for i := range bases {
		bases[i] = randomBases[s.rand.Intn(len(randomBases))]
	}
	novel, err := sequence.New("", bases)
	if err != nil {
		return err
	}
	return s.Insert(s.randomPos(), novel)
}

// Invert reverse-complements the bases in [first, first+length).
func (s *Simulator) Invert(first, length int) error {
	if err := s.seq.Invert(first, length); err != nil {
		return err
	}
	s.record(Event{Kind: Inversion, First: first, Length: length, Inverted: true})
	return nil
}

// RandomInversion inverts a random range with a size drawn from
// Opts.Inversion.
func (s *Simulator) RandomInversion() error {
	length := s.Size(s.opts.Inversion, s.seq.Len()-1)
	if length < 1 {
		return s.tooShort("inversion")
	}
	return s.Invert(s.randomRange(length), length)
}

// Duplicate inserts a copy of [first, first+length) in front of before,
// reverse-complemented if invert is set.
func (s *Simulator) Duplicate(first, length, before int, invert bool) error {
	if err := s.seq.Duplicate(first, length, before, invert); err != nil {
		return err
	}
	s.record(Event{Kind: Duplication, First: first, Length: length, Before: before, Inverted: invert, Count: 1})
	return nil
}

// RandomDuplication duplicates a random range with a size drawn from
// Opts.Duplication to a random position, inverted half of the time.
func (s *Simulator) RandomDuplication() error {
	length := s.Size(s.opts.Duplication, s.seq.Len())
	if length < 1 {
		return s.tooShort("duplication")
	}
	first := s.randomRange(length)
	return s.Duplicate(first, length, s.randomPos(), s.rand.Intn(2) == 1)
}

// TandemDuplicate inserts count copies of [first, first+length) right after
// the range, reverse-complemented if invert is set.
func (s *Simulator) TandemDuplicate(first, length, count int, invert bool) error {
	if count < 1 {
		return errors.E(errors.Invalid, fmt.Sprintf("svsim: tandem duplication count %d", count))
	}
	unit, err := s.seq.SubSequence(first, length)
	if err != nil {
		return err
	}
	if invert {
		unit.ReverseComplement()
	}
	for i := 0; i < count; i++ {
		if err := s.seq.Insert(first+length, unit); err != nil {
			return err
		}
	}
	s.record(Event{Kind: TandemDuplication, First: first, Length: length, Before: first + length, Inverted: invert, Count: count})
	return nil
}

// RandomTandemDuplication duplicates a random range with a size drawn from
// Opts.Duplication between 2 and 20 times.
func (s *Simulator) RandomTandemDuplication() error {
	length := s.Size(s.opts.Duplication, s.seq.Len())
	if length < 1 {
		return s.tooShort("tandem duplication")
	}
	first := s.randomRange(length)
	count := 2
	for i := 0; i < 6; i++ {
		count += s.rand.Intn(4)
	}
	return s.TandemDuplicate(first, length, count, s.rand.Intn(2) == 1)
}

// Translocate moves [first, first+length) in front of before,
// reverse-complemented if invert is set.  before must not lie strictly inside
// the range.
func (s *Simulator) Translocate(first, length, before int, invert bool) error {
	if err := s.seq.Translocate(first, length, before, invert); err != nil {
		return err
	}
	s.record(Event{Kind: Translocation, First: first, Length: length, Before: before, Inverted: invert, Count: 1})
	return nil
}

// RandomTranslocation moves a random range with a size drawn from
// Opts.Duplication to a random position outside it, inverted half of the
// time.
func (s *Simulator) RandomTranslocation() error {
	length := s.Size(s.opts.Duplication, s.seq.Len()-1)
	if length < 1 {
		return s.tooShort("translocation")
	}
	first := s.randomRange(length)
	// Valid destinations are [First(), first] and [first+length, End()].
	head := first - s.seq.First() + 1
	tail := s.seq.End() - (first + length) + 1
	before := s.rand.Intn(head + tail)
	if before < head {
		before += s.seq.First()
	} else {
		before += first + length - head
	}
	return s.Translocate(first, length, before, s.rand.Intn(2) == 1)
}

// RandomVariants applies n random events, chosen uniformly among the random
// event types.
func (s *Simulator) RandomVariants(n int) error {
	events := []func() error{
		s.RandomSmallInsertion,
		s.RandomSmallDeletion,
		s.RandomDeletion,
		s.RandomDuplication,
		s.RandomInversion,
		s.RandomTandemDuplication,
		s.RandomTranslocation,
	}
	for i := 0; i < n; i++ {
		if err := events[s.rand.Intn(len(events))](); err != nil {
			return err
		}
	}
	return nil
}
