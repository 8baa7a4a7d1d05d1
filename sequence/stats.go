package sequence

import (
	"math"

	"github.com/grailbio/seqio/biosimd"
)

// Composition returns the base composition of the sequence.
func (s *Sequence) Composition() biosimd.Composition {
	var c biosimd.Composition
	for _, seg := range s.segments {
		c.Add(biosimd.CountComposition(seg.bases))
	}
	return c
}

// GCContent returns the fraction of bases that are G or C.  Ambiguity codes
// count fractionally.  It returns 0 for an empty sequence.
func (s *Sequence) GCContent() float64 {
	if s.length == 0 {
		return 0
	}
	c := s.Composition()
	return (c.C + c.G) / float64(s.length)
}

// Entropy returns the Shannon entropy, in bits, of the base frequencies.
// Ambiguity codes count fractionally, e.g. 'S' adds half a C and half a G.
func (s *Sequence) Entropy() float64 {
	if s.length == 0 {
		return 0
	}
	c := s.Composition()
	var h float64
	for _, n := range [...]float64{c.A, c.C, c.G, c.T} {
		if n > 0 {
			p := n / float64(s.length)
			h -= p * math.Log2(p)
		}
	}
	return h
}

// EntropyMax returns the largest entropy a sequence of this length can have.
func (s *Sequence) EntropyMax() float64 {
	switch {
	case s.length == 0:
		return 0
	case s.length < 4:
		return math.Log2(float64(s.length))
	}
	return 2
}

// Evenness returns Entropy()/EntropyMax(), or 0 if the maximum is 0.
func (s *Sequence) Evenness() float64 {
	max := s.EntropyMax()
	if max == 0 {
		return 0
	}
	return s.Entropy() / max
}
