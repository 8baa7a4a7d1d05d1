// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package biosimd

import "math/bits"

const (
	baseA = 1 << iota
	baseC
	baseG
	baseT
)

// iupacBaseSet maps each IUPAC code to the set of unambiguous bases it may
// stand for.  Gaps and illegal codes map to the empty set.
var iupacBaseSet [256]byte

func init() {
	sets := map[byte]byte{
		'A': baseA, 'C': baseC, 'G': baseG, 'T': baseT, 'U': baseT,
		'R': baseA | baseG, 'Y': baseC | baseT, 'S': baseC | baseG,
		'W': baseA | baseT, 'K': baseG | baseT, 'M': baseA | baseC,
		'B': baseC | baseG | baseT, 'D': baseA | baseG | baseT,
		'H': baseA | baseC | baseT, 'V': baseA | baseC | baseG,
		'N': baseA | baseC | baseG | baseT, 'X': baseA | baseC | baseG | baseT,
	}
	for code, set := range sets {
		iupacBaseSet[code] = set
		iupacBaseSet[code+'a'-'A'] = set
	}
}

// Composition is the (possibly fractional) number of A, C, G, and T bases in a
// sequence.  An ambiguity code contributes equally to each base it may stand
// for, e.g. 'S' adds 0.5 to both C and G.
type Composition struct {
	A, C, G, T float64
}

// Total returns A+C+G+T.
func (c Composition) Total() float64 {
	return c.A + c.C + c.G + c.T
}

// Add accumulates other into c.
func (c *Composition) Add(other Composition) {
	c.A += other.A
	c.C += other.C
	c.G += other.G
	c.T += other.T
}

// CountComposition returns the base composition of ascii8[].  Gap characters
// and illegal codes are ignored.
func CountComposition(ascii8 []byte) Composition {
	// Exact integer counts per set, converted to fractions once at the end.
	var counts [16]int
	for _, b := range ascii8 {
		counts[iupacBaseSet[b]]++
	}
	var c Composition
	for set := 1; set < len(counts); set++ {
		n := counts[set]
		if n == 0 {
			continue
		}
		share := float64(n) / float64(bits.OnesCount8(uint8(set)))
		if set&baseA != 0 {
			c.A += share
		}
		if set&baseC != 0 {
			c.C += share
		}
		if set&baseG != 0 {
			c.G += share
		}
		if set&baseT != 0 {
			c.T += share
		}
	}
	return c
}
