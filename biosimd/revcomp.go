// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package biosimd

import (
	"github.com/grailbio/base/simd"
)

// iupacCompTable maps each legal IUPAC nucleotide code to its complement,
// preserving case.  Illegal codes map to 0.
var iupacCompTable [256]byte

func init() {
	pairs := [...][2]byte{
		{'A', 'T'}, {'C', 'G'}, {'G', 'C'}, {'T', 'A'}, {'U', 'A'},
		{'R', 'Y'}, {'Y', 'R'}, {'S', 'S'}, {'W', 'W'}, {'K', 'M'}, {'M', 'K'},
		{'B', 'V'}, {'V', 'B'}, {'D', 'H'}, {'H', 'D'},
		{'N', 'N'}, {'X', 'X'},
	}
	for _, p := range pairs {
		iupacCompTable[p[0]] = p[1]
		iupacCompTable[p[0]+'a'-'A'] = p[1] + 'a' - 'A'
	}
	// Gap characters are their own complement.
	iupacCompTable['-'] = '-'
	iupacCompTable['.'] = '.'
}

// IsIUPAC returns true iff b is a legal (case-insensitive) IUPAC nucleotide
// code, or one of the gap characters '-' and '.'.
func IsIUPAC(b byte) bool {
	return iupacCompTable[b] != 0
}

// FirstNonIUPAC returns the index of the first byte in ascii8[] which is not a
// legal IUPAC code, or -1 if there is none.
func FirstNonIUPAC(ascii8 []byte) int {
	for i, b := range ascii8 {
		if iupacCompTable[b] == 0 {
			return i
		}
	}
	return -1
}

// ComplementIUPAC returns the complement of a single IUPAC code, or 0 if b is
// not a legal code.
func ComplementIUPAC(b byte) byte {
	return iupacCompTable[b]
}

// ReverseCompIUPACInplace reverse-complements ascii8[] in place.  Case is
// preserved, and ambiguity codes map to their IUPAC complements (e.g. R <-> Y,
// B <-> V).  'U' is complemented to 'A'.
//
// If ascii8[] contains an illegal code, it is left unmodified and the index of
// the first illegal byte is returned.  Otherwise the return value is -1.
func ReverseCompIUPACInplace(ascii8 []byte) int {
	if bad := FirstNonIUPAC(ascii8); bad >= 0 {
		return bad
	}
	simd.Reverse8Inplace(ascii8)
	for i, b := range ascii8 {
		ascii8[i] = iupacCompTable[b]
	}
	return -1
}

// ReverseCompIUPAC writes the reverse-complement of src[] to dst[].  It panics
// if len(dst) != len(src).  Illegal codes are handled as in
// ReverseCompIUPACInplace, except dst[] contents are unspecified on failure.
func ReverseCompIUPAC(dst, src []byte) int {
	nByte := len(src)
	if len(dst) != nByte {
		panic("ReverseCompIUPAC requires len(dst) == len(src).")
	}
	for idx, invIdx := 0, nByte-1; idx != nByte; idx, invIdx = idx+1, invIdx-1 {
		c := iupacCompTable[src[invIdx]]
		if c == 0 {
			return invIdx
		}
		dst[idx] = c
	}
	return -1
}
