// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package biosimd provides table-driven kernels for the byte-array operations
// that sit in the inner loops of sequence editing and record parsing:
// IUPAC validation, reverse-complementation, and base composition counting.
//
// All functions operate on ASCII-encoded nucleotide sequences.  Lookup tables
// are 256 entries wide so no input byte can index out of range.
package biosimd
