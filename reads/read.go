// Package reads defines the records produced by the split readers in
// encoding/...: a Read is one sequencing read, and a Template groups the reads
// that came from one DNA fragment.
package reads

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/simd"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/seqio/biosimd"
)

// Unset values of the optional alignment fields.  They match the SAM
// conventions for unaligned reads.
const (
	UnsetRef     = "*"
	UnsetPos     = 0
	UnsetMapQ    = 255
	pairSuffixN1 = "/1"
	pairSuffixN2 = "/2"
)

// Tag is a SAM optional field.  Key has the form "TAG:TYPE" (e.g. "NM:i") and
// Value is everything after the second colon.
type Tag struct {
	Key, Value string
}

// Read is a single sequencing read.  Reads from unaligned formats (FASTQ,
// flat FASTQ) leave the alignment fields unset and carry sam.Unmapped.
type Read struct {
	// Name is the read name as found in the input, including any "/N"
	// suffix.
	Name string
	// Seq is the base sequence, in IUPAC codes.
	Seq []byte
	// Qual holds the phred+33 quality string.  When set, len(Qual) ==
	// len(Seq).
	Qual []byte
	// Flags is the SAM flag word.
	Flags sam.Flags

	Ref     string
	Pos     int
	MapQ    int
	Cigar   sam.Cigar
	NextRef string
	NextPos int
	Tags    []Tag
}

// NewUnaligned creates a read with the alignment fields unset.
func NewUnaligned(name string, seq, qual []byte) *Read {
	return &Read{
		Name:    name,
		Seq:     seq,
		Qual:    qual,
		Flags:   sam.Unmapped | NameFlags(name),
		Ref:     UnsetRef,
		MapQ:    UnsetMapQ,
		NextRef: UnsetRef,
	}
}

// Tag returns the value of the optional field with the given key.
func (r *Read) Tag(key string) (string, bool) {
	for _, t := range r.Tags {
		if t.Key == key {
			return t.Value, true
		}
	}
	return "", false
}

// SetTag sets the optional field key, replacing any existing value.
func (r *Read) SetTag(key, value string) {
	for i := range r.Tags {
		if r.Tags[i].Key == key {
			r.Tags[i].Value = value
			return
		}
	}
	r.Tags = append(r.Tags, Tag{key, value})
}

// ParseTag parses a "TAG:TYPE:VALUE" optional field.  The value may itself
// contain colons.
func ParseTag(field string) (Tag, error) {
	parts := strings.SplitN(field, ":", 3)
	if len(parts) != 3 || len(parts[0]) != 2 || len(parts[1]) != 1 {
		return Tag{}, errors.E(errors.Integrity, fmt.Sprintf("malformed optional field %q", field))
	}
	return Tag{Key: parts[0] + ":" + parts[1], Value: parts[2]}, nil
}

// String returns "TAG:TYPE:VALUE".
func (t Tag) String() string { return t.Key + ":" + t.Value }

// Validate checks that the bases are legal IUPAC codes and that the quality
// string, if any, matches the sequence length.
func (r *Read) Validate() error {
	if bad := biosimd.FirstNonIUPAC(r.Seq); bad >= 0 {
		return errors.E(errors.Integrity,
			fmt.Sprintf("read %s: illegal IUPAC code %q at offset %d", r.Name, r.Seq[bad], bad))
	}
	if len(r.Qual) > 0 && len(r.Qual) != len(r.Seq) {
		return errors.E(errors.Integrity,
			fmt.Sprintf("read %s: %d bases but %d quality scores", r.Name, len(r.Seq), len(r.Qual)))
	}
	return nil
}

// RefLen returns the number of reference bases covered by the alignment, or 0
// if the read has no CIGAR.
func (r *Read) RefLen() int {
	ref, _ := r.Cigar.Lengths()
	return ref
}

// IsMapped checks if the read is aligned.
func (r *Read) IsMapped() bool {
	return r.Flags&sam.Unmapped == 0 && r.Ref != UnsetRef && r.Pos > 0
}

// SplitPairSuffix splits a trailing "/N", N a positive integer, off name.  It
// returns the name without the suffix and N, or name and 0 if there is no
// such suffix.
func SplitPairSuffix(name string) (string, int) {
	slash := strings.LastIndexByte(name, '/')
	if slash <= 0 || slash == len(name)-1 {
		return name, 0
	}
	n, err := strconv.Atoi(name[slash+1:])
	if err != nil || n <= 0 || name[slash+1] == '+' {
		return name, 0
	}
	return name[:slash], n
}

// TemplateName returns the name shared by all reads of a template: the read
// name up to the first whitespace, minus any "/N" suffix.
func TemplateName(name string) string {
	if i := strings.IndexAny(name, " \t"); i >= 0 {
		name = name[:i]
	}
	name, _ = SplitPairSuffix(name)
	return name
}

// NameFlags returns the segment flags implied by a read name's "/N" suffix:
// "/1" is the first segment of a pair, "/2" the last, and any other N a middle
// segment of a multi-segment template.  A name without a suffix implies an
// unpaired read.
func NameFlags(name string) sam.Flags {
	switch _, n := SplitPairSuffix(name); n {
	case 0:
		return 0
	case 1:
		return sam.Paired | sam.Read1
	case 2:
		return sam.Paired | sam.Read2
	default:
		return sam.Paired | sam.Read1 | sam.Read2
	}
}

// WithPairSuffix returns name with "/1" or "/2" appended according to flags,
// unless name already has a suffix or the flags mark neither segment.
func WithPairSuffix(name string, flags sam.Flags) string {
	if _, n := SplitPairSuffix(name); n != 0 {
		return name
	}
	switch flags & (sam.Read1 | sam.Read2) {
	case sam.Read1:
		return name + pairSuffixN1
	case sam.Read2:
		return name + pairSuffixN2
	}
	return name
}

// AsSequenced returns r in the orientation it was sequenced in.  Aligners
// store reverse-strand reads reverse-complemented; for a read flagged
// sam.Reverse, AsSequenced returns a copy with the bases reverse-complemented,
// the quality string reversed, and the flag cleared.  Other reads are returned
// as is.
func (r *Read) AsSequenced() *Read {
	if r.Flags&sam.Reverse == 0 {
		return r
	}
	c := *r
	c.Seq = make([]byte, len(r.Seq))
	if bad := biosimd.ReverseCompIUPAC(c.Seq, r.Seq); bad >= 0 {
		// Unvalidated input; fall back to a plain reversal of the codes.
		copy(c.Seq, r.Seq)
		simd.Reverse8Inplace(c.Seq)
	}
	c.Qual = append([]byte(nil), r.Qual...)
	simd.Reverse8Inplace(c.Qual)
	c.Flags &^= sam.Reverse
	return &c
}
