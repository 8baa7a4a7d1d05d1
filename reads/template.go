package reads

import "github.com/grailbio/hts/sam"

// Template is a named group of reads believed to come from the same DNA
// fragment, e.g., a read pair.  Reads are kept in input order.
type Template struct {
	// Name is the read name with the pair suffix removed.
	Name  string
	Reads []*Read
	// Length is the observed insert size, or 0 if unknown.
	Length int
}

// Reset clears t for reuse.  The read slice is kept, but the reads are not.
func (t *Template) Reset() {
	t.Name = ""
	for i := range t.Reads {
		t.Reads[i] = nil
	}
	t.Reads = t.Reads[:0]
	t.Length = 0
}

// Add appends r to the template.
func (t *Template) Add(r *Read) { t.Reads = append(t.Reads, r) }

// Len returns the number of reads.
func (t *Template) Len() int { return len(t.Reads) }

// First returns the first segment of the template (flag Read1 without Read2),
// or nil.
func (t *Template) First() *Read {
	return t.find(sam.Read1)
}

// Last returns the last segment of the template (flag Read2 without Read1), or
// nil.
func (t *Template) Last() *Read {
	return t.find(sam.Read2)
}

func (t *Template) find(want sam.Flags) *Read {
	for _, r := range t.Reads {
		if r.Flags&(sam.Read1|sam.Read2) == want {
			return r
		}
	}
	return nil
}

// IsPaired checks if the template has both a first and a last segment.
func (t *Template) IsPaired() bool {
	return t.First() != nil && t.Last() != nil
}

// Span returns the reference interval [start, end] covered by the template's
// mapped reads, 1-based and closed.  ok is false if no read is mapped, or the
// mapped reads are on different references.
func (t *Template) Span() (ref string, start, end int, ok bool) {
	for _, r := range t.Reads {
		if !r.IsMapped() {
			continue
		}
		rEnd := r.Pos + r.RefLen() - 1
		if rEnd < r.Pos {
			rEnd = r.Pos
		}
		if !ok {
			ref, start, end, ok = r.Ref, r.Pos, rEnd, true
			continue
		}
		if r.Ref != ref {
			return "", 0, 0, false
		}
		if r.Pos < start {
			start = r.Pos
		}
		if rEnd > end {
			end = rEnd
		}
	}
	return
}

// Scanner is implemented by the split readers in encoding/....  Scan reads
// the next template into its argument and returns false at the end of the
// input or on error; Err distinguishes the two.
type Scanner interface {
	Scan(t *Template) bool
	Err() error
}

// Writer is implemented by the template writers in encoding/....
type Writer interface {
	WriteTemplate(t *Template) error
}
