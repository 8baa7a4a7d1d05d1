package sequence

import (
	"io"
	"strconv"

	"github.com/grailbio/base/tsv"
)

// Provenance describes a run of bases in a sequence that came from one
// contiguous source range in one orientation.
type Provenance struct {
	Current     Range
	Source      string
	Origin      Range
	Orientation Orientation
	// Bases is set only for runs with an empty Source, since such bases
	// cannot be recovered from anywhere else.
	Bases []byte
}

// extends checks if seg continues the run p, i.e., reading the two in current
// order walks the same source without a jump.
func (p *Provenance) extends(seg *Segment) bool {
	if seg.Source != p.Source || seg.Orientation != p.Orientation || seg.Current.First != p.Current.End() {
		return false
	}
	if p.Orientation == Plus {
		return seg.Origin.First == p.Origin.End()
	}
	return seg.Origin.End() == p.Origin.First
}

// Summarize returns the provenance of the sequence as a list of maximal runs,
// in current order.  Adjacent segments are merged when they share source and
// orientation, and their origins continue each other (in reverse for Minus
// segments).
func (s *Sequence) Summarize() []Provenance {
	var out []Provenance
	for _, seg := range s.segments {
		if n := len(out); n > 0 && out[n-1].extends(seg) {
			p := &out[n-1]
			p.Current.Length += seg.Len()
			p.Origin.Length += seg.Len()
			if p.Orientation == Minus {
				p.Origin.First = seg.Origin.First
			}
			if p.Source == "" {
				p.Bases = append(p.Bases, seg.bases...)
			}
			continue
		}
		p := Provenance{
			Current:     seg.Current,
			Source:      seg.Source,
			Origin:      seg.Origin,
			Orientation: seg.Orientation,
		}
		if seg.Source == "" {
			p.Bases = append([]byte(nil), seg.bases...)
		}
		out = append(out, p)
	}
	return out
}

// WriteSummary writes Summarize() as a tab-separated table, one run per line
// with columns
//
//   currentStart length source originStart orientation bases
//
// where orientation is "+" or "-" and bases is empty unless source is.
func (s *Sequence) WriteSummary(w io.Writer) error {
	tw := tsv.NewWriter(w)
	for _, p := range s.Summarize() {
		tw.WriteString(strconv.Itoa(p.Current.First))
		tw.WriteString(strconv.Itoa(p.Current.Length))
		tw.WriteString(p.Source)
		tw.WriteString(strconv.Itoa(p.Origin.First))
		tw.WriteString(p.Orientation.String())
		tw.WriteString(string(p.Bases))
		if err := tw.EndLine(); err != nil {
			return err
		}
	}
	return tw.Flush()
}
