package sequence_test

import (
	"bytes"
	"math"
	"math/rand"
	"testing"

	"github.com/grailbio/seqio/biosimd"
	"github.com/grailbio/seqio/sequence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeq(t *testing.T, name, bases string) *sequence.Sequence {
	s, err := sequence.New(name, []byte(bases))
	require.NoError(t, err)
	return s
}

func TestNew(t *testing.T) {
	s := newSeq(t, "chr1", "AAAACCCCTTTTGGGGUUUU")
	assert.Equal(t, "AAAACCCCTTTTGGGGTTTT", s.String())
	assert.Equal(t, "chr1", s.Name())
	assert.Equal(t, 1, s.First())
	assert.Equal(t, 20, s.Len())
	assert.Equal(t, 21, s.End())
	assert.Equal(t, 1, s.NumSegments())
	assert.NoError(t, s.Check())

	empty := newSeq(t, "e", "")
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, 0, empty.NumSegments())

	_, err := sequence.New("bad", []byte("ACGTZ"))
	require.Error(t, err)
	assert.True(t, sequence.IsFormatError(err))

	s, err = sequence.NewAt("chr2", []byte("ACGT"), 100)
	require.NoError(t, err)
	assert.Equal(t, 100, s.First())
	assert.Equal(t, 104, s.End())
	segs := s.Segments()
	assert.Equal(t, sequence.Range{First: 100, Length: 4}, segs[0].Origin)
}

func TestDelete(t *testing.T) {
	s := newSeq(t, "chr1", "AAAACCCCTTTTGGGGAAAA")
	require.NoError(t, s.Delete(1, 0))
	require.NoError(t, s.Delete(20, 0))
	require.NoError(t, s.Delete(21, 0))
	assert.Equal(t, "AAAACCCCTTTTGGGGAAAA", s.String())

	err := s.Delete(22, 0)
	require.Error(t, err)
	assert.True(t, sequence.IsOutOfRange(err))
	assert.True(t, sequence.IsOutOfRange(s.Delete(0, 1)))
	assert.True(t, sequence.IsOutOfRange(s.Delete(18, 4)))
	assert.True(t, sequence.IsOutOfRange(s.Delete(1, -1)))

	require.NoError(t, s.Delete(1, 4))
	assert.Equal(t, "CCCCTTTTGGGGAAAA", s.String())
	assert.Equal(t, 16, s.Len())
	require.NoError(t, s.Check())

	require.NoError(t, s.Delete(13, 4))
	assert.Equal(t, "CCCCTTTTGGGG", s.String())
	require.NoError(t, s.Delete(1, 12))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.NumSegments())
}

func TestDeleteSummary(t *testing.T) {
	s := newSeq(t, "chr1", "ACGTACGTACGT")
	require.NoError(t, s.Delete(5, 4))
	assert.Equal(t, "ACGTACGT", s.String())
	assert.Equal(t, []sequence.Provenance{
		{Current: sequence.Range{First: 1, Length: 4}, Source: "chr1", Origin: sequence.Range{First: 1, Length: 4}, Orientation: sequence.Plus},
		{Current: sequence.Range{First: 5, Length: 4}, Source: "chr1", Origin: sequence.Range{First: 9, Length: 4}, Orientation: sequence.Plus},
	}, s.Summarize())
}

func TestInvert(t *testing.T) {
	for _, test := range []struct {
		bases         string
		first, length int
		want          string
	}{
		{"AACCGGTT", 1, 8, "AACCGGTT"},
		{"AAAACCCG", 1, 8, "CGGGTTTT"},
		{"AAAACCCG", 3, 4, "AAGGTTCG"},
		{"AAAACCCG", 8, 1, "AAAACCCC"},
		{"AAAACCCG", 4, 0, "AAAACCCG"},
	} {
		s := newSeq(t, "chr1", test.bases)
		require.NoError(t, s.Invert(test.first, test.length))
		assert.Equal(t, test.want, s.String(), "%+v", test)
		require.NoError(t, s.Check())
	}

	s := newSeq(t, "chr1", "AAAACCCG")
	require.NoError(t, s.Invert(3, 4))
	p := s.Summarize()
	require.Len(t, p, 3)
	assert.Equal(t, sequence.Minus, p[1].Orientation)
	assert.Equal(t, sequence.Range{First: 3, Length: 4}, p[1].Origin)
	assert.True(t, sequence.IsOutOfRange(s.Invert(5, 5)))
}

func TestInvertRNA(t *testing.T) {
	s := newSeq(t, "chr1", "AUGGCu")
	assert.Equal(t, "ATGGCt", s.String())
	orig := s.Clone()
	require.NoError(t, s.Invert(2, 4))
	assert.Equal(t, "AGCCAt", s.String())
	require.NoError(t, s.Invert(2, 4))
	assert.Equal(t, "ATGGCt", s.String())
	assert.True(t, sequence.Equal(orig, s))

	s = newSeq(t, "chr1", "UUACGU")
	s.ReverseComplement()
	s.ReverseComplement()
	assert.Equal(t, "TTACGT", s.String())
	assert.Equal(t, sequence.Plus, s.Segments()[0].Orientation)
}

func TestInvertMultipleSegments(t *testing.T) {
	// Three segments in the range: the middle one is flipped alone.
	s := newSeq(t, "chr1", "AAAACCCCGGGGTTTT")
	_, err := s.BreakpointAt(5)
	require.NoError(t, err)
	_, err = s.BreakpointAt(9)
	require.NoError(t, err)
	_, err = s.BreakpointAt(13)
	require.NoError(t, err)
	require.Equal(t, 4, s.NumSegments())
	require.NoError(t, s.Invert(1, 12))
	assert.Equal(t, "CCCCGGGGTTTTTTTT", s.String())
	segs := s.Segments()
	assert.Equal(t, sequence.Range{First: 9, Length: 4}, segs[0].Origin)
	assert.Equal(t, sequence.Range{First: 5, Length: 4}, segs[1].Origin)
	assert.Equal(t, sequence.Range{First: 1, Length: 4}, segs[2].Origin)
	for _, seg := range segs[:3] {
		assert.Equal(t, sequence.Minus, seg.Orientation)
	}
	// The reversed run is contiguous in the source, read backwards.
	p := s.Summarize()
	require.Len(t, p, 2)
	assert.Equal(t, sequence.Range{First: 1, Length: 12}, p[0].Origin)
	assert.Equal(t, sequence.Minus, p[0].Orientation)
}

func TestBreakpointMinus(t *testing.T) {
	s := newSeq(t, "chr1", "ACGTACGTAC")
	s.ReverseComplement()
	assert.Equal(t, "GTACGTACGT", s.String())
	i, err := s.BreakpointAt(4)
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	segs := s.Segments()
	require.Len(t, segs, 2)
	assert.Equal(t, sequence.Range{First: 8, Length: 3}, segs[0].Origin)
	assert.Equal(t, sequence.Range{First: 1, Length: 7}, segs[1].Origin)
	assert.Equal(t, "GTA", string(segs[0].Bases()))
	assert.Equal(t, "CGTACGT", string(segs[1].Bases()))

	p := s.Summarize()
	require.Len(t, p, 1)
	assert.Equal(t, sequence.Range{First: 1, Length: 10}, p[0].Origin)
}

func TestBreakpointAt(t *testing.T) {
	s := newSeq(t, "chr1", "ACGTACGTAC")
	i, err := s.BreakpointAt(1)
	require.NoError(t, err)
	assert.Equal(t, 0, i)
	i, err = s.BreakpointAt(11)
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	assert.Equal(t, 1, s.NumSegments())

	_, err = s.BreakpointAt(12)
	assert.True(t, sequence.IsOutOfRange(err))
	_, err = s.BreakpointAt(0)
	assert.True(t, sequence.IsOutOfRange(err))

	i, err = s.BreakpointAt(6)
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	once := s.Segments()
	i, err = s.BreakpointAt(6)
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	assert.Equal(t, once, s.Segments())
	assert.Equal(t, "ACGTACGTAC", s.String())
	require.NoError(t, s.Check())
}

func TestInsert(t *testing.T) {
	s := newSeq(t, "chr1", "AAAATTTT")
	ins := newSeq(t, "chr2", "GG")
	require.NoError(t, s.Insert(5, ins))
	assert.Equal(t, "AAAAGGTTTT", s.String())
	require.NoError(t, s.Insert(1, ins))
	assert.Equal(t, "GGAAAAGGTTTT", s.String())
	require.NoError(t, s.Insert(s.End(), ins))
	assert.Equal(t, "GGAAAAGGTTTTGG", s.String())
	assert.True(t, sequence.IsOutOfRange(s.Insert(s.End()+1, ins)))

	// Inserted segments are copies.
	ins.ReverseComplement()
	assert.Equal(t, "CC", ins.String())
	assert.Equal(t, "GGAAAAGGTTTTGG", s.String())

	// Self-insertion.
	s = newSeq(t, "chr1", "AC")
	require.NoError(t, s.Insert(2, s))
	assert.Equal(t, "AACC", s.String())
	require.NoError(t, s.Append(s))
	assert.Equal(t, "AACCAACC", s.String())
	require.NoError(t, s.Check())
}

func TestDuplicate(t *testing.T) {
	s := newSeq(t, "chr1", "ACGT")
	require.NoError(t, s.Duplicate(1, 2, 3, false))
	assert.Equal(t, "ACACGT", s.String())

	s = newSeq(t, "chr1", "ACGT")
	require.NoError(t, s.Duplicate(1, 2, 5, true))
	assert.Equal(t, "ACGTGT", s.String())
	p := s.Summarize()
	require.Len(t, p, 2)
	assert.Equal(t, sequence.Provenance{
		Current:     sequence.Range{First: 5, Length: 2},
		Source:      "chr1",
		Origin:      sequence.Range{First: 1, Length: 2},
		Orientation: sequence.Minus,
	}, p[1])

	s = newSeq(t, "chr1", "AAAACCCCTTTTGGGGAAAA")
	require.NoError(t, s.Duplicate(5, 4, 17, false))
	assert.Equal(t, "AAAACCCCTTTTGGGGCCCCAAAA", s.String())
	assert.True(t, sequence.IsOutOfRange(s.Duplicate(5, 4, 100, false)))
	assert.True(t, sequence.IsOutOfRange(s.Duplicate(23, 4, 1, false)))
	assert.Equal(t, 24, s.Len())
}

func TestTranslocate(t *testing.T) {
	s := newSeq(t, "chr1", "AACCGGTT")
	require.NoError(t, s.Translocate(1, 2, 9, false))
	assert.Equal(t, "CCGGTTAA", s.String())

	s = newSeq(t, "chr1", "AACCGGTT")
	require.NoError(t, s.Translocate(7, 2, 1, false))
	assert.Equal(t, "TTAACCGG", s.String())

	s = newSeq(t, "chr1", "AACCGGTT")
	require.NoError(t, s.Translocate(3, 2, 7, true))
	assert.Equal(t, "AAGGGGTT", s.String())

	s = newSeq(t, "chr1", "AACCGGTT")
	assert.True(t, sequence.IsOutOfRange(s.Translocate(3, 4, 5, false)))
	assert.Equal(t, "AACCGGTT", s.String())
}

func TestSubSequence(t *testing.T) {
	s := newSeq(t, "chr1", "AAAACCCCGGGGTTTT")
	require.NoError(t, s.Invert(5, 8))
	sub, err := s.SubSequence(3, 8)
	require.NoError(t, err)
	assert.Equal(t, "AACCCCGG", sub.String())
	assert.Equal(t, 3, sub.First())
	require.NoError(t, sub.Check())
	p := sub.Summarize()
	require.Len(t, p, 2)
	assert.Equal(t, sequence.Range{First: 3, Length: 2}, p[0].Origin)
	assert.Equal(t, sequence.Range{First: 7, Length: 6}, p[1].Origin)
	assert.Equal(t, sequence.Minus, p[1].Orientation)

	sub.Reposition(1)
	assert.Equal(t, 1, sub.First())
	require.NoError(t, sub.Check())

	empty, err := s.SubSequence(5, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
	_, err = s.SubSequence(10, 10)
	assert.True(t, sequence.IsOutOfRange(err))
	// The source is untouched.
	assert.Equal(t, 3, s.NumSegments())
}

func TestDeleteInsertInverse(t *testing.T) {
	s := newSeq(t, "chr1", "ACGTTGCAACGGTACCAGTA")
	require.NoError(t, s.Invert(4, 6))
	orig := s.Clone()

	removed, err := s.SubSequence(7, 9)
	require.NoError(t, err)
	require.NoError(t, s.Delete(7, 9))
	require.NoError(t, s.Insert(7, removed))
	assert.True(t, sequence.Equal(orig, s))
	assert.Equal(t, orig.Summarize(), s.Summarize())
}

func TestWriteSummary(t *testing.T) {
	s := newSeq(t, "chr1", "ACGTACGT")
	novel := newSeq(t, "", "GG")
	require.NoError(t, s.Insert(5, novel))
	require.NoError(t, s.Invert(7, 2))
	var buf bytes.Buffer
	require.NoError(t, s.WriteSummary(&buf))
	assert.Equal(t,
		"1\t4\tchr1\t1\t+\t\n"+
			"5\t2\t\t1\t+\tGG\n"+
			"7\t2\tchr1\t5\t-\t\n"+
			"9\t2\tchr1\t7\t+\t\n",
		buf.String())
}

func TestStats(t *testing.T) {
	for _, test := range []struct {
		bases   string
		entropy float64
		gc      float64
	}{
		{"AAAA", 0, 0},
		{"AAGG", 1, 0.5},
		{"GGGC", 0.8113, 1},
		{"GGSS", 0.8113, 1},
		{"AAWW", 0.8113, 0},
		{"ACGT", 2, 0.5},
		{"NNNN", 2, 0.5},
	} {
		s := newSeq(t, "s", test.bases)
		assert.InDelta(t, test.entropy, s.Entropy(), 1e-4, test.bases)
		assert.InDelta(t, test.gc, s.GCContent(), 1e-9, test.bases)
	}
	s := newSeq(t, "s", "AAGG")
	assert.Equal(t, 2.0, s.EntropyMax())
	assert.InDelta(t, 0.5, s.Evenness(), 1e-9)
	s = newSeq(t, "s", "AG")
	assert.Equal(t, 1.0, s.EntropyMax())
	assert.InDelta(t, 1.0, s.Evenness(), 1e-9)
	s = newSeq(t, "s", "")
	assert.Equal(t, 0.0, s.Evenness())
	assert.False(t, math.IsNaN(s.Entropy()))
}

// Naive byte-slice versions of the edits, to check the segment model against.
func naiveDelete(b []byte, i, n int) []byte {
	return append(append([]byte(nil), b[:i]...), b[i+n:]...)
}

func naiveInsert(b []byte, i int, ins []byte) []byte {
	out := append([]byte(nil), b[:i]...)
	out = append(out, ins...)
	return append(out, b[i:]...)
}

func naiveRevComp(b []byte) []byte {
	out := append([]byte(nil), b...)
	biosimd.ReverseCompIUPACInplace(out)
	return out
}

func TestRandomEdits(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	const alphabet = "ACGTN"
	bases := make([]byte, 500)
	for i := range bases {
		bases[i] = alphabet[r.Intn(len(alphabet))]
	}
	s, err := sequence.NewAt("chr1", bases, 10)
	require.NoError(t, err)
	want := append([]byte(nil), bases...)

	for iter := 0; iter < 500; iter++ {
		first := s.First() + r.Intn(s.Len()+1)
		length := r.Intn(s.End() - first + 1)
		if length > 50 {
			length = 50
		}
		i := first - s.First()
		switch op := r.Intn(4); op {
		case 0:
			if s.Len() < 200 {
				continue
			}
			require.NoError(t, s.Delete(first, length))
			want = naiveDelete(want, i, length)
		case 1:
			require.NoError(t, s.Invert(first, length))
			want = naiveInsert(naiveDelete(want, i, length), i, naiveRevComp(want[i:i+length]))
		case 2:
			if s.Len() > 2000 {
				continue
			}
			before := s.First() + r.Intn(s.Len()+1)
			invert := r.Intn(2) == 0
			dup := append([]byte(nil), want[i:i+length]...)
			if invert {
				dup = naiveRevComp(dup)
			}
			require.NoError(t, s.Duplicate(first, length, before, invert))
			want = naiveInsert(want, before-s.First(), dup)
		case 3:
			// Double inversion is the identity.
			before := s.Clone()
			require.NoError(t, s.Invert(first, length))
			require.NoError(t, s.Invert(first, length))
			require.True(t, sequence.Equal(before, s))
		}
		require.NoError(t, s.Check())
		require.Equal(t, string(want), s.String(), "iter %d", iter)
	}
}
