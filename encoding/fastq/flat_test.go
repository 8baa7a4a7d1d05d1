package fastq_test

import (
	"bytes"
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/seqio/encoding/fastq"
	"github.com/grailbio/seqio/encoding/split"
	"github.com/grailbio/seqio/reads"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanFlat(data string, start, end int64) ([]*reads.Template, error) {
	s := fastq.NewFlatScanner(lineReader(data, start), end, fastq.DefaultOpts)
	var out []*reads.Template
	for {
		t := &reads.Template{}
		if !s.Scan(t) {
			return out, s.Err()
		}
		out = append(out, t)
	}
}

const flat = "p\tACGT\tIIII\tGGCC\tJJJJ\nq\tA\tI\nm\tA\tI\tC\tJ\tG\tK\n"

func TestFlatScanner(t *testing.T) {
	ts, err := scanFlat(flat, 0, split.Unbounded)
	require.NoError(t, err)
	require.Len(t, ts, 3)

	p := ts[0]
	expect.EQ(t, p.Name, "p")
	require.True(t, p.IsPaired())
	expect.EQ(t, p.First().Name, "p/1")
	expect.EQ(t, string(p.First().Seq), "ACGT")
	expect.EQ(t, string(p.Last().Qual), "JJJJ")
	expect.EQ(t, p.Last().Flags, sam.Unmapped|sam.Paired|sam.Read2)

	q := ts[1]
	require.Equal(t, 1, q.Len())
	expect.EQ(t, q.Reads[0].Name, "q/1")
	expect.EQ(t, q.Reads[0].Flags, sam.Unmapped|sam.Paired|sam.Read1)

	m := ts[2]
	require.Equal(t, 3, m.Len())
	expect.EQ(t, m.Reads[2].Name, "m")
	expect.EQ(t, m.Reads[2].Flags, sam.Unmapped|sam.Paired|sam.Read1|sam.Read2)
	expect.EQ(t, string(m.Reads[2].Qual), "K")

	for k := int64(1); k < int64(len(flat)); k++ {
		head, err := scanFlat(flat, 0, k)
		require.NoError(t, err)
		tail, err := scanFlat(flat, k, int64(len(flat)))
		require.NoError(t, err)
		require.Equal(t, names(ts), append(names(head), names(tail)...), "split at %d", k)
	}

	for _, bad := range []string{"x\tA\n", "x\tA\tI\tC\n", "x\tAZ\tII\n", "x\tA\tII\n"} {
		_, err := scanFlat(bad, 0, split.Unbounded)
		require.Error(t, err, bad)
		assert.True(t, fastq.IsFormatError(err), bad)
	}
}

func TestFlatWriter(t *testing.T) {
	var buf bytes.Buffer
	w := fastq.NewFlatWriter(&buf)

	pair := &reads.Template{Name: "p"}
	pair.Add(&reads.Read{Name: "p/1", Seq: []byte("ACGT"), Qual: []byte("IIII"), Flags: sam.Paired | sam.Read1})
	pair.Add(&reads.Read{Name: "p/2", Seq: []byte("AACG"), Qual: []byte("ABCD"), Flags: sam.Paired | sam.Read2 | sam.Reverse})
	require.NoError(t, w.WriteTemplate(pair))

	single := &reads.Template{Name: "s"}
	single.Add(&reads.Read{Name: "s", Seq: []byte("A"), Qual: []byte("I")})
	require.NoError(t, w.WriteTemplate(single))

	expect.EQ(t, buf.String(), "p\tACGT\tIIII\tCGTT\tDCBA\n")
	expect.EQ(t, w.Skipped, 1)
	// The stored read is not modified.
	expect.EQ(t, string(pair.Last().Seq), "AACG")
}

func TestFlatRoundTrip(t *testing.T) {
	const data = "@r/1\nACGT\n+\nABCD\n@r/2\nTTGA\n+\nEFGH\n"
	ts, err := scanSplit(data, 0, split.Unbounded, fastq.DefaultOpts)
	require.NoError(t, err)
	require.Len(t, ts, 2)
	pair := &reads.Template{Name: ts[0].Name}
	pair.Add(ts[0].Reads[0])
	pair.Add(ts[1].Reads[0])

	var buf bytes.Buffer
	require.NoError(t, fastq.NewFlatWriter(&buf).WriteTemplate(pair))
	expect.EQ(t, buf.String(), "r\tACGT\tABCD\tTTGA\tEFGH\n")

	again, err := scanFlat(buf.String(), 0, split.Unbounded)
	require.NoError(t, err)
	require.Len(t, again, 1)
	expect.EQ(t, again[0].First(), pair.First())
	expect.EQ(t, again[0].Last(), pair.Last())
}

type collector struct {
	names []string
}

func (c *collector) WriteTemplate(t *reads.Template) error {
	c.names = append(c.names, t.Name)
	return nil
}

func TestDownsample(t *testing.T) {
	var data string
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		data += name + "\tA\tI\tC\tI\n"
	}
	newScanner := func() reads.Scanner {
		return fastq.NewFlatScanner(lineReader(data, 0), split.Unbounded, fastq.DefaultOpts)
	}

	var all collector
	n, err := fastq.Downsample(1.0, 0, newScanner(), &all)
	require.NoError(t, err)
	expect.EQ(t, n, 8)
	expect.EQ(t, all.names, []string{"a", "b", "c", "d", "e", "f", "g", "h"})

	var none collector
	n, err = fastq.Downsample(0.0, 0, newScanner(), &none)
	require.NoError(t, err)
	expect.EQ(t, n, 0)

	_, err = fastq.Downsample(1.2, 0, newScanner(), &none)
	assert.Error(t, err)

	var some collector
	n, err = fastq.DownsampleToCount(3, 1, newScanner(), &some)
	require.NoError(t, err)
	expect.EQ(t, n, 3)
	require.Len(t, some.names, 3)
	// Output keeps input order.
	expect.True(t, some.names[0] < some.names[1] && some.names[1] < some.names[2])

	var more collector
	n, err = fastq.DownsampleToCount(20, 1, newScanner(), &more)
	require.NoError(t, err)
	expect.EQ(t, n, 8)

	_, err = fastq.Downsample(0.5, 0, fastq.NewFlatScanner(lineReader("bad\n", 0), split.Unbounded, fastq.DefaultOpts), &none)
	assert.Error(t, err)
}
