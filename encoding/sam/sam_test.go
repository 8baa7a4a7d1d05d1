package sam_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"path/filepath"
	"sync"
	"testing"

	htssam "github.com/grailbio/hts/sam"
	"github.com/grailbio/seqio/encoding/sam"
	"github.com/grailbio/seqio/encoding/split"
	"github.com/grailbio/seqio/reads"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "@HD\tVN:1.3\tSO:unsorted\n@SQ\tSN:chr1\tLN:1000\n"

func samLine(name string, flag, tlen int) string {
	return fmt.Sprintf("%s\t%d\tchr1\t100\t60\t4M\t=\t110\t%d\tACGT\tIIII\tNM:i:0\n", name, flag, tlen)
}

func testData() string {
	data := header +
		samLine("a", 99, 50) + samLine("a", 147, -50) +
		samLine("b", 0, 0) +
		samLine("c/1", 65, 0) + samLine("c/2", 129, 0) +
		samLine("d", 65, 0) + samLine("d", 1, 0) + samLine("d", 129, 0)
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("t%02d", i)
		data += samLine(name, 99, 30+i) + samLine(name, 147, -30-i)
		if i%4 == 0 {
			data += samLine(fmt.Sprintf("s%02d", i), 4, 0)
		}
	}
	return data
}

func scan(t *testing.T, data string, start, end int64, opts sam.Opts) []*reads.Template {
	r := bytes.NewReader([]byte(data))
	_, err := r.Seek(start, io.SeekStart)
	require.NoError(t, err)
	s := sam.NewScanner(split.NewLineReader(r, start, 0), end, opts)
	var out []*reads.Template
	for {
		tmpl := &reads.Template{}
		if !s.Scan(tmpl) {
			require.NoError(t, s.Err())
			return out
		}
		out = append(out, tmpl)
	}
}

func summarize(ts []*reads.Template) []string {
	var out []string
	for _, t := range ts {
		s := fmt.Sprintf("%s:%d", t.Name, t.Length)
		for _, r := range t.Reads {
			s += " " + r.Name
		}
		out = append(out, s)
	}
	return out
}

func TestParseLine(t *testing.T) {
	r, tlen, err := sam.ParseLine([]byte("r\t83\tchr2\t7\t30\t2S3M\t=\t1\t-9\tACGTT\tABCDE\tNM:i:1\tXA:Z:chr1:100,+4M"))
	require.NoError(t, err)
	expect.EQ(t, tlen, -9)
	expect.EQ(t, r.Name, "r")
	expect.EQ(t, r.Flags, htssam.Paired|htssam.ProperPair|htssam.Reverse|htssam.Read1)
	expect.EQ(t, r.Ref, "chr2")
	expect.EQ(t, r.Pos, 7)
	expect.EQ(t, r.MapQ, 30)
	expect.EQ(t, r.Cigar.String(), "2S3M")
	expect.EQ(t, r.RefLen(), 3)
	expect.EQ(t, r.NextRef, "=")
	expect.EQ(t, r.NextPos, 1)
	expect.EQ(t, string(r.Seq), "ACGTT")
	expect.EQ(t, string(r.Qual), "ABCDE")
	v, ok := r.Tag("XA:Z")
	require.True(t, ok)
	expect.EQ(t, v, "chr1:100,+4M")

	r, _, err = sam.ParseLine([]byte("u\t4\t*\t0\t0\t*\t*\t0\t0\t*\t*"))
	require.NoError(t, err)
	assert.Nil(t, r.Seq)
	assert.Nil(t, r.Qual)
	assert.Empty(t, r.Cigar)
	assert.False(t, r.IsMapped())

	for _, bad := range []string{
		"r\t0\tchr1\t1\t60\t4M\t=\t1\t0\tACGT",
		"r\tx\tchr1\t1\t60\t4M\t=\t1\t0\tACGT\tIIII",
		"r\t0\tchr1\tone\t60\t4M\t=\t1\t0\tACGT\tIIII",
		"r\t0\tchr1\t1\t60\t4M\t=\t1\t0.5\tACGT\tIIII",
		"r\t0\tchr1\t1\t60\t4Q\t=\t1\t0\tACGT\tIIII",
		"r\t0\tchr1\t1\t60\t4M\t=\t1\t0\tACGT\tIII",
		"r\t0\tchr1\t1\t60\t4M\t=\t1\t0\tACGT\tIIII\tNM",
		"r\t70000\tchr1\t1\t60\t4M\t=\t1\t0\tACGT\tIIII",
	} {
		_, _, err := sam.ParseLine([]byte(bad))
		require.Error(t, err, bad)
		assert.True(t, sam.IsFormatError(err), bad)
	}
}

func TestScannerGroupsReads(t *testing.T) {
	data := header + samLine("read1/1", 99, 50) + samLine("read1/2", 147, -50)
	ts := scan(t, data, 0, split.Unbounded, sam.DefaultOpts)
	require.Len(t, ts, 1)
	expect.EQ(t, ts[0].Name, "read1")
	expect.EQ(t, ts[0].Len(), 2)
	expect.EQ(t, ts[0].Length, 50)
	expect.EQ(t, ts[0].First().Name, "read1/1")
	expect.EQ(t, ts[0].Last().Name, "read1/2")
}

func TestScanner(t *testing.T) {
	ts := scan(t, testData(), 0, split.Unbounded, sam.DefaultOpts)
	require.Len(t, ts, 19)
	expect.EQ(t, summarize(ts[:4]), []string{
		"a:50 a/1 a/2",
		"b:0 b",
		"c:0 c/1 c/2",
		"d:0 d/1 d d/2",
	})
	expect.EQ(t, summarize(ts[4:6]), []string{"t00:30 t00/1 t00/2", "s00:0 s00"})

	opts := sam.DefaultOpts
	opts.PairSuffix = false
	ts = scan(t, testData(), 0, split.Unbounded, opts)
	expect.EQ(t, summarize(ts[:1]), []string{"a:50 a a"})
}

func TestScannerSplits(t *testing.T) {
	data := testData()
	want := summarize(scan(t, data, 0, split.Unbounded, sam.DefaultOpts))
	for _, step := range []int{7, 64, 1024} {
		opts := sam.DefaultOpts
		opts.BackpedalStep = step
		for k := int64(1); k < int64(len(data)); k++ {
			head := scan(t, data, 0, k, opts)
			tail := scan(t, data, k, int64(len(data)), opts)
			require.Equal(t, want, append(summarize(head), summarize(tail)...), "step %d split at %d", step, k)
		}
	}
}

func TestScannerThreeSplits(t *testing.T) {
	data := testData()
	want := summarize(scan(t, data, 0, split.Unbounded, sam.DefaultOpts))
	opts := sam.DefaultOpts
	opts.BackpedalStep = 32
	n := int64(len(data))
	for k1 := int64(1); k1 < n; k1 += 37 {
		for k2 := k1; k2 < n; k2 += 53 {
			var got []string
			got = append(got, summarize(scan(t, data, 0, k1, opts))...)
			got = append(got, summarize(scan(t, data, k1, k2, opts))...)
			got = append(got, summarize(scan(t, data, k2, n, opts))...)
			require.Equal(t, want, got, "splits at %d, %d", k1, k2)
		}
	}
}

func TestScannerError(t *testing.T) {
	data := header + samLine("a", 99, 50) + "a\t147\tchr1\tx\n" + samLine("b", 0, 0)
	s := sam.NewScanner(split.NewLineReader(bytes.NewReader([]byte(data)), 0, 0), split.Unbounded, sam.DefaultOpts)
	var tmpl reads.Template
	assert.False(t, s.Scan(&tmpl))
	require.Error(t, s.Err())
	assert.True(t, sam.IsFormatError(s.Err()))
	assert.False(t, s.Scan(&tmpl))
}

func TestWriter(t *testing.T) {
	ts := scan(t, header+samLine("a", 99, 50)+samLine("a", 147, -50)+samLine("u", 4, 0), 0, split.Unbounded, sam.DefaultOpts)
	require.Len(t, ts, 2)

	var buf bytes.Buffer
	w := sam.NewWriter(&buf)
	h, err := sam.ReadHeader(split.NewLineReader(bytes.NewReader([]byte(header)), 0, 0))
	require.NoError(t, err)
	require.NoError(t, w.WriteHeader(h))
	for _, tmpl := range ts {
		require.NoError(t, w.WriteTemplate(tmpl))
	}
	require.NoError(t, w.Flush())
	assert.Contains(t, buf.String(),
		samLine("a/1", 99, 50)+samLine("a/2", 147, -50))

	again := scan(t, buf.String(), 0, split.Unbounded, sam.DefaultOpts)
	expect.EQ(t, summarize(again), summarize(ts))
	expect.EQ(t, again[0].Reads[1], ts[0].Reads[1])

	buf.Reset()
	w = sam.NewWriter(&buf)
	require.NoError(t, w.Write(&reads.Read{Name: "x", Flags: htssam.Unmapped}, 0))
	require.NoError(t, w.Flush())
	expect.EQ(t, buf.String(), "x\t4\t*\t0\t0\t*\t*\t0\t0\t*\t*\n")
}

func TestHeaderCache(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tempDir, "in.sam")
	require.NoError(t, ioutil.WriteFile(path, []byte(testData()), 0644))

	ctx := context.Background()
	cache := sam.NewHeaderCache()
	headers := make([]*htssam.Header, 8)
	var wg sync.WaitGroup
	for i := range headers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := cache.Get(ctx, path)
			assert.NoError(t, err)
			headers[i] = h
		}(i)
	}
	wg.Wait()
	require.NotNil(t, headers[0])
	for _, h := range headers {
		assert.True(t, h == headers[0])
	}
	refs := headers[0].Refs()
	require.Len(t, refs, 1)
	expect.EQ(t, refs[0].Name(), "chr1")
	expect.EQ(t, refs[0].Len(), 1000)
	expect.EQ(t, cache.Len(), 1)

	_, err := cache.Get(ctx, filepath.Join(tempDir, "missing.sam"))
	assert.Error(t, err)
	_, err = cache.Get(ctx, filepath.Join(tempDir, "missing.sam"))
	assert.Error(t, err)
	expect.EQ(t, cache.Len(), 2)

	// A load under a canceled context does not poison later loads of the
	// path.
	other := filepath.Join(tempDir, "other.sam")
	require.NoError(t, ioutil.WriteFile(other, []byte(testData()), 0644))
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	cache.Get(canceled, other) // nolint: errcheck
	h, err := cache.Get(ctx, other)
	require.NoError(t, err)
	expect.EQ(t, h.Refs()[0].Name(), "chr1")
	expect.EQ(t, cache.Len(), 3)
}

func TestOpen(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tempDir, "in.sam")
	data := testData()
	require.NoError(t, ioutil.WriteFile(path, []byte(data), 0644))
	want := summarize(scan(t, data, 0, split.Unbounded, sam.DefaultOpts))

	ctx := context.Background()
	opts := sam.DefaultOpts
	opts.Headers = sam.NewHeaderCache()
	for _, n := range []int{1, 2, 5, 17} {
		splits, err := split.Splits(ctx, path, n)
		require.NoError(t, err)
		var got []string
		for _, s := range splits {
			r, err := sam.Open(ctx, s, opts)
			require.NoError(t, err)
			expect.EQ(t, len(r.Header.Refs()), 1)
			var tmpl reads.Template
			for r.Scan(&tmpl) {
				got = append(got, summarize([]*reads.Template{&tmpl})...)
			}
			require.NoError(t, r.Err())
			require.NoError(t, r.Close(ctx))
		}
		expect.EQ(t, got, want, "%d splits", n)
	}
	expect.EQ(t, opts.Headers.Len(), 1)
}
