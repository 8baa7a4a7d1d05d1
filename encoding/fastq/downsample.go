package fastq

import (
	"math/rand"
	"sort"

	"github.com/grailbio/seqio/reads"
	"github.com/pkg/errors"
)

// Downsample copies templates from in to out.  Templates will be randomly
// selected for inclusion in the output at the given sampling rate.  The
// selection is determined by seed.  It returns the number of templates
// written.
func Downsample(rate float64, seed int64, in reads.Scanner, out reads.Writer) (int, error) {
	if rate < 0.0 || rate > 1.0 {
		return 0, errors.New("rate must be between 0 and 1 (inclusive)")
	}
	random := rand.New(rand.NewSource(seed))
	var (
		t reads.Template
		n int
	)
	for in.Scan(&t) {
		if random.Float64() < rate {
			if err := out.WriteTemplate(&t); err != nil {
				return n, errors.Wrap(err, "error writing output")
			}
			n++
		}
	}
	if err := in.Err(); err != nil {
		return n, errors.Wrap(err, "error reading input")
	}
	return n, nil
}

// DownsampleToCount copies a uniformly chosen subset of count templates from
// in to out, in input order.  If in has fewer than count templates, all are
// copied.  The selected templates are held in memory.
func DownsampleToCount(count int, seed int64, in reads.Scanner, out reads.Writer) (int, error) {
	if count < 0 {
		return 0, errors.Errorf("count must be non-negative, got %d", count)
	}
	type sampled struct {
		index int
		t     *reads.Template
	}
	var (
		random    = rand.New(rand.NewSource(seed))
		reservoir []sampled
		seen      int
	)
	for {
		t := &reads.Template{}
		if !in.Scan(t) {
			break
		}
		if len(reservoir) < count {
			reservoir = append(reservoir, sampled{seen, t})
		} else if j := random.Intn(seen + 1); j < count {
			reservoir[j] = sampled{seen, t}
		}
		seen++
	}
	if err := in.Err(); err != nil {
		return 0, errors.Wrap(err, "error reading input")
	}
	sort.Slice(reservoir, func(i, j int) bool { return reservoir[i].index < reservoir[j].index })
	for i, s := range reservoir {
		if err := out.WriteTemplate(s.t); err != nil {
			return i, errors.Wrap(err, "error writing output")
		}
	}
	return len(reservoir), nil
}
