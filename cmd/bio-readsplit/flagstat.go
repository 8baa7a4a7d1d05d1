package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/grailbio/base/traverse"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/seqio/reads"
)

type aggrFlagstat struct {
	templates     int
	total         int
	mapped        int
	duplicate     int
	secondary     int
	supplementary int
	paired        int
	goodPair      int
	single        int
	pairMap       int
	diffChr       int
	diffHigh      int
	r1, r2        int
}

func (stat *aggrFlagstat) mergeFrom(src aggrFlagstat) {
	stat.templates += src.templates
	stat.total += src.total
	stat.mapped += src.mapped
	stat.duplicate += src.duplicate
	stat.secondary += src.secondary
	stat.supplementary += src.supplementary
	stat.paired += src.paired
	stat.goodPair += src.goodPair
	stat.single += src.single
	stat.pairMap += src.pairMap
	stat.diffChr += src.diffChr
	stat.diffHigh += src.diffHigh
	stat.r1 += src.r1
	stat.r2 += src.r2
}

func (stat *aggrFlagstat) record(r *reads.Read) {
	stat.total++
	f := r.Flags
	if (f & sam.Unmapped) == 0 {
		stat.mapped++
	}
	if (f & sam.Duplicate) != 0 {
		stat.duplicate++
	}
	if (f & sam.Secondary) != 0 {
		stat.secondary++
	} else if (f & sam.Supplementary) != 0 {
		stat.supplementary++
	} else if (f & sam.Paired) != 0 {
		stat.paired++
		if (f&sam.ProperPair) != 0 && (f&sam.Unmapped) == 0 {
			stat.goodPair++
		}
		if (f & sam.Read1) != 0 {
			stat.r1++
		}
		if (f & sam.Read2) != 0 {
			stat.r2++
		}
		if (f&sam.MateUnmapped) != 0 && (f&sam.Unmapped) == 0 {
			stat.single++
		}
		if (f&sam.Unmapped) == 0 && (f&sam.MateUnmapped) == 0 {
			stat.pairMap++
			if r.NextRef != "=" && r.NextRef != r.Ref {
				stat.diffChr++
				if r.MapQ >= 5 {
					stat.diffHigh++
				}
			}
		}
	}
}

type flagstats struct {
	qc, failed aggrFlagstat
}

func (s *flagstats) template(t *reads.Template) {
	failed := false
	for _, r := range t.Reads {
		stat := &s.qc
		if (r.Flags & sam.QCFail) != 0 {
			stat = &s.failed
			failed = true
		}
		stat.record(r)
	}
	if failed {
		s.failed.templates++
	} else {
		s.qc.templates++
	}
}

func percent(a int, b int) string {
	if b == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", float64(a)*100/float64(b))
}

// flagstat computes per-split flag statistics in parallel and merges them.
func flagstat(ctx context.Context, path string, opts inputOpts) (flagstats, error) {
	var total flagstats
	splits, err := inputSplits(ctx, path, &opts)
	if err != nil {
		return total, err
	}
	var mu sync.Mutex
	err = traverse.Each(len(splits), func(i int) error {
		var stats flagstats
		if err := scanSplit(ctx, splits[i], opts, func(t *reads.Template) error {
			stats.template(t)
			return nil
		}); err != nil {
			return err
		}
		mu.Lock()
		total.qc.mergeFrom(stats.qc)
		total.failed.mergeFrom(stats.failed)
		mu.Unlock()
		return nil
	})
	return total, err
}

func (s flagstats) write(out io.Writer) {
	qc, failed := s.qc, s.failed
	fmt.Fprintf(out, "%d + %d templates\n", qc.templates, failed.templates)
	fmt.Fprintf(out, "%d + %d in total (QC-passed reads + QC-failed reads)\n", qc.total, failed.total)
	fmt.Fprintf(out, "%d + %d secondary\n", qc.secondary, failed.secondary)
	fmt.Fprintf(out, "%d + %d supplementary\n", qc.supplementary, failed.supplementary)
	fmt.Fprintf(out, "%d + %d duplicates\n", qc.duplicate, failed.duplicate)
	fmt.Fprintf(out, "%d + %d mapped (%s:%s)\n", qc.mapped, failed.mapped,
		percent(qc.mapped, qc.total), percent(failed.mapped, failed.total))
	fmt.Fprintf(out, "%d + %d paired in sequencing\n", qc.paired, failed.paired)
	fmt.Fprintf(out, "%d + %d read1\n", qc.r1, failed.r1)
	fmt.Fprintf(out, "%d + %d read2\n", qc.r2, failed.r2)
	fmt.Fprintf(out, "%d + %d properly paired (%s:%s)\n", qc.goodPair, failed.goodPair,
		percent(qc.goodPair, qc.paired), percent(failed.goodPair, failed.paired))
	fmt.Fprintf(out, "%d + %d with itself and mate mapped\n", qc.pairMap, failed.pairMap)
	fmt.Fprintf(out, "%d + %d singletons (%s:%s)\n", qc.single, failed.single,
		percent(qc.single, qc.paired), percent(failed.single, failed.paired))
	fmt.Fprintf(out, "%d + %d with mate mapped to a different chr\n", qc.diffChr, failed.diffChr)
	fmt.Fprintf(out, "%d + %d with mate mapped to a different chr (mapQ>=5)\n", qc.diffHigh, failed.diffHigh)
}
