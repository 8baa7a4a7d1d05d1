// bio-svsim applies random structural variants to one entry of a FASTA file.
// It writes the mutated sequence as FASTA, the provenance of every stretch of
// the result, and the list of applied events.
//
//   bio-svsim -input ref.fa -entry chr21 -n 20 -seed 7 \
//     -output mutant.fa -summary mutant.tsv -events events.tsv
//
// With -index, ref.fa.fai is generated first, and the entry is read through
// it instead of loading the whole file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/seqio/encoding/fasta"
	"github.com/grailbio/seqio/sequence"
	"github.com/grailbio/seqio/svsim"
)

type svsimFlags struct {
	input, entry            string
	output, summary, events string
	index                   bool
	n, width                int
	opts                    svsim.Opts
}

func registerFlags(fs *flag.FlagSet) *svsimFlags {
	f := &svsimFlags{opts: svsim.DefaultOpts}
	fs.StringVar(&f.input, "input", "", "Input FASTA file")
	fs.StringVar(&f.entry, "entry", "", "FASTA entry to mutate. By default, the first one")
	fs.StringVar(&f.output, "output", "", "Output FASTA file. By default, stdout")
	fs.StringVar(&f.summary, "summary", "", "If set, write the provenance of the mutated sequence here")
	fs.StringVar(&f.events, "events", "", "If set, write the list of applied events here")
	fs.BoolVar(&f.index, "index", false, "Generate <input>.fai and read the entry through it")
	fs.IntVar(&f.n, "n", 10, "Number of random variants")
	fs.IntVar(&f.width, "width", fasta.DefaultLineWidth, "Bases per line of the output FASTA")
	fs.Int64Var(&f.opts.Seed, "seed", 0, "Random seed")
	fs.Float64Var(&f.opts.Deletion.Mean, "deletion-mean", f.opts.Deletion.Mean, "Mean size of large deletions")
	fs.Float64Var(&f.opts.Deletion.StdDev, "deletion-stddev", f.opts.Deletion.StdDev, "Standard deviation of large deletion sizes")
	fs.Float64Var(&f.opts.Inversion.Mean, "inversion-mean", f.opts.Inversion.Mean, "Mean size of inversions")
	fs.Float64Var(&f.opts.Inversion.StdDev, "inversion-stddev", f.opts.Inversion.StdDev, "Standard deviation of inversion sizes")
	fs.Float64Var(&f.opts.Duplication.Mean, "duplication-mean", f.opts.Duplication.Mean, "Mean size of duplications and translocations")
	fs.Float64Var(&f.opts.Duplication.StdDev, "duplication-stddev", f.opts.Duplication.StdDev, "Standard deviation of duplication and translocation sizes")
	fs.IntVar(&f.opts.MaxSize, "max-size", 0, "If positive, the largest size of a random large variant")
	return f
}

// loadFasta opens path, through its .fai index if there is one.
func loadFasta(ctx context.Context, path string) (fasta.Fasta, func() error, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	closeIn := func() error { return in.Close(ctx) }
	idx, err := file.Open(ctx, path+".fai")
	if err != nil {
		log.Printf("%s: no index, loading the whole file", path)
		fa, err := fasta.New(in.Reader(ctx))
		if e := closeIn(); e != nil && err == nil {
			err = e
		}
		if err != nil {
			return nil, nil, err
		}
		return fa, func() error { return nil }, nil
	}
	defer idx.Close(ctx) // nolint: errcheck
	fa, err := fasta.NewIndexed(in.Reader(ctx), idx.Reader(ctx))
	if err != nil {
		closeIn() // nolint: errcheck
		return nil, nil, err
	}
	return fa, closeIn, nil
}

func generateIndex(ctx context.Context, path string) error {
	in, err := file.Open(ctx, path)
	if err != nil {
		return err
	}
	defer in.Close(ctx) // nolint: errcheck
	return writeFile(ctx, path+".fai", func(w io.Writer) error {
		return fasta.GenerateIndex(w, in.Reader(ctx))
	})
}

// writeFile runs fn with a writer for path, or stdout if path is empty.
func writeFile(ctx context.Context, path string, fn func(w io.Writer) error) error {
	if path == "" {
		return fn(os.Stdout)
	}
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	err = fn(out.Writer(ctx))
	if e := out.Close(ctx); e != nil && err == nil {
		err = e
	}
	return err
}

// readEntry reads the named entry of the input, or its first entry.
func readEntry(ctx context.Context, f *svsimFlags) (*sequence.Sequence, error) {
	if f.index {
		if err := generateIndex(ctx, f.input); err != nil {
			return nil, err
		}
	}
	fa, closeFn, err := loadFasta(ctx, f.input)
	if err != nil {
		return nil, err
	}
	defer closeFn() // nolint: errcheck
	name := f.entry
	if name == "" {
		names := fa.SeqNames()
		if len(names) == 0 {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("%s: no FASTA entries", f.input))
		}
		name = names[0]
	}
	n, err := fa.Len(name)
	if err != nil {
		return nil, err
	}
	bases, err := fa.Get(name, 0, n)
	if err != nil {
		return nil, err
	}
	return sequence.New(name, []byte(bases))
}

func run(ctx context.Context, f *svsimFlags) error {
	if f.input == "" {
		return errors.E(errors.Invalid, "-input is required")
	}
	seq, err := readEntry(ctx, f)
	if err != nil {
		return err
	}
	log.Printf("%s: %d bases, applying %d variants", seq.Name(), seq.Len(), f.n)
	sim := svsim.New(seq, f.opts)
	if err := sim.RandomVariants(f.n); err != nil {
		return err
	}
	log.Printf("%s: %d bases in %d segments after mutation", seq.Name(), seq.Len(), seq.NumSegments())
	if err := writeFile(ctx, f.output, func(w io.Writer) error { return sim.WriteFASTA(w, f.width) }); err != nil {
		return err
	}
	if f.summary != "" {
		if err := writeFile(ctx, f.summary, sim.WriteSummary); err != nil {
			return err
		}
	}
	if f.events != "" {
		if err := writeFile(ctx, f.events, sim.WriteEvents); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	f := registerFlags(flag.CommandLine)
	shutdown := grail.Init()
	defer shutdown()
	if err := run(vcontext.Background(), f); err != nil {
		log.Fatalf("bio-svsim: %v", err)
	}
}
