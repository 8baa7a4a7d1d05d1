// bio-readsplit reads FASTQ, flat FASTQ, SAM and FASTA files as a set of
// byte-range splits processed in parallel.  Its output does not depend on the
// number of splits, which makes it a check of the split readers.
//
//   bio-readsplit view -splits 16 -format fastq in.sam > out.fq
//   bio-readsplit flagstat -splits 16 in.sam
//   bio-readsplit checksum -all in.fastq
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/seqio/encoding/fastq"
	"github.com/grailbio/seqio/encoding/sam"
	"v.io/x/lib/cmdline"
)

// inputFlags registers the flags shared by all subcommands.
func inputFlags(cmd *cmdline.Command) func() (inputOpts, error) {
	var (
		formatFlag     = cmd.Flags.String("format", "", "Input format: fastq, flat, sam or fasta. By default it is guessed from the file extension")
		splitsFlag     = cmd.Flags.Int("splits", 1, "Number of byte-range splits to read in parallel")
		maxLineFlag    = cmd.Flags.Int("max-line-length", 0, "FASTQ records with lines this long or longer are skipped. 0 means no limit")
		backpedalFlag  = cmd.Flags.Int("backpedal", sam.DefaultOpts.BackpedalStep, "Bytes a SAM split backs up at a time to find the start of its first template")
		noValidateFlag = cmd.Flags.Bool("no-validate", false, "Do not check bases and qualities of FASTQ reads")
		noSuffixFlag   = cmd.Flags.Bool("no-pair-suffix", false, "Do not add /1 and /2 to SAM read names")
	)
	return func() (inputOpts, error) {
		opts := inputOpts{
			nsplits: *splitsFlag,
			fastq:   fastq.DefaultOpts,
			sam:     sam.DefaultOpts,
		}
		if *formatFlag != "" {
			f, err := parseFormat(*formatFlag)
			if err != nil {
				return opts, err
			}
			opts.format = f
		}
		opts.fastq.MaxLineLength = *maxLineFlag
		opts.fastq.Validate = !*noValidateFlag
		opts.sam.BackpedalStep = *backpedalFlag
		opts.sam.PairSuffix = !*noSuffixFlag
		return opts, nil
	}
}

// withOutput runs fn with a writer for path, or stdout if path is empty or
// "-".
func withOutput(ctx context.Context, path string, fn func(w io.Writer) error) error {
	if path == "" || path == "-" {
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

func newCmdView() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "view",
		Short:    "Re-emit the templates of a file, reading it split by split",
		ArgsName: "path",
	}
	input := inputFlags(cmd)
	outputFlag := cmd.Flags.String("output", "", "Output path. By default, stdout")
	outFormatFlag := cmd.Flags.String("output-format", "", "Output format: fastq, flat, sam or fasta. By default, the input format")
	sequencedFlag := cmd.Flags.Bool("sequenced", false, "Write reverse-strand reads in the orientation they were sequenced in")
	headerFlag := cmd.Flags.Bool("header", false, "Write the SAM header before the reads")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("view takes one pathname argument, but got %v", argv)
		}
		opts := viewOpts{sequenced: *sequencedFlag, header: *headerFlag}
		var err error
		if opts.input, err = input(); err != nil {
			return err
		}
		if *outFormatFlag != "" {
			if opts.output, err = parseFormat(*outFormatFlag); err != nil {
				return err
			}
		}
		ctx := vcontext.Background()
		return withOutput(ctx, *outputFlag, func(w io.Writer) error {
			return view(ctx, argv[0], w, opts)
		})
	})
	return cmd
}

func newCmdFlagstat() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "flagstat",
		Short:    "Show read and template counts by SAM flag, in the manner of 'samtools flagstat'",
		ArgsName: "path",
	}
	input := inputFlags(cmd)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("flagstat takes one pathname argument, but got %v", argv)
		}
		opts, err := input()
		if err != nil {
			return err
		}
		stats, err := flagstat(vcontext.Background(), argv[0], opts)
		if err != nil {
			return err
		}
		stats.write(env.Stdout)
		return nil
	})
	return cmd
}

func newCmdChecksum() *cmdline.Command {
	cmd := &cmdline.Command{
		Name: "checksum",
		Short: `Compute an order-independent checksum of the templates of a file.
The checksum is a JSON string of per-bucket sums of hashed read fields`,
		ArgsName: "path",
	}
	input := inputFlags(cmd)
	opts := checksumOpts{}
	cmd.Flags.IntVar(&opts.buckets, "buckets", 1, "Number of buckets to spread templates over, by name")
	cmd.Flags.BoolVar(&opts.name, "name", false, "Checksum the read names")
	cmd.Flags.BoolVar(&opts.seq, "seq", false, "Checksum the sequences")
	cmd.Flags.BoolVar(&opts.qual, "qual", false, "Checksum the quality strings")
	cmd.Flags.BoolVar(&opts.align, "align", false, "Checksum the alignment fields")
	cmd.Flags.BoolVar(&opts.tags, "tags", false, "Checksum the optional fields")
	cmd.Flags.BoolVar(&opts.all, "all", false, "Checksum all the fields")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("checksum takes a path, but found %v", argv)
		}
		var err error
		if opts.input, err = input(); err != nil {
			return err
		}
		return checksum(vcontext.Background(), argv[0], env.Stdout, opts)
	})
	return cmd
}

func main() {
	shutdown := grail.Init()
	defer shutdown()
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-readsplit",
			Short:    "Split-parallel tools for FASTQ, SAM and FASTA files",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdView(),
				newCmdFlagstat(),
				newCmdChecksum(),
			},
		})
}
