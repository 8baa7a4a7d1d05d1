package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"hash"
	"io"
	"runtime"

	"blainsmith.com/go/seahash"
	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/errorreporter"
	"github.com/grailbio/base/unsafe"
	"github.com/grailbio/seqio/encoding/split"
	"github.com/grailbio/seqio/reads"
)

type checksumOpts struct {
	input inputOpts

	// buckets is the number of buckets templates are spread over, by name
	// fingerprint.
	buckets int

	// all treats all the following bool fields to be true.
	all bool

	// name causes the read names to be added to the checksum.
	name bool
	// seq causes the sequences to be added to the checksum.
	seq bool
	// qual causes the quality strings to be added to the checksum.
	qual bool
	// align causes ref, pos, mapq, cigar and the mate fields to be added to
	// the checksum.
	align bool
	// tags causes the optional fields to be added to the checksum.
	tags bool
}

// bucketChecksum is the checksum of the templates that fall in one bucket.
// Every sum is commutative, so the result does not depend on the order in
// which templates are read, or on how the file was split.
type bucketChecksum struct {
	// NTemplates is the # of templates in the bucket.
	NTemplates int64
	// NReads is the # of reads.
	NReads int64
	// SumLength is the sum of the template lengths.
	SumLength uint64
	// SumFlags is sum of all flag values.
	SumFlags uint64
	// SumName is sum of all names.
	SumName uint64
	// SumSeq is sum of all seq strings.
	SumSeq uint64
	// SumQual is the sum of all quality strings.
	SumQual uint64
	// SumAlign is the sum of the alignment fields.
	SumAlign uint64
	// SumTags is the sum of all optional fields.
	SumTags uint64
}

func hashField(h hash.Hash64, pos [8]byte, value []byte) uint64 {
	h.Reset()
	h.Write(pos[:])
	h.Write(value)
	return h.Sum64()
}

func (c *bucketChecksum) add(t *reads.Template, h hash.Hash64, opts checksumOpts) {
	c.NTemplates++
	c.SumLength += uint64(t.Length)
	value := [8]byte{}
	for _, r := range t.Reads {
		c.NReads++
		// Keying each field by read name and flags makes identical fields of
		// different reads hash differently.
		pos := [8]byte{}
		binary.LittleEndian.PutUint64(pos[:], farm.Hash64WithSeed(unsafe.StringToBytes(r.Name), uint64(r.Flags)))

		binary.LittleEndian.PutUint32(value[:4], uint32(r.Flags))
		c.SumFlags += hashField(h, pos, value[:4])
		if opts.all || opts.name {
			c.SumName += hashField(h, pos, unsafe.StringToBytes(r.Name))
		}
		if opts.all || opts.seq {
			c.SumSeq += hashField(h, pos, r.Seq)
		}
		if opts.all || opts.qual {
			c.SumQual += hashField(h, pos, r.Qual)
		}
		if opts.all || opts.align {
			h.Reset()
			h.Write(pos[:])
			h.Write(unsafe.StringToBytes(r.Ref))
			h.Write(unsafe.StringToBytes(r.NextRef))
			h.Write(unsafe.StringToBytes(r.Cigar.String()))
			binary.LittleEndian.PutUint32(value[:4], uint32(r.Pos))
			binary.LittleEndian.PutUint32(value[4:], uint32(r.NextPos))
			h.Write(value[:])
			binary.LittleEndian.PutUint32(value[:4], uint32(r.MapQ))
			h.Write(value[:4])
			c.SumAlign += h.Sum64()
		}
		if opts.all || opts.tags {
			h.Reset()
			h.Write(pos[:])
			for _, tag := range r.Tags {
				h.Write(unsafe.StringToBytes(tag.String()))
				h.Write([]byte{'\t'})
			}
			c.SumTags += h.Sum64()
		}
	}
}

func (c *bucketChecksum) merge(other bucketChecksum) {
	c.NTemplates += other.NTemplates
	c.NReads += other.NReads
	c.SumLength += other.SumLength
	c.SumFlags += other.SumFlags
	c.SumName += other.SumName
	c.SumSeq += other.SumSeq
	c.SumQual += other.SumQual
	c.SumAlign += other.SumAlign
	c.SumTags += other.SumTags
}

// fileChecksum represents the checksum of a file.
type fileChecksum struct {
	Buckets []bucketChecksum
	err     errorreporter.T
}

func newFileChecksum(buckets int) fileChecksum {
	if buckets <= 0 {
		buckets = 1
	}
	return fileChecksum{Buckets: make([]bucketChecksum, buckets)}
}

func (csum *fileChecksum) add(t *reads.Template, h hash.Hash64, opts checksumOpts) {
	b := farm.Fingerprint64(unsafe.StringToBytes(t.Name)) % uint64(len(csum.Buckets))
	csum.Buckets[b].add(t, h, opts)
}

func (csum *fileChecksum) merge(other fileChecksum) {
	for i := range other.Buckets {
		csum.Buckets[i].merge(other.Buckets[i])
	}
	csum.err.Set(other.err.Err())
}

func checksumSplits(ctx context.Context, opts checksumOpts, ch chan split.Split) fileChecksum {
	csum := newFileChecksum(opts.buckets)
	h := seahash.New()
	for s := range ch {
		csum.err.Set(scanSplit(ctx, s, opts.input, func(t *reads.Template) error {
			csum.add(t, h, opts)
			return nil
		}))
	}
	return csum
}

func checksumFile(ctx context.Context, path string, opts checksumOpts) fileChecksum {
	csum := newFileChecksum(opts.buckets)
	splits, err := inputSplits(ctx, path, &opts.input)
	if err != nil {
		csum.err.Set(err)
		return csum
	}
	splitCh := make(chan split.Split, len(splits))
	for _, s := range splits {
		splitCh <- s
	}
	close(splitCh)
	parallelism := runtime.NumCPU()
	if parallelism > len(splits) {
		parallelism = len(splits)
	}
	resultCh := make(chan fileChecksum, parallelism)
	for i := 0; i < parallelism; i++ {
		go func() {
			resultCh <- checksumSplits(ctx, opts, splitCh)
		}()
	}
	for i := 0; i < parallelism; i++ {
		csum.merge(<-resultCh)
	}
	return csum
}

func checksum(ctx context.Context, path string, out io.Writer, opts checksumOpts) error {
	csum := checksumFile(ctx, path, opts)
	if csum.err.Err() != nil {
		return csum.err.Err()
	}
	js, err := json.MarshalIndent(csum, "", "  ")
	if err != nil {
		return err
	}
	js = append(js, '\n')
	_, err = out.Write(js)
	return err
}
