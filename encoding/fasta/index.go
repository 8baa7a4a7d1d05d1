package fasta

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/seqio/encoding/split"
)

// Index files consist of one tab-separated line per sequence in the associated
// FASTA file.  The format is: "<sequence name>\t<length>\t<byte
// offset>\t<bases per line>\t<bytes per line>".
// For example: "chr3\t12345\t9000\t80\t81".
var indexRegExp = regexp.MustCompile(`^(\S+)\t(\d+)\t(\d+)\t(\d+)\t(\d+)$`)

// IndexEntry is one line of a FASTA index.
type IndexEntry struct {
	Name string
	// Length is the number of bases.
	Length uint64
	// Offset is the file offset of the first base.
	Offset uint64
	// LineBases is the number of bases per line, and LineWidth the number of
	// bytes per line, terminator included.
	LineBases, LineWidth uint64
}

// pos returns the file offset of base i.
func (e IndexEntry) pos(i uint64) uint64 {
	return e.Offset + i/e.LineBases*e.LineWidth + i%e.LineBases
}

// GenerateIndex generates an index (*.fai) from FASTA.  The index can be later
// passed to NewIndexed() to random-access the FASTA file quickly.
//
// The index format is defined by "samtool faidx"
// (http://www.htslib.org/doc/faidx.html).
func GenerateIndex(out io.Writer, in io.Reader) error {
	var (
		w     = tsv.NewWriter(out)
		r     = split.NewLineReader(in, 0, 0)
		e     IndexEntry
		named bool
	)
	flush := func() error {
		w.WriteString(e.Name)
		w.WriteInt64(int64(e.Length))
		w.WriteInt64(int64(e.Offset))
		w.WriteInt64(int64(e.LineBases))
		w.WriteInt64(int64(e.LineWidth))
		return w.EndLine()
	}
	for {
		line, n, err := r.ReadLine(0)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(line) == 0 {
			continue
		}
		if isHeader(line[0]) {
			if named {
				if err := flush(); err != nil {
					return err
				}
			}
			name := line[1:]
			if i := bytes.IndexAny(name, " \t"); i >= 0 {
				name = name[:i]
			}
			e = IndexEntry{Name: string(name), Offset: uint64(r.Pos())}
			named = true
			continue
		}
		if !named {
			return errors.E(errors.Integrity, "malformed FASTA file")
		}
		if e.LineWidth == 0 {
			e.LineBases, e.LineWidth = uint64(len(line)), uint64(n)
		}
		e.Length += uint64(len(line))
	}
	if r.Pos() == 0 {
		return errors.E(errors.Integrity, "empty FASTA file")
	}
	if named {
		if err := flush(); err != nil {
			return err
		}
	}
	return w.Flush()
}

// ParseIndex parses a FASTA index.  Entries are returned in file order.
func ParseIndex(index io.Reader) ([]IndexEntry, error) {
	var entries []IndexEntry
	scanner := bufio.NewScanner(index)
	for scanner.Scan() {
		matches := indexRegExp.FindStringSubmatch(scanner.Text())
		if len(matches) != 6 {
			return nil, errors.E(errors.Integrity, fmt.Sprintf("invalid index line: %s", scanner.Text()))
		}
		e := IndexEntry{Name: matches[1]}
		for i, v := range []*uint64{&e.Length, &e.Offset, &e.LineBases, &e.LineWidth} {
			n, err := strconv.ParseUint(matches[i+2], 10, 64)
			if err != nil {
				return nil, errors.E(errors.Integrity, fmt.Sprintf("invalid index line: %s", scanner.Text()), err)
			}
			*v = n
		}
		if e.Length > 0 && (e.LineBases == 0 || e.LineWidth < e.LineBases) {
			return nil, errors.E(errors.Integrity, fmt.Sprintf("invalid line geometry for %s", e.Name))
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Offset < entries[j].Offset })
	return entries, nil
}

type indexedFasta struct {
	seqs     map[string]IndexEntry
	seqNames []string
	mu       sync.Mutex
	r        io.ReadSeeker
	buf      []byte
}

// NewIndexed creates a new Fasta that can perform efficient random lookups
// using the provided index, without reading the data into memory.
func NewIndexed(fasta io.ReadSeeker, index io.Reader) (Fasta, error) {
	entries, err := ParseIndex(index)
	if err != nil {
		return nil, err
	}
	f := &indexedFasta{seqs: make(map[string]IndexEntry, len(entries)), r: fasta}
	for _, e := range entries {
		f.seqs[e.Name] = e
		f.seqNames = append(f.seqNames, e.Name)
	}
	return f, nil
}

// Len implements Fasta.Len().
func (f *indexedFasta) Len(seqName string) (uint64, error) {
	e, ok := f.seqs[seqName]
	if !ok {
		return 0, errors.E(errors.Invalid, fmt.Sprintf("sequence not found in index: %s", seqName))
	}
	return e.Length, nil
}

// Get implements Fasta.Get().
func (f *indexedFasta) Get(seqName string, start, end uint64) (string, error) {
	e, ok := f.seqs[seqName]
	if !ok {
		return "", errors.E(errors.Invalid, fmt.Sprintf("sequence not found in index: %s", seqName))
	}
	if err := checkRange(seqName, start, end, e.Length); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	first := e.pos(start)
	n := int(e.pos(end-1) - first + 1)
	if cap(f.buf) < n {
		f.buf = make([]byte, n)
	}
	f.buf = f.buf[:n]
	if _, err := f.r.Seek(int64(first), io.SeekStart); err != nil {
		return "", err
	}
	if _, err := io.ReadFull(f.r, f.buf); err != nil {
		return "", errors.E(err, fmt.Sprintf("reading %s:%d-%d (bad index?)", seqName, start, end))
	}
	out := make([]byte, 0, end-start)
	for i := start; i < end; {
		lineEnd := (i/e.LineBases + 1) * e.LineBases
		if lineEnd > end {
			lineEnd = end
		}
		off := e.pos(i) - first
		out = append(out, f.buf[off:off+lineEnd-i]...)
		i = lineEnd
	}
	return string(out), nil
}

// SeqNames implements Fasta.SeqNames().
func (f *indexedFasta) SeqNames() []string {
	return f.seqNames
}
