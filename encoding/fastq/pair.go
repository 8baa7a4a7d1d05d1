package fastq

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/seqio/reads"
)

// PairScanner composes a pair of scanners to scan a pair of FASTQ
// streams (R1 and R2 files) into two-read templates.
type PairScanner struct {
	r1, r2 *Scanner
	t1, t2 reads.Template
	err    error
}

// NewPairScanner creates a new FASTQ pair scanner from the provided
// R1 and R2 scanners.
func NewPairScanner(r1, r2 *Scanner) *PairScanner {
	return &PairScanner{r1: r1, r2: r2}
}

// Scan scans the next read pair into t. Scan returns a boolean
// indicating whether the scan succeeded. Once Scan returns false, it
// never returns true again. Upon completion, the user should check
// the Err method to determine whether scanning stopped because of an
// error or because the end of the stream was reached.
//
// The R1 read is flagged as the first segment and the R2 read as the last,
// whatever their name suffixes say.  The two reads must share a template
// name.
func (p *PairScanner) Scan(t *reads.Template) bool {
	if p.err != nil {
		return false
	}
	ok1 := p.r1.Scan(&p.t1)
	ok2 := p.r2.Scan(&p.t2)
	if ok1 != ok2 {
		p.err = ErrDiscordant
	}
	if !ok1 || !ok2 {
		return false
	}
	if p.t1.Name != p.t2.Name {
		p.err = errors.E(ErrDiscordant, fmt.Sprintf("R1 %s, R2 %s", p.t1.Name, p.t2.Name))
		return false
	}
	r1, r2 := p.t1.Reads[0], p.t2.Reads[0]
	r1.Flags = r1.Flags&^sam.Read2 | sam.Paired | sam.Read1
	r2.Flags = r2.Flags&^sam.Read1 | sam.Paired | sam.Read2
	t.Reset()
	t.Name = p.t1.Name
	t.Add(r1)
	t.Add(r2)
	return true
}

// Err returns the scanning error, if any. It should be checked
// after Scan returns false.
func (p *PairScanner) Err() error {
	if err := p.r1.Err(); err != nil {
		return err
	}
	if err := p.r2.Err(); err != nil {
		return err
	}
	return p.err
}
